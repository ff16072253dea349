package room

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/cashout-chess/internal/chess"
	"github.com/park285/cashout-chess/internal/obslog"
	"github.com/park285/cashout-chess/pkg/chessdto"
)

// Registry owns every live room. The map is guarded by mu; each room has its
// own lock so unrelated games never contend. mu is never held while waiting
// on a room lock.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	codeLen   int
	codeGen   CodeGenerator
	observers []Observer
	metrics   *Metrics
	now       func() time.Time
}

type Option func(*Registry)

// WithCodeLength sets the room id length. Non-positive values are ignored.
func WithCodeLength(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.codeLen = n
		}
	}
}

func WithCodeGenerator(g CodeGenerator) Option {
	return func(r *Registry) {
		if g != nil {
			r.codeGen = g
		}
	}
}

// WithObserver registers o. Observers run in registration order after the
// room lock is released; one room's events are never delivered concurrently
// or out of order.
func WithObserver(o Observer) Option {
	return func(r *Registry) {
		if o != nil {
			r.observers = append(r.observers, o)
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		rooms:   make(map[string]*Room),
		codeLen: DefaultCodeLength,
		codeGen: RandomCode,
		metrics: &Metrics{},
		now:     time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// AddObserver registers o after construction, e.g. once the push hub exists.
func (g *Registry) AddObserver(o Observer) {
	if o == nil {
		return
	}
	g.mu.Lock()
	g.observers = append(g.observers, o)
	g.mu.Unlock()
}

func (g *Registry) Metrics() *Metrics { return g.metrics }

// Len returns the number of live rooms.
func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}

func (g *Registry) lookup(id string) *Room {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.rooms[strings.TrimSpace(id)]
}

func (g *Registry) publish(ctx context.Context, ev Event) {
	g.mu.RLock()
	obs := append([]Observer(nil), g.observers...)
	g.mu.RUnlock()
	for _, o := range obs {
		o.Publish(ctx, ev)
	}
}

// CreateRoom opens a room with the caller seated as white.
func (g *Registry) CreateRoom(ctx context.Context, name, connRef string) (chessdto.Room, chessdto.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return chessdto.Room{}, chessdto.Player{}, ErrInvalidArgs
	}
	now := g.now()
	p := &Player{ID: uuid.NewString(), Name: name, Color: chess.White, ConnRef: connRef}
	rm := &Room{
		players:   []*Player{p},
		state:     chess.NewGameState(),
		current:   chess.White,
		status:    StatusWaiting,
		moves:     []chessdto.MoveRecord{},
		createdAt: now,
		updatedAt: now,
	}
	// The new room is locked before it becomes visible so its creation
	// snapshot precedes any join.
	rm.mu.Lock()
	if err := g.insert(rm); err != nil {
		rm.mu.Unlock()
		obslog.L().Error("room_create_error", zap.String("player", name), zap.Error(err))
		return chessdto.Room{}, chessdto.Player{}, err
	}
	snap := rm.snapshot()
	done := rm.release()
	defer done()

	g.metrics.incCreated()
	pdto := playerDTO(p)
	obslog.L().Info("room_create", zap.String("room_id", snap.ID), zap.String("player_id", p.ID), zap.String("player", name))
	g.publish(ctx, Event{Kind: EventRoomCreated, RoomID: snap.ID, Room: snap, Player: &pdto, ConnRef: connRef})
	return snap, pdto, nil
}

func (g *Registry) insert(rm *Room) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := 0; i < codeAttempts; i++ {
		code, err := g.codeGen(g.codeLen)
		if err != nil {
			return fmt.Errorf("room code: %w", err)
		}
		if _, taken := g.rooms[code]; taken || code == "" {
			continue
		}
		rm.id = code
		g.rooms[code] = rm
		return nil
	}
	return ErrCodeSpaceExhausted
}

// JoinRoom seats a second player on the free color and starts the game.
func (g *Registry) JoinRoom(ctx context.Context, roomID, name, connRef string) (chessdto.Room, chessdto.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return chessdto.Room{}, chessdto.Player{}, ErrInvalidArgs
	}
	rm := g.lookup(roomID)
	if rm == nil {
		return chessdto.Room{}, chessdto.Player{}, ErrRoomNotFound
	}
	rm.mu.Lock()
	if rm.closed {
		rm.mu.Unlock()
		return chessdto.Room{}, chessdto.Player{}, ErrRoomNotFound
	}
	if len(rm.players) >= 2 {
		rm.mu.Unlock()
		return chessdto.Room{}, chessdto.Player{}, ErrRoomFull
	}
	if rm.status == StatusFinished {
		rm.mu.Unlock()
		return chessdto.Room{}, chessdto.Player{}, ErrGameNotActive
	}
	// The seat takes whichever color is vacant, so a room white left
	// mid-game seats its next joiner as white.
	color := chess.Black
	if len(rm.players) == 1 {
		color = rm.players[0].Color.Opponent()
	}
	p := &Player{ID: uuid.NewString(), Name: name, Color: color, ConnRef: connRef}
	rm.players = append(rm.players, p)
	rm.status = StatusPlaying
	rm.updatedAt = g.now()
	snap := rm.snapshot()
	done := rm.release()
	defer done()

	g.metrics.incJoin()
	pdto := playerDTO(p)
	obslog.L().Info("room_join", zap.String("room_id", snap.ID), zap.String("player_id", p.ID), zap.String("color", string(color)))
	g.publish(ctx, Event{Kind: EventPlayerJoined, RoomID: snap.ID, Room: snap, Player: &pdto, ConnRef: connRef})
	return snap, pdto, nil
}

// MakeMove applies a move on behalf of color.
func (g *Registry) MakeMove(ctx context.Context, roomID, from, to string, color chess.Color) (chessdto.MoveMade, error) {
	return g.move(ctx, roomID, from, to, func(*Room) (chess.Color, error) { return color, nil })
}

// MakeMoveAs resolves the mover's color from their seat.
func (g *Registry) MakeMoveAs(ctx context.Context, roomID, playerID, from, to string) (chessdto.MoveMade, error) {
	return g.move(ctx, roomID, from, to, func(rm *Room) (chess.Color, error) {
		_, p := rm.playerByID(playerID)
		if p == nil {
			return "", ErrPlayerNotFound
		}
		return p.Color, nil
	})
}

// MakeMoveByConn resolves the mover from the push connection holding a seat.
func (g *Registry) MakeMoveByConn(ctx context.Context, roomID, connRef, from, to string) (chessdto.MoveMade, error) {
	return g.move(ctx, roomID, from, to, func(rm *Room) (chess.Color, error) {
		_, p := rm.playerByConn(connRef)
		if p == nil {
			return "", ErrPlayerNotFound
		}
		return p.Color, nil
	})
}

func (g *Registry) move(ctx context.Context, roomID, from, to string, mover func(*Room) (chess.Color, error)) (chessdto.MoveMade, error) {
	rm := g.lookup(roomID)
	if rm == nil {
		return chessdto.MoveMade{}, ErrRoomNotFound
	}
	rm.mu.Lock()
	mm, snap, err := g.moveLocked(rm, from, to, mover)
	if err != nil {
		rm.mu.Unlock()
		g.metrics.incRejected()
		obslog.L().Debug("room_move_rejected", zap.String("room_id", rm.id), zap.String("from", from), zap.String("to", to), zap.Error(err))
		return chessdto.MoveMade{}, err
	}
	done := rm.release()
	defer done()

	g.metrics.incMove()
	obslog.L().Info("room_move",
		zap.String("room_id", mm.RoomID),
		zap.String("color", mm.Move.Color),
		zap.String("from", from),
		zap.String("to", to),
		zap.Int("ply", mm.Move.Ply),
	)
	g.publish(ctx, Event{Kind: EventMoveMade, RoomID: mm.RoomID, Room: snap, Move: &mm})
	return mm, nil
}

// moveLocked must be called with rm.mu held. Rejections leave rm untouched.
func (g *Registry) moveLocked(rm *Room, from, to string, mover func(*Room) (chess.Color, error)) (chessdto.MoveMade, chessdto.Room, error) {
	if rm.closed {
		return chessdto.MoveMade{}, chessdto.Room{}, ErrRoomNotFound
	}
	color, err := mover(rm)
	if err != nil {
		return chessdto.MoveMade{}, chessdto.Room{}, err
	}
	if rm.status != StatusPlaying {
		return chessdto.MoveMade{}, chessdto.Room{}, ErrGameNotActive
	}
	if color != rm.current {
		return chessdto.MoveMade{}, chessdto.Room{}, ErrNotYourTurn
	}
	if verr := chess.Validate(rm.state, from, to, color); verr != nil {
		return chessdto.MoveMade{}, chessdto.Room{}, fmt.Errorf("%w: %w", ErrInvalidMove, verr)
	}
	piece := *rm.state.Board.At(from)
	captured := chess.Apply(rm.state, from, to)
	now := g.now()
	rec := chessdto.MoveRecord{
		Ply:   len(rm.moves) + 1,
		Color: string(color),
		From:  from,
		To:    to,
		Piece: pieceDTO(piece),
		At:    now,
	}
	if captured != nil {
		cp := pieceDTO(*captured)
		rec.Captured = &cp
	}
	rm.moves = append(rm.moves, rec)
	rm.current = rm.current.Opponent()
	rm.updatedAt = now
	snap := rm.snapshot()
	return chessdto.MoveMade{
		RoomID:        rm.id,
		From:          from,
		To:            to,
		GameState:     snap.GameState,
		CurrentPlayer: snap.CurrentPlayer,
		Move:          rec,
	}, snap, nil
}

// LeaveRoom removes a player. The last player out destroys the room; a
// player leaving mid-game returns the room to waiting with the seat open.
func (g *Registry) LeaveRoom(ctx context.Context, roomID, playerID string) (chessdto.Room, error) {
	return g.leave(ctx, roomID, func(rm *Room) (int, *Player) { return rm.playerByID(playerID) })
}

// LeaveRoomByConn removes the seat held by the push connection.
func (g *Registry) LeaveRoomByConn(ctx context.Context, roomID, connRef string) (chessdto.Room, error) {
	return g.leave(ctx, roomID, func(rm *Room) (int, *Player) { return rm.playerByConn(connRef) })
}

func (g *Registry) leave(ctx context.Context, roomID string, seat func(*Room) (int, *Player)) (chessdto.Room, error) {
	rm := g.lookup(roomID)
	if rm == nil {
		return chessdto.Room{}, ErrRoomNotFound
	}
	rm.mu.Lock()
	if rm.closed {
		rm.mu.Unlock()
		return chessdto.Room{}, ErrRoomNotFound
	}
	idx, _ := seat(rm)
	if idx < 0 {
		rm.mu.Unlock()
		return chessdto.Room{}, ErrPlayerNotFound
	}
	ev := g.removeLocked(rm, idx)
	done := rm.release()
	defer done()

	g.afterLeave(ctx, rm, ev)
	return ev.Room, nil
}

// Disconnect removes the connection's seat from every room holding it and
// returns how many seats were released.
func (g *Registry) Disconnect(ctx context.Context, connRef string) int {
	if connRef == "" {
		return 0
	}
	g.mu.RLock()
	candidates := make([]*Room, 0, len(g.rooms))
	for _, rm := range g.rooms {
		candidates = append(candidates, rm)
	}
	g.mu.RUnlock()

	n := 0
	for _, rm := range candidates {
		rm.mu.Lock()
		if rm.closed {
			rm.mu.Unlock()
			continue
		}
		idx, _ := rm.playerByConn(connRef)
		if idx < 0 {
			rm.mu.Unlock()
			continue
		}
		ev := g.removeLocked(rm, idx)
		done := rm.release()
		g.afterLeave(ctx, rm, ev)
		done()
		n++
	}
	if n > 0 {
		obslog.L().Info("room_disconnect", zap.String("conn", connRef), zap.Int("seats", n))
	}
	return n
}

// removeLocked must be called with rm.mu held.
func (g *Registry) removeLocked(rm *Room, idx int) Event {
	p := rm.players[idx]
	rm.players = append(rm.players[:idx], rm.players[idx+1:]...)
	rm.updatedAt = g.now()
	pdto := playerDTO(p)
	if len(rm.players) == 0 {
		rm.closed = true
		return Event{Kind: EventRoomClosed, RoomID: rm.id, Room: rm.snapshot(), Player: &pdto, ConnRef: p.ConnRef, Reason: "empty"}
	}
	if rm.status == StatusPlaying {
		rm.status = StatusWaiting
	}
	return Event{Kind: EventPlayerLeft, RoomID: rm.id, Room: rm.snapshot(), Player: &pdto, ConnRef: p.ConnRef}
}

func (g *Registry) afterLeave(ctx context.Context, rm *Room, ev Event) {
	g.metrics.incLeave()
	if ev.Kind == EventRoomClosed {
		g.mu.Lock()
		if g.rooms[rm.id] == rm {
			delete(g.rooms, rm.id)
		}
		g.mu.Unlock()
		g.metrics.incClosed()
		obslog.L().Info("room_close", zap.String("room_id", ev.RoomID), zap.String("reason", ev.Reason))
	} else {
		obslog.L().Info("room_leave", zap.String("room_id", ev.RoomID), zap.String("player_id", ev.Player.ID))
	}
	g.publish(ctx, ev)
}

// Resign ends a playing game in favor of the resigner's opponent.
func (g *Registry) Resign(ctx context.Context, roomID, playerID string) (chessdto.Room, error) {
	return g.resign(ctx, roomID, func(rm *Room) (int, *Player) { return rm.playerByID(playerID) })
}

// ResignByConn resigns for the seat held by the push connection.
func (g *Registry) ResignByConn(ctx context.Context, roomID, connRef string) (chessdto.Room, error) {
	return g.resign(ctx, roomID, func(rm *Room) (int, *Player) { return rm.playerByConn(connRef) })
}

func (g *Registry) resign(ctx context.Context, roomID string, seat func(*Room) (int, *Player)) (chessdto.Room, error) {
	rm := g.lookup(roomID)
	if rm == nil {
		return chessdto.Room{}, ErrRoomNotFound
	}
	rm.mu.Lock()
	if rm.closed {
		rm.mu.Unlock()
		return chessdto.Room{}, ErrRoomNotFound
	}
	_, p := seat(rm)
	if p == nil {
		rm.mu.Unlock()
		return chessdto.Room{}, ErrPlayerNotFound
	}
	if rm.status != StatusPlaying {
		rm.mu.Unlock()
		return chessdto.Room{}, ErrGameNotActive
	}
	rm.status = StatusFinished
	rm.winner = p.Color.Opponent()
	rm.updatedAt = g.now()
	snap := rm.snapshot()
	done := rm.release()
	defer done()

	g.metrics.incResign()
	pdto := playerDTO(p)
	obslog.L().Info("room_resign", zap.String("room_id", snap.ID), zap.String("resigner", p.ID), zap.String("winner", snap.Winner))
	g.publish(ctx, Event{Kind: EventGameOver, RoomID: snap.ID, Room: snap, Player: &pdto, ConnRef: p.ConnRef, Reason: "resignation"})
	return snap, nil
}

// GetRoom returns a snapshot of the room.
func (g *Registry) GetRoom(_ context.Context, roomID string) (chessdto.Room, error) {
	rm := g.lookup(roomID)
	if rm == nil {
		return chessdto.Room{}, ErrRoomNotFound
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.closed {
		return chessdto.Room{}, ErrRoomNotFound
	}
	return rm.snapshot(), nil
}

// ListRooms returns snapshots ordered by creation time. An empty status
// returns every room.
func (g *Registry) ListRooms(_ context.Context, status Status) []chessdto.Room {
	g.mu.RLock()
	all := make([]*Room, 0, len(g.rooms))
	for _, rm := range g.rooms {
		all = append(all, rm)
	}
	g.mu.RUnlock()

	out := make([]chessdto.Room, 0, len(all))
	for _, rm := range all {
		rm.mu.Lock()
		if !rm.closed && (status == "" || rm.status == status) {
			out = append(out, rm.snapshot())
		}
		rm.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Restore seeds rooms from persisted snapshots. Rooms whose id is already
// live, that have no players, or whose state does not parse are skipped.
// Restored seats carry no connection.
func (g *Registry) Restore(_ context.Context, rooms []chessdto.Room) int {
	n := 0
	for _, s := range rooms {
		rm, ok := roomFromSnapshot(s)
		if !ok {
			obslog.L().Warn("room_restore_skip", zap.String("room_id", s.ID))
			continue
		}
		g.mu.Lock()
		if _, taken := g.rooms[rm.id]; !taken {
			g.rooms[rm.id] = rm
			n++
		}
		g.mu.Unlock()
	}
	g.metrics.addRestored(n)
	if n > 0 {
		obslog.L().Info("room_restore", zap.Int("rooms", n))
	}
	return n
}

func roomFromSnapshot(s chessdto.Room) (*Room, bool) {
	s.ID = strings.TrimSpace(s.ID)
	if s.ID == "" || len(s.Players) == 0 || len(s.Players) > 2 {
		return nil, false
	}
	current := chess.Color(s.CurrentPlayer)
	if !current.Valid() {
		return nil, false
	}
	status := Status(s.Status)
	switch status {
	case StatusWaiting, StatusPlaying, StatusFinished:
	default:
		return nil, false
	}
	rm := &Room{
		id:        s.ID,
		state:     GameStateFromDTO(s.GameState),
		current:   current,
		status:    status,
		winner:    chess.Color(s.Winner),
		moves:     append([]chessdto.MoveRecord{}, s.Moves...),
		createdAt: s.CreatedAt,
		updatedAt: s.UpdatedAt,
	}
	for _, p := range s.Players {
		c := chess.Color(p.Color)
		if p.ID == "" || !c.Valid() {
			return nil, false
		}
		rm.players = append(rm.players, &Player{ID: p.ID, Name: p.Name, Color: c})
	}
	if len(rm.players) == 2 && rm.players[0].Color == rm.players[1].Color {
		return nil, false
	}
	return rm, true
}
