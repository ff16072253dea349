package room

import (
	"context"
	"sync"
	"time"

	"github.com/park285/cashout-chess/internal/chess"
	"github.com/park285/cashout-chess/pkg/chessdto"
)

// Status is the room lifecycle state.
type Status string

const (
	StatusWaiting  Status = chessdto.StatusWaiting
	StatusPlaying  Status = chessdto.StatusPlaying
	StatusFinished Status = chessdto.StatusFinished
)

// Player is a seated participant. ConnRef names the push connection that
// owns the seat and is empty for poll clients.
type Player struct {
	ID      string
	Name    string
	Color   chess.Color
	ConnRef string
}

// Room is the registry-owned state of one game. All fields are guarded by mu.
type Room struct {
	mu sync.Mutex
	// pubMu is taken before mu is released and held until observers return,
	// so a room's events reach observers in the order they happened.
	pubMu sync.Mutex

	id        string
	players   []*Player
	state     *chess.GameState
	current   chess.Color
	status    Status
	winner    chess.Color
	moves     []chessdto.MoveRecord
	createdAt time.Time
	updatedAt time.Time

	// closed is set under mu once the room leaves the registry map.
	closed bool
}

// release swaps mu for pubMu. The caller must hold mu and call the returned
// func once the event is published.
func (r *Room) release() func() {
	r.pubMu.Lock()
	r.mu.Unlock()
	return r.pubMu.Unlock
}

func (r *Room) playerByID(id string) (int, *Player) {
	for i, p := range r.players {
		if p.ID == id {
			return i, p
		}
	}
	return -1, nil
}

func (r *Room) playerByConn(ref string) (int, *Player) {
	if ref == "" {
		return -1, nil
	}
	for i, p := range r.players {
		if p.ConnRef == ref {
			return i, p
		}
	}
	return -1, nil
}

// EventKind names a registry notification. Values match push event names.
type EventKind string

const (
	EventRoomCreated  EventKind = chessdto.EventRoomCreated
	EventPlayerJoined EventKind = chessdto.EventPlayerJoined
	EventMoveMade     EventKind = chessdto.EventMoveMade
	EventPlayerLeft   EventKind = chessdto.EventPlayerLeft
	EventGameOver     EventKind = chessdto.EventGameOver
	EventRoomClosed   EventKind = chessdto.EventRoomClosed
)

// Event is published after the room lock is released. Room is the snapshot
// taken at the moment of the mutation.
type Event struct {
	Kind    EventKind
	RoomID  string
	Room    chessdto.Room
	Player  *chessdto.Player
	ConnRef string
	Move    *chessdto.MoveMade
	Reason  string
}

// Observer receives registry events. Publish must not call back into the
// registry synchronously for the same room.
type Observer interface {
	Publish(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev Event)

func (f ObserverFunc) Publish(ctx context.Context, ev Event) { f(ctx, ev) }
