package room

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/park285/cashout-chess/internal/chess"
	"github.com/park285/cashout-chess/pkg/chessdto"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Publish(_ context.Context, ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

func newPlayingRoom(t *testing.T, g *Registry) (chessdto.Room, chessdto.Player, chessdto.Player) {
	t.Helper()
	ctx := context.Background()
	rm, alice, err := g.CreateRoom(ctx, "Alice", "conn-a")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	rm, bob, err := g.JoinRoom(ctx, rm.ID, "Bob", "conn-b")
	if err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}
	return rm, alice, bob
}

func TestCreateRoom(t *testing.T) {
	g := NewRegistry()
	rm, p, err := g.CreateRoom(context.Background(), "Alice", "")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if len(rm.ID) != DefaultCodeLength {
		t.Fatalf("room id length: %q", rm.ID)
	}
	if len(rm.Players) != 1 || rm.Players[0].Name != "Alice" || rm.Players[0].Color != "white" {
		t.Fatalf("players: %+v", rm.Players)
	}
	if p.ID == "" || p.Color != "white" {
		t.Fatalf("player: %+v", p)
	}
	if rm.Status != chessdto.StatusWaiting || rm.CurrentPlayer != "white" {
		t.Fatalf("status=%s current=%s", rm.Status, rm.CurrentPlayer)
	}
	if rm.FEN != "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR" {
		t.Fatalf("fen: %s", rm.FEN)
	}
	if _, _, err := g.CreateRoom(context.Background(), "   ", ""); !errors.Is(err, ErrInvalidArgs) {
		t.Fatalf("blank name: %v", err)
	}
}

func TestJoinRoomSeatsBlackAndStarts(t *testing.T) {
	g := NewRegistry()
	rm, _, bob := newPlayingRoom(t, g)
	if len(rm.Players) != 2 || bob.Color != "black" || bob.Name != "Bob" {
		t.Fatalf("join result: %+v %+v", rm.Players, bob)
	}
	if rm.Status != chessdto.StatusPlaying {
		t.Fatalf("status: %s", rm.Status)
	}
	if _, _, err := g.JoinRoom(context.Background(), rm.ID, "Carol", ""); !errors.Is(err, ErrRoomFull) {
		t.Fatalf("third join: %v", err)
	}
	if _, _, err := g.JoinRoom(context.Background(), "missing", "Carol", ""); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("join missing: %v", err)
	}
}

func TestMakeMoveFlipsTurn(t *testing.T) {
	g := NewRegistry()
	rm, _, _ := newPlayingRoom(t, g)
	ctx := context.Background()

	mm, err := g.MakeMove(ctx, rm.ID, "e2", "e4", chess.White)
	if err != nil {
		t.Fatalf("MakeMove: %v", err)
	}
	if mm.CurrentPlayer != "black" {
		t.Fatalf("current after move: %s", mm.CurrentPlayer)
	}
	if mm.GameState.Board[6][4] != nil {
		t.Fatalf("e2 should be empty")
	}
	if p := mm.GameState.Board[4][4]; p == nil || p.Type != "pawn" || p.Color != "white" {
		t.Fatalf("e4: %+v", p)
	}
	lm := mm.GameState.LastMove
	if lm == nil || lm.From != "e2" || lm.To != "e4" || lm.Piece.Type != "pawn" || lm.Piece.Color != "white" {
		t.Fatalf("lastMove: %+v", lm)
	}
	if mm.Move.Ply != 1 || mm.Move.Color != "white" {
		t.Fatalf("move record: %+v", mm.Move)
	}

	if _, err := g.MakeMove(ctx, rm.ID, "d2", "d4", chess.White); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("out of turn: %v", err)
	}
	got, _ := g.GetRoom(ctx, rm.ID)
	if len(got.Moves) != 1 || got.CurrentPlayer != "black" {
		t.Fatalf("rejected move mutated room: %+v", got.Moves)
	}
}

func TestMakeMoveRejectsForeignOrEmptySource(t *testing.T) {
	g := NewRegistry()
	rm, _, _ := newPlayingRoom(t, g)
	ctx := context.Background()
	before, _ := g.GetRoom(ctx, rm.ID)

	for _, sq := range []string{"e4", "e7"} {
		_, err := g.MakeMove(ctx, rm.ID, sq, "e5", chess.White)
		if !errors.Is(err, ErrInvalidMove) || !errors.Is(err, chess.ErrInvalidPiece) {
			t.Fatalf("%s: expected InvalidMove wrapping InvalidPiece, got %v", sq, err)
		}
		if ErrorCode(err) != chessdto.CodeInvalidMove || MoveCause(err) != chessdto.CodeInvalidPiece {
			t.Fatalf("codes: %s %s", ErrorCode(err), MoveCause(err))
		}
	}
	_, err := g.MakeMove(ctx, rm.ID, "z9", "e5", chess.White)
	if !errors.Is(err, chess.ErrInvalidPosition) {
		t.Fatalf("bad square: %v", err)
	}
	after, _ := g.GetRoom(ctx, rm.ID)
	if after.FEN != before.FEN || after.CurrentPlayer != before.CurrentPlayer {
		t.Fatalf("rejected move changed the board")
	}
	if g.Metrics().MovesRejected != 3 {
		t.Fatalf("rejected counter: %d", g.Metrics().MovesRejected)
	}
}

func TestMakeMoveWaitingRoom(t *testing.T) {
	g := NewRegistry()
	ctx := context.Background()
	rm, _, _ := g.CreateRoom(ctx, "Alice", "")
	if _, err := g.MakeMove(ctx, rm.ID, "e2", "e4", chess.White); !errors.Is(err, ErrGameNotActive) {
		t.Fatalf("move in waiting room: %v", err)
	}
	if _, err := g.MakeMove(ctx, "nope", "e2", "e4", chess.White); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("move in missing room: %v", err)
	}
}

func TestCaptureRecorded(t *testing.T) {
	g := NewRegistry()
	rm, alice, bob := newPlayingRoom(t, g)
	ctx := context.Background()
	steps := []struct{ player, from, to string }{
		{alice.ID, "e2", "e4"},
		{bob.ID, "d7", "d5"},
		{alice.ID, "e4", "d5"},
	}
	var last chessdto.MoveMade
	for _, s := range steps {
		mm, err := g.MakeMoveAs(ctx, rm.ID, s.player, s.from, s.to)
		if err != nil {
			t.Fatalf("%s-%s: %v", s.from, s.to, err)
		}
		last = mm
	}
	caps := last.GameState.CapturedPieces
	if len(caps.Black) != 1 || caps.Black[0].Type != "pawn" || len(caps.White) != 0 {
		t.Fatalf("captured: %+v", caps)
	}
	if last.Move.Captured == nil || last.Move.Captured.Color != "black" {
		t.Fatalf("move record capture: %+v", last.Move)
	}
	if p := last.GameState.Board[3][3]; p == nil || p.Color != "white" {
		t.Fatalf("d5 should hold the white pawn: %+v", p)
	}
	if _, err := g.MakeMoveAs(ctx, rm.ID, "stranger", "a7", "a6"); !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("stranger move: %v", err)
	}
}

func TestLeaveRoom(t *testing.T) {
	rec := &recorder{}
	g := NewRegistry(WithObserver(rec))
	rm, alice, bob := newPlayingRoom(t, g)
	ctx := context.Background()

	after, err := g.LeaveRoom(ctx, rm.ID, bob.ID)
	if err != nil {
		t.Fatalf("LeaveRoom: %v", err)
	}
	if len(after.Players) != 1 || after.Status != chessdto.StatusWaiting {
		t.Fatalf("after leave: %+v", after)
	}
	rejoined, carol, err := g.JoinRoom(ctx, rm.ID, "Carol", "")
	if err != nil || carol.Color != "black" || rejoined.Status != chessdto.StatusPlaying {
		t.Fatalf("rejoin: %v %+v", err, carol)
	}
	if _, err := g.LeaveRoom(ctx, rm.ID, "nobody"); !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("unknown player: %v", err)
	}
	if _, err := g.LeaveRoom(ctx, rm.ID, carol.ID); err != nil {
		t.Fatalf("leave carol: %v", err)
	}
	if _, err := g.LeaveRoom(ctx, rm.ID, alice.ID); err != nil {
		t.Fatalf("leave alice: %v", err)
	}
	if _, err := g.GetRoom(ctx, rm.ID); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("room should be gone: %v", err)
	}
	if g.Len() != 0 {
		t.Fatalf("registry not empty")
	}
	want := []EventKind{EventRoomCreated, EventPlayerJoined, EventPlayerLeft, EventPlayerJoined, EventPlayerLeft, EventRoomClosed}
	got := rec.kinds()
	if len(got) != len(want) {
		t.Fatalf("events: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d: got %s want %s", i, got[i], want[i])
		}
	}
}

func TestLeaveWhiteReopensWhiteSeat(t *testing.T) {
	g := NewRegistry()
	rm, alice, _ := newPlayingRoom(t, g)
	ctx := context.Background()
	if _, err := g.LeaveRoom(ctx, rm.ID, alice.ID); err != nil {
		t.Fatalf("LeaveRoom: %v", err)
	}
	_, dan, err := g.JoinRoom(ctx, rm.ID, "Dan", "")
	if err != nil || dan.Color != "white" {
		t.Fatalf("expected white seat: %v %+v", err, dan)
	}
}

func TestDisconnect(t *testing.T) {
	g := NewRegistry()
	ctx := context.Background()
	r1, _, _ := g.CreateRoom(ctx, "Alice", "conn-a")
	r2, _, _ := g.CreateRoom(ctx, "Bob", "conn-b")
	if _, _, err := g.JoinRoom(ctx, r2.ID, "Alice", "conn-a"); err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}
	if n := g.Disconnect(ctx, "conn-a"); n != 2 {
		t.Fatalf("released seats: %d", n)
	}
	if _, err := g.GetRoom(ctx, r1.ID); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("r1 should be destroyed: %v", err)
	}
	left, err := g.GetRoom(ctx, r2.ID)
	if err != nil || len(left.Players) != 1 || left.Players[0].Name != "Bob" {
		t.Fatalf("r2: %v %+v", err, left.Players)
	}
	if n := g.Disconnect(ctx, ""); n != 0 {
		t.Fatalf("empty ref released %d", n)
	}
}

func TestResign(t *testing.T) {
	rec := &recorder{}
	g := NewRegistry(WithObserver(rec))
	rm, alice, bob := newPlayingRoom(t, g)
	ctx := context.Background()

	done, err := g.Resign(ctx, rm.ID, alice.ID)
	if err != nil {
		t.Fatalf("Resign: %v", err)
	}
	if done.Status != chessdto.StatusFinished || done.Winner != "black" {
		t.Fatalf("after resign: status=%s winner=%s", done.Status, done.Winner)
	}
	if _, err := g.Resign(ctx, rm.ID, bob.ID); !errors.Is(err, ErrGameNotActive) {
		t.Fatalf("second resign: %v", err)
	}
	if _, err := g.MakeMoveAs(ctx, rm.ID, bob.ID, "e7", "e5"); !errors.Is(err, ErrGameNotActive) {
		t.Fatalf("move after finish: %v", err)
	}
	if _, err := g.LeaveRoom(ctx, rm.ID, bob.ID); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if _, _, err := g.JoinRoom(ctx, rm.ID, "Eve", ""); !errors.Is(err, ErrGameNotActive) {
		t.Fatalf("join finished room: %v", err)
	}
	kinds := rec.kinds()
	if kinds[2] != EventGameOver {
		t.Fatalf("expected game-over event, got %v", kinds)
	}
}

func TestSeatActionsByConn(t *testing.T) {
	g := NewRegistry()
	rm, _, _ := newPlayingRoom(t, g)
	ctx := context.Background()

	if _, err := g.ResignByConn(ctx, rm.ID, "conn-x"); !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("resign from unseated conn: %v", err)
	}
	if _, err := g.LeaveRoomByConn(ctx, rm.ID, ""); !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("leave without conn: %v", err)
	}
	done, err := g.ResignByConn(ctx, rm.ID, "conn-b")
	if err != nil || done.Winner != "white" {
		t.Fatalf("ResignByConn: %v %+v", err, done)
	}
	left, err := g.LeaveRoomByConn(ctx, rm.ID, "conn-a")
	if err != nil || len(left.Players) != 1 || left.Players[0].Name != "Bob" {
		t.Fatalf("LeaveRoomByConn: %v %+v", err, left.Players)
	}
}

func TestEventsOfOneRoomStayOrdered(t *testing.T) {
	rec := &recorder{}
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	slow := ObserverFunc(func(_ context.Context, ev Event) {
		if ev.Kind == EventMoveMade {
			once.Do(func() {
				close(entered)
				<-release
			})
		}
	})
	g := NewRegistry(WithObserver(slow), WithObserver(rec))
	rm, alice, bob := newPlayingRoom(t, g)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = g.MakeMoveAs(ctx, rm.ID, alice.ID, "e2", "e4")
	}()
	<-entered
	go func() {
		defer wg.Done()
		_, _ = g.LeaveRoom(ctx, rm.ID, bob.ID)
	}()
	close(release)
	wg.Wait()

	kinds := rec.kinds()
	want := []EventKind{EventRoomCreated, EventPlayerJoined, EventMoveMade, EventPlayerLeft}
	if len(kinds) != len(want) {
		t.Fatalf("events: %v", kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("events out of order: %v", kinds)
		}
	}
}

func TestListRooms(t *testing.T) {
	g := NewRegistry()
	ctx := context.Background()
	waiting, _, _ := g.CreateRoom(ctx, "Solo", "")
	newPlayingRoom(t, g)

	if all := g.ListRooms(ctx, ""); len(all) != 2 {
		t.Fatalf("all rooms: %d", len(all))
	}
	lobby := g.ListRooms(ctx, StatusWaiting)
	if len(lobby) != 1 || lobby[0].ID != waiting.ID {
		t.Fatalf("lobby: %+v", lobby)
	}
	if n := len(g.ListRooms(ctx, StatusPlaying)); n != 1 {
		t.Fatalf("playing: %d", n)
	}
}

func TestCodeCollisionRetries(t *testing.T) {
	codes := []string{"aaaa", "aaaa", "bbbb"}
	i := 0
	gen := func(int) (string, error) {
		c := codes[i%len(codes)]
		i++
		return c, nil
	}
	g := NewRegistry(WithCodeGenerator(gen))
	ctx := context.Background()
	r1, _, err := g.CreateRoom(ctx, "A", "")
	if err != nil || r1.ID != "aaaa" {
		t.Fatalf("first: %v %s", err, r1.ID)
	}
	r2, _, err := g.CreateRoom(ctx, "B", "")
	if err != nil || r2.ID != "bbbb" {
		t.Fatalf("second should skip collision: %v %s", err, r2.ID)
	}

	stuck := NewRegistry(WithCodeGenerator(func(int) (string, error) { return "same", nil }))
	if _, _, err := stuck.CreateRoom(ctx, "A", ""); err != nil {
		t.Fatalf("first on stuck: %v", err)
	}
	if _, _, err := stuck.CreateRoom(ctx, "B", ""); !errors.Is(err, ErrCodeSpaceExhausted) {
		t.Fatalf("expected exhaustion, got %v", err)
	}
}

func TestRandomCode(t *testing.T) {
	code, err := RandomCode(12)
	if err != nil || len(code) != 12 {
		t.Fatalf("RandomCode: %v %q", err, code)
	}
	for _, c := range code {
		if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9') {
			t.Fatalf("unexpected rune %q in %q", c, code)
		}
	}
}

func TestRestore(t *testing.T) {
	src := NewRegistry()
	rm, alice, _ := newPlayingRoom(t, src)
	ctx := context.Background()
	if _, err := src.MakeMoveAs(ctx, rm.ID, alice.ID, "e2", "e4"); err != nil {
		t.Fatalf("move: %v", err)
	}
	snap, _ := src.GetRoom(ctx, rm.ID)

	dst := NewRegistry()
	bad := chessdto.Room{ID: "broken", CurrentPlayer: "purple", Status: "playing", Players: []chessdto.Player{{ID: "x", Color: "white"}}}
	if n := dst.Restore(ctx, []chessdto.Room{snap, bad, snap}); n != 1 {
		t.Fatalf("restored %d", n)
	}
	got, err := dst.GetRoom(ctx, rm.ID)
	if err != nil {
		t.Fatalf("GetRoom: %v", err)
	}
	if got.FEN != snap.FEN || got.CurrentPlayer != "black" || len(got.Moves) != 1 {
		t.Fatalf("restored room differs: %+v", got)
	}
	_, bob := got.Players[0], got.Players[1]
	if _, err := dst.MakeMoveAs(ctx, rm.ID, bob.ID, "e7", "e5"); err != nil {
		t.Fatalf("move after restore: %v", err)
	}
}

func TestConcurrentMovesKeepInvariants(t *testing.T) {
	g := NewRegistry()
	rm, alice, bob := newPlayingRoom(t, g)
	ctx := context.Background()

	// Both players hammer the same room with moves between their own back
	// ranks; only in-turn moves may land.
	whiteMoves := [][2]string{{"a2", "a3"}, {"a3", "a4"}, {"b2", "b3"}, {"b3", "b4"}, {"c2", "c3"}, {"c3", "c4"}, {"d2", "d3"}, {"d3", "d4"}}
	blackMoves := [][2]string{{"a7", "a6"}, {"a6", "a5"}, {"b7", "b6"}, {"b6", "b5"}, {"c7", "c6"}, {"c6", "c5"}, {"d7", "d6"}, {"d6", "d5"}}

	var wg sync.WaitGroup
	play := func(playerID string, moves [][2]string) {
		defer wg.Done()
		for round := 0; round < 50; round++ {
			for _, m := range moves {
				_, _ = g.MakeMoveAs(ctx, rm.ID, playerID, m[0], m[1])
			}
		}
	}
	wg.Add(4)
	go play(alice.ID, whiteMoves)
	go play(bob.ID, blackMoves)
	go play(alice.ID, whiteMoves)
	go play(bob.ID, blackMoves)
	wg.Wait()

	got, err := g.GetRoom(ctx, rm.ID)
	if err != nil {
		t.Fatalf("GetRoom: %v", err)
	}
	pieces := 0
	for r := range got.GameState.Board {
		for _, p := range got.GameState.Board[r] {
			if p != nil {
				pieces++
			}
		}
	}
	caps := len(got.GameState.CapturedPieces.White) + len(got.GameState.CapturedPieces.Black)
	if pieces+caps != 32 {
		t.Fatalf("pieces=%d captured=%d", pieces, caps)
	}
	for i, mv := range got.Moves {
		want := "white"
		if i%2 == 1 {
			want = "black"
		}
		if mv.Color != want || mv.Ply != i+1 {
			t.Fatalf("move %d out of order: %+v", i, mv)
		}
	}
	wantCurrent := "white"
	if len(got.Moves)%2 == 1 {
		wantCurrent = "black"
	}
	if got.CurrentPlayer != wantCurrent {
		t.Fatalf("current=%s after %d moves", got.CurrentPlayer, len(got.Moves))
	}
	if int64(len(got.Moves)) != g.Metrics().MovesApplied {
		t.Fatalf("applied counter %d vs %d moves", g.Metrics().MovesApplied, len(got.Moves))
	}
}

func TestErrorCodeMapping(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{ErrRoomNotFound, chessdto.CodeRoomNotFound},
		{ErrRoomFull, chessdto.CodeRoomFull},
		{ErrNotYourTurn, chessdto.CodeNotYourTurn},
		{ErrGameNotActive, chessdto.CodeGameNotActive},
		{ErrPlayerNotFound, chessdto.CodePlayerNotFound},
		{ErrInvalidArgs, chessdto.CodeInvalidArgs},
		{chessdto.InvalidArgs("x"), chessdto.CodeInvalidArgs},
		{errors.New("boom"), chessdto.CodeServerError},
		{nil, ""},
	}
	for _, tc := range cases {
		if got := ErrorCode(tc.err); got != tc.want {
			t.Fatalf("%v: got %s want %s", tc.err, got, tc.want)
		}
	}
}
