package chess

import (
	"errors"
	"testing"
)

func TestParseSquareRoundTrip(t *testing.T) {
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			name := SquareName(row, col)
			r, c, ok := ParseSquare(name)
			if !ok || r != row || c != col {
				t.Fatalf("round trip (%d,%d) -> %q -> (%d,%d,%v)", row, col, name, r, c, ok)
			}
		}
	}
	for _, s := range []string{"a1", "e4", "h8", "d5"} {
		r, c, ok := ParseSquare(s)
		if !ok || SquareName(r, c) != s {
			t.Fatalf("round trip %q failed", s)
		}
	}
}

func TestParseSquareKnownValues(t *testing.T) {
	cases := []struct {
		in       string
		row, col int
	}{
		{"a8", 0, 0},
		{"h1", 7, 7},
		{"e2", 6, 4},
		{"e4", 4, 4},
	}
	for _, tc := range cases {
		r, c, ok := ParseSquare(tc.in)
		if !ok || r != tc.row || c != tc.col {
			t.Fatalf("%s: got (%d,%d,%v) want (%d,%d)", tc.in, r, c, ok, tc.row, tc.col)
		}
	}
}

func TestParseSquareRejectsMalformed(t *testing.T) {
	for _, s := range []string{"", "a", "z9", "a0", "a9", "i1", "A1", "e22", "11", "\xff1"} {
		if _, _, ok := ParseSquare(s); ok {
			t.Fatalf("expected %q to be rejected", s)
		}
	}
	if got := SquareName(8, 0); got != "" {
		t.Fatalf("out of range encode: %q", got)
	}
	if got := SquareName(0, -1); got != "" {
		t.Fatalf("out of range encode: %q", got)
	}
}

func TestNewBoardLayout(t *testing.T) {
	b := NewBoard()
	if b[0][4] == nil || b[0][4].Type != King || b[0][4].Color != Black {
		t.Fatalf("e8 should be black king: %+v", b[0][4])
	}
	if b[7][3] == nil || b[7][3].Type != Queen || b[7][3].Color != White {
		t.Fatalf("d1 should be white queen: %+v", b[7][3])
	}
	for col := 0; col < 8; col++ {
		if p := b[6][col]; p == nil || p.Type != Pawn || p.Color != White {
			t.Fatalf("row 6 col %d should be white pawn: %+v", col, p)
		}
		if p := b[1][col]; p == nil || p.Type != Pawn || p.Color != Black {
			t.Fatalf("row 1 col %d should be black pawn: %+v", col, p)
		}
		if b[0][col].Type != backRank[col] || b[7][col].Type != backRank[col] {
			t.Fatalf("back rank mismatch at col %d", col)
		}
	}
	for row := 2; row <= 5; row++ {
		for col := 0; col < 8; col++ {
			if b[row][col] != nil {
				t.Fatalf("row %d col %d should be empty", row, col)
			}
		}
	}
	if b.Count() != 32 {
		t.Fatalf("want 32 pieces, got %d", b.Count())
	}
}

func TestValidate(t *testing.T) {
	gs := NewGameState()
	cases := []struct {
		name     string
		from, to string
		color    Color
		want     error
	}{
		{"own pawn", "e2", "e4", White, nil},
		{"any destination", "e2", "e7", White, nil},
		{"empty source", "e4", "e5", White, ErrInvalidPiece},
		{"enemy piece", "e7", "e5", White, ErrInvalidPiece},
		{"bad from", "z9", "e4", White, ErrInvalidPosition},
		{"bad to", "e2", "e0", White, ErrInvalidPosition},
		{"black own", "g8", "f6", Black, nil},
	}
	for _, tc := range cases {
		err := Validate(gs, tc.from, tc.to, tc.color)
		if !errors.Is(err, tc.want) && !(err == nil && tc.want == nil) {
			t.Fatalf("%s: got %v want %v", tc.name, err, tc.want)
		}
	}
}

func TestApplyRelocatesAndRecordsLastMove(t *testing.T) {
	gs := NewGameState()
	if captured := Apply(gs, "e2", "e4"); captured != nil {
		t.Fatalf("unexpected capture: %+v", captured)
	}
	if gs.Board.At("e2") != nil {
		t.Fatalf("e2 should be empty")
	}
	p := gs.Board.At("e4")
	if p == nil || p.Type != Pawn || p.Color != White || !p.HasMoved {
		t.Fatalf("e4 should hold moved white pawn: %+v", p)
	}
	lm := gs.LastMove
	if lm == nil || lm.From != "e2" || lm.To != "e4" || lm.Piece.Type != Pawn || lm.Piece.Color != White || lm.Piece.HasMoved {
		t.Fatalf("last move mismatch: %+v", lm)
	}
}

func TestApplyCaptureByOccupation(t *testing.T) {
	gs := NewGameState()
	captured := Apply(gs, "d1", "d7")
	if captured == nil || captured.Type != Pawn || captured.Color != Black {
		t.Fatalf("expected black pawn capture, got %+v", captured)
	}
	if len(gs.Captured.Black) != 1 || len(gs.Captured.White) != 0 {
		t.Fatalf("captured lists: %+v", gs.Captured)
	}
	if p := gs.Board.At("d7"); p == nil || p.Type != Queen || p.Color != White {
		t.Fatalf("d7 should hold white queen: %+v", p)
	}
	if gs.Board.Count()+gs.Captured.Len() != 32 {
		t.Fatalf("piece conservation broken")
	}
}

func TestApplyNoOps(t *testing.T) {
	gs := NewGameState()
	before := gs.Clone()
	Apply(gs, "e4", "e5")
	Apply(gs, "zz", "e5")
	Apply(gs, "e2", "")
	if PlacementFEN(gs.Board) != PlacementFEN(before.Board) || gs.LastMove != nil {
		t.Fatalf("no-op apply mutated state")
	}
}

func TestApplySameSquareKeepsPiece(t *testing.T) {
	gs := NewGameState()
	Apply(gs, "e2", "e2")
	if p := gs.Board.At("e2"); p == nil || p.Type != Pawn {
		t.Fatalf("piece vanished: %+v", p)
	}
	if gs.Captured.Len() != 0 {
		t.Fatalf("self capture recorded")
	}
}

func TestCloneIsDeep(t *testing.T) {
	gs := NewGameState()
	Apply(gs, "e2", "e4")
	cp := gs.Clone()
	Apply(gs, "e4", "e5")
	if cp.Board.At("e4") == nil || cp.LastMove.To != "e4" {
		t.Fatalf("clone shares state with original")
	}
}

func TestPlacementFEN(t *testing.T) {
	gs := NewGameState()
	if got := PlacementFEN(gs.Board); got != "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR" {
		t.Fatalf("initial placement: %q", got)
	}
	Apply(gs, "e2", "e4")
	if got := PlacementFEN(gs.Board); got != "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR" {
		t.Fatalf("after e4: %q", got)
	}
}
