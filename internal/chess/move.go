package chess

var (
	ErrInvalidPosition = errf("invalid square")
	ErrInvalidPiece    = errf("no piece of the mover's color on the source square")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }

// Validate checks square syntax and that the mover owns the piece on from.
// Destination, movement pattern, path and king safety are not checked.
func Validate(gs *GameState, from, to string, color Color) error {
	fr, fc, ok := ParseSquare(from)
	if !ok {
		return ErrInvalidPosition
	}
	if _, _, ok := ParseSquare(to); !ok {
		return ErrInvalidPosition
	}
	p := gs.Board[fr][fc]
	if p == nil || p.Color != color {
		return ErrInvalidPiece
	}
	return nil
}

// Apply relocates the piece on from to to, capturing whatever stood there.
// Malformed squares or an empty source leave gs untouched. The captured piece,
// if any, is returned.
func Apply(gs *GameState, from, to string) *Piece {
	fr, fc, ok := ParseSquare(from)
	if !ok {
		return nil
	}
	tr, tc, ok := ParseSquare(to)
	if !ok {
		return nil
	}
	mover := gs.Board[fr][fc]
	if mover == nil {
		return nil
	}
	before := *mover

	var captured *Piece
	if target := gs.Board[tr][tc]; target != nil && !(tr == fr && tc == fc) {
		cp := *target
		captured = &cp
		gs.Captured.add(cp)
	}

	moved := before
	moved.HasMoved = true
	gs.Board[fr][fc] = nil
	gs.Board[tr][tc] = &moved
	gs.LastMove = &LastMove{From: from, To: to, Piece: before}
	return captured
}
