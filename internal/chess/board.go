package chess

// Board is an 8x8 grid indexed [row][col]; row 0 is rank 8, col 0 is file a.
// A nil cell is empty.
type Board [8][8]*Piece

var backRank = [8]PieceType{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// NewBoard returns the standard starting position.
func NewBoard() Board {
	var b Board
	for col, t := range backRank {
		b[0][col] = &Piece{Type: t, Color: Black}
		b[1][col] = &Piece{Type: Pawn, Color: Black}
		b[6][col] = &Piece{Type: Pawn, Color: White}
		b[7][col] = &Piece{Type: t, Color: White}
	}
	return b
}

// At returns the piece on an algebraic square, or nil when the square is
// empty or malformed.
func (b *Board) At(square string) *Piece {
	row, col, ok := ParseSquare(square)
	if !ok {
		return nil
	}
	return b[row][col]
}

// Clone copies every piece so the result shares no pointers with b.
func (b Board) Clone() Board {
	var out Board
	for r := range b {
		for c, p := range b[r] {
			if p != nil {
				cp := *p
				out[r][c] = &cp
			}
		}
	}
	return out
}

// Count returns the number of occupied squares.
func (b *Board) Count() int {
	n := 0
	for r := range b {
		for _, p := range b[r] {
			if p != nil {
				n++
			}
		}
	}
	return n
}
