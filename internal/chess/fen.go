package chess

import (
	nchess "github.com/corentings/chess/v2"
)

var libTypes = map[PieceType]nchess.PieceType{
	King:   nchess.King,
	Queen:  nchess.Queen,
	Rook:   nchess.Rook,
	Bishop: nchess.Bishop,
	Knight: nchess.Knight,
	Pawn:   nchess.Pawn,
}

// LibBoard converts the grid into a corentings/chess board. Pieces with an
// unknown type are skipped.
func LibBoard(b Board) *nchess.Board {
	squares := make(map[nchess.Square]nchess.Piece, 32)
	for row := range b {
		for col, p := range b[row] {
			if p == nil {
				continue
			}
			t, ok := libTypes[p.Type]
			if !ok {
				continue
			}
			c := nchess.White
			if p.Color == Black {
				c = nchess.Black
			}
			sq := nchess.NewSquare(nchess.File(col), nchess.Rank(7-row))
			squares[sq] = nchess.NewPiece(t, c)
		}
	}
	return nchess.NewBoard(squares)
}

// PlacementFEN returns the piece-placement field of FEN for b,
// e.g. "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR" for the start position.
func PlacementFEN(b Board) string {
	return LibBoard(b).String()
}
