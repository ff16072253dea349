package chess

// Color identifies chess side.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Opponent returns the other side. Unknown colors map to White.
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

// Valid reports whether c is one of the two sides.
func (c Color) Valid() bool { return c == White || c == Black }

// PieceType is the kind of a chess piece.
type PieceType string

const (
	Pawn   PieceType = "pawn"
	Rook   PieceType = "rook"
	Knight PieceType = "knight"
	Bishop PieceType = "bishop"
	Queen  PieceType = "queen"
	King   PieceType = "king"
)

func (t PieceType) Valid() bool {
	switch t {
	case Pawn, Rook, Knight, Bishop, Queen, King:
		return true
	}
	return false
}

// Piece is a single chessman. Type and Color never change after creation.
type Piece struct {
	Type     PieceType `json:"type"`
	Color    Color     `json:"color"`
	HasMoved bool      `json:"hasMoved,omitempty"`
}

// CapturedPieces holds removed pieces keyed by the captured piece's own color.
type CapturedPieces struct {
	White []Piece `json:"white"`
	Black []Piece `json:"black"`
}

func (c *CapturedPieces) add(p Piece) {
	if p.Color == White {
		c.White = append(c.White, p)
		return
	}
	c.Black = append(c.Black, p)
}

// Len returns the total number of captured pieces.
func (c CapturedPieces) Len() int { return len(c.White) + len(c.Black) }

// LastMove records the most recently applied move.
type LastMove struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Piece Piece  `json:"piece"`
}

// GameState is the mutable state of one game.
type GameState struct {
	Board    Board          `json:"board"`
	Captured CapturedPieces `json:"capturedPieces"`
	LastMove *LastMove      `json:"lastMove,omitempty"`
}

// NewGameState returns a game at the initial position.
func NewGameState() *GameState {
	return &GameState{
		Board:    NewBoard(),
		Captured: CapturedPieces{White: []Piece{}, Black: []Piece{}},
	}
}

// Clone returns a deep copy.
func (g *GameState) Clone() *GameState {
	if g == nil {
		return nil
	}
	out := &GameState{
		Board: g.Board.Clone(),
		Captured: CapturedPieces{
			White: append([]Piece{}, g.Captured.White...),
			Black: append([]Piece{}, g.Captured.Black...),
		},
	}
	if g.LastMove != nil {
		lm := *g.LastMove
		out.LastMove = &lm
	}
	return out
}
