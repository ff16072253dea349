package chessdto

import "time"

// Room status values.
const (
	StatusWaiting  = "waiting"
	StatusPlaying  = "playing"
	StatusFinished = "finished"
)

// Piece is the wire form of a chessman.
type Piece struct {
	Type     string `json:"type"`
	Color    string `json:"color"`
	HasMoved bool   `json:"hasMoved,omitempty"`
}

type CapturedPieces struct {
	White []Piece `json:"white"`
	Black []Piece `json:"black"`
}

// GameState mirrors the board grid: Board[0] is rank 8, Board[r][0] is file a.
type GameState struct {
	Board          [8][8]*Piece   `json:"board"`
	CapturedPieces CapturedPieces `json:"capturedPieces"`
	LastMove       *LastMove      `json:"lastMove,omitempty"`
}

type Player struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Room is an immutable snapshot of one room.
type Room struct {
	ID            string       `json:"id"`
	Players       []Player     `json:"players"`
	GameState     GameState    `json:"gameState"`
	CurrentPlayer string       `json:"currentPlayer"`
	Status        string       `json:"status"`
	Winner        string       `json:"winner,omitempty"`
	FEN           string       `json:"fen"`
	Moves         []MoveRecord `json:"moves"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// PlayerByID returns the seated player with the given id.
func (r *Room) PlayerByID(id string) (Player, bool) {
	if r == nil {
		return Player{}, false
	}
	for _, p := range r.Players {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}
