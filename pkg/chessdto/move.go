package chessdto

import "time"

type LastMove struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Piece Piece  `json:"piece"`
}

// MoveRecord is one applied move in a room's history.
type MoveRecord struct {
	Ply      int       `json:"ply"`
	Color    string    `json:"color"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	Piece    Piece     `json:"piece"`
	Captured *Piece    `json:"captured,omitempty"`
	At       time.Time `json:"at"`
}

// MoveMade is the payload of the move-made event.
type MoveMade struct {
	RoomID        string     `json:"roomId"`
	From          string     `json:"from"`
	To            string     `json:"to"`
	GameState     GameState  `json:"gameState"`
	CurrentPlayer string     `json:"currentPlayer"`
	Move          MoveRecord `json:"move"`
}
