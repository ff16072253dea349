package chessdto

import "encoding/json"

// Response is the poll transport reply body.
type Response struct {
	Success       bool       `json:"success"`
	Room          *Room      `json:"room,omitempty"`
	Player        *Player    `json:"player,omitempty"`
	GameState     *GameState `json:"gameState,omitempty"`
	CurrentPlayer string     `json:"currentPlayer,omitempty"`
	Rooms         []Room     `json:"rooms,omitempty"`
	Error         string     `json:"error,omitempty"`
	Code          string     `json:"code,omitempty"`
}

// Push server event names.
const (
	EventRoomCreated  = "room-created"
	EventRoomJoined   = "room-joined"
	EventPlayerJoined = "player-joined"
	EventMoveMade     = "move-made"
	EventMoveError    = "move-error"
	EventPlayerLeft   = "player-left"
	EventGameOver     = "game-over"
	EventRoomList     = "room-list"
	EventRoomClosed   = "room-closed"
	EventRoomState    = "room-state"
	EventError        = "error"
)

// Frame is a push server message.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewFrame marshals data into a frame.
func NewFrame(event string, data any) (Frame, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Event: event, Data: raw}, nil
}

type RoomCreated struct {
	RoomID string `json:"roomId"`
	Player Player `json:"player"`
	Room   Room   `json:"room"`
	Notice string `json:"notice,omitempty"`
}

// RoomJoined is sent to the joiner; PlayerJoined to the rest of the room.
type RoomJoined struct {
	Room   Room   `json:"room"`
	Player Player `json:"player"`
	Notice string `json:"notice,omitempty"`
}

// PlayerLeft also carries room-closed, where Room is the final snapshot.
type PlayerLeft struct {
	Room   Room   `json:"room"`
	Player Player `json:"player"`
	Notice string `json:"notice,omitempty"`
}

type GameOver struct {
	Room   Room   `json:"room"`
	Winner string `json:"winner"`
	Reason string `json:"reason"`
	Notice string `json:"notice,omitempty"`
}

// RoomState answers a push get-room.
type RoomState struct {
	Room Room `json:"room"`
}

type RoomList struct {
	Rooms []Room `json:"rooms"`
}

// ErrorEvent is the payload of error and move-error frames.
type ErrorEvent struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}
