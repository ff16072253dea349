package chessdto

import (
	"encoding/json"
	"strings"
)

// Action names accepted by both transports.
const (
	ActionCreateRoom = "create-room"
	ActionJoinRoom   = "join-room"
	ActionMakeMove   = "make-move"
	ActionGetRoom    = "get-room"
	ActionLeaveRoom  = "leave-room"
	ActionResign     = "resign"
	ActionListRooms  = "list-rooms"
)

const maxNameLen = 64

// Envelope is the {action, data} request body.
type Envelope struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// DecodeData unmarshals the data field into v. An absent data field is
// treated as an empty object.
func (e Envelope) DecodeData(v any) error {
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return nil
	}
	return json.Unmarshal(e.Data, v)
}

type CreateRoomRequest struct {
	PlayerName string `json:"playerName"`
}

func (r *CreateRoomRequest) Validate() error {
	r.PlayerName = strings.TrimSpace(r.PlayerName)
	return validName(r.PlayerName)
}

type JoinRoomRequest struct {
	RoomID     string `json:"roomId"`
	PlayerName string `json:"playerName"`
}

func (r *JoinRoomRequest) Validate() error {
	r.RoomID = strings.TrimSpace(r.RoomID)
	r.PlayerName = strings.TrimSpace(r.PlayerName)
	if r.RoomID == "" {
		return InvalidArgs("roomId is required")
	}
	return validName(r.PlayerName)
}

// MakeMoveRequest identifies the mover by PlayerID or PlayerColor. Push
// connections leave both empty and are resolved from their seat.
type MakeMoveRequest struct {
	RoomID      string `json:"roomId"`
	From        string `json:"from"`
	To          string `json:"to"`
	PlayerColor string `json:"playerColor,omitempty"`
	PlayerID    string `json:"playerId,omitempty"`
}

func (r *MakeMoveRequest) Validate() error {
	r.RoomID = strings.TrimSpace(r.RoomID)
	r.From = strings.TrimSpace(r.From)
	r.To = strings.TrimSpace(r.To)
	r.PlayerColor = strings.ToLower(strings.TrimSpace(r.PlayerColor))
	r.PlayerID = strings.TrimSpace(r.PlayerID)
	if r.RoomID == "" {
		return InvalidArgs("roomId is required")
	}
	if r.From == "" || r.To == "" {
		return InvalidArgs("from and to are required")
	}
	if r.PlayerColor != "" && r.PlayerColor != "white" && r.PlayerColor != "black" {
		return InvalidArgs("playerColor must be white or black")
	}
	return nil
}

// RoomRequest serves get-room, leave-room and resign.
type RoomRequest struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId,omitempty"`
}

func (r *RoomRequest) Validate(needPlayer bool) error {
	r.RoomID = strings.TrimSpace(r.RoomID)
	r.PlayerID = strings.TrimSpace(r.PlayerID)
	if r.RoomID == "" {
		return InvalidArgs("roomId is required")
	}
	if needPlayer && r.PlayerID == "" {
		return InvalidArgs("playerId is required")
	}
	return nil
}

type ListRoomsRequest struct {
	Status string `json:"status,omitempty"`
}

func (r *ListRoomsRequest) Validate() error {
	r.Status = strings.ToLower(strings.TrimSpace(r.Status))
	switch r.Status {
	case "", StatusWaiting, StatusPlaying, StatusFinished:
		return nil
	}
	return InvalidArgs("unknown status filter")
}

func validName(name string) error {
	if name == "" {
		return InvalidArgs("playerName is required")
	}
	if len(name) > maxNameLen {
		return InvalidArgs("playerName is too long")
	}
	return nil
}
