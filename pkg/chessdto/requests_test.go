package chessdto

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestEnvelopeDecodeData(t *testing.T) {
	var env Envelope
	if err := json.Unmarshal([]byte(`{"action":"join-room","data":{"roomId":" abc ","playerName":"Bob"}}`), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	var req JoinRoomRequest
	if err := env.DecodeData(&req); err != nil {
		t.Fatalf("DecodeData: %v", err)
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if req.RoomID != "abc" || req.PlayerName != "Bob" {
		t.Fatalf("unexpected request: %+v", req)
	}

	empty := Envelope{Action: ActionListRooms}
	var lr ListRoomsRequest
	if err := empty.DecodeData(&lr); err != nil {
		t.Fatalf("empty data should decode: %v", err)
	}
}

func TestValidateRejectsBadInput(t *testing.T) {
	checks := []struct {
		name string
		err  error
	}{
		{"blank name", (&CreateRoomRequest{PlayerName: "  "}).Validate()},
		{"missing room", (&JoinRoomRequest{PlayerName: "Bob"}).Validate()},
		{"missing squares", (&MakeMoveRequest{RoomID: "r"}).Validate()},
		{"bad color", (&MakeMoveRequest{RoomID: "r", From: "e2", To: "e4", PlayerColor: "red"}).Validate()},
		{"leave without player", (&RoomRequest{RoomID: "r"}).Validate(true)},
		{"bad status", (&ListRoomsRequest{Status: "over"}).Validate()},
	}
	for _, c := range checks {
		var de DomainError
		if !errors.As(c.err, &de) || de.Code != CodeInvalidArgs {
			t.Fatalf("%s: expected InvalidArgs, got %v", c.name, c.err)
		}
	}
	mm := &MakeMoveRequest{RoomID: "r", From: "e2", To: "e4", PlayerColor: "WHITE"}
	if err := mm.Validate(); err != nil || mm.PlayerColor != "white" {
		t.Fatalf("color should normalize: %v %q", err, mm.PlayerColor)
	}
}

func TestNewFrame(t *testing.T) {
	f, err := NewFrame(EventMoveError, ErrorEvent{Message: "nope", Code: CodeInvalidMove})
	if err != nil {
		t.Fatalf("NewFrame: %v", err)
	}
	raw, _ := json.Marshal(f)
	if string(raw) != `{"event":"move-error","data":{"message":"nope","code":"InvalidMove"}}` {
		t.Fatalf("frame json: %s", raw)
	}
}
