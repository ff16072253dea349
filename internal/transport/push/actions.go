package push

import (
	"context"

	"go.uber.org/zap"

	"github.com/park285/cashout-chess/internal/obslog"
	"github.com/park285/cashout-chess/internal/room"
	"github.com/park285/cashout-chess/pkg/chessdto"
)

// handle runs one client action. Successes reach the client through the
// registry events; failures go back to c alone.
func (h *Hub) handle(ctx context.Context, c *client, env chessdto.Envelope) {
	var err error
	errEvent := chessdto.EventError

	switch env.Action {
	case chessdto.ActionCreateRoom:
		var req chessdto.CreateRoomRequest
		if err = decode(env, &req); err == nil {
			if err = req.Validate(); err == nil {
				_, _, err = h.reg.CreateRoom(ctx, req.PlayerName, c.ref)
			}
		}

	case chessdto.ActionJoinRoom:
		var req chessdto.JoinRoomRequest
		if err = decode(env, &req); err == nil {
			if err = req.Validate(); err == nil {
				_, _, err = h.reg.JoinRoom(ctx, req.RoomID, req.PlayerName, c.ref)
			}
		}

	case chessdto.ActionMakeMove:
		errEvent = chessdto.EventMoveError
		var req chessdto.MakeMoveRequest
		if err = decode(env, &req); err == nil {
			if err = req.Validate(); err == nil {
				_, err = h.reg.MakeMoveByConn(ctx, req.RoomID, c.ref, req.From, req.To)
			}
		}

	case chessdto.ActionGetRoom:
		var req chessdto.RoomRequest
		if err = decode(env, &req); err == nil {
			if err = req.Validate(false); err == nil {
				var snap chessdto.Room
				if snap, err = h.reg.GetRoom(ctx, req.RoomID); err == nil {
					h.sendTo(c, chessdto.EventRoomState, chessdto.RoomState{Room: snap})
				}
			}
		}

	case chessdto.ActionLeaveRoom, chessdto.ActionResign:
		var req chessdto.RoomRequest
		if err = decode(env, &req); err == nil {
			// The acting socket must hold the seat; a playerId only names it.
			if err = req.Validate(false); err == nil {
				switch {
				case req.PlayerID != "" && req.PlayerID != h.seatOf(c.ref, req.RoomID):
					err = room.ErrPlayerNotFound
				case env.Action == chessdto.ActionResign:
					_, err = h.reg.ResignByConn(ctx, req.RoomID, c.ref)
				default:
					_, err = h.reg.LeaveRoomByConn(ctx, req.RoomID, c.ref)
				}
			}
		}

	case chessdto.ActionListRooms:
		var req chessdto.ListRoomsRequest
		if err = decode(env, &req); err == nil {
			if err = req.Validate(); err == nil {
				h.sendTo(c, chessdto.EventRoomList, chessdto.RoomList{Rooms: h.reg.ListRooms(ctx, room.Status(req.Status))})
			}
		}

	default:
		err = chessdto.InvalidArgs("unknown action " + env.Action)
	}

	if err != nil {
		obslog.L().Debug("push_action_failed", zap.String("conn", c.ref), zap.String("action", env.Action), zap.Error(err))
		h.fail(c, errEvent, err)
	}
}

func decode(env chessdto.Envelope, v any) error {
	if err := env.DecodeData(v); err != nil {
		return chessdto.InvalidArgs("malformed data")
	}
	return nil
}
