// Package poll serves the request/response transport: one fasthttp endpoint
// taking {action, data} envelopes. Clients refresh by polling get-room.
package poll

import (
	"context"
	"encoding/json"
	"net"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/cashout-chess/internal/chess"
	"github.com/park285/cashout-chess/internal/msgcat"
	"github.com/park285/cashout-chess/internal/obslog"
	"github.com/park285/cashout-chess/internal/room"
	"github.com/park285/cashout-chess/internal/transport"
	"github.com/park285/cashout-chess/pkg/chessdto"
)

const (
	PathSocket = "/api/socket"
	PathHealth = "/healthz"

	maxBodySize    = 64 << 10
	requestTimeout = 5 * time.Second
)

type Server struct {
	reg *room.Registry
	cat *msgcat.Catalog
	srv *fasthttp.Server
}

func New(reg *room.Registry, cat *msgcat.Catalog) *Server {
	s := &Server{reg: reg, cat: cat}
	s.srv = &fasthttp.Server{
		Handler:            s.Handle,
		Name:               "chess-rooms",
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       10 * time.Second,
		IdleTimeout:        60 * time.Second,
		MaxRequestBodySize: maxBodySize,
	}
	return s
}

func (s *Server) ListenAndServe(addr string) error { return s.srv.ListenAndServe(addr) }
func (s *Server) Serve(ln net.Listener) error      { return s.srv.Serve(ln) }

func (s *Server) Shutdown(ctx context.Context) error { return s.srv.ShutdownWithContext(ctx) }

// Handle routes a single request.
func (s *Server) Handle(rc *fasthttp.RequestCtx) {
	path := string(rc.Path())
	switch {
	case path == PathHealth && rc.IsGet():
		rc.SetContentType("text/plain; charset=utf-8")
		rc.SetBodyString("ok")
	case path == PathSocket && rc.IsPost():
		s.handleSocket(rc)
	case path == PathSocket || path == PathHealth:
		rc.Error("method not allowed", fasthttp.StatusMethodNotAllowed)
	default:
		rc.Error("not found", fasthttp.StatusNotFound)
	}
}

func (s *Server) handleSocket(rc *fasthttp.RequestCtx) {
	var env chessdto.Envelope
	if err := json.Unmarshal(rc.PostBody(), &env); err != nil || env.Action == "" {
		obslog.L().Debug("poll_bad_envelope", zap.Error(err))
		f := transport.Malformed(s.cat)
		writeJSON(rc, fasthttp.StatusBadRequest, chessdto.Response{Error: f.Message, Code: f.Code})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	resp, err := s.dispatch(ctx, env)
	if err != nil {
		f := transport.Describe(s.cat, err)
		obslog.L().Debug("poll_action_failed",
			zap.String("action", env.Action),
			zap.String("code", f.Code),
			zap.Error(err),
		)
		writeJSON(rc, transport.Status(f.Code), chessdto.Response{Error: f.Message, Code: f.Code})
		return
	}
	resp.Success = true
	writeJSON(rc, fasthttp.StatusOK, resp)
}

func (s *Server) dispatch(ctx context.Context, env chessdto.Envelope) (chessdto.Response, error) {
	switch env.Action {
	case chessdto.ActionCreateRoom:
		var req chessdto.CreateRoomRequest
		if err := decode(env, &req); err != nil {
			return chessdto.Response{}, err
		}
		if err := req.Validate(); err != nil {
			return chessdto.Response{}, err
		}
		rm, p, err := s.reg.CreateRoom(ctx, req.PlayerName, "")
		if err != nil {
			return chessdto.Response{}, err
		}
		return chessdto.Response{Room: &rm, Player: &p}, nil

	case chessdto.ActionJoinRoom:
		var req chessdto.JoinRoomRequest
		if err := decode(env, &req); err != nil {
			return chessdto.Response{}, err
		}
		if err := req.Validate(); err != nil {
			return chessdto.Response{}, err
		}
		rm, p, err := s.reg.JoinRoom(ctx, req.RoomID, req.PlayerName, "")
		if err != nil {
			return chessdto.Response{}, err
		}
		return chessdto.Response{Room: &rm, Player: &p}, nil

	case chessdto.ActionMakeMove:
		var req chessdto.MakeMoveRequest
		if err := decode(env, &req); err != nil {
			return chessdto.Response{}, err
		}
		if err := req.Validate(); err != nil {
			return chessdto.Response{}, err
		}
		var (
			mm  chessdto.MoveMade
			err error
		)
		switch {
		case req.PlayerID != "":
			mm, err = s.reg.MakeMoveAs(ctx, req.RoomID, req.PlayerID, req.From, req.To)
		case req.PlayerColor != "":
			mm, err = s.reg.MakeMove(ctx, req.RoomID, req.From, req.To, chess.Color(req.PlayerColor))
		default:
			return chessdto.Response{}, chessdto.InvalidArgs("playerId or playerColor is required")
		}
		if err != nil {
			return chessdto.Response{}, err
		}
		return chessdto.Response{GameState: &mm.GameState, CurrentPlayer: mm.CurrentPlayer}, nil

	case chessdto.ActionGetRoom:
		var req chessdto.RoomRequest
		if err := decode(env, &req); err != nil {
			return chessdto.Response{}, err
		}
		if err := req.Validate(false); err != nil {
			return chessdto.Response{}, err
		}
		rm, err := s.reg.GetRoom(ctx, req.RoomID)
		if err != nil {
			return chessdto.Response{}, err
		}
		return chessdto.Response{Room: &rm}, nil

	case chessdto.ActionLeaveRoom, chessdto.ActionResign:
		var req chessdto.RoomRequest
		if err := decode(env, &req); err != nil {
			return chessdto.Response{}, err
		}
		if err := req.Validate(true); err != nil {
			return chessdto.Response{}, err
		}
		leave := s.reg.LeaveRoom
		if env.Action == chessdto.ActionResign {
			leave = s.reg.Resign
		}
		rm, err := leave(ctx, req.RoomID, req.PlayerID)
		if err != nil {
			return chessdto.Response{}, err
		}
		return chessdto.Response{Room: &rm}, nil

	case chessdto.ActionListRooms:
		var req chessdto.ListRoomsRequest
		if err := decode(env, &req); err != nil {
			return chessdto.Response{}, err
		}
		if err := req.Validate(); err != nil {
			return chessdto.Response{}, err
		}
		return chessdto.Response{Rooms: s.reg.ListRooms(ctx, room.Status(req.Status))}, nil
	}
	return chessdto.Response{}, chessdto.InvalidArgs("unknown action " + env.Action)
}

func decode(env chessdto.Envelope, v any) error {
	if err := env.DecodeData(v); err != nil {
		return chessdto.InvalidArgs("malformed data")
	}
	return nil
}

func writeJSON(rc *fasthttp.RequestCtx, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		rc.Error("encode response", fasthttp.StatusInternalServerError)
		return
	}
	rc.SetStatusCode(status)
	rc.SetContentType("application/json")
	rc.SetBody(b)
}
