package push

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/park285/cashout-chess/internal/chess"
	"github.com/park285/cashout-chess/internal/obslog"
	"github.com/park285/cashout-chess/internal/render"
	"github.com/park285/cashout-chess/internal/room"
	"github.com/park285/cashout-chess/internal/transport"
	"github.com/park285/cashout-chess/pkg/chessdto"
)

type Options struct {
	// AllowedOrigins are host patterns accepted on the WebSocket handshake.
	// Empty accepts any origin.
	AllowedOrigins []string
	Renderer       *render.Renderer
}

// NewRouter exposes the hub on /ws and read-only room routes on everything
// else. The WebSocket handshake stays outside gin: nhooyr hijacks after
// writing the 101 header, which gin's response writer refuses.
func NewRouter(h *Hub, opts Options) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", h.acceptHandler(opts.AllowedOrigins))
	mux.Handle("/", newEngine(h, opts))
	return mux
}

func (h *Hub) acceptHandler(origins []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns:     origins,
			InsecureSkipVerify: len(origins) == 0,
		})
		if err != nil {
			obslog.L().Warn("push_accept_error", zap.String("remote", r.RemoteAddr), zap.Error(err))
			return
		}
		h.Serve(r.Context(), conn)
	}
}

func newEngine(h *Hub, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	renderer := opts.Renderer
	if renderer == nil {
		renderer = render.New()
	}

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	r.GET("/metrics", func(c *gin.Context) {
		m := h.reg.Metrics().Snapshot()
		m["rooms_live"] = h.reg.Len()
		m["push_clients"] = h.Clients()
		c.JSON(http.StatusOK, m)
	})

	r.GET("/rooms", func(c *gin.Context) {
		req := chessdto.ListRoomsRequest{Status: c.Query("status")}
		if err := req.Validate(); err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, chessdto.Response{Success: true, Rooms: h.reg.ListRooms(c.Request.Context(), room.Status(req.Status))})
	})

	r.GET("/rooms/:id", func(c *gin.Context) {
		snap, err := h.reg.GetRoom(c.Request.Context(), c.Param("id"))
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, chessdto.Response{Success: true, Room: &snap})
	})

	r.GET("/rooms/:id/board.png", func(c *gin.Context) {
		snap, err := h.reg.GetRoom(c.Request.Context(), c.Param("id"))
		if err != nil {
			h.writeError(c, err)
			return
		}
		perspective := chess.White
		if c.Query("perspective") == string(chess.Black) {
			perspective = chess.Black
		}
		caption := h.notice("board.caption", map[string]any{
			"roomId": snap.ID,
			"status": snap.Status,
			"turn":   snap.CurrentPlayer,
		})
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		png, err := renderer.RenderRoom(ctx, snap, perspective, caption)
		if err != nil {
			obslog.L().Error("board_render_error", zap.String("room_id", snap.ID), zap.Error(err))
			h.writeError(c, err)
			return
		}
		c.Header("Cache-Control", "no-store")
		c.Data(http.StatusOK, "image/png", png)
	})

	return r
}

func (h *Hub) writeError(c *gin.Context, err error) {
	f := transport.Describe(h.cat, err)
	c.JSON(transport.Status(f.Code), chessdto.Response{Error: f.Message, Code: f.Code})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.Request.URL.Path == "/healthz" {
			return
		}
		obslog.L().Debug("push_http",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

// Server wraps the router in an http.Server.
type Server struct {
	hub  *Hub
	http *http.Server
}

func NewServer(addr string, h *Hub, opts Options) *Server {
	return &Server{hub: h, http: &http.Server{
		Addr:              addr,
		Handler:           NewRouter(h, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}}
}

// ListenAndServe returns nil after Shutdown.
func (s *Server) ListenAndServe() error {
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Serve(ln net.Listener) error {
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and drops every WebSocket; their seats
// are released as the connections unwind.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	s.hub.Close()
	if werr := s.hub.Wait(ctx); err == nil {
		err = werr
	}
	return err
}
