// Package push serves the WebSocket transport. A Hub owns every live
// connection, subscribes them to rooms as registry events seat them, and
// fans registry events out as {event, data} frames.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/cashout-chess/internal/msgcat"
	"github.com/park285/cashout-chess/internal/obslog"
	"github.com/park285/cashout-chess/internal/room"
	"github.com/park285/cashout-chess/internal/transport"
	"github.com/park285/cashout-chess/pkg/chessdto"
)

const (
	sendQueueSize = 64
	readLimit     = 64 << 10
	writeTimeout  = 5 * time.Second
	pingInterval  = 30 * time.Second
)

type client struct {
	ref  string
	conn *websocket.Conn
	send chan chessdto.Frame

	done     chan struct{}
	doneOnce sync.Once
}

func (c *client) stop() { c.doneOnce.Do(func() { close(c.done) }) }

// enqueue never blocks. A client whose queue is full is cut off.
func (c *client) enqueue(f chessdto.Frame) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- f:
	case <-c.done:
	default:
		obslog.L().Warn("push_slow_client", zap.String("conn", c.ref), zap.String("event", f.Event))
		c.stop()
	}
}

type Hub struct {
	reg *room.Registry
	cat *msgcat.Catalog

	mu      sync.RWMutex
	clients map[string]*client
	rooms   map[string]map[string]struct{} // room id -> conn refs
	seats   map[string]map[string]string   // conn ref -> room id -> player id

	active sync.WaitGroup
}

func NewHub(reg *room.Registry, cat *msgcat.Catalog) *Hub {
	return &Hub{
		reg:     reg,
		cat:     cat,
		clients: make(map[string]*client),
		rooms:   make(map[string]map[string]struct{}),
		seats:   make(map[string]map[string]string),
	}
}

// Clients reports how many connections are open.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close cuts off every connection.
func (h *Hub) Close() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.stop()
	}
}

// Wait blocks until every Serve call has returned or ctx ends.
func (h *Hub) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.active.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Serve runs one accepted connection until it closes, then releases every
// seat it held.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn) {
	h.active.Add(1)
	defer h.active.Done()
	conn.SetReadLimit(readLimit)
	c := &client{
		ref:  uuid.NewString(),
		conn: conn,
		send: make(chan chessdto.Frame, sendQueueSize),
		done: make(chan struct{}),
	}
	h.mu.Lock()
	h.clients[c.ref] = c
	h.mu.Unlock()
	obslog.L().Debug("push_connect", zap.String("conn", c.ref))

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.writePump(ctx, c)
		cancel()
	}()

	h.readPump(ctx, c)
	c.stop()
	cancel()
	wg.Wait()

	seats := h.reg.Disconnect(context.WithoutCancel(ctx), c.ref)
	h.unregister(c.ref)
	_ = conn.Close(websocket.StatusNormalClosure, "")
	obslog.L().Debug("push_disconnect", zap.String("conn", c.ref), zap.Int("seats", seats))
}

func (h *Hub) readPump(ctx context.Context, c *client) {
	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			var ce websocket.CloseError
			if !errors.As(err, &ce) && ctx.Err() == nil {
				obslog.L().Debug("push_read_error", zap.String("conn", c.ref), zap.Error(err))
			}
			return
		}
		var env chessdto.Envelope
		if typ != websocket.MessageText || json.Unmarshal(data, &env) != nil || env.Action == "" {
			f := transport.Malformed(h.cat)
			h.sendTo(c, chessdto.EventError, chessdto.ErrorEvent{Message: f.Message, Code: f.Code})
			continue
		}
		h.handle(ctx, c, env)
	}
}

func (h *Hub) writePump(ctx context.Context, c *client) {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		case f := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, c.conn, f)
			cancel()
			if err != nil {
				obslog.L().Debug("push_write_error", zap.String("conn", c.ref), zap.Error(err))
				c.stop()
				return
			}
		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pctx)
			cancel()
			if err != nil {
				c.stop()
				return
			}
		}
	}
}

func (h *Hub) unregister(ref string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, ref)
	for roomID := range h.seats[ref] {
		h.unsubscribeLocked(roomID, ref)
	}
	delete(h.seats, ref)
}

func (h *Hub) subscribeLocked(roomID, ref, playerID string) {
	if _, ok := h.clients[ref]; !ok {
		return
	}
	subs, ok := h.rooms[roomID]
	if !ok {
		subs = make(map[string]struct{})
		h.rooms[roomID] = subs
	}
	subs[ref] = struct{}{}
	seats, ok := h.seats[ref]
	if !ok {
		seats = make(map[string]string)
		h.seats[ref] = seats
	}
	seats[roomID] = playerID
}

func (h *Hub) unsubscribeLocked(roomID, ref string) {
	if subs, ok := h.rooms[roomID]; ok {
		delete(subs, ref)
		if len(subs) == 0 {
			delete(h.rooms, roomID)
		}
	}
	if seats, ok := h.seats[ref]; ok {
		delete(seats, roomID)
	}
}

// seatOf returns the player id ref holds in roomID.
func (h *Hub) seatOf(ref, roomID string) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.seats[ref][roomID]
}

func (h *Hub) subscribers(roomID string) []*client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*client, 0, len(h.rooms[roomID]))
	for ref := range h.rooms[roomID] {
		if c, ok := h.clients[ref]; ok {
			out = append(out, c)
		}
	}
	return out
}

func (h *Hub) client(ref string) *client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[ref]
}

func (h *Hub) sendTo(c *client, event string, data any) {
	if c == nil {
		return
	}
	f, err := chessdto.NewFrame(event, data)
	if err != nil {
		obslog.L().Error("push_frame_error", zap.String("event", event), zap.Error(err))
		return
	}
	c.enqueue(f)
}

func (h *Hub) broadcast(roomID, event string, data any, skip string) {
	f, err := chessdto.NewFrame(event, data)
	if err != nil {
		obslog.L().Error("push_frame_error", zap.String("event", event), zap.Error(err))
		return
	}
	for _, c := range h.subscribers(roomID) {
		if c.ref != skip {
			c.enqueue(f)
		}
	}
}

func (h *Hub) fail(c *client, event string, err error) {
	f := transport.Describe(h.cat, err)
	h.sendTo(c, event, chessdto.ErrorEvent{Message: f.Message, Code: f.Code})
}

func (h *Hub) notice(key string, data map[string]any) string {
	if h.cat == nil {
		return ""
	}
	s, err := h.cat.Render(key, data)
	if err != nil {
		return ""
	}
	return s
}
