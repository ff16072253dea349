package roomclient

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/cashout-chess/pkg/chessdto"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateFailed       State = "failed"
)

type FrameCallback func(f chessdto.Frame)

type StateCallback func(s State)

type callbackEntry struct {
	id       int
	callback FrameCallback
}

// ErrNotConnected is returned by Send when no connection is open.
var ErrNotConnected = errors.New("push client not connected")

// PushClient holds one WebSocket to the hub. Seats belong to the connection,
// so there is no automatic reconnect: a dropped connection has already lost
// its seats on the server.
type PushClient struct {
	wsURL string

	mu    sync.Mutex
	conn  *websocket.Conn
	state State

	writeMu sync.Mutex

	cbM      sync.RWMutex
	frameCbs []callbackEntry
	stateCbs []StateCallback
	nextID   int

	pingInterval time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPushClient(wsURL string) *PushClient {
	return &PushClient{
		wsURL:        wsURL,
		state:        StateDisconnected,
		pingInterval: 30 * time.Second,
	}
}

func (p *PushClient) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *PushClient) Connect(ctx context.Context) error {
	p.mu.Lock()
	if p.state == StateConnected || p.state == StateConnecting {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()
	p.setState(StateConnecting)

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, p.wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		p.setState(StateFailed)
		return err
	}

	rootCtx, rootCancel := context.WithCancel(context.Background())
	p.mu.Lock()
	p.conn = conn
	p.cancel = rootCancel
	p.mu.Unlock()
	p.setState(StateConnected)

	p.wg.Add(2)
	go p.listen(rootCtx, conn)
	go p.pingLoop(rootCtx, conn)
	return nil
}

// Send writes one action envelope.
func (p *PushClient) Send(ctx context.Context, action string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return wsjson.Write(ctx, conn, chessdto.Envelope{Action: action, Data: raw})
}

func (p *PushClient) listen(ctx context.Context, conn *websocket.Conn) {
	defer p.wg.Done()
	for {
		var f chessdto.Frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			p.drop(conn)
			return
		}
		p.cbM.RLock()
		callbacks := make([]callbackEntry, len(p.frameCbs))
		copy(callbacks, p.frameCbs)
		p.cbM.RUnlock()
		for _, entry := range callbacks {
			entry.callback(f)
		}
	}
}

func (p *PushClient) pingLoop(ctx context.Context, conn *websocket.Conn) {
	defer p.wg.Done()
	t := time.NewTicker(p.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := conn.Ping(pctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				p.drop(conn)
				return
			}
		}
	}
}

// drop forgets conn if it is still current.
func (p *PushClient) drop(conn *websocket.Conn) {
	p.mu.Lock()
	if p.conn != conn {
		p.mu.Unlock()
		return
	}
	p.conn = nil
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	_ = conn.Close(websocket.StatusGoingAway, "")
	p.setState(StateDisconnected)
}

// OnFrame registers cb for every server frame and returns its id.
func (p *PushClient) OnFrame(cb FrameCallback) int {
	p.cbM.Lock()
	defer p.cbM.Unlock()
	p.nextID++
	p.frameCbs = append(p.frameCbs, callbackEntry{id: p.nextID, callback: cb})
	return p.nextID
}

func (p *PushClient) RemoveFrameCallback(id int) {
	p.cbM.Lock()
	defer p.cbM.Unlock()
	for i, cb := range p.frameCbs {
		if cb.id == id {
			p.frameCbs = append(p.frameCbs[:i], p.frameCbs[i+1:]...)
			break
		}
	}
}

func (p *PushClient) OnStateChange(cb StateCallback) {
	p.cbM.Lock()
	defer p.cbM.Unlock()
	p.stateCbs = append(p.stateCbs, cb)
}

func (p *PushClient) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()

	p.cbM.RLock()
	callbacks := append([]StateCallback(nil), p.stateCbs...)
	p.cbM.RUnlock()
	for _, cb := range callbacks {
		cb(s)
	}
}

// Close shuts the connection and waits for the reader to stop.
func (p *PushClient) Close(ctx context.Context) error {
	p.mu.Lock()
	conn, cancel := p.conn, p.cancel
	p.conn = nil
	p.mu.Unlock()
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "close")
		if cancel != nil {
			cancel()
		}
		p.setState(StateDisconnected)
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
