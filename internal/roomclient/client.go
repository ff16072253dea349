// Package roomclient talks to a chess-rooms server: Client over the poll
// endpoint and PushClient over the WebSocket hub.
package roomclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/cashout-chess/pkg/chessdto"
)

// DefaultPollInterval is how often Poll refreshes a room.
const DefaultPollInterval = 2 * time.Second

// APIError is a non-2xx reply from the poll endpoint.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("chess-rooms error: status=%d code=%s message=%s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("chess-rooms error: status=%d body=%s", e.Status, e.Message)
}

// IsCode reports whether err is an APIError carrying code.
func IsCode(err error, code string) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Code == code
}

type Client struct {
	baseURL string
	http    *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

// WithDial replaces the TCP dialer, e.g. with an in-memory listener.
func WithDial(dial func(addr string) (net.Conn, error)) Option {
	return func(c *Client) { c.http.Dial = dial }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) CreateRoom(ctx context.Context, name string) (chessdto.Room, chessdto.Player, error) {
	resp, err := c.Do(ctx, chessdto.ActionCreateRoom, chessdto.CreateRoomRequest{PlayerName: name})
	if err != nil {
		return chessdto.Room{}, chessdto.Player{}, err
	}
	return roomAndPlayer(resp)
}

func (c *Client) JoinRoom(ctx context.Context, roomID, name string) (chessdto.Room, chessdto.Player, error) {
	resp, err := c.Do(ctx, chessdto.ActionJoinRoom, chessdto.JoinRoomRequest{RoomID: roomID, PlayerName: name})
	if err != nil {
		return chessdto.Room{}, chessdto.Player{}, err
	}
	return roomAndPlayer(resp)
}

// MakeMove moves on behalf of the seated player.
func (c *Client) MakeMove(ctx context.Context, roomID, playerID, from, to string) (chessdto.GameState, string, error) {
	resp, err := c.Do(ctx, chessdto.ActionMakeMove, chessdto.MakeMoveRequest{RoomID: roomID, PlayerID: playerID, From: from, To: to})
	if err != nil {
		return chessdto.GameState{}, "", err
	}
	if resp.GameState == nil {
		return chessdto.GameState{}, "", errors.New("response without game state")
	}
	return *resp.GameState, resp.CurrentPlayer, nil
}

func (c *Client) GetRoom(ctx context.Context, roomID string) (chessdto.Room, error) {
	resp, err := c.Do(ctx, chessdto.ActionGetRoom, chessdto.RoomRequest{RoomID: roomID})
	if err != nil {
		return chessdto.Room{}, err
	}
	return roomOf(resp)
}

func (c *Client) LeaveRoom(ctx context.Context, roomID, playerID string) (chessdto.Room, error) {
	resp, err := c.Do(ctx, chessdto.ActionLeaveRoom, chessdto.RoomRequest{RoomID: roomID, PlayerID: playerID})
	if err != nil {
		return chessdto.Room{}, err
	}
	return roomOf(resp)
}

func (c *Client) Resign(ctx context.Context, roomID, playerID string) (chessdto.Room, error) {
	resp, err := c.Do(ctx, chessdto.ActionResign, chessdto.RoomRequest{RoomID: roomID, PlayerID: playerID})
	if err != nil {
		return chessdto.Room{}, err
	}
	return roomOf(resp)
}

func (c *Client) ListRooms(ctx context.Context, status string) ([]chessdto.Room, error) {
	resp, err := c.Do(ctx, chessdto.ActionListRooms, chessdto.ListRoomsRequest{Status: status})
	if err != nil {
		return nil, err
	}
	return resp.Rooms, nil
}

// Poll fetches the room every interval and hands each snapshot to fn until
// fn returns false, ctx ends, or the room disappears.
func (c *Client) Poll(ctx context.Context, roomID string, interval time.Duration, fn func(chessdto.Room) bool) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		snap, err := c.GetRoom(ctx, roomID)
		switch {
		case IsCode(err, chessdto.CodeRoomNotFound):
			return err
		case err == nil:
			if !fn(snap) {
				return nil
			}
		case ctx.Err() != nil:
			return ctx.Err()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// Do posts one action envelope. Reads are retried on 5xx and transport
// errors; actions that change state are sent once.
func (c *Client) Do(ctx context.Context, action string, data any) (chessdto.Response, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return chessdto.Response{}, fmt.Errorf("marshal request: %w", err)
	}
	body, err := json.Marshal(chessdto.Envelope{Action: action, Data: raw})
	if err != nil {
		return chessdto.Response{}, fmt.Errorf("marshal envelope: %w", err)
	}
	retry := action == chessdto.ActionGetRoom || action == chessdto.ActionListRooms

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()
	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(c.baseURL + "/api/socket")
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	attempts := 1
	if retry && c.retryMax > 1 {
		attempts = c.retryMax
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx)); err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
		} else {
			out, err := decodeResponse(resp)
			if err == nil {
				return out, nil
			}
			lastErr = err
			var ae *APIError
			if errors.As(err, &ae) && !shouldRetryStatus(ae.Status) {
				return chessdto.Response{}, err
			}
		}
		if attempt == attempts {
			break
		}
		if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
			return chessdto.Response{}, lastErr
		}
	}
	return chessdto.Response{}, lastErr
}

func decodeResponse(resp *fasthttp.Response) (chessdto.Response, error) {
	status := resp.StatusCode()
	var out chessdto.Response
	decodeErr := json.Unmarshal(resp.Body(), &out)
	if status < 200 || status >= 300 {
		if decodeErr == nil && out.Code != "" {
			return chessdto.Response{}, &APIError{Status: status, Code: out.Code, Message: out.Error}
		}
		return chessdto.Response{}, &APIError{Status: status, Message: truncate(string(resp.Body()), 512)}
	}
	if decodeErr != nil {
		return chessdto.Response{}, fmt.Errorf("decode response: %w", decodeErr)
	}
	return out, nil
}

func roomAndPlayer(resp chessdto.Response) (chessdto.Room, chessdto.Player, error) {
	if resp.Room == nil || resp.Player == nil {
		return chessdto.Room{}, chessdto.Player{}, errors.New("response without room or player")
	}
	return *resp.Room, *resp.Player, nil
}

func roomOf(resp chessdto.Response) (chessdto.Room, error) {
	if resp.Room == nil {
		return chessdto.Room{}, errors.New("response without room")
	}
	return *resp.Room, nil
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
