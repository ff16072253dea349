package roomstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/cashout-chess/internal/obslog"
	"github.com/park285/cashout-chess/internal/room"
	"github.com/park285/cashout-chess/pkg/chessdto"
)

// ErrRoomClosed reports an update for a room already deleted from the mirror.
var ErrRoomClosed = errors.New("room already closed")

const (
	DefaultTTL   = 24 * time.Hour
	writeTimeout = 2 * time.Second
	scanBatch    = 100
)

// Store mirrors room snapshots into Redis so a restarted server can pick up
// where it left off. Each room lives under room:<id> as JSON; waiting rooms
// are also indexed in the rooms:lobby set.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{rdb: rdb, ttl: ttl}
}

// Open connects to REDIS_URL and verifies the connection.
func Open(ctx context.Context, redisURL string, ttl time.Duration) (*Store, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for room mirror")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return New(rdb, ttl), nil
}

func (s *Store) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func keyRoom(id string) string   { return "room:" + strings.TrimSpace(id) }
func keyClosed(id string) string { return "rooms:closed:" + strings.TrimSpace(id) }
func keyLobby() string           { return "rooms:lobby" }

// Save writes the snapshot, clearing any tombstone left by an earlier room
// with the same id, and keeps the lobby index in step with its status.
func (s *Store) Save(ctx context.Context, r chessdto.Room) error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("room id required")
	}
	raw, err := json.Marshal(r)
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, keyClosed(r.ID))
	s.queueSave(ctx, pipe, r, raw)
	_, err = pipe.Exec(ctx)
	return err
}

// Update writes the snapshot unless the room was deleted. Returns
// ErrRoomClosed when the tombstone is present.
func (s *Store) Update(ctx context.Context, r chessdto.Room) error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("room id required")
	}
	raw, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, keyClosed(r.ID)).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrRoomClosed
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			s.queueSave(ctx, pipe, r, raw)
			return nil
		})
		return err
	}, keyClosed(r.ID))
}

func (s *Store) queueSave(ctx context.Context, pipe redis.Pipeliner, r chessdto.Room, raw []byte) {
	pipe.Set(ctx, keyRoom(r.ID), raw, s.ttl)
	if r.Status == chessdto.StatusWaiting {
		pipe.SAdd(ctx, keyLobby(), r.ID)
		pipe.Expire(ctx, keyLobby(), s.ttl)
	} else {
		pipe.SRem(ctx, keyLobby(), r.ID)
	}
}

// Delete drops the room and leaves a tombstone so late updates cannot bring
// it back.
func (s *Store) Delete(ctx context.Context, id string) error {
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, keyRoom(id))
	pipe.SRem(ctx, keyLobby(), strings.TrimSpace(id))
	pipe.Set(ctx, keyClosed(id), 1, s.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Load returns nil, nil when the room is absent or expired.
func (s *Store) Load(ctx context.Context, id string) (*chessdto.Room, error) {
	raw, err := s.rdb.Get(ctx, keyRoom(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var r chessdto.Room
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// LoadAll scans every mirrored room, oldest first. Entries that fail to
// decode are skipped and logged.
func (s *Store) LoadAll(ctx context.Context) ([]chessdto.Room, error) {
	var (
		cursor uint64
		out    []chessdto.Room
	)
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, "room:*", scanBatch).Result()
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			id := strings.TrimPrefix(k, "room:")
			r, err := s.Load(ctx, id)
			if err != nil {
				obslog.L().Warn("roomstore_load_skip", zap.String("key", k), zap.Error(err))
				continue
			}
			if r != nil {
				out = append(out, *r)
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Lobby lists ids of waiting rooms.
func (s *Store) Lobby(ctx context.Context) ([]string, error) {
	ids, err := s.rdb.SMembers(ctx, keyLobby()).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

// Publish implements room.Observer. Mirror failures are logged and never
// reach the player.
func (s *Store) Publish(ctx context.Context, ev room.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	var err error
	switch ev.Kind {
	case room.EventRoomClosed:
		err = s.Delete(ctx, ev.RoomID)
	case room.EventRoomCreated:
		err = s.Save(ctx, ev.Room)
	default:
		err = s.Update(ctx, ev.Room)
	}
	if errors.Is(err, ErrRoomClosed) {
		obslog.L().Debug("roomstore_skip_closed", zap.String("room_id", ev.RoomID), zap.String("event", string(ev.Kind)))
		return
	}
	if err != nil {
		obslog.L().Error("roomstore_mirror_error", zap.String("room_id", ev.RoomID), zap.String("event", string(ev.Kind)), zap.Error(err))
	}
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redis db %q", p)
		}
		db = n
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Username: u.User.Username(), Password: pass, DB: db}, nil
}
