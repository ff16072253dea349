package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	PollAddr string
	PushAddr string

	RedisURL    string
	DatabaseURL string

	RoomCodeLength int
	RoomTTL        time.Duration

	MessagesDir    string
	AllowedOrigins []string

	ShutdownTimeout time.Duration
}

const (
	minCodeLength = 4
	maxCodeLength = 32
)

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		PollAddr:        ":8080",
		PushAddr:        ":8081",
		RoomCodeLength:  9,
		RoomTTL:         24 * time.Hour,
		ShutdownTimeout: 10 * time.Second,
	}

	if v := strings.TrimSpace(os.Getenv("POLL_ADDR")); v != "" {
		cfg.PollAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("PUSH_ADDR")); v != "" {
		cfg.PushAddr = v
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	if v := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); v != "" {
		parts := strings.Split(v, ",")
		for _, p := range parts {
			s := strings.TrimSpace(p)
			if s != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, s)
			}
		}
	}

	if v := strings.TrimSpace(os.Getenv("ROOM_CODE_LENGTH")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("ROOM_CODE_LENGTH: %w", err)
		}
		cfg.RoomCodeLength = n
	}
	if v := strings.TrimSpace(os.Getenv("ROOM_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("ROOM_TTL: %w", err)
		}
		cfg.RoomTTL = d
	}
	if v := strings.TrimSpace(os.Getenv("SHUTDOWN_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.ShutdownTimeout = d
		}
	}

	if cfg.RoomCodeLength < minCodeLength || cfg.RoomCodeLength > maxCodeLength {
		return nil, fmt.Errorf("ROOM_CODE_LENGTH must be between %d and %d", minCodeLength, maxCodeLength)
	}
	if cfg.RoomTTL <= 0 {
		return nil, errors.New("ROOM_TTL must be positive")
	}
	if cfg.PollAddr == cfg.PushAddr {
		return nil, errors.New("POLL_ADDR and PUSH_ADDR must differ")
	}

	return cfg, nil
}
