package obslog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"WARNING": zapcore.WarnLevel,
		" error ": zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("%q: got %v want %v", in, got, want)
		}
	}
}

func TestInitFromEnvWritesRotatingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "rooms.log")
	t.Setenv("LOG_TO_CONSOLE", "false")
	t.Setenv("LOG_TO_FILE", "true")
	t.Setenv("LOG_FILE", path)
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_MAX_SIZE_MB", "nope")
	t.Cleanup(func() {
		_ = Sync()
		Set(nil)
	})

	if err := InitFromEnv(); err != nil {
		t.Fatalf("InitFromEnv: %v", err)
	}
	if fileSink == nil || fileSink.MaxSize != 50 {
		t.Fatalf("expected default rotation size, got %+v", fileSink)
	}
	L().Info("room_create")
	_ = L().Sync()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if len(raw) == 0 {
		t.Fatalf("log file is empty")
	}
}

func TestNewEncoderFormats(t *testing.T) {
	entry := zapcore.Entry{Level: zapcore.WarnLevel, Message: "room_leave"}
	for format, want := range map[string]string{
		"json":   `"level":"warn"`,
		"legacy": "WARN | room_leave",
		"":       "WARN | room_leave",
	} {
		buf, err := newEncoder(format).EncodeEntry(entry, nil)
		if err != nil {
			t.Fatalf("%q: %v", format, err)
		}
		if !strings.Contains(buf.String(), want) {
			t.Fatalf("%q: %q lacks %q", format, buf.String(), want)
		}
	}
}
