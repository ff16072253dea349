package msgcat

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultErrorMessages(t *testing.T) {
	c := MustDefault()
	if got := c.Error("RoomNotFound", nil); got != "Room not found" {
		t.Fatalf("RoomNotFound: %q", got)
	}
	if got := c.Error("InvalidArgs", map[string]any{"detail": "roomId is required"}); got != "Invalid request: roomId is required" {
		t.Fatalf("InvalidArgs: %q", got)
	}
	// missing template data falls back to the generic message
	if got := c.Error("InvalidArgs", nil); got != "Something went wrong. Please try again." {
		t.Fatalf("fallback: %q", got)
	}
	if got := c.Error("NoSuchCode", nil); got != "Something went wrong. Please try again." {
		t.Fatalf("unknown code: %q", got)
	}
	var nilCat *Catalog
	if got := nilCat.Error("RoomFull", nil); got != "RoomFull" {
		t.Fatalf("nil catalog: %q", got)
	}
}

func TestOverrides(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("errors:\n  RoomFull: \"Sorry, {{.roomId}} is full\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.Render("errors.RoomFull", map[string]any{"roomId": "abc"})
	if err != nil || got != "Sorry, abc is full" {
		t.Fatalf("override render: %q %v", got, err)
	}
	if got := c.Error("NotYourTurn", nil); got != "It is not your turn." {
		t.Fatalf("untouched key: %q", got)
	}
}

func TestDuplicateOverrideRejected(t *testing.T) {
	dir := t.TempDir()
	body := []byte("errors:\n  RoomFull: \"x\"\n")
	for _, n := range []string{"a.yaml", "b.yml"} {
		if err := os.WriteFile(filepath.Join(dir, n), body, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if _, err := New(dir); err == nil {
		t.Fatalf("expected duplicate key error")
	}
}

func TestNonStringLeafRejected(t *testing.T) {
	if _, err := parseYAMLToFlat([]byte("errors:\n  RoomFull: 3\n")); err == nil {
		t.Fatalf("expected error for numeric leaf")
	}
}
