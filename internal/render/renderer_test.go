package render

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"

	"github.com/park285/cashout-chess/internal/chess"
	"github.com/park285/cashout-chess/internal/room"
	"github.com/park285/cashout-chess/pkg/chessdto"
)

func TestRenderPNGDecodes(t *testing.T) {
	r := New()
	data, err := r.RenderPNG(context.Background(), chess.NewBoard(), Options{Caption: "Room abc - playing - white to move"})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != boardSize+sideMargin*2 || b.Dy() != boardSize+headerHeight+footerHeight+sideMargin {
		t.Fatalf("unexpected size %v", b)
	}
}

func TestRenderPerspectiveDiffers(t *testing.T) {
	r := New()
	ctx := context.Background()
	white, err := r.RenderPNG(ctx, chess.NewBoard(), Options{Perspective: chess.White})
	if err != nil {
		t.Fatalf("white: %v", err)
	}
	black, err := r.RenderPNG(ctx, chess.NewBoard(), Options{Perspective: chess.Black})
	if err != nil {
		t.Fatalf("black: %v", err)
	}
	if bytes.Equal(white, black) {
		t.Fatalf("flipped board rendered identically")
	}
}

func TestRenderRoomAfterMove(t *testing.T) {
	g := room.NewRegistry()
	ctx := context.Background()
	rm, _, _ := g.CreateRoom(ctx, "Alice", "")
	if _, _, err := g.JoinRoom(ctx, rm.ID, "Bob", ""); err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}
	if _, err := g.MakeMove(ctx, rm.ID, "e2", "e4", chess.White); err != nil {
		t.Fatalf("MakeMove: %v", err)
	}
	snap, err := g.GetRoom(ctx, rm.ID)
	if err != nil {
		t.Fatalf("GetRoom: %v", err)
	}
	data, err := New().RenderRoom(ctx, snap, chess.Black, "after e4")
	if err != nil {
		t.Fatalf("RenderRoom: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestRenderCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().RenderRoom(ctx, chessdto.Room{}, chess.White, ""); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestSquareRectFlip(t *testing.T) {
	sq, ok := libSquare("a1")
	if !ok {
		t.Fatalf("a1 not parsed")
	}
	if r := squareRect(sq, origin0, false); r.Min.X != 0 || r.Min.Y != 7*squareSize {
		t.Fatalf("white a1 at %v", r)
	}
	if r := squareRect(sq, origin0, true); r.Min.X != 7*squareSize || r.Min.Y != 0 {
		t.Fatalf("black a1 at %v", r)
	}
}

var origin0 = image.Point{}
