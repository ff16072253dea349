package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/park285/cashout-chess/internal/roomclient"
	"github.com/park285/cashout-chess/pkg/chessdto"
)

func main() {
	baseURL := os.Getenv("ROOMS_POLL_URL")
	wsURL := os.Getenv("ROOMS_PUSH_URL")

	if baseURL == "" {
		log.Fatal("ROOMS_POLL_URL is required")
	}

	client := roomclient.NewClient(baseURL, roomclient.WithTimeout(8*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := pollCheck(ctx, client); err != nil {
		log.Fatalf("poll check failed: %v", err)
	}

	if wsURL == "" {
		log.Println("ROOMS_PUSH_URL not set; skipping push check")
		return
	}
	if err := pushCheck(wsURL); err != nil {
		log.Fatalf("push check failed: %v", err)
	}
}

func pollCheck(ctx context.Context, client *roomclient.Client) error {
	rm, white, err := client.CreateRoom(ctx, "roomcheck-white")
	if err != nil {
		return fmt.Errorf("create-room: %w", err)
	}
	log.Printf("create-room ok: id=%s status=%s", rm.ID, rm.Status)

	_, black, err := client.JoinRoom(ctx, rm.ID, "roomcheck-black")
	if err != nil {
		return fmt.Errorf("join-room: %w", err)
	}
	log.Printf("join-room ok: seat=%s", black.Color)

	_, next, err := client.MakeMove(ctx, rm.ID, white.ID, "e2", "e4")
	if err != nil {
		return fmt.Errorf("make-move: %w", err)
	}
	log.Printf("make-move ok: next=%s", next)

	if _, _, err := client.MakeMove(ctx, rm.ID, white.ID, "d2", "d4"); !roomclient.IsCode(err, chessdto.CodeNotYourTurn) {
		return fmt.Errorf("expected NotYourTurn, got %v", err)
	}
	log.Printf("turn check ok")

	snap, err := client.GetRoom(ctx, rm.ID)
	if err != nil {
		return fmt.Errorf("get-room: %w", err)
	}
	log.Printf("get-room ok: fen=%s moves=%d", snap.FEN, len(snap.Moves))

	for _, p := range []chessdto.Player{white, black} {
		if _, err := client.LeaveRoom(ctx, rm.ID, p.ID); err != nil {
			return fmt.Errorf("leave-room: %w", err)
		}
	}
	if _, err := client.GetRoom(ctx, rm.ID); !roomclient.IsCode(err, chessdto.CodeRoomNotFound) {
		return fmt.Errorf("room survived both players leaving: %v", err)
	}
	log.Printf("leave-room ok: room destroyed")
	return nil
}

func pushCheck(wsURL string) error {
	pc := roomclient.NewPushClient(wsURL)
	pc.OnStateChange(func(state roomclient.State) {
		log.Printf("push state: %s", state)
	})
	created := make(chan string, 1)
	pc.OnFrame(func(f chessdto.Frame) {
		fmt.Printf("push frame event=%s data=%s\n", f.Event, f.Data)
		if f.Event == chessdto.EventRoomCreated {
			select {
			case created <- f.Event:
			default:
			}
		}
	})

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := pc.Connect(cctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() { _ = pc.Close(context.Background()) }()

	if err := pc.Send(cctx, chessdto.ActionCreateRoom, chessdto.CreateRoomRequest{PlayerName: "roomcheck-push"}); err != nil {
		return fmt.Errorf("send create-room: %w", err)
	}
	select {
	case <-created:
		log.Printf("push create-room ok")
	case <-cctx.Done():
		return fmt.Errorf("no room-created frame: %w", cctx.Err())
	}
	return nil
}
