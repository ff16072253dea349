package push

import (
	"context"

	"github.com/park285/cashout-chess/internal/room"
	"github.com/park285/cashout-chess/pkg/chessdto"
)

// Publish implements room.Observer. Seats taken over this hub subscribe the
// connection to the room; leaving or closing unsubscribes it.
func (h *Hub) Publish(_ context.Context, ev room.Event) {
	var player chessdto.Player
	if ev.Player != nil {
		player = *ev.Player
	}

	switch ev.Kind {
	case room.EventRoomCreated:
		if ev.ConnRef == "" {
			return
		}
		h.mu.Lock()
		h.subscribeLocked(ev.RoomID, ev.ConnRef, player.ID)
		h.mu.Unlock()
		h.sendTo(h.client(ev.ConnRef), chessdto.EventRoomCreated, chessdto.RoomCreated{
			RoomID: ev.RoomID,
			Player: player,
			Room:   ev.Room,
			Notice: h.notice("lobby.created", map[string]any{"roomId": ev.RoomID}),
		})

	case room.EventPlayerJoined:
		notice := h.notice("lobby.joined", map[string]any{"name": player.Name, "color": player.Color})
		if ev.ConnRef != "" {
			h.mu.Lock()
			h.subscribeLocked(ev.RoomID, ev.ConnRef, player.ID)
			h.mu.Unlock()
			h.sendTo(h.client(ev.ConnRef), chessdto.EventRoomJoined, chessdto.RoomJoined{Room: ev.Room, Player: player, Notice: notice})
		}
		h.broadcast(ev.RoomID, chessdto.EventPlayerJoined, chessdto.RoomJoined{Room: ev.Room, Player: player, Notice: notice}, ev.ConnRef)

	case room.EventMoveMade:
		if ev.Move != nil {
			h.broadcast(ev.RoomID, chessdto.EventMoveMade, ev.Move, "")
		}

	case room.EventPlayerLeft:
		h.broadcast(ev.RoomID, chessdto.EventPlayerLeft, chessdto.PlayerLeft{
			Room:   ev.Room,
			Player: player,
			Notice: h.notice("lobby.left", map[string]any{"name": player.Name}),
		}, "")
		if ev.ConnRef != "" {
			h.mu.Lock()
			h.unsubscribeLocked(ev.RoomID, ev.ConnRef)
			h.mu.Unlock()
		}

	case room.EventGameOver:
		winner := ev.Room.Winner
		h.broadcast(ev.RoomID, chessdto.EventGameOver, chessdto.GameOver{
			Room:   ev.Room,
			Winner: winner,
			Reason: ev.Reason,
			Notice: h.notice("lobby.resigned", map[string]any{"name": player.Name, "winner": winner}),
		}, "")

	case room.EventRoomClosed:
		h.broadcast(ev.RoomID, chessdto.EventRoomClosed, chessdto.PlayerLeft{Room: ev.Room, Player: player}, "")
		h.mu.Lock()
		for ref := range h.rooms[ev.RoomID] {
			if seats, ok := h.seats[ref]; ok {
				delete(seats, ev.RoomID)
			}
		}
		delete(h.rooms, ev.RoomID)
		h.mu.Unlock()
	}
}
