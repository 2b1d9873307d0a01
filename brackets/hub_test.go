package brackets

import (
	"encoding/json"
	"testing"
)

func TestTournamentRoom(t *testing.T) {
	if got := TournamentRoom(7); got != "tournament_7" {
		t.Fatalf("TournamentRoom(7) = %q, want %q", got, "tournament_7")
	}
}

func TestBroadcastToRoomDeliversEnvelope(t *testing.T) {
	hub := NewHub()
	client := &Client{Send: make(chan []byte, 1), Room: TournamentRoom(7)}
	hub.rooms[client.Room] = map[*Client]bool{client: true}

	hub.BroadcastToRoom(client.Room, WebSocketMessage{
		Type:   MessageBracketUpdated,
		RoomID: client.Room,
	})

	select {
	case raw := <-client.Send:
		var msg WebSocketMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("unmarshal broadcast: %v", err)
		}
		if msg.Type != MessageBracketUpdated {
			t.Fatalf("message type = %q, want %q", msg.Type, MessageBracketUpdated)
		}
		if msg.RoomID != TournamentRoom(7) {
			t.Fatalf("room id = %q, want %q", msg.RoomID, TournamentRoom(7))
		}
	default:
		t.Fatal("expected a message in the client send buffer")
	}
}

func TestBroadcastToRoomSkipsBlockedClients(t *testing.T) {
	hub := NewHub()
	room := TournamentRoom(9)
	// Небуферизованный канал без читателя: отправка в него заблокировала бы хаб.
	blocked := &Client{Send: make(chan []byte), Room: room}
	free := &Client{Send: make(chan []byte, 1), Room: room}
	hub.rooms[room] = map[*Client]bool{blocked: true, free: true}

	hub.BroadcastToRoom(room, WebSocketMessage{Type: MessageTournamentDeleted, RoomID: room})

	if len(free.Send) != 1 {
		t.Fatalf("free client buffer = %d messages, want 1", len(free.Send))
	}
	if len(blocked.Send) != 0 {
		t.Fatal("blocked client should have been skipped")
	}
}

func TestBroadcastToRoomUnknownRoom(t *testing.T) {
	hub := NewHub()
	client := &Client{Send: make(chan []byte, 1), Room: TournamentRoom(1)}
	hub.rooms[client.Room] = map[*Client]bool{client: true}

	hub.BroadcastToRoom(TournamentRoom(2), WebSocketMessage{Type: MessageBracketUpdated})

	if len(client.Send) != 0 {
		t.Fatal("clients of other rooms must not receive the message")
	}
}
