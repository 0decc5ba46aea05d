package manager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"HoldemTable/internal/game/dealer"
	"HoldemTable/internal/game/engine"
	"HoldemTable/internal/game/round"
	"HoldemTable/internal/game/store"
	"HoldemTable/internal/game/table"
	"HoldemTable/internal/matchmaker"
	"HoldemTable/internal/utils"
	"HoldemTable/internal/websocket"

	"github.com/coder/quartz"
)

// mockHub implements HubInterface and records messages per address.
type mockHub struct {
	mu           sync.Mutex
	sentToPlayer map[string][]websocket.OutgoingMessage
}

func newMockHub() *mockHub {
	return &mockHub{sentToPlayer: make(map[string][]websocket.OutgoingMessage)}
}

func (h *mockHub) BroadcastToPlayers(addrs []string, msg websocket.OutgoingMessage) {
	for _, a := range addrs {
		h.SendToPlayer(a, msg)
	}
}

func (h *mockHub) ClientByAddress(string) (*websocket.Client, bool) { return nil, false }

func (h *mockHub) SendToPlayer(addr string, msg websocket.OutgoingMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sentToPlayer[addr] = append(h.sentToPlayer[addr], msg)
}

func (h *mockHub) Close() {}

func (h *mockHub) received(addr, event string) []websocket.OutgoingMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []websocket.OutgoingMessage
	for _, m := range h.sentToPlayer[addr] {
		if m.Event == event {
			out = append(out, m)
		}
	}
	return out
}

type fixture struct {
	mgr    *GameManager
	engine *engine.Engine
	store  store.Store
	hub    *mockHub
	clock  *quartz.Mock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: store.NewMemoryStore(), hub: newMockHub(), clock: quartz.NewMock(t)}
	f.engine = engine.NewEngine(f.store, round.NewTrigger(round.DefaultReadyTimeout, dealer.NewDealer(7)), f.hub, engine.Options{
		Settings:   table.Settings{BuyIn: 1000, BigBlind: 20, MinPlayers: 2, MaxPlayers: 6},
		MaxRetries: 3,
		Clock:      f.clock,
		Logger:     utils.Discard(),
	})
	f.mgr = NewGameManager(f.engine, f.hub, f.clock, utils.Discard())
	return f
}

func room(id string, players ...string) *matchmaker.Room {
	return &matchmaker.Room{ID: id, Pool: "default", TableSize: len(players), Players: players, CreatedAt: time.Now()}
}

func payload(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

func TestGameManagerStartRoom(t *testing.T) {
	f := newFixture(t)
	if err := f.mgr.StartRoom(context.Background(), room("room-1", "0xA", "0xB")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	g, err := f.engine.State(context.Background(), "room-1")
	if err != nil {
		t.Fatalf("expected table for room-1: %v", err)
	}
	if g.Stage != table.StageGameOver || len(g.Players) != 2 {
		t.Fatalf("expected a 2-seat table waiting for ready, got %s with %d", g.Stage, len(g.Players))
	}

	f.mgr.mu.RLock()
	defer f.mgr.mu.RUnlock()
	if f.mgr.playerToRoom["0xA"] != "room-1" {
		t.Fatalf("expected 0xA mapped to room-1")
	}
}

func TestGameManagerDuplicateRoom(t *testing.T) {
	f := newFixture(t)
	r := room("r1", "P1", "P2")

	if err := f.mgr.StartRoom(context.Background(), r); err != nil {
		t.Fatalf("unexpected error first start: %v", err)
	}
	err := f.mgr.StartRoom(context.Background(), r)
	if !errors.Is(err, store.ErrExists) {
		t.Fatalf("expected ErrExists for duplicate room, got %v", err)
	}
}

func TestGameManagerConcurrency(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("r%d", i)
			if err := f.mgr.StartRoom(context.Background(), room(id, id+"-X", id+"-Y")); err != nil {
				t.Errorf("start %s: %v", id, err)
			}
		}(i)
	}
	wg.Wait()

	ids, err := f.store.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 5 {
		t.Fatalf("expected 5 tables, got %d", len(ids))
	}
}

func TestHandlePlayerMessage_ReadyDealsHand(t *testing.T) {
	f := newFixture(t)
	if err := f.mgr.StartRoom(context.Background(), room("t1", "0xA", "0xB")); err != nil {
		t.Fatal(err)
	}

	f.mgr.HandlePlayerMessage(websocket.IncomingMessage{
		From: "0xA", Event: EventPlayerReady, Data: payload(map[string]string{"gameId": "t1"}),
	})
	// no gameId: falls back to the matched room
	f.mgr.HandlePlayerMessage(websocket.IncomingMessage{From: "0xB", Event: EventPlayerReady})

	for _, addr := range []string{"0xA", "0xB"} {
		if errs := f.hub.received(addr, EventError); len(errs) != 0 {
			t.Fatalf("%s got errors: %+v", addr, errs)
		}
		if len(f.hub.received(addr, engine.EventDealHole)) != 1 {
			t.Fatalf("%s expected hole cards", addr)
		}
	}
	g, _ := f.engine.State(context.Background(), "t1")
	if g.Stage != table.StagePreFlop {
		t.Fatalf("expected preFlop, got %s", g.Stage)
	}
}

func TestHandlePlayerMessage_ErrorsGoToSenderOnly(t *testing.T) {
	f := newFixture(t)
	if err := f.mgr.StartRoom(context.Background(), room("t1", "0xA", "0xB")); err != nil {
		t.Fatal(err)
	}

	cases := []websocket.IncomingMessage{
		{From: "0xStranger", Event: EventPlayerReady, Data: payload(map[string]string{"gameId": "t1"})},
		{From: "0xStranger", Event: EventPlayerReady},
		{From: "0xStranger", Event: "fold", Data: payload(map[string]string{"gameId": "t1"})},
		{From: "0xStranger", Event: EventChat, Data: payload(map[string]string{"gameId": "t1", "text": "hi"})},
		{From: "0xStranger", Event: EventJoinWaiting, Data: json.RawMessage(`{`)},
	}
	for i, msg := range cases {
		f.mgr.HandlePlayerMessage(msg)
		if got := len(f.hub.received("0xStranger", EventError)); got != i+1 {
			t.Fatalf("case %d: expected %d errors, got %d", i, i+1, got)
		}
	}

	errMsg := f.hub.received("0xStranger", EventError)[0]
	if data, ok := errMsg.Data.(map[string]string); !ok || data["error"] == "" {
		t.Fatalf("expected {error: message}, got %#v", errMsg.Data)
	}
	if len(f.hub.received("0xA", EventError)) != 0 || len(f.hub.received("0xA", EventChat)) != 0 {
		t.Fatalf("table members must not see a stranger's failures")
	}
}

func TestHandlePlayerMessage_JoinWaitingAndChat(t *testing.T) {
	f := newFixture(t)
	if err := f.mgr.StartRoom(context.Background(), room("t1", "0xA", "0xB")); err != nil {
		t.Fatal(err)
	}

	f.mgr.HandlePlayerMessage(websocket.IncomingMessage{
		From: "0xW", Event: EventJoinWaiting, Data: payload(map[string]string{"gameId": "t1"}),
	})
	g, _ := f.engine.State(context.Background(), "t1")
	if !g.IsWaiting("0xW") {
		t.Fatalf("expected 0xW on the waiting list")
	}

	f.mgr.HandlePlayerMessage(websocket.IncomingMessage{
		From: "0xW", Event: EventChat, Data: payload(map[string]string{"gameId": "t1", "text": "gl"}),
	})
	for _, addr := range []string{"0xA", "0xB", "0xW"} {
		chats := f.hub.received(addr, EventChat)
		if len(chats) != 1 {
			t.Fatalf("%s expected one chat message, got %d", addr, len(chats))
		}
		data := chats[0].Data.(map[string]any)
		if data["from"] != "0xW" || data["text"] != "gl" {
			t.Fatalf("unexpected chat payload %#v", data)
		}
	}
}

func TestRunSweeper(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := f.mgr.StartRoom(ctx, room("t1", "0xA", "0xB")); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- f.mgr.RunSweeper(ctx, 5*time.Second) }()

	// each step lands exactly on the next tick once the ticker is registered
	deadline := time.Now().Add(2 * time.Second)
	for {
		f.clock.Advance(5 * time.Second).MustWait(ctx)
		g, err := f.engine.State(ctx, "t1")
		if err != nil {
			t.Fatal(err)
		}
		if g.Stage == table.StagePreFlop {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected the sweeper to deal after the ready timeout, still %s", g.Stage)
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("sweeper returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
