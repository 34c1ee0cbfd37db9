package realtime

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

func testHub() *Hub {
	return NewHub(slog.Default())
}

// ---------------------------------------------------------------------------
// shouldSend tests
// ---------------------------------------------------------------------------

func TestShouldSend_AllEvents(t *testing.T) {
	h := testHub()
	client := &Client{sub: Subscription{AllEvents: true}}

	event := &Event{Type: EventRiskAlert, Timestamp: time.Now()}
	if !h.shouldSend(client, event) {
		t.Error("AllEvents client should receive all events")
	}
}

func TestShouldSend_EventTypeFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		EventTypes: []EventType{EventRiskAlert},
	}}

	alertEvent := &Event{Type: EventRiskAlert}
	checkEvent := &Event{Type: EventCheckCompleted}

	if !h.shouldSend(client, alertEvent) {
		t.Error("Should receive risk_alert events")
	}
	if h.shouldSend(client, checkEvent) {
		t.Error("Should NOT receive check_completed events")
	}
}

func TestShouldSend_WalletFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		Wallets: []string{"0xwallet1"},
	}}

	matching := &Event{
		Type: EventRiskAlert,
		Data: map[string]interface{}{"wallet": "0xwallet1", "risk_score": 0.9},
	}
	notMatching := &Event{
		Type: EventRiskAlert,
		Data: map[string]interface{}{"wallet": "0xother", "risk_score": 0.9},
	}
	matchingAddress := &Event{
		Type: EventCheckCompleted,
		Data: map[string]interface{}{"address": "0xwallet1"},
	}

	if !h.shouldSend(client, matching) {
		t.Error("Should match on wallet field")
	}
	if h.shouldSend(client, notMatching) {
		t.Error("Should NOT match unrelated wallets")
	}
	if !h.shouldSend(client, matchingAddress) {
		t.Error("Should match on address field")
	}
}

func TestShouldSend_LevelFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		Levels: []string{"high"},
	}}

	high := &Event{
		Type: EventRiskAlert,
		Data: map[string]interface{}{"risk_level": "high"},
	}
	medium := &Event{
		Type: EventRiskAlert,
		Data: map[string]interface{}{"risk_level": "medium"},
	}
	noLevel := &Event{
		Type: EventCheckCompleted,
		Data: map[string]interface{}{"address": "0xa"},
	}

	if !h.shouldSend(client, high) {
		t.Error("Should receive high-level events")
	}
	if h.shouldSend(client, medium) {
		t.Error("Should NOT receive medium-level events")
	}
	if !h.shouldSend(client, noLevel) {
		t.Error("Level filter should pass events without a risk_level field")
	}
}

func TestShouldSend_MinScoreFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		MinScore: 0.8,
	}}

	hot := &Event{
		Type: EventRiskAlert,
		Data: map[string]interface{}{"risk_score": 0.93},
	}
	mild := &Event{
		Type: EventRiskAlert,
		Data: map[string]interface{}{"risk_score": 0.71},
	}
	check := &Event{
		Type: EventCheckCompleted,
		Data: map[string]interface{}{"top_score": 0.1},
	}

	if !h.shouldSend(client, hot) {
		t.Error("Should receive alert above the score threshold")
	}
	if h.shouldSend(client, mild) {
		t.Error("Should NOT receive alert below the score threshold")
	}
	if !h.shouldSend(client, check) {
		t.Error("MinScore filter should only apply to risk alerts")
	}
}

func TestShouldSend_EmptySubscription(t *testing.T) {
	h := testHub()

	// No filters, not AllEvents
	client := &Client{sub: Subscription{}}

	event := &Event{Type: EventRiskAlert}
	if !h.shouldSend(client, event) {
		t.Error("Empty subscription (no filters) should receive events")
	}
}

func TestShouldSend_NonMapData(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		Wallets: []string{"0xwallet1"},
	}}

	// Event with non-map data should not crash
	event := &Event{
		Type: EventCheckCompleted,
		Data: "string data not a map",
	}

	// Wallet filter skips non-map data (can't extract addresses), so event passes through
	if !h.shouldSend(client, event) {
		t.Error("Non-map data should pass through when wallet filter can't extract addresses")
	}
}

// ---------------------------------------------------------------------------
// Hub lifecycle tests
// ---------------------------------------------------------------------------

func TestHub_Stats_Initial(t *testing.T) {
	h := testHub()

	stats := h.Stats()
	if stats["connectedClients"].(int) != 0 {
		t.Errorf("Expected 0 connected clients, got %v", stats["connectedClients"])
	}
	if stats["totalEvents"].(int64) != 0 {
		t.Errorf("Expected 0 total events, got %v", stats["totalEvents"])
	}
}

func TestHub_BroadcastAndStats(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	// Broadcast an event
	h.Broadcast(&Event{Type: EventRiskAlert, Timestamp: time.Now()})
	time.Sleep(50 * time.Millisecond)

	stats := h.Stats()
	if stats["totalEvents"].(int64) != 1 {
		t.Errorf("Expected 1 total event, got %v", stats["totalEvents"])
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{AllEvents: true},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	stats := h.Stats()
	if stats["connectedClients"].(int) != 1 {
		t.Errorf("Expected 1 connected client, got %v", stats["connectedClients"])
	}
	if stats["peakClients"].(int64) != 1 {
		t.Errorf("Expected peak 1, got %v", stats["peakClients"])
	}

	h.unregister <- client
	time.Sleep(50 * time.Millisecond)

	stats = h.Stats()
	if stats["connectedClients"].(int) != 0 {
		t.Errorf("Expected 0 connected clients after unregister, got %v", stats["connectedClients"])
	}
	// Peak should still be 1
	if stats["peakClients"].(int64) != 1 {
		t.Errorf("Expected peak still 1, got %v", stats["peakClients"])
	}
}

func TestHub_BroadcastToClient(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{AllEvents: true},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	h.BroadcastRiskAlert(map[string]interface{}{
		"wallet": "0xabc", "transaction_id": "tx_1", "risk_score": 0.91, "risk_level": "high",
	})

	select {
	case msg := <-client.send:
		if len(msg) == 0 {
			t.Error("Expected non-empty message")
		}
	case <-time.After(time.Second):
		t.Error("Timeout waiting for broadcast")
	}
}

func TestHub_BroadcastCheckCompleted(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	// Should not panic
	h.BroadcastCheckCompleted(map[string]interface{}{
		"address": "0xabc", "risk_level": "low", "top_score": 0.12,
	})
}

func TestHub_ContextCancellation(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
		// Hub stopped
	case <-time.After(2 * time.Second):
		t.Error("Hub did not stop after context cancellation")
	}
}

func TestHub_FilteredBroadcast(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	// Client only wants completed checks
	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{EventTypes: []EventType{EventCheckCompleted}},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	// Send a risk alert (should be filtered out)
	h.Broadcast(&Event{Type: EventRiskAlert, Timestamp: time.Now()})
	time.Sleep(100 * time.Millisecond)

	select {
	case <-client.send:
		t.Error("Client should NOT receive risk_alert event")
	default:
		// Good - filtered out
	}

	// Send a completed check (should be received)
	h.Broadcast(&Event{Type: EventCheckCompleted, Timestamp: time.Now()})

	select {
	case msg := <-client.send:
		if len(msg) == 0 {
			t.Error("Expected non-empty message")
		}
	case <-time.After(time.Second):
		t.Error("Client should receive check_completed event")
	}
}
