package realtime

import (
	"sync"
	"testing"
)

// stubChannel records sends and close calls.
type stubChannel struct {
	mu     sync.Mutex
	sent   []string
	closed bool

	sendErr error
}

func (c *stubChannel) Send(event string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrChannelClosed
	}
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, event)
	return nil
}

func (c *stubChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *stubChannel) sentEvents() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]string, len(c.sent))
	copy(result, c.sent)
	return result
}

func (c *stubChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func TestRegistry_ReconnectReplacesAndClosesOld(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	first := &stubChannel{}
	second := &stubChannel{}

	if prev := r.Register("actor-1", first); prev != nil {
		t.Errorf("expected no prior binding, got %v", prev)
	}
	prev := r.Register("actor-1", second)
	if prev != Channel(first) {
		t.Error("expected the superseded channel back")
	}
	if !first.isClosed() {
		t.Error("superseded channel must be closed")
	}
	if r.Lookup("actor-1") != Channel(second) {
		t.Error("binding should point at the new channel")
	}
}

func TestRegistry_UnregisterOnlyOwnBinding(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	stale := &stubChannel{}
	live := &stubChannel{}

	r.Register("actor-1", stale)
	r.Register("actor-1", live)

	// The stale connection's deferred cleanup fires after the reconnect.
	r.Unregister("actor-1", stale)
	if !r.Connected("actor-1") {
		t.Fatal("stale unregister tore down the live binding")
	}

	r.Unregister("actor-1", live)
	if r.Connected("actor-1") {
		t.Error("expected actor disconnected")
	}
}

func TestBroadcaster_DeliversToBoundActorOnly(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	b := NewBroadcaster(r, nil)
	ch := &stubChannel{}
	r.Register("actor-1", ch)

	b.Publish("actor-1", "ride-confirmed", nil)
	b.Publish("actor-2", "ride-confirmed", nil) // not connected, dropped

	if got := ch.sentEvents(); len(got) != 1 || got[0] != "ride-confirmed" {
		t.Errorf("expected one ride-confirmed, got %v", got)
	}
}

func TestBroadcaster_ClosedChannelCountsAsDisconnected(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	b := NewBroadcaster(r, nil)
	ch := &stubChannel{}
	r.Register("actor-1", ch)
	_ = ch.Close()

	// Must not panic or surface an error.
	b.Publish("actor-1", "ride-started", nil)

	if got := ch.sentEvents(); len(got) != 0 {
		t.Errorf("closed channel received events: %v", got)
	}
}

func TestBroadcaster_NoCrossDelivery(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	b := NewBroadcaster(r, nil)
	rider := &stubChannel{}
	driver := &stubChannel{}
	r.Register("rider-1", rider)
	r.Register("driver-1", driver)

	b.Publish("rider-1", "ride-confirmed", nil)

	if len(driver.sentEvents()) != 0 {
		t.Error("event leaked to another actor's channel")
	}
	if len(rider.sentEvents()) != 1 {
		t.Error("intended recipient missed the event")
	}
}
