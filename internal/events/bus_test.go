package events_test

import (
	"testing"
	"time"

	"github.com/openbias/biasd/internal/events"
	"github.com/openbias/biasd/internal/models"
)

func stateEvent(version string) events.Event {
	return events.Event{Kind: events.KindState, State: models.State{Info: models.Info{Version: version}}}
}

func TestBusSubscribePublish(t *testing.T) {
	bus := events.NewBus()
	ch := bus.Subscribe("test1")

	bus.Publish(stateEvent("test-1.0"))

	select {
	case got := <-ch:
		if got.State.Info.Version != "test-1.0" || got.Kind != events.KindState {
			t.Errorf("got %+v", got)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for event")
	}
}

func TestBusReplaysLastEvent(t *testing.T) {
	bus := events.NewBus()
	if _, ok := bus.Last(); ok {
		t.Fatal("Last() on empty bus reported an event")
	}
	bus.Publish(stateEvent("old"))
	bus.Publish(events.Event{Kind: events.KindOffline})

	ch := bus.Subscribe("late")
	select {
	case got := <-ch:
		if got.Kind != events.KindOffline {
			t.Errorf("replayed %q, want offline", got.Kind)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("late subscriber got no replay")
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := events.NewBus()
	ch := bus.Subscribe("test-unsub")

	bus.Unsubscribe("test-unsub")

	// Channel should be closed
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected channel to be closed after unsubscribe")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestBusResubscribeClosesOld(t *testing.T) {
	bus := events.NewBus()
	old := bus.Subscribe("dup")
	bus.Subscribe("dup")

	if _, ok := <-old; ok {
		t.Error("old channel still open after resubscribe")
	}
	if n := bus.SubscriberCount(); n != 1 {
		t.Errorf("expected 1 subscriber, got %d", n)
	}
}

func TestBusDropsEventsWhenFull(t *testing.T) {
	bus := events.NewBus()
	bus.Subscribe("slow-reader")

	// Publish many events without reading, should not block
	done := make(chan struct{})
	go func() {
		for i := 0; i < 20; i++ {
			bus.Publish(stateEvent("x"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Publish blocked for too long (should drop events)")
	}

	bus.Unsubscribe("slow-reader")
}

func TestBusSubscriberCount(t *testing.T) {
	bus := events.NewBus()
	if n := bus.SubscriberCount(); n != 0 {
		t.Errorf("expected 0 subscribers, got %d", n)
	}
	bus.Subscribe("s1")
	bus.Subscribe("s2")
	if n := bus.SubscriberCount(); n != 2 {
		t.Errorf("expected 2 subscribers, got %d", n)
	}
	bus.Unsubscribe("s1")
	if n := bus.SubscriberCount(); n != 1 {
		t.Errorf("expected 1 subscriber, got %d", n)
	}
}
