package events

import (
	"sync"
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	sub := bus.Subscribe()
	bus.Publish(EventTypePromptCreated, "prompt-1", map[string]interface{}{"title": "Router"})

	select {
	case event := <-sub.Channel:
		if event.Type != EventTypePromptCreated {
			t.Errorf("expected %s, got %s", EventTypePromptCreated, event.Type)
		}
		if event.PromptID != "prompt-1" {
			t.Errorf("expected prompt-1, got %s", event.PromptID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestUnsubscribeSignalsDone(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	sub := bus.Subscribe()

	select {
	case <-sub.Done():
		t.Fatal("Done signalled before unsubscribe")
	default:
	}

	bus.Unsubscribe(sub.ID)

	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Done after unsubscribe")
	}

	// Publishing after unsubscribe must not panic.
	bus.Publish(EventTypePromptDeleted, "prompt-1", nil)
}

func TestCloseSignalsDone(t *testing.T) {
	bus := NewBus()

	sub := bus.Subscribe()
	bus.Close()

	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Done after close")
	}
}

// Unsubscribing while a publish is fanning out must never panic: the
// fan-out sends to a snapshot of subscribers that may already have been
// removed.
func TestConcurrentPublishUnsubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 10000; i++ {
			bus.Publish(EventTypePromptUpdated, "prompt-1", nil)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 10000; i++ {
			sub := bus.Subscribe()
			bus.Unsubscribe(sub.ID)
		}
	}()

	wg.Wait()
}

func TestSlowSubscriberDropsEvents(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	sub := bus.Subscribe()
	for i := 0; i < 200; i++ {
		bus.Publish(EventTypePromptUpdated, "prompt-1", nil)
	}

	// The channel buffer is 64; everything beyond that is dropped, and
	// no publish blocked.
	if got := len(sub.Channel); got != 64 {
		t.Errorf("expected 64 buffered events, got %d", got)
	}
}

func TestRecent(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	bus.Publish(EventTypePromptCreated, "a", nil)
	bus.Publish(EventTypePromptUpdated, "b", nil)
	bus.Publish(EventTypePromptDeleted, "c", nil)

	recent := bus.Recent(2)
	if len(recent) != 2 {
		t.Fatalf("expected 2 events, got %d", len(recent))
	}
	if recent[0].PromptID != "b" || recent[1].PromptID != "c" {
		t.Errorf("expected oldest-first [b c], got [%s %s]", recent[0].PromptID, recent[1].PromptID)
	}

	all := bus.Recent(0)
	if len(all) != 3 {
		t.Fatalf("expected 3 events, got %d", len(all))
	}
}
