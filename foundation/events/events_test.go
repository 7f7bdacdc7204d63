package events_test

import (
	"testing"

	"github.com/flsschain/flss/foundation/events"
)

func TestPublishSubscribe(t *testing.T) {
	bus := events.New()

	var got []events.Event
	bus.Subscribe(func(event events.Event) {
		got = append(got, event)
	})

	bus.Publish(events.Event{Name: events.BlockCommitted, Data: 7})
	bus.Publish(events.Event{Name: events.MintCreated, Data: "GOLD"})

	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Name != events.BlockCommitted || got[0].Data != 7 {
		t.Errorf("unexpected first event: %+v", got[0])
	}
	if got[1].Name != events.MintCreated || got[1].Data != "GOLD" {
		t.Errorf("unexpected second event: %+v", got[1])
	}
}

func TestMultipleConsumers(t *testing.T) {
	bus := events.New()

	var a, b int
	bus.Subscribe(func(events.Event) { a++ })
	bus.Subscribe(func(events.Event) { b++ })

	bus.Publish(events.Event{Name: events.BlockCommitted})

	if a != 1 || b != 1 {
		t.Errorf("expected both consumers to see the event, got %d and %d", a, b)
	}
}

func TestPublishWithoutConsumers(t *testing.T) {
	bus := events.New()
	bus.Publish(events.Event{Name: events.BlockCommitted})
}
