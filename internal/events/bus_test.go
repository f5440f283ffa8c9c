package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_DeliversByType(t *testing.T) {
	bus := New()

	launched := make(chan CompanionLaunchedEvent, 1)
	paused := make(chan PauseChangedEvent, 1)
	defer Subscribe(bus, func(e CompanionLaunchedEvent) { launched <- e })()
	defer Subscribe(bus, func(e PauseChangedEvent) { paused <- e })()

	Publish(bus, CompanionLaunchedEvent{Session: "s1", Path: "/usr/bin/obs", Trigger: "game"})

	select {
	case e := <-launched:
		assert.Equal(t, "s1", e.Session)
		assert.Equal(t, "game", e.Trigger)
	case <-time.After(2 * time.Second):
		t.Fatal("launch event not delivered")
	}

	select {
	case e := <-paused:
		t.Fatalf("unexpected pause event %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	got := make(chan TickEvent, 4)
	unsub := Subscribe(bus, func(e TickEvent) { got <- e })

	Publish(bus, TickEvent{Paused: true})
	require.Eventually(t, func() bool { return len(got) == 1 }, 2*time.Second, 5*time.Millisecond)

	unsub()
	Publish(bus, TickEvent{Paused: false})
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, got, 1)
}

func TestBus_NilIsNoop(t *testing.T) {
	var bus *Bus
	Publish(bus, TickEvent{})
	Subscribe(bus, func(TickEvent) {})()
}

func TestEventTypesAreDistinct(t *testing.T) {
	evs := []Event{
		CompanionLaunchedEvent{}, CompanionLaunchFailedEvent{}, CompanionStoppedEvent{},
		PauseChangedEvent{}, ConfigReloadedEvent{}, TickEvent{},
	}
	seen := map[uint32]bool{}
	for _, e := range evs {
		assert.False(t, seen[e.Type()], "duplicate type %d", e.Type())
		seen[e.Type()] = true
	}
}
