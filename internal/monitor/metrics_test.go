package monitor

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/Vigil/internal/events"
	"github.com/turtacn/Vigil/pkg/consts"
)

func TestMetrics_FedFromEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	bus := events.New()
	defer m.Attach(bus)()

	events.Publish(bus, events.TickEvent{Elapsed: time.Millisecond})
	events.Publish(bus, events.TickEvent{Paused: true})
	events.Publish(bus, events.CompanionLaunchFailedEvent{Reason: "spawn_failed"})
	events.Publish(bus, events.CompanionLaunchedEvent{Session: "s1"})
	events.Publish(bus, events.PauseChangedEvent{State: string(consts.PausePaused)})
	events.Publish(bus, events.ConfigReloadedEvent{Scope: "intervals"})

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.Ticks) == 2 &&
			testutil.ToFloat64(m.PausedTicks) == 1 &&
			testutil.ToFloat64(m.Launches.WithLabelValues("spawn_failed")) == 1 &&
			testutil.ToFloat64(m.Launches.WithLabelValues("ok")) == 1 &&
			testutil.ToFloat64(m.CompanionUp) == 1 &&
			testutil.ToFloat64(m.Paused) == 1 &&
			testutil.ToFloat64(m.Reloads.WithLabelValues("intervals")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	events.Publish(bus, events.CompanionStoppedEvent{Session: "s1", Result: "partial_timeout", Uptime: time.Minute})
	events.Publish(bus, events.PauseChangedEvent{State: string(consts.PauseActive)})

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.Stops.WithLabelValues("partial_timeout")) == 1 &&
			testutil.ToFloat64(m.CompanionUp) == 0 &&
			testutil.ToFloat64(m.Paused) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMetrics_DoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)
	assert.Panics(t, func() { NewMetrics(reg) })
}

func TestServe_ExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.Launches.WithLabelValues("ok").Inc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr, err := Serve(ctx, "127.0.0.1:0", reg)
	require.NoError(t, err)

	resp, err := http.Get("http://" + addr.String() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `vigil_companion_launches_total{result="ok"} 1`)
}

func TestServe_BadAddress(t *testing.T) {
	_, err := Serve(context.Background(), "not-an-address", prometheus.NewRegistry())
	assert.Error(t, err)
}
