package monitor

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/turtacn/Vigil/internal/events"
	"github.com/turtacn/Vigil/pkg/consts"
	"github.com/turtacn/Vigil/pkg/logger"
)

// Metrics holds the monitor's Prometheus collectors. They are fed from the
// event bus, so the monitor loop never touches them directly.
type Metrics struct {
	Ticks           prometheus.Counter
	PausedTicks     prometheus.Counter
	Launches        *prometheus.CounterVec
	Stops           *prometheus.CounterVec
	CompanionUp     prometheus.Gauge
	Paused          prometheus.Gauge
	Reloads         *prometheus.CounterVec
	SessionDuration prometheus.Histogram
	TickDuration    prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vigil_ticks_total",
			Help: "Total number of monitor ticks",
		}),
		PausedTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vigil_paused_ticks_total",
			Help: "Monitor ticks skipped because monitoring was paused",
		}),
		// Launches are partitioned by result: ok, path_invalid, spawn_failed.
		Launches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_companion_launches_total",
			Help: "Companion launch attempts",
		}, []string{"result"}),
		// Stops are partitioned by result: ok, not_found, partial_timeout, error.
		Stops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_companion_stops_total",
			Help: "Companion stop attempts",
		}, []string{"result"}),
		CompanionUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vigil_companion_up",
			Help: "1 while the monitor believes the companion is running",
		}),
		Paused: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vigil_paused",
			Help: "1 while monitoring is paused",
		}),
		Reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_config_reloads_total",
			Help: "Configuration replacements, by scope",
		}, []string{"scope"}),
		SessionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "vigil_companion_session_seconds",
			Help:    "Time between companion launch and stop",
			Buckets: prometheus.ExponentialBuckets(60, 2, 10),
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "vigil_tick_duration_seconds",
			Help:    "Time spent evaluating one tick, excluding the sleep",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}
	reg.MustRegister(m.Ticks, m.PausedTicks, m.Launches, m.Stops, m.CompanionUp,
		m.Paused, m.Reloads, m.SessionDuration, m.TickDuration)
	return m
}

// Attach subscribes the collectors to bus and returns a function that
// unsubscribes them.
func (m *Metrics) Attach(bus *events.Bus) func() {
	unsubs := []func(){
		events.Subscribe(bus, func(ev events.TickEvent) {
			m.Ticks.Inc()
			if ev.Paused {
				m.PausedTicks.Inc()
				return
			}
			m.TickDuration.Observe(ev.Elapsed.Seconds())
		}),
		events.Subscribe(bus, func(ev events.CompanionLaunchedEvent) {
			m.Launches.WithLabelValues("ok").Inc()
			m.CompanionUp.Set(1)
		}),
		events.Subscribe(bus, func(ev events.CompanionLaunchFailedEvent) {
			m.Launches.WithLabelValues(ev.Reason).Inc()
		}),
		events.Subscribe(bus, func(ev events.CompanionStoppedEvent) {
			m.Stops.WithLabelValues(ev.Result).Inc()
			m.CompanionUp.Set(0)
			if ev.Uptime > 0 {
				m.SessionDuration.Observe(ev.Uptime.Seconds())
			}
		}),
		events.Subscribe(bus, func(ev events.PauseChangedEvent) {
			if ev.State == string(consts.PauseActive) {
				m.Paused.Set(0)
			} else {
				m.Paused.Set(1)
			}
		}),
		events.Subscribe(bus, func(ev events.ConfigReloadedEvent) {
			m.Reloads.WithLabelValues(ev.Scope).Inc()
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// Serve exposes g on addr under /metrics until ctx is cancelled.
// It returns once the listener is bound; serving continues in the background.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Log.Info("Metrics server starting", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("Metrics server failed", "err", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	return ln.Addr(), nil
}

// Personal.AI order the ending
