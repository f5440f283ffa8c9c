// Package daemon wires the monitor engine to its configuration, control
// socket, metrics and OS signals.
package daemon

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/turtacn/Vigil/internal/config"
	"github.com/turtacn/Vigil/internal/control"
	"github.com/turtacn/Vigil/internal/events"
	"github.com/turtacn/Vigil/internal/monitor"
	"github.com/turtacn/Vigil/internal/orchestrator"
	"github.com/turtacn/Vigil/internal/pause"
	"github.com/turtacn/Vigil/internal/supervisor"
	"github.com/turtacn/Vigil/pkg/consts"
	"github.com/turtacn/Vigil/pkg/errors"
	"github.com/turtacn/Vigil/pkg/logger"
	"github.com/turtacn/Vigil/pkg/protocol"
)

// shutdownSlack is added to the stop grace period when bounding shutdown.
const shutdownSlack = 2 * time.Second

// Daemon owns every long-lived component of a running monitor.
type Daemon struct {
	configPath string
	cfg        *protocol.Config

	store    *config.Store
	bus      *events.Bus
	pause    *pause.Manager
	engine   *orchestrator.Engine
	registry *prometheus.Registry
	metrics  *monitor.Metrics

	reloadMu sync.Mutex

	mu        sync.RWMutex
	companion consts.CompanionState
	session   string
	changedAt time.Time
}

// Option configures a Daemon.
type Option func(*options)

type options struct {
	procs orchestrator.Lifecycle
}

// WithLifecycle replaces the OS process lifecycle.
func WithLifecycle(l orchestrator.Lifecycle) Option {
	return func(o *options) { o.procs = l }
}

// New loads configPath and builds the daemon. An empty configPath runs with
// defaults, which monitor nothing until a config is supplied.
func New(configPath string, opts ...Option) (*Daemon, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.procs == nil {
		o.procs = supervisor.New()
	}

	cfg := &protocol.Config{}
	snap := config.Default()
	if configPath != "" {
		var err error
		cfg, snap, err = config.Load(configPath)
		if err != nil {
			return nil, err
		}
	}

	d := &Daemon{
		configPath: configPath,
		cfg:        cfg,
		store:      config.NewStore(snap),
		bus:        events.New(),
		registry:   prometheus.NewRegistry(),
		companion:  consts.CompanionIdle,
	}
	d.pause = pause.New(pause.WithObserver(d.publishPause))
	d.engine = orchestrator.NewEngine(d.store, o.procs, d.pause, orchestrator.WithBus(d.bus))
	d.metrics = monitor.NewMetrics(d.registry)
	return d, nil
}

// SocketPath resolves the control socket: config, then $VIGIL_SOCKET, then
// the per-user default.
func SocketPath(cfg *protocol.Config) string {
	if cfg != nil && cfg.Control.SocketPath != "" {
		return cfg.Control.SocketPath
	}
	if p := os.Getenv(consts.EnvControlSocket); p != "" {
		return p
	}
	return consts.DefaultControlSocket()
}

// LockPath resolves the single-instance lock file.
func LockPath(cfg *protocol.Config) string {
	if cfg != nil && cfg.Control.LockFile != "" {
		return cfg.Control.LockFile
	}
	return consts.DefaultLockFile()
}

// Config returns the raw configuration the daemon was last loaded with.
func (d *Daemon) Config() *protocol.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

// Run starts every component and blocks until ctx is cancelled or SIGINT or
// SIGTERM arrives, then shuts the engine down and stops the companion.
func (d *Daemon) Run(ctx context.Context) error {
	cfg := d.Config()

	lock := flock.New(LockPath(cfg))
	locked, err := lock.TryLock()
	if err != nil {
		return errors.New(errors.ErrCodeAlreadyRunning, "Run", "cannot take lock "+lock.Path(), err)
	}
	if !locked {
		return errors.New(errors.ErrCodeAlreadyRunning, "Run", "another instance holds "+lock.Path(), nil)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Log.Warn("Daemon: Cannot release lock", "path", lock.Path(), "err", err)
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	defer d.trackCompanion()()
	defer d.metrics.Attach(d.bus)()

	if addr := cfg.Observability.MetricsAddr; addr != "" {
		if _, err := monitor.Serve(ctx, addr, d.registry); err != nil {
			logger.Log.Warn("Daemon: Metrics disabled", "addr", addr, "err", err)
		}
	}

	srv := control.NewServer(SocketPath(cfg), d, consts.DefaultControlTimeout)
	l, err := srv.PrepareSocket()
	if err != nil {
		return err
	}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.Serve(ctx, l); err != nil {
			logger.Log.Error("Daemon: Control server stopped", "err", err)
		}
	}()

	if d.configPath != "" {
		w := config.NewWatcher(d.configPath)
		w.OnReload(func(*config.Snapshot) {
			if err := d.Reload(); err != nil {
				logger.Log.Warn("Daemon: Watched reload rejected", "err", err)
			}
		})
		if err := w.Start(ctx); err != nil {
			logger.Log.Warn("Daemon: Config watcher disabled", "path", d.configPath, "err", err)
		} else {
			defer w.Stop()
		}
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				logger.Log.Info("Signal: SIGHUP received, reloading configuration")
				if err := d.Reload(); err != nil {
					logger.Log.Error("Daemon: Reload failed", "err", err)
				}
			}
		}
	}()

	engineErr := make(chan error, 1)
	go func() { engineErr <- d.engine.Run(ctx) }()

	logger.Log.Info("Daemon: Started", "config", d.configPath, "socket", SocketPath(cfg), "pid", os.Getpid())

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-engineErr:
	}

	logger.Log.Info("Daemon: Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), d.store.Load().StopGracePeriod()+shutdownSlack)
	defer cancel()
	if err := d.engine.Shutdown(shutdownCtx); err != nil {
		logger.Log.Warn("Daemon: Engine shutdown incomplete", "err", err)
	}
	stop()
	wg.Wait()
	return runErr
}

// Reload re-reads the config file and replaces the engine's snapshot.
// Control and observability settings take effect on restart only.
func (d *Daemon) Reload() error {
	d.reloadMu.Lock()
	defer d.reloadMu.Unlock()

	if d.configPath == "" {
		return errors.New(errors.ErrCodeConfigInvalid, "Reload", "daemon was started without a config file", nil)
	}
	cfg, snap, err := config.Load(d.configPath)
	if err != nil {
		return err
	}
	if err := d.engine.ReloadConfig(snap); err != nil {
		return err
	}
	d.mu.Lock()
	d.cfg = cfg
	d.mu.Unlock()
	return nil
}

func (d *Daemon) Pause(dur time.Duration) { d.pause.Pause(dur) }
func (d *Daemon) PauseIndefinitely()      { d.pause.PauseIndefinitely() }
func (d *Daemon) Unpause()                { d.pause.Unpause() }

func (d *Daemon) UpdateIntervals(active, idle time.Duration) error {
	return d.engine.UpdateIntervals(active, idle)
}

// Status reports pause state, the live snapshot and the companion state as
// last announced by the engine.
func (d *Daemon) Status() control.Status {
	ps := d.pause.Status()
	snap := d.engine.Snapshot()

	st := control.Status{
		Pause:          string(ps.State),
		Triggers:       snap.Triggers(),
		ActiveInterval: snap.ActiveInterval().String(),
		IdleInterval:   snap.IdleInterval().String(),
		CompanionPath:  snap.CompanionPath(),
		ConfigPath:     d.configPath,
	}
	if !ps.Until.IsZero() {
		st.PausedUntil = ps.Until.Format(time.RFC3339)
	}

	d.mu.RLock()
	st.Companion = string(d.companion)
	st.Session = d.session
	d.mu.RUnlock()
	return st
}

func (d *Daemon) publishPause(st pause.Status) {
	events.Publish(d.bus, events.PauseChangedEvent{
		State:     string(st.State),
		Until:     st.Until,
		Timestamp: time.Now(),
	})
}

// trackCompanion mirrors the engine's companion state for Status. Launch
// and stop events arrive on separate subscriptions, so the newest event by
// timestamp wins.
func (d *Daemon) trackCompanion() func() {
	unLaunched := events.Subscribe(d.bus, func(ev events.CompanionLaunchedEvent) {
		d.mu.Lock()
		defer d.mu.Unlock()
		if ev.Timestamp.After(d.changedAt) {
			d.companion = consts.CompanionRunning
			d.session = ev.Session
			d.changedAt = ev.Timestamp
		}
	})
	unStopped := events.Subscribe(d.bus, func(ev events.CompanionStoppedEvent) {
		d.mu.Lock()
		defer d.mu.Unlock()
		if ev.Timestamp.After(d.changedAt) {
			d.companion = consts.CompanionIdle
			d.session = ""
			d.changedAt = ev.Timestamp
		}
	})
	return func() {
		unLaunched()
		unStopped()
	}
}

// Personal.AI order the ending
