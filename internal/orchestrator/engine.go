package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/Vigil/internal/config"
	"github.com/turtacn/Vigil/internal/events"
	"github.com/turtacn/Vigil/pkg/consts"
	"github.com/turtacn/Vigil/pkg/errors"
	"github.com/turtacn/Vigil/pkg/fsm"
	"github.com/turtacn/Vigil/pkg/logger"
)

// Lifecycle is the subset of supervisor.Lifecycle the engine drives.
type Lifecycle interface {
	IsRunning(ctx context.Context, name string) bool
	Launch(path string, args []string, workingDir string) error
	StopByName(ctx context.Context, name string, grace time.Duration) error
}

// PauseGate reports whether monitoring is suspended.
type PauseGate interface {
	IsPaused() bool
}

const (
	stateIdle    = fsm.State(consts.CompanionIdle)
	stateRunning = fsm.State(consts.CompanionRunning)

	evLaunched fsm.Event = "launched"
	evStopped  fsm.Event = "stopped"
)

// Engine is the monitor loop. It polls the trigger processes of the current
// config snapshot and starts or stops the companion in response.
//
// The companion state machine and the session fields are owned by the loop
// goroutine; other goroutines only reach the engine through the pause gate,
// the config store and the methods below.
type Engine struct {
	store *config.Store
	procs Lifecycle
	pause PauseGate
	bus   *events.Bus

	machine    *fsm.StateMachine
	session    string
	launchedAt time.Time
	stopName   string
	warnedFor  *config.Snapshot

	mu       sync.Mutex
	started  bool
	shutdown bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// Option configures an Engine.
type Option func(*Engine)

// WithBus publishes engine events on bus.
func WithBus(bus *events.Bus) Option {
	return func(e *Engine) { e.bus = bus }
}

// NewEngine creates an engine reading its configuration from store.
func NewEngine(store *config.Store, procs Lifecycle, pause PauseGate, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		procs:   procs,
		pause:   pause,
		machine: fsm.New(stateIdle),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.setupFSM()
	return e
}

func (e *Engine) setupFSM() {
	e.machine.AddTransition(stateIdle, stateRunning, evLaunched, e.onLaunched)
	e.machine.AddTransition(stateRunning, stateIdle, evStopped, e.onStopped)
	e.machine.OnTransition(func(from, to fsm.State, ev fsm.Event) {
		logger.Log.Debug("Engine: Companion state changed", "from", from, "to", to, "event", ev)
	})
}

// onLaunched announces a launch. The event travels as the transition argument.
func (e *Engine) onLaunched(_ fsm.Event, args ...interface{}) error {
	ev, ok := transitionArg[events.CompanionLaunchedEvent](args)
	if !ok {
		return errors.New(errors.ErrCodeUnknown, "onLaunched", "missing launch event", nil)
	}
	logger.Log.Info("Engine: Companion running", "session", ev.Session, "trigger", ev.Trigger)
	events.Publish(e.bus, ev)
	return nil
}

// onStopped announces a stop. The event travels as the transition argument.
func (e *Engine) onStopped(_ fsm.Event, args ...interface{}) error {
	ev, ok := transitionArg[events.CompanionStoppedEvent](args)
	if !ok {
		return errors.New(errors.ErrCodeUnknown, "onStopped", "missing stop event", nil)
	}
	logger.Log.Info("Engine: Companion stopped", "session", ev.Session, "result", ev.Result, "uptime", ev.Uptime)
	events.Publish(e.bus, ev)
	return nil
}

func transitionArg[T any](args []interface{}) (T, bool) {
	var zero T
	if len(args) != 1 {
		return zero, false
	}
	v, ok := args[0].(T)
	return v, ok
}

func (e *Engine) companionRunning() bool {
	return e.machine.Is(stateRunning)
}

// Snapshot returns the live configuration.
func (e *Engine) Snapshot() *config.Snapshot {
	return e.store.Load()
}

// Run executes the monitor loop until ctx is cancelled or Shutdown is
// called. It may only be called once per engine.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return errors.New(errors.ErrCodeAlreadyRunning, "Run", "monitor loop already started", nil)
	}
	if e.shutdown {
		e.mu.Unlock()
		logger.Log.Info("Engine: Already shut down, monitor loop not started")
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	e.started = true
	e.cancel = cancel
	e.done = make(chan struct{})
	done := e.done
	e.mu.Unlock()

	defer close(done)
	defer cancel()

	snap := e.store.Load()
	logger.Log.Info("Engine: Monitor loop started",
		"triggers", snap.Triggers(),
		"active_interval", snap.ActiveInterval(),
		"idle_interval", snap.IdleInterval())

	for {
		if ctx.Err() != nil {
			break
		}
		wait := e.Tick(ctx)
		if !sleep(ctx, wait) {
			break
		}
	}

	logger.Log.Info("Engine: Monitor loop stopped")
	return nil
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Tick runs one poll-decide step and returns how long to sleep before the
// next one. The wait is taken from the snapshot current at return time.
func (e *Engine) Tick(ctx context.Context) time.Duration {
	start := time.Now()

	if e.pause.IsPaused() {
		wait := e.store.Load().Interval(e.companionRunning())
		logger.Log.Debug("Engine: Paused, skipping evaluation", "next_wait", wait)
		events.Publish(e.bus, events.TickEvent{Paused: true, Elapsed: time.Since(start), NextWait: wait})
		return wait
	}

	snap := e.store.Load()
	trigger, found := e.findTrigger(ctx, snap)

	switch running := e.companionRunning(); {
	case !running && found:
		e.launch(snap, trigger)
	case running && !found:
		e.stop(ctx, snap, false)
	}

	wait := e.store.Load().Interval(e.companionRunning())
	events.Publish(e.bus, events.TickEvent{
		TriggerRunning: found,
		Elapsed:        time.Since(start),
		NextWait:       wait,
	})
	return wait
}

// findTrigger returns the first trigger found running.
func (e *Engine) findTrigger(ctx context.Context, snap *config.Snapshot) (string, bool) {
	for _, name := range snap.Triggers() {
		if e.procs.IsRunning(ctx, name) {
			return name, true
		}
	}
	return "", false
}

func (e *Engine) launch(snap *config.Snapshot, trigger string) {
	path := snap.CompanionPath()
	if path == "" {
		if e.warnedFor != snap {
			e.warnedFor = snap
			logger.Log.Warn("Engine: Trigger running but no companion path configured", "trigger", trigger)
		}
		return
	}

	logger.Log.Info("Engine: Trigger detected, launching companion", "trigger", trigger, "path", path)
	if err := e.procs.Launch(path, snap.CompanionArgs(), snap.CompanionWorkingDir()); err != nil {
		reason := "spawn_failed"
		if errors.CodeOf(err) == errors.ErrCodeLaunchPathInvalid {
			reason = "path_invalid"
		}
		logger.Log.Error("Engine: Companion launch failed, retrying next tick", "path", path, "err", err)
		events.Publish(e.bus, events.CompanionLaunchFailedEvent{
			Path:      path,
			Reason:    reason,
			Error:     err.Error(),
			Timestamp: time.Now(),
		})
		return
	}

	e.session = uuid.NewString()
	e.launchedAt = time.Now()
	e.stopName = snap.CompanionName()
	if err := e.machine.Fire(evLaunched, events.CompanionLaunchedEvent{
		Session:   e.session,
		Path:      path,
		Trigger:   trigger,
		Timestamp: e.launchedAt,
	}); err != nil {
		logger.Log.Error("Engine: Launch transition failed", "err", err)
	}
}

// stop kills the companion by name. The engine considers it stopped
// whatever the outcome, so a companion that ignores the kill can never
// block future launches.
func (e *Engine) stop(ctx context.Context, snap *config.Snapshot, shutdown bool) {
	name := e.stopName
	if name == "" {
		name = snap.CompanionName()
	}

	logger.Log.Info("Engine: Stopping companion", "name", name, "session", e.session, "shutdown", shutdown)
	err := e.procs.StopByName(ctx, name, snap.StopGracePeriod())

	result := "ok"
	switch {
	case err == nil:
	case errors.CodeOf(err) == errors.ErrCodeStopNotFound:
		result = "not_found"
		logger.Log.Info("Engine: Companion was not running", "name", name)
	case errors.CodeOf(err) == errors.ErrCodeStopPartialTimeout:
		result = "partial_timeout"
		logger.Log.Warn("Engine: Companion did not exit within grace period", "name", name, "err", err)
	default:
		result = "error"
		logger.Log.Error("Engine: Companion stop failed", "name", name, "err", err)
	}

	ev := events.CompanionStoppedEvent{
		Session:   e.session,
		Name:      name,
		Result:    result,
		Uptime:    time.Since(e.launchedAt),
		Shutdown:  shutdown,
		Timestamp: time.Now(),
	}
	e.session = ""
	e.launchedAt = time.Time{}
	e.stopName = ""
	if err := e.machine.Fire(evStopped, ev); err != nil {
		logger.Log.Error("Engine: Stop transition failed", "err", err)
	}
}

// UpdateIntervals replaces only the poll intervals of the live snapshot.
func (e *Engine) UpdateIntervals(active, idle time.Duration) error {
	snap, err := e.store.UpdateIntervals(active, idle)
	if err != nil {
		return err
	}
	logger.Log.Info("Engine: Poll intervals updated", "active_interval", active, "idle_interval", idle)
	events.Publish(e.bus, events.ConfigReloadedEvent{
		Scope:          "intervals",
		Triggers:       len(snap.Triggers()),
		ActiveInterval: snap.ActiveInterval(),
		IdleInterval:   snap.IdleInterval(),
		Timestamp:      time.Now(),
	})
	return nil
}

// ReloadConfig replaces the whole live snapshot. The tick in progress keeps
// the snapshot it already read.
func (e *Engine) ReloadConfig(snap *config.Snapshot) error {
	if snap == nil {
		return errors.New(errors.ErrCodeConfigInvalid, "ReloadConfig", "snapshot is nil", nil)
	}
	e.store.Swap(snap)
	logger.Log.Info("Engine: Configuration reloaded",
		"triggers", snap.Triggers(),
		"active_interval", snap.ActiveInterval(),
		"idle_interval", snap.IdleInterval(),
		"companion", snap.CompanionPath())
	events.Publish(e.bus, events.ConfigReloadedEvent{
		Scope:          "full",
		Triggers:       len(snap.Triggers()),
		ActiveInterval: snap.ActiveInterval(),
		IdleInterval:   snap.IdleInterval(),
		Timestamp:      time.Now(),
	})
	return nil
}

// Shutdown stops the loop, waits for it to exit, then kills the companion
// if the loop left it running. It returns ctx.Err() if the loop does not
// exit in time. A Run call after Shutdown returns without ticking.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.shutdown = true
	cancel, done := e.cancel, e.done
	e.mu.Unlock()

	if cancel != nil {
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	// The loop has exited, so its state is ours now.
	if e.companionRunning() {
		e.stop(ctx, e.store.Load(), true)
	}
	return nil
}

// Personal.AI order the ending
