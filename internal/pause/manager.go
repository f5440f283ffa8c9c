// Package pause implements the user-controlled pause window of the monitor.
//
// Expiry is lazy: a timed pause is only noticed as expired by the next
// IsPaused call, so the paused state is at most one poll interval stale.
package pause

import (
	"sync"
	"time"

	"github.com/turtacn/Vigil/pkg/consts"
	"github.com/turtacn/Vigil/pkg/fsm"
	"github.com/turtacn/Vigil/pkg/logger"
)

const (
	stateActive     = fsm.State(consts.PauseActive)
	statePaused     = fsm.State(consts.PausePaused)
	stateIndefinite = fsm.State(consts.PausePausedIndefinitely)

	evPause        fsm.Event = "pause"
	evPauseForever fsm.Event = "pause_indefinitely"
	evUnpause      fsm.Event = "unpause"
	evExpire       fsm.Event = "expire"
)

// Status is a point-in-time view of the pause window for display.
type Status struct {
	State consts.PauseState
	Until time.Time // zero unless State is PausePaused
}

// Paused reports whether monitoring is suspended.
func (s Status) Paused() bool { return s.State != consts.PauseActive }

// Manager owns the pause state. All transitions and the expiring read run
// under one mutex.
type Manager struct {
	mu       sync.Mutex
	machine  *fsm.StateMachine
	until    time.Time
	now      func() time.Time
	onChange func(Status)
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithObserver registers a callback invoked after every state change,
// including lazy expiry. It runs outside the manager's lock.
func WithObserver(fn func(Status)) Option {
	return func(m *Manager) { m.onChange = fn }
}

func New(opts ...Option) *Manager {
	m := &Manager{
		machine: fsm.New(stateActive),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.machine.AddTransition(fsm.Any, statePaused, evPause, nil)
	m.machine.AddTransition(fsm.Any, stateIndefinite, evPauseForever, nil)
	m.machine.AddTransition(fsm.Any, stateActive, evUnpause, nil)
	m.machine.AddTransition(statePaused, stateActive, evExpire, nil)
	return m
}

// Pause suspends monitoring for d from now. A non-positive d resumes instead.
func (m *Manager) Pause(d time.Duration) {
	if d <= 0 {
		m.Unpause()
		return
	}
	m.mu.Lock()
	m.until = m.now().Add(d)
	st := m.fire(evPause)
	m.mu.Unlock()

	logger.Log.Info("Monitoring paused", "duration", d, "until", st.Until)
	m.notify(st)
}

// PauseIndefinitely suspends monitoring until Unpause is called.
func (m *Manager) PauseIndefinitely() {
	m.mu.Lock()
	m.until = time.Time{}
	st := m.fire(evPauseForever)
	m.mu.Unlock()

	logger.Log.Info("Monitoring paused until resumed")
	m.notify(st)
}

// Unpause resumes monitoring from any state.
func (m *Manager) Unpause() {
	m.mu.Lock()
	m.until = time.Time{}
	st := m.fire(evUnpause)
	m.mu.Unlock()

	logger.Log.Info("Monitoring resumed")
	m.notify(st)
}

// IsPaused reports whether monitoring is suspended. A timed pause whose
// deadline has passed is moved to active by this call.
func (m *Manager) IsPaused() bool {
	m.mu.Lock()
	expired := false
	if m.machine.Is(statePaused) && !m.now().Before(m.until) {
		m.until = time.Time{}
		m.fire(evExpire)
		expired = true
	}
	st := m.statusLocked()
	m.mu.Unlock()

	if expired {
		logger.Log.Info("Pause window expired, monitoring resumed")
		m.notify(st)
	}
	return st.Paused()
}

// Status returns the current state, applying expiry first.
func (m *Manager) Status() Status {
	m.IsPaused()
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusLocked()
}

// fire applies ev; callers hold m.mu.
func (m *Manager) fire(ev fsm.Event) Status {
	// Pause events are valid from Any state and expire is only fired from Paused.
	_ = m.machine.Fire(ev)
	return m.statusLocked()
}

func (m *Manager) statusLocked() Status {
	return Status{State: consts.PauseState(m.machine.Current()), Until: m.until}
}

func (m *Manager) notify(st Status) {
	if m.onChange != nil {
		m.onChange(st)
	}
}

// Personal.AI order the ending
