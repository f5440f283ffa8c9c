package events

import "time"

// Event type constants for kelindar/event.
const (
	TypeCompanionLaunched uint32 = iota + 1
	TypeCompanionLaunchFailed
	TypeCompanionStopped
	TypePauseChanged
	TypeConfigReloaded
	TypeTick
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// CompanionLaunchedEvent is published after the companion process was started.
type CompanionLaunchedEvent struct {
	Session   string    `json:"session"`
	Path      string    `json:"path"`
	Trigger   string    `json:"trigger"`
	Timestamp time.Time `json:"timestamp"`
}

// Type returns the event type identifier for CompanionLaunchedEvent.
func (e CompanionLaunchedEvent) Type() uint32 { return TypeCompanionLaunched }

// CompanionLaunchFailedEvent is published when a launch attempt fails.
// Reason is "path_invalid" or "spawn_failed".
type CompanionLaunchFailedEvent struct {
	Path      string    `json:"path"`
	Reason    string    `json:"reason"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// Type returns the event type identifier for CompanionLaunchFailedEvent.
func (e CompanionLaunchFailedEvent) Type() uint32 { return TypeCompanionLaunchFailed }

// CompanionStoppedEvent is published after a stop attempt, successful or not.
// Result is "ok", "not_found", "partial_timeout" or "error".
type CompanionStoppedEvent struct {
	Session   string        `json:"session"`
	Name      string        `json:"name"`
	Result    string        `json:"result"`
	Uptime    time.Duration `json:"uptime"`
	Shutdown  bool          `json:"shutdown"`
	Timestamp time.Time     `json:"timestamp"`
}

// Type returns the event type identifier for CompanionStoppedEvent.
func (e CompanionStoppedEvent) Type() uint32 { return TypeCompanionStopped }

// PauseChangedEvent is published on every pause state transition, including expiry.
type PauseChangedEvent struct {
	State     string    `json:"state"`
	Until     time.Time `json:"until,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Type returns the event type identifier for PauseChangedEvent.
func (e PauseChangedEvent) Type() uint32 { return TypePauseChanged }

// ConfigReloadedEvent is published when the live snapshot is replaced.
// Scope is "full" or "intervals".
type ConfigReloadedEvent struct {
	Scope          string        `json:"scope"`
	Triggers       int           `json:"triggers"`
	ActiveInterval time.Duration `json:"active_interval"`
	IdleInterval   time.Duration `json:"idle_interval"`
	Timestamp      time.Time     `json:"timestamp"`
}

// Type returns the event type identifier for ConfigReloadedEvent.
func (e ConfigReloadedEvent) Type() uint32 { return TypeConfigReloaded }

// TickEvent is published at the end of every monitor tick.
type TickEvent struct {
	Paused         bool          `json:"paused"`
	TriggerRunning bool          `json:"trigger_running"`
	Elapsed        time.Duration `json:"elapsed"`
	NextWait       time.Duration `json:"next_wait"`
}

// Type returns the event type identifier for TickEvent.
func (e TickEvent) Type() uint32 { return TypeTick }

// Personal.AI order the ending
