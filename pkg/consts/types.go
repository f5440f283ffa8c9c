package consts

import (
	"os"
	"path/filepath"
	"time"
)

// PauseState defines the state of the monitoring pause window.
type PauseState string

const (
	PauseActive             PauseState = "ACTIVE"              // Monitoring runs normally
	PausePaused             PauseState = "PAUSED"              // Paused until a deadline
	PausePausedIndefinitely PauseState = "PAUSED_INDEFINITELY" // Paused until explicitly resumed
)

// CompanionState is the monitor's belief about the companion process.
type CompanionState string

const (
	CompanionIdle    CompanionState = "IDLE"
	CompanionRunning CompanionState = "RUNNING"
)

// Polling and shutdown defaults
const (
	DefaultIdleInterval    = 15 * time.Second // Trigger scan cadence while the companion is down
	DefaultActiveInterval  = 5 * time.Second  // Trigger scan cadence while the companion is up
	DefaultStopGracePeriod = 5 * time.Second
	MinInterval            = time.Millisecond
	DefaultWatchDebounce   = 500 * time.Millisecond
	DefaultControlTimeout  = 3 * time.Second
)

// Environment overrides
const (
	EnvConfigPath    = "VIGIL_CONFIG"
	EnvControlSocket = "VIGIL_SOCKET"
)

// DefaultControlSocket returns the control socket path used when the config leaves it empty.
func DefaultControlSocket() string {
	return filepath.Join(os.TempDir(), "vigil.sock")
}

// DefaultLockFile returns the single-instance lock path used when the config leaves it empty.
func DefaultLockFile() string {
	return filepath.Join(os.TempDir(), "vigil.lock")
}

// Personal.AI order the ending
