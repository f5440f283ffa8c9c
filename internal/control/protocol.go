package control

import (
	"strings"
	"time"

	"github.com/turtacn/Vigil/pkg/errors"
)

// Commands accepted on the control socket.
const (
	CmdPause     = "pause"
	CmdUnpause   = "unpause"
	CmdStatus    = "status"
	CmdReload    = "reload"
	CmdIntervals = "intervals"
)

// Indefinite is the pause duration meaning "until unpaused".
const Indefinite = "indefinite"

// Request is one JSON-encoded command. Durations use time.ParseDuration syntax.
type Request struct {
	Command  string `json:"command"`
	Duration string `json:"duration,omitempty"`
	Active   string `json:"active,omitempty"`
	Idle     string `json:"idle,omitempty"`
}

// Response answers a Request. Status is set for every successful command.
type Response struct {
	OK     bool    `json:"ok"`
	Error  string  `json:"error,omitempty"`
	Status *Status `json:"status,omitempty"`
}

// Status is the daemon state reported to control clients.
type Status struct {
	Pause          string   `json:"pause"`
	PausedUntil    string   `json:"paused_until,omitempty"`
	Companion      string   `json:"companion"`
	Session        string   `json:"session,omitempty"`
	Triggers       []string `json:"triggers"`
	ActiveInterval string   `json:"active_interval"`
	IdleInterval   string   `json:"idle_interval"`
	CompanionPath  string   `json:"companion_path,omitempty"`
	ConfigPath     string   `json:"config_path,omitempty"`
}

// Handler executes control commands against the running daemon.
type Handler interface {
	Pause(d time.Duration)
	PauseIndefinitely()
	Unpause()
	Reload() error
	UpdateIntervals(active, idle time.Duration) error
	Status() Status
}

// ParsePauseDuration returns the pause length for s. Empty or "indefinite"
// yields indefinite=true.
func ParsePauseDuration(s string) (d time.Duration, indefinite bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, Indefinite) {
		return 0, true, nil
	}
	d, err = time.ParseDuration(s)
	if err != nil {
		return 0, false, errors.New(errors.ErrCodeControlRejected, "ParsePauseDuration", "invalid pause duration "+s, err)
	}
	if d <= 0 {
		return 0, false, errors.New(errors.ErrCodeControlRejected, "ParsePauseDuration", "pause duration must be positive", nil)
	}
	return d, false, nil
}

// Personal.AI order the ending
