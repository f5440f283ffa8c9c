package config

import (
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/turtacn/Vigil/pkg/consts"
	"github.com/turtacn/Vigil/pkg/errors"
)

// Snapshot is an immutable view of the monitor configuration.
// Reconfiguration builds a new Snapshot and publishes it through a Store.
type Snapshot struct {
	triggers       []string
	activeInterval time.Duration
	idleInterval   time.Duration
	companionPath  string
	companionArgs  []string
	workingDir     string
	processName    string
	stopGrace      time.Duration
}

// Options carries the fields of a Snapshot under construction.
type Options struct {
	Triggers             []string
	ActiveInterval       time.Duration
	IdleInterval         time.Duration
	CompanionPath        string
	CompanionArgs        []string
	CompanionWorkingDir  string
	CompanionProcessName string
	StopGracePeriod      time.Duration
}

// Default returns a snapshot with no triggers, no companion and default cadences.
func Default() *Snapshot {
	return &Snapshot{
		activeInterval: consts.DefaultActiveInterval,
		idleInterval:   consts.DefaultIdleInterval,
		stopGrace:      consts.DefaultStopGracePeriod,
	}
}

// NewSnapshot validates o and returns the snapshot it describes.
// Triggers are trimmed and de-duplicated case-insensitively, keeping first occurrence order.
func NewSnapshot(o Options) (*Snapshot, error) {
	if err := validateIntervals(o.ActiveInterval, o.IdleInterval); err != nil {
		return nil, err
	}
	if o.StopGracePeriod < 0 {
		return nil, errors.New(errors.ErrCodeConfigInvalid, "NewSnapshot", "stop grace period must not be negative", nil)
	}

	return &Snapshot{
		triggers:       normalizeTriggers(o.Triggers),
		activeInterval: o.ActiveInterval,
		idleInterval:   o.IdleInterval,
		companionPath:  strings.TrimSpace(o.CompanionPath),
		companionArgs:  slices.Clone(o.CompanionArgs),
		workingDir:     strings.TrimSpace(o.CompanionWorkingDir),
		processName:    strings.TrimSpace(o.CompanionProcessName),
		stopGrace:      o.StopGracePeriod,
	}, nil
}

func validateIntervals(active, idle time.Duration) error {
	if active < consts.MinInterval || idle < consts.MinInterval {
		return errors.New(errors.ErrCodeConfigInvalid, "Intervals",
			"poll intervals must be at least "+consts.MinInterval.String(), nil)
	}
	return nil
}

func normalizeTriggers(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

// WithIntervals returns a copy of s with only the poll intervals replaced.
func (s *Snapshot) WithIntervals(active, idle time.Duration) (*Snapshot, error) {
	if err := validateIntervals(active, idle); err != nil {
		return nil, err
	}
	next := *s
	next.activeInterval = active
	next.idleInterval = idle
	return &next, nil
}

// Triggers returns a copy of the trigger process names.
func (s *Snapshot) Triggers() []string { return slices.Clone(s.triggers) }

func (s *Snapshot) ActiveInterval() time.Duration { return s.activeInterval }
func (s *Snapshot) IdleInterval() time.Duration   { return s.idleInterval }

// Interval picks the poll cadence for the given companion state.
func (s *Snapshot) Interval(companionRunning bool) time.Duration {
	if companionRunning {
		return s.activeInterval
	}
	return s.idleInterval
}

func (s *Snapshot) CompanionPath() string          { return s.companionPath }
func (s *Snapshot) CompanionArgs() []string        { return slices.Clone(s.companionArgs) }
func (s *Snapshot) StopGracePeriod() time.Duration { return s.stopGrace }

// CompanionWorkingDir falls back to the directory holding the companion executable.
func (s *Snapshot) CompanionWorkingDir() string {
	if s.workingDir != "" || s.companionPath == "" {
		return s.workingDir
	}
	return filepath.Dir(s.companionPath)
}

// CompanionName is the executable name used to find the companion for stops.
func (s *Snapshot) CompanionName() string {
	if s.processName != "" || s.companionPath == "" {
		return s.processName
	}
	return filepath.Base(s.companionPath)
}

// Store holds the live snapshot. Readers always get a complete snapshot.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore publishes initial, or Default when initial is nil.
func NewStore(initial *Snapshot) *Store {
	if initial == nil {
		initial = Default()
	}
	s := &Store{}
	s.current.Store(initial)
	return s
}

func (s *Store) Load() *Snapshot { return s.current.Load() }

// Swap publishes next and returns the snapshot it replaced.
func (s *Store) Swap(next *Snapshot) *Snapshot {
	return s.current.Swap(next)
}

// UpdateIntervals replaces the interval fields of the live snapshot.
// A concurrent Swap is never overwritten with stale trigger or companion fields.
func (s *Store) UpdateIntervals(active, idle time.Duration) (*Snapshot, error) {
	for {
		old := s.current.Load()
		next, err := old.WithIntervals(active, idle)
		if err != nil {
			return nil, err
		}
		if s.current.CompareAndSwap(old, next) {
			return next, nil
		}
	}
}

// Personal.AI order the ending
