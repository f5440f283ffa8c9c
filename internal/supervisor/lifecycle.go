package supervisor

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/turtacn/Vigil/pkg/errors"
	"github.com/turtacn/Vigil/pkg/logger"
)

const defaultExitPoll = 25 * time.Millisecond

// Lifecycle provides the process primitives the monitor needs: detect a
// process by executable name, launch a detached process, and hard-kill
// processes with a bounded wait for their exit.
type Lifecycle struct {
	table    Table
	exitPoll time.Duration
}

// Option configures a Lifecycle.
type Option func(*Lifecycle)

// WithTable replaces the OS process table.
func WithTable(t Table) Option {
	return func(l *Lifecycle) { l.table = t }
}

// WithExitPoll sets how often exit is re-checked while waiting out a grace period.
func WithExitPoll(d time.Duration) Option {
	return func(l *Lifecycle) { l.exitPoll = d }
}

// New creates a Lifecycle backed by the OS process table.
func New(opts ...Option) *Lifecycle {
	l := &Lifecycle{table: OSTable{}, exitPoll: defaultExitPoll}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// matchKey is the comparison form of an executable name: base name,
// extension stripped, lower case. "C:\Games\CS2.EXE" and "cs2" compare equal.
func matchKey(name string) string {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.ToLower(base)
}

// SameExecutable reports whether two executable names refer to the same program.
func SameExecutable(a, b string) bool {
	ka := matchKey(a)
	return ka != "" && ka != "." && ka == matchKey(b)
}

// FindByName returns every process whose executable name matches name.
// Processes that vanish, deny access or are zombies are skipped.
func (l *Lifecycle) FindByName(ctx context.Context, name string) ([]Proc, error) {
	procs, err := l.table.List(ctx)
	if err != nil {
		return nil, errors.New(errors.ErrCodeEnumeration, "FindByName", "cannot enumerate processes", err)
	}

	var matched []Proc
	for _, p := range procs {
		pname, err := p.Name(ctx)
		if err != nil {
			continue
		}
		if SameExecutable(pname, name) && p.Alive(ctx) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

// IsRunning reports whether any process matches name. Enumeration failures
// are logged and reported as not running.
func (l *Lifecycle) IsRunning(ctx context.Context, name string) bool {
	procs, err := l.FindByName(ctx, name)
	if err != nil {
		logger.Log.Warn("Supervisor: Process enumeration failed", "name", name, "err", err)
		return false
	}
	return len(procs) > 0
}

// Launch starts path with args in workingDir as a detached process with no
// console window and returns without waiting for it. The exit status is
// collected in the background so a killed child never lingers as a zombie.
func (l *Lifecycle) Launch(path string, args []string, workingDir string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New(errors.ErrCodeLaunchPathInvalid, "Launch", "executable path is empty", nil)
	}

	cmd := exec.Command(path, args...)
	cmd.Dir = workingDir
	cmd.SysProcAttr = detachedAttr()

	if err := cmd.Start(); err != nil {
		return errors.New(errors.ErrCodeSpawnFailed, "Launch", "cannot start "+path, err)
	}

	pid := cmd.Process.Pid
	logger.Log.Info("Supervisor: Launched process", "path", path, "args", args, "dir", workingDir, "pid", pid)

	go func() {
		err := cmd.Wait()
		logger.Log.Debug("Supervisor: Launched process exited", "pid", pid, "err", err)
	}()
	return nil
}

// StopByName kills every process matching name and waits up to grace for
// all of them to exit. Survivors are left running and reported with
// ErrCodeStopPartialTimeout; no second attempt is made.
func (l *Lifecycle) StopByName(ctx context.Context, name string, grace time.Duration) error {
	procs, err := l.FindByName(ctx, name)
	if err != nil {
		return err
	}
	if len(procs) == 0 {
		return errors.New(errors.ErrCodeStopNotFound, "StopByName", "no process named "+name, nil)
	}
	return l.stop(ctx, "StopByName", procs, grace)
}

// StopByID kills a single process and waits up to grace for it to exit.
// ErrCodeNoSuchProcess means it was already gone.
func (l *Lifecycle) StopByID(ctx context.Context, pid int, grace time.Duration) error {
	if pid <= 0 || pid > math.MaxInt32 {
		return errors.New(errors.ErrCodeNoSuchProcess, "StopByID", fmt.Sprintf("pid %d is not running", pid), nil)
	}
	p, ok, err := l.table.Find(ctx, int32(pid))
	if err != nil {
		return errors.New(errors.ErrCodeEnumeration, "StopByID", fmt.Sprintf("cannot look up pid %d", pid), err)
	}
	if !ok {
		return errors.New(errors.ErrCodeNoSuchProcess, "StopByID", fmt.Sprintf("pid %d is not running", pid), nil)
	}
	return l.stop(ctx, "StopByID", []Proc{p}, grace)
}

func (l *Lifecycle) stop(ctx context.Context, op string, procs []Proc, grace time.Duration) error {
	// 1. Kill everything first so the grace period runs for all of them at once
	for _, p := range procs {
		logger.Log.Info("Supervisor: Killing process", "pid", p.PID())
		if err := p.Kill(ctx); err != nil && p.Alive(ctx) {
			logger.Log.Warn("Supervisor: Kill failed", "pid", p.PID(), "err", err)
		}
	}

	// 2. Wait out the grace period
	alive := l.awaitExit(ctx, procs, grace)
	if len(alive) == 0 {
		return nil
	}

	pids := make([]int32, 0, len(alive))
	for _, p := range alive {
		pids = append(pids, p.PID())
	}
	logger.Log.Warn("Supervisor: Processes still alive after grace period", "pids", pids, "grace", grace)
	return errors.New(errors.ErrCodeStopPartialTimeout, op,
		fmt.Sprintf("%d of %d processes still alive after %s: %v", len(alive), len(procs), grace, pids), nil)
}

// awaitExit polls until every process has exited, grace elapses, or ctx ends.
// It returns the processes still alive.
func (l *Lifecycle) awaitExit(ctx context.Context, procs []Proc, grace time.Duration) []Proc {
	deadline := time.Now().Add(grace)
	pending := procs
	for {
		var still []Proc
		for _, p := range pending {
			if p.Alive(ctx) {
				still = append(still, p)
			}
		}
		pending = still
		if len(pending) == 0 || !time.Now().Before(deadline) {
			return pending
		}

		wait := min(l.exitPoll, time.Until(deadline))
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return pending
		case <-t.C:
		}
	}
}

// Personal.AI order the ending
