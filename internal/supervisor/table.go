package supervisor

import (
	"context"
	"errors"
	"slices"

	"github.com/shirou/gopsutil/v4/process"
)

// Proc is one entry of the OS process table.
type Proc interface {
	PID() int32
	Name(ctx context.Context) (string, error)
	Kill(ctx context.Context) error
	// Alive reports whether the process still exists and is not a zombie.
	Alive(ctx context.Context) bool
}

// Table enumerates and looks up OS processes.
type Table interface {
	List(ctx context.Context) ([]Proc, error)
	// Find returns ok=false when no process has the given pid.
	Find(ctx context.Context, pid int32) (p Proc, ok bool, err error)
}

// OSTable is the gopsutil-backed process table. It holds no OS handles
// between calls; gopsutil opens and closes them per query.
type OSTable struct{}

func (OSTable) List(ctx context.Context) ([]Proc, error) {
	ps, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Proc, 0, len(ps))
	for _, p := range ps {
		out = append(out, osProc{p: p})
	}
	return out, nil
}

func (OSTable) Find(ctx context.Context, pid int32) (Proc, bool, error) {
	exists, err := process.PidExistsWithContext(ctx, pid)
	if err != nil {
		return nil, false, err
	}
	if !exists {
		return nil, false, nil
	}
	p, err := process.NewProcessWithContext(ctx, pid)
	if errors.Is(err, process.ErrorProcessNotRunning) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return osProc{p: p}, true, nil
}

type osProc struct {
	p *process.Process
}

func (o osProc) PID() int32                               { return o.p.Pid }
func (o osProc) Name(ctx context.Context) (string, error) { return o.p.NameWithContext(ctx) }
func (o osProc) Kill(ctx context.Context) error           { return o.p.KillWithContext(ctx) }

func (o osProc) Alive(ctx context.Context) bool {
	exists, err := process.PidExistsWithContext(ctx, o.p.Pid)
	if err != nil {
		// Unknown; keep waiting rather than report a false exit.
		return true
	}
	if !exists {
		return false
	}
	status, err := o.p.StatusWithContext(ctx)
	if err == nil && slices.Contains(status, process.Zombie) {
		return false
	}
	return true
}

// Personal.AI order the ending
