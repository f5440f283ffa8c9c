//go:build !windows

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vigilerrors "github.com/turtacn/Vigil/pkg/errors"
)

// uniqueSleep copies the sleep binary under a name no other process on the
// machine will have, so name-based stops only ever hit the test's children.
func uniqueSleep(t *testing.T) string {
	t.Helper()
	src, err := exec.LookPath("sleep")
	if err != nil {
		t.Skip("sleep not available")
	}
	src, err = filepath.EvalSymlinks(src)
	if err != nil || filepath.Base(src) != "sleep" {
		t.Skip("sleep is not a standalone binary")
	}
	data, err := os.ReadFile(src)
	require.NoError(t, err)

	name := fmt.Sprintf("vgl%d", time.Now().UnixNano()%1_000_000_000)
	dst := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(dst, data, 0o755))
	return dst
}

func TestLifecycle_LaunchDetectStop(t *testing.T) {
	bin := uniqueSleep(t)
	name := filepath.Base(bin)
	l := New(WithExitPoll(10 * time.Millisecond))
	ctx := context.Background()

	require.NoError(t, l.Launch(bin, []string{"30"}, filepath.Dir(bin)))
	require.NoError(t, l.Launch(bin, []string{"30"}, ""))
	t.Cleanup(func() { _ = l.StopByName(context.Background(), name, time.Second) })

	require.Eventually(t, func() bool {
		procs, err := l.FindByName(ctx, name)
		return err == nil && len(procs) == 2
	}, 5*time.Second, 20*time.Millisecond)
	assert.True(t, l.IsRunning(ctx, name))

	require.NoError(t, l.StopByName(ctx, name, 5*time.Second))
	assert.False(t, l.IsRunning(ctx, name))

	err := l.StopByName(ctx, name, time.Second)
	assert.True(t, errors.Is(err, vigilerrors.ErrNotFound))
}

func TestLifecycle_StopByID(t *testing.T) {
	bin := uniqueSleep(t)
	name := filepath.Base(bin)
	l := New(WithExitPoll(10 * time.Millisecond))
	ctx := context.Background()

	require.NoError(t, l.Launch(bin, []string{"30"}, ""))
	t.Cleanup(func() { _ = l.StopByName(context.Background(), name, time.Second) })

	var pid int32
	require.Eventually(t, func() bool {
		procs, err := l.FindByName(ctx, name)
		if err != nil || len(procs) != 1 {
			return false
		}
		pid = procs[0].PID()
		return true
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, l.StopByID(ctx, int(pid), 5*time.Second))
	assert.False(t, l.IsRunning(ctx, name))
}
