package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/Vigil/internal/control"
	"github.com/turtacn/Vigil/pkg/errors"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfgFile, socketPath, jsonOutput, activeFlag, idleFlag = "", "", false, "", ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

type stubHandler struct {
	mu     sync.Mutex
	paused string
}

func (h *stubHandler) set(v string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.paused = v
}

func (h *stubHandler) get() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.paused
}

func (h *stubHandler) Pause(d time.Duration) { h.set(d.String()) }
func (h *stubHandler) PauseIndefinitely()    { h.set("indefinite") }
func (h *stubHandler) Unpause()              { h.set("") }
func (h *stubHandler) Reload() error         { return nil }

func (h *stubHandler) UpdateIntervals(active, idle time.Duration) error { return nil }

func (h *stubHandler) Status() control.Status {
	st := control.Status{
		Pause:          "ACTIVE",
		Companion:      "IDLE",
		Triggers:       []string{"cs2.exe"},
		ActiveInterval: "5s",
		IdleInterval:   "15s",
	}
	if h.get() != "" {
		st.Pause = "PAUSED"
	}
	return st
}

func startStub(t *testing.T, h control.Handler) string {
	t.Helper()
	sock := filepath.Join(t.TempDir(), "cli.sock")
	srv := control.NewServer(sock, h, time.Second)
	l, err := srv.PrepareSocket()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx, l)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return sock
}

func TestCommands(t *testing.T) {
	assert.Equal(t, "vigil", rootCmd.Name())

	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"start", "pause", "unpause", "status", "reload", "intervals", "validate"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestStatusAndPause(t *testing.T) {
	h := &stubHandler{}
	sock := startStub(t, h)

	out, err := run(t, "status", "--socket", sock)
	require.NoError(t, err)
	assert.Contains(t, out, "monitor:   ACTIVE")
	assert.Contains(t, out, "triggers:  cs2.exe")
	assert.Contains(t, out, "path:      (none)")

	out, err = run(t, "pause", "1m", "--socket", sock)
	require.NoError(t, err)
	assert.Contains(t, out, "PAUSED")
	assert.Equal(t, "1m0s", h.get())

	_, err = run(t, "pause", "--socket", sock)
	require.NoError(t, err)
	assert.Equal(t, "indefinite", h.get())

	out, err = run(t, "unpause", "--socket", sock, "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"ok": true`)
}

func TestPauseRejectsBadDuration(t *testing.T) {
	_, err := run(t, "pause", "forever-ish", "--socket", filepath.Join(t.TempDir(), "none.sock"))
	assert.ErrorIs(t, err, errors.ErrControlRejected)
}

func TestIntervalsRequiresFlag(t *testing.T) {
	_, err := run(t, "intervals", "--socket", filepath.Join(t.TempDir(), "none.sock"))
	assert.Error(t, err)
}

func TestStatusWithoutDaemon(t *testing.T) {
	_, err := run(t, "status", "--socket", filepath.Join(t.TempDir(), "none.sock"))
	assert.ErrorIs(t, err, errors.ErrControlUnavailable)
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "vigil.yaml")
	require.NoError(t, os.WriteFile(good, []byte(`
monitor:
  triggers: ["cs2.exe", "CS2.EXE", "game"]
  idle_interval: 15000
companion:
  path: /usr/bin/obs
`), 0o600))

	out, err := run(t, "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "triggers:        cs2.exe, game")
	assert.Contains(t, out, "idle interval:   15s")
	assert.Contains(t, out, "active interval: 5s")
	assert.Contains(t, out, "companion:       /usr/bin/obs")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("monitor:\n  active_interval: 0\n"), 0o600))
	_, err = run(t, "validate", "-c", bad)
	assert.ErrorIs(t, err, errors.ErrConfigInvalid)
}
