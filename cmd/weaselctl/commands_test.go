package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weasel/internal/deployer"
	"weasel/internal/echo"
	"weasel/internal/ime"
	"weasel/internal/ipc"
	"weasel/internal/logging"
	"weasel/internal/store"
)

type env struct {
	configPath string
	userDir    string
	shared     string
	journal    string
	srv        *ipc.Server
}

func newEnv(t *testing.T, serve bool) *env {
	t.Helper()
	dir, err := os.MkdirTemp("", "weaselctl")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	e := &env{
		configPath: filepath.Join(dir, "weaseld.toml"),
		userDir:    filepath.Join(dir, "user"),
		shared:     filepath.Join(dir, "shared"),
		journal:    filepath.Join(dir, "journal.db"),
	}
	require.NoError(t, os.MkdirAll(e.userDir, 0o755))
	require.NoError(t, os.MkdirAll(e.shared, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(e.shared, "weasel.yaml"),
		[]byte("echo:\n  candidates:\n    ni: [你]\n"), 0o644))

	socket := filepath.Join(dir, "s.sock")
	toml := fmt.Sprintf("socket_path = %q\nshared_data_dir = %q\nuser_data_dir = %q\n\n[journal]\nenabled = true\npath = %q\n",
		socket, e.shared, e.userDir, e.journal)
	require.NoError(t, os.WriteFile(e.configPath, []byte(toml), 0o644))

	if !serve {
		return e
	}

	logger, err := logging.New(&logging.Config{Level: logging.LevelError, Writer: &bytes.Buffer{}})
	require.NoError(t, err)
	journal, err := store.Open(e.journal, logger.Logger)
	require.NoError(t, err)
	t.Cleanup(func() { journal.Close() })

	engine := echo.New(echo.Options{
		Logger: logger.Logger,
		OnDeployed: func() {
			e.srv.Post(func(b *ime.Bridge) { b.EndMaintenance() })
		},
	})
	bridge := ime.New(ime.Options{
		Engine:   engine,
		Probe:    deployer.NewProbe(e.userDir),
		Traits:   ime.Traits{SharedDataDir: e.shared, UserDataDir: e.userDir},
		Logger:   logger.Logger,
		Observer: journal,
	})
	cfg := ipc.DefaultServerConfig(socket)
	cfg.Logger = logger
	e.srv = ipc.NewServer(cfg, bridge)
	require.NoError(t, e.srv.Do(func(b *ime.Bridge) { b.Initialize() }))
	require.NoError(t, e.srv.Start())
	t.Cleanup(func() { e.srv.Stop() })
	return e
}

func (e *env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("WEASEL_SOCKET", "")
	t.Setenv("WEASEL_USER_DATA_DIR", "")
	t.Setenv("WEASEL_SHARED_DATA_DIR", "")

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestPing(t *testing.T) {
	e := newEnv(t, true)
	out, err := e.run(t, "ping")
	require.NoError(t, err)
	assert.Contains(t, out, "weaseld is running")
}

func TestPingNoServer(t *testing.T) {
	e := newEnv(t, false)
	_, err := e.run(t, "ping")
	assert.Error(t, err)
}

func TestTypeAndSessions(t *testing.T) {
	e := newEnv(t, true)

	out, err := e.run(t, "type", "--app", "gedit", "n", "i", "space")
	require.NoError(t, err)
	assert.Contains(t, out, `preedit="ni"`)
	assert.Contains(t, out, `commit="你"`)

	out, err = e.run(t, "--format", "json", "type", "x", "Escape")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	var last typeResult
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &last))
	assert.True(t, last.Handled)

	out, err = e.run(t, "sessions")
	require.NoError(t, err)
	assert.Contains(t, out, "gedit")
	assert.Contains(t, out, "weaselctl")

	out, err = e.run(t, "sessions", "--maintenance", "--format", "json")
	require.NoError(t, err)
	var recs []store.MaintenanceRecord
	require.NoError(t, json.Unmarshal([]byte(out), &recs))
	assert.NotEmpty(t, recs)
}

func TestTypeRejectsUnknownKey(t *testing.T) {
	e := newEnv(t, true)
	_, err := e.run(t, "type", "nosuchkey")
	assert.ErrorContains(t, err, "unknown key")
}

func TestMaintenance(t *testing.T) {
	e := newEnv(t, true)
	disabled := func() bool {
		var d bool
		require.NoError(t, e.srv.Do(func(b *ime.Bridge) { d = b.Disabled() }))
		return d
	}

	_, err := e.run(t, "maintenance", "start")
	require.NoError(t, err)
	assert.True(t, disabled())

	_, err = e.run(t, "maintenance", "end")
	require.NoError(t, err)
	assert.False(t, disabled())
}

func TestDeploy(t *testing.T) {
	e := newEnv(t, true)
	out, err := e.run(t, "deploy")
	require.NoError(t, err)
	assert.Contains(t, out, "deployed")

	require.NoError(t, os.WriteFile(filepath.Join(e.userDir, "weasel.yaml"),
		[]byte("style:\n  font_point: 0\n"), 0o644))
	_, err = e.run(t, "deploy")
	assert.Error(t, err)

	// The changed user config triggers one more engine deployment.
	assert.Eventually(t, func() bool {
		var disabled bool
		e.srv.Do(func(b *ime.Bridge) { disabled = b.Disabled() })
		return !disabled
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDeployWhileLocked(t *testing.T) {
	e := newEnv(t, false)
	lock, err := deployer.Acquire(e.userDir)
	require.NoError(t, err)
	defer lock.Release()

	_, err = e.run(t, "deploy")
	assert.ErrorIs(t, err, deployer.ErrDeployerRunning)
}

func TestValidate(t *testing.T) {
	e := newEnv(t, false)
	good := filepath.Join(e.userDir, "good.yaml")
	bad := filepath.Join(e.userDir, "bad.yaml")
	require.NoError(t, os.WriteFile(good, []byte("style:\n  horizontal: true\n"), 0o644))
	require.NoError(t, os.WriteFile(bad, []byte("style:\n  horizontal: maybe\n"), 0o644))

	out, err := e.run(t, "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "ok")

	_, err = e.run(t, "validate", bad)
	assert.Error(t, err)
}

func TestInvalidFormat(t *testing.T) {
	e := newEnv(t, false)
	_, err := e.run(t, "--format", "xml", "ping")
	assert.ErrorContains(t, err, "invalid format")
}
