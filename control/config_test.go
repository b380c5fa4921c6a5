package control_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alubinski/webnet/control"
	"github.com/alubinski/webnet/socket"
	"github.com/alubinski/webnet/task"
	"github.com/containerd/errdefs"
	"github.com/containerd/log"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := control.DefaultConfig()
	assert.NilError(t, cfg.Validate())
	assert.Check(t, is.Equal(cfg.InheritMode(), socket.NonInheritable))
	assert.Check(t, cfg.NoDelay)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "webnet.toml")
	err := os.WriteFile(path, []byte(`
[socket]
backlog = 64
inheritable = true

[task]
drive_backoff_base = "100us"
drive_backoff_max = "2ms"

[log]
level = "debug"
`), 0o600)
	assert.NilError(t, err)

	cfg, err := control.LoadConfig(path)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(cfg.Backlog, 64))
	assert.Check(t, is.Equal(cfg.InheritMode(), socket.Inheritable))
	assert.Check(t, is.Equal(cfg.DriveBackoffBase, 100*time.Microsecond))
	assert.Check(t, is.Equal(cfg.DriveBackoffMax, 2*time.Millisecond))
	assert.Check(t, is.Equal(cfg.LogLevel, "debug"))
	// untouched keys keep their defaults
	assert.Check(t, cfg.NoDelay)
	assert.Check(t, is.Equal(cfg.ReadBufferSize, 4096))
	assert.Check(t, is.Equal(cfg.MetricsNamespace, "webnet"))
}

func TestParseConfigRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"syntax":   "[socket\nbacklog = 1",
		"type":     "[socket]\nbacklog = \"many\"",
		"duration": "[task]\ndrive_backoff_base = \"soon\"",
		"range":    "[socket]\nread_buffer_size = 0",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := control.ParseConfig([]byte(doc))
			assert.Check(t, errdefs.IsInvalidArgument(err), "got %v", err)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := control.LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Check(t, is.ErrorIs(err, os.ErrNotExist))
}

func TestApplyInstallsProcessSettings(t *testing.T) {
	base, ceiling := task.DriveBackoff()
	level := log.GetLevel()
	t.Cleanup(func() {
		task.SetDriveBackoff(base, ceiling)
		log.L.Logger.SetLevel(level)
	})

	cfg := control.DefaultConfig()
	cfg.LogLevel = "warn"
	cfg.DriveBackoffBase = time.Millisecond
	cfg.DriveBackoffMax = 3 * time.Millisecond
	assert.NilError(t, cfg.Apply())

	b, c := task.DriveBackoff()
	assert.Check(t, is.Equal(b, time.Millisecond))
	assert.Check(t, is.Equal(c, 3*time.Millisecond))
	assert.Check(t, is.Equal(log.GetLevel(), log.WarnLevel))
}

func TestStoreNotifiesOnUpdate(t *testing.T) {
	store := control.NewStore(nil)
	var seen []int
	store.OnReload(func(c control.Config) { seen = append(seen, c.Backlog) })

	cfg := store.Snapshot()
	cfg.Backlog = 16
	assert.NilError(t, store.Update(cfg))
	assert.Check(t, is.Equal(store.Snapshot().Backlog, 16))

	cfg.ReadBufferSize = -1
	assert.Check(t, errdefs.IsInvalidArgument(store.Update(cfg)))
	assert.Check(t, is.Equal(store.Snapshot().ReadBufferSize, 4096))
	assert.Check(t, is.DeepEqual(seen, []int{16}))
}

func TestStoreReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "webnet.toml")
	assert.NilError(t, os.WriteFile(path, []byte("[metrics]\nnamespace = \"edge\"\n"), 0o600))

	store := control.NewStore(control.DefaultConfig())
	assert.NilError(t, store.Reload(path))
	assert.Check(t, is.Equal(store.Snapshot().MetricsNamespace, "edge"))
}
