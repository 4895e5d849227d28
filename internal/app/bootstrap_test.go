package app

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/locksmith/internal/config"
	"github.com/giantswarm/locksmith/internal/remote/remotetest"
)

func writeConfig(t *testing.T, dir, dataDir string) {
	t.Helper()
	yaml := "dataDir: " + dataDir + "\nserver:\n  enabled: false\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
}

func TestNewApplication_WiresServices(t *testing.T) {
	configDir := t.TempDir()
	dataDir := t.TempDir()
	writeConfig(t, configDir, dataDir)

	var logs bytes.Buffer
	cfg := NewConfig(true, configDir, "")
	cfg.LogOutput = &logs

	application, err := NewApplication(cfg)
	require.NoError(t, err)

	s := application.Services()
	assert.NotNil(t, s.Engine)
	assert.NotNil(t, s.Session)
	assert.Nil(t, s.Server)
	assert.Equal(t, 1, s.Limiter.Capacity())
	assert.Equal(t, filepath.Join(dataDir, "groupData.json"), s.Store.Path())
	assert.Contains(t, logs.String(), "Loaded configuration")
}

func TestNewApplication_DataDirOverride(t *testing.T) {
	configDir := t.TempDir()
	writeConfig(t, configDir, t.TempDir())
	override := t.TempDir()

	cfg := NewConfig(false, configDir, override)
	cfg.LogOutput = &bytes.Buffer{}
	application, err := NewApplication(cfg)
	require.NoError(t, err)

	assert.Equal(t, override, cfg.LocksmithConfig.DataDir)
	assert.Equal(t, filepath.Join(override, "groupData.json"), application.Services().Store.Path())
}

func TestNewApplication_CorruptStoreStartsEmpty(t *testing.T) {
	configDir := t.TempDir()
	dataDir := t.TempDir()
	writeConfig(t, configDir, dataDir)
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "groupData.json"), []byte("{not json"), 0o644))

	cfg := NewConfig(false, configDir, "")
	cfg.LogOutput = &bytes.Buffer{}
	application, err := NewApplication(cfg)
	require.NoError(t, err)

	assert.Equal(t, 0, application.Services().Engine.Summary().Targets)
}

func TestRun_SavesStateOnShutdown(t *testing.T) {
	configDir := t.TempDir()
	dataDir := t.TempDir()
	writeConfig(t, configDir, dataDir)
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "appstate.json"), []byte(`[{"key":"c_user","value":"old"}]`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "groupData.json"),
		[]byte(`{"t1":{"enabled":true,"nick":"locked","original":{},"gclock":false,"count":0,"cooldown":false}}`), 0o644))

	client := remotetest.NewClient("op")
	client.AddThread("t1", "Group", []string{"op"}, map[string]string{"op": "locked"})

	cfg := NewConfig(false, configDir, "")
	cfg.LogOutput = &bytes.Buffer{}
	cfg.Dialer = &remotetest.Dialer{Clients: []*remotetest.Client{client}}
	application, err := NewApplication(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Run(ctx) }()

	require.Eventually(t, func() bool {
		return application.Services().Engine.Summary().Attached
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("application did not stop")
	}

	data, err := os.ReadFile(filepath.Join(dataDir, "appstate.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"op"`)

	var recs map[string]json.RawMessage
	data, err = os.ReadFile(filepath.Join(dataDir, "groupData.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &recs))
	assert.Contains(t, recs, "t1")
}

func TestValidate(t *testing.T) {
	dataDir := t.TempDir()
	lc := config.GetDefaultConfig()
	lc.DataDir = dataDir

	_, problems := Validate(lc)
	require.Len(t, problems, 1, "missing credential only")
	_, err := os.Stat(filepath.Join(dataDir, "groupData.json"))
	assert.True(t, os.IsNotExist(err), "store must not be created")

	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "appstate.json"), []byte(`[{"key":"a"}]`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "groupData.json"), []byte(`{"t1":{"enabled":true}}`), 0o644))

	records, problems := Validate(lc)
	assert.Empty(t, problems)
	assert.Len(t, records, 1)
}
