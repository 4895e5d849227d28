package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/locksmith/internal/config"
	"github.com/giantswarm/locksmith/internal/lockstore"
)

func execute(t *testing.T, c *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	c.SetOut(&buf)
	c.SetErr(&buf)
	c.SetArgs(args)
	err := c.Execute()
	return buf.String(), err
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"generic", errors.New("boom"), ExitCodeError},
		{"check failed", &checkFailedError{problems: 2}, ExitCodeCheckFailed},
		{"config file", fmt.Errorf("load: %w", config.NewConfigurationError("/x/config.yaml", "config.yaml", "file", "parse", "bad")), ExitCodeConfigError},
		{"validation", config.ValidationErrors{{Field: "pacing.fastMin", Message: "too large"}}, ExitCodeConfigError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, getExitCode(tt.err))
		})
	}
}

func TestCheckCmd(t *testing.T) {
	dataDir := t.TempDir()
	configDir := t.TempDir()

	out, err := execute(t, newCheckCmd(), "--config-path", configDir, "--data-dir", dataDir)
	require.Error(t, err)
	assert.Equal(t, ExitCodeCheckFailed, getExitCode(err))
	assert.Contains(t, out, "✓ configuration")
	assert.Contains(t, out, "file not found")

	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "appstate.json"), []byte(`[{"key":"c_user","value":"1"}]`), 0o600))
	out, err = execute(t, newCheckCmd(), "--config-path", configDir, "--data-dir", dataDir)
	require.NoError(t, err)
	assert.Contains(t, out, "lock store (0 targets)")
}

func TestLocksCmd(t *testing.T) {
	dataDir := t.TempDir()

	out, err := execute(t, newLocksCmd(), "--data-dir", dataDir)
	require.NoError(t, err)
	assert.Contains(t, out, "No lock store")

	store := lockstore.New(filepath.Join(dataDir, "groupData.json"), "locked")
	require.NoError(t, store.Save(lockstore.Records{
		"1001": {Enabled: true, Nickname: "locked", NicknameOverrides: map[string]string{"a": "Alpha"}, ChangeCount: 3},
		"1002": {TitleLockEnabled: true, LockedTitle: "Weekend football", CooldownActive: true, NicknameOverrides: map[string]string{}},
	}))

	out, err = execute(t, newLocksCmd(), "--data-dir", dataDir)
	require.NoError(t, err)
	assert.Contains(t, out, "TARGET")
	assert.Contains(t, out, "1001")
	assert.Contains(t, out, "Weekend football")
	assert.Contains(t, out, "active")
}

func TestRenderLocksEmpty(t *testing.T) {
	var buf bytes.Buffer
	renderLocks(&buf, lockstore.Records{})
	assert.Contains(t, buf.String(), "No targets")
}
