package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Defaults(t *testing.T) {
	assert.NoError(t, GetDefaultConfig().Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*LocksmithConfig)
		field  string
	}{
		{"inverted fast band", func(c *LocksmithConfig) { c.Pacing.FastMin = 6 * time.Second }, "pacing.fast"},
		{"task pause below floor", func(c *LocksmithConfig) { c.Pacing.TaskPause = 100 * time.Millisecond }, "pacing.taskPause"},
		{"zero limit", func(c *LocksmithConfig) { c.Reconcile.NicknameChangeLimit = 0 }, "reconcile.nicknameChangeLimit"},
		{"zero concurrency", func(c *LocksmithConfig) { c.Reconcile.MaxConcurrent = 0 }, "reconcile.maxConcurrent"},
		{"empty nickname", func(c *LocksmithConfig) { c.DefaultNickname = "  " }, "defaultNickname"},
		{"relative bridge url", func(c *LocksmithConfig) { c.Bridge.URL = "bridge:3001/x" }, "bridge.url"},
		{"bad level", func(c *LocksmithConfig) { c.LogLevel = "chatty" }, "logLevel"},
		{"zero grace", func(c *LocksmithConfig) { c.TitleLock.RevertGrace = 0 }, "titleLock.revertGrace"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs))
			require.Len(t, verrs, 1)
			assert.Equal(t, tt.field, verrs[0].Field)
		})
	}
}

func TestValidate_CollectsAll(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Reconcile.MaxConcurrent = 0
	cfg.TitleLock.MaxChecksPerTick = 0
	cfg.Pacing.SlowMin = time.Minute

	err := cfg.Validate()
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Len(t, verrs, 3)
	assert.Contains(t, err.Error(), "validation failed")
}
