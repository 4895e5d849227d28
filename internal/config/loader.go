package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/giantswarm/locksmith/pkg/logging"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

const (
	configFileName = "config.yaml"
	envFileName    = ".env"
)

// LookupFunc resolves an environment key. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// LoadConfig builds the effective configuration for configPath.
//
// Sources are applied in this order, later ones winning: built-in defaults,
// configPath/config.yaml, configPath/.env, the process environment. A
// missing config.yaml or .env is not an error. The result is validated.
func LoadConfig(configPath string) (LocksmithConfig, error) {
	cfg, err := loadFile(configPath)
	if err != nil {
		return LocksmithConfig{}, err
	}

	envPath := filepath.Join(configPath, envFileName)
	if err := godotenv.Load(envPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return LocksmithConfig{}, NewConfigurationError(envPath, envFileName, "env", "parse", err.Error())
		}
	} else {
		logging.Info("Config", "Loaded environment from %s", envPath)
	}

	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return LocksmithConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return LocksmithConfig{}, err
	}
	return cfg, nil
}

func loadFile(configPath string) (LocksmithConfig, error) {
	cfg := GetDefaultConfig()
	if configPath == "" {
		return cfg, nil
	}

	configFilePath := filepath.Join(configPath, configFileName)
	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Debug("Config", "No config.yaml found at %s, using defaults", configFilePath)
			return cfg, nil
		}
		return LocksmithConfig{}, NewConfigurationError(configFilePath, configFileName, "file", "io", err.Error())
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return LocksmithConfig{}, NewConfigurationError(configFilePath, configFileName, "file", "parse", err.Error())
	}
	logging.Info("Config", "Loaded configuration from %s", configFilePath)
	return cfg, nil
}

// ApplyEnv overlays environment values onto cfg. Every malformed value is
// reported, not only the first one.
func ApplyEnv(cfg *LocksmithConfig, lookup LookupFunc) error {
	var errs ValidationErrors

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	integer := func(key string, dst *int) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		n, err := cast.ToIntE(strings.TrimSpace(v))
		if err != nil {
			errs.Add(key, "must be an integer", v)
			return
		}
		*dst = n
	}
	duration := func(key string, dst *time.Duration) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		d, err := ParseDuration(v)
		if err != nil {
			errs.Add(key, err.Error(), v)
			return
		}
		*dst = d
	}

	str("BOSS_UID", &cfg.OperatorID)
	str("DEFAULT_NICKNAME", &cfg.DefaultNickname)
	str("DATA_DIR", &cfg.DataDir)
	str("APPSTATE", &cfg.CredentialBlob)
	str("BRIDGE_URL", &cfg.Bridge.URL)
	str("LOG_LEVEL", &cfg.LogLevel)
	integer("PORT", &cfg.Server.Port)

	duration("RECONCILE_INTERVAL", &cfg.Reconcile.Interval)
	duration("GROUP_NAME_CHECK_INTERVAL", &cfg.TitleLock.CheckInterval)
	duration("GROUP_NAME_REVERT_DELAY", &cfg.TitleLock.RevertGrace)
	duration("FAST_NICKNAME_DELAY_MIN", &cfg.Pacing.FastMin)
	duration("FAST_NICKNAME_DELAY_MAX", &cfg.Pacing.FastMax)
	duration("SLOW_NICKNAME_DELAY_MIN", &cfg.Pacing.SlowMin)
	duration("SLOW_NICKNAME_DELAY_MAX", &cfg.Pacing.SlowMax)
	duration("GROUP_DELAY_MIN", &cfg.Pacing.TargetSpacingMin)
	duration("GROUP_DELAY_MAX", &cfg.Pacing.TargetSpacingMax)
	duration("QUEUE_TASK_PAUSE", &cfg.Pacing.TaskPause)
	integer("NICKNAME_CHANGE_LIMIT", &cfg.Reconcile.NicknameChangeLimit)
	duration("NICKNAME_COOLDOWN", &cfg.Reconcile.NicknameCooldown)
	integer("GLOBAL_MAX_CONCURRENT", &cfg.Reconcile.MaxConcurrent)
	integer("MAX_PER_TICK", &cfg.TitleLock.MaxChecksPerTick)
	duration("TYPING_INTERVAL", &cfg.Session.TypingInterval)
	duration("APPSTATE_BACKUP_INTERVAL", &cfg.Session.SnapshotInterval)

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// ParseDuration accepts Go duration syntax ("47s", "5m") or a bare integer,
// which is taken as milliseconds.
func ParseDuration(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if ms, err := cast.ToInt64E(v); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("must be a duration such as 47s or a number of milliseconds")
	}
	return d, nil
}
