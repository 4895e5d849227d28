package config

import "time"

const (
	DefaultNickname  = "locked"
	DefaultBridgeURL = "http://127.0.0.1:3001"
	DefaultPort      = 10000

	// MinTaskPause is the smallest gap allowed between two tasks of one target.
	MinTaskPause = 500 * time.Millisecond
)

// GetDefaultConfig returns the configuration used when nothing overrides it.
func GetDefaultConfig() LocksmithConfig {
	return LocksmithConfig{
		DefaultNickname: DefaultNickname,
		DataDir:         ".",
		LogLevel:        "info",
		Bridge: BridgeConfig{
			URL:            DefaultBridgeURL,
			RequestTimeout: 30 * time.Second,
			RetryMax:       3,
		},
		Server: ServerConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    DefaultPort,
		},
		Pacing: PacingConfig{
			FastMin:          4 * time.Second,
			FastMax:          5 * time.Second,
			SlowMin:          12 * time.Second,
			SlowMax:          13 * time.Second,
			TargetSpacingMin: 10 * time.Second,
			TargetSpacingMax: 15 * time.Second,
			TaskPause:        MinTaskPause,
		},
		Reconcile: ReconcileConfig{
			Interval:            5 * time.Minute,
			NicknameChangeLimit: 50,
			NicknameCooldown:    5 * time.Minute,
			MaxConcurrent:       1,
		},
		TitleLock: TitleLockConfig{
			CheckInterval:    60 * time.Second,
			RevertGrace:      47 * time.Second,
			MaxChecksPerTick: 5,
		},
		Session: SessionConfig{
			TypingInterval:   10 * time.Minute,
			TypingSpacing:    1200 * time.Millisecond,
			SnapshotInterval: 10 * time.Minute,
			BackoffStep:      5 * time.Second,
			MaxBackoff:       60 * time.Second,
		},
	}
}
