package config

import (
	"path/filepath"
	"time"
)

const (
	storeFileName      = "groupData.json"
	credentialFileName = "appstate.json"
)

// LocksmithConfig is the top-level configuration structure for locksmith.
type LocksmithConfig struct {
	// OperatorID is the account whose own nickname is corrected first in every
	// target. Empty means the id of the logged-in account.
	OperatorID string `yaml:"operatorId,omitempty"`
	// DefaultNickname fills in records that do not name a nickname.
	DefaultNickname string `yaml:"defaultNickname,omitempty"`
	// DataDir holds the lock store and the session blob.
	DataDir string `yaml:"dataDir,omitempty"`
	// CredentialBlob is an inline session blob. It takes precedence over the
	// file in DataDir and is never written to config.yaml.
	CredentialBlob string `yaml:"-"`
	LogLevel       string `yaml:"logLevel,omitempty"`

	Bridge    BridgeConfig    `yaml:"bridge"`
	Server    ServerConfig    `yaml:"server"`
	Pacing    PacingConfig    `yaml:"pacing"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	TitleLock TitleLockConfig `yaml:"titleLock"`
	Session   SessionConfig   `yaml:"session"`
}

// BridgeConfig locates the bridge process that speaks the chat protocol.
type BridgeConfig struct {
	URL            string        `yaml:"url,omitempty"`
	RequestTimeout time.Duration `yaml:"requestTimeout,omitempty"`
	RetryMax       int           `yaml:"retryMax,omitempty"` // retries for idempotent reads only
}

// ServerConfig configures the health and metrics endpoint.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host,omitempty"`
	Port    int    `yaml:"port,omitempty"`
}

// PacingConfig holds the delay bands used between corrections.
type PacingConfig struct {
	FastMin time.Duration `yaml:"fastMin,omitempty"`
	FastMax time.Duration `yaml:"fastMax,omitempty"`
	SlowMin time.Duration `yaml:"slowMin,omitempty"`
	SlowMax time.Duration `yaml:"slowMax,omitempty"`

	// TargetSpacingMin/Max bound the random wait between targets during a
	// full reconciliation pass.
	TargetSpacingMin time.Duration `yaml:"targetSpacingMin,omitempty"`
	TargetSpacingMax time.Duration `yaml:"targetSpacingMax,omitempty"`

	// TaskPause is the fixed gap between two tasks of the same target.
	TaskPause time.Duration `yaml:"taskPause,omitempty"`
}

type ReconcileConfig struct {
	Interval            time.Duration `yaml:"interval,omitempty"`
	NicknameChangeLimit int           `yaml:"nicknameChangeLimit,omitempty"`
	NicknameCooldown    time.Duration `yaml:"nicknameCooldown,omitempty"`
	MaxConcurrent       int           `yaml:"maxConcurrent,omitempty"`
}

type TitleLockConfig struct {
	CheckInterval    time.Duration `yaml:"checkInterval,omitempty"`
	RevertGrace      time.Duration `yaml:"revertGrace,omitempty"`
	MaxChecksPerTick int           `yaml:"maxChecksPerTick,omitempty"`
}

type SessionConfig struct {
	TypingInterval   time.Duration `yaml:"typingInterval,omitempty"`
	TypingSpacing    time.Duration `yaml:"typingSpacing,omitempty"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval,omitempty"`
	BackoffStep      time.Duration `yaml:"backoffStep,omitempty"`
	MaxBackoff       time.Duration `yaml:"maxBackoff,omitempty"`
}

// StorePath is the location of the persisted lock records.
func (c LocksmithConfig) StorePath() string {
	return filepath.Join(c.DataDir, storeFileName)
}

// CredentialPath is the location of the session blob file.
func (c LocksmithConfig) CredentialPath() string {
	return filepath.Join(c.DataDir, credentialFileName)
}
