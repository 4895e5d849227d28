package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/giantswarm/locksmith/pkg/logging"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// Validate reports every invalid setting at once.
func (c LocksmithConfig) Validate() error {
	var errs ValidationErrors

	if strings.TrimSpace(c.DefaultNickname) == "" {
		errs.Add("defaultNickname", "must not be empty")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		errs.Add("dataDir", "must not be empty")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs.Add("logLevel", err.Error(), c.LogLevel)
	}
	if u, err := url.Parse(c.Bridge.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs.Add("bridge.url", "must be an absolute http(s) URL", c.Bridge.URL)
	}
	if c.Bridge.RetryMax < 0 {
		errs.Add("bridge.retryMax", "must not be negative", c.Bridge.RetryMax)
	}
	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs.Add("server.port", "must be between 1 and 65535", c.Server.Port)
	}

	band := func(name string, lo, hi time.Duration) {
		if lo < 0 || hi < 0 {
			errs.Add(name, "must not be negative")
		} else if lo > hi {
			errs.Add(name, fmt.Sprintf("min %s is greater than max %s", lo, hi))
		}
	}
	band("pacing.fast", c.Pacing.FastMin, c.Pacing.FastMax)
	band("pacing.slow", c.Pacing.SlowMin, c.Pacing.SlowMax)
	band("pacing.targetSpacing", c.Pacing.TargetSpacingMin, c.Pacing.TargetSpacingMax)
	if c.Pacing.TaskPause < MinTaskPause {
		errs.Add("pacing.taskPause", fmt.Sprintf("must be at least %s", MinTaskPause), c.Pacing.TaskPause)
	}

	positive := func(name string, d time.Duration) {
		if d <= 0 {
			errs.Add(name, "must be positive", d)
		}
	}
	positive("reconcile.interval", c.Reconcile.Interval)
	positive("reconcile.nicknameCooldown", c.Reconcile.NicknameCooldown)
	positive("titleLock.checkInterval", c.TitleLock.CheckInterval)
	positive("titleLock.revertGrace", c.TitleLock.RevertGrace)
	positive("session.typingInterval", c.Session.TypingInterval)
	positive("session.snapshotInterval", c.Session.SnapshotInterval)
	positive("session.backoffStep", c.Session.BackoffStep)
	if c.Session.MaxBackoff < c.Session.BackoffStep {
		errs.Add("session.maxBackoff", "must not be smaller than session.backoffStep", c.Session.MaxBackoff)
	}

	if c.Reconcile.NicknameChangeLimit < 1 {
		errs.Add("reconcile.nicknameChangeLimit", "must be at least 1", c.Reconcile.NicknameChangeLimit)
	}
	if c.Reconcile.MaxConcurrent < 1 {
		errs.Add("reconcile.maxConcurrent", "must be at least 1", c.Reconcile.MaxConcurrent)
	}
	if c.TitleLock.MaxChecksPerTick < 1 {
		errs.Add("titleLock.maxChecksPerTick", "must be at least 1", c.TitleLock.MaxChecksPerTick)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
