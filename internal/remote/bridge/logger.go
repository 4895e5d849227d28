package bridge

import (
	"fmt"
	"strings"

	"github.com/giantswarm/locksmith/pkg/logging"
)

// leveledLogger routes retryablehttp's logging into the Bridge subsystem.
type leveledLogger struct{}

func (leveledLogger) Error(msg string, kv ...interface{}) {
	logging.Error("Bridge", nil, "%s", format(msg, kv))
}

func (leveledLogger) Warn(msg string, kv ...interface{}) {
	logging.Warn("Bridge", "%s", format(msg, kv))
}

func (leveledLogger) Info(msg string, kv ...interface{}) {
	// retryablehttp logs every request at info; that is debug noise here.
	logging.Debug("Bridge", "%s", format(msg, kv))
}

func (leveledLogger) Debug(msg string, kv ...interface{}) {
	logging.Debug("Bridge", "%s", format(msg, kv))
}

func format(msg string, kv []interface{}) string {
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&b, " %v=%v", kv[i], kv[i+1])
	}
	return b.String()
}
