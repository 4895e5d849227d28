package remote

import (
	"errors"
	"fmt"
	"strings"
)

// ErrForceReconnect asks the session manager to tear down the current
// session and log in again. It is never handled locally.
var ErrForceReconnect = errors.New("forced reconnect")

// ErrorKind classifies a remote failure.
type ErrorKind int

const (
	KindTransient ErrorKind = iota
	KindRateLimited
	KindNotFound
	KindDisconnected
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindRateLimited:
		return "rate-limited"
	case KindNotFound:
		return "not-found"
	case KindDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Error is a failed remote call.
type Error struct {
	Op   string
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// disconnectMarkers are substrings the remote service uses when a session
// is no longer usable.
var disconnectMarkers = []string{"client disconnecting", "not logged in"}

// Classify returns the kind of err. Errors that are not *Error are
// classified by message.
func Classify(err error) ErrorKind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	if err != nil && hasDisconnectMarker(err.Error()) {
		return KindDisconnected
	}
	return KindTransient
}

// IsDisconnect reports whether err means the session is gone.
func IsDisconnect(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrForceReconnect) {
		return true
	}
	return Classify(err) == KindDisconnected
}

func hasDisconnectMarker(msg string) bool {
	msg = strings.ToLower(msg)
	for _, m := range disconnectMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// NewError wraps err for op, deriving the kind from the message when kind
// is KindTransient.
func NewError(op string, kind ErrorKind, err error) *Error {
	if kind == KindTransient && err != nil && hasDisconnectMarker(err.Error()) {
		kind = KindDisconnected
	}
	return &Error{Op: op, Kind: kind, Err: err}
}
