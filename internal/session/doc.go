// Package session keeps the agent logged in.
//
// A Manager loads the credential blob, logs in through a remote.Dialer and
// attaches the resulting client to the reconciliation engine. While the
// session lives it runs the periodic reconciliation pass, the title poll,
// the keep-alive typing indicator and the credential snapshot, and feeds
// live events to the engine. When any of these reports a lost session the
// whole session is torn down and a new login is attempted after a linear
// backoff capped at one minute.
package session
