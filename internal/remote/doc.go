// Package remote defines how the agent talks to the chat service.
//
// Client is the capability surface the engine needs: read a group's
// members and title, change a nickname or a title, send a typing indicator
// and stream live notifications. The bridge subpackage implements it over
// HTTP and a websocket; remotetest provides an in-memory implementation for
// tests.
//
// Failures are reported as *Error with a Kind. Disconnect errors, and the
// ErrForceReconnect sentinel, make the session manager start over with a
// fresh login.
package remote
