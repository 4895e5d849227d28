// Package server exposes the agent's health and metrics over HTTP.
//
// Hosting platforms that expect a web process probe the root path. The
// server also reports the reconciliation engine's state and Prometheus
// metrics:
//
//   - / - plain text liveness answer
//   - /healthz - JSON summary of the engine
//   - /metrics - Prometheus exposition
package server
