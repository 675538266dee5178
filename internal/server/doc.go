// Package server exposes the HTTP API: recognition submission plus health,
// configuration, statistics and Prometheus metrics endpoints.
package server
