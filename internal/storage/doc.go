// Package storage persists per-session audio containers to the local
// filesystem for offline inspection and replay.
package storage
