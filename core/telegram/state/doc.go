// Package state keeps per-user conversation sessions in a bounded in-memory LRU.
// Sessions are never persisted; the least recently used one is evicted when full.
package state
