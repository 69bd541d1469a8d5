// Package kv provides the key-value persistence layer behind the named
// collection stores. Keys are opaque strings; values are raw bytes.
package kv

import "context"

// Store is the minimal key-value contract: point reads and writes plus a
// whole-namespace clear. Absent keys are reported through the bool return,
// not an error.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
