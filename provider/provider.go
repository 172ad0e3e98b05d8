// Package provider defines the cluster store boundary used by clustercache.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly the
// same []byte that was previously passed to Set for a key. Scalars are written in
// their natural string form so that IncrBy/DecrBy can operate on them in place.
//
// Keys handed to a Provider are already namespaced by the caller's prefix.
package provider

import (
	"context"
	"time"
)

// Provider is the command set clustercache consumes from the store.
// Must be safe for concurrent use.
type Provider interface {
	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set writes value unconditionally. ttl <= 0 => SET without expiry,
	// ttl > 0 => SETEX with ttl in whole seconds.
	// Returns the store's write acknowledgement.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) (ok bool, err error)

	// IncrBy and DecrBy adjust the integer stored at key and return the new value.
	// A missing key counts as 0.
	IncrBy(ctx context.Context, key string, step int64) (int64, error)
	DecrBy(ctx context.Context, key string, step int64) (int64, error)

	// Del removes key and returns the number of keys removed (0 when absent).
	Del(ctx context.Context, key string) (int64, error)

	// FlushDB removes every key of the active database on every node in scope.
	FlushDB(ctx context.Context) error

	// Append adds member to the tail of the list stored at key (RPUSH).
	Append(ctx context.Context, key, member string) error

	// Range returns the whole list stored at key; a missing key yields an empty slice.
	Range(ctx context.Context, key string) ([]string, error)

	// Close releases resources.
	Close() error
}
