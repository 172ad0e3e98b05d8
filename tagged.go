package clustercache

import (
	"context"
	"time"
)

// Tagged is a tag scope over a Driver. It is a value, so concurrent callers
// with different tags never see each other's scope.
type Tagged struct {
	d   *Driver
	tag string
}

func (t *Tagged) Name() string { return t.tag }

// Set writes name and records it under the tag when the write creates it.
// The existence probe and the write are separate commands; a racing writer
// can cause a duplicate record entry, which Clear tolerates.
func (t *Tagged) Set(ctx context.Context, name string, value any, expire ...time.Duration) (bool, error) {
	if t.tag == "" {
		return t.d.Set(ctx, name, value, expire...)
	}
	return t.d.set(ctx, t.tag, name, value, expire)
}

// Attach records existing keys under the tag without writing them.
func (t *Tagged) Attach(ctx context.Context, names ...string) error {
	keys := make([]string, len(names))
	for i, n := range names {
		keys[i] = t.d.Key(n)
	}
	if err := t.d.tags.Attach(ctx, t.tag, keys...); err != nil {
		return &StoreOperationError{Op: "tag", Key: t.d.tags.RecordKey(t.tag), Err: err}
	}
	return nil
}

// Members returns the storage keys recorded under the tag. Members may
// already be gone from the store.
func (t *Tagged) Members(ctx context.Context) ([]string, error) {
	keys, err := t.d.tags.Members(ctx, t.tag)
	if err != nil {
		return nil, &StoreOperationError{Op: "tag", Key: t.d.tags.RecordKey(t.tag), Err: err}
	}
	return keys, nil
}

func (t *Tagged) Clear(ctx context.Context) (bool, error) { return t.d.ClearTag(ctx, t.tag) }

// Remember is Driver.Remember that records a computed key under the tag.
func (t *Tagged) Remember(ctx context.Context, name string, fn func(context.Context) (any, error), expire ...time.Duration) (any, error) {
	return t.d.remember(ctx, t.tag, name, fn, expire)
}
