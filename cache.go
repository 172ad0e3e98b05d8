package clustercache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/clustercache/codec"
	pr "github.com/unkn0wn-root/clustercache/provider"
	"github.com/unkn0wn-root/clustercache/tagindex"
)

// Driver is the cache operations facade. Every call round-trips to the
// cluster through the Connector's live handle; decoded values are never kept
// in process.
type Driver struct {
	conn   *Connector
	codec  codec.Codec
	tags   *tagindex.Index
	prefix string
	expire time.Duration
	log    Logger
	hooks  Hooks

	readTimes  atomic.Int64
	writeTimes atomic.Int64
}

// validateDriver checks the options owned by the facade. It runs before any
// dial.
func validateDriver(opts Options) error {
	if opts.Expire < 0 {
		return &ConfigurationError{Option: "expire", Reason: "must not be negative"}
	}
	if opts.MaxDecode < 0 {
		return &ConfigurationError{Option: "max_decode", Reason: "must not be negative"}
	}
	return nil
}

func newDriver(conn *Connector, opts Options) (*Driver, error) {
	if err := validateDriver(opts); err != nil {
		return nil, err
	}
	tags, err := tagindex.New(conn, opts.Prefix)
	if err != nil {
		return nil, err
	}

	var c codec.Codec = codec.Envelope{Marker: opts.Marker, Disabled: opts.DisableSerialize}
	if opts.MaxDecode > 0 {
		c = codec.LimitCodec{Inner: c, MaxDecode: opts.MaxDecode}
	}

	return &Driver{
		conn:   conn,
		codec:  c,
		tags:   tags,
		prefix: opts.Prefix,
		expire: opts.Expire,
		log:    coalesce[Logger](opts.Logger, NopLogger{}),
		hooks:  coalesce[Hooks](opts.Hooks, NopHooks{}),
	}, nil
}

// Key returns the storage key of name.
func (d *Driver) Key(name string) string { return d.prefix + name }

func (d *Driver) ReadTimes() int64  { return d.readTimes.Load() }
func (d *Driver) WriteTimes() int64 { return d.writeTimes.Load() }

// Handle returns the live store handle.
func (d *Driver) Handle() pr.Provider { return d.conn.Handle() }

// Connector returns the connector owning the live handle.
func (d *Driver) Connector() *Connector { return d.conn }

// Reconnect runs a fresh connect sequence and swaps the live handle.
func (d *Driver) Reconnect(ctx context.Context) error {
	_, err := d.conn.Connect(ctx)
	return err
}

func (d *Driver) Close() error { return d.conn.Close() }

func (d *Driver) Has(ctx context.Context, name string) (bool, error) {
	key := d.Key(name)
	ok, err := d.conn.Exists(ctx, key)
	if err != nil {
		return false, &StoreOperationError{Op: "has", Key: key, Err: err}
	}
	return ok, nil
}

func (d *Driver) Get(ctx context.Context, name string, def any) (any, error) {
	d.readTimes.Add(1)
	b, ok, err := d.fetch(ctx, "get", name)
	if err != nil || !ok {
		return def, err
	}
	v, err := d.codec.Decode(b)
	if err != nil {
		return def, d.decodeFailed(name, err)
	}
	return v, nil
}

// GetInto decodes the value of name into dst, which must be a non-nil pointer.
// found is false, and dst untouched, when name is absent.
func (d *Driver) GetInto(ctx context.Context, name string, dst any) (found bool, err error) {
	d.readTimes.Add(1)
	b, ok, err := d.fetch(ctx, "get", name)
	if err != nil || !ok {
		return false, err
	}
	if err := d.codec.DecodeInto(b, dst); err != nil {
		return false, d.decodeFailed(name, err)
	}
	return true, nil
}

// GetAs is GetInto for a concrete type, returning def when name is absent.
func GetAs[T any](ctx context.Context, d *Driver, name string, def T) (T, error) {
	var v T
	found, err := d.GetInto(ctx, name, &v)
	if err != nil || !found {
		return def, err
	}
	return v, nil
}

func (d *Driver) fetch(ctx context.Context, op, name string) ([]byte, bool, error) {
	key := d.Key(name)
	b, ok, err := d.conn.Get(ctx, key)
	if err != nil {
		return nil, false, &StoreOperationError{Op: op, Key: key, Err: err}
	}
	return b, ok, nil
}

func (d *Driver) decodeFailed(name string, err error) error {
	key := d.Key(name)
	d.log.Warn("decode failed", Fields{"key": key, "err": err})
	d.hooks.DecodeFailed(key, err)
	return &StoreOperationError{Op: "get", Key: key, Err: err}
}

func (d *Driver) Set(ctx context.Context, name string, value any, expire ...time.Duration) (bool, error) {
	return d.set(ctx, "", name, value, expire)
}

// set writes name. With a non-empty tag the key is recorded under it, but only
// when the write creates the key.
func (d *Driver) set(ctx context.Context, tag, name string, value any, expire []time.Duration) (bool, error) {
	d.writeTimes.Add(1)
	key := d.Key(name)

	first := false
	if tag != "" {
		var err error
		if first, err = d.tags.Begin(ctx, key); err != nil {
			return false, &StoreOperationError{Op: "has", Key: key, Err: err}
		}
	}

	b, err := d.codec.Encode(value)
	if err != nil {
		return false, &StoreOperationError{Op: "set", Key: key, Err: err}
	}
	ok, err := d.conn.Set(ctx, key, b, d.ttl(expire))
	if err != nil {
		return false, &StoreOperationError{Op: "set", Key: key, Err: err}
	}

	if ok && first {
		if err := d.tags.Record(ctx, tag, key); err != nil {
			return ok, &StoreOperationError{Op: "tag", Key: key, Err: err}
		}
	}
	return ok, nil
}

// ttl resolves the effective expiration. Negative means none.
func (d *Driver) ttl(expire []time.Duration) time.Duration {
	ttl := d.expire
	if len(expire) > 0 {
		ttl = expire[0]
	}
	return max(ttl, 0)
}

// Inc adds step to the integer stored at name; an absent key counts as 0.
// The stored value must be a plain integer; a structured value written by Set
// makes the store reject the command.
func (d *Driver) Inc(ctx context.Context, name string, step int64) (int64, error) {
	d.writeTimes.Add(1)
	key := d.Key(name)
	n, err := d.conn.IncrBy(ctx, key, step)
	if err != nil {
		return 0, &StoreOperationError{Op: "inc", Key: key, Err: err}
	}
	return n, nil
}

// Dec is the mirror of Inc.
func (d *Driver) Dec(ctx context.Context, name string, step int64) (int64, error) {
	d.writeTimes.Add(1)
	key := d.Key(name)
	n, err := d.conn.DecrBy(ctx, key, step)
	if err != nil {
		return 0, &StoreOperationError{Op: "dec", Key: key, Err: err}
	}
	return n, nil
}

// Delete removes name and reports whether it existed.
func (d *Driver) Delete(ctx context.Context, name string) (bool, error) {
	d.writeTimes.Add(1)
	key := d.Key(name)
	n, err := d.conn.Del(ctx, key)
	if err != nil {
		return false, &StoreOperationError{Op: "rm", Key: key, Err: err}
	}
	return n > 0, nil
}

// Clear flushes the active database on every master, or on the configured
// FlushNodes only. It ignores Prefix.
func (d *Driver) Clear(ctx context.Context) (bool, error) {
	d.writeTimes.Add(1)
	if err := d.conn.FlushDB(ctx); err != nil {
		return false, &StoreOperationError{Op: "clear", Err: err}
	}
	d.log.Info("cluster flushed", Fields{"seeds": d.conn.cfg.Seeds})
	return true, nil
}

// ClearTag deletes every key recorded under tag, then the tag record.
// A failed member delete returns a *StoreOperationError wrapping
// *tagindex.TagClearError; calling ClearTag again finishes the job. A record
// that outlives its members is left in place and not reported: the next clear
// of the tag removes it.
func (d *Driver) ClearTag(ctx context.Context, tag string) (bool, error) {
	deleted, err := d.tags.Clear(ctx, tag)
	var tce *tagindex.TagClearError
	if errors.As(err, &tce) && tce.ListErr == nil && len(tce.Failed) == 0 {
		d.log.Warn("stale tag record left behind", Fields{"tag": tag, "deleted": deleted, "err": err})
		d.hooks.TagClearFailed(tag, err)
		return true, nil
	}
	if err != nil {
		d.log.Error("tag clear failed", Fields{"tag": tag, "deleted": deleted, "err": err})
		d.hooks.TagClearFailed(tag, err)
		return false, &StoreOperationError{Op: "clear", Key: d.tags.RecordKey(tag), Err: err}
	}
	d.log.Debug("tag cleared", Fields{"tag": tag, "deleted": deleted})
	d.hooks.TagCleared(tag, deleted)
	return true, nil
}

// Remember returns the value of name, or computes it with fn, stores it and
// returns it. Concurrent callers may each run fn.
func (d *Driver) Remember(ctx context.Context, name string, fn func(context.Context) (any, error), expire ...time.Duration) (any, error) {
	return d.remember(ctx, "", name, fn, expire)
}

func (d *Driver) remember(ctx context.Context, tag, name string, fn func(context.Context) (any, error), expire []time.Duration) (any, error) {
	if fn == nil {
		return nil, errors.New("clustercache: nil remember func")
	}
	d.readTimes.Add(1)
	b, ok, err := d.fetch(ctx, "get", name)
	if err != nil {
		return nil, err
	}
	if ok {
		v, err := d.codec.Decode(b)
		if err != nil {
			return nil, d.decodeFailed(name, err)
		}
		return v, nil
	}

	v, err := fn(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := d.set(ctx, tag, name, v, expire); err != nil {
		return v, err
	}
	return v, nil
}

// Pull returns the value of name and deletes it. def is returned when absent.
func (d *Driver) Pull(ctx context.Context, name string, def any) (any, error) {
	d.readTimes.Add(1)
	b, ok, err := d.fetch(ctx, "get", name)
	if err != nil || !ok {
		return def, err
	}
	if _, err := d.Delete(ctx, name); err != nil {
		return def, err
	}
	v, err := d.codec.Decode(b)
	if err != nil {
		return def, d.decodeFailed(name, err)
	}
	return v, nil
}

// Tag returns a write scope that records every key it creates under tag.
func (d *Driver) Tag(tag string) *Tagged { return &Tagged{d: d, tag: tag} }
