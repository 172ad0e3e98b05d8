// Package memory is an in-process provider.Provider with TTLs. It mirrors the
// store semantics clustercache depends on and is meant for tests and local runs.
package memory

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	pr "github.com/unkn0wn-root/clustercache/provider"
)

var (
	ErrNotInteger = errors.New("ERR value is not an integer or out of range")
	ErrWrongType  = errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")
)

type entry struct {
	v      []byte
	list   []string
	isList bool
	exp    time.Time // zero => no TTL
}

type Memory struct {
	mu  sync.Mutex
	m   map[string]entry
	now func() time.Time
}

var _ pr.Provider = (*Memory)(nil)

func New() *Memory {
	return &Memory{m: make(map[string]entry), now: time.Now}
}

// SetClock replaces the time source used for expiry.
func (p *Memory) SetClock(now func() time.Time) {
	p.mu.Lock()
	p.now = now
	p.mu.Unlock()
}

// Len returns the number of live keys.
func (p *Memory) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for k := range p.m {
		if _, ok := p.lookup(k); ok {
			n++
		}
	}
	return n
}

// lookup must be called with mu held.
func (p *Memory) lookup(key string) (entry, bool) {
	e, ok := p.m[key]
	if !ok {
		return entry{}, false
	}
	if !e.exp.IsZero() && !p.now().Before(e.exp) {
		delete(p.m, key)
		return entry{}, false
	}
	return e, true
}

func (p *Memory) Exists(_ context.Context, key string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.lookup(key)
	return ok, nil
}

func (p *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.lookup(key)
	if !ok {
		return nil, false, nil
	}
	if e.isList {
		return nil, false, ErrWrongType
	}
	return append([]byte(nil), e.v...), true, nil
}

func (p *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var exp time.Time
	if ttl > 0 {
		exp = p.now().Add(ttl)
	}
	p.m[key] = entry{v: append([]byte(nil), value...), exp: exp}
	return true, nil
}

func (p *Memory) IncrBy(_ context.Context, key string, step int64) (int64, error) {
	return p.add(key, step)
}

func (p *Memory) DecrBy(_ context.Context, key string, step int64) (int64, error) {
	return p.add(key, -step)
}

func (p *Memory) add(key string, delta int64) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.lookup(key)
	var cur int64
	if ok {
		if e.isList {
			return 0, ErrWrongType
		}
		n, err := strconv.ParseInt(string(e.v), 10, 64)
		if err != nil {
			return 0, ErrNotInteger
		}
		cur = n
	}
	cur += delta
	e.v = []byte(strconv.FormatInt(cur, 10)) // keeps TTL like INCRBY
	p.m[key] = e
	return cur, nil
}

func (p *Memory) Del(_ context.Context, key string) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.lookup(key); !ok {
		return 0, nil
	}
	delete(p.m, key)
	return 1, nil
}

func (p *Memory) FlushDB(context.Context) error {
	p.mu.Lock()
	p.m = make(map[string]entry)
	p.mu.Unlock()
	return nil
}

func (p *Memory) Append(_ context.Context, key, member string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.lookup(key)
	if ok && !e.isList {
		return ErrWrongType
	}
	e.isList = true
	e.list = append(e.list, member)
	p.m[key] = e
	return nil
}

func (p *Memory) Range(_ context.Context, key string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.lookup(key)
	if !ok {
		return []string{}, nil
	}
	if !e.isList {
		return nil, ErrWrongType
	}
	return append([]string(nil), e.list...), nil
}

func (p *Memory) Close() error { return nil }
