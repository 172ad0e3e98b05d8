// Package asynchook runs clustercache hooks on background workers so slow
// sinks never stall cache calls. Events are dropped when the queue is full.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{RetryEvery: 5})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	d, _ := clustercache.New(ctx, clustercache.Options{
//	    Host:  "10.0.0.1,10.0.0.2",
//	    Port:  "7000",
//	    Hooks: hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/clustercache"
)

type Hooks struct {
	inner clustercache.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once

	mu      sync.RWMutex // guards closed against sends on a closed queue
	closed  bool
	dropped atomic.Uint64
}

var _ clustercache.Hooks = (*Hooks)(nil)

func New(inner clustercache.Hooks, workers, qlen int) *Hooks {
	if inner == nil {
		inner = clustercache.NopHooks{}
	}
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Later events are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped returns the number of events discarded because the queue was full
// or the hooks were closed.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

func (h *Hooks) ReconnectScheduled(n int, d time.Duration, err error) {
	h.try(func() { h.inner.ReconnectScheduled(n, d, err) })
}
func (h *Hooks) ReconnectExhausted(n int, err error) {
	h.try(func() { h.inner.ReconnectExhausted(n, err) })
}
func (h *Hooks) Connected(n int)              { h.try(func() { h.inner.Connected(n) }) }
func (h *Hooks) TagCleared(tag string, n int) { h.try(func() { h.inner.TagCleared(tag, n) }) }
func (h *Hooks) TagClearFailed(tag string, err error) {
	h.try(func() { h.inner.TagClearFailed(tag, err) })
}
func (h *Hooks) DecodeFailed(k string, err error) { h.try(func() { h.inner.DecodeFailed(k, err) }) }
