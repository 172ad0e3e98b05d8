package clustercache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	pr "github.com/unkn0wn-root/clustercache/provider"
	rp "github.com/unkn0wn-root/clustercache/provider/redis"
)

// ErrNotConnected is returned by store commands issued before Connect succeeded
// or after Close.
var ErrNotConnected = errors.New("clustercache: not connected")

// Connector owns the live connection handle to the cluster and the bounded
// reconnect loop that produces it. It implements provider.Provider by
// forwarding every command to the current handle.
type Connector struct {
	cfg        rp.ClusterConfig
	dial       DialFunc
	sleep      SleepFunc
	backoff    backoff.BackOff
	maxRetries int
	reconnect  bool
	match      []string
	log        Logger
	hooks      Hooks

	connectMu sync.Mutex // serializes connect sequences

	mu       sync.RWMutex
	handle   pr.Provider
	attempts int // dial attempts of the last connect sequence
}

var _ pr.Provider = (*Connector)(nil)

// NewConnector validates the connection options and builds the seed list.
// It does not dial; call Connect.
func NewConnector(opts Options) (*Connector, error) {
	host := coalesce(opts.Host, defaultHost)
	port := coalesce(opts.Port, defaultPort)
	seeds, err := BuildSeeds(host, port)
	if err != nil {
		return nil, err
	}
	if opts.Timeout < 0 {
		return nil, &ConfigurationError{Option: "timeout", Reason: "must not be negative"}
	}
	if opts.ReadTimeout < 0 {
		return nil, &ConfigurationError{Option: "read_timeout", Reason: "must not be negative"}
	}

	c := &Connector{
		cfg: rp.ClusterConfig{
			Seeds:       seeds,
			DialTimeout: coalesce(opts.Timeout, defaultTimeout),
			ReadTimeout: coalesce(opts.ReadTimeout, defaultTimeout),
			Persistent:  opts.Persistent,
			Username:    opts.Username,
			Password:    opts.Password,
			FlushNodes:  opts.FlushNodes,
		},
		maxRetries: max(opts.MaxReconnectTimes, 0),
		reconnect:  !opts.DisableReconnect,
		match:      opts.ReconnectErrors,
		log:        coalesce[Logger](opts.Logger, NopLogger{}),
		hooks:      coalesce[Hooks](opts.Hooks, NopHooks{}),
		dial:       opts.Dial,
		sleep:      opts.Sleep,
		backoff:    opts.Backoff,
	}
	if c.match == nil {
		c.match = defaultReconnectErrors
	}
	if c.dial == nil {
		c.dial = dialCluster
	}
	if c.sleep == nil {
		c.sleep = sleepCtx
	}
	if c.backoff == nil {
		c.backoff = backoff.NewConstantBackOff(coalesce(opts.ReconnectInterval, defaultReconnectInterval))
	}
	return c, nil
}

// Seeds returns a copy of the seed list.
func (c *Connector) Seeds() []string { return append([]string(nil), c.cfg.Seeds...) }

// Attempts returns the number of dial attempts made by the last connect sequence.
func (c *Connector) Attempts() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.attempts
}

// Handle returns the live connection handle, or nil before the first
// successful Connect.
func (c *Connector) Handle() pr.Provider {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.handle
}

// Connect runs one connect sequence. The attempt counter starts at zero.
// A failed dial is retried only while reconnect is enabled, the error message
// contains a reconnect-eligible substring and fewer than MaxReconnectTimes
// retries were made, so at most MaxReconnectTimes+1 dials happen. On success
// the previous handle, if any, is closed and replaced.
//
// The sleep between attempts blocks the caller; cancel ctx to abandon the
// sequence.
func (c *Connector) Connect(ctx context.Context) (pr.Provider, error) {
	c.connectMu.Lock()
	defer c.connectMu.Unlock()

	if len(c.cfg.Seeds) == 0 {
		return nil, &ConfigurationError{Option: "host", Reason: "no seed nodes"}
	}

	c.backoff.Reset()
	for attempt := 0; ; attempt++ {
		c.setAttempts(attempt + 1)

		p, err := c.dial(ctx, c.cfg)
		if err == nil {
			c.swap(p)
			c.log.Info("cluster connected", Fields{"seeds": c.cfg.Seeds, "attempts": attempt + 1})
			c.hooks.Connected(attempt + 1)
			return p, nil
		}

		if !c.eligible(err) {
			c.log.Error("cluster connect failed", Fields{"seeds": c.cfg.Seeds, "attempts": attempt + 1, "err": err})
			return nil, &ConnectionError{Seeds: c.Seeds(), Attempts: attempt + 1, Err: err}
		}

		delay := c.backoff.NextBackOff()
		if attempt >= c.maxRetries || delay == backoff.Stop {
			c.log.Error("cluster reconnect gave up", Fields{"seeds": c.cfg.Seeds, "attempts": attempt + 1, "err": err})
			c.hooks.ReconnectExhausted(attempt+1, err)
			return nil, &ConnectionError{Seeds: c.Seeds(), Attempts: attempt + 1, Err: err}
		}

		c.log.Warn("cluster connect failed, retrying", Fields{"attempt": attempt + 1, "delay": delay, "err": err})
		c.hooks.ReconnectScheduled(attempt+1, delay, err)
		if serr := c.sleep(ctx, delay); serr != nil {
			return nil, &ConnectionError{Seeds: c.Seeds(), Attempts: attempt + 1, Err: errors.Join(err, serr)}
		}
	}
}

// eligible reports whether err authorizes another attempt.
func (c *Connector) eligible(err error) bool {
	if !c.reconnect || err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range c.match {
		if s != "" && strings.Contains(msg, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

func (c *Connector) setAttempts(n int) {
	c.mu.Lock()
	c.attempts = n
	c.mu.Unlock()
}

func (c *Connector) swap(p pr.Provider) {
	c.mu.Lock()
	old := c.handle
	c.handle = p
	c.mu.Unlock()
	if old != nil && old != p {
		if err := old.Close(); err != nil {
			c.log.Warn("closing replaced handle failed", Fields{"err": err})
		}
	}
}

func (c *Connector) live() (pr.Provider, error) {
	h := c.Handle()
	if h == nil {
		return nil, ErrNotConnected
	}
	return h, nil
}

func (c *Connector) Exists(ctx context.Context, key string) (bool, error) {
	h, err := c.live()
	if err != nil {
		return false, err
	}
	return h.Exists(ctx, key)
}

func (c *Connector) Get(ctx context.Context, key string) ([]byte, bool, error) {
	h, err := c.live()
	if err != nil {
		return nil, false, err
	}
	return h.Get(ctx, key)
}

func (c *Connector) Set(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	h, err := c.live()
	if err != nil {
		return false, err
	}
	return h.Set(ctx, key, value, ttl)
}

func (c *Connector) IncrBy(ctx context.Context, key string, step int64) (int64, error) {
	h, err := c.live()
	if err != nil {
		return 0, err
	}
	return h.IncrBy(ctx, key, step)
}

func (c *Connector) DecrBy(ctx context.Context, key string, step int64) (int64, error) {
	h, err := c.live()
	if err != nil {
		return 0, err
	}
	return h.DecrBy(ctx, key, step)
}

func (c *Connector) Del(ctx context.Context, key string) (int64, error) {
	h, err := c.live()
	if err != nil {
		return 0, err
	}
	return h.Del(ctx, key)
}

func (c *Connector) FlushDB(ctx context.Context) error {
	h, err := c.live()
	if err != nil {
		return err
	}
	return h.FlushDB(ctx)
}

func (c *Connector) Append(ctx context.Context, key, member string) error {
	h, err := c.live()
	if err != nil {
		return err
	}
	return h.Append(ctx, key, member)
}

func (c *Connector) Range(ctx context.Context, key string) ([]string, error) {
	h, err := c.live()
	if err != nil {
		return nil, err
	}
	return h.Range(ctx, key)
}

// Close closes the live handle. Safe to call multiple times.
func (c *Connector) Close() error {
	c.mu.Lock()
	h := c.handle
	c.handle = nil
	c.mu.Unlock()
	if h == nil {
		return nil
	}
	return h.Close()
}

func dialCluster(ctx context.Context, cfg rp.ClusterConfig) (pr.Provider, error) {
	return rp.DialCluster(ctx, cfg)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Reconnect starts a new connect sequence and replaces the live handle.
func (c *Connector) Reconnect(ctx context.Context) (pr.Provider, error) { return c.Connect(ctx) }
