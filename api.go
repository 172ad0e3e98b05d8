package clustercache

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	pr "github.com/unkn0wn-root/clustercache/provider"
	rp "github.com/unkn0wn-root/clustercache/provider/redis"
)

// Counters exposes the read/write counters a host framework expects from a
// cache driver.
type Counters interface {
	ReadTimes() int64
	WriteTimes() int64
}

// Cache is the driver surface consumed by a host framework.
type Cache interface {
	Counters

	Has(ctx context.Context, name string) (bool, error)
	// Get returns def unchanged when name is absent.
	Get(ctx context.Context, name string, def any) (any, error)
	// Set uses Options.Expire when expire is omitted; an explicit 0 disables expiry.
	Set(ctx context.Context, name string, value any, expire ...time.Duration) (bool, error)
	Inc(ctx context.Context, name string, step int64) (int64, error)
	Dec(ctx context.Context, name string, step int64) (int64, error)
	Delete(ctx context.Context, name string) (bool, error)
	// Clear flushes the active database on the whole cluster.
	Clear(ctx context.Context) (bool, error)
	// ClearTag removes every key written under tag, then the tag record.
	ClearTag(ctx context.Context, tag string) (bool, error)
}

var _ Cache = (*Driver)(nil)

// DialFunc opens one connection handle from the full seed list.
type DialFunc func(ctx context.Context, cfg rp.ClusterConfig) (pr.Provider, error)

// SleepFunc waits d between reconnect attempts.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Options configure a Driver. The flat option table understood by
// ParseOptions maps onto these fields; DefaultOptions returns its defaults.
type Options struct {
	Host string // comma-separated node hosts; "" => 127.0.0.1
	Port string // comma-separated ports paired with Host; first port is the fallback; "" => 6379

	Timeout     time.Duration // connect; 0 => 1.5s
	ReadTimeout time.Duration // 0 => 1.5s
	Persistent  bool
	Username    string
	Password    string

	Prefix string        // prepended to every key
	Expire time.Duration // default TTL; 0 => no expiry

	DisableSerialize bool   // store every value in its natural string form
	Marker           string // envelope marker; "" => codec.DefaultMarker
	MaxDecode        int    // reject stored values larger than this; 0 => unlimited

	DisableReconnect  bool
	MaxReconnectTimes int             // retries after the first attempt; 0 => none
	ReconnectInterval time.Duration   // constant backoff; 0 => 500ms
	Backoff           backoff.BackOff // overrides ReconnectInterval, e.g. backoff.NewExponentialBackOff()
	ReconnectErrors   []string        // reconnect-eligible substrings; nil => "Connection refused"

	FlushNodes []string // restrict Clear to these master addresses; nil => every master

	Logger Logger    // if nil, NopLogger is used
	Hooks  Hooks     // if nil, NopHooks is used
	Dial   DialFunc  // nil => redis cluster dial
	Sleep  SleepFunc // nil => timer sleep that honors ctx
}

// New connects to the cluster and returns a ready Driver. Connection setup is
// retried per the reconnect options; failures surface as *ConfigurationError
// or *ConnectionError.
func New(ctx context.Context, opts Options) (*Driver, error) {
	if err := validateDriver(opts); err != nil {
		return nil, err
	}
	conn, err := NewConnector(opts)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Connect(ctx); err != nil {
		return nil, err
	}
	d, err := newDriver(conn, opts)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return d, nil
}

// Open is New with a flat option table, see ParseOptions.
func Open(ctx context.Context, table map[string]any) (*Driver, error) {
	opts, err := ParseOptions(table)
	if err != nil {
		return nil, err
	}
	return New(ctx, opts)
}
