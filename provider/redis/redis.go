package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	pr "github.com/unkn0wn-root/clustercache/provider"
)

var ErrNilClient = errors.New("redis provider: nil client")

type Redis struct {
	rdb         goredis.UniversalClient
	closeClient bool
	// flushNodes limits FlushDB to these master addresses; empty means every master.
	flushNodes map[string]struct{}
}

var _ pr.Provider = (*Redis)(nil)

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool     // set true only if this provider exclusively owns the client
	FlushNodes  []string // optional master addresses for FlushDB
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &Redis{
		rdb:         cfg.Client,
		closeClient: cfg.CloseClient,
		flushNodes:  addrSet(cfg.FlushNodes),
	}, nil
}

// Client exposes the underlying go-redis client.
func (p *Redis) Client() goredis.UniversalClient { return p.rdb }

func (p *Redis) Exists(ctx context.Context, key string) (bool, error) {
	n, err := p.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (p *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := p.rdb.Get(ctx, key).Bytes()
	if err == goredis.Nil {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err // transport/server error
	}
	return b, true, nil
}

func (p *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	var (
		res string
		err error
	)
	if ttl > 0 {
		res, err = p.rdb.SetEx(ctx, key, value, wholeSeconds(ttl)).Result()
	} else {
		res, err = p.rdb.Set(ctx, key, value, 0).Result()
	}
	if err != nil {
		return false, err
	}
	return res == "OK", nil
}

func (p *Redis) IncrBy(ctx context.Context, key string, step int64) (int64, error) {
	return p.rdb.IncrBy(ctx, key, step).Result()
}

func (p *Redis) DecrBy(ctx context.Context, key string, step int64) (int64, error) {
	return p.rdb.DecrBy(ctx, key, step).Result()
}

func (p *Redis) Del(ctx context.Context, key string) (int64, error) {
	return p.rdb.Del(ctx, key).Result()
}

// FlushDB on a cluster client runs against masters only; replicas follow.
func (p *Redis) FlushDB(ctx context.Context) error {
	cc, ok := p.rdb.(*goredis.ClusterClient)
	if !ok {
		return p.rdb.FlushDB(ctx).Err()
	}
	return cc.ForEachMaster(ctx, func(ctx context.Context, node *goredis.Client) error {
		if len(p.flushNodes) > 0 {
			if _, ok := p.flushNodes[node.Options().Addr]; !ok {
				return nil
			}
		}
		return node.FlushDB(ctx).Err()
	})
}

func (p *Redis) Append(ctx context.Context, key, member string) error {
	return p.rdb.RPush(ctx, key, member).Err()
}

func (p *Redis) Range(ctx context.Context, key string) ([]string, error) {
	return p.rdb.LRange(ctx, key, 0, -1).Result()
}

// Close releases the underlying redis client only when this provider owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (p *Redis) Close() error {
	if p.closeClient {
		if err := p.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}

// wholeSeconds rounds a positive ttl up to the next whole second; SETEX has
// second granularity and a sub-second ttl must not turn into "no expiry".
func wholeSeconds(ttl time.Duration) time.Duration {
	if r := ttl % time.Second; r != 0 {
		ttl += time.Second - r
	}
	return ttl
}

func addrSet(addrs []string) map[string]struct{} {
	if len(addrs) == 0 {
		return nil
	}
	m := make(map[string]struct{}, len(addrs))
	for _, a := range addrs {
		m[a] = struct{}{}
	}
	return m
}
