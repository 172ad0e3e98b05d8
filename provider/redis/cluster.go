package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ClusterConfig describes one connection attempt against a cluster.
type ClusterConfig struct {
	Seeds       []string // host:port entries; topology is discovered from them
	DialTimeout time.Duration
	ReadTimeout time.Duration
	// Persistent keeps at least one idle connection per node open and never
	// reaps idle connections.
	Persistent bool
	Username   string
	Password   string
	FlushNodes []string
}

func (cfg ClusterConfig) options() *goredis.ClusterOptions {
	opts := &goredis.ClusterOptions{
		Addrs:       cfg.Seeds,
		Username:    cfg.Username,
		Password:    cfg.Password,
		DialTimeout: cfg.DialTimeout,
		ReadTimeout: cfg.ReadTimeout,
		// the option table has no write timeout; writes share the read budget
		WriteTimeout: cfg.ReadTimeout,
		// read-only commands go to a random node, primary or replica
		ReadOnly:      true,
		RouteRandomly: true,
	}
	if cfg.Persistent {
		opts.MinIdleConns = 1
		opts.ConnMaxIdleTime = -1
	}
	return opts
}

// DialCluster builds a cluster client from the whole seed list in one call and
// verifies it with PING, so refused connections surface here instead of on the
// first command. The returned provider owns the client.
func DialCluster(ctx context.Context, cfg ClusterConfig) (*Redis, error) {
	rdb := goredis.NewClusterClient(cfg.options())
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return New(Config{Client: rdb, CloseClient: true, FlushNodes: cfg.FlushNodes})
}
