package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/unkn0wn-root/clustercache"
	"github.com/unkn0wn-root/clustercache/config"
	zaplog "github.com/unkn0wn-root/clustercache/log/zap"
	"github.com/unkn0wn-root/clustercache/sloghooks"
)

var (
	v      = config.NewViper()
	driver *clustercache.Driver
	dial   clustercache.DialFunc // nil dials the cluster

	rootCmd = &cobra.Command{
		Use:   "clustercache",
		Short: "Inspect and invalidate a clustercache keyspace",
		Long: `clustercache talks to a Redis Cluster the same way the cache driver does:
same key prefix, same value envelope, same tag records.

Connection options come from flags, CLUSTERCACHE_* environment variables,
.env / .env.local files, or a config file given with --config.`,
		SilenceUsage:       true,
		PersistentPreRunE:  connect,
		PersistentPostRunE: disconnect,
	}
)

// flag name -> option key
var flagKeys = map[string]string{
	"host":                "host",
	"port":                "port",
	"timeout":             "timeout",
	"read-timeout":        "read_timeout",
	"prefix":              "prefix",
	"serialize":           "serialize",
	"expire":              "expire",
	"max-reconnect-times": "max_reconnect_times",
	"username":            "username",
	"password":            "password",
}

func init() {
	f := rootCmd.PersistentFlags()
	f.String("config", "", "config file (yaml, json, toml, env)")
	f.String("host", "127.0.0.1", "comma-separated cluster node hosts")
	f.String("port", "6379", "comma-separated ports paired with --host; the first is the fallback")
	f.Float64("timeout", 1.5, "connect timeout in seconds")
	f.Float64("read-timeout", 1.5, "read timeout in seconds")
	f.String("prefix", "", "key prefix")
	f.Bool("serialize", true, "decode structured values")
	f.Int("expire", 0, "default TTL in seconds for set")
	f.Int("max-reconnect-times", 20, "connect retries on refused connections")
	f.String("username", "", "cluster username")
	f.String("password", "", "cluster password")
	f.Bool("verbose", false, "log connection events to stderr")

	rootCmd.AddCommand(getCmd, setCmd, hasCmd, delCmd, incCmd, decCmd, clearCmd, tagCmd)
}

func connect(cmd *cobra.Command, _ []string) error {
	if err := config.LoadEnv(); err != nil {
		return err
	}
	flags := cmd.Flags()
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return err
		}
	}
	if path, _ := flags.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return err
		}
	}

	opts, err := config.Load(v)
	if err != nil {
		return err
	}
	if verbose, _ := flags.GetBool("verbose"); verbose {
		zl, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		opts.Logger = zaplog.New(zl)
		opts.Hooks = sloghooks.New(slog.New(slog.NewTextHandler(os.Stderr, nil)), sloghooks.Options{})
	}

	opts.Dial = dial
	driver, err = clustercache.New(ctxOf(cmd), opts)
	return err
}

func disconnect(*cobra.Command, []string) error {
	if driver == nil {
		return nil
	}
	return driver.Close()
}

func ctxOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
