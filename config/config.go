// Package config loads clustercache options from environment variables,
// .env files, config files and command line flags through viper.
package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/unkn0wn-root/clustercache"
)

// EnvPrefix is prepended to every environment variable, e.g. CLUSTERCACHE_HOST.
const EnvPrefix = "clustercache"

// Keys are the option names understood by clustercache.ParseOptions.
var Keys = []string{
	"host",
	"port",
	"timeout",
	"read_timeout",
	"expire",
	"persistent",
	"prefix",
	"serialize",
	"break_reconnect",
	"max_reconnect_times",
	"reconnect_interval",
	"username",
	"password",
}

// NewViper returns a viper instance reading CLUSTERCACHE_* variables.
// Dashes in keys map to underscores so flag-style names work too.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadEnv loads .env style files into the process environment. Missing files
// are skipped; variables already set win.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env", ".env.local"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Load builds Options from every key set in v. Unset keys keep the
// clustercache defaults.
func Load(v *viper.Viper) (clustercache.Options, error) {
	return clustercache.ParseOptions(Table(v))
}

// LoadFile reads a config file (any format viper knows) and then Load.
// Environment variables override file values.
func LoadFile(path string) (clustercache.Options, error) {
	v := NewViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return clustercache.Options{}, err
	}
	return Load(v)
}

// Table returns the flat option table held by v.
func Table(v *viper.Viper) map[string]any {
	table := make(map[string]any, len(Keys))
	for _, k := range Keys {
		if v.IsSet(k) {
			table[k] = v.Get(k)
		}
	}
	return table
}
