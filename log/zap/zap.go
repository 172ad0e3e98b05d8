// Package zap adapts a *zap.Logger to clustercache.Logger.
package zap

import (
	"sort"

	"go.uber.org/zap"

	"github.com/unkn0wn-root/clustercache"
)

var _ clustercache.Logger = Logger{}

// Logger forwards to L. Fields named "err" become zap.Error fields.
type Logger struct{ L *zap.Logger }

// New names the logger "clustercache"; a nil l yields a no-op logger.
func New(l *zap.Logger) Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return Logger{L: l.Named("clustercache")}
}

func (z Logger) Debug(msg string, f clustercache.Fields) { z.L.Debug(msg, fields(f)...) }
func (z Logger) Info(msg string, f clustercache.Fields)  { z.L.Info(msg, fields(f)...) }
func (z Logger) Warn(msg string, f clustercache.Fields)  { z.L.Warn(msg, fields(f)...) }
func (z Logger) Error(msg string, f clustercache.Fields) { z.L.Error(msg, fields(f)...) }

func fields(f clustercache.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(f))
	for _, k := range keys {
		v := f[k]
		if err, ok := v.(error); ok && k == "err" {
			out = append(out, zap.Error(err))
			continue
		}
		out = append(out, zap.Any(k, v))
	}
	return out
}
