// Package logrus adapts a *logrus.Entry to clustercache.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/clustercache"
)

var _ clustercache.Logger = Logger{}

// Logger forwards to E. An error under "err" is attached with WithError.
type Logger struct{ E *logrus.Entry }

// New tags every entry with component=clustercache.
func New(l *logrus.Logger) Logger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return Logger{E: l.WithField("component", "clustercache")}
}

func (l Logger) Debug(msg string, f clustercache.Fields) { l.entry(f).Debug(msg) }
func (l Logger) Info(msg string, f clustercache.Fields)  { l.entry(f).Info(msg) }
func (l Logger) Warn(msg string, f clustercache.Fields)  { l.entry(f).Warn(msg) }
func (l Logger) Error(msg string, f clustercache.Fields) { l.entry(f).Error(msg) }

func (l Logger) entry(f clustercache.Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.E
	}
	lf := make(logrus.Fields, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok && k == "err" {
			lf[logrus.ErrorKey] = err
			continue
		}
		lf[k] = v
	}
	return l.E.WithFields(lf)
}
