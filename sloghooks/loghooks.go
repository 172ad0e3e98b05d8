// Package sloghooks reports clustercache events to a *slog.Logger.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/clustercache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	RetryEvery  uint64
	DecodeEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	retryCtr  atomic.Uint64
	decodeCtr atomic.Uint64
}

var _ clustercache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) ReconnectScheduled(attempt int, delay time.Duration, err error) {
	if h.l == nil || !sample(h.opts.RetryEvery, &h.retryCtr) {
		return
	}
	h.l.Warn("clustercache.reconnect_scheduled",
		"attempt", attempt,
		"delay", delay,
		"err", err)
}

func (h *Hooks) ReconnectExhausted(attempts int, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("clustercache.reconnect_exhausted",
		"attempts", attempts,
		"err", err)
}

func (h *Hooks) Connected(attempts int) {
	if h.l == nil {
		return
	}
	h.l.Info("clustercache.connected", "attempts", attempts)
}

// Tag names are logged verbatim; they are labels, not keys.
func (h *Hooks) TagCleared(tag string, deleted int) {
	if h.l == nil {
		return
	}
	h.l.Debug("clustercache.tag_cleared",
		"tag", tag,
		"deleted", deleted)
}

func (h *Hooks) TagClearFailed(tag string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("clustercache.tag_clear_failed",
		"tag", tag,
		"err", err)
}

func (h *Hooks) DecodeFailed(storageKey string, err error) {
	if h.l == nil || !sample(h.opts.DecodeEvery, &h.decodeCtr) {
		return
	}
	h.l.Warn("clustercache.decode_failed",
		"key", h.redact(storageKey),
		"err", err)
}
