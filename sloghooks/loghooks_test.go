package sloghooks

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestHooksRedactAndSample(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := New(l, Options{RetryEvery: 2})

	h.DecodeFailed("app:user:42", errors.New("bad envelope"))
	out := buf.String()
	if strings.Contains(out, "app:user:42") {
		t.Fatalf("storage key leaked: %s", out)
	}
	if !strings.Contains(out, "key="+h.redact("app:user:42")) {
		t.Fatalf("redacted key missing: %s", out)
	}

	buf.Reset()
	for i := 1; i <= 4; i++ {
		h.ReconnectScheduled(i, time.Millisecond, errors.New("connection refused"))
	}
	if n := strings.Count(buf.String(), "reconnect_scheduled"); n != 2 {
		t.Fatalf("sampled %d of 4 retries, want 2", n)
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	h := New(nil, Options{})
	h.Connected(1)
	h.TagCleared("t", 1)
	h.TagClearFailed("t", errors.New("x"))
	h.ReconnectExhausted(3, errors.New("x"))
}
