package wire

import (
	"bytes"
	"errors"
)

var ErrNoMarker = errors.New("clustercache: value is not enveloped")

// HasMarker reports whether b starts with marker. An empty marker never matches.
func HasMarker(b []byte, marker string) bool {
	return len(marker) > 0 && len(b) >= len(marker) && string(b[:len(marker)]) == marker
}

// Frame: marker | payload
func Frame(marker string, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(len(marker) + len(payload))
	buf.WriteString(marker)
	buf.Write(payload)
	return buf.Bytes()
}

// Unframe strips marker and returns the payload as a sub-slice of b (no copy).
func Unframe(marker string, b []byte) ([]byte, error) {
	if !HasMarker(b, marker) {
		return nil, ErrNoMarker
	}
	return b[len(marker):], nil
}
