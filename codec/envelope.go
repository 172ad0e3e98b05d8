package codec

import (
	"fmt"

	"github.com/spf13/cast"

	"github.com/unkn0wn-root/clustercache/internal/wire"
)

// DefaultMarker prefixes every structured value written by Envelope.
const DefaultMarker = "think_serialize:"

// Envelope stores scalars in their natural string form and everything else
// as Marker followed by a JSON document.
//
// Scalars bypass the envelope so that counters stay store-native
// and INCRBY/DECRBY can operate on the stored bytes directly.
//
// The zero value is ready to use.
type Envelope struct {
	// Marker overrides DefaultMarker when non-empty.
	Marker string
	// Disabled turns structured encoding off: every value is written in its
	// natural string form and stored bytes are never unwrapped on read.
	Disabled bool
}

var _ Codec = Envelope{}

func (e Envelope) marker() string {
	if e.Marker == "" {
		return DefaultMarker
	}
	return e.Marker
}

// Encode stores a scalar raw unless its text starts with the marker; such a
// scalar is enveloped as a JSON string so Decode gives the same text back.
func (e Envelope) Encode(v any) ([]byte, error) {
	if b, ok := v.([]byte); ok {
		if e.collides(b) {
			return e.frameString(string(b))
		}
		return b, nil
	}
	if s, ok := scalarString(v); ok {
		if e.collides([]byte(s)) {
			return e.frameString(s)
		}
		return []byte(s), nil
	}
	if e.Disabled {
		s, err := cast.ToStringE(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %T", ErrUnsupported, v)
		}
		return []byte(s), nil
	}
	payload, err := encodeStructured(v)
	if err != nil {
		return nil, err
	}
	return wire.Frame(e.marker(), payload), nil
}

func (e Envelope) collides(b []byte) bool {
	return !e.Disabled && wire.HasMarker(b, e.marker())
}

func (e Envelope) frameString(s string) ([]byte, error) {
	payload, err := encodeStructured(s)
	if err != nil {
		return nil, err
	}
	return wire.Frame(e.marker(), payload), nil
}

// Decode returns the structured tree for enveloped values and string(b) otherwise.
func (e Envelope) Decode(b []byte) (any, error) {
	if payload, ok := e.unwrap(b); ok {
		return decodeStructured(payload)
	}
	return string(b), nil
}

func (e Envelope) DecodeInto(b []byte, dst any) error {
	if payload, ok := e.unwrap(b); ok {
		return decodeStructuredInto(payload, dst)
	}
	return decodeRawInto(b, dst)
}

// IsEnveloped reports whether b would be decoded as a structured value.
func (e Envelope) IsEnveloped(b []byte) bool {
	_, ok := e.unwrap(b)
	return ok
}

func (e Envelope) unwrap(b []byte) ([]byte, bool) {
	if e.Disabled {
		return nil, false
	}
	payload, err := wire.Unframe(e.marker(), b)
	if err != nil {
		return nil, false
	}
	return payload, true
}
