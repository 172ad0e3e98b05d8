package codec

import "errors"

var (
	// ErrUnsupported is returned when a value has no natural string form and
	// structured encoding is disabled.
	ErrUnsupported = errors.New("codec: value has no scalar form")
	// ErrTooLarge is returned by LimitCodec for payloads over MaxDecode.
	ErrTooLarge = errors.New("codec: payload too large")
)

// Codec converts application values to stored bytes and back.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(b []byte) (any, error)
	DecodeInto(b []byte, dst any) error
}
