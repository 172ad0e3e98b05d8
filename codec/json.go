package codec

import (
	"encoding/json"
	"fmt"
)

func encodeStructured(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("codec: encode %T: %w", v, err)
	}
	return b, nil
}

// decodeStructured parses payload into a native tree: map[string]any, []any,
// float64, string, bool or nil. Object keys are kept as strings.
func decodeStructured(payload []byte) (any, error) {
	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, fmt.Errorf("codec: decode envelope: %w", err)
	}
	return v, nil
}

func decodeStructuredInto(payload []byte, dst any) error {
	if err := json.Unmarshal(payload, dst); err != nil {
		return fmt.Errorf("codec: decode envelope into %T: %w", dst, err)
	}
	return nil
}
