package codec

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/spf13/cast"
)

// scalarString returns the natural string form of v when v is a primitive
// scalar (bool, number, string, []byte), including named types of those kinds.
func scalarString(v any) (string, bool) {
	switch s := v.(type) {
	case nil:
		return "", false
	case string:
		return s, true
	case []byte:
		return string(s), true
	case json.Number:
		return s.String(), true
	case bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64:
		str, err := cast.ToStringE(s)
		return str, err == nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), true
	case reflect.Bool:
		return cast.ToString(rv.Bool()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return cast.ToString(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return cast.ToString(rv.Uint()), true
	case reflect.Float32:
		return cast.ToString(float32(rv.Float())), true
	case reflect.Float64:
		return cast.ToString(rv.Float()), true
	}
	return "", false
}

// decodeRawInto assigns a raw (non-enveloped) stored value to dst.
// Basic kinds are converted from the stored text with cast; other targets
// are parsed as JSON.
func decodeRawInto(b []byte, dst any) error {
	var err error
	text := string(b)
	switch d := dst.(type) {
	case *string:
		*d = text
	case *[]byte:
		*d = append((*d)[:0], b...)
	case *any:
		*d = text
	case *bool:
		*d, err = cast.ToBoolE(text)
	case *int:
		*d, err = cast.ToIntE(text)
	case *int8:
		*d, err = cast.ToInt8E(text)
	case *int16:
		*d, err = cast.ToInt16E(text)
	case *int32:
		*d, err = cast.ToInt32E(text)
	case *int64:
		*d, err = cast.ToInt64E(text)
	case *uint:
		*d, err = cast.ToUintE(text)
	case *uint8:
		*d, err = cast.ToUint8E(text)
	case *uint16:
		*d, err = cast.ToUint16E(text)
	case *uint32:
		*d, err = cast.ToUint32E(text)
	case *uint64:
		*d, err = cast.ToUint64E(text)
	case *float32:
		*d, err = cast.ToFloat32E(text)
	case *float64:
		*d, err = cast.ToFloat64E(text)
	default:
		err = json.Unmarshal(b, dst)
	}
	if err != nil {
		return fmt.Errorf("codec: raw value %q not convertible to %T: %w", b, dst, err)
	}
	return nil
}
