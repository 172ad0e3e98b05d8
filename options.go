package clustercache

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/spf13/cast"
)

const (
	defaultHost              = "127.0.0.1"
	defaultPort              = "6379"
	defaultTimeout           = 1500 * time.Millisecond
	defaultMaxReconnectTimes = 20
	defaultReconnectInterval = 500 * time.Millisecond
)

// defaultReconnectErrors are matched case-insensitively against dial errors.
var defaultReconnectErrors = []string{"Connection refused"}

// DefaultOptions returns the defaults of the flat option table.
func DefaultOptions() Options {
	return Options{
		Host:              defaultHost,
		Port:              defaultPort,
		Timeout:           defaultTimeout,
		ReadTimeout:       defaultTimeout,
		MaxReconnectTimes: defaultMaxReconnectTimes,
		ReconnectInterval: defaultReconnectInterval,
	}
}

// ParseOptions builds Options from a flat, named option table starting from
// DefaultOptions. Recognized keys:
//
//	host, port                comma-separated lists, paired by position
//	timeout, read_timeout     seconds (fractional allowed) or a duration string
//	expire                    default TTL in seconds; 0 = no expiry
//	persistent                keep connections open between requests
//	prefix                    prepended to every key
//	serialize                 structured-value envelope on/off
//	break_reconnect           retry connection setup on matched errors
//	max_reconnect_times       retry ceiling
//	reconnect_interval        pause between retries
//	username, password        cluster credentials
//
// Unknown keys are ignored. Malformed values yield *ConfigurationError.
func ParseOptions(table map[string]any) (Options, error) {
	o := DefaultOptions()
	for name, raw := range table {
		var err error
		switch strings.ToLower(name) {
		case "host":
			o.Host, err = cast.ToStringE(raw)
		case "port":
			o.Port, err = cast.ToStringE(raw)
		case "timeout":
			o.Timeout, err = parseSeconds(raw)
		case "read_timeout":
			o.ReadTimeout, err = parseSeconds(raw)
		case "expire":
			o.Expire, err = parseSeconds(raw)
		case "reconnect_interval":
			o.ReconnectInterval, err = parseSeconds(raw)
		case "persistent":
			o.Persistent, err = cast.ToBoolE(raw)
		case "prefix":
			o.Prefix, err = cast.ToStringE(raw)
		case "username":
			o.Username, err = cast.ToStringE(raw)
		case "password":
			o.Password, err = cast.ToStringE(raw)
		case "serialize":
			var on bool
			on, err = cast.ToBoolE(raw)
			o.DisableSerialize = !on
		case "break_reconnect":
			var on bool
			on, err = cast.ToBoolE(raw)
			o.DisableReconnect = !on
		case "max_reconnect_times":
			o.MaxReconnectTimes, err = cast.ToIntE(raw)
			if err == nil && o.MaxReconnectTimes < 0 {
				err = fmt.Errorf("must not be negative")
			}
		default:
			continue
		}
		if err != nil {
			return Options{}, &ConfigurationError{Option: name, Reason: fmt.Sprintf("bad value %v", raw), Err: err}
		}
	}
	if _, err := BuildSeeds(o.Host, o.Port); err != nil {
		return Options{}, err
	}
	return o, nil
}

// parseSeconds accepts a number of seconds (int, float or numeric string) or
// a Go duration string such as "1500ms".
func parseSeconds(v any) (time.Duration, error) {
	switch x := v.(type) {
	case time.Duration:
		if x < 0 {
			return 0, fmt.Errorf("must not be negative")
		}
		return x, nil
	case string:
		s := strings.TrimSpace(x)
		if s != "" && strings.IndexFunc(s, unicode.IsLetter) >= 0 {
			return time.ParseDuration(s)
		}
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, err
	}
	if f < 0 {
		return 0, fmt.Errorf("must not be negative")
	}
	return time.Duration(f * float64(time.Second)), nil
}

// BuildSeeds pairs the comma-separated host and port lists into host:port
// seeds. Port i belongs to host i; a missing or empty port falls back to the
// first port. An empty host list yields no seeds.
func BuildSeeds(host, port string) ([]string, error) {
	if strings.TrimSpace(host) == "" {
		return nil, nil
	}
	hosts := splitList(host)
	ports := splitList(port)
	if len(ports) == 0 || ports[0] == "" {
		return nil, &ConfigurationError{Option: "port", Reason: "empty port list"}
	}
	for i, p := range ports {
		if p == "" {
			continue
		}
		if n, err := strconv.Atoi(p); err != nil || n < 1 || n > 65535 {
			return nil, &ConfigurationError{Option: "port", Reason: fmt.Sprintf("entry %d %q is not a valid port", i, p)}
		}
	}

	seeds := make([]string, len(hosts))
	for i, h := range hosts {
		if h == "" {
			return nil, &ConfigurationError{Option: "host", Reason: fmt.Sprintf("entry %d is empty", i)}
		}
		if strings.IndexFunc(h, unicode.IsSpace) >= 0 {
			return nil, &ConfigurationError{Option: "host", Reason: fmt.Sprintf("entry %d %q contains whitespace", i, h)}
		}
		p := ports[0]
		if i < len(ports) && ports[i] != "" {
			p = ports[i]
		}
		seeds[i] = h + ":" + p
	}
	return seeds, nil
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
