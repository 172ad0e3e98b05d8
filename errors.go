package clustercache

import (
	"fmt"
	"strings"
)

// ConfigurationError reports a malformed option. It is returned at
// construction and never retried.
type ConfigurationError struct {
	Option string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("clustercache: invalid option %q: %s", e.Option, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ConnectionError reports a connect sequence that gave up, either because the
// failure was not reconnect-eligible or because the attempt ceiling was hit.
type ConnectionError struct {
	Seeds    []string
	Attempts int
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("clustercache: connect to [%s] failed after %d attempt(s): %v",
		strings.Join(e.Seeds, ","), e.Attempts, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// StoreOperationError wraps a failed store command. Op is one of
// has, get, set, inc, dec, rm, clear, tag.
type StoreOperationError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreOperationError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("clustercache: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("clustercache: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StoreOperationError) Unwrap() error { return e.Err }
