package clustercache

import "time"

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
type Hooks interface {
	// A connect attempt failed with a reconnect-eligible error; attempt+1
	// follows after delay.
	ReconnectScheduled(attempt int, delay time.Duration, err error)

	// The attempt ceiling was reached with a reconnect-eligible error.
	ReconnectExhausted(attempts int, err error)

	// A connect sequence succeeded after attempts dials.
	Connected(attempts int)

	// A tag clear finished; deleted counts members that still existed.
	TagCleared(tag string, deleted int)

	// A tag clear failed part way. The tag record may be stale.
	TagClearFailed(tag string, err error)

	// A stored value could not be decoded.
	DecodeFailed(storageKey string, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) ReconnectScheduled(int, time.Duration, error) {}
func (NopHooks) ReconnectExhausted(int, error)                {}
func (NopHooks) Connected(int)                                {}
func (NopHooks) TagCleared(string, int)                       {}
func (NopHooks) TagClearFailed(string, error)                 {}
func (NopHooks) DecodeFailed(string, error)                   {}
