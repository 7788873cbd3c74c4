package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration is a time.Duration that marshals as integer milliseconds, the
// unit the client runtime works in.
type Duration time.Duration

// MarshalJSON encodes the duration as milliseconds.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).Milliseconds())
}

// UnmarshalJSON decodes integer milliseconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var ms int64
	if err := json.Unmarshal(data, &ms); err != nil {
		return err
	}
	*d = Duration(time.Duration(ms) * time.Millisecond)
	return nil
}

// Std returns the standard library duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// ModifierType discriminates the Modifier variant.
type ModifierType string

const (
	ModDebounce    ModifierType = "debounce"
	ModThrottle    ModifierType = "throttle"
	ModOptimistic  ModifierType = "optimistic"
	ModCache       ModifierType = "cache"
	ModClientState ModifierType = "client_state"
)

// Modifier is one declared event behavior for a handler. Only the fields
// of the declared Type are meaningful; the rest stay zero and are omitted
// on the wire.
type Modifier struct {
	Type ModifierType `json:"type"`

	// Debounce
	Wait    Duration `json:"wait,omitempty"`
	MaxWait Duration `json:"max_wait,omitempty"`

	// Throttle
	Interval Duration `json:"interval,omitempty"`
	Leading  bool     `json:"leading,omitempty"`
	Trailing bool     `json:"trailing,omitempty"`

	// Cache
	TTL       Duration `json:"ttl,omitempty"`
	KeyParams []string `json:"key_params,omitempty"`

	// ClientState
	Keys []string `json:"keys,omitempty"`
}

// Debounce delays dispatch until wait has elapsed with no further calls.
// A non-zero maxWait bounds how long a continuous burst can suppress the
// dispatch.
func Debounce(wait, maxWait time.Duration) Modifier {
	return Modifier{Type: ModDebounce, Wait: Duration(wait), MaxWait: Duration(maxWait)}
}

// Throttle caps dispatch to once per interval, firing on the leading
// and/or trailing edge of a burst.
func Throttle(interval time.Duration, leading, trailing bool) Modifier {
	return Modifier{Type: ModThrottle, Interval: Duration(interval), Leading: leading, Trailing: trailing}
}

// Optimistic applies an instant local mutation to the source element
// before the event is dispatched, reverted if the server reports an error.
func Optimistic() Modifier {
	return Modifier{Type: ModOptimistic}
}

// Cache replays the server's patches for repeated calls with the same key
// parameters within ttl, skipping the network entirely.
func Cache(ttl time.Duration, keyParams ...string) Modifier {
	return Modifier{Type: ModCache, TTL: Duration(ttl), KeyParams: keyParams}
}

// ClientState publishes the named event parameters on the client state bus
// before dispatch, synchronously notifying every other subscribed handler.
func ClientState(keys ...string) Modifier {
	return Modifier{Type: ModClientState, Keys: keys}
}

// ConfigError reports an invalid modifier declaration. Configuration
// errors are detected when the registry is built, never at dispatch time.
type ConfigError struct {
	Handler string
	Reason  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("protocol: handler %q: %s", e.Handler, e.Reason)
}

// validate checks a single handler's modifier list.
func validate(handler string, mods []Modifier) error {
	fail := func(reason string) error {
		return &ConfigError{Handler: handler, Reason: reason}
	}

	seen := make(map[ModifierType]bool, len(mods))
	for _, m := range mods {
		if seen[m.Type] {
			return fail(fmt.Sprintf("duplicate %s modifier", m.Type))
		}
		seen[m.Type] = true

		switch m.Type {
		case ModDebounce:
			if m.Wait <= 0 {
				return fail("debounce wait must be positive")
			}
			if m.MaxWait != 0 && m.MaxWait < m.Wait {
				return fail("debounce max_wait must be >= wait")
			}
		case ModThrottle:
			if m.Interval <= 0 {
				return fail("throttle interval must be positive")
			}
			if !m.Leading && !m.Trailing {
				return fail("throttle needs at least one of leading/trailing")
			}
		case ModOptimistic:
			// No parameters.
		case ModCache:
			if m.TTL <= 0 {
				return fail("cache ttl must be positive")
			}
		case ModClientState:
			if len(m.Keys) == 0 {
				return fail("client_state needs at least one key")
			}
		default:
			return fail(fmt.Sprintf("unknown modifier type %q", m.Type))
		}
	}

	if seen[ModDebounce] && seen[ModThrottle] {
		return fail("debounce and throttle are mutually exclusive")
	}
	return nil
}
