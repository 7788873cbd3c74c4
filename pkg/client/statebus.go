package client

// StateBus coordinates handlers across components without a server round
// trip. Each key tracks its last published value and the set of
// subscribed handlers; a publish synchronously invokes every subscriber
// except the publisher before returning. Only the pipeline writes to it.
type StateBus struct {
	entries map[string]*busEntry
}

type busEntry struct {
	value    any
	hasValue bool
	order    []string // subscriber invocation order
	subs     map[string]func(value any)
}

// NewStateBus creates an empty bus.
func NewStateBus() *StateBus {
	return &StateBus{entries: make(map[string]*busEntry)}
}

// Subscribe registers subscriber's callback for key, replacing any prior
// callback for the same subscriber. If the key has a value, fn is invoked
// with it immediately so late subscribers catch up.
func (b *StateBus) Subscribe(key, subscriber string, fn func(value any)) {
	entry := b.entries[key]
	if entry == nil {
		entry = &busEntry{subs: make(map[string]func(value any))}
		b.entries[key] = entry
	}
	if _, ok := entry.subs[subscriber]; !ok {
		entry.order = append(entry.order, subscriber)
	}
	entry.subs[subscriber] = fn
	if entry.hasValue {
		fn(entry.value)
	}
}

// Unsubscribe removes subscriber's callback for key.
func (b *StateBus) Unsubscribe(key, subscriber string) {
	entry := b.entries[key]
	if entry == nil {
		return
	}
	if _, ok := entry.subs[subscriber]; !ok {
		return
	}
	delete(entry.subs, subscriber)
	for i, name := range entry.order {
		if name == subscriber {
			entry.order = append(entry.order[:i], entry.order[i+1:]...)
			break
		}
	}
}

// Publish stores value under key and synchronously invokes every
// subscriber except publisher, in subscription order, before returning.
func (b *StateBus) Publish(key string, value any, publisher string) {
	entry := b.entries[key]
	if entry == nil {
		entry = &busEntry{subs: make(map[string]func(value any))}
		b.entries[key] = entry
	}
	entry.value = value
	entry.hasValue = true

	// Snapshot so a callback can subscribe or unsubscribe safely.
	names := append([]string(nil), entry.order...)
	for _, name := range names {
		if name == publisher {
			continue
		}
		if fn, ok := entry.subs[name]; ok {
			fn(value)
		}
	}
}

// Last returns the most recently published value for key.
func (b *StateBus) Last(key string) (any, bool) {
	entry := b.entries[key]
	if entry == nil || !entry.hasValue {
		return nil, false
	}
	return entry.value, true
}
