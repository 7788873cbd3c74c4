package protocol

import "sort"

// Registry maps handler names to their declared modifier lists. It is
// built once at bind time and read-only afterwards, so it is safe to share
// across every connection without locking.
type Registry struct {
	handlers map[string][]Modifier
	names    []string
}

// NewRegistry validates the declarations and builds a registry. Handlers
// without modifiers may be declared with an empty or nil list; they still
// appear in the registry so the client knows the handler exists.
func NewRegistry(defs map[string][]Modifier) (*Registry, error) {
	handlers := make(map[string][]Modifier, len(defs))
	names := make([]string, 0, len(defs))
	for name, mods := range defs {
		if err := validate(name, mods); err != nil {
			return nil, err
		}
		list := make([]Modifier, len(mods))
		copy(list, mods)
		handlers[name] = list
		names = append(names, name)
	}
	sort.Strings(names)
	return &Registry{handlers: handlers, names: names}, nil
}

// Get returns the modifier list for a handler. The returned slice is a
// copy; the registry itself never changes after construction.
func (r *Registry) Get(name string) ([]Modifier, bool) {
	mods, ok := r.handlers[name]
	if !ok {
		return nil, false
	}
	out := make([]Modifier, len(mods))
	copy(out, mods)
	return out, true
}

// Has reports whether a handler is declared.
func (r *Registry) Has(name string) bool {
	_, ok := r.handlers[name]
	return ok
}

// Names returns all handler names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of declared handlers.
func (r *Registry) Len() int {
	return len(r.handlers)
}

// Snapshot returns a full copy of the registry contents, in the shape the
// boot payload and metadata deltas use.
func (r *Registry) Snapshot() map[string][]Modifier {
	out := make(map[string][]Modifier, len(r.handlers))
	for name := range r.handlers {
		mods, _ := r.Get(name)
		out[name] = mods
	}
	return out
}
