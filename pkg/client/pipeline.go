package client

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/livetree-go/livetree/pkg/draft"
	"github.com/livetree-go/livetree/pkg/protocol"
	"github.com/livetree-go/livetree/pkg/vdom"
)

// SendFunc delivers an event message to the transport.
type SendFunc func(msg *protocol.EventMessage)

// Pipeline intercepts UI events and decides when and whether each one
// reaches the server. Per handler it applies the declared modifiers in a
// fixed order: optimistic feedback immediately, debounce or throttle
// gating the send, the response cache consulted at send time, and
// client-state keys published just before the message leaves.
//
// The pipeline is single-threaded: Dispatch, timer callbacks, and the
// response hooks all run on the owning Loop. It is the only writer to its
// cache and state bus.
type Pipeline struct {
	loop   *Loop
	tree   *TreeApplier
	cache  *ResponseCache
	bus    *StateBus
	drafts draft.Store
	logger *slog.Logger
	send   SendFunc

	bindings map[string]*binding
	pending  map[string]*PendingOptimistic
}

// PipelineConfig assembles a Pipeline.
type PipelineConfig struct {
	// Loop drives timers and the clock. Required.
	Loop *Loop
	// Tree is the live tree the pipeline mutates for optimistic feedback
	// and cached responses. Required.
	Tree *TreeApplier
	// Send delivers outgoing events. Required.
	Send SendFunc
	// Registry declares each handler's modifiers. Optional; handlers
	// outside it dispatch unmodified.
	Registry *protocol.Registry
	// CacheCapacity bounds the response cache. Default 64.
	CacheCapacity int
	// Drafts, when set, receives in-progress debounced input for
	// recovery.
	Drafts draft.Store
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// NewPipeline builds a pipeline and binds every handler in the registry.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		loop:     cfg.Loop,
		tree:     cfg.Tree,
		cache:    NewResponseCache(cfg.CacheCapacity, cfg.Loop.Now),
		bus:      NewStateBus(),
		drafts:   cfg.Drafts,
		logger:   logger.With("component", "pipeline"),
		send:     cfg.Send,
		bindings: make(map[string]*binding),
		pending:  make(map[string]*PendingOptimistic),
	}
	if cfg.Registry != nil {
		for _, name := range cfg.Registry.Names() {
			mods, _ := cfg.Registry.Get(name)
			p.Bind(name, mods)
		}
	}
	return p
}

// binding is a handler's resolved modifier chain plus its timer state.
type binding struct {
	name       string
	debounce   *protocol.Modifier
	throttle   *protocol.Modifier
	cache      *protocol.Modifier
	optimistic bool
	stateKeys  []string

	// element kind, resolved on first dispatch
	kind         ElementKind
	kindResolved bool

	// debounce / throttle state
	timer         *Timer
	burstStart    time.Time
	pendingParams map[string]any
	lastFire      time.Time
	hasFired      bool
}

// Bind installs or replaces the modifier chain for a handler. Metadata
// deltas arriving mid-session come through here.
func (p *Pipeline) Bind(name string, mods []protocol.Modifier) {
	b := &binding{name: name}
	for i := range mods {
		m := &mods[i]
		switch m.Type {
		case protocol.ModDebounce:
			b.debounce = m
		case protocol.ModThrottle:
			b.throttle = m
		case protocol.ModOptimistic:
			b.optimistic = true
		case protocol.ModCache:
			b.cache = m
		case protocol.ModClientState:
			b.stateKeys = m.Keys
		}
	}
	if old := p.bindings[name]; old != nil && old.timer != nil {
		old.timer.Stop()
	}
	p.bindings[name] = b
}

// Bus exposes the state bus for subscriptions. Handlers subscribe; only
// the pipeline publishes.
func (p *Pipeline) Bus() *StateBus {
	return p.bus
}

// Cache exposes the response cache for inspection.
func (p *Pipeline) Cache() *ResponseCache {
	return p.cache
}

// Pending returns the live optimistic record for handler, if any.
func (p *Pipeline) Pending(handler string) *PendingOptimistic {
	return p.pending[handler]
}

// Dispatch runs one UI event through the handler's modifier chain. The
// source path locates the element that raised the event, for optimistic
// feedback; it may be nil for synthetic events.
func (p *Pipeline) Dispatch(handler string, params map[string]any, source vdom.Path) {
	b := p.bindings[handler]
	if b == nil {
		b = &binding{name: handler}
		p.bindings[handler] = b
	}

	if b.optimistic {
		p.applyOptimistic(b, source, params)
	}

	switch {
	case b.debounce != nil:
		p.dispatchDebounced(b, params)
	case b.throttle != nil:
		p.dispatchThrottled(b, params)
	default:
		p.emit(b, params)
	}
}

// dispatchDebounced restarts the handler's quiet-window timer, holding
// only the latest parameters. With max_wait set, the timer never lands
// later than burst start + max_wait, so a continuous burst still sends.
func (p *Pipeline) dispatchDebounced(b *binding, params map[string]any) {
	now := p.loop.Now()
	if b.timer == nil {
		b.burstStart = now
	} else {
		b.timer.Stop()
	}
	b.pendingParams = params
	p.saveDraft(b, params)

	delay := b.debounce.Wait.Std()
	if maxWait := b.debounce.MaxWait.Std(); maxWait > 0 {
		if budget := b.burstStart.Add(maxWait).Sub(now); budget < delay {
			delay = budget
		}
	}
	b.timer = p.loop.Schedule(delay, func() {
		b.timer = nil
		p.emit(b, b.pendingParams)
	})
}

// dispatchThrottled fires at most once per interval: immediately on the
// leading edge when the interval has passed, otherwise as one deferred
// trailing fire carrying the newest parameters.
func (p *Pipeline) dispatchThrottled(b *binding, params map[string]any) {
	now := p.loop.Now()
	elapsed := now.Sub(b.lastFire)

	if b.throttle.Leading && (!b.hasFired || elapsed >= b.throttle.Interval.Std()) {
		b.hasFired = true
		b.lastFire = now
		p.emit(b, params)
		return
	}

	if !b.throttle.Trailing {
		return
	}
	b.pendingParams = params
	if b.timer != nil {
		// Deferred fire already scheduled; only the latest payload
		// survives.
		return
	}
	delay := b.throttle.Interval.Std() - elapsed
	if !b.hasFired || delay < 0 {
		delay = 0
	}
	b.timer = p.loop.Schedule(delay, func() {
		b.timer = nil
		b.hasFired = true
		b.lastFire = p.loop.Now()
		p.emit(b, b.pendingParams)
	})
}

// emit is the send point: the cache is consulted here, client-state keys
// publish here, and only then does the message hit the transport.
func (p *Pipeline) emit(b *binding, params map[string]any) {
	if b.cache != nil {
		key := CacheKey(b.name, params, b.cache.KeyParams)
		if patches, ok := p.cache.Get(key); ok {
			p.publishState(b, params)
			p.logger.Debug("cache hit", "handler", b.name, "key", key)
			if err := p.tree.Apply(patches); err != nil {
				p.logger.Error("cached patches failed to apply", "handler", b.name, "error", err)
			}
			// A cached response is as authoritative as a fresh one.
			delete(p.pending, b.name)
			p.clearDraft(b)
			return
		}
		p.publishState(b, params)
		p.send(&protocol.EventMessage{Event: b.name, Params: params, CacheKey: key})
		return
	}

	p.publishState(b, params)
	p.send(&protocol.EventMessage{Event: b.name, Params: params})
}

// publishState pushes each present client-state key to the bus. Every
// other subscriber of the key runs synchronously before this returns.
func (p *Pipeline) publishState(b *binding, params map[string]any) {
	for _, key := range b.stateKeys {
		if v, ok := params[key]; ok {
			p.bus.Publish(key, v, b.name)
		}
	}
}

// applyOptimistic mutates the source element in place and records the
// pre-mutation snapshot. An element outside the supported set gets no
// feedback.
func (p *Pipeline) applyOptimistic(b *binding, source vdom.Path, params map[string]any) {
	node := p.tree.Resolve(source)
	if node == nil {
		p.logger.Debug("optimistic source not found", "handler", b.name, "path", source.String())
		return
	}
	if !b.kindResolved {
		b.kind = ClassifyElement(node)
		b.kindResolved = true
	}
	if b.kind == KindUnsupported {
		p.logger.Debug("optimistic unsupported element", "handler", b.name, "tag", node.Tag)
		return
	}

	if _, live := p.pending[b.name]; !live {
		p.pending[b.name] = &PendingOptimistic{
			Handler:  b.name,
			Path:     source.Clone(),
			Snapshot: node.Clone(),
		}
	}
	mutateOptimistic(b.kind, node, params)
}

// HandleResponse finishes one round trip for handler: caches the response
// when requested, retires the optimistic record (the server's patches are
// authoritative), and clears any saved draft. The caller applies the
// patches through the tree applier.
func (p *Pipeline) HandleResponse(handler string, update *protocol.UpdateMessage) {
	if b := p.bindings[handler]; b != nil {
		if b.cache != nil && update.CacheKey != "" {
			p.cache.Put(update.CacheKey, update.Patches, b.cache.TTL.Std())
		}
		p.clearDraft(b)
	}
	delete(p.pending, handler)
}

// HandleError reverts the handler's optimistic mutation, restoring the
// element's exact pre-update state.
func (p *Pipeline) HandleError(handler, message string) {
	p.logger.Warn("handler rejected", "handler", handler, "message", message)
	rec := p.pending[handler]
	if rec == nil {
		return
	}
	delete(p.pending, handler)
	if err := p.tree.Replace(rec.Path, rec.Snapshot); err != nil {
		p.logger.Error("optimistic revert failed", "handler", handler, "error", err)
	}
}

func (p *Pipeline) saveDraft(b *binding, params map[string]any) {
	if p.drafts == nil {
		return
	}
	v, ok := params["value"]
	if !ok {
		return
	}
	if err := p.drafts.Set(context.Background(), b.name, fmt.Sprintf("%v", v)); err != nil {
		p.logger.Warn("draft save failed", "handler", b.name, "error", err)
	}
}

func (p *Pipeline) clearDraft(b *binding) {
	if p.drafts == nil || b.debounce == nil {
		return
	}
	if err := p.drafts.Clear(context.Background(), b.name); err != nil {
		p.logger.Warn("draft clear failed", "handler", b.name, "error", err)
	}
}
