package controltree

import "github.com/google/uuid"

// Scope controls which controls receive an emitted event.
type Scope int

const (
	// ScopeLocal fires only this control's listeners.
	ScopeLocal Scope = iota

	// ScopeBubble fires local listeners, then re-emits on every ancestor
	// up to the container.
	ScopeBubble

	// ScopeTop fires only the container's listeners.
	ScopeTop

	// ScopeLocalTop fires local listeners and the container's listeners.
	ScopeLocalTop
)

// Listener receives an event value plus any metadata attached to the
// property the event belongs to; meta is nil for events without metadata.
type Listener func(value any, meta Metadata)

// ListenerOptions tunes listener registration.
type ListenerOptions struct {
	// Immediate invokes the listener synchronously during registration
	// when the event name resolves to a live property value.
	Immediate bool

	// Caller ties the listener's lifetime to another control: when the
	// caller fires its remove event the listener is deregistered, so no
	// dangling references survive a teardown elsewhere in the tree.
	Caller Control
}

type listenerEntry struct {
	id   string
	fn   Listener
	once bool
}

// On registers a persistent listener and returns its registration id.
// opts may be nil.
func (b *BaseControl) On(event string, fn Listener, opts *ListenerOptions) string {
	return b.addListener(event, fn, false, opts)
}

// Once registers a listener that fires at most once. opts may be nil.
func (b *BaseControl) Once(event string, fn Listener, opts *ListenerOptions) string {
	return b.addListener(event, fn, true, opts)
}

func (b *BaseControl) addListener(event string, fn Listener, once bool, opts *ListenerOptions) string {
	if fn == nil {
		return ""
	}
	id := uuid.NewString()
	if b.listeners == nil {
		b.listeners = make(map[string][]*listenerEntry)
	}
	b.listeners[event] = append(b.listeners[event], &listenerEntry{id: id, fn: fn, once: once})

	if opts != nil && opts.Caller != nil && opts.Caller.Base() != b {
		owner := b
		opts.Caller.Base().Once(EventRemove, func(any, Metadata) {
			owner.Off(event, id)
		}, nil)
	}

	if opts != nil && opts.Immediate {
		if v, ok := b.GetProperty(event); ok {
			fn(v, b.meta[event])
		}
	}
	return id
}

// Off deregisters a listener by event name and registration id. Unknown ids
// are ignored.
func (b *BaseControl) Off(event, id string) {
	entries := b.listeners[event]
	for i, e := range entries {
		if e.id == id {
			b.listeners[event] = append(entries[:i], entries[i+1:]...)
			return
		}
	}
}

// Emit fires an event carrying data under the given scope. Metadata attached
// to a same-named property rides along as the listener's second argument.
func (b *BaseControl) Emit(event string, data any, scope Scope) {
	b.emitWithMeta(event, data, b.meta[event], scope)
}

func (b *BaseControl) emitWithMeta(event string, data any, meta Metadata, scope Scope) {
	if scope != ScopeTop {
		b.callListeners(event, data, meta)
	}
	if scope == ScopeBubble && b.parent != nil {
		b.parent.emitWithMeta(event, data, meta, ScopeBubble)
	}
	if scope == ScopeTop || scope == ScopeLocalTop {
		if r := b.root; r != nil {
			rb := &r.BaseControl
			// Avoid a double local emission for local_top on the container.
			if rb != b || scope == ScopeTop {
				rb.callListeners(event, data, meta)
			}
		}
	}
}

func (b *BaseControl) callListeners(event string, data any, meta Metadata) {
	entries := b.listeners[event]
	if len(entries) == 0 {
		return
	}
	// Snapshot so listeners may register or deregister while being called.
	snapshot := make([]*listenerEntry, len(entries))
	copy(snapshot, entries)
	for _, e := range snapshot {
		if e.once {
			b.Off(event, e.id)
		}
		e.fn(data, meta)
	}
}
