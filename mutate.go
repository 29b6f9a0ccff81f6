package controltree

import "strings"

// Set applies a declarative data object to this control. Keys resolve in
// this order: the remove key (processed first; once this control has asked
// its parent to detach it, the remaining keys are discarded), reserved and
// underscore-prefixed keys (ignored), existing observable properties
// (written through the Set channel), existing children (sub-objects
// forwarded recursively), sub-objects carrying a type indicator (a new
// child is constructed), and anything else is ignored. One malformed branch
// never aborts its siblings.
//
// Go maps carry no insertion order, so the remaining keys are processed in
// sorted order for determinism.
func (b *BaseControl) Set(data map[string]any) {
	if rv, ok := data[RemoveKey]; ok {
		if rv == true && b.parent != nil {
			b.parent.removeChild(b.name)
			return
		}
	}

	var changed []string
	for _, key := range sortedKeys(data) {
		if key == RemoveKey || key == TypeKey || strings.HasPrefix(key, internalKeyPrefix) {
			continue
		}
		value := data[key]

		if b.field(key) != nil {
			if !b.accessFor(key).Set.allowed() {
				continue
			}
			if b.setProperty(key, value, false) {
				changed = append(changed, key)
			}
			continue
		}

		if child, ok := b.children[key]; ok {
			if sub := asMap(value); sub != nil {
				child.Base().Set(sub)
			}
			continue
		}

		if sub := asMap(value); sub != nil {
			if typeName, ok := sub[TypeKey].(string); ok && typeName != "" {
				b.createChild(key, typeName, sub)
			}
		}
	}

	if len(changed) > 0 {
		b.NotifyProperty(changed...)
	}
}

// createChild resolves the type, constructs and wires the control, applies
// its declarative data, runs the Created hook, and only then announces the
// child on the parent: an event named after the child's key and a generic
// newChildControl event, both carrying the child. Unresolvable types skip
// construction silently.
func (b *BaseControl) createChild(key, typeName string, data map[string]any) {
	if b.root == nil {
		return
	}
	ct := b.root.resolveType(typeName)
	if ct == nil {
		return
	}
	child := ct.newFunc()
	if child == nil {
		return
	}
	cb := child.Base()
	cb.attach(child, ct, key, b, b.root)
	b.children[key] = child
	b.setAlias(key, child)

	cb.Set(data)
	child.Created()

	b.Emit(key, child, ScopeLocal)
	b.Emit(EventNewChildControl, child, ScopeLocal)
}

// RemoveChild detaches the named child and invalidates its subtree: the
// child fires its remove event first (so listeners registered with a Caller
// deregister), then it is dropped from the children mapping and its alias
// field, and its own listeners and links are stripped. Removing a
// non-existent child is a no-op.
func (b *BaseControl) RemoveChild(name string) {
	b.removeChild(name)
}

func (b *BaseControl) removeChild(name string) {
	child, ok := b.children[name]
	if !ok {
		return
	}
	child.Base().detachAll()
	delete(b.children, name)
	b.clearAlias(name, child)
}

// detachAll tears down this control and its subtree, emitting remove events
// before links are dropped.
func (b *BaseControl) detachAll() {
	b.emitWithMeta(EventRemove, b.self, nil, ScopeLocal)
	for _, name := range sortedKeys(b.children) {
		b.removeChild(name)
	}
	if b.self != nil {
		b.self.Removed()
	}
	b.listeners = nil
	b.parent = nil
	b.root = nil
}

// GetOptions tunes Get collection.
type GetOptions struct {
	// Sparse omits properties whose current value is an empty string.
	Sparse bool
}

// DefaultGetOptions returns the default collection options: sparse on.
func DefaultGetOptions() GetOptions {
	return GetOptions{Sparse: true}
}

// Get collects the control's observable state with default options.
func (b *BaseControl) Get() map[string]any {
	return b.GetWithOptions(DefaultGetOptions())
}

// GetWithOptions recursively collects own properties allowed under the Get
// channel and, for each child not flagged hidden, the child's collection
// nested under its name. Channel and hidden filtering apply at every depth.
func (b *BaseControl) GetWithOptions(opts GetOptions) map[string]any {
	result := make(map[string]any)
	if b.ctype != nil {
		for i := range b.ctype.fields {
			fs := &b.ctype.fields[i]
			if !b.accessFor(fs.name).Get.allowed() {
				continue
			}
			v, ok := b.props[fs.name]
			if !ok {
				continue
			}
			if opts.Sparse && isEmptyString(v) {
				continue
			}
			result[fs.name] = cloneValue(v)
		}
	}
	for name, child := range b.children {
		cb := child.Base()
		if cb.hidden {
			continue
		}
		result[name] = cb.GetWithOptions(opts)
	}
	return result
}
