package controltree

// NotifyProperty reports the current values of the named properties to the
// tree: a data event fires locally with the flat delta, and the delta is
// wrapped under this control's name and forwarded upward to the container.
// Properties denied on the Get channel are left out of the delta; when
// nothing remains, no event fires. Only a single-name notification carries
// that property's metadata; aggregates carry none.
func (b *BaseControl) NotifyProperty(names ...string) {
	delta := make(map[string]any, len(names))
	for _, name := range names {
		if b.field(name) == nil {
			continue
		}
		if !b.accessFor(name).Get.allowed() {
			continue
		}
		if v, ok := b.props[name]; ok {
			delta[name] = cloneValue(v)
		}
	}
	if len(delta) == 0 {
		return
	}
	var meta Metadata
	if len(names) == 1 {
		meta = b.meta[names[0]]
	}
	b.notifyUp(delta, meta)
}

// notifyUp emits a local data event with the raw delta and, unless this
// control is hidden, forwards the delta wrapped as {name: delta} to the
// parent, recursing to the container. Hidden controls still observe their
// own changes locally but never leak them upward.
func (b *BaseControl) notifyUp(delta map[string]any, meta Metadata) {
	b.emitWithMeta(EventData, delta, meta, ScopeLocal)
	if b.parent != nil && !b.hidden {
		b.parent.notifyUp(map[string]any{b.name: delta}, meta)
	}
}
