package controltree

import (
	"fmt"
	"reflect"
)

// Reserved keys in declarative data.
const (
	// TypeKey names the control type to instantiate for a new child.
	TypeKey = "typeName"

	// RemoveKey set to true asks the parent to detach this control.
	RemoveKey = "remove"

	internalKeyPrefix = "_"
)

// Well-known event names. Every observable property additionally has an
// event named after itself, and every child creation fires an event named
// after the child's key on the parent.
const (
	EventData            = "data"
	EventRemove          = "remove"
	EventLog             = "log"
	EventNewChildControl = "newChildControl"
)

// Control is one element of the data-model tree. Concrete control types are
// structs that embed BaseControl; their exported scalar, string, bool and
// slice fields become observable properties.
type Control interface {
	// Base returns the embedded BaseControl.
	Base() *BaseControl

	// Created is called after the control's declarative data has been
	// applied and before its parent is notified of its existence.
	Created()

	// Removed is called when the control is detached from the tree,
	// after its remove event has fired.
	Removed()
}

// NewControlFunc constructs a fresh, unattached control instance.
type NewControlFunc = func() Control

// BaseControl carries the tree machinery shared by all controls: identity,
// parent/root links, the property registry, children and event listeners.
// The zero value is not usable on its own; controls are wired up by the
// container when a declarative sub-object names their type.
type BaseControl struct {
	typeName string
	name     string
	hidden   bool

	self   Control
	parent *BaseControl
	root   *Container

	ctype *controlType
	rv    reflect.Value

	props  map[string]any
	access map[string]AccessPolicy
	meta   map[string]Metadata

	children map[string]Control

	listeners map[string][]*listenerEntry
}

// Base returns the control's BaseControl, satisfying the Control interface
// for every type that embeds it.
func (b *BaseControl) Base() *BaseControl { return b }

// Created is a no-op; concrete control types override it.
func (b *BaseControl) Created() {}

// Removed is a no-op; concrete control types override it.
func (b *BaseControl) Removed() {}

// attach wires a freshly constructed control into the tree and captures its
// declared field values into the property registry with a public-everywhere
// access entry for each.
func (b *BaseControl) attach(self Control, ct *controlType, name string, parent *BaseControl, root *Container) {
	b.self = self
	b.ctype = ct
	b.name = name
	b.parent = parent
	b.root = root
	b.props = make(map[string]any)
	b.access = make(map[string]AccessPolicy)
	b.meta = make(map[string]Metadata)
	b.children = make(map[string]Control)
	b.listeners = make(map[string][]*listenerEntry)
	if ct != nil {
		b.typeName = ct.name
		b.rv = reflect.ValueOf(self).Elem()
		for i := range ct.fields {
			fs := &ct.fields[i]
			b.props[fs.name] = cloneValue(b.rv.Field(fs.index).Interface())
		}
	}
}

// TypeName returns the immutable name of the type this control was
// constructed from. Empty for the container.
func (b *BaseControl) TypeName() string { return b.typeName }

// Name returns the key under which the parent holds this control.
// Empty for the container.
func (b *BaseControl) Name() string { return b.name }

// Parent returns the containing control, or nil for the container.
func (b *BaseControl) Parent() Control {
	if b.parent == nil {
		return nil
	}
	return b.parent.self
}

// Root returns the top-level container, or nil after detachment.
func (b *BaseControl) Root() *Container { return b.root }

// Path returns the slash-separated path from the container to this control.
func (b *BaseControl) Path() string {
	if b.parent == nil {
		return ""
	}
	return b.parent.Path() + "/" + b.name
}

// Hidden reports whether this control and its subtree are excluded from Get
// results and from upward data notifications.
func (b *BaseControl) Hidden() bool { return b.hidden }

// SetHidden toggles the hidden flag. Local events keep firing on a hidden
// control; only upward visibility is affected.
func (b *BaseControl) SetHidden(hidden bool) { b.hidden = hidden }

// Child returns the child registered under name, or nil.
func (b *BaseControl) Child(name string) Control {
	return b.children[name]
}

// ChildNames returns the names of all children in sorted order.
func (b *BaseControl) ChildNames() []string {
	return sortedKeys(b.children)
}

// Logf emits a formatted message on a log event at the container, top scope.
// The message is prefixed with the control's path.
func (b *BaseControl) Logf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if p := b.Path(); p != "" {
		msg = p + ": " + msg
	}
	b.Emit(EventLog, msg, ScopeTop)
}

// setAlias mirrors a new child into a matching exported field on the parent
// struct, when one exists and can hold it.
func (b *BaseControl) setAlias(key string, child Control) {
	if !b.rv.IsValid() {
		return
	}
	f := b.rv.FieldByName(capitalize(key))
	if !f.IsValid() || !f.CanSet() {
		return
	}
	cv := reflect.ValueOf(child)
	if cv.Type().AssignableTo(f.Type()) {
		f.Set(cv)
	}
}

// clearAlias zeroes the parent struct field holding child, if any.
func (b *BaseControl) clearAlias(key string, child Control) {
	if !b.rv.IsValid() {
		return
	}
	f := b.rv.FieldByName(capitalize(key))
	if !f.IsValid() || !f.CanSet() {
		return
	}
	k := f.Kind()
	if k != reflect.Pointer && k != reflect.Interface {
		return
	}
	if f.IsNil() {
		return
	}
	if f.Interface() == any(child) {
		f.Set(reflect.Zero(f.Type()))
	}
}
