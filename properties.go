package controltree

import (
	"fmt"
	"reflect"
	"strconv"
)

// Permission is the value of one access-control channel.
type Permission string

const (
	// Public allows the operation. The zero value of a channel is public.
	Public Permission = "public"

	// None silently suppresses the operation.
	None Permission = "none"

	// Private is reserved for future self-only semantics and is currently
	// treated as a denial for external callers.
	Private Permission = "private"
)

func (p Permission) allowed() bool {
	return p == "" || p == Public
}

// AccessPolicy holds the four independent channel permissions of one
// property. Each channel gates a distinct call path: Set gates bulk Set,
// Get gates collection and notification deltas, Setter gates SetProperty,
// Getter gates GetProperty. A zero AccessPolicy is public everywhere.
type AccessPolicy struct {
	Set    Permission
	Get    Permission
	Setter Permission
	Getter Permission
}

// Metadata is an arbitrary side-channel mapping attached to a property,
// delivered alongside that property's events and the aggregate data event.
type Metadata map[string]any

// SetAccess stores the policy for an existing observable property. Unknown
// property names are silently ignored.
func (b *BaseControl) SetAccess(name string, policy AccessPolicy) {
	if b.field(name) == nil {
		return
	}
	b.access[name] = policy
}

func (b *BaseControl) accessFor(name string) AccessPolicy {
	return b.access[name]
}

// SetPropertyMetadata attaches metadata to an existing observable property.
// Unknown property names are silently ignored. Metadata rides along with the
// property's own event and with single-property data notifications; an
// aggregate notification, as bulk Set issues, carries none because the named
// properties' metadata would collide in one emission.
func (b *BaseControl) SetPropertyMetadata(name string, meta Metadata) {
	if b.field(name) == nil {
		return
	}
	b.meta[name] = meta
}

// PropertyMetadata returns the metadata attached to a property, or nil.
func (b *BaseControl) PropertyMetadata(name string) Metadata {
	return b.meta[name]
}

// GetProperty returns the current value of a property when the getter
// channel allows it. The second result is false for unknown properties and
// denied reads; denials never raise an error.
func (b *BaseControl) GetProperty(name string) (any, bool) {
	if b.field(name) == nil {
		return nil, false
	}
	if !b.accessFor(name).Getter.allowed() {
		return nil, false
	}
	v, ok := b.props[name]
	if !ok {
		return nil, false
	}
	return cloneValue(v), true
}

// SetProperty writes a property value through the setter channel, notifying
// the tree of the change. Equal-value writes and denied writes are silent
// no-ops.
func (b *BaseControl) SetProperty(name string, value any) {
	b.setProperty(name, value, true)
}

// setProperty is the write path shared by SetProperty and bulk Set. The
// notify parameter replaces a transient suppression flag: bulk Set passes
// false and issues one aggregate NotifyProperty per control afterwards.
// Returns true when the stored value changed.
func (b *BaseControl) setProperty(name string, value any, notify bool) bool {
	fs := b.field(name)
	if fs == nil {
		return false
	}
	if !b.accessFor(name).Setter.allowed() {
		return false
	}
	v, ok := coerceValue(fs, value)
	if !ok {
		return false
	}
	if reflect.DeepEqual(b.props[name], v) {
		return false
	}
	b.props[name] = cloneValue(v)
	b.rv.Field(fs.index).Set(reflect.ValueOf(v))
	b.emitWithMeta(name, cloneValue(v), b.meta[name], ScopeLocal)
	if notify {
		b.NotifyProperty(name)
	}
	return true
}

// coerceValue converts an incoming primitive to the property's declared
// kind. A nil value becomes the string "null" for string properties and is
// dropped for every other kind, so a property never collapses to an empty
// state. The result has the field's exact Go type.
func coerceValue(fs *fieldSpec, value any) (any, bool) {
	if value == nil {
		if fs.kind == kindString {
			value = "null"
		} else {
			return nil, false
		}
	}

	switch fs.kind {
	case kindString:
		s, ok := value.(string)
		if !ok {
			s = fmt.Sprintf("%v", value)
		}
		return reflect.ValueOf(s).Convert(fs.typ).Interface(), true

	case kindInt, kindFloat:
		f, ok := toFloat64(value)
		if !ok {
			if s, isStr := value.(string); isStr {
				parsed, err := strconv.ParseFloat(s, 64)
				if err != nil {
					return nil, false
				}
				f = parsed
			} else {
				return nil, false
			}
		}
		return reflect.ValueOf(f).Convert(fs.typ).Interface(), true

	case kindBool:
		switch v := value.(type) {
		case bool:
			return reflect.ValueOf(v).Convert(fs.typ).Interface(), true
		case string:
			if v == "true" {
				return reflect.ValueOf(true).Convert(fs.typ).Interface(), true
			}
			if v == "false" {
				return reflect.ValueOf(false).Convert(fs.typ).Interface(), true
			}
		}
		return nil, false

	case kindSlice:
		return coerceSlice(fs.typ, value)
	}
	return nil, false
}

// coerceSlice builds a fresh slice of the target type from the incoming
// value, converting elements where needed.
func coerceSlice(target reflect.Type, value any) (any, bool) {
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || rv.Kind() != reflect.Slice {
		return nil, false
	}
	elem := target.Elem()
	out := reflect.MakeSlice(target, rv.Len(), rv.Len())
	for i := 0; i < rv.Len(); i++ {
		ev := rv.Index(i)
		if ev.Kind() == reflect.Interface {
			ev = ev.Elem()
		}
		if !ev.IsValid() {
			if elem.Kind() != reflect.Interface {
				return nil, false
			}
			continue
		}
		if elem.Kind() == reflect.Interface {
			out.Index(i).Set(reflect.ValueOf(ev.Interface()))
			continue
		}
		if elem.Kind() == reflect.String && ev.Kind() != reflect.String {
			out.Index(i).Set(reflect.ValueOf(fmt.Sprintf("%v", ev.Interface())).Convert(elem))
			continue
		}
		if !ev.Type().ConvertibleTo(elem) {
			return nil, false
		}
		out.Index(i).Set(ev.Convert(elem))
	}
	return out.Interface(), true
}
