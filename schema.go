package controltree

import (
	"reflect"
)

type fieldKind int

const (
	kindInt fieldKind = iota
	kindFloat
	kindBool
	kindString
	kindSlice
)

// fieldSpec describes one observable property of a control type.
type fieldSpec struct {
	name  string       // property name (decapitalized field name or tag)
	index int          // field index within the struct
	kind  fieldKind
	typ   reflect.Type // the field's Go type
}

// controlType is the compiled schema of a registered control type: its
// constructor plus the observable fields enumerated once at resolution time.
type controlType struct {
	name    string
	newFunc NewControlFunc
	fields  []fieldSpec
	byName  map[string]*fieldSpec
}

// newControlType builds the schema for a type by constructing a prototype
// instance and enumerating its declared fields. Only exported scalar, string,
// bool and slice fields become observable; fields tagged `control:"-"` and
// anything inherited from BaseControl are skipped. Returns nil when the
// constructor does not produce a struct pointer embedding BaseControl.
func newControlType(name string, newFunc NewControlFunc) *controlType {
	proto := newFunc()
	if proto == nil {
		return nil
	}
	rt := reflect.TypeOf(proto)
	if rt.Kind() != reflect.Pointer || rt.Elem().Kind() != reflect.Struct {
		return nil
	}
	st := rt.Elem()

	ct := &controlType{
		name:    name,
		newFunc: newFunc,
		byName:  make(map[string]*fieldSpec),
	}
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if f.Anonymous || !f.IsExported() {
			continue
		}
		propName := decapitalize(f.Name)
		if tag, ok := f.Tag.Lookup("control"); ok {
			if tag == "-" {
				continue
			}
			propName = tag
		}
		kind, ok := observableKind(f.Type)
		if !ok {
			continue
		}
		ct.fields = append(ct.fields, fieldSpec{
			name:  propName,
			index: i,
			kind:  kind,
			typ:   f.Type,
		})
	}
	for i := range ct.fields {
		ct.byName[ct.fields[i].name] = &ct.fields[i]
	}
	return ct
}

// observableKind classifies a field type as an observable property kind.
func observableKind(t reflect.Type) (fieldKind, bool) {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return kindInt, true
	case reflect.Float32, reflect.Float64:
		return kindFloat, true
	case reflect.Bool:
		return kindBool, true
	case reflect.String:
		return kindString, true
	case reflect.Slice:
		return kindSlice, true
	}
	return 0, false
}

// field returns the spec for a property name, or nil when the control has no
// such observable property.
func (b *BaseControl) field(name string) *fieldSpec {
	if b.ctype == nil {
		return nil
	}
	return b.ctype.byName[name]
}
