package tmpl

import (
	"reflect"
	"strings"
)

// Scope resolves free identifiers during execution.
type Scope interface {
	Lookup(name string) (any, bool)
}

// Vars is a Scope backed by a map.
type Vars map[string]any

// Lookup implements Scope.
func (v Vars) Lookup(name string) (any, bool) {
	val, ok := v[name]
	return val, ok
}

// NewScope builds the RenderContext for data:
//   - nil yields an empty scope;
//   - a Scope is used as is;
//   - maps with string keys expose their entries;
//   - structs (or pointers to structs) expose exported fields by name and by
//     json tag;
//   - any other value is bound to the name "data".
func NewScope(data any) Scope {
	switch d := data.(type) {
	case nil:
		return Vars{}
	case Scope:
		return d
	case map[string]any:
		return Vars(d)
	}

	rv := reflect.ValueOf(data)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return Vars{}
		}
		rv = rv.Elem()
	}
	switch {
	case rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String:
		return mapScope{rv}
	case rv.Kind() == reflect.Struct:
		return structScope{rv}
	}
	return Vars{"data": data}
}

type mapScope struct{ m reflect.Value }

func (s mapScope) Lookup(name string) (any, bool) {
	v := s.m.MapIndex(reflect.ValueOf(name).Convert(s.m.Type().Key()))
	if !v.IsValid() {
		return nil, false
	}
	return v.Interface(), true
}

type structScope struct{ v reflect.Value }

func (s structScope) Lookup(name string) (any, bool) {
	f, ok := structField(s.v, name)
	if !ok {
		return nil, false
	}
	return f.Interface(), true
}

// structField finds an exported field by Go name or by json tag name.
func structField(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		if sf.Name == name || jsonName(sf) == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func jsonName(sf reflect.StructField) string {
	tag := sf.Tag.Get("json")
	if tag == "" || tag == "-" {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	return name
}

// child is a nested frame holding loop variables.
type child struct {
	parent Scope
	vars   map[string]any
}

func newChild(parent Scope) *child {
	return &child{parent: parent, vars: make(map[string]any, 2)}
}

func (c *child) Lookup(name string) (any, bool) {
	if v, ok := c.vars[name]; ok {
		return v, true
	}
	return c.parent.Lookup(name)
}
