package router

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

var textUnmarshaler = reflect.TypeFor[encoding.TextUnmarshaler]()

// Decode copies captured values into the `param`-tagged fields of the struct
// target points to:
//
//	var p struct {
//	    ID      string `param:"id,required"`
//	    Version int    `param:"version"`
//	}
//	err := params.Decode(&p)
//
// Absent placeholders leave their field untouched unless the tag says
// required. A nil target is a no-op.
func (p Params) Decode(target any) error {
	if target == nil {
		return nil
	}
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("router: decode target must be a pointer to a struct, got %T", target)
	}
	v = v.Elem()

	for _, field := range reflect.VisibleFields(v.Type()) {
		tag, ok := field.Tag.Lookup("param")
		if !ok || !field.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		raw, present := p[name]
		if !present {
			if opts == "required" {
				return fmt.Errorf("router: param %q is required", name)
			}
			continue
		}
		if err := assign(v.FieldByIndex(field.Index), raw); err != nil {
			return fmt.Errorf("router: param %q: %w", name, err)
		}
	}
	return nil
}

// assign parses raw into fv according to its kind. Types implementing
// encoding.TextUnmarshaler take precedence.
func assign(fv reflect.Value, raw string) error {
	if fv.CanAddr() && fv.Addr().Type().Implements(textUnmarshaler) {
		return fv.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(raw))
	}

	switch k := fv.Kind(); {
	case k == reflect.String:
		fv.SetString(raw)
	case k >= reflect.Int && k <= reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, fv.Type().Bits())
		if err != nil {
			return fmt.Errorf("%q is not a valid %s", raw, k)
		}
		fv.SetInt(n)
	case k >= reflect.Uint && k <= reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, fv.Type().Bits())
		if err != nil {
			return fmt.Errorf("%q is not a valid %s", raw, k)
		}
		fv.SetUint(n)
	case k == reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%q is not a valid bool", raw)
		}
		fv.SetBool(b)
	default:
		return fmt.Errorf("unsupported field type %s", fv.Type())
	}
	return nil
}
