package tmpl

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"unicode/utf8"
)

// HTML is trusted markup; output regions never escape it.
type HTML string

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case HTML:
		return x != ""
	}
	if f, ok := toNumber(v); ok {
		return f != 0 && !math.IsNaN(f)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface, reflect.Func, reflect.Chan:
		return !rv.IsNil()
	}
	return true
}

func toNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case float64:
		return x, true
	case nil, bool, string, HTML:
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func isString(v any) bool {
	switch v.(type) {
	case string, HTML:
		return true
	}
	return false
}

// toString formats v for output. Integral floats print without a fraction.
func toString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case HTML:
		return string(x)
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return formatFloat(x)
	case float32:
		return formatFloat(float64(x))
	case fmt.Stringer:
		return x.String()
	case error:
		return x.Error()
	}
	return fmt.Sprint(v)
}

func formatFloat(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func equal(a, b any) bool {
	if a == nil || b == nil {
		return isNil(a) && isNil(b)
	}
	if x, ok := toNumber(a); ok {
		if y, ok := toNumber(b); ok {
			return x == y
		}
		return false
	}
	if isString(a) && isString(b) {
		return toString(a) == toString(b)
	}
	return reflect.DeepEqual(a, b)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// compare orders two numbers or two strings.
func compare(a, b any) (int, error) {
	if x, ok := toNumber(a); ok {
		if y, ok := toNumber(b); ok {
			switch {
			case x < y:
				return -1, nil
			case x > y:
				return 1, nil
			}
			return 0, nil
		}
	}
	if isString(a) && isString(b) {
		x, y := toString(a), toString(b)
		switch {
		case x < y:
			return -1, nil
		case x > y:
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("%w: cannot compare %T and %T", ErrType, a, b)
}

func arith(op string, a, b any) (any, error) {
	if op == "+" && (isString(a) || isString(b)) {
		return toString(a) + toString(b), nil
	}
	x, ok1 := toNumber(a)
	y, ok2 := toNumber(b)
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("%w: %T %s %T", ErrType, a, op, b)
	}
	switch op {
	case "+":
		return x + y, nil
	case "-":
		return x - y, nil
	case "*":
		return x * y, nil
	case "/":
		if y == 0 {
			return nil, fmt.Errorf("%w: division by zero", ErrType)
		}
		return x / y, nil
	case "%":
		if y == 0 {
			return nil, fmt.Errorf("%w: division by zero", ErrType)
		}
		return math.Mod(x, y), nil
	}
	return nil, fmt.Errorf("%w: unknown operator %s", ErrType, op)
}

// length implements len() and the .length pseudo-property.
func length(v any) (int, bool) {
	switch x := v.(type) {
	case string:
		return utf8.RuneCountInString(x), true
	case HTML:
		return utf8.RuneCountInString(string(x)), true
	case []any:
		return len(x), true
	case nil:
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len(), true
	}
	return 0, false
}

func indirect(v any) reflect.Value {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return reflect.Value{}
		}
		rv = rv.Elem()
	}
	return rv
}

// member resolves x.name. Missing map keys read as nil; a real key named
// "length" shadows the pseudo-property.
func member(v any, name string) (any, error) {
	if m, ok := v.(map[string]any); ok {
		if val, ok := m[name]; ok {
			return val, nil
		}
		if name == "length" {
			return len(m), nil
		}
		return nil, nil
	}

	rv := indirect(v)
	switch rv.Kind() {
	case reflect.Invalid:
		return nil, fmt.Errorf("%w: cannot read property %q of null", ErrType, name)

	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			if val := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key())); val.IsValid() {
				return val.Interface(), nil
			}
		}
		if name == "length" {
			return rv.Len(), nil
		}
		return nil, nil

	case reflect.Struct:
		if f, ok := structField(rv, name); ok {
			return f.Interface(), nil
		}
		return nil, fmt.Errorf("%w: %s has no field %q", ErrNoField, rv.Type(), name)
	}

	if name == "length" {
		if n, ok := length(v); ok {
			return n, nil
		}
	}
	return nil, fmt.Errorf("%w: %T has no property %q", ErrNoField, v, name)
}

// index resolves x[i].
func index(v, i any) (any, error) {
	if s, ok := i.(string); ok {
		switch indirect(v).Kind() {
		case reflect.Map, reflect.Struct:
			return member(v, s)
		}
	}

	rv := indirect(v)
	switch rv.Kind() {
	case reflect.Invalid:
		return nil, fmt.Errorf("%w: cannot index null", ErrType)

	case reflect.Slice, reflect.Array, reflect.String:
		n, err := toIndex(i)
		if err != nil {
			return nil, err
		}
		if rv.Kind() == reflect.String {
			runes := []rune(rv.String())
			if n < 0 || n >= len(runes) {
				return nil, fmt.Errorf("%w: %d out of range [0,%d)", ErrIndex, n, len(runes))
			}
			return string(runes[n]), nil
		}
		if n < 0 || n >= rv.Len() {
			return nil, fmt.Errorf("%w: %d out of range [0,%d)", ErrIndex, n, rv.Len())
		}
		return rv.Index(n).Interface(), nil

	case reflect.Map:
		key := reflect.ValueOf(i)
		if !key.IsValid() || !key.Type().ConvertibleTo(rv.Type().Key()) {
			return nil, fmt.Errorf("%w: cannot use %T as %s key", ErrIndex, i, rv.Type().Key())
		}
		if val := rv.MapIndex(key.Convert(rv.Type().Key())); val.IsValid() {
			return val.Interface(), nil
		}
		return nil, nil
	}
	return nil, fmt.Errorf("%w: cannot index %T", ErrType, v)
}

func toIndex(i any) (int, error) {
	f, ok := toNumber(i)
	if !ok || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: non-integer index %v", ErrIndex, i)
	}
	return int(f), nil
}

// each iterates v: slices and arrays in order, maps in sorted key order,
// strings by rune, and a non-negative integer n over 0..n-1.
func each(v any, fn func(key, val any) error) error {
	if v == nil {
		return nil
	}
	if list, ok := v.([]any); ok {
		for i, item := range list {
			if err := fn(i, item); err != nil {
				return err
			}
		}
		return nil
	}

	rv := indirect(v)
	switch rv.Kind() {
	case reflect.Invalid:
		return nil

	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if err := fn(i, rv.Index(i).Interface()); err != nil {
				return err
			}
		}
		return nil

	case reflect.Map:
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
		})
		for _, k := range keys {
			if err := fn(k.Interface(), rv.MapIndex(k).Interface()); err != nil {
				return err
			}
		}
		return nil

	case reflect.String:
		i := 0
		for _, r := range rv.String() {
			if err := fn(i, string(r)); err != nil {
				return err
			}
			i++
		}
		return nil
	}

	if f, ok := toNumber(v); ok && f == math.Trunc(f) {
		for i := 0; i < int(f); i++ {
			if err := fn(i, i); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("%w: cannot iterate over %T", ErrType, v)
}
