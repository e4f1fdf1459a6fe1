package tmpl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmparser "github.com/yuin/goldmark/parser"
)

// Func is a function callable from template expressions.
type Func func(args ...any) (any, error)

// FuncMap maps expression names to functions.
type FuncMap map[string]Func

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(gmparser.WithAutoHeadingID()),
)

// Builtins returns a fresh copy of the built-in functions.
func Builtins() FuncMap {
	return FuncMap{
		"len":      fnLen,
		"upper":    stringFunc(strings.ToUpper),
		"lower":    stringFunc(strings.ToLower),
		"trim":     stringFunc(strings.TrimSpace),
		"join":     fnJoin,
		"json":     fnJSON,
		"escape":   fnEscape,
		"default":  fnDefault,
		"keys":     fnKeys,
		"bytes":    fnBytes,
		"ago":      fnAgo,
		"markdown": fnMarkdown,
		"segment":  stringFunc(url.PathEscape),
	}
}

func arity(args []any, lo, hi int) error {
	if len(args) < lo || len(args) > hi {
		if lo == hi {
			return fmt.Errorf("%w: want %d arguments, got %d", ErrType, lo, len(args))
		}
		return fmt.Errorf("%w: want %d to %d arguments, got %d", ErrType, lo, hi, len(args))
	}
	return nil
}

func stringFunc(fn func(string) string) Func {
	return func(args ...any) (any, error) {
		if err := arity(args, 1, 1); err != nil {
			return nil, err
		}
		return fn(toString(args[0])), nil
	}
}

func fnLen(args ...any) (any, error) {
	if err := arity(args, 1, 1); err != nil {
		return nil, err
	}
	n, ok := length(args[0])
	if !ok {
		if args[0] == nil {
			return 0, nil
		}
		return nil, fmt.Errorf("%w: len of %T", ErrType, args[0])
	}
	return n, nil
}

func fnJoin(args ...any) (any, error) {
	if err := arity(args, 1, 2); err != nil {
		return nil, err
	}
	sep := ","
	if len(args) == 2 {
		sep = toString(args[1])
	}
	var parts []string
	err := each(args[0], func(_, v any) error {
		parts = append(parts, toString(v))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return strings.Join(parts, sep), nil
}

func fnJSON(args ...any) (any, error) {
	if err := arity(args, 1, 1); err != nil {
		return nil, err
	}
	b, err := json.Marshal(args[0])
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func fnEscape(args ...any) (any, error) {
	if err := arity(args, 1, 1); err != nil {
		return nil, err
	}
	return HTML(EscapeHTML(toString(args[0]))), nil
}

func fnDefault(args ...any) (any, error) {
	if err := arity(args, 2, 2); err != nil {
		return nil, err
	}
	if truthy(args[0]) {
		return args[0], nil
	}
	return args[1], nil
}

func fnKeys(args ...any) (any, error) {
	if err := arity(args, 1, 1); err != nil {
		return nil, err
	}
	rv := indirect(args[0])
	if !rv.IsValid() {
		return []any{}, nil
	}
	if rv.Kind() != reflect.Map {
		return nil, fmt.Errorf("%w: keys of %T", ErrType, args[0])
	}
	keys := make([]string, 0, rv.Len())
	for _, k := range rv.MapKeys() {
		keys = append(keys, fmt.Sprint(k.Interface()))
	}
	sort.Strings(keys)
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = k
	}
	return out, nil
}

func fnBytes(args ...any) (any, error) {
	if err := arity(args, 1, 1); err != nil {
		return nil, err
	}
	f, ok := toNumber(args[0])
	if !ok || f < 0 || math.IsNaN(f) {
		return nil, fmt.Errorf("%w: bytes of %v", ErrType, args[0])
	}
	return humanize.Bytes(uint64(f)), nil
}

// fnAgo formats a time.Time or an RFC 3339 string relative to now.
func fnAgo(args ...any) (any, error) {
	if err := arity(args, 1, 1); err != nil {
		return nil, err
	}
	switch t := args[0].(type) {
	case time.Time:
		return humanize.Time(t), nil
	case *time.Time:
		if t == nil {
			return "", nil
		}
		return humanize.Time(*t), nil
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrType, err)
		}
		return humanize.Time(parsed), nil
	}
	return nil, fmt.Errorf("%w: ago of %T", ErrType, args[0])
}

// fnMarkdown converts Markdown to HTML. Raw HTML in the source is omitted.
func fnMarkdown(args ...any) (any, error) {
	if err := arity(args, 1, 1); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(toString(args[0])), &buf); err != nil {
		return nil, err
	}
	return HTML(buf.String()), nil
}
