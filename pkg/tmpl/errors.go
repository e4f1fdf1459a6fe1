package tmpl

import (
	"errors"
	"fmt"
)

var (
	// ErrSyntax is wrapped by every compile-time error.
	ErrSyntax = errors.New("tmpl: syntax error")

	// ErrUndefined is returned when an identifier is not defined by the scope.
	ErrUndefined = errors.New("tmpl: undefined identifier")

	// ErrType is returned when an operation is applied to unsupported values.
	ErrType = errors.New("tmpl: type mismatch")

	// ErrNoField is returned when a struct has no field with the requested name.
	ErrNoField = errors.New("tmpl: no such field")

	// ErrIndex is returned for out-of-range or invalid index operations.
	ErrIndex = errors.New("tmpl: invalid index")

	// ErrUnknownFunc is returned when a call names an unregistered function.
	ErrUnknownFunc = errors.New("tmpl: unknown function")
)

// SyntaxError reports a malformed template.
type SyntaxError struct {
	Name string
	Line int
	Col  int
	Msg  string

	// Err is an optional more specific cause, such as ErrUnknownFunc.
	Err error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("tmpl: %s:%d:%d: %s", nameOr(e.Name), e.Line, e.Col, e.Msg)
}

// Unwrap allows errors.Is(err, ErrSyntax) and matching on the cause.
func (e *SyntaxError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrSyntax}
	}
	return []error{ErrSyntax, e.Err}
}

// EvalError reports a failure while executing a compiled template.
type EvalError struct {
	Name string
	Line int
	Col  int
	Expr string
	Err  error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("tmpl: %s:%d:%d: evaluating %q: %v", nameOr(e.Name), e.Line, e.Col, e.Expr, e.Err)
}

// Unwrap returns the underlying cause (ErrUndefined, ErrType, ...).
func (e *EvalError) Unwrap() error {
	return e.Err
}

func nameOr(name string) string {
	if name == "" {
		return "template"
	}
	return name
}
