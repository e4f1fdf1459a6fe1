package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/vango-dev/cfsui/internal/cabinet"
	"github.com/vango-dev/cfsui/pkg/fetch"
	"github.com/vango-dev/cfsui/pkg/nav"
	"github.com/vango-dev/cfsui/pkg/router"
	"github.com/vango-dev/cfsui/pkg/tmpl"
)

// Category represents the type of error.
type Category string

const (
	CategoryRouting  Category = "routing"
	CategoryTemplate Category = "template"
	CategoryConfig   Category = "config"
	CategoryFetch    Category = "fetch"
	CategoryStore    Category = "store"
	CategoryCLI      Category = "cli"
)

// Location is a position inside a template or file.
type Location struct {
	File   string
	Line   int
	Column int
}

// String returns the location as file:line[:col].
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// UIError is a coded error with an optional source location and hint.
type UIError struct {
	// Code is a unique error identifier (e.g., "E103").
	Code string

	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	Location *Location

	// Context holds the source lines around Location.
	Context []string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// DocURL links to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *UIError) Error() string {
	msg := e.Message
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	if e.Code != "" {
		return e.Code + ": " + msg
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *UIError) Unwrap() error {
	return e.Wrapped
}

// WithLocation sets the location and, when source is non-empty, the
// surrounding lines of source.
func (e *UIError) WithLocation(file string, line, column int, source string) *UIError {
	e.Location = &Location{File: file, Line: line, Column: column}
	if source != "" {
		e.Context = contextLines(source, line, 5)
	}
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *UIError) WithSuggestion(s string) *UIError {
	e.Suggestion = s
	return e
}

// WithDetail replaces the registered explanation.
func (e *UIError) WithDetail(d string) *UIError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *UIError) Wrap(err error) *UIError {
	e.Wrapped = err
	return e
}

// contextLines returns up to size lines of source centred on target.
func contextLines(source string, target, size int) []string {
	lines := strings.Split(source, "\n")
	start := target - size/2
	end := target + size/2
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return nil
	}
	return lines[start-1 : end]
}

// New creates a UIError from a registered error code.
func New(code string) *UIError {
	t, ok := registry[code]
	if !ok {
		return &UIError{Code: code, Message: "Unknown error"}
	}
	return &UIError{
		Code:     code,
		Category: t.Category,
		Message:  t.Message,
		Detail:   t.Detail,
		DocURL:   t.DocURL,
	}
}

// Newf creates an uncoded UIError with a formatted message.
func Newf(category Category, format string, args ...any) *UIError {
	return &UIError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError classifies err and wraps it in a UIError. Template errors carry
// their position; source, when given, supplies the context lines.
func FromError(err error, source string) *UIError {
	if err == nil {
		return nil
	}
	var ue *UIError
	if stderrors.As(err, &ue) {
		return ue
	}

	var se *tmpl.SyntaxError
	var ee *tmpl.EvalError
	var te *nav.TemplateNotFoundError
	var fe *fetch.StatusError
	switch {
	case stderrors.As(err, &se):
		return New("E103").Wrap(err).WithLocation(se.Name, se.Line, se.Col, source).
			WithSuggestion(suggestSyntax(se))
	case stderrors.As(err, &ee):
		e := New("E104").Wrap(err).WithLocation(ee.Name, ee.Line, ee.Col, source)
		if stderrors.Is(err, tmpl.ErrUndefined) {
			e.WithSuggestion("Pass the value in the template data or guard it with default().")
		}
		return e
	case stderrors.As(err, &te):
		return New("E102").Wrap(err).
			WithSuggestion(fmt.Sprintf("Add a <script type=\"text/template\" id=%q> block to the page.", te.ID))
	case stderrors.Is(err, router.ErrNotFound):
		return New("E101").Wrap(err)
	case stderrors.Is(err, router.ErrInvalidPattern):
		return New("E105").Wrap(err)
	case stderrors.As(err, &fe):
		e := New("E301").Wrap(err)
		if fe.StatusCode == 401 || fe.StatusCode == 403 {
			e.WithSuggestion("Check the configured basic auth credentials.")
		}
		return e
	case stderrors.Is(err, fetch.ErrStatus):
		return New("E301").Wrap(err)
	case stderrors.Is(err, cabinet.ErrCorrupt), stderrors.Is(err, cabinet.ErrKey):
		return New("E303").Wrap(err)
	}
	return &UIError{Message: "Internal error", Wrapped: err}
}

func suggestSyntax(se *tmpl.SyntaxError) string {
	switch {
	case stderrors.Is(se, tmpl.ErrUnknownFunc):
		return "Register the function with tmpl.WithFuncs or check its spelling."
	case strings.HasPrefix(se.Msg, "unclosed"):
		return "Close the block with <% end %> or <% } %>."
	}
	return ""
}
