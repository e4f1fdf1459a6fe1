package errors

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// style is an ANSI SGR sequence.
type style string

const (
	styleNone   style = ""
	styleError  style = "\033[1;31m"
	styleCode   style = "\033[1;37m"
	styleCause  style = "\033[33m"
	styleWhere  style = "\033[36m"
	styleLink   style = "\033[34m"
	styleMuted  style = "\033[90m"
	styleMarker style = "\033[31m"
	reset             = "\033[0m"
)

// colorEnabled is off when NO_COLOR is set.
var colorEnabled = os.Getenv("NO_COLOR") == ""

// DisableColors turns off ANSI output.
func DisableColors() { colorEnabled = false }

// EnableColors turns on ANSI output.
func EnableColors() { colorEnabled = true }

func paint(s style, text string) string {
	if !colorEnabled || s == styleNone {
		return text
	}
	return string(s) + text + reset
}

// detailWidth is the column at which details are wrapped.
const detailWidth = 70

// Format renders the error for a terminal: header, source excerpt with a
// caret under the column, detail, hint and documentation link.
func (e *UIError) Format() string {
	var b strings.Builder
	line := func(parts ...string) {
		b.WriteString(strings.Join(parts, ""))
		b.WriteByte('\n')
	}

	b.WriteByte('\n')
	if e.Code != "" {
		line(paint(styleError, "ERROR "), paint(styleCode, e.Code+": "), e.Message)
	} else {
		line(paint(styleError, "ERROR: "), e.Message)
	}
	if e.Wrapped != nil {
		line("  ", paint(styleCause, e.Wrapped.Error()))
	}
	b.WriteByte('\n')

	if loc := e.Location; loc != nil {
		line("  ", paint(styleWhere, loc.String()))
		b.WriteByte('\n')
		e.writeExcerpt(line)
	}

	if e.Detail != "" {
		for _, l := range wrapText(e.Detail, detailWidth) {
			line("  ", l)
		}
		b.WriteByte('\n')
	}
	if e.Suggestion != "" {
		line("  ", paint(styleWhere, "Hint: "), e.Suggestion)
		b.WriteByte('\n')
	}
	if e.DocURL != "" {
		line("  ", paint(styleMuted, "Learn more: "), paint(styleLink, e.DocURL))
	}
	return b.String()
}

// writeExcerpt prints the context lines around the error location.
func (e *UIError) writeExcerpt(line func(...string)) {
	if len(e.Context) == 0 {
		return
	}
	gutter := paint(styleMuted, " │ ")
	first := max(1, e.Location.Line-2)
	for i, src := range e.Context {
		n := first + i
		num := fmt.Sprintf("%4d", n)
		if n != e.Location.Line {
			line("    ", num, gutter, src)
			continue
		}
		line("  ", paint(styleMarker, "→ "), num, gutter, src)
		if col := e.Location.Column; col > 0 {
			line("       ", paint(styleMuted, "│ "), strings.Repeat(" ", col-1), paint(styleMarker, "^"))
		}
	}
	line()
}

// FormatCompact returns "file:line:col: CODE: message".
func (e *UIError) FormatCompact() string {
	var parts []string
	if e.Location != nil {
		parts = append(parts, e.Location.String())
	}
	if e.Code != "" {
		parts = append(parts, e.Code)
	}
	return strings.Join(append(parts, e.Message), ": ")
}

type jsonLocation struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

type jsonError struct {
	Code       string        `json:"code,omitempty"`
	Category   Category      `json:"category"`
	Message    string        `json:"message"`
	Detail     string        `json:"detail,omitempty"`
	Location   *jsonLocation `json:"location,omitempty"`
	Suggestion string        `json:"suggestion,omitempty"`
	DocURL     string        `json:"docUrl,omitempty"`
	Cause      string        `json:"cause,omitempty"`
}

// FormatJSON returns the error as a single JSON object, for tooling.
func (e *UIError) FormatJSON() string {
	out := jsonError{
		Code:       e.Code,
		Category:   e.Category,
		Message:    e.Message,
		Detail:     e.Detail,
		Suggestion: e.Suggestion,
		DocURL:     e.DocURL,
	}
	if loc := e.Location; loc != nil {
		out.Location = &jsonLocation{File: loc.File, Line: loc.Line, Column: loc.Column}
	}
	if e.Wrapped != nil {
		out.Cause = e.Wrapped.Error()
	}
	b, _ := json.Marshal(out)
	return string(b)
}

// wrapText greedily fills lines of at most width bytes. A single word
// longer than width gets a line of its own.
func wrapText(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	lines := []string{words[0]}
	for _, w := range words[1:] {
		last := &lines[len(lines)-1]
		if len(*last)+1+len(w) > width {
			lines = append(lines, w)
			continue
		}
		*last += " " + w
	}
	return lines
}

// Fprint classifies err and writes its terminal rendering to w.
func Fprint(w io.Writer, err error, source string) {
	io.WriteString(w, FromError(err, source).Format())
}

// PrintError writes err to stderr.
func PrintError(err error) {
	Fprint(os.Stderr, err, "")
}
