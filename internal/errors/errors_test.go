package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/vango-dev/cfsui/internal/cabinet"
	"github.com/vango-dev/cfsui/pkg/fetch"
	"github.com/vango-dev/cfsui/pkg/nav"
	"github.com/vango-dev/cfsui/pkg/router"
	"github.com/vango-dev/cfsui/pkg/tmpl"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{"route", "E101", "No route matches the URL", CategoryRouting},
		{"template", "E103", "Template syntax error", CategoryTemplate},
		{"config", "E201", "Invalid configuration", CategoryConfig},
		{"unknown error code", "E999", "Unknown error", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestRegistryComplete(t *testing.T) {
	for _, code := range Codes() {
		tpl, ok := Lookup(code)
		if !ok || tpl.Message == "" || tpl.Category == "" {
			t.Errorf("%s: incomplete template %+v", code, tpl)
		}
		if !strings.HasSuffix(tpl.DocURL, code) {
			t.Errorf("%s: DocURL = %q", code, tpl.DocURL)
		}
	}
}

func TestUIErrorError(t *testing.T) {
	cause := stderrors.New("boom")
	err := New("E301").Wrap(cause)
	if got, want := err.Error(), "E301: Fetch failed: boom"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should see the wrapped cause")
	}
	if got := Newf(CategoryCLI, "bad %s", "flag").Error(); got != "bad flag" {
		t.Errorf("Error() = %q", got)
	}
}

func TestFromError(t *testing.T) {
	src := "<ul>\n<% for tag in tags %>\n  <li><%= tag.nmae %></li>\n<% end %>\n</ul>"
	_, evalErr := tmpl.Render(src, map[string]any{"tags": []struct{ Name string }{{"a"}}}, tmpl.WithName("tags"))
	_, syntaxErr := tmpl.Compile("<% if x %>", tmpl.WithName("open"))

	tests := []struct {
		name     string
		err      error
		code     string
		line     int
		hasHint  bool
		hasLines bool
	}{
		{"route", &router.NotFoundError{Path: "/x"}, "E101", 0, false, false},
		{"pattern", &router.PatternError{Pattern: "x", Reason: "bad"}, "E105", 0, false, false},
		{"template missing", &nav.TemplateNotFoundError{ID: "tags"}, "E102", 0, true, false},
		{"syntax", syntaxErr, "E103", 1, true, true},
		{"eval", evalErr, "E104", 3, false, true},
		{"fetch auth", &fetch.StatusError{URL: "/api", StatusCode: 401}, "E301", 0, true, false},
		{"fetch server", &fetch.StatusError{URL: "/api", StatusCode: 500}, "E301", 0, false, false},
		{"corrupt manifest", fmt.Errorf("load: %w", cabinet.ErrCorrupt), "E303", 0, false, false},
		{"coded passes through", New("E201"), "E201", 0, false, false},
		{"unclassified", stderrors.New("x"), "", 0, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ue := FromError(tt.err, src)
			if ue.Code != tt.code {
				t.Fatalf("Code = %q, want %q (%v)", ue.Code, tt.code, tt.err)
			}
			if tt.line > 0 && (ue.Location == nil || ue.Location.Line != tt.line) {
				t.Errorf("Location = %v, want line %d", ue.Location, tt.line)
			}
			if (ue.Suggestion != "") != tt.hasHint {
				t.Errorf("Suggestion = %q", ue.Suggestion)
			}
			if (len(ue.Context) > 0) != tt.hasLines {
				t.Errorf("Context = %q", ue.Context)
			}
		})
	}

	if FromError(nil, "") != nil {
		t.Error("FromError(nil) should be nil")
	}
}

func TestContextLines(t *testing.T) {
	src := "1\n2\n3\n4\n5\n6"
	tests := []struct {
		line int
		want string
	}{
		{1, "1,2,3"},
		{3, "1,2,3,4,5"},
		{6, "4,5,6"},
		{9, ""},
	}
	for _, tt := range tests {
		got := strings.Join(contextLines(src, tt.line, 5), ",")
		if got != tt.want {
			t.Errorf("contextLines(line %d) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	src := "a\nb\n<%= nope %>\nd"
	err := New("E104").
		Wrap(stderrors.New("tmpl: undefined identifier")).
		WithLocation("page", 3, 5, src).
		WithSuggestion("define it")

	out := err.Format()
	for _, want := range []string{
		"ERROR E104: Template evaluation failed",
		"tmpl: undefined identifier",
		"page:3:5",
		"→    3 │ <%= nope %>",
		"       │     ^",
		"Hint: define it",
		"Learn more: https://cfsui.dev/docs/errors/E104",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Error("Format() emitted colors while disabled")
	}
}

func TestFormatCompact(t *testing.T) {
	err := New("E103").WithLocation("page", 2, 4, "")
	if got, want := err.FormatCompact(), "page:2:4: E103: Template syntax error"; got != want {
		t.Errorf("FormatCompact() = %q, want %q", got, want)
	}
}

func TestFormatJSON(t *testing.T) {
	err := New("E101").Wrap(stderrors.New("x")).WithLocation("f", 1, 2, "")
	var out map[string]any
	if e := json.Unmarshal([]byte(err.FormatJSON()), &out); e != nil {
		t.Fatalf("invalid JSON: %v", e)
	}
	if out["code"] != "E101" || out["category"] != "routing" || out["cause"] != "x" {
		t.Errorf("FormatJSON() = %v", out)
	}
	loc, _ := out["location"].(map[string]any)
	if loc["line"] != float64(1) {
		t.Errorf("location = %v", loc)
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("one two three four five", 9)
	if len(lines) != 3 || lines[0] != "one two" {
		t.Errorf("wrapText() = %q", lines)
	}
	if wrapText("", 10) != nil {
		t.Error("wrapText(\"\") should be nil")
	}
}
