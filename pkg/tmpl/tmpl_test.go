package tmpl

import (
	"errors"
	"strings"
	"testing"
)

func TestRenderRoundTrip(t *testing.T) {
	got, err := Render("hello <%= name %>", map[string]any{"name": "world"})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if got != "hello world" {
		t.Errorf("Render() = %q, want %q", got, "hello world")
	}
}

func TestRenderLiteralQuotes(t *testing.T) {
	src := `<a title="it's">say "hi" \n</a><%= n %>`
	got, err := Render(src, map[string]any{"n": 1})
	if err != nil {
		t.Fatal(err)
	}
	want := `<a title="it's">say "hi" \n</a>1`
	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
	if strings.Contains(got, `\"`) {
		t.Errorf("escaped quote leaked into output: %q", got)
	}
}

func TestRenderLoop(t *testing.T) {
	src := `<ul><% for item in items { %><li><%= item %></li><% } %></ul>`
	got, err := Render(src, map[string]any{"items": []string{"a", "b", "c"}})
	if err != nil {
		t.Fatal(err)
	}
	want := "<ul><li>a</li><li>b</li><li>c</li></ul>"
	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
	if n := strings.Count(got, "<li>"); n != 3 {
		t.Errorf("got %d blocks, want 3", n)
	}
}

func TestRenderControl(t *testing.T) {
	tests := []struct {
		name string
		src  string
		data map[string]any
		want string
	}{
		{
			name: "if braces else-if",
			src:  `<% if n > 1 { %>many<% } else if n == 1 { %>one<% } else { %>none<% } %>`,
			data: map[string]any{"n": 1},
			want: "one",
		},
		{
			name: "if braces else",
			src:  `<% if n > 1 { %>many<% } else if n == 1 { %>one<% } else { %>none<% } %>`,
			data: map[string]any{"n": 0},
			want: "none",
		},
		{
			name: "if end style",
			src:  `<% if ok %>yes<% else %>no<% end %>`,
			data: map[string]any{"ok": true},
			want: "yes",
		},
		{
			name: "empty slice is falsy",
			src:  `<% if list %>some<% else %>empty<% end %>`,
			data: map[string]any{"list": []int{}},
			want: "empty",
		},
		{
			name: "index and value",
			src:  `<% for i, v in list %><%= i %>=<%= v %>;<% end %>`,
			data: map[string]any{"list": []string{"x", "y"}},
			want: "0=x;1=y;",
		},
		{
			name: "map in key order",
			src:  `<% for k, v in m %><%= k %><%= v %><% end %>`,
			data: map[string]any{"m": map[string]int{"b": 2, "a": 1}},
			want: "a1b2",
		},
		{
			name: "for over builtin call",
			src:  `<% for k in keys(m) %><%= k %><% end %>`,
			data: map[string]any{"m": map[string]int{"b": 2, "a": 1}},
			want: "ab",
		},
		{
			name: "for over parenthesized iterable",
			src:  `<% for v in (list) %><%= v %><% end %>`,
			data: map[string]any{"list": []string{"x", "y"}},
			want: "xy",
		},
		{
			name: "for with wrapping parens and call",
			src:  `<% for (k of keys(m)) { %><%= k %><% } %>`,
			data: map[string]any{"m": map[string]int{"b": 2, "a": 1}},
			want: "ab",
		},
		{
			name: "for else",
			src:  `<% for v in list %><%= v %><% else %>none<% end %>`,
			data: map[string]any{"list": []string{}},
			want: "none",
		},
		{
			name: "for over nil",
			src:  `<% for v in list %><%= v %><% else %>none<% end %>`,
			data: map[string]any{"list": nil},
			want: "none",
		},
		{
			name: "integer range",
			src:  `<% for i in 3 %><%= i %><% end %>`,
			want: "012",
		},
		{
			name: "nested loops",
			src:  `<% for row in rows %><% for c in row %><%= c %><% end %>|<% end %>`,
			data: map[string]any{"rows": [][]string{{"a", "b"}, {"c"}}},
			want: "ab|c|",
		},
		{
			name: "break leaves loop",
			src:  `<% for n in nums %><% if n == 3 %><% break %><% end %><%= n %><% end %>`,
			data: map[string]any{"nums": []int{1, 2, 3, 4}},
			want: "12",
		},
		{
			name: "switch first case",
			src:  "<% switch kind %>\n  <% case \"a\", \"b\" %>AB<% break %>X<% case \"c\": %>C<% default %>D<% end %>",
			data: map[string]any{"kind": "b"},
			want: "AB",
		},
		{
			name: "switch second case",
			src:  "<% switch kind %>\n  <% case \"a\", \"b\" %>AB<% break %>X<% case \"c\": %>C<% default %>D<% end %>",
			data: map[string]any{"kind": "c"},
			want: "C",
		},
		{
			name: "switch default",
			src:  "<% switch kind %>\n  <% case \"a\", \"b\" %>AB<% break %>X<% case \"c\": %>C<% default %>D<% end %>",
			data: map[string]any{"kind": "z"},
			want: "D",
		},
		{
			name: "switch case without break does not fall through",
			src:  `<% switch n { %><% case 1: %>one<% case 2: %>two<% default: %>other<% } %>`,
			data: map[string]any{"n": 1},
			want: "one",
		},
		{
			name: "switch numeric",
			src:  `<% switch code { %><% case 200: %>ok<% case 404: %>missing<% } %>`,
			data: map[string]any{"code": 404},
			want: "missing",
		},
		{
			name: "block",
			src:  `a<% { %>b<% } %>c`,
			want: "abc",
		},
		{
			name: "comment",
			src:  `a<%# hidden <b> %>b`,
			want: "ab",
		},
		{
			name: "raw expression region",
			src:  `<% html %>`,
			data: map[string]any{"html": "<b>x</b>"},
			want: "<b>x</b>",
		},
		{
			name: "raw output region",
			src:  `<%- html %>`,
			data: map[string]any{"html": "<b>x</b>"},
			want: "<b>x</b>",
		},
		{
			name: "escaped output region",
			src:  `<%= html %>`,
			data: map[string]any{"html": "<b>x</b>"},
			want: "&lt;b&gt;x&lt;/b&gt;",
		},
		{
			name: "default func is not a statement",
			src:  `<% default(name, "anon") %>`,
			data: map[string]any{"name": ""},
			want: "anon",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.src, tt.data)
			if err != nil {
				t.Fatalf("Render() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderUndefinedIdentifier(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
	}{
		{"output", "<%= missing %>", 1},
		{"condition", "a\nb\n<% if missing %>x<% end %>", 3},
		{"loop variable out of scope", "<% for x in xs %><% end %><%= x %>", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Render(tt.src, map[string]any{"xs": []int{1}})
			if !errors.Is(err, ErrUndefined) {
				t.Fatalf("err = %v, want ErrUndefined", err)
			}
			var ee *EvalError
			if !errors.As(err, &ee) {
				t.Fatalf("err = %T, want *EvalError", err)
			}
			if ee.Line != tt.line {
				t.Errorf("Line = %d, want %d", ee.Line, tt.line)
			}
		})
	}
}

func TestRenderEvalErrors(t *testing.T) {
	type page struct{ Title string }
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"missing struct field", "<%= p.Nope %>", ErrNoField},
		{"index out of range", "<%= list[5] %>", ErrIndex},
		{"property of null", "<%= nothing.x %>", ErrType},
		{"compare mismatch", "<%= p < 1 %>", ErrType},
		{"iterate bool", "<% for v in flag %><% end %>", ErrType},
		{"division by zero", "<%= 1 / 0 %>", ErrType},
	}
	data := map[string]any{
		"p":       page{Title: "t"},
		"list":    []int{1},
		"nothing": nil,
		"flag":    true,
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Render(tt.src, data)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCompileSyntaxErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unclosed marker", "<%= x"},
		{"unclosed if", "<% if x %>open"},
		{"unexpected end", "<% end %>"},
		{"stray close brace", "<% } %>"},
		{"dangling operator", "<%= 1 + %>"},
		{"unbalanced paren", "<%= (1 %>"},
		{"empty output", "<%= %>"},
		{"else without if", "<% else %>"},
		{"double else", "<% if a %><% else %><% else %><% end %>"},
		{"case outside switch", "<% case 1 %>"},
		{"break outside loop", "<% break %>"},
		{"malformed for", "<% for x items %><% end %>"},
		{"content before case", "<% switch x %>text<% case 1 %><% end %>"},
		{"duplicate default", "<% switch x %><% default %><% default %><% end %>"},
		{"unterminated string", `<%= "abc %>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.src)
			if !errors.Is(err, ErrSyntax) {
				t.Fatalf("Compile(%q) err = %v, want ErrSyntax", tt.src, err)
			}
		})
	}
}

func TestCompileUnknownFunc(t *testing.T) {
	_, err := Compile("<%= nope(1) %>")
	if !errors.Is(err, ErrSyntax) || !errors.Is(err, ErrUnknownFunc) {
		t.Errorf("err = %v, want ErrSyntax and ErrUnknownFunc", err)
	}
}

func TestSyntaxErrorPosition(t *testing.T) {
	_, err := Compile("line one\n  <% end %>", WithName("page"))
	var se *SyntaxError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *SyntaxError", err)
	}
	if se.Name != "page" || se.Line != 2 || se.Col != 6 {
		t.Errorf("got %s:%d:%d, want page:2:6", se.Name, se.Line, se.Col)
	}
}

func TestScopeFromStruct(t *testing.T) {
	type page struct {
		Title string `json:"title"`
		Count int
		note  string
	}
	got, err := Render("<%= title %>/<%= Title %>/<%= Count %>", page{Title: "T", Count: 2, note: "n"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "T/T/2" {
		t.Errorf("Render() = %q, want T/T/2", got)
	}

	_, err = Render("<%= note %>", &page{note: "n"})
	if !errors.Is(err, ErrUndefined) {
		t.Errorf("unexported field err = %v, want ErrUndefined", err)
	}
}

func TestScopeScalarBoundAsData(t *testing.T) {
	got, err := Render("<%= data %>", 42)
	if err != nil {
		t.Fatal(err)
	}
	if got != "42" {
		t.Errorf("Render() = %q, want 42", got)
	}
}

func TestScopeCustom(t *testing.T) {
	got, err := Render("<%= a %><%= b %>", Vars{"a": "x", "b": "y"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "xy" {
		t.Errorf("Render() = %q", got)
	}
}

func TestProgramReuse(t *testing.T) {
	p := MustCompile(`<% for v in list %><%= v %>,<% end %>`)
	for _, tt := range []struct {
		list []int
		want string
	}{
		{[]int{1, 2}, "1,2,"},
		{[]int{3}, "3,"},
	} {
		got, err := p.Execute(map[string]any{"list": tt.list})
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("Execute() = %q, want %q", got, tt.want)
		}
	}
}
