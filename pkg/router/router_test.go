package router

import (
	"errors"
	"reflect"
	"testing"
)

func noop(Params) {}

func TestRegisterAndResolve(t *testing.T) {
	b := NewBuilder()
	b.MustRegister("/", noop)
	b.MustRegister("/stat", noop)
	b.MustRegister("/tags/:id", noop)
	r := b.Seal()

	result, err := r.Resolve("/stat")
	if err != nil {
		t.Fatalf("Resolve(/stat) error: %v", err)
	}
	if result.Route.Pattern != "/stat" {
		t.Errorf("route = %q, want /stat", result.Route.Pattern)
	}
	if len(result.Params) != 0 {
		t.Errorf("params = %v, want empty", result.Params)
	}

	result, err = r.Resolve("/")
	if err != nil {
		t.Fatalf("Resolve(/) error: %v", err)
	}
	if result.Route.Pattern != "/" {
		t.Errorf("route = %q, want /", result.Route.Pattern)
	}
}

func TestParameterExtraction(t *testing.T) {
	b := NewBuilder()
	b.MustRegister("/tags/:id/versions/:version", noop)
	r := b.Seal()

	result, err := r.Resolve("/tags/42/versions/7")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	want := Params{"id": "42", "version": "7"}
	if !reflect.DeepEqual(result.Params, want) {
		t.Errorf("params = %v, want %v", result.Params, want)
	}
	if !reflect.DeepEqual(result.Route.ParamNames, []string{"id", "version"}) {
		t.Errorf("names = %v", result.Route.ParamNames)
	}
}

func TestEveryPlaceholderIsCaptured(t *testing.T) {
	b := NewBuilder()
	b.MustRegister("/tags/:id/files/:file", noop)
	r := b.Seal()

	result, err := r.Resolve("/tags/abc/files/readme.txt")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if result.Params.Get("id") != "abc" || result.Params.Get("file") != "readme.txt" {
		t.Errorf("params = %v", result.Params)
	}

	// A literal ":file" must not be accepted where a value is expected.
	if _, err := r.Resolve("/tags/abc/files"); !errors.Is(err, ErrNotFound) {
		t.Errorf("short path err = %v, want ErrNotFound", err)
	}
}

func TestFirstMatchWins(t *testing.T) {
	var fired []string
	b := NewBuilder()
	b.MustRegister("/tags/:id", func(p Params) { fired = append(fired, "id:"+p["id"]) })
	b.MustRegister("/tags/special", func(Params) { fired = append(fired, "special") })
	r := b.Seal()

	if _, err := r.Dispatch("/tags/special", nil); err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	if !reflect.DeepEqual(fired, []string{"id:special"}) {
		t.Errorf("fired = %v, want [id:special]", fired)
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	b := NewBuilder(WithRoot("/ui"))
	b.MustRegister("/tags/:id", noop)
	b.MustRegister("/tags/:id/versions", noop)
	r := b.Seal()

	first, err := r.Resolve("/ui/tags/9/versions")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, err := r.Resolve("/ui/tags/9/versions")
		if err != nil {
			t.Fatal(err)
		}
		if again.Route != first.Route || !reflect.DeepEqual(again.Params, first.Params) {
			t.Fatalf("iteration %d: got %v %v, want %v %v", i, again.Route.Pattern, again.Params, first.Route.Pattern, first.Params)
		}
	}
}

func TestRootStripping(t *testing.T) {
	b := NewBuilder(WithRoot("/ui"))
	b.MustRegister("/", noop)
	b.MustRegister("/stat", noop)
	r := b.Seal()

	tests := []struct {
		path string
		want string
	}{
		{"/ui/stat", "/stat"},
		{"/stat", "/stat"},
		{"/ui", "/"},
		{"/ui/", "/"},
		{"/ui/stat?x=1#top", "/stat"},
	}
	for _, tt := range tests {
		result, err := r.Resolve(tt.path)
		if err != nil {
			t.Errorf("Resolve(%q) error: %v", tt.path, err)
			continue
		}
		if result.Route.Pattern != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.path, result.Route.Pattern, tt.want)
		}
	}

	if _, err := r.Resolve("/uikit"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Resolve(/uikit) err = %v, want ErrNotFound", err)
	}
}

func TestResolveNotFound(t *testing.T) {
	b := NewBuilder()
	b.MustRegister("/stat", noop)
	r := b.Seal()

	result, err := r.Resolve("/nowhere")
	if result != nil {
		t.Errorf("result = %v, want nil", result)
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("err = %v, want *NotFoundError", err)
	}
	if nf.Path != "/nowhere" {
		t.Errorf("Path = %q", nf.Path)
	}
}

func TestPatternAnchoring(t *testing.T) {
	b := NewBuilder()
	b.MustRegister("/stat", noop)
	b.MustRegister("/tags/:id", noop)
	r := b.Seal()

	for _, p := range []string{"/x/stat", "/stats", "/tags/1/extra", "/prefix/tags/1"} {
		if _, err := r.Resolve(p); !errors.Is(err, ErrNotFound) {
			t.Errorf("Resolve(%q) err = %v, want ErrNotFound", p, err)
		}
	}
}

func TestLiteralSegmentsAreQuoted(t *testing.T) {
	b := NewBuilder()
	b.MustRegister("/files/:name.json", noop)
	b.MustRegister("/a.b", noop)
	r := b.Seal()

	result, err := r.Resolve("/files/report.json")
	if err != nil {
		t.Fatal(err)
	}
	if result.Params["name"] != "report" {
		t.Errorf("name = %q", result.Params["name"])
	}
	if _, err := r.Resolve("/axb"); !errors.Is(err, ErrNotFound) {
		t.Errorf("dot matched any character: %v", err)
	}
}

func TestCapturedValuesAreDecoded(t *testing.T) {
	b := NewBuilder()
	b.MustRegister("/tags/:id/files/:file", noop)
	r := b.Seal()

	result, err := r.Resolve("/tags/1/files/docs%2Fread%20me.md")
	if err != nil {
		t.Fatal(err)
	}
	if got := result.Params["file"]; got != "docs/read me.md" {
		t.Errorf("file = %q", got)
	}
}

func TestRegisterRejectsInvalidPatterns(t *testing.T) {
	tests := []string{
		"stat",
		"/tags/:",
		"/tags/:id/x/:id",
	}
	for _, pattern := range tests {
		b := NewBuilder()
		err := b.Register(pattern, noop)
		if !errors.Is(err, ErrInvalidPattern) {
			t.Errorf("Register(%q) err = %v, want ErrInvalidPattern", pattern, err)
		}
		if n := len(b.Seal().Routes()); n != 0 {
			t.Errorf("Register(%q) left %d routes behind", pattern, n)
		}
	}

	b := NewBuilder()
	if err := b.Register("/x", nil); !errors.Is(err, ErrNilHandler) {
		t.Errorf("nil handler err = %v", err)
	}
}

func TestSealPreventsLateRegistration(t *testing.T) {
	b := NewBuilder()
	b.MustRegister("/", noop)
	r := b.Seal()

	if err := b.Register("/late", noop); !errors.Is(err, ErrSealed) {
		t.Fatalf("err = %v, want ErrSealed", err)
	}
	if n := len(r.Routes()); n != 1 {
		t.Errorf("routes = %d, want 1", n)
	}
	if b.Seal() != r {
		t.Error("second Seal returned a different router")
	}
}

func TestMustRegisterPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	NewBuilder().MustRegister("nope", noop)
}

func TestDispatchRecordsAfterHandler(t *testing.T) {
	var events []string
	b := NewBuilder(WithRoot("/ui"))
	b.MustRegister("/tags/:id", func(p Params) { events = append(events, "handler:"+p["id"]) })
	r := b.Seal()

	_, err := r.Dispatch("/ui/tags/5", func(path string) { events = append(events, "record:"+path) })
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"handler:5", "record:/ui/tags/5"}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}
}

func TestDispatchNotFoundIsNoop(t *testing.T) {
	recorded := false
	b := NewBuilder()
	b.MustRegister("/stat", func(Params) { t.Error("handler should not run") })
	r := b.Seal()

	_, err := r.Dispatch("/missing", func(string) { recorded = true })
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if recorded {
		t.Error("unresolved path was recorded")
	}
}

func TestRouteExpr(t *testing.T) {
	b := NewBuilder()
	b.MustRegister("/tags/:id/versions/:version", noop)
	route := b.Seal().Routes()[0]
	if got, want := route.Expr(), "^/tags/([^/]+)/versions/([^/]+)$"; got != want {
		t.Errorf("Expr = %q, want %q", got, want)
	}
}
