package ui

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/vango-dev/cfsui/pkg/assets"
	"github.com/vango-dev/cfsui/pkg/fetch"
	"github.com/vango-dev/cfsui/pkg/headless"
	"github.com/vango-dev/cfsui/pkg/tmpl"
)

const tagJSON = `{"name":"app","createdAt":"2024-05-01T11:00:00Z","attr":3,"hash":"0123456789abcdef0123456789abcdef"}`

func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tags", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `[%s]`, tagJSON)
	})
	mux.HandleFunc("GET /api/stat", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"totalSize":1500,"fileCount":13}`))
	})
	mux.HandleFunc("GET /api/tags/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "empty" {
			w.Write([]byte("null"))
			return
		}
		if r.PathValue("id") != "app" {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		fmt.Fprintf(w, `{"tag":%s,"files":[{"path":"src/main.go","hash":"x","size":20,"time":"2024-05-01T11:00:00Z","origHash":"y","origSize":12,"attr":3}]}`, tagJSON)
	})
	mux.HandleFunc("GET /api/tags/{id}/files/{path...}", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("path") {
		case "src/main.go":
			w.Write([]byte("package main <x>"))
		case "readme.md":
			w.Write([]byte("# Title"))
		default:
			http.NotFound(w, r)
		}
	})
	mux.HandleFunc("GET /api/tags/{id}/versions", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`["2024-05-01-100000","2024-05-01-110000"]`))
	})
	mux.HandleFunc("GET /api/tags/{id}/versions/{version}", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"tag":%s,"files":[]}`, tagJSON)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestApp(t *testing.T, initial string) (*App, *headless.Page) {
	t.Helper()
	shell, err := Shell(ShellOptions{})
	if err != nil {
		t.Fatalf("Shell() error: %v", err)
	}
	page := headless.New(initial)
	if err := page.LoadMarkup(bytes.NewReader(shell)); err != nil {
		t.Fatal(err)
	}

	api := fakeAPI(t)
	client := fetch.New(api.URL+"/api", fetch.WithRetries(0))
	app, err := New(page, client)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	page.Bind(app.Controller())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- app.Controller().Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-errCh
	})
	return app, page
}

func settle(t *testing.T, app *App) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.Controller().Wait(ctx); err != nil {
		t.Fatalf("Wait() error: %v", err)
	}
}

func TestRoutes(t *testing.T) {
	tests := []struct {
		path   string
		want   []string
		active string
	}{
		{"/ui/", []string{`href="/ui/tags/app"`, "0123456789abcdef"}, "#nav-index"},
		{"/ui/stat", []string{"13", "1.5 kB"}, "#nav-stat"},
		{"/ui/tags/app", []string{`/ui/tags/app/files/src%2Fmain.go`, "12 B", "encrypted"}, ""},
		{"/ui/tags/app/files/src%2Fmain.go", []string{"package main &lt;x&gt;", `<pre class="file">`}, ""},
		{"/ui/tags/app/files/readme.md", []string{"<h1", "Title</h1>"}, ""},
		{"/ui/tags/app/versions", []string{"/ui/tags/app/versions/2024-05-01-110000"}, ""},
		{"/ui/tags/app/versions/2024-05-01-100000", []string{"version 2024-05-01-100000", "Empty manifest."}, ""},
		{"/ui/tags/nope", []string{"alert-danger", "HTTP 404"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			app, page := newTestApp(t, tt.path)
			app.Controller().Start()
			settle(t, app)

			got, _ := page.Region(Region)
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("content missing %q:\n%s", want, got)
				}
			}
			if tt.active != "" {
				if a := page.Active(NavGroup); a != tt.active {
					t.Errorf("Active() = %q, want %q", a, tt.active)
				}
			}
		})
	}
}

func TestRenderFailureShowsErrorPage(t *testing.T) {
	app, page := newTestApp(t, "/ui/")
	app.Controller().Start()
	settle(t, app)

	page.AddTemplate(TemplateStat, `<%= nope %>`)
	app.Controller().Navigate("/ui/stat")
	settle(t, app)

	got, _ := page.Region(Region)
	if !strings.Contains(got, "alert-danger") || !strings.Contains(got, "undefined") {
		t.Errorf("content = %q, want the error page", got)
	}
}

func TestNullTagDetail(t *testing.T) {
	app, page := newTestApp(t, "/ui/tags/empty")
	app.Controller().Start()
	settle(t, app)

	got, _ := page.Region(Region)
	if strings.Contains(got, "panicked") {
		t.Errorf("content = %q", got)
	}
}

func TestClickNavigatesAndRecords(t *testing.T) {
	app, page := newTestApp(t, "/ui/")
	app.Controller().Start()
	settle(t, app)

	if !app.Controller().Click("/ui/stat", false) {
		t.Fatal("Click() = false")
	}
	settle(t, app)

	if got, _ := page.Region(Region); !strings.Contains(got, "Storage") {
		t.Errorf("content = %q, want stat page", got)
	}
	entries, index := page.History()
	if len(entries) != 2 || entries[index] != "/ui/stat" {
		t.Errorf("History() = %v, %d", entries, index)
	}
}

func TestUnknownPathLeavesPage(t *testing.T) {
	app, page := newTestApp(t, "/ui/")
	app.Controller().Start()
	settle(t, app)
	before, _ := page.Region(Region)

	app.Controller().Navigate("/ui/nowhere/at/all")
	settle(t, app)

	after, _ := page.Region(Region)
	if after != before {
		t.Error("content changed for an unknown path")
	}
	if entries, _ := page.History(); len(entries) != 1 {
		t.Errorf("History() = %v, want a single entry", entries)
	}
}

func TestRouteTable(t *testing.T) {
	app, _ := newTestApp(t, "/ui/")
	var patterns []string
	for _, r := range app.Router().Routes() {
		patterns = append(patterns, r.Pattern)
	}
	want := "/,/stat,/tags/:id,/tags/:id/files/:file,/tags/:id/versions,/tags/:id/versions/:version"
	if got := strings.Join(patterns, ","); got != want {
		t.Errorf("routes = %q", got)
	}
}

func TestTemplatesCompile(t *testing.T) {
	shell, err := Shell(ShellOptions{})
	if err != nil {
		t.Fatal(err)
	}
	page := headless.New("/")
	if err := page.LoadMarkup(bytes.NewReader(shell)); err != nil {
		t.Fatal(err)
	}
	ids := page.Templates()
	if len(ids) != 6 {
		t.Fatalf("Templates() = %v, want 6", ids)
	}
	for _, id := range ids {
		src, _ := page.Template(id)
		if _, err := tmpl.Compile(src, tmpl.WithName(id)); err != nil {
			t.Errorf("template %s: %v", id, err)
		}
	}
	if _, ok := page.Region(Region); !ok {
		t.Errorf("shell has no %s region", Region)
	}
}

func TestTemplateLinksEscapeNames(t *testing.T) {
	shell, err := Shell(ShellOptions{})
	if err != nil {
		t.Fatal(err)
	}
	page := headless.New("/")
	if err := page.LoadMarkup(bytes.NewReader(shell)); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		id   string
		data map[string]any
		want string
	}{
		{
			id: TemplateIndex,
			data: map[string]any{"tags": []any{map[string]any{
				"name": "a b#c", "createdAt": "2024-05-01T11:00:00Z", "hash": "x",
			}}},
			want: `href="/ui/tags/a%20b%23c"`,
		},
		{
			id: TemplateFile,
			data: map[string]any{
				"id": "app", "path": "dir/x?y.txt", "size": 1, "content": "z", "isMarkdown": false,
			},
			want: `href="/api/tags/app/files/dir%2Fx%3Fy.txt"`,
		},
		{
			id:   TemplateVersions,
			data: map[string]any{"id": "my tag", "versions": []any{"v1"}},
			want: `href="/ui/tags/my%20tag/versions/v1"`,
		},
	}
	for _, tt := range tests {
		src, _ := page.Template(tt.id)
		out, err := tmpl.Render(src, tt.data, tmpl.WithName(tt.id))
		if err != nil {
			t.Fatalf("%s: %v", tt.id, err)
		}
		if !strings.Contains(out, tt.want) {
			t.Errorf("%s: output missing %s:\n%s", tt.id, tt.want, out)
		}
	}
}

func TestShell(t *testing.T) {
	static := fstest.MapFS{
		"index.html": {Data: []byte("<body><!--templates--><!--dev--></body>")},
	}
	templates := fstest.MapFS{
		"a.tmpl":     {Data: []byte("<%= x %>\n")},
		"sub/b.tmpl": {Data: []byte("b\n")},
		"notes.txt":  {Data: []byte("skip")},
	}

	got, err := Shell(ShellOptions{Assets: static, Templates: templates, DevScript: "<script>dev</script>"})
	if err != nil {
		t.Fatal(err)
	}
	s := string(got)
	for _, want := range []string{
		`<script type="text/template" id="a">`,
		`<script type="text/template" id="b">`,
		"<script>dev</script></body>",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("shell missing %q:\n%s", want, s)
		}
	}
	if strings.Contains(s, "skip") {
		t.Error("non-template file inlined")
	}

	m := assets.NewManifest()
	m.Set("boot.js", "boot.0123abcd.js")
	static = fstest.MapFS{
		"index.html": {Data: []byte(`<script src="/assets/boot.js"></script><!--templates-->`)},
	}
	got, err = Shell(ShellOptions{Assets: static, Templates: templates, Resolver: assets.NewResolver(m, AssetPrefix)})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(got), `src="/assets/boot.0123abcd.js"`) {
		t.Errorf("asset reference not resolved:\n%s", got)
	}

	templates["bad.tmpl"] = &fstest.MapFile{Data: []byte("</SCRIPT>")}
	if _, err := Shell(ShellOptions{Assets: static, Templates: templates}); err == nil {
		t.Error("expected error for template closing its script element")
	}
}

func TestEscapePath(t *testing.T) {
	if got := escapePath("dir a/b?.txt"); got != "dir%20a/b%3F.txt" {
		t.Errorf("escapePath() = %q", got)
	}
}
