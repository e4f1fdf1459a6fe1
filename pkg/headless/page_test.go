package headless

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/vango-dev/cfsui/pkg/nav"
	"github.com/vango-dev/cfsui/pkg/router"
)

func TestHistory(t *testing.T) {
	p := New("/ui/")
	p.PushState("/ui/stat")
	p.PushState("/ui/tags/1")

	if !p.Back() || p.Path() != "/ui/stat" {
		t.Fatalf("after Back, Path() = %q", p.Path())
	}
	p.PushState("/ui/tags/2")
	entries, index := p.History()
	want := []string{"/ui/", "/ui/stat", "/ui/tags/2"}
	if strings.Join(entries, ",") != strings.Join(want, ",") || index != 2 {
		t.Errorf("History() = %v, %d; want %v, 2", entries, index, want)
	}
	if p.Forward() {
		t.Error("Forward() at end of history = true")
	}

	p.ReplaceState("/ui/tags/3")
	if p.Path() != "/ui/tags/3" {
		t.Errorf("Path() = %q", p.Path())
	}

	p.Back()
	p.Back()
	if p.Back() {
		t.Error("Back() at start of history = true")
	}
}

func TestSetHTMLUnknownRegion(t *testing.T) {
	p := New("/", WithRegions(".content"))
	if err := p.SetHTML(".content", "<p>x</p>"); err != nil {
		t.Fatal(err)
	}
	if got, _ := p.Region(".content"); got != "<p>x</p>" {
		t.Errorf("Region() = %q", got)
	}
	if err := p.SetHTML("#missing", "x"); !errors.Is(err, ErrNoRegion) {
		t.Errorf("err = %v, want ErrNoRegion", err)
	}
}

const shell = `<!DOCTYPE html>
<html><body>
<nav id="main-nav"><a href="/ui/stat">Stat</a></nav>
<div class="content main"></div>
<script type="text/template" id="stat"><p>"<%= fileCount %>" files</p></script>
<script type="text/javascript">var x = "<% ignored %>";</script>
<script type="text/template">no id</script>
</body></html>`

func TestLoadMarkup(t *testing.T) {
	p := New("/")
	if err := p.LoadMarkup(strings.NewReader(shell)); err != nil {
		t.Fatal(err)
	}

	tmpl, ok := p.Template("stat")
	if !ok || tmpl != `<p>"<%= fileCount %>" files</p>` {
		t.Errorf("Template(stat) = %q, %v", tmpl, ok)
	}
	if got := p.Templates(); len(got) != 1 {
		t.Errorf("Templates() = %v, want only stat", got)
	}
	for _, sel := range []string{"#main-nav", ".content", ".main"} {
		if _, ok := p.Region(sel); !ok {
			t.Errorf("region %q not registered", sel)
		}
	}
}

func TestLoadTemplatesFS(t *testing.T) {
	fsys := fstest.MapFS{
		"templates/stat.html":     {Data: []byte("<%= fileCount %>")},
		"templates/tags/tag.html": {Data: []byte("<%= tag.name %>")},
		"templates/README.md":     {Data: []byte("docs")},
		"other/ignored.html":      {Data: []byte("x")},
	}
	p := New("/")
	n, err := p.LoadTemplatesFS(fsys, "templates/**/*.html")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("loaded %d templates, want 2", n)
	}
	if got := strings.Join(p.Templates(), ","); got != "stat,tag" {
		t.Errorf("Templates() = %q", got)
	}
}

func TestBackDispatchesPopState(t *testing.T) {
	p := New("/ui/", WithRegions(".content"), WithTemplate("page", "<%= name %>"))
	b := router.NewBuilder(router.WithRoot("/ui"))
	var c *nav.Controller
	for _, name := range []string{"stat", "about"} {
		b.MustRegister("/"+name, func(router.Params) {
			c.RenderInto(".content", "page", map[string]any{"name": name})
		})
	}
	c = nav.New(b.Seal(), p)
	p.Bind(c)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	wait := func() {
		wctx, wcancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer wcancel()
		if err := c.Wait(wctx); err != nil {
			t.Fatal(err)
		}
	}

	c.Navigate("/ui/stat")
	wait()
	c.Navigate("/ui/about")
	wait()
	if got, _ := p.Region(".content"); got != "about" {
		t.Fatalf("content = %q, want about", got)
	}

	if !p.Back() {
		t.Fatal("Back() = false")
	}
	wait()
	if got, _ := p.Region(".content"); got != "stat" {
		t.Errorf("content after Back = %q, want stat", got)
	}
	entries, index := p.History()
	if len(entries) != 3 || index != 1 {
		t.Errorf("History() = %v, %d", entries, index)
	}
}
