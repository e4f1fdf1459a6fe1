package nav

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/vango-dev/cfsui/pkg/router"
	"github.com/vango-dev/cfsui/pkg/tmpl"
)

type fakePage struct {
	mu        sync.Mutex
	path      string
	log       []string
	regions   map[string]string
	templates map[string]string
	active    map[string]string
}

func newFakePage(path string) *fakePage {
	return &fakePage{
		path:    path,
		regions: map[string]string{".content": "initial"},
		templates: map[string]string{
			"msg": "<p><%= msg %></p>",
			"bad": "<%= nope %>",
		},
		active: map[string]string{},
	}
}

func (p *fakePage) record(entry string) {
	p.mu.Lock()
	p.log = append(p.log, entry)
	p.mu.Unlock()
}

func (p *fakePage) Path() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.path
}

func (p *fakePage) PushState(url string) {
	p.mu.Lock()
	p.path = url
	p.log = append(p.log, "push "+url)
	p.mu.Unlock()
}

func (p *fakePage) ReplaceState(url string) {
	p.mu.Lock()
	p.path = url
	p.log = append(p.log, "replace "+url)
	p.mu.Unlock()
}

func (p *fakePage) SetHTML(selector, html string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.regions[selector]; !ok {
		return fmt.Errorf("no region %q", selector)
	}
	p.regions[selector] = html
	p.log = append(p.log, "html "+html)
	return nil
}

func (p *fakePage) Template(id string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.templates[id]
	return t, ok
}

func (p *fakePage) SetActive(group, id string) {
	p.mu.Lock()
	p.active[group] = id
	p.mu.Unlock()
}

func (p *fakePage) content() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.regions[".content"]
}

func (p *fakePage) entries() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.log...)
}

type countingObserver struct {
	mu       sync.Mutex
	outcomes []Outcome
	renders  int
	stale    int
}

func (o *countingObserver) Navigated(path, route string, outcome Outcome, d time.Duration) {
	o.mu.Lock()
	o.outcomes = append(o.outcomes, outcome)
	o.mu.Unlock()
}

func (o *countingObserver) Rendered(id string, d time.Duration, err error) {
	o.mu.Lock()
	o.renders++
	o.mu.Unlock()
}

func (o *countingObserver) StaleDropped(path string) {
	o.mu.Lock()
	o.stale++
	o.mu.Unlock()
}

func run(t *testing.T, c *Controller) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-errCh
	})
}

func waitIdle(t *testing.T, c *Controller) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Wait(ctx); err != nil {
		t.Fatalf("Wait() error: %v", err)
	}
}

func equalLog(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("log = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("log = %q, want %q", got, want)
		}
	}
}

func TestHistoryRecordedAfterHandlerBeforeData(t *testing.T) {
	page := newFakePage("/ui/")
	b := router.NewBuilder(router.WithRoot("/ui"))
	var c *Controller
	b.MustRegister("/stat", func(router.Params) {
		page.record("handler")
		c.Async(func(ctx context.Context) (any, error) {
			return "42 files", nil
		}, func(v any, err error) {
			if err := c.RenderInto(".content", "msg", map[string]any{"msg": v}); err != nil {
				t.Errorf("RenderInto() error: %v", err)
			}
		})
	})
	c = New(b.Seal(), page)
	run(t, c)

	if !c.Click("/ui/stat", false) {
		t.Fatal("Click() = false, want intercepted")
	}
	waitIdle(t, c)

	equalLog(t, page.entries(), []string{"handler", "push /ui/stat", "html <p>42 files</p>"})
}

func TestPopStateDoesNotRecord(t *testing.T) {
	page := newFakePage("/ui/")
	b := router.NewBuilder(router.WithRoot("/ui"))
	b.MustRegister("/stat", func(router.Params) { page.record("handler") })
	c := New(b.Seal(), page)
	run(t, c)

	c.PopState("/ui/stat")
	waitIdle(t, c)

	equalLog(t, page.entries(), []string{"handler"})
}

func TestStartReplacesCurrentEntry(t *testing.T) {
	page := newFakePage("/ui/tags/7?x=1")
	b := router.NewBuilder(router.WithRoot("/ui"))
	var got router.Params
	b.MustRegister("/tags/:id", func(p router.Params) { got = p })
	c := New(b.Seal(), page)
	run(t, c)

	c.Start()
	waitIdle(t, c)

	equalLog(t, page.entries(), []string{"replace /ui/tags/7?x=1"})
	if got.Get("id") != "7" {
		t.Errorf("params = %v, want id=7", got)
	}
}

func TestMissingRouteIsNoOp(t *testing.T) {
	page := newFakePage("/ui/")
	obs := &countingObserver{}
	b := router.NewBuilder(router.WithRoot("/ui"))
	b.MustRegister("/stat", func(router.Params) { page.record("handler") })
	c := New(b.Seal(), page, WithObserver(obs))
	run(t, c)

	c.Navigate("/ui/nowhere")
	c.Navigate("/ui/a//b")
	waitIdle(t, c)

	if len(page.entries()) != 0 {
		t.Errorf("page changed: %q", page.entries())
	}
	if page.content() != "initial" {
		t.Errorf("content = %q, want initial", page.content())
	}
	obs.mu.Lock()
	defer obs.mu.Unlock()
	if len(obs.outcomes) != 2 || obs.outcomes[0] != OutcomeNotFound {
		t.Errorf("outcomes = %v", obs.outcomes)
	}
}

func TestClickIgnoresForeignLinks(t *testing.T) {
	page := newFakePage("/ui/")
	b := router.NewBuilder()
	c := New(b.Seal(), page)

	for _, href := range []string{"https://example.com/", "//cdn.example.com/x", "relative", ""} {
		if c.Click(href, false) {
			t.Errorf("Click(%q) intercepted", href)
		}
	}
	if c.Click("/ui/stat", true) {
		t.Error("opted-out link intercepted")
	}
}

func TestShouldIntercept(t *testing.T) {
	tests := []struct {
		href   string
		optOut bool
		want   bool
	}{
		{"/ui/stat", false, true},
		{"/", false, true},
		{"/ui/stat", true, false},
		{"//evil.example.com/", false, false},
		{"http://example.com/ui", false, false},
		{"stat", false, false},
		{"#top", false, false},
	}
	for _, tt := range tests {
		if got := ShouldIntercept(tt.href, tt.optOut); got != tt.want {
			t.Errorf("ShouldIntercept(%q, %v) = %v, want %v", tt.href, tt.optOut, got, tt.want)
		}
	}
}

func staleRoutes(t *testing.T, page *fakePage, release <-chan struct{}, fastDone chan<- struct{}) (*router.Builder, **Controller) {
	b := router.NewBuilder()
	c := new(*Controller)
	b.MustRegister("/slow", func(router.Params) {
		(*c).Async(func(ctx context.Context) (any, error) {
			select {
			case <-release:
				return "slow", nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}, func(v any, err error) {
			if err != nil {
				t.Errorf("slow completion delivered with error %v", err)
				return
			}
			(*c).RenderInto(".content", "msg", map[string]any{"msg": v})
		})
	})
	b.MustRegister("/fast", func(router.Params) {
		(*c).Async(func(ctx context.Context) (any, error) {
			return "fast", nil
		}, func(v any, err error) {
			(*c).RenderInto(".content", "msg", map[string]any{"msg": v})
			close(fastDone)
		})
	})
	return b, c
}

func TestLatestNavigationWinsDropsStale(t *testing.T) {
	page := newFakePage("/")
	obs := &countingObserver{}
	release := make(chan struct{})
	fastDone := make(chan struct{})
	b, c := staleRoutes(t, page, release, fastDone)
	*c = New(b.Seal(), page, WithObserver(obs))
	run(t, *c)

	(*c).Navigate("/slow")
	(*c).Navigate("/fast")
	waitIdle(t, *c)

	if got := page.content(); got != "<p>fast</p>" {
		t.Errorf("content = %q, want fast", got)
	}
	obs.mu.Lock()
	defer obs.mu.Unlock()
	if obs.stale != 1 {
		t.Errorf("stale drops = %d, want 1", obs.stale)
	}
}

func TestLastResponseWins(t *testing.T) {
	page := newFakePage("/")
	release := make(chan struct{})
	fastDone := make(chan struct{})
	b, c := staleRoutes(t, page, release, fastDone)
	*c = New(b.Seal(), page, WithPolicy(LastResponseWins))
	run(t, *c)

	(*c).Navigate("/slow")
	(*c).Navigate("/fast")
	select {
	case <-fastDone:
	case <-time.After(2 * time.Second):
		t.Fatal("fast navigation never rendered")
	}
	close(release)
	waitIdle(t, *c)

	if got := page.content(); got != "<p>slow</p>" {
		t.Errorf("content = %q, want the last response (slow)", got)
	}
}

func TestRenderIntoTemplateNotFound(t *testing.T) {
	page := newFakePage("/")
	b := router.NewBuilder()
	var c *Controller
	errCh := make(chan error, 3)
	b.MustRegister("/", func(router.Params) {
		errCh <- c.RenderInto(".content", "missing", nil)
		errCh <- c.RenderInto(".content", "bad", nil)
		errCh <- c.RenderInto(".nowhere", "msg", map[string]any{"msg": "x"})
	})
	c = New(b.Seal(), page)
	run(t, c)

	c.Navigate("/")
	waitIdle(t, c)

	err := <-errCh
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("err = %v, want ErrTemplateNotFound", err)
	}
	var tnf *TemplateNotFoundError
	if !errors.As(err, &tnf) || tnf.ID != "missing" {
		t.Errorf("err = %#v, want TemplateNotFoundError{missing}", err)
	}
	if err := <-errCh; !errors.Is(err, tmpl.ErrUndefined) {
		t.Errorf("err = %v, want tmpl.ErrUndefined", err)
	}
	if err := <-errCh; err == nil {
		t.Error("expected error for missing region")
	}
	if page.content() != "initial" {
		t.Errorf("content = %q, want unchanged", page.content())
	}
}

func TestHandlerPanicIsRecovered(t *testing.T) {
	page := newFakePage("/")
	obs := &countingObserver{}
	b := router.NewBuilder()
	b.MustRegister("/boom", func(router.Params) { panic("boom") })
	b.MustRegister("/ok", func(router.Params) { page.record("ok") })
	c := New(b.Seal(), page, WithObserver(obs))
	run(t, c)

	c.Navigate("/boom")
	c.Navigate("/ok")
	waitIdle(t, c)

	equalLog(t, page.entries(), []string{"ok", "push /ok"})
	obs.mu.Lock()
	defer obs.mu.Unlock()
	if len(obs.outcomes) != 2 || obs.outcomes[0] != OutcomePanic || obs.outcomes[1] != OutcomeOK {
		t.Errorf("outcomes = %v", obs.outcomes)
	}
}

func TestAsyncPanicBecomesError(t *testing.T) {
	page := newFakePage("/")
	b := router.NewBuilder()
	var c *Controller
	errCh := make(chan error, 1)
	b.MustRegister("/", func(router.Params) {
		c.Async(func(context.Context) (any, error) {
			panic("work failed")
		}, func(v any, err error) {
			errCh <- err
		})
	})
	c = New(b.Seal(), page)
	run(t, c)

	c.Navigate("/")
	waitIdle(t, c)

	if err := <-errCh; err == nil {
		t.Error("expected error from panicking work")
	}
}

func TestHighlight(t *testing.T) {
	page := newFakePage("/")
	b := router.NewBuilder()
	var c *Controller
	b.MustRegister("/", func(router.Params) { c.Highlight("main", "stat") })
	c = New(b.Seal(), page)
	run(t, c)

	c.Navigate("/")
	waitIdle(t, c)

	page.mu.Lock()
	defer page.mu.Unlock()
	if page.active["main"] != "stat" {
		t.Errorf("active = %v", page.active)
	}
}

func TestRunTwice(t *testing.T) {
	c := New(router.NewBuilder().Seal(), newFakePage("/"))
	run(t, c)

	// Let the first Run claim the loop.
	deadline := time.Now().Add(2 * time.Second)
	for !c.running.Load() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if err := c.Run(context.Background()); !errors.Is(err, ErrRunning) {
		t.Errorf("second Run() = %v, want ErrRunning", err)
	}
}

func TestDispatchAfterClose(t *testing.T) {
	c := New(router.NewBuilder().Seal(), newFakePage("/"))
	c.Close()
	if c.Dispatch(func() {}) {
		t.Error("Dispatch() after Close = true")
	}
	if err := c.Wait(context.Background()); err != nil {
		t.Errorf("Wait() = %v, want nil when idle", err)
	}
}

func TestParsePolicy(t *testing.T) {
	for _, p := range []Policy{LatestNavigationWins, LastResponseWins} {
		got, err := ParsePolicy(p.String())
		if err != nil || got != p {
			t.Errorf("ParsePolicy(%q) = %v, %v", p.String(), got, err)
		}
	}
	if _, err := ParsePolicy("first"); err == nil {
		t.Error("expected error for unknown policy")
	}
}
