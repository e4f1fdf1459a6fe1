package nav

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/cfsui/pkg/router"
	"github.com/vango-dev/cfsui/pkg/tmpl"
)

const (
	defaultTracerName = "cfsui/nav"
	defaultQueueSize  = 64
)

// Policy decides what happens to a completion that arrives after a newer
// navigation has started.
type Policy int

const (
	// LatestNavigationWins drops completions of superseded navigations and
	// cancels their context as soon as a newer navigation is dispatched.
	LatestNavigationWins Policy = iota

	// LastResponseWins delivers every completion; whichever arrives last
	// determines the content.
	LastResponseWins
)

func (p Policy) String() string {
	switch p {
	case LatestNavigationWins:
		return "latest"
	case LastResponseWins:
		return "last-response"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy parses the names returned by Policy.String.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "latest", "":
		return LatestNavigationWins, nil
	case "last-response":
		return LastResponseWins, nil
	}
	return 0, fmt.Errorf("nav: unknown policy %q", s)
}

type historyMode int

const (
	historyNone historyMode = iota
	historyPush
	historyReplace
)

func (m historyMode) String() string {
	switch m {
	case historyPush:
		return "push"
	case historyReplace:
		return "replace"
	default:
		return "none"
	}
}

// Navigation is one dispatched navigation. Its context is cancelled when the
// navigation is superseded (LatestNavigationWins) or the controller closes.
type Navigation struct {
	ID     string
	Seq    uint64
	Path   string
	Route  string
	Params router.Params

	ctx    context.Context
	cancel context.CancelFunc
}

// Context returns the navigation's context.
func (n *Navigation) Context() context.Context {
	return n.ctx
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithObserver registers an observer for navigation and render events.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		c.observer = o
	}
}

// WithPolicy sets the stale-response policy (default LatestNavigationWins).
func WithPolicy(p Policy) Option {
	return func(c *Controller) {
		c.policy = p
	}
}

// WithQueueSize sets the capacity of the event queue.
func WithQueueSize(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// WithTemplateCache shares a compiled-template cache with the controller.
func WithTemplateCache(cache *tmpl.Cache) Option {
	return func(c *Controller) {
		c.cache = cache
	}
}

// WithTracerName sets the OpenTelemetry tracer name.
func WithTracerName(name string) Option {
	return func(c *Controller) {
		c.tracer = otel.Tracer(name)
	}
}

// Controller owns the navigation loop for one page.
type Controller struct {
	router    *router.Router
	page      Page
	logger    *slog.Logger
	observer  Observer
	policy    Policy
	tracer    trace.Tracer
	cache     *tmpl.Cache
	queueSize int

	queue     chan func()
	done      chan struct{}
	closeOnce sync.Once
	running   atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	pending int
	idle    chan struct{}

	// Owned by the loop.
	current *Navigation
	seq     uint64
}

// New creates a controller for page. Routes must already be sealed.
func New(r *router.Router, page Page, opts ...Option) *Controller {
	c := &Controller{
		router:    r,
		page:      page,
		logger:    slog.Default(),
		observer:  nopObserver{},
		tracer:    otel.Tracer(defaultTracerName),
		queueSize: defaultQueueSize,
		done:      make(chan struct{}),
		idle:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = tmpl.NewCache()
	}
	c.logger = c.logger.With("component", "nav")
	c.queue = make(chan func(), c.queueSize)
	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c
}

// Router returns the router the controller dispatches to.
func (c *Controller) Router() *router.Router { return c.router }

// Page returns the page the controller drives.
func (c *Controller) Page() Page { return c.page }

// Run processes queued events until ctx is cancelled or Close is called.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer c.running.Store(false)

	for {
		select {
		case fn := <-c.queue:
			c.exec(fn)

		case <-ctx.Done():
			c.Close()
			return ctx.Err()

		case <-c.done:
			return nil
		}
	}
}

// Close stops the loop and cancels every outstanding navigation.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.cancel()
	})
}

// exec runs one queued function on the loop.
func (c *Controller) exec(fn func()) {
	defer c.finish()
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("dispatch panic",
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}

// Dispatch queues fn to run on the loop. It never blocks: when the queue is
// full the function is discarded and false is returned.
func (c *Controller) Dispatch(fn func()) bool {
	return c.post(fn, false)
}

func (c *Controller) post(fn func(), block bool) bool {
	c.begin()
	select {
	case <-c.done:
		c.finish()
		return false
	default:
	}

	if block {
		select {
		case c.queue <- fn:
			return true
		case <-c.done:
		}
	} else {
		select {
		case c.queue <- fn:
			return true
		case <-c.done:
		default:
			c.logger.Warn("navigation queue full, discarding event")
		}
	}
	c.finish()
	return false
}

func (c *Controller) begin() {
	c.mu.Lock()
	c.pending++
	c.mu.Unlock()
}

func (c *Controller) finish() {
	c.mu.Lock()
	c.pending--
	if c.pending == 0 {
		close(c.idle)
		c.idle = make(chan struct{})
	}
	c.mu.Unlock()
}

// Wait blocks until no events are queued and no async work is outstanding.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	if c.pending == 0 {
		c.mu.Unlock()
		return nil
	}
	idle := c.idle
	c.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrClosed
	}
}

// Click handles a click on a link to href. It returns true when the click is
// handled in page, in which case the caller must prevent the default action.
func (c *Controller) Click(href string, optOut bool) bool {
	if !ShouldIntercept(href, optOut) {
		return false
	}
	return c.Dispatch(func() { c.navigate(href, historyPush) })
}

// Navigate dispatches path and pushes it as a new history entry.
func (c *Controller) Navigate(path string) bool {
	return c.Dispatch(func() { c.navigate(path, historyPush) })
}

// PopState dispatches path after the browser moved through history. No
// history entry is recorded.
func (c *Controller) PopState(path string) bool {
	return c.Dispatch(func() { c.navigate(path, historyNone) })
}

// Start dispatches the page's current location so deep links and reloads
// resolve. The current history entry is replaced rather than duplicated.
func (c *Controller) Start() bool {
	return c.Dispatch(func() { c.navigate(c.page.Path(), historyReplace) })
}

// Reload dispatches the current location again without touching history.
func (c *Controller) Reload() bool {
	return c.Dispatch(func() { c.navigate(c.page.Path(), historyNone) })
}

// Current returns the latest successfully dispatched navigation. Loop only.
func (c *Controller) Current() *Navigation {
	return c.current
}

func (c *Controller) recorder(mode historyMode) func(string) {
	switch mode {
	case historyPush:
		return c.page.PushState
	case historyReplace:
		return c.page.ReplaceState
	}
	return nil
}

// navigate runs on the loop.
func (c *Controller) navigate(path string, mode historyMode) {
	start := time.Now()
	ctx, span := c.tracer.Start(c.ctx, "nav.navigate",
		trace.WithAttributes(
			attribute.String("nav.path", path),
			attribute.String("nav.history", mode.String()),
		))
	defer span.End()

	c.seq++
	nav := &Navigation{ID: uuid.NewString(), Seq: c.seq, Path: path}
	nav.ctx, nav.cancel = context.WithCancel(ctx)
	span.SetAttributes(attribute.String("nav.id", nav.ID))

	prev := c.current
	c.current = nav

	outcome := OutcomeOK
	defer func() {
		if r := recover(); r != nil {
			outcome = OutcomePanic
			c.current = prev
			nav.cancel()
			c.logger.Error("handler panic",
				"path", path,
				"panic", r,
				"stack", string(debug.Stack()))
			span.SetStatus(codes.Error, fmt.Sprint(r))
		}
		c.observer.Navigated(path, nav.Route, outcome, time.Since(start))
	}()

	result, err := c.router.Dispatch(path, c.recorder(mode))
	if err != nil {
		// The page is left as it was, including any navigation in flight.
		c.current = prev
		nav.cancel()
		outcome = OutcomeInvalid
		if errors.Is(err, router.ErrNotFound) {
			outcome = OutcomeNotFound
		}
		span.SetStatus(codes.Error, err.Error())
		return
	}

	nav.Route = result.Route.Pattern
	nav.Params = result.Params
	span.SetAttributes(attribute.String("nav.route", nav.Route))

	if prev != nil && c.policy == LatestNavigationWins {
		prev.cancel()
	}
	c.logger.Debug("navigated", "path", path, "route", nav.Route, "history", mode.String())
}

// Async runs work on its own goroutine and delivers its result to done on the
// loop. It must be called on the loop, normally from a route handler; the work
// belongs to the navigation being dispatched and receives its context.
func (c *Controller) Async(work func(ctx context.Context) (any, error), done func(v any, err error)) {
	nav := c.current
	ctx := c.ctx
	if nav != nil {
		ctx = nav.ctx
	}

	c.begin()
	go func() {
		defer c.finish()
		v, err := c.runWork(ctx, work)
		c.post(func() { c.complete(nav, v, err, done) }, true)
	}()
}

func (c *Controller) runWork(ctx context.Context, work func(context.Context) (any, error)) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("async panic",
				"panic", r,
				"stack", string(debug.Stack()))
			err = fmt.Errorf("nav: async work panicked: %v", r)
		}
	}()
	return work(ctx)
}

func (c *Controller) complete(nav *Navigation, v any, err error, done func(any, error)) {
	if nav != nil && c.policy == LatestNavigationWins && nav != c.current {
		c.logger.Debug("dropping stale response", "path", nav.Path, "navigation", nav.ID)
		c.observer.StaleDropped(nav.Path)
		return
	}
	if done != nil {
		done(v, err)
	}
}

// RenderInto renders the template registered under templateID with data and
// replaces the content of region with the result. Loop only.
func (c *Controller) RenderInto(region, templateID string, data any) error {
	ctx := c.ctx
	if c.current != nil {
		ctx = c.current.ctx
	}
	_, span := c.tracer.Start(ctx, "nav.render",
		trace.WithAttributes(
			attribute.String("nav.template", templateID),
			attribute.String("nav.region", region),
		))
	defer span.End()

	start := time.Now()
	err := c.render(region, templateID, data)
	c.observer.Rendered(templateID, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Error("render failed", "template", templateID, "region", region, "error", err)
	}
	return err
}

func (c *Controller) render(region, templateID string, data any) error {
	text, ok := c.page.Template(templateID)
	if !ok {
		return &TemplateNotFoundError{ID: templateID}
	}
	html, err := c.cache.Render(templateID, text, data)
	if err != nil {
		return err
	}
	return c.page.SetHTML(region, html)
}

// Highlight marks id as the active item of the navigation group. Loop only.
func (c *Controller) Highlight(group, id string) {
	c.page.SetActive(group, id)
}
