package router

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/vango-dev/cfsui/pkg/routepath"
)

// Option configures a Builder and the Router it seals.
type Option func(*options)

type options struct {
	root   string
	logger *slog.Logger
}

// WithRoot sets the application root that is stripped from paths before
// matching (e.g. "/ui").
func WithRoot(root string) Option {
	return func(o *options) {
		o.root = root
	}
}

// WithLogger sets the logger used for unresolved navigations.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Builder collects routes during initialization.
type Builder struct {
	mu     sync.Mutex
	opts   options
	routes []*Route
	sealed *Router
}

// NewBuilder creates an empty route builder.
func NewBuilder(opts ...Option) *Builder {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = o.logger.With("component", "router")
	return &Builder{opts: o}
}

// Register appends a route. The pattern is compiled before anything is stored,
// so a rejected pattern leaves the route list untouched.
func (b *Builder) Register(pattern string, handler Handler) error {
	if handler == nil {
		return fmt.Errorf("%w for %q", ErrNilHandler, pattern)
	}
	matcher, names, err := compilePattern(pattern)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sealed != nil {
		return fmt.Errorf("%w: cannot register %q", ErrSealed, pattern)
	}
	b.routes = append(b.routes, &Route{
		Pattern:    pattern,
		ParamNames: names,
		Handler:    handler,
		Index:      len(b.routes),
		matcher:    matcher,
	})
	return nil
}

// MustRegister is like Register but panics on error.
func (b *Builder) MustRegister(pattern string, handler Handler) {
	if err := b.Register(pattern, handler); err != nil {
		panic(err)
	}
}

// Seal ends the registration phase and returns the immutable Router.
// Calling Seal again returns the same Router.
func (b *Builder) Seal() *Router {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sealed == nil {
		routes := make([]*Route, len(b.routes))
		copy(routes, b.routes)
		b.sealed = &Router{
			routes: routes,
			root:   b.opts.root,
			logger: b.opts.logger,
		}
	}
	return b.sealed
}

// Router resolves paths against a fixed, ordered route list.
// It is safe for concurrent use.
type Router struct {
	routes []*Route
	root   string
	logger *slog.Logger
}

// Root returns the application root stripped before matching.
func (r *Router) Root() string {
	return r.root
}

// Routes returns the registered routes in priority order.
func (r *Router) Routes() []*Route {
	out := make([]*Route, len(r.routes))
	copy(out, r.routes)
	return out
}

// Resolve finds the first route, in registration order, that accepts path.
// The application root, query string and fragment are removed before matching.
// It returns a *NotFoundError when nothing matches.
func (r *Router) Resolve(path string) (*MatchResult, error) {
	canon, err := routepath.CanonicalizePath(path)
	if err != nil {
		return nil, fmt.Errorf("router: resolve %q: %w", path, err)
	}
	sub := routepath.StripRoot(canon.Path, r.root)

	for _, route := range r.routes {
		if params, ok := route.Match(sub); ok {
			return &MatchResult{Route: route, Params: params, Path: sub}, nil
		}
	}
	return nil, &NotFoundError{Path: path}
}

// Dispatch resolves path, invokes the matched handler and then passes path to
// record. A nil record leaves history alone (used for back/forward, where the
// browser has already moved). Unresolved paths are logged and returned as
// errors; no handler runs and nothing is recorded.
func (r *Router) Dispatch(path string, record func(path string)) (*MatchResult, error) {
	result, err := r.Resolve(path)
	if err != nil {
		r.logger.Warn("invalid url", "path", path, "error", err)
		return nil, err
	}

	r.logger.Debug("dispatch", "path", path, "route", result.Route.Pattern)
	result.Route.Handler(result.Params)

	if record != nil {
		record(path)
	}
	return result, nil
}
