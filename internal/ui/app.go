package ui

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/vango-dev/cfsui/pkg/fetch"
	"github.com/vango-dev/cfsui/pkg/nav"
	"github.com/vango-dev/cfsui/pkg/router"
)

const (
	// DefaultRoot is the path the UI is served under.
	DefaultRoot = "/ui"

	// Region is the selector of the content region pages render into.
	Region = ".content"

	// NavGroup is the selector of the navigation items highlighted per page.
	NavGroup = ".navbar-nav li"
)

// Template ids.
const (
	TemplateIndex    = "index"
	TemplateStat     = "stat"
	TemplateTag      = "tags-index"
	TemplateFile     = "tags-files"
	TemplateVersions = "tags-versions-index"
	TemplateError    = "error"
)

// Option configures an App.
type Option func(*App)

// WithRoot sets the application root (default "/ui").
func WithRoot(root string) Option {
	return func(a *App) {
		a.root = root
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// WithNavOptions passes options through to the navigation controller.
func WithNavOptions(opts ...nav.Option) Option {
	return func(a *App) {
		a.navOpts = append(a.navOpts, opts...)
	}
}

// App is the cabinet browser: its routes, their data fetches and the
// controller that drives a page.
type App struct {
	client  *fetch.Client
	root    string
	logger  *slog.Logger
	navOpts []nav.Option

	router *router.Router
	ctrl   *nav.Controller
}

// New builds the route table and a controller for page. Data is fetched
// through client, whose root is the API root.
func New(page nav.Page, client *fetch.Client, opts ...Option) (*App, error) {
	a := &App{
		client: client,
		root:   DefaultRoot,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}

	b := router.NewBuilder(router.WithRoot(a.root), router.WithLogger(a.logger))
	if err := a.Register(b); err != nil {
		return nil, err
	}
	a.router = b.Seal()

	navOpts := append([]nav.Option{nav.WithLogger(a.logger)}, a.navOpts...)
	a.ctrl = nav.New(a.router, page, navOpts...)
	a.logger = a.logger.With("component", "ui")
	return a, nil
}

// Controller returns the navigation controller.
func (a *App) Controller() *nav.Controller { return a.ctrl }

// Router returns the sealed route table.
func (a *App) Router() *router.Router { return a.router }

// Root returns the application root.
func (a *App) Root() string { return a.root }

// Register adds the UI routes to b in priority order.
func (a *App) Register(b *router.Builder) error {
	routes := []struct {
		pattern string
		handler router.Handler
	}{
		{"/", a.showIndex},
		{"/stat", a.showStat},
		{"/tags/:id", a.showTag},
		{"/tags/:id/files/:file", a.showFile},
		{"/tags/:id/versions", a.showVersions},
		{"/tags/:id/versions/:version", a.showVersion},
	}
	for _, r := range routes {
		if err := b.Register(r.pattern, r.handler); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) showIndex(router.Params) {
	a.ctrl.Highlight(NavGroup, "#nav-index")
	a.load(TemplateIndex, func(ctx context.Context) (any, error) {
		var tags []any
		if err := a.client.GetJSON(ctx, "/tags", &tags); err != nil {
			return nil, err
		}
		return map[string]any{"tags": tags}, nil
	})
}

func (a *App) showStat(router.Params) {
	a.ctrl.Highlight(NavGroup, "#nav-stat")
	a.load(TemplateStat, func(ctx context.Context) (any, error) {
		var stat map[string]any
		err := a.client.GetJSON(ctx, "/stat", &stat)
		return stat, err
	})
}

// tagParams are the placeholders of the /tags routes.
type tagParams struct {
	ID      string `param:"id"`
	File    string `param:"file"`
	Version string `param:"version"`
}

func decodeTag(p router.Params) tagParams {
	var tp tagParams
	_ = p.Decode(&tp) // string fields cannot fail
	return tp
}

func (a *App) showTag(p router.Params) {
	id := decodeTag(p).ID
	a.load(TemplateTag, func(ctx context.Context) (any, error) {
		return a.tagDetail(ctx, "/tags/"+url.PathEscape(id), "")
	})
}

func (a *App) showFile(p router.Params) {
	tp := decodeTag(p)
	id, file := tp.ID, tp.File
	a.load(TemplateFile, func(ctx context.Context) (any, error) {
		body, err := a.client.Get(ctx, "/tags/"+url.PathEscape(id)+"/files/"+escapePath(file))
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"id":         id,
			"path":       file,
			"size":       len(body),
			"content":    string(body),
			"isMarkdown": isMarkdown(file),
		}, nil
	})
}

func (a *App) showVersions(p router.Params) {
	id := decodeTag(p).ID
	a.load(TemplateVersions, func(ctx context.Context) (any, error) {
		var versions []any
		if err := a.client.GetJSON(ctx, "/tags/"+url.PathEscape(id)+"/versions", &versions); err != nil {
			return nil, err
		}
		return map[string]any{"id": id, "versions": versions}, nil
	})
}

func (a *App) showVersion(p router.Params) {
	tp := decodeTag(p)
	id, version := tp.ID, tp.Version
	a.load(TemplateTag, func(ctx context.Context) (any, error) {
		return a.tagDetail(ctx, "/tags/"+url.PathEscape(id)+"/versions/"+url.PathEscape(version), version)
	})
}

func (a *App) tagDetail(ctx context.Context, apiPath, version string) (any, error) {
	var detail map[string]any
	if err := a.client.GetJSON(ctx, apiPath, &detail); err != nil {
		return nil, err
	}
	if detail == nil {
		detail = map[string]any{}
	}
	detail["version"] = version
	return detail, nil
}

// load runs work off the loop and renders its result into the content
// region. A failed fetch or render shows the error page instead.
func (a *App) load(templateID string, work func(ctx context.Context) (any, error)) {
	a.ctrl.Async(work, func(v any, err error) {
		if err == nil {
			err = a.ctrl.RenderInto(Region, templateID, v)
		}
		if err != nil {
			a.showError(err)
		}
	})
}

func (a *App) showError(err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	a.logger.Error("load failed", "error", err)

	data := map[string]any{"message": err.Error(), "status": 0}
	var se *fetch.StatusError
	if errors.As(err, &se) {
		data["status"] = se.StatusCode
	}
	if err := a.ctrl.RenderInto(Region, TemplateError, data); err != nil {
		a.logger.Error("error page failed", "error", err)
	}
}

// escapePath escapes each segment of p, keeping the separators.
func escapePath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

func isMarkdown(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".md", ".markdown":
		return true
	}
	return false
}
