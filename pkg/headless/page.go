// Package headless is an in-memory page for driving the navigation controller
// without a browser: content regions, a history stack with back/forward, and
// a template store loaded from markup or a file system.
package headless

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/vango-dev/cfsui/pkg/nav"
)

// ErrNoRegion is returned by SetHTML for an unknown selector.
var ErrNoRegion = errors.New("headless: no such region")

// Option configures a Page.
type Option func(*Page)

// WithRegions declares content regions, addressed by selector.
func WithRegions(selectors ...string) Option {
	return func(p *Page) {
		for _, s := range selectors {
			p.regions[s] = ""
		}
	}
}

// WithTemplate registers template source under id.
func WithTemplate(id, text string) Option {
	return func(p *Page) {
		p.templates[id] = text
	}
}

// Page implements nav.Page in memory. It is safe for concurrent use.
type Page struct {
	mu        sync.Mutex
	history   []string
	index     int
	regions   map[string]string
	templates map[string]string
	active    map[string]string
	onPop     func(path string)
}

var _ nav.Page = (*Page)(nil)

// New creates a page whose location is initial.
func New(initial string, opts ...Option) *Page {
	p := &Page{
		history:   []string{initial},
		regions:   make(map[string]string),
		templates: make(map[string]string),
		active:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Bind delivers back/forward moves to the controller as popstate events.
func (p *Page) Bind(c *nav.Controller) {
	p.mu.Lock()
	p.onPop = func(path string) { c.PopState(path) }
	p.mu.Unlock()
}

// Path implements nav.Page.
func (p *Page) Path() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.history[p.index]
}

// PushState implements nav.Page. Forward entries are discarded.
func (p *Page) PushState(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.history = append(p.history[:p.index+1], url)
	p.index++
}

// ReplaceState implements nav.Page.
func (p *Page) ReplaceState(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.history[p.index] = url
}

// SetHTML implements nav.Page.
func (p *Page) SetHTML(selector, html string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.regions[selector]; !ok {
		return fmt.Errorf("%w: %s", ErrNoRegion, selector)
	}
	p.regions[selector] = html
	return nil
}

// Template implements nav.Page.
func (p *Page) Template(id string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.templates[id]
	return t, ok
}

// SetActive implements nav.Page.
func (p *Page) SetActive(group, id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active[group] = id
}

// AddTemplate registers or replaces a template.
func (p *Page) AddTemplate(id, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.templates[id] = text
}

// AddRegion declares a content region.
func (p *Page) AddRegion(selector string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.regions[selector]; !ok {
		p.regions[selector] = ""
	}
}

// Region returns the current content of a region.
func (p *Page) Region(selector string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	html, ok := p.regions[selector]
	return html, ok
}

// Active returns the active item of a navigation group.
func (p *Page) Active(group string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active[group]
}

// Templates returns the registered template ids, sorted.
func (p *Page) Templates() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]string, 0, len(p.templates))
	for id := range p.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// History returns the history entries and the index of the current one.
func (p *Page) History() ([]string, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.history...), p.index
}

// Back moves one entry back and fires popstate. It reports false at the
// start of history.
func (p *Page) Back() bool {
	return p.move(-1)
}

// Forward moves one entry forward and fires popstate.
func (p *Page) Forward() bool {
	return p.move(1)
}

func (p *Page) move(delta int) bool {
	p.mu.Lock()
	next := p.index + delta
	if next < 0 || next >= len(p.history) {
		p.mu.Unlock()
		return false
	}
	p.index = next
	path, onPop := p.history[next], p.onPop
	p.mu.Unlock()

	if onPop != nil {
		onPop(path)
	}
	return true
}
