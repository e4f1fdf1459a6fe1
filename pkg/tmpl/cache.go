package tmpl

import (
	"sync"
)

// Cache holds compiled programs keyed by template identity. An entry is
// recompiled when the text registered under its id changes.
type Cache struct {
	mu      sync.RWMutex
	opts    []Option
	entries map[string]cacheEntry
}

type cacheEntry struct {
	text string
	prog *Program
}

// NewCache returns an empty cache; opts are applied to every compilation.
// WithName is set to the template id automatically.
func NewCache(opts ...Option) *Cache {
	return &Cache{opts: opts, entries: make(map[string]cacheEntry)}
}

// Get returns the compiled program for id, compiling text on first use or
// when it differs from the cached source.
func (c *Cache) Get(id, text string) (*Program, error) {
	c.mu.RLock()
	e, ok := c.entries[id]
	c.mu.RUnlock()
	if ok && e.text == text {
		return e.prog, nil
	}

	opts := append([]Option{WithName(id)}, c.opts...)
	prog, err := Compile(text, opts...)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[id] = cacheEntry{text: text, prog: prog}
	c.mu.Unlock()
	return prog, nil
}

// Render executes the cached program for id against data.
func (c *Cache) Render(id, text string, data any) (string, error) {
	prog, err := c.Get(id, text)
	if err != nil {
		return "", err
	}
	return prog.Execute(data)
}

// Len returns the number of cached programs.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Invalidate drops every cached program.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}
