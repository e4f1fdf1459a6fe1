package tmpl

import (
	"errors"
	"sync"
	"testing"
)

func TestCacheCompilesOnce(t *testing.T) {
	c := NewCache()

	p1, err := c.Get("greeting", "hi <%= name %>")
	if err != nil {
		t.Fatal(err)
	}
	p2, err := c.Get("greeting", "hi <%= name %>")
	if err != nil {
		t.Fatal(err)
	}
	if p1 != p2 {
		t.Error("expected cached program to be reused")
	}
	if p1.Name() != "greeting" {
		t.Errorf("Name() = %q, want greeting", p1.Name())
	}

	p3, err := c.Get("greeting", "bye <%= name %>")
	if err != nil {
		t.Fatal(err)
	}
	if p3 == p1 {
		t.Error("expected recompilation after text change")
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}

	c.Invalidate()
	if c.Len() != 0 {
		t.Errorf("Len() after Invalidate = %d, want 0", c.Len())
	}
}

func TestCacheRender(t *testing.T) {
	c := NewCache(WithFuncs(FuncMap{"twice": func(args ...any) (any, error) {
		s := toString(args[0])
		return s + s, nil
	}}))

	got, err := c.Render("t", "<%= twice(x) %>", map[string]any{"x": "ab"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "abab" {
		t.Errorf("Render() = %q, want abab", got)
	}

	_, err = c.Render("bad", "<% if %>", nil)
	var se *SyntaxError
	if !errors.As(err, &se) || se.Name != "bad" {
		t.Errorf("err = %v, want SyntaxError named bad", err)
	}
	if c.Len() != 1 {
		t.Errorf("failed compilation was cached")
	}
}

func TestCacheConcurrent(t *testing.T) {
	c := NewCache()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := c.Render("loop", "<% for i in 3 %><%= i %><% end %>", nil)
			if err != nil || out != "012" {
				t.Errorf("Render() = %q, %v", out, err)
			}
		}()
	}
	wg.Wait()
}
