package headless

import (
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/net/html"
)

// LoadMarkup reads an HTML document and registers its inline templates
// (<script type="text/template" id="...">) and its regions: every element id
// becomes a "#id" selector and every class a ".class" selector.
func (p *Page) LoadMarkup(r io.Reader) error {
	doc, err := html.Parse(r)
	if err != nil {
		return fmt.Errorf("headless: parse markup: %w", err)
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if n.Data == "script" {
				if attr(n, "type") == "text/template" {
					if id := attr(n, "id"); id != "" {
						p.AddTemplate(id, text(n))
					}
				}
				return
			}
			if id := attr(n, "id"); id != "" {
				p.AddRegion("#" + id)
			}
			for _, class := range strings.Fields(attr(n, "class")) {
				p.AddRegion("." + class)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return nil
}

// LoadTemplatesFS registers every file of fsys matching the doublestar
// pattern (e.g. "templates/**/*.html"). A template's id is its base name
// without extension.
func (p *Page) LoadTemplatesFS(fsys fs.FS, pattern string) (int, error) {
	matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
	if err != nil {
		return 0, fmt.Errorf("headless: glob %q: %w", pattern, err)
	}
	for _, name := range matches {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return 0, fmt.Errorf("headless: read template: %w", err)
		}
		base := path.Base(name)
		p.AddTemplate(strings.TrimSuffix(base, path.Ext(base)), string(data))
	}
	return len(matches), nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func text(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}
