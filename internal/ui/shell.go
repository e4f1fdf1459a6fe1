package ui

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/vango-dev/cfsui/pkg/assets"
)

// ShellFile is the page every UI path is answered with.
const ShellFile = "index.html"

// AssetPrefix is the URL path assets are served under.
const AssetPrefix = "/assets/"

const (
	templatesMarker = "<!--templates-->"
	devMarker       = "<!--dev-->"
)

// ErrTemplateScript is returned for template sources that would end the
// <script> element they are inlined into.
var ErrTemplateScript = errors.New("ui: template contains </script")

// ShellOptions selects the sources the shell page is assembled from.
type ShellOptions struct {
	// Assets holds index.html (default Assets()).
	Assets fs.FS

	// Templates holds the *.tmpl files (default Templates()).
	Templates fs.FS

	// DevScript is inserted before </body> when set.
	DevScript string

	// Resolver, when set, rewrites AssetPrefix references to fingerprinted
	// names.
	Resolver assets.Resolver
}

// Shell assembles the UI page: index.html with every template inlined as a
// <script type="text/template"> element named after its file.
func Shell(opts ShellOptions) ([]byte, error) {
	if opts.Assets == nil {
		opts.Assets = Assets()
	}
	if opts.Templates == nil {
		opts.Templates = Templates()
	}

	page, err := fs.ReadFile(opts.Assets, ShellFile)
	if err != nil {
		return nil, fmt.Errorf("ui: read shell: %w", err)
	}

	names, err := doublestar.Glob(opts.Templates, "**/*.tmpl", doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("ui: list templates: %w", err)
	}

	var scripts bytes.Buffer
	for _, name := range names {
		src, err := fs.ReadFile(opts.Templates, name)
		if err != nil {
			return nil, fmt.Errorf("ui: read template: %w", err)
		}
		if bytes.Contains(bytes.ToLower(src), []byte("</script")) {
			return nil, fmt.Errorf("%w: %s", ErrTemplateScript, name)
		}
		id := strings.TrimSuffix(path.Base(name), ".tmpl")
		fmt.Fprintf(&scripts, "  <script type=\"text/template\" id=\"%s\">\n%s  </script>\n", id, src)
	}

	page = bytes.Replace(page, []byte(templatesMarker), scripts.Bytes(), 1)
	page = bytes.Replace(page, []byte(devMarker), []byte(opts.DevScript), 1)
	if opts.Resolver != nil {
		page = assets.Rewrite(page, AssetPrefix, opts.Resolver)
	}
	return page, nil
}
