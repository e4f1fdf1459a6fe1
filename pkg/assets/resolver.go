package assets

import (
	"regexp"
	"strings"
)

// Resolver turns an asset name into the URL path it is served at.
type Resolver interface {
	Asset(source string) string
}

type manifestResolver struct {
	manifest *Manifest
	prefix   string
}

// NewResolver resolves names through m and prepends prefix, e.g.
// NewResolver(m, "/assets/").Asset("boot.js") == "/assets/boot.a1b2c3d4.js".
func NewResolver(m *Manifest, prefix string) Resolver {
	return &manifestResolver{manifest: m, prefix: prefix}
}

func (r *manifestResolver) Asset(source string) string {
	return r.prefix + r.manifest.Resolve(source)
}

type passthrough struct {
	prefix string
}

// NewPassthroughResolver only prepends prefix. It is used while reloading
// and when no manifest exists.
func NewPassthroughResolver(prefix string) Resolver {
	return &passthrough{prefix: prefix}
}

func (p *passthrough) Asset(source string) string {
	return p.prefix + source
}

var assetRef = regexp.MustCompile(`\b(src|href)="([^"]+)"`)

// Rewrite replaces every src and href attribute in page that points below
// prefix with the path r resolves it to. Query strings and fragments are
// kept.
func Rewrite(page []byte, prefix string, r Resolver) []byte {
	return assetRef.ReplaceAllFunc(page, func(m []byte) []byte {
		sub := assetRef.FindSubmatch(m)
		ref := string(sub[2])
		if !strings.HasPrefix(ref, prefix) {
			return m
		}
		name, suffix := ref[len(prefix):], ""
		if i := strings.IndexAny(name, "?#"); i >= 0 {
			name, suffix = name[:i], name[i:]
		}
		if name == "" {
			return m
		}
		return []byte(string(sub[1]) + `="` + r.Asset(name) + suffix + `"`)
	})
}
