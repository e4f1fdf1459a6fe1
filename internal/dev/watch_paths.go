package dev

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/vango-dev/cfsui/internal/config"
)

// CollectWatchPaths returns the directories the watcher polls: dev.watch
// plus server.assets, relative entries resolved against the config file's
// directory. The result is sorted and minimal; a path already covered by a
// watched ancestor is left out, since the watcher walks recursively.
func CollectWatchPaths(cfg *config.Config) []string {
	base := cfg.Dir()
	var paths []string
	for _, p := range append(slices.Clone(cfg.Dev.Watch), cfg.Server.Assets) {
		if p == "" {
			continue
		}
		if !filepath.IsAbs(p) && base != "" {
			p = filepath.Join(base, p)
		}
		paths = append(paths, filepath.Clean(p))
	}
	slices.Sort(paths)

	out := paths[:0]
	for _, p := range paths {
		if n := len(out); n > 0 && within(out[n-1], p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// within reports whether p is dir or below it.
func within(dir, p string) bool {
	return p == dir || strings.HasPrefix(p, dir+string(filepath.Separator))
}
