package dev

import (
	"cmp"
	"context"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// ChangeType classifies a changed file by what the browser must do about it.
type ChangeType int

const (
	ChangeTemplate ChangeType = iota // shell must be rebuilt
	ChangeCSS                        // stylesheets can be swapped in place
	ChangeAsset
)

var changeTypeNames = [...]string{"template", "css", "asset"}

func (t ChangeType) String() string {
	if int(t) < len(changeTypeNames) {
		return changeTypeNames[t]
	}
	return "asset"
}

// Change is one file added, modified or removed between two polls.
type Change struct {
	Path    string
	Type    ChangeType
	Removed bool
}

type WatcherConfig struct {
	// Paths are the directories to watch, recursively.
	Paths []string

	// Ignore holds doublestar patterns matched against slash-separated paths
	// relative to the watched directory.
	Ignore []string

	// Interval between polls; 500ms when zero.
	Interval time.Duration
}

// DefaultIgnore skips dot files, editor leftovers and node_modules.
var DefaultIgnore = []string{
	"**/.*",
	"**/.*/**",
	"**/node_modules/**",
	"**/*.swp",
	"**/*.tmp",
	"**/*~",
}

// stamp is what a poll remembers about a file. Size is kept as well as the
// modification time because coarse file system clocks can miss a rewrite.
type stamp struct {
	mod  time.Time
	size int64
}

// snapshot maps file paths to their stamps.
type snapshot map[string]stamp

// Watcher polls directories for modified, added and removed files. Polling
// needs no platform notification API and behaves the same on every file
// system the UI assets may live on.
type Watcher struct {
	config WatcherConfig

	mu       sync.Mutex
	onChange func([]Change)
	last     snapshot // nil until the first poll
	cancel   context.CancelFunc
}

func NewWatcher(config WatcherConfig) *Watcher {
	if config.Interval <= 0 {
		config.Interval = 500 * time.Millisecond
	}
	if len(config.Ignore) == 0 {
		config.Ignore = DefaultIgnore
	}
	return &Watcher{config: config}
}

// OnChange sets the callback receiving the changes of each poll.
func (w *Watcher) OnChange(fn func([]Change)) {
	w.mu.Lock()
	w.onChange = fn
	w.mu.Unlock()
}

// Start polls until ctx is done, returning ctx.Err(), or until Stop is
// called, returning nil. Calling Start on a running watcher is a no-op.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.cancel != nil {
		w.mu.Unlock()
		return nil
	}
	inner, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.mu.Unlock()
	defer w.Stop()

	w.Poll()
	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-inner.Done():
			return ctx.Err()
		case <-ticker.C:
			w.Poll()
		}
	}
}

func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
}

func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cancel != nil
}

// Poll scans once and reports what changed since the previous scan, sorted
// by path. The first scan only establishes the baseline.
func (w *Watcher) Poll() []Change {
	cur := w.scan()

	w.mu.Lock()
	prev := w.last
	w.last = cur
	callback := w.onChange
	w.mu.Unlock()

	if prev == nil {
		return nil
	}
	changes := diff(prev, cur)
	if len(changes) > 0 && callback != nil {
		callback(changes)
	}
	return changes
}

func (w *Watcher) scan() snapshot {
	snap := make(snapshot)
	for _, root := range w.config.Paths {
		// Unreadable entries are skipped; a missing root just yields nothing.
		_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			switch {
			case err != nil:
				return nil
			case w.shouldIgnore(root, p, d.IsDir()):
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			case d.IsDir():
				return nil
			}
			if info, err := d.Info(); err == nil {
				snap[p] = stamp{mod: info.ModTime(), size: info.Size()}
			}
			return nil
		})
	}
	return snap
}

func diff(prev, cur snapshot) []Change {
	var changes []Change
	for p, s := range cur {
		if old, ok := prev[p]; !ok || s.mod.After(old.mod) || s.size != old.size {
			changes = append(changes, Change{Path: p, Type: classifyChange(p)})
		}
	}
	for p := range prev {
		if _, ok := cur[p]; !ok {
			changes = append(changes, Change{Path: p, Type: classifyChange(p), Removed: true})
		}
	}
	slices.SortFunc(changes, func(a, b Change) int { return cmp.Compare(a.Path, b.Path) })
	return changes
}

// shouldIgnore matches p, relative to root, against the ignore patterns.
// Directories are also tried with a trailing slash so "build/**" prunes
// build itself.
func (w *Watcher) shouldIgnore(root, p string, dir bool) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == "." {
		return false
	}
	rel = filepath.ToSlash(rel)
	candidates := []string{rel}
	if dir {
		candidates = append(candidates, rel+"/")
	}
	for _, pattern := range w.config.Ignore {
		if pattern = strings.TrimSpace(pattern); pattern == "" {
			continue
		}
		for _, c := range candidates {
			if ok, _ := doublestar.Match(pattern, c); ok {
				return true
			}
		}
	}
	return false
}

func classifyChange(path string) ChangeType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".tmpl", ".ejs":
		return ChangeTemplate
	case ".css":
		return ChangeCSS
	}
	return ChangeAsset
}
