// Package assets maps UI asset names to their fingerprinted files.
//
// A build step that hashes assets writes manifest.json next to them:
//
//	{
//	  "boot.js": "boot.a1b2c3d4.js",
//	  "style.css": "style.e5f60718.css"
//	}
//
// The server loads it from the asset file system and rewrites the shell's
// /assets/ references, so fingerprinted files can be cached for a year.
package assets

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"sync"
)

// ManifestFile is the manifest's name inside the asset file system.
const ManifestFile = "manifest.json"

// Manifest maps source asset names to fingerprinted names.
// It is safe for concurrent use.
type Manifest struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewManifest() *Manifest {
	return &Manifest{entries: make(map[string]string)}
}

// Load reads the manifest named name from fsys.
func Load(fsys fs.FS, name string) (*Manifest, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	entries := make(map[string]string)
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("assets: parse %s: %w", name, err)
	}
	return &Manifest{entries: entries}, nil
}

// Resolve returns the fingerprinted name for source, or source itself when
// the manifest has no entry.
func (m *Manifest) Resolve(source string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if resolved, ok := m.entries[source]; ok {
		return resolved
	}
	return source
}

func (m *Manifest) Has(source string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[source]
	return ok
}

// Set adds or replaces an entry.
func (m *Manifest) Set(source, resolved string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[source] = resolved
}

func (m *Manifest) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
