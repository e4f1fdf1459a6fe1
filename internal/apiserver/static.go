package apiserver

import (
	"bytes"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vango-dev/cfsui/internal/dev"
	"github.com/vango-dev/cfsui/internal/ui"
)

// assetPath returns a sanitized path inside the asset file system. It
// rejects traversal and absolute-path tricks so requests cannot escape the
// asset root.
func assetPath(rel string) (string, bool) {
	if rel == "" {
		return "", false
	}

	// Reject NUL early (can appear via %00).
	if strings.IndexByte(rel, 0) != -1 {
		return "", false
	}
	if strings.Contains(rel, "\\") {
		return "", false
	}

	// "/assets//etc/passwd" leaves a leading slash after the prefix.
	if strings.HasPrefix(rel, "/") {
		return "", false
	}

	// Reject dot-segments before cleaning so traversal attempts are not
	// cleaned into a different, valid path.
	for _, seg := range strings.Split(rel, "/") {
		if seg == "." || seg == ".." {
			return "", false
		}
	}

	clean := path.Clean(rel)
	if !fs.ValidPath(clean) || clean == "." {
		return "", false
	}
	return clean, true
}

func (s *Server) serveAsset(w http.ResponseWriter, r *http.Request) {
	rel, ok := assetPath(chi.URLParam(r, "*"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	if rel == ui.ShellFile {
		// The raw shell has no templates; it is only served assembled.
		http.NotFound(w, r)
		return
	}

	f, err := s.assets.Open(rel)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	s.applyCacheHeaders(w, rel)

	if rs, ok := f.(io.ReadSeeker); ok {
		http.ServeContent(w, r, rel, info.ModTime(), rs)
		return
	}
	data, err := io.ReadAll(f)
	if err != nil {
		http.Error(w, "read failed", http.StatusInternalServerError)
		return
	}
	http.ServeContent(w, r, rel, info.ModTime(), bytes.NewReader(data))
}

// applyCacheHeaders disables caching while reloading and otherwise lets
// fingerprinted files be cached for a year.
func (s *Server) applyCacheHeaders(w http.ResponseWriter, rel string) {
	switch {
	case s.dev != nil:
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	case isFingerprinted(rel):
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	default:
		w.Header().Set("Cache-Control", "public, max-age=3600, must-revalidate")
	}
}

// isFingerprinted reports whether the file name carries a content hash, e.g.
// "app.a1b2c3d4.css".
func isFingerprinted(filePath string) bool {
	parts := strings.Split(path.Base(filePath), ".")
	if len(parts) < 3 {
		return false
	}

	hash := parts[len(parts)-2]
	if len(hash) < 8 {
		return false
	}
	for _, c := range hash {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}

// serveShell answers every UI path with the assembled shell page; the
// runtime resolves the path in the browser.
func (s *Server) serveShell(w http.ResponseWriter, r *http.Request) {
	opts := ui.ShellOptions{Assets: s.uiAssets, Templates: s.uiTemplates, Resolver: s.resolver}
	if s.dev != nil {
		opts.DevScript = dev.DevClientScript
	}
	page, err := ui.Shell(opts)
	if err != nil {
		s.logger.Error("shell failed", "error", err)
		http.Error(w, "shell unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, ui.ShellFile, time.Time{}, bytes.NewReader(page))
}
