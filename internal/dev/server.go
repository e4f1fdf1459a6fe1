package dev

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/vango-dev/cfsui/internal/config"
	"github.com/vango-dev/cfsui/internal/errors"
	"github.com/vango-dev/cfsui/pkg/headless"
	"github.com/vango-dev/cfsui/pkg/tmpl"
)

// ServerOptions configures the development reload server.
type ServerOptions struct {
	// Config is the project configuration.
	Config *config.Config

	Logger *slog.Logger

	// OnTemplates is called after changed templates compiled cleanly, before
	// browsers are told to reload.
	OnTemplates func(changes []Change)

	// OnReload is called when browsers are reloaded.
	OnReload func(clients int)
}

// Server watches UI sources and pushes reload messages to connected
// browsers. Template changes are compiled first; a broken template shows
// an error overlay instead of reloading.
type Server struct {
	options ServerOptions
	logger  *slog.Logger
	watcher *Watcher
	reload  *ReloadServer

	mu      sync.Mutex
	failing map[string]string
}

// NewServer creates a new development server.
func NewServer(options ServerOptions) *Server {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := options.Config

	s := &Server{
		options: options,
		logger:  logger.With("component", "dev"),
		reload:  NewReloadServer(logger),
		failing: make(map[string]string),
		watcher: NewWatcher(WatcherConfig{
			Paths:    CollectWatchPaths(cfg),
			Ignore:   append(append([]string(nil), DefaultIgnore...), cfg.Dev.Ignore...),
			Interval: cfg.Dev.Interval,
		}),
	}
	s.watcher.OnChange(s.handleChanges)
	return s
}

// Handler serves the reload websocket.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.reload.HandleWebSocket)
}

// Reload returns the underlying broadcaster.
func (s *Server) Reload() *ReloadServer {
	return s.reload
}

// Start watches until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("watching", "paths", s.watcher.config.Paths, "interval", s.watcher.config.Interval)
	err := s.watcher.Start(ctx)
	s.reload.Close()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Stop stops watching and disconnects browsers.
func (s *Server) Stop() {
	s.watcher.Stop()
	s.reload.Close()
}

func (s *Server) handleChanges(changes []Change) {
	var templates []Change
	cssOnly := true
	for _, c := range changes {
		s.logger.Debug("change", "path", c.Path, "type", c.Type, "removed", c.Removed)
		switch c.Type {
		case ChangeTemplate:
			templates = append(templates, c)
			cssOnly = false
		case ChangeAsset:
			cssOnly = false
		}
	}

	if len(templates) > 0 {
		if msg := s.checkTemplates(templates); msg != "" {
			s.logger.Warn("template error", "error", msg)
			s.reload.NotifyError(msg)
			return
		}
		s.reload.ClearError()
		if s.options.OnTemplates != nil {
			s.options.OnTemplates(templates)
		}
	}

	if cssOnly {
		for _, c := range changes {
			s.reload.NotifyCSS(filepath.Base(c.Path))
		}
		return
	}
	s.notifyReload()
}

// checkTemplates compiles each changed template and returns the combined
// error text of every template still failing.
func (s *Server) checkTemplates(changes []Change) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range changes {
		delete(s.failing, c.Path)
		if c.Removed {
			continue
		}
		if msg := CheckTemplateFile(c.Path); msg != "" {
			s.failing[c.Path] = msg
		}
	}

	var b strings.Builder
	for _, msg := range s.failing {
		b.WriteString(msg)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// CheckTemplateFile compiles the template at path and returns a formatted
// error, or "" when it compiles. HTML files are checked template by
// template; other files are compiled whole with the base name as id.
func CheckTemplateFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Sprintf("%s: %v", path, err)
	}

	sources := make(map[string]string)
	if strings.EqualFold(filepath.Ext(path), ".html") {
		page := headless.New("/")
		if err := page.LoadMarkup(bytes.NewReader(data)); err != nil {
			return fmt.Sprintf("%s: %v", path, err)
		}
		for _, id := range page.Templates() {
			text, _ := page.Template(id)
			sources[id] = text
		}
	} else {
		id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		sources[id] = string(data)
	}

	var msgs []string
	for id, text := range sources {
		if _, err := tmpl.Compile(text, tmpl.WithName(id)); err != nil {
			msgs = append(msgs, errors.FromError(err, text).FormatCompact())
		}
	}
	return strings.Join(msgs, "\n")
}

func (s *Server) notifyReload() {
	clients := s.reload.ClientCount()
	s.logger.Info("reloading", "clients", clients)
	s.reload.NotifyReload()
	if s.options.OnReload != nil {
		s.options.OnReload(clients)
	}
}
