package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(Logger(logger))
	r.Get("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello"))
	})
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	tests := []struct {
		path string
		want []string
	}{
		{"/ok", []string{"level=INFO", "path=/ok", "status=200", "bytes=5", "request_id=", "component=http"}},
		{"/boom", []string{"level=ERROR", "status=500"}},
	}
	for _, tt := range tests {
		buf.Reset()
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))
		line := buf.String()
		for _, want := range tt.want {
			if !strings.Contains(line, want) {
				t.Errorf("%s: log %q missing %q", tt.path, line, want)
			}
		}
	}
}
