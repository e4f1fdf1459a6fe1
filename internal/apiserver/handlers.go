package apiserver

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vango-dev/cfsui/internal/cabinet"
)

func (s *Server) registerAPI(r chi.Router) {
	r.Get("/stat", s.handleStat)
	r.Get("/tags", s.handleTags)
	r.Get("/tags/{id}", s.handleTag)
	r.Get("/tags/{id}/files/*", s.handleFile)
	r.Get("/tags/{id}/versions", s.handleVersions)
	r.Get("/tags/{id}/versions/{version}", s.handleVersion)
	s.registerUploads(r)
}

func (s *Server) handleStat(w http.ResponseWriter, r *http.Request) {
	stat, err := s.cabinet.Store().Stat(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stat)
}

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.cabinet.Store().Tags(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]*cabinet.TagFile, len(tags))
	for i, tag := range tags {
		out[i] = tag.Public()
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTag(w http.ResponseWriter, r *http.Request) {
	detail, err := s.cabinet.Tag(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	// chi matches on the raw path, so the wildcard may still be escaped.
	name, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil || name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid file path"})
		return
	}

	data, content, err := s.cabinet.File(r.Context(), chi.URLParam(r, "id"), name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = "text/plain; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("ETag", strconv.Quote(content.OrigHash))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := s.cabinet.Store().Versions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if versions == nil {
		versions = []string{}
	}
	writeJSON(w, http.StatusOK, versions)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	detail, err := s.cabinet.Version(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "version"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

type errorBody struct {
	Error string `json:"error"`
}

// statusOf maps cabinet errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, cabinet.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, cabinet.ErrInvalidID), errors.Is(err, cabinet.ErrInvalidHash),
		errors.Is(err, cabinet.ErrHashMismatch):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
