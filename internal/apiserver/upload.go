package apiserver

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vango-dev/cfsui/internal/cabinet"
)

// registerUploads adds the write endpoints used by cfs clients to publish
// tags. Stores without write support, and read-only servers, get none.
// Responses are plain text, as those clients expect.
func (s *Server) registerUploads(r chi.Router) {
	if s.writer == nil {
		return
	}
	r.Post("/upload/{hash}", s.handleUpload)
	r.Post("/nonexists", s.handleNonexists)
	r.Post("/tags/{id}", s.handlePutTag)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	hash := chi.URLParam(r, "hash")
	created, err := cabinet.Upload(r.Context(), s.writer, hash, body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !created {
		writeText(w, http.StatusOK, "already exists")
		return
	}
	s.logger.Debug("blob uploaded", "hash", hash, "size", len(body))
	writeText(w, http.StatusCreated, "created")
}

// handleNonexists answers which of the newline-separated hashes in the body
// still need uploading. An empty response means none.
func (s *Server) handleNonexists(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	missing, err := cabinet.Missing(r.Context(), s.writer, strings.Split(string(body), "\n"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeText(w, http.StatusOK, strings.Join(missing, "\n"))
}

func (s *Server) handlePutTag(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	tag, err := cabinet.ParseTagFile(bytes.NewReader(body))
	if err != nil {
		writeText(w, http.StatusBadRequest, err.Error())
		return
	}
	switch tag.Name {
	case "":
		tag.Name = id
	case id:
	default:
		writeText(w, http.StatusBadRequest, fmt.Sprintf("tag name %q does not match %q", tag.Name, id))
		return
	}
	if tag.CreatedAt.IsZero() {
		tag.CreatedAt = time.Now()
	}
	if ok, err := s.writer.HasBlob(r.Context(), tag.Hash); err != nil || !ok {
		if err == nil {
			err = &cabinet.NotFoundError{Kind: "bucket", Name: tag.Hash}
		}
		s.writeError(w, r, err)
		return
	}

	changed, err := s.writer.PutTag(tag)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !changed {
		writeText(w, http.StatusOK, "not modified")
		return
	}
	s.logger.Info("tag published", "tag", tag.Name, "hash", tag.Hash)
	writeText(w, http.StatusCreated, "tag created")
}

// readBody reads the request body up to server.max_upload bytes, answering
// 413 past that.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUpload))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeText(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("body exceeds %d bytes", tooBig.Limit))
			return nil, false
		}
		writeText(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return body, true
}

func writeText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	io.WriteString(w, text)
}
