// Package apiserver is the HTTP server behind the UI.
//
// Routes, with the default roots:
//
//	GET /api/stat                             object count and total size
//	GET /api/tags                             current tag files
//	GET /api/tags/{id}                        a tag and its manifest
//	GET /api/tags/{id}/files/*                decoded file contents
//	GET /api/tags/{id}/versions               recorded version names
//	GET /api/tags/{id}/versions/{version}     a recorded tag and its manifest
//	GET /ui/*                                 the shell page
//	GET /assets/*                             static assets
//	GET /healthz, /metrics
//
// Tag files are returned without their encryption key and IV. When basic
// auth is configured it guards /api and /ui. Errors are JSON objects with an
// "error" field.
package apiserver
