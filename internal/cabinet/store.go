package cabinet

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a tag, version or blob does not exist.
	ErrNotFound = errors.New("cabinet: not found")

	// ErrInvalidHash is returned for malformed blob hashes.
	ErrInvalidHash = errors.New("cabinet: invalid hash")

	// ErrInvalidID is returned for tag ids or version names that are not a
	// single path segment.
	ErrInvalidID = errors.New("cabinet: invalid id")

	// ErrCorrupt is returned when a tag file, manifest or blob cannot be decoded.
	ErrCorrupt = errors.New("cabinet: corrupt data")

	// ErrKey is returned when a tag's key or IV cannot be used.
	ErrKey = errors.New("cabinet: invalid encryption key")

	// ErrHashMismatch is returned when uploaded data does not hash to the
	// name it was uploaded under.
	ErrHashMismatch = errors.New("cabinet: hash mismatch")
)

// Stat summarises the objects stored in a cabinet.
type Stat struct {
	TotalSize int64 `json:"totalSize"`
	FileCount int   `json:"fileCount"`
}

// Store is the raw object access a cabinet needs.
type Store interface {
	// Stat counts every stored object.
	Stat(ctx context.Context) (Stat, error)

	// Tags returns all current tag files, sorted by name.
	Tags(ctx context.Context) ([]*TagFile, error)

	// Tag returns the current tag file for id.
	Tag(ctx context.Context, id string) (*TagFile, error)

	// Versions lists the version names recorded for id, oldest first.
	Versions(ctx context.Context, id string) ([]string, error)

	// Version returns the tag file recorded as version of id.
	Version(ctx context.Context, id, version string) (*TagFile, error)

	// Blob returns the stored bytes of a content blob.
	Blob(ctx context.Context, hash string) ([]byte, error)
}

// Writer is implemented by stores that accept uploads.
type Writer interface {
	// HasBlob reports whether a blob is stored under hash.
	HasBlob(ctx context.Context, hash string) (bool, error)

	// PutBlob stores data under its md5 and returns the hash.
	PutBlob(data []byte) (string, error)

	// PutTag publishes tag as the current tag for its name and records it
	// as a version. It reports false when the tag already named the same
	// bucket.
	PutTag(tag *TagFile) (bool, error)
}

// Upload stores data as the blob named hash after checking that data hashes
// to it. It reports false when the blob already existed.
func Upload(ctx context.Context, w Writer, hash string, data []byte) (bool, error) {
	if !IsHash(hash) {
		return false, fmt.Errorf("%w: %q", ErrInvalidHash, hash)
	}
	if ok, err := w.HasBlob(ctx, hash); err != nil || ok {
		return false, err
	}
	if sum := Sum(data); sum != hash {
		return false, fmt.Errorf("%w: body hashes to %s", ErrHashMismatch, sum)
	}
	if _, err := w.PutBlob(data); err != nil {
		return false, err
	}
	return true, nil
}

// Missing returns the hashes in the list that w does not store, in input
// order. Blank entries are skipped and duplicates reported once.
func Missing(ctx context.Context, w Writer, hashes []string) ([]string, error) {
	missing := []string{}
	seen := make(map[string]bool, len(hashes))
	for _, h := range hashes {
		h = strings.TrimSpace(h)
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		if !IsHash(h) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidHash, h)
		}
		ok, err := w.HasBlob(ctx, h)
		if err != nil {
			return nil, err
		}
		if !ok {
			missing = append(missing, h)
		}
	}
	return missing, nil
}

// validID rejects ids that would escape their directory or prefix.
func validID(kind, id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, "/\\\x00") {
		return fmt.Errorf("%w: %s %q", ErrInvalidID, kind, id)
	}
	return nil
}

// NotFoundError names the missing object.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("cabinet: %s %q not found", e.Kind, e.Name)
}

// Unwrap allows errors.Is(err, ErrNotFound).
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}
