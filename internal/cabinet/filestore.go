package cabinet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileStore reads a cabinet laid out in a local directory.
type FileStore struct {
	root string
}

var _ Writer = (*FileStore)(nil)

// NewFileStore returns a store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{root: dir}
}

// Root returns the cabinet directory.
func (s *FileStore) Root() string {
	return s.root
}

// Init creates the cabinet directory layout, including the 256 blob
// fan-out directories.
func (s *FileStore) Init() error {
	for _, dir := range []string{"tags", "versions"} {
		if err := os.MkdirAll(filepath.Join(s.root, dir), 0o755); err != nil {
			return err
		}
	}
	for i := 0; i < 256; i++ {
		dir := filepath.Join(s.root, "data", fmt.Sprintf("%02x", i))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("cabinet: create %s: %w", dir, err)
		}
	}
	return nil
}

func (s *FileStore) Stat(ctx context.Context) (Stat, error) {
	var st Stat
	err := filepath.WalkDir(s.root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		st.TotalSize += info.Size()
		st.FileCount++
		return nil
	})
	return st, err
}

func (s *FileStore) Tags(ctx context.Context) ([]*TagFile, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, "tags"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	tags := make([]*TagFile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		tag, err := s.readTag(filepath.Join(s.root, "tags", e.Name()), "tag", e.Name())
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return tags, nil
}

func (s *FileStore) Tag(ctx context.Context, id string) (*TagFile, error) {
	if err := validID("tag", id); err != nil {
		return nil, err
	}
	return s.readTag(filepath.Join(s.root, "tags", id), "tag", id)
}

func (s *FileStore) Versions(ctx context.Context, id string) ([]string, error) {
	if err := validID("tag", id); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(s.root, "versions", id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &NotFoundError{Kind: "tag", Name: id}
	}
	if err != nil {
		return nil, err
	}
	versions := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			versions = append(versions, e.Name())
		}
	}
	sort.Strings(versions)
	return versions, nil
}

func (s *FileStore) Version(ctx context.Context, id, version string) (*TagFile, error) {
	if err := validID("tag", id); err != nil {
		return nil, err
	}
	if err := validID("version", version); err != nil {
		return nil, err
	}
	return s.readTag(filepath.Join(s.root, "versions", id, version), "version", id+"/"+version)
}

func (s *FileStore) Blob(ctx context.Context, hash string) ([]byte, error) {
	rel, err := HashPath(hash)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(rel)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &NotFoundError{Kind: "blob", Name: hash}
	}
	return data, err
}

func (s *FileStore) readTag(path, kind, name string) (*TagFile, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &NotFoundError{Kind: kind, Name: name}
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseTagFile(f)
}

func (s *FileStore) HasBlob(ctx context.Context, hash string) (bool, error) {
	rel, err := HashPath(hash)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(filepath.Join(s.root, filepath.FromSlash(rel)))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	}
	return false, err
}

// VersionLayout formats version names.
const VersionLayout = "2006-01-02-150405"

// PutBlob stores data under its md5 and returns the hash. An existing blob
// is left untouched.
func (s *FileStore) PutBlob(data []byte) (string, error) {
	hash := Sum(data)
	rel, _ := HashPath(hash)
	path := filepath.Join(s.root, filepath.FromSlash(rel))
	if _, err := os.Stat(path); err == nil {
		return hash, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	return hash, os.WriteFile(path, data, 0o644)
}

// PutTag makes tag the current tag for its name and records it as a
// version stamped with its creation time. Writing the same bucket hash
// again changes nothing and reports false.
func (s *FileStore) PutTag(tag *TagFile) (bool, error) {
	if err := validID("tag", tag.Name); err != nil {
		return false, err
	}
	if !IsHash(tag.Hash) {
		return false, fmt.Errorf("%w: tag %q: bucket hash %q", ErrInvalidHash, tag.Name, tag.Hash)
	}
	if old, err := s.Tag(context.Background(), tag.Name); err == nil && old.Hash == tag.Hash {
		return false, nil
	}
	data, err := json.Marshal(tag)
	if err != nil {
		return false, err
	}
	if err := os.MkdirAll(filepath.Join(s.root, "tags"), 0o755); err != nil {
		return false, err
	}
	if err := os.WriteFile(filepath.Join(s.root, "tags", tag.Name), data, 0o644); err != nil {
		return false, err
	}
	dir := filepath.Join(s.root, "versions", tag.Name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, err
	}
	version := filepath.Join(dir, tag.CreatedAt.UTC().Format(VersionLayout))
	return true, os.WriteFile(version, data, 0o644)
}

// PackOptions controls how Pack encodes files.
type PackOptions struct {
	Attr      Attribute
	Key       string
	IV        string
	CreatedAt time.Time
}

// Pack stores files as blobs, writes their manifest and publishes it as
// tag name.
func (s *FileStore) Pack(name string, files map[string][]byte, opts PackOptions) (*TagFile, error) {
	if opts.CreatedAt.IsZero() {
		opts.CreatedAt = time.Now()
	}
	b := &Bucket{Contents: make(map[string]Content, len(files))}
	for path, orig := range files {
		data, err := Encode(orig, opts.Key, opts.IV, opts.Attr)
		if err != nil {
			return nil, err
		}
		hash, err := s.PutBlob(data)
		if err != nil {
			return nil, err
		}
		b.Contents[path] = Content{
			Path:     path,
			Hash:     hash,
			Size:     len(data),
			Time:     opts.CreatedAt.UTC().Truncate(time.Second),
			OrigHash: Sum(orig),
			OrigSize: len(orig),
			Attr:     opts.Attr,
		}
	}

	manifest, err := Encode([]byte(b.Dump()), opts.Key, opts.IV, opts.Attr)
	if err != nil {
		return nil, err
	}
	hash, err := s.PutBlob(manifest)
	if err != nil {
		return nil, err
	}
	tag := &TagFile{
		Name:       name,
		CreatedAt:  opts.CreatedAt,
		EncryptKey: opts.Key,
		EncryptIv:  opts.IV,
		Attr:       opts.Attr,
		Hash:       hash,
	}
	if _, err := s.PutTag(tag); err != nil {
		return nil, err
	}
	return tag, nil
}

// PackDir packs every regular file under dir, keyed by slash-separated
// relative path. Hidden files and directories are skipped.
func (s *FileStore) PackDir(name, dir string, opts PackOptions) (*TagFile, error) {
	files := make(map[string][]byte)
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p != dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Pack(name, files, opts)
}
