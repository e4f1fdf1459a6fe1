package cabinet

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Option configures a Cabinet.
type Option func(*Cabinet)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cabinet) {
		c.logger = logger
	}
}

// WithCacheSize bounds the number of decoded manifests kept in memory.
// Zero disables caching.
func WithCacheSize(n int) Option {
	return func(c *Cabinet) {
		c.cacheSize = n
	}
}

// Cabinet resolves tags to their decoded manifests and file contents.
// Manifests are content-addressed, so cached entries never go stale.
type Cabinet struct {
	store     Store
	logger    *slog.Logger
	cacheSize int

	mu    sync.Mutex
	cache map[string]*Bucket
	order []string
}

// New wraps store.
func New(store Store, opts ...Option) *Cabinet {
	c := &Cabinet{
		store:     store,
		logger:    slog.Default(),
		cacheSize: 64,
		cache:     make(map[string]*Bucket),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "cabinet")
	return c
}

// Store returns the underlying store.
func (c *Cabinet) Store() Store {
	return c.store
}

// TagDetail is a tag with the files of its manifest.
type TagDetail struct {
	Tag   *TagFile  `json:"tag"`
	Files []Content `json:"files"`
}

// Bucket loads and decodes the manifest named by tag.
func (c *Cabinet) Bucket(ctx context.Context, tag *TagFile) (*Bucket, error) {
	if b := c.cached(tag.Hash); b != nil {
		return b, nil
	}

	raw, err := c.store.Blob(ctx, tag.Hash)
	if err != nil {
		return nil, err
	}
	data, err := Decode(raw, tag.EncryptKey, tag.EncryptIv, tag.Attr)
	if err != nil {
		return nil, fmt.Errorf("cabinet: tag %q manifest: %w", tag.Name, err)
	}
	b, err := ParseBucket(data)
	if err != nil {
		return nil, fmt.Errorf("cabinet: tag %q: %w", tag.Name, err)
	}

	c.logger.Debug("manifest loaded", "tag", tag.Name, "hash", tag.Hash, "files", len(b.Contents))
	c.remember(tag.Hash, b)
	return b, nil
}

// Tag returns the current tag and its files.
func (c *Cabinet) Tag(ctx context.Context, id string) (*TagDetail, error) {
	tag, err := c.store.Tag(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.detail(ctx, tag)
}

// Version returns a recorded version of a tag and its files.
func (c *Cabinet) Version(ctx context.Context, id, version string) (*TagDetail, error) {
	tag, err := c.store.Version(ctx, id, version)
	if err != nil {
		return nil, err
	}
	return c.detail(ctx, tag)
}

func (c *Cabinet) detail(ctx context.Context, tag *TagFile) (*TagDetail, error) {
	b, err := c.Bucket(ctx, tag)
	if err != nil {
		return nil, err
	}
	return &TagDetail{Tag: tag.Public(), Files: b.Files()}, nil
}

// File returns the decoded contents of path in the current version of id.
func (c *Cabinet) File(ctx context.Context, id, path string) ([]byte, Content, error) {
	tag, err := c.store.Tag(ctx, id)
	if err != nil {
		return nil, Content{}, err
	}
	b, err := c.Bucket(ctx, tag)
	if err != nil {
		return nil, Content{}, err
	}
	content, ok := b.Lookup(path)
	if !ok {
		return nil, Content{}, &NotFoundError{Kind: "file", Name: id + ":" + path}
	}

	raw, err := c.store.Blob(ctx, content.Hash)
	if err != nil {
		return nil, content, err
	}
	data, err := Decode(raw, tag.EncryptKey, tag.EncryptIv, content.Attr)
	if err != nil {
		return nil, content, fmt.Errorf("cabinet: %s:%s: %w", id, path, err)
	}
	return data, content, nil
}

func (c *Cabinet) cached(hash string) *Bucket {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache[hash]
}

// remember stores b, evicting the oldest entry when full.
func (c *Cabinet) remember(hash string, b *Bucket) {
	if c.cacheSize <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.cache[hash]; ok {
		return
	}
	if len(c.order) >= c.cacheSize {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.cache, oldest)
	}
	c.cache[hash] = b
	c.order = append(c.order, hash)
}
