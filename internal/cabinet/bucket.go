package cabinet

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Content is one file listed in a bucket manifest.
type Content struct {
	Path     string    `json:"path"`
	Hash     string    `json:"hash"`
	Size     int       `json:"size"`
	Time     time.Time `json:"time"`
	OrigHash string    `json:"origHash"`
	OrigSize int       `json:"origSize"`
	Attr     Attribute `json:"attr"`
}

// Bucket is a parsed manifest keyed by path.
type Bucket struct {
	Contents map[string]Content
}

const manifestColumns = 7

// ParseBucket parses a tab-separated manifest. Blank lines are skipped; any
// other line must have seven columns.
func ParseBucket(data []byte) (*Bucket, error) {
	b := &Bucket{Contents: make(map[string]Content)}
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		c, err := parseContent(line)
		if err != nil {
			return nil, fmt.Errorf("%w: manifest line %d: %v", ErrCorrupt, i+1, err)
		}
		b.Contents[c.Path] = c
	}
	return b, nil
}

func parseContent(line string) (Content, error) {
	col := strings.Split(line, "\t")
	if len(col) < manifestColumns {
		return Content{}, fmt.Errorf("want %d columns, got %d", manifestColumns, len(col))
	}
	size, err := strconv.Atoi(col[2])
	if err != nil {
		return Content{}, fmt.Errorf("size: %w", err)
	}
	t, err := time.Parse(time.RFC3339, col[3])
	if err != nil {
		return Content{}, fmt.Errorf("time: %w", err)
	}
	origSize, err := strconv.Atoi(col[5])
	if err != nil {
		return Content{}, fmt.Errorf("orig size: %w", err)
	}
	attr, err := strconv.Atoi(col[6])
	if err != nil {
		return Content{}, fmt.Errorf("attr: %w", err)
	}
	if !IsHash(col[0]) {
		return Content{}, fmt.Errorf("invalid hash %q", col[0])
	}
	return Content{
		Hash:     col[0],
		Path:     col[1],
		Size:     size,
		Time:     t,
		OrigHash: col[4],
		OrigSize: origSize,
		Attr:     Attribute(attr),
	}, nil
}

// Paths returns the file paths in sorted order.
func (b *Bucket) Paths() []string {
	paths := make([]string, 0, len(b.Contents))
	for p := range b.Contents {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Files returns the contents sorted by path.
func (b *Bucket) Files() []Content {
	files := make([]Content, 0, len(b.Contents))
	for _, p := range b.Paths() {
		files = append(files, b.Contents[p])
	}
	return files
}

// Lookup returns the content stored under path.
func (b *Bucket) Lookup(path string) (Content, bool) {
	c, ok := b.Contents[path]
	return c, ok
}

// TotalSize sums the original sizes of all files.
func (b *Bucket) TotalSize() int64 {
	var n int64
	for _, c := range b.Contents {
		n += int64(c.OrigSize)
	}
	return n
}

// Dump renders the manifest in sorted order, the inverse of ParseBucket.
func (b *Bucket) Dump() string {
	var sb strings.Builder
	for _, c := range b.Files() {
		sb.WriteString(strings.Join([]string{
			c.Hash,
			c.Path,
			strconv.Itoa(c.Size),
			c.Time.Format(time.RFC3339),
			c.OrigHash,
			strconv.Itoa(c.OrigSize),
			strconv.Itoa(int(c.Attr)),
		}, "\t"))
		sb.WriteString("\n")
	}
	return sb.String()
}
