package cabinet

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Attribute flags how a blob is encoded.
type Attribute int

const (
	Compressed Attribute = 1 << iota
	Crypted
)

// Compressed reports whether the blob is zlib-compressed.
func (a Attribute) Compressed() bool { return a&Compressed != 0 }

// Crypted reports whether the blob is AES-CFB encrypted.
func (a Attribute) Crypted() bool { return a&Crypted != 0 }

// TagFile names the bucket manifest for a tag.
type TagFile struct {
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"createdAt"`
	EncryptKey string    `json:"encryptKey"`
	EncryptIv  string    `json:"encryptIv"`
	Attr       Attribute `json:"attr"`
	Hash       string    `json:"hash"`
}

// ParseTagFile decodes a JSON tag file.
func ParseTagFile(r io.Reader) (*TagFile, error) {
	var tag TagFile
	if err := json.NewDecoder(r).Decode(&tag); err != nil {
		return nil, fmt.Errorf("%w: tag file: %v", ErrCorrupt, err)
	}
	if !IsHash(tag.Hash) {
		return nil, fmt.Errorf("%w: tag %q: bucket hash %q", ErrCorrupt, tag.Name, tag.Hash)
	}
	return &tag, nil
}

// Public returns a copy without the encryption secrets, suitable for API
// responses.
func (t *TagFile) Public() *TagFile {
	c := *t
	c.EncryptKey = ""
	c.EncryptIv = ""
	return &c
}
