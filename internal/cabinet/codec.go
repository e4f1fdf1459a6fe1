package cabinet

import (
	"bytes"
	"compress/zlib"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
)

// IsHash reports whether s is a lowercase hex md5 digest.
func IsHash(s string) bool {
	if len(s) != 32 {
		return false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}

// HashPath returns the blob path for hash, relative to the cabinet root.
func HashPath(hash string) (string, error) {
	if !IsHash(hash) {
		return "", fmt.Errorf("%w: %q", ErrInvalidHash, hash)
	}
	return "data/" + hash[:2] + "/" + hash[2:], nil
}

// Sum returns the md5 hex digest of data.
func Sum(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// Encode compresses and then encrypts data as attr requires.
func Encode(data []byte, key, iv string, attr Attribute) ([]byte, error) {
	if attr.Compressed() {
		var buf bytes.Buffer
		w := zlib.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		data = buf.Bytes()
	}
	if attr.Crypted() {
		stream, err := cfbStream(key, iv, cipher.NewCFBEncrypter)
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(data))
		stream.XORKeyStream(out, data)
		data = out
	}
	return data, nil
}

// Decode reverses Encode: it decrypts and then decompresses.
func Decode(data []byte, key, iv string, attr Attribute) ([]byte, error) {
	if attr.Crypted() {
		stream, err := cfbStream(key, iv, cipher.NewCFBDecrypter)
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(data))
		stream.XORKeyStream(out, data)
		data = out
	}
	if attr.Compressed() {
		r, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: inflate: %v", ErrCorrupt, err)
		}
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("%w: inflate: %v", ErrCorrupt, err)
		}
		data = out
	}
	return data, nil
}

func cfbStream(key, iv string, mode func(cipher.Block, []byte) cipher.Stream) (cipher.Stream, error) {
	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKey, err)
	}
	if len(iv) != block.BlockSize() {
		return nil, fmt.Errorf("%w: iv must be %d bytes, got %d", ErrKey, block.BlockSize(), len(iv))
	}
	return mode(block, []byte(iv)), nil
}
