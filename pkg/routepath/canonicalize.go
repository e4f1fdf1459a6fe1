package routepath

import (
	"errors"
	"net/url"
	"strings"
)

// CanonicalizeResult contains the result of path canonicalization.
type CanonicalizeResult struct {
	// Path is the canonicalized path (without query string or fragment).
	Path string

	// Query is the query string (without leading "?").
	Query string

	// Fragment is the fragment (without leading "#").
	Fragment string

	// Changed indicates if the path was modified during canonicalization.
	Changed bool
}

// Path canonicalization errors.
var (
	ErrInvalidPath          = errors.New("routepath: invalid path")
	ErrBackslashInPath      = errors.New("routepath: path contains backslash")
	ErrNullByteInPath       = errors.New("routepath: path contains null byte")
	ErrInvalidPercentEscape = errors.New("routepath: invalid percent escape sequence")
	ErrPathEscapesRoot      = errors.New("routepath: path escapes root via ..")
)

// CanonicalizePath normalizes a navigation target: empty and dot segments
// are dropped, ".." is resolved and the trailing slash is removed, so
// "/tags//1/./" becomes "/tags/1". Query and fragment are split off and
// returned untouched. Escaped characters are left escaped.
//
// Backslashes, NUL bytes (raw or %00), malformed percent escapes and ".."
// above the root are rejected.
func CanonicalizePath(input string) (CanonicalizeResult, error) {
	if input == "" {
		return CanonicalizeResult{Path: "/", Changed: true}, nil
	}

	rest, fragment, _ := strings.Cut(input, "#")
	raw, query := SplitPathAndQuery(rest)
	if err := checkPath(raw); err != nil {
		return CanonicalizeResult{}, err
	}

	segs := make([]string, 0, strings.Count(raw, "/")+1)
	for seg := range strings.SplitSeq(raw, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(segs) == 0 {
				return CanonicalizeResult{}, ErrPathEscapesRoot
			}
			segs = segs[:len(segs)-1]
		default:
			segs = append(segs, seg)
		}
	}

	canon := "/" + strings.Join(segs, "/")
	return CanonicalizeResult{
		Path:     canon,
		Query:    query,
		Fragment: fragment,
		Changed:  canon != raw,
	}, nil
}

// checkPath scans p once for characters a route path may not carry.
func checkPath(p string) error {
	for i := 0; i < len(p); i++ {
		switch p[i] {
		case '\\':
			return ErrBackslashInPath
		case 0:
			return ErrNullByteInPath
		case '%':
			if i+2 >= len(p) || unhex(p[i+1]) < 0 || unhex(p[i+2]) < 0 {
				return ErrInvalidPercentEscape
			}
			if unhex(p[i+1]) == 0 && unhex(p[i+2]) == 0 {
				return ErrNullByteInPath
			}
			i += 2
		}
	}
	return nil
}

func unhex(c byte) int {
	switch {
	case '0' <= c && c <= '9':
		return int(c - '0')
	case 'a' <= c && c <= 'f':
		return int(c-'a') + 10
	case 'A' <= c && c <= 'F':
		return int(c-'A') + 10
	}
	return -1
}

// DecodeSegment decodes a single captured path segment.
func DecodeSegment(segment string) (string, error) {
	decoded, err := url.PathUnescape(segment)
	if err != nil {
		return "", ErrInvalidPercentEscape
	}
	return decoded, nil
}

// ValidateNavPath checks that a navigation target is a same-origin absolute path.
// Full URLs ("http://…") and protocol-relative URLs ("//host/…") are rejected.
func ValidateNavPath(path string) error {
	if strings.HasPrefix(path, "//") || !strings.HasPrefix(path, "/") {
		return ErrInvalidPath
	}
	return nil
}

// SplitPathAndQuery splits a path into path and query components.
// The query is returned without the leading "?".
func SplitPathAndQuery(input string) (path, query string) {
	path, query, _ = strings.Cut(input, "?")
	return path, query
}

// StripRoot removes the application root from path. The root only matches on a
// segment boundary: with root "/ui", "/ui/stat" becomes "/stat" and "/ui" becomes
// "/", while "/uikit" is returned unchanged.
func StripRoot(path, root string) string {
	root = strings.TrimSuffix(root, "/")
	if root == "" {
		return path
	}
	if path == root {
		return "/"
	}
	if strings.HasPrefix(path, root) && path[len(root)] == '/' {
		return path[len(root):]
	}
	return path
}

// JoinRoot prefixes path with the application root.
func JoinRoot(root, path string) string {
	root = strings.TrimSuffix(root, "/")
	if root == "" {
		return path
	}
	if path == "/" || path == "" {
		return root
	}
	return root + path
}
