package router

import (
	"regexp"
	"strings"
)

// capturePattern matches one path segment.
const capturePattern = `([^/]+)`

// placeholderName is the leading name of a ":name" segment.
var placeholderName = regexp.MustCompile(`^:(\w+)`)

// compilePattern turns a route pattern into an anchored matcher and the ordered
// list of placeholder names. Every placeholder in the pattern becomes a capture
// group; text after the name inside the same segment (":id.json") stays literal.
func compilePattern(pattern string) (*regexp.Regexp, []string, error) {
	if !strings.HasPrefix(pattern, "/") {
		return nil, nil, &PatternError{Pattern: pattern, Reason: "must begin with /"}
	}

	// Resolved paths are canonical and never carry a trailing slash.
	if len(pattern) > 1 {
		pattern = strings.TrimSuffix(pattern, "/")
	}

	segments := strings.Split(pattern, "/")
	parts := make([]string, len(segments))
	var names []string
	seen := make(map[string]bool)

	for i, seg := range segments {
		if !strings.HasPrefix(seg, ":") {
			parts[i] = regexp.QuoteMeta(seg)
			continue
		}

		m := placeholderName.FindStringSubmatch(seg)
		if m == nil {
			return nil, nil, &PatternError{Pattern: pattern, Reason: "placeholder without a name"}
		}
		name := m[1]
		if seen[name] {
			return nil, nil, &PatternError{Pattern: pattern, Reason: "duplicate placeholder :" + name}
		}
		seen[name] = true
		names = append(names, name)
		parts[i] = capturePattern + regexp.QuoteMeta(seg[len(m[0]):])
	}

	expr := "^" + strings.Join(parts, "/") + "$"
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, nil, &PatternError{Pattern: pattern, Reason: err.Error()}
	}
	return re, names, nil
}
