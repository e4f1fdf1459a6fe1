package tmpl

import (
	"sort"
	"strings"
)

const (
	openMarker  = "<%"
	closeMarker = "%>"
)

type fragKind int

const (
	fragText fragKind = iota
	fragEscaped
	fragRaw
	fragComment
	fragCode
)

// fragment is one literal or embedded region of the template source.
type fragment struct {
	kind fragKind
	text string
	pos  position
}

type position struct {
	line int
	col  int
}

// lineIndex converts byte offsets into 1-based line/column positions.
type lineIndex []int

func newLineIndex(src string) lineIndex {
	idx := lineIndex{0}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			idx = append(idx, i+1)
		}
	}
	return idx
}

func (l lineIndex) at(off int) position {
	line := sort.Search(len(l), func(i int) bool { return l[i] > off }) - 1
	return position{line: line + 1, col: off - l[line] + 1}
}

// scan splits src into literal text and embedded regions in one pass.
func scan(src string) ([]fragment, error) {
	lines := newLineIndex(src)
	var frags []fragment

	cursor := 0
	for {
		open := strings.Index(src[cursor:], openMarker)
		if open < 0 {
			break
		}
		open += cursor
		if open > cursor {
			frags = append(frags, fragment{kind: fragText, text: src[cursor:open], pos: lines.at(cursor)})
		}

		start := open + len(openMarker)
		end := strings.Index(src[start:], closeMarker)
		if end < 0 {
			p := lines.at(open)
			return nil, &SyntaxError{Line: p.line, Col: p.col, Msg: "unclosed " + openMarker}
		}
		end += start

		kind := fragCode
		if start < end {
			switch src[start] {
			case '=':
				kind = fragEscaped
				start++
			case '-':
				kind = fragRaw
				start++
			case '#':
				kind = fragComment
				start++
			}
		}

		frags = append(frags, fragment{kind: kind, text: src[start:end], pos: lines.at(start)})
		cursor = end + len(closeMarker)
	}

	if cursor < len(src) {
		frags = append(frags, fragment{kind: fragText, text: src[cursor:], pos: lines.at(cursor)})
	}
	return frags, nil
}
