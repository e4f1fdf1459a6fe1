package tmpl

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Program nodes.
type (
	node interface{}

	textNode struct{ text string }

	outputNode struct {
		x      expr
		src    string
		pos    position
		escape bool
	}

	ifNode struct {
		branches []*condBranch
		elseBody []node
	}

	condBranch struct {
		cond expr
		src  string
		pos  position
		body []node
	}

	forNode struct {
		key, value string
		iter       expr
		src        string
		pos        position
		body       []node
		elseBody   []node
	}

	switchNode struct {
		subject expr
		src     string
		pos     position
		cases   []*caseClause
		def     []node
		hasDef  bool
	}

	caseClause struct {
		values []expr
		src    string
		pos    position
		body   []node
	}

	blockNode struct{ body []node }

	breakNode struct{}
)

type frameKind int

const (
	frameRoot frameKind = iota
	frameIf
	frameFor
	frameSwitch
	frameBlock
)

func (k frameKind) String() string {
	switch k {
	case frameIf:
		return "if"
	case frameFor:
		return "for"
	case frameSwitch:
		return "switch"
	case frameBlock:
		return "{"
	default:
		return "template"
	}
}

// frame is one open construct. target is where new nodes are appended; it
// moves when an else, case or default clause begins.
type frame struct {
	kind   frameKind
	open   position
	target *[]node
	inElse bool

	ifn  *ifNode
	forn *forNode
	sw   *switchNode
}

type parser struct {
	name  string
	funcs FuncMap
	stack []*frame
}

// forClause matches "v in src" and "k, v of src" once any wrapping
// parentheses are removed.
var forClause = regexp.MustCompile(`^([A-Za-z_$][\w$]*)(?:\s*,\s*([A-Za-z_$][\w$]*))?\s+(?:in|of)\s+(.+?)\s*$`)

// controlKeywords start a control statement when they are the first word of a
// plain <% %> region.
var controlKeywords = map[string]bool{
	"if":      true,
	"else":    true,
	"for":     true,
	"switch":  true,
	"case":    true,
	"default": true,
	"break":   true,
	"end":     true,
}

func parse(name, src string, funcs FuncMap) ([]node, error) {
	frags, err := scan(src)
	if err != nil {
		if se, ok := err.(*SyntaxError); ok {
			se.Name = name
		}
		return nil, err
	}

	var root []node
	p := &parser{name: name, funcs: funcs}
	p.stack = []*frame{{kind: frameRoot, target: &root}}

	for _, f := range frags {
		if err := p.fragment(f); err != nil {
			return nil, err
		}
	}

	if top := p.top(); top.kind != frameRoot {
		return nil, p.errorf(top.open, "unclosed %s", top.kind)
	}
	return root, nil
}

func (p *parser) top() *frame { return p.stack[len(p.stack)-1] }

func (p *parser) push(f *frame) { p.stack = append(p.stack, f) }

func (p *parser) errorf(pos position, format string, args ...any) error {
	return &SyntaxError{Name: p.name, Line: pos.line, Col: pos.col, Msg: fmt.Sprintf(format, args...)}
}

// badExpr converts an expression parse failure into a positioned SyntaxError.
func (p *parser) badExpr(pos position, src string, err error) error {
	if ee, ok := err.(*exprError); ok {
		at := advance(pos, src[:min(ee.off, len(src))])
		return &SyntaxError{Name: p.name, Line: at.line, Col: at.col, Msg: ee.msg, Err: ee.err}
	}
	return p.errorf(pos, "%v", err)
}

// advance moves pos over s, tracking newlines.
func advance(pos position, s string) position {
	for _, r := range s {
		if r == '\n' {
			pos.line++
			pos.col = 1
			continue
		}
		pos.col++
	}
	return pos
}

func (p *parser) emit(pos position, n node) error {
	top := p.top()
	if top.target == nil {
		// Inside a switch before its first case.
		if t, ok := n.(*textNode); ok && strings.TrimSpace(t.text) == "" {
			return nil
		}
		return p.errorf(pos, "unexpected content in switch before first case")
	}
	*top.target = append(*top.target, n)
	return nil
}

func (p *parser) fragment(f fragment) error {
	switch f.kind {
	case fragText:
		return p.emit(f.pos, &textNode{text: f.text})
	case fragComment:
		return nil
	case fragEscaped, fragRaw:
		return p.output(f, f.text, f.pos, f.kind == fragEscaped)
	}

	text, pos := trimSpace(f.text, f.pos)
	if text == "" {
		return nil
	}
	if text[0] == '{' || text[0] == '}' {
		return p.brace(text, pos)
	}

	word := leadingWord(text)
	if controlKeywords[word] && isStatement(word, text) {
		rest, rpos := trimSpace(text[len(word):], advance(pos, word))
		return p.statement(word, rest, rpos, pos)
	}
	return p.output(f, text, pos, false)
}

func (p *parser) output(f fragment, src string, pos position, escape bool) error {
	src, pos = trimSpace(src, pos)
	x, err := parseExpr(src, p.funcs)
	if err != nil {
		return p.badExpr(pos, src, err)
	}
	return p.emit(f.pos, &outputNode{x: x, src: src, pos: pos, escape: escape})
}

// isStatement reports whether text, starting with a control keyword, is a
// statement rather than an expression that happens to begin with one (such
// as a call of the "default" function).
func isStatement(word, text string) bool {
	rest := strings.TrimSpace(text[len(word):])
	switch word {
	case "default", "break", "end":
		return rest == "" || rest == ":" || rest == ";"
	}
	return true
}

func (p *parser) brace(text string, pos position) error {
	if text == "{" {
		b := &blockNode{}
		if err := p.emit(pos, b); err != nil {
			return err
		}
		p.push(&frame{kind: frameBlock, open: pos, target: &b.body})
		return nil
	}
	if text[0] != '}' {
		return p.errorf(pos, "unexpected %q", text)
	}

	rest, rpos := trimSpace(text[1:], advance(pos, "}"))
	if rest == "" {
		return p.end(pos)
	}
	if leadingWord(rest) == "else" {
		r, ep := trimSpace(rest[len("else"):], advance(rpos, "else"))
		return p.elseClause(r, ep, rpos)
	}
	return p.errorf(rpos, "unexpected %q after }", rest)
}

func (p *parser) statement(word, rest string, pos, start position) error {
	switch word {
	case "if":
		return p.ifStatement(rest, pos, start)
	case "else":
		return p.elseClause(rest, pos, start)
	case "for":
		return p.forStatement(rest, pos, start)
	case "switch":
		return p.switchStatement(rest, pos, start)
	case "case":
		return p.caseClause(rest, pos, start)
	case "default":
		return p.defaultClause(start)
	case "break":
		return p.breakStatement(start)
	default: // end
		return p.end(start)
	}
}

func (p *parser) condition(rest string, pos position) (expr, string, error) {
	src := strings.TrimSpace(strings.TrimSuffix(rest, "{"))
	if src == "" {
		return nil, "", p.errorf(pos, "missing condition")
	}
	x, err := parseExpr(src, p.funcs)
	if err != nil {
		return nil, "", p.badExpr(pos, src, err)
	}
	return x, src, nil
}

func (p *parser) ifStatement(rest string, pos, start position) error {
	cond, src, err := p.condition(rest, pos)
	if err != nil {
		return err
	}
	br := &condBranch{cond: cond, src: src, pos: pos}
	n := &ifNode{branches: []*condBranch{br}}
	if err := p.emit(start, n); err != nil {
		return err
	}
	p.push(&frame{kind: frameIf, open: start, target: &br.body, ifn: n})
	return nil
}

func (p *parser) elseClause(rest string, pos, start position) error {
	top := p.top()
	switch top.kind {
	case frameIf:
		if top.inElse {
			return p.errorf(start, "else after final else")
		}
		if leadingWord(rest) == "if" {
			r, cpos := trimSpace(rest[len("if"):], advance(pos, "if"))
			cond, src, err := p.condition(r, cpos)
			if err != nil {
				return err
			}
			br := &condBranch{cond: cond, src: src, pos: cpos}
			top.ifn.branches = append(top.ifn.branches, br)
			top.target = &br.body
			return nil
		}
		if r := strings.TrimSpace(strings.TrimSuffix(rest, "{")); r != "" {
			return p.errorf(pos, "unexpected %q after else", r)
		}
		top.inElse = true
		top.target = &top.ifn.elseBody
		return nil

	case frameFor:
		if top.inElse {
			return p.errorf(start, "else after final else")
		}
		if r := strings.TrimSpace(strings.TrimSuffix(rest, "{")); r != "" {
			return p.errorf(pos, "unexpected %q after else", r)
		}
		top.inElse = true
		top.target = &top.forn.elseBody
		return nil
	}
	return p.errorf(start, "else without if")
}

func (p *parser) forStatement(rest string, pos, start position) error {
	clause := strings.TrimSpace(strings.TrimSuffix(rest, "{"))
	inner, lead := clause, 0
	// Only a clause that opens with "(" has a closing paren of its own;
	// otherwise a trailing ")" belongs to the iterable.
	if strings.HasPrefix(clause, "(") && strings.HasSuffix(clause, ")") {
		body := clause[1 : len(clause)-1]
		inner = strings.TrimSpace(body)
		lead = 1 + len(body) - len(strings.TrimLeft(body, " \t"))
	}
	m := forClause.FindStringSubmatch(inner)
	if m == nil {
		return p.errorf(pos, "malformed for clause %q", clause)
	}

	n := &forNode{src: m[3], pos: advance(pos, clause[:lead+strings.LastIndex(inner, m[3])])}
	if m[2] != "" {
		n.key, n.value = m[1], m[2]
	} else {
		n.value = m[1]
	}
	x, err := parseExpr(n.src, p.funcs)
	if err != nil {
		return p.badExpr(n.pos, n.src, err)
	}
	n.iter = x

	if err := p.emit(start, n); err != nil {
		return err
	}
	p.push(&frame{kind: frameFor, open: start, target: &n.body, forn: n})
	return nil
}

func (p *parser) switchStatement(rest string, pos, start position) error {
	subject, src, err := p.condition(rest, pos)
	if err != nil {
		return err
	}
	n := &switchNode{subject: subject, src: src, pos: pos}
	if err := p.emit(start, n); err != nil {
		return err
	}
	p.push(&frame{kind: frameSwitch, open: start, sw: n})
	return nil
}

func (p *parser) caseClause(rest string, pos, start position) error {
	top := p.top()
	if top.kind != frameSwitch {
		return p.errorf(start, "case outside switch")
	}
	src := strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(rest, "{"), ":"))
	if src == "" {
		return p.errorf(pos, "missing case value")
	}
	values, err := parseExprList(src, p.funcs)
	if err != nil {
		return p.badExpr(pos, src, err)
	}
	c := &caseClause{values: values, src: src, pos: pos}
	top.sw.cases = append(top.sw.cases, c)
	top.target = &c.body
	return nil
}

func (p *parser) defaultClause(start position) error {
	top := p.top()
	if top.kind != frameSwitch {
		return p.errorf(start, "default outside switch")
	}
	if top.sw.hasDef {
		return p.errorf(start, "duplicate default")
	}
	top.sw.hasDef = true
	top.target = &top.sw.def
	return nil
}

func (p *parser) breakStatement(start position) error {
	for i := len(p.stack) - 1; i > 0; i-- {
		if k := p.stack[i].kind; k == frameFor || k == frameSwitch {
			return p.emit(start, &breakNode{})
		}
	}
	return p.errorf(start, "break outside loop or switch")
}

func (p *parser) end(start position) error {
	if len(p.stack) == 1 {
		return p.errorf(start, "unexpected end")
	}
	p.stack = p.stack[:len(p.stack)-1]
	return nil
}

// leadingWord returns the identifier at the start of s.
func leadingWord(s string) string {
	for i, r := range s {
		if r != '_' && r != '$' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return s[:i]
		}
	}
	return s
}

// trimSpace trims s and moves pos past any leading whitespace.
func trimSpace(s string, pos position) (string, position) {
	trimmed := strings.TrimLeftFunc(s, unicode.IsSpace)
	pos = advance(pos, s[:len(s)-len(trimmed)])
	return strings.TrimRightFunc(trimmed, unicode.IsSpace), pos
}
