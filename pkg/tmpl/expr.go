package tmpl

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Expression syntax tree.
type (
	expr interface{}

	literalExpr struct{ value any }
	identExpr   struct{ name string }
	memberExpr  struct {
		x    expr
		name string
	}
	indexExpr struct{ x, index expr }
	callExpr  struct {
		name string
		fn   Func
		args []expr
	}
	unaryExpr struct {
		op string
		x  expr
	}
	binaryExpr struct {
		op   string
		x, y expr
	}
	condExpr  struct{ cond, then, els expr }
	arrayExpr struct{ elems []expr }
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokOp
)

type token struct {
	kind tokenKind
	text string
	val  any
	off  int
}

// Operators, longest first so "===" wins over "==".
var operators = []string{
	"===", "!==",
	"==", "!=", "<=", ">=", "&&", "||",
	"+", "-", "*", "/", "%", "<", ">", "!", "?", ":", ".", ",", "(", ")", "[", "]",
}

func lexExpr(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		r, size := utf8.DecodeRuneInString(src[i:])
		switch {
		case unicode.IsSpace(r):
			i += size

		case r == '_' || r == '$' || unicode.IsLetter(r):
			start := i
			for i < len(src) {
				r, size = utf8.DecodeRuneInString(src[i:])
				if r != '_' && r != '$' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
					break
				}
				i += size
			}
			toks = append(toks, token{kind: tokIdent, text: src[start:i], off: start})

		case r >= '0' && r <= '9':
			start := i
			for i < len(src) && (isDigit(src[i]) || src[i] == '.') {
				i++
			}
			text := src[start:i]
			var val any
			if strings.Contains(text, ".") {
				f, err := strconv.ParseFloat(text, 64)
				if err != nil {
					return nil, exprErrorf(start, "invalid number %q", text)
				}
				val = f
			} else {
				n, err := strconv.ParseInt(text, 10, 64)
				if err != nil {
					return nil, exprErrorf(start, "invalid number %q", text)
				}
				val = n
			}
			toks = append(toks, token{kind: tokNumber, text: text, val: val, off: start})

		case r == '"' || r == '\'':
			s, n, err := lexString(src[i:])
			if err != nil {
				return nil, exprErrorf(i, "%v", err)
			}
			toks = append(toks, token{kind: tokString, text: src[i : i+n], val: s, off: i})
			i += n

		default:
			matched := false
			for _, op := range operators {
				if strings.HasPrefix(src[i:], op) {
					toks = append(toks, token{kind: tokOp, text: op, off: i})
					i += len(op)
					matched = true
					break
				}
			}
			if !matched {
				return nil, exprErrorf(i, "unexpected character %q", r)
			}
		}
	}
	toks = append(toks, token{kind: tokEOF, off: len(src)})
	return toks, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// lexString reads a quoted string literal and returns its value and the number
// of bytes consumed, including quotes.
func lexString(src string) (string, int, error) {
	quote := src[0]
	var b strings.Builder
	for i := 1; i < len(src); i++ {
		c := src[i]
		switch {
		case c == quote:
			return b.String(), i + 1, nil
		case c == '\\' && i+1 < len(src):
			i++
			switch src[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default:
				b.WriteByte(src[i])
			}
		default:
			b.WriteByte(c)
		}
	}
	return "", 0, fmt.Errorf("unterminated string")
}

// exprError is a parse failure at a byte offset inside an expression. Callers
// convert it into a SyntaxError with a template position.
type exprError struct {
	off int
	msg string
	err error
}

func (e *exprError) Error() string { return e.msg }

func exprErrorf(off int, format string, args ...any) error {
	return &exprError{off: off, msg: fmt.Sprintf(format, args...)}
}

// Binding powers; unary operators and postfix access bind tighter than any
// binary operator.
const precTernary = 1

var binaryPrec = map[string]int{
	"||": 2,
	"&&": 3,
	"==": 4, "!=": 4, "===": 4, "!==": 4,
	"<": 5, "<=": 5, ">": 5, ">=": 5,
	"+": 6, "-": 6,
	"*": 7, "/": 7, "%": 7,
}

var keywordLiterals = map[string]any{
	"true":      true,
	"false":     false,
	"null":      nil,
	"nil":       nil,
	"undefined": nil,
}

type exprParser struct {
	toks  []token
	pos   int
	funcs FuncMap
}

// parseExpr parses a complete expression; trailing tokens are an error.
func parseExpr(src string, funcs FuncMap) (expr, error) {
	toks, err := lexExpr(src)
	if err != nil {
		return nil, err
	}
	p := &exprParser{toks: toks, funcs: funcs}
	if p.peek().kind == tokEOF {
		return nil, exprErrorf(0, "missing expression")
	}
	e, err := p.parse(0)
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, exprErrorf(t.off, "unexpected %q", t.text)
	}
	return e, nil
}

func (p *exprParser) peek() token { return p.toks[p.pos] }

func (p *exprParser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *exprParser) isOp(text string) bool {
	t := p.peek()
	return t.kind == tokOp && t.text == text
}

func (p *exprParser) expect(text string) error {
	t := p.next()
	if t.kind != tokOp || t.text != text {
		if t.kind == tokEOF {
			return exprErrorf(t.off, "expected %q, found end of expression", text)
		}
		return exprErrorf(t.off, "expected %q, found %q", text, t.text)
	}
	return nil
}

func (p *exprParser) parse(prec int) (expr, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}

	for {
		t := p.peek()
		if t.kind != tokOp {
			return left, nil
		}

		if t.text == "?" {
			if prec > precTernary {
				return left, nil
			}
			p.next()
			then, err := p.parse(precTernary)
			if err != nil {
				return nil, err
			}
			if err := p.expect(":"); err != nil {
				return nil, err
			}
			els, err := p.parse(precTernary)
			if err != nil {
				return nil, err
			}
			left = &condExpr{cond: left, then: then, els: els}
			continue
		}

		bp, ok := binaryPrec[t.text]
		if !ok || bp < prec {
			return left, nil
		}
		p.next()
		right, err := p.parse(bp + 1)
		if err != nil {
			return nil, err
		}
		left = &binaryExpr{op: t.text, x: left, y: right}
	}
}

func (p *exprParser) unary() (expr, error) {
	if p.isOp("!") || p.isOp("-") {
		op := p.next().text
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &unaryExpr{op: op, x: x}, nil
	}
	x, err := p.primary()
	if err != nil {
		return nil, err
	}
	return p.postfix(x)
}

func (p *exprParser) primary() (expr, error) {
	t := p.next()
	switch t.kind {
	case tokNumber, tokString:
		return &literalExpr{value: t.val}, nil

	case tokIdent:
		if v, ok := keywordLiterals[t.text]; ok {
			return &literalExpr{value: v}, nil
		}
		if p.isOp("(") {
			return p.call(t)
		}
		return &identExpr{name: t.text}, nil

	case tokOp:
		switch t.text {
		case "(":
			e, err := p.parse(0)
			if err != nil {
				return nil, err
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
			return e, nil
		case "[":
			elems, err := p.list("]")
			if err != nil {
				return nil, err
			}
			return &arrayExpr{elems: elems}, nil
		}
		return nil, exprErrorf(t.off, "unexpected %q", t.text)

	default:
		return nil, exprErrorf(t.off, "unexpected end of expression")
	}
}

func (p *exprParser) call(name token) (expr, error) {
	fn, ok := p.funcs[name.text]
	if !ok {
		return nil, &exprError{off: name.off, msg: fmt.Sprintf("unknown function %q", name.text), err: ErrUnknownFunc}
	}
	p.next() // (
	args, err := p.list(")")
	if err != nil {
		return nil, err
	}
	return &callExpr{name: name.text, fn: fn, args: args}, nil
}

// list parses comma-separated expressions up to and including the closing
// token; the opening token has already been consumed.
func (p *exprParser) list(closing string) ([]expr, error) {
	var out []expr
	if p.isOp(closing) {
		p.next()
		return out, nil
	}
	for {
		e, err := p.parse(0)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
		if p.isOp(",") {
			p.next()
			continue
		}
		if err := p.expect(closing); err != nil {
			return nil, err
		}
		return out, nil
	}
}

func (p *exprParser) postfix(x expr) (expr, error) {
	for {
		switch {
		case p.isOp("."):
			p.next()
			t := p.next()
			if t.kind != tokIdent {
				return nil, exprErrorf(t.off, "expected property name after '.'")
			}
			x = &memberExpr{x: x, name: t.text}

		case p.isOp("["):
			p.next()
			index, err := p.parse(0)
			if err != nil {
				return nil, err
			}
			if err := p.expect("]"); err != nil {
				return nil, err
			}
			x = &indexExpr{x: x, index: index}

		default:
			return x, nil
		}
	}
}

// parseExprList parses one or more comma-separated expressions.
func parseExprList(src string, funcs FuncMap) ([]expr, error) {
	toks, err := lexExpr(src)
	if err != nil {
		return nil, err
	}
	p := &exprParser{toks: toks, funcs: funcs}
	var out []expr
	for {
		e, err := p.parse(0)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
		t := p.next()
		switch {
		case t.kind == tokEOF:
			return out, nil
		case t.kind == tokOp && t.text == ",":
		default:
			return nil, exprErrorf(t.off, "unexpected %q", t.text)
		}
	}
}
