package tmpl

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Program is a compiled template. It is immutable and safe for concurrent use.
type Program struct {
	name string
	root []node
}

// Name returns the name given with WithName, if any.
func (p *Program) Name() string { return p.name }

// Option configures compilation.
type Option func(*options)

type options struct {
	name  string
	funcs FuncMap
}

// WithName sets the template name used in error messages.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithFuncs makes additional functions callable from expressions. They take
// precedence over the built-in functions of the same name.
func WithFuncs(funcs FuncMap) Option {
	return func(o *options) {
		for name, fn := range funcs {
			o.funcs[name] = fn
		}
	}
}

// Compile parses text into a Program.
func Compile(text string, opts ...Option) (*Program, error) {
	o := options{funcs: Builtins()}
	for _, opt := range opts {
		opt(&o)
	}
	root, err := parse(o.name, text, o.funcs)
	if err != nil {
		return nil, err
	}
	return &Program{name: o.name, root: root}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(text string, opts ...Option) *Program {
	p, err := Compile(text, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

// Render compiles text and executes it against data.
func Render(text string, data any, opts ...Option) (string, error) {
	p, err := Compile(text, opts...)
	if err != nil {
		return "", err
	}
	return p.Execute(data)
}

// Execute runs the program with data as its RenderContext (see NewScope) and
// returns the joined output.
func (p *Program) Execute(data any) (string, error) {
	var b strings.Builder
	if err := p.ExecuteTo(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

// ExecuteTo is like Execute but writes to w. Output already written when an
// evaluation error occurs is not retracted.
func (p *Program) ExecuteTo(w io.Writer, data any) error {
	s := &state{prog: p, w: w}
	err := s.walk(p.root, NewScope(data))
	if errors.Is(err, errBreak) {
		// Rejected by the parser; unreachable for compiled programs.
		return nil
	}
	return err
}

// errBreak unwinds to the innermost for or switch.
var errBreak = errors.New("tmpl: break")

type state struct {
	prog *Program
	w    io.Writer
}

func (s *state) write(str string) error {
	_, err := io.WriteString(s.w, str)
	return err
}

func (s *state) fail(pos position, src string, err error) error {
	return &EvalError{Name: s.prog.name, Line: pos.line, Col: pos.col, Expr: src, Err: err}
}

func (s *state) walk(nodes []node, scope Scope) error {
	for _, n := range nodes {
		if err := s.node(n, scope); err != nil {
			return err
		}
	}
	return nil
}

func (s *state) node(n node, scope Scope) error {
	switch n := n.(type) {
	case *textNode:
		return s.write(n.text)

	case *outputNode:
		v, err := eval(n.x, scope)
		if err != nil {
			return s.fail(n.pos, n.src, err)
		}
		out := toString(v)
		if _, trusted := v.(HTML); n.escape && !trusted {
			out = EscapeHTML(out)
		}
		return s.write(out)

	case *ifNode:
		for _, br := range n.branches {
			v, err := eval(br.cond, scope)
			if err != nil {
				return s.fail(br.pos, br.src, err)
			}
			if truthy(v) {
				return s.walk(br.body, scope)
			}
		}
		return s.walk(n.elseBody, scope)

	case *forNode:
		return s.loop(n, scope)

	case *switchNode:
		return s.selectCase(n, scope)

	case *blockNode:
		return s.walk(n.body, scope)

	case *breakNode:
		return errBreak
	}
	return fmt.Errorf("tmpl: unknown node %T", n)
}

func (s *state) loop(n *forNode, scope Scope) error {
	iter, err := eval(n.iter, scope)
	if err != nil {
		return s.fail(n.pos, n.src, err)
	}

	frame := newChild(scope)
	count := 0
	err = each(iter, func(key, val any) error {
		count++
		if n.key != "" {
			frame.vars[n.key] = key
		}
		frame.vars[n.value] = val
		return s.walk(n.body, frame)
	})
	switch {
	case errors.Is(err, errBreak):
		return nil
	case err != nil:
		var ee *EvalError
		if errors.As(err, &ee) {
			return err
		}
		return s.fail(n.pos, n.src, err)
	}

	if count == 0 {
		return s.walk(n.elseBody, scope)
	}
	return nil
}

func (s *state) selectCase(n *switchNode, scope Scope) error {
	subject, err := eval(n.subject, scope)
	if err != nil {
		return s.fail(n.pos, n.src, err)
	}

	body := n.def
	found := false
	for _, c := range n.cases {
		for _, x := range c.values {
			v, err := eval(x, scope)
			if err != nil {
				return s.fail(c.pos, c.src, err)
			}
			if equal(subject, v) {
				body, found = c.body, true
				break
			}
		}
		if found {
			break
		}
	}

	if err := s.walk(body, scope); err != nil && !errors.Is(err, errBreak) {
		return err
	}
	return nil
}
