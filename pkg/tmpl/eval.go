package tmpl

import (
	"fmt"
)

func eval(x expr, scope Scope) (any, error) {
	switch x := x.(type) {
	case *literalExpr:
		return x.value, nil

	case *identExpr:
		v, ok := scope.Lookup(x.name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUndefined, x.name)
		}
		return v, nil

	case *memberExpr:
		v, err := eval(x.x, scope)
		if err != nil {
			return nil, err
		}
		return member(v, x.name)

	case *indexExpr:
		v, err := eval(x.x, scope)
		if err != nil {
			return nil, err
		}
		i, err := eval(x.index, scope)
		if err != nil {
			return nil, err
		}
		return index(v, i)

	case *callExpr:
		args := make([]any, len(x.args))
		for i, a := range x.args {
			v, err := eval(a, scope)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		v, err := x.fn(args...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", x.name, err)
		}
		return v, nil

	case *unaryExpr:
		v, err := eval(x.x, scope)
		if err != nil {
			return nil, err
		}
		if x.op == "!" {
			return !truthy(v), nil
		}
		f, ok := toNumber(v)
		if !ok {
			return nil, fmt.Errorf("%w: cannot negate %T", ErrType, v)
		}
		return -f, nil

	case *binaryExpr:
		return evalBinary(x, scope)

	case *condExpr:
		c, err := eval(x.cond, scope)
		if err != nil {
			return nil, err
		}
		if truthy(c) {
			return eval(x.then, scope)
		}
		return eval(x.els, scope)

	case *arrayExpr:
		out := make([]any, len(x.elems))
		for i, e := range x.elems {
			v, err := eval(e, scope)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}
	return nil, fmt.Errorf("tmpl: unknown expression %T", x)
}

func evalBinary(x *binaryExpr, scope Scope) (any, error) {
	a, err := eval(x.x, scope)
	if err != nil {
		return nil, err
	}

	// && and || short-circuit and yield an operand, not a bool.
	switch x.op {
	case "&&":
		if !truthy(a) {
			return a, nil
		}
		return eval(x.y, scope)
	case "||":
		if truthy(a) {
			return a, nil
		}
		return eval(x.y, scope)
	}

	b, err := eval(x.y, scope)
	if err != nil {
		return nil, err
	}

	switch x.op {
	case "==", "===":
		return equal(a, b), nil
	case "!=", "!==":
		return !equal(a, b), nil
	case "<", "<=", ">", ">=":
		c, err := compare(a, b)
		if err != nil {
			return nil, err
		}
		switch x.op {
		case "<":
			return c < 0, nil
		case "<=":
			return c <= 0, nil
		case ">":
			return c > 0, nil
		}
		return c >= 0, nil
	}
	return arith(x.op, a, b)
}
