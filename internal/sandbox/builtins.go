package sandbox

import (
	"fmt"
	"math"
	"math/big"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// AllowedBuiltins lists every name a program may use from the interpreter's
// universe, plus the extras defined in this file.
var AllowedBuiltins = []string{
	"print", "len", "range", "str", "int", "float", "list", "dict", "tuple", "set",
	"bool", "abs", "max", "min", "sum", "sorted", "reversed", "enumerate", "zip",
	"map", "filter", "any", "all", "round", "pow", "divmod", "type", "hasattr",
	"getattr", "chr", "ord", "True", "False", "None",
}

var allowed = func() map[string]bool {
	m := make(map[string]bool, len(AllowedBuiltins))
	for _, name := range AllowedBuiltins {
		m[name] = true
	}
	return m
}()

// predeclared holds the allow-listed builtins the universe lacks.
var predeclared = starlark.StringDict{
	"sum":    starlark.NewBuiltin("sum", builtinSum),
	"map":    starlark.NewBuiltin("map", builtinMap),
	"filter": starlark.NewBuiltin("filter", builtinFilter),
	"round":  starlark.NewBuiltin("round", builtinRound),
	"pow":    starlark.NewBuiltin("pow", builtinPow),
	"divmod": starlark.NewBuiltin("divmod", builtinDivmod),
}

func builtinSum(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var iterable starlark.Iterable
	var acc starlark.Value = starlark.MakeInt(0)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "iterable", &iterable, "start?", &acc); err != nil {
		return nil, err
	}
	iter := iterable.Iterate()
	defer iter.Done()

	var x starlark.Value
	for iter.Next(&x) {
		next, err := starlark.Binary(syntax.PLUS, acc, x)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
		acc = next
	}
	return acc, nil
}

// builtinMap applies fn across one or more iterables, stopping at the
// shortest, and returns a list.
func builtinMap(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
	}
	if len(args) < 2 {
		return nil, fmt.Errorf("%s: got %d arguments, want at least 2", b.Name(), len(args))
	}
	fn, ok := args[0].(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("%s: %s is not callable", b.Name(), args[0].Type())
	}

	iters := make([]starlark.Iterator, len(args)-1)
	for i, a := range args[1:] {
		it := starlark.Iterate(a)
		if it == nil {
			for _, prev := range iters[:i] {
				prev.Done()
			}
			return nil, fmt.Errorf("%s: %s is not iterable", b.Name(), a.Type())
		}
		iters[i] = it
	}
	defer func() {
		for _, it := range iters {
			it.Done()
		}
	}()

	var out []starlark.Value
	for {
		call := make(starlark.Tuple, len(iters))
		for i, it := range iters {
			if !it.Next(&call[i]) {
				return starlark.NewList(out), nil
			}
		}
		v, err := starlark.Call(thread, fn, call, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}

// builtinFilter keeps the items for which fn is truthy. A None fn keeps
// truthy items.
func builtinFilter(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var fn starlark.Value
	var iterable starlark.Iterable
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &fn, &iterable); err != nil {
		return nil, err
	}
	callable, isCallable := fn.(starlark.Callable)
	if fn != starlark.None && !isCallable {
		return nil, fmt.Errorf("%s: %s is not callable", b.Name(), fn.Type())
	}

	iter := iterable.Iterate()
	defer iter.Done()

	var out []starlark.Value
	var x starlark.Value
	for iter.Next(&x) {
		keep := x.Truth()
		if isCallable {
			v, err := starlark.Call(thread, callable, starlark.Tuple{x}, nil)
			if err != nil {
				return nil, err
			}
			keep = v.Truth()
		}
		if keep {
			out = append(out, x)
		}
	}
	return starlark.NewList(out), nil
}

// builtinRound rounds half to even. Without ndigits the result is an int.
func builtinRound(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var x starlark.Value
	var ndigits starlark.Value = starlark.None
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "number", &x, "ndigits?", &ndigits); err != nil {
		return nil, err
	}

	switch x := x.(type) {
	case starlark.Int:
		return x, nil
	case starlark.Float:
		if ndigits == starlark.None {
			return starlark.NumberToInt(starlark.Float(math.RoundToEven(float64(x))))
		}
		n, err := starlark.AsInt32(ndigits)
		if err != nil {
			return nil, fmt.Errorf("%s: ndigits: %w", b.Name(), err)
		}
		scale := math.Pow(10, float64(n))
		return starlark.Float(math.RoundToEven(float64(x)*scale) / scale), nil
	default:
		return nil, fmt.Errorf("%s: got %s, want int or float", b.Name(), x.Type())
	}
}

// maxPowBits bounds the size of an unreduced integer power. big.Int.Exp
// cannot be cancelled, so larger results are refused up front.
const maxPowBits = 1 << 20

// builtinPow computes base**exp, optionally modulo mod. Integer arguments
// with a non-negative exponent stay exact.
func builtinPow(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var base, exp starlark.Value
	var mod starlark.Value = starlark.None
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "base", &base, "exp", &exp, "mod?", &mod); err != nil {
		return nil, err
	}

	bi, baseIsInt := base.(starlark.Int)
	ei, expIsInt := exp.(starlark.Int)
	if baseIsInt && expIsInt && ei.Sign() >= 0 {
		var m *big.Int
		if mod != starlark.None {
			mi, ok := mod.(starlark.Int)
			if !ok {
				return nil, fmt.Errorf("%s: mod must be an int", b.Name())
			}
			if mi.Sign() == 0 {
				return nil, fmt.Errorf("%s: mod is zero", b.Name())
			}
			m = mi.BigInt()
		}
		if m == nil && powTooLarge(bi.BigInt(), ei.BigInt()) {
			return nil, fmt.Errorf("%s: result too large", b.Name())
		}
		return starlark.MakeBigInt(new(big.Int).Exp(bi.BigInt(), ei.BigInt(), m)), nil
	}
	if mod != starlark.None {
		return nil, fmt.Errorf("%s: mod requires int base and non-negative int exponent", b.Name())
	}

	bf, ok1 := starlark.AsFloat(base)
	ef, ok2 := starlark.AsFloat(exp)
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("%s: unsupported operand types %s and %s", b.Name(), base.Type(), exp.Type())
	}
	return starlark.Float(math.Pow(bf, ef)), nil
}

// powTooLarge reports whether base**exp would exceed maxPowBits.
func powTooLarge(base, exp *big.Int) bool {
	n := base.BitLen()
	if n <= 1 {
		return false // 0, 1 and -1
	}
	if !exp.IsInt64() || exp.Int64() > maxPowBits {
		return true
	}
	return int64(n-1)*exp.Int64() > maxPowBits
}

func builtinDivmod(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var x, y starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &x, &y); err != nil {
		return nil, err
	}
	q, err := starlark.Binary(syntax.SLASHSLASH, x, y)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	r, err := starlark.Binary(syntax.PERCENT, x, y)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return starlark.Tuple{q, r}, nil
}
