package expr

import (
	"math/cmplx"
	"sort"
)

// FuncID identifies a registered complex function. Names are resolved to a
// FuncID once at parse time so evaluation never dispatches on strings.
type FuncID int

const (
	FuncSin FuncID = iota
	FuncCos
	FuncTan
	FuncExp
	FuncLog
	FuncLn
	FuncSqrt
	FuncSinh
	FuncCosh
	FuncTanh
	FuncAsin
	FuncAcos
	FuncAtan
	FuncAsinh
	FuncAcosh
	FuncAtanh
	FuncAbs
	FuncConj
	FuncRe
	FuncIm
	FuncArg
	FuncSec
	FuncCsc
	FuncCot

	numFuncs
)

type function struct {
	name string
	fn   func(complex128) complex128
}

// registry is indexed by FuncID.
var registry = [numFuncs]function{
	FuncSin:   {"sin", cmplx.Sin},
	FuncCos:   {"cos", cmplx.Cos},
	FuncTan:   {"tan", cmplx.Tan},
	FuncExp:   {"exp", cmplx.Exp},
	FuncLog:   {"log", cmplx.Log},
	FuncLn:    {"ln", cmplx.Log},
	FuncSqrt:  {"sqrt", cmplx.Sqrt},
	FuncSinh:  {"sinh", cmplx.Sinh},
	FuncCosh:  {"cosh", cmplx.Cosh},
	FuncTanh:  {"tanh", cmplx.Tanh},
	FuncAsin:  {"asin", cmplx.Asin},
	FuncAcos:  {"acos", cmplx.Acos},
	FuncAtan:  {"atan", cmplx.Atan},
	FuncAsinh: {"asinh", cmplx.Asinh},
	FuncAcosh: {"acosh", cmplx.Acosh},
	FuncAtanh: {"atanh", cmplx.Atanh},
	FuncAbs:   {"abs", func(v complex128) complex128 { return complex(cmplx.Abs(v), 0) }},
	FuncConj:  {"conj", cmplx.Conj},
	FuncRe:    {"re", func(v complex128) complex128 { return complex(real(v), 0) }},
	FuncIm:    {"im", func(v complex128) complex128 { return complex(imag(v), 0) }},
	FuncArg:   {"arg", func(v complex128) complex128 { return complex(cmplx.Phase(v), 0) }},
	FuncSec:   {"sec", func(v complex128) complex128 { return 1 / cmplx.Cos(v) }},
	FuncCsc:   {"csc", func(v complex128) complex128 { return 1 / cmplx.Sin(v) }},
	FuncCot:   {"cot", func(v complex128) complex128 { return 1 / cmplx.Tan(v) }},
}

var funcsByName = func() map[string]FuncID {
	m := make(map[string]FuncID, numFuncs)
	for id, f := range registry {
		m[f.name] = FuncID(id)
	}
	return m
}()

// LookupFunc resolves a function name against the registry.
func LookupFunc(name string) (FuncID, bool) {
	id, ok := funcsByName[name]
	return id, ok
}

// Name returns the registered name of the function.
func (id FuncID) Name() string {
	if id < 0 || id >= numFuncs {
		return "unknown"
	}
	return registry[id].name
}

// Apply evaluates the function at v.
func (id FuncID) Apply(v complex128) complex128 {
	return registry[id].fn(v)
}

// FuncNames returns the sorted names of all registered functions.
func FuncNames() []string {
	names := make([]string, 0, numFuncs)
	for _, f := range registry {
		names = append(names, f.name)
	}
	sort.Strings(names)
	return names
}
