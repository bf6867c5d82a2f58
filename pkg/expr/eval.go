package expr

import (
	"fmt"
	"math"
	"math/cmplx"
)

// Evaluate evaluates an expression tree at z. It never fails: undefined
// results (division by zero, log(0)) come back as Inf or NaN components.
func Evaluate(node Node, z complex128) complex128 {
	switch n := node.(type) {
	case *NumberNode:
		return complex(n.Value, 0)
	case *VariableNode:
		return z
	case *UnaryNode:
		return -Evaluate(n.Operand, z)
	case *BinaryNode:
		return evalBinary(n, z)
	case *CallNode:
		return n.Func.Apply(Evaluate(n.Arg, z))
	default:
		panic(fmt.Sprintf("expr: unsupported node type %T", node))
	}
}

func evalBinary(n *BinaryNode, z complex128) complex128 {
	left := Evaluate(n.Left, z)
	right := Evaluate(n.Right, z)

	switch n.Op {
	case OpAdd:
		return left + right
	case OpSub:
		return left - right
	case OpMul:
		return left * right
	case OpDiv:
		return left / right
	case OpPow:
		return PowReal(left, real(right))
	default:
		panic(fmt.Sprintf("expr: unsupported binary operator %d", n.Op))
	}
}

// PowReal raises base to a real exponent through its polar form. The
// imaginary part of a complex exponent is not supported.
func PowReal(base complex128, exp float64) complex128 {
	if exp == 0 {
		return 1
	}
	r, theta := cmplx.Polar(base)
	return cmplx.Rect(math.Pow(r, exp), theta*exp)
}
