package expr

import (
	"strconv"
	"strings"
)

// Format prints node in a fully parenthesised canonical form, e.g.
// "(5 + (3 * 2))". Formatting a parsed tree and parsing the result yields
// an equivalent tree.
func Format(node Node) string {
	var sb strings.Builder
	format(&sb, node)
	return sb.String()
}

func format(sb *strings.Builder, node Node) {
	switch n := node.(type) {
	case *NumberNode:
		s := strconv.FormatFloat(n.Value, 'f', -1, 64)
		if n.Value < 0 {
			sb.WriteString("(" + s + ")")
			return
		}
		sb.WriteString(s)
	case *VariableNode:
		sb.WriteString(variableName)
	case *UnaryNode:
		sb.WriteString("(-")
		format(sb, n.Operand)
		sb.WriteByte(')')
	case *BinaryNode:
		sb.WriteByte('(')
		format(sb, n.Left)
		sb.WriteString(" " + n.Op.Symbol() + " ")
		format(sb, n.Right)
		sb.WriteByte(')')
	case *CallNode:
		sb.WriteString(n.Func.Name())
		sb.WriteByte('(')
		format(sb, n.Arg)
		sb.WriteByte(')')
	}
}

// Equal reports whether two trees have identical structure and constants.
func Equal(a, b Node) bool {
	switch x := a.(type) {
	case *NumberNode:
		y, ok := b.(*NumberNode)
		return ok && x.Value == y.Value
	case *VariableNode:
		_, ok := b.(*VariableNode)
		return ok
	case *UnaryNode:
		y, ok := b.(*UnaryNode)
		return ok && x.Op == y.Op && Equal(x.Operand, y.Operand)
	case *BinaryNode:
		y, ok := b.(*BinaryNode)
		return ok && x.Op == y.Op && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case *CallNode:
		y, ok := b.(*CallNode)
		return ok && x.Func == y.Func && Equal(x.Arg, y.Arg)
	default:
		return false
	}
}

// NodeCount returns the number of nodes in the tree.
func NodeCount(node Node) int {
	switch n := node.(type) {
	case *UnaryNode:
		return 1 + NodeCount(n.Operand)
	case *BinaryNode:
		return 1 + NodeCount(n.Left) + NodeCount(n.Right)
	case *CallNode:
		return 1 + NodeCount(n.Arg)
	default:
		return 1
	}
}

// Describe returns the tree as nested maps of JSON-compatible values, e.g.
// {"type": "binary", "op": "+", "left": {...}, "right": {...}}.
func Describe(node Node) map[string]interface{} {
	switch n := node.(type) {
	case *NumberNode:
		return map[string]interface{}{"type": "number", "value": n.Value}
	case *VariableNode:
		return map[string]interface{}{"type": "variable", "name": variableName}
	case *UnaryNode:
		return map[string]interface{}{"type": "unary", "op": "-", "operand": Describe(n.Operand)}
	case *BinaryNode:
		return map[string]interface{}{
			"type":  "binary",
			"op":    n.Op.Symbol(),
			"left":  Describe(n.Left),
			"right": Describe(n.Right),
		}
	case *CallNode:
		return map[string]interface{}{"type": "call", "func": n.Func.Name(), "arg": Describe(n.Arg)}
	default:
		return map[string]interface{}{"type": "unknown"}
	}
}
