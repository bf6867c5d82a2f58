package expr

// Node is the interface for all expression AST nodes. Nodes are immutable
// once built and each node exclusively owns its children.
type Node interface {
	nodeType() string
}

// UnaryOp identifies a unary operation.
type UnaryOp int

const (
	OpNeg UnaryOp = iota
)

// BinaryOp identifies a binary operation.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpPow
)

// Symbol returns the source operator for op.
func (op BinaryOp) Symbol() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpPow:
		return "^"
	default:
		return "?"
	}
}

// NumberNode is a real constant.
type NumberNode struct {
	Value float64
}

func (n *NumberNode) nodeType() string { return "Number" }

// VariableNode is the input value z.
type VariableNode struct{}

func (n *VariableNode) nodeType() string { return "Variable" }

// UnaryNode represents -x.
type UnaryNode struct {
	Op      UnaryOp
	Operand Node
}

func (n *UnaryNode) nodeType() string { return "Unary" }

// BinaryNode represents a binary operation (e.g., a + b, z ^ 2).
type BinaryNode struct {
	Op    BinaryOp
	Left  Node
	Right Node
}

func (n *BinaryNode) nodeType() string { return "Binary" }

// CallNode applies a registered function to a single argument.
type CallNode struct {
	Func FuncID
	Arg  Node
}

func (n *CallNode) nodeType() string { return "Call" }
