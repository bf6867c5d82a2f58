package expr

import (
	"errors"
	"math"
	"math/cmplx"
	"strings"
	"testing"

	"github.com/lemonberrylabs/holomorph/pkg/types"
)

func num(v float64) Node { return &NumberNode{Value: v} }
func bin(l Node, op BinaryOp, r Node) Node { return &BinaryNode{Op: op, Left: l, Right: r} }

var zVar = &VariableNode{}

func TestParseTreeShape(t *testing.T) {
	tests := []struct {
		input string
		want  Node
	}{
		{"5", num(5)},
		{"-3", num(-3)},
		{"2.75", num(2.75)},
		{"z", zVar},
		{"5 + 3", bin(num(5), OpAdd, num(3))},
		{"5 - 3", bin(num(5), OpSub, num(3))},
		{"4 * 2", bin(num(4), OpMul, num(2))},
		{"8 / 4", bin(num(8), OpDiv, num(4))},
		{"2 ^ 3", bin(num(2), OpPow, num(3))},
		{"5 + 3 * 2", bin(num(5), OpAdd, bin(num(3), OpMul, num(2)))},      // precedence
		{"(5 + 3) * 2", bin(bin(num(5), OpAdd, num(3)), OpMul, num(2))},    // parens
		{"1 - 2 - 3", bin(bin(num(1), OpSub, num(2)), OpSub, num(3))},      // left fold
		{"8 / 4 / 2", bin(bin(num(8), OpDiv, num(4)), OpDiv, num(2))},      // left fold
		{"2 ^ 3 ^ 2", bin(bin(num(2), OpPow, num(3)), OpPow, num(2))},      // '^' folds left too
		{"z^-1", bin(zVar, OpPow, num(-1))},                                // signed exponent
		{"-3^2", bin(num(-3), OpPow, num(2))},                              // sign binds to literal
		{"-z^2", &UnaryNode{Op: OpNeg, Operand: bin(zVar, OpPow, num(2))}}, // unary wraps factor
		{"sin(5) + 3", bin(&CallNode{Func: FuncSin, Arg: num(5)}, OpAdd, num(3))},
		{"cos(z ^ 2) + 1", bin(&CallNode{Func: FuncCos, Arg: bin(zVar, OpPow, num(2))}, OpAdd, num(1))},
		{"  z\t*\n z ", bin(zVar, OpMul, zVar)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("parse error: %v", err)
			}
			if !Equal(got, tt.want) {
				t.Errorf("got %s, want %s", Format(got), Format(tt.want))
			}
		})
	}
}

func TestParseEveryRegisteredFunction(t *testing.T) {
	for _, name := range FuncNames() {
		t.Run(name, func(t *testing.T) {
			node, err := Parse(name + "(z)")
			if err != nil {
				t.Fatalf("parse error: %v", err)
			}
			call, ok := node.(*CallNode)
			if !ok {
				t.Fatalf("expected *CallNode, got %T", node)
			}
			if call.Func.Name() != name {
				t.Errorf("resolved to %s", call.Func.Name())
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input   string
		wantPos int
		wantMsg string
	}{
		{"", 0, "empty expression"},
		{"   ", 0, "empty expression"},
		{"z +", 3, "unexpected end of expression"},
		{"((z", 3, "expected ')'"},
		{"z)", 1, "unexpected RPAREN"},
		{"2z", 1, "unexpected IDENT"},
		{"z # 2", 2, "unexpected character"},
		{"foo(z)", 0, `unknown identifier "foo"`},
		{"sin z", 4, "expected '('"},
		{"sin(z", 5, "expected ')'"},
		{"3.", 1, "unexpected character"},
		{"1e5", 1, "unexpected IDENT"},
		{"z ** 2", 3, "unexpected \"*\""},
		{"Z", 0, "unknown identifier"},
		{"\t\r\n", 0, "empty expression"},
		{"z\x85", 1, "unexpected character"},
		{"\xa0", 0, "unexpected character"},
		{"\u00a0z", 0, "unexpected character"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			node, err := Parse(tt.input)
			if err == nil {
				t.Fatalf("expected error, got tree %s", Format(node))
			}
			var pe *types.ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *types.ParseError, got %T: %v", err, err)
			}
			if pe.Pos != tt.wantPos {
				t.Errorf("position = %d, want %d (%v)", pe.Pos, tt.wantPos, err)
			}
			if !strings.Contains(pe.Message, tt.wantMsg) {
				t.Errorf("message %q does not contain %q", pe.Message, tt.wantMsg)
			}
		})
	}
}

func TestParseTooLong(t *testing.T) {
	_, err := Parse(strings.Repeat("z+", MaxExpressionLength) + "z")
	if err == nil {
		t.Fatal("expected error for oversized expression")
	}
}

func TestFormatRoundTrip(t *testing.T) {
	inputs := []string{
		"z^2 + sin(z)",
		"-z^2 - 3 * z + 1",
		"1 / (z - 0.5) + conj(z)",
		"2^3^2",
		"sec(z) * csc(z) / cot(z)",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			first := MustParse(in)
			printed := Format(first)
			second, err := Parse(printed)
			if err != nil {
				t.Fatalf("reparse of %q failed: %v", printed, err)
			}
			if Format(second) != printed {
				t.Errorf("format not stable: %q then %q", printed, Format(second))
			}
		})
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"5 + 3 * 2", "(5 + (3 * 2))"},
		{"-z", "(-z)"},
		{"-2.5", "(-2.5)"},
		{"sin(z)^2", "(sin(z) ^ 2)"},
	}
	for _, tt := range tests {
		if got := Format(MustParse(tt.input)); got != tt.want {
			t.Errorf("Format(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNodeCount(t *testing.T) {
	if got := NodeCount(MustParse("z^2 + sin(z)")); got != 6 {
		t.Errorf("NodeCount = %d, want 6", got)
	}
}

func TestDescribe(t *testing.T) {
	d := Describe(MustParse("-sin(z) * 2"))
	if d["type"] != "binary" || d["op"] != "*" {
		t.Fatalf("root = %v", d)
	}
	left := d["left"].(map[string]interface{})
	if left["type"] != "unary" {
		t.Errorf("left = %v, want unary", left)
	}
	call := left["operand"].(map[string]interface{})
	if call["type"] != "call" || call["func"] != "sin" {
		t.Errorf("operand = %v, want call sin", call)
	}
	right := d["right"].(map[string]interface{})
	if right["value"] != 2.0 {
		t.Errorf("right = %v, want number 2", right)
	}
}

func TestMustParsePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	MustParse("((")
}

func approxEqual(a, b complex128) bool {
	const eps = 1e-9
	return cmplx.Abs(a-b) <= eps*math.Max(1, cmplx.Abs(b))
}
