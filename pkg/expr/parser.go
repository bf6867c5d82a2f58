package expr

import (
	"strings"

	"github.com/lemonberrylabs/holomorph/pkg/types"
)

// MaxExpressionLength is the maximum allowed length for a single expression.
const MaxExpressionLength = 1024

// variableName is the only identifier that is not a function.
const variableName = "z"

// Parser is a recursive descent parser for mapping expressions.
type Parser struct {
	tokens []Token
	pos    int
}

// Parse parses a complete expression. Failures are *types.ParseError.
func Parse(input string) (Node, error) {
	if len(input) > MaxExpressionLength {
		return nil, types.NewParseError(-1, "expression exceeds maximum length of %d characters", MaxExpressionLength)
	}
	if strings.Trim(input, spaceChars) == "" {
		return nil, types.NewParseError(0, "empty expression")
	}

	tokens, err := NewLexer(input).Tokenize()
	if err != nil {
		return nil, err
	}

	p := &Parser{tokens: tokens}
	node, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	if tok := p.current(); tok.Type != TokenEOF {
		return nil, types.NewParseError(tok.Pos, "unexpected %s %q after expression", tok.Type, tok.Value)
	}

	return node, nil
}

// MustParse is like Parse but panics on error. For tests and static presets.
func MustParse(input string) Node {
	n, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return n
}

func (p *Parser) current() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) advance() Token {
	tok := p.current()
	p.pos++
	return tok
}

// expect consumes a token of the expected type or returns an error.
func (p *Parser) expect(tt TokenType, what string) (Token, error) {
	tok := p.current()
	if tok.Type != tt {
		if tok.Type == TokenEOF {
			return tok, types.NewParseError(tok.Pos, "expected %s, got end of expression", what)
		}
		return tok, types.NewParseError(tok.Pos, "expected %s, got %q", what, tok.Value)
	}
	p.advance()
	return tok, nil
}

// parseExpression handles the lowest precedence operators.
// Precedence (low to high):
//
//	+, -
//	*, /
//	^            (folds left)
//	number, z, call, (...), unary -
func (p *Parser) parseExpression() (Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenPlus || p.current().Type == TokenMinus {
		op := OpAdd
		if p.advance().Type == TokenMinus {
			op = OpSub
		}
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseTerm() (Node, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenStar || p.current().Type == TokenSlash {
		op := OpMul
		if p.advance().Type == TokenSlash {
			op = OpDiv
		}
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{Op: op, Left: left, Right: right}
	}
	return left, nil
}

// parseFactor folds repeated '^' to the left: 2^3^2 is (2^3)^2.
func (p *Parser) parseFactor() (Node, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenCaret {
		p.advance()
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{Op: OpPow, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parsePrimary() (Node, error) {
	tok := p.current()

	switch tok.Type {
	case TokenNumber:
		p.advance()
		return &NumberNode{Value: tok.FloatVal}, nil
	case TokenIdent:
		return p.parseIdent()
	case TokenLParen:
		p.advance()
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen, "')'"); err != nil {
			return nil, err
		}
		return inner, nil
	case TokenMinus:
		p.advance()
		// A sign directly before a literal belongs to the literal.
		if p.current().Type == TokenNumber {
			num := p.advance()
			return &NumberNode{Value: -num.FloatVal}, nil
		}
		operand, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return &UnaryNode{Op: OpNeg, Operand: operand}, nil
	case TokenEOF:
		return nil, types.NewParseError(tok.Pos, "unexpected end of expression")
	default:
		return nil, types.NewParseError(tok.Pos, "unexpected %q", tok.Value)
	}
}

func (p *Parser) parseIdent() (Node, error) {
	tok := p.advance()
	if tok.Value == variableName {
		return &VariableNode{}, nil
	}

	id, ok := LookupFunc(tok.Value)
	if !ok {
		return nil, types.NewParseError(tok.Pos, "unknown identifier %q", tok.Value)
	}
	if p.current().Type != TokenLParen {
		return nil, types.NewParseError(p.current().Pos, "expected '(' after function %s", tok.Value)
	}
	p.advance()
	arg, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenRParen, "')'"); err != nil {
		return nil, err
	}
	return &CallNode{Func: id, Arg: arg}, nil
}
