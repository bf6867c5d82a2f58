package expr

import (
	"strconv"
	"strings"

	"github.com/lemonberrylabs/holomorph/pkg/types"
)

// Lexer tokenizes an expression string.
type Lexer struct {
	input  string
	pos    int
	tokens []Token
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Tokenize scans the entire input and returns all tokens, ending with TokenEOF.
func (l *Lexer) Tokenize() ([]Token, error) {
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		l.tokens = append(l.tokens, tok)
		if tok.Type == TokenEOF {
			break
		}
	}
	return l.tokens, nil
}

// next returns the next token from the input.
func (l *Lexer) next() (Token, error) {
	l.skipWhitespace()

	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: l.pos}, nil
	}

	ch := l.input[l.pos]

	if isDigit(ch) {
		return l.readNumber()
	}

	var tt TokenType
	switch ch {
	case '+':
		tt = TokenPlus
	case '-':
		tt = TokenMinus
	case '*':
		tt = TokenStar
	case '/':
		tt = TokenSlash
	case '^':
		tt = TokenCaret
	case '(':
		tt = TokenLParen
	case ')':
		tt = TokenRParen
	default:
		if isIdentStart(ch) {
			return l.readIdentifier(), nil
		}
		return Token{}, types.NewParseError(l.pos, "unexpected character %q", rune(ch))
	}
	l.pos++
	return Token{Type: tt, Value: string(ch), Pos: l.pos - 1}, nil
}

// readNumber reads digits with an optional fractional part. A '.' that is
// not followed by a digit ends the literal and is then rejected by next.
func (l *Lexer) readNumber() (Token, error) {
	start := l.pos
	for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
		l.pos++
	}
	if l.pos+1 < len(l.input) && l.input[l.pos] == '.' && isDigit(l.input[l.pos+1]) {
		l.pos++
		for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
			l.pos++
		}
	}

	raw := l.input[start:l.pos]
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Token{}, types.NewParseError(start, "invalid number %q", raw)
	}
	return Token{Type: TokenNumber, Value: raw, FloatVal: f, Pos: start}, nil
}

func (l *Lexer) readIdentifier() Token {
	start := l.pos
	for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
		l.pos++
	}
	return Token{Type: TokenIdent, Value: l.input[start:l.pos], Pos: start}
}

// spaceChars are the only whitespace bytes; anything else, including
// non-ASCII spaces, is an unexpected character.
const spaceChars = " \t\n\r\v\f"

func isSpace(ch byte) bool {
	return strings.IndexByte(spaceChars, ch) >= 0
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) && isSpace(l.input[l.pos]) {
		l.pos++
	}
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}
