// Package lexer tokenizes ritual scripts.
package lexer

import (
	"strings"

	"github.com/zurustar/necroturtle/pkg/compiler/token"
)

// Lexer tokenizes ritual source code.
type Lexer struct {
	input        string
	position     int  // current position in input
	readPosition int  // current reading position (after current char)
	ch           byte // current char
	line         int  // current line number
	column       int  // current column number
}

// New creates a new Lexer.
func New(input string) *Lexer {
	l := &Lexer{
		input:  input,
		line:   1,
		column: 0,
	}
	l.readChar()
	return l
}

// NextToken returns the next token.
func (l *Lexer) NextToken() token.Token {
	var tok token.Token

	l.skipWhitespace()

	tok.Line = l.line
	tok.Column = l.column

	switch l.ch {
	case '=':
		switch {
		case l.peekChar() == '=' && l.peekCharAt(1) == '=':
			tok = l.longToken(token.STRICT_EQ, 3)
		case l.peekChar() == '=':
			tok = l.longToken(token.EQ, 2)
		case l.peekChar() == '>':
			tok = l.longToken(token.ARROW, 2)
		default:
			tok = l.newToken(token.ASSIGN, l.ch)
		}
	case '+':
		switch l.peekChar() {
		case '+':
			tok = l.longToken(token.INCREMENT, 2)
		case '=':
			tok = l.longToken(token.PLUS_EQ, 2)
		default:
			tok = l.newToken(token.PLUS, l.ch)
		}
	case '-':
		switch l.peekChar() {
		case '-':
			tok = l.longToken(token.DECREMENT, 2)
		case '=':
			tok = l.longToken(token.MINUS_EQ, 2)
		default:
			tok = l.newToken(token.MINUS, l.ch)
		}
	case '*':
		switch l.peekChar() {
		case '*':
			tok = l.longToken(token.POWER, 2)
		case '=':
			tok = l.longToken(token.MULT_EQ, 2)
		default:
			tok = l.newToken(token.ASTERISK, l.ch)
		}
	case '/':
		switch l.peekChar() {
		case '/':
			tok.Type = token.COMMENT
			tok.Literal = l.readComment()
			return tok
		case '*':
			tok.Type = token.COMMENT
			tok.Literal = l.readMultiLineComment()
			return tok
		case '=':
			tok = l.longToken(token.DIV_EQ, 2)
		default:
			tok = l.newToken(token.SLASH, l.ch)
		}
	case '%':
		if l.peekChar() == '=' {
			tok = l.longToken(token.MOD_EQ, 2)
		} else {
			tok = l.newToken(token.PERCENT, l.ch)
		}
	case '!':
		switch {
		case l.peekChar() == '=' && l.peekCharAt(1) == '=':
			tok = l.longToken(token.STRICT_NEQ, 3)
		case l.peekChar() == '=':
			tok = l.longToken(token.NOT_EQ, 2)
		default:
			tok = l.newToken(token.BANG, l.ch)
		}
	case '<':
		if l.peekChar() == '=' {
			tok = l.longToken(token.LTE, 2)
		} else {
			tok = l.newToken(token.LT, l.ch)
		}
	case '>':
		if l.peekChar() == '=' {
			tok = l.longToken(token.GTE, 2)
		} else {
			tok = l.newToken(token.GT, l.ch)
		}
	case '&':
		if l.peekChar() == '&' {
			tok = l.longToken(token.AND, 2)
		} else {
			tok = l.newToken(token.ILLEGAL, l.ch)
		}
	case '|':
		if l.peekChar() == '|' {
			tok = l.longToken(token.OR, 2)
		} else {
			tok = l.newToken(token.ILLEGAL, l.ch)
		}
	case '?':
		tok = l.newToken(token.QUESTION, l.ch)
	case '.':
		if isDigit(l.peekChar()) {
			return l.readNumber(tok.Line, tok.Column)
		}
		tok = l.newToken(token.DOT, l.ch)
	case '(':
		tok = l.newToken(token.LPAREN, l.ch)
	case ')':
		tok = l.newToken(token.RPAREN, l.ch)
	case '{':
		tok = l.newToken(token.LBRACE, l.ch)
	case '}':
		tok = l.newToken(token.RBRACE, l.ch)
	case '[':
		tok = l.newToken(token.LBRACKET, l.ch)
	case ']':
		tok = l.newToken(token.RBRACKET, l.ch)
	case ',':
		tok = l.newToken(token.COMMA, l.ch)
	case ';':
		tok = l.newToken(token.SEMICOLON, l.ch)
	case ':':
		tok = l.newToken(token.COLON, l.ch)
	case '"', '\'':
		lit, ok := l.readString(l.ch)
		if !ok {
			return token.Token{Type: token.ILLEGAL, Literal: "unterminated string", Line: tok.Line, Column: tok.Column}
		}
		tok.Type = token.STRING
		tok.Literal = lit
	case 0:
		tok.Literal = ""
		tok.Type = token.EOF
		return tok
	default:
		if isLetter(l.ch) {
			tok.Literal = l.readIdentifier()
			tok.Type = token.LookupIdent(tok.Literal)
			return tok
		} else if isDigit(l.ch) {
			return l.readNumber(tok.Line, tok.Column)
		}
		tok = l.newToken(token.ILLEGAL, l.ch)
	}

	l.readChar()
	return tok
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.column++
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	return l.peekCharAt(0)
}

// peekCharAt returns the character n positions after the next one.
func (l *Lexer) peekCharAt(n int) byte {
	if l.readPosition+n >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition+n]
}

// longToken consumes a multi-character operator. The caller's final
// readChar consumes the last byte.
func (l *Lexer) longToken(tokenType token.TokenType, width int) token.Token {
	tok := token.Token{Type: tokenType, Literal: l.input[l.position : l.position+width], Line: l.line, Column: l.column}
	for i := 1; i < width; i++ {
		l.readChar()
	}
	return tok
}

// readIdentifier reads an identifier.
func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

// readNumber reads a number (integer, decimal, exponent or hexadecimal).
func (l *Lexer) readNumber(line, column int) token.Token {
	position := l.position

	// Check for hexadecimal (0x or 0X)
	if l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X') {
		l.readChar() // consume '0'
		l.readChar() // consume 'x' or 'X'
		for isHexDigit(l.ch) {
			l.readChar()
		}
		return token.Token{Type: token.NUMBER, Literal: l.input[position:l.position], Line: line, Column: column}
	}

	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar() // consume '.'
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || ((next == '+' || next == '-') && isDigit(l.peekCharAt(1))) {
			l.readChar() // consume 'e'
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}

	return token.Token{Type: token.NUMBER, Literal: l.input[position:l.position], Line: line, Column: column}
}

// readString reads a quoted string literal and resolves escapes.
// The lexer is left on the closing quote.
func (l *Lexer) readString(quote byte) (string, bool) {
	var sb strings.Builder
	for {
		l.readChar()
		switch l.ch {
		case 0, '\n':
			return sb.String(), false
		case quote:
			return sb.String(), true
		case '\\':
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '0':
				sb.WriteByte(0)
			case 0:
				return sb.String(), false
			default:
				sb.WriteByte(l.ch)
			}
		default:
			sb.WriteByte(l.ch)
		}
	}
}

// readComment reads a single-line comment.
func (l *Lexer) readComment() string {
	position := l.position
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
	return l.input[position:l.position]
}

// readMultiLineComment reads a multi-line comment /* ... */
func (l *Lexer) readMultiLineComment() string {
	position := l.position
	l.readChar() // consume /
	l.readChar() // consume *

	for {
		if l.ch == 0 {
			break // EOF
		}
		if l.ch == '*' && l.peekChar() == '/' {
			l.readChar() // consume *
			l.readChar() // consume /
			break
		}
		l.readChar()
	}

	return l.input[position:l.position]
}

// skipWhitespace skips whitespace characters.
func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

// newToken creates a new token.
func (l *Lexer) newToken(tokenType token.TokenType, ch byte) token.Token {
	return token.Token{Type: tokenType, Literal: string(ch), Line: l.line, Column: l.column}
}

// isLetter checks if a character can start an identifier.
func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_' || ch == '$'
}

// isDigit checks if a character is a digit.
func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

// isHexDigit checks if a character is a hexadecimal digit.
func isHexDigit(ch byte) bool {
	return ('0' <= ch && ch <= '9') || ('a' <= ch && ch <= 'f') || ('A' <= ch && ch <= 'F')
}

// GetSource returns the source code as a string
func (l *Lexer) GetSource() string {
	return l.input
}
