package lexer

import "unicode/utf8"

// Lexer tokenizes stacklang source code.
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

// NextToken returns the next token. After the end of input it keeps
// returning TOKEN_EOF.
func (l *Lexer) NextToken() Token {
	var tok Token

	l.skipWhitespace()

	tok.Line = l.line
	tok.Column = l.column

	switch l.ch {
	case ':':
		if l.peekChar() == '=' {
			tok = l.twoCharToken(TOKEN_ASSIGN)
		} else {
			tok = l.newToken(TOKEN_ILLEGAL, l.ch)
		}
	case '=':
		if l.peekChar() == '=' {
			tok = l.twoCharToken(TOKEN_EQ)
		} else {
			tok = l.newToken(TOKEN_ILLEGAL, l.ch)
		}
	case '!':
		switch l.peekChar() {
		case '=':
			tok = l.twoCharToken(TOKEN_NEQ)
		case '!':
			tok = l.twoCharToken(TOKEN_BANGBANG)
		default:
			tok = l.newToken(TOKEN_ILLEGAL, l.ch)
		}
	case '<':
		if l.peekChar() == '=' {
			tok = l.twoCharToken(TOKEN_LTE)
		} else {
			tok = l.newToken(TOKEN_LT, l.ch)
		}
	case '>':
		if l.peekChar() == '=' {
			tok = l.twoCharToken(TOKEN_GTE)
		} else {
			tok = l.newToken(TOKEN_GT, l.ch)
		}
	case '&':
		if l.peekChar() == '&' {
			tok = l.twoCharToken(TOKEN_AND)
		} else {
			tok = l.newToken(TOKEN_BITAND, l.ch)
		}
	case '|':
		if l.peekChar() == '|' {
			tok = l.twoCharToken(TOKEN_OR)
		} else {
			tok = l.newToken(TOKEN_BITOR, l.ch)
		}
	case '+':
		tok = l.newToken(TOKEN_PLUS, l.ch)
	case '-':
		tok = l.newToken(TOKEN_MINUS, l.ch)
	case '*':
		tok = l.newToken(TOKEN_ASTERISK, l.ch)
	case '/':
		if l.peekChar() == '/' {
			tok.Type = TOKEN_COMMENT
			tok.Literal = l.readComment()
			return tok
		}
		tok = l.newToken(TOKEN_SLASH, l.ch)
	case '%':
		tok = l.newToken(TOKEN_PERCENT, l.ch)
	case '(':
		tok = l.newToken(TOKEN_LPAREN, l.ch)
	case ')':
		tok = l.newToken(TOKEN_RPAREN, l.ch)
	case '{':
		tok = l.newToken(TOKEN_LBRACE, l.ch)
	case '}':
		tok = l.newToken(TOKEN_RBRACE, l.ch)
	case '[':
		tok = l.newToken(TOKEN_LBRACKET, l.ch)
	case ']':
		tok = l.newToken(TOKEN_RBRACKET, l.ch)
	case ',':
		tok = l.newToken(TOKEN_COMMA, l.ch)
	case ';':
		tok = l.newToken(TOKEN_SEMICOLON, l.ch)
	case '"':
		lit, ok := l.readQuoted('"')
		tok.Literal = lit
		tok.Type = TOKEN_STRING
		if !ok {
			tok.Type = TOKEN_ILLEGAL
		}
	case '\'':
		lit, ok := l.readQuoted('\'')
		tok.Literal = lit
		tok.Type = TOKEN_CHAR
		if !ok || utf8.RuneCountInString(lit) != 1 {
			tok.Type = TOKEN_ILLEGAL
		}
	case 0:
		tok.Literal = ""
		tok.Type = TOKEN_EOF
		return tok
	default:
		if isLetter(l.ch) {
			tok.Literal = l.readIdentifier()
			tok.Type = LookupIdent(tok.Literal)
			return tok
		} else if isDigit(l.ch) {
			tok.Literal = l.readNumber()
			tok.Type = TOKEN_INT
			return tok
		}
		tok = l.newToken(TOKEN_ILLEGAL, l.ch)
	}

	l.readChar()
	return tok
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.column++

	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

// twoCharToken consumes the current and next character as one token.
func (l *Lexer) twoCharToken(tokenType TokenType) Token {
	line, column := l.line, l.column
	ch := l.ch
	l.readChar()
	return Token{Type: tokenType, Literal: string(ch) + string(l.ch), Line: line, Column: column}
}

// readIdentifier reads an identifier.
func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

// readNumber reads a decimal integer. The sign is a separate token.
func (l *Lexer) readNumber() string {
	position := l.position
	for isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

// readQuoted reads up to the closing quote, leaving l.ch on it. Literals
// have no escape sequences and may not span lines.
func (l *Lexer) readQuoted(quote byte) (string, bool) {
	position := l.position + 1
	for {
		if l.peekChar() == '\n' || l.peekChar() == 0 {
			lit := l.input[position:l.readPosition]
			return lit, false
		}
		l.readChar()
		if l.ch == quote {
			return l.input[position:l.position], true
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

// skipWhitespace skips whitespace characters.
func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

// newToken creates a new token.
func (l *Lexer) newToken(tokenType TokenType, ch byte) Token {
	return Token{Type: tokenType, Literal: string(ch), Line: l.line, Column: l.column}
}

// isLetter checks if a character is a letter.
func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

// isDigit checks if a character is a digit.
func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
