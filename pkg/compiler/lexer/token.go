// Package lexer provides lexical analysis for stacklang source code.
package lexer

// TokenType represents the type of a token.
type TokenType int

// Token types
const (
	// Special tokens
	TOKEN_ILLEGAL TokenType = iota
	TOKEN_EOF
	TOKEN_COMMENT

	// Literals
	TOKEN_IDENT  // identifier
	TOKEN_INT    // integer literal
	TOKEN_CHAR   // 'c'
	TOKEN_STRING // "text"

	// Operators
	TOKEN_PLUS     // +
	TOKEN_MINUS    // -
	TOKEN_ASTERISK // *
	TOKEN_SLASH    // /
	TOKEN_PERCENT  // %
	TOKEN_ASSIGN   // :=
	TOKEN_EQ       // ==
	TOKEN_NEQ      // !=
	TOKEN_LT       // <
	TOKEN_GT       // >
	TOKEN_LTE      // <=
	TOKEN_GTE      // >=
	TOKEN_BITAND   // &
	TOKEN_BITOR    // |
	TOKEN_AND      // &&
	TOKEN_OR       // ||
	TOKEN_BANGBANG // !!

	// Delimiters
	TOKEN_LPAREN    // (
	TOKEN_RPAREN    // )
	TOKEN_LBRACE    // {
	TOKEN_RBRACE    // }
	TOKEN_LBRACKET  // [
	TOKEN_RBRACKET  // ]
	TOKEN_COMMA     // ,
	TOKEN_SEMICOLON // ;

	// Keywords
	TOKEN_FUN    // fun
	TOKEN_BEGIN  // begin
	TOKEN_END    // end
	TOKEN_IF     // if
	TOKEN_THEN   // then
	TOKEN_ELIF   // elif
	TOKEN_ELSE   // else
	TOKEN_FI     // fi
	TOKEN_WHILE  // while
	TOKEN_DO     // do
	TOKEN_OD     // od
	TOKEN_FOR    // for
	TOKEN_REPEAT // repeat
	TOKEN_UNTIL  // until
	TOKEN_SKIP   // skip
	TOKEN_RETURN // return
	TOKEN_TRUE   // true
	TOKEN_FALSE  // false
)

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
}

// tokenTypeNames maps TokenType to its string representation.
var tokenTypeNames = map[TokenType]string{
	TOKEN_ILLEGAL: "ILLEGAL",
	TOKEN_EOF:     "EOF",
	TOKEN_COMMENT: "COMMENT",

	TOKEN_IDENT:  "IDENT",
	TOKEN_INT:    "INT",
	TOKEN_CHAR:   "CHAR",
	TOKEN_STRING: "STRING",

	TOKEN_PLUS:     "+",
	TOKEN_MINUS:    "-",
	TOKEN_ASTERISK: "*",
	TOKEN_SLASH:    "/",
	TOKEN_PERCENT:  "%",
	TOKEN_ASSIGN:   ":=",
	TOKEN_EQ:       "==",
	TOKEN_NEQ:      "!=",
	TOKEN_LT:       "<",
	TOKEN_GT:       ">",
	TOKEN_LTE:      "<=",
	TOKEN_GTE:      ">=",
	TOKEN_BITAND:   "&",
	TOKEN_BITOR:    "|",
	TOKEN_AND:      "&&",
	TOKEN_OR:       "||",
	TOKEN_BANGBANG: "!!",

	TOKEN_LPAREN:    "(",
	TOKEN_RPAREN:    ")",
	TOKEN_LBRACE:    "{",
	TOKEN_RBRACE:    "}",
	TOKEN_LBRACKET:  "[",
	TOKEN_RBRACKET:  "]",
	TOKEN_COMMA:     ",",
	TOKEN_SEMICOLON: ";",

	TOKEN_FUN:    "fun",
	TOKEN_BEGIN:  "begin",
	TOKEN_END:    "end",
	TOKEN_IF:     "if",
	TOKEN_THEN:   "then",
	TOKEN_ELIF:   "elif",
	TOKEN_ELSE:   "else",
	TOKEN_FI:     "fi",
	TOKEN_WHILE:  "while",
	TOKEN_DO:     "do",
	TOKEN_OD:     "od",
	TOKEN_FOR:    "for",
	TOKEN_REPEAT: "repeat",
	TOKEN_UNTIL:  "until",
	TOKEN_SKIP:   "skip",
	TOKEN_RETURN: "return",
	TOKEN_TRUE:   "true",
	TOKEN_FALSE:  "false",
}

// String returns a string representation of the token type.
func (t TokenType) String() string {
	if name, ok := tokenTypeNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// IsKeyword returns true if the token type is a keyword.
func (t TokenType) IsKeyword() bool {
	return t >= TOKEN_FUN && t <= TOKEN_FALSE
}

// IsOperator returns true if the token type is an operator.
func (t TokenType) IsOperator() bool {
	return t >= TOKEN_PLUS && t <= TOKEN_BANGBANG
}

// IsLiteral returns true if the token type is a literal.
func (t TokenType) IsLiteral() bool {
	return t >= TOKEN_IDENT && t <= TOKEN_STRING
}

// keywords maps keyword strings to their TokenType. Keywords are case
// sensitive.
var keywords = map[string]TokenType{
	"fun":    TOKEN_FUN,
	"begin":  TOKEN_BEGIN,
	"end":    TOKEN_END,
	"if":     TOKEN_IF,
	"then":   TOKEN_THEN,
	"elif":   TOKEN_ELIF,
	"else":   TOKEN_ELSE,
	"fi":     TOKEN_FI,
	"while":  TOKEN_WHILE,
	"do":     TOKEN_DO,
	"od":     TOKEN_OD,
	"for":    TOKEN_FOR,
	"repeat": TOKEN_REPEAT,
	"until":  TOKEN_UNTIL,
	"skip":   TOKEN_SKIP,
	"return": TOKEN_RETURN,
	"true":   TOKEN_TRUE,
	"false":  TOKEN_FALSE,
}

// LookupIdent returns the keyword type for ident, or TOKEN_IDENT.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return TOKEN_IDENT
}
