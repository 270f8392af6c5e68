package lexer

import "testing"

func TestTokenTypeString(t *testing.T) {
	tests := []struct {
		tokenType TokenType
		expected  string
	}{
		{TOKEN_ILLEGAL, "ILLEGAL"},
		{TOKEN_EOF, "EOF"},
		{TOKEN_IDENT, "IDENT"},
		{TOKEN_INT, "INT"},
		{TOKEN_CHAR, "CHAR"},
		{TOKEN_STRING, "STRING"},
		{TOKEN_ASSIGN, ":="},
		{TOKEN_BITAND, "&"},
		{TOKEN_AND, "&&"},
		{TOKEN_BANGBANG, "!!"},
		{TOKEN_SEMICOLON, ";"},
		{TOKEN_FUN, "fun"},
		{TOKEN_OD, "od"},
		{TOKEN_FALSE, "false"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.tokenType.String(); got != tt.expected {
				t.Errorf("TokenType.String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestTokenTypeStringUnknown(t *testing.T) {
	if got := TokenType(9999).String(); got != "UNKNOWN" {
		t.Errorf("Unknown TokenType.String() = %q, want %q", got, "UNKNOWN")
	}
}

func TestTokenTypeClasses(t *testing.T) {
	tests := []struct {
		tokenType TokenType
		keyword   bool
		operator  bool
		literal   bool
	}{
		{TOKEN_FUN, true, false, false},
		{TOKEN_FALSE, true, false, false},
		{TOKEN_PLUS, false, true, false},
		{TOKEN_BANGBANG, false, true, false},
		{TOKEN_IDENT, false, false, true},
		{TOKEN_STRING, false, false, true},
		{TOKEN_LPAREN, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.tokenType.String(), func(t *testing.T) {
			if got := tt.tokenType.IsKeyword(); got != tt.keyword {
				t.Errorf("IsKeyword() = %v, want %v", got, tt.keyword)
			}
			if got := tt.tokenType.IsOperator(); got != tt.operator {
				t.Errorf("IsOperator() = %v, want %v", got, tt.operator)
			}
			if got := tt.tokenType.IsLiteral(); got != tt.literal {
				t.Errorf("IsLiteral() = %v, want %v", got, tt.literal)
			}
		})
	}
}

func TestLookupIdent(t *testing.T) {
	for word, expected := range keywords {
		if got := LookupIdent(word); got != expected {
			t.Errorf("LookupIdent(%q) = %v, want %v", word, got, expected)
		}
	}
	for _, ident := range []string{"x", "If", "WHILE", "funny", "main"} {
		if got := LookupIdent(ident); got != TOKEN_IDENT {
			t.Errorf("LookupIdent(%q) = %v, want IDENT", ident, got)
		}
	}
}
