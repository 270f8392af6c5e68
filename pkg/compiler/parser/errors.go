package parser

import "fmt"

// ParserError is a syntax error at a source position.
type ParserError struct {
	Message string
	Line    int
	Column  int

	// Lexical is set when the offending token could not be scanned.
	Lexical bool
}

// Error implements the error interface.
func (e *ParserError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Message)
}
