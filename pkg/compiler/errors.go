package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zurustar/stacklang/pkg/compiler/parser"
)

// Phases reported in CompileError.Phase.
const (
	PhaseLexer  = "lexer"
	PhaseParser = "parser"
)

// CompileError represents a structured compilation error with location information.
type CompileError struct {
	// Phase indicates which compilation phase generated the error.
	Phase string

	// Message is the human-readable error description.
	Message string

	// Line and Column are 1-indexed. Zero means the position is unknown.
	Line   int
	Column int

	// Context contains the source code around the error location,
	// with a pointer (^) indicating the error column.
	Context string
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s error at line %d, column %d: %s\n%s",
			e.Phase, e.Line, e.Column, e.Message, e.Context)
	}
	return fmt.Sprintf("%s error at line %d, column %d: %s",
		e.Phase, e.Line, e.Column, e.Message)
}

// NewLexerErrorWithContext creates a lexer phase error with source context.
func NewLexerErrorWithContext(message string, line, column int, source string) *CompileError {
	return newErrorWithContext(PhaseLexer, message, line, column, source)
}

// NewParserErrorWithContext creates a parser phase error with source context.
func NewParserErrorWithContext(message string, line, column int, source string) *CompileError {
	return newErrorWithContext(PhaseParser, message, line, column, source)
}

func newErrorWithContext(phase, message string, line, column int, source string) *CompileError {
	return &CompileError{
		Phase:   phase,
		Message: message,
		Line:    line,
		Column:  column,
		Context: GenerateErrorContext(source, line, column),
	}
}

// withContext converts parser errors into CompileErrors that quote source.
// Other errors pass through unchanged.
func withContext(errs []error, source string) []error {
	out := make([]error, 0, len(errs))
	for _, err := range errs {
		var pe *parser.ParserError
		switch {
		case errors.As(err, &pe) && pe.Lexical:
			out = append(out, NewLexerErrorWithContext(pe.Message, pe.Line, pe.Column, source))
		case errors.As(err, &pe):
			out = append(out, NewParserErrorWithContext(pe.Message, pe.Line, pe.Column, source))
		default:
			out = append(out, err)
		}
	}
	return out
}

// IsCompileError reports whether err is or wraps a CompileError of phase.
// An empty phase matches any CompileError.
func IsCompileError(err error, phase string) bool {
	var ce *CompileError
	if !errors.As(err, &ce) {
		return false
	}
	return phase == "" || ce.Phase == phase
}

// GenerateErrorContext generates source code context around an error location.
// It includes 2 lines before and 2 lines after the error line, with line numbers
// and a pointer (^) indicating the error column.
//
// Example output:
//
//	  2 | x := 5;
//	  3 | y := 10;
//	> 4 | z := ;
//	           ^
//	  5 | w := 20;
//	  6 | v := 30
func GenerateErrorContext(source string, line, column int) string {
	if source == "" || line <= 0 {
		return ""
	}

	lines := strings.Split(source, "\n")
	if line > len(lines) {
		return ""
	}

	start := line - 3
	if start < 0 {
		start = 0
	}
	end := line + 2
	if end > len(lines) {
		end = len(lines)
	}

	var buf strings.Builder

	lineNumWidth := len(fmt.Sprintf("%d", end))

	for i := start; i < end; i++ {
		lineNum := i + 1
		lineContent := lines[i]

		if lineNum != line {
			buf.WriteString(fmt.Sprintf("  %*d | %s\n", lineNumWidth, lineNum, lineContent))
			continue
		}

		buf.WriteString(fmt.Sprintf("> %*d | %s\n", lineNumWidth, lineNum, lineContent))
		// "> " + lineNumWidth + " | "
		pointerIndent := 2 + lineNumWidth + 3
		pad := 0
		if column > 0 {
			pad = column - 1
		}
		buf.WriteString(fmt.Sprintf("%s%s^\n", strings.Repeat(" ", pointerIndent), strings.Repeat(" ", pad)))
	}

	return buf.String()
}
