// Package compiler provides the compilation pipeline for stacklang source.
// It transforms source code through these phases:
// 1. Lexer: Tokenization
// 2. Parser: AST generation
// 3. Compiler: stack machine bytecode
// 4. Codegen: x86 assembly text (optional)
//
// Errors from the first two phases are returned as *CompileError values
// carrying a source excerpt. Errors from later phases are langerr values.
package compiler

import (
	"fmt"

	"github.com/zurustar/stacklang/pkg/compiler/ast"
	"github.com/zurustar/stacklang/pkg/compiler/codegen"
	"github.com/zurustar/stacklang/pkg/compiler/compiler"
	"github.com/zurustar/stacklang/pkg/compiler/lexer"
	"github.com/zurustar/stacklang/pkg/compiler/parser"
	"github.com/zurustar/stacklang/pkg/opcode"
	"github.com/zurustar/stacklang/pkg/script"
)

// Parse parses source code into an AST.
func Parse(source string) (*ast.Program, []error) {
	l := lexer.New(source)
	p := parser.New(l)

	program, errs := p.ParseProgram()
	if len(errs) > 0 {
		return nil, withContext(errs, source)
	}
	return program, nil
}

// Compile compiles source code to bytecode.
// It chains the lexer → parser → compiler pipeline and stops at the first
// phase that reports errors.
func Compile(source string) (opcode.Program, []error) {
	program, errs := Parse(source)
	if len(errs) > 0 {
		return nil, errs
	}
	return CompileProgram(program)
}

// CompileProgram compiles an already built AST to bytecode.
func CompileProgram(program *ast.Program) (opcode.Program, []error) {
	c := compiler.New()
	code, errs := c.Compile(program)
	if len(errs) > 0 {
		return nil, errs
	}
	return code, nil
}

// Assemble compiles source code all the way to assembly lines.
func Assemble(source string) ([]string, []error) {
	code, errs := Compile(source)
	if len(errs) > 0 {
		return nil, errs
	}
	lines, err := codegen.New().Generate(code)
	if err != nil {
		return nil, []error{err}
	}
	return lines, nil
}

// LoadFile reads a source file in the named encoding.
func LoadFile(path, encoding string) (*script.Script, error) {
	loader, err := script.NewLoader(encoding)
	if err != nil {
		return nil, err
	}
	s, err := loader.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return s, nil
}

// ParseFile loads and parses a source file.
func ParseFile(path, encoding string) (*ast.Program, []error) {
	s, err := LoadFile(path, encoding)
	if err != nil {
		return nil, []error{err}
	}
	return Parse(s.Content)
}

// CompileFile loads and compiles a source file.
func CompileFile(path, encoding string) (opcode.Program, []error) {
	s, err := LoadFile(path, encoding)
	if err != nil {
		return nil, []error{err}
	}
	return Compile(s.Content)
}
