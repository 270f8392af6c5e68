// Package parser builds an ast.Program from a token stream.
//
// Expressions are parsed with a Pratt parser. Statements are separated by
// ';' and every block ends at a keyword (end, fi, od, until, elif, else), so
// a trailing ';' before the keyword is accepted. Top-level statements become
// the body of the implicit main function, which is appended after the
// explicit definitions.
package parser

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/zurustar/stacklang/pkg/compiler/ast"
	"github.com/zurustar/stacklang/pkg/compiler/lexer"
	"github.com/zurustar/stacklang/pkg/value"
)

// Precedence levels for operators.
const (
	_ int = iota
	LOWEST
	OR          // || !!
	AND         // &&
	BITOR       // |
	BITAND      // &
	EQUALS      // == !=
	LESSGREATER // > or <
	SUM         // +
	PRODUCT     // *
	PREFIX      // -X
	CALL        // myFunction(X) or array[index]
)

var precedences = map[lexer.TokenType]int{
	lexer.TOKEN_OR:       OR,
	lexer.TOKEN_BANGBANG: OR,
	lexer.TOKEN_AND:      AND,
	lexer.TOKEN_BITOR:    BITOR,
	lexer.TOKEN_BITAND:   BITAND,
	lexer.TOKEN_EQ:       EQUALS,
	lexer.TOKEN_NEQ:      EQUALS,
	lexer.TOKEN_LT:       LESSGREATER,
	lexer.TOKEN_LTE:      LESSGREATER,
	lexer.TOKEN_GT:       LESSGREATER,
	lexer.TOKEN_GTE:      LESSGREATER,
	lexer.TOKEN_PLUS:     SUM,
	lexer.TOKEN_MINUS:    SUM,
	lexer.TOKEN_ASTERISK: PRODUCT,
	lexer.TOKEN_SLASH:    PRODUCT,
	lexer.TOKEN_PERCENT:  PRODUCT,
	lexer.TOKEN_LPAREN:   CALL,
	lexer.TOKEN_LBRACKET: CALL,
}

var binaryOperators = map[lexer.TokenType]ast.Operator{
	lexer.TOKEN_PLUS:     ast.OpAdd,
	lexer.TOKEN_MINUS:    ast.OpSub,
	lexer.TOKEN_ASTERISK: ast.OpMul,
	lexer.TOKEN_SLASH:    ast.OpDiv,
	lexer.TOKEN_PERCENT:  ast.OpMod,
	lexer.TOKEN_BITAND:   ast.OpAnd,
	lexer.TOKEN_BITOR:    ast.OpOr,
	lexer.TOKEN_EQ:       ast.OpEq,
	lexer.TOKEN_NEQ:      ast.OpNeq,
	lexer.TOKEN_LT:       ast.OpLt,
	lexer.TOKEN_GT:       ast.OpGt,
	lexer.TOKEN_LTE:      ast.OpLte,
	lexer.TOKEN_GTE:      ast.OpGte,
}

// Parser parses source code into an AST.
type Parser struct {
	l      *lexer.Lexer
	errors []error

	curToken  lexer.Token
	peekToken lexer.Token

	prefixParseFns map[lexer.TokenType]prefixParseFn
	infixParseFns  map[lexer.TokenType]infixParseFn
}

type (
	prefixParseFn func() ast.Node
	infixParseFn  func(ast.Node) ast.Node
)

// New creates a new Parser.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}

	p.prefixParseFns = make(map[lexer.TokenType]prefixParseFn)
	p.registerPrefix(lexer.TOKEN_IDENT, p.parseIdentifier)
	p.registerPrefix(lexer.TOKEN_INT, p.parseIntegerLiteral)
	p.registerPrefix(lexer.TOKEN_CHAR, p.parseCharLiteral)
	p.registerPrefix(lexer.TOKEN_STRING, p.parseStringLiteral)
	p.registerPrefix(lexer.TOKEN_TRUE, p.parseBoolean)
	p.registerPrefix(lexer.TOKEN_FALSE, p.parseBoolean)
	p.registerPrefix(lexer.TOKEN_MINUS, p.parseUnaryMinus)
	p.registerPrefix(lexer.TOKEN_LPAREN, p.parseGroupedExpression)
	p.registerPrefix(lexer.TOKEN_LBRACKET, p.parseArrayLiteral)
	p.registerPrefix(lexer.TOKEN_LBRACE, p.parseArrayLiteral)

	p.infixParseFns = make(map[lexer.TokenType]infixParseFn)
	for t := range binaryOperators {
		p.registerInfix(t, p.parseInfixExpression)
	}
	p.registerInfix(lexer.TOKEN_AND, p.parseLogicalAnd)
	p.registerInfix(lexer.TOKEN_OR, p.parseLogicalOr)
	p.registerInfix(lexer.TOKEN_BANGBANG, p.parseLogicalOr)
	p.registerInfix(lexer.TOKEN_LPAREN, p.parseCallExpression)
	p.registerInfix(lexer.TOKEN_LBRACKET, p.parseIndexExpression)

	// Read two tokens to initialize curToken and peekToken
	p.nextToken()
	p.nextToken()

	return p
}

// ParseProgram parses function definitions followed by the top-level
// statements. Parsing stops at the first syntax error.
func (p *Parser) ParseProgram() (*ast.Program, []error) {
	var defs []*ast.FunctionDef
	for p.curTokenIs(lexer.TOKEN_FUN) {
		fn := p.parseFunctionDef()
		if p.failed() {
			return nil, p.errors
		}
		defs = append(defs, fn)
		p.nextToken()
		for p.curTokenIs(lexer.TOKEN_SEMICOLON) {
			p.nextToken()
		}
	}

	body := p.parseBlock(lexer.TOKEN_EOF)
	if p.failed() {
		return nil, p.errors
	}

	defs = append(defs, &ast.FunctionDef{Name: ast.MainFunction, Body: body})
	program, err := ast.NewProgram(defs...)
	if err != nil {
		p.errors = append(p.errors, err)
		return nil, p.errors
	}
	return program, nil
}

func (p *Parser) failed() bool {
	return len(p.errors) > 0
}

// parseFunctionDef leaves curToken on 'end'.
func (p *Parser) parseFunctionDef() *ast.FunctionDef {
	if !p.expectPeek(lexer.TOKEN_IDENT) {
		return nil
	}
	fn := &ast.FunctionDef{Name: p.curToken.Literal}

	if !p.expectPeek(lexer.TOKEN_LPAREN) {
		return nil
	}
	fn.Params = p.parseParameters()
	if p.failed() {
		return nil
	}

	if !p.expectPeek(lexer.TOKEN_BEGIN) {
		return nil
	}
	p.nextToken()
	fn.Body = p.parseBlock(lexer.TOKEN_END)
	return fn
}

func (p *Parser) parseParameters() []string {
	params := []string{}
	if p.peekTokenIs(lexer.TOKEN_RPAREN) {
		p.nextToken()
		return params
	}

	seen := make(map[string]bool)
	for {
		if !p.expectPeek(lexer.TOKEN_IDENT) {
			return nil
		}
		name := p.curToken.Literal
		if seen[name] {
			p.errorf(p.curToken, "duplicate parameter %s", name)
			return nil
		}
		seen[name] = true
		params = append(params, name)

		if !p.peekTokenIs(lexer.TOKEN_COMMA) {
			break
		}
		p.nextToken()
	}

	if !p.expectPeek(lexer.TOKEN_RPAREN) {
		return nil
	}
	return params
}

// parseBlock parses ';'-separated statements starting at curToken and stops
// with curToken on one of the terminators. Statements following a return
// are parsed but dropped.
func (p *Parser) parseBlock(terminators ...lexer.TokenType) []ast.Node {
	stmts := []ast.Node{}
	returned := false

	for !p.curTokenIn(terminators) {
		if p.curTokenIs(lexer.TOKEN_EOF) {
			p.errorf(p.curToken, "unexpected end of input, expected %s", terminators[0])
			return nil
		}
		if p.curTokenIs(lexer.TOKEN_SEMICOLON) {
			p.nextToken()
			continue
		}

		isReturn := p.curTokenIs(lexer.TOKEN_RETURN)
		if isReturn {
			p.nextToken()
		}
		stmt := p.parseStatement()
		if p.failed() {
			return nil
		}
		if !returned {
			stmts = append(stmts, stmt)
		}
		returned = returned || isReturn

		p.nextToken()
		if !p.curTokenIs(lexer.TOKEN_SEMICOLON) && !p.curTokenIn(terminators) && !p.curTokenIs(lexer.TOKEN_EOF) {
			p.errorf(p.curToken, "expected ; or %s, got %s instead", terminators[0], p.curToken.Type)
			return nil
		}
	}
	return stmts
}

// parseStatement leaves curToken on the last token of the statement.
func (p *Parser) parseStatement() ast.Node {
	switch p.curToken.Type {
	case lexer.TOKEN_SKIP:
		return &ast.Skip{}
	case lexer.TOKEN_IF:
		return p.parseConditional()
	case lexer.TOKEN_WHILE:
		return p.parseWhileLoop()
	case lexer.TOKEN_FOR:
		return p.parseForLoop()
	case lexer.TOKEN_REPEAT:
		return p.parseRepeatLoop()
	}

	expr := p.parseExpression(LOWEST)
	if p.failed() || !p.peekTokenIs(lexer.TOKEN_ASSIGN) {
		return expr
	}

	target, ok := expr.(*ast.Variable)
	if !ok {
		p.errorf(p.peekToken, "cannot assign to %s", expr)
		return nil
	}
	p.nextToken()
	p.nextToken()
	rhs := p.parseExpression(LOWEST)
	if p.failed() {
		return nil
	}
	return &ast.Assignment{Target: target, Value: rhs}
}

// parseGuard parses the expression after the current keyword and expects
// the keyword that opens its body.
func (p *Parser) parseGuard(open lexer.TokenType) ast.Node {
	p.nextToken()
	cond := p.parseExpression(LOWEST)
	if p.failed() || !p.expectPeek(open) {
		return nil
	}
	p.nextToken()
	return cond
}

func (p *Parser) parseConditional() ast.Node {
	c := &ast.Conditional{}

	c.Cond = p.parseGuard(lexer.TOKEN_THEN)
	if p.failed() {
		return nil
	}
	c.Then = p.parseBlock(lexer.TOKEN_FI, lexer.TOKEN_ELIF, lexer.TOKEN_ELSE)

	for !p.failed() && p.curTokenIs(lexer.TOKEN_ELIF) {
		cond := p.parseGuard(lexer.TOKEN_THEN)
		if p.failed() {
			return nil
		}
		body := p.parseBlock(lexer.TOKEN_FI, lexer.TOKEN_ELIF, lexer.TOKEN_ELSE)
		c.Elifs = append(c.Elifs, ast.Elif{Cond: cond, Body: body})
	}

	if !p.failed() && p.curTokenIs(lexer.TOKEN_ELSE) {
		p.nextToken()
		c.Else = p.parseBlock(lexer.TOKEN_FI)
	}
	if p.failed() {
		return nil
	}
	return c
}

func (p *Parser) parseWhileLoop() ast.Node {
	cond := p.parseGuard(lexer.TOKEN_DO)
	if p.failed() {
		return nil
	}
	body := p.parseBlock(lexer.TOKEN_OD)
	if p.failed() {
		return nil
	}
	return &ast.WhileLoop{Cond: cond, Body: body}
}

// parseForLoop parses "for init, cond, increment do body od".
func (p *Parser) parseForLoop() ast.Node {
	loop := &ast.ForLoop{}

	p.nextToken()
	loop.Init = p.parseStatement()
	if p.failed() || !p.expectPeek(lexer.TOKEN_COMMA) {
		return nil
	}

	p.nextToken()
	loop.Cond = p.parseExpression(LOWEST)
	if p.failed() || !p.expectPeek(lexer.TOKEN_COMMA) {
		return nil
	}

	p.nextToken()
	loop.Increment = p.parseStatement()
	if p.failed() || !p.expectPeek(lexer.TOKEN_DO) {
		return nil
	}

	p.nextToken()
	loop.Body = p.parseBlock(lexer.TOKEN_OD)
	if p.failed() {
		return nil
	}
	return loop
}

func (p *Parser) parseRepeatLoop() ast.Node {
	p.nextToken()
	body := p.parseBlock(lexer.TOKEN_UNTIL)
	if p.failed() {
		return nil
	}
	p.nextToken()
	cond := p.parseExpression(LOWEST)
	if p.failed() {
		return nil
	}
	return &ast.RepeatLoop{Body: body, Cond: cond}
}

func (p *Parser) parseExpression(precedence int) ast.Node {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError(p.curToken)
		return nil
	}
	leftExp := prefix()

	for !p.failed() && !p.peekTokenIs(lexer.TOKEN_EOF) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}

		p.nextToken()
		leftExp = infix(leftExp)
	}

	if p.failed() {
		return nil
	}
	return leftExp
}

func (p *Parser) parseIdentifier() ast.Node {
	return &ast.Variable{Name: p.curToken.Literal}
}

func (p *Parser) parseIntegerLiteral() ast.Node {
	n, err := strconv.ParseInt(p.curToken.Literal, 10, 32)
	if err != nil {
		p.errorf(p.curToken, "could not parse %q as a 32-bit integer", p.curToken.Literal)
		return nil
	}
	return &ast.Const{Value: value.Number(n)}
}

func (p *Parser) parseCharLiteral() ast.Node {
	r, _ := utf8.DecodeRuneInString(p.curToken.Literal)
	return &ast.Const{Value: value.Character(r)}
}

func (p *Parser) parseStringLiteral() ast.Node {
	return &ast.Const{Value: value.NewStr(p.curToken.Literal)}
}

func (p *Parser) parseBoolean() ast.Node {
	if p.curTokenIs(lexer.TOKEN_TRUE) {
		return one()
	}
	return zero()
}

func (p *Parser) parseUnaryMinus() ast.Node {
	p.nextToken()
	arg := p.parseExpression(PREFIX)
	if arg == nil {
		return nil
	}
	return &ast.UnaryMinus{Arg: arg}
}

func (p *Parser) parseGroupedExpression() ast.Node {
	p.nextToken()

	exp := p.parseExpression(LOWEST)

	if !p.expectPeek(lexer.TOKEN_RPAREN) {
		return nil
	}

	return exp
}

// parseArrayLiteral accepts both [a, b] and {a, b}.
func (p *Parser) parseArrayLiteral() ast.Node {
	end := lexer.TOKEN_RBRACKET
	if p.curTokenIs(lexer.TOKEN_LBRACE) {
		end = lexer.TOKEN_RBRACE
	}
	elems := p.parseExpressionList(end)
	if p.failed() {
		return nil
	}
	return &ast.ArrayLit{Elements: elems}
}

func (p *Parser) parseInfixExpression(left ast.Node) ast.Node {
	op := binaryOperators[p.curToken.Type]
	precedence := p.curPrecedence()
	p.nextToken()
	right := p.parseExpression(precedence)
	if right == nil {
		return nil
	}
	return &ast.Binary{Left: left, Right: right, Op: op}
}

// parseLogicalAnd rewrites l && r into conditionals so that r is evaluated
// only when l is nonzero. The result is always 0 or 1.
func (p *Parser) parseLogicalAnd(left ast.Node) ast.Node {
	precedence := p.curPrecedence()
	p.nextToken()
	right := p.parseExpression(precedence)
	if right == nil {
		return nil
	}
	return &ast.Conditional{
		Cond: &ast.Binary{Left: left, Right: zero(), Op: ast.OpEq},
		Then: []ast.Node{zero()},
		Else: []ast.Node{normalize(right)},
	}
}

// parseLogicalOr rewrites l || r (and its spelling l !! r) so that r is
// evaluated only when l is zero.
func (p *Parser) parseLogicalOr(left ast.Node) ast.Node {
	precedence := p.curPrecedence()
	p.nextToken()
	right := p.parseExpression(precedence)
	if right == nil {
		return nil
	}
	return &ast.Conditional{
		Cond: &ast.Binary{Left: left, Right: zero(), Op: ast.OpNeq},
		Then: []ast.Node{one()},
		Else: []ast.Node{normalize(right)},
	}
}

// normalize maps zero to 0 and everything else to 1.
func normalize(n ast.Node) ast.Node {
	return &ast.Conditional{
		Cond: &ast.Binary{Left: n, Right: zero(), Op: ast.OpEq},
		Then: []ast.Node{zero()},
		Else: []ast.Node{one()},
	}
}

func zero() ast.Node { return &ast.Const{Value: value.Number(0)} }
func one() ast.Node  { return &ast.Const{Value: value.Number(1)} }

// parseCallExpression resolves builtin names here; every other name is a
// user function checked later against the program.
func (p *Parser) parseCallExpression(function ast.Node) ast.Node {
	callee, ok := function.(*ast.Variable)
	if !ok || callee.IsIndexed() {
		p.errorf(p.curToken, "cannot call %s", function)
		return nil
	}

	args := p.parseExpressionList(lexer.TOKEN_RPAREN)
	if p.failed() {
		return nil
	}

	if tag, ok := ast.LookupBuiltin(callee.Name); ok {
		return &ast.BuiltinCall{Tag: tag, Args: args}
	}
	return &ast.UserCall{Name: callee.Name, Args: args}
}

func (p *Parser) parseIndexExpression(left ast.Node) ast.Node {
	v, ok := left.(*ast.Variable)
	if !ok {
		p.errorf(p.curToken, "cannot index %s", left)
		return nil
	}

	p.nextToken()
	index := p.parseExpression(LOWEST)
	if index == nil {
		return nil
	}

	if !p.expectPeek(lexer.TOKEN_RBRACKET) {
		return nil
	}

	indexes := make([]ast.Node, 0, len(v.Indexes)+1)
	indexes = append(indexes, v.Indexes...)
	indexes = append(indexes, index)
	return &ast.Variable{Name: v.Name, Indexes: indexes}
}

func (p *Parser) parseExpressionList(end lexer.TokenType) []ast.Node {
	list := []ast.Node{}

	if p.peekTokenIs(end) {
		p.nextToken()
		return list
	}

	p.nextToken()
	list = append(list, p.parseExpression(LOWEST))

	for !p.failed() && p.peekTokenIs(lexer.TOKEN_COMMA) {
		p.nextToken()
		p.nextToken()
		list = append(list, p.parseExpression(LOWEST))
	}

	if p.failed() || !p.expectPeek(end) {
		return nil
	}

	return list
}

func (p *Parser) registerPrefix(tokenType lexer.TokenType, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

func (p *Parser) registerInfix(tokenType lexer.TokenType, fn infixParseFn) {
	p.infixParseFns[tokenType] = fn
}

func (p *Parser) curTokenIs(t lexer.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) curTokenIn(types []lexer.TokenType) bool {
	for _, t := range types {
		if p.curToken.Type == t {
			return true
		}
	}
	return false
}

func (p *Parser) peekTokenIs(t lexer.TokenType) bool {
	return p.peekToken.Type == t
}

func (p *Parser) expectPeek(t lexer.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()

	for p.curToken.Type == lexer.TOKEN_COMMENT {
		p.curToken = p.peekToken
		p.peekToken = p.l.NextToken()
	}

	for p.peekToken.Type == lexer.TOKEN_COMMENT {
		p.peekToken = p.l.NextToken()
	}
}

func (p *Parser) peekPrecedence() int {
	if p, ok := precedences[p.peekToken.Type]; ok {
		return p
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if p, ok := precedences[p.curToken.Type]; ok {
		return p
	}
	return LOWEST
}

func (p *Parser) errorf(tok lexer.Token, format string, args ...any) {
	p.errors = append(p.errors, &ParserError{
		Message: fmt.Sprintf(format, args...),
		Line:    tok.Line,
		Column:  tok.Column,
	})
}

func (p *Parser) peekError(t lexer.TokenType) {
	p.errorf(p.peekToken, "expected next token to be %s, got %s instead", t, p.peekToken.Type)
}

func (p *Parser) noPrefixParseFnError(tok lexer.Token) {
	if tok.Type == lexer.TOKEN_ILLEGAL {
		p.errors = append(p.errors, &ParserError{
			Message: fmt.Sprintf("illegal token %q", tok.Literal),
			Line:    tok.Line,
			Column:  tok.Column,
			Lexical: true,
		})
		return
	}
	p.errorf(tok, "no prefix parse function for %s found", tok.Type)
}
