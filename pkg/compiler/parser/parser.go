package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zurustar/necroturtle/pkg/compiler/ast"
	"github.com/zurustar/necroturtle/pkg/compiler/lexer"
	"github.com/zurustar/necroturtle/pkg/compiler/token"
)

// Precedence levels for operators.
const (
	_ int = iota
	LOWEST
	ASSIGN      // = += -=
	CONDITIONAL // ?:
	OR          // ||
	AND         // &&
	EQUALS      // == === != !==
	LESSGREATER // > or <
	SUM         // +
	PRODUCT     // *
	EXPONENT    // **
	PREFIX      // -X or !X
	POSTFIX     // X++
	CALL        // myFunction(X), obj.prop
	INDEX       // array[index]
)

var precedences = map[token.TokenType]int{
	token.ASSIGN:     ASSIGN,
	token.PLUS_EQ:    ASSIGN,
	token.MINUS_EQ:   ASSIGN,
	token.MULT_EQ:    ASSIGN,
	token.DIV_EQ:     ASSIGN,
	token.MOD_EQ:     ASSIGN,
	token.QUESTION:   CONDITIONAL,
	token.OR:         OR,
	token.AND:        AND,
	token.EQ:         EQUALS,
	token.NOT_EQ:     EQUALS,
	token.STRICT_EQ:  EQUALS,
	token.STRICT_NEQ: EQUALS,
	token.LT:         LESSGREATER,
	token.LTE:        LESSGREATER,
	token.GT:         LESSGREATER,
	token.GTE:        LESSGREATER,
	token.PLUS:       SUM,
	token.MINUS:      SUM,
	token.ASTERISK:   PRODUCT,
	token.SLASH:      PRODUCT,
	token.PERCENT:    PRODUCT,
	token.POWER:      EXPONENT,
	token.INCREMENT:  POSTFIX,
	token.DECREMENT:  POSTFIX,
	token.LPAREN:     CALL,
	token.DOT:        CALL,
	token.LBRACKET:   INDEX,
}

// ParserError is a syntax error with its 1-based location.
type ParserError struct {
	Message string
	Line    int
	Column  int
}

func (e *ParserError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Message)
}

// Parser parses ritual source code into an AST.
type Parser struct {
	tokens []token.Token
	pos    int
	errors []error
	source []string // Source code lines for error reporting

	curToken  token.Token
	peekToken token.Token

	prefixParseFns map[token.TokenType]prefixParseFn
	infixParseFns  map[token.TokenType]infixParseFn
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

// New creates a new Parser. The whole input is tokenized up front so that
// arrow functions can be recognised by looking past the parameter list.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{
		source: strings.Split(l.GetSource(), "\n"),
	}

	for {
		tok := l.NextToken()
		if tok.Type == token.COMMENT {
			continue
		}
		if tok.Type == token.ILLEGAL {
			p.addError(tok, fmt.Sprintf("illegal token %q", tok.Literal))
		}
		p.tokens = append(p.tokens, tok)
		if tok.Type == token.EOF {
			break
		}
	}

	// Register prefix parse functions
	p.prefixParseFns = make(map[token.TokenType]prefixParseFn)
	p.registerPrefix(token.IDENT, p.parseIdentifier)
	p.registerPrefix(token.OF, p.parseIdentifier)
	p.registerPrefix(token.NUMBER, p.parseNumberLiteral)
	p.registerPrefix(token.STRING, p.parseStringLiteral)
	p.registerPrefix(token.TRUE, p.parseBoolean)
	p.registerPrefix(token.FALSE, p.parseBoolean)
	p.registerPrefix(token.NULL, p.parseNull)
	p.registerPrefix(token.UNDEFINED, p.parseNull)
	p.registerPrefix(token.BANG, p.parsePrefixExpression)
	p.registerPrefix(token.MINUS, p.parsePrefixExpression)
	p.registerPrefix(token.PLUS, p.parsePrefixExpression)
	p.registerPrefix(token.TYPEOF, p.parsePrefixExpression)
	p.registerPrefix(token.INCREMENT, p.parsePrefixUpdate)
	p.registerPrefix(token.DECREMENT, p.parsePrefixUpdate)
	p.registerPrefix(token.LPAREN, p.parseGroupedExpression)
	p.registerPrefix(token.LBRACKET, p.parseArrayLiteral)
	p.registerPrefix(token.LBRACE, p.parseObjectLiteral)
	p.registerPrefix(token.FUNCTION, p.parseFunctionLiteral)

	// Register infix parse functions
	p.infixParseFns = make(map[token.TokenType]infixParseFn)
	for _, tt := range []token.TokenType{
		token.PLUS, token.MINUS, token.ASTERISK, token.SLASH, token.PERCENT, token.POWER,
		token.EQ, token.NOT_EQ, token.STRICT_EQ, token.STRICT_NEQ,
		token.LT, token.LTE, token.GT, token.GTE, token.AND, token.OR,
	} {
		p.registerInfix(tt, p.parseInfixExpression)
	}
	for _, tt := range []token.TokenType{
		token.ASSIGN, token.PLUS_EQ, token.MINUS_EQ, token.MULT_EQ, token.DIV_EQ, token.MOD_EQ,
	} {
		p.registerInfix(tt, p.parseAssignExpression)
	}
	p.registerInfix(token.QUESTION, p.parseConditionalExpression)
	p.registerInfix(token.INCREMENT, p.parsePostfixUpdate)
	p.registerInfix(token.DECREMENT, p.parsePostfixUpdate)
	p.registerInfix(token.LPAREN, p.parseCallExpression)
	p.registerInfix(token.DOT, p.parseMemberExpression)
	p.registerInfix(token.LBRACKET, p.parseIndexExpression)

	p.curToken = p.tokenAt(0)
	p.peekToken = p.tokenAt(1)

	return p
}

// Errors returns the parser errors.
func (p *Parser) Errors() []error {
	return p.errors
}

// Source returns the source lines the parser was built from.
func (p *Parser) Source() []string {
	return p.source
}

// ParseProgram parses the entire program.
func (p *Parser) ParseProgram() (*ast.Program, []error) {
	program := &ast.Program{}
	program.Statements = []ast.Statement{}

	for p.curToken.Type != token.EOF {
		stmt := p.parseStatement()
		if stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
		p.nextToken()
		if len(p.errors) > 50 {
			break
		}
	}

	return program, p.errors
}

// ParseExpression parses src as a single expression. Anything after the
// expression other than a trailing semicolon is an error.
func ParseExpression(src string) (ast.Expression, error) {
	p := New(lexer.New(src))
	if len(p.errors) > 0 {
		return nil, p.errors[0]
	}
	if p.curTokenIs(token.EOF) {
		return nil, &ParserError{Message: "empty expression", Line: 1, Column: 1}
	}
	expr := p.parseExpression(LOWEST)
	if len(p.errors) > 0 {
		return nil, p.errors[0]
	}
	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
	}
	if !p.peekTokenIs(token.EOF) {
		return nil, &ParserError{
			Message: fmt.Sprintf("unexpected %q after expression", p.peekToken.Literal),
			Line:    p.peekToken.Line,
			Column:  p.peekToken.Column,
		}
	}
	return expr, nil
}

// Statements

func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case token.SEMICOLON:
		return &ast.EmptyStatement{Token: p.curToken}
	case token.LET, token.CONST, token.VAR:
		stmt := p.parseVarStatement()
		if stmt == nil {
			return nil
		}
		if p.peekTokenIs(token.SEMICOLON) {
			p.nextToken()
		}
		return stmt
	case token.FUNCTION:
		if p.peekTokenIs(token.IDENT) {
			return p.parseFunctionDeclaration()
		}
		return p.parseExpressionStatement()
	case token.RETURN:
		return p.parseReturnStatement()
	case token.IF:
		return p.parseIfStatement()
	case token.FOR:
		return p.parseForStatement()
	case token.WHILE:
		return p.parseWhileStatement()
	case token.DO:
		return p.parseDoWhileStatement()
	case token.BREAK:
		stmt := &ast.BreakStatement{Token: p.curToken}
		if p.peekTokenIs(token.SEMICOLON) {
			p.nextToken()
		}
		return stmt
	case token.CONTINUE:
		stmt := &ast.ContinueStatement{Token: p.curToken}
		if p.peekTokenIs(token.SEMICOLON) {
			p.nextToken()
		}
		return stmt
	case token.SWITCH:
		return p.parseSwitchStatement()
	case token.LBRACE:
		if block := p.parseBlockStatement(); block != nil {
			return block
		}
		return nil
	default:
		return p.parseExpressionStatement()
	}
}

func (p *Parser) parseExpressionStatement() ast.Statement {
	stmt := &ast.ExpressionStatement{Token: p.curToken}
	stmt.Expression = p.parseExpression(LOWEST)
	if stmt.Expression == nil {
		return nil
	}
	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
	}
	return stmt
}

// parseVarStatement parses `let a = 1, b` and leaves curToken on the last
// token of the declaration list (the semicolon is left to the caller).
func (p *Parser) parseVarStatement() *ast.VarStatement {
	stmt := &ast.VarStatement{Token: p.curToken, Kind: p.curToken.Literal}

	for {
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		decl := &ast.Declarator{Name: &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}}
		if p.peekTokenIs(token.ASSIGN) {
			p.nextToken()
			p.nextToken()
			decl.Value = p.parseExpression(LOWEST)
			if decl.Value == nil {
				return nil
			}
		} else if stmt.Kind == "const" {
			p.addError(p.curToken, fmt.Sprintf("missing initializer in const declaration of %s", decl.Name.Value))
			return nil
		}
		stmt.Declarations = append(stmt.Declarations, decl)

		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}

	return stmt
}

func (p *Parser) parseFunctionDeclaration() ast.Statement {
	stmt := &ast.FunctionDeclaration{Token: p.curToken}
	p.nextToken()
	stmt.Name = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}

	fn := &ast.FunctionLiteral{Token: stmt.Token, Name: stmt.Name.Value}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	fn.Parameters = p.parseFunctionParameters()
	if fn.Parameters == nil {
		return nil
	}
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	fn.Body = p.parseBlockStatement()
	if fn.Body == nil {
		return nil
	}
	stmt.Function = fn
	return stmt
}

func (p *Parser) parseReturnStatement() ast.Statement {
	stmt := &ast.ReturnStatement{Token: p.curToken}

	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
		return stmt
	}
	if p.peekTokenIs(token.RBRACE) || p.peekTokenIs(token.EOF) {
		return stmt
	}

	p.nextToken()
	stmt.ReturnValue = p.parseExpression(LOWEST)
	if stmt.ReturnValue == nil {
		return nil
	}
	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
	}
	return stmt
}

func (p *Parser) parseIfStatement() ast.Statement {
	stmt := &ast.IfStatement{Token: p.curToken}

	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)
	if stmt.Condition == nil || !p.expectPeek(token.RPAREN) {
		return nil
	}

	p.nextToken()
	stmt.Consequence = p.parseStatement()
	if stmt.Consequence == nil {
		return nil
	}

	if p.peekTokenIs(token.ELSE) {
		p.nextToken()
		p.nextToken()
		stmt.Alternative = p.parseStatement()
		if stmt.Alternative == nil {
			return nil
		}
	}

	return stmt
}

func (p *Parser) parseForStatement() ast.Statement {
	forTok := p.curToken

	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.nextToken()

	stmt := &ast.ForStatement{Token: forTok}

	switch p.curToken.Type {
	case token.LET, token.CONST, token.VAR:
		// for (const x of xs)
		if p.peekTokenIs(token.IDENT) && p.tokenAt(p.pos+2).Type == token.OF {
			return p.parseForOfRest(forTok)
		}
		init := p.parseVarStatement()
		if init == nil {
			return nil
		}
		stmt.Init = init
		if !p.expectPeek(token.SEMICOLON) {
			return nil
		}
	case token.SEMICOLON:
		// no initializer
	default:
		init := &ast.ExpressionStatement{Token: p.curToken}
		init.Expression = p.parseExpression(LOWEST)
		if init.Expression == nil {
			return nil
		}
		stmt.Init = init
		if !p.expectPeek(token.SEMICOLON) {
			return nil
		}
	}

	if !p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
		stmt.Condition = p.parseExpression(LOWEST)
		if stmt.Condition == nil {
			return nil
		}
	}
	if !p.expectPeek(token.SEMICOLON) {
		return nil
	}

	if !p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		stmt.Update = p.parseExpression(LOWEST)
		if stmt.Update == nil {
			return nil
		}
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}

	p.nextToken()
	stmt.Body = p.parseStatement()
	if stmt.Body == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseForOfRest(forTok token.Token) ast.Statement {
	stmt := &ast.ForOfStatement{Token: forTok, Kind: p.curToken.Literal}
	p.nextToken()
	stmt.Name = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
	p.nextToken() // of
	p.nextToken()
	stmt.Iterable = p.parseExpression(LOWEST)
	if stmt.Iterable == nil || !p.expectPeek(token.RPAREN) {
		return nil
	}
	p.nextToken()
	stmt.Body = p.parseStatement()
	if stmt.Body == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseWhileStatement() ast.Statement {
	stmt := &ast.WhileStatement{Token: p.curToken}

	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)
	if stmt.Condition == nil || !p.expectPeek(token.RPAREN) {
		return nil
	}

	p.nextToken()
	stmt.Body = p.parseStatement()
	if stmt.Body == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseDoWhileStatement() ast.Statement {
	stmt := &ast.DoWhileStatement{Token: p.curToken}

	p.nextToken()
	stmt.Body = p.parseStatement()
	if stmt.Body == nil {
		return nil
	}
	if !p.expectPeek(token.WHILE) || !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)
	if stmt.Condition == nil || !p.expectPeek(token.RPAREN) {
		return nil
	}
	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
	}
	return stmt
}

func (p *Parser) parseSwitchStatement() ast.Statement {
	stmt := &ast.SwitchStatement{Token: p.curToken}

	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.nextToken()
	stmt.Discriminant = p.parseExpression(LOWEST)
	if stmt.Discriminant == nil || !p.expectPeek(token.RPAREN) || !p.expectPeek(token.LBRACE) {
		return nil
	}
	p.nextToken()

	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		clause := &ast.CaseClause{Token: p.curToken}
		switch p.curToken.Type {
		case token.CASE:
			p.nextToken()
			clause.Test = p.parseExpression(LOWEST)
			if clause.Test == nil {
				return nil
			}
		case token.DEFAULT:
		default:
			p.addError(p.curToken, fmt.Sprintf("expected case or default, got %q", p.curToken.Literal))
			return nil
		}
		if !p.expectPeek(token.COLON) {
			return nil
		}
		p.nextToken()

		for !p.curTokenIs(token.CASE) && !p.curTokenIs(token.DEFAULT) &&
			!p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
			if s := p.parseStatement(); s != nil {
				clause.Body = append(clause.Body, s)
			} else if len(p.errors) > 0 {
				return nil
			}
			p.nextToken()
		}
		stmt.Cases = append(stmt.Cases, clause)
	}

	if !p.curTokenIs(token.RBRACE) {
		p.addError(p.curToken, "unterminated switch statement")
		return nil
	}
	return stmt
}

func (p *Parser) parseBlockStatement() *ast.BlockStatement {
	block := &ast.BlockStatement{Token: p.curToken}
	block.Statements = []ast.Statement{}

	p.nextToken()

	for !p.curTokenIs(token.RBRACE) {
		if p.curTokenIs(token.EOF) {
			p.addError(block.Token, "unterminated block: missing }")
			return nil
		}
		if stmt := p.parseStatement(); stmt != nil {
			block.Statements = append(block.Statements, stmt)
		} else if len(p.errors) > 0 {
			return nil
		}
		p.nextToken()
	}

	return block
}

// Expressions

func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError(p.curToken)
		return nil
	}
	leftExp := prefix()
	if leftExp == nil {
		return nil
	}

	for !p.peekTokenIs(token.SEMICOLON) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}
		p.nextToken()
		leftExp = infix(leftExp)
		if leftExp == nil {
			return nil
		}
	}

	return leftExp
}

func (p *Parser) parseIdentifier() ast.Expression {
	ident := &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
	if p.peekTokenIs(token.ARROW) {
		fn := &ast.FunctionLiteral{Token: p.curToken, Arrow: true, Parameters: []*ast.Identifier{ident}}
		p.nextToken() // =>
		return p.parseArrowBody(fn)
	}
	return ident
}

func (p *Parser) parseNumberLiteral() ast.Expression {
	lit := &ast.NumberLiteral{Token: p.curToken}
	v, err := parseNumber(p.curToken.Literal)
	if err != nil {
		p.addError(p.curToken, fmt.Sprintf("could not parse %q as number", p.curToken.Literal))
		return nil
	}
	lit.Value = v
	return lit
}

// parseNumber parses decimal, exponent and hexadecimal literals.
func parseNumber(literal string) (float64, error) {
	if strings.HasPrefix(literal, "0x") || strings.HasPrefix(literal, "0X") {
		n, err := strconv.ParseUint(literal[2:], 16, 64)
		if err != nil {
			return 0, err
		}
		return float64(n), nil
	}
	return strconv.ParseFloat(literal, 64)
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseBoolean() ast.Expression {
	return &ast.BooleanLiteral{Token: p.curToken, Value: p.curTokenIs(token.TRUE)}
}

func (p *Parser) parseNull() ast.Expression {
	return &ast.NullLiteral{Token: p.curToken}
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	expression := &ast.PrefixExpression{
		Token:    p.curToken,
		Operator: p.curToken.Literal,
	}
	p.nextToken()
	expression.Right = p.parseExpression(PREFIX)
	if expression.Right == nil {
		return nil
	}
	return expression
}

func (p *Parser) parsePrefixUpdate() ast.Expression {
	expression := &ast.UpdateExpression{Token: p.curToken, Operator: p.curToken.Literal, Prefix: true}
	p.nextToken()
	expression.Target = p.parseExpression(PREFIX)
	if expression.Target == nil {
		return nil
	}
	if !isAssignable(expression.Target) {
		p.addError(expression.Token, "invalid update target")
		return nil
	}
	return expression
}

func (p *Parser) parsePostfixUpdate(left ast.Expression) ast.Expression {
	if !isAssignable(left) {
		p.addError(p.curToken, "invalid update target")
		return nil
	}
	return &ast.UpdateExpression{Token: p.curToken, Operator: p.curToken.Literal, Target: left}
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expression := &ast.InfixExpression{
		Token:    p.curToken,
		Operator: p.curToken.Literal,
		Left:     left,
	}

	precedence := p.curPrecedence()
	if p.curTokenIs(token.POWER) {
		precedence-- // right-associative
	}
	p.nextToken()
	expression.Right = p.parseExpression(precedence)
	if expression.Right == nil {
		return nil
	}
	return expression
}

func (p *Parser) parseAssignExpression(left ast.Expression) ast.Expression {
	if !isAssignable(left) {
		p.addError(p.curToken, fmt.Sprintf("invalid assignment target %s", left.String()))
		return nil
	}
	expression := &ast.AssignExpression{Token: p.curToken, Operator: p.curToken.Literal, Target: left}
	p.nextToken()
	expression.Value = p.parseExpression(ASSIGN - 1) // right-associative
	if expression.Value == nil {
		return nil
	}
	return expression
}

func (p *Parser) parseConditionalExpression(test ast.Expression) ast.Expression {
	expression := &ast.ConditionalExpression{Token: p.curToken, Test: test}
	p.nextToken()
	expression.Consequence = p.parseExpression(LOWEST)
	if expression.Consequence == nil || !p.expectPeek(token.COLON) {
		return nil
	}
	p.nextToken()
	expression.Alternative = p.parseExpression(CONDITIONAL - 1)
	if expression.Alternative == nil {
		return nil
	}
	return expression
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	if p.isArrowAhead() {
		fn := &ast.FunctionLiteral{Token: p.curToken, Arrow: true}
		fn.Parameters = p.parseFunctionParameters()
		if fn.Parameters == nil || !p.expectPeek(token.ARROW) {
			return nil
		}
		return p.parseArrowBody(fn)
	}

	p.nextToken()
	exp := p.parseExpression(LOWEST)
	if exp == nil || !p.expectPeek(token.RPAREN) {
		return nil
	}
	return exp
}

// isArrowAhead reports whether the parenthesised group starting at the
// current token is followed by =>.
func (p *Parser) isArrowAhead() bool {
	depth := 0
	for i := p.pos; i < len(p.tokens); i++ {
		switch p.tokens[i].Type {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
			if depth == 0 {
				return p.tokenAt(i+1).Type == token.ARROW
			}
		case token.EOF:
			return false
		}
	}
	return false
}

// parseArrowBody parses what follows => (curToken is the arrow).
func (p *Parser) parseArrowBody(fn *ast.FunctionLiteral) ast.Expression {
	p.nextToken()
	if p.curTokenIs(token.LBRACE) {
		fn.Body = p.parseBlockStatement()
		if fn.Body == nil {
			return nil
		}
		return fn
	}
	fn.ExprBody = p.parseExpression(ASSIGN - 1)
	if fn.ExprBody == nil {
		return nil
	}
	return fn
}

func (p *Parser) parseFunctionLiteral() ast.Expression {
	fn := &ast.FunctionLiteral{Token: p.curToken}
	if p.peekTokenIs(token.IDENT) {
		p.nextToken()
		fn.Name = p.curToken.Literal
	}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	fn.Parameters = p.parseFunctionParameters()
	if fn.Parameters == nil || !p.expectPeek(token.LBRACE) {
		return nil
	}
	fn.Body = p.parseBlockStatement()
	if fn.Body == nil {
		return nil
	}
	return fn
}

// parseFunctionParameters parses (a, b, c) starting on the opening paren
// and leaves curToken on the closing paren. It never returns nil on success.
func (p *Parser) parseFunctionParameters() []*ast.Identifier {
	params := []*ast.Identifier{}

	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return params
	}

	for {
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		params = append(params, &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal})
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}

	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return params
}

func (p *Parser) parseArrayLiteral() ast.Expression {
	array := &ast.ArrayLiteral{Token: p.curToken}
	array.Elements = p.parseExpressionList(token.RBRACKET)
	if array.Elements == nil {
		return nil
	}
	return array
}

func (p *Parser) parseObjectLiteral() ast.Expression {
	obj := &ast.ObjectLiteral{Token: p.curToken}

	for !p.peekTokenIs(token.RBRACE) {
		p.nextToken()
		keyTok := p.curToken
		var key string
		switch {
		case keyTok.Type == token.STRING || keyTok.Type == token.NUMBER:
			key = keyTok.Literal
		case isIdentifierLike(keyTok):
			key = keyTok.Literal
		default:
			p.addError(keyTok, fmt.Sprintf("invalid object key %q", keyTok.Literal))
			return nil
		}

		var val ast.Expression
		if p.peekTokenIs(token.COLON) {
			p.nextToken()
			p.nextToken()
			val = p.parseExpression(LOWEST)
			if val == nil {
				return nil
			}
		} else if keyTok.Type == token.IDENT {
			val = &ast.Identifier{Token: keyTok, Value: key} // shorthand {x}
		} else {
			p.addError(p.peekToken, "expected : in object literal")
			return nil
		}
		obj.Keys = append(obj.Keys, key)
		obj.Values = append(obj.Values, val)

		if !p.peekTokenIs(token.RBRACE) && !p.expectPeek(token.COMMA) {
			return nil
		}
	}

	p.nextToken()
	return obj
}

func (p *Parser) parseCallExpression(function ast.Expression) ast.Expression {
	exp := &ast.CallExpression{Token: p.curToken, Function: function}
	exp.Arguments = p.parseExpressionList(token.RPAREN)
	if exp.Arguments == nil {
		return nil
	}
	return exp
}

func (p *Parser) parseMemberExpression(object ast.Expression) ast.Expression {
	exp := &ast.MemberExpression{Token: p.curToken, Object: object}
	p.nextToken()
	if !isIdentifierLike(p.curToken) {
		p.addError(p.curToken, fmt.Sprintf("expected property name after '.', got %q", p.curToken.Literal))
		return nil
	}
	exp.Property = p.curToken.Literal
	return exp
}

func (p *Parser) parseIndexExpression(left ast.Expression) ast.Expression {
	exp := &ast.IndexExpression{Token: p.curToken, Left: left}
	p.nextToken()
	exp.Index = p.parseExpression(LOWEST)
	if exp.Index == nil || !p.expectPeek(token.RBRACKET) {
		return nil
	}
	return exp
}

// parseExpressionList parses a comma separated list up to end, allowing a
// trailing comma. It returns a non-nil slice on success.
func (p *Parser) parseExpressionList(end token.TokenType) []ast.Expression {
	list := []ast.Expression{}

	if p.peekTokenIs(end) {
		p.nextToken()
		return list
	}

	for {
		p.nextToken()
		exp := p.parseExpression(LOWEST)
		if exp == nil {
			return nil
		}
		list = append(list, exp)
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
		if p.peekTokenIs(end) {
			break
		}
	}

	if !p.expectPeek(end) {
		return nil
	}
	return list
}

// Helper functions

func isAssignable(e ast.Expression) bool {
	switch e.(type) {
	case *ast.Identifier, *ast.MemberExpression, *ast.IndexExpression:
		return true
	}
	return false
}

// isIdentifierLike accepts identifiers and keywords, which are valid
// property names.
func isIdentifierLike(tok token.Token) bool {
	if tok.Type == token.IDENT {
		return true
	}
	return token.LookupIdent(tok.Literal) == tok.Type && tok.Type != token.ILLEGAL && tok.Literal != ""
}

func (p *Parser) tokenAt(i int) token.Token {
	if i >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[i]
}

func (p *Parser) curTokenIs(t token.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t token.TokenType) bool {
	return p.peekToken.Type == t
}

func (p *Parser) expectPeek(t token.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) nextToken() {
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	p.curToken = p.tokenAt(p.pos)
	p.peekToken = p.tokenAt(p.pos + 1)
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

func (p *Parser) peekError(t token.TokenType) {
	got := p.peekToken.Literal
	if p.peekToken.Type == token.EOF {
		got = "end of input"
	}
	p.addError(p.peekToken, fmt.Sprintf("expected %s, got %q", t, got))
}

func (p *Parser) noPrefixParseFnError(tok token.Token) {
	if tok.Type == token.EOF {
		p.addError(tok, "unexpected end of input")
		return
	}
	p.addError(tok, fmt.Sprintf("unexpected token %q", tok.Literal))
}

func (p *Parser) addError(tok token.Token, msg string) {
	p.errors = append(p.errors, &ParserError{Message: msg, Line: tok.Line, Column: tok.Column})
}

func (p *Parser) registerPrefix(tokenType token.TokenType, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

func (p *Parser) registerInfix(tokenType token.TokenType, fn infixParseFn) {
	p.infixParseFns[tokenType] = fn
}
