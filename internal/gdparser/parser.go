// Package gdparser implements a recursive-descent parser over
// internal/gdlexer's token stream, producing the internal/gdast statement
// tree the scope compiler consumes: current/peek token buffering, one
// parseX method per grammar production.
package gdparser

import (
	"fmt"
	"strconv"

	"github.com/orizon-lang/spwn/internal/gdast"
	"github.com/orizon-lang/spwn/internal/gdlexer"
	"github.com/orizon-lang/spwn/internal/idpool"
	"github.com/orizon-lang/spwn/internal/position"
)

// SyntaxError reports a parse failure at a source position.
type SyntaxError struct {
	Pos     position.Position
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Message)
}

type parser struct {
	lex *gdlexer.Lexer

	cur  gdlexer.Token
	peek gdlexer.Token

	closedGroups []uint16
	closedColors []uint16
	closedItems  []uint16
	closedBlocks []uint16
	seen         map[idpool.ID]bool
}

// Parse lexes and parses source, returning the statement list and the
// ParseNotes the ID Pool is seeded from.
func Parse(source, filename string) ([]*gdast.Statement, ParseNotes, error) {
	p := &parser{lex: gdlexer.New(source, filename), seen: make(map[idpool.ID]bool)}
	p.advance()
	p.advance()

	stmts, err := p.parseStatements(gdlexer.TokenEOF)
	if err != nil {
		return nil, ParseNotes{}, err
	}

	return stmts, ParseNotes{
		ClosedGroups: p.closedGroups,
		ClosedColors: p.closedColors,
		ClosedItems:  p.closedItems,
		ClosedBlocks: p.closedBlocks,
	}, nil
}

func (p *parser) advance() {
	p.cur = p.peek
	p.peek = p.lex.NextToken()
}

func (p *parser) curIs(tt gdlexer.TokenType) bool  { return p.cur.Type == tt }
func (p *parser) peekIs(tt gdlexer.TokenType) bool { return p.peek.Type == tt }

func (p *parser) expect(tt gdlexer.TokenType) (gdlexer.Token, error) {
	if !p.curIs(tt) {
		return gdlexer.Token{}, &SyntaxError{
			Pos:     p.cur.Span.Start,
			Message: fmt.Sprintf("expected %s, found %s", tt, p.cur.Type),
		}
	}
	tok := p.cur
	p.advance()
	return tok, nil
}

// parseStatements reads statements until it reaches `until` (TokenRBrace
// for a block, TokenEOF for the whole program).
func (p *parser) parseStatements(until gdlexer.TokenType) ([]*gdast.Statement, error) {
	var stmts []*gdast.Statement
	for !p.curIs(until) && !p.curIs(gdlexer.TokenEOF) {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

func (p *parser) parseBlock() ([]*gdast.Statement, error) {
	if _, err := p.expect(gdlexer.TokenLBrace); err != nil {
		return nil, err
	}
	stmts, err := p.parseStatements(gdlexer.TokenRBrace)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(gdlexer.TokenRBrace); err != nil {
		return nil, err
	}
	return stmts, nil
}

func (p *parser) parseStatement() (*gdast.Statement, error) {
	start := p.cur.Span.Start

	arrow := false
	if p.curIs(gdlexer.TokenArrow) {
		arrow = true
		p.advance()
	}

	var body gdast.StatementBody
	var err error

	switch p.cur.Type {
	case gdlexer.TokenExtract:
		p.advance()
		expr, e := p.parseExpression()
		if e != nil {
			return nil, e
		}
		body, err = gdast.ExtractStmt{Expr: expr}, nil
	case gdlexer.TokenType_:
		p.advance()
		name, e := p.parseTypeName()
		if e != nil {
			return nil, e
		}
		body, err = gdast.TypeDefStmt{Name: name}, nil
	case gdlexer.TokenIf:
		body, err = p.parseIf()
	case gdlexer.TokenImpl:
		body, err = p.parseImpl()
	case gdlexer.TokenFor:
		body, err = p.parseFor()
	case gdlexer.TokenReturn:
		p.advance()
		body, err = p.parseReturn()
	case gdlexer.TokenError_:
		p.advance()
		expr, e := p.parseExpression()
		if e != nil {
			return nil, e
		}
		body, err = gdast.ErrorStmt{Message: expr}, nil
	default:
		body, err = p.parseExprOrCallStatement()
	}
	if err != nil {
		return nil, err
	}

	end := p.cur.Span.Start
	return &gdast.Statement{Span: position.Span{Start: start, End: end}, Arrow: arrow, Body: body}, nil
}

// parseTypeName accepts either `type @point` or `type point`, returning
// the bare name without a leading `@`.
func (p *parser) parseTypeName() (string, error) {
	tok, err := p.expect(gdlexer.TokenIdent)
	if err != nil {
		return "", err
	}
	return stripAt(tok.Literal), nil
}

func stripAt(s string) string {
	if len(s) > 0 && s[0] == '@' {
		return s[1:]
	}
	return s
}

func (p *parser) parseIf() (gdast.StatementBody, error) {
	p.advance() // consume `if`
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	ifBody, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	var elseBody []*gdast.Statement
	if p.curIs(gdlexer.TokenElse) {
		p.advance()
		if p.curIs(gdlexer.TokenIf) {
			nested, err := p.parseStatement()
			if err != nil {
				return nil, err
			}
			elseBody = []*gdast.Statement{nested}
		} else {
			elseBody, err = p.parseBlock()
			if err != nil {
				return nil, err
			}
		}
	}

	return gdast.IfStmt{Condition: cond, IfBody: ifBody, ElseBody: elseBody}, nil
}

func (p *parser) parseImpl() (gdast.StatementBody, error) {
	p.advance() // consume `impl`
	symbol, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(gdlexer.TokenLBrace); err != nil {
		return nil, err
	}
	entries, err := p.parseDictEntries(gdlexer.TokenRBrace)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(gdlexer.TokenRBrace); err != nil {
		return nil, err
	}
	return gdast.ImplStmt{Symbol: symbol, Members: entries}, nil
}

func (p *parser) parseFor() (gdast.StatementBody, error) {
	p.advance() // consume `for`
	sym, err := p.expect(gdlexer.TokenIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(gdlexer.TokenIn); err != nil {
		return nil, err
	}
	arr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return gdast.ForStmt{Symbol: sym.Literal, Array: arr, Body: body}, nil
}

func (p *parser) parseReturn() (gdast.StatementBody, error) {
	if p.startsExpression() {
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return gdast.ReturnStmt{Expr: expr}, nil
	}
	return gdast.ReturnStmt{}, nil
}

// startsExpression reports whether the current token could begin an
// expression, used to tell a bare `return` from `return <expr>`.
func (p *parser) startsExpression() bool {
	switch p.cur.Type {
	case gdlexer.TokenRBrace, gdlexer.TokenEOF:
		return false
	default:
		return true
	}
}

// parseExprOrCallStatement parses a bare expression statement, treating a
// trailing `!` as a Call statement and otherwise an
// assignment-or-side-effect expression statement.
func (p *parser) parseExprOrCallStatement() (gdast.StatementBody, error) {
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if p.curIs(gdlexer.TokenBang) {
		p.advance()
		return gdast.CallStmt{Function: expr}, nil
	}
	return gdast.ExprStmt{Expr: expr}, nil
}

var binaryOps = map[gdlexer.TokenType]gdast.Operator{
	gdlexer.TokenAssign: gdast.OpAssign,
	gdlexer.TokenPlus:   gdast.OpAdd,
	gdlexer.TokenMinus:  gdast.OpSub,
	gdlexer.TokenStar:   gdast.OpMul,
	gdlexer.TokenSlash:  gdast.OpDiv,
	gdlexer.TokenPercent: gdast.OpMod,
	gdlexer.TokenEq:     gdast.OpEq,
	gdlexer.TokenNeq:    gdast.OpNeq,
	gdlexer.TokenLt:     gdast.OpLt,
	gdlexer.TokenGt:     gdast.OpGt,
	gdlexer.TokenLe:     gdast.OpLe,
	gdlexer.TokenGe:     gdast.OpGe,
	gdlexer.TokenAnd:    gdast.OpAnd,
	gdlexer.TokenOr:     gdast.OpOr,
	gdlexer.TokenDot:    gdast.OpMember,
}

// parseExpression parses the flat values/operators expression shape: a
// value, then zero or more (operator, value) pairs.
func (p *parser) parseExpression() (*gdast.Expression, error) {
	start := p.cur.Span.Start

	first, err := p.parseValue()
	if err != nil {
		return nil, err
	}

	expr := &gdast.Expression{Values: []*gdast.Value{first}}

	for {
		op, ok := binaryOps[p.cur.Type]
		if !ok {
			break
		}
		p.advance()
		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		expr.Operators = append(expr.Operators, op)
		expr.Values = append(expr.Values, val)
	}

	expr.Span = position.Span{Start: start, End: p.cur.Span.Start}
	return expr, nil
}

func (p *parser) parseValue() (*gdast.Value, error) {
	start := p.cur.Span.Start

	unary := gdast.UnaryNone
	switch {
	case p.curIs(gdlexer.TokenLet):
		unary = gdast.UnaryLet
		p.advance()
	case p.curIs(gdlexer.TokenBang):
		unary = gdast.UnaryNot
		p.advance()
	case p.curIs(gdlexer.TokenMinus):
		unary = gdast.UnaryNegate
		p.advance()
	}

	body, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	return &gdast.Value{Operator: unary, Body: body, Span: position.Span{Start: start, End: p.cur.Span.Start}}, nil
}

func (p *parser) parsePrimary() (gdast.ValueBody, error) {
	switch p.cur.Type {
	case gdlexer.TokenNumber:
		n := p.cur.Literal
		p.advance()
		f, _ := strconv.ParseFloat(n, 64)
		return gdast.NumberLit{Value: f}, nil
	case gdlexer.TokenString:
		s := p.cur.Literal
		p.advance()
		return gdast.StrLit{Value: s}, nil
	case gdlexer.TokenTrue:
		p.advance()
		return gdast.BoolLit{Value: true}, nil
	case gdlexer.TokenFalse:
		p.advance()
		return gdast.BoolLit{Value: false}, nil
	case gdlexer.TokenNull:
		p.advance()
		return gdast.NullLit{}, nil
	case gdlexer.TokenID:
		tok := p.cur
		p.advance()
		p.rememberClosedID(tok.IDClass, tok.IDNumeric)
		return gdast.IDLit{Class: tok.IDClass, Numeric: tok.IDNumeric}, nil
	case gdlexer.TokenImport:
		p.advance()
		path, err := p.expect(gdlexer.TokenString)
		if err != nil {
			return nil, err
		}
		return gdast.ImportLit{Path: path.Literal}, nil
	case gdlexer.TokenLBracket:
		return p.parseArrayLit()
	case gdlexer.TokenLBrace:
		return p.parseDictLit()
	case gdlexer.TokenLParen:
		return p.parseParenOrFunctionLiteral()
	case gdlexer.TokenIdent:
		name := p.cur.Literal
		p.advance()
		if len(name) > 0 && name[0] == '@' {
			return gdast.TypeIndicatorRef{Name: name[1:]}, nil
		}
		return gdast.SymbolRef{Name: name}, nil
	default:
		return nil, &SyntaxError{Pos: p.cur.Span.Start, Message: fmt.Sprintf("unexpected token %s", p.cur.Type)}
	}
}

func (p *parser) rememberClosedID(class idpool.Class, numeric uint16) {
	id := idpool.ID{Class: class, Numeric: numeric}
	if p.seen[id] {
		return
	}
	p.seen[id] = true
	switch class {
	case idpool.ClassGroup:
		p.closedGroups = append(p.closedGroups, numeric)
	case idpool.ClassColor:
		p.closedColors = append(p.closedColors, numeric)
	case idpool.ClassItem:
		p.closedItems = append(p.closedItems, numeric)
	case idpool.ClassBlock:
		p.closedBlocks = append(p.closedBlocks, numeric)
	}
}

func (p *parser) parseArrayLit() (gdast.ValueBody, error) {
	p.advance() // consume `[`
	var elems []*gdast.Expression
	for !p.curIs(gdlexer.TokenRBracket) {
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		elems = append(elems, expr)
		if p.curIs(gdlexer.TokenComma) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(gdlexer.TokenRBracket); err != nil {
		return nil, err
	}
	return gdast.ArrayLit{Elements: elems}, nil
}

// parseDictLit handles a `{ name: value, ... }` literal used as a value
// (as opposed to a block of statements).
func (p *parser) parseDictLit() (gdast.ValueBody, error) {
	p.advance() // consume `{`
	entries, err := p.parseDictEntries(gdlexer.TokenRBrace)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(gdlexer.TokenRBrace); err != nil {
		return nil, err
	}
	return gdast.DictLit{Entries: entries}, nil
}

func (p *parser) parseDictEntries(until gdlexer.TokenType) ([]gdast.DictEntry, error) {
	var entries []gdast.DictEntry
	for !p.curIs(until) {
		name, err := p.expect(gdlexer.TokenIdent)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(gdlexer.TokenColon); err != nil {
			return nil, err
		}
		val, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		entries = append(entries, gdast.DictEntry{Name: name.Literal, Value: val})
		if p.curIs(gdlexer.TokenComma) {
			p.advance()
			continue
		}
		break
	}
	return entries, nil
}

// parseParenOrFunctionLiteral parses `() { ... }`, a function literal. Only
// the empty parameter list form is accepted; functions take no arguments in
// this language. Parenthesized sub-expressions are not supported: a `(` not
// followed by `)` and a block is a syntax error.
func (p *parser) parseParenOrFunctionLiteral() (gdast.ValueBody, error) {
	p.advance() // consume `(`
	if _, err := p.expect(gdlexer.TokenRParen); err != nil {
		return nil, err
	}
	if p.curIs(gdlexer.TokenLBrace) {
		stmts, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return gdast.CmpStmt{Statements: stmts}, nil
	}
	return nil, &SyntaxError{Pos: p.cur.Span.Start, Message: "expected '{' to begin a function body"}
}
