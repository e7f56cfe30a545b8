// Package gdast defines the AST the scope compiler consumes: statements,
// expressions, and the small set of value literals
// the language supports. The lexer/parser that produces this tree lives in
// internal/gdlexer and internal/gdparser; this package only describes the
// shape.
package gdast

import (
	"strings"

	"github.com/orizon-lang/spwn/internal/idpool"
	"github.com/orizon-lang/spwn/internal/position"
)

// Statement is one statement in a statement list.
type Statement struct {
	Span  position.Span
	Arrow bool // asynchronous/speculative marker
	Body  StatementBody
}

// StatementBody is the closed set of statement kinds.
type StatementBody interface {
	statementBody()
}

// ExprStmt is a bare expression statement; it may be an assignment to a
// fresh symbol, a side-effecting call chain, or anything else an expression
// can be.
type ExprStmt struct{ Expr *Expression }

// ExtractStmt implements `extract <expr>`.
type ExtractStmt struct{ Expr *Expression }

// TypeDefStmt implements `type @name`.
type TypeDefStmt struct{ Name string }

// IfStmt implements `if <cond> { ... } else { ... }`.
type IfStmt struct {
	Condition *Expression
	IfBody    []*Statement
	ElseBody  []*Statement // nil if no else clause
}

// ImplStmt implements `impl <symbol> { members }`.
type ImplStmt struct {
	Symbol  *Expression
	Members []DictEntry
}

// CallStmt implements `<expr>!`.
type CallStmt struct{ Function *Expression }

// ForStmt implements `for <symbol> in <array> { body }`.
type ForStmt struct {
	Symbol string
	Array  *Expression
	Body   []*Statement
}

// ReturnStmt implements `return [expr]`. Expr is nil for a
// bare `return`.
type ReturnStmt struct{ Expr *Expression }

// ErrorStmt implements `error <message>`.
type ErrorStmt struct{ Message *Expression }

func (ExprStmt) statementBody()    {}
func (ExtractStmt) statementBody() {}
func (TypeDefStmt) statementBody() {}
func (IfStmt) statementBody()      {}
func (ImplStmt) statementBody()    {}
func (CallStmt) statementBody()    {}
func (ForStmt) statementBody()     {}
func (ReturnStmt) statementBody()  {}
func (ErrorStmt) statementBody()   {}

// DictEntry is one `name: value` pair of a dict literal or impl block.
type DictEntry struct {
	Name  string
	Value *Expression
}

// Operator is a binary operator occupying a position between two values in
// an Expression.
type Operator int

const (
	OpAssign Operator = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNeq
	OpLt
	OpGt
	OpLe
	OpGe
	OpAnd
	OpOr
	OpMember // `.`
)

func (o Operator) String() string {
	switch o {
	case OpAssign:
		return "="
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	case OpEq:
		return "=="
	case OpNeq:
		return "!="
	case OpLt:
		return "<"
	case OpGt:
		return ">"
	case OpLe:
		return "<="
	case OpGe:
		return ">="
	case OpAnd:
		return "&&"
	case OpOr:
		return "||"
	case OpMember:
		return "."
	default:
		return "?"
	}
}

// UnaryOperator is a prefix modifier on a value in an Expression. Let
// marks a binding mutable.
type UnaryOperator int

const (
	UnaryNone UnaryOperator = iota
	UnaryLet
	UnaryNot
	UnaryNegate
)

// Value is one operand position in an Expression: an optional unary
// operator plus the literal/reference it modifies.
type Value struct {
	Operator UnaryOperator
	Body     ValueBody
	Span     position.Span
}

// ValueBody is the closed set of value literal/reference kinds the parser
// produces.
type ValueBody interface {
	valueBody()
}

type NumberLit struct{ Value float64 }
type StrLit struct{ Value string }
type BoolLit struct{ Value bool }
type SymbolRef struct{ Name string }
type ArrayLit struct{ Elements []*Expression }
type DictLit struct{ Entries []DictEntry }

// CmpStmt is a compound-statement (block) literal: `() { ... }`. When used
// as the sole RHS of an assignment it defines a user
// function; evaluated in any other position it is an error (the evaluator
// never allows a bare block as a normal value).
type CmpStmt struct{ Statements []*Statement }

// TypeIndicatorRef is an `@name` literal, resolved by the evaluator to the
// TypeIndicator value for that type name.
type TypeIndicatorRef struct{ Name string }

// IDLit is an explicit GD identifier literal, e.g. `10g` for Group 10.
type IDLit struct {
	Class   idpool.Class
	Numeric uint16
}

// NullLit is the literal `null`.
type NullLit struct{}

// ImportLit is an `import "path"` value. The module importer
// is triggered when an ExprStmt's expression is exactly one ImportLit
// value; the scope compiler recognizes this shape directly rather than
// routing it through the expression evaluator, since import_module needs
// to recursively call back into the scope compiler itself.
type ImportLit struct{ Path string }

func (NumberLit) valueBody()        {}
func (StrLit) valueBody()           {}
func (BoolLit) valueBody()          {}
func (SymbolRef) valueBody()        {}
func (ArrayLit) valueBody()         {}
func (DictLit) valueBody()          {}
func (CmpStmt) valueBody()          {}
func (TypeIndicatorRef) valueBody() {}
func (IDLit) valueBody()            {}
func (NullLit) valueBody()          {}
func (ImportLit) valueBody()        {}

// AsImport reports whether expr is exactly one bare ImportLit value.
func AsImport(expr *Expression) (string, bool) {
	if len(expr.Values) != 1 || len(expr.Operators) != 0 {
		return "", false
	}
	lit, ok := expr.Values[0].Body.(ImportLit)
	if !ok {
		return "", false
	}
	return lit.Path, true
}

// Expression is a flat `{ values, operators }` sequence: operators bind
// positions between values, e.g. `[v0] [op0] [v1] [op1] [v2] ...`.
type Expression struct {
	Values    []*Value
	Operators []Operator
	Span      position.Span
}

// Symbol names a binding target extracted from the first value of an
// assignment expression.
type Symbol struct {
	Name    string
	Mutable bool // true when declared with the `let` unary operator
}

// AsAssignmentToFreshSymbol inspects expr for the assignment-to-symbol shape:
// the first operator must be Assign and the first value must be a bare
// symbol reference. It returns the Symbol and the RHS expression (the
// original expression with the symbol and the leading Assign stripped) when
// that holds.
func AsAssignmentToFreshSymbol(expr *Expression) (Symbol, *Expression, bool) {
	if len(expr.Operators) == 0 || expr.Operators[0] != OpAssign {
		return Symbol{}, nil, false
	}
	ref, ok := expr.Values[0].Body.(SymbolRef)
	if !ok {
		return Symbol{}, nil, false
	}
	sym := Symbol{
		Name:    ref.Name,
		Mutable: expr.Values[0].Operator == UnaryLet,
	}
	rhs := &Expression{
		Values:    expr.Values[1:],
		Operators: expr.Operators[1:],
		Span:      expr.Span,
	}
	return sym, rhs, true
}

// AsFunctionLiteral reports whether expr is a single compound-statement
// value, i.e. the RHS shape that defines a user function.
func AsFunctionLiteral(expr *Expression) (*CmpStmt, bool) {
	if len(expr.Values) != 1 {
		return nil, false
	}
	cmp, ok := expr.Values[0].Body.(CmpStmt)
	if !ok {
		return nil, false
	}
	return &cmp, true
}

// Fmt renders a minimal human-readable form of the symbol, used to build
// CompilerInfo breadcrumbs.
func (s Symbol) Fmt() string {
	if s.Mutable {
		return "let " + s.Name
	}
	return s.Name
}

// String renders a minimal debug form of an expression.
func (e *Expression) String() string {
	var b strings.Builder
	for i, v := range e.Values {
		if i > 0 && i-1 < len(e.Operators) {
			b.WriteString(" ")
			b.WriteString(e.Operators[i-1].String())
			b.WriteString(" ")
		}
		b.WriteString(valueBodyString(v.Body))
	}
	return b.String()
}

func valueBodyString(b ValueBody) string {
	switch v := b.(type) {
	case SymbolRef:
		return v.Name
	case NumberLit:
		return "number"
	case StrLit:
		return "string"
	case BoolLit:
		return "bool"
	case NullLit:
		return "null"
	case CmpStmt:
		return "() { ... }"
	case TypeIndicatorRef:
		return "@" + v.Name
	default:
		return "<expr>"
	}
}
