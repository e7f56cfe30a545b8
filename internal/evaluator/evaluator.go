// Package evaluator evaluates expressions: given an expression and a
// context, it produces a set of (slot, context) pairs plus a set of
// returns.
//
// The evaluator below never itself branches a context into several —
// multi-context fan-out happens in the statement handlers of
// internal/gdcompiler (If, For, Call, Impl, module import). Every
// expression this evaluator can evaluate is deterministic given its
// context, so Eval always returns exactly one outcome. The slice return
// type is the contract the scope compiler consumes, and leaves room for
// evaluators whose built-ins fan out.
package evaluator

import (
	"fmt"

	"github.com/orizon-lang/spwn/internal/builtins"
	"github.com/orizon-lang/spwn/internal/gdast"
	"github.com/orizon-lang/spwn/internal/gdctx"
	"github.com/orizon-lang/spwn/internal/gdglobals"
	"github.com/orizon-lang/spwn/internal/gdinfo"
	"github.com/orizon-lang/spwn/internal/gdvalue"
	"github.com/orizon-lang/spwn/internal/idpool"
)

// Evaluator is the interface the scope compiler consumes.
type Evaluator interface {
	Eval(expr *gdast.Expression, ctx *gdctx.Context, g *gdglobals.Globals, info gdinfo.CompilerInfo, constFlag bool) (gdctx.Returns, gdctx.Returns, error)
}

// Default is the concrete Evaluator used throughout this repository.
type Default struct{}

// Eval evaluates expr under ctx, returning exactly one (slot, context)
// outcome (see package doc) plus any returns produced (always empty for
// this evaluator: nothing it can evaluate contains a Return).
func (Default) Eval(expr *gdast.Expression, ctx *gdctx.Context, g *gdglobals.Globals, info gdinfo.CompilerInfo, constFlag bool) (gdctx.Returns, gdctx.Returns, error) {
	slot, err := eval(expr, ctx, g, info, constFlag)
	if err != nil {
		return nil, nil, err
	}
	return gdctx.Returns{{Slot: slot, Ctx: ctx}}, nil, nil
}

func eval(expr *gdast.Expression, ctx *gdctx.Context, g *gdglobals.Globals, info gdinfo.CompilerInfo, constFlag bool) (gdvalue.Slot, error) {
	if len(expr.Values) == 0 {
		return gdvalue.NullSlot, nil
	}

	slot, err := evalValue(expr.Values[0], ctx, g, info, constFlag)
	if err != nil {
		return 0, err
	}

	for i, op := range expr.Operators {
		rhsValue := expr.Values[i+1]

		if op == gdast.OpMember {
			name, ok := rhsValue.Body.(gdast.SymbolRef)
			if !ok {
				return 0, gdinfo.Runtime(info, "member access requires a name on the right-hand side")
			}
			slot, err = evalMember(slot, name.Name, ctx, g, info)
			if err != nil {
				return 0, err
			}
			continue
		}

		if op == gdast.OpAssign {
			target, err := evalAssignExisting(expr.Values[i], ctx, g, info, constFlag)
			if err != nil {
				return 0, err
			}
			rhs, err := evalValue(rhsValue, ctx, g, info, constFlag)
			if err != nil {
				return 0, err
			}
			// Reassignment writes through the existing slot; the RHS value
			// is copied, never aliased.
			g.Store.Set(target, g.Store.Get(rhs).Clone())
			slot = target
			continue
		}

		rhs, err := evalValue(rhsValue, ctx, g, info, constFlag)
		if err != nil {
			return 0, err
		}
		slot, err = applyBinary(op, slot, rhs, g, info)
		if err != nil {
			return 0, err
		}
	}

	return slot, nil
}

// evalAssignExisting handles `name = rhs` where name already names a bound
// variable: not an assignment to a fresh symbol, so the scope compiler
// leaves the mutation to expression evaluation.
func evalAssignExisting(lhs *gdast.Value, ctx *gdctx.Context, g *gdglobals.Globals, info gdinfo.CompilerInfo, constFlag bool) (gdvalue.Slot, error) {
	ref, ok := lhs.Body.(gdast.SymbolRef)
	if !ok {
		return 0, gdinfo.Runtime(info, "left-hand side of assignment must be a variable")
	}
	slot, ok := ctx.Variables[ref.Name]
	if !ok {
		return 0, gdinfo.Undefined(info, ref.Name, "variable")
	}
	if g.Store.IsConstant(slot) {
		return 0, gdinfo.Runtime(info, fmt.Sprintf("cannot assign to immutable binding '%s'", ref.Name))
	}
	return slot, nil
}

func evalMember(base gdvalue.Slot, name string, ctx *gdctx.Context, g *gdglobals.Globals, info gdinfo.CompilerInfo) (gdvalue.Slot, error) {
	v := g.Store.Get(base)
	switch v.Kind {
	case gdvalue.KindDict:
		slot, ok := v.Dict[name]
		if !ok {
			return 0, gdinfo.Undefined(info, name, "dictionary member")
		}
		return slot, nil
	case gdvalue.KindTypeIndicator:
		members, ok := ctx.Implementations[v.TypeID]
		if !ok {
			return 0, gdinfo.Undefined(info, name, "implementation member")
		}
		slot, ok := members[name]
		if !ok {
			return 0, gdinfo.Undefined(info, name, "implementation member")
		}
		return slot, nil
	default:
		return 0, gdinfo.Type(info, "dictionary or type-indicator", v.Kind.String())
	}
}

func evalValue(v *gdast.Value, ctx *gdctx.Context, g *gdglobals.Globals, info gdinfo.CompilerInfo, constFlag bool) (gdvalue.Slot, error) {
	switch b := v.Body.(type) {
	case gdast.NumberLit:
		n := b.Value
		if v.Operator == gdast.UnaryNegate {
			n = -n
		}
		return g.Store.Alloc(gdvalue.Number(n), 1, constFlag), nil
	case gdast.StrLit:
		return g.Store.Alloc(gdvalue.Str(b.Value), 1, constFlag), nil
	case gdast.BoolLit:
		slot := g.Store.Alloc(gdvalue.Bool(b.Value), 1, constFlag)
		slot = applyUnary(v.Operator, slot, g)
		return slot, nil
	case gdast.NullLit:
		return gdvalue.NullSlot, nil
	case gdast.SymbolRef:
		return evalSymbolRef(b.Name, ctx, g, info)
	case gdast.ArrayLit:
		return evalArray(b, ctx, g, info, constFlag)
	case gdast.DictLit:
		return evalDict(b.Entries, ctx, g, info, constFlag)
	case gdast.TypeIndicatorRef:
		tid, ok := g.TypeIDs[b.Name]
		if !ok {
			return 0, gdinfo.Undefined(info, b.Name, "type")
		}
		return g.Store.Alloc(gdvalue.TypeIndicator(tid), 1, true), nil
	case gdast.IDLit:
		return g.Store.Alloc(idLitValue(b), 1, true), nil
	case gdast.CmpStmt:
		return 0, gdinfo.Runtime(info, "a block literal can only be used to define a function")
	default:
		return 0, gdinfo.Runtime(info, fmt.Sprintf("unhandled value kind %T", b))
	}
}

func applyUnary(op gdast.UnaryOperator, slot gdvalue.Slot, g *gdglobals.Globals) gdvalue.Slot {
	if op != gdast.UnaryNot {
		return slot
	}
	v := g.Store.Get(slot)
	if v.Kind == gdvalue.KindBool {
		g.Store.Set(slot, gdvalue.Bool(!v.Bool))
	}
	return slot
}

func idLitValue(lit gdast.IDLit) gdvalue.Value {
	id := idpool.ID{Class: lit.Class, Numeric: lit.Numeric}
	switch lit.Class {
	case idpool.ClassGroup:
		return gdvalue.Group(id)
	case idpool.ClassColor:
		return gdvalue.Color(id)
	case idpool.ClassItem:
		return gdvalue.Item(id)
	default:
		return gdvalue.Block(id)
	}
}

func evalSymbolRef(name string, ctx *gdctx.Context, g *gdglobals.Globals, info gdinfo.CompilerInfo) (gdvalue.Slot, error) {
	if slot, ok := ctx.Variables[name]; ok {
		return slot, nil
	}
	if name == "builtins" {
		return gdvalue.BuiltinsSlot, nil
	}
	return 0, gdinfo.Undefined(info, name, "variable")
}

// evalArray evaluates each element in order, threading the context forward
// the way any genuinely branching evaluator would: each element's
// outcome context becomes the input to the next element's evaluation.
func evalArray(lit gdast.ArrayLit, ctx *gdctx.Context, g *gdglobals.Globals, info gdinfo.CompilerInfo, constFlag bool) (gdvalue.Slot, error) {
	slots := make([]gdvalue.Slot, 0, len(lit.Elements))
	for _, elem := range lit.Elements {
		slot, err := eval(elem, ctx, g, info, constFlag)
		if err != nil {
			return 0, err
		}
		slots = append(slots, slot)
	}
	return g.Store.Alloc(gdvalue.Array(slots), 1, constFlag), nil
}

// evalDict evaluates a dict literal's entries (also used by the Impl
// statement, which evaluates its members as a dictionary literal).
func evalDict(entries []gdast.DictEntry, ctx *gdctx.Context, g *gdglobals.Globals, info gdinfo.CompilerInfo, constFlag bool) (gdvalue.Slot, error) {
	dict := make(map[string]gdvalue.Slot, len(entries))
	for _, entry := range entries {
		slot, err := eval(entry.Value, ctx, g, info, constFlag)
		if err != nil {
			return 0, err
		}
		dict[entry.Name] = slot
	}
	return g.Store.Alloc(gdvalue.Dict(dict), 1, constFlag), nil
}

func applyBinary(op gdast.Operator, lhs, rhs gdvalue.Slot, g *gdglobals.Globals, info gdinfo.CompilerInfo) (gdvalue.Slot, error) {
	l := g.Store.Get(lhs)
	r := g.Store.Get(rhs)

	switch op {
	case gdast.OpAdd, gdast.OpSub, gdast.OpMul, gdast.OpDiv, gdast.OpMod:
		if l.Kind != gdvalue.KindNumber || r.Kind != gdvalue.KindNumber {
			return 0, gdinfo.Type(info, "number", mismatchKind(l, r))
		}
		return g.Store.Alloc(gdvalue.Number(arith(op, l.Number, r.Number)), 1, true), nil
	case gdast.OpEq:
		return g.Store.Alloc(gdvalue.Bool(valuesEqual(l, r)), 1, true), nil
	case gdast.OpNeq:
		return g.Store.Alloc(gdvalue.Bool(!valuesEqual(l, r)), 1, true), nil
	case gdast.OpLt, gdast.OpGt, gdast.OpLe, gdast.OpGe:
		if l.Kind != gdvalue.KindNumber || r.Kind != gdvalue.KindNumber {
			return 0, gdinfo.Type(info, "number", mismatchKind(l, r))
		}
		return g.Store.Alloc(gdvalue.Bool(compare(op, l.Number, r.Number)), 1, true), nil
	case gdast.OpAnd, gdast.OpOr:
		if l.Kind != gdvalue.KindBool || r.Kind != gdvalue.KindBool {
			return 0, gdinfo.Type(info, "bool", mismatchKind(l, r))
		}
		if op == gdast.OpAnd {
			return g.Store.Alloc(gdvalue.Bool(l.Bool && r.Bool), 1, true), nil
		}
		return g.Store.Alloc(gdvalue.Bool(l.Bool || r.Bool), 1, true), nil
	default:
		return 0, gdinfo.Runtime(info, fmt.Sprintf("unsupported operator %s", op))
	}
}

func mismatchKind(l, r gdvalue.Value) string {
	if l.Kind != gdvalue.KindNumber && l.Kind != gdvalue.KindBool {
		return l.Kind.String()
	}
	return r.Kind.String()
}

func arith(op gdast.Operator, a, b float64) float64 {
	switch op {
	case gdast.OpAdd:
		return a + b
	case gdast.OpSub:
		return a - b
	case gdast.OpMul:
		return a * b
	case gdast.OpDiv:
		return a / b
	case gdast.OpMod:
		return float64(int64(a) % int64(b))
	default:
		return 0
	}
}

func compare(op gdast.Operator, a, b float64) bool {
	switch op {
	case gdast.OpLt:
		return a < b
	case gdast.OpGt:
		return a > b
	case gdast.OpLe:
		return a <= b
	case gdast.OpGe:
		return a >= b
	default:
		return false
	}
}

func valuesEqual(l, r gdvalue.Value) bool {
	if l.Kind != r.Kind {
		return false
	}
	switch l.Kind {
	case gdvalue.KindNumber:
		return l.Number == r.Number
	case gdvalue.KindStr:
		return l.Str == r.Str
	case gdvalue.KindBool:
		return l.Bool == r.Bool
	case gdvalue.KindNull:
		return true
	default:
		return false
	}
}

// EvalDict is exported for the Impl statement, which evaluates its member
// block as a dictionary literal.
func EvalDict(entries []gdast.DictEntry, ctx *gdctx.Context, g *gdglobals.Globals, info gdinfo.CompilerInfo, constFlag bool) (gdvalue.Slot, error) {
	return evalDict(entries, ctx, g, info, constFlag)
}

// IsSymbolDefined reports whether sym already names a binding in ctx,
// used to distinguish assignment-to-new from
// assignment-to-existing.
func IsSymbolDefined(sym gdast.Symbol, ctx *gdctx.Context) bool {
	_, ok := ctx.Variables[sym.Name]
	return ok
}

// DefineSymbol creates (or overwrites) the binding for sym in ctx, returning
// the fresh slot the caller must populate. The
// default (non-`let`) modifier marks the binding immutable.
func DefineSymbol(sym gdast.Symbol, ctx *gdctx.Context, g *gdglobals.Globals) gdvalue.Slot {
	slot := g.Store.Alloc(gdvalue.Null(), 1, !sym.Mutable)
	ctx.Variables[sym.Name] = slot
	return slot
}

// ExtractBuiltins binds every built-in name in ctx to a freshly stored
// BuiltinFunction value.
func ExtractBuiltins(ctx *gdctx.Context, g *gdglobals.Globals) {
	for _, name := range builtins.List {
		slot := g.Store.Alloc(gdvalue.BuiltinFunction(name), 1, true)
		ctx.Variables[name] = slot
	}
}
