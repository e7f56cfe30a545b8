// Package gdcompiler implements the Scope Compiler: the
// recursive driver that walks a statement list across a vector of
// contexts, dispatching on statement kind, splitting/merging contexts,
// and orchestrating the ID Pool, Value Store, and Trigger Emitter. The
// Module Importer lives alongside it in import.go, since it must call
// back into CompileScope recursively.
package gdcompiler

import (
	"fmt"
	"time"

	"github.com/orizon-lang/spwn/internal/evaluator"
	"github.com/orizon-lang/spwn/internal/gdast"
	"github.com/orizon-lang/spwn/internal/gdctx"
	"github.com/orizon-lang/spwn/internal/gdglobals"
	"github.com/orizon-lang/spwn/internal/gdinfo"
	"github.com/orizon-lang/spwn/internal/gdparser"
	"github.com/orizon-lang/spwn/internal/gdvalue"
	"github.com/orizon-lang/spwn/internal/idpool"
	"github.com/orizon-lang/spwn/internal/position"
	"github.com/orizon-lang/spwn/internal/trigger"
)

// implMemberLifetime pins implementation members far past their defining
// scope; implementations stay reachable for the whole compilation.
const implMemberLifetime = 1 << 20

// CompileSpwn is the entry point: compiles a full program's
// statement list, starting from a single root context, and returns the
// populated Globals or the first fatal error encountered.
func CompileSpwn(statements []*gdast.Statement, path string, notes gdparser.ParseNotes, opts gdglobals.Options) (*gdglobals.Globals, error) {
	g := gdglobals.New(path, notes.ClosedGroups, notes.ClosedColors, notes.ClosedItems, notes.ClosedBlocks, opts)
	start := time.Now()
	if g.Options.Verbose {
		g.Log.Println("Building script...")
	}

	root := gdctx.New()
	info := gdinfo.CompilerInfo{Pos: position.Position{Filename: path, Line: 1, Column: 1}}

	_, _, err := CompileScope(statements, []*gdctx.Context{root}, g, info, evaluator.Default{})
	if err != nil {
		return nil, err
	}
	if g.Options.Verbose {
		g.Log.Printf("built in %s", time.Since(start).Round(time.Millisecond))
	}
	return g, nil
}

// CompileScope is the recursive driver: walks statements
// across contexts, dispatching on statement kind, splitting/merging
// contexts, and orchestrating the ID Pool / Value Store / Trigger
// Emitter. Empty contexts on entry is a fatal runtime error.
func CompileScope(statements []*gdast.Statement, contexts []*gdctx.Context, g *gdglobals.Globals, info gdinfo.CompilerInfo, ev evaluator.Evaluator) ([]*gdctx.Context, gdctx.Returns, error) {
	if len(contexts) == 0 {
		return nil, nil, gdinfo.Runtime(info, "cannot compile a scope with no active contexts")
	}

	g.Store.IncrementLifetimes()

	var returns gdctx.Returns
	cur := contexts

	for _, stmt := range statements {
		if len(cur) == 0 {
			break // every branch reaching here has already returned
		}

		stmtInfo := info.WithPos(stmt.Span.Start)

		var snapshot []*gdctx.Context
		if stmt.Arrow {
			snapshot = cloneContexts(cur)
		}

		next, stmtReturns, err := compileStatement(stmt, cur, g, stmtInfo, ev)
		if err != nil {
			return nil, nil, err
		}
		returns = append(returns, stmtReturns...)

		if stmt.Arrow {
			// Arrow preservation: the statement's triggers
			// were already emitted by compileStatement; only its context
			// divergence is discarded here.
			cur = snapshot
		} else {
			cur = next
		}
	}

	for _, o := range returns {
		g.Store.IncrementSingleLifetime(o.Slot, 1)
	}
	g.Store.DecrementLifetimes()
	g.Store.CleanUp()

	return cur, returns, nil
}

func cloneContexts(contexts []*gdctx.Context) []*gdctx.Context {
	cloned := make([]*gdctx.Context, len(contexts))
	for i, c := range contexts {
		cloned[i] = c.Clone()
	}
	return cloned
}

func compileStatement(stmt *gdast.Statement, contexts []*gdctx.Context, g *gdglobals.Globals, info gdinfo.CompilerInfo, ev evaluator.Evaluator) ([]*gdctx.Context, gdctx.Returns, error) {
	switch body := stmt.Body.(type) {
	case gdast.ExprStmt:
		return compileExprStmt(body, contexts, g, info, ev)
	case gdast.ExtractStmt:
		return compileExtractStmt(body, contexts, g, info, ev)
	case gdast.TypeDefStmt:
		g.DefineType(body.Name)
		return contexts, nil, nil
	case gdast.IfStmt:
		return compileIfStmt(body, contexts, g, info, ev)
	case gdast.ImplStmt:
		return compileImplStmt(body, contexts, g, info, ev)
	case gdast.CallStmt:
		return compileCallStmt(body, contexts, g, info, ev)
	case gdast.ForStmt:
		return compileForStmt(body, contexts, g, info, ev)
	case gdast.ReturnStmt:
		return compileReturnStmt(body, contexts, g, info, ev)
	case gdast.ErrorStmt:
		return compileErrorStmt(body, contexts, g, info, ev)
	default:
		return nil, nil, gdinfo.Runtime(info, fmt.Sprintf("unhandled statement kind %T", body))
	}
}

// compileExprStmt compiles a bare expression statement, special-casing
// assignment to a fresh symbol and the import forms.
func compileExprStmt(stmt gdast.ExprStmt, contexts []*gdctx.Context, g *gdglobals.Globals, info gdinfo.CompilerInfo, ev evaluator.Evaluator) ([]*gdctx.Context, gdctx.Returns, error) {
	sym, rhs, isAssign := gdast.AsAssignmentToFreshSymbol(stmt.Expr)

	// A bare `import "path"` is recognized directly rather than routed
	// through the expression evaluator, since ImportModule must call back
	// into CompileScope; an assignment whose RHS is an import
	// literal binds a copy of the import's returned value to the symbol.
	// That binding is always immutable (a `let` modifier is not honoured)
	// and is made whether or not the symbol is already defined.
	if path, ok := gdast.AsImport(stmt.Expr); ok {
		return compileImportAll(path, "", contexts, g, info, ev)
	}
	if isAssign {
		if path, ok := gdast.AsImport(rhs); ok {
			return compileImportAll(path, sym.Name, contexts, g, info, ev)
		}
	}

	var newContexts []*gdctx.Context
	var returns gdctx.Returns

	for _, ctx := range contexts {
		if isAssign && !evaluator.IsSymbolDefined(sym, ctx) {
			if cmp, isFunc := gdast.AsFunctionLiteral(rhs); isFunc {
				out, rtn, err := compileFunctionLiteral(sym, cmp, ctx, g, info, ev)
				if err != nil {
					return nil, nil, err
				}
				returns = append(returns, rtn...)
				newContexts = append(newContexts, out)
				continue
			}

			outcomes, rtn, err := ev.Eval(rhs, ctx, g, info, true)
			if err != nil {
				return nil, nil, err
			}
			returns = append(returns, rtn...)
			for _, o := range outcomes {
				slot := evaluator.DefineSymbol(sym, o.Ctx, g)
				// Assignment copies the evaluated value into the fresh
				// slot; it is never aliased.
				g.Store.Set(slot, g.Store.Get(o.Slot).Clone())
				newContexts = append(newContexts, o.Ctx)
			}
			continue
		}

		outcomes, rtn, err := ev.Eval(stmt.Expr, ctx, g, info, true)
		if err != nil {
			return nil, nil, err
		}
		returns = append(returns, rtn...)
		for _, o := range outcomes {
			newContexts = append(newContexts, o.Ctx)
		}
	}

	return newContexts, returns, nil
}

// compileFunctionLiteral compiles `name = () { ... }`: a fresh group is
// minted and the symbol is bound to Func{start_group} both inside the
// function's own context (for recursion) and in the caller's continuation
// context.
func compileFunctionLiteral(sym gdast.Symbol, cmp *gdast.CmpStmt, ctx *gdctx.Context, g *gdglobals.Globals, info gdinfo.CompilerInfo, ev evaluator.Evaluator) (*gdctx.Context, gdctx.Returns, error) {
	group, err := g.IDs.NextFree(idpool.ClassGroup)
	if err != nil {
		return nil, nil, gdinfo.ID(info, idpool.ClassGroup)
	}

	funcCtx := ctx.Clone()
	funcCtx.StartGroup = group

	funcSlot := evaluator.DefineSymbol(sym, funcCtx, g)
	g.Store.Set(funcSlot, gdvalue.Func(group))

	funcID := g.AllocFuncID()
	bodyInfo := info.Next(sym.Fmt(), true)
	bodyInfo.FuncID = funcID

	_, nestedReturns, err := CompileScope(cmp.Statements, []*gdctx.Context{funcCtx}, g, bodyInfo, ev)
	if err != nil {
		return nil, nil, err
	}

	callerSlot := evaluator.DefineSymbol(sym, ctx, g)
	g.Store.Set(callerSlot, gdvalue.Func(group))

	return ctx, nestedReturns, nil
}

// compileExtractStmt merges a dictionary's entries, or the whole builtin
// namespace, into each context's variables.
func compileExtractStmt(stmt gdast.ExtractStmt, contexts []*gdctx.Context, g *gdglobals.Globals, info gdinfo.CompilerInfo, ev evaluator.Evaluator) ([]*gdctx.Context, gdctx.Returns, error) {
	var newContexts []*gdctx.Context
	var returns gdctx.Returns

	for _, ctx := range contexts {
		outcomes, rtn, err := ev.Eval(stmt.Expr, ctx, g, info, true)
		if err != nil {
			return nil, nil, err
		}
		returns = append(returns, rtn...)

		for _, o := range outcomes {
			v := g.Store.Get(o.Slot)
			switch v.Kind {
			case gdvalue.KindDict:
				for name, slot := range v.Dict {
					o.Ctx.Variables[name] = slot
				}
			case gdvalue.KindBuiltins:
				evaluator.ExtractBuiltins(o.Ctx, g)
			default:
				return nil, nil, gdinfo.Type(info, "dictionary or builtins", v.Kind.String())
			}
			newContexts = append(newContexts, o.Ctx)
		}
	}

	return newContexts, returns, nil
}

// compileIfStmt evaluates the condition per context and replaces the
// outer contexts with the union of the taken branches' results.
func compileIfStmt(stmt gdast.IfStmt, contexts []*gdctx.Context, g *gdglobals.Globals, info gdinfo.CompilerInfo, ev evaluator.Evaluator) ([]*gdctx.Context, gdctx.Returns, error) {
	var newContexts []*gdctx.Context
	var returns gdctx.Returns

	for _, ctx := range contexts {
		outcomes, rtn, err := ev.Eval(stmt.Condition, ctx, g, info, true)
		if err != nil {
			return nil, nil, err
		}
		returns = append(returns, rtn...)

		for _, o := range outcomes {
			v := g.Store.Get(o.Slot)
			if v.Kind != gdvalue.KindBool {
				return nil, nil, gdinfo.Type(info, "bool", v.Kind.String())
			}

			switch {
			case v.Bool:
				branchCtxs, branchReturns, err := CompileScope(stmt.IfBody, []*gdctx.Context{o.Ctx}, g, info.Next("if", true), ev)
				if err != nil {
					return nil, nil, err
				}
				returns = append(returns, branchReturns...)
				newContexts = append(newContexts, branchCtxs...)
			case stmt.ElseBody != nil:
				branchCtxs, branchReturns, err := CompileScope(stmt.ElseBody, []*gdctx.Context{o.Ctx}, g, info.Next("else", true), ev)
				if err != nil {
					return nil, nil, err
				}
				returns = append(returns, branchReturns...)
				newContexts = append(newContexts, branchCtxs...)
			default:
				newContexts = append(newContexts, o.Ctx)
			}
		}
	}

	return newContexts, returns, nil
}

// compileImplStmt attaches a member table to a user-defined type in every
// context that observes the impl.
func compileImplStmt(stmt gdast.ImplStmt, contexts []*gdctx.Context, g *gdglobals.Globals, info gdinfo.CompilerInfo, ev evaluator.Evaluator) ([]*gdctx.Context, gdctx.Returns, error) {
	var newContexts []*gdctx.Context
	var returns gdctx.Returns

	for _, ctx := range contexts {
		outcomes, rtn, err := ev.Eval(stmt.Symbol, ctx, g, info, true)
		if err != nil {
			return nil, nil, err
		}
		returns = append(returns, rtn...)

		for _, o := range outcomes {
			v := g.Store.Get(o.Slot)
			if v.Kind != gdvalue.KindTypeIndicator {
				return nil, nil, gdinfo.Type(info, "type-indicator", v.Kind.String())
			}

			dictSlot, err := evaluator.EvalDict(stmt.Members, o.Ctx, g, info, true)
			if err != nil {
				return nil, nil, err
			}
			members := g.Store.Get(dictSlot).Dict
			for _, slot := range members {
				g.Store.IncrementSingleLifetime(slot, implMemberLifetime)
			}

			gdctx.MergeImplementations(o.Ctx.Implementations, map[gdvalue.TypeID]map[string]gdvalue.Slot{v.TypeID: members})

			newContexts = append(newContexts, o.Ctx)
		}
	}

	return newContexts, returns, nil
}

// compileCallStmt emits one spawn-trigger object per resulting context,
// targeting the called function's start group.
func compileCallStmt(stmt gdast.CallStmt, contexts []*gdctx.Context, g *gdglobals.Globals, info gdinfo.CompilerInfo, ev evaluator.Evaluator) ([]*gdctx.Context, gdctx.Returns, error) {
	var newContexts []*gdctx.Context
	var returns gdctx.Returns

	for _, ctx := range contexts {
		outcomes, rtn, err := ev.Eval(stmt.Function, ctx, g, info, true)
		if err != nil {
			return nil, nil, err
		}
		returns = append(returns, rtn...)

		for _, o := range outcomes {
			v := g.Store.Get(o.Slot)

			var target idpool.ID
			switch v.Kind {
			case gdvalue.KindFunc:
				target = v.FuncStartGroup
			case gdvalue.KindGroup:
				target = v.Identifier
			default:
				return nil, nil, gdinfo.Type(info, "function or group", v.Kind.String())
			}

			obj := trigger.ContextTrigger().ContextParameters(o.Ctx)
			obj.Params[trigger.ParamTargetGroup] = trigger.GroupParam(target)
			obj.Params[trigger.ParamObjID] = trigger.NumberParam(trigger.SpawnTriggerObjID)
			g.Emitter.Append(info.FuncID, obj)

			newContexts = append(newContexts, o.Ctx)
		}
	}

	return newContexts, returns, nil
}

// compileForStmt iterates the array in order; contexts propagate across
// iterations so later elements see earlier side effects, while each
// iteration's variable bindings restart from the loop's entry bindings.
func compileForStmt(stmt gdast.ForStmt, contexts []*gdctx.Context, g *gdglobals.Globals, info gdinfo.CompilerInfo, ev evaluator.Evaluator) ([]*gdctx.Context, gdctx.Returns, error) {
	var newContexts []*gdctx.Context
	var returns gdctx.Returns

	for _, ctx := range contexts {
		outcomes, rtn, err := ev.Eval(stmt.Array, ctx, g, info, true)
		if err != nil {
			return nil, nil, err
		}
		returns = append(returns, rtn...)

		for _, o := range outcomes {
			v := g.Store.Get(o.Slot)
			if v.Kind != gdvalue.KindArray {
				return nil, nil, gdinfo.Type(info, "array", v.Kind.String())
			}

			iterCtxs := []*gdctx.Context{o.Ctx}
			for _, elemSlot := range v.Array {
				var next []*gdctx.Context
				for _, iterCtx := range iterCtxs {
					loopCtx := iterCtx.Clone()
					loopCtx.Variables = gdctx.CloneVariables(o.Ctx.Variables)
					loopCtx.Variables[stmt.Symbol] = elemSlot

					bodyCtxs, bodyReturns, err := CompileScope(stmt.Body, []*gdctx.Context{loopCtx}, g, info.Next("for", true), ev)
					if err != nil {
						return nil, nil, err
					}
					returns = append(returns, bodyReturns...)
					next = append(next, bodyCtxs...)
				}
				iterCtxs = next
			}

			newContexts = append(newContexts, iterCtxs...)
		}
	}

	return newContexts, returns, nil
}

// compileReturnStmt records a return outcome per context. A branch that returns
// contributes no further contexts to this scope: subsequent statements in
// the same scope are skipped for it (see the cur-emptying check in
// CompileScope).
func compileReturnStmt(stmt gdast.ReturnStmt, contexts []*gdctx.Context, g *gdglobals.Globals, info gdinfo.CompilerInfo, ev evaluator.Evaluator) ([]*gdctx.Context, gdctx.Returns, error) {
	var returns gdctx.Returns

	for _, ctx := range contexts {
		if stmt.Expr == nil {
			returns = append(returns, gdctx.Outcome{Slot: gdvalue.NullSlot, Ctx: ctx})
			continue
		}

		outcomes, rtn, err := ev.Eval(stmt.Expr, ctx, g, info, true)
		if err != nil {
			return nil, nil, err
		}
		returns = append(returns, rtn...)
		returns = append(returns, outcomes...)
	}

	return nil, returns, nil
}

// compileErrorStmt prints every resulting string
// message, then unconditionally aborts.
func compileErrorStmt(stmt gdast.ErrorStmt, contexts []*gdctx.Context, g *gdglobals.Globals, info gdinfo.CompilerInfo, ev evaluator.Evaluator) ([]*gdctx.Context, gdctx.Returns, error) {
	for _, ctx := range contexts {
		outcomes, _, err := ev.Eval(stmt.Message, ctx, g, info, true)
		if err != nil {
			return nil, nil, err
		}
		for _, o := range outcomes {
			v := g.Store.Get(o.Slot)
			if v.Kind == gdvalue.KindStr {
				fmt.Fprintf(g.Diagnostics, "ERROR: %q\n", v.Str)
			}
		}
	}
	return nil, nil, gdinfo.Runtime(info, "compilation aborted by an error statement; see emitted messages above")
}
