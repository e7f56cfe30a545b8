package gdcompiler

import (
	"fmt"
	"os"

	"github.com/orizon-lang/spwn/internal/evaluator"
	"github.com/orizon-lang/spwn/internal/gdctx"
	"github.com/orizon-lang/spwn/internal/gdglobals"
	"github.com/orizon-lang/spwn/internal/gdimport"
	"github.com/orizon-lang/spwn/internal/gdinfo"
	"github.com/orizon-lang/spwn/internal/gdparser"
	"github.com/orizon-lang/spwn/internal/gdvalue"
)

// ImportModule implements the Module Importer: resolves path
// relative to the current compilation root, reads and parses it, compiles
// it with a fresh root context, then merges its start_group,
// spawn_triggered, and implementations back into fresh copies of the
// caller's context. The module's effects on globals (ID pool, value
// store, trigger emitter) are kept as a side effect of sharing g.
func ImportModule(path string, callerCtx *gdctx.Context, g *gdglobals.Globals, info gdinfo.CompilerInfo, ev evaluator.Evaluator) (gdctx.Returns, error) {
	resolved, err := gdimport.Resolve(g.Path, path)
	if err != nil {
		return nil, gdinfo.Runtime(info, err.Error())
	}

	source, err := os.ReadFile(resolved)
	if err != nil {
		return nil, gdinfo.Runtime(info, fmt.Sprintf("could not read module %q: %v", resolved, err))
	}

	statements, notes, err := gdparser.Parse(string(source), resolved)
	if err != nil {
		return nil, gdinfo.PackageSyntax(info, err)
	}
	g.IDs.Seed(notes.ClosedGroups, notes.ClosedColors, notes.ClosedItems, notes.ClosedBlocks)

	callerPath := g.Path
	g.Path = resolved
	defer func() { g.Path = callerPath }()

	moduleCtx := gdctx.New()
	moduleInfo := info.Next("import "+path, true)

	terminal, moduleReturns, err := CompileScope(statements, []*gdctx.Context{moduleCtx}, g, moduleInfo, ev)
	if err != nil {
		return nil, err
	}

	if len(moduleReturns) == 0 {
		// No explicit returns: one null outcome per surviving terminal
		// context.
		result := make(gdctx.Returns, 0, len(terminal))
		for _, tctx := range terminal {
			merged := callerCtx.Clone()
			mergeModuleState(merged, tctx)
			result = append(result, gdctx.Outcome{Slot: gdvalue.NullSlot, Ctx: merged})
		}
		return result, nil
	}

	result := make(gdctx.Returns, 0, len(moduleReturns))
	for _, r := range moduleReturns {
		merged := callerCtx.Clone()
		mergeModuleState(merged, r.Ctx)
		result = append(result, gdctx.Outcome{Slot: r.Slot, Ctx: merged})
	}
	return result, nil
}

// mergeModuleState applies the implementation merge rule and
// carries the module's final start_group/spawn_triggered onto target.
func mergeModuleState(target, source *gdctx.Context) {
	target.StartGroup = source.StartGroup
	target.SpawnTriggered = source.SpawnTriggered
	gdctx.MergeImplementations(target.Implementations, source.Implementations)
}

// compileImportAll drives ImportModule across every active context from
// the scope compiler's ExprStmt handling, optionally binding the result
// to bindName when the import was the RHS of a fresh-symbol assignment.
func compileImportAll(path, bindName string, contexts []*gdctx.Context, g *gdglobals.Globals, info gdinfo.CompilerInfo, ev evaluator.Evaluator) ([]*gdctx.Context, gdctx.Returns, error) {
	var newContexts []*gdctx.Context

	for _, ctx := range contexts {
		results, err := ImportModule(path, ctx, g, info, ev)
		if err != nil {
			return nil, nil, err
		}
		for _, r := range results {
			if bindName != "" {
				slot := g.Store.Alloc(g.Store.Get(r.Slot).Clone(), 1, true)
				r.Ctx.Variables[bindName] = slot
			}
			newContexts = append(newContexts, r.Ctx)
		}
	}

	return newContexts, nil, nil
}
