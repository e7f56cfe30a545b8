package gdcompiler

import (
	"bytes"
	"errors"
	"strings"
	"testing"

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

func mustParse(t *testing.T, source string) ([]*gdast.Statement, gdparser.ParseNotes) {
	t.Helper()
	stmts, notes, err := gdparser.Parse(source, "test.spwn")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return stmts, notes
}

func newGlobals(notes gdparser.ParseNotes) *gdglobals.Globals {
	return gdglobals.New("test.spwn", notes.ClosedGroups, notes.ClosedColors, notes.ClosedItems, notes.ClosedBlocks, gdglobals.Options{})
}

// compileScope parses source and runs it through CompileScope with a single
// fresh root context, returning the surviving contexts and returns.
func compileScope(t *testing.T, g *gdglobals.Globals, source string) ([]*gdctx.Context, gdctx.Returns, error) {
	t.Helper()
	stmts, notes := mustParse(t, source)
	g.IDs.Seed(notes.ClosedGroups, notes.ClosedColors, notes.ClosedItems, notes.ClosedBlocks)
	info := gdinfo.CompilerInfo{Pos: position.Position{Filename: "test.spwn", Line: 1, Column: 1}}
	return CompileScope(stmts, []*gdctx.Context{gdctx.New()}, g, info, evaluator.Default{})
}

func compileSpwn(t *testing.T, source string) *gdglobals.Globals {
	t.Helper()
	stmts, notes := mustParse(t, source)
	g, err := CompileSpwn(stmts, "test.spwn", notes, gdglobals.Options{})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return g
}

func TestFunctionCallEmitsSpawnTrigger(t *testing.T) {
	g := compileSpwn(t, `
f = () { }
f!
`)

	funcs := g.Emitter.FuncIDs()
	if len(funcs[0].ObjList) != 1 {
		t.Fatalf("expected one object in func_ids[0], got %d", len(funcs[0].ObjList))
	}

	obj := funcs[0].ObjList[0]
	if obj.Params[trigger.ParamObjID].Number != trigger.SpawnTriggerObjID {
		t.Fatalf("expected spawn-trigger object id, got %v", obj.Params[trigger.ParamObjID])
	}
	target := obj.Params[trigger.ParamTargetGroup]
	if !target.IsGroup || target.Group.Numeric != 1 {
		t.Fatalf("expected target group 1 (first allocated), got %v", target)
	}
	membership := obj.Params[trigger.ParamGroups]
	if !membership.IsGroup || membership.Group.Numeric != 0 {
		t.Fatalf("expected membership in the root group, got %v", membership)
	}
	if obj.Params[trigger.ParamSpawnOnly].Bool {
		t.Fatalf("root context is not spawn-triggered")
	}
}

func TestReassignmentMutatesSingleSlot(t *testing.T) {
	g := newGlobals(gdparser.ParseNotes{})
	contexts, returns, err := compileScope(t, g, `
let x = 3
x = 5
return x
`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if len(contexts) != 0 {
		t.Fatalf("a returning branch contributes no surviving contexts, got %d", len(contexts))
	}
	if len(returns) != 1 {
		t.Fatalf("expected one return, got %d", len(returns))
	}

	v := g.Store.Get(returns[0].Slot)
	if v.Kind != gdvalue.KindNumber || v.Number != 5 {
		t.Fatalf("expected x to hold 5, got %#v", v)
	}

	// The original Number(3) slot is unreachable after the scope exits and
	// must have been swept.
	for slot := 0; slot < g.Store.Len(); slot++ {
		s := gdvalue.Slot(slot)
		if !g.Store.IsLive(s) {
			continue
		}
		if v := g.Store.Get(s); v.Kind == gdvalue.KindNumber && v.Number == 3 {
			t.Fatalf("slot %d still holds the stale Number(3)", slot)
		}
	}
}

func TestTypeDefAndImpl(t *testing.T) {
	g := newGlobals(gdparser.ParseNotes{})
	contexts, _, err := compileScope(t, g, `
type @point
impl @point { x: 1 }
`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if len(contexts) != 1 {
		t.Fatalf("expected one surviving context, got %d", len(contexts))
	}

	tid, ok := g.TypeIDs["point"]
	if !ok {
		t.Fatalf("type point was not registered")
	}
	members, ok := contexts[0].Implementations[tid]
	if !ok {
		t.Fatalf("context did not observe impl @point")
	}
	slot, ok := members["x"]
	if !ok {
		t.Fatalf("impl member x missing")
	}
	if !g.Store.IsLive(slot) {
		t.Fatalf("impl member must outlive its defining scope")
	}
	if v := g.Store.Get(slot); v.Kind != gdvalue.KindNumber || v.Number != 1 {
		t.Fatalf("expected x: 1, got %#v", v)
	}
}

func TestImplExtendsExistingEntry(t *testing.T) {
	g := newGlobals(gdparser.ParseNotes{})
	contexts, _, err := compileScope(t, g, `
type @point
impl @point { x: 1, y: 2 }
impl @point { y: 3, z: 4 }
`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	members := contexts[0].Implementations[g.TypeIDs["point"]]
	if len(members) != 3 {
		t.Fatalf("expected members x, y, z, got %v", members)
	}
	if v := g.Store.Get(members["y"]); v.Number != 3 {
		t.Fatalf("later impl must win on name collision, y = %v", v.Number)
	}
}

func TestForLoopAllocatesGroupPerIteration(t *testing.T) {
	g := compileSpwn(t, `
for i in [1, 2, 3] { fn = () { } }
`)

	for n := uint16(1); n <= 3; n++ {
		if !g.IDs.Used(idpool.ClassGroup, n) {
			t.Fatalf("expected group %d to be allocated", n)
		}
	}
	if g.IDs.Used(idpool.ClassGroup, 4) {
		t.Fatalf("expected exactly three groups")
	}
}

func TestForOverEmptyArrayLeavesContextsUnchanged(t *testing.T) {
	g := newGlobals(gdparser.ParseNotes{})
	contexts, _, err := compileScope(t, g, `
for i in [] { fn = () { } }
`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if len(contexts) != 1 {
		t.Fatalf("expected one surviving context, got %d", len(contexts))
	}
	if g.IDs.Used(idpool.ClassGroup, 1) {
		t.Fatalf("an empty for loop must not allocate groups")
	}
	for _, f := range g.Emitter.FuncIDs() {
		if len(f.ObjList) != 0 {
			t.Fatalf("an empty for loop must not emit triggers")
		}
	}
}

func TestForLoopNonArrayFails(t *testing.T) {
	g := newGlobals(gdparser.ParseNotes{})
	_, _, err := compileScope(t, g, `for i in 3 { }`)
	var ce *gdinfo.CompileError
	if !errors.As(err, &ce) || ce.Kind != gdinfo.KindType {
		t.Fatalf("expected a Type error, got %v", err)
	}
}

func TestExtractBuiltinsStatement(t *testing.T) {
	g := newGlobals(gdparser.ParseNotes{})
	_, returns, err := compileScope(t, g, `
extract builtins
return print
`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	if len(returns) != 1 {
		t.Fatalf("expected one return, got %d", len(returns))
	}
	v := g.Store.Get(returns[0].Slot)
	if v.Kind != gdvalue.KindBuiltinFunction || v.BuiltinName != "print" {
		t.Fatalf("expected print to be a BuiltinFunction, got %#v", v)
	}
	for _, name := range []string{"print", "add", "spawn", "random"} {
		if _, ok := returns[0].Ctx.Variables[name]; !ok {
			t.Fatalf("built-in %s not bound by extract builtins", name)
		}
	}
}

func TestExtractDictAliasesMemberSlots(t *testing.T) {
	g := newGlobals(gdparser.ParseNotes{})
	_, returns, err := compileScope(t, g, `
d = { a: 1 }
extract d
return d
`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if len(returns) != 1 {
		t.Fatalf("expected one return, got %d", len(returns))
	}

	dict := g.Store.Get(returns[0].Slot)
	if dict.Kind != gdvalue.KindDict {
		t.Fatalf("expected returned d to be a dict, got %#v", dict)
	}
	bound, ok := returns[0].Ctx.Variables["a"]
	if !ok {
		t.Fatalf("extract d did not bind a")
	}
	if bound != dict.Dict["a"] {
		t.Fatalf("extracted member must alias the dict's slot: %d vs %d", bound, dict.Dict["a"])
	}
}

func TestExtractNonDictFails(t *testing.T) {
	g := newGlobals(gdparser.ParseNotes{})
	_, _, err := compileScope(t, g, `extract 3`)
	var ce *gdinfo.CompileError
	if !errors.As(err, &ce) || ce.Kind != gdinfo.KindType {
		t.Fatalf("expected a Type error, got %v", err)
	}
}

func TestErrorStatementPrintsThenAborts(t *testing.T) {
	g := newGlobals(gdparser.ParseNotes{})
	var buf bytes.Buffer
	g.Diagnostics = &buf

	_, _, err := compileScope(t, g, `error "bad"`)
	var ce *gdinfo.CompileError
	if !errors.As(err, &ce) || ce.Kind != gdinfo.KindRuntime {
		t.Fatalf("expected a Runtime error, got %v", err)
	}
	if !strings.Contains(buf.String(), `ERROR: "bad"`) {
		t.Fatalf("diagnostic stream missing message, got %q", buf.String())
	}
}

func TestIfTrueCompilesOnlyThenBranch(t *testing.T) {
	g := compileSpwn(t, `
if true { a = () { } } else { b = () { } }
`)
	if !g.IDs.Used(idpool.ClassGroup, 1) {
		t.Fatalf("then branch did not run")
	}
	if g.IDs.Used(idpool.ClassGroup, 2) {
		t.Fatalf("else branch must contribute nothing")
	}
}

func TestIfFalseWithoutElseKeepsContext(t *testing.T) {
	g := newGlobals(gdparser.ParseNotes{})
	contexts, _, err := compileScope(t, g, `
if false { a = () { } }
`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if len(contexts) != 1 {
		t.Fatalf("expected the context to pass through unchanged, got %d", len(contexts))
	}
	if g.IDs.Used(idpool.ClassGroup, 1) {
		t.Fatalf("untaken branch allocated a group")
	}
}

func TestIfNonBoolConditionFails(t *testing.T) {
	g := newGlobals(gdparser.ParseNotes{})
	_, _, err := compileScope(t, g, `if 1 { }`)
	var ce *gdinfo.CompileError
	if !errors.As(err, &ce) || ce.Kind != gdinfo.KindType {
		t.Fatalf("expected a Type error, got %v", err)
	}
}

func TestArrowStatementDiscardsBindingsKeepsSideEffects(t *testing.T) {
	g := newGlobals(gdparser.ParseNotes{})
	contexts, _, err := compileScope(t, g, `
-> x = () { }
`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if _, ok := contexts[0].Variables["x"]; ok {
		t.Fatalf("arrow statement bindings must not leak into later statements")
	}
	if !g.IDs.Used(idpool.ClassGroup, 1) {
		t.Fatalf("arrow statement side effects on the trigger graph must persist")
	}
}

func TestNoBranchProgramYieldsSingleContext(t *testing.T) {
	g := newGlobals(gdparser.ParseNotes{})
	contexts, _, err := compileScope(t, g, `
let a = 1
b = a + 2
type @t
fn = () { }
fn!
`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if len(contexts) != 1 {
		t.Fatalf("a branch-free program must end with one context, got %d", len(contexts))
	}
}

func TestDeterministicGroupNumbers(t *testing.T) {
	first := compileSpwn(t, `x = () { }`)
	second := compileSpwn(t, `x = () { }`)

	if first.IDs.Used(idpool.ClassGroup, 1) != second.IDs.Used(idpool.ClassGroup, 1) {
		t.Fatalf("fresh compilations must allocate identical group numbers")
	}
	if first.IDs.Used(idpool.ClassGroup, 2) || second.IDs.Used(idpool.ClassGroup, 2) {
		t.Fatalf("a single function definition allocates exactly one group")
	}
}

func TestClosedGroupsAreNeverReallocated(t *testing.T) {
	// The literal `1g` closes group 1, so the function definition must be
	// assigned group 2.
	g := compileSpwn(t, `
spin = 1g
f = () { }
f!
`)
	obj := g.Emitter.FuncIDs()[0].ObjList[0]
	if obj.Params[trigger.ParamTargetGroup].Group.Numeric != 2 {
		t.Fatalf("expected the pool to skip the closed group 1, got %v", obj.Params[trigger.ParamTargetGroup])
	}
}

func TestGroupExhaustionFails(t *testing.T) {
	closed := make([]uint16, 0, idpool.MaxID)
	for n := uint16(1); n <= idpool.MaxID; n++ {
		closed = append(closed, n)
	}
	g := newGlobals(gdparser.ParseNotes{ClosedGroups: closed})

	_, _, err := compileScope(t, g, `f = () { }`)
	var ce *gdinfo.CompileError
	if !errors.As(err, &ce) || ce.Kind != gdinfo.KindID {
		t.Fatalf("expected an ID error, got %v", err)
	}
	if ce.IDClass != idpool.ClassGroup {
		t.Fatalf("expected group exhaustion, got %v", ce.IDClass)
	}
}

func TestEmptyContextsIsFatal(t *testing.T) {
	g := newGlobals(gdparser.ParseNotes{})
	stmts, _ := mustParse(t, `x = 1`)
	_, _, err := CompileScope(stmts, nil, g, gdinfo.CompilerInfo{}, evaluator.Default{})
	var ce *gdinfo.CompileError
	if !errors.As(err, &ce) || ce.Kind != gdinfo.KindRuntime {
		t.Fatalf("expected a Runtime error for empty contexts, got %v", err)
	}
}

func TestUndefinedVariableFails(t *testing.T) {
	g := newGlobals(gdparser.ParseNotes{})
	_, _, err := compileScope(t, g, `x = y + 1`)
	var ce *gdinfo.CompileError
	if !errors.As(err, &ce) || ce.Kind != gdinfo.KindUndefined {
		t.Fatalf("expected an Undefined error, got %v", err)
	}
}

func TestCallNonFunctionFails(t *testing.T) {
	g := newGlobals(gdparser.ParseNotes{})
	_, _, err := compileScope(t, g, "x = 3\nx!")
	var ce *gdinfo.CompileError
	if !errors.As(err, &ce) || ce.Kind != gdinfo.KindType {
		t.Fatalf("expected a Type error, got %v", err)
	}
}

func TestCallGroupLiteral(t *testing.T) {
	g := compileSpwn(t, `5g!`)
	obj := g.Emitter.FuncIDs()[0].ObjList[0]
	if obj.Params[trigger.ParamTargetGroup].Group.Numeric != 5 {
		t.Fatalf("expected spawn trigger targeting group 5, got %v", obj.Params[trigger.ParamTargetGroup])
	}
}

func TestBareReturnYieldsNullSlot(t *testing.T) {
	g := newGlobals(gdparser.ParseNotes{})
	_, returns, err := compileScope(t, g, `return`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if len(returns) != 1 {
		t.Fatalf("expected one return, got %d", len(returns))
	}
	if v := g.Store.Get(returns[0].Slot); v.Kind != gdvalue.KindNull {
		t.Fatalf("a bare return must produce null, got %#v", v)
	}
}

func TestFunctionVisibleToItselfAndLaterStatements(t *testing.T) {
	// Inner call: visible to itself (recursion). Outer call: visible after.
	g := compileSpwn(t, `
f = () { f! }
f!
`)
	funcs := g.Emitter.FuncIDs()
	if len(funcs[0].ObjList) != 1 {
		t.Fatalf("outer call missing, got %d objects", len(funcs[0].ObjList))
	}
	if len(funcs[1].ObjList) != 1 {
		t.Fatalf("recursive call missing, got %d objects", len(funcs[1].ObjList))
	}
	inner := funcs[1].ObjList[0]
	if inner.Params[trigger.ParamTargetGroup].Group.Numeric != 1 {
		t.Fatalf("recursive call must target the function's own group, got %v", inner.Params[trigger.ParamTargetGroup])
	}
}

func TestReservedSlotsSurviveCompilation(t *testing.T) {
	g := compileSpwn(t, `
f = () { }
f!
`)
	if v := g.Store.Get(gdvalue.BuiltinsSlot); v.Kind != gdvalue.KindBuiltins {
		t.Fatalf("slot 0 must always read Builtins, got %#v", v)
	}
	if v := g.Store.Get(gdvalue.NullSlot); v.Kind != gdvalue.KindNull {
		t.Fatalf("slot 1 must always read Null, got %#v", v)
	}
}
