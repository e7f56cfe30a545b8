package trigger

import (
	"testing"

	"github.com/orizon-lang/spwn/internal/gdctx"
	"github.com/orizon-lang/spwn/internal/idpool"
)

func TestContextParametersFillMembershipAndSpawnFlag(t *testing.T) {
	ctx := gdctx.New()
	ctx.StartGroup = idpool.ID{Class: idpool.ClassGroup, Numeric: 7}
	ctx.SpawnTriggered = true

	obj := ContextTrigger().ContextParameters(ctx)

	groups := obj.Params[ParamGroups]
	if !groups.IsGroup || groups.Group.Numeric != 7 {
		t.Fatalf("membership = %v, want group 7", groups)
	}
	spawn := obj.Params[ParamSpawnOnly]
	if !spawn.IsBool || !spawn.Bool {
		t.Fatalf("spawn flag = %v, want true", spawn)
	}
}

func TestEmitterAppendsPerFuncID(t *testing.T) {
	e := NewEmitter()
	e.Append(0, GDObj{Params: map[int]ObjParam{1: NumberParam(1)}})
	e.Append(2, GDObj{Params: map[int]ObjParam{1: NumberParam(2)}})

	funcs := e.FuncIDs()
	if len(funcs) != 3 {
		t.Fatalf("expected func ids 0..2, got %d", len(funcs))
	}
	if len(funcs[0].ObjList) != 1 || len(funcs[1].ObjList) != 0 || len(funcs[2].ObjList) != 1 {
		t.Fatalf("objects landed in the wrong lists: %v", funcs)
	}
}

func TestObjParamString(t *testing.T) {
	if got := NumberParam(SpawnTriggerObjID).String(); got != "1268" {
		t.Fatalf("spawn trigger id renders as %q", got)
	}
	if got := GroupParam(idpool.ID{Class: idpool.ClassGroup, Numeric: 51}).String(); got != "51" {
		t.Fatalf("group renders as %q", got)
	}
	if got := BoolParam(true).String(); got != "1" {
		t.Fatalf("bool renders as %q", got)
	}
}
