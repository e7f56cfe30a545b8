package levelstring

import (
	"testing"

	"github.com/orizon-lang/spwn/internal/idpool"
	"github.com/orizon-lang/spwn/internal/trigger"
)

func TestSerializeSpawnTrigger(t *testing.T) {
	obj := trigger.GDObj{Params: map[int]trigger.ObjParam{
		trigger.ParamObjID:       trigger.NumberParam(trigger.SpawnTriggerObjID),
		trigger.ParamTargetGroup: trigger.GroupParam(idpool.ID{Class: idpool.ClassGroup, Numeric: 1}),
		trigger.ParamGroups:      trigger.GroupParam(idpool.ID{Class: idpool.ClassGroup, Numeric: 0}),
		trigger.ParamSpawnOnly:   trigger.BoolParam(false),
	}}

	got := Serialize([]trigger.FuncObjects{{ObjList: []trigger.GDObj{obj}}})
	want := "1,1268,51,1,57,0,62,0;"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSerializeOrdersFuncIDsThenEmission(t *testing.T) {
	first := trigger.GDObj{Params: map[int]trigger.ObjParam{1: trigger.NumberParam(1)}}
	second := trigger.GDObj{Params: map[int]trigger.ObjParam{1: trigger.NumberParam(2)}}
	third := trigger.GDObj{Params: map[int]trigger.ObjParam{1: trigger.NumberParam(3)}}

	got := Serialize([]trigger.FuncObjects{
		{ObjList: []trigger.GDObj{first, second}},
		{ObjList: []trigger.GDObj{third}},
	})
	want := "1,1;1,2;1,3;"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSerializeEmpty(t *testing.T) {
	if got := Serialize(nil); got != "" {
		t.Fatalf("expected empty output, got %q", got)
	}
}
