// Package trigger implements the Trigger Emitter: it owns the
// numeric parameter layout of the GD objects the scope compiler emits and
// appends them to per-function-id object lists.
package trigger

import (
	"fmt"

	"github.com/orizon-lang/spwn/internal/gdctx"
	"github.com/orizon-lang/spwn/internal/idpool"
)

// Well-known GD object parameter keys, plus the membership keys this
// emitter fills in from context defaults.
const (
	ParamTargetGroup = 51
	ParamObjID       = 1
	ParamGroups      = 57
	ParamSpawnOnly   = 62

	SpawnTriggerObjID = 1268.0
)

// ObjParam is one parameter value of a GD object.
type ObjParam struct {
	IsGroup bool
	IsBool  bool
	Number  float64
	Group   idpool.ID
	Bool    bool
}

// NumberParam wraps a numeric parameter.
func NumberParam(n float64) ObjParam { return ObjParam{Number: n} }

// GroupParam wraps a group-identifier parameter.
func GroupParam(id idpool.ID) ObjParam { return ObjParam{IsGroup: true, Group: id} }

// BoolParam wraps a boolean parameter.
func BoolParam(b bool) ObjParam { return ObjParam{IsBool: true, Bool: b} }

func (p ObjParam) String() string {
	switch {
	case p.IsGroup:
		return fmt.Sprintf("%d", p.Group.Numeric)
	case p.IsBool:
		if p.Bool {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprintf("%g", p.Number)
	}
}

// GDObj is one emitted GD object: a parameter map keyed by GD parameter
// number, holding the context-derived defaults alongside the rest. The map
// is unordered; internal/levelstring sorts the keys when writing.
type GDObj struct {
	Params map[int]ObjParam
}

// ContextTrigger starts a new object; the context-derived parameters are
// filled in by ContextParameters.
func ContextTrigger() GDObj {
	return GDObj{Params: make(map[int]ObjParam)}
}

// ContextParameters fills in group membership and the spawn-triggered
// flag from the context.
func (o GDObj) ContextParameters(ctx *gdctx.Context) GDObj {
	o.Params[ParamGroups] = GroupParam(ctx.StartGroup)
	o.Params[ParamSpawnOnly] = BoolParam(ctx.SpawnTriggered)
	return o
}

// FuncObjects is the object list emitted for one function id.
type FuncObjects struct {
	ObjList []GDObj
}

// Emitter owns one FuncObjects list per func_id, indexed by CompilerInfo's
// func_id field.
type Emitter struct {
	funcs []FuncObjects
}

// NewEmitter creates an Emitter with a single func_id 0 (the top-level
// scope) already present.
func NewEmitter() *Emitter {
	return &Emitter{funcs: []FuncObjects{{}}}
}

// EnsureFuncID grows the emitter's function-id table so funcID is valid and
// returns nothing; callers then use Append(funcID, ...).
func (e *Emitter) EnsureFuncID(funcID int) {
	for len(e.funcs) <= funcID {
		e.funcs = append(e.funcs, FuncObjects{})
	}
}

// Append appends obj to func_ids[funcID].obj_list.
func (e *Emitter) Append(funcID int, obj GDObj) {
	e.EnsureFuncID(funcID)
	e.funcs[funcID].ObjList = append(e.funcs[funcID].ObjList, obj)
}

// FuncIDs returns the full per-function-id object lists.
func (e *Emitter) FuncIDs() []FuncObjects {
	return e.funcs
}
