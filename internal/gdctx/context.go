// Package gdctx implements the Context evaluation environment:
// variable bindings, per-type implementation tables, the current spawn
// group, and the spawn-triggered flag. Contexts are values — cloning one
// duplicates bindings while aliasing the slots behind them.
package gdctx

import (
	"github.com/orizon-lang/spwn/internal/gdvalue"
	"github.com/orizon-lang/spwn/internal/idpool"
)

// RootGroup is Group(0), the ambient group the GD level runs in.
var RootGroup = idpool.ID{Class: idpool.ClassGroup, Numeric: 0}

// Context is one compile-time evaluation environment; several may exist
// at once to represent branching.
type Context struct {
	Variables       map[string]gdvalue.Slot
	Implementations map[gdvalue.TypeID]map[string]gdvalue.Slot
	StartGroup      idpool.ID
	SpawnTriggered  bool
}

// New creates an empty context rooted at Group(0).
func New() *Context {
	return &Context{
		Variables:       make(map[string]gdvalue.Slot),
		Implementations: make(map[gdvalue.TypeID]map[string]gdvalue.Slot),
		StartGroup:      RootGroup,
	}
}

// Clone duplicates the context's bindings into fresh maps; the slots
// themselves are aliased, never the values behind them.
func (c *Context) Clone() *Context {
	vars := make(map[string]gdvalue.Slot, len(c.Variables))
	for k, v := range c.Variables {
		vars[k] = v
	}
	impls := make(map[gdvalue.TypeID]map[string]gdvalue.Slot, len(c.Implementations))
	for tid, members := range c.Implementations {
		m := make(map[string]gdvalue.Slot, len(members))
		for name, slot := range members {
			m[name] = slot
		}
		impls[tid] = m
	}
	return &Context{
		Variables:       vars,
		Implementations: impls,
		StartGroup:      c.StartGroup,
		SpawnTriggered:  c.SpawnTriggered,
	}
}

// MergeImplementations merges one implementation table into another: for each
// (type_id -> name->slot) entry in source, if target lacks the type_id the
// whole entry is inserted; otherwise source entries overlay target's,
// source winning on name collision. Used by the Impl statement and by the
// module importer.
func MergeImplementations(target, source map[gdvalue.TypeID]map[string]gdvalue.Slot) {
	for tid, members := range source {
		existing, ok := target[tid]
		if !ok {
			cp := make(map[string]gdvalue.Slot, len(members))
			for name, slot := range members {
				cp[name] = slot
			}
			target[tid] = cp
			continue
		}
		for name, slot := range members {
			existing[name] = slot
		}
	}
}

// CloneVariables returns a fresh copy of just the variable bindings, used
// by the For statement to start each iteration from the loop's entry
// bindings.
func CloneVariables(vars map[string]gdvalue.Slot) map[string]gdvalue.Slot {
	cp := make(map[string]gdvalue.Slot, len(vars))
	for k, v := range vars {
		cp[k] = v
	}
	return cp
}
