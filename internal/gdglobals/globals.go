// Package gdglobals holds the compilation-wide state a spwn compilation
// threads through every recursive call: the Value Store, the ID Pool, the
// type-id table, the Trigger Emitter's per-function object lists, and the
// current module path.
package gdglobals

import (
	"io"
	"log"
	"os"

	"github.com/orizon-lang/spwn/internal/gdvalue"
	"github.com/orizon-lang/spwn/internal/idpool"
	"github.com/orizon-lang/spwn/internal/trigger"
)

// Options configures a compilation. The zero value is sane defaults.
type Options struct {
	// Verbose enables the "Building script..." and elapsed-time progress
	// banners; off by default so tests don't depend on output streams.
	Verbose bool
}

// Globals is the compilation-wide state.
type Globals struct {
	Store   *gdvalue.Store
	IDs     *idpool.Pool
	Emitter *trigger.Emitter

	TypeIDs      map[string]gdvalue.TypeID
	typeIDCount  gdvalue.TypeID
	NextFuncID   int
	Path         string
	Options      Options
	Log          *log.Logger
	Diagnostics  io.Writer
}

// New constructs a fresh Globals for compiling the file at path, seeding the
// ID Pool from the parser's closed id sets.
func New(path string, closedGroups, closedColors, closedItems, closedBlocks []uint16, opts Options) *Globals {
	g := &Globals{
		Store:       gdvalue.NewStore(),
		IDs:         idpool.New(closedGroups, closedColors, closedItems, closedBlocks),
		Emitter:     trigger.NewEmitter(),
		TypeIDs:     make(map[string]gdvalue.TypeID),
		NextFuncID:  1,
		Path:        path,
		Options:     opts,
		Log:         log.New(os.Stderr, "", 0),
		Diagnostics: os.Stderr,
	}
	return g
}

// DefineType increments the global type counter and records name -> id,
// returning the freshly minted type id.
func (g *Globals) DefineType(name string) gdvalue.TypeID {
	g.typeIDCount++
	g.TypeIDs[name] = g.typeIDCount
	return g.typeIDCount
}

// AllocFuncID reserves a new function-id slot in the trigger emitter for a
// freshly defined user function and returns it.
func (g *Globals) AllocFuncID() int {
	id := g.NextFuncID
	g.NextFuncID++
	g.Emitter.EnsureFuncID(id)
	return id
}
