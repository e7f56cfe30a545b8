package gdctx

import "github.com/orizon-lang/spwn/internal/gdvalue"

// Outcome is a (slot, context) pair, the unit both expression evaluation
// and scope compilation fan out into.
type Outcome struct {
	Slot gdvalue.Slot
	Ctx  *Context
}

// Returns is the accumulated sequence of (slot, context) pairs escaping a
// scope via Return statements.
type Returns []Outcome
