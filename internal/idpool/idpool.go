// Package idpool implements the GD identifier allocator: a
// monotonic allocator of fresh Group/Color/Item/CollisionBlock identifiers,
// capped at 999 per class and seeded from the parser's "closed" id sets.
package idpool

import "fmt"

// Class identifies one of the four GD identifier namespaces.
type Class int

const (
	ClassGroup Class = iota
	ClassColor
	ClassItem
	ClassBlock
)

// String returns the display name used in IDError messages.
func (c Class) String() string {
	switch c {
	case ClassGroup:
		return "groups"
	case ClassColor:
		return "colors"
	case ClassItem:
		return "item IDs"
	case ClassBlock:
		return "collision block IDs"
	default:
		return fmt.Sprintf("unknown id class(%d)", int(c))
	}
}

// MaxID is the highest numeric id a single class may hand out.
const MaxID = 999

// ID is a tagged (class, numeric) identifier pair.
type ID struct {
	Class   Class
	Numeric uint16
}

func (id ID) String() string {
	return fmt.Sprintf("%s:%d", id.Class, id.Numeric)
}

// Error reports ID Pool exhaustion for a class.
type Error struct {
	Class Class
}

func (e *Error) Error() string {
	return fmt.Sprintf("ran out of %s", e.Class)
}

// Pool allocates fresh identifiers per class. A zero Pool is not usable;
// construct with New. Allocation is deterministic given a fixed seed and
// call order, since each class scans 1..=999 in order and never
// re-emits a numeric value already marked used.
type Pool struct {
	used [4]map[uint16]struct{}
}

// New creates a Pool, seeding each class's used-set from the parser's
// closed id sets (ParseNotes.Closed*).
func New(closedGroups, closedColors, closedItems, closedBlocks []uint16) *Pool {
	p := &Pool{}
	for i := range p.used {
		p.used[i] = make(map[uint16]struct{})
	}
	p.Seed(closedGroups, closedColors, closedItems, closedBlocks)
	return p
}

// Seed marks additional closed ids as used without error, even if already
// marked. Used both by New and by the Module Importer, which
// must fold an imported module's own literal-id usages into the
// compilation-wide pool after construction.
func (p *Pool) Seed(closedGroups, closedColors, closedItems, closedBlocks []uint16) {
	mark := func(class Class, ids []uint16) {
		for _, id := range ids {
			p.used[class][id] = struct{}{}
		}
	}
	mark(ClassGroup, closedGroups)
	mark(ClassColor, closedColors)
	mark(ClassItem, closedItems)
	mark(ClassBlock, closedBlocks)
}

// NextFree scans 1..=999 for the class and returns the first numeric value
// not already in the used-set, marking it used. Fails with *Error once the
// class is exhausted.
func (p *Pool) NextFree(class Class) (ID, error) {
	used := p.used[class]
	for i := uint16(1); i <= MaxID; i++ {
		if _, taken := used[i]; !taken {
			used[i] = struct{}{}
			return ID{Class: class, Numeric: i}, nil
		}
	}
	return ID{}, &Error{Class: class}
}

// Used reports whether a given numeric id has already been emitted for the
// class or seeded as closed, for tests that rely on ID Pool determinism.
func (p *Pool) Used(class Class, numeric uint16) bool {
	_, ok := p.used[class][numeric]
	return ok
}
