// Package gdparser turns spwn source text into the gdast statement tree
// the scope compiler consumes.
package gdparser

// ParseNotes carries the "closed" identifier sets a parse discovers —
// every explicit id literal (e.g. `10g`) the source mentions — so the ID
// Pool never hands out a number the program already uses explicitly.
type ParseNotes struct {
	ClosedGroups []uint16
	ClosedColors []uint16
	ClosedItems  []uint16
	ClosedBlocks []uint16
}
