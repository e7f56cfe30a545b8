// Package gdvalue implements the compile-time value model:
// a closed, tagged Value variant and an append-only, lifetime-counted Value
// Store that backs every binding the scope compiler creates.
package gdvalue

import (
	"fmt"

	"github.com/orizon-lang/spwn/internal/idpool"
)

// Kind tags which variant of the closed Value union is populated.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindStr
	KindArray
	KindDict
	KindGroup
	KindColor
	KindItem
	KindBlock
	KindFunc
	KindBuiltinFunction
	KindBuiltins
	KindTypeIndicator
)

// String names a Kind for error messages (e.g. TypeError reporting).
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindStr:
		return "string"
	case KindArray:
		return "array"
	case KindDict:
		return "dictionary"
	case KindGroup:
		return "group"
	case KindColor:
		return "color"
	case KindItem:
		return "item"
	case KindBlock:
		return "collision block"
	case KindFunc:
		return "function"
	case KindBuiltinFunction:
		return "built-in function"
	case KindBuiltins:
		return "builtins"
	case KindTypeIndicator:
		return "type-indicator"
	default:
		return fmt.Sprintf("unknown kind(%d)", int(k))
	}
}

// TypeID identifies a user-defined nominal type.
type TypeID int

// Slot is a stable index into a Store. Two reserved slots exist at
// well-known positions: BuiltinsSlot holds the Builtins sentinel and
// NullSlot holds Null.
type Slot int

const (
	BuiltinsSlot Slot = 0
	NullSlot     Slot = 1
)

// Value is a closed tagged variant. Every evaluator and compiler branch
// that inspects a Value must dispatch on Kind
// exhaustively; there is no default "any other value" case that silently
// succeeds.
type Value struct {
	Kind Kind

	Bool   bool
	Number float64
	Str    string

	Array []Slot
	Dict  map[string]Slot

	// Identifier backs Group/Color/Item/Block.
	Identifier idpool.ID

	// FuncStartGroup backs Func: the group a call to this function spawns.
	FuncStartGroup idpool.ID

	BuiltinName string

	TypeID TypeID
}

// Null is the canonical Null value.
func Null() Value { return Value{Kind: KindNull} }

// Builtins is the canonical Builtins sentinel value.
func Builtins() Value { return Value{Kind: KindBuiltins} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Number wraps a float64.
func Number(n float64) Value { return Value{Kind: KindNumber, Number: n} }

// Str wraps a string.
func Str(s string) Value { return Value{Kind: KindStr, Str: s} }

// Array wraps a slice of slots.
func Array(slots []Slot) Value { return Value{Kind: KindArray, Array: slots} }

// Dict wraps a name->slot mapping.
func Dict(entries map[string]Slot) Value { return Value{Kind: KindDict, Dict: entries} }

// Group wraps a Group identifier.
func Group(id idpool.ID) Value { return Value{Kind: KindGroup, Identifier: id} }

// Color wraps a Color identifier.
func Color(id idpool.ID) Value { return Value{Kind: KindColor, Identifier: id} }

// Item wraps an Item identifier.
func Item(id idpool.ID) Value { return Value{Kind: KindItem, Identifier: id} }

// Block wraps a CollisionBlock identifier.
func Block(id idpool.ID) Value { return Value{Kind: KindBlock, Identifier: id} }

// Func wraps a user function's start group, unique among all Func values
// emitted so far (guaranteed by the ID Pool).
func Func(startGroup idpool.ID) Value { return Value{Kind: KindFunc, FuncStartGroup: startGroup} }

// BuiltinFunction wraps a built-in function reference by name; the body is
// resolved elsewhere.
func BuiltinFunction(name string) Value { return Value{Kind: KindBuiltinFunction, BuiltinName: name} }

// TypeIndicator wraps a reference to a user-defined type id.
func TypeIndicator(id TypeID) Value { return Value{Kind: KindTypeIndicator, TypeID: id} }

// Clone makes a shallow, independent copy of a value suitable for the
// assignment-copies-not-aliases rule: Array/Dict get fresh
// backing slices/maps of the same slot references (the slots themselves are
// still aliased; only the container is duplicated).
func (v Value) Clone() Value {
	switch v.Kind {
	case KindArray:
		cp := make([]Slot, len(v.Array))
		copy(cp, v.Array)
		v.Array = cp
	case KindDict:
		cp := make(map[string]Slot, len(v.Dict))
		for k, s := range v.Dict {
			cp[k] = s
		}
		v.Dict = cp
	}
	return v
}
