// Package gdinfo carries the CompilerInfo breadcrumb trail and the closed
// error-kind hierarchy every core component returns through.
// It is a leaf package (no dependency on gdcompiler/evaluator) so that both
// can depend on it without a cycle.
package gdinfo

import (
	"fmt"
	"strings"

	"github.com/orizon-lang/spwn/internal/idpool"
	"github.com/orizon-lang/spwn/internal/position"
)

// CompilerInfo is the snapshot attached to every error: current
// source line/col, call-path breadcrumbs, current func_id, and scope depth.
type CompilerInfo struct {
	Pos    position.Position
	Path   []string
	FuncID int
	Depth  int
}

// Next returns a copy of info with breadcrumb appended to Path, optionally
// descending one scope depth. FuncID changes only at explicit user-function
// definitions (see gdcompiler.compileFunctionLiteral); Next itself is a
// pure breadcrumb/depth helper.
func (info CompilerInfo) Next(breadcrumb string, newScope bool) CompilerInfo {
	next := info
	next.Path = append(append([]string{}, info.Path...), breadcrumb)
	if newScope {
		next.Depth++
	}
	return next
}

// WithPos returns a copy of info with its position updated to the given
// statement's span start.
func (info CompilerInfo) WithPos(pos position.Position) CompilerInfo {
	next := info
	next.Pos = pos
	return next
}

func (info CompilerInfo) breadcrumbs() string {
	return strings.Join(info.Path, " > ")
}

// ErrorKind is the closed set of fatal error categories.
type ErrorKind int

const (
	KindUndefined ErrorKind = iota
	KindPackageSyntax
	KindID
	KindType
	KindRuntime
	KindBuiltin
)

func (k ErrorKind) String() string {
	switch k {
	case KindUndefined:
		return "Undefined"
	case KindPackageSyntax:
		return "PackageSyntax"
	case KindID:
		return "ID"
	case KindType:
		return "Type"
	case KindRuntime:
		return "Runtime"
	case KindBuiltin:
		return "Builtin"
	default:
		return "Unknown"
	}
}

// CompileError is the single error type every core component returns;
// every failure in any branch aborts the
// whole compilation; no error is recovered locally.
type CompileError struct {
	Kind    ErrorKind
	Message string
	Info    CompilerInfo

	// Undefined-kind fields.
	Name string
	Role string

	// ID-kind field.
	IDClass idpool.Class

	// Type-kind fields.
	Expected string
	Found    string

	// Wrapped underlying error (PackageSyntax wraps the parser's error).
	Wrapped error
}

func (e *CompileError) Error() string {
	loc := fmt.Sprintf("line %d, pos %d", e.Info.Pos.Line, e.Info.Pos.Column)
	switch e.Kind {
	case KindUndefined:
		return fmt.Sprintf("%s '%s' is not defined at %s", e.Role, e.Name, loc)
	case KindPackageSyntax:
		return fmt.Sprintf("error when parsing library at %s: %v", loc, e.Wrapped)
	case KindID:
		return fmt.Sprintf("ran out of %s at %s", e.IDClass, loc)
	case KindType:
		return fmt.Sprintf("type mismatch: expected %s, found %s (%s)", e.Expected, e.Found, loc)
	case KindRuntime:
		if len(e.Info.Path) > 0 {
			return fmt.Sprintf("%s (%s, in %s)", e.Message, loc, e.Info.breadcrumbs())
		}
		return fmt.Sprintf("%s (%s)", e.Message, loc)
	case KindBuiltin:
		return fmt.Sprintf("error when calling built-in function: %s (%s)", e.Message, loc)
	default:
		return fmt.Sprintf("compile error (%s): %s", loc, e.Message)
	}
}

func (e *CompileError) Unwrap() error { return e.Wrapped }

// Undefined builds a KindUndefined error.
func Undefined(info CompilerInfo, name, role string) *CompileError {
	return &CompileError{Kind: KindUndefined, Info: info, Name: name, Role: role}
}

// PackageSyntax builds a KindPackageSyntax error wrapping a parser failure.
func PackageSyntax(info CompilerInfo, wrapped error) *CompileError {
	return &CompileError{Kind: KindPackageSyntax, Info: info, Wrapped: wrapped}
}

// ID builds a KindID error for an exhausted identifier class.
func ID(info CompilerInfo, class idpool.Class) *CompileError {
	return &CompileError{Kind: KindID, Info: info, IDClass: class}
}

// Type builds a KindType error for an expected-vs-found mismatch.
func Type(info CompilerInfo, expected, found string) *CompileError {
	return &CompileError{Kind: KindType, Info: info, Expected: expected, Found: found}
}

// Runtime builds a free-form KindRuntime error.
func Runtime(info CompilerInfo, message string) *CompileError {
	return &CompileError{Kind: KindRuntime, Info: info, Message: message}
}

// Builtin builds a KindBuiltin error for a built-in's domain failure.
func Builtin(info CompilerInfo, message string) *CompileError {
	return &CompileError{Kind: KindBuiltin, Info: info, Message: message}
}
