// Package builtins carries the name registry for the language's built-in
// functions. Their bodies are resolved elsewhere; this package only
// supplies the name list the `extract builtins` form binds into scope.
package builtins

// List is the set of built-in function names available to `extract
// builtins`. Bodies are resolved elsewhere (an external collaborator); this
// package exists purely so the Extract statement has a closed name set to
// bind BuiltinFunction values against.
var List = []string{
	"print",
	"add",
	"time",
	"spawn",
	"random",
	"min",
	"max",
	"abs",
	"floor",
	"ceil",
	"round",
	"sqrt",
	"length",
	"split",
	"join",
	"substr",
	"member",
	"has",
	"remove",
	"readfile",
}

// IsBuiltin reports whether name is a known built-in.
func IsBuiltin(name string) bool {
	for _, n := range List {
		if n == name {
			return true
		}
	}
	return false
}
