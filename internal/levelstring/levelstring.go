// Package levelstring serializes emitted trigger objects into the textual
// GD object format: each object is its "key,value" parameter pairs joined
// by commas, terminated by a semicolon. Parameter keys are written in
// ascending order so identical compilations produce identical output.
package levelstring

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/orizon-lang/spwn/internal/trigger"
)

// Serialize renders every object across all function-id lists, in
// function-id order then emission order.
func Serialize(funcs []trigger.FuncObjects) string {
	var b strings.Builder
	for _, f := range funcs {
		for _, obj := range f.ObjList {
			writeObj(&b, obj)
		}
	}
	return b.String()
}

// Write streams the serialized form to w.
func Write(w io.Writer, funcs []trigger.FuncObjects) error {
	_, err := io.WriteString(w, Serialize(funcs))
	return err
}

func writeObj(b *strings.Builder, obj trigger.GDObj) {
	keys := make([]int, 0, len(obj.Params))
	for k := range obj.Params {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(b, "%d,%s", k, obj.Params[k])
	}
	b.WriteByte(';')
}
