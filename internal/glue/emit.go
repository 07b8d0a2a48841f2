// -----------------------------------------------------------------------
// Glue emitter - renders the generated header: one extern per discovered
// variable plus a single name-dispatch mutator with a type-appropriate
// assignment branch per variable.
// -----------------------------------------------------------------------

package glue

import (
	"fmt"
	"strings"

	"github.com/ternarybob/solder/internal/models"
)

const (
	headerPrologue = `#ifndef AI_VARS_GEN_H
#define AI_VARS_GEN_H

#include <Arduino.h>

// Externs
`

	dispatchOpen = `
inline bool updateVariableGeneric(String name, String value) {
`

	headerEpilogue = `  return false;
}

#endif
`
)

// EmitHeader renders the complete glue artifact for the given declarations.
// Output is a pure function of the declaration list, so identical input
// reproduces byte-identical output.
func EmitHeader(decls []models.VariableDeclaration) string {
	var b strings.Builder

	b.WriteString(headerPrologue)
	for _, d := range decls {
		// Array externs keep the bracket text verbatim. Without the size a
		// matching definition must be visible elsewhere; that precondition
		// is on the caller, not validated here.
		fmt.Fprintf(&b, "extern %s %s;\n", d.RawType, d.RawName)
	}

	b.WriteString(dispatchOpen)
	for _, d := range decls {
		writeBranch(&b, d)
	}
	b.WriteString(headerEpilogue)

	return b.String()
}

// writeBranch emits one name-guarded mutation branch
func writeBranch(b *strings.Builder, d models.VariableDeclaration) {
	fmt.Fprintf(b, "  if (name == %q) {\n", d.Name)

	switch d.Type {
	case models.VarTypeInt, models.VarTypeUint16, models.VarTypeUint32:
		fmt.Fprintf(b, "    %s = (%s)value.toInt();\n", d.Name, d.RawType)
		if strings.Contains(d.Name, "LED_PIN") {
			fmt.Fprintf(b, "    pinMode(%s, OUTPUT);\n", d.Name)
		}

	case models.VarTypeString:
		fmt.Fprintf(b, "    %s = value;\n", d.Name)

	case models.VarTypeCharPtr:
		// Release-then-acquire: the dispatch function is the sole owner of
		// the buffer last assigned through it. The null guard makes the
		// first assignment safe; freeing before strdup prevents both the
		// leak and the double-free.
		fmt.Fprintf(b, "    if (%s) free((void*)%s);\n", d.Name, d.Name)
		fmt.Fprintf(b, "    %s = strdup(value.c_str());\n", d.Name)

	case models.VarTypeChar:
		if d.IsArray {
			// Bounded copy with a forced terminator in the final slot:
			// oversized input truncates, never overflows.
			fmt.Fprintf(b, "    strncpy(%s, value.c_str(), sizeof(%s)-1);\n", d.Name, d.Name)
			fmt.Fprintf(b, "    %s[sizeof(%s)-1] = '\\0';\n", d.Name, d.Name)
		}
		// A plain char carries no assignment; the branch still matches and
		// reports success, mirroring the dispatch contract.
	}

	b.WriteString("    return true;\n  }\n")
}
