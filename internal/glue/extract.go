// -----------------------------------------------------------------------
// Declaration classifier - best-effort line scanner over scope-reduced text.
// Not a parser: a line either matches the declaration shape or is skipped.
// -----------------------------------------------------------------------

package glue

import (
	"regexp"
	"strings"

	"github.com/ternarybob/solder/internal/models"
)

// declPattern matches a leading type token, an identifier, and an optional
// bracketed array-size suffix. The type alternatives mirror the mutation
// branches the emitter knows how to generate.
var declPattern = regexp.MustCompile(`^\s*(int\b|uint16_t\b|uint32_t\b|String\b|char\s*\*|char\b)\s*([A-Za-z_][A-Za-z0-9_]*(?:\s*\[\s*\d*\s*\])?)`)

// Extract scans reduced global-scope text line by line and returns the
// declarations eligible for remote mutation, in discovery order.
//
// Any line containing `static` or `const` anywhere is rejected whole. This
// is a textual predicate, not a token check: an identifier such as
// `constant_foo` disqualifies its line too. That over-approximation is
// deliberate and load-bearing (under-extraction is the accepted failure
// mode) - do not tighten it.
func Extract(reduced string) []models.VariableDeclaration {
	var decls []models.VariableDeclaration

	for _, line := range strings.Split(reduced, "\n") {
		if strings.Contains(line, "static") || strings.Contains(line, "const") {
			continue
		}

		m := declPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		rawType := strings.TrimSpace(m[1])
		rawName := strings.TrimSpace(m[2])

		baseName := rawName
		isArray := false
		if idx := strings.Index(rawName, "["); idx >= 0 {
			baseName = strings.TrimSpace(rawName[:idx])
			isArray = true
		}

		decls = append(decls, models.VariableDeclaration{
			Type:    classifyType(rawType),
			RawType: rawType,
			Name:    baseName,
			RawName: rawName,
			IsArray: isArray,
		})
	}

	return decls
}

// classifyType maps the raw matched type token to its category
func classifyType(rawType string) models.VarType {
	switch {
	case strings.Contains(rawType, "*"):
		return models.VarTypeCharPtr
	case rawType == "uint16_t":
		return models.VarTypeUint16
	case rawType == "uint32_t":
		return models.VarTypeUint32
	case rawType == "int":
		return models.VarTypeInt
	case rawType == "String":
		return models.VarTypeString
	default:
		return models.VarTypeChar
	}
}
