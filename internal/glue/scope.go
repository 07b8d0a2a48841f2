// -----------------------------------------------------------------------
// Scope reducer - collapses a firmware translation unit down to the text
// visible at brace-nesting depth zero, with comments removed first so they
// can never contribute brace characters to the depth count.
// -----------------------------------------------------------------------

package glue

import (
	"regexp"
	"strings"
)

var (
	blockCommentPattern = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineCommentPattern  = regexp.MustCompile(`//[^\n]*`)
)

// stripComments removes block comments, then line comments. An unterminated
// block comment consumes the rest of the input.
func stripComments(source string) string {
	text := blockCommentPattern.ReplaceAllString(source, "")
	if idx := strings.Index(text, "/*"); idx >= 0 {
		text = text[:idx]
	}
	return lineCommentPattern.ReplaceAllString(text, "")
}

// Reduce returns the characters of source that sit at global scope. Braces
// themselves are never emitted. Unbalanced closing braces clamp the depth at
// zero so malformed input degrades instead of corrupting the scan.
func Reduce(source string) string {
	text := stripComments(source)

	var out strings.Builder
	out.Grow(len(text))

	depth := 0
	for _, ch := range text {
		switch ch {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		default:
			if depth == 0 {
				out.WriteRune(ch)
			}
		}
	}

	return out.String()
}
