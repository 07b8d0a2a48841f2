package generator

import (
	"regexp"
	"strings"
)

// codeFencePattern matches a fenced code block with an optional language tag
var codeFencePattern = regexp.MustCompile("(?s)```(?:[a-zA-Z+]*)\\n(.*?)```")

// StripCodeFences extracts source from a markdown-fenced model response.
// When the response contains a fenced block, only the first block's body is
// returned; otherwise the response is returned trimmed.
func StripCodeFences(response string) string {
	if matches := codeFencePattern.FindStringSubmatch(response); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}
	return strings.TrimSpace(response)
}

// RenameEntryPoints rewrites the Arduino entry points so the generated unit
// links alongside the resident supervisor sketch. The device firmware owns
// the real setup()/loop() and calls these renamed hooks.
func RenameEntryPoints(code string) string {
	code = strings.ReplaceAll(code, "void loop()", "void ai_test_loop()")
	code = strings.ReplaceAll(code, "void setup()", "void ai_test_setup()")
	return code
}

// HasStopGuard reports whether the generated code references the shared
// shouldStop flag. Code without the guard cannot be interrupted by the
// supervisor and must be regenerated.
func HasStopGuard(code string) bool {
	return strings.Contains(code, "shouldStop")
}

// Sanitize applies all post-generation rewrites in order
func Sanitize(response string) string {
	return RenameEntryPoints(StripCodeFences(response))
}
