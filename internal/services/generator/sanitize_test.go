package generator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "cpp fence",
			input:    "Here is the code:\n```cpp\nint x = 1;\n```\nDone.",
			expected: "int x = 1;",
		},
		{
			name:     "bare fence",
			input:    "```\nvoid setup() {}\n```",
			expected: "void setup() {}",
		},
		{
			name:     "no fence returns trimmed input",
			input:    "  int y = 2;  \n",
			expected: "int y = 2;",
		},
		{
			name:     "first fence wins",
			input:    "```cpp\nfirst\n```\ntext\n```cpp\nsecond\n```",
			expected: "first",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripCodeFences(tt.input))
		})
	}
}

func TestRenameEntryPoints(t *testing.T) {
	code := `#include <Arduino.h>
void setup() {
  pinMode(2, OUTPUT);
}
void loop() {
  delay(100);
}`

	renamed := RenameEntryPoints(code)

	assert.Contains(t, renamed, "void ai_test_setup()")
	assert.Contains(t, renamed, "void ai_test_loop()")
	assert.NotContains(t, renamed, "void setup()")
	assert.NotContains(t, renamed, "void loop()")
}

func TestRenameEntryPoints_LeavesOtherFunctionsAlone(t *testing.T) {
	code := "void setupSensors() {}\nvoid loopOnce() {}"
	assert.Equal(t, code, RenameEntryPoints(code))
}

func TestHasStopGuard(t *testing.T) {
	guarded := `extern volatile bool shouldStop;
void loop() {
  if (shouldStop) return;
}`
	assert.True(t, HasStopGuard(guarded))
	assert.False(t, HasStopGuard("void loop() { delay(1); }"))
}

func TestSanitize(t *testing.T) {
	response := "```cpp\nvoid setup() {}\nvoid loop() { if (shouldStop) return; }\n```"

	out := Sanitize(response)

	assert.False(t, strings.Contains(out, "```"))
	assert.Contains(t, out, "void ai_test_setup()")
	assert.Contains(t, out, "void ai_test_loop()")
}
