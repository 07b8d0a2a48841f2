package glue

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitHeader_IncludeGuardAndPrologue(t *testing.T) {
	header := EmitHeader(nil)

	assert.True(t, strings.HasPrefix(header, "#ifndef AI_VARS_GEN_H"))
	assert.Contains(t, header, "#define AI_VARS_GEN_H")
	assert.Contains(t, header, "#include <Arduino.h>")
	assert.True(t, strings.HasSuffix(header, "#endif\n"))
}

func TestEmitHeader_EmptyDeclarations(t *testing.T) {
	header := EmitHeader(nil)

	// The dispatch function is still emitted; it just never matches.
	assert.Contains(t, header, "inline bool updateVariableGeneric(String name, String value) {")
	assert.Contains(t, header, "return false;")
	assert.NotContains(t, header, "extern")
}

func TestEmitHeader_ExternBranchRoundTrip(t *testing.T) {
	decls := Extract("int counter;\nString label;\nchar* owner;\nchar buf[8];")
	require.Len(t, decls, 4)

	header := EmitHeader(decls)

	// Every emitted branch has exactly one matching extern, and vice versa.
	assert.Equal(t, 4, strings.Count(header, "extern "))
	assert.Equal(t, 4, strings.Count(header, "if (name == "))

	assert.Contains(t, header, "extern int counter;")
	assert.Contains(t, header, "extern String label;")
	assert.Contains(t, header, "extern char* owner;")
	assert.Contains(t, header, "extern char buf[8];")

	for _, name := range []string{"counter", "label", "owner", "buf"} {
		assert.Equal(t, 1, strings.Count(header, `if (name == "`+name+`")`), name)
	}
}

func TestEmitHeader_IntegerBranch(t *testing.T) {
	header := EmitHeader(Extract("uint16_t port;"))

	assert.Contains(t, header, "port = (uint16_t)value.toInt();")
	assert.NotContains(t, header, "pinMode")
}

func TestEmitHeader_LedPinConvention(t *testing.T) {
	header := EmitHeader(Extract("int LED_PIN;"))

	// Assignment and the pin-output side effect, both inside the branch.
	idxAssign := strings.Index(header, "LED_PIN = (int)value.toInt();")
	idxPinMode := strings.Index(header, "pinMode(LED_PIN, OUTPUT);")
	idxReturn := strings.Index(header, "return true;")

	require.GreaterOrEqual(t, idxAssign, 0)
	require.GreaterOrEqual(t, idxPinMode, 0)
	assert.Less(t, idxAssign, idxPinMode, "assignment precedes pinMode")
	assert.Less(t, idxPinMode, idxReturn, "pinMode precedes the branch return")
}

func TestEmitHeader_LedPinSubstringMatch(t *testing.T) {
	// The convention is a substring check on the resolved name.
	header := EmitHeader(Extract("int STATUS_LED_PIN;"))
	assert.Contains(t, header, "pinMode(STATUS_LED_PIN, OUTPUT);")
}

func TestEmitHeader_StringBranchAssignsDirectly(t *testing.T) {
	header := EmitHeader(Extract("String label;"))

	assert.Contains(t, header, "label = value;")
	assert.NotContains(t, header, "toInt")
}

func TestEmitHeader_CharPointerLifecycle(t *testing.T) {
	header := EmitHeader(Extract("char* owner;"))

	idxFree := strings.Index(header, "if (owner) free((void*)owner);")
	idxDup := strings.Index(header, "owner = strdup(value.c_str());")

	require.GreaterOrEqual(t, idxFree, 0, "null-guarded release missing")
	require.GreaterOrEqual(t, idxDup, 0, "strdup acquisition missing")
	assert.Less(t, idxFree, idxDup, "prior buffer must be released before acquiring the new one")

	// Exactly one free and one strdup per pointer branch: release-then-
	// acquire happens once per call, never twice.
	assert.Equal(t, 1, strings.Count(header, "free((void*)owner)"))
	assert.Equal(t, 1, strings.Count(header, "strdup(value.c_str())"))
}

func TestEmitHeader_CharArrayBoundedCopy(t *testing.T) {
	header := EmitHeader(Extract("char buf[8];"))

	assert.Contains(t, header, "strncpy(buf, value.c_str(), sizeof(buf)-1);")
	assert.Contains(t, header, "buf[sizeof(buf)-1] = '\\0';")
	// The bound comes from the array itself, never from the input.
	assert.NotContains(t, header, "strcpy(")
}

func TestEmitHeader_PlainCharBranchIsBareSuccess(t *testing.T) {
	header := EmitHeader(Extract("char c;"))

	assert.Contains(t, header, `if (name == "c") {`)
	assert.NotContains(t, header, "strncpy")
	assert.NotContains(t, header, "strdup")
}

func TestEmitHeader_Deterministic(t *testing.T) {
	decls := Extract("int a;\nchar* b;\nchar c[4];\nString d;")

	first := EmitHeader(decls)
	second := EmitHeader(decls)
	assert.Equal(t, first, second)
}
