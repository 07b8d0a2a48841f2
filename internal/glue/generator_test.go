package glue

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

const sampleFirmware = `#include <Arduino.h>

// pin assignments
int LED_PIN = 2;
uint32_t blink_interval = 500;
String device_name = "esp32";
char* owner_name;
char status_buf[16];
const int BOOT_PIN = 0;

void ai_test_setup() {
  int local_only = 1;
  pinMode(LED_PIN, OUTPUT);
}

void ai_test_loop() {
  digitalWrite(LED_PIN, HIGH);
}
`

func writeSource(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "ai.cpp")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestGenerator_Generate(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, sampleFirmware)
	out := filepath.Join(dir, "ai_vars_gen.h")

	gen := NewGenerator(arbor.NewLogger())
	artifact, err := gen.Generate(src, out)
	require.NoError(t, err)
	require.NotNil(t, artifact)

	// const BOOT_PIN excluded, locals excluded.
	names := make([]string, 0, len(artifact.Variables))
	for _, v := range artifact.Variables {
		names = append(names, v.Name)
	}
	assert.Equal(t, []string{"LED_PIN", "blink_interval", "device_name", "owner_name", "status_buf"}, names)

	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, artifact.Header, string(written))
}

func TestGenerator_MissingInputIsSilentNoOp(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "ai_vars_gen.h")

	gen := NewGenerator(arbor.NewLogger())
	artifact, err := gen.Generate(filepath.Join(dir, "does_not_exist.cpp"), out)

	assert.NoError(t, err)
	assert.Nil(t, artifact)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "no artifact may be produced for missing input")
}

func TestGenerator_Idempotent(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, sampleFirmware)
	out := filepath.Join(dir, "ai_vars_gen.h")

	gen := NewGenerator(arbor.NewLogger())

	_, err := gen.Generate(src, out)
	require.NoError(t, err)
	first, err := os.ReadFile(out)
	require.NoError(t, err)

	_, err = gen.Generate(src, out)
	require.NoError(t, err)
	second, err := os.ReadFile(out)
	require.NoError(t, err)

	assert.Equal(t, first, second, "re-running on unchanged input must reproduce the artifact byte for byte")
}

func TestGenerator_WriteFailurePropagates(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, sampleFirmware)

	gen := NewGenerator(arbor.NewLogger())
	_, err := gen.Generate(src, filepath.Join(dir, "no-such-dir", "ai_vars_gen.h"))
	assert.Error(t, err)
}

func TestGenerator_MalformedSourceYieldsEmptySet(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "garbage )))) {{{ /* unclosed\n")
	out := filepath.Join(dir, "ai_vars_gen.h")

	gen := NewGenerator(arbor.NewLogger())
	artifact, err := gen.Generate(src, out)

	require.NoError(t, err)
	require.NotNil(t, artifact)
	assert.Empty(t, artifact.Variables)
	assert.Contains(t, artifact.Header, "return false;")
}
