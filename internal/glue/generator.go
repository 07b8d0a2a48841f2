package glue

import (
	"fmt"
	"os"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/solder/internal/models"
)

// Generator runs the full glue pass: read one firmware translation unit,
// reduce it to global scope, classify declarations, and write the generated
// header. Single-threaded and stateless; concurrent invocations against the
// same output path must be serialized by the caller.
type Generator struct {
	logger arbor.ILogger
}

// NewGenerator creates a new glue generator
func NewGenerator(logger arbor.ILogger) *Generator {
	return &Generator{logger: logger}
}

// Generate reads srcPath, synthesizes the glue header, and writes it to
// outPath. A missing input is a silent no-op: no artifact, nil error -
// callers check the returned artifact, not the error, for that case.
// Malformed source never fails; it just yields fewer (or no) variables.
func (g *Generator) Generate(srcPath, outPath string) (*models.GlueArtifact, error) {
	if _, err := os.Stat(srcPath); os.IsNotExist(err) {
		g.logger.Debug().
			Str("src", srcPath).
			Msg("Glue source missing, skipping generation")
		return nil, nil
	}

	data, err := os.ReadFile(srcPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read firmware source %s: %w", srcPath, err)
	}

	reduced := Reduce(string(data))
	decls := Extract(reduced)
	header := EmitHeader(decls)

	if err := os.WriteFile(outPath, []byte(header), 0644); err != nil {
		return nil, fmt.Errorf("failed to write glue header %s: %w", outPath, err)
	}

	g.logger.Info().
		Str("src", srcPath).
		Str("out", outPath).
		Int("variables", len(decls)).
		Msg("Glue header generated")

	return &models.GlueArtifact{
		SourcePath:  srcPath,
		Variables:   decls,
		Header:      header,
		GeneratedAt: time.Now(),
	}, nil
}
