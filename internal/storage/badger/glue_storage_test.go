package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/solder/internal/models"
)

func newGlueArtifact(sourcePath string, generatedAt time.Time) *models.GlueArtifact {
	return &models.GlueArtifact{
		SourcePath: sourcePath,
		Variables: []models.VariableDeclaration{
			{Type: models.VarTypeInt, RawType: "int", Name: "ledDelay", RawName: "ledDelay"},
		},
		Header:      "// generated",
		GeneratedAt: generatedAt,
	}
}

func TestGlueStorage_SaveAndGet(t *testing.T) {
	db := newTestDB(t)
	storage := NewGlueStorage(db, arbor.NewLogger())
	ctx := context.Background()

	artifact := newGlueArtifact("/fw/src/ai.cpp", time.Now())
	require.NoError(t, storage.SaveArtifact(ctx, artifact))

	got, err := storage.GetArtifact(ctx, "/fw/src/ai.cpp")
	require.NoError(t, err)
	require.Len(t, got.Variables, 1)
	assert.Equal(t, "ledDelay", got.Variables[0].Name)
}

func TestGlueStorage_SaveRequiresSourcePath(t *testing.T) {
	db := newTestDB(t)
	storage := NewGlueStorage(db, arbor.NewLogger())

	err := storage.SaveArtifact(context.Background(), &models.GlueArtifact{})
	assert.Error(t, err)
}

func TestGlueStorage_GetMissing(t *testing.T) {
	db := newTestDB(t)
	storage := NewGlueStorage(db, arbor.NewLogger())

	_, err := storage.GetArtifact(context.Background(), "/nope.cpp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestGlueStorage_SaveOverwrites(t *testing.T) {
	db := newTestDB(t)
	storage := NewGlueStorage(db, arbor.NewLogger())
	ctx := context.Background()

	first := newGlueArtifact("/fw/src/ai.cpp", time.Now())
	require.NoError(t, storage.SaveArtifact(ctx, first))

	second := newGlueArtifact("/fw/src/ai.cpp", time.Now())
	second.Variables = append(second.Variables, models.VariableDeclaration{
		Type: models.VarTypeString, RawType: "String", Name: "message", RawName: "message",
	})
	require.NoError(t, storage.SaveArtifact(ctx, second))

	got, err := storage.GetArtifact(ctx, "/fw/src/ai.cpp")
	require.NoError(t, err)
	assert.Len(t, got.Variables, 2)
}

func TestGlueStorage_LatestArtifact(t *testing.T) {
	db := newTestDB(t)
	storage := NewGlueStorage(db, arbor.NewLogger())
	ctx := context.Background()

	// Empty store returns nil without error
	got, err := storage.LatestArtifact(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	older := newGlueArtifact("/fw/src/old.cpp", time.Now().Add(-time.Hour))
	newer := newGlueArtifact("/fw/src/ai.cpp", time.Now())
	require.NoError(t, storage.SaveArtifact(ctx, older))
	require.NoError(t, storage.SaveArtifact(ctx, newer))

	got, err = storage.LatestArtifact(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "/fw/src/ai.cpp", got.SourcePath)
}
