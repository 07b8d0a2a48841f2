package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/solder/internal/common"
	"github.com/ternarybob/solder/internal/interfaces"
	"github.com/ternarybob/solder/internal/models"
)

func newTestDB(t *testing.T) *BadgerDB {
	t.Helper()

	db, err := NewBadgerDB(arbor.NewLogger(), &common.BadgerConfig{
		Path: t.TempDir() + "/badger",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestJobStorage_SaveAndGet(t *testing.T) {
	db := newTestDB(t)
	storage := NewJobStorage(db, arbor.NewLogger())
	ctx := context.Background()

	job := &models.FirmwareJob{
		ID:        "job_test-1",
		Prompt:    "blink the LED",
		DeviceIP:  "192.168.1.50",
		Status:    models.JobStatusPending,
		Stage:     models.StageGenerate,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, storage.SaveJob(ctx, job))

	got, err := storage.GetJob(ctx, "job_test-1")
	require.NoError(t, err)
	assert.Equal(t, job.Prompt, got.Prompt)
	assert.Equal(t, models.JobStatusPending, got.Status)
}

func TestJobStorage_RequiresID(t *testing.T) {
	db := newTestDB(t)
	storage := NewJobStorage(db, arbor.NewLogger())

	err := storage.SaveJob(context.Background(), &models.FirmwareJob{})
	assert.Error(t, err)
}

func TestJobStorage_GetMissing(t *testing.T) {
	db := newTestDB(t)
	storage := NewJobStorage(db, arbor.NewLogger())

	_, err := storage.GetJob(context.Background(), "job_nope")
	assert.Error(t, err)
}

func TestJobStorage_ListFiltersByStatus(t *testing.T) {
	db := newTestDB(t)
	storage := NewJobStorage(db, arbor.NewLogger())
	ctx := context.Background()

	base := time.Now()
	for i, status := range []models.JobStatus{
		models.JobStatusCompleted,
		models.JobStatusFailed,
		models.JobStatusCompleted,
	} {
		job := &models.FirmwareJob{
			ID:        common.NewJobID(),
			Status:    status,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
			UpdatedAt: base,
		}
		require.NoError(t, storage.SaveJob(ctx, job))
	}

	completed, err := storage.ListJobs(ctx, &interfaces.JobListOptions{Status: models.JobStatusCompleted})
	require.NoError(t, err)
	assert.Len(t, completed, 2)

	all, err := storage.ListJobs(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	// Newest first
	assert.True(t, !all[0].CreatedAt.Before(all[1].CreatedAt))

	count, err := storage.CountJobs(ctx, models.JobStatusFailed)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGlueStorage_LatestArtifactVariablesRoundTrip(t *testing.T) {
	db := newTestDB(t)
	storage := NewGlueStorage(db, arbor.NewLogger())
	ctx := context.Background()

	empty, err := storage.LatestArtifact(ctx)
	require.NoError(t, err)
	assert.Nil(t, empty)

	older := &models.GlueArtifact{
		SourcePath:  "firmware/src/old.cpp",
		GeneratedAt: time.Now().Add(-time.Hour),
	}
	newer := &models.GlueArtifact{
		SourcePath: "firmware/src/ai.cpp",
		Variables: []models.VariableDeclaration{
			{Type: models.VarTypeInt, Name: "counter", RawType: "int", RawName: "counter"},
		},
		GeneratedAt: time.Now(),
	}
	require.NoError(t, storage.SaveArtifact(ctx, older))
	require.NoError(t, storage.SaveArtifact(ctx, newer))

	latest, err := storage.LatestArtifact(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "firmware/src/ai.cpp", latest.SourcePath)
	require.Len(t, latest.Variables, 1)
	assert.Equal(t, "counter", latest.Variables[0].Name)
}
