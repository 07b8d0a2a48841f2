package interfaces

import (
	"context"

	"github.com/ternarybob/solder/internal/models"
)

// JobListOptions filters and pages job listings
type JobListOptions struct {
	Status models.JobStatus
	Limit  int
	Offset int
}

// JobStorage persists firmware generation job records
type JobStorage interface {
	SaveJob(ctx context.Context, job *models.FirmwareJob) error
	GetJob(ctx context.Context, jobID string) (*models.FirmwareJob, error)
	ListJobs(ctx context.Context, opts *JobListOptions) ([]*models.FirmwareJob, error)
	CountJobs(ctx context.Context, status models.JobStatus) (int, error)
}

// GlueStorage persists the variable sets discovered by glue passes
type GlueStorage interface {
	SaveArtifact(ctx context.Context, artifact *models.GlueArtifact) error
	GetArtifact(ctx context.Context, sourcePath string) (*models.GlueArtifact, error)
	LatestArtifact(ctx context.Context) (*models.GlueArtifact, error)
}

// StorageManager owns the database connection and exposes typed stores
type StorageManager interface {
	JobStorage() JobStorage
	GlueStorage() GlueStorage
	Close() error
}
