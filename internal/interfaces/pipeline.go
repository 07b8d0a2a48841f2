package interfaces

import (
	"context"

	"github.com/ternarybob/solder/internal/models"
)

// PipelineService runs the full generate -> glue -> build -> flash sequence
// for one job, updating the job record at each stage transition
type PipelineService interface {
	Run(ctx context.Context, job *models.FirmwareJob) error
}
