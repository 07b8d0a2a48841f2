package models

import "time"

// JobStatus represents the state of a firmware generation job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// JobStage identifies the pipeline stage a job is in (or failed at)
type JobStage string

const (
	StageGenerate JobStage = "generate" // LLM code generation and validation
	StageGlue     JobStage = "glue"     // Variable extraction and header synthesis
	StageBuild    JobStage = "build"    // PlatformIO compile
	StagePublish  JobStage = "publish"  // Copy firmware.bin to the artifact dir
	StageFlash    JobStage = "flash"    // OTA trigger against the device
)

// FirmwareJob is one run of the generate -> glue -> build -> flash pipeline.
// The prompt and device address are snapshot at creation so the record is
// self-contained and auditable after config changes.
type FirmwareJob struct {
	ID       string    `json:"id" badgerhold:"key"`
	Prompt   string    `json:"prompt"`
	DeviceIP string    `json:"device_ip"`
	Status   JobStatus `json:"status" badgerhold:"index"`
	Stage    JobStage  `json:"stage"`
	Error    string    `json:"error,omitempty"`

	// Stage outputs
	Variables   []VariableDeclaration `json:"variables,omitempty"`
	BuildOutput string                `json:"build_output,omitempty"`
	FirmwareURL string                `json:"firmware_url,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// MarkStage moves the job to a new pipeline stage
func (j *FirmwareJob) MarkStage(stage JobStage) {
	j.Stage = stage
	j.Status = JobStatusRunning
	j.UpdatedAt = time.Now()
}

// MarkCompleted finalizes the job as successful
func (j *FirmwareJob) MarkCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
}

// MarkFailed finalizes the job as failed at its current stage
func (j *FirmwareJob) MarkFailed(err error) {
	now := time.Now()
	j.Status = JobStatusFailed
	if err != nil {
		j.Error = err.Error()
	}
	j.UpdatedAt = now
	j.CompletedAt = &now
}
