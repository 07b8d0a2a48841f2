package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/solder/internal/common"
	"github.com/ternarybob/solder/internal/interfaces"
	"github.com/ternarybob/solder/internal/models"
	"github.com/ternarybob/solder/internal/services/device"
)

// CodeGenerator produces validated firmware source from a prompt
type CodeGenerator interface {
	GenerateFirmware(ctx context.Context, prompt string) (string, error)
}

// GlueRunner synthesizes the variable glue header from firmware source
type GlueRunner interface {
	Generate(srcPath, outPath string) (*models.GlueArtifact, error)
}

// FirmwareBuilder writes, compiles, and publishes firmware
type FirmwareBuilder interface {
	SourcePath() string
	WriteSource(code string) (string, error)
	Build(ctx context.Context) (string, error)
	Publish() (string, error)
}

// Service runs the generate -> glue -> build -> publish -> flash sequence
// for one job. Each stage transition is persisted before the stage runs so
// a crash leaves the job record pointing at the stage that was in flight.
type Service struct {
	generator  CodeGenerator
	glue       GlueRunner
	builder    FirmwareBuilder
	devices    interfaces.DeviceService
	jobs       interfaces.JobStorage
	artifacts  interfaces.GlueStorage
	events     interfaces.EventService
	firmware   *common.FirmwareConfig
	serverPort int
	logger     arbor.ILogger

	// localIP is swappable for tests
	localIP func() string
}

// NewService creates a new pipeline service
func NewService(
	generator CodeGenerator,
	glue GlueRunner,
	builder FirmwareBuilder,
	devices interfaces.DeviceService,
	jobs interfaces.JobStorage,
	artifacts interfaces.GlueStorage,
	events interfaces.EventService,
	firmware *common.FirmwareConfig,
	serverPort int,
	logger arbor.ILogger,
) *Service {
	return &Service{
		generator:  generator,
		glue:       glue,
		builder:    builder,
		devices:    devices,
		jobs:       jobs,
		artifacts:  artifacts,
		events:     events,
		firmware:   firmware,
		serverPort: serverPort,
		logger:     logger,
		localIP:    device.LocalIP,
	}
}

// Run executes the full pipeline for a job. The job record is updated and
// persisted at every transition; the returned error mirrors job.Error.
func (s *Service) Run(ctx context.Context, job *models.FirmwareJob) error {
	log := s.logger.WithCorrelationId(job.ID)

	// Generate
	if err := s.enterStage(ctx, job, models.StageGenerate); err != nil {
		return err
	}
	code, err := s.generator.GenerateFirmware(ctx, job.Prompt)
	if err != nil {
		return s.fail(ctx, job, err)
	}
	if _, err := s.builder.WriteSource(code); err != nil {
		return s.fail(ctx, job, err)
	}

	// Glue
	if err := s.enterStage(ctx, job, models.StageGlue); err != nil {
		return err
	}
	headerPath := filepath.Join(s.firmware.Dir, s.firmware.GlueHeader)
	artifact, err := s.glue.Generate(s.builder.SourcePath(), headerPath)
	if err != nil {
		return s.fail(ctx, job, err)
	}
	if artifact != nil {
		job.Variables = artifact.Variables
		if err := s.artifacts.SaveArtifact(ctx, artifact); err != nil {
			log.Warn().Err(err).Msg("Failed to persist glue artifact")
		}
	}

	// Build
	if err := s.enterStage(ctx, job, models.StageBuild); err != nil {
		return err
	}
	output, err := s.builder.Build(ctx)
	job.BuildOutput = output
	if err != nil {
		return s.fail(ctx, job, err)
	}

	// Publish
	if err := s.enterStage(ctx, job, models.StagePublish); err != nil {
		return err
	}
	if _, err := s.builder.Publish(); err != nil {
		return s.fail(ctx, job, err)
	}
	job.FirmwareURL = fmt.Sprintf("http://%s:%d/firmware/firmware.bin", s.localIP(), s.serverPort)

	// Flash
	if err := s.enterStage(ctx, job, models.StageFlash); err != nil {
		return err
	}
	if err := s.devices.TriggerOTA(ctx, job.DeviceIP, job.FirmwareURL); err != nil {
		return s.fail(ctx, job, err)
	}

	job.MarkCompleted()
	if err := s.jobs.SaveJob(ctx, job); err != nil {
		return fmt.Errorf("failed to persist completed job: %w", err)
	}

	s.publish(ctx, interfaces.EventJobCompleted, job)
	log.Info().Str("firmware_url", job.FirmwareURL).Msg("Pipeline completed")
	return nil
}

// enterStage persists the stage transition and announces it. A transition
// that cannot be persisted fails the job so the record ends terminal rather
// than stuck at running; the save inside fail is best effort.
func (s *Service) enterStage(ctx context.Context, job *models.FirmwareJob, stage models.JobStage) error {
	job.MarkStage(stage)
	if err := s.jobs.SaveJob(ctx, job); err != nil {
		return s.fail(ctx, job, fmt.Errorf("failed to persist stage transition: %w", err))
	}

	s.publish(ctx, interfaces.EventJobStage, job)
	s.logger.WithCorrelationId(job.ID).Info().
		Str("stage", string(stage)).
		Msg("Pipeline stage started")
	return nil
}

// fail finalizes the job at its current stage
func (s *Service) fail(ctx context.Context, job *models.FirmwareJob, cause error) error {
	job.MarkFailed(cause)
	if err := s.jobs.SaveJob(ctx, job); err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to persist failed job")
	}

	s.publish(ctx, interfaces.EventJobFailed, job)
	s.logger.WithCorrelationId(job.ID).Error().
		Err(cause).
		Str("stage", string(job.Stage)).
		Msg("Pipeline failed")
	return fmt.Errorf("pipeline failed at stage %s: %w", job.Stage, cause)
}

func (s *Service) publish(ctx context.Context, eventType interfaces.EventType, job *models.FirmwareJob) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, interfaces.Event{
		Type: eventType,
		Payload: map[string]interface{}{
			"job_id": job.ID,
			"status": string(job.Status),
			"stage":  string(job.Stage),
			"error":  job.Error,
		},
	})
}
