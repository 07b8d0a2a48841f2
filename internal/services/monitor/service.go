package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/solder/internal/common"
	"github.com/ternarybob/solder/internal/interfaces"
)

// ArtifactCleaner removes stale published firmware binaries
type ArtifactCleaner interface {
	CleanStaleArtifacts() error
}

// Service is the background monitor. On each tick it pings the devices seen
// on recent jobs, publishes their status, and prunes stale artifacts.
type Service struct {
	devices  interfaces.DeviceService
	jobs     interfaces.JobStorage
	events   interfaces.EventService
	cleaner  ArtifactCleaner
	config   *common.MonitorConfig
	cron    *cron.Cron
	logger  arbor.ILogger
	mu      sync.Mutex
	running bool

	// statusMu guards statuses separately from the lifecycle lock so an
	// in-flight tick never contends with Start/Stop
	statusMu sync.Mutex
	statuses map[string]*statusEntry
}

type statusEntry struct {
	online    bool
	checkedAt time.Time
}

// recentJobWindow bounds how many jobs are scanned for device addresses
const recentJobWindow = 20

// NewService creates a new monitor service
func NewService(
	devices interfaces.DeviceService,
	jobs interfaces.JobStorage,
	events interfaces.EventService,
	cleaner ArtifactCleaner,
	config *common.MonitorConfig,
	logger arbor.ILogger,
) *Service {
	return &Service{
		devices:  devices,
		jobs:     jobs,
		events:   events,
		cleaner:  cleaner,
		config:   config,
		cron:     cron.New(cron.WithSeconds()),
		logger:   logger,
		statuses: make(map[string]*statusEntry),
	}
}

// Start schedules the monitor tick. A disabled monitor is a no-op.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.config.Enabled {
		s.logger.Info().Msg("Monitor disabled")
		return nil
	}
	if s.running {
		return fmt.Errorf("monitor already running")
	}

	schedule := s.config.Schedule
	if schedule == "" {
		schedule = "0 */1 * * * *" // Every minute
	}

	if _, err := s.cron.AddFunc(schedule, s.tick); err != nil {
		return fmt.Errorf("failed to schedule monitor: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info().Str("schedule", schedule).Msg("Monitor started")
	return nil
}

// Stop halts the monitor and waits for an in-flight tick to finish. The
// lifecycle lock is released before the drain wait: a running tick must be
// able to make progress for the drain context to ever fire.
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("Monitor stopped")
	return nil
}

// tick runs one monitor pass
func (s *Service) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	s.checkDevices(ctx)

	if s.cleaner != nil {
		if err := s.cleaner.CleanStaleArtifacts(); err != nil {
			s.logger.Warn().Err(err).Msg("Artifact cleanup failed")
		}
	}
}

// checkDevices pings every device address seen on recent jobs and publishes
// a device_status event when a device changes state
func (s *Service) checkDevices(ctx context.Context) {
	jobs, err := s.jobs.ListJobs(ctx, &interfaces.JobListOptions{Limit: recentJobWindow})
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to list recent jobs")
		return
	}

	seen := make(map[string]bool)
	for _, job := range jobs {
		if job.DeviceIP == "" || seen[job.DeviceIP] {
			continue
		}
		seen[job.DeviceIP] = true

		status := s.devices.Ping(ctx, job.DeviceIP)

		s.statusMu.Lock()
		prev, known := s.statuses[status.Address]
		changed := !known || prev.online != status.Online
		s.statuses[status.Address] = &statusEntry{online: status.Online, checkedAt: status.CheckedAt}
		s.statusMu.Unlock()

		if !changed {
			continue
		}

		s.logger.Info().
			Str("device", status.Address).
			Bool("online", status.Online).
			Msg("Device status changed")

		if s.events != nil {
			s.events.Publish(ctx, interfaces.Event{
				Type: interfaces.EventDeviceStatus,
				Payload: map[string]interface{}{
					"address":    status.Address,
					"online":     status.Online,
					"latency_ms": status.Latency.Milliseconds(),
					"error":      status.Error,
				},
			})
		}
	}
}
