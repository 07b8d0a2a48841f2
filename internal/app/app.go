package app

import (
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/solder/internal/common"
	"github.com/ternarybob/solder/internal/glue"
	"github.com/ternarybob/solder/internal/handlers"
	"github.com/ternarybob/solder/internal/interfaces"
	"github.com/ternarybob/solder/internal/services/builder"
	"github.com/ternarybob/solder/internal/services/device"
	"github.com/ternarybob/solder/internal/services/events"
	"github.com/ternarybob/solder/internal/services/generator"
	"github.com/ternarybob/solder/internal/services/llm"
	"github.com/ternarybob/solder/internal/services/monitor"
	"github.com/ternarybob/solder/internal/services/pipeline"
	"github.com/ternarybob/solder/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Event distribution
	EventService interfaces.EventService

	// Pipeline services
	GeneratorService *generator.Service
	GlueGenerator    *glue.Generator
	BuilderService   *builder.Service
	DeviceClient     interfaces.DeviceService
	PipelineService  interfaces.PipelineService
	MonitorService   *monitor.Service

	// Log streaming to the dashboard
	LogStreamer *handlers.WebSocketLogStreamer

	// HTTP handlers
	APIHandler      *handlers.APIHandler
	WSHandler       *handlers.WebSocketHandler
	GenerateHandler *handlers.GenerateHandler
	JobHandler      *handlers.JobHandler
	VariableHandler *handlers.VariableHandler
	FirmwareHandler *handlers.FirmwareHandler
	StatusHandler   *handlers.StatusHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Initialize database
	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// EventService before everything that publishes through it
	app.EventService = events.NewService(app.Logger)

	// WebSocket handler must exist before the log streamer so startup logs
	// have somewhere to go once clients connect
	app.WSHandler = handlers.NewWebSocketHandler(app.EventService, app.Logger)

	// Stream arbor log batches to connected dashboard clients
	app.LogStreamer = handlers.NewWebSocketLogStreamer(app.WSHandler, cfg.Logging.Level)
	app.LogStreamer.Start()
	app.Logger.SetChannel("context", app.LogStreamer.Channel())

	// Initialize services
	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	// Initialize handlers
	if err := app.initHandlers(); err != nil {
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	// Monitor runs on its own cron schedule; a disabled monitor is a no-op
	if err := app.MonitorService.Start(); err != nil {
		return nil, fmt.Errorf("failed to start monitor: %w", err)
	}

	logger.Info().
		Str("provider", string(cfg.LLM.DefaultProvider)).
		Str("firmware_dir", cfg.Firmware.Dir).
		Bool("monitor_enabled", cfg.Monitor.Enabled).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger)
func (a *App) initDatabase() error {
	storageManager, err := badger.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	return nil
}

// initServices initializes all business services in dependency order.
//
// PIPELINE ARCHITECTURE:
// 1. ProviderFactory - routes generation requests to Gemini or Claude
// 2. GeneratorService - generate/validate/repair loop around the factory
// 3. GlueGenerator - variable extraction and header synthesis
// 4. BuilderService - PlatformIO compile and artifact publish
// 5. DeviceClient - OTA trigger and variable push over device HTTP
// 6. PipelineService - orchestrates 2-5 per job
// 7. MonitorService - scheduled device probes and artifact cleanup
func (a *App) initServices() error {
	providerFactory := llm.NewProviderFactory(
		&a.Config.Gemini,
		&a.Config.Claude,
		&a.Config.LLM,
		a.Logger,
	)
	a.Logger.Debug().Msg("LLM provider factory initialized")

	a.GeneratorService = generator.NewService(providerFactory, &a.Config.Generator, a.Logger)
	a.GlueGenerator = glue.NewGenerator(a.Logger)
	a.BuilderService = builder.NewService(&a.Config.Firmware, &a.Config.Artifacts, a.Logger)

	deviceOpts := []device.ClientOption{
		device.WithLogger(a.Logger),
		device.WithRateLimit(a.Config.Device.RateLimit),
	}
	if d, err := time.ParseDuration(a.Config.Device.RequestTimeout); err == nil && d > 0 {
		deviceOpts = append(deviceOpts, device.WithTimeout(d))
	}
	if d, err := time.ParseDuration(a.Config.Device.OTATimeout); err == nil && d > 0 {
		deviceOpts = append(deviceOpts, device.WithOTATimeout(d))
	}
	a.DeviceClient = device.NewClient(deviceOpts...)
	a.Logger.Debug().Msg("Device client initialized")

	a.PipelineService = pipeline.NewService(
		a.GeneratorService,
		a.GlueGenerator,
		a.BuilderService,
		a.DeviceClient,
		a.StorageManager.JobStorage(),
		a.StorageManager.GlueStorage(),
		a.EventService,
		&a.Config.Firmware,
		a.Config.Server.Port,
		a.Logger,
	)
	a.Logger.Debug().Msg("Pipeline service initialized")

	a.MonitorService = monitor.NewService(
		a.DeviceClient,
		a.StorageManager.JobStorage(),
		a.EventService,
		a.BuilderService,
		&a.Config.Monitor,
		a.Logger,
	)

	return nil
}

// initHandlers initializes HTTP handlers with their service dependencies
func (a *App) initHandlers() error {
	a.APIHandler = handlers.NewAPIHandler()
	a.GenerateHandler = handlers.NewGenerateHandler(
		a.PipelineService,
		a.StorageManager.JobStorage(),
		a.EventService,
		a.Logger,
	)
	a.JobHandler = handlers.NewJobHandler(a.StorageManager.JobStorage(), a.Logger)
	a.VariableHandler = handlers.NewVariableHandler(
		a.StorageManager.GlueStorage(),
		a.DeviceClient,
		a.Logger,
	)
	a.FirmwareHandler = handlers.NewFirmwareHandler(&a.Config.Artifacts, a.Logger)
	a.StatusHandler = handlers.NewStatusHandler(
		a.StorageManager.JobStorage(),
		a.StorageManager.GlueStorage(),
		a.Logger,
	)

	a.Logger.Debug().Msg("HTTP handlers initialized")
	return nil
}

// Close closes all application resources in reverse initialization order
func (a *App) Close() error {
	var firstErr error

	if a.MonitorService != nil {
		if err := a.MonitorService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop monitor")
			firstErr = err
		}
	}

	if a.LogStreamer != nil {
		a.LogStreamer.Stop()
	}

	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}
