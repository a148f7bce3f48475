package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/swaggo/swag"
	"golang.org/x/sync/errgroup"

	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/archive"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/asr"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/batch"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/eventbus"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/recorder"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/session"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/summary"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/vad"
	platformconfig "github.com/AnjaneyaBhardwaj/Deafine/internal/platform/config"
	platformerrors "github.com/AnjaneyaBhardwaj/Deafine/internal/platform/errors"
	platformlogging "github.com/AnjaneyaBhardwaj/Deafine/internal/platform/logging"
	platformobservability "github.com/AnjaneyaBhardwaj/Deafine/internal/platform/observability"
	platformstorage "github.com/AnjaneyaBhardwaj/Deafine/internal/platform/storage"
	httptransport "github.com/AnjaneyaBhardwaj/Deafine/internal/transport/http"
	httpwebapi "github.com/AnjaneyaBhardwaj/Deafine/internal/transport/http/webapi"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/transport/ws"

	// Registers the elevenlabs transcription provider.
	_ "github.com/AnjaneyaBhardwaj/Deafine/internal/domain/asr/elevenlabs"
)

const scalarHTML = `<!DOCTYPE html>
<html lang="en">
	<head>
		<meta charset="utf-8" />
		<title>Deafine API Reference</title>
		<meta name="viewport" content="width=device-width, initial-scale=1" />
	</head>
	<body>
		<script
			id="api-reference"
			data-url="/openapi.json"
			data-layout="modern"
			src="https://cdn.jsdelivr.net/npm/@scalar/api-reference"
		></script>
	</body>
</html>`

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	config                *platformconfig.Config
	configPath            string
	logger                *platformlogging.Logger
	observabilityShutdown platformobservability.ShutdownFunc
	store                 archive.Store
	newProvider           batch.ProviderFactory
	engine                summary.Engine
	registry              *session.Registry
	rec                   *recorder.Recorder
	processor             *batch.Processor
}

// Run drives the whole server lifecycle: configuration, dependency
// initialisation, the websocket and REST transports, and graceful
// shutdown on SIGINT/SIGTERM. An empty configPath falls back to the
// DEAFINE_CONFIG environment variable and then the default location.
func Run(ctx context.Context, configPath string) error {
	state := &appState{configPath: configPath}

	steps := InitGraph()
	if err := executeInitSteps(ctx, steps, state); err != nil {
		return err
	}

	config := state.config
	logger := state.logger
	if config == nil || logger == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"bootstrap state validation",
			"config/logger not initialised",
		)
	}
	if state.store == nil || state.registry == nil || state.processor == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"bootstrap state validation",
			"archive/registry/processor not initialised",
		)
	}

	logBootstrapGraph(steps, logger)

	if shutdown := state.observabilityShutdown; shutdown != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.WarnTag("BOOT", "observability did not shut down cleanly: %v", err)
			}
		}()
	}

	defer eventbus.Shutdown()

	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := state.store.Close(closeCtx); err != nil {
			logger.WarnTag("STORE", "archive store did not close cleanly: %v", err)
		}
	}()

	if state.rec != nil {
		defer state.rec.Stop()
	}

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(rootCtx)

	if err := startServices(state, group, groupCtx); err != nil {
		cancel()
		return err
	}

	if err := waitForShutdown(signalCtx, cancel, logger, group); err != nil {
		return err
	}

	logger.InfoTag("BOOT", "server stopped cleanly")
	logger.Close()
	return nil
}

func logBootstrapGraph(steps []initStep, logger *platformlogging.Logger) {
	if logger == nil {
		return
	}
	logger.InfoTag("BOOT", "initialisation graph:")
	for _, step := range steps {
		logger.InfoTag("BOOT", "  %s (%s)", step.ID, step.Title)
	}
	logger.InfoTag("BOOT", "starting services")
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"execute init steps",
			"nil bootstrap state",
		)
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(
				platformerrors.KindBootstrap,
				step.ID,
				"missing execute function",
			)
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if errors.As(err, &typed) {
				return err
			}

			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

// InitGraph lists the initialisation steps in dependency order.
func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init-provider",
			Title:     "Initialise logging provider",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initLoggingStep,
		},
		{
			ID:        "observability:setup-hooks",
			Title:     "Setup observability hooks",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   setupObservabilityStep,
		},
		{
			ID:        "archive:open-store",
			Title:     "Open session archive",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindStorage,
			Execute:   openArchiveStep,
		},
		{
			ID:        "asr:init-provider-factory",
			Title:     "Initialise transcription provider factory",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initProviderFactoryStep,
		},
		{
			ID:        "summary:init-engine",
			Title:     "Initialise summary engine",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initSummaryStep,
		},
		{
			ID:        "session:init-registry",
			Title:     "Initialise live session registry",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initRegistryStep,
		},
		{
			ID:        "recording:init-recorder",
			Title:     "Initialise session recorder",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindStorage,
			Execute:   initRecorderStep,
		},
		{
			ID:        "batch:init-processor",
			Title:     "Initialise batch processor",
			DependsOn: []string{"archive:open-store", "asr:init-provider-factory", "summary:init-engine"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initProcessorStep,
		},
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	loader := platformconfig.NewLoader()
	if state.configPath != "" {
		loader = loader.WithPath(state.configPath)
	}

	result, err := loader.Load()
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindConfig, "config:load", "failed to load configuration", err)
	}

	state.config = result.Config
	state.configPath = result.Path
	if state.configPath == "" {
		state.configPath = "defaults+env"
	}
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	if state == nil || state.config == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"logging:init-provider",
			"config not loaded",
		)
	}

	logger, err := platformlogging.NewLogger(&platformlogging.Config{
		Level: state.config.Log.Level,
		Dir:   state.config.Log.Dir,
		File:  state.config.Log.File,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "logging:init-provider", "failed to initialize logging provider", err)
	}

	state.logger = logger
	state.logger.InfoTag("BOOT", "logging ready [%s], config from %s",
		state.config.Log.Level, state.configPath)
	return nil
}

func setupObservabilityStep(ctx context.Context, state *appState) error {
	if state == nil || state.config == nil || state.logger == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"observability:setup-hooks",
			"config/logger not initialised",
		)
	}

	cfg := platformobservability.Config{
		Enabled: strings.EqualFold(state.config.Log.Level, "debug"),
	}

	shutdown, err := platformobservability.Setup(ctx, cfg, state.logger.Slog())
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "observability:setup-hooks", "failed to setup observability hooks", err)
	}
	state.observabilityShutdown = shutdown

	return nil
}

func openArchiveStep(_ context.Context, state *appState) error {
	if state == nil || state.config == nil || state.logger == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"archive:open-store",
			"missing config/logger",
		)
	}

	store, err := openArchiveStore(state.config, state.logger)
	if err != nil {
		return err
	}
	state.store = store
	return nil
}

func initProviderFactoryStep(_ context.Context, state *appState) error {
	if state == nil || state.config == nil || state.logger == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"asr:init-provider-factory",
			"missing config/logger",
		)
	}

	state.newProvider = NewProviderFactory(state.config, state.logger)
	return nil
}

func initSummaryStep(_ context.Context, state *appState) error {
	if state == nil || state.config == nil || state.logger == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"summary:init-engine",
			"missing config/logger",
		)
	}

	state.engine = NewSummaryEngine(state.config, state.logger)
	return nil
}

func initRegistryStep(_ context.Context, state *appState) error {
	if state == nil || state.logger == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"session:init-registry",
			"missing logger",
		)
	}

	state.registry = session.NewRegistry(state.logger)
	return nil
}

func initRecorderStep(_ context.Context, state *appState) error {
	if state == nil || state.config == nil || state.logger == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"recording:init-recorder",
			"missing config/logger",
		)
	}

	if !state.config.Recording.Enabled {
		return nil
	}

	rec := recorder.NewRecorder(state.config.Recording.Dir, state.logger)
	if err := rec.Start(); err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "recording:init-recorder", "failed to start session recorder", err)
	}
	state.rec = rec
	return nil
}

func initProcessorStep(_ context.Context, state *appState) error {
	if state == nil || state.config == nil || state.logger == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"batch:init-processor",
			"missing config/logger",
		)
	}
	if state.store == nil || state.newProvider == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"batch:init-processor",
			"archive store or provider factory not initialised",
		)
	}

	state.processor = batch.NewProcessor(batch.Config{
		Workers:       state.config.Batch.Workers,
		QueueSize:     state.config.Batch.QueueSize,
		SampleRate:    state.config.Audio.SampleRate,
		FrameMs:       state.config.Audio.ChunkMs,
		ChunkDuration: state.config.Session.ChunkDuration,
		NumSpeakers:   state.config.ASR.ElevenLabs.NumSpeakers,
	}, state.store, state.newProvider, state.engine, state.logger)
	return nil
}

// NewProviderFactory builds transcription providers from the configured
// backend. A non-empty apiKey overrides the configured credential for
// one job; an empty key selects the server credential.
func NewProviderFactory(config *platformconfig.Config, logger *platformlogging.Logger) batch.ProviderFactory {
	return func(apiKey string) (asr.Provider, error) {
		providerCfg := asr.Config{
			APIKey:         config.ASR.ElevenLabs.APIKey,
			BaseURL:        config.ASR.ElevenLabs.BaseURL,
			ModelID:        config.ASR.ElevenLabs.ModelID,
			NumSpeakers:    config.ASR.ElevenLabs.NumSpeakers,
			TimeoutSeconds: config.ASR.ElevenLabs.TimeoutSeconds,
			VoiceIsolation: config.ASR.ElevenLabs.VoiceIsolation,
		}
		if apiKey != "" {
			providerCfg.APIKey = apiKey
		}
		return asr.Create(config.ASR.Provider, providerCfg, logger)
	}
}

// NewGateFactory builds per-session speech gates, or returns nil when
// gating is disabled so sessions skip it entirely.
func NewGateFactory(config *platformconfig.Config, logger *platformlogging.Logger) func() (*vad.Gate, error) {
	if !config.VAD.Enabled {
		return nil
	}
	return func() (*vad.Gate, error) {
		detector, err := vad.New(vad.Config{
			Enabled:        true,
			Aggressiveness: config.VAD.Aggressiveness,
			WindowMs:       config.VAD.WindowMs,
		}, config.Audio.SampleRate, logger)
		if err != nil {
			return nil, err
		}
		return vad.NewGate(detector, config.Audio.SampleRate, config.VAD.WindowMs, logger), nil
	}
}

// NewSummaryEngine builds the configured summary engine. Without an
// OpenAI key it returns nil, which selects the extractive fallback.
func NewSummaryEngine(config *platformconfig.Config, logger *platformlogging.Logger) summary.Engine {
	return summary.NewEngine(summary.Config{
		APIKey:      config.Summary.OpenAI.APIKey,
		Model:       config.Summary.OpenAI.Model,
		MaxTokens:   config.Summary.OpenAI.MaxTokens,
		Temperature: config.Summary.OpenAI.Temperature,
	}, logger)
}

func openArchiveStore(config *platformconfig.Config, logger *platformlogging.Logger) (archive.Store, error) {
	archiveCfg := config.Archive
	ttl := time.Duration(archiveCfg.TTLSeconds) * time.Second
	cleanup := time.Duration(archiveCfg.CleanupSeconds) * time.Second

	storeCfg := archive.Config{
		Driver: strings.ToLower(strings.TrimSpace(archiveCfg.Driver)),
		TTL:    ttl,
	}
	deps := archive.Dependencies{}

	switch storeCfg.Driver {
	case "", archive.DriverMemory:
		storeCfg.Driver = archive.DriverMemory
		storeCfg.Memory = &archive.MemoryConfig{GCInterval: cleanup}
	case archive.DriverSQLite:
		db, err := platformstorage.Open(archiveCfg.SQLite.DSN)
		if err != nil {
			return nil, err
		}
		deps.DB = db
		storeCfg.SQLite = &archive.SQLiteConfig{Path: archiveCfg.SQLite.DSN}
	case archive.DriverRedis:
		if archiveCfg.Redis.Addr == "" {
			return nil, platformerrors.New(
				platformerrors.KindBootstrap,
				"archive:open-store",
				"redis archive addr is required",
			)
		}
		storeCfg.Redis = &archive.RedisConfig{
			Addr:     archiveCfg.Redis.Addr,
			Username: archiveCfg.Redis.Username,
			Password: archiveCfg.Redis.Password,
			DB:       archiveCfg.Redis.DB,
			Prefix:   archiveCfg.Redis.Prefix,
		}
	default:
		logger.WarnTag("STORE", "unsupported archive driver %s, falling back to memory", archiveCfg.Driver)
		storeCfg.Driver = archive.DriverMemory
		storeCfg.Memory = &archive.MemoryConfig{GCInterval: cleanup}
	}

	store, err := archive.New(storeCfg, deps)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindStorage, "archive:open-store", "failed to create archive store", err)
	}

	logger.InfoTag("STORE", "session archive ready, driver=%s ttl=%s", storeCfg.Driver, ttl)
	return store, nil
}

func startServices(state *appState, g *errgroup.Group, groupCtx context.Context) error {
	if err := startWebSocketServer(state, g, groupCtx); err != nil {
		return fmt.Errorf("failed to start websocket transport: %w", err)
	}

	if state.config.Web.Enabled {
		if _, err := startHTTPServer(state, g, groupCtx); err != nil {
			return fmt.Errorf("failed to start http transport: %w", err)
		}
	} else {
		state.logger.InfoTag("HTTP", "REST API disabled by configuration")
	}

	startBatchWorkers(state, g, groupCtx)
	startArchiveSweeper(state, g, groupCtx)
	return nil
}

func startWebSocketServer(state *appState, g *errgroup.Group, groupCtx context.Context) error {
	config := state.config
	logger := state.logger

	hub := ws.NewHub()
	router := ws.NewRouter(hub, logger, ws.RouterOptions{})
	server := ws.NewServer(ws.ServerConfig{
		Addr: fmt.Sprintf("%s:%d", config.Server.IP, config.Server.Port),
		Path: config.Server.Path,
	}, router, hub, logger)

	deps := ws.Deps{
		SampleRate:    config.Audio.SampleRate,
		ChunkDuration: config.Session.ChunkDuration,
		MaxSpeakers:   config.ASR.ElevenLabs.NumSpeakers,
		QueueSize:     config.Session.QueueSize,
		NewProvider:   liveProviderFactory(config, state.newProvider),
		NewGate:       NewGateFactory(config, logger),
		Engine:        state.engine,
		Registry:      state.registry,
		Recorder:      state.rec,
		Logger:        logger,
	}

	server.SetHandlerBuilder(func(conn *ws.Connection, _ *http.Request) (ws.SessionHandler, error) {
		return ws.NewHandler(conn, deps)
	})

	g.Go(func() error {
		go func() {
			<-groupCtx.Done()
			if err := server.Stop(); err != nil {
				logger.ErrorTag("WS", "websocket server shutdown failed: %v", err)
			}
		}()

		if err := server.Start(groupCtx); err != nil {
			if groupCtx.Err() != nil {
				return nil
			}
			logger.ErrorTag("WS", "websocket server failed: %v", err)
			return err
		}
		return nil
	})
	return nil
}

// liveProviderFactory fails connection setup in-band when no credential
// is configured; live connections never carry their own key.
func liveProviderFactory(config *platformconfig.Config, base batch.ProviderFactory) func(string) (asr.Provider, error) {
	return func(apiKey string) (asr.Provider, error) {
		if apiKey == "" && config.ASR.ElevenLabs.APIKey == "" {
			return nil, errors.New("ELEVEN_API_KEY not configured on server")
		}
		return base(apiKey)
	}
}

func startHTTPServer(state *appState, g *errgroup.Group, groupCtx context.Context) (*http.Server, error) {
	config := state.config
	logger := state.logger

	httpRouter, err := httptransport.Build(httptransport.Options{
		Config: config,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	router := httpRouter.Engine

	webapiService, err := httpwebapi.NewService(config, state.store, state.processor, state.registry, logger)
	if err != nil {
		logger.ErrorTag("HTTP", "transcription API init failed: %v", err)
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "webapi:new-service", "failed to create webapi service", err)
	}
	if err := webapiService.Register(groupCtx, httpRouter.API); err != nil {
		return nil, err
	}
	webapiService.RegisterRoot(router)

	router.NoRoute(func(c *gin.Context) {
		httptransport.RespondDetail(c, http.StatusNotFound, "Not Found")
	})

	router.GET("/openapi.json", func(c *gin.Context) {
		doc, err := swag.ReadDoc()
		if err != nil {
			logger.ErrorTag("HTTP", "openapi document unavailable: %v", err)
			httptransport.RespondDetail(c, http.StatusInternalServerError, "failed to generate openapi spec")
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(doc))
	})

	router.GET("/docs", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(scalarHTML))
	})

	httpServer := &http.Server{
		Addr:    ":" + strconv.Itoa(config.Web.Port),
		Handler: router,
	}

	g.Go(func() error {
		logger.InfoTag("HTTP", "REST API listening on http://localhost:%d/api", config.Web.Port)
		logger.InfoTag("HTTP", "interactive docs at http://localhost:%d/docs", config.Web.Port)
		if config.Web.ServeRecordings && config.Recording.Enabled {
			logger.InfoTag("HTTP", "recordings served at http://localhost:%d/recordings", config.Web.Port)
		}

		go func() {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.ErrorTag("HTTP", "http server shutdown failed: %v", err)
			} else {
				logger.InfoTag("HTTP", "http server stopped")
			}
		}()

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorTag("HTTP", "http server failed: %v", err)
			return err
		}
		return nil
	})

	return httpServer, nil
}

func startBatchWorkers(state *appState, g *errgroup.Group, groupCtx context.Context) {
	processor := state.processor
	processor.Start(groupCtx)

	g.Go(func() error {
		<-groupCtx.Done()
		processor.Stop()
		return nil
	})
}

// startArchiveSweeper expires archived sessions on the configured
// interval. Only the sqlite driver needs the sweep; memory sweeps
// itself and redis relies on key TTLs.
func startArchiveSweeper(state *appState, g *errgroup.Group, groupCtx context.Context) {
	interval := time.Duration(state.config.Archive.CleanupSeconds) * time.Second
	if interval <= 0 || !strings.EqualFold(state.config.Archive.Driver, archive.DriverSQLite) {
		return
	}

	store := state.store
	logger := state.logger
	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-groupCtx.Done():
				return nil
			case <-ticker.C:
				if err := store.CleanupExpired(groupCtx); err != nil {
					logger.WarnTag("STORE", "archive cleanup failed: %v", err)
				}
			}
		}
	})
}

func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	logger *platformlogging.Logger,
	g *errgroup.Group,
) error {
	<-ctx.Done()
	logger.InfoTag("BOOT", "shutdown signal received (%v), draining services", context.Cause(ctx))

	cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.ErrorTag("BOOT", "error during shutdown: %v", err)
			return err
		}
		logger.InfoTag("BOOT", "all services stopped")
	case <-time.After(15 * time.Second):
		timeoutErr := errors.New("shutdown timed out")
		logger.ErrorTag("BOOT", "shutdown timed out, forcing exit")
		return timeoutErr
	}
	return nil
}

// LoadConfigAndLogger runs only the configuration and logging steps.
// Entrypoints that never start the server (the capture and one-shot
// transcription commands) resolve their environment the same way the
// server does.
func LoadConfigAndLogger(configPath string) (*platformconfig.Config, *platformlogging.Logger, error) {
	state := &appState{configPath: configPath}

	steps := []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init-provider",
			Title:     "Initialise logging provider",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initLoggingStep,
		},
	}

	if err := executeInitSteps(context.Background(), steps, state); err != nil {
		return nil, nil, err
	}

	return state.config, state.logger, nil
}
