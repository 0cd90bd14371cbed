package builder

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/voxline/voiceqa-backend/internal/api"
	callapi "github.com/voxline/voiceqa-backend/internal/api/call"
	resultsapi "github.com/voxline/voiceqa-backend/internal/api/results"
	"github.com/voxline/voiceqa-backend/internal/audiostore"
	"github.com/voxline/voiceqa-backend/internal/config"
	"github.com/voxline/voiceqa-backend/internal/entity"
	"github.com/voxline/voiceqa-backend/internal/integration/asr"
	"github.com/voxline/voiceqa-backend/internal/integration/azurespeech"
	"github.com/voxline/voiceqa-backend/internal/integration/elevenlabs"
	"github.com/voxline/voiceqa-backend/internal/integration/events"
	"github.com/voxline/voiceqa-backend/internal/integration/googlespeech"
	"github.com/voxline/voiceqa-backend/internal/integration/webhook"
	"github.com/voxline/voiceqa-backend/internal/pkg/formatter"
	pkglogger "github.com/voxline/voiceqa-backend/internal/pkg/logger"
	"github.com/voxline/voiceqa-backend/internal/pkg/metrics"
	"github.com/voxline/voiceqa-backend/internal/pkg/validator"
	"github.com/voxline/voiceqa-backend/internal/repository"
	"github.com/voxline/voiceqa-backend/internal/synthesis"
	"github.com/voxline/voiceqa-backend/internal/synthesis/offline"
	"github.com/voxline/voiceqa-backend/internal/transcription"
	"github.com/voxline/voiceqa-backend/internal/usecase/call"
	"github.com/voxline/voiceqa-backend/internal/usecase/results"
)

func Build() (*App, error) {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := pkglogger.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	logger.Info("Building application",
		zap.String("environment", cfg.Environment),
		zap.String("server_addr", cfg.ServerAddr),
	)

	// Setup database connection
	db, err := setupDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("setup database: %w", err)
	}

	// Run database migrations
	logger.Info("Running database migrations")
	if err := repository.RunMigrations(cfg.DatabaseURL); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("Database migrations completed successfully")

	// Initialize repositories
	sessionRepo := repository.NewSessionPostgres(db)
	questionRepo := repository.NewQuestionPostgres(db)
	answerRepo := repository.NewAnswerPostgres(db)
	analyticsRepo := repository.NewAnalyticsPostgres(db)
	audioRegistry := repository.NewAudioFilePostgres(db)
	logger.Info("Repositories initialized")

	// Seed the call script so question IDs are stable across restarts
	if err := questionRepo.SeedQuestions(ctx, cfg.Questions); err != nil {
		db.Close()
		return nil, fmt.Errorf("seed questions: %w", err)
	}
	logger.Info("Question list seeded", zap.Int("count", len(cfg.Questions)))

	// Audio asset store backing /static/audio
	store, err := audiostore.NewStore(cfg.AudioStoreCfg, audioRegistry, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("setup audio store: %w", err)
	}

	// Speech services
	synthesizer := setupSynthesis(cfg, logger)
	transcriber, err := setupTranscription(ctx, cfg, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("setup transcription: %w", err)
	}

	// A broken terminal provider must fail the boot, not a live call.
	if err := synthesizer.Probe(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("synthesis probe: %w", err)
	}

	// Initialize validators
	requestValidator := validator.NewValidator(cfg.UploadCfg)
	answerValidator := validator.NewAnswerValidator(cfg.ValidationCfg)
	logger.Info("Validators initialized")

	// Outbound integrations
	eventsPublisher := events.NewPublisher(cfg.EventsCfg, logger)
	webhookConnector := webhook.NewConnector(cfg.WebhookCfg)

	// Initialize use cases
	resultsUC := results.NewUsecase(
		sessionRepo,
		questionRepo,
		answerRepo,
		analyticsRepo,
		formatter.NewFactory(),
	)

	voice := entity.VoiceStyle{
		Voice:    cfg.SynthesisCfg.Voice,
		Language: cfg.SynthesisCfg.Language,
		Speed:    1.0,
	}

	callUC := call.NewUsecase(
		sessionRepo,
		questionRepo,
		answerRepo,
		analyticsRepo,
		synthesizer,
		transcriber,
		answerValidator,
		store,
		resultsUC,
		eventsPublisher,
		webhookConnector,
		voice,
		cfg.IntroText,
	)
	logger.Info("Use cases initialized")

	// Setup API handlers
	callHandler := callapi.NewHandler(callUC, requestValidator)
	resultsHandler := resultsapi.NewHandler(resultsUC)
	logger.Info("API handlers initialized")

	// Setup router
	router := api.SetupRouter(api.RouterDeps{
		CallHandler:    callHandler,
		ResultsHandler: resultsHandler,
		AudioStore:     store,
		DB:             db,
		RateLimit:      cfg.RateLimitCfg,
		EnableDocs:     cfg.EnableDocs,
		Metrics:        metrics.DefaultMetrics,
		Logger:         logger,
	})
	logger.Info("HTTP router configured")

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("Application built successfully",
		zap.String("environment", cfg.Environment),
	)

	return &App{
		server: server,
		db:     db,
		store:  store,
		events: eventsPublisher,
		logger: logger,
	}, nil
}

// setupSynthesis assembles the provider cascade in priority order. The
// offline engine is always last so the cascade has a floor that does not
// depend on the network.
func setupSynthesis(cfg *config.Config, logger *zap.Logger) *synthesis.Dispatcher {
	var providers []synthesis.Provider

	if cfg.EnableMocks {
		logger.Info("Using mock synthesis provider")
		providers = append(providers, synthesis.NewMockProvider())
	} else {
		if cfg.SynthesisCfg.ElevenLabsCfg.Enabled {
			providers = append(providers, elevenlabs.NewConnector(cfg.SynthesisCfg.ElevenLabsCfg))
		}
		if cfg.SynthesisCfg.AzureCfg.Enabled {
			providers = append(providers, azurespeech.NewConnector(cfg.SynthesisCfg.AzureCfg))
		}
		providers = append(providers, offline.NewEngine(cfg.SynthesisCfg.OfflineCfg, logger))
	}

	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = p.Name()
	}
	logger.Info("Synthesis cascade configured", zap.Strings("providers", names))

	return synthesis.NewDispatcher(providers, cfg.SynthesisCfg.ProviderTimeout, logger, metrics.DefaultMetrics)
}

// setupTranscription picks the recognizer backend and wraps it with the
// shared retry policy.
func setupTranscription(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*transcription.Service, error) {
	provider := cfg.TranscriptionCfg.Provider
	if cfg.EnableMocks {
		provider = "mock"
	}

	var recognizer transcription.Recognizer
	switch provider {
	case "google":
		conn, err := googlespeech.NewConnector(ctx, cfg.TranscriptionCfg.GoogleCfg)
		if err != nil {
			return nil, fmt.Errorf("google speech connector: %w", err)
		}
		recognizer = conn
	case "mock":
		logger.Info("Using mock transcription connector")
		recognizer = asr.NewMockConnector()
	default:
		recognizer = asr.NewConnector(cfg.TranscriptionCfg.ASRCfg)
	}

	logger.Info("Transcription backend configured", zap.String("provider", recognizer.Name()))

	return transcription.NewService(recognizer, cfg.TranscriptionCfg.Retry, metrics.DefaultMetrics), nil
}
