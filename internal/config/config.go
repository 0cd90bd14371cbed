package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/voxline/voiceqa-backend/internal/entity"
	pkgRetry "github.com/voxline/voiceqa-backend/internal/pkg/retry"
)

// Config holds the API server configuration
type Config struct {
	// Server configuration
	ServerAddr string `env:"SERVER_ADDR,notEmpty"`

	// Database configuration
	DatabaseURL         string        `env:"DATABASE_URL,notEmpty"`
	DBMaxConns          int           `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns          int           `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`

	// Speech synthesis and recognition
	SynthesisCfg     SynthesisConfig     `envPrefix:"SYNTHESIS_"`
	TranscriptionCfg TranscriptionConfig `envPrefix:"TRANSCRIPTION_"`

	// Answer validation policy
	ValidationCfg ValidationConfig `envPrefix:"VALIDATION_"`

	// Synthesized audio storage
	AudioStoreCfg AudioStoreConfig `envPrefix:"AUDIO_"`

	// Optional outbound integrations
	EventsCfg  EventsConfig  `envPrefix:"EVENTS_"`
	WebhookCfg WebhookConfig `envPrefix:"WEBHOOK_"`

	// HTTP surface tuning
	RateLimitCfg RateLimitConfig `envPrefix:"RATE_LIMIT_"`
	UploadCfg    UploadConfig    `envPrefix:"UPLOAD_"`

	// Introduction played before question 0
	IntroText string `env:"INTRO_TEXT" envDefault:"Hello, and thank you for calling. I will ask you a short series of screening questions. After each question, please speak your answer clearly."`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Swagger UI on /docs
	EnableDocs bool `env:"ENABLE_DOCS" envDefault:"true"`

	// Mock configuration
	EnableMocks bool `env:"ENABLE_MOCKS" envDefault:"false"`

	// Question list (loaded from JSON file, falls back to built-in defaults)
	Questions []entity.Question

	// Environment (set from flag, not from env var)
	Environment string
}

// SynthesisConfig orders the provider cascade. The offline engine has no
// enable switch: it is the guaranteed terminal provider.
type SynthesisConfig struct {
	ProviderTimeout time.Duration     `env:"PROVIDER_TIMEOUT" envDefault:"8s"`
	Voice           string            `env:"VOICE" envDefault:"default"`
	Language        string            `env:"LANGUAGE" envDefault:"en-US"`
	ElevenLabsCfg   ElevenLabsConfig  `envPrefix:"ELEVENLABS_"`
	AzureCfg        AzureSpeechConfig `envPrefix:"AZURE_"`
	OfflineCfg      OfflineTTSConfig  `envPrefix:"OFFLINE_"`
}

type ElevenLabsConfig struct {
	HTTPClientConfig
	Enabled bool   `env:"ENABLED" envDefault:"false"`
	APIKey  string `env:"API_KEY"`
	VoiceID string `env:"VOICE_ID" envDefault:"21m00Tcm4TlvDq8ikWAM"`
	ModelID string `env:"MODEL_ID" envDefault:"eleven_multilingual_v2"`
}

type AzureSpeechConfig struct {
	HTTPClientConfig
	Enabled         bool   `env:"ENABLED" envDefault:"false"`
	Region          string `env:"REGION" envDefault:"eastus"`
	SubscriptionKey string `env:"SUBSCRIPTION_KEY"`
	Voice           string `env:"VOICE" envDefault:"en-US-JennyNeural"`
	OutputFormat    string `env:"OUTPUT_FORMAT" envDefault:"audio-16khz-128kbitrate-mono-mp3"`
}

// OfflineTTSConfig tunes the always-available local engine. When PiperPath
// points at a piper binary it is used for real speech; otherwise the engine
// renders a spoken-cadence tone pattern.
type OfflineTTSConfig struct {
	PiperPath   string        `env:"PIPER_PATH"`
	PiperModel  string        `env:"PIPER_MODEL"`
	ExecTimeout time.Duration `env:"EXEC_TIMEOUT" envDefault:"10s"`
	SampleRate  int           `env:"SAMPLE_RATE" envDefault:"16000"`
}

// TranscriptionConfig selects the recognizer backend. The retry policy is
// applied by the transcription service regardless of which backend runs.
type TranscriptionConfig struct {
	// http, google or mock
	Provider  string               `env:"PROVIDER" envDefault:"http"`
	Retry     pkgRetry.RetryConfig `envPrefix:"RETRY_"`
	ASRCfg    ASRConnectorConfig   `envPrefix:"ASR_"`
	GoogleCfg GoogleSpeechConfig   `envPrefix:"GOOGLE_"`
}

type ASRConnectorConfig struct {
	HTTPClientConfig
	TranscribeEndpoint string `env:"TRANSCRIBE_ENDPOINT" envDefault:"/transcribe"`
}

type GoogleSpeechConfig struct {
	CredentialsFile string        `env:"CREDENTIALS_FILE"`
	Language        string        `env:"LANGUAGE" envDefault:"en-US"`
	RequestTimeout  time.Duration `env:"TIMEOUT" envDefault:"15s"`
}

// ValidationConfig holds the accept/reject policy knobs.
type ValidationConfig struct {
	MinAnswerLength int     `env:"MIN_ANSWER_LENGTH" envDefault:"2"`
	ConfidenceFloor float64 `env:"CONFIDENCE_FLOOR" envDefault:"0.3"`
}

type AudioStoreConfig struct {
	Dir             string        `env:"DIR" envDefault:"static/audio"`
	BaseURL         string        `env:"BASE_URL" envDefault:"/static/audio"`
	CacheTTL        time.Duration `env:"CACHE_TTL" envDefault:"1h"`
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"1h"`
	MaxAge          time.Duration `env:"MAX_AGE" envDefault:"24h"`
}

// EventsConfig configures the Kafka publisher for call lifecycle events.
// Disabled by default; the publisher degrades to log-only mode.
type EventsConfig struct {
	Enabled bool     `env:"ENABLED" envDefault:"false"`
	Brokers []string `env:"BROKERS" envSeparator:","`
	Topic   string   `env:"TOPIC" envDefault:"voiceqa.call-events"`
	Source  string   `env:"SOURCE" envDefault:"voiceqa-backend"`
}

// WebhookConfig configures the completed-call notification.
type WebhookConfig struct {
	HTTPClientConfig
	Enabled bool                 `env:"ENABLED" envDefault:"false"`
	Retry   pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

type RateLimitConfig struct {
	Enabled           bool `env:"ENABLED" envDefault:"false"`
	RequestsPerMinute int  `env:"REQUESTS_PER_MINUTE" envDefault:"120"`
	Burst             int  `env:"BURST" envDefault:"30"`
}

type UploadConfig struct {
	MaxAudioFileSize int64 `env:"MAX_AUDIO_FILE_SIZE" envDefault:"10485760"` // 10 MiB
	MaxUploadSize    int64 `env:"MAX_UPLOAD_SIZE" envDefault:"12582912"`     // 12 MiB
}

type HTTPClientConfig struct {
	RequestTimeout        time.Duration `env:"TIMEOUT" envDefault:"30s"`
	ConnTimeout           time.Duration `env:"CONN_TIMEOUT" envDefault:"10s"`
	KeepAlive             time.Duration `env:"KEEP_ALIVE" envDefault:"90s"`
	IdleConnTimeout       time.Duration `env:"IDLE_CONN_TIMEOUT" envDefault:"90s"`
	ResponseHeaderTimeout time.Duration `env:"RESPONSE_HEADER_TIMEOUT" envDefault:"10s"`
	Token                 string        `env:"TOKEN"`
	Url                   string        `env:"SERVICE_URL"`
}

func LoadConfig() (*Config, error) {
	envFlag := flag.String("env", "local", "Environment to run (local, prod, or custom)")
	flag.Parse()

	loadEnvFile(*envFlag)

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	cfg.Environment = *envFlag

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// Load the question list from the JSON file
	if err := loadQuestions(cfg); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.DBMaxConns < 1 || cfg.DBMaxConns > 200 {
		return fmt.Errorf("DB_MAX_CONNS must be between 1 and 200, got %d", cfg.DBMaxConns)
	}

	if cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS(%d), got %d", cfg.DBMaxConns, cfg.DBMinConns)
	}

	if cfg.SynthesisCfg.ProviderTimeout <= 0 {
		return fmt.Errorf("SYNTHESIS_PROVIDER_TIMEOUT must be positive, got %s", cfg.SynthesisCfg.ProviderTimeout)
	}

	if cfg.SynthesisCfg.ElevenLabsCfg.Enabled && cfg.SynthesisCfg.ElevenLabsCfg.APIKey == "" {
		return fmt.Errorf("SYNTHESIS_ELEVENLABS_API_KEY is required when ElevenLabs is enabled")
	}

	if cfg.SynthesisCfg.AzureCfg.Enabled && cfg.SynthesisCfg.AzureCfg.SubscriptionKey == "" {
		return fmt.Errorf("SYNTHESIS_AZURE_SUBSCRIPTION_KEY is required when Azure Speech is enabled")
	}

	if cfg.ValidationCfg.ConfidenceFloor < 0 || cfg.ValidationCfg.ConfidenceFloor > 1 {
		return fmt.Errorf("VALIDATION_CONFIDENCE_FLOOR must be within [0,1], got %f", cfg.ValidationCfg.ConfidenceFloor)
	}

	if cfg.EventsCfg.Enabled && len(cfg.EventsCfg.Brokers) == 0 {
		return fmt.Errorf("EVENTS_BROKERS must be set when events are enabled")
	}

	if cfg.WebhookCfg.Enabled && cfg.WebhookCfg.Url == "" {
		return fmt.Errorf("WEBHOOK_SERVICE_URL must be set when the webhook is enabled")
	}

	if cfg.RateLimitCfg.Enabled {
		if cfg.RateLimitCfg.RequestsPerMinute < 1 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS_PER_MINUTE must be at least 1, got %d", cfg.RateLimitCfg.RequestsPerMinute)
		}
		if cfg.RateLimitCfg.Burst < 1 {
			return fmt.Errorf("RATE_LIMIT_BURST must be at least 1, got %d", cfg.RateLimitCfg.Burst)
		}
	}

	switch cfg.TranscriptionCfg.Provider {
	case "http", "google", "mock":
	default:
		return fmt.Errorf("TRANSCRIPTION_PROVIDER must be http, google or mock, got %q", cfg.TranscriptionCfg.Provider)
	}

	return nil
}

func loadEnvFile(environment string) {
	envFile := getEnvFile(environment)
	// Try to load env file, but don't fail if it's missing.
	// In containerized/prod environments variables are usually set externally.
	if err := godotenv.Load(envFile); err != nil {
		fmt.Printf("Warning: could not load %s file (this is ok if env vars are set externally): %v\n", envFile, err)
	}
}

func getEnvFile(environment string) string {
	switch environment {
	case "prod", "production":
		return ".env.prod"
	case "local", "dev", "development":
		return ".env.local"
	default:
		return fmt.Sprintf(".env.%s", environment)
	}
}
