package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	pkgRetry "github.com/voxline/voiceqa-backend/internal/pkg/retry"
)

// CallConfig holds the call client configuration. All env vars carry the
// CALL_ prefix so the client and the server can share one .env file.
type CallConfig struct {
	// Backend base URL, e.g. http://localhost:8080
	ServerURL string `env:"CALL_SERVER_URL" envDefault:"http://localhost:8080"`

	// Snapshot database for call recovery
	SnapshotPath string `env:"CALL_SNAPSHOT_PATH" envDefault:"voiceqa-call.db"`

	// Logging goes to a file: stdout belongs to the terminal UI
	LogLevel string `env:"CALL_LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"CALL_LOG_FILE" envDefault:"voiceqa-call.log"`

	// Run without the terminal UI, printing plain transcript lines
	Headless bool `env:"CALL_HEADLESS" envDefault:"false"`

	// Play the greeting before the first question
	PlayIntroduction bool `env:"CALL_PLAY_INTRODUCTION" envDefault:"true"`

	// Backend HTTP client tuning
	HTTPClient HTTPClientConfig     `envPrefix:"CALL_HTTP_"`
	FetchRetry pkgRetry.RetryConfig `envPrefix:"CALL_FETCH_RETRY_"`

	AudioCfg CallAudioConfig `envPrefix:"CALL_AUDIO_"`
	FlowCfg  CallFlowConfig  `envPrefix:"CALL_FLOW_"`

	// Discard any saved snapshot and start fresh (set from the -new flag)
	NewSession bool

	// Environment (set from flag, not from env var)
	Environment string
}

// CallAudioConfig selects the capture device handed to ffmpeg. InputFormat is
// the ffmpeg demuxer name: pulse or alsa on Linux, avfoundation on macOS.
type CallAudioConfig struct {
	InputFormat string `env:"INPUT_FORMAT" envDefault:"pulse"`
	InputDevice string `env:"INPUT_DEVICE" envDefault:"default"`
	SampleRate  int    `env:"SAMPLE_RATE" envDefault:"16000"`
}

// CallFlowConfig holds the conversation timing knobs. The defaults encode the
// call pacing the backend expects; override with care.
type CallFlowConfig struct {
	// Recording stops after SilenceWindow of consecutive samples below
	// SilenceThreshold, measured every SampleInterval.
	SampleInterval   time.Duration `env:"SAMPLE_INTERVAL" envDefault:"100ms"`
	SilenceWindow    time.Duration `env:"SILENCE_WINDOW" envDefault:"2s"`
	SilenceThreshold float64       `env:"SILENCE_THRESHOLD" envDefault:"0.015"`

	// Hard listening ceiling, and the extra margin after it before the
	// client force-advances past a stuck question.
	MaxListenDuration time.Duration `env:"MAX_LISTEN_DURATION" envDefault:"20s"`
	SafetyMargin      time.Duration `env:"SAFETY_MARGIN" envDefault:"5s"`

	// Pause between an accepted answer and the next question.
	PacingDelay time.Duration `env:"PACING_DELAY" envDefault:"1500ms"`

	// Wait between attempts when fetching the next question fails.
	FetchRetryDelay time.Duration `env:"FETCH_RETRY_DELAY" envDefault:"2s"`

	// Rejected answers allowed per question before the call is abandoned.
	MaxValidationRetries int `env:"MAX_VALIDATION_RETRIES" envDefault:"3"`

	// Answers that start later than this count as hesitation in analytics.
	HesitationThreshold time.Duration `env:"HESITATION_THRESHOLD" envDefault:"3s"`
}

// LoadCallConfig parses flags from args (use os.Args[1:]), loads the env file
// for the chosen environment and fills the config from the environment.
func LoadCallConfig(args []string) (*CallConfig, error) {
	fs := flag.NewFlagSet("voiceqa-call", flag.ContinueOnError)
	envFlag := fs.String("env", "local", "Environment to run (local, prod, or custom)")
	serverFlag := fs.String("server", "", "Backend base URL (overrides CALL_SERVER_URL)")
	headlessFlag := fs.Bool("headless", false, "Run without the terminal UI")
	newFlag := fs.Bool("new", false, "Discard any saved call snapshot and start a new session")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	loadEnvFile(*envFlag)

	cfg := &CallConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	cfg.Environment = *envFlag
	cfg.NewSession = *newFlag
	if *serverFlag != "" {
		cfg.ServerURL = *serverFlag
	}
	if *headlessFlag {
		cfg.Headless = true
	}

	if err := validateCallConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func validateCallConfig(cfg *CallConfig) error {
	if cfg.ServerURL == "" {
		return fmt.Errorf("CALL_SERVER_URL must not be empty")
	}

	if cfg.SnapshotPath == "" {
		return fmt.Errorf("CALL_SNAPSHOT_PATH must not be empty")
	}

	flow := cfg.FlowCfg

	if flow.SampleInterval <= 0 {
		return fmt.Errorf("CALL_FLOW_SAMPLE_INTERVAL must be positive, got %s", flow.SampleInterval)
	}

	if flow.SilenceWindow < flow.SampleInterval {
		return fmt.Errorf("CALL_FLOW_SILENCE_WINDOW(%s) must be at least the sample interval(%s)", flow.SilenceWindow, flow.SampleInterval)
	}

	if flow.MaxListenDuration <= flow.SilenceWindow {
		return fmt.Errorf("CALL_FLOW_MAX_LISTEN_DURATION(%s) must exceed the silence window(%s)", flow.MaxListenDuration, flow.SilenceWindow)
	}

	if flow.SafetyMargin <= 0 {
		return fmt.Errorf("CALL_FLOW_SAFETY_MARGIN must be positive, got %s", flow.SafetyMargin)
	}

	if flow.SilenceThreshold <= 0 || flow.SilenceThreshold >= 1 {
		return fmt.Errorf("CALL_FLOW_SILENCE_THRESHOLD must be within (0,1), got %f", flow.SilenceThreshold)
	}

	if flow.PacingDelay < 0 {
		return fmt.Errorf("CALL_FLOW_PACING_DELAY must not be negative, got %s", flow.PacingDelay)
	}

	if flow.MaxValidationRetries < 1 {
		return fmt.Errorf("CALL_FLOW_MAX_VALIDATION_RETRIES must be at least 1, got %d", flow.MaxValidationRetries)
	}

	if cfg.AudioCfg.SampleRate <= 0 {
		return fmt.Errorf("CALL_AUDIO_SAMPLE_RATE must be positive, got %d", cfg.AudioCfg.SampleRate)
	}

	return nil
}
