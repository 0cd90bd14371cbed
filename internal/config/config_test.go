package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/voxline/voiceqa-backend/internal/entity"
)

// unsetEnv clears keys for the test while registering restoration of the
// original values. t.Setenv alone would leave the variable set to "", which
// the env parser treats as an explicit value rather than an absent one.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadCallConfig_Defaults(t *testing.T) {
	unsetEnv(t,
		"CALL_SERVER_URL",
		"CALL_SNAPSHOT_PATH",
		"CALL_HEADLESS",
		"CALL_PLAY_INTRODUCTION",
		"CALL_FLOW_SAMPLE_INTERVAL",
		"CALL_FLOW_SILENCE_WINDOW",
		"CALL_FLOW_SILENCE_THRESHOLD",
		"CALL_FLOW_MAX_LISTEN_DURATION",
		"CALL_FLOW_SAFETY_MARGIN",
		"CALL_FLOW_PACING_DELAY",
		"CALL_FLOW_MAX_VALIDATION_RETRIES",
		"CALL_AUDIO_INPUT_FORMAT",
		"CALL_AUDIO_SAMPLE_RATE",
	)

	cfg, err := LoadCallConfig(nil)
	if err != nil {
		t.Fatalf("LoadCallConfig() error = %v", err)
	}

	if cfg.ServerURL != "http://localhost:8080" {
		t.Errorf("ServerURL = %q, want http://localhost:8080", cfg.ServerURL)
	}
	if cfg.Headless {
		t.Errorf("Headless = true, want false")
	}
	if !cfg.PlayIntroduction {
		t.Errorf("PlayIntroduction = false, want true")
	}
	if cfg.FlowCfg.SampleInterval != 100*time.Millisecond {
		t.Errorf("SampleInterval = %v, want 100ms", cfg.FlowCfg.SampleInterval)
	}
	if cfg.FlowCfg.SilenceWindow != 2*time.Second {
		t.Errorf("SilenceWindow = %v, want 2s", cfg.FlowCfg.SilenceWindow)
	}
	if cfg.FlowCfg.MaxListenDuration != 20*time.Second {
		t.Errorf("MaxListenDuration = %v, want 20s", cfg.FlowCfg.MaxListenDuration)
	}
	if cfg.FlowCfg.SafetyMargin != 5*time.Second {
		t.Errorf("SafetyMargin = %v, want 5s", cfg.FlowCfg.SafetyMargin)
	}
	if cfg.FlowCfg.PacingDelay != 1500*time.Millisecond {
		t.Errorf("PacingDelay = %v, want 1.5s", cfg.FlowCfg.PacingDelay)
	}
	if cfg.FlowCfg.MaxValidationRetries != 3 {
		t.Errorf("MaxValidationRetries = %d, want 3", cfg.FlowCfg.MaxValidationRetries)
	}
	if cfg.AudioCfg.SampleRate != 16000 {
		t.Errorf("SampleRate = %d, want 16000", cfg.AudioCfg.SampleRate)
	}
}

func TestLoadCallConfig_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("CALL_SERVER_URL", "http://env.example:9000")
	t.Setenv("CALL_HEADLESS", "false")

	cfg, err := LoadCallConfig([]string{"-server", "http://flag.example:7000", "-headless", "-new"})
	if err != nil {
		t.Fatalf("LoadCallConfig() error = %v", err)
	}

	if cfg.ServerURL != "http://flag.example:7000" {
		t.Errorf("ServerURL = %q, want flag value", cfg.ServerURL)
	}
	if !cfg.Headless {
		t.Errorf("Headless = false, want true from flag")
	}
	if !cfg.NewSession {
		t.Errorf("NewSession = false, want true from flag")
	}
}

func TestValidateCallConfig(t *testing.T) {
	valid := func() *CallConfig {
		return &CallConfig{
			ServerURL:    "http://localhost:8080",
			SnapshotPath: "call.db",
			AudioCfg:     CallAudioConfig{InputFormat: "pulse", InputDevice: "default", SampleRate: 16000},
			FlowCfg: CallFlowConfig{
				SampleInterval:       100 * time.Millisecond,
				SilenceWindow:        2 * time.Second,
				SilenceThreshold:     0.015,
				MaxListenDuration:    20 * time.Second,
				SafetyMargin:         5 * time.Second,
				PacingDelay:          1500 * time.Millisecond,
				FetchRetryDelay:      2 * time.Second,
				MaxValidationRetries: 3,
				HesitationThreshold:  3 * time.Second,
			},
		}
	}

	if err := validateCallConfig(valid()); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := []struct {
		name      string
		mutate    func(*CallConfig)
		errSubstr string
	}{
		{
			name:      "empty server url",
			mutate:    func(c *CallConfig) { c.ServerURL = "" },
			errSubstr: "CALL_SERVER_URL",
		},
		{
			name:      "empty snapshot path",
			mutate:    func(c *CallConfig) { c.SnapshotPath = "" },
			errSubstr: "CALL_SNAPSHOT_PATH",
		},
		{
			name:      "zero sample interval",
			mutate:    func(c *CallConfig) { c.FlowCfg.SampleInterval = 0 },
			errSubstr: "CALL_FLOW_SAMPLE_INTERVAL",
		},
		{
			name:      "silence window below sample interval",
			mutate:    func(c *CallConfig) { c.FlowCfg.SilenceWindow = 50 * time.Millisecond },
			errSubstr: "CALL_FLOW_SILENCE_WINDOW",
		},
		{
			name:      "max listen not above silence window",
			mutate:    func(c *CallConfig) { c.FlowCfg.MaxListenDuration = 2 * time.Second },
			errSubstr: "CALL_FLOW_MAX_LISTEN_DURATION",
		},
		{
			name:      "zero safety margin",
			mutate:    func(c *CallConfig) { c.FlowCfg.SafetyMargin = 0 },
			errSubstr: "CALL_FLOW_SAFETY_MARGIN",
		},
		{
			name:      "threshold out of range",
			mutate:    func(c *CallConfig) { c.FlowCfg.SilenceThreshold = 1.5 },
			errSubstr: "CALL_FLOW_SILENCE_THRESHOLD",
		},
		{
			name:      "negative pacing delay",
			mutate:    func(c *CallConfig) { c.FlowCfg.PacingDelay = -time.Second },
			errSubstr: "CALL_FLOW_PACING_DELAY",
		},
		{
			name:      "zero validation retries",
			mutate:    func(c *CallConfig) { c.FlowCfg.MaxValidationRetries = 0 },
			errSubstr: "CALL_FLOW_MAX_VALIDATION_RETRIES",
		},
		{
			name:      "zero sample rate",
			mutate:    func(c *CallConfig) { c.AudioCfg.SampleRate = 0 },
			errSubstr: "CALL_AUDIO_SAMPLE_RATE",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			err := validateCallConfig(cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.errSubstr) {
				t.Fatalf("error = %v, expected substring %q", err, tc.errSubstr)
			}
		})
	}
}

func TestValidateConfig_ProviderChecks(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{
			ServerAddr:  ":8080",
			DatabaseURL: "postgres://localhost/voiceqa",
			DBMaxConns:  25,
			DBMinConns:  5,
		}
		cfg.SynthesisCfg.ProviderTimeout = 8 * time.Second
		cfg.ValidationCfg.ConfidenceFloor = 0.3
		cfg.TranscriptionCfg.Provider = "http"
		return cfg
	}

	if err := validateConfig(valid()); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := []struct {
		name      string
		mutate    func(*Config)
		errSubstr string
	}{
		{
			name:      "db max conns out of bounds",
			mutate:    func(c *Config) { c.DBMaxConns = 0 },
			errSubstr: "DB_MAX_CONNS",
		},
		{
			name:      "db min conns above max",
			mutate:    func(c *Config) { c.DBMinConns = 100 },
			errSubstr: "DB_MIN_CONNS",
		},
		{
			name:      "elevenlabs enabled without key",
			mutate:    func(c *Config) { c.SynthesisCfg.ElevenLabsCfg.Enabled = true },
			errSubstr: "SYNTHESIS_ELEVENLABS_API_KEY",
		},
		{
			name:      "azure enabled without key",
			mutate:    func(c *Config) { c.SynthesisCfg.AzureCfg.Enabled = true },
			errSubstr: "SYNTHESIS_AZURE_SUBSCRIPTION_KEY",
		},
		{
			name:      "confidence floor above one",
			mutate:    func(c *Config) { c.ValidationCfg.ConfidenceFloor = 1.1 },
			errSubstr: "VALIDATION_CONFIDENCE_FLOOR",
		},
		{
			name:      "events enabled without brokers",
			mutate:    func(c *Config) { c.EventsCfg.Enabled = true },
			errSubstr: "EVENTS_BROKERS",
		},
		{
			name:      "webhook enabled without url",
			mutate:    func(c *Config) { c.WebhookCfg.Enabled = true },
			errSubstr: "WEBHOOK_SERVICE_URL",
		},
		{
			name:      "unknown transcription provider",
			mutate:    func(c *Config) { c.TranscriptionCfg.Provider = "whisperx" },
			errSubstr: "TRANSCRIPTION_PROVIDER",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			err := validateConfig(cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.errSubstr) {
				t.Fatalf("error = %v, expected substring %q", err, tc.errSubstr)
			}
		})
	}
}

func TestGetEnvFile(t *testing.T) {
	cases := []struct {
		environment string
		want        string
	}{
		{"prod", ".env.prod"},
		{"production", ".env.prod"},
		{"local", ".env.local"},
		{"dev", ".env.local"},
		{"development", ".env.local"},
		{"staging", ".env.staging"},
	}

	for _, tc := range cases {
		if got := getEnvFile(tc.environment); got != tc.want {
			t.Errorf("getEnvFile(%q) = %q, want %q", tc.environment, got, tc.want)
		}
	}
}

func TestDefaultQuestions(t *testing.T) {
	if len(defaultQuestions) != 7 {
		t.Fatalf("default question count = %d, want 7", len(defaultQuestions))
	}
	if err := ValidateQuestions(defaultQuestions); err != nil {
		t.Fatalf("default questions invalid: %v", err)
	}
	for i, q := range defaultQuestions {
		if q.Order != i+1 {
			t.Errorf("question %d has order %d, want %d", q.ID, q.Order, i+1)
		}
	}
}

func TestValidateQuestions(t *testing.T) {
	cases := []struct {
		name      string
		mutate    func([]entity.Question)
		errSubstr string
	}{
		{
			name:      "duplicate id",
			mutate:    func(qs []entity.Question) { qs[1].ID = qs[0].ID },
			errSubstr: "duplicate question id",
		},
		{
			name:      "duplicate order",
			mutate:    func(qs []entity.Question) { qs[1].Order = qs[0].Order },
			errSubstr: "duplicate question order",
		},
		{
			name:      "empty text",
			mutate:    func(qs []entity.Question) { qs[0].QuestionText = "" },
			errSubstr: "empty text",
		},
		{
			name:      "non-positive id",
			mutate:    func(qs []entity.Question) { qs[0].ID = 0 },
			errSubstr: "must be positive",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			qs := make([]entity.Question, len(defaultQuestions))
			copy(qs, defaultQuestions)
			tc.mutate(qs)
			err := ValidateQuestions(qs)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.errSubstr) {
				t.Fatalf("error = %v, expected substring %q", err, tc.errSubstr)
			}
		})
	}
}
