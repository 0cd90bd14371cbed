package offline

import (
	"context"
	"testing"
	"time"

	"github.com/voxline/voiceqa-backend/internal/config"
	"github.com/voxline/voiceqa-backend/internal/entity"
	"github.com/voxline/voiceqa-backend/internal/pkg/wav"
	"go.uber.org/zap"
)

func toneEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(config.OfflineTTSConfig{SampleRate: 16000, ExecTimeout: time.Second}, zap.NewNop())
}

func TestRenderTonePattern_ProducesDecodableWav(t *testing.T) {
	e := toneEngine(t)

	audio, err := e.Synthesize(context.Background(), "What is your first and last name?", entity.DefaultVoiceStyle())
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if audio.Provider != "offline" {
		t.Errorf("provider = %q, want offline", audio.Provider)
	}
	if audio.MIMEType != "audio/wav" {
		t.Errorf("mime = %q, want audio/wav", audio.MIMEType)
	}

	pcm, rate, err := wav.Decode(audio.Data)
	if err != nil {
		t.Fatalf("output is not valid wav: %v", err)
	}
	if rate != 16000 {
		t.Errorf("rate = %d, want 16000", rate)
	}
	if len(pcm) == 0 {
		t.Fatal("no samples rendered")
	}
}

func TestRenderTonePattern_LongerTextLongerAudio(t *testing.T) {
	e := toneEngine(t)

	short, err := e.Synthesize(context.Background(), "Yes.", entity.DefaultVoiceStyle())
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	long, err := e.Synthesize(context.Background(), "Please share your Social Security Number, all nine digits, one at a time.", entity.DefaultVoiceStyle())
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}

	if len(long.Data) <= len(short.Data) {
		t.Errorf("long text audio (%d bytes) not longer than short text audio (%d bytes)", len(long.Data), len(short.Data))
	}
}

func TestRenderTonePattern_EmptyTextStillPlayable(t *testing.T) {
	e := toneEngine(t)

	audio, err := e.Synthesize(context.Background(), "", entity.DefaultVoiceStyle())
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}

	pcm, _, err := wav.Decode(audio.Data)
	if err != nil {
		t.Fatalf("output is not valid wav: %v", err)
	}
	if len(pcm) == 0 {
		t.Fatal("expected non-empty silence")
	}
}

func TestRenderTonePattern_SpeedShortensAudio(t *testing.T) {
	e := toneEngine(t)
	text := "Are you under the age of 40?"

	normal, _ := e.Synthesize(context.Background(), text, entity.VoiceStyle{Speed: 1.0})
	fast, _ := e.Synthesize(context.Background(), text, entity.VoiceStyle{Speed: 2.0})

	if len(fast.Data) >= len(normal.Data) {
		t.Errorf("fast audio (%d bytes) not shorter than normal (%d bytes)", len(fast.Data), len(normal.Data))
	}
}

func TestSynthesizePiper_MissingBinary(t *testing.T) {
	e := NewEngine(config.OfflineTTSConfig{
		PiperPath:   "/nonexistent/piper",
		ExecTimeout: time.Second,
		SampleRate:  16000,
	}, zap.NewNop())

	_, err := e.Synthesize(context.Background(), "hello", entity.DefaultVoiceStyle())
	if err == nil {
		t.Fatal("expected error for missing piper binary")
	}
}
