// Package offline renders speech without network access. With a piper binary
// configured it produces real speech; otherwise it renders a spoken-cadence
// tone pattern, so the synthesis cascade always terminates with playable
// audio.
package offline

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os/exec"
	"strings"
	"time"

	"github.com/voxline/voiceqa-backend/internal/config"
	"github.com/voxline/voiceqa-backend/internal/entity"
	"github.com/voxline/voiceqa-backend/internal/pkg/wav"
	"go.uber.org/zap"
)

type Engine struct {
	cfg    config.OfflineTTSConfig
	logger *zap.Logger
}

func NewEngine(cfg config.OfflineTTSConfig, logger *zap.Logger) *Engine {
	return &Engine{
		cfg:    cfg,
		logger: logger,
	}
}

func (e *Engine) Name() string {
	return "offline"
}

func (e *Engine) Synthesize(ctx context.Context, text string, style entity.VoiceStyle) (*entity.SpeechAudio, error) {
	if e.cfg.PiperPath != "" {
		return e.synthesizePiper(ctx, text)
	}
	return e.renderTonePattern(text, style), nil
}

// synthesizePiper shells out to the piper binary: text on stdin, WAV on
// stdout. A configured-but-broken piper is a deployment defect and surfaces
// as an error; the startup probe catches it before any call does.
func (e *Engine) synthesizePiper(ctx context.Context, text string) (*entity.SpeechAudio, error) {
	execCtx, cancel := context.WithTimeout(ctx, e.cfg.ExecTimeout)
	defer cancel()

	args := []string{"--output_file", "-"}
	if e.cfg.PiperModel != "" {
		args = append(args, "--model", e.cfg.PiperModel)
	}

	cmd := exec.CommandContext(execCtx, e.cfg.PiperPath, args...)
	cmd.Stdin = strings.NewReader(text)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("piper synthesis: %w, stderr: %s", err, stderr.String())
		}
		return nil, fmt.Errorf("piper synthesis: %w", err)
	}

	if stdout.Len() == 0 {
		return nil, fmt.Errorf("piper produced no audio for %d chars of text", len(text))
	}

	e.logger.Debug("piper synthesis done",
		zap.Int("text_length", len(text)),
		zap.Int("audio_bytes", stdout.Len()),
	)

	return &entity.SpeechAudio{
		Data:     stdout.Bytes(),
		MIMEType: "audio/wav",
		Provider: e.Name(),
	}, nil
}

// renderTonePattern produces a WAV whose rhythm follows the text: one tone
// burst per word, longer words sounding longer, with pauses at punctuation.
// It is not speech, but it paces the call the way speech would.
func (e *Engine) renderTonePattern(text string, style entity.VoiceStyle) *entity.SpeechAudio {
	rate := e.cfg.SampleRate
	if rate <= 0 {
		rate = 16000
	}
	speed := style.Speed
	if speed <= 0 {
		speed = 1.0
	}

	var pcm []int16
	pcm = appendSilence(pcm, rate, scaled(150*time.Millisecond, speed))

	words := strings.Fields(text)
	if len(words) == 0 {
		pcm = appendSilence(pcm, rate, 350*time.Millisecond)
	}

	for _, word := range words {
		burst := time.Duration(60+30*min(len(word), 8)) * time.Millisecond
		freq := 320.0 + float64(len(word)%5)*40.0
		pcm = appendTone(pcm, rate, freq, scaled(burst, speed))

		gap := 80 * time.Millisecond
		switch {
		case strings.ContainsAny(word[len(word)-1:], ".!?"):
			gap = 280 * time.Millisecond
		case strings.ContainsAny(word[len(word)-1:], ",;:"):
			gap = 160 * time.Millisecond
		}
		pcm = appendSilence(pcm, rate, scaled(gap, speed))
	}

	return &entity.SpeechAudio{
		Data:     wav.Encode(pcm, rate),
		MIMEType: "audio/wav",
		Provider: e.Name(),
	}
}

func scaled(d time.Duration, speed float64) time.Duration {
	return time.Duration(float64(d) / speed)
}

func appendTone(pcm []int16, rate int, freq float64, d time.Duration) []int16 {
	n := int(float64(rate) * d.Seconds())
	ramp := rate / 100 // 10ms attack and decay, avoids clicks
	if ramp < 1 {
		ramp = 1
	}

	for i := 0; i < n; i++ {
		env := 1.0
		if i < ramp {
			env = float64(i) / float64(ramp)
		} else if n-i < ramp {
			env = float64(n-i) / float64(ramp)
		}
		sample := math.Sin(2*math.Pi*freq*float64(i)/float64(rate)) * env * 0.4
		pcm = append(pcm, int16(sample*32767))
	}

	return pcm
}

func appendSilence(pcm []int16, rate int, d time.Duration) []int16 {
	return append(pcm, make([]int16, int(float64(rate)*d.Seconds()))...)
}
