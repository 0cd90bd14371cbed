package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"go.uber.org/zap"

	"github.com/voxline/voiceqa-backend/internal/entity"
)

// FFplayPlayer pipes an audio asset into ffplay and waits for it to finish.
// ffplay probes the container itself, so WAV and MP3 both work.
type FFplayPlayer struct {
	logger *zap.Logger
}

func NewFFplayPlayer(logger *zap.Logger) (*FFplayPlayer, error) {
	if _, err := exec.LookPath("ffplay"); err != nil {
		return nil, fmt.Errorf("%w: ffplay not found in PATH", entity.ErrDeviceUnavailable)
	}
	return &FFplayPlayer{logger: logger}, nil
}

func (p *FFplayPlayer) Play(ctx context.Context, data []byte) error {
	if len(data) == 0 {
		return nil
	}

	cmd := exec.CommandContext(ctx, "ffplay",
		"-hide_banner",
		"-loglevel", "error",
		"-nodisp",
		"-autoexit",
		"-i", "pipe:0",
	)
	cmd.Stdin = bytes.NewReader(data)

	p.logger.Debug("playback started", zap.Int("bytes", len(data)))

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffplay: %w", err)
	}
	return nil
}
