package audio

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/voxline/voiceqa-backend/internal/config"
	"github.com/voxline/voiceqa-backend/internal/entity"
	"github.com/voxline/voiceqa-backend/internal/pkg/wav"
)

// FFmpegRecorder captures the microphone by running ffmpeg with the
// configured input demuxer and streaming mono s16le PCM over stdout.
type FFmpegRecorder struct {
	cfg    config.CallAudioConfig
	logger *zap.Logger
}

func NewFFmpegRecorder(cfg config.CallAudioConfig, logger *zap.Logger) (*FFmpegRecorder, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("%w: ffmpeg not found in PATH", entity.ErrDeviceUnavailable)
	}
	return &FFmpegRecorder{cfg: cfg, logger: logger}, nil
}

func (r *FFmpegRecorder) Start(ctx context.Context) (Capture, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-hide_banner",
		"-loglevel", "error",
		"-f", r.cfg.InputFormat,
		"-i", r.cfg.InputDevice,
		"-ac", "1",
		"-ar", strconv.Itoa(r.cfg.SampleRate),
		"-f", "s16le",
		"-",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start ffmpeg: %v", entity.ErrDeviceUnavailable, err)
	}

	r.logger.Debug("capture started",
		zap.String("input_format", r.cfg.InputFormat),
		zap.String("input_device", r.cfg.InputDevice),
		zap.Int("sample_rate", r.cfg.SampleRate),
	)

	c := &ffmpegCapture{
		cmd:        cmd,
		sampleRate: r.cfg.SampleRate,
		logger:     r.logger,
		done:       make(chan struct{}),
	}
	go c.readLoop(stdout)

	return c, nil
}

type ffmpegCapture struct {
	cmd        *exec.Cmd
	sampleRate int
	logger     *zap.Logger
	done       chan struct{}

	mu       sync.Mutex
	samples  []int16
	levelSum float64
	levelN   int

	stopOnce sync.Once
	wavData  []byte
	stopErr  error
}

// readLoop drains the PCM stream until the pipe closes. Samples straddling a
// read boundary are stitched back together with the carry byte.
func (c *ffmpegCapture) readLoop(r io.Reader) {
	defer close(c.done)

	buf := make([]byte, 4096)
	var carry byte
	haveCarry := false

	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			samples := make([]int16, 0, (len(chunk)+1)/2)

			i := 0
			if haveCarry {
				samples = append(samples, int16(uint16(carry)|uint16(chunk[0])<<8))
				i = 1
				haveCarry = false
			}
			for ; i+1 < len(chunk); i += 2 {
				samples = append(samples, int16(uint16(chunk[i])|uint16(chunk[i+1])<<8))
			}
			if i < len(chunk) {
				carry = chunk[i]
				haveCarry = true
			}

			level := ChunkLevel(samples)

			c.mu.Lock()
			c.samples = append(c.samples, samples...)
			c.levelSum += level
			c.levelN++
			c.mu.Unlock()
		}
		if err != nil {
			if err != io.EOF {
				c.logger.Debug("capture stream closed", zap.Error(err))
			}
			return
		}
	}
}

func (c *ffmpegCapture) Level() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.levelN == 0 {
		return 0
	}
	avg := c.levelSum / float64(c.levelN)
	c.levelSum = 0
	c.levelN = 0
	return avg
}

func (c *ffmpegCapture) Stop() ([]byte, error) {
	c.stopOnce.Do(func() {
		// Kill rather than signal: ffmpeg buffers nothing useful past
		// what the reader already drained.
		if c.cmd.Process != nil {
			_ = c.cmd.Process.Kill()
		}
		<-c.done
		_ = c.cmd.Wait()

		c.mu.Lock()
		defer c.mu.Unlock()

		if len(c.samples) == 0 {
			return
		}
		c.wavData = wav.Encode(c.samples, c.sampleRate)
		c.logger.Debug("capture stopped",
			zap.Int("samples", len(c.samples)),
			zap.Int("wav_bytes", len(c.wavData)),
		)
	})
	return c.wavData, c.stopErr
}
