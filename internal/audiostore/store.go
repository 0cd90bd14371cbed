// Package audiostore keeps synthesized audio assets and caller recordings on
// disk. It backs the /static/audio/ route, dedupes repeat synthesis through a
// TTL cache, and powers the background cleanup job via a database registry.
package audiostore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/voxline/voiceqa-backend/internal/config"
	"github.com/voxline/voiceqa-backend/internal/entity"
	"github.com/voxline/voiceqa-backend/internal/pkg/metrics"
)

// Registry records which files exist so expired ones can be deleted together
// with their rows.
type Registry interface {
	Register(ctx context.Context, file entity.AudioFile) error
	ListOlderThan(ctx context.Context, cutoff time.Time) ([]entity.AudioFile, error)
	Delete(ctx context.Context, names []string) error
}

type Store struct {
	cfg      config.AudioStoreConfig
	registry Registry
	cache    *gocache.Cache
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

func NewStore(cfg config.AudioStoreConfig, registry Registry, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audio dir %s: %w", cfg.Dir, err)
	}
	return &Store{
		cfg:      cfg,
		registry: registry,
		cache:    gocache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		logger:   logger,
		metrics:  metrics.DefaultMetrics,
	}, nil
}

// QuestionKey names the synthesized asset for one question in one session.
func QuestionKey(questionID int, sessionID string) string {
	return fmt.Sprintf("question_%d_%s", questionID, sessionID)
}

// FallbackKey names the synthesized fallback utterance for one question in
// one session. The attempt number is part of the key because the phrasing
// changes on repeat rejections.
func FallbackKey(questionID int, sessionID string, attempt int) string {
	return fmt.Sprintf("fallback_%d_%s_a%d", questionID, sessionID, attempt)
}

// AnswerName names an uploaded caller recording. The timestamp keeps repeat
// submissions for the same question distinct.
func AnswerName(questionID int, sessionID string) string {
	return fmt.Sprintf("answer_%d_%s_%s.wav", questionID, sessionID, time.Now().Format("20060102_150405"))
}

// IntroductionKey names the shared introduction asset.
const IntroductionKey = "introduction"

// Lookup returns the public URL for a previously saved asset while its cache
// entry is fresh.
func (s *Store) Lookup(key string) (string, bool) {
	v, ok := s.cache.Get(key)
	s.metrics.RecordAudioCache(ok)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// Save writes a synthesized asset under key plus the MIME-derived extension,
// registers it for cleanup and caches its URL. It returns the public URL.
func (s *Store) Save(ctx context.Context, key, sessionID string, audio *entity.SpeechAudio) (string, error) {
	name := key + audio.FileExtension()
	if err := s.write(ctx, name, sessionID, audio.Data); err != nil {
		return "", err
	}
	url := s.URL(name)
	s.cache.Set(key, url, gocache.DefaultExpiration)
	return url, nil
}

// SaveUpload stores a caller recording. Uploads are never cache-deduped.
func (s *Store) SaveUpload(ctx context.Context, name, sessionID string, data []byte) error {
	return s.write(ctx, name, sessionID, data)
}

func (s *Store) write(ctx context.Context, name, sessionID string, data []byte) error {
	path := filepath.Join(s.cfg.Dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write audio file %s: %w", name, err)
	}

	if err := s.registry.Register(ctx, entity.AudioFile{
		Name:      name,
		SessionID: sessionID,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		// The file is usable even if the registry write failed; it will
		// simply never be expired by the cleanup job.
		ctxzap.Warn(ctx, "failed to register audio file",
			zap.String("file", name),
			zap.Error(err))
	}

	ctxzap.Debug(ctx, "audio file stored",
		zap.String("file", name),
		zap.Int("bytes", len(data)))
	return nil
}

// URL maps an asset name onto its public path.
func (s *Store) URL(name string) string {
	return s.cfg.BaseURL + "/" + name
}

// Resolve maps a requested asset name onto its on-disk path. Names that are
// not plain file names (separators, dot-dot) are rejected so the static route
// cannot escape the store directory.
func (s *Store) Resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %s", entity.ErrAudioNotFound, name)
	}
	path := filepath.Join(s.cfg.Dir, name)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %s", entity.ErrAudioNotFound, name)
	}
	return path, nil
}

// CleanupOnce deletes assets older than MaxAge from disk and the registry,
// returning how many were removed.
func (s *Store) CleanupOnce(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.cfg.MaxAge)
	files, err := s.registry.ListOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list expired audio files: %w", err)
	}

	names := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(s.cfg.Dir, f.Name)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove expired audio file",
				zap.String("file", f.Name),
				zap.Error(err))
			continue
		}
		names = append(names, f.Name)
	}

	if len(names) > 0 {
		if err := s.registry.Delete(ctx, names); err != nil {
			return len(names), fmt.Errorf("delete audio registry rows: %w", err)
		}
	}

	s.metrics.RecordAudioCleanup(len(names))
	return len(names), nil
}

// RunCleanup ticks CleanupOnce until ctx is cancelled.
func (s *Store) RunCleanup(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.CleanupOnce(ctx)
			if err != nil {
				s.logger.Error("audio cleanup failed", zap.Error(err))
				continue
			}
			if n > 0 {
				s.logger.Info("expired audio files removed", zap.Int("count", n))
			}
		}
	}
}
