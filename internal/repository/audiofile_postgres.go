package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voxline/voiceqa-backend/internal/audiostore"
	"github.com/voxline/voiceqa-backend/internal/entity"
)

var _ audiostore.Registry = &AudioFilePostgres{}

// AudioFilePostgres tracks audio assets on disk so the cleanup job can expire
// them together with their rows.
type AudioFilePostgres struct {
	db *pgxpool.Pool
}

func NewAudioFilePostgres(db *pgxpool.Pool) *AudioFilePostgres {
	return &AudioFilePostgres{db: db}
}

const registerAudioFileQuery = `
INSERT INTO audio_files (name, session_id)
VALUES ($1, $2)
ON CONFLICT (name) DO UPDATE SET created_at = now()`

func (r *AudioFilePostgres) Register(ctx context.Context, file entity.AudioFile) error {
	sessionID := pgtype.UUID{}
	if file.SessionID != "" {
		sid, err := pgUUID(file.SessionID)
		if err != nil {
			return fmt.Errorf("invalid session ID for audio file %s: %w", file.Name, err)
		}
		sessionID = sid
	}

	if _, err := r.db.Exec(ctx, registerAudioFileQuery, file.Name, sessionID); err != nil {
		return fmt.Errorf("register audio file %s: %w", file.Name, err)
	}
	return nil
}

const listAudioFilesOlderThanQuery = `
SELECT name, session_id, created_at
FROM audio_files
WHERE created_at < $1
ORDER BY created_at`

func (r *AudioFilePostgres) ListOlderThan(ctx context.Context, cutoff time.Time) ([]entity.AudioFile, error) {
	rows, err := r.db.Query(ctx, listAudioFilesOlderThanQuery, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list expired audio files: %w", err)
	}
	defer rows.Close()

	var files []entity.AudioFile
	for rows.Next() {
		var row audioFileRow
		if err := rows.Scan(&row.Name, &row.SessionID, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audio file: %w", err)
		}
		files = append(files, toEntityAudioFile(&row))
	}

	return files, rows.Err()
}

const deleteAudioFilesQuery = `DELETE FROM audio_files WHERE name = ANY($1)`

func (r *AudioFilePostgres) Delete(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}
	if _, err := r.db.Exec(ctx, deleteAudioFilesQuery, names); err != nil {
		return fmt.Errorf("delete audio file rows: %w", err)
	}
	return nil
}
