package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voxline/voiceqa-backend/internal/entity"
)

// SessionRepository defines the interface for session persistence
type SessionRepository interface {
	CreateSession(ctx context.Context, session entity.Session) (*entity.Session, error)
	GetSessionByID(ctx context.Context, id string) (*entity.Session, error)
	UpdateSessionStatus(ctx context.Context, id string, status entity.SessionStatus) (*entity.Session, error)
	CountSessionsByStatus(ctx context.Context) (map[entity.SessionStatus]int, error)
}

var _ SessionRepository = &SessionPostgres{}

// SessionPostgres implements SessionRepository using PostgreSQL
type SessionPostgres struct {
	db *pgxpool.Pool
}

func NewSessionPostgres(db *pgxpool.Pool) *SessionPostgres {
	return &SessionPostgres{db: db}
}

const createSessionQuery = `
INSERT INTO sessions (id, status, total_questions)
VALUES ($1, $2, $3)
RETURNING id, status, total_questions, created_at, updated_at`

func (r *SessionPostgres) CreateSession(ctx context.Context, session entity.Session) (*entity.Session, error) {
	sessionID, err := pgUUID(session.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid session ID: %w", err)
	}

	var row sessionRow
	err = r.db.QueryRow(ctx, createSessionQuery, sessionID, string(session.Status), int32(session.TotalQuestions)).
		Scan(&row.ID, &row.Status, &row.TotalQuestions, &row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return toEntitySession(&row), nil
}

const getSessionQuery = `
SELECT id, status, total_questions, created_at, updated_at
FROM sessions
WHERE id = $1`

func (r *SessionPostgres) GetSessionByID(ctx context.Context, id string) (*entity.Session, error) {
	sessionID, err := pgUUID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed id %q", entity.ErrSessionNotFound, id)
	}

	var row sessionRow
	err = r.db.QueryRow(ctx, getSessionQuery, sessionID).
		Scan(&row.ID, &row.Status, &row.TotalQuestions, &row.CreatedAt, &row.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", entity.ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	return toEntitySession(&row), nil
}

const updateSessionStatusQuery = `
UPDATE sessions
SET status = $2, updated_at = now()
WHERE id = $1
RETURNING id, status, total_questions, created_at, updated_at`

func (r *SessionPostgres) UpdateSessionStatus(ctx context.Context, id string, status entity.SessionStatus) (
	*entity.Session, error,
) {
	sessionID, err := pgUUID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed id %q", entity.ErrSessionNotFound, id)
	}

	var row sessionRow
	err = r.db.QueryRow(ctx, updateSessionStatusQuery, sessionID, string(status)).
		Scan(&row.ID, &row.Status, &row.TotalQuestions, &row.CreatedAt, &row.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", entity.ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("update session status: %w", err)
	}

	return toEntitySession(&row), nil
}

const countSessionsByStatusQuery = `
SELECT status, COUNT(*)
FROM sessions
GROUP BY status`

func (r *SessionPostgres) CountSessionsByStatus(ctx context.Context) (map[entity.SessionStatus]int, error) {
	rows, err := r.db.Query(ctx, countSessionsByStatusQuery)
	if err != nil {
		return nil, fmt.Errorf("count sessions by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[entity.SessionStatus]int)
	for rows.Next() {
		var (
			status string
			count  int64
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan session count: %w", err)
		}
		counts[entity.SessionStatus(status)] = int(count)
	}

	return counts, rows.Err()
}
