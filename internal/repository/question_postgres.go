package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voxline/voiceqa-backend/internal/entity"
)

// QuestionRepository defines the interface for question reference data.
type QuestionRepository interface {
	SeedQuestions(ctx context.Context, questions []entity.Question) error
	GetAllQuestions(ctx context.Context) ([]entity.Question, error)
	GetQuestionByID(ctx context.Context, id int) (*entity.Question, error)
	GetQuestionAt(ctx context.Context, index int) (*entity.Question, error)
	CountQuestions(ctx context.Context) (int, error)
}

var _ QuestionRepository = &QuestionPostgres{}

// QuestionPostgres implements QuestionRepository using PostgreSQL
type QuestionPostgres struct {
	db *pgxpool.Pool
}

func NewQuestionPostgres(db *pgxpool.Pool) *QuestionPostgres {
	return &QuestionPostgres{db: db}
}

const seedQuestionQuery = `
INSERT INTO questions (id, question_text, category, is_required, ord)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO NOTHING`

// SeedQuestions inserts the configured question list. Existing rows are left
// untouched so live data is never rewritten by a config edit.
func (r *QuestionPostgres) SeedQuestions(ctx context.Context, questions []entity.Question) error {
	for _, q := range questions {
		_, err := r.db.Exec(ctx, seedQuestionQuery,
			int32(q.ID), q.QuestionText, q.Category, q.IsRequired, int32(q.Order))
		if err != nil {
			return fmt.Errorf("seed question %d: %w", q.ID, err)
		}
	}
	return nil
}

const getAllQuestionsQuery = `
SELECT id, question_text, category, is_required, ord
FROM questions
ORDER BY ord`

func (r *QuestionPostgres) GetAllQuestions(ctx context.Context) ([]entity.Question, error) {
	rows, err := r.db.Query(ctx, getAllQuestionsQuery)
	if err != nil {
		return nil, fmt.Errorf("get questions: %w", err)
	}
	defer rows.Close()

	var questions []entity.Question
	for rows.Next() {
		var q entity.Question
		if err := rows.Scan(&q.ID, &q.QuestionText, &q.Category, &q.IsRequired, &q.Order); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, q)
	}

	return questions, rows.Err()
}

const getQuestionByIDQuery = `
SELECT id, question_text, category, is_required, ord
FROM questions
WHERE id = $1`

func (r *QuestionPostgres) GetQuestionByID(ctx context.Context, id int) (*entity.Question, error) {
	var q entity.Question
	err := r.db.QueryRow(ctx, getQuestionByIDQuery, int32(id)).
		Scan(&q.ID, &q.QuestionText, &q.Category, &q.IsRequired, &q.Order)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", entity.ErrQuestionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get question: %w", err)
	}

	return &q, nil
}

const getQuestionAtQuery = `
SELECT id, question_text, category, is_required, ord
FROM questions
ORDER BY ord
LIMIT 1 OFFSET $1`

// GetQuestionAt returns the question at a zero-based position in the ordered
// list.
func (r *QuestionPostgres) GetQuestionAt(ctx context.Context, index int) (*entity.Question, error) {
	if index < 0 {
		return nil, fmt.Errorf("%w: index %d", entity.ErrIndexOutOfRange, index)
	}

	var q entity.Question
	err := r.db.QueryRow(ctx, getQuestionAtQuery, int32(index)).
		Scan(&q.ID, &q.QuestionText, &q.Category, &q.IsRequired, &q.Order)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: index %d", entity.ErrIndexOutOfRange, index)
	}
	if err != nil {
		return nil, fmt.Errorf("get question at %d: %w", index, err)
	}

	return &q, nil
}

const countQuestionsQuery = `SELECT COUNT(*) FROM questions`

func (r *QuestionPostgres) CountQuestions(ctx context.Context) (int, error) {
	var count int64
	if err := r.db.QueryRow(ctx, countQuestionsQuery).Scan(&count); err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return int(count), nil
}
