package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"skill-quiz-service/internal/app"
	"skill-quiz-service/internal/domain"
)

// QuizLoader loads quiz views over a pgx pool. It backs the quiz view caches
// and stays off the bun connection used for writes.
type QuizLoader struct {
	pool *pgxpool.Pool
}

var _ app.QuizLoader = (*QuizLoader)(nil)

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

// NewPool opens a pgx pool for dsn.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect pgx pool: %w", err)
	}
	return pool, nil
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID int64) (domain.QuizView, error) {
	var view domain.QuizView
	err := l.pool.QueryRow(ctx, `
SELECT id, skill_id, title, description, time_limit_sec, is_published, created_at, updated_at
FROM quizzes WHERE id=$1`, quizID).Scan(
		&view.ID, &view.SkillID, &view.Title, &view.Description,
		&view.TimeLimitSec, &view.IsPublished, &view.CreatedAt, &view.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuizView{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.QuizView{}, fmt.Errorf("load quiz: %w", err)
	}

	rows, err := l.pool.Query(ctx, `
SELECT id, quiz_id, skill_id, question_text, options, correct_answer, points, created_at, updated_at
FROM questions WHERE quiz_id=$1 ORDER BY id`, quizID)
	if err != nil {
		return domain.QuizView{}, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	view.Questions = []domain.Question{}
	for rows.Next() {
		var (
			q   domain.Question
			raw []byte
		)
		if err := rows.Scan(&q.ID, &q.QuizID, &q.SkillID, &q.QuestionText, &raw, &q.CorrectAnswer, &q.Points, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return domain.QuizView{}, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(raw, &q.Options); err != nil {
			return domain.QuizView{}, fmt.Errorf("unmarshal options: %w", err)
		}
		view.Questions = append(view.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return domain.QuizView{}, fmt.Errorf("load questions: %w", err)
	}
	return view, nil
}
