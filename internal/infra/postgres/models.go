package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"skill-quiz-service/internal/domain"
)

type userRow struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           int64     `bun:"id,pk,autoincrement"`
	Name         string    `bun:"name,notnull"`
	Email        string    `bun:"email,notnull"`
	PasswordHash string    `bun:"password_hash,notnull"`
	Role         string    `bun:"role,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
	UpdatedAt    time.Time `bun:"updated_at,notnull"`
}

func (r userRow) domain() domain.User {
	return domain.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Role:         domain.Role(r.Role),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func newUserRow(u *domain.User) *userRow {
	return &userRow{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

type skillRow struct {
	bun.BaseModel `bun:"table:skills,alias:s"`

	ID          int64     `bun:"id,pk,autoincrement"`
	Name        string    `bun:"name,notnull"`
	Description string    `bun:"description,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
	UpdatedAt   time.Time `bun:"updated_at,notnull"`
}

func (r skillRow) domain() domain.Skill {
	return domain.Skill{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type quizRow struct {
	bun.BaseModel `bun:"table:quizzes,alias:qz"`

	ID           int64     `bun:"id,pk,autoincrement"`
	SkillID      int64     `bun:"skill_id,notnull"`
	Title        string    `bun:"title,notnull"`
	Description  string    `bun:"description,notnull"`
	TimeLimitSec int       `bun:"time_limit_sec,notnull"`
	IsPublished  bool      `bun:"is_published,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
	UpdatedAt    time.Time `bun:"updated_at,notnull"`
}

func (r quizRow) domain() domain.Quiz {
	return domain.Quiz{
		ID:           r.ID,
		SkillID:      r.SkillID,
		Title:        r.Title,
		Description:  r.Description,
		TimeLimitSec: r.TimeLimitSec,
		IsPublished:  r.IsPublished,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type questionRow struct {
	bun.BaseModel `bun:"table:questions,alias:q"`

	ID            int64     `bun:"id,pk,autoincrement"`
	QuizID        int64     `bun:"quiz_id,notnull"`
	SkillID       *int64    `bun:"skill_id"`
	QuestionText  string    `bun:"question_text,notnull"`
	Options       []string  `bun:"options,type:jsonb,notnull"`
	CorrectAnswer string    `bun:"correct_answer,notnull"`
	Points        int       `bun:"points,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
	UpdatedAt     time.Time `bun:"updated_at,notnull"`
}

func (r questionRow) domain() domain.Question {
	return domain.Question{
		ID:            r.ID,
		QuizID:        r.QuizID,
		SkillID:       r.SkillID,
		QuestionText:  r.QuestionText,
		Options:       r.Options,
		CorrectAnswer: r.CorrectAnswer,
		Points:        r.Points,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func newQuestionRow(q *domain.Question) *questionRow {
	return &questionRow{
		ID:            q.ID,
		QuizID:        q.QuizID,
		SkillID:       q.SkillID,
		QuestionText:  q.QuestionText,
		Options:       q.Options,
		CorrectAnswer: q.CorrectAnswer,
		Points:        q.Points,
		CreatedAt:     q.CreatedAt,
		UpdatedAt:     q.UpdatedAt,
	}
}

type attemptRow struct {
	bun.BaseModel `bun:"table:quiz_attempts,alias:att"`

	ID           int64     `bun:"id,pk,autoincrement"`
	UserID       int64     `bun:"user_id,notnull"`
	QuizID       *int64    `bun:"quiz_id"`
	TotalScore   int       `bun:"total_score,notnull"`
	MaxScore     int       `bun:"max_score,notnull"`
	NumQuestions int       `bun:"num_questions,notnull"`
	DurationMs   int64     `bun:"duration_ms,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
	UpdatedAt    time.Time `bun:"updated_at,notnull"`
}

type answerRow struct {
	bun.BaseModel `bun:"table:quiz_answers,alias:a"`

	ID             int64     `bun:"id,pk,autoincrement"`
	AttemptID      int64     `bun:"attempt_id,notnull"`
	QuestionID     int64     `bun:"question_id,notnull"`
	SelectedOption string    `bun:"selected_option,notnull"`
	IsCorrect      bool      `bun:"is_correct,notnull"`
	PointsEarned   int       `bun:"points_earned,notnull"`
	CreatedAt      time.Time `bun:"created_at,notnull"`
	UpdatedAt      time.Time `bun:"updated_at,notnull"`
}

// attemptRecordRow is an attempt joined with its quiz and skill.
type attemptRecordRow struct {
	ID              int64     `bun:"id"`
	UserID          int64     `bun:"user_id"`
	QuizID          *int64    `bun:"quiz_id"`
	TotalScore      int       `bun:"total_score"`
	MaxScore        int       `bun:"max_score"`
	NumQuestions    int       `bun:"num_questions"`
	DurationMs      int64     `bun:"duration_ms"`
	CreatedAt       time.Time `bun:"created_at"`
	QuizTitle       *string   `bun:"quiz_title"`
	QuizDescription *string   `bun:"quiz_description"`
	SkillID         *int64    `bun:"skill_id"`
	SkillName       *string   `bun:"skill_name"`
}

func (r attemptRecordRow) domain() domain.AttemptRecord {
	return domain.AttemptRecord{
		Attempt: domain.Attempt{
			ID:           r.ID,
			UserID:       r.UserID,
			QuizID:       r.QuizID,
			TotalScore:   r.TotalScore,
			MaxScore:     r.MaxScore,
			NumQuestions: r.NumQuestions,
			DurationMs:   r.DurationMs,
			CreatedAt:    r.CreatedAt,
		},
		QuizTitle:       r.QuizTitle,
		QuizDescription: r.QuizDescription,
		SkillID:         r.SkillID,
		SkillName:       r.SkillName,
	}
}

// answerDetailRow is an answer joined with its question.
type answerDetailRow struct {
	ID             int64  `bun:"id"`
	AttemptID      int64  `bun:"attempt_id"`
	QuestionID     int64  `bun:"question_id"`
	SelectedOption string `bun:"selected_option"`
	IsCorrect      bool   `bun:"is_correct"`
	PointsEarned   int    `bun:"points_earned"`
	QuestionText   string `bun:"question_text"`
	CorrectAnswer  string `bun:"correct_answer"`
}
