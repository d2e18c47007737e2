package domain

import "time"

// Role gates access to admin-only operations.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is an account able to take quizzes.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Skill is a topic grouping quizzes and (legacy) questions.
type Skill struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Quiz is a gradable set of questions under one skill.
type Quiz struct {
	ID           int64     `json:"id"`
	SkillID      int64     `json:"skill_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	TimeLimitSec int       `json:"time_limit_sec"` // 0 means unlimited
	IsPublished  bool      `json:"is_published"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Question is a multiple-choice item of a quiz. CorrectAnswer always equals one of Options.
type Question struct {
	ID            int64     `json:"id"`
	QuizID        int64     `json:"quiz_id"`
	SkillID       *int64    `json:"skill_id"`
	QuestionText  string    `json:"question_text"`
	Options       []string  `json:"options"`
	CorrectAnswer string    `json:"correct_answer"`
	Points        int       `json:"points"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// QuizView is a quiz together with its questions ordered by id.
type QuizView struct {
	Quiz
	Questions []Question `json:"questions"`
}

// Attempt is one scored submission. It is never updated after creation.
type Attempt struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	QuizID       *int64    `json:"quiz_id"`
	TotalScore   int       `json:"total_score"`
	MaxScore     int       `json:"max_score"`
	NumQuestions int       `json:"num_questions"`
	DurationMs   int64     `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

// Answer is the per-question snapshot recorded with an attempt.
type Answer struct {
	ID             int64  `json:"id"`
	AttemptID      int64  `json:"attempt_id"`
	QuestionID     int64  `json:"question_id"`
	SelectedOption string `json:"selected_option"`
	IsCorrect      bool   `json:"is_correct"`
	PointsEarned   int    `json:"points_earned"`
}

// AttemptRecord is an attempt joined with its parent quiz and skill, if any.
type AttemptRecord struct {
	Attempt
	QuizTitle       *string
	QuizDescription *string
	SkillID         *int64
	SkillName       *string
}

// AnswerDetail is an answer joined with the question it refers to.
type AnswerDetail struct {
	Answer
	QuestionText  string
	CorrectAnswer string
}

// AttemptEvent is published once an attempt has been durably written.
type AttemptEvent struct {
	AttemptID    int64     `json:"attemptId"`
	UserID       int64     `json:"userId"`
	QuizID       *int64    `json:"quizId"`
	Score        int       `json:"score"`
	MaxScore     int       `json:"maxScore"`
	Percent      float64   `json:"percent"`
	NumQuestions int       `json:"numQuestions"`
	Correct      int       `json:"correct"`
	CreatedAt    time.Time `json:"createdAt"`
}
