package domain

import (
	"encoding/json"
	"errors"
	"strconv"
)

// SelectedOption is the option text a learner picked. Strings are kept
// verbatim; numbers and booleans are rendered as text and null becomes "".
type SelectedOption string

func (o *SelectedOption) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*o = SelectedOption(s)
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*o = ""
	case float64:
		*o = SelectedOption(strconv.FormatFloat(t, 'f', -1, 64))
	case bool:
		*o = SelectedOption(strconv.FormatBool(t))
	default:
		return errors.New("selected_option must be a string")
	}
	return nil
}

// AnswerInput is one submitted answer.
type AnswerInput struct {
	QuestionID     int64          `json:"questionId" binding:"required,min=1"`
	SelectedOption SelectedOption `json:"selected_option"`
}

// SubmitQuizRequest is the quiz-scoped submission contract.
type SubmitQuizRequest struct {
	UserID     int64         `json:"userId" binding:"min=0"`
	QuizID     int64         `json:"quizId"`
	Answers    []AnswerInput `json:"answers" binding:"dive"`
	DurationMs int64         `json:"durationMs" binding:"min=0"`

	// PublishedOnly hides draft quizzes; set for learners.
	PublishedOnly bool `json:"-"`
}

// FreeFormRequest is the submission contract for answers to arbitrary questions.
type FreeFormRequest struct {
	UserID        int64         `json:"userId" binding:"min=0"`
	Answers       []AnswerInput `json:"answers" binding:"dive"`
	DurationMs    int64         `json:"durationMs" binding:"min=0"`
	PublishedOnly bool          `json:"-"`
}

// SubmissionResult is returned by both submission modes.
type SubmissionResult struct {
	Message      string  `json:"message"`
	AttemptID    int64   `json:"attemptId"`
	QuizID       *int64  `json:"quizId,omitempty"`
	Score        int     `json:"score"`
	MaxScore     int     `json:"maxScore"`
	Percent      float64 `json:"percent"`
	NumQuestions int     `json:"numQuestions"`
	Correct      int     `json:"correct"`
}

// AttemptQuery selects a page of a user's attempt history.
type AttemptQuery struct {
	UserID      int64
	QuizID      *int64
	Page        int
	Limit       int
	WithAnswers bool
}

// AttemptFilter is the storage-level form of AttemptQuery.
type AttemptFilter struct {
	UserID int64
	QuizID *int64
	Limit  int
	Offset int
}

// QuestionFilter is the storage-level question listing filter.
type QuestionFilter struct {
	SkillID *int64
	QuizID  *int64
	Search  string
	Sort    string
	Desc    bool
	Shuffle bool
	Limit   int
	Offset  int

	// PublishedOnly keeps questions whose quiz is published.
	PublishedOnly bool
}

// SkillInput creates a skill.
type SkillInput struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// SkillPatch updates a skill; nil fields are left unchanged.
type SkillPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// QuizInput creates a quiz under a skill.
type QuizInput struct {
	Title        string `json:"title" binding:"required"`
	Description  string `json:"description"`
	TimeLimitSec int    `json:"time_limit_sec" binding:"min=0"`
	IsPublished  bool   `json:"is_published"`
}

// QuizPatch updates a quiz; nil fields are left unchanged.
type QuizPatch struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	TimeLimitSec *int    `json:"time_limit_sec"`
	IsPublished  *bool   `json:"is_published"`
}

// QuestionInput creates a question.
type QuestionInput struct {
	QuizID        int64    `json:"quiz_id" binding:"required,min=1"`
	SkillID       *int64   `json:"skill_id"`
	QuestionText  string   `json:"question_text" binding:"required"`
	Options       []string `json:"options" binding:"required"`
	CorrectAnswer string   `json:"correct_answer" binding:"required"`
	Points        *int     `json:"points"`
}

// QuestionPatch updates a question; nil fields are left unchanged.
type QuestionPatch struct {
	QuizID        *int64    `json:"quiz_id"`
	SkillID       *int64    `json:"skill_id"`
	QuestionText  *string   `json:"question_text"`
	Options       *[]string `json:"options"`
	CorrectAnswer *string   `json:"correct_answer"`
	Points        *int      `json:"points"`
}

// RegisterInput creates a learner account.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginInput authenticates a user.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserPatch updates a user; nil fields are left unchanged.
type UserPatch struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Role     *Role   `json:"role"`
}

// Page is a paginated list.
type Page[T any] struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	Items      []T   `json:"items"`
}

// NewPage assembles a page and derives TotalPages.
func NewPage[T any](page, size int, total int64, items []T) Page[T] {
	pages := 0
	if size > 0 {
		pages = int((total + int64(size) - 1) / int64(size))
	}
	if items == nil {
		items = []T{}
	}
	return Page[T]{Page: page, PageSize: size, Total: total, TotalPages: pages, Items: items}
}

// ClampPage normalizes pagination input: page >= 1 and 1 <= limit <= max.
func ClampPage(page, limit, def, max int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	return page, limit
}
