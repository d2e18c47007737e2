package app

import (
	"context"
	"fmt"
	"time"

	"skill-quiz-service/internal/domain"
)

const (
	defaultAttemptPageSize = 10
	maxAttemptPageSize     = 100
)

// AttemptView is one attempt shaped for the history endpoint.
type AttemptView struct {
	ID           int64          `json:"id"`
	QuizID       *int64         `json:"quizId"`
	Quiz         *QuizSummary   `json:"quiz"`
	Score        int            `json:"score"`
	MaxScore     int            `json:"maxScore"`
	Percent      float64        `json:"percent"`
	NumQuestions int            `json:"numQuestions"`
	Attempted    int            `json:"attempted"`
	Correct      int            `json:"correct"`
	Incorrect    int            `json:"incorrect"`
	DurationMs   int64          `json:"durationMs"`
	CreatedAt    time.Time      `json:"createdAt"`
	Answers      []AnswerReview `json:"answers,omitempty"`
}

// QuizSummary is the parent quiz of an attempt.
type QuizSummary struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	SkillID     *int64  `json:"skillId"`
	SkillName   *string `json:"skillName"`
}

// AnswerReview shows what was chosen against what was correct.
type AnswerReview struct {
	QuestionID     int64  `json:"questionId"`
	QuestionText   string `json:"questionText"`
	SelectedOption string `json:"selectedOption"`
	CorrectAnswer  string `json:"correctAnswer"`
	IsCorrect      bool   `json:"isCorrect"`
	PointsEarned   int    `json:"pointsEarned"`
}

// AttemptHistory is a page of attempts for one user.
type AttemptHistory struct {
	UserID int64 `json:"userId"`
	domain.Page[AttemptView]
}

// AttemptService reads back recorded attempts. Scores are never recomputed;
// percent is derived from the stored totals.
type AttemptService struct {
	store Store
}

func NewAttemptService(store Store) *AttemptService {
	return &AttemptService{store: store}
}

// ListAttempts returns a page of the user's attempts, newest first.
func (s *AttemptService) ListAttempts(ctx context.Context, q domain.AttemptQuery) (AttemptHistory, error) {
	if q.UserID <= 0 {
		return AttemptHistory{}, domain.Invalid("userId is required")
	}
	page, limit := domain.ClampPage(q.Page, q.Limit, defaultAttemptPageSize, maxAttemptPageSize)

	records, total, err := s.store.ListAttempts(ctx, domain.AttemptFilter{
		UserID: q.UserID,
		QuizID: q.QuizID,
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return AttemptHistory{}, fmt.Errorf("list attempts: %w", err)
	}

	ids := make([]int64, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	var answers []domain.AnswerDetail
	if len(ids) > 0 {
		answers, err = s.store.AnswersByAttempts(ctx, ids)
		if err != nil {
			return AttemptHistory{}, fmt.Errorf("load attempt answers: %w", err)
		}
	}
	byAttempt := make(map[int64][]domain.AnswerDetail, len(records))
	for _, a := range answers {
		byAttempt[a.AttemptID] = append(byAttempt[a.AttemptID], a)
	}

	items := make([]AttemptView, 0, len(records))
	for _, r := range records {
		items = append(items, shapeAttempt(r, byAttempt[r.ID], q.WithAnswers))
	}
	return AttemptHistory{UserID: q.UserID, Page: domain.NewPage(page, limit, total, items)}, nil
}

func shapeAttempt(r domain.AttemptRecord, answers []domain.AnswerDetail, withAnswers bool) AttemptView {
	view := AttemptView{
		ID:           r.ID,
		QuizID:       r.QuizID,
		Score:        r.TotalScore,
		MaxScore:     r.MaxScore,
		Percent:      domain.Percent(int64(r.TotalScore), int64(r.MaxScore)),
		NumQuestions: r.NumQuestions,
		Attempted:    len(answers),
		DurationMs:   r.DurationMs,
		CreatedAt:    r.CreatedAt,
	}
	if r.QuizTitle != nil {
		view.Quiz = &QuizSummary{
			Title:     *r.QuizTitle,
			SkillID:   r.SkillID,
			SkillName: r.SkillName,
		}
		if r.QuizDescription != nil {
			view.Quiz.Description = *r.QuizDescription
		}
	}
	for _, a := range answers {
		if a.IsCorrect {
			view.Correct++
		}
	}
	view.Incorrect = view.Attempted - view.Correct
	if view.Incorrect < 0 {
		view.Incorrect = 0
	}
	if withAnswers {
		view.Answers = make([]AnswerReview, 0, len(answers))
		for _, a := range answers {
			view.Answers = append(view.Answers, AnswerReview{
				QuestionID:     a.QuestionID,
				QuestionText:   a.QuestionText,
				SelectedOption: a.SelectedOption,
				CorrectAnswer:  a.CorrectAnswer,
				IsCorrect:      a.IsCorrect,
				PointsEarned:   a.PointsEarned,
			})
		}
	}
	return view
}
