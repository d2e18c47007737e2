package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"skill-quiz-service/internal/domain"
)

// ScoringService grades submissions and records each one as an attempt.
// Every submission is written in a single transaction: the attempt row and all
// of its answer rows are committed together or not at all.
type ScoringService struct {
	store Store
	feed  AttemptPublisher
	log   *zap.Logger
	rec   SubmissionRecorder
}

// SubmissionRecorder counts submissions by mode and outcome.
type SubmissionRecorder interface {
	ObserveSubmission(mode, outcome string)
}

// AttemptPublisher receives every attempt once it has been committed.
type AttemptPublisher interface {
	Publish(event domain.AttemptEvent)
}

func NewScoringService(store Store, feed AttemptPublisher, log *zap.Logger) *ScoringService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ScoringService{store: store, feed: feed, log: log}
}

// WithRecorder attaches a submission counter.
func (s *ScoringService) WithRecorder(rec SubmissionRecorder) *ScoringService {
	s.rec = rec
	return s
}

// SubmitQuiz scores a submission that must cover every question of one quiz.
// Answers to questions outside the quiz are ignored.
func (s *ScoringService) SubmitQuiz(ctx context.Context, req domain.SubmitQuizRequest) (domain.SubmissionResult, error) {
	if req.UserID <= 0 || req.QuizID <= 0 {
		return domain.SubmissionResult{}, domain.Invalid("userId & quizId are required")
	}

	var (
		result domain.SubmissionResult
		event  domain.AttemptEvent
	)
	err := s.store.InTx(ctx, func(tx Store) error {
		quiz, err := tx.GetQuiz(ctx, req.QuizID)
		if err != nil {
			return err
		}
		if req.PublishedOnly && !quiz.IsPublished {
			return domain.ErrQuizNotFound
		}
		if len(req.Answers) == 0 {
			return domain.Invalid("answers must be provided")
		}
		questions, err := tx.QuestionsByQuiz(ctx, quiz.ID)
		if err != nil {
			return fmt.Errorf("load quiz questions: %w", err)
		}
		if len(questions) == 0 {
			return domain.Invalid("Quiz has no questions")
		}

		_, selected := firstAnswers(req.Answers)
		var missing []int64
		for _, q := range questions {
			if _, ok := selected[q.ID]; !ok {
				missing = append(missing, q.ID)
			}
		}
		if len(missing) > 0 {
			return domain.MissingAnswers(missing)
		}

		quizID := quiz.ID
		result, event, err = s.record(ctx, tx, req.UserID, &quizID, questions, selected, req.DurationMs)
		return err
	})
	s.observe("quiz", err)
	if err != nil {
		return domain.SubmissionResult{}, err
	}
	s.publish(event)
	return result, nil
}

// SubmitFreeForm scores answers to arbitrary questions. It fails without
// writing anything when any referenced question does not exist.
func (s *ScoringService) SubmitFreeForm(ctx context.Context, req domain.FreeFormRequest) (domain.SubmissionResult, error) {
	if req.UserID <= 0 {
		return domain.SubmissionResult{}, domain.Invalid("userId is required")
	}
	if len(req.Answers) == 0 {
		return domain.SubmissionResult{}, domain.Invalid("answers must be a non-empty array")
	}
	ids, selected := firstAnswers(req.Answers)

	var (
		result domain.SubmissionResult
		event  domain.AttemptEvent
	)
	err := s.store.InTx(ctx, func(tx Store) error {
		found, err := tx.QuestionsByIDs(ctx, ids)
		if err != nil {
			return fmt.Errorf("load questions: %w", err)
		}
		byID := make(map[int64]domain.Question, len(found))
		for _, q := range found {
			byID[q.ID] = q
		}
		var missing []int64
		questions := make([]domain.Question, 0, len(ids))
		for _, id := range ids {
			q, ok := byID[id]
			if !ok {
				missing = append(missing, id)
				continue
			}
			questions = append(questions, q)
		}
		if req.PublishedOnly {
			drafts, err := draftQuestions(ctx, tx, questions)
			if err != nil {
				return err
			}
			missing = append(missing, drafts...)
		}
		if len(missing) > 0 {
			return domain.MissingQuestions(missing)
		}

		result, event, err = s.record(ctx, tx, req.UserID, nil, questions, selected, req.DurationMs)
		return err
	})
	s.observe("free_form", err)
	if err != nil {
		return domain.SubmissionResult{}, err
	}
	s.publish(event)
	return result, nil
}

func (s *ScoringService) record(
	ctx context.Context,
	tx Store,
	userID int64,
	quizID *int64,
	questions []domain.Question,
	selected map[int64]string,
	durationMs int64,
) (domain.SubmissionResult, domain.AttemptEvent, error) {
	if _, err := tx.GetUser(ctx, userID); err != nil {
		return domain.SubmissionResult{}, domain.AttemptEvent{}, err
	}

	answers, total, maxScore, correct := scoreAnswers(questions, selected)
	attempt := domain.Attempt{
		UserID:       userID,
		QuizID:       quizID,
		TotalScore:   total,
		MaxScore:     maxScore,
		NumQuestions: len(questions),
		DurationMs:   durationMs,
	}
	if err := tx.CreateAttempt(ctx, &attempt); err != nil {
		return domain.SubmissionResult{}, domain.AttemptEvent{}, fmt.Errorf("create attempt: %w", err)
	}
	for i := range answers {
		answers[i].AttemptID = attempt.ID
	}
	if err := tx.CreateAnswers(ctx, answers); err != nil {
		return domain.SubmissionResult{}, domain.AttemptEvent{}, fmt.Errorf("create answers: %w", err)
	}

	percent := domain.Percent(int64(total), int64(maxScore))
	result := domain.SubmissionResult{
		Message:      "Quiz submitted",
		AttemptID:    attempt.ID,
		QuizID:       quizID,
		Score:        total,
		MaxScore:     maxScore,
		Percent:      percent,
		NumQuestions: len(questions),
		Correct:      correct,
	}
	event := domain.AttemptEvent{
		AttemptID:    attempt.ID,
		UserID:       userID,
		QuizID:       quizID,
		Score:        total,
		MaxScore:     maxScore,
		Percent:      percent,
		NumQuestions: len(questions),
		Correct:      correct,
		CreatedAt:    attempt.CreatedAt,
	}
	return result, event, nil
}

func (s *ScoringService) publish(event domain.AttemptEvent) {
	if s.feed != nil {
		s.feed.Publish(event)
	}
}

func (s *ScoringService) observe(mode string, err error) {
	outcome := "ok"
	var derr *domain.Error
	switch {
	case err == nil:
	case errors.As(err, &derr):
		outcome = "rejected"
	default:
		outcome = "error"
		s.log.Error("submission rolled back", zap.String("mode", mode), zap.Error(err))
	}
	if s.rec != nil {
		s.rec.ObserveSubmission(mode, outcome)
	}
}

// firstAnswers dedupes answers by question id, keeping the first occurrence.
// ids preserves the order in which question ids were first seen.
func firstAnswers(in []domain.AnswerInput) ([]int64, map[int64]string) {
	ids := make([]int64, 0, len(in))
	selected := make(map[int64]string, len(in))
	for _, a := range in {
		if _, seen := selected[a.QuestionID]; seen {
			continue
		}
		selected[a.QuestionID] = string(a.SelectedOption)
		ids = append(ids, a.QuestionID)
	}
	return ids, selected
}

// scoreAnswers grades each question against the selected option using exact,
// case-sensitive comparison with the stored correct answer.
func scoreAnswers(questions []domain.Question, selected map[int64]string) ([]domain.Answer, int, int, int) {
	answers := make([]domain.Answer, 0, len(questions))
	total, maxScore, correct := 0, 0, 0
	for _, q := range questions {
		points := q.Points
		if points == 0 {
			points = 1
		}
		choice := selected[q.ID]
		ok := choice == q.CorrectAnswer
		earned := 0
		if ok {
			earned = points
			correct++
		}
		total += earned
		maxScore += points
		answers = append(answers, domain.Answer{
			QuestionID:     q.ID,
			SelectedOption: choice,
			IsCorrect:      ok,
			PointsEarned:   earned,
		})
	}
	return answers, total, maxScore, correct
}

// draftQuestions returns the ids of questions whose quiz is not published.
func draftQuestions(ctx context.Context, tx Store, questions []domain.Question) ([]int64, error) {
	published := make(map[int64]bool)
	var drafts []int64
	for _, q := range questions {
		ok, seen := published[q.QuizID]
		if !seen {
			quiz, err := tx.GetQuiz(ctx, q.QuizID)
			switch {
			case errors.Is(err, domain.ErrQuizNotFound):
			case err != nil:
				return nil, fmt.Errorf("load quiz %d: %w", q.QuizID, err)
			default:
				ok = quiz.IsPublished
			}
			published[q.QuizID] = ok
		}
		if !ok {
			drafts = append(drafts, q.ID)
		}
	}
	return drafts, nil
}
