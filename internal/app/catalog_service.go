package app

import (
	"context"
	"fmt"
	"strings"

	"skill-quiz-service/internal/domain"
)

const (
	defaultQuestionPageSize = 20
	maxQuestionPageSize     = 100
)

var questionSortColumns = map[string]string{
	"":              "created_at",
	"createdAt":     "created_at",
	"created_at":    "created_at",
	"id":            "id",
	"points":        "points",
	"question_text": "question_text",
}

// QuestionQuery lists questions page by page.
type QuestionQuery struct {
	Page    int
	Limit   int
	Sort    string
	Dir     string
	Search  string
	SkillID *int64
	QuizID  *int64
	Shuffle bool

	PublishedOnly bool
}

// SkillDeletion reports what a skill delete removed.
type SkillDeletion struct {
	ID               int64 `json:"id"`
	DeletedQuestions int64 `json:"deletedQuestions"`
}

// CatalogService manages skills, quizzes and questions.
type CatalogService struct {
	store Store
	views QuizViewRepository
}

func NewCatalogService(store Store, views QuizViewRepository) *CatalogService {
	return &CatalogService{store: store, views: views}
}

// CreateSkill adds a skill with a unique name.
func (s *CatalogService) CreateSkill(ctx context.Context, in domain.SkillInput) (domain.Skill, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Skill{}, domain.Invalid("name is required")
	}
	taken, err := s.store.SkillNameTaken(ctx, name, 0)
	if err != nil {
		return domain.Skill{}, fmt.Errorf("check skill name: %w", err)
	}
	if taken {
		return domain.Skill{}, domain.Conflict("Skill name already exists", nil)
	}
	skill := domain.Skill{Name: name, Description: in.Description}
	if err := s.store.CreateSkill(ctx, &skill); err != nil {
		return domain.Skill{}, fmt.Errorf("create skill: %w", err)
	}
	return skill, nil
}

func (s *CatalogService) ListSkills(ctx context.Context) ([]domain.Skill, error) {
	return s.store.ListSkills(ctx)
}

func (s *CatalogService) GetSkill(ctx context.Context, id int64) (domain.Skill, error) {
	return s.store.GetSkill(ctx, id)
}

// UpdateSkill renames or re-describes a skill. Renaming onto an existing name is a conflict.
func (s *CatalogService) UpdateSkill(ctx context.Context, id int64, patch domain.SkillPatch) (domain.Skill, error) {
	skill, err := s.store.GetSkill(ctx, id)
	if err != nil {
		return domain.Skill{}, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name != "" && name != skill.Name {
			taken, err := s.store.SkillNameTaken(ctx, name, skill.ID)
			if err != nil {
				return domain.Skill{}, fmt.Errorf("check skill name: %w", err)
			}
			if taken {
				return domain.Skill{}, domain.Conflict("Skill name already exists", nil)
			}
			skill.Name = name
		}
	}
	if patch.Description != nil {
		skill.Description = *patch.Description
	}
	if err := s.store.UpdateSkill(ctx, &skill); err != nil {
		return domain.Skill{}, fmt.Errorf("update skill: %w", err)
	}
	return skill, nil
}

// DeleteSkill removes a skill. Linked questions block the delete unless force
// is set, in which case they are removed first in the same transaction.
func (s *CatalogService) DeleteSkill(ctx context.Context, id int64, force bool) (SkillDeletion, error) {
	var (
		out     SkillDeletion
		quizIDs []int64
	)
	err := s.store.InTx(ctx, func(tx Store) error {
		skill, err := tx.GetSkill(ctx, id)
		if err != nil {
			return err
		}
		count, err := tx.CountQuestionsBySkill(ctx, skill.ID)
		if err != nil {
			return fmt.Errorf("count skill questions: %w", err)
		}
		if count > 0 && !force {
			return domain.Conflict(
				"Skill has linked questions. Pass ?force=true to delete skill and its questions.",
				map[string]any{"questions": count},
			)
		}
		quizzes, err := tx.ListQuizzesBySkill(ctx, skill.ID, false)
		if err != nil {
			return fmt.Errorf("list skill quizzes: %w", err)
		}
		for _, q := range quizzes {
			quizIDs = append(quizIDs, q.ID)
		}
		out = SkillDeletion{ID: skill.ID}
		if count > 0 {
			deleted, err := tx.DeleteQuestionsBySkill(ctx, skill.ID)
			if err != nil {
				return fmt.Errorf("delete skill questions: %w", err)
			}
			out.DeletedQuestions = deleted
		}
		if err := tx.DeleteSkill(ctx, skill.ID); err != nil {
			return fmt.Errorf("delete skill: %w", err)
		}
		return nil
	})
	if err != nil {
		return SkillDeletion{}, err
	}
	s.views.Invalidate(ctx, quizIDs...)
	return out, nil
}

// CreateQuiz adds a quiz under an existing skill.
func (s *CatalogService) CreateQuiz(ctx context.Context, skillID int64, in domain.QuizInput) (domain.Quiz, error) {
	if _, err := s.store.GetSkill(ctx, skillID); err != nil {
		return domain.Quiz{}, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return domain.Quiz{}, domain.Invalid("title is required")
	}
	if in.TimeLimitSec < 0 {
		return domain.Quiz{}, domain.Invalid("time_limit_sec must not be negative")
	}
	quiz := domain.Quiz{
		SkillID:      skillID,
		Title:        title,
		Description:  in.Description,
		TimeLimitSec: in.TimeLimitSec,
		IsPublished:  in.IsPublished,
	}
	if err := s.store.CreateQuiz(ctx, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("create quiz: %w", err)
	}
	return quiz, nil
}

// ListQuizzes returns the quizzes of a skill, newest first. Learners only see published ones.
func (s *CatalogService) ListQuizzes(ctx context.Context, skillID int64, publishedOnly bool) ([]domain.Quiz, error) {
	if _, err := s.store.GetSkill(ctx, skillID); err != nil {
		return nil, err
	}
	return s.store.ListQuizzesBySkill(ctx, skillID, publishedOnly)
}

// GetQuizView returns a quiz with its questions. Unpublished quizzes are hidden
// unless includeUnpublished is set.
func (s *CatalogService) GetQuizView(ctx context.Context, quizID int64, includeUnpublished bool) (domain.QuizView, error) {
	view, err := s.views.GetQuizView(ctx, quizID)
	if err != nil {
		return domain.QuizView{}, err
	}
	if !view.IsPublished && !includeUnpublished {
		return domain.QuizView{}, domain.ErrQuizNotFound
	}
	return view, nil
}

func (s *CatalogService) UpdateQuiz(ctx context.Context, id int64, patch domain.QuizPatch) (domain.Quiz, error) {
	quiz, err := s.store.GetQuiz(ctx, id)
	if err != nil {
		return domain.Quiz{}, err
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return domain.Quiz{}, domain.Invalid("title must not be empty")
		}
		quiz.Title = title
	}
	if patch.Description != nil {
		quiz.Description = *patch.Description
	}
	if patch.TimeLimitSec != nil {
		if *patch.TimeLimitSec < 0 {
			return domain.Quiz{}, domain.Invalid("time_limit_sec must not be negative")
		}
		quiz.TimeLimitSec = *patch.TimeLimitSec
	}
	if patch.IsPublished != nil {
		quiz.IsPublished = *patch.IsPublished
	}
	if err := s.store.UpdateQuiz(ctx, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("update quiz: %w", err)
	}
	s.views.Invalidate(ctx, quiz.ID)
	return quiz, nil
}

// DeleteQuiz removes a quiz together with its questions and attempts.
func (s *CatalogService) DeleteQuiz(ctx context.Context, id int64) error {
	if _, err := s.store.GetQuiz(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteQuiz(ctx, id); err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	s.views.Invalidate(ctx, id)
	return nil
}

// CreateQuestion validates and stores a question. The skill defaults to the quiz's skill.
func (s *CatalogService) CreateQuestion(ctx context.Context, in domain.QuestionInput) (domain.Question, error) {
	quiz, err := s.store.GetQuiz(ctx, in.QuizID)
	if err != nil {
		return domain.Question{}, err
	}
	text := strings.TrimSpace(in.QuestionText)
	if text == "" {
		return domain.Question{}, domain.Invalid("question_text is required")
	}
	options, err := domain.NormalizeOptions(in.Options)
	if err != nil {
		return domain.Question{}, err
	}
	answer := strings.TrimSpace(in.CorrectAnswer)
	if err := domain.CheckCorrectAnswer(options, answer); err != nil {
		return domain.Question{}, err
	}
	points := 1
	if in.Points != nil {
		points = *in.Points
	}
	if err := domain.CheckPoints(points); err != nil {
		return domain.Question{}, err
	}
	skillID := quiz.SkillID
	if in.SkillID != nil {
		if _, err := s.store.GetSkill(ctx, *in.SkillID); err != nil {
			return domain.Question{}, err
		}
		skillID = *in.SkillID
	}

	q := domain.Question{
		QuizID:        quiz.ID,
		SkillID:       &skillID,
		QuestionText:  text,
		Options:       options,
		CorrectAnswer: answer,
		Points:        points,
	}
	if err := s.store.CreateQuestion(ctx, &q); err != nil {
		return domain.Question{}, fmt.Errorf("create question: %w", err)
	}
	s.views.Invalidate(ctx, quiz.ID)
	return q, nil
}

// ListQuestions pages through questions with optional skill, quiz and text filters.
func (s *CatalogService) ListQuestions(ctx context.Context, q QuestionQuery) (domain.Page[domain.Question], error) {
	page, limit := domain.ClampPage(q.Page, q.Limit, defaultQuestionPageSize, maxQuestionPageSize)
	column, ok := questionSortColumns[q.Sort]
	if !ok {
		return domain.Page[domain.Question]{}, domain.Invalid("unsupported sort field")
	}
	items, total, err := s.store.ListQuestions(ctx, domain.QuestionFilter{
		SkillID: q.SkillID,
		QuizID:  q.QuizID,
		Search:  strings.TrimSpace(q.Search),
		Sort:    column,
		Desc:    !strings.EqualFold(q.Dir, "ASC"),
		Shuffle: q.Shuffle,
		Limit:   limit,
		Offset:  (page - 1) * limit,

		PublishedOnly: q.PublishedOnly,
	})
	if err != nil {
		return domain.Page[domain.Question]{}, fmt.Errorf("list questions: %w", err)
	}
	return domain.NewPage(page, limit, total, items), nil
}

// UpdateQuestion applies a partial update. Any change to options or the
// correct answer is re-validated against the resulting pair; on failure the
// stored question is left untouched.
func (s *CatalogService) UpdateQuestion(ctx context.Context, id int64, patch domain.QuestionPatch) (domain.Question, error) {
	q, err := s.store.GetQuestion(ctx, id)
	if err != nil {
		return domain.Question{}, err
	}
	previousQuiz := q.QuizID

	options := q.Options
	if patch.Options != nil {
		if options, err = domain.NormalizeOptions(*patch.Options); err != nil {
			return domain.Question{}, err
		}
	}
	answer := q.CorrectAnswer
	if patch.CorrectAnswer != nil {
		answer = strings.TrimSpace(*patch.CorrectAnswer)
	}
	if patch.Options != nil || patch.CorrectAnswer != nil {
		if err := domain.CheckCorrectAnswer(options, answer); err != nil {
			return domain.Question{}, err
		}
	}
	if patch.QuestionText != nil {
		text := strings.TrimSpace(*patch.QuestionText)
		if text == "" {
			return domain.Question{}, domain.Invalid("question_text must not be empty")
		}
		q.QuestionText = text
	}
	if patch.Points != nil {
		if err := domain.CheckPoints(*patch.Points); err != nil {
			return domain.Question{}, err
		}
		q.Points = *patch.Points
	}
	if patch.QuizID != nil && *patch.QuizID != q.QuizID {
		if _, err := s.store.GetQuiz(ctx, *patch.QuizID); err != nil {
			return domain.Question{}, err
		}
		q.QuizID = *patch.QuizID
	}
	if patch.SkillID != nil {
		if _, err := s.store.GetSkill(ctx, *patch.SkillID); err != nil {
			return domain.Question{}, err
		}
		skillID := *patch.SkillID
		q.SkillID = &skillID
	}
	q.Options = options
	q.CorrectAnswer = answer

	if err := s.store.UpdateQuestion(ctx, &q); err != nil {
		return domain.Question{}, fmt.Errorf("update question: %w", err)
	}
	s.views.Invalidate(ctx, previousQuiz, q.QuizID)
	return q, nil
}

func (s *CatalogService) DeleteQuestion(ctx context.Context, id int64) error {
	q, err := s.store.GetQuestion(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.store.DeleteQuestions(ctx, []int64{q.ID}); err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	s.views.Invalidate(ctx, q.QuizID)
	return nil
}

// BulkDeleteQuestions removes every listed question that exists and reports how many were removed.
func (s *CatalogService) BulkDeleteQuestions(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, domain.Invalid("Provide ids: number[]")
	}
	existing, err := s.store.QuestionsByIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("load questions: %w", err)
	}
	count, err := s.store.DeleteQuestions(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("delete questions: %w", err)
	}
	quizIDs := make([]int64, 0, len(existing))
	for _, q := range existing {
		quizIDs = append(quizIDs, q.QuizID)
	}
	s.views.Invalidate(ctx, quizIDs...)
	return count, nil
}
