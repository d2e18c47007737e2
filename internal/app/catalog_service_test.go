package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skill-quiz-service/internal/app"
	"skill-quiz-service/internal/domain"
	"skill-quiz-service/internal/infra/memory"
)

func newCatalog(w *world) *app.CatalogService {
	return app.NewCatalogService(w.store, memory.NewQuizCache(app.NewStoreQuizLoader(w.store), time.Minute))
}

func ptr[T any](v T) *T { return &v }

func TestDeleteSkillRequiresForce(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	svc := newCatalog(w)

	_, err := svc.DeleteSkill(ctx, w.skill.ID, false)
	require.ErrorIs(t, err, domain.ErrConflict)
	var derr *domain.Error
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, int64(3), derr.Details["questions"])

	_, err = w.store.GetSkill(ctx, w.skill.ID)
	require.NoError(t, err)

	out, err := svc.DeleteSkill(ctx, w.skill.ID, true)
	require.NoError(t, err)
	assert.Equal(t, int64(3), out.DeletedQuestions)

	_, err = w.store.GetSkill(ctx, w.skill.ID)
	assert.ErrorIs(t, err, domain.ErrSkillNotFound)
	_, err = w.store.GetQuiz(ctx, w.quiz.ID)
	assert.ErrorIs(t, err, domain.ErrQuizNotFound)
}

func TestDeleteSkillWithoutQuestions(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	svc := newCatalog(w)

	empty, err := svc.CreateSkill(ctx, domain.SkillInput{Name: "  Empty  "})
	require.NoError(t, err)
	assert.Equal(t, "Empty", empty.Name)

	out, err := svc.DeleteSkill(ctx, empty.ID, false)
	require.NoError(t, err)
	assert.Zero(t, out.DeletedQuestions)
}

func TestSkillNamesAreUnique(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	svc := newCatalog(w)

	_, err := svc.CreateSkill(ctx, domain.SkillInput{Name: "Math"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	other, err := svc.CreateSkill(ctx, domain.SkillInput{Name: "Logic"})
	require.NoError(t, err)
	_, err = svc.UpdateSkill(ctx, other.ID, domain.SkillPatch{Name: ptr("Math")})
	assert.ErrorIs(t, err, domain.ErrConflict)

	updated, err := svc.UpdateSkill(ctx, other.ID, domain.SkillPatch{Name: ptr("Reasoning"), Description: ptr("if/then")})
	require.NoError(t, err)
	assert.Equal(t, "Reasoning", updated.Name)
	assert.Equal(t, "if/then", updated.Description)
}

func TestCreateQuestionValidates(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	svc := newCatalog(w)

	base := domain.QuestionInput{
		QuizID:        w.quiz.ID,
		QuestionText:  "Capital of France?",
		Options:       []string{" Paris ", "Lyon"},
		CorrectAnswer: "Paris ",
	}
	q, err := svc.CreateQuestion(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, []string{"Paris", "Lyon"}, q.Options)
	assert.Equal(t, "Paris", q.CorrectAnswer)
	assert.Equal(t, 1, q.Points)
	require.NotNil(t, q.SkillID)
	assert.Equal(t, w.skill.ID, *q.SkillID)

	cases := map[string]domain.QuestionInput{
		"one option":       withOptions(base, []string{"Paris"}),
		"seven options":    withOptions(base, []string{"a", "b", "c", "d", "e", "f", "Paris"}),
		"blank option":     withOptions(base, []string{"Paris", "  "}),
		"duplicate option": withOptions(base, []string{"Paris", " Paris"}),
		"answer missing":   func() domain.QuestionInput { in := base; in.CorrectAnswer = "Nice"; return in }(),
		"zero points":      func() domain.QuestionInput { in := base; in.Points = ptr(0); return in }(),
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateQuestion(ctx, in)
			assert.ErrorIs(t, err, domain.ErrInvalid)
		})
	}

	missingQuiz := base
	missingQuiz.QuizID = 999
	_, err = svc.CreateQuestion(ctx, missingQuiz)
	assert.ErrorIs(t, err, domain.ErrQuizNotFound)
}

func withOptions(in domain.QuestionInput, options []string) domain.QuestionInput {
	in.Options = options
	return in
}

func TestUpdateQuestionRevalidatesBeforeWrite(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	svc := newCatalog(w)
	original := w.questions[0]

	_, err := svc.UpdateQuestion(ctx, original.ID, domain.QuestionPatch{Options: ptr([]string{"x", "y"})})
	require.ErrorIs(t, err, domain.ErrInvalid)

	stored, err := w.store.GetQuestion(ctx, original.ID)
	require.NoError(t, err)
	assert.Equal(t, original.Options, stored.Options)
	assert.Equal(t, original.CorrectAnswer, stored.CorrectAnswer)

	updated, err := svc.UpdateQuestion(ctx, original.ID, domain.QuestionPatch{
		Options:       ptr([]string{"x", "y"}),
		CorrectAnswer: ptr("y"),
		Points:        ptr(5),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, updated.Options)
	assert.Equal(t, "y", updated.CorrectAnswer)
	assert.Equal(t, 5, updated.Points)
}

func TestQuizViewHidesUnpublished(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	svc := newCatalog(w)

	draft, err := svc.CreateQuiz(ctx, w.skill.ID, domain.QuizInput{Title: "Draft"})
	require.NoError(t, err)

	_, err = svc.GetQuizView(ctx, draft.ID, false)
	assert.ErrorIs(t, err, domain.ErrQuizNotFound)
	view, err := svc.GetQuizView(ctx, draft.ID, true)
	require.NoError(t, err)
	assert.Empty(t, view.Questions)

	learnerList, err := svc.ListQuizzes(ctx, w.skill.ID, true)
	require.NoError(t, err)
	assert.Len(t, learnerList, 1)
	adminList, err := svc.ListQuizzes(ctx, w.skill.ID, false)
	require.NoError(t, err)
	assert.Len(t, adminList, 2)
}

func TestQuestionWritesInvalidateQuizView(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	svc := newCatalog(w)

	view, err := svc.GetQuizView(ctx, w.quiz.ID, false)
	require.NoError(t, err)
	require.Len(t, view.Questions, 3)

	_, err = svc.CreateQuestion(ctx, domain.QuestionInput{
		QuizID:        w.quiz.ID,
		QuestionText:  "4 + 4",
		Options:       []string{"8", "9"},
		CorrectAnswer: "8",
	})
	require.NoError(t, err)
	view, err = svc.GetQuizView(ctx, w.quiz.ID, false)
	require.NoError(t, err)
	assert.Len(t, view.Questions, 4)

	require.NoError(t, svc.DeleteQuestion(ctx, w.questions[0].ID))
	view, err = svc.GetQuizView(ctx, w.quiz.ID, false)
	require.NoError(t, err)
	assert.Len(t, view.Questions, 3)

	_, err = svc.UpdateQuiz(ctx, w.quiz.ID, domain.QuizPatch{Title: ptr("Sums")})
	require.NoError(t, err)
	view, err = svc.GetQuizView(ctx, w.quiz.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "Sums", view.Title)
}

func TestBulkDeleteQuestions(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	svc := newCatalog(w)

	_, err := svc.BulkDeleteQuestions(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrInvalid)

	n, err := svc.BulkDeleteQuestions(ctx, []int64{w.questions[0].ID, w.questions[1].ID, 999})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	remaining, err := w.store.QuestionsByQuiz(ctx, w.quiz.ID)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestListQuestionsPaging(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	svc := newCatalog(w)

	page, err := svc.ListQuestions(ctx, app.QuestionQuery{Limit: 2, Sort: "id", Dir: "ASC"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 2)
	assert.Equal(t, w.questions[0].ID, page.Items[0].ID)

	page, err = svc.ListQuestions(ctx, app.QuestionQuery{Search: "3 +"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, 20, page.PageSize)

	_, err = svc.ListQuestions(ctx, app.QuestionQuery{Sort: "password"})
	assert.ErrorIs(t, err, domain.ErrInvalid)
}
