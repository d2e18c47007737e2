package app_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"skill-quiz-service/internal/domain"
	"skill-quiz-service/internal/infra/memory"
)

type world struct {
	store     *memory.Store
	user      domain.User
	admin     domain.User
	skill     domain.Skill
	quiz      domain.Quiz
	questions []domain.Question
}

// newWorld seeds a learner, an admin and a published quiz with three one-point questions.
func newWorld(t *testing.T) *world {
	t.Helper()
	ctx := context.Background()
	w := &world{store: memory.NewStore()}

	w.user = domain.User{Name: "Ada", Email: "ada@example.com", Role: domain.RoleUser}
	require.NoError(t, w.store.CreateUser(ctx, &w.user))
	w.admin = domain.User{Name: "Root", Email: "root@example.com", Role: domain.RoleAdmin}
	require.NoError(t, w.store.CreateUser(ctx, &w.admin))

	w.skill = domain.Skill{Name: "Math"}
	require.NoError(t, w.store.CreateSkill(ctx, &w.skill))
	w.quiz = domain.Quiz{SkillID: w.skill.ID, Title: "Arithmetic", Description: "sums", IsPublished: true}
	require.NoError(t, w.store.CreateQuiz(ctx, &w.quiz))

	for _, q := range []struct{ text, correct string }{
		{"1 + 1", "2"},
		{"2 + 2", "4"},
		{"3 + 3", "6"},
	} {
		w.questions = append(w.questions, w.addQuestion(t, w.quiz.ID, q.text, q.correct, 1))
	}
	return w
}

func (w *world) addQuestion(t *testing.T, quizID int64, text, correct string, points int) domain.Question {
	t.Helper()
	skillID := w.skill.ID
	q := domain.Question{
		QuizID:        quizID,
		SkillID:       &skillID,
		QuestionText:  text,
		Options:       []string{correct, "wrong", "also wrong"},
		CorrectAnswer: correct,
		Points:        points,
	}
	require.NoError(t, w.store.CreateQuestion(context.Background(), &q))
	return q
}

func answer(id int64, option string) domain.AnswerInput {
	return domain.AnswerInput{QuestionID: id, SelectedOption: domain.SelectedOption(option)}
}

func (w *world) attemptCount(t *testing.T, userID int64) int64 {
	t.Helper()
	_, total, err := w.store.ListAttempts(context.Background(), domain.AttemptFilter{UserID: userID, Limit: 100})
	require.NoError(t, err)
	return total
}
