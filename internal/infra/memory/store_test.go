package memory

import (
	"context"
	"errors"
	"testing"

	"skill-quiz-service/internal/app"
	"skill-quiz-service/internal/domain"
)

type fixture struct {
	store    *Store
	user     domain.User
	skill    domain.Skill
	quiz     domain.Quiz
	question domain.Question
	attempt  domain.Attempt
}

func seed(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	f := fixture{store: NewStore()}

	f.user = domain.User{Name: "Ada", Email: "ada@example.com", Role: domain.RoleUser}
	if err := f.store.CreateUser(ctx, &f.user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	f.skill = domain.Skill{Name: "Math"}
	if err := f.store.CreateSkill(ctx, &f.skill); err != nil {
		t.Fatalf("create skill: %v", err)
	}
	f.quiz = domain.Quiz{SkillID: f.skill.ID, Title: "Arithmetic", IsPublished: true}
	if err := f.store.CreateQuiz(ctx, &f.quiz); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	skillID := f.skill.ID
	f.question = domain.Question{
		QuizID:        f.quiz.ID,
		SkillID:       &skillID,
		QuestionText:  "2 + 2",
		Options:       []string{"3", "4"},
		CorrectAnswer: "4",
		Points:        1,
	}
	if err := f.store.CreateQuestion(ctx, &f.question); err != nil {
		t.Fatalf("create question: %v", err)
	}
	quizID := f.quiz.ID
	f.attempt = domain.Attempt{UserID: f.user.ID, QuizID: &quizID, TotalScore: 1, MaxScore: 1, NumQuestions: 1}
	if err := f.store.CreateAttempt(ctx, &f.attempt); err != nil {
		t.Fatalf("create attempt: %v", err)
	}
	answers := []domain.Answer{{AttemptID: f.attempt.ID, QuestionID: f.question.ID, SelectedOption: "4", IsCorrect: true, PointsEarned: 1}}
	if err := f.store.CreateAnswers(ctx, answers); err != nil {
		t.Fatalf("create answers: %v", err)
	}
	return f
}

func TestInTxRollsBackOnError(t *testing.T) {
	f := seed(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := f.store.InTx(ctx, func(tx app.Store) error {
		a := domain.Attempt{UserID: f.user.ID, NumQuestions: 1}
		if err := tx.CreateAttempt(ctx, &a); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	_, total, err := f.store.ListAttempts(ctx, domain.AttemptFilter{UserID: f.user.ID, Limit: 10})
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected only the seeded attempt, got %d", total)
	}
}

func TestInjectFaultFailsWrite(t *testing.T) {
	f := seed(t)
	ctx := context.Background()
	disk := errors.New("disk full")
	f.store.InjectFault("CreateAnswers", disk)

	if err := f.store.CreateAnswers(ctx, []domain.Answer{{AttemptID: f.attempt.ID, QuestionID: f.question.ID}}); !errors.Is(err, disk) {
		t.Fatalf("expected injected fault, got %v", err)
	}
	f.store.InjectFault("CreateAnswers", nil)
	if err := f.store.CreateAnswers(ctx, []domain.Answer{{AttemptID: f.attempt.ID, QuestionID: f.question.ID}}); err != nil {
		t.Fatalf("expected cleared fault, got %v", err)
	}
}

func TestDeleteQuizCascades(t *testing.T) {
	f := seed(t)
	ctx := context.Background()

	if err := f.store.DeleteQuiz(ctx, f.quiz.ID); err != nil {
		t.Fatalf("delete quiz: %v", err)
	}
	if _, err := f.store.GetQuestion(ctx, f.question.ID); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected question removed, got %v", err)
	}
	_, total, _ := f.store.ListAttempts(ctx, domain.AttemptFilter{UserID: f.user.ID, Limit: 10})
	if total != 0 {
		t.Fatalf("expected attempts removed, got %d", total)
	}
	answers, _ := f.store.AnswersByAttempts(ctx, []int64{f.attempt.ID})
	if len(answers) != 0 {
		t.Fatalf("expected answers removed, got %d", len(answers))
	}
}

func TestDeleteSkillNullsLooseQuestions(t *testing.T) {
	f := seed(t)
	ctx := context.Background()

	other := domain.Skill{Name: "Logic"}
	if err := f.store.CreateSkill(ctx, &other); err != nil {
		t.Fatalf("create skill: %v", err)
	}
	otherID := other.ID
	q := domain.Question{QuizID: f.quiz.ID, SkillID: &otherID, QuestionText: "p or not p", Options: []string{"true", "false"}, CorrectAnswer: "true", Points: 1}
	if err := f.store.CreateQuestion(ctx, &q); err != nil {
		t.Fatalf("create question: %v", err)
	}

	if err := f.store.DeleteSkill(ctx, other.ID); err != nil {
		t.Fatalf("delete skill: %v", err)
	}
	got, err := f.store.GetQuestion(ctx, q.ID)
	if err != nil {
		t.Fatalf("get question: %v", err)
	}
	if got.SkillID != nil {
		t.Fatalf("expected skill link cleared, got %d", *got.SkillID)
	}
}

func TestDeleteUserCascades(t *testing.T) {
	f := seed(t)
	ctx := context.Background()

	if err := f.store.DeleteUser(ctx, f.user.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	answers, _ := f.store.AnswersByAttempts(ctx, []int64{f.attempt.ID})
	if len(answers) != 0 {
		t.Fatalf("expected answers removed, got %d", len(answers))
	}
}

func TestUniqueConstraints(t *testing.T) {
	f := seed(t)
	ctx := context.Background()

	dup := domain.User{Name: "Other", Email: f.user.Email, Role: domain.RoleUser}
	if err := f.store.CreateUser(ctx, &dup); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected email conflict, got %v", err)
	}
	sk := domain.Skill{Name: f.skill.Name}
	if err := f.store.CreateSkill(ctx, &sk); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected skill name conflict, got %v", err)
	}
}

func TestListQuestionsFiltersAndPages(t *testing.T) {
	f := seed(t)
	ctx := context.Background()
	for _, text := range []string{"3 + 3", "4 + 4", "capital of France"} {
		q := domain.Question{QuizID: f.quiz.ID, QuestionText: text, Options: []string{"a", "b"}, CorrectAnswer: "a", Points: 2}
		if err := f.store.CreateQuestion(ctx, &q); err != nil {
			t.Fatalf("create question: %v", err)
		}
	}

	items, total, err := f.store.ListQuestions(ctx, domain.QuestionFilter{Search: "+", Sort: "id", Limit: 2})
	if err != nil {
		t.Fatalf("list questions: %v", err)
	}
	if total != 3 || len(items) != 2 {
		t.Fatalf("expected 2 of 3 matches, got %d of %d", len(items), total)
	}
	if items[0].ID > items[1].ID {
		t.Fatalf("expected ascending ids, got %d then %d", items[0].ID, items[1].ID)
	}

	skillID := f.skill.ID
	items, total, _ = f.store.ListQuestions(ctx, domain.QuestionFilter{SkillID: &skillID, Limit: 10})
	if total != 1 || items[0].ID != f.question.ID {
		t.Fatalf("expected only the skill-linked question, got %d", total)
	}
}

func TestAttemptRecordJoinsQuizAndSkill(t *testing.T) {
	f := seed(t)
	records, _, err := f.store.ListAttempts(context.Background(), domain.AttemptFilter{UserID: f.user.ID, Limit: 10})
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}
	r := records[0]
	if r.QuizTitle == nil || *r.QuizTitle != "Arithmetic" || r.SkillName == nil || *r.SkillName != "Math" {
		t.Fatalf("unexpected joined record: %+v", r)
	}
}
