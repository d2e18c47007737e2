package integration

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"skill-quiz-service/internal/app"
	"skill-quiz-service/internal/domain"
	"skill-quiz-service/internal/infra/postgres"
	infraredis "skill-quiz-service/internal/infra/redis"
)

func TestSubmitQuizEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisAddr, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db, err := postgres.Open(ctx, pgURL)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	defer db.Close()
	if _, err := postgres.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	pool, err := postgres.NewPool(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient := goredis.NewClient(&goredis.Options{Addr: redisAddr})
	defer redisClient.Close()

	store := postgres.NewStore(db)
	views := infraredis.NewQuizCache(redisClient, postgres.NewQuizLoader(pool), 5*time.Minute, nil)
	feed := app.NewAttemptFeed(4)
	events, cancel := feed.Subscribe()
	defer cancel()

	catalog := app.NewCatalogService(store, views)
	scoring := app.NewScoringService(store, feed, nil)
	reports := app.NewReportService(postgres.NewReports(db))

	user := domain.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "x", Role: domain.RoleUser}
	if err := store.CreateUser(ctx, &user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	skill, err := catalog.CreateSkill(ctx, domain.SkillInput{Name: "Math"})
	if err != nil {
		t.Fatalf("create skill: %v", err)
	}
	quiz, err := catalog.CreateQuiz(ctx, skill.ID, domain.QuizInput{Title: "Arithmetic", IsPublished: true})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	two := 2
	a, err := catalog.CreateQuestion(ctx, domain.QuestionInput{
		QuizID: quiz.ID, QuestionText: "A", Options: []string{"x", "w"}, CorrectAnswer: "x",
	})
	if err != nil {
		t.Fatalf("create question A: %v", err)
	}
	b, err := catalog.CreateQuestion(ctx, domain.QuestionInput{
		QuizID: quiz.ID, QuestionText: "B", Options: []string{"y", "z"}, CorrectAnswer: "y", Points: &two,
	})
	if err != nil {
		t.Fatalf("create question B: %v", err)
	}

	view, err := catalog.GetQuizView(ctx, quiz.ID, false)
	if err != nil {
		t.Fatalf("quiz view: %v", err)
	}
	if len(view.Questions) != 2 {
		t.Fatalf("expected 2 questions through the pgx loader, got %d", len(view.Questions))
	}

	// Missing answer: nothing may be written.
	_, err = scoring.SubmitQuiz(ctx, domain.SubmitQuizRequest{
		UserID:  user.ID,
		QuizID:  quiz.ID,
		Answers: []domain.AnswerInput{{QuestionID: a.ID, SelectedOption: "x"}},
	})
	if err == nil {
		t.Fatalf("expected missing answer error")
	}
	if _, total, _ := store.ListAttempts(ctx, domain.AttemptFilter{UserID: user.ID, Limit: 10}); total != 0 {
		t.Fatalf("expected no attempts after rejected submission, got %d", total)
	}

	res, err := scoring.SubmitQuiz(ctx, domain.SubmitQuizRequest{
		UserID: user.ID,
		QuizID: quiz.ID,
		Answers: []domain.AnswerInput{
			{QuestionID: a.ID, SelectedOption: "x"},
			{QuestionID: b.ID, SelectedOption: "z"},
		},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Score != 1 || res.MaxScore != 3 || res.Percent != 33.33 || res.Correct != 1 {
		t.Fatalf("unexpected result %+v", res)
	}

	select {
	case event := <-events:
		if event.AttemptID != res.AttemptID {
			t.Fatalf("expected feed event for attempt %d, got %d", res.AttemptID, event.AttemptID)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected feed event")
	}

	history, err := app.NewAttemptService(store).ListAttempts(ctx, domain.AttemptQuery{UserID: user.ID, WithAnswers: true})
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if history.Total != 1 || len(history.Items[0].Answers) != 2 {
		t.Fatalf("expected one attempt with two answers, got %+v", history)
	}

	overview, err := reports.UserOverview(ctx, app.Actor{UserID: user.ID, Role: domain.RoleUser}, user.ID)
	if err != nil {
		t.Fatalf("user overview: %v", err)
	}
	if overview.TotalAttempts != 1 || len(overview.Skills) != 1 || overview.Skills[0].Correct != 1 {
		t.Fatalf("unexpected overview %+v", overview)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	return fmt.Sprintf("%s:%s", host, port.Port()), func() {
		_ = container.Terminate(ctx)
	}
}

func requireDocker(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
