package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"skill-quiz-service/internal/domain"
)

func TestQuizCacheCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{views: map[int64]domain.QuizView{1: sampleView()}}
	cache := NewQuizCache(newClient(mr), loader, time.Minute, nil)

	if _, err := cache.GetQuizView(context.Background(), 1); err != nil {
		t.Fatalf("get quiz view: %v", err)
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls.Load())
	}
	if !mr.Exists("quiz:1:view") {
		t.Fatalf("expected view key to be set")
	}
	if ttl := mr.TTL("quiz:1:view"); ttl < time.Minute || ttl > time.Minute+6*time.Second {
		t.Fatalf("expected ttl with up to 10%% jitter, got %s", ttl)
	}

	// Second call should hit cache, loader not incremented.
	view, err := cache.GetQuizView(context.Background(), 1)
	if err != nil {
		t.Fatalf("get quiz view 2: %v", err)
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls.Load())
	}
	if len(view.Questions) != 1 || view.Questions[0].CorrectAnswer != "4" || view.Title != "Arithmetic" {
		t.Fatalf("unexpected cached view: %+v", view)
	}
}

func TestQuizCacheInvalidateDeletesKey(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{views: map[int64]domain.QuizView{1: sampleView()}}
	cache := NewQuizCache(newClient(mr), loader, time.Minute, nil)

	_, _ = cache.GetQuizView(context.Background(), 1)
	cache.Invalidate(context.Background(), 1, 2)
	if mr.Exists("quiz:1:view") {
		t.Fatalf("expected view key to be removed")
	}
	_, _ = cache.GetQuizView(context.Background(), 1)
	if loader.calls.Load() != 2 {
		t.Fatalf("expected reload after invalidate, loader calls=%d", loader.calls.Load())
	}
}

func TestQuizCacheFallsBackWhenRedisIsDown(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	client := newClient(mr)
	mr.Close()

	loader := &countingLoader{views: map[int64]domain.QuizView{1: sampleView()}}
	cache := NewQuizCache(client, loader, time.Minute, nil)
	if _, err := cache.GetQuizView(context.Background(), 1); err != nil {
		t.Fatalf("expected loader fallback, got %v", err)
	}
}

func TestQuizCacheDropsFillStartedBeforeInvalidate(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := newGatedLoader(sampleView())
	cache := NewQuizCache(newClient(mr), loader, time.Minute, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := cache.GetQuizView(context.Background(), 1); err != nil {
			t.Errorf("get quiz view: %v", err)
		}
	}()
	<-loader.started

	unpublished := sampleView()
	unpublished.IsPublished = false
	loader.set(unpublished)
	cache.Invalidate(context.Background(), 1)
	close(loader.release)
	<-done

	if mr.Exists("quiz:1:view") {
		t.Fatalf("expected fill started before invalidate not to be stored")
	}
	view, err := cache.GetQuizView(context.Background(), 1)
	if err != nil {
		t.Fatalf("get quiz view after invalidate: %v", err)
	}
	if view.IsPublished {
		t.Fatalf("expected fresh view after invalidate, got stale published view")
	}
	if !mr.Exists("quiz:1:view") {
		t.Fatalf("expected fill under the current generation to be stored")
	}
}

func TestQuizCacheInvalidateLogsFailure(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	client := newClient(mr)
	mr.Close()

	core, logs := observer.New(zap.WarnLevel)
	cache := NewQuizCache(client, &countingLoader{}, time.Minute, zap.New(core))
	cache.Invalidate(context.Background(), 7)

	entries := logs.FilterMessage("invalidate quiz views").All()
	if len(entries) != 1 {
		t.Fatalf("expected one warning, got %d", logs.Len())
	}
}

// gatedLoader blocks its first load until release is closed.
type gatedLoader struct {
	mu      sync.Mutex
	view    domain.QuizView
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedLoader(view domain.QuizView) *gatedLoader {
	return &gatedLoader{view: view, started: make(chan struct{}), release: make(chan struct{})}
}

func (l *gatedLoader) set(view domain.QuizView) {
	l.mu.Lock()
	l.view = view
	l.mu.Unlock()
}

func (l *gatedLoader) LoadQuiz(_ context.Context, _ int64) (domain.QuizView, error) {
	l.mu.Lock()
	view := l.view
	l.mu.Unlock()
	first := false
	l.once.Do(func() { first = true })
	if first {
		close(l.started)
		<-l.release
	}
	return view, nil
}

type countingLoader struct {
	views map[int64]domain.QuizView
	calls atomic.Int32
}

func (l *countingLoader) LoadQuiz(_ context.Context, quizID int64) (domain.QuizView, error) {
	l.calls.Add(1)
	if v, ok := l.views[quizID]; ok {
		return v, nil
	}
	return domain.QuizView{}, domain.ErrQuizNotFound
}

func sampleView() domain.QuizView {
	return domain.QuizView{
		Quiz: domain.Quiz{ID: 1, SkillID: 1, Title: "Arithmetic", IsPublished: true},
		Questions: []domain.Question{
			{
				ID:            1,
				QuizID:        1,
				QuestionText:  "What is 2 + 2?",
				Options:       []string{"3", "4"},
				CorrectAnswer: "4",
				Points:        1,
			},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
