package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"skill-quiz-service/internal/app"
	"skill-quiz-service/internal/domain"
)

// QuizCache keeps quiz views in process memory with a TTL to avoid repeated store hits.
type QuizCache struct {
	loader app.QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	cache map[int64]cachedView
	// gen is bumped by Invalidate; a fill started under an older generation
	// is not stored.
	gen map[int64]uint64
}

type cachedView struct {
	view      domain.QuizView
	expiresAt time.Time
}

var _ app.QuizViewRepository = (*QuizCache)(nil)

func NewQuizCache(loader app.QuizLoader, ttl time.Duration) *QuizCache {
	return &QuizCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		cache:  make(map[int64]cachedView),
		gen:    make(map[int64]uint64),
	}
}

func (c *QuizCache) GetQuizView(ctx context.Context, quizID int64) (domain.QuizView, error) {
	view, gen, ok := c.lookup(quizID)
	if ok {
		return view, nil
	}

	key := strconv.FormatInt(quizID, 10) + ":" + strconv.FormatUint(gen, 10)
	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		if view, _, ok := c.lookup(quizID); ok {
			return view, nil
		}
		view, err := c.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.QuizView{}, err
		}
		if c.ttl > 0 {
			c.mu.Lock()
			if c.gen[quizID] == gen {
				c.cache[quizID] = cachedView{view: view, expiresAt: c.clock().Add(c.ttlWithJitter())}
			}
			c.mu.Unlock()
		}
		return view, nil
	})
	if err != nil {
		return domain.QuizView{}, err
	}
	return result.(domain.QuizView), nil
}

// Invalidate drops the cached views of the given quizzes.
func (c *QuizCache) Invalidate(_ context.Context, quizIDs ...int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range quizIDs {
		delete(c.cache, id)
		c.gen[id]++
	}
}

// lookup returns the cached view, if fresh, and the quiz's current generation.
func (c *QuizCache) lookup(quizID int64) (domain.QuizView, uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	gen := c.gen[quizID]
	entry, ok := c.cache[quizID]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return domain.QuizView{}, gen, false
	}
	return entry.view, gen, true
}

func (c *QuizCache) ttlWithJitter() time.Duration {
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(rand.Int63n(jitterMax+1))
}
