package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"skill-quiz-service/internal/app"
	"skill-quiz-service/internal/domain"
)

// QuizCache caches quiz views in Redis and falls back to a loader on a miss.
// Each view is stored as JSON under quiz:{quizID}:view. Invalidate bumps
// quiz:{quizID}:gen, and a fill only writes the view if the generation it
// started under is still current.
type QuizCache struct {
	client *redis.Client
	loader app.QuizLoader
	ttl    time.Duration
	log    *zap.Logger
	sf     singleflight.Group
}

var _ app.QuizViewRepository = (*QuizCache)(nil)

func NewQuizCache(client *redis.Client, loader app.QuizLoader, ttl time.Duration, log *zap.Logger) *QuizCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &QuizCache{client: client, loader: loader, ttl: ttl, log: log}
}

func (c *QuizCache) GetQuizView(ctx context.Context, quizID int64) (domain.QuizView, error) {
	if view, ok := c.cached(ctx, quizID); ok {
		return view, nil
	}

	gen, genErr := c.generation(ctx, quizID)
	key := strconv.FormatInt(quizID, 10) + ":" + gen
	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another caller filled it.
		if view, ok := c.cached(ctx, quizID); ok {
			return view, nil
		}
		view, err := c.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.QuizView{}, err
		}
		if genErr == nil {
			c.fill(ctx, quizID, gen, view)
		}
		return view, nil
	})
	if err != nil {
		return domain.QuizView{}, err
	}
	return result.(domain.QuizView), nil
}

// fill stores view unless the quiz was invalidated after gen was read.
// Failures are ignored; the store stays authoritative.
func (c *QuizCache) fill(ctx context.Context, quizID int64, gen string, view domain.QuizView) {
	raw, err := json.Marshal(view)
	if err != nil {
		return
	}
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey(quizID)).Result()
		if errors.Is(err, redis.Nil) {
			current = "0"
		} else if err != nil {
			return err
		}
		if current != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, viewKey(quizID), raw, c.ttlWithJitter())
			return nil
		})
		return err
	}, genKey(quizID))
	if err != nil && !errors.Is(err, redis.TxFailedErr) {
		c.log.Debug("fill quiz view", zap.Int64("quiz_id", quizID), zap.Error(err))
	}
}

// Invalidate deletes the cached views of the given quizzes and bumps their
// generations so in-flight fills are discarded.
func (c *QuizCache) Invalidate(ctx context.Context, quizIDs ...int64) {
	if len(quizIDs) == 0 {
		return
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range quizIDs {
			pipe.Incr(ctx, genKey(id))
			pipe.Del(ctx, viewKey(id))
		}
		return nil
	})
	if err != nil {
		c.log.Warn("invalidate quiz views", zap.Int64s("quiz_ids", quizIDs), zap.Error(err))
	}
}

func (c *QuizCache) cached(ctx context.Context, quizID int64) (domain.QuizView, bool) {
	raw, err := c.client.Get(ctx, viewKey(quizID)).Bytes()
	if err != nil {
		// redis.Nil on a miss; other errors degrade to the loader
		return domain.QuizView{}, false
	}
	var view domain.QuizView
	if err := json.Unmarshal(raw, &view); err != nil {
		return domain.QuizView{}, false
	}
	return view, true
}

func (c *QuizCache) generation(ctx context.Context, quizID int64) (string, error) {
	gen, err := c.client.Get(ctx, genKey(quizID)).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return gen, err
}

func viewKey(quizID int64) string {
	return "quiz:" + strconv.FormatInt(quizID, 10) + ":view"
}

func genKey(quizID int64) string {
	return "quiz:" + strconv.FormatInt(quizID, 10) + ":gen"
}

func (c *QuizCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(rand.Int63n(jitterMax+1))
}
