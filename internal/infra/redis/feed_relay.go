package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"skill-quiz-service/internal/app"
	"skill-quiz-service/internal/domain"
)

const attemptsChannel = "quiz:attempts"

// FeedRelay shares scored attempts between service instances. Publish sends
// an event to a Redis channel; Run relays that channel into the local feed so
// every instance's websocket subscribers see every attempt.
type FeedRelay struct {
	client  *redis.Client
	feed    *app.AttemptFeed
	log     *zap.Logger
	timeout time.Duration

	retryMin time.Duration
	retryMax time.Duration
}

func NewFeedRelay(client *redis.Client, feed *app.AttemptFeed, log *zap.Logger) *FeedRelay {
	if log == nil {
		log = zap.NewNop()
	}
	return &FeedRelay{
		client:   client,
		feed:     feed,
		log:      log,
		timeout:  2 * time.Second,
		retryMin: 100 * time.Millisecond,
		retryMax: 10 * time.Second,
	}
}

// Publish implements app.AttemptPublisher. On a Redis failure the event is
// still delivered to local subscribers.
func (r *FeedRelay) Publish(event domain.AttemptEvent) {
	raw, err := json.Marshal(event)
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		err = r.client.Publish(ctx, attemptsChannel, raw).Err()
		cancel()
	}
	if err != nil {
		r.log.Warn("relay attempt event", zap.Int64("attempt_id", event.AttemptID), zap.Error(err))
		r.feed.Publish(event)
	}
}

// Run relays channel messages into the local feed until ctx is done. A lost
// subscription is re-established with exponential backoff.
func (r *FeedRelay) Run(ctx context.Context) error {
	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = r.retryMin
	retry.MaxInterval = r.retryMax
	retry.MaxElapsedTime = 0

	for {
		err := r.relay(ctx, retry.Reset)
		if ctx.Err() != nil {
			return nil
		}
		wait := retry.NextBackOff()
		r.log.Warn("attempt relay interrupted", zap.Duration("retry_in", wait), zap.Error(err))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

var errSubscriptionClosed = errors.New("subscription closed")

func (r *FeedRelay) relay(ctx context.Context, subscribed func()) error {
	sub := r.client.Subscribe(ctx, attemptsChannel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	subscribed()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return errSubscriptionClosed
			}
			var event domain.AttemptEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				r.log.Warn("decode attempt event", zap.Error(err))
				continue
			}
			r.feed.Publish(event)
		}
	}
}
