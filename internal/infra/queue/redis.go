package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"fitcoin-engine/internal/domain"
)

// RedisCreditQueue реализует очередь начислений на базе Redis lists.
type RedisCreditQueue struct {
	client *redis.Client
	key    string
}

var _ domain.CreditQueue = (*RedisCreditQueue)(nil)

// NewRedisCreditQueue создаёт очередь по указанному ключу.
func NewRedisCreditQueue(client *redis.Client, key string) *RedisCreditQueue {
	return &RedisCreditQueue{client: client, key: key}
}

// Enqueue публикует начисление в очередь.
func (q *RedisCreditQueue) Enqueue(ctx context.Context, credit domain.FeedCredit) error {
	payload, err := json.Marshal(credit)
	if err != nil {
		return fmt.Errorf("marshal credit: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("push credit: %w", err)
	}
	return nil
}

// Pop блокирующе читает начисление из очереди.
func (q *RedisCreditQueue) Pop(ctx context.Context) (domain.FeedCredit, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.FeedCredit{}, err
		}

		res, err := q.client.BRPop(ctx, time.Second, q.key).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					return domain.FeedCredit{}, ctx.Err()
				}
				continue
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			return domain.FeedCredit{}, err
		}
		if len(res) != 2 {
			return domain.FeedCredit{}, errors.New("redis queue: unexpected response")
		}
		var credit domain.FeedCredit
		if err := json.Unmarshal([]byte(res[1]), &credit); err != nil {
			return domain.FeedCredit{}, fmt.Errorf("decode credit: %w", err)
		}
		return credit, nil
	}
}
