package cooldown

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"fitcoin-engine/internal/domain"
	"fitcoin-engine/internal/infra/metrics"
)

// RedisGate реализует domain.CooldownGate на ключах Redis с TTL.
// Пауза взводится сервером при завершении синхронизации, поэтому
// обход клиентского таймера новую задачу не создаст.
type RedisGate struct {
	client   *redis.Client
	interval time.Duration
}

var _ domain.CooldownGate = (*RedisGate)(nil)

// NewRedisGate создаёт гейт с указанным интервалом паузы.
func NewRedisGate(client *redis.Client, interval time.Duration) *RedisGate {
	return &RedisGate{client: client, interval: interval}
}

func cooldownKey(userID string) string {
	return "sync:cooldown:" + userID
}

// Arm взводит паузу для пользователя.
func (g *RedisGate) Arm(ctx context.Context, userID string) error {
	start := time.Now()
	err := g.client.Set(ctx, cooldownKey(userID), "1", g.interval).Err()
	metrics.ObserveNetworkRequest("redis", "cooldown_arm", "cooldown", start, err)
	if err != nil {
		return fmt.Errorf("взвод паузы: %w", err)
	}
	return nil
}

// IsOn сообщает, действует ли пауза.
func (g *RedisGate) IsOn(ctx context.Context, userID string) (bool, error) {
	start := time.Now()
	n, err := g.client.Exists(ctx, cooldownKey(userID)).Result()
	metrics.ObserveNetworkRequest("redis", "cooldown_check", "cooldown", start, err)
	if err != nil {
		return false, fmt.Errorf("проверка паузы: %w", err)
	}
	return n > 0, nil
}

// Remaining возвращает остаток паузы. Если пауза не действует — ноль.
func (g *RedisGate) Remaining(ctx context.Context, userID string) (time.Duration, error) {
	start := time.Now()
	ttl, err := g.client.PTTL(ctx, cooldownKey(userID)).Result()
	metrics.ObserveNetworkRequest("redis", "cooldown_ttl", "cooldown", start, err)
	if err != nil {
		return 0, fmt.Errorf("остаток паузы: %w", err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}
