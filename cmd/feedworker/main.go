package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"fitcoin-engine/internal/adapters/repo"
	"fitcoin-engine/internal/domain"
	"fitcoin-engine/internal/infra/cache"
	"fitcoin-engine/internal/infra/config"
	"fitcoin-engine/internal/infra/db"
	loginfra "fitcoin-engine/internal/infra/log"
	"fitcoin-engine/internal/infra/metrics"
	"fitcoin-engine/internal/infra/queue"
	walletusecase "fitcoin-engine/internal/usecase/wallet"
)

// feedworker читает начисления из очереди ленты и применяет их к кошелькам.
// Леджер по событиям ленты мутирует только этот процесс.
func main() {
	cfg := config.Load()
	log.Logger = loginfra.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("feedworker: нет подключения к БД")
	}
	defer pool.Close()

	repoAdapter := repo.NewPostgres(pool)
	walletService := walletusecase.NewService(repoAdapter, cfg.Wallet.InitialGrant, nil, log.With().Str("component", "wallet").Logger())

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("feedworker: нет подключения к Redis")
	}
	defer redisClient.Close()
	dedup := cache.NewRedis(redisClient)

	var creditQueue domain.CreditQueue
	if cfg.AMQPURL != "" {
		rabbit, err := queue.NewRabbitCreditQueue(cfg.AMQPURL, cfg.Queues.FeedCredits)
		if err != nil {
			log.Fatal().Err(err).Msg("feedworker: нет подключения к RabbitMQ")
		}
		defer rabbit.Close()
		creditQueue = rabbit
	} else {
		creditQueue = queue.NewRedisCreditQueue(redisClient, cfg.Queues.FeedCredits)
	}

	metrics.StartServer(ctx, log.With().Str("component", "metrics").Logger(), cfg.MetricsAddr)

	log.Info().Msg("feedworker: старт")
	for {
		credit, err := creditQueue.Pop(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			log.Error().Err(err).Msg("feedworker: ошибка чтения очереди")
			continue
		}
		// Повторная доставка того же начисления не должна увеличивать баланс дважды.
		err = dedup.Once("feed:credit:"+credit.ID, 24*time.Hour, func() error {
			return walletService.CreditFeedBonus(ctx, credit)
		})
		if err != nil {
			log.Error().Err(err).Str("credit_id", credit.ID).Str("user_id", credit.UserID).Msg("feedworker: начисление не применено")
		}
	}
	log.Info().Msg("feedworker: остановка")
}
