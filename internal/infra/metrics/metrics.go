package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	SyncJobsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sync_jobs_started_total",
		Help: "Количество запущенных задач синхронизации",
	})
	SyncJobsCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sync_jobs_completed_total",
		Help: "Количество успешно завершённых синхронизаций",
	})
	SyncJobsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sync_jobs_failed_total",
		Help: "Количество задач синхронизации, завершившихся ошибкой",
	})
	SyncCooldownRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sync_cooldown_rejected_total",
		Help: "Запуски синхронизации, отклонённые из-за паузы",
	})
	SyncJobPolls = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sync_job_polls_total",
		Help: "Количество опросов задач синхронизации",
	})
	SyncCompleteSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sync_complete_seconds",
		Help:    "Время завершения синхронизации: генерация и начисление",
		Buckets: prometheus.DefBuckets,
	})
	FitcoinEarned = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fitcoin_earned_total",
		Help: "Сумма Fitcoin, начисленная за синхронизации",
	})
	FitcoinRedeemed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fitcoin_redeemed_total",
		Help: "Сумма Fitcoin, списанная на награды",
	})
	FitcoinStaked = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fitcoin_staked_total",
		Help: "Сумма Fitcoin, переведённая в накопления",
	})
	InsufficientFunds = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wallet_insufficient_funds_total",
		Help: "Операции, отклонённые из-за нехватки баланса",
	})
	FeedCreditsApplied = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feed_credits_applied_total",
		Help: "Начисления из ленты сообщества, применённые воркером",
	})
	WalletsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wallets_created_total",
		Help: "Количество созданных кошельков",
	})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: prometheus.DefBuckets,
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		SyncJobsStarted,
		SyncJobsCompleted,
		SyncJobsFailed,
		SyncCooldownRejected,
		SyncJobPolls,
		SyncCompleteSeconds,
		FitcoinEarned,
		FitcoinRedeemed,
		FitcoinStaked,
		InsufficientFunds,
		FeedCreditsApplied,
		WalletsCreated,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}
