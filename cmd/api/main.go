package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"fitcoin-engine/internal/adapters/catalog"
	"fitcoin-engine/internal/adapters/cooldown"
	"fitcoin-engine/internal/adapters/repo"
	"fitcoin-engine/internal/domain"
	authusecase "fitcoin-engine/internal/usecase/auth"
	communityusecase "fitcoin-engine/internal/usecase/community"
	syncusecase "fitcoin-engine/internal/usecase/sync"
	walletusecase "fitcoin-engine/internal/usecase/wallet"

	"fitcoin-engine/internal/infra/cache"
	"fitcoin-engine/internal/infra/config"
	"fitcoin-engine/internal/infra/db"
	httpinfra "fitcoin-engine/internal/infra/http"
	loginfra "fitcoin-engine/internal/infra/log"
	"fitcoin-engine/internal/infra/metrics"
	"fitcoin-engine/internal/infra/queue"
)

func main() {
	cfg := config.Load()
	log.Logger = loginfra.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("api: нет подключения к БД")
	}
	defer pool.Close()

	repoAdapter := repo.NewPostgres(pool)
	if err := repoAdapter.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("api: миграция не применилась")
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("api: нет подключения к Redis")
	}
	defer redisClient.Close()

	var creditQueue domain.CreditQueue
	if cfg.AMQPURL != "" {
		rabbit, err := queue.NewRabbitCreditQueue(cfg.AMQPURL, cfg.Queues.FeedCredits)
		if err != nil {
			log.Fatal().Err(err).Msg("api: нет подключения к RabbitMQ")
		}
		defer rabbit.Close()
		creditQueue = rabbit
	} else {
		creditQueue = queue.NewRedisCreditQueue(redisClient, cfg.Queues.FeedCredits)
	}

	gate := cooldown.NewRedisGate(redisClient, cfg.Sync.Cooldown)
	metricCatalog := catalog.NewStatic()

	walletService := walletusecase.NewService(repoAdapter, cfg.Wallet.InitialGrant, nil, log.With().Str("component", "wallet").Logger())
	generator := syncusecase.NewGenerator(metricCatalog, nil)
	syncService := syncusecase.NewService(walletService, repoAdapter, generator, gate, cfg.Sync.ProgressStep, cfg.Sync.JobTTL, log.With().Str("component", "sync").Logger())
	syncService.StartJanitor(ctx, time.Minute)

	authService := authusecase.NewService(repoAdapter, walletService, log.With().Str("component", "auth").Logger())
	communityService := communityusecase.NewService(creditQueue, cache.NewRedis(redisClient), log.With().Str("component", "community").Logger())

	server := httpinfra.NewServer(log.With().Str("component", "http").Logger())
	registerRoutes(server.Router, gate, authService, walletService, syncService, communityService)

	metrics.StartServer(ctx, log.With().Str("component", "metrics").Logger(), cfg.MetricsAddr)

	go func() {
		log.Info().Msg("api: старт")
		if err := server.Start(":" + strconv.Itoa(cfg.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("api: сервер остановлен")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("api: остановка")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}

type signupRequest struct {
	DisplayName     string `json:"displayName"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PrimaryProvider string `json:"primaryProvider"`
	PersonaID       string `json:"personaId"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type amountRequest struct {
	Amount float64 `json:"amount"`
}

type redeemRequest struct {
	ItemID string  `json:"itemId"`
	Cost   float64 `json:"cost"`
}

type userResponse struct {
	UserID          string `json:"userId"`
	DisplayName     string `json:"displayName"`
	Email           string `json:"email"`
	PrimaryProvider string `json:"primaryProvider"`
	PersonaID       string `json:"personaId"`
	CreatedAt       string `json:"createdAt"`
}

func toUserResponse(user domain.User) userResponse {
	return userResponse{
		UserID:          user.ID,
		DisplayName:     user.DisplayName,
		Email:           user.Email,
		PrimaryProvider: string(user.PrimaryProvider),
		PersonaID:       user.PersonaID,
		CreatedAt:       user.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func registerRoutes(r chi.Router, gate domain.CooldownGate, authService *authusecase.Service, walletService domain.WalletService, syncService domain.SyncService, communityService *communityusecase.Service) {
	r.Post("/api/v1/auth/signup", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req signupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpinfra.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		user, err := authService.Signup(r.Context(), authusecase.SignupParams{
			DisplayName:     req.DisplayName,
			Email:           req.Email,
			Password:        req.Password,
			PrimaryProvider: domain.Provider(req.PrimaryProvider),
			PersonaID:       req.PersonaID,
		})
		if err != nil {
			if errors.Is(err, domain.ErrUserExists) {
				httpinfra.WriteError(w, http.StatusConflict, "user already exists")
				return
			}
			httpinfra.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		httpinfra.WriteJSON(w, http.StatusCreated, toUserResponse(user))
	})

	r.Post("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpinfra.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		user, err := authService.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidCredentials) {
				httpinfra.WriteError(w, http.StatusUnauthorized, "invalid email or password")
				return
			}
			log.Error().Err(err).Msg("api: ошибка входа")
			httpinfra.WriteError(w, http.StatusInternalServerError, "login failed")
			return
		}
		httpinfra.WriteJSON(w, http.StatusOK, toUserResponse(user))
	})

	r.Get("/api/v1/wallet/{userID}", func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		wallet, err := walletService.GetOrCreate(r.Context(), userID)
		if err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("api: ошибка получения кошелька")
			httpinfra.WriteError(w, http.StatusInternalServerError, "failed to load wallet")
			return
		}
		httpinfra.WriteJSON(w, http.StatusOK, map[string]any{
			"wallet":       wallet,
			"dailyEarnCap": domain.DailyEarnCap,
			"tier":         domain.TierFor(wallet.StakedAmount),
		})
	})

	r.Post("/api/v1/wallet/{userID}/sync", func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		jobID, err := syncService.Start(r.Context(), userID)
		if err != nil {
			if errors.Is(err, domain.ErrSyncCooldown) {
				remaining, _ := gate.Remaining(r.Context(), userID)
				w.Header().Set("Retry-After", strconv.Itoa(int(remaining.Seconds())))
				httpinfra.WriteError(w, http.StatusTooManyRequests, "sync is on cooldown")
				return
			}
			log.Error().Err(err).Str("user_id", userID).Msg("api: ошибка запуска синхронизации")
			httpinfra.WriteError(w, http.StatusInternalServerError, "failed to start sync")
			return
		}
		httpinfra.WriteJSON(w, http.StatusAccepted, map[string]string{"jobId": jobID})
	})

	r.Get("/api/v1/jobs/{jobID}", func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "jobID")
		status, err := syncService.Poll(r.Context(), jobID)
		if err != nil && !errors.Is(err, domain.ErrUnknownJob) {
			log.Error().Err(err).Str("job_id", jobID).Msg("api: ошибка опроса задачи")
		}
		httpinfra.WriteJSON(w, http.StatusOK, status)
	})

	r.Get("/api/v1/wallet/{userID}/cooldown", func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		on, err := gate.IsOn(r.Context(), userID)
		if err != nil {
			httpinfra.WriteError(w, http.StatusInternalServerError, "failed to check cooldown")
			return
		}
		remaining, err := gate.Remaining(r.Context(), userID)
		if err != nil {
			httpinfra.WriteError(w, http.StatusInternalServerError, "failed to check cooldown")
			return
		}
		httpinfra.WriteJSON(w, http.StatusOK, map[string]any{
			"onCooldown":       on,
			"remainingSeconds": int(remaining.Seconds()),
		})
	})

	r.Post("/api/v1/wallet/{userID}/redeem", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		userID := chi.URLParam(r, "userID")
		var req redeemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpinfra.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		cost := req.Cost
		if req.ItemID != "" {
			item, ok := domain.MarketplaceItemByID(req.ItemID)
			if !ok {
				httpinfra.WriteError(w, http.StatusNotFound, "unknown marketplace item")
				return
			}
			cost = item.Cost
		}
		if cost <= 0 {
			httpinfra.WriteError(w, http.StatusBadRequest, "cost must be positive")
			return
		}
		if err := walletService.Redeem(r.Context(), userID, cost); err != nil {
			writeWalletError(w, err, "api: ошибка списания")
			return
		}
		httpinfra.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/v1/wallet/{userID}/stake", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		userID := chi.URLParam(r, "userID")
		var req amountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Amount <= 0 {
			httpinfra.WriteError(w, http.StatusBadRequest, "amount must be positive")
			return
		}
		if err := walletService.Stake(r.Context(), userID, req.Amount); err != nil {
			writeWalletError(w, err, "api: ошибка стейка")
			return
		}
		httpinfra.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/v1/wallet/{userID}/unstake", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		userID := chi.URLParam(r, "userID")
		var req amountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Amount <= 0 {
			httpinfra.WriteError(w, http.StatusBadRequest, "amount must be positive")
			return
		}
		if err := walletService.Unstake(r.Context(), userID, req.Amount); err != nil {
			writeWalletError(w, err, "api: ошибка вывода из стейка")
			return
		}
		httpinfra.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/v1/marketplace/items", func(w http.ResponseWriter, r *http.Request) {
		httpinfra.WriteJSON(w, http.StatusOK, domain.MarketplaceItems())
	})

	r.Get("/api/v1/savings/tiers", func(w http.ResponseWriter, r *http.Request) {
		httpinfra.WriteJSON(w, http.StatusOK, domain.SavingsTiers())
	})

	r.Get("/api/v1/community/summary", func(w http.ResponseWriter, r *http.Request) {
		summary, err := communityService.Summary(r.Context())
		if err != nil {
			httpinfra.WriteError(w, http.StatusInternalServerError, "failed to load summary")
			return
		}
		httpinfra.WriteJSON(w, http.StatusOK, summary)
	})

	r.Get("/api/v1/community/challenges", func(w http.ResponseWriter, r *http.Request) {
		httpinfra.WriteJSON(w, http.StatusOK, communityService.Challenges())
	})

	r.Get("/api/v1/community/feed", func(w http.ResponseWriter, r *http.Request) {
		httpinfra.WriteJSON(w, http.StatusOK, communityService.Feed())
	})

	r.Post("/api/v1/community/challenges/{challengeID}/join", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		challengeID := chi.URLParam(r, "challengeID")
		userID := r.URL.Query().Get("user_id")
		if err := communityService.JoinChallenge(r.Context(), userID, challengeID); err != nil {
			if errors.Is(err, domain.ErrChallengeNotFound) {
				httpinfra.WriteError(w, http.StatusNotFound, "challenge not found")
				return
			}
			httpinfra.WriteError(w, http.StatusInternalServerError, "failed to join challenge")
			return
		}
		httpinfra.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/v1/community/challenges/{challengeID}/complete", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		challengeID := chi.URLParam(r, "challengeID")
		userID := r.URL.Query().Get("user_id")
		if err := communityService.CompleteChallenge(r.Context(), userID, challengeID); err != nil {
			if errors.Is(err, domain.ErrChallengeNotFound) {
				httpinfra.WriteError(w, http.StatusNotFound, "challenge not found")
				return
			}
			log.Error().Err(err).Str("challenge_id", challengeID).Msg("api: ошибка завершения испытания")
			httpinfra.WriteError(w, http.StatusInternalServerError, "failed to complete challenge")
			return
		}
		httpinfra.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

func writeWalletError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		httpinfra.WriteError(w, http.StatusPaymentRequired, "insufficient funds")
	case errors.Is(err, domain.ErrWalletNotFound):
		httpinfra.WriteError(w, http.StatusNotFound, "wallet not found")
	default:
		log.Error().Err(err).Msg(logMsg)
		httpinfra.WriteError(w, http.StatusInternalServerError, "wallet operation failed")
	}
}
