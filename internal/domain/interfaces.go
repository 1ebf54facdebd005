package domain

import (
	"context"
	"time"
)

// MetricCatalog возвращает набор метрик провайдера.
// Функция тотальна: неизвестный провайдер получает набор по умолчанию.
type MetricCatalog interface {
	Lookup(provider Provider) map[string]MetricDefinition
}

// WalletRepo хранит кошельки пользователей.
type WalletRepo interface {
	// GetWallet возвращает кошелёк или ErrWalletNotFound.
	GetWallet(ctx context.Context, userID string) (WalletSummary, error)
	// CreateWallet сохраняет новый кошелёк. При гонке на создание возвращает
	// уже существующую запись без ошибки.
	CreateWallet(ctx context.Context, wallet WalletSummary) (WalletSummary, error)
	// UpdateWallet атомарно применяет fn к кошельку целиком: чтение, мутация и
	// запись сериализованы по пользователю. Ошибка fn откатывает запись.
	UpdateWallet(ctx context.Context, userID string, fn func(*WalletSummary) error) (WalletSummary, error)
}

// UserRepo хранит зарегистрированных пользователей.
type UserRepo interface {
	// CreateUser сохраняет пользователя. Занятый email — ErrUserExists.
	CreateUser(ctx context.Context, user User) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
}

// WalletService отвечает за бизнес-логику начислений и списаний.
type WalletService interface {
	GetOrCreate(ctx context.Context, userID string) (WalletSummary, error)
	ApplySyncResult(ctx context.Context, userID string, activities []Activity) (WalletSummary, error)
	Redeem(ctx context.Context, userID string, cost float64) error
	Stake(ctx context.Context, userID string, amount float64) error
	Unstake(ctx context.Context, userID string, amount float64) error
	CreditFeedBonus(ctx context.Context, credit FeedCredit) error
}

// SyncService управляет жизненным циклом задач синхронизации.
type SyncService interface {
	// Start создаёт задачу в состоянии RUNNING и возвращает её идентификатор.
	// Во время паузы между синхронизациями возвращает ErrSyncCooldown.
	Start(ctx context.Context, userID string) (string, error)
	// Poll продвигает задачу и возвращает её снимок. Неизвестный идентификатор
	// даёт терминальный снимок FAILED вместе с ErrUnknownJob.
	Poll(ctx context.Context, jobID string) (JobStatus, error)
}

// CooldownGate ограничивает частоту синхронизаций по пользователю.
type CooldownGate interface {
	Arm(ctx context.Context, userID string) error
	IsOn(ctx context.Context, userID string) (bool, error)
	Remaining(ctx context.Context, userID string) (time.Duration, error)
}

// CreditQueue передаёт начисления из ленты воркеру начислений.
type CreditQueue interface {
	Enqueue(ctx context.Context, credit FeedCredit) error
	Pop(ctx context.Context) (FeedCredit, error)
}

// Cache используется для простых TTL-хранилищ.
type Cache interface {
	Once(key string, ttl time.Duration, fn func() error) error
	Set(key string, value []byte, ttl time.Duration) error
	Get(key string) ([]byte, error)
}
