package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"fitcoin-engine/internal/domain"
	"fitcoin-engine/internal/infra/metrics"
)

const queryTimeout = 5 * time.Second

// Postgres реализует репозитории пользователей и кошельков на основе pgxpool.
// Кошелёк хранится целиком (jsonb-вёдра поверх скалярных колонок) и обновляется
// по схеме read-modify-write под блокировкой строки пользователя.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ domain.UserRepo   = (*Postgres)(nil)
	_ domain.WalletRepo = (*Postgres)(nil)
)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), queryTimeout)
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, queryTimeout)
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id              UUID PRIMARY KEY,
    display_name    TEXT NOT NULL,
    email           TEXT NOT NULL UNIQUE,
    password_hash   TEXT NOT NULL,
    primary_provider TEXT NOT NULL,
    persona_id      TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS wallets (
    user_id       UUID PRIMARY KEY,
    balance       DOUBLE PRECISION NOT NULL DEFAULT 0,
    staked_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
    today         JSONB NOT NULL,
    last7days     JSONB NOT NULL,
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Migrate создаёт таблицы, если их ещё нет.
func (p *Postgres) Migrate(ctx context.Context) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("миграция схемы: %w", err)
	}
	return nil
}

// CreateUser реализует domain.UserRepo.
func (p *Postgres) CreateUser(ctx context.Context, user domain.User) (domain.User, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	now := time.Now().UTC()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.CreatedAt = now
	user.UpdatedAt = now

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO users (id, display_name, email, password_hash, primary_provider, persona_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`, user.ID, user.DisplayName, user.Email, user.PasswordHash, string(user.PrimaryProvider), user.PersonaID, user.CreatedAt, user.UpdatedAt)
	metrics.ObserveNetworkRequest("postgres", "users_insert", "users", start, err)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.User{}, domain.ErrUserExists
		}
		return domain.User{}, fmt.Errorf("создание пользователя: %w", err)
	}
	return user, nil
}

func (p *Postgres) queryUser(ctx context.Context, operation, where string, arg any) (domain.User, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var user domain.User
	var provider string
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT id, display_name, email, password_hash, primary_provider, persona_id, created_at, updated_at
FROM users WHERE `+where, arg).Scan(
		&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash, &provider, &user.PersonaID, &user.CreatedAt, &user.UpdatedAt,
	)
	metrics.ObserveNetworkRequest("postgres", operation, "users", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("получение пользователя: %w", err)
	}
	user.PrimaryProvider = domain.Provider(provider)
	return user, nil
}

// GetUserByID реализует domain.UserRepo.
func (p *Postgres) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return p.queryUser(ctx, "users_get_by_id", "id = $1", id)
}

// GetUserByEmail реализует domain.UserRepo.
func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return p.queryUser(ctx, "users_get_by_email", "email = $1", strings.ToLower(strings.TrimSpace(email)))
}

func scanWallet(row pgx.Row, wallet *domain.WalletSummary) error {
	var todayRaw, historyRaw []byte
	if err := row.Scan(&wallet.UserID, &wallet.Balance, &wallet.StakedAmount, &todayRaw, &historyRaw); err != nil {
		return err
	}
	if err := json.Unmarshal(todayRaw, &wallet.Today); err != nil {
		return fmt.Errorf("декодирование вёдра дня: %w", err)
	}
	if err := json.Unmarshal(historyRaw, &wallet.Last7Days); err != nil {
		return fmt.Errorf("декодирование истории: %w", err)
	}
	return nil
}

// GetWallet реализует domain.WalletRepo.
func (p *Postgres) GetWallet(ctx context.Context, userID string) (domain.WalletSummary, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var wallet domain.WalletSummary
	start := time.Now()
	err := scanWallet(p.pool.QueryRow(ctx, `
SELECT user_id, balance, staked_amount, today, last7days FROM wallets WHERE user_id = $1
`, userID), &wallet)
	metrics.ObserveNetworkRequest("postgres", "wallets_get", "wallets", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.WalletSummary{}, domain.ErrWalletNotFound
		}
		return domain.WalletSummary{}, fmt.Errorf("получение кошелька: %w", err)
	}
	return wallet, nil
}

// CreateWallet реализует domain.WalletRepo: при гонке на создание возвращает
// уже существующую запись.
func (p *Postgres) CreateWallet(ctx context.Context, wallet domain.WalletSummary) (domain.WalletSummary, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	todayRaw, err := json.Marshal(wallet.Today)
	if err != nil {
		return domain.WalletSummary{}, fmt.Errorf("кодирование вёдра дня: %w", err)
	}
	historyRaw, err := json.Marshal(wallet.Last7Days)
	if err != nil {
		return domain.WalletSummary{}, fmt.Errorf("кодирование истории: %w", err)
	}

	var stored domain.WalletSummary
	start := time.Now()
	err = scanWallet(p.pool.QueryRow(ctx, `
INSERT INTO wallets (user_id, balance, staked_amount, today, last7days)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_id) DO UPDATE SET updated_at = now()
RETURNING user_id, balance, staked_amount, today, last7days
`, wallet.UserID, wallet.Balance, wallet.StakedAmount, todayRaw, historyRaw), &stored)
	metrics.ObserveNetworkRequest("postgres", "wallets_insert", "wallets", start, err)
	if err != nil {
		return domain.WalletSummary{}, fmt.Errorf("создание кошелька: %w", err)
	}
	metrics.WalletsCreated.Inc()
	return stored, nil
}

// UpdateWallet реализует domain.WalletRepo: мутация применяется к записи целиком под
// блокировкой строки, конкурирующие операции по одному пользователю сериализуются.
func (p *Postgres) UpdateWallet(ctx context.Context, userID string, fn func(*domain.WalletSummary) error) (domain.WalletSummary, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.WalletSummary{}, fmt.Errorf("начало транзакции: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var wallet domain.WalletSummary
	start := time.Now()
	err = scanWallet(tx.QueryRow(ctx, `
SELECT user_id, balance, staked_amount, today, last7days FROM wallets WHERE user_id = $1 FOR UPDATE
`, userID), &wallet)
	metrics.ObserveNetworkRequest("postgres", "wallets_lock", "wallets", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.WalletSummary{}, domain.ErrWalletNotFound
		}
		return domain.WalletSummary{}, fmt.Errorf("чтение кошелька: %w", err)
	}

	if err := fn(&wallet); err != nil {
		return domain.WalletSummary{}, err
	}

	todayRaw, err := json.Marshal(wallet.Today)
	if err != nil {
		return domain.WalletSummary{}, fmt.Errorf("кодирование вёдра дня: %w", err)
	}
	historyRaw, err := json.Marshal(wallet.Last7Days)
	if err != nil {
		return domain.WalletSummary{}, fmt.Errorf("кодирование истории: %w", err)
	}

	start = time.Now()
	_, err = tx.Exec(ctx, `
UPDATE wallets SET balance = $2, staked_amount = $3, today = $4, last7days = $5, updated_at = now()
WHERE user_id = $1
`, userID, wallet.Balance, wallet.StakedAmount, todayRaw, historyRaw)
	metrics.ObserveNetworkRequest("postgres", "wallets_update", "wallets", start, err)
	if err != nil {
		return domain.WalletSummary{}, fmt.Errorf("запись кошелька: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.WalletSummary{}, fmt.Errorf("фиксация транзакции: %w", err)
	}
	return wallet, nil
}
