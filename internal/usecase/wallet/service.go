package wallet

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"fitcoin-engine/internal/domain"
	"fitcoin-engine/internal/infra/metrics"
)

// Границы случайного заработка при засеве истории нового кошелька.
const (
	seedEarnMin = 5
	seedEarnMax = 49
)

// Service реализует бизнес-логику начислений и списаний Fitcoin.
type Service struct {
	wallets      domain.WalletRepo
	initialGrant float64
	rnd          *rand.Rand
	now          func() time.Time
	log          zerolog.Logger
}

var _ domain.WalletService = (*Service)(nil)

// NewService создаёт сервис кошельков. rnd используется только для засева
// истории нового кошелька; nil означает источник со случайным зерном.
func NewService(wallets domain.WalletRepo, initialGrant float64, rnd *rand.Rand, logger zerolog.Logger) *Service {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{
		wallets:      wallets,
		initialGrant: initialGrant,
		rnd:          rnd,
		now:          time.Now,
		log:          logger,
	}
}

// GetOrCreate возвращает кошелёк пользователя, создавая его при первом обращении
// со стартовым балансом и свежезасеянной историей за 7 дней.
func (s *Service) GetOrCreate(ctx context.Context, userID string) (domain.WalletSummary, error) {
	wallet, err := s.wallets.GetWallet(ctx, userID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, domain.ErrWalletNotFound) {
		return domain.WalletSummary{}, err
	}

	created, err := s.wallets.CreateWallet(ctx, s.newWallet(userID))
	if err != nil {
		return domain.WalletSummary{}, fmt.Errorf("создание кошелька: %w", err)
	}
	s.log.Info().Str("user_id", userID).Msg("wallet: создан новый кошелёк")
	return created, nil
}

func (s *Service) newWallet(userID string) domain.WalletSummary {
	today := s.now().UTC()
	history := make([]domain.DailyFitcoin, 0, domain.HistoryDays)
	for i := domain.HistoryDays - 1; i >= 1; i-- {
		day := today.AddDate(0, 0, -i)
		history = append(history, domain.DailyFitcoin{
			Date:          day.Format(domain.DateLayout),
			FitcoinEarned: float64(seedEarnMin + s.rnd.Intn(seedEarnMax-seedEarnMin+1)),
		})
	}
	// Сегодняшний день начинается с нуля и зеркалит ведро дня.
	history = append(history, domain.DailyFitcoin{Date: today.Format(domain.DateLayout)})

	return domain.WalletSummary{
		UserID:       userID,
		Balance:      s.initialGrant,
		StakedAmount: 0,
		Today: domain.TodayBucket{
			Date:       today.Format(domain.DateLayout),
			Activities: []domain.Activity{},
		},
		Last7Days: history,
	}
}

// ApplySyncResult начисляет активности завершённой синхронизации: при смене
// календарного дня ведро дня сбрасывается, затем дельта добавляется к ведру,
// истории и балансу. Запись кошелька атомарна.
func (s *Service) ApplySyncResult(ctx context.Context, userID string, activities []domain.Activity) (domain.WalletSummary, error) {
	var delta float64
	for _, act := range activities {
		delta += act.Fitcoin
	}
	delta = round2(delta)

	updated, err := s.wallets.UpdateWallet(ctx, userID, func(w *domain.WalletSummary) error {
		today := s.now().UTC().Format(domain.DateLayout)
		rollover(w, today)
		w.Today.Activities = append(w.Today.Activities, activities...)
		w.Today.FitcoinEarned = round2(w.Today.FitcoinEarned + delta)
		w.Balance = round2(w.Balance + delta)
		w.Last7Days[len(w.Last7Days)-1].FitcoinEarned = w.Today.FitcoinEarned
		return nil
	})
	if err != nil {
		return domain.WalletSummary{}, fmt.Errorf("начисление синхронизации: %w", err)
	}
	metrics.FitcoinEarned.Add(delta)
	s.log.Info().Str("user_id", userID).Float64("delta", delta).Int("activities", len(activities)).Msg("wallet: начислена синхронизация")
	return updated, nil
}

// rollover приводит ведро дня и окно истории к текущему дню. Пропущенные дни
// попадают в историю с нулевым заработком, окно всегда остаётся из 7 дней,
// последний из которых — сегодня.
func rollover(w *domain.WalletSummary, today string) {
	if w.Today.Date == today {
		return
	}

	last := ""
	if len(w.Last7Days) > 0 {
		last = w.Last7Days[len(w.Last7Days)-1].Date
	}
	lastDay, err := time.Parse(domain.DateLayout, last)
	todayDay, err2 := time.Parse(domain.DateLayout, today)
	if err != nil || err2 != nil || !lastDay.Before(todayDay) {
		// История испорчена — пересобираем окно заново, заканчивая сегодняшним днём.
		w.Last7Days = emptyWindow(todayDay)
	} else {
		for day := lastDay.AddDate(0, 0, 1); !day.After(todayDay); day = day.AddDate(0, 0, 1) {
			w.Last7Days = append(w.Last7Days, domain.DailyFitcoin{Date: day.Format(domain.DateLayout)})
		}
		if excess := len(w.Last7Days) - domain.HistoryDays; excess > 0 {
			w.Last7Days = w.Last7Days[excess:]
		}
	}

	w.Today = domain.TodayBucket{Date: today, Activities: []domain.Activity{}}
}

func emptyWindow(today time.Time) []domain.DailyFitcoin {
	window := make([]domain.DailyFitcoin, 0, domain.HistoryDays)
	for i := domain.HistoryDays - 1; i >= 0; i-- {
		window = append(window, domain.DailyFitcoin{Date: today.AddDate(0, 0, -i).Format(domain.DateLayout)})
	}
	return window
}

// Redeem списывает стоимость награды с баланса.
func (s *Service) Redeem(ctx context.Context, userID string, cost float64) error {
	if cost <= 0 {
		return fmt.Errorf("стоимость должна быть положительной")
	}
	_, err := s.wallets.UpdateWallet(ctx, userID, func(w *domain.WalletSummary) error {
		if w.Balance < cost {
			return domain.ErrInsufficientFunds
		}
		w.Balance = round2(w.Balance - cost)
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientFunds) {
			metrics.InsufficientFunds.Inc()
			return err
		}
		return fmt.Errorf("списание награды: %w", err)
	}
	metrics.FitcoinRedeemed.Add(cost)
	return nil
}

// Stake переводит сумму с баланса в накопления.
func (s *Service) Stake(ctx context.Context, userID string, amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("сумма стейка должна быть положительной")
	}
	_, err := s.wallets.UpdateWallet(ctx, userID, func(w *domain.WalletSummary) error {
		if w.Balance < amount {
			return domain.ErrInsufficientFunds
		}
		w.Balance = round2(w.Balance - amount)
		w.StakedAmount = round2(w.StakedAmount + amount)
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientFunds) {
			metrics.InsufficientFunds.Inc()
			return err
		}
		return fmt.Errorf("стейк: %w", err)
	}
	metrics.FitcoinStaked.Add(amount)
	return nil
}

// Unstake возвращает сумму из накоплений на баланс.
func (s *Service) Unstake(ctx context.Context, userID string, amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("сумма вывода должна быть положительной")
	}
	_, err := s.wallets.UpdateWallet(ctx, userID, func(w *domain.WalletSummary) error {
		if w.StakedAmount < amount {
			return domain.ErrInsufficientFunds
		}
		w.StakedAmount = round2(w.StakedAmount - amount)
		w.Balance = round2(w.Balance + amount)
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientFunds) {
			metrics.InsufficientFunds.Inc()
			return err
		}
		return fmt.Errorf("вывод из стейка: %w", err)
	}
	return nil
}

// CreditFeedBonus зачисляет бонус из ленты сообщества. Бонус увеличивает баланс,
// но не заработок дня: это не активность провайдера.
func (s *Service) CreditFeedBonus(ctx context.Context, credit domain.FeedCredit) error {
	if credit.Amount <= 0 {
		return fmt.Errorf("сумма бонуса должна быть положительной")
	}
	_, err := s.wallets.UpdateWallet(ctx, credit.UserID, func(w *domain.WalletSummary) error {
		w.Balance = round2(w.Balance + credit.Amount)
		return nil
	})
	if err != nil {
		return fmt.Errorf("бонус из ленты: %w", err)
	}
	metrics.FeedCreditsApplied.Inc()
	s.log.Info().Str("user_id", credit.UserID).Float64("amount", credit.Amount).Str("reason", credit.Reason).Msg("wallet: зачислен бонус из ленты")
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
