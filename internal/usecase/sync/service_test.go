package sync

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"fitcoin-engine/internal/domain"
)

type walletServiceStub struct {
	applyCalls int
	balance    float64
	applyErr   error
}

func (s *walletServiceStub) GetOrCreate(_ context.Context, userID string) (domain.WalletSummary, error) {
	return domain.WalletSummary{UserID: userID, Balance: s.balance}, nil
}

func (s *walletServiceStub) ApplySyncResult(_ context.Context, userID string, activities []domain.Activity) (domain.WalletSummary, error) {
	if s.applyErr != nil {
		return domain.WalletSummary{}, s.applyErr
	}
	s.applyCalls++
	for _, act := range activities {
		s.balance += act.Fitcoin
	}
	return domain.WalletSummary{UserID: userID, Balance: s.balance}, nil
}

func (s *walletServiceStub) Redeem(context.Context, string, float64) error          { return nil }
func (s *walletServiceStub) Stake(context.Context, string, float64) error           { return nil }
func (s *walletServiceStub) Unstake(context.Context, string, float64) error         { return nil }
func (s *walletServiceStub) CreditFeedBonus(context.Context, domain.FeedCredit) error { return nil }

type userRepoStub struct {
	users map[string]domain.User
}

func (s *userRepoStub) CreateUser(_ context.Context, user domain.User) (domain.User, error) {
	return user, nil
}

func (s *userRepoStub) GetUserByID(_ context.Context, id string) (domain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

func (s *userRepoStub) GetUserByEmail(_ context.Context, _ string) (domain.User, error) {
	return domain.User{}, domain.ErrUserNotFound
}

type gateStub struct {
	on      bool
	armed   int
	isOnErr error
	armErr  error
}

func (g *gateStub) Arm(context.Context, string) error {
	g.armed++
	if g.armErr != nil {
		return g.armErr
	}
	g.on = true
	return nil
}

func (g *gateStub) IsOn(context.Context, string) (bool, error) {
	return g.on, g.isOnErr
}

func (g *gateStub) Remaining(context.Context, string) (time.Duration, error) {
	if g.on {
		return time.Hour, nil
	}
	return 0, nil
}

func newSyncFixture(t *testing.T) (*Service, *walletServiceStub, *gateStub) {
	t.Helper()
	wallets := &walletServiceStub{balance: 3}
	users := &userRepoStub{users: map[string]domain.User{
		"u1": {ID: "u1", Email: "u1@example.com", PrimaryProvider: domain.ProviderWearables},
	}}
	gate := &gateStub{}
	gen := NewGenerator(testCatalog(), rand.New(rand.NewSource(11)))
	svc := NewService(wallets, users, gen, gate, 34, 10*time.Minute, zerolog.Nop())
	return svc, wallets, gate
}

func TestPollProgression(t *testing.T) {
	svc, wallets, gate := newSyncFixture(t)
	ctx := context.Background()

	jobID, err := svc.Start(ctx, "u1")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	// Опросы продвигают задачу шагами по 34: 34 -> 68 -> COMPLETED.
	for i, wantProgress := range []int{34, 68} {
		st, err := svc.Poll(ctx, jobID)
		if err != nil {
			t.Fatalf("опрос %d: не ожидали ошибку: %v", i+1, err)
		}
		if st.Status != domain.JobStateRunning || st.Progress != wantProgress {
			t.Fatalf("опрос %d: ожидали RUNNING/%d, получили %s/%d", i+1, wantProgress, st.Status, st.Progress)
		}
		if st.Result != nil {
			t.Fatalf("незавершённая задача не должна иметь результата")
		}
	}

	st, err := svc.Poll(ctx, jobID)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if st.Status != domain.JobStateCompleted || st.Progress != 100 {
		t.Fatalf("ожидали COMPLETED/100, получили %s/%d", st.Status, st.Progress)
	}
	if st.Result == nil {
		t.Fatalf("завершённая задача обязана иметь результат")
	}
	if len(st.Result.GeneratedActivities) < 1 || len(st.Result.GeneratedActivities) > 4 {
		t.Fatalf("ожидали от 1 до 4 активностей, получили %d", len(st.Result.GeneratedActivities))
	}
	var sum float64
	for _, act := range st.Result.GeneratedActivities {
		sum += act.Fitcoin
	}
	if st.Result.FitcoinDelta != round2(sum) {
		t.Fatalf("дельта %v не равна сумме активностей %v", st.Result.FitcoinDelta, round2(sum))
	}
	if st.Result.NewBalance != wallets.balance {
		t.Fatalf("новый баланс %v не совпадает с кошельком %v", st.Result.NewBalance, wallets.balance)
	}
	if gate.armed != 1 {
		t.Fatalf("пауза должна быть взведена один раз, получили %d", gate.armed)
	}
}

func TestPollCompletedIsIdempotent(t *testing.T) {
	svc, wallets, _ := newSyncFixture(t)
	ctx := context.Background()

	jobID, err := svc.Start(ctx, "u1")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	var done domain.JobStatus
	for i := 0; i < 3; i++ {
		done, err = svc.Poll(ctx, jobID)
		if err != nil {
			t.Fatalf("не ожидали ошибку: %v", err)
		}
	}
	if done.Status != domain.JobStateCompleted {
		t.Fatalf("ожидали COMPLETED после трёх опросов, получили %s", done.Status)
	}

	// Повторные опросы возвращают тот же снимок без повторного начисления.
	for i := 0; i < 5; i++ {
		again, err := svc.Poll(ctx, jobID)
		if err != nil {
			t.Fatalf("не ожидали ошибку: %v", err)
		}
		if again.Status != domain.JobStateCompleted || again.Progress != 100 {
			t.Fatalf("повторный опрос изменил снимок: %s/%d", again.Status, again.Progress)
		}
		if again.Result.FitcoinDelta != done.Result.FitcoinDelta {
			t.Fatalf("повторный опрос изменил результат")
		}
	}
	if wallets.applyCalls != 1 {
		t.Fatalf("начисление должно произойти ровно один раз, получили %d", wallets.applyCalls)
	}
}

func TestPollUnknownJob(t *testing.T) {
	svc, _, _ := newSyncFixture(t)

	st, err := svc.Poll(context.Background(), "no-such-job")
	if !errors.Is(err, domain.ErrUnknownJob) {
		t.Fatalf("ожидали ErrUnknownJob, получили %v", err)
	}
	if st.Status != domain.JobStateFailed {
		t.Fatalf("неизвестная задача должна быть FAILED, получили %s", st.Status)
	}
}

func TestStartRejectedOnCooldown(t *testing.T) {
	svc, _, gate := newSyncFixture(t)
	gate.on = true

	_, err := svc.Start(context.Background(), "u1")
	if !errors.Is(err, domain.ErrSyncCooldown) {
		t.Fatalf("ожидали ErrSyncCooldown, получили %v", err)
	}
}

func TestCooldownArmsAfterCompletion(t *testing.T) {
	svc, _, gate := newSyncFixture(t)
	ctx := context.Background()

	jobID, err := svc.Start(ctx, "u1")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := svc.Poll(ctx, jobID); err != nil {
			t.Fatalf("не ожидали ошибку: %v", err)
		}
	}
	if gate.armed != 1 {
		t.Fatalf("завершение должно взвести паузу ровно один раз, получили %d", gate.armed)
	}

	if _, err := svc.Start(ctx, "u1"); !errors.Is(err, domain.ErrSyncCooldown) {
		t.Fatalf("после завершения новая синхронизация должна упираться в паузу, получили %v", err)
	}
}

func TestPollStaleJobFails(t *testing.T) {
	svc, wallets, _ := newSyncFixture(t)
	ctx := context.Background()

	jobID, err := svc.Start(ctx, "u1")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	// Клиент пропал на дольше TTL, следующий опрос находит протухшую задачу.
	started := time.Now()
	svc.now = func() time.Time { return started.Add(11 * time.Minute) }

	st, err := svc.Poll(ctx, jobID)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if st.Status != domain.JobStateFailed {
		t.Fatalf("протухшая задача должна быть FAILED, получили %s", st.Status)
	}
	if wallets.applyCalls != 0 {
		t.Fatalf("протухшая задача не должна начисляться")
	}
}

func TestCompleteFailsWithoutUser(t *testing.T) {
	svc, wallets, gate := newSyncFixture(t)
	ctx := context.Background()

	jobID, err := svc.Start(ctx, "ghost")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	var st domain.JobStatus
	for i := 0; i < 3; i++ {
		st, err = svc.Poll(ctx, jobID)
		if err != nil {
			t.Fatalf("не ожидали ошибку: %v", err)
		}
	}
	if st.Status != domain.JobStateFailed {
		t.Fatalf("задача без пользователя должна завершиться FAILED, получили %s", st.Status)
	}
	if wallets.applyCalls != 0 {
		t.Fatalf("ошибка завершения не должна трогать кошелёк")
	}
	if gate.armed != 0 {
		t.Fatalf("пауза не взводится при ошибке завершения")
	}
}

func TestSweep(t *testing.T) {
	svc, _, gate := newSyncFixture(t)
	ctx := context.Background()

	doneID, err := svc.Start(ctx, "u1")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := svc.Poll(ctx, doneID); err != nil {
			t.Fatalf("не ожидали ошибку: %v", err)
		}
	}

	gate.on = false
	hungID, err := svc.Start(ctx, "u1")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	started := time.Now()
	svc.now = func() time.Time { return started.Add(11 * time.Minute) }
	svc.sweep()

	svc.mu.Lock()
	defer svc.mu.Unlock()
	if _, ok := svc.jobs[doneID]; ok {
		t.Fatalf("терминальная протухшая задача должна быть удалена")
	}
	hung, ok := svc.jobs[hungID]
	if !ok {
		t.Fatalf("зависшая задача должна остаться в таблице")
	}
	if hung.status != domain.JobStateFailed {
		t.Fatalf("зависшая задача должна быть переведена в FAILED, получили %s", hung.status)
	}
}
