package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fitcoin-engine/internal/domain"
	"fitcoin-engine/internal/infra/metrics"
)

// job — задача синхронизации, живущая только в памяти процесса.
type job struct {
	id        string
	userID    string
	status    domain.JobState
	progress  int
	result    *domain.SyncResult
	createdAt time.Time
	updatedAt time.Time
}

func (j *job) snapshot() domain.JobStatus {
	return domain.JobStatus{JobID: j.id, Status: j.status, Progress: j.progress, Result: j.result}
}

// Service реализует конечный автомат задач синхронизации.
// Прогресс продвигается только опросами клиента; переход в COMPLETED
// генерирует активности, начисляет их в кошелёк и взводит паузу.
type Service struct {
	wallets domain.WalletService
	users   domain.UserRepo
	gen     *Generator
	gate    domain.CooldownGate
	step    int
	jobTTL  time.Duration
	now     func() time.Time
	log     zerolog.Logger

	mu   gosync.Mutex
	jobs map[string]*job
}

var _ domain.SyncService = (*Service)(nil)

// NewService создаёт сервис синхронизаций.
func NewService(wallets domain.WalletService, users domain.UserRepo, gen *Generator, gate domain.CooldownGate, progressStep int, jobTTL time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		wallets: wallets,
		users:   users,
		gen:     gen,
		gate:    gate,
		step:    progressStep,
		jobTTL:  jobTTL,
		now:     time.Now,
		log:     logger,
		jobs:    make(map[string]*job),
	}
}

// Start создаёт задачу в состоянии RUNNING. Пауза между синхронизациями
// проверяется на сервере: клиентский таймер — только удобство интерфейса.
func (s *Service) Start(ctx context.Context, userID string) (string, error) {
	onCooldown, err := s.gate.IsOn(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("проверка паузы: %w", err)
	}
	if onCooldown {
		metrics.SyncCooldownRejected.Inc()
		return "", domain.ErrSyncCooldown
	}

	now := s.now()
	j := &job{
		id:        uuid.NewString(),
		userID:    userID,
		status:    domain.JobStateRunning,
		createdAt: now,
		updatedAt: now,
	}

	s.mu.Lock()
	s.jobs[j.id] = j
	s.mu.Unlock()

	metrics.SyncJobsStarted.Inc()
	s.log.Debug().Str("job_id", j.id).Str("user_id", userID).Msg("sync: задача запущена")
	return j.id, nil
}

// Poll продвигает задачу на один шаг и возвращает её снимок.
// Неизвестная задача даёт терминальный FAILED; повторные опросы завершённой
// задачи идемпотентны: генератор и леджер повторно не вызываются.
func (s *Service) Poll(ctx context.Context, jobID string) (domain.JobStatus, error) {
	metrics.SyncJobPolls.Inc()

	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[jobID]
	if !ok {
		return domain.JobStatus{JobID: jobID, Status: domain.JobStateFailed}, domain.ErrUnknownJob
	}
	if j.status.Terminal() {
		return j.snapshot(), nil
	}

	now := s.now()
	if now.Sub(j.updatedAt) > s.jobTTL {
		j.status = domain.JobStateFailed
		j.updatedAt = now
		metrics.SyncJobsFailed.Inc()
		s.log.Warn().Str("job_id", j.id).Msg("sync: задача протухла и переведена в FAILED")
		return j.snapshot(), nil
	}

	j.updatedAt = now
	if j.progress+s.step < 100 {
		j.progress += s.step
		return j.snapshot(), nil
	}

	s.complete(ctx, j)
	return j.snapshot(), nil
}

// complete выполняет переход RUNNING -> COMPLETED: генерация активностей и
// начисление происходят синхронно внутри перехода. До этого момента леджер не
// трогается, поэтому ошибка оставляет кошелёк без частичных изменений.
func (s *Service) complete(ctx context.Context, j *job) {
	start := time.Now()

	user, err := s.users.GetUserByID(ctx, j.userID)
	if err != nil {
		s.fail(j, fmt.Errorf("получение пользователя: %w", err))
		return
	}

	activities := s.gen.Generate(user.PrimaryProvider)
	wallet, err := s.wallets.ApplySyncResult(ctx, j.userID, activities)
	if err != nil {
		s.fail(j, fmt.Errorf("начисление: %w", err))
		return
	}

	var delta float64
	for _, act := range activities {
		delta += act.Fitcoin
	}

	j.progress = 100
	j.status = domain.JobStateCompleted
	j.result = &domain.SyncResult{
		FitcoinDelta:        round2(delta),
		NewBalance:          wallet.Balance,
		GeneratedActivities: activities,
	}

	if err := s.gate.Arm(ctx, j.userID); err != nil {
		// Начисление уже применено, пауза не критична для результата.
		s.log.Warn().Err(err).Str("user_id", j.userID).Msg("sync: пауза не взведена")
	}

	metrics.SyncJobsCompleted.Inc()
	metrics.SyncCompleteSeconds.Observe(time.Since(start).Seconds())
	s.log.Info().Str("job_id", j.id).Str("user_id", j.userID).Float64("delta", j.result.FitcoinDelta).Msg("sync: задача завершена")
}

func (s *Service) fail(j *job, err error) {
	j.status = domain.JobStateFailed
	metrics.SyncJobsFailed.Inc()
	s.log.Error().Err(err).Str("job_id", j.id).Str("user_id", j.userID).Msg("sync: задача завершилась ошибкой")
}

// StartJanitor запускает фоновую чистку таблицы задач: терминальные задачи
// старше TTL удаляются, зависшие RUNNING переводятся в FAILED. Без чистки
// брошенные клиентом задачи копились бы в памяти бесконечно.
func (s *Service) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

func (s *Service) sweep() {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, j := range s.jobs {
		if now.Sub(j.updatedAt) <= s.jobTTL {
			continue
		}
		if !j.status.Terminal() {
			j.status = domain.JobStateFailed
			metrics.SyncJobsFailed.Inc()
			s.log.Warn().Str("job_id", id).Msg("sync: зависшая задача переведена в FAILED")
			continue
		}
		delete(s.jobs, id)
	}
}
