package community

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fitcoin-engine/internal/domain"
)

const summaryCacheKey = "community:summary"
const summaryCacheTTL = time.Minute

// Service отвечает за испытания, ленту и сводку сообщества.
// Испытания и лента держатся в памяти процесса: это предзаполненные
// продуктовые данные, а не пользовательское состояние.
type Service struct {
	queue domain.CreditQueue
	cache domain.Cache
	log   zerolog.Logger

	mu         sync.Mutex
	challenges []domain.Challenge
	feed       []domain.FeedItem
}

// NewService создаёт сервис сообщества с предзаполненными испытаниями и лентой.
func NewService(queue domain.CreditQueue, cache domain.Cache, logger zerolog.Logger) *Service {
	return &Service{
		queue:      queue,
		cache:      cache,
		log:        logger,
		challenges: seedChallenges(),
		feed:       seedFeed(),
	}
}

func seedChallenges() []domain.Challenge {
	return []domain.Challenge{
		{ID: "c1", Name: "The 10k Step Streak (7 days)", Reward: 500, Status: domain.ChallengeNotJoined, Progress: 0, Icon: "Footprints", Participants: 1258},
		{ID: "c2", Name: "7 Nights of Quality Sleep", Reward: 300, Status: domain.ChallengeJoined, Progress: 85, Icon: "Moon", Participants: 973},
		{ID: "c3", Name: "Weekend Warrior Run", Reward: 750, Status: domain.ChallengeNotJoined, Progress: 0, Icon: "Zap", Participants: 450},
	}
}

func seedFeed() []domain.FeedItem {
	return []domain.FeedItem{
		{ID: "f1", User: "FitnessFanatic88", Action: "completed the 7 Nights of Quality Sleep challenge!", Type: "challenge", Timestamp: "10m ago", Icon: "Moon"},
		{ID: "f2", User: "WalkerQueen", Action: "just reached the Silver Savings Tier!", Type: "savings", Timestamp: "35m ago", Icon: "TrendingUp"},
		{ID: "f3", User: "You", Action: "logged a simulated activity and earned 12.5 FIT.", Type: "activity", Timestamp: "1h ago", Icon: "Zap"},
		{ID: "f4", User: "GymBroSam", Action: "redeemed a Personalized Meal Plan.", Type: "marketplace", Timestamp: "2h ago", Icon: "Apple"},
		{ID: "f5", User: "NewbieRunner", Action: "just joined the Weekend Warrior Run challenge!", Type: "challenge", Timestamp: "3h ago", Icon: "Zap"},
	}
}

// Challenges возвращает текущие испытания.
func (s *Service) Challenges() []domain.Challenge {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Challenge, len(s.challenges))
	copy(out, s.challenges)
	return out
}

// Feed возвращает ленту сообщества, свежие записи первыми.
func (s *Service) Feed() []domain.FeedItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.FeedItem, len(s.feed))
	copy(out, s.feed)
	return out
}

// JoinChallenge присоединяет пользователя к испытанию и публикует запись в ленте.
func (s *Service) JoinChallenge(ctx context.Context, userID, challengeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.challenges {
		ch := &s.challenges[i]
		if ch.ID != challengeID {
			continue
		}
		if ch.Status == domain.ChallengeJoined {
			return nil
		}
		ch.Status = domain.ChallengeJoined
		ch.Progress = 5
		ch.Participants++
		s.prependFeedLocked(domain.FeedItem{
			ID:        uuid.NewString(),
			User:      "You",
			Action:    fmt.Sprintf("just joined the %s challenge!", ch.Name),
			Type:      "challenge",
			Timestamp: "Just now",
			Icon:      ch.Icon,
		})
		return nil
	}
	return domain.ErrChallengeNotFound
}

// CompleteChallenge помечает испытание завершённым и отправляет награду
// в очередь начислений: сам леджер трогает только воркер начислений.
func (s *Service) CompleteChallenge(ctx context.Context, userID, challengeID string) error {
	s.mu.Lock()
	var completed *domain.Challenge
	for i := range s.challenges {
		ch := &s.challenges[i]
		if ch.ID != challengeID {
			continue
		}
		if ch.Status != domain.ChallengeJoined {
			s.mu.Unlock()
			return domain.ErrChallengeNotFound
		}
		ch.Progress = 100
		completed = ch
		break
	}
	if completed == nil {
		s.mu.Unlock()
		return domain.ErrChallengeNotFound
	}
	reward := completed.Reward
	name := completed.Name
	s.prependFeedLocked(domain.FeedItem{
		ID:        uuid.NewString(),
		User:      "You",
		Action:    fmt.Sprintf("completed the %s challenge!", name),
		Type:      "challenge",
		Timestamp: "Just now",
		Icon:      completed.Icon,
	})
	s.mu.Unlock()

	credit := domain.FeedCredit{
		ID:          uuid.NewString(),
		UserID:      userID,
		Amount:      reward,
		Reason:      fmt.Sprintf("challenge:%s", challengeID),
		RequestedAt: time.Now().UTC(),
	}
	if err := s.queue.Enqueue(ctx, credit); err != nil {
		return fmt.Errorf("отправка награды в очередь: %w", err)
	}
	s.log.Info().Str("user_id", userID).Str("challenge_id", challengeID).Float64("reward", reward).Msg("community: награда отправлена в очередь")
	return nil
}

func (s *Service) prependFeedLocked(item domain.FeedItem) {
	s.feed = append([]domain.FeedItem{item}, s.feed...)
}

// Summary возвращает сводку сообщества. Значения кэшируются с коротким TTL,
// чтобы не пересобирать сводку на каждый запрос.
func (s *Service) Summary(ctx context.Context) (domain.CommunitySummary, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(summaryCacheKey); err == nil && len(data) > 0 {
			var cached domain.CommunitySummary
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached, nil
			}
		}
	}

	summary := buildSummary()

	if s.cache != nil {
		if data, err := json.Marshal(summary); err == nil {
			if err := s.cache.Set(summaryCacheKey, data, summaryCacheTTL); err != nil {
				s.log.Warn().Err(err).Msg("community: сводка не закэширована")
			}
		}
	}
	return summary, nil
}

func buildSummary() domain.CommunitySummary {
	return domain.CommunitySummary{
		TotalUsers:           12458,
		TotalFitcoinThisWeek: 890123,
		AvgDailyPerUser:      25.7,
		Leaderboard: []domain.LeaderboardEntry{
			{UserID: "user1", DisplayName: "FitnessFanatic88", WeeklyFitcoin: 1550},
			{UserID: "user2", DisplayName: "WalkerQueen", WeeklyFitcoin: 1420},
			{UserID: "user3", DisplayName: "GymBroSam", WeeklyFitcoin: 1210},
			{UserID: "user4", DisplayName: "You", WeeklyFitcoin: 980},
		},
	}
}
