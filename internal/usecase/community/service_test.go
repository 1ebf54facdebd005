package community

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"fitcoin-engine/internal/domain"
)

type queueStub struct {
	credits []domain.FeedCredit
	err     error
}

func (q *queueStub) Enqueue(_ context.Context, credit domain.FeedCredit) error {
	if q.err != nil {
		return q.err
	}
	q.credits = append(q.credits, credit)
	return nil
}

func (q *queueStub) Pop(_ context.Context) (domain.FeedCredit, error) {
	if len(q.credits) == 0 {
		return domain.FeedCredit{}, errors.New("очередь пуста")
	}
	credit := q.credits[0]
	q.credits = q.credits[1:]
	return credit, nil
}

type cacheStub struct {
	data map[string][]byte
	sets int
	gets int
}

func newCacheStub() *cacheStub {
	return &cacheStub{data: make(map[string][]byte)}
}

func (c *cacheStub) Once(_ string, _ time.Duration, fn func() error) error { return fn() }

func (c *cacheStub) Set(key string, value []byte, _ time.Duration) error {
	c.sets++
	c.data[key] = value
	return nil
}

func (c *cacheStub) Get(key string) ([]byte, error) {
	c.gets++
	value, ok := c.data[key]
	if !ok {
		return nil, errors.New("ключ не найден")
	}
	return value, nil
}

func TestJoinChallenge(t *testing.T) {
	svc := NewService(&queueStub{}, newCacheStub(), zerolog.Nop())

	if err := svc.JoinChallenge(context.Background(), "u1", "c1"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	var joined domain.Challenge
	for _, ch := range svc.Challenges() {
		if ch.ID == "c1" {
			joined = ch
		}
	}
	if joined.Status != domain.ChallengeJoined {
		t.Fatalf("ожидали статус joined, получили %s", joined.Status)
	}
	if joined.Progress != 5 {
		t.Fatalf("ожидали стартовый прогресс 5, получили %d", joined.Progress)
	}
	if joined.Participants != 1259 {
		t.Fatalf("счётчик участников должен вырасти на единицу, получили %d", joined.Participants)
	}

	feed := svc.Feed()
	if feed[0].User != "You" || feed[0].Type != "challenge" {
		t.Fatalf("присоединение должно публиковаться первым в ленте: %+v", feed[0])
	}
}

func TestJoinChallengeIdempotent(t *testing.T) {
	svc := NewService(&queueStub{}, newCacheStub(), zerolog.Nop())

	feedBefore := len(svc.Feed())
	if err := svc.JoinChallenge(context.Background(), "u1", "c2"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	// c2 засеяно как уже присоединённое: повторное присоединение ничего не меняет.
	if len(svc.Feed()) != feedBefore {
		t.Fatalf("повторное присоединение не должно публиковаться в ленте")
	}
}

func TestJoinUnknownChallenge(t *testing.T) {
	svc := NewService(&queueStub{}, newCacheStub(), zerolog.Nop())

	err := svc.JoinChallenge(context.Background(), "u1", "nope")
	if !errors.Is(err, domain.ErrChallengeNotFound) {
		t.Fatalf("ожидали ErrChallengeNotFound, получили %v", err)
	}
}

func TestCompleteChallengeEnqueuesReward(t *testing.T) {
	queue := &queueStub{}
	svc := NewService(queue, newCacheStub(), zerolog.Nop())
	ctx := context.Background()

	if err := svc.JoinChallenge(ctx, "u1", "c3"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if err := svc.CompleteChallenge(ctx, "u1", "c3"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	if len(queue.credits) != 1 {
		t.Fatalf("награда должна быть отправлена ровно один раз, получили %d", len(queue.credits))
	}
	credit := queue.credits[0]
	if credit.UserID != "u1" || credit.Amount != 750 || credit.Reason != "challenge:c3" {
		t.Fatalf("некорректное начисление: %+v", credit)
	}

	var completed domain.Challenge
	for _, ch := range svc.Challenges() {
		if ch.ID == "c3" {
			completed = ch
		}
	}
	if completed.Progress != 100 {
		t.Fatalf("завершённое испытание должно иметь прогресс 100, получили %d", completed.Progress)
	}
}

func TestCompleteChallengeRequiresJoin(t *testing.T) {
	queue := &queueStub{}
	svc := NewService(queue, newCacheStub(), zerolog.Nop())

	err := svc.CompleteChallenge(context.Background(), "u1", "c1")
	if !errors.Is(err, domain.ErrChallengeNotFound) {
		t.Fatalf("ожидали ErrChallengeNotFound для неприсоединённого испытания, получили %v", err)
	}
	if len(queue.credits) != 0 {
		t.Fatalf("награда не должна отправляться без присоединения")
	}
}

func TestSummaryUsesCache(t *testing.T) {
	cache := newCacheStub()
	svc := NewService(&queueStub{}, cache, zerolog.Nop())
	ctx := context.Background()

	first, err := svc.Summary(ctx)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if first.TotalUsers == 0 || len(first.Leaderboard) == 0 {
		t.Fatalf("сводка не должна быть пустой: %+v", first)
	}
	if cache.sets != 1 {
		t.Fatalf("первый вызов должен записать кэш, получили %d записей", cache.sets)
	}

	second, err := svc.Summary(ctx)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if cache.sets != 1 {
		t.Fatalf("повторный вызов должен читать из кэша, получили %d записей", cache.sets)
	}
	if second.TotalUsers != first.TotalUsers {
		t.Fatalf("кэшированная сводка расходится с исходной")
	}
}
