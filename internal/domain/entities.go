package domain

import "time"

// Provider описывает источник данных о здоровье, подключённый пользователем.
type Provider string

const (
	ProviderAppleHealth   Provider = "apple_health"
	ProviderFitbit        Provider = "fitbit"
	ProviderGoogleFit     Provider = "google_fit"
	ProviderSamsungHealth Provider = "samsung_health"
	ProviderStrava        Provider = "strava"
	ProviderWearables     Provider = "wearables"
)

// Providers перечисляет все известные провайдеры.
var Providers = []Provider{
	ProviderAppleHealth,
	ProviderFitbit,
	ProviderGoogleFit,
	ProviderSamsungHealth,
	ProviderStrava,
	ProviderWearables,
}

// MetricDefinition описывает метрику провайдера и её курс конвертации.
// ValuePerFitcoin — положительный делитель: fitcoin = value / ValuePerFitcoin.
type MetricDefinition struct {
	Key             string
	Unit            string
	ValuePerFitcoin float64
}

// Activity представляет одно зачисленное событие активности.
type Activity struct {
	Title   string  `json:"title"`
	Fitcoin float64 `json:"fitcoin"`
	Metric  string  `json:"metric"`
	Icon    string  `json:"icon"`
}

// DailyFitcoin хранит заработок за один календарный день.
type DailyFitcoin struct {
	Date          string  `json:"date"`
	FitcoinEarned float64 `json:"fitcoinEarned"`
}

// TodayBucket накапливает активности текущего дня.
type TodayBucket struct {
	Date          string     `json:"date"`
	FitcoinEarned float64    `json:"fitcoinEarned"`
	Activities    []Activity `json:"activities"`
}

// WalletSummary — агрегат кошелька пользователя.
// Last7Days всегда содержит ровно 7 смежных дней, последний — сегодня.
type WalletSummary struct {
	UserID       string         `json:"userId"`
	Balance      float64        `json:"balance"`
	StakedAmount float64        `json:"stakedAmount"`
	Today        TodayBucket    `json:"today"`
	Last7Days    []DailyFitcoin `json:"last7Days"`
}

// HistoryDays — размер скользящего окна истории заработка.
const HistoryDays = 7

// DailyEarnCap — продуктовый лимит заработка за день, показывается пользователю.
// В леджере не применяется: лимит пока только информационный.
const DailyEarnCap = 50

// DateLayout — формат календарного дня в кошельке.
const DateLayout = "2006-01-02"

// JobState описывает состояние задачи синхронизации.
type JobState string

const (
	JobStatePending   JobState = "PENDING"
	JobStateRunning   JobState = "RUNNING"
	JobStateCompleted JobState = "COMPLETED"
	JobStateFailed    JobState = "FAILED"
)

// Terminal сообщает, является ли состояние конечным.
func (s JobState) Terminal() bool {
	return s == JobStateCompleted || s == JobStateFailed
}

// SyncResult прикрепляется к задаче в момент перехода в COMPLETED.
type SyncResult struct {
	FitcoinDelta        float64    `json:"fitcoinDelta"`
	NewBalance          float64    `json:"newBalance"`
	GeneratedActivities []Activity `json:"generatedActivities"`
}

// JobStatus — снимок задачи синхронизации, который опрашивает клиент.
type JobStatus struct {
	JobID    string      `json:"jobId"`
	Status   JobState    `json:"status"`
	Progress int         `json:"progress"`
	Result   *SyncResult `json:"result,omitempty"`
}

// User описывает зарегистрированного пользователя.
type User struct {
	ID              string
	DisplayName     string
	Email           string
	PasswordHash    string
	PrimaryProvider Provider
	PersonaID       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// FeedCredit — событие начисления Fitcoin из ленты сообщества.
type FeedCredit struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Amount      float64   `json:"amount"`
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
}

// Challenge описывает командное испытание сообщества.
type Challenge struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Reward       float64 `json:"reward"`
	Status       string  `json:"status"`
	Progress     int     `json:"progress"`
	Icon         string  `json:"icon"`
	Participants int     `json:"participants"`
}

// Состояния участия в испытании.
const (
	ChallengeJoined    = "Joined"
	ChallengeNotJoined = "Not Joined"
)

// FeedItem — запись в ленте сообщества.
type FeedItem struct {
	ID        string `json:"id"`
	User      string `json:"user"`
	Action    string `json:"action"`
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	Icon      string `json:"icon"`
}

// LeaderboardEntry — позиция недельного рейтинга.
type LeaderboardEntry struct {
	UserID        string  `json:"userId"`
	DisplayName   string  `json:"displayName"`
	WeeklyFitcoin float64 `json:"weeklyFitcoin"`
}

// CommunitySummary — агрегированная сводка сообщества.
type CommunitySummary struct {
	TotalUsers           int                `json:"totalUsers"`
	TotalFitcoinThisWeek float64            `json:"totalFitcoinThisWeek"`
	AvgDailyPerUser      float64            `json:"avgDailyPerUser"`
	Leaderboard          []LeaderboardEntry `json:"leaderboard"`
}
