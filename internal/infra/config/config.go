package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv      string `envconfig:"APP_ENV" default:"dev"`
	TZ          string `envconfig:"TZ" default:"UTC"`
	Port        int    `envconfig:"PORT" default:"8080"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	AMQPURL string `envconfig:"AMQP_URL"`

	Sync struct {
		// Cooldown — минимальная пауза между завершёнными синхронизациями.
		Cooldown time.Duration `envconfig:"SYNC_COOLDOWN" default:"1h"`
		// ProgressStep — прирост прогресса задачи за один опрос.
		ProgressStep int `envconfig:"SYNC_PROGRESS_STEP" default:"34"`
		// JobTTL — срок жизни задачи в памяти; зависшие RUNNING-задачи
		// старше TTL переводятся в FAILED и вычищаются.
		JobTTL time.Duration `envconfig:"SYNC_JOB_TTL" default:"10m"`
	} `envconfig:""`

	Wallet struct {
		InitialGrant float64 `envconfig:"WALLET_INITIAL_GRANT" default:"3"`
	} `envconfig:""`

	Queues struct {
		FeedCredits string `envconfig:"FEED_CREDITS_QUEUE_KEY" default:"feed_credits"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
