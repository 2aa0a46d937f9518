package app

import (
	"errors"
	"time"

	"github.com/md-rashed-zaman/venuebook/libs/config"
	"github.com/md-rashed-zaman/venuebook/services/venue-service/internal/availability"
)

// Config is everything venue-service reads from the environment. It is loaded
// once in main; nothing else in the service touches os.Getenv.
type Config struct {
	ServiceName string
	LogLevel    string
	HTTPPort    string
	GRPCPort    string

	// DatabaseURL empty selects the in-memory store.
	DatabaseURL string
	Migrate     bool
	DBMaxConns  int

	KafkaBrokers    string
	KafkaGroupID    string
	CommandTopic    string
	OutboxPollEvery time.Duration
	OutboxBatchSize int

	// RedisAddr empty selects the in-process rate limiter.
	RedisAddr      string
	RateLimit      int
	RateWindow     time.Duration
	RateFailOpen   bool
	CORSOrigins    []string
	RequestTimeout time.Duration
	MaxBodyBytes   int64

	CheckReservedConflicts bool
	MaxRangeDays           int
}

func ConfigFromEnv() (Config, error) {
	cfg := Config{
		ServiceName:  config.String("SERVICE_NAME", "venue-service"),
		LogLevel:     config.String("LOG_LEVEL", "info"),
		DatabaseURL:  config.String("DATABASE_URL", ""),
		KafkaBrokers: config.String("KAFKA_BROKERS", ""),
		KafkaGroupID: config.String("KAFKA_GROUP_ID", "venue-service"),
		CommandTopic: config.String("KAFKA_COMMAND_TOPIC", "venue.booking.commands.v1"),
		RedisAddr:    config.String("REDIS_ADDR", ""),
		CORSOrigins:  config.List("CORS_ALLOWED_ORIGINS"),
	}

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	var err error

	cfg.HTTPPort, err = config.Port("PORT", "8080")
	collect(err)
	cfg.GRPCPort, err = config.Port("GRPC_PORT", "9090")
	collect(err)
	cfg.Migrate, err = config.Bool("DB_MIGRATE", true)
	collect(err)
	cfg.DBMaxConns, err = config.Int("DB_MAX_CONNS", 10)
	collect(err)
	cfg.OutboxPollEvery, err = config.Duration("OUTBOX_POLL_EVERY", 2*time.Second)
	collect(err)
	cfg.OutboxBatchSize, err = config.Int("OUTBOX_BATCH_SIZE", 50)
	collect(err)
	cfg.RateLimit, err = config.Int("RATE_LIMIT_REQUESTS", 120)
	collect(err)
	cfg.RateWindow, err = config.Duration("RATE_LIMIT_WINDOW", time.Minute)
	collect(err)
	cfg.RateFailOpen, err = config.Bool("RATE_LIMIT_FAIL_OPEN", true)
	collect(err)
	cfg.RequestTimeout, err = config.Duration("HTTP_REQUEST_TIMEOUT", 10*time.Second)
	collect(err)
	maxBody, err := config.Int("HTTP_MAX_BODY_BYTES", 1<<20)
	collect(err)
	cfg.MaxBodyBytes = int64(maxBody)
	cfg.CheckReservedConflicts, err = config.Bool("CHECK_RESERVED_CONFLICTS", false)
	collect(err)
	cfg.MaxRangeDays, err = config.Int("AVAILABILITY_MAX_DAYS", availability.DefaultMaxDays)
	collect(err)

	if cfg.MaxRangeDays < 1 {
		errs = append(errs, errors.New("AVAILABILITY_MAX_DAYS must be at least 1"))
	}
	if cfg.HTTPPort != "" && cfg.HTTPPort == cfg.GRPCPort {
		errs = append(errs, errors.New("PORT and GRPC_PORT must differ"))
	}
	return cfg, errors.Join(errs...)
}
