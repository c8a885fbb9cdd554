package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"time"

	"tutorbook/pkg/client"
	"tutorbook/pkg/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port string

	JWTSecret string
	TokenTTL  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	BookingLockTTL        time.Duration
	ReminderLeadTime      time.Duration
	ReminderSweepInterval time.Duration

	BookingEventsTopic    string
	BookingEventsDLQTopic string
	NotifierGroupID       string

	SendGridAPIKey string
	EmailFromAddr  string
	EmailFromName  string

	Log    *logger.Logger
	Client *client.Client
}

// Load reads an optional .env file, then the process environment.
func Load(serviceName string) *Config {
	dotenvErr := godotenv.Load()

	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		JWTSecret: getEnvStr(EnvJWTSecret, ""),
		TokenTTL:  getEnvDuration(EnvTokenTTL, DefaultTokenTTL),

		RedisAddr:     getEnvStr(EnvRedisAddr, ""),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),
		RedisDB:       getEnvNum(EnvRedisDB, DefaultRedisDB),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		BookingLockTTL:        getEnvDuration(EnvBookingLockTTL, DefaultBookingLockTTL),
		ReminderLeadTime:      getEnvDuration(EnvReminderLeadTime, DefaultReminderLeadTime),
		ReminderSweepInterval: getEnvDuration(EnvReminderSweepInterval, DefaultReminderSweepInterval),

		BookingEventsTopic:    getEnvStr(EnvBookingEventsTopic, DefaultBookingEventsTopic),
		BookingEventsDLQTopic: getEnvStr(EnvBookingEventsDLQTopic, DefaultBookingEventsDLQTopic),
		NotifierGroupID:       getEnvStr(EnvNotifierGroupID, DefaultNotifierGroupID),

		SendGridAPIKey: getEnvStr(EnvSendGridAPIKey, ""),
		EmailFromAddr:  getEnvStr(EnvEmailFromAddr, ""),
		EmailFromName:  getEnvStr(EnvEmailFromName, DefaultEmailFromName),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if dotenvErr != nil && !errors.Is(dotenvErr, fs.ErrNotExist) {
		cfg.Log.Warn("Failed to load .env file", "error", dotenvErr)
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

// SetRedis connects only when REDIS_ADDR is configured.
func (cfg *Config) SetRedis() {
	if cfg.RedisAddr == "" {
		cfg.Log.Info("Redis not configured, using in-process stores")
		return
	}
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.MongoConnTimeout)
}

func (cfg *Config) EmailEnabled() bool {
	return cfg.SendGridAPIKey != "" && cfg.EmailFromAddr != ""
}

func (cfg *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errs = append(errs, "MongoURI cannot be empty")
	} else if !mongoURIRegex.MatchString(cfg.MongoURI) {
		errs = append(errs, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
	}
	if cfg.MongoDatabaseName == "" {
		errs = append(errs, "MongoDatabaseName cannot be empty")
	}

	if cfg.JWTSecret == "" {
		errs = append(errs, "JWTSecret cannot be empty")
	} else if len(cfg.JWTSecret) < 16 {
		errs = append(errs, "JWTSecret must be at least 16 characters")
	}

	if cfg.RedisDB < 0 {
		errs = append(errs, fmt.Sprintf("RedisDB cannot be negative, got: %d", cfg.RedisDB))
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"MongoConnTimeout", cfg.MongoConnTimeout},
		{"TokenTTL", cfg.TokenTTL},
		{"RateLimitWindow", cfg.RateLimitWindow},
		{"RequestTimeout", cfg.RequestTimeout},
		{"IdempotencyTTL", cfg.IdempotencyTTL},
		{"ReadTimeout", cfg.ReadTimeout},
		{"WriteTimeout", cfg.WriteTimeout},
		{"IdleTimeout", cfg.IdleTimeout},
		{"ShutdownTimeout", cfg.ShutdownTimeout},
		{"BookingLockTTL", cfg.BookingLockTTL},
		{"ReminderLeadTime", cfg.ReminderLeadTime},
		{"ReminderSweepInterval", cfg.ReminderSweepInterval},
	}
	for _, d := range durations {
		if d.value <= 0 {
			errs = append(errs, fmt.Sprintf("%s must be positive, got: %s", d.name, d.value))
		}
	}

	if cfg.RateLimitRequests <= 0 {
		errs = append(errs, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errs = append(errs, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	if cfg.BookingEventsTopic == "" {
		errs = append(errs, "BookingEventsTopic cannot be empty")
	}
	if cfg.NotifierGroupID == "" {
		errs = append(errs, "NotifierGroupID cannot be empty")
	}
	if cfg.SendGridAPIKey != "" && cfg.EmailFromAddr == "" {
		errs = append(errs, "EmailFromAddr is required when SendGridAPIKey is set")
	}

	if len(errs) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errs {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"jwt_secret_set", cfg.JWTSecret != "",
		"token_ttl", cfg.TokenTTL,
		"redis_addr", cfg.RedisAddr,
		"redis_db", cfg.RedisDB,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"booking_lock_ttl", cfg.BookingLockTTL,
		"reminder_lead_time", cfg.ReminderLeadTime,
		"reminder_sweep_interval", cfg.ReminderSweepInterval,
		"booking_events_topic", cfg.BookingEventsTopic,
		"booking_events_dlq_topic", cfg.BookingEventsDLQTopic,
		"notifier_group_id", cfg.NotifierGroupID,
		"sendgrid_key_set", cfg.SendGridAPIKey != "",
		"email_from", cfg.EmailFromAddr,
	)
}

var (
	mongoURIRegex   = regexp.MustCompile(`^mongodb(\+srv)?://`)
	credentialRegex = regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
)

func redactMongoURI(uri string) string {
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log, cfg.ShutdownTimeout)
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
