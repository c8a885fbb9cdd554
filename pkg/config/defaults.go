package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "tutorbook"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRedisDB = 0

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultTokenTTL = 24 * time.Hour

	DefaultBookingLockTTL        = 10 * time.Second
	DefaultReminderLeadTime      = 24 * time.Hour
	DefaultReminderSweepInterval = 1 * time.Minute

	DefaultBookingEventsTopic    = "booking-events"
	DefaultBookingEventsDLQTopic = "dlq-booking-events"
	DefaultNotifierGroupID       = "notifier"

	DefaultEmailFromName = "Tutorbook"

	DefaultPaginationLimit = 100
)
