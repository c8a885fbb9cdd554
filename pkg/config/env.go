package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvJWTSecret = "JWT_SECRET"
	EnvTokenTTL  = "TOKEN_TTL"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvBookingLockTTL        = "BOOKING_LOCK_TTL"
	EnvReminderLeadTime      = "REMINDER_LEAD_TIME"
	EnvReminderSweepInterval = "REMINDER_SWEEP_INTERVAL"

	EnvBookingEventsTopic    = "BOOKING_EVENTS_TOPIC"
	EnvBookingEventsDLQTopic = "BOOKING_EVENTS_DLQ_TOPIC"
	EnvNotifierGroupID       = "NOTIFIER_GROUP_ID"

	EnvSendGridAPIKey = "SENDGRID_API_KEY"
	EnvEmailFromAddr  = "EMAIL_FROM_ADDRESS"
	EnvEmailFromName  = "EMAIL_FROM_NAME"
)
