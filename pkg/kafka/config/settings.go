package kafka_config

import "time"

// Brokers and middleware.
const (
	EnvKafkaBrokers          = "KAFKA_BROKERS"
	EnvKafkaEnableMiddleware = "KAFKA_ENABLE_MIDDLEWARE"

	DefaultKafkaBrokers     = "localhost:9092"
	DefaultEnableMiddleware = true
)

// Booking events producer. Publishing is synchronous so the bookings service can log a
// failed publish against the booking that caused it.
const (
	EnvKafkaProducerMaxAttempts  = "KAFKA_PRODUCER_MAX_ATTEMPTS"
	EnvKafkaProducerBatchTimeout = "KAFKA_PRODUCER_BATCH_TIMEOUT"
	EnvKafkaProducerRequireAcks  = "KAFKA_PRODUCER_REQUIRE_ACKS"
	EnvKafkaProducerCompression  = "KAFKA_PRODUCER_COMPRESSION"
	EnvKafkaProducerAsync        = "KAFKA_PRODUCER_ASYNC"

	DefaultProducerMaxAttempts  = 3
	DefaultProducerBatchTimeout = 5 * time.Millisecond
	DefaultProducerRequireAcks  = -1
	DefaultProducerCompression  = "snappy"
	DefaultProducerAsync        = false
)

// Notifier consumer. A new consumer group starts from the oldest offset so no booking
// notification is skipped; redelivery is harmless because notifications are deduplicated
// per event and recipient.
const (
	EnvKafkaConsumerStartOffset       = "KAFKA_CONSUMER_START_OFFSET"
	EnvKafkaConsumerMinBytes          = "KAFKA_CONSUMER_MIN_BYTES"
	EnvKafkaConsumerMaxBytes          = "KAFKA_CONSUMER_MAX_BYTES"
	EnvKafkaConsumerMaxWait           = "KAFKA_CONSUMER_MAX_WAIT"
	EnvKafkaConsumerCommitInterval    = "KAFKA_CONSUMER_COMMIT_INTERVAL"
	EnvKafkaConsumerHeartbeatInterval = "KAFKA_CONSUMER_HEARTBEAT_INTERVAL"
	EnvKafkaConsumerSessionTimeout    = "KAFKA_CONSUMER_SESSION_TIMEOUT"
	EnvKafkaConsumerRebalanceTimeout  = "KAFKA_CONSUMER_REBALANCE_TIMEOUT"
	EnvKafkaConsumerMaxRetries        = "KAFKA_CONSUMER_MAX_RETRIES"
	EnvKafkaConsumerRetryBackoff      = "KAFKA_CONSUMER_RETRY_BACKOFF"

	DefaultConsumerStartOffset       = -2
	DefaultConsumerMinBytes          = 1
	DefaultConsumerMaxBytes          = 1 << 20
	DefaultConsumerMaxWait           = 250 * time.Millisecond
	DefaultConsumerCommitInterval    = time.Second
	DefaultConsumerHeartbeatInterval = 3 * time.Second
	DefaultConsumerSessionTimeout    = 10 * time.Second
	DefaultConsumerRebalanceTimeout  = 30 * time.Second
	DefaultConsumerMaxRetries        = 5
	DefaultConsumerRetryBackoff      = time.Second
)
