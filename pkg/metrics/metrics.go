package metrics

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry. All methods are safe on a nil receiver so services
// can run without instrumentation in tests.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	bookingOps      *prometheus.CounterVec
	kafkaMessages   *prometheus.CounterVec
	kafkaDuration   *prometheus.HistogramVec
	reminders       *prometheus.CounterVec
	notifications   *prometheus.CounterVec
}

func New(service string) *Metrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": service}

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "http_request_duration_seconds",
		Help:        "Duration of HTTP requests in seconds",
		Buckets:     prometheus.DefBuckets,
		ConstLabels: constLabels,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "http_requests_total",
		Help:        "Total number of HTTP requests",
		ConstLabels: constLabels,
	}, []string{"method", "path", "status"})

	bookingOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "booking_operations_total",
		Help:        "Booking ledger operations by outcome",
		ConstLabels: constLabels,
	}, []string{"operation", "outcome"})

	kafkaMessages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "kafka_messages_total",
		Help:        "Kafka messages produced or consumed by outcome",
		ConstLabels: constLabels,
	}, []string{"direction", "event_type", "outcome"})

	kafkaDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "kafka_message_duration_seconds",
		Help:        "Time spent publishing or handling a Kafka message",
		Buckets:     prometheus.DefBuckets,
		ConstLabels: constLabels,
	}, []string{"direction"})

	reminders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "class_reminders_total",
		Help:        "Class reminders dispatched by outcome",
		ConstLabels: constLabels,
	}, []string{"outcome"})

	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "notifications_delivered_total",
		Help:        "Notification deliveries by channel and outcome",
		ConstLabels: constLabels,
	}, []string{"channel", "outcome"})

	registry.MustRegister(
		requestDuration, requestTotal, bookingOps, kafkaMessages, kafkaDuration, reminders, notifications,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		bookingOps:      bookingOps,
		kafkaMessages:   kafkaMessages,
		kafkaDuration:   kafkaDuration,
		reminders:       reminders,
		notifications:   notifications,
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveHTTPRequest(method, path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	labels := []string{method, NormalizePath(path), strconv.Itoa(status)}
	m.requestDuration.WithLabelValues(labels...).Observe(d.Seconds())
	m.requestTotal.WithLabelValues(labels...).Inc()
}

func (m *Metrics) BookingOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.bookingOps.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) KafkaMessage(direction, eventType, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.kafkaMessages.WithLabelValues(direction, eventType, outcome).Inc()
	m.kafkaDuration.WithLabelValues(direction).Observe(d.Seconds())
}

func (m *Metrics) ReminderDispatched(outcome string) {
	if m == nil {
		return
	}
	m.reminders.WithLabelValues(outcome).Inc()
}

func (m *Metrics) NotificationDelivered(channel, outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(channel, outcome).Inc()
}

var objectIDRegex = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// NormalizePath collapses ids into placeholders to keep label cardinality bounded.
func NormalizePath(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if objectIDRegex.MatchString(p) || (i > 0 && parts[i-1] == "id") {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming handlers working behind the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			m.ObserveHTTPRequest(r.Method, r.URL.Path, rec.status, time.Since(start))
		})
	}
}
