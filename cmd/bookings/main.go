package main

import (
	"context"

	availabilityhandler "tutorbook/internal/availability/handler"
	availabilityrepo "tutorbook/internal/availability/repository"
	availabilityservice "tutorbook/internal/availability/service"
	availabilityvalidator "tutorbook/internal/availability/validator"
	"tutorbook/internal/bookings/handler"
	"tutorbook/internal/bookings/repository"
	"tutorbook/internal/bookings/service"
	"tutorbook/internal/bookings/validator"
	"tutorbook/internal/notifications/reminder"
	"tutorbook/pkg/app"
	"tutorbook/pkg/config"
	"tutorbook/pkg/contracts"
	"tutorbook/pkg/kafka"
	kafka_config "tutorbook/pkg/kafka/config"
	kafka_middleware "tutorbook/pkg/kafka/middleware"
	"tutorbook/pkg/metrics"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Bookings service")
	m := metrics.New(ServiceName)
	serverApp := app.NewApplication(cfg, m)

	events := initEventPublisher(cfg, m, serverApp)
	availabilityService, bookingService := initServices(cfg, events, m)

	serverApp.SetApp(contracts.Handlers{
		availabilityhandler.NewTeacherHandler(availabilityService, cfg.Log),
		handler.NewBookingHandler(bookingService, cfg.Log),
		handler.NewAnalyticsHandler(bookingService, cfg.Log),
	})
	serverApp.OnShutdown(func(ctx context.Context) error {
		cfg.Log.Info("Waiting for in-flight booking side effects")
		done := make(chan struct{})
		go func() {
			bookingService.Drain()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	serverApp.Run()
}

// initEventPublisher falls back to a no-op publisher when Kafka is not usable; bookings
// never fail because notifications cannot be sent.
func initEventPublisher(cfg *config.Config, m *metrics.Metrics, serverApp *app.Application) service.EventPublisher {
	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Warn("Kafka configuration invalid, booking events disabled", "error", err)
		return service.NewNoopEventPublisher()
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.BookingEventsTopic, cfg.BookingEventsDLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Warn("Kafka producer unavailable, booking events disabled", "error", err)
		return service.NewNoopEventPublisher()
	}
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		producer.Use(kafka_middleware.MetricsProducerMiddleware(m))
	}

	// Registered first so it closes after Drain has flushed pending publishes.
	serverApp.OnShutdown(func(context.Context) error {
		return producer.Close()
	})

	cfg.Log.Info("Booking events publisher initialized", "topic", cfg.BookingEventsTopic)
	return service.NewKafkaEventPublisher(producer)
}

func initServices(cfg *config.Config, events service.EventPublisher, m *metrics.Metrics) (availabilityservice.AvailabilityService, service.BookingService) {
	bookingRepo := repository.NewMongoBookingRepository(cfg)
	lockRepo := repository.NewBookingLockRepository(cfg)
	reminders := reminder.NewMongoRepository(cfg)

	availabilityService := availabilityservice.NewAvailabilityService(
		availabilityrepo.NewMongoTeacherRepository(cfg),
		bookingRepo,
		availabilityvalidator.NewTeacherValidator(cfg.Log),
		cfg,
	)

	bookingService := service.NewBookingService(
		bookingRepo,
		lockRepo,
		availabilityService,
		events,
		reminders,
		m,
		validator.NewBookingValidator(cfg.Log),
		cfg,
	)

	cfg.Log.Info("Booking services initialized", "database", cfg.MongoDatabaseName)
	return availabilityService, bookingService
}
