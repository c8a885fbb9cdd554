package main

import (
	"context"

	bookingsrepository "tutorbook/internal/bookings/repository"
	"tutorbook/internal/notifications/handler"
	"tutorbook/internal/notifications/realtime"
	"tutorbook/internal/notifications/reminder"
	"tutorbook/internal/notifications/repository"
	"tutorbook/internal/notifications/service"
	"tutorbook/pkg/app"
	"tutorbook/pkg/config"
	"tutorbook/pkg/email"
	"tutorbook/pkg/kafka"
	kafka_config "tutorbook/pkg/kafka/config"
	kafka_middleware "tutorbook/pkg/kafka/middleware"
	"tutorbook/pkg/metrics"
)

const (
	ServiceName = "notifier"

	// streamBuffer is the per-stream backlog before pushes to a slow client are dropped.
	streamBuffer = 16
)

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Notifier service")
	m := metrics.New(ServiceName)
	serverApp := app.NewApplication(cfg, m)

	notificationRepo := repository.NewMongoNotificationRepository(cfg)
	sessions := realtime.NewInMemoryRegistry(streamBuffer)
	dispatcher := service.NewDispatcher(
		notificationRepo,
		repository.NewMongoContactDirectory(cfg),
		sessions,
		initEmailSender(cfg),
		m,
		cfg.Log,
	)

	initConsumer(cfg, m, dispatcher, serverApp)

	sweeper := reminder.NewSweeper(
		reminder.NewMongoRepository(cfg),
		bookingsrepository.NewMongoBookingRepository(cfg),
		dispatcher.Dispatch,
		cfg.ReminderSweepInterval,
		m,
		cfg.Log,
	)
	serverApp.AddWorker("reminder-sweeper", sweeper.Run)

	notificationService := service.NewNotificationService(notificationRepo, sessions, cfg.Log)
	serverApp.SetApp(handler.NewNotificationHandler(notificationService, handler.DefaultHeartbeat, cfg.Log))
	serverApp.Run()
}

func initEmailSender(cfg *config.Config) email.Sender {
	if !cfg.EmailEnabled() {
		cfg.Log.Info("SendGrid not configured, emails will be logged only")
		return email.NewLogSender(cfg.Log)
	}
	cfg.Log.Info("Email delivery via SendGrid", "from", cfg.EmailFromAddr)
	return email.NewSendGridSender(cfg.SendGridAPIKey, cfg.EmailFromName, cfg.EmailFromAddr)
}

func initConsumer(cfg *config.Config, m *metrics.Metrics, dispatcher *service.Dispatcher, serverApp *app.Application) {
	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	consumer, err := kafka.NewConsumer(
		kafkaCfg,
		cfg.BookingEventsTopic,
		cfg.NotifierGroupID,
		cfg.BookingEventsDLQTopic,
		dispatcher.HandleMessage,
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
		consumer.Use(kafka_middleware.MetricsConsumerMiddleware(m))
	}

	serverApp.AddWorker("booking-events-consumer", consumer.Start)
	serverApp.OnShutdown(func(context.Context) error {
		return consumer.Close()
	})
	cfg.Log.Info("Booking events consumer initialized",
		"topic", cfg.BookingEventsTopic,
		"group_id", cfg.NotifierGroupID,
	)
}
