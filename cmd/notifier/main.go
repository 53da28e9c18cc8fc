package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/events"
	"github.com/example/storefront/internal/logger"
	"github.com/example/storefront/internal/mailer"
)

// The notifier consumes order events and mails the customer.
func main() {
	if os.Getenv("GIN_MODE") != "release" {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file loaded:", err)
		}
	}

	appConfig, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to load application configuration: %v", err)
	}
	zapLogger, err := logger.New(appConfig.LogFormat)
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to initialize Zap logger: %v", err)
	}
	defer zapLogger.Sync() //nolint:errcheck

	if appConfig.RabbitMQURL == "" {
		zapLogger.Fatal("RABBITMQ_URL must be set for the notifier")
	}
	if !appConfig.MailEnabled() {
		zapLogger.Fatal("SMTP_HOST and MAIL_FROM must be set for the notifier")
	}

	m := mailer.New(mailer.Config{
		Host: appConfig.SMTPHost,
		Port: appConfig.SMTPPort,
		User: appConfig.SMTPUser,
		Pass: appConfig.SMTPPass,
		From: appConfig.MailFrom,
	}, zapLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zapLogger.Info("Notifier waiting for order events", zap.String("queue", appConfig.OrderEventsQueue))
	err = events.Consume(ctx, events.NewRabbitMQConfig{
		URL:   appConfig.RabbitMQURL,
		Queue: appConfig.OrderEventsQueue,
	}, m.Notify, zapLogger)
	if err != nil && ctx.Err() == nil {
		zapLogger.Fatal("Order event consumer stopped", zap.Error(err))
	}
	zapLogger.Info("Notifier exiting gracefully.")
}
