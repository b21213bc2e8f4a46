// Command notifier consumes registration events and mails confirmations.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"techsymposium/internal/config"
	"techsymposium/internal/kafka"
	"techsymposium/internal/logger"
	"techsymposium/internal/notify"
)

func main() {
	logger := logger.NewLogger("notifier")
	defer logger.Close()

	if err := godotenv.Load(); err != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	}
	cfg := config.Load()
	if !cfg.Kafka.Enabled {
		logger.Fatal("CONFIG", "KAFKA_ENABLED is false, nothing to consume")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	topic := cfg.Kafka.Topics.RegistrationCreated
	if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, []string{topic}, logger); err != nil {
		logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
	}

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, topic, cfg.Kafka.GroupID, logger)
	mailer := notify.NewMailer(cfg.Email, logger)

	logger.Info("APP", fmt.Sprintf("🚀 Notifier consuming %s as %s", topic, cfg.Kafka.GroupID))
	err := consumer.Start(ctx, mailer.SendConfirmation)
	if cerr := consumer.Close(); cerr != nil {
		logger.Error("KAFKA", fmt.Sprintf("Failed to close consumer: %v", cerr))
	}
	if err != nil {
		logger.Error("KAFKA", fmt.Sprintf("Consumer stopped: %v", err))
		os.Exit(1)
	}
	logger.Info("APP", "✅ Notifier shutdown complete")
}
