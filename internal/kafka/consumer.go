package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/kafka-go"

	"techsymposium/internal/logger"
	"techsymposium/internal/models"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const (
	defaultRetryBackoff = time.Second
	maxRetryBackoff     = 30 * time.Second
)

// RegistrationHandler processes one event. A returned error makes the
// consumer retry the same message; later offsets wait behind it.
type RegistrationHandler func(ctx context.Context, evt models.RegistrationCreatedEvent) error

type Consumer struct {
	reader       messageReader
	logger       *logger.Logger
	topic        string
	retryBackoff time.Duration
}

// NewConsumer creates a new Kafka consumer for the given topic and group
func NewConsumer(brokers []string, topic, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
		MaxWait:  500 * time.Millisecond,
	})
	return &Consumer{reader: reader, logger: log, topic: topic, retryBackoff: defaultRetryBackoff}
}

// Start consumes until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context, handle RegistrationHandler) error {
	c.logger.LogKafka("CONSUME", c.topic, "consumer started")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			if errors.Is(err, io.EOF) {
				return errors.New("kafka reader closed")
			}
			c.logger.Error("KAFKA", fmt.Sprintf("Error reading message: %v", err))
			continue
		}

		evt, err := DecodeRegistrationCreated(msg)
		if err != nil {
			// A poison message would block the partition; skip it.
			c.logger.Warn("KAFKA", fmt.Sprintf("Skipping undecodable message at offset %d: %v", msg.Offset, err))
			c.commit(ctx, msg)
			continue
		}

		if !c.process(ctx, evt, handle) {
			return nil
		}
		c.commit(ctx, msg)
	}
}

// process retries handle with doubling backoff until it succeeds. It
// returns false only when ctx is cancelled first, leaving the offset
// uncommitted for the next group member.
func (c *Consumer) process(ctx context.Context, evt models.RegistrationCreatedEvent, handle RegistrationHandler) bool {
	delay := c.retryBackoff
	for attempt := 1; ; attempt++ {
		err := handle(ctx, evt)
		if err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		c.logger.Error("KAFKA", fmt.Sprintf("Handler failed for registration %s (attempt %d), retrying in %s: %v", evt.RegistrationID, attempt, delay, err))

		select {
		case <-ctx.Done():
			return false
		case <-time.After(delay):
		}
		if delay *= 2; delay > maxRetryBackoff {
			delay = maxRetryBackoff
		}
	}
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Error("KAFKA", fmt.Sprintf("Failed to commit offset %d: %v", msg.Offset, err))
	}
}

func DecodeRegistrationCreated(msg kafka.Message) (models.RegistrationCreatedEvent, error) {
	var evt models.RegistrationCreatedEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		return evt, err
	}
	if evt.RegistrationID == "" || evt.Email == "" {
		return evt, errors.New("registration_id and email are required")
	}
	return evt, nil
}

// Close gracefully shuts down the Kafka reader
func (c *Consumer) Close() error {
	return c.reader.Close()
}
