package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"techsymposium/internal/config"
	"techsymposium/internal/logger"
	"techsymposium/internal/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer messageWriter
	topics config.TopicConfig
	logger *logger.Logger
}

func NewProducer(brokers []string, topics config.TopicConfig, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &Producer{writer: writer, topics: topics, logger: log}
}

// Publish writes one keyed message; the key keeps a registration's events ordered.
func (p *Producer) Publish(ctx context.Context, topic, key string, value []byte) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Time:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	p.logger.LogKafka("PUBLISH", topic, key)
	return nil
}

// PublishRegistrationCreated streams a committed registration to Kafka
func (p *Producer) PublishRegistrationCreated(ctx context.Context, evt models.RegistrationCreatedEvent) error {
	msgBytes, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return p.Publish(ctx, p.topics.RegistrationCreated, evt.RegistrationID, msgBytes)
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
