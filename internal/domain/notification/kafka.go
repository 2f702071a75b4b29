package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Publisher fans emitted notifications out to other consumers.
type Publisher interface {
	Publish(ctx context.Context, n *Notification) error
}

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
	// Logger receives delivery failures, which surface after Publish returns.
	Logger zerolog.Logger
}

// KafkaPublisher writes each notification as JSON keyed by report so one
// report's notifications land on one partition in order.
type KafkaPublisher struct {
	writer kafkaWriter
	topic  string
}

func NewKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	brokers := make([]string, 0, len(cfg.Brokers))
	for _, b := range cfg.Brokers {
		if trimmed := strings.TrimSpace(b); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers required")
	}
	topic := strings.TrimSpace(cfg.Topic)
	if topic == "" {
		return nil, fmt.Errorf("kafka topic required")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
		Async:        true,
		Completion:   logDeliveryFailures(cfg.Logger.With().Str("component", "notification").Str("topic", topic).Logger()),
	}
	return &KafkaPublisher{writer: w, topic: topic}, nil
}

// logDeliveryFailures is the async writer's completion callback.
func logDeliveryFailures(logger zerolog.Logger) func([]kafka.Message, error) {
	return func(msgs []kafka.Message, err error) {
		if err == nil {
			return
		}
		keys := make([]string, 0, len(msgs))
		for _, m := range msgs {
			keys = append(keys, string(m.Key))
		}
		logger.Warn().Err(err).Strs("keys", keys).Msg("notification delivery failed")
	}
}

// Publish enqueues n and returns without waiting for the broker.
func (p *KafkaPublisher) Publish(ctx context.Context, n *Notification) error {
	if p == nil || p.writer == nil {
		return fmt.Errorf("kafka publisher not initialized")
	}
	value, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(n.ReportOrigin + ":" + n.ReportID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(n.Type)},
		},
		Time: n.CreatedAt,
	})
}

func (p *KafkaPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
