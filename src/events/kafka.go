package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"meme-market/src/interfaces"
	"meme-market/src/logger"
	"meme-market/src/models"
)

var _ interfaces.ITradePublisher = (*KafkaPublisher)(nil)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes each trade to a topic keyed by stock name, so all
// trades of one stock land on the same partition in order.
type KafkaPublisher struct {
	Topic  string
	Logger *logger.Logger

	writer messageWriter
}

// -----------------------------------------------------------------------------

func NewKafkaPublisher(cfg *models.MConfig, log *logger.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Events.KafkaBrokers...),
		Topic:        cfg.Events.KafkaTopic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Warning("Kafka delivery of %d trades failed: %v", len(messages), err)
			}
		},
	}
	log.Info("Kafka publisher on %s topic %s", strings.Join(cfg.Events.KafkaBrokers, ","), cfg.Events.KafkaTopic)
	return &KafkaPublisher{Topic: cfg.Events.KafkaTopic, Logger: log, writer: writer}
}

// -----------------------------------------------------------------------------

func (p *KafkaPublisher) Publish(ctx context.Context, txn models.MTransaction) error {
	payload, err := json.Marshal(txn)
	if err != nil {
		return fmt.Errorf("encode trade: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(txn.StockName),
		Value: payload,
		Time:  txn.Time,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

// Close flushes buffered messages.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
