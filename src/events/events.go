package events

import (
	"context"
	"fmt"

	"meme-market/src/logger"
	"meme-market/src/models"
)

// NewPublishers registers the broker publishers enabled in the config.
// Brokers left unset are skipped.
func NewPublishers(ctx context.Context, cfg *models.MConfig, log *logger.Logger) (*MultiPublisher, error) {
	multi := NewMultiPublisher(log.Named("events"))

	if cfg.Events.RedisAddr != "" {
		rp := NewRedisPublisher(cfg, log.Named("redis"))
		if err := rp.Ping(ctx); err != nil {
			rp.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Events.RedisAddr, err)
		}
		multi.Add("redis", rp)
	}

	if len(cfg.Events.KafkaBrokers) > 0 {
		multi.Add("kafka", NewKafkaPublisher(cfg, log.Named("kafka")))
	}

	return multi, nil
}
