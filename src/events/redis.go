package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"meme-market/src/interfaces"
	"meme-market/src/logger"
	"meme-market/src/models"
)

var _ interfaces.ITradePublisher = (*RedisPublisher)(nil)

// RedisPublisher publishes each trade on the channel <prefix><stock name>.
type RedisPublisher struct {
	Client *redis.Client
	Prefix string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewRedisPublisher(cfg *models.MConfig, log *logger.Logger) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Events.RedisAddr,
		Password: cfg.Events.RedisPassword,
	})
	return &RedisPublisher{Client: client, Prefix: cfg.Events.RedisPrefix, Logger: log}
}

// -----------------------------------------------------------------------------

// Ping checks the connection at start-up.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.Client.Ping(ctx).Err()
}

func (p *RedisPublisher) Channel(stock string) string {
	return p.Prefix + stock
}

func (p *RedisPublisher) Publish(ctx context.Context, txn models.MTransaction) error {
	payload, err := json.Marshal(txn)
	if err != nil {
		return fmt.Errorf("encode trade: %w", err)
	}
	if err := p.Client.Publish(ctx, p.Channel(txn.StockName), payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.Client.Close()
}
