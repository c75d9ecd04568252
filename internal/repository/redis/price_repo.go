package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yourorg/stocksim/internal/domain"
)

// lastPriceTTL bounds how stale a cached price can get if the ticker stops.
const lastPriceTTL = 60 * time.Second

// PriceRepo caches the last simulated price per symbol and fans ticks out
// over pubsub for the websocket hub.
type PriceRepo struct {
	client *redis.Client
}

func NewPriceRepo(client *redis.Client) *PriceRepo {
	return &PriceRepo{client: client}
}

func channelFor(symbol string) string { return "prices." + symbol }
func keyFor(symbol string) string     { return "last_price:" + symbol }

func (r *PriceRepo) Publish(ctx context.Context, tick domain.PriceTick) error {
	data, err := json.Marshal(tick)
	if err != nil {
		return err
	}
	pipe := r.client.Pipeline()
	pipe.Publish(ctx, channelFor(tick.Symbol), data)
	pipe.Set(ctx, keyFor(tick.Symbol), data, lastPriceTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// GetLastPrice returns nil with no error when no tick has been cached yet.
func (r *PriceRepo) GetLastPrice(ctx context.Context, symbol string) (*domain.PriceTick, error) {
	val, err := r.client.Get(ctx, keyFor(symbol)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get last price: %w", err)
	}
	var tick domain.PriceTick
	if err := json.Unmarshal([]byte(val), &tick); err != nil {
		return nil, err
	}
	return &tick, nil
}

func (r *PriceRepo) Subscribe(ctx context.Context, symbol string) *redis.PubSub {
	return r.client.Subscribe(ctx, channelFor(symbol))
}
