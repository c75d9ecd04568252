package marketdata

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/yourorg/stocksim/internal/domain"
)

// PriceCache is the shared last-price store and pubsub channel (redis in
// production).
type PriceCache interface {
	Publish(ctx context.Context, tick domain.PriceTick) error
	GetLastPrice(ctx context.Context, symbol string) (*domain.PriceTick, error)
}

// Ticker simulates a live market: it random-walks a price per known symbol,
// seeded from the latest stored daily close, and publishes ticks to the
// price cache. It also serves as the current-market-price collaborator for
// the live portfolio view.
type Ticker struct {
	cache    PriceCache
	daily    domain.DailyPriceRepository
	logger   *slog.Logger
	interval time.Duration
	rng      *rand.Rand

	mu   sync.Mutex
	last map[string]float64
}

func NewTicker(cache PriceCache, daily domain.DailyPriceRepository, interval time.Duration, logger *slog.Logger) *Ticker {
	return &Ticker{
		cache:    cache,
		daily:    daily,
		logger:   logger,
		interval: interval,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		last:     make(map[string]float64),
	}
}

func (t *Ticker) Run(ctx context.Context) {
	if err := t.seed(ctx); err != nil {
		t.logger.Error("price ticker seed failed", "err", err)
	}
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.step(ctx)
		}
	}
}

func (t *Ticker) seed(ctx context.Context) error {
	closes, err := t.daily.LatestClose(ctx)
	if err != nil {
		return err
	}
	t.mu.Lock()
	for sym, price := range closes {
		t.last[sym] = price
	}
	t.mu.Unlock()
	return nil
}

// step advances every symbol by a bounded random drift and publishes the
// resulting ticks.
func (t *Ticker) step(ctx context.Context) {
	now := time.Now()

	t.mu.Lock()
	ticks := make([]domain.PriceTick, 0, len(t.last))
	for sym, price := range t.last {
		// Drift within +-0.5% per step, never through zero.
		next := price * (1 + (t.rng.Float64()-0.5)/100)
		if next < 0.01 {
			next = 0.01
		}
		t.last[sym] = next
		ticks = append(ticks, domain.PriceTick{Symbol: sym, Price: round2(next), Timestamp: now})
	}
	t.mu.Unlock()

	for _, tick := range ticks {
		if err := t.cache.Publish(ctx, tick); err != nil {
			t.logger.Error("publish price tick", "symbol", tick.Symbol, "err", err)
		}
	}
}

// LastPrice resolves the current market price for a symbol: the cached tick
// if one exists, then the ticker's own walk state, then a synthesized quote
// for symbols with no stored data. It never fails: the market simulation
// always has an answer.
func (t *Ticker) LastPrice(ctx context.Context, symbol string) (float64, error) {
	tick, err := t.cache.GetLastPrice(ctx, symbol)
	if err != nil {
		t.logger.Warn("price cache read failed", "symbol", symbol, "err", err)
	} else if tick != nil {
		return tick.Price, nil
	}

	t.mu.Lock()
	price, ok := t.last[symbol]
	t.mu.Unlock()
	if ok {
		return round2(price), nil
	}
	return mockQuote(symbol).Price, nil
}
