package marketdata

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/yourorg/stocksim/internal/domain"
)

// pointsPerDay is how many simulated intraday prices each stored daily bar
// expands into.
const pointsPerDay = 50

// ChartService turns stored daily bars into simulated intraday series for
// the frontend chart.
type ChartService struct {
	daily domain.DailyPriceRepository

	// rand.Rand is not safe for concurrent use; chart requests arrive in
	// parallel from the HTTP layer.
	mu  sync.Mutex
	rng *rand.Rand
}

func NewChartService(daily domain.DailyPriceRepository, seed int64) *ChartService {
	return &ChartService{daily: daily, rng: rand.New(rand.NewSource(seed))}
}

// SimulatedSeries returns one row per stored day for the symbol, oldest
// first, each row holding pointsPerDay prices drawn uniformly from that
// day's [low, high] band.
func (s *ChartService) SimulatedSeries(ctx context.Context, symbol string) ([][]float64, error) {
	bars, err := s.daily.History(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("load daily bars: %w", err)
	}
	if len(bars) == 0 {
		return nil, domain.ErrNotFound
	}
	series := make([][]float64, 0, len(bars))
	s.mu.Lock()
	for _, bar := range bars {
		series = append(series, simulateDay(s.rng, bar.Low, bar.High, pointsPerDay))
	}
	s.mu.Unlock()
	return series, nil
}

// simulateDay draws count uniform prices from [low, high], rounded to four
// decimal places.
func simulateDay(rng *rand.Rand, low, high float64, count int) []float64 {
	if high < low {
		low, high = high, low
	}
	prices := make([]float64, count)
	for i := range prices {
		v := rng.Float64()*(high-low) + low
		prices[i] = math.Round(v*10000) / 10000
	}
	return prices
}
