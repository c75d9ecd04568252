package main

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/yourorg/stocksim/internal/domain"
	pgRepo "github.com/yourorg/stocksim/internal/repository/postgres"
)

// Symbols to seed daily bars for, with a rough starting price each.
var seedStocks = map[string]float64{
	"RELIANCE.BSE":   2850,
	"TCS.BSE":        3900,
	"HDFCBANK.BSE":   1650,
	"ICICIBANK.BSE":  1150,
	"SBIN.BSE":       820,
	"INFY.BSE":       1700,
	"WIPRO.BSE":      520,
	"BHARTIARTL.BSE": 1450,
}

const seedDays = 30

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	ctx := context.Background()

	db, err := pgRepo.Connect(os.Getenv("DATABASE_URL"))
	if err != nil {
		logger.Error("failed to connect to database", "err", err)
		os.Exit(1)
	}
	if err := pgRepo.RunMigrations(os.Getenv("DATABASE_URL"), "migrations"); err != nil {
		logger.Error("failed to run migrations", "err", err)
		os.Exit(1)
	}

	daily := pgRepo.NewDailyPriceRepo(db)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	today := time.Now().UTC().Truncate(24 * time.Hour)
	start := today.AddDate(0, 0, -seedDays)

	for symbol, basePrice := range seedStocks {
		from := start
		if last, err := daily.LatestDay(ctx, symbol); err == nil {
			if !last.Before(today) {
				logger.Info("symbol already up to date", "symbol", symbol)
				continue
			}
			from = last.AddDate(0, 0, 1)
		} else if !errors.Is(err, domain.ErrNotFound) {
			logger.Error("failed to read latest day", "symbol", symbol, "err", err)
			os.Exit(1)
		}

		inserted := 0
		prevClose := basePrice
		for day := from; !day.After(today); day = day.AddDate(0, 0, 1) {
			bar := nextBar(rng, symbol, day, prevClose)
			if err := daily.Insert(ctx, bar); err != nil {
				logger.Error("failed to insert bar", "symbol", symbol, "day", day, "err", err)
				os.Exit(1)
			}
			prevClose = bar.Close
			inserted++
		}
		logger.Info("seeded symbol", "symbol", symbol, "bars", inserted)
	}

	logger.Info("seed complete")
}

// nextBar random-walks one daily OHLC bar off the previous close: open gaps
// up to 0.5% from it, close drifts up to 2%, and high/low pad the range.
func nextBar(rng *rand.Rand, symbol string, day time.Time, prevClose float64) *domain.DailyPrice {
	open := prevClose * (1 + (rng.Float64()-0.5)*0.01)
	closing := open * (1 + (rng.Float64()-0.5)*0.04)
	high := math.Max(open, closing) * (1 + rng.Float64()*0.01)
	low := math.Min(open, closing) * (1 - rng.Float64()*0.01)
	return &domain.DailyPrice{
		Symbol: symbol,
		Day:    day,
		Open:   round2(open),
		High:   round2(high),
		Low:    round2(low),
		Close:  round2(closing),
		Volume: 100000 + rng.Int63n(900000),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
