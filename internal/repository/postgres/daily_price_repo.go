package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/yourorg/stocksim/internal/domain"
)

type DailyPriceRepo struct {
	db *sqlx.DB
}

func NewDailyPriceRepo(db *sqlx.DB) *DailyPriceRepo {
	return &DailyPriceRepo{db: db}
}

func (r *DailyPriceRepo) History(ctx context.Context, symbol string) ([]domain.DailyPrice, error) {
	bars := []domain.DailyPrice{}
	err := r.db.SelectContext(ctx, &bars,
		`SELECT * FROM daily_prices WHERE symbol = $1 ORDER BY day`, symbol)
	if err != nil {
		return nil, fmt.Errorf("daily price history: %w", err)
	}
	return bars, nil
}

func (r *DailyPriceRepo) LatestClose(ctx context.Context) (map[string]float64, error) {
	rows := []struct {
		Symbol string  `db:"symbol"`
		Close  float64 `db:"close"`
	}{}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT DISTINCT ON (symbol) symbol, close
		FROM daily_prices
		ORDER BY symbol, day DESC`)
	if err != nil {
		return nil, fmt.Errorf("latest closes: %w", err)
	}
	closes := make(map[string]float64, len(rows))
	for _, row := range rows {
		closes[row.Symbol] = row.Close
	}
	return closes, nil
}

func (r *DailyPriceRepo) Insert(ctx context.Context, bar *domain.DailyPrice) error {
	query := `
		INSERT INTO daily_prices (symbol, day, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (symbol, day) DO UPDATE SET
			open = EXCLUDED.open, high = EXCLUDED.high, low = EXCLUDED.low,
			close = EXCLUDED.close, volume = EXCLUDED.volume
		RETURNING id`
	return r.db.QueryRowContext(ctx, query,
		bar.Symbol, bar.Day, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume).
		Scan(&bar.ID)
}

func (r *DailyPriceRepo) LatestDay(ctx context.Context, symbol string) (time.Time, error) {
	var day time.Time
	err := r.db.GetContext(ctx, &day,
		`SELECT day FROM daily_prices WHERE symbol = $1 ORDER BY day DESC LIMIT 1`, symbol)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, domain.ErrNotFound
		}
		return time.Time{}, fmt.Errorf("latest day: %w", err)
	}
	return day, nil
}
