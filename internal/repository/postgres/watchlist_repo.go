package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/yourorg/stocksim/internal/domain"
)

type WatchlistRepo struct {
	db *sqlx.DB
}

func NewWatchlistRepo(db *sqlx.DB) *WatchlistRepo {
	return &WatchlistRepo{db: db}
}

func (r *WatchlistRepo) List(ctx context.Context, userID uuid.UUID) ([]domain.WatchlistItem, error) {
	items := []domain.WatchlistItem{}
	err := r.db.SelectContext(ctx, &items,
		`SELECT * FROM watchlist_items WHERE user_id = $1 ORDER BY added_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list watchlist: %w", err)
	}
	return items, nil
}

func (r *WatchlistRepo) Add(ctx context.Context, item *domain.WatchlistItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	query := `
		INSERT INTO watchlist_items (id, user_id, symbol)
		VALUES ($1, $2, $3)
		RETURNING added_at`
	err := r.db.QueryRowContext(ctx, query, item.ID, item.UserID, item.Symbol).
		Scan(&item.AddedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("add to watchlist: %w", err)
	}
	return nil
}

func (r *WatchlistRepo) Remove(ctx context.Context, userID uuid.UUID, symbol string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM watchlist_items WHERE user_id = $1 AND symbol = $2`,
		userID, symbol)
	if err != nil {
		return fmt.Errorf("remove from watchlist: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
