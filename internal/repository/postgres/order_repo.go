package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/yourorg/stocksim/internal/domain"
)

type OrderRepo struct {
	db *sqlx.DB
}

func NewOrderRepo(db *sqlx.DB) *OrderRepo {
	return &OrderRepo{db: db}
}

// Create appends an order. Orders are immutable once written; there is no
// update or delete path.
func (r *OrderRepo) Create(ctx context.Context, o *domain.Order) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	query := `
		INSERT INTO orders (id, user_id, symbol, quantity, price, total_amount, order_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`
	return r.db.QueryRowContext(ctx, query,
		o.ID, o.UserID, o.Symbol, o.Quantity, o.Price, o.TotalAmount, o.OrderType).
		Scan(&o.CreatedAt)
}

func (r *OrderRepo) FindByUser(ctx context.Context, userID uuid.UUID) ([]domain.Order, error) {
	orders := []domain.Order{}
	err := r.db.SelectContext(ctx, &orders,
		`SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	return orders, nil
}

func (r *OrderRepo) FindByUserAndSymbol(ctx context.Context, userID uuid.UUID, symbol string) ([]domain.Order, error) {
	orders := []domain.Order{}
	err := r.db.SelectContext(ctx, &orders,
		`SELECT * FROM orders WHERE user_id = $1 AND symbol = $2 ORDER BY created_at DESC`,
		userID, symbol)
	if err != nil {
		return nil, fmt.Errorf("find orders for symbol: %w", err)
	}
	return orders, nil
}
