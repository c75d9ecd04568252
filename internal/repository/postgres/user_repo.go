package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/yourorg/stocksim/internal/domain"
)

type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	query := `
		INSERT INTO users (id, name, email, password_hash, available_balance)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		u.ID, u.Name, u.Email, u.PasswordHash, u.AvailableBalance).
		Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	err := r.db.GetContext(ctx, &u, `SELECT * FROM users WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.db.GetContext(ctx, &u, `SELECT * FROM users WHERE email = $1`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &u, nil
}

// ApplyBalanceDelta is the single balance mutator. The WHERE clause makes
// the update conditional, so two concurrent debits can never both succeed
// past zero: the database serializes them on the row.
func (r *UserRepo) ApplyBalanceDelta(ctx context.Context, id uuid.UUID, delta float64) (float64, error) {
	var balance float64
	err := r.db.QueryRowContext(ctx, `
		UPDATE users
		SET available_balance = available_balance + $1, updated_at = NOW()
		WHERE id = $2 AND available_balance + $1 >= 0
		RETURNING available_balance`,
		delta, id).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("apply balance delta: %w", err)
	}

	// No row updated: either the user does not exist or the balance would
	// have gone negative.
	var exists bool
	if checkErr := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id); checkErr != nil {
		return 0, fmt.Errorf("apply balance delta: %w", checkErr)
	}
	if !exists {
		return 0, domain.ErrNotFound
	}
	return 0, domain.ErrInsufficientBalance
}
