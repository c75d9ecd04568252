package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrInsufficientBalance is returned by ApplyBalanceDelta when the delta
// would drive the balance below zero. The update is conditional at the
// storage layer so concurrent debits against the same user cannot both pass.
var ErrInsufficientBalance = errors.New("insufficient balance")

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	// ApplyBalanceDelta atomically adds delta to the user's available
	// balance, failing with ErrInsufficientBalance if the result would be
	// negative. Returns the balance after the update.
	ApplyBalanceDelta(ctx context.Context, id uuid.UUID, delta float64) (float64, error)
}

type OrderRepository interface {
	Create(ctx context.Context, o *Order) error
	// FindByUser returns the user's full order history, newest first.
	FindByUser(ctx context.Context, userID uuid.UUID) ([]Order, error)
	// FindByUserAndSymbol returns the user's order history for one symbol.
	FindByUserAndSymbol(ctx context.Context, userID uuid.UUID, symbol string) ([]Order, error)
}

type XPRepository interface {
	// GetOrCreate returns the user's XP profile, creating an empty one on
	// first use.
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*XPProfile, error)
	Save(ctx context.Context, p *XPProfile) error
	// Top returns the highest-XP profiles with user names resolved.
	Top(ctx context.Context, limit int) ([]LeaderboardEntry, error)
	// RankOf returns the 1-based leaderboard position of a user.
	RankOf(ctx context.Context, userID uuid.UUID) (int, error)
}

// LeaderboardEntry is an XP profile joined with its owner's name.
type LeaderboardEntry struct {
	UserID       uuid.UUID `db:"user_id"`
	Name         string    `db:"name"`
	XPPoints     int64     `db:"xp_points"`
	Level        int       `db:"level"`
	Achievements int       `db:"achievement_count"`
}

type WatchlistRepository interface {
	List(ctx context.Context, userID uuid.UUID) ([]WatchlistItem, error)
	Add(ctx context.Context, item *WatchlistItem) error
	// Remove reports ErrNotFound when the symbol was not on the list.
	Remove(ctx context.Context, userID uuid.UUID, symbol string) error
}

type DailyPriceRepository interface {
	// History returns stored daily bars for a symbol, oldest first.
	History(ctx context.Context, symbol string) ([]DailyPrice, error)
	// LatestClose returns the most recent closing price per known symbol.
	LatestClose(ctx context.Context) (map[string]float64, error)
	Insert(ctx context.Context, bar *DailyPrice) error
	LatestDay(ctx context.Context, symbol string) (time.Time, error)
}
