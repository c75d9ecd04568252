package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type OrderType string

const (
	OrderBuy  OrderType = "BUY"
	OrderSell OrderType = "SELL"
)

// User is an account holder. AvailableBalance is virtual cash; it is only
// mutated through UserRepository.ApplyBalanceDelta.
type User struct {
	ID               uuid.UUID `db:"id"                json:"id"`
	Name             string    `db:"name"              json:"name"`
	Email            string    `db:"email"             json:"email"`
	PasswordHash     string    `db:"password_hash"     json:"-"`
	AvailableBalance float64   `db:"available_balance" json:"available_balance"`
	CreatedAt        time.Time `db:"created_at"        json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"        json:"updated_at"`
}

// Order is one executed trade. Orders are append-only: created exactly once,
// never updated or deleted. TotalAmount is fixed at creation as
// Quantity * Price.
type Order struct {
	ID          uuid.UUID `db:"id"           json:"id"`
	UserID      uuid.UUID `db:"user_id"      json:"user_id"`
	Symbol      string    `db:"symbol"       json:"symbol"`
	Quantity    int64     `db:"quantity"     json:"quantity"`
	Price       float64   `db:"price"        json:"price"`
	TotalAmount float64   `db:"total_amount" json:"total_amount"`
	OrderType   OrderType `db:"order_type"   json:"order_type"`
	CreatedAt   time.Time `db:"created_at"   json:"created_at"`
}

// Achievement is a badge unlocked on an XP profile.
type Achievement struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	UnlockedAt  time.Time `json:"unlocked_at"`
}

// AchievementList is stored as a jsonb column.
type AchievementList []Achievement

func (a AchievementList) Value() (driver.Value, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a)
}

func (a *AchievementList) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	case nil:
		*a = nil
		return nil
	}
	return fmt.Errorf("cannot scan %T into AchievementList", src)
}

// XPHistory is an append-only log of XP events, stored as jsonb.
type XPHistory []string

func (h XPHistory) Value() (driver.Value, error) {
	if h == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(h)
}

func (h *XPHistory) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, h)
	case string:
		return json.Unmarshal([]byte(v), h)
	case nil:
		*h = nil
		return nil
	}
	return fmt.Errorf("cannot scan %T into XPHistory", src)
}

// XPProfile tracks a user's engagement points, streaks and badges.
type XPProfile struct {
	UserID           uuid.UUID       `db:"user_id"           json:"user_id"`
	XPPoints         int64           `db:"xp_points"         json:"xp_points"`
	Level            int             `db:"level"             json:"level"`
	LoginStreak      int             `db:"login_streak"      json:"login_streak"`
	LastLoginDate    *time.Time      `db:"last_login_date"   json:"last_login_date,omitempty"`
	TotalTrades      int64           `db:"total_trades"      json:"total_trades"`
	ProfitableTrades int64           `db:"profitable_trades" json:"profitable_trades"`
	Achievements     AchievementList `db:"achievements"      json:"achievements"`
	History          XPHistory       `db:"history"           json:"history"`
	CreatedAt        time.Time       `db:"created_at"        json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"        json:"updated_at"`
}

// WatchlistItem is one symbol a user follows.
type WatchlistItem struct {
	ID      uuid.UUID `db:"id"       json:"id"`
	UserID  uuid.UUID `db:"user_id"  json:"user_id"`
	Symbol  string    `db:"symbol"   json:"symbol"`
	AddedAt time.Time `db:"added_at" json:"added_at"`
}

// DailyPrice is one stored OHLCV bar, the seed data for chart simulation and
// the price ticker.
type DailyPrice struct {
	ID     int64     `db:"id"     json:"id"`
	Symbol string    `db:"symbol" json:"symbol"`
	Day    time.Time `db:"day"    json:"day"`
	Open   float64   `db:"open"   json:"open"`
	High   float64   `db:"high"   json:"high"`
	Low    float64   `db:"low"    json:"low"`
	Close  float64   `db:"close"  json:"close"`
	Volume int64     `db:"volume" json:"volume"`
}

// PriceTick is a simulated market trade published to the price channel.
type PriceTick struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// Quote is a point-in-time market snapshot for watchlist display.
type Quote struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Open          float64 `json:"open"`
	PreviousClose float64 `json:"previous_close"`
	Volume        int64   `json:"volume"`
}

// ErrNotFound is returned by repositories when the requested row does not
// exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned by repositories when an insert violates a
// uniqueness constraint.
var ErrDuplicate = errors.New("already exists")
