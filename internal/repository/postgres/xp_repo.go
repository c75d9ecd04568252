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

type XPRepo struct {
	db *sqlx.DB
}

func NewXPRepo(db *sqlx.DB) *XPRepo {
	return &XPRepo{db: db}
}

func (r *XPRepo) GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.XPProfile, error) {
	var p domain.XPProfile
	err := r.db.GetContext(ctx, &p, `
		INSERT INTO xp_profiles (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING *`, userID)
	if err != nil {
		return nil, fmt.Errorf("get or create xp profile: %w", err)
	}
	return &p, nil
}

func (r *XPRepo) Save(ctx context.Context, p *domain.XPProfile) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE xp_profiles
		SET xp_points = $1, level = $2, login_streak = $3, last_login_date = $4,
		    total_trades = $5, profitable_trades = $6, achievements = $7,
		    history = $8, updated_at = NOW()
		WHERE user_id = $9`,
		p.XPPoints, p.Level, p.LoginStreak, p.LastLoginDate,
		p.TotalTrades, p.ProfitableTrades, p.Achievements,
		p.History, p.UserID)
	if err != nil {
		return fmt.Errorf("save xp profile: %w", err)
	}
	return nil
}

func (r *XPRepo) Top(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	entries := []domain.LeaderboardEntry{}
	err := r.db.SelectContext(ctx, &entries, `
		SELECT x.user_id, u.name, x.xp_points, x.level,
		       jsonb_array_length(x.achievements) AS achievement_count
		FROM xp_profiles x
		JOIN users u ON u.id = x.user_id
		ORDER BY x.xp_points DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}
	return entries, nil
}

func (r *XPRepo) RankOf(ctx context.Context, userID uuid.UUID) (int, error) {
	var points int64
	err := r.db.GetContext(ctx, &points,
		`SELECT xp_points FROM xp_profiles WHERE user_id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("leaderboard rank: %w", err)
	}
	var rank int
	err = r.db.GetContext(ctx, &rank,
		`SELECT COUNT(*) + 1 FROM xp_profiles WHERE xp_points > $1`, points)
	if err != nil {
		return 0, fmt.Errorf("leaderboard rank: %w", err)
	}
	return rank, nil
}
