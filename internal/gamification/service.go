package gamification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/yourorg/stocksim/internal/domain"
)

// Service maintains XP profiles, login streaks and achievements. It sits on
// the side of the trade path: the ledger calls TradeXP fire-and-forget.
type Service struct {
	xp     domain.XPRepository
	orders domain.OrderRepository
	users  domain.UserRepository
	logger *slog.Logger

	// now is swappable in tests for streak arithmetic.
	now func() time.Time
}

func NewService(xp domain.XPRepository, orders domain.OrderRepository, users domain.UserRepository, logger *slog.Logger) *Service {
	return &Service{xp: xp, orders: orders, users: users, logger: logger, now: time.Now}
}

// TradeXP awards XP for an executed order and re-evaluates achievements.
// Called after the trade has committed; the award includes any achievement
// unlock bonuses.
func (s *Service) TradeXP(ctx context.Context, userID uuid.UUID, side domain.OrderType, profitable bool) (int64, error) {
	profile, err := s.xp.GetOrCreate(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("load xp profile: %w", err)
	}
	orders, err := s.orders.FindByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("load orders: %w", err)
	}

	var awarded int64
	switch side {
	case domain.OrderSell:
		awarded = XPSellOrder
	default:
		awarded = XPBuyOrder
	}
	if profitable {
		awarded += XPProfitableTrade
	}
	if countToday(orders, s.now()) == 1 {
		awarded += XPFirstTradeOfDay
	}

	profile.TotalTrades++
	if profitable {
		profile.ProfitableTrades++
	}
	profile.XPPoints += awarded
	profile.Level = LevelFor(profile.XPPoints)
	profile.History = append(profile.History,
		fmt.Sprintf("+%d XP: %s order at %s", awarded, side, s.now().UTC().Format(time.RFC3339)))

	awarded += s.unlockAchievements(profile, orders)
	if err := s.xp.Save(ctx, profile); err != nil {
		return 0, fmt.Errorf("save xp profile: %w", err)
	}
	return awarded, nil
}

// LoginReward is what a daily login earned.
type LoginReward struct {
	XPAwarded   int64 `json:"xpAwarded"`
	LoginStreak int   `json:"loginStreak"`
	TotalXP     int64 `json:"totalXp"`
}

// LoginXP awards daily-login XP at most once per calendar day. A login on
// the day after the previous one extends the streak; any longer gap resets
// it to 1. The streak bonus is capped at 7 days.
func (s *Service) LoginXP(ctx context.Context, userID uuid.UUID) (*LoginReward, error) {
	profile, err := s.xp.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load xp profile: %w", err)
	}

	now := s.now()
	today := midnight(now)
	if profile.LastLoginDate != nil && !profile.LastLoginDate.Before(today) {
		// Already counted today.
		return &LoginReward{LoginStreak: profile.LoginStreak, TotalXP: profile.XPPoints}, nil
	}

	awarded := int64(XPLogin)
	if profile.LastLoginDate != nil && !profile.LastLoginDate.Before(today.AddDate(0, 0, -1)) {
		profile.LoginStreak++
		streak := profile.LoginStreak
		if streak > 7 {
			streak = 7
		}
		awarded += int64(XPLoginStreakBonus * streak)
	} else {
		profile.LoginStreak = 1
	}

	profile.XPPoints += awarded
	profile.Level = LevelFor(profile.XPPoints)
	profile.LastLoginDate = &now
	profile.History = append(profile.History,
		fmt.Sprintf("+%d XP: Daily login (streak: %d)", awarded, profile.LoginStreak))

	orders, err := s.orders.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	awarded += s.unlockAchievements(profile, orders)

	if err := s.xp.Save(ctx, profile); err != nil {
		return nil, fmt.Errorf("save xp profile: %w", err)
	}
	return &LoginReward{XPAwarded: awarded, LoginStreak: profile.LoginStreak, TotalXP: profile.XPPoints}, nil
}

// unlockAchievements appends any newly earned badges to the profile and
// returns the XP bonus they grant. The caller saves the profile.
func (s *Service) unlockAchievements(profile *domain.XPProfile, orders []domain.Order) int64 {
	uniqueStocks, maxTrade := statsFromOrders(orders)
	stats := achievementStats{
		TotalTrades:      profile.TotalTrades,
		ProfitableTrades: profile.ProfitableTrades,
		LoginStreak:      profile.LoginStreak,
		UniqueStocks:     uniqueStocks,
		MaxTradeAmount:   maxTrade,
		Level:            profile.Level,
	}

	unlocked := make(map[string]struct{}, len(profile.Achievements))
	for _, a := range profile.Achievements {
		unlocked[a.ID] = struct{}{}
	}

	var bonus int64
	for _, def := range achievementDefs {
		if _, ok := unlocked[def.ID]; ok {
			continue
		}
		if !def.Check(stats) {
			continue
		}
		profile.Achievements = append(profile.Achievements, domain.Achievement{
			ID:          def.ID,
			Name:        def.Name,
			Description: def.Description,
			Icon:        def.Icon,
			UnlockedAt:  s.now(),
		})
		bonus += XPAchievement
		profile.History = append(profile.History,
			fmt.Sprintf("+%d XP: Unlocked achievement %q", XPAchievement, def.Name))
	}
	if bonus > 0 {
		profile.XPPoints += bonus
		profile.Level = LevelFor(profile.XPPoints)
	}
	return bonus
}

// Stats is the profile view served to the frontend.
type Stats struct {
	XPPoints         int64                  `json:"xpPoints"`
	Level            int                    `json:"level"`
	LevelName        string                 `json:"levelName"`
	XPProgress       int64                  `json:"xpProgress"`
	XPNeeded         int64                  `json:"xpNeeded"`
	ProgressPercent  int                    `json:"progressPercent"`
	LoginStreak      int                    `json:"loginStreak"`
	TotalTrades      int64                  `json:"totalTrades"`
	ProfitableTrades int64                  `json:"profitableTrades"`
	Achievements     domain.AchievementList `json:"achievements"`
	UniqueStocks     int                    `json:"uniqueStocks"`
	AvailableBalance float64                `json:"availableBalance"`
}

func (s *Service) Stats(ctx context.Context, userID uuid.UUID) (*Stats, error) {
	profile, err := s.xp.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load xp profile: %w", err)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	orders, err := s.orders.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	uniqueStocks, _ := statsFromOrders(orders)

	currentLevelXP := int64(profile.Level-1) * xpPerLevel
	progress := profile.XPPoints - currentLevelXP
	achievements := profile.Achievements
	if achievements == nil {
		achievements = domain.AchievementList{}
	}
	return &Stats{
		XPPoints:         profile.XPPoints,
		Level:            profile.Level,
		LevelName:        LevelName(profile.Level),
		XPProgress:       progress,
		XPNeeded:         xpPerLevel,
		ProgressPercent:  int(progress * 100 / xpPerLevel),
		LoginStreak:      profile.LoginStreak,
		TotalTrades:      profile.TotalTrades,
		ProfitableTrades: profile.ProfitableTrades,
		Achievements:     achievements,
		UniqueStocks:     uniqueStocks,
		AvailableBalance: user.AvailableBalance,
	}, nil
}

// LeaderboardRow is one ranked entry.
type LeaderboardRow struct {
	Rank         int    `json:"rank"`
	Name         string `json:"name"`
	XPPoints     int64  `json:"xpPoints"`
	Level        int    `json:"level"`
	LevelName    string `json:"levelName"`
	Achievements int    `json:"achievements"`
}

// Leaderboard returns the top profiles by XP plus the caller's own rank.
func (s *Service) Leaderboard(ctx context.Context, callerID uuid.UUID) ([]LeaderboardRow, int, error) {
	top, err := s.xp.Top(ctx, 10)
	if err != nil {
		return nil, 0, fmt.Errorf("load leaderboard: %w", err)
	}
	rows := make([]LeaderboardRow, 0, len(top))
	for i, e := range top {
		rows = append(rows, LeaderboardRow{
			Rank:         i + 1,
			Name:         e.Name,
			XPPoints:     e.XPPoints,
			Level:        e.Level,
			LevelName:    LevelName(e.Level),
			Achievements: e.Achievements,
		})
	}
	rank, err := s.xp.RankOf(ctx, callerID)
	if err != nil {
		// The caller may simply have no profile yet.
		s.logger.Debug("leaderboard rank lookup failed", "user_id", callerID, "err", err)
		rank = 0
	}
	return rows, rank, nil
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func countToday(orders []domain.Order, now time.Time) int {
	today := midnight(now)
	n := 0
	for _, o := range orders {
		if !o.CreatedAt.Before(today) {
			n++
		}
	}
	return n
}
