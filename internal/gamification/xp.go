package gamification

import "github.com/yourorg/stocksim/internal/domain"

// XP awards per engagement event.
const (
	XPLogin            = 10
	XPLoginStreakBonus = 5 // per streak day, capped at 7 days
	XPBuyOrder         = 10
	XPSellOrder        = 15
	XPProfitableTrade  = 25
	XPFirstTradeOfDay  = 20
	XPAchievement      = 50
)

// xpPerLevel: every 100 XP is one level.
const xpPerLevel = 100

func LevelFor(xpPoints int64) int {
	return int(xpPoints/xpPerLevel) + 1
}

func LevelName(level int) string {
	switch {
	case level >= 50:
		return "Legend"
	case level >= 30:
		return "Master"
	case level >= 20:
		return "Expert"
	case level >= 10:
		return "Investor"
	case level >= 5:
		return "Trader"
	default:
		return "Rookie"
	}
}

// achievementStats is the snapshot each badge condition is evaluated
// against.
type achievementStats struct {
	TotalTrades      int64
	ProfitableTrades int64
	LoginStreak      int
	UniqueStocks     int
	MaxTradeAmount   float64
	Level            int
}

type achievementDef struct {
	ID          string
	Name        string
	Description string
	Icon        string
	Check       func(achievementStats) bool
}

var achievementDefs = []achievementDef{
	{
		ID:          "first_trade",
		Name:        "First Trade",
		Description: "Complete your first order",
		Icon:        "🥇",
		Check:       func(s achievementStats) bool { return s.TotalTrades >= 1 },
	},
	{
		ID:          "trader_5",
		Name:        "Active Trader",
		Description: "Complete 5 trades",
		Icon:        "📊",
		Check:       func(s achievementStats) bool { return s.TotalTrades >= 5 },
	},
	{
		ID:          "trader_25",
		Name:        "Pro Trader",
		Description: "Complete 25 trades",
		Icon:        "💼",
		Check:       func(s achievementStats) bool { return s.TotalTrades >= 25 },
	},
	{
		ID:          "bull_run",
		Name:        "Bull Run",
		Description: "Make 5 profitable trades",
		Icon:        "📈",
		Check:       func(s achievementStats) bool { return s.ProfitableTrades >= 5 },
	},
	{
		ID:          "streak_3",
		Name:        "On Fire",
		Description: "3-day login streak",
		Icon:        "🔥",
		Check:       func(s achievementStats) bool { return s.LoginStreak >= 3 },
	},
	{
		ID:          "streak_7",
		Name:        "Dedicated",
		Description: "7-day login streak",
		Icon:        "⭐",
		Check:       func(s achievementStats) bool { return s.LoginStreak >= 7 },
	},
	{
		ID:          "diversified",
		Name:        "Diversified",
		Description: "Own 3+ different stocks",
		Icon:        "🏦",
		Check:       func(s achievementStats) bool { return s.UniqueStocks >= 3 },
	},
	{
		ID:          "big_spender",
		Name:        "Big Spender",
		Description: "Invest ₹10,000+ in one trade",
		Icon:        "💰",
		Check:       func(s achievementStats) bool { return s.MaxTradeAmount >= 10000 },
	},
	{
		ID:          "level_5",
		Name:        "Rising Star",
		Description: "Reach Level 5",
		Icon:        "🌟",
		Check:       func(s achievementStats) bool { return s.Level >= 5 },
	},
	{
		ID:          "level_10",
		Name:        "Investor",
		Description: "Reach Level 10",
		Icon:        "👑",
		Check:       func(s achievementStats) bool { return s.Level >= 10 },
	},
}

func statsFromOrders(orders []domain.Order) (uniqueStocks int, maxTradeAmount float64) {
	seen := make(map[string]struct{})
	for _, o := range orders {
		seen[o.Symbol] = struct{}{}
		if o.TotalAmount > maxTradeAmount {
			maxTradeAmount = o.TotalAmount
		}
	}
	return len(seen), maxTradeAmount
}
