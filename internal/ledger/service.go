package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"
	"github.com/yourorg/stocksim/internal/domain"
)

// recentOrderLimit caps the recent-orders view in the portfolio responses.
const recentOrderLimit = 10

// XPAwarder is the gamification side channel. Trade XP is fire-and-forget:
// an error here never fails or rolls back the trade.
type XPAwarder interface {
	TradeXP(ctx context.Context, userID uuid.UUID, side domain.OrderType, profitable bool) (int64, error)
}

// PriceSource supplies the current market price for the live portfolio view.
type PriceSource interface {
	LastPrice(ctx context.Context, symbol string) (float64, error)
}

// Service is the ledger engine. It is stateless: every operation reads the
// order history and balance through the repositories and computes from
// scratch.
type Service struct {
	users  domain.UserRepository
	orders domain.OrderRepository
	xp     XPAwarder
	prices PriceSource
	logger *slog.Logger
}

func NewService(
	users domain.UserRepository,
	orders domain.OrderRepository,
	xp XPAwarder,
	prices PriceSource,
	logger *slog.Logger,
) *Service {
	return &Service{
		users:  users,
		orders: orders,
		xp:     xp,
		prices: prices,
		logger: logger,
	}
}

// TradeResult is returned by PlaceBuy and PlaceSell.
type TradeResult struct {
	Order        *domain.Order
	NewBalance   float64
	XPAwarded    int64
	IsProfitable bool
}

func validateTrade(symbol string, quantity int64, price float64) error {
	if symbol == "" {
		return &ValidationError{Field: "symbol", Reason: "is required"}
	}
	if quantity <= 0 {
		return &ValidationError{Field: "orderQuantity", Reason: "must be a positive number"}
	}
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return &ValidationError{Field: "price", Reason: "must be a non-negative number"}
	}
	return nil
}

// PlaceBuy debits quantity*price from the user's balance and appends a BUY
// order. The debit is an atomic conditional update, so the balance can never
// go negative even under concurrent requests; the pre-check exists only to
// report precise figures.
func (s *Service) PlaceBuy(ctx context.Context, userID uuid.UUID, symbol string, quantity int64, price float64) (*TradeResult, error) {
	symbol = NormalizeSymbol(symbol)
	if err := validateTrade(symbol, quantity, price); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	totalCost := float64(quantity) * price
	if user.AvailableBalance < totalCost {
		return nil, &InsufficientFundsError{Required: totalCost, Available: user.AvailableBalance}
	}

	newBalance, err := s.users.ApplyBalanceDelta(ctx, userID, -totalCost)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientBalance) {
			// Lost a race against another debit since the pre-check.
			return nil, &InsufficientFundsError{Required: totalCost, Available: user.AvailableBalance}
		}
		return nil, fmt.Errorf("debit balance: %w", err)
	}

	order := &domain.Order{
		UserID:      userID,
		Symbol:      symbol,
		Quantity:    quantity,
		Price:       price,
		TotalAmount: totalCost,
		OrderType:   domain.OrderBuy,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		// Undo the debit so the failed trade leaves no trace.
		if _, refundErr := s.users.ApplyBalanceDelta(ctx, userID, totalCost); refundErr != nil {
			s.logger.Error("refund after failed buy order insert", "user_id", userID, "amount", totalCost, "err", refundErr)
		}
		return nil, fmt.Errorf("create order: %w", err)
	}

	return &TradeResult{
		Order:      order,
		NewBalance: newBalance,
		XPAwarded:  s.awardTradeXP(ctx, userID, domain.OrderBuy, false),
	}, nil
}

// PlaceSell appends a SELL order and credits the proceeds. The sale is
// profitable iff the sale price strictly exceeds the average buy price
// computed from BUY orders recorded before this sale.
func (s *Service) PlaceSell(ctx context.Context, userID uuid.UUID, symbol string, quantity int64, price float64) (*TradeResult, error) {
	symbol = NormalizeSymbol(symbol)
	if err := validateTrade(symbol, quantity, price); err != nil {
		return nil, err
	}

	history, err := s.orders.FindByUserAndSymbol(ctx, userID, symbol)
	if err != nil {
		return nil, fmt.Errorf("load order history: %w", err)
	}
	owned := netQuantity(history)
	if owned < quantity {
		return nil, &InsufficientSharesError{Symbol: symbol, Requested: quantity, Owned: owned}
	}
	profitable := price > averageBuyPrice(history)

	proceeds := float64(quantity) * price
	newBalance, err := s.users.ApplyBalanceDelta(ctx, userID, proceeds)
	if err != nil {
		return nil, fmt.Errorf("credit balance: %w", err)
	}

	order := &domain.Order{
		UserID:      userID,
		Symbol:      symbol,
		Quantity:    quantity,
		Price:       price,
		TotalAmount: proceeds,
		OrderType:   domain.OrderSell,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		if _, undoErr := s.users.ApplyBalanceDelta(ctx, userID, -proceeds); undoErr != nil {
			s.logger.Error("revert credit after failed sell order insert", "user_id", userID, "amount", proceeds, "err", undoErr)
		}
		return nil, fmt.Errorf("create order: %w", err)
	}

	return &TradeResult{
		Order:        order,
		NewBalance:   newBalance,
		XPAwarded:    s.awardTradeXP(ctx, userID, domain.OrderSell, profitable),
		IsProfitable: profitable,
	}, nil
}

func (s *Service) awardTradeXP(ctx context.Context, userID uuid.UUID, side domain.OrderType, profitable bool) int64 {
	awarded, err := s.xp.TradeXP(ctx, userID, side, profitable)
	if err != nil {
		// The trade already committed; gamification failures are logged
		// and swallowed.
		s.logger.Error("trade xp award failed", "user_id", userID, "side", side, "err", err)
		return 0
	}
	return awarded
}

// GetHolding returns the derived holding for one symbol. An absent history
// yields the all-zero holding, not an error.
func (s *Service) GetHolding(ctx context.Context, userID uuid.UUID, symbol string) (Holding, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return Holding{}, &ValidationError{Field: "symbol", Reason: "is required"}
	}
	history, err := s.orders.FindByUserAndSymbol(ctx, userID, symbol)
	if err != nil {
		return Holding{}, fmt.Errorf("load order history: %w", err)
	}
	return ComputeHolding(symbol, history), nil
}

// Portfolio is the full account view: cash, invested capital, currently held
// symbols and recent activity.
type Portfolio struct {
	AvailableBalance float64           `json:"availableBalance"`
	TotalInvested    float64           `json:"totalInvested"`
	Holdings         []SymbolAggregate `json:"holdings"`
	RecentOrders     []OrderSummary    `json:"recentOrders"`
	TotalOrders      int               `json:"totalOrders"`
}

// GetPortfolio aggregates the user's complete order history. Only symbols
// with a positive net quantity appear in Holdings, and TotalInvested sums
// net invested capital over those symbols only.
func (s *Service) GetPortfolio(ctx context.Context, userID uuid.UUID) (*Portfolio, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	orders, err := s.orders.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}

	p := &Portfolio{
		AvailableBalance: user.AvailableBalance,
		Holdings:         []SymbolAggregate{},
		RecentOrders:     SummarizeRecent(orders, recentOrderLimit),
		TotalOrders:      len(orders),
	}
	for _, agg := range AggregatePortfolio(orders) {
		if agg.TotalQuantity <= 0 {
			continue
		}
		p.Holdings = append(p.Holdings, agg)
		p.TotalInvested += agg.NetInvested
	}
	return p, nil
}

// LiveHolding extends a SymbolAggregate with a current market valuation.
type LiveHolding struct {
	SymbolAggregate
	CurrentPrice      float64 `json:"currentPrice"`
	CurrentValue      float64 `json:"currentValue"`
	ProfitLoss        float64 `json:"profitLoss"`
	ProfitLossPercent float64 `json:"profitLossPercent"`
}

// LivePortfolio is a Portfolio valued at current market prices.
type LivePortfolio struct {
	AvailableBalance  float64        `json:"availableBalance"`
	TotalInvested     float64        `json:"totalInvested"`
	TotalCurrentValue float64        `json:"totalCurrentValue"`
	ProfitLoss        float64        `json:"profitLoss"`
	ProfitLossPercent float64        `json:"profitLossPercent"`
	AccountValue      float64        `json:"accountValue"`
	Holdings          []LiveHolding  `json:"holdings"`
	RecentOrders      []OrderSummary `json:"recentOrders"`
	TotalOrders       int            `json:"totalOrders"`
}

// GetLivePortfolio values each held position at the collaborator-supplied
// market price. ProfitLossPercent is 0, never NaN, when invested capital
// is 0.
func (s *Service) GetLivePortfolio(ctx context.Context, userID uuid.UUID) (*LivePortfolio, error) {
	base, err := s.GetPortfolio(ctx, userID)
	if err != nil {
		return nil, err
	}

	live := &LivePortfolio{
		AvailableBalance: base.AvailableBalance,
		TotalInvested:    base.TotalInvested,
		Holdings:         make([]LiveHolding, 0, len(base.Holdings)),
		RecentOrders:     base.RecentOrders,
		TotalOrders:      base.TotalOrders,
	}
	for _, agg := range base.Holdings {
		price, err := s.prices.LastPrice(ctx, agg.Symbol)
		if err != nil {
			return nil, fmt.Errorf("market price for %s: %w", agg.Symbol, err)
		}
		h := LiveHolding{
			SymbolAggregate: agg,
			CurrentPrice:    price,
			CurrentValue:    float64(agg.TotalQuantity) * price,
		}
		h.ProfitLoss = h.CurrentValue - agg.NetInvested
		if agg.NetInvested != 0 {
			h.ProfitLossPercent = h.ProfitLoss / agg.NetInvested * 100
		}
		live.Holdings = append(live.Holdings, h)
		live.TotalCurrentValue += h.CurrentValue
	}
	live.ProfitLoss = live.TotalCurrentValue - live.TotalInvested
	if live.TotalInvested != 0 {
		live.ProfitLossPercent = live.ProfitLoss / live.TotalInvested * 100
	}
	live.AccountValue = live.AvailableBalance + live.TotalCurrentValue
	return live, nil
}
