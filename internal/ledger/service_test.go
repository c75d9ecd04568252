package ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/stocksim/internal/domain"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) ApplyBalanceDelta(ctx context.Context, id uuid.UUID, delta float64) (float64, error) {
	args := m.Called(ctx, id, delta)
	return args.Get(0).(float64), args.Error(1)
}

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, o *domain.Order) error {
	args := m.Called(ctx, o)
	if args.Error(0) == nil {
		o.ID = uuid.New()
		o.CreatedAt = time.Now()
	}
	return args.Error(0)
}

func (m *MockOrderRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]domain.Order, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByUserAndSymbol(ctx context.Context, userID uuid.UUID, symbol string) ([]domain.Order, error) {
	args := m.Called(ctx, userID, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Order), args.Error(1)
}

type MockXPAwarder struct {
	mock.Mock
}

func (m *MockXPAwarder) TradeXP(ctx context.Context, userID uuid.UUID, side domain.OrderType, profitable bool) (int64, error) {
	args := m.Called(ctx, userID, side, profitable)
	return args.Get(0).(int64), args.Error(1)
}

type MockPriceSource struct {
	mock.Mock
}

func (m *MockPriceSource) LastPrice(ctx context.Context, symbol string) (float64, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(float64), args.Error(1)
}

func newTestService() (*Service, *MockUserRepository, *MockOrderRepository, *MockXPAwarder, *MockPriceSource) {
	users := new(MockUserRepository)
	orders := new(MockOrderRepository)
	xp := new(MockXPAwarder)
	prices := new(MockPriceSource)
	svc := NewService(users, orders, xp, prices, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return svc, users, orders, xp, prices
}

func userWithBalance(id uuid.UUID, balance float64) *domain.User {
	return &domain.User{ID: id, Name: "Test", Email: "test@example.com", AvailableBalance: balance}
}

func TestPlaceBuy_InsufficientFunds(t *testing.T) {
	svc, users, orders, _, _ := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	users.On("GetByID", ctx, userID).Return(userWithBalance(userID, 500.0), nil)

	_, err := svc.PlaceBuy(ctx, userID, "AAA", 10, 100)

	var ife *InsufficientFundsError
	require.ErrorAs(t, err, &ife)
	assert.Equal(t, 1000.0, ife.Required)
	assert.Equal(t, 500.0, ife.Available)
	orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	users.AssertNotCalled(t, "ApplyBalanceDelta", mock.Anything, mock.Anything, mock.Anything)
}

func TestPlaceBuy_Success(t *testing.T) {
	svc, users, orders, xp, _ := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	users.On("GetByID", ctx, userID).Return(userWithBalance(userID, 10000.0), nil)
	users.On("ApplyBalanceDelta", ctx, userID, -1000.0).Return(9000.0, nil)
	orders.On("Create", ctx, mock.AnythingOfType("*domain.Order")).Return(nil)
	xp.On("TradeXP", ctx, userID, domain.OrderBuy, false).Return(int64(10), nil)

	res, err := svc.PlaceBuy(ctx, userID, " aaa ", 10, 100)

	require.NoError(t, err)
	assert.Equal(t, 9000.0, res.NewBalance)
	assert.Equal(t, int64(10), res.XPAwarded)
	assert.Equal(t, "AAA", res.Order.Symbol, "symbol is trimmed and uppercased")
	assert.Equal(t, domain.OrderBuy, res.Order.OrderType)
	assert.InDelta(t, 1000.0, res.Order.TotalAmount, 1e-9, "total amount equals quantity*price")
	users.AssertExpectations(t)
	orders.AssertExpectations(t)
}

func TestPlaceBuy_XPFailureDoesNotFailTrade(t *testing.T) {
	svc, users, orders, xp, _ := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	users.On("GetByID", ctx, userID).Return(userWithBalance(userID, 10000.0), nil)
	users.On("ApplyBalanceDelta", ctx, userID, -1000.0).Return(9000.0, nil)
	orders.On("Create", ctx, mock.AnythingOfType("*domain.Order")).Return(nil)
	xp.On("TradeXP", ctx, userID, domain.OrderBuy, false).Return(int64(0), errors.New("gamification down"))

	res, err := svc.PlaceBuy(ctx, userID, "AAA", 10, 100)

	require.NoError(t, err)
	assert.Equal(t, int64(0), res.XPAwarded)
}

func TestPlaceBuy_DebitRace(t *testing.T) {
	svc, users, orders, _, _ := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	// The pre-check passes but a concurrent debit wins the conditional
	// update.
	users.On("GetByID", ctx, userID).Return(userWithBalance(userID, 1000.0), nil)
	users.On("ApplyBalanceDelta", ctx, userID, -1000.0).Return(0.0, domain.ErrInsufficientBalance)

	_, err := svc.PlaceBuy(ctx, userID, "AAA", 10, 100)

	var ife *InsufficientFundsError
	require.ErrorAs(t, err, &ife)
	orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestPlaceBuy_RefundsWhenOrderInsertFails(t *testing.T) {
	svc, users, orders, _, _ := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	users.On("GetByID", ctx, userID).Return(userWithBalance(userID, 10000.0), nil)
	users.On("ApplyBalanceDelta", ctx, userID, -1000.0).Return(9000.0, nil)
	orders.On("Create", ctx, mock.AnythingOfType("*domain.Order")).Return(errors.New("insert failed"))
	users.On("ApplyBalanceDelta", ctx, userID, 1000.0).Return(10000.0, nil)

	_, err := svc.PlaceBuy(ctx, userID, "AAA", 10, 100)

	require.Error(t, err)
	users.AssertCalled(t, "ApplyBalanceDelta", ctx, userID, 1000.0)
}

func TestPlaceBuy_ZeroPriceIsAccepted(t *testing.T) {
	svc, users, orders, xp, _ := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	users.On("GetByID", ctx, userID).Return(userWithBalance(userID, 1000.0), nil)
	users.On("ApplyBalanceDelta", ctx, userID, -0.0).Return(1000.0, nil)
	orders.On("Create", ctx, mock.AnythingOfType("*domain.Order")).Return(nil)
	xp.On("TradeXP", ctx, userID, domain.OrderBuy, false).Return(int64(10), nil)

	res, err := svc.PlaceBuy(ctx, userID, "AAA", 5, 0)

	require.NoError(t, err, "price 0 is valid, only negative prices are rejected")
	assert.Zero(t, res.Order.TotalAmount)
	assert.Equal(t, 1000.0, res.NewBalance)
}

func TestPlaceBuy_Validation(t *testing.T) {
	svc, users, _, _, _ := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	cases := []struct {
		name   string
		symbol string
		qty    int64
		price  float64
	}{
		{"empty symbol", "   ", 1, 100},
		{"zero quantity", "AAA", 0, 100},
		{"negative quantity", "AAA", -5, 100},
		{"negative price", "AAA", 1, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.PlaceBuy(ctx, userID, tc.symbol, tc.qty, tc.price)
			var ve *ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}
	// Rejected before any read.
	users.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestPlaceSell_InsufficientShares(t *testing.T) {
	svc, users, orders, _, _ := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	history := []domain.Order{order(domain.OrderBuy, "AAA", 3, 100, time.Hour)}
	orders.On("FindByUserAndSymbol", ctx, userID, "AAA").Return(history, nil)

	_, err := svc.PlaceSell(ctx, userID, "AAA", 5, 150)

	var ise *InsufficientSharesError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, int64(5), ise.Requested)
	assert.Equal(t, int64(3), ise.Owned)
	orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	users.AssertNotCalled(t, "ApplyBalanceDelta", mock.Anything, mock.Anything, mock.Anything)
}

func TestPlaceSell_ProfitableSequence(t *testing.T) {
	svc, users, orders, xp, _ := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	// After BUY 10 @ 100 from a 10000 balance, cash is 9000.
	history := []domain.Order{order(domain.OrderBuy, "AAA", 10, 100, time.Hour)}
	orders.On("FindByUserAndSymbol", ctx, userID, "AAA").Return(history, nil)
	users.On("ApplyBalanceDelta", ctx, userID, 1500.0).Return(10500.0, nil)
	orders.On("Create", ctx, mock.AnythingOfType("*domain.Order")).Return(nil)
	xp.On("TradeXP", ctx, userID, domain.OrderSell, true).Return(int64(40), nil)

	res, err := svc.PlaceSell(ctx, userID, "AAA", 10, 150)

	require.NoError(t, err)
	assert.True(t, res.IsProfitable, "150 beats the average buy price of 100")
	assert.Equal(t, 10500.0, res.NewBalance)
	assert.Equal(t, int64(40), res.XPAwarded)
	assert.Equal(t, domain.OrderSell, res.Order.OrderType)
	assert.InDelta(t, 1500.0, res.Order.TotalAmount, 1e-9)
}

func TestPlaceSell_AtAverageIsNotProfitable(t *testing.T) {
	svc, users, orders, xp, _ := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	history := []domain.Order{order(domain.OrderBuy, "AAA", 10, 100, time.Hour)}
	orders.On("FindByUserAndSymbol", ctx, userID, "AAA").Return(history, nil)
	users.On("ApplyBalanceDelta", ctx, userID, 500.0).Return(9500.0, nil)
	orders.On("Create", ctx, mock.AnythingOfType("*domain.Order")).Return(nil)
	xp.On("TradeXP", ctx, userID, domain.OrderSell, false).Return(int64(15), nil)

	res, err := svc.PlaceSell(ctx, userID, "AAA", 5, 100)

	require.NoError(t, err)
	assert.False(t, res.IsProfitable, "profitability requires strictly greater than average")
}

func TestGetHolding_Idempotent(t *testing.T) {
	svc, _, orders, _, _ := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	history := []domain.Order{
		order(domain.OrderBuy, "AAA", 10, 100, 2*time.Hour),
		order(domain.OrderSell, "AAA", 4, 150, time.Hour),
	}
	orders.On("FindByUserAndSymbol", ctx, userID, "AAA").Return(history, nil)

	first, err := svc.GetHolding(ctx, userID, "AAA")
	require.NoError(t, err)
	second, err := svc.GetHolding(ctx, userID, "AAA")
	require.NoError(t, err)

	assert.Equal(t, first, second, "pure function of stored history")
	assert.Equal(t, int64(6), first.OwnedQuantity)
}

func TestGetHolding_MissingSymbol(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	_, err := svc.GetHolding(context.Background(), uuid.New(), "  ")
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestGetPortfolio_Empty(t *testing.T) {
	svc, users, orders, _, _ := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	users.On("GetByID", ctx, userID).Return(userWithBalance(userID, 10000.0), nil)
	orders.On("FindByUser", ctx, userID).Return([]domain.Order{}, nil)

	p, err := svc.GetPortfolio(ctx, userID)

	require.NoError(t, err)
	assert.Empty(t, p.Holdings)
	assert.Zero(t, p.TotalInvested)
	assert.Zero(t, p.TotalOrders)
	assert.Equal(t, 10000.0, p.AvailableBalance)
}

func TestGetPortfolio_SingleBuy(t *testing.T) {
	svc, users, orders, _, _ := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	users.On("GetByID", ctx, userID).Return(userWithBalance(userID, 9000.0), nil)
	orders.On("FindByUser", ctx, userID).Return([]domain.Order{
		order(domain.OrderBuy, "AAA", 10, 100, time.Hour),
	}, nil)

	p, err := svc.GetPortfolio(ctx, userID)

	require.NoError(t, err)
	require.Len(t, p.Holdings, 1)
	assert.Equal(t, int64(10), p.Holdings[0].TotalQuantity)
	assert.InDelta(t, 100.0, p.Holdings[0].AvgBuyPrice, 1e-9)
	assert.InDelta(t, 1000.0, p.TotalInvested, 1e-9)
	assert.Len(t, p.RecentOrders, 1)
	assert.Equal(t, 1, p.TotalOrders)
}

func TestGetPortfolio_ExcludesSoldOutSymbols(t *testing.T) {
	svc, users, orders, _, _ := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	users.On("GetByID", ctx, userID).Return(userWithBalance(userID, 9000.0), nil)
	orders.On("FindByUser", ctx, userID).Return([]domain.Order{
		order(domain.OrderBuy, "GONE", 5, 100, 3*time.Hour),
		order(domain.OrderSell, "GONE", 5, 150, 2*time.Hour),
		order(domain.OrderBuy, "KEPT", 2, 50, time.Hour),
	}, nil)

	p, err := svc.GetPortfolio(ctx, userID)

	require.NoError(t, err)
	require.Len(t, p.Holdings, 1)
	assert.Equal(t, "KEPT", p.Holdings[0].Symbol)
	// Total invested sums only symbols still held.
	assert.InDelta(t, 100.0, p.TotalInvested, 1e-9)
	assert.Equal(t, 3, p.TotalOrders)
}

func TestGetLivePortfolio_Valuation(t *testing.T) {
	svc, users, orders, _, prices := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	users.On("GetByID", ctx, userID).Return(userWithBalance(userID, 9000.0), nil)
	orders.On("FindByUser", ctx, userID).Return([]domain.Order{
		order(domain.OrderBuy, "AAA", 10, 100, time.Hour),
	}, nil)
	prices.On("LastPrice", ctx, "AAA").Return(120.0, nil)

	live, err := svc.GetLivePortfolio(ctx, userID)

	require.NoError(t, err)
	require.Len(t, live.Holdings, 1)
	h := live.Holdings[0]
	assert.InDelta(t, 1200.0, h.CurrentValue, 1e-9)
	assert.InDelta(t, 200.0, h.ProfitLoss, 1e-9)
	assert.InDelta(t, 20.0, h.ProfitLossPercent, 1e-9)
	assert.InDelta(t, 9000.0+1200.0, live.AccountValue, 1e-9)
}

func TestGetLivePortfolio_ZeroInvestedHasZeroPercent(t *testing.T) {
	svc, users, orders, _, prices := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	// Buys fully recouped by a sell: still holding shares, net invested 0.
	users.On("GetByID", ctx, userID).Return(userWithBalance(userID, 10000.0), nil)
	orders.On("FindByUser", ctx, userID).Return([]domain.Order{
		order(domain.OrderBuy, "AAA", 10, 100, 2*time.Hour),
		order(domain.OrderSell, "AAA", 5, 200, time.Hour),
	}, nil)
	prices.On("LastPrice", ctx, "AAA").Return(100.0, nil)

	live, err := svc.GetLivePortfolio(ctx, userID)

	require.NoError(t, err)
	require.Len(t, live.Holdings, 1)
	assert.Zero(t, live.Holdings[0].ProfitLossPercent, "0, not NaN or Inf")
	assert.Zero(t, live.ProfitLossPercent)
}
