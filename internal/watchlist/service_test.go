package watchlist

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

type MockWatchlistRepository struct {
	mock.Mock
}

func (m *MockWatchlistRepository) List(ctx context.Context, userID uuid.UUID) ([]domain.WatchlistItem, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.WatchlistItem), args.Error(1)
}

func (m *MockWatchlistRepository) Add(ctx context.Context, item *domain.WatchlistItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockWatchlistRepository) Remove(ctx context.Context, userID uuid.UUID, symbol string) error {
	args := m.Called(ctx, userID, symbol)
	return args.Error(0)
}

type MockQuoteProvider struct {
	mock.Mock
}

func (m *MockQuoteProvider) GetQuote(ctx context.Context, symbol string) (domain.Quote, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(domain.Quote), args.Error(1)
}

func newTestService() (*Service, *MockWatchlistRepository, *MockQuoteProvider) {
	repo := new(MockWatchlistRepository)
	quotes := new(MockQuoteProvider)
	svc := NewService(repo, quotes, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return svc, repo, quotes
}

func TestAdd_NormalizesSymbol(t *testing.T) {
	svc, repo, quotes := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	repo.On("List", ctx, userID).Return([]domain.WatchlistItem{}, nil)
	repo.On("Add", ctx, mock.AnythingOfType("*domain.WatchlistItem")).Return(nil)
	quotes.On("GetQuote", ctx, "INFY.BSE").Return(domain.Quote{Symbol: "INFY.BSE", Price: 1580}, nil)

	quote, err := svc.Add(ctx, userID, "  infy.bse ")

	require.NoError(t, err)
	assert.Equal(t, "INFY.BSE", quote.Symbol)
	added := repo.Calls[1].Arguments.Get(1).(*domain.WatchlistItem)
	assert.Equal(t, "INFY.BSE", added.Symbol)
}

func TestAdd_Duplicate(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	repo.On("List", ctx, userID).Return([]domain.WatchlistItem{
		{UserID: userID, Symbol: "INFY.BSE"},
	}, nil)

	_, err := svc.Add(ctx, userID, "INFY.BSE")

	assert.ErrorIs(t, err, ErrAlreadyWatched)
	repo.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
}

func TestAdd_DuplicateRaceMapsToAlreadyWatched(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	// The List check sees nothing, but a concurrent add wins the insert.
	repo.On("List", ctx, userID).Return([]domain.WatchlistItem{}, nil)
	repo.On("Add", ctx, mock.AnythingOfType("*domain.WatchlistItem")).Return(domain.ErrDuplicate)

	_, err := svc.Add(ctx, userID, "INFY.BSE")

	assert.ErrorIs(t, err, ErrAlreadyWatched)
}

func TestList_QuoteFailureDegradesEntry(t *testing.T) {
	svc, repo, quotes := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	added := time.Now().Add(-time.Hour)
	repo.On("List", ctx, userID).Return([]domain.WatchlistItem{
		{UserID: userID, Symbol: "TCS.BSE", AddedAt: added},
		{UserID: userID, Symbol: "SBIN.BSE", AddedAt: added},
	}, nil)
	quotes.On("GetQuote", ctx, "TCS.BSE").Return(domain.Quote{Symbol: "TCS.BSE", Price: 3890.25}, nil)
	quotes.On("GetQuote", ctx, "SBIN.BSE").Return(domain.Quote{}, errors.New("api down"))

	list, err := svc.List(ctx, userID)

	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 3890.25, list[0].Price)
	assert.Equal(t, "SBIN.BSE", list[1].Symbol, "failed quote still lists the symbol")
	assert.Zero(t, list[1].Price)
}

func TestAvailable_FlagsWatchedSymbols(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	repo.On("List", ctx, userID).Return([]domain.WatchlistItem{
		{UserID: userID, Symbol: "WIPRO.BSE"},
	}, nil)

	stocks, err := svc.Available(ctx, userID)

	require.NoError(t, err)
	require.Len(t, stocks, 8)
	for _, s := range stocks {
		assert.Equal(t, s.Symbol == "WIPRO.BSE", s.InWatchlist, s.Symbol)
	}
}

func TestRemove_PassesThroughNotFound(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	repo.On("Remove", ctx, userID, "TCS.BSE").Return(domain.ErrNotFound)

	err := svc.Remove(ctx, userID, "tcs.bse")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
