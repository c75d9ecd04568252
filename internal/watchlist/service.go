package watchlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/yourorg/stocksim/internal/domain"
	"github.com/yourorg/stocksim/internal/ledger"
)

// QuoteProvider supplies display quotes for watched symbols.
type QuoteProvider interface {
	GetQuote(ctx context.Context, symbol string) (domain.Quote, error)
}

// ErrAlreadyWatched rejects adding a symbol twice.
var ErrAlreadyWatched = errors.New("stock already in watchlist")

// CatalogStock is one entry of the fixed tradable-stock catalog.
type CatalogStock struct {
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	InWatchlist bool   `json:"inWatchlist"`
}

var catalog = []CatalogStock{
	{Symbol: "RELIANCE.BSE", Name: "Reliance Industries"},
	{Symbol: "TCS.BSE", Name: "Tata Consultancy Services"},
	{Symbol: "HDFCBANK.BSE", Name: "HDFC Bank"},
	{Symbol: "ICICIBANK.BSE", Name: "ICICI Bank"},
	{Symbol: "SBIN.BSE", Name: "State Bank of India"},
	{Symbol: "INFY.BSE", Name: "Infosys"},
	{Symbol: "WIPRO.BSE", Name: "Wipro"},
	{Symbol: "BHARTIARTL.BSE", Name: "Bharti Airtel"},
}

// Service manages per-user watchlists and decorates them with live quotes.
type Service struct {
	repo   domain.WatchlistRepository
	quotes QuoteProvider
	logger *slog.Logger
}

func NewService(repo domain.WatchlistRepository, quotes QuoteProvider, logger *slog.Logger) *Service {
	return &Service{repo: repo, quotes: quotes, logger: logger}
}

// WatchedQuote is a watchlist entry with its current market snapshot.
type WatchedQuote struct {
	domain.Quote
	AddedAt time.Time `json:"added_at"`
}

// List returns the user's watchlist with a quote per symbol. A quote
// failure for one symbol degrades that entry, it does not fail the list.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]WatchedQuote, error) {
	items, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load watchlist: %w", err)
	}
	out := make([]WatchedQuote, 0, len(items))
	for _, item := range items {
		quote, err := s.quotes.GetQuote(ctx, item.Symbol)
		if err != nil {
			s.logger.Warn("quote lookup failed", "symbol", item.Symbol, "err", err)
			quote = domain.Quote{Symbol: item.Symbol}
		}
		out = append(out, WatchedQuote{Quote: quote, AddedAt: item.AddedAt})
	}
	return out, nil
}

// Add puts a symbol on the user's watchlist and returns its current quote.
func (s *Service) Add(ctx context.Context, userID uuid.UUID, symbol string) (*domain.Quote, error) {
	symbol = ledger.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, errors.New("symbol is required")
	}

	items, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load watchlist: %w", err)
	}
	for _, item := range items {
		if item.Symbol == symbol {
			return nil, ErrAlreadyWatched
		}
	}

	if err := s.repo.Add(ctx, &domain.WatchlistItem{UserID: userID, Symbol: symbol}); err != nil {
		// A concurrent add of the same symbol can slip past the List check.
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, ErrAlreadyWatched
		}
		return nil, fmt.Errorf("add to watchlist: %w", err)
	}
	quote, err := s.quotes.GetQuote(ctx, symbol)
	if err != nil {
		s.logger.Warn("quote lookup failed", "symbol", symbol, "err", err)
		quote = domain.Quote{Symbol: symbol}
	}
	return &quote, nil
}

// Remove deletes a symbol from the user's watchlist. Reports
// domain.ErrNotFound when it was not on the list.
func (s *Service) Remove(ctx context.Context, userID uuid.UUID, symbol string) error {
	return s.repo.Remove(ctx, userID, ledger.NormalizeSymbol(symbol))
}

// Available returns the stock catalog with each entry flagged if the user
// already watches it.
func (s *Service) Available(ctx context.Context, userID uuid.UUID) ([]CatalogStock, error) {
	items, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load watchlist: %w", err)
	}
	watched := make(map[string]struct{}, len(items))
	for _, item := range items {
		watched[item.Symbol] = struct{}{}
	}
	out := make([]CatalogStock, len(catalog))
	copy(out, catalog)
	for i := range out {
		_, out[i].InWatchlist = watched[out[i].Symbol]
	}
	return out, nil
}
