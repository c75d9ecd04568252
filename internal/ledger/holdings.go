package ledger

import (
	"sort"
	"strings"
	"time"

	"github.com/yourorg/stocksim/internal/domain"
)

// NormalizeSymbol trims whitespace and uppercases a symbol. Every comparison
// and every stored order uses the normalized form.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Holding is the derived per-symbol view: net quantity and cost basis folded
// from the full order history. It is recomputed on every read and never
// stored.
type Holding struct {
	Symbol        string  `json:"symbol"`
	OwnedQuantity int64   `json:"ownedQuantity"`
	TotalInvested float64 `json:"totalInvested"`
	AvgPrice      float64 `json:"avgPrice"`
}

// ComputeHolding folds an order history into a Holding. Iteration order does
// not matter, only the totals do. An empty history yields the zero Holding.
func ComputeHolding(symbol string, orders []domain.Order) Holding {
	h := Holding{Symbol: NormalizeSymbol(symbol)}
	for _, o := range orders {
		switch o.OrderType {
		case domain.OrderBuy:
			h.OwnedQuantity += o.Quantity
			h.TotalInvested += o.TotalAmount
		case domain.OrderSell:
			h.OwnedQuantity -= o.Quantity
			h.TotalInvested -= o.TotalAmount
		}
	}
	if h.OwnedQuantity > 0 {
		h.AvgPrice = h.TotalInvested / float64(h.OwnedQuantity)
	}
	return h
}

// netQuantity is the cumulative BUY quantity minus the cumulative SELL
// quantity.
func netQuantity(orders []domain.Order) int64 {
	var net int64
	for _, o := range orders {
		if o.OrderType == domain.OrderBuy {
			net += o.Quantity
		} else {
			net -= o.Quantity
		}
	}
	return net
}

// averageBuyPrice is total BUY capital over total BUY quantity, considering
// BUY orders only. SELLs never adjust the cost basis (no lot tracking).
// Returns 0 when no BUY orders exist.
func averageBuyPrice(orders []domain.Order) float64 {
	var amount float64
	var qty int64
	for _, o := range orders {
		if o.OrderType == domain.OrderBuy {
			amount += o.TotalAmount
			qty += o.Quantity
		}
	}
	if qty == 0 {
		return 0
	}
	return amount / float64(qty)
}

// SymbolAggregate is the per-symbol rollup used by the portfolio views.
// BuyQuantity is the summed BUY share count (the divisor for AvgBuyPrice),
// not a count of trades.
type SymbolAggregate struct {
	Symbol          string  `json:"symbol"`
	TotalQuantity   int64   `json:"totalQuantity"`
	TotalBuyAmount  float64 `json:"totalBuyAmount"`
	TotalSellAmount float64 `json:"totalSellAmount"`
	BuyQuantity     int64   `json:"buyQuantity"`
	AvgBuyPrice     float64 `json:"avgBuyPrice"`
	NetInvested     float64 `json:"netInvested"`
}

// AggregatePortfolio groups a user's full order history by symbol. Results
// are sorted by symbol so responses are stable across calls.
func AggregatePortfolio(orders []domain.Order) []SymbolAggregate {
	bySymbol := make(map[string]*SymbolAggregate)
	for _, o := range orders {
		agg, ok := bySymbol[o.Symbol]
		if !ok {
			agg = &SymbolAggregate{Symbol: o.Symbol}
			bySymbol[o.Symbol] = agg
		}
		switch o.OrderType {
		case domain.OrderBuy:
			agg.TotalQuantity += o.Quantity
			agg.TotalBuyAmount += o.TotalAmount
			agg.BuyQuantity += o.Quantity
		case domain.OrderSell:
			agg.TotalQuantity -= o.Quantity
			agg.TotalSellAmount += o.TotalAmount
		}
	}
	aggs := make([]SymbolAggregate, 0, len(bySymbol))
	for _, agg := range bySymbol {
		if agg.BuyQuantity > 0 {
			agg.AvgBuyPrice = agg.TotalBuyAmount / float64(agg.BuyQuantity)
		}
		agg.NetInvested = agg.TotalBuyAmount - agg.TotalSellAmount
		aggs = append(aggs, *agg)
	}
	sort.Slice(aggs, func(i, j int) bool { return aggs[i].Symbol < aggs[j].Symbol })
	return aggs
}

// OrderSummary is the trimmed order shape shown in the recent-orders view.
type OrderSummary struct {
	ID          string           `json:"id"`
	Symbol      string           `json:"symbol"`
	Quantity    int64            `json:"quantity"`
	Price       float64          `json:"price"`
	TotalAmount float64          `json:"totalAmount"`
	OrderType   domain.OrderType `json:"orderType"`
	CreatedAt   string           `json:"createdAt"`
}

// SummarizeRecent returns at most n summaries from orders already sorted
// newest first.
func SummarizeRecent(orders []domain.Order, n int) []OrderSummary {
	if len(orders) < n {
		n = len(orders)
	}
	out := make([]OrderSummary, 0, n)
	for _, o := range orders[:n] {
		out = append(out, OrderSummary{
			ID:          o.ID.String(),
			Symbol:      o.Symbol,
			Quantity:    o.Quantity,
			Price:       o.Price,
			TotalAmount: o.TotalAmount,
			OrderType:   o.OrderType,
			CreatedAt:   o.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}
