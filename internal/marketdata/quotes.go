package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yourorg/stocksim/internal/domain"
)

const quoteAPIBase = "https://www.alphavantage.co/query"

// QuoteClient fetches point-in-time quotes from the upstream market-data
// API. When the API is unconfigured, rate-limited or failing it falls back
// to synthesized quotes so the watchlist stays usable.
type QuoteClient struct {
	apiKey string
	http   *http.Client
	logger *slog.Logger
}

func NewQuoteClient(apiKey string, logger *slog.Logger) *QuoteClient {
	return &QuoteClient{
		apiKey: apiKey,
		http:   &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

type globalQuoteResponse struct {
	GlobalQuote map[string]string `json:"Global Quote"`
}

func (c *QuoteClient) GetQuote(ctx context.Context, symbol string) (domain.Quote, error) {
	if c.apiKey == "" {
		return mockQuote(symbol), nil
	}

	q := url.Values{}
	q.Set("function", "GLOBAL_QUOTE")
	q.Set("symbol", symbol)
	q.Set("apikey", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, quoteAPIBase+"?"+q.Encode(), nil)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("build quote request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("quote api unreachable, serving mock quote", "symbol", symbol, "err", err)
		return mockQuote(symbol), nil
	}
	defer resp.Body.Close()

	var body globalQuoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || len(body.GlobalQuote) == 0 {
		// Empty Global Quote means the daily API limit is exhausted.
		c.logger.Warn("quote api returned no data, serving mock quote", "symbol", symbol)
		return mockQuote(symbol), nil
	}

	g := body.GlobalQuote
	return domain.Quote{
		Symbol:        orDefault(g["01. symbol"], symbol),
		Price:         parseFloat(g["05. price"]),
		Change:        parseFloat(g["09. change"]),
		ChangePercent: parseFloat(strings.TrimSuffix(g["10. change percent"], "%")),
		High:          parseFloat(g["03. high"]),
		Low:           parseFloat(g["04. low"]),
		Open:          parseFloat(g["02. open"]),
		PreviousClose: parseFloat(g["08. previous close"]),
		Volume:        parseInt(g["06. volume"]),
	}, nil
}

// mockQuote synthesizes a plausible quote, deterministic per symbol and
// hour so repeated calls within a session stay coherent.
func mockQuote(symbol string) domain.Quote {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	h.Write([]byte(time.Now().UTC().Format("2006010215")))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	price := 1000 + rng.Float64()*500
	change := (rng.Float64() - 0.5) * 50
	open := price - change
	return domain.Quote{
		Symbol:        symbol,
		Price:         round2(price),
		Change:        round2(change),
		ChangePercent: round2(change / open * 100),
		High:          round2(price + rng.Float64()*20),
		Low:           round2(price - rng.Float64()*20),
		Open:          round2(open),
		PreviousClose: round2(open),
		Volume:        int64(rng.Intn(1_000_000)),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return v
}

func parseInt(s string) int64 {
	v, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return v
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
