package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/yourorg/stocksim/internal/auth"
	"github.com/yourorg/stocksim/internal/domain"
	"github.com/yourorg/stocksim/internal/ledger"
)

type tradeRequest struct {
	Symbol        string  `json:"symbol"`
	OrderQuantity int64   `json:"orderQuantity"`
	Price         float64 `json:"price"`
}

func (h *Handlers) Buy(w http.ResponseWriter, r *http.Request) {
	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	userID := auth.UserIDFromCtx(r.Context())
	res, err := h.ledger.PlaceBuy(r.Context(), userID, req.Symbol, req.OrderQuantity, req.Price)
	if err != nil {
		h.writeTradeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":    "Buy order created",
		"order":      res.Order,
		"newBalance": res.NewBalance,
		"xpAwarded":  res.XPAwarded,
	})
}

func (h *Handlers) Sell(w http.ResponseWriter, r *http.Request) {
	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	userID := auth.UserIDFromCtx(r.Context())
	res, err := h.ledger.PlaceSell(r.Context(), userID, req.Symbol, req.OrderQuantity, req.Price)
	if err != nil {
		h.writeTradeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":      "Sell order created",
		"order":        res.Order,
		"newBalance":   res.NewBalance,
		"xpAwarded":    res.XPAwarded,
		"isProfitable": res.IsProfitable,
	})
}

// writeTradeError maps ledger errors onto the HTTP surface. Business-rule
// rejections include the figures the UI renders.
func (h *Handlers) writeTradeError(w http.ResponseWriter, err error) {
	var ve *ledger.ValidationError
	if errors.As(err, &ve) {
		writeError(w, http.StatusBadRequest, ve.Error())
		return
	}
	var funds *ledger.InsufficientFundsError
	if errors.As(err, &funds) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":     "insufficient balance",
			"required":  funds.Required,
			"available": funds.Available,
		})
		return
	}
	var shares *ledger.InsufficientSharesError
	if errors.As(err, &shares) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":     "insufficient shares",
			"symbol":    shares.Symbol,
			"requested": shares.Requested,
			"owned":     shares.Owned,
		})
		return
	}
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	h.logger.Error("trade failed", "err", err)
	writeError(w, http.StatusInternalServerError, "server error")
}

func (h *Handlers) GetHolding(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromCtx(r.Context())
	symbol := chi.URLParam(r, "symbol")
	holding, err := h.ledger.GetHolding(r.Context(), userID, symbol)
	if err != nil {
		var ve *ledger.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
			return
		}
		h.logger.Error("get holding failed", "symbol", symbol, "err", err)
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeJSON(w, http.StatusOK, holding)
}

func (h *Handlers) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromCtx(r.Context())
	portfolio, err := h.ledger.GetPortfolio(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error("get portfolio failed", "err", err)
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeJSON(w, http.StatusOK, portfolio)
}

func (h *Handlers) GetLivePortfolio(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromCtx(r.Context())
	portfolio, err := h.ledger.GetLivePortfolio(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error("get live portfolio failed", "err", err)
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeJSON(w, http.StatusOK, portfolio)
}
