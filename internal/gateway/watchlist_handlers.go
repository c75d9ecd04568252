package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/yourorg/stocksim/internal/auth"
	"github.com/yourorg/stocksim/internal/domain"
	"github.com/yourorg/stocksim/internal/watchlist"
)

func (h *Handlers) GetWatchlist(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromCtx(r.Context())
	items, err := h.watchlist.List(r.Context(), userID)
	if err != nil {
		h.logger.Error("list watchlist failed", "err", err)
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"watchlist": items,
	})
}

func (h *Handlers) GetAvailableStocks(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromCtx(r.Context())
	stocks, err := h.watchlist.Available(r.Context(), userID)
	if err != nil {
		h.logger.Error("list available stocks failed", "err", err)
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"stocks":  stocks,
	})
}

func (h *Handlers) AddToWatchlist(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromCtx(r.Context())

	var req struct {
		Symbol string `json:"symbol"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	quote, err := h.watchlist.Add(r.Context(), userID, req.Symbol)
	if err != nil {
		if errors.Is(err, watchlist.ErrAlreadyWatched) {
			writeError(w, http.StatusBadRequest, "stock already in watchlist")
			return
		}
		h.logger.Error("add to watchlist failed", "symbol", req.Symbol, "err", err)
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "stock added to watchlist",
		"stock":   quote,
	})
}

func (h *Handlers) RemoveFromWatchlist(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromCtx(r.Context())
	symbol := chi.URLParam(r, "symbol")

	if err := h.watchlist.Remove(r.Context(), userID, symbol); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "stock not in watchlist")
			return
		}
		h.logger.Error("remove from watchlist failed", "symbol", symbol, "err", err)
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "stock removed from watchlist",
	})
}
