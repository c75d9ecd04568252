package gateway

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/yourorg/stocksim/internal/domain"
	"github.com/yourorg/stocksim/internal/ledger"
)

func (h *Handlers) GetSimulatedSeries(w http.ResponseWriter, r *http.Request) {
	symbol := ledger.NormalizeSymbol(chi.URLParam(r, "symbol"))

	series, err := h.charts.SimulatedSeries(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no price history for symbol")
			return
		}
		h.logger.Error("simulated series failed", "symbol", symbol, "err", err)
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"symbol":  symbol,
		"series":  series,
	})
}
