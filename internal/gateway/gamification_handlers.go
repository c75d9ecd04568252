package gateway

import (
	"errors"
	"net/http"

	"github.com/yourorg/stocksim/internal/auth"
	"github.com/yourorg/stocksim/internal/domain"
)

func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromCtx(r.Context())
	stats, err := h.gamification.Stats(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error("get stats failed", "err", err)
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"stats":   stats,
	})
}

func (h *Handlers) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromCtx(r.Context())
	rows, rank, err := h.gamification.Leaderboard(r.Context(), userID)
	if err != nil {
		h.logger.Error("get leaderboard failed", "err", err)
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	resp := map[string]any{
		"success":     true,
		"leaderboard": rows,
	}
	if rank > 0 {
		resp["userRank"] = rank
	}
	writeJSON(w, http.StatusOK, resp)
}
