package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/yourorg/stocksim/internal/auth"
	"github.com/yourorg/stocksim/internal/domain"
	"github.com/yourorg/stocksim/internal/gamification"
	"github.com/yourorg/stocksim/internal/ledger"
	"github.com/yourorg/stocksim/internal/marketdata"
	"github.com/yourorg/stocksim/internal/watchlist"
	"golang.org/x/crypto/bcrypt"
)

type Handlers struct {
	users           domain.UserRepository
	ledger          *ledger.Service
	gamification    *gamification.Service
	watchlist       *watchlist.Service
	charts          *marketdata.ChartService
	jwtSvc          *auth.JWTService
	logger          *slog.Logger
	startingBalance float64
}

func NewHandlers(
	users domain.UserRepository,
	ledgerSvc *ledger.Service,
	gamificationSvc *gamification.Service,
	watchlistSvc *watchlist.Service,
	charts *marketdata.ChartService,
	jwtSvc *auth.JWTService,
	logger *slog.Logger,
	startingBalance float64,
) *Handlers {
	return &Handlers{
		users:           users,
		ledger:          ledgerSvc,
		gamification:    gamificationSvc,
		watchlist:       watchlistSvc,
		charts:          charts,
		jwtSvc:          jwtSvc,
		logger:          logger,
		startingBalance: startingBalance,
	}
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handlers) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "name, email and password are required")
		return
	}
	if _, err := h.users.GetByEmail(r.Context(), req.Email); err == nil {
		writeError(w, http.StatusBadRequest, "email already registered")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), 10)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	user := &domain.User{
		Name:             req.Name,
		Email:            req.Email,
		PasswordHash:     string(hash),
		AvailableBalance: h.startingBalance,
	}
	if err := h.users.Create(r.Context(), user); err != nil {
		// A concurrent signup can slip past the GetByEmail pre-check.
		if errors.Is(err, domain.ErrDuplicate) {
			writeError(w, http.StatusBadRequest, "email already registered")
			return
		}
		h.logger.Error("create user failed", "err", err)
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User registered successfully",
		"data": map[string]any{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
		},
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	token, err := h.jwtSvc.Sign(user.ID, user.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to sign token")
		return
	}

	// Daily-login XP is a side effect; its failure never fails the login.
	reward := &gamification.LoginReward{}
	if r2, err := h.gamification.LoginXP(r.Context(), user.ID); err != nil {
		h.logger.Error("login xp award failed", "user_id", user.ID, "err", err)
	} else {
		reward = r2
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Login successful",
		"token":       token,
		"xpAwarded":   reward.XPAwarded,
		"loginStreak": reward.LoginStreak,
		"totalXp":     reward.TotalXP,
		"data": map[string]any{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
		},
	})
}

func (h *Handlers) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromCtx(r.Context())
	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"balance": user.AvailableBalance,
		"name":    user.Name,
		"email":   user.Email,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
