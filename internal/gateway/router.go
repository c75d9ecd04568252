package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/yourorg/stocksim/internal/auth"
)

func NewRouter(h *Handlers, hub *Hub, jwtSvc *auth.JWTService) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/users/signup", h.Signup)
	r.Post("/api/users/login", h.Login)

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(jwtSvc))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/buy", h.Buy)
			r.Post("/sell", h.Sell)
			r.Get("/balance", h.GetBalance)
			r.Get("/holding/{symbol}", h.GetHolding)
			r.Get("/portfolio", h.GetPortfolio)
			r.Get("/portfolio/live", h.GetLivePortfolio)
		})

		r.Route("/gamification", func(r chi.Router) {
			r.Get("/stats", h.GetStats)
			r.Get("/leaderboard", h.GetLeaderboard)
		})

		r.Route("/watchlist", func(r chi.Router) {
			r.Get("/", h.GetWatchlist)
			r.Post("/", h.AddToWatchlist)
			r.Get("/available", h.GetAvailableStocks)
			r.Delete("/{symbol}", h.RemoveFromWatchlist)
		})

		r.Get("/market/{symbol}/simulated", h.GetSimulatedSeries)
	})

	r.Get("/ws", ServeWS(hub, h.logger))

	return r
}
