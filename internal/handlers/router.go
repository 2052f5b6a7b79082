package handlers

import (
	"net/http"

	"github.com/go-chi/cors"
)

// Router bundles the handlers served by the API
type Router struct {
	Middleware  *Middleware
	Progression *ProgressionHandler
	Quiz        *QuizHandler
	Shop        *ShopHandler
	Health      *HealthHandler
	CORSOrigins []string
}

// Handler registers every route and wraps the mux with the shared middleware
func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	auth := rt.Middleware.RequireAuth

	mux.HandleFunc("GET /healthz", rt.Health.Health)

	// Profile
	mux.HandleFunc("GET /api/profile", auth(rt.Progression.GetProfile))
	mux.HandleFunc("POST /api/profile/points/add", auth(rt.Progression.AddPoints))
	mux.HandleFunc("POST /api/profile/points/remove", auth(rt.Progression.RemovePoints))
	mux.HandleFunc("POST /api/profile/lives/lose", auth(rt.Progression.LoseLife))
	mux.HandleFunc("POST /api/profile/lives/reset", auth(rt.Progression.ResetLives))
	mux.HandleFunc("POST /api/profile/lives/check", auth(rt.Progression.CheckLives))
	mux.HandleFunc("POST /api/profile/streak", auth(rt.Progression.UpdateStreak))

	// Quests
	mux.HandleFunc("GET /api/quests", auth(rt.Progression.ListQuests))
	mux.HandleFunc("GET /api/quests/completed", auth(rt.Progression.CompletedQuests))
	mux.HandleFunc("GET /api/quests/{id}", auth(rt.Progression.GetQuest))

	// Quiz sessions
	mux.HandleFunc("POST /api/quiz/start", auth(rt.Quiz.Start))
	mux.HandleFunc("GET /api/quiz/{id}", auth(rt.Quiz.Get))
	mux.HandleFunc("POST /api/quiz/{id}/answer", auth(rt.Quiz.SubmitAnswer))
	mux.HandleFunc("POST /api/quiz/{id}/advance", auth(rt.Quiz.Advance))
	mux.HandleFunc("POST /api/quiz/{id}/exit", auth(rt.Quiz.Exit))

	// Achievements
	mux.HandleFunc("GET /api/achievements", auth(rt.Progression.ListAchievements))
	mux.HandleFunc("GET /api/achievements/new", auth(rt.Progression.NewAchievements))
	mux.HandleFunc("POST /api/achievements/seen", auth(rt.Progression.MarkAchievementsSeen))

	// Shop and wallet
	mux.HandleFunc("GET /api/shop", auth(rt.Shop.ListItems))
	mux.HandleFunc("POST /api/shop/{id}/purchase", auth(rt.Shop.Purchase))
	mux.HandleFunc("GET /api/wallet", auth(rt.Shop.Wallet))
	mux.HandleFunc("POST /api/wallet/{id}/use", auth(rt.Shop.UseItem))

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   rt.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	})

	var handler http.Handler = mux
	handler = rt.Middleware.RateLimit(handler)
	handler = corsHandler(handler)
	handler = rt.Middleware.Recover(handler)
	handler = rt.Middleware.Logging(handler)
	return handler
}
