// Package server assembles the HTTP handler for the quiz API.
package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"gorm.io/gorm"

	"quiz-api/internal/auth"
	"quiz-api/internal/httpx"
	"quiz-api/internal/label"
	"quiz-api/internal/models"
	"quiz-api/internal/quiz"
	"quiz-api/internal/result"
	"quiz-api/internal/user"
	"quiz-api/pkg/cache"
	"quiz-api/pkg/websocket"
)

// Deps are the shared resources the routes are built on.
type Deps struct {
	DB   *gorm.DB
	Auth *auth.Service
	// Cache is optional. Without it quizzes are read from the database and
	// leaderboards are computed from results.
	Cache *cache.RedisCache
	// Hub is optional. Without it /ws is not mounted.
	Hub            *websocket.Hub
	AllowedOrigins []string
}

// New returns the complete handler with CORS, request logging and panic recovery applied.
func New(d Deps) http.Handler {
	// Interface values stay nil unless the backing resource is present.
	var (
		quizCache   quiz.Cache
		quizBoard   quiz.Leaderboard
		resultBoard result.Leaderboard
		userScores  user.Leaderboard
		notifier    quiz.Notifier
	)
	if d.Cache != nil {
		quizCache, quizBoard, resultBoard, userScores = d.Cache, d.Cache, d.Cache, d.Cache
	}
	if d.Hub != nil {
		notifier = d.Hub
	}

	results := result.NewRepository(d.DB)
	quizService := quiz.NewService(quiz.NewRepository(d.DB), results, quizCache, quizBoard, notifier)
	authHandler := auth.NewHandler(d.Auth)

	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteError(w, r, models.ErrNotFound)
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusMethodNotAllowed, httpx.ErrorBody{Detail: "method not allowed"})
	})

	router.HandleFunc("/health", health(d.DB)).Methods(http.MethodGet)
	router.HandleFunc("/api/token", authHandler.Token).Methods(http.MethodPost)
	if d.Hub != nil {
		router.HandleFunc("/ws/quiz/{quiz_id}", d.Hub.HandleWebSocket)
	}

	api := router.PathPrefix("/api").Subrouter()
	api.Use(auth.JWTMiddleware(d.Auth))
	for _, path := range []string{"/users/me", "/users/me/", "/user/me", "/user/me/"} {
		api.HandleFunc(path, authHandler.Me).Methods(http.MethodGet)
	}

	quiz.NewHandler(quizService).Register(api)
	quiz.RegisterContent(api, d.DB, quizService.Invalidate)
	label.NewHandler(label.NewService(d.DB, quizService.Invalidate)).Register(api)
	result.NewHandler(result.NewService(results, resultBoard)).Register(api)
	user.NewHandler(user.NewService(d.DB, results, userScores)).Register(api)

	c := cors.New(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With", requestIDHeader},
		ExposedHeaders:   []string{"Content-Length", requestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	})
	return c.Handler(requestLog(recoverer(router)))
}

func health(db *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(r.Context())
		}
		if err != nil {
			httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
