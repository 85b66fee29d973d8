package api

import (
	"log/slog"
	"net/http"
	"time"

	"codequest/internal/api/handler"
	"codequest/internal/app/service"
	"codequest/internal/common/security"
	"codequest/internal/platform/config"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/jwtauth/v5"
)

func NewRouter(
	submissionService *service.SubmissionService,
	rankingService *service.RankingService,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(httplog.RequestLogger(httplog.NewLogger("codequest", httplog.Options{
		LogLevel: slog.LevelInfo,
		Concise:  true,
	})))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   config.AppConfig.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Verifies the bearer token and puts the claims in the request
	// context; per-route Authenticator middleware enforces it.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(v1 chi.Router) {
		submissionHandler := handler.NewSubmissionHandler(submissionService)
		v1.Route("/submissions", submissionHandler.RegisterRoutes)

		rankingHandler := handler.NewRankingHandler(rankingService)
		v1.Route("/ranking", rankingHandler.RegisterRoutes)
	})

	return r
}
