package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"auth-service/internal/config"
	"auth-service/internal/handler"
	"auth-service/internal/middleware"
)

func New(cfg *config.Config, authMiddleware *middleware.AuthMiddleware, authHandler *handler.AuthHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/v1/auth", func(auth chi.Router) {
		auth.Use(middleware.Timeout(cfg.RequestTimeout))

		auth.Post("/register", authHandler.Register)
		auth.Post("/login", authHandler.Login)
		auth.Post("/refresh", authHandler.Refresh)
		auth.Post("/logout", authHandler.Logout)
		auth.With(authMiddleware.RequireAuth).Get("/me", authHandler.Me)

		// Federated routes only exist when a verifier is wired in.
		if authHandler.HasVerifier() {
			auth.Get("/google/callback", authHandler.OAuthCallback)
			auth.Post("/oauth/exchange", authHandler.Exchange)
		}
	})

	return r
}
