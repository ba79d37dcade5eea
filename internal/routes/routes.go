package routes

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/tbeaumont/folio/internal/auth"
	"github.com/tbeaumont/folio/internal/handlers"
	"github.com/tbeaumont/folio/internal/middleware"
)

// Guard combines the session checks the router needs: RequireSession uses
// IsAuthenticated, CSRFProtection uses ValidateCSRFToken.
type Guard interface {
	auth.Guard
	middleware.CSRFValidator
}

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	guard Guard,
	cookieConfig auth.CookieConfig,
	authHandler *handlers.AuthHandler,
	projectHandler *handlers.ProjectHandler,
	postHandler *handlers.PostHandler,
	messageHandler *handlers.MessageHandler,
	settingsHandler *handlers.SettingsHandler,
	dashboardHandler *handlers.DashboardHandler,
	logger *slog.Logger,
) {
	authRateLimit := middleware.RateLimitByIP(middleware.DefaultAuthRateLimit())
	contactRateLimit := middleware.RateLimitByIP(middleware.DefaultContactRateLimit())

	// Public site - no authentication
	router.Get("/projects", projectHandler.ListProjects)
	router.Get("/projects/{slug}", projectHandler.GetProjectBySlug)
	router.Get("/posts", postHandler.ListPublishedPosts)
	router.Get("/posts/{slug}", postHandler.GetPublishedPost)
	router.With(contactRateLimit).Post("/contact", messageHandler.SubmitMessage)

	// Auth endpoints - public but rate limited
	router.With(authRateLimit).Post("/auth/login", authHandler.Login)
	router.With(authRateLimit).Post("/auth/password-reset", authHandler.RequestReset)
	router.With(authRateLimit).Post("/auth/password-reset/complete", authHandler.CompleteReset)

	// Logout works with or without a live session
	router.Post("/auth/logout", authHandler.Logout)

	// Admin routes - session plus CSRF token on every state change
	router.Route("/admin", func(r chi.Router) {
		r.Use(auth.RequireSession(guard, cookieConfig))
		r.Use(middleware.CSRFProtection(guard, logger))

		r.Get("/session", authHandler.Session)
		r.Get("/csrf", authHandler.CSRFToken)
		r.Post("/password", authHandler.ChangePassword)

		r.Get("/dashboard/stats", dashboardHandler.GetStats)
		r.Get("/dashboard/activity", dashboardHandler.GetActivity)

		r.Post("/projects", projectHandler.CreateProject)
		r.Put("/projects/{id}", projectHandler.UpdateProject)
		r.Delete("/projects/{id}", projectHandler.DeleteProject)

		r.Get("/posts", postHandler.ListAllPosts)
		r.Post("/posts", postHandler.CreatePost)
		r.Get("/posts/{id}", postHandler.GetPost)
		r.Put("/posts/{id}", postHandler.UpdatePost)
		r.Put("/posts/{id}/publish", postHandler.PublishPost)
		r.Delete("/posts/{id}", postHandler.DeletePost)

		r.Get("/messages", messageHandler.ListMessages)
		r.Get("/messages/{id}", messageHandler.GetMessage)
		r.Put("/messages/{id}/read", messageHandler.MarkMessageRead)
		r.Delete("/messages/{id}", messageHandler.DeleteMessage)

		r.Get("/settings", settingsHandler.GetSettings)
		r.Put("/settings", settingsHandler.UpdateSettings)
	})
}
