package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tbeaumont/folio/internal/auth"
	"github.com/tbeaumont/folio/internal/background"
	"github.com/tbeaumont/folio/internal/config"
	"github.com/tbeaumont/folio/internal/database"
	"github.com/tbeaumont/folio/internal/handlers"
	middlewareCustom "github.com/tbeaumont/folio/internal/middleware"
	"github.com/tbeaumont/folio/internal/models"
	"github.com/tbeaumont/folio/internal/repositories"
	"github.com/tbeaumont/folio/internal/routes"
	"github.com/tbeaumont/folio/internal/services"
	pkgauth "github.com/tbeaumont/folio/pkg/auth"
	pkghttp "github.com/tbeaumont/folio/pkg/http"
	pkglogger "github.com/tbeaumont/folio/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize repositories
	adminRepo := repositories.NewAdminRepository(db)
	attemptRepo := repositories.NewLoginAttemptRepository(db)
	activityRepo := repositories.NewActivityRepository(db)
	projectRepo := repositories.NewProjectRepository(db)
	postRepo := repositories.NewPostRepository(db)
	messageRepo := repositories.NewMessageRepository(db)
	settingRepo := repositories.NewSettingRepository(db)

	auditLogger := pkglogger.NewAuditLogger(logger)
	sessionStore := auth.NewMemorySessionStore()
	clock := auth.SystemClock()

	// Mailer: SES in real environments, log-only without a sender address
	var mailer services.Mailer
	if cfg.Email.FromAddress != "" {
		sesMailer, err := services.NewAWSSESMailer(cfg.Email.AWSRegion, cfg.Email.FromAddress, cfg.Email.OwnerAddress, logger)
		if err != nil {
			logger.Error("failed to initialize mailer", slog.Any("error", err))
			os.Exit(1)
		}
		mailer = sesMailer
	} else {
		logger.Warn("EMAIL_FROM not set, outbound mail disabled")
		mailer = services.NewNoopMailer(logger)
	}

	// Initialize services
	authService := services.NewAuthService(adminRepo, attemptRepo, activityRepo, sessionStore, clock,
		services.AuthGuardConfig{
			SessionTimeout:     cfg.Auth.SessionTimeout,
			MaxLoginAttempts:   cfg.Auth.MaxLoginAttempts,
			LockoutWindow:      cfg.Auth.LockoutWindow,
			RememberMeDuration: cfg.Auth.RememberMeDuration,
		}, logger, auditLogger)

	resetTokens := auth.NewResetTokenManager(cfg.Auth.ResetSecret, cfg.Auth.ResetTokenTTL)
	resetService := services.NewPasswordResetService(adminRepo, attemptRepo, activityRepo,
		resetTokens, mailer, clock, cfg.Email.ResetURLBase, logger, auditLogger)

	projectService := services.NewProjectService(projectRepo, activityRepo, logger)
	blogService := services.NewBlogService(postRepo, activityRepo, logger)
	contactService := services.NewContactService(messageRepo, mailer, activityRepo, logger)
	settingsService := services.NewSettingsService(settingRepo, activityRepo, logger)
	dashboardService := services.NewDashboardService(projectRepo, postRepo, messageRepo, activityRepo)

	cookieConfig := auth.CookieConfig{
		Domain:   cfg.Server.CookieDomain,
		Secure:   cfg.Server.Env == "production",
		SameSite: cfg.Server.CookieSameSite,
	}
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, resetService, cookieConfig, cfg.Auth.RememberMeDuration, ipConfig)
	projectHandler := handlers.NewProjectHandler(projectService, authService)
	postHandler := handlers.NewPostHandler(blogService, authService)
	messageHandler := handlers.NewMessageHandler(contactService, ipConfig)
	settingsHandler := handlers.NewSettingsHandler(settingsService, authService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)

	// Bootstrap first admin account if configured
	bootstrapCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureAdminAccount(bootstrapCtx, adminRepo, logger); err != nil {
		logger.Error("failed to ensure admin account", slog.Any("error", err))
	}
	cancel()

	// Cleanup task: expired attempts, idle sessions, aged activity rows
	cleanupManager := background.NewCleanupManager(attemptRepo, activityRepo, sessionStore, clock,
		background.CleanupConfig{
			Interval:           cfg.Auth.CleanupInterval,
			ActivityRetention:  cfg.Auth.ActivityRetention,
			SessionTimeout:     cfg.Auth.SessionTimeout,
			RememberMeDuration: cfg.Auth.RememberMeDuration,
		}, logger)

	// Setup CORS middleware
	corsConfig := middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, authService, cookieConfig,
		authHandler, projectHandler, postHandler, messageHandler, settingsHandler, dashboardHandler, logger)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// ensureAdminAccount creates the first admin if ADMIN_EMAIL and ADMIN_PASSWORD are set
func ensureAdminAccount(ctx context.Context, adminRepo *repositories.AdminRepository, logger *slog.Logger) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" || adminPassword == "" {
		logger.Info("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping admin bootstrap")
		return nil
	}

	_, err := adminRepo.GetByEmail(ctx, adminEmail)
	if err == nil {
		logger.Info("admin account already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check for admin account: %w", err)
	}

	if err := pkgauth.ValidatePassword(adminPassword); err != nil {
		return fmt.Errorf("ADMIN_PASSWORD rejected: %w", err)
	}

	hashedPassword, err := pkgauth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &models.Admin{
		Email:        adminEmail,
		PasswordHash: hashedPassword,
		Name:         os.Getenv("ADMIN_NAME"),
		Active:       true,
	}
	if admin.Name == "" {
		admin.Name = "Admin"
	}

	if _, err := adminRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin account: %w", err)
	}

	logger.Info("admin account created")
	return nil
}
