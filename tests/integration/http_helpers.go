package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/tbeaumont/folio/internal/auth"
	"github.com/tbeaumont/folio/internal/config"
	"github.com/tbeaumont/folio/internal/database"
	"github.com/tbeaumont/folio/internal/handlers"
	middlewareCustom "github.com/tbeaumont/folio/internal/middleware"
	"github.com/tbeaumont/folio/internal/models"
	"github.com/tbeaumont/folio/internal/routes"
	"github.com/tbeaumont/folio/internal/services"
	pkghttp "github.com/tbeaumont/folio/pkg/http"
	pkglogger "github.com/tbeaumont/folio/pkg/logger"
)

// SentEmail is a captured outbound email
type SentEmail struct {
	To   string
	Kind string
	Body string
}

// MockMailer captures outbound email for test assertions
type MockMailer struct {
	Sent []SentEmail
	mu   sync.Mutex
}

func (m *MockMailer) SendContactNotification(ctx context.Context, message *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, SentEmail{To: "owner", Kind: "contact", Body: message.Body})
	return nil
}

func (m *MockMailer) SendPasswordReset(ctx context.Context, email, resetLink string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, SentEmail{To: email, Kind: "reset", Body: resetLink})
	return nil
}

// LastEmail returns the most recent captured email
func (m *MockMailer) LastEmail() *SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return nil
	}
	return &m.Sent[len(m.Sent)-1]
}

// TestServer wraps httptest.Server with the full application wiring on a
// real database and a mocked mailer.
type TestServer struct {
	Server   *httptest.Server
	DB       *database.DB
	Mailer   *MockMailer
	Sessions *auth.MemorySessionStore
	Config   *config.Config
}

// NewTestServer wires the production route tree against the given database
func NewTestServer(db *database.DB) *TestServer {
	logger := slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg := &config.Config{
		Auth: config.AuthConfig{
			SessionTimeout:     time.Hour,
			MaxLoginAttempts:   5,
			LockoutWindow:      15 * time.Minute,
			RememberMeDuration: 30 * 24 * time.Hour,
			ResetSecret:        "integration-test-reset-secret-0123456789",
			ResetTokenTTL:      time.Hour,
		},
		Email: config.EmailConfig{
			ResetURLBase: "http://localhost:3000/reset",
		},
		Server: config.ServerConfig{
			Env:            "test",
			AllowedOrigins: []string{},
			TrustedProxies: []string{},
		},
	}

	adminRepo, attemptRepo, activityRepo, projectRepo, postRepo, messageRepo, settingRepo :=
		InitializeRepositories(db)

	mailer := &MockMailer{}
	auditLogger := pkglogger.NewAuditLogger(logger)
	sessionStore := auth.NewMemorySessionStore()
	clock := auth.SystemClock()

	authService := services.NewAuthService(
		adminRepo,
		attemptRepo,
		activityRepo,
		sessionStore,
		clock,
		services.AuthGuardConfig{
			SessionTimeout:     cfg.Auth.SessionTimeout,
			MaxLoginAttempts:   cfg.Auth.MaxLoginAttempts,
			LockoutWindow:      cfg.Auth.LockoutWindow,
			RememberMeDuration: cfg.Auth.RememberMeDuration,
		},
		logger,
		auditLogger,
	)

	resetTokens := auth.NewResetTokenManager(cfg.Auth.ResetSecret, cfg.Auth.ResetTokenTTL)
	resetService := services.NewPasswordResetService(
		adminRepo,
		attemptRepo,
		activityRepo,
		resetTokens,
		mailer,
		clock,
		cfg.Email.ResetURLBase,
		logger,
		auditLogger,
	)

	projectService := services.NewProjectService(projectRepo, activityRepo, logger)
	blogService := services.NewBlogService(postRepo, activityRepo, logger)
	contactService := services.NewContactService(messageRepo, mailer, activityRepo, logger)
	settingsService := services.NewSettingsService(settingRepo, activityRepo, logger)
	dashboardService := services.NewDashboardService(projectRepo, postRepo, messageRepo, activityRepo)

	cookieConfig := auth.CookieConfig{}
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}

	authHandler := handlers.NewAuthHandler(authService, resetService, cookieConfig, cfg.Auth.RememberMeDuration, ipConfig)
	projectHandler := handlers.NewProjectHandler(projectService, authService)
	postHandler := handlers.NewPostHandler(blogService, authService)
	messageHandler := handlers.NewMessageHandler(contactService, ipConfig)
	settingsHandler := handlers.NewSettingsHandler(settingsService, authService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(r, authService, cookieConfig, authHandler, projectHandler, postHandler, messageHandler, settingsHandler, dashboardHandler, logger)

	server := httptest.NewServer(r)

	return &TestServer{
		Server:   server,
		DB:       db,
		Mailer:   mailer,
		Sessions: sessionStore,
		Config:   cfg,
	}
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	if ts.Server != nil {
		ts.Server.Close()
	}
}

// nextClientIP hands every request its own client address so the per-IP
// rate limits on the auth and contact endpoints never throttle the suite.
// Lockout behavior is keyed by email, so it is unaffected.
var clientIPCounter uint32

func nextClientIP() string {
	n := atomic.AddUint32(&clientIPCounter, 1)
	return fmt.Sprintf("10.0.%d.%d", (n/254)%254+1, n%254+1)
}

// Request makes an HTTP request against the test server
func (ts *TestServer) Request(method, path string, body interface{}, headers map[string]string) (*http.Response, error) {
	url := ts.Server.URL + path

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Real-IP", nextClientIP())
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	return http.DefaultClient.Do(req)
}

// AdminSession holds the credentials for authenticated admin requests
type AdminSession struct {
	Cookie    *http.Cookie
	CSRFToken string
}

// Login authenticates against /auth/login and returns the session cookie
// plus the CSRF token from the response body.
func (ts *TestServer) Login(email, password string) (*AdminSession, error) {
	resp, err := ts.Request(http.MethodPost, "/auth/login", map[string]interface{}{
		"email":    email,
		"password": password,
	}, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("login failed with status %d", resp.StatusCode)
	}

	var sessionResp struct {
		CSRFToken string `json:"csrf_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&sessionResp); err != nil {
		return nil, fmt.Errorf("failed to parse login response: %w", err)
	}

	for _, cookie := range resp.Cookies() {
		if cookie.Name == auth.SessionCookieName {
			return &AdminSession{Cookie: cookie, CSRFToken: sessionResp.CSRFToken}, nil
		}
	}
	return nil, fmt.Errorf("login response did not set a session cookie")
}

// RequestAsAdmin makes a request carrying the session cookie and CSRF token
func (ts *TestServer) RequestAsAdmin(session *AdminSession, method, path string, body interface{}) (*http.Response, error) {
	url := ts.Server.URL + path

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Real-IP", nextClientIP())
	req.Header.Set("X-CSRF-Token", session.CSRFToken)
	req.AddCookie(session.Cookie)

	return http.DefaultClient.Do(req)
}

// ParseJSONResponse parses a JSON response body into target
func ParseJSONResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}

// GetErrorMessage extracts the message field from an error response
func GetErrorMessage(resp *http.Response) (string, error) {
	defer resp.Body.Close()
	var errResp map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		return "", err
	}
	if msg, ok := errResp["message"].(string); ok {
		return msg, nil
	}
	return "", nil
}
