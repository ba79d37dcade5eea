package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tbeaumont/folio/internal/auth"
	"github.com/tbeaumont/folio/internal/models"
	"github.com/tbeaumont/folio/internal/services"
	pkghttp "github.com/tbeaumont/folio/pkg/http"
)

// NewTestRequest creates an HTTP request with a JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithSessionContext stores a session ID on the request context the way
// RequireSession does, for exercising protected handlers directly
func WithSessionContext(req *http.Request, sessionID string) *http.Request {
	return req.WithContext(auth.ContextWithSessionID(req.Context(), sessionID))
}

// AssertJSONResponse checks response status and decodes the JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that the response is a well-formed error
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// TestSession builds an authenticated session for handler tests
func TestSession(adminID string) *models.Session {
	return &models.Session{
		AdminID:       adminID,
		Name:          "Test Admin",
		Email:         "admin@example.com",
		Authenticated: true,
		CSRFToken:     "csrf-token-abc",
		LastActivity:  time.Now(),
		CreatedAt:     time.Now(),
	}
}

// MockAuthGuard implements AuthGuard for testing
type MockAuthGuard struct {
	LoginFunc          func(ctx context.Context, sessionID, email, password string, remember bool, ipAddress, userAgent string) (string, error)
	LogoutFunc         func(ctx context.Context, sessionID string)
	SessionFunc        func(sessionID string) (*models.Session, bool)
	IssueCSRFTokenFunc func(sessionID string) (string, error)
	ChangePasswordFunc func(ctx context.Context, sessionID, currentPassword, newPassword string) error
}

func (m *MockAuthGuard) Login(ctx context.Context, sessionID, email, password string, remember bool, ipAddress, userAgent string) (string, error) {
	if m.LoginFunc == nil {
		return "", models.ErrInvalidCredentials
	}
	return m.LoginFunc(ctx, sessionID, email, password, remember, ipAddress, userAgent)
}

func (m *MockAuthGuard) Logout(ctx context.Context, sessionID string) {
	if m.LogoutFunc != nil {
		m.LogoutFunc(ctx, sessionID)
	}
}

func (m *MockAuthGuard) Session(sessionID string) (*models.Session, bool) {
	if m.SessionFunc == nil {
		return nil, false
	}
	return m.SessionFunc(sessionID)
}

func (m *MockAuthGuard) IssueCSRFToken(sessionID string) (string, error) {
	if m.IssueCSRFTokenFunc == nil {
		return "", models.ErrUnauthorized
	}
	return m.IssueCSRFTokenFunc(sessionID)
}

func (m *MockAuthGuard) ChangePassword(ctx context.Context, sessionID, currentPassword, newPassword string) error {
	if m.ChangePasswordFunc == nil {
		return models.ErrUnauthorized
	}
	return m.ChangePasswordFunc(ctx, sessionID, currentPassword, newPassword)
}

// MockPasswordResetter implements PasswordResetter for testing
type MockPasswordResetter struct {
	RequestResetFunc  func(ctx context.Context, email string) error
	CompleteResetFunc func(ctx context.Context, token, newPassword string) error
}

func (m *MockPasswordResetter) RequestReset(ctx context.Context, email string) error {
	if m.RequestResetFunc == nil {
		return nil
	}
	return m.RequestResetFunc(ctx, email)
}

func (m *MockPasswordResetter) CompleteReset(ctx context.Context, token, newPassword string) error {
	if m.CompleteResetFunc == nil {
		return models.ErrUnauthorized
	}
	return m.CompleteResetFunc(ctx, token, newPassword)
}

// MockSessionReader implements SessionReader for testing; it resolves every
// session ID to the same admin session
type MockSessionReader struct {
	SessionFunc func(sessionID string) (*models.Session, bool)
}

func (m *MockSessionReader) Session(sessionID string) (*models.Session, bool) {
	if m.SessionFunc == nil {
		return TestSession("admin-1"), true
	}
	return m.SessionFunc(sessionID)
}

// MockProjectManager implements ProjectManager for testing
type MockProjectManager struct {
	GetFunc       func(ctx context.Context, id string) (*models.Project, error)
	GetBySlugFunc func(ctx context.Context, slug string) (*models.Project, error)
	ListFunc      func(ctx context.Context, featuredOnly bool) ([]*models.Project, error)
	CreateFunc    func(ctx context.Context, adminID string, input services.ProjectInput) (*models.Project, error)
	UpdateFunc    func(ctx context.Context, adminID, id string, input services.ProjectInput) (*models.Project, error)
	DeleteFunc    func(ctx context.Context, adminID, id string) error
}

func (m *MockProjectManager) Get(ctx context.Context, id string) (*models.Project, error) {
	if m.GetFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetFunc(ctx, id)
}

func (m *MockProjectManager) GetBySlug(ctx context.Context, slug string) (*models.Project, error) {
	if m.GetBySlugFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetBySlugFunc(ctx, slug)
}

func (m *MockProjectManager) List(ctx context.Context, featuredOnly bool) ([]*models.Project, error) {
	if m.ListFunc == nil {
		return nil, nil
	}
	return m.ListFunc(ctx, featuredOnly)
}

func (m *MockProjectManager) Create(ctx context.Context, adminID string, input services.ProjectInput) (*models.Project, error) {
	if m.CreateFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.CreateFunc(ctx, adminID, input)
}

func (m *MockProjectManager) Update(ctx context.Context, adminID, id string, input services.ProjectInput) (*models.Project, error) {
	if m.UpdateFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UpdateFunc(ctx, adminID, id, input)
}

func (m *MockProjectManager) Delete(ctx context.Context, adminID, id string) error {
	if m.DeleteFunc == nil {
		return models.ErrNotFound
	}
	return m.DeleteFunc(ctx, adminID, id)
}

// MockBlogManager implements BlogManager for testing
type MockBlogManager struct {
	GetFunc                func(ctx context.Context, id string) (*models.Post, error)
	GetPublishedBySlugFunc func(ctx context.Context, slug string) (*models.Post, error)
	ListFunc               func(ctx context.Context, publishedOnly bool, limit, offset int) ([]*models.Post, error)
	CreateFunc             func(ctx context.Context, adminID string, input services.PostInput) (*models.Post, error)
	UpdateFunc             func(ctx context.Context, adminID, id string, input services.PostInput) (*models.Post, error)
	SetPublishedFunc       func(ctx context.Context, adminID, id string, published bool) (*models.Post, error)
	DeleteFunc             func(ctx context.Context, adminID, id string) error
}

func (m *MockBlogManager) Get(ctx context.Context, id string) (*models.Post, error) {
	if m.GetFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetFunc(ctx, id)
}

func (m *MockBlogManager) GetPublishedBySlug(ctx context.Context, slug string) (*models.Post, error) {
	if m.GetPublishedBySlugFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetPublishedBySlugFunc(ctx, slug)
}

func (m *MockBlogManager) List(ctx context.Context, publishedOnly bool, limit, offset int) ([]*models.Post, error) {
	if m.ListFunc == nil {
		return nil, nil
	}
	return m.ListFunc(ctx, publishedOnly, limit, offset)
}

func (m *MockBlogManager) Create(ctx context.Context, adminID string, input services.PostInput) (*models.Post, error) {
	if m.CreateFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.CreateFunc(ctx, adminID, input)
}

func (m *MockBlogManager) Update(ctx context.Context, adminID, id string, input services.PostInput) (*models.Post, error) {
	if m.UpdateFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UpdateFunc(ctx, adminID, id, input)
}

func (m *MockBlogManager) SetPublished(ctx context.Context, adminID, id string, published bool) (*models.Post, error) {
	if m.SetPublishedFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.SetPublishedFunc(ctx, adminID, id, published)
}

func (m *MockBlogManager) Delete(ctx context.Context, adminID, id string) error {
	if m.DeleteFunc == nil {
		return models.ErrNotFound
	}
	return m.DeleteFunc(ctx, adminID, id)
}

// MockContactManager implements ContactManager for testing
type MockContactManager struct {
	SubmitFunc   func(ctx context.Context, name, email, subject, body, ipAddress string) (*models.Message, error)
	GetFunc      func(ctx context.Context, id string) (*models.Message, error)
	ListFunc     func(ctx context.Context, unreadOnly bool, limit, offset int) ([]*models.Message, error)
	MarkReadFunc func(ctx context.Context, id string) error
	DeleteFunc   func(ctx context.Context, id string) error
}

func (m *MockContactManager) Submit(ctx context.Context, name, email, subject, body, ipAddress string) (*models.Message, error) {
	if m.SubmitFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.SubmitFunc(ctx, name, email, subject, body, ipAddress)
}

func (m *MockContactManager) Get(ctx context.Context, id string) (*models.Message, error) {
	if m.GetFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetFunc(ctx, id)
}

func (m *MockContactManager) List(ctx context.Context, unreadOnly bool, limit, offset int) ([]*models.Message, error) {
	if m.ListFunc == nil {
		return nil, nil
	}
	return m.ListFunc(ctx, unreadOnly, limit, offset)
}

func (m *MockContactManager) MarkRead(ctx context.Context, id string) error {
	if m.MarkReadFunc == nil {
		return models.ErrNotFound
	}
	return m.MarkReadFunc(ctx, id)
}

func (m *MockContactManager) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc == nil {
		return models.ErrNotFound
	}
	return m.DeleteFunc(ctx, id)
}

// MockSettingsManager implements SettingsManager for testing
type MockSettingsManager struct {
	GetAllFunc func(ctx context.Context) (map[string]string, error)
	UpdateFunc func(ctx context.Context, adminID string, values map[string]string) error
}

func (m *MockSettingsManager) GetAll(ctx context.Context) (map[string]string, error) {
	if m.GetAllFunc == nil {
		return map[string]string{}, nil
	}
	return m.GetAllFunc(ctx)
}

func (m *MockSettingsManager) Update(ctx context.Context, adminID string, values map[string]string) error {
	if m.UpdateFunc == nil {
		return nil
	}
	return m.UpdateFunc(ctx, adminID, values)
}

// MockDashboardReader implements DashboardReader for testing
type MockDashboardReader struct {
	StatsFunc          func(ctx context.Context) (*services.DashboardStats, error)
	RecentActivityFunc func(ctx context.Context, limit int) ([]*models.Activity, error)
}

func (m *MockDashboardReader) Stats(ctx context.Context) (*services.DashboardStats, error) {
	if m.StatsFunc == nil {
		return &services.DashboardStats{}, nil
	}
	return m.StatsFunc(ctx)
}

func (m *MockDashboardReader) RecentActivity(ctx context.Context, limit int) ([]*models.Activity, error) {
	if m.RecentActivityFunc == nil {
		return nil, nil
	}
	return m.RecentActivityFunc(ctx, limit)
}
