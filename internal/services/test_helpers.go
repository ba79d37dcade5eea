package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/tbeaumont/folio/internal/models"
	pkglogger "github.com/tbeaumont/folio/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

// MockAdminRepository implements AdminRepository for testing
type MockAdminRepository struct {
	GetByIDFunc        func(ctx context.Context, id string) (*models.Admin, error)
	GetByEmailFunc     func(ctx context.Context, email string) (*models.Admin, error)
	UpdatePasswordFunc func(ctx context.Context, id, passwordHash string) error
	FinalizeLoginFunc  func(ctx context.Context, adminID, email string, at time.Time) error
}

func (m *MockAdminRepository) GetByID(ctx context.Context, id string) (*models.Admin, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockAdminRepository) GetByEmail(ctx context.Context, email string) (*models.Admin, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockAdminRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, passwordHash)
	}
	return nil
}

func (m *MockAdminRepository) FinalizeLogin(ctx context.Context, adminID, email string, at time.Time) error {
	if m.FinalizeLoginFunc != nil {
		return m.FinalizeLoginFunc(ctx, adminID, email, at)
	}
	return nil
}

// MockAttemptRepository implements AttemptRepository for testing. Recorded
// attempts accumulate in Attempts unless RecordFunc overrides the behavior.
type MockAttemptRepository struct {
	RecordFunc              func(ctx context.Context, attempt *models.LoginAttempt) error
	CountRecentFailuresFunc func(ctx context.Context, email string, since time.Time) (int, error)
	ClearFailuresFunc       func(ctx context.Context, email string) error

	Attempts []*models.LoginAttempt
}

func (m *MockAttemptRepository) Record(ctx context.Context, attempt *models.LoginAttempt) error {
	if m.RecordFunc != nil {
		return m.RecordFunc(ctx, attempt)
	}
	m.Attempts = append(m.Attempts, attempt)
	return nil
}

func (m *MockAttemptRepository) CountRecentFailures(ctx context.Context, email string, since time.Time) (int, error) {
	if m.CountRecentFailuresFunc != nil {
		return m.CountRecentFailuresFunc(ctx, email, since)
	}
	count := 0
	for _, attempt := range m.Attempts {
		if attempt.Email == email && !attempt.Success && attempt.AttemptedAt.After(since) {
			count++
		}
	}
	return count, nil
}

func (m *MockAttemptRepository) ClearFailures(ctx context.Context, email string) error {
	if m.ClearFailuresFunc != nil {
		return m.ClearFailuresFunc(ctx, email)
	}
	kept := m.Attempts[:0]
	for _, attempt := range m.Attempts {
		if attempt.Email != email || attempt.Success {
			kept = append(kept, attempt)
		}
	}
	m.Attempts = kept
	return nil
}

// MockActivityRepository implements ActivityRecorder for testing
type MockActivityRepository struct {
	RecordFunc     func(ctx context.Context, activity *models.Activity) error
	ListRecentFunc func(ctx context.Context, limit int) ([]*models.Activity, error)

	Recorded []*models.Activity
}

func (m *MockActivityRepository) Record(ctx context.Context, activity *models.Activity) error {
	if m.RecordFunc != nil {
		return m.RecordFunc(ctx, activity)
	}
	m.Recorded = append(m.Recorded, activity)
	return nil
}

func (m *MockActivityRepository) ListRecent(ctx context.Context, limit int) ([]*models.Activity, error) {
	if m.ListRecentFunc != nil {
		return m.ListRecentFunc(ctx, limit)
	}
	if limit > len(m.Recorded) {
		limit = len(m.Recorded)
	}
	return m.Recorded[:limit], nil
}

// LastActivityType returns the most recently recorded activity type
func (m *MockActivityRepository) LastActivityType() string {
	if len(m.Recorded) == 0 {
		return ""
	}
	return m.Recorded[len(m.Recorded)-1].ActivityType
}

// MockMailer implements Mailer for testing
type MockMailer struct {
	SendContactNotificationFunc func(ctx context.Context, message *models.Message) error
	SendPasswordResetFunc       func(ctx context.Context, email, resetLink string) error

	ResetLinks []string
}

func (m *MockMailer) SendContactNotification(ctx context.Context, message *models.Message) error {
	if m.SendContactNotificationFunc != nil {
		return m.SendContactNotificationFunc(ctx, message)
	}
	return nil
}

func (m *MockMailer) SendPasswordReset(ctx context.Context, email, resetLink string) error {
	if m.SendPasswordResetFunc != nil {
		return m.SendPasswordResetFunc(ctx, email, resetLink)
	}
	m.ResetLinks = append(m.ResetLinks, resetLink)
	return nil
}

// MockProjectRepository implements ProjectRepository for testing
type MockProjectRepository struct {
	GetByIDFunc    func(ctx context.Context, id string) (*models.Project, error)
	GetBySlugFunc  func(ctx context.Context, slug string) (*models.Project, error)
	ListFunc       func(ctx context.Context, featuredOnly bool) ([]*models.Project, error)
	SlugExistsFunc func(ctx context.Context, slug string) (bool, error)
	CreateFunc     func(ctx context.Context, project *models.Project) (*models.Project, error)
	UpdateFunc     func(ctx context.Context, project *models.Project) (*models.Project, error)
	DeleteFunc     func(ctx context.Context, id string) error
}

func (m *MockProjectRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockProjectRepository) GetBySlug(ctx context.Context, slug string) (*models.Project, error) {
	if m.GetBySlugFunc != nil {
		return m.GetBySlugFunc(ctx, slug)
	}
	return nil, models.ErrNotFound
}

func (m *MockProjectRepository) List(ctx context.Context, featuredOnly bool) ([]*models.Project, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, featuredOnly)
	}
	return []*models.Project{}, nil
}

func (m *MockProjectRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	if m.SlugExistsFunc != nil {
		return m.SlugExistsFunc(ctx, slug)
	}
	return false, nil
}

func (m *MockProjectRepository) Create(ctx context.Context, project *models.Project) (*models.Project, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, project)
	}
	created := *project
	created.ID = "project_test"
	return &created, nil
}

func (m *MockProjectRepository) Update(ctx context.Context, project *models.Project) (*models.Project, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, project)
	}
	return project, nil
}

func (m *MockProjectRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockPostRepository implements PostRepository for testing
type MockPostRepository struct {
	GetByIDFunc    func(ctx context.Context, id string) (*models.Post, error)
	GetBySlugFunc  func(ctx context.Context, slug string) (*models.Post, error)
	ListFunc       func(ctx context.Context, publishedOnly bool, limit, offset int) ([]*models.Post, error)
	SlugExistsFunc func(ctx context.Context, slug string) (bool, error)
	CreateFunc     func(ctx context.Context, post *models.Post) (*models.Post, error)
	UpdateFunc     func(ctx context.Context, post *models.Post) (*models.Post, error)
	DeleteFunc     func(ctx context.Context, id string) error
}

func (m *MockPostRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockPostRepository) GetBySlug(ctx context.Context, slug string) (*models.Post, error) {
	if m.GetBySlugFunc != nil {
		return m.GetBySlugFunc(ctx, slug)
	}
	return nil, models.ErrNotFound
}

func (m *MockPostRepository) List(ctx context.Context, publishedOnly bool, limit, offset int) ([]*models.Post, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, publishedOnly, limit, offset)
	}
	return []*models.Post{}, nil
}

func (m *MockPostRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	if m.SlugExistsFunc != nil {
		return m.SlugExistsFunc(ctx, slug)
	}
	return false, nil
}

func (m *MockPostRepository) Create(ctx context.Context, post *models.Post) (*models.Post, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, post)
	}
	created := *post
	created.ID = "post_test"
	return &created, nil
}

func (m *MockPostRepository) Update(ctx context.Context, post *models.Post) (*models.Post, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, post)
	}
	return post, nil
}

func (m *MockPostRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockMessageRepository implements MessageRepository for testing
type MockMessageRepository struct {
	CreateFunc   func(ctx context.Context, message *models.Message) (*models.Message, error)
	GetByIDFunc  func(ctx context.Context, id string) (*models.Message, error)
	ListFunc     func(ctx context.Context, unreadOnly bool, limit, offset int) ([]*models.Message, error)
	MarkReadFunc func(ctx context.Context, id string) error
	DeleteFunc   func(ctx context.Context, id string) error
}

func (m *MockMessageRepository) Create(ctx context.Context, message *models.Message) (*models.Message, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, message)
	}
	created := *message
	created.ID = "message_test"
	return &created, nil
}

func (m *MockMessageRepository) GetByID(ctx context.Context, id string) (*models.Message, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockMessageRepository) List(ctx context.Context, unreadOnly bool, limit, offset int) ([]*models.Message, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, unreadOnly, limit, offset)
	}
	return []*models.Message{}, nil
}

func (m *MockMessageRepository) MarkRead(ctx context.Context, id string) error {
	if m.MarkReadFunc != nil {
		return m.MarkReadFunc(ctx, id)
	}
	return nil
}

func (m *MockMessageRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockSettingRepository implements SettingRepository for testing
type MockSettingRepository struct {
	GetFunc    func(ctx context.Context, key string) (*models.Setting, error)
	GetAllFunc func(ctx context.Context) (map[string]string, error)
	UpsertFunc func(ctx context.Context, key, value string) error

	Values map[string]string
}

func (m *MockSettingRepository) Get(ctx context.Context, key string) (*models.Setting, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	value, ok := m.Values[key]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &models.Setting{Key: key, Value: value}, nil
}

func (m *MockSettingRepository) GetAll(ctx context.Context) (map[string]string, error) {
	if m.GetAllFunc != nil {
		return m.GetAllFunc(ctx)
	}
	return m.Values, nil
}

func (m *MockSettingRepository) Upsert(ctx context.Context, key, value string) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, key, value)
	}
	if m.Values == nil {
		m.Values = make(map[string]string)
	}
	m.Values[key] = value
	return nil
}

// fakeClock is a manually advanced Clock for timeout and lockout tests
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var (
	testHashOnce sync.Once
	testHash     string
)

// testPasswordHash returns a bcrypt hash of "CorrectHorse99" computed once
// per test run. MinCost keeps the suite fast; production hashing cost is
// exercised separately in pkg/auth.
func testPasswordHash() string {
	testHashOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte("CorrectHorse99"), bcrypt.MinCost)
		if err != nil {
			panic(err)
		}
		testHash = string(hash)
	})
	return testHash
}

const testPassword = "CorrectHorse99"

// NewTestAdmin creates an active admin whose password is testPassword
func NewTestAdmin(id, email, name string) *models.Admin {
	now := time.Now()
	return &models.Admin{
		ID:           id,
		Email:        email,
		Name:         name,
		PasswordHash: testPasswordHash(),
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NewTestAdminInactive creates a deactivated admin
func NewTestAdminInactive(id, email, name string) *models.Admin {
	admin := NewTestAdmin(id, email, name)
	admin.Active = false
	return admin
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAuditLogger() *pkglogger.AuditLogger {
	return pkglogger.NewAuditLogger(testLogger())
}

func testGuardConfig() AuthGuardConfig {
	return AuthGuardConfig{
		SessionTimeout:     time.Hour,
		MaxLoginAttempts:   5,
		LockoutWindow:      15 * time.Minute,
		RememberMeDuration: 720 * time.Hour,
	}
}
