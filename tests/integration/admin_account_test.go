package integration

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/tbeaumont/folio/internal/models"
	"github.com/tbeaumont/folio/internal/repositories"
	"github.com/tbeaumont/folio/pkg/auth"
)

// Creating an admin through the repository (the bootstrap path) must leave
// the bcrypt hash byte-for-byte intact and store the email lowercased.
func TestAdminCreatePreservesPasswordHash(t *testing.T) {
	ctx := context.Background()
	adminRepo := repositories.NewAdminRepository(testDB.DB)

	email, password := TestAccount("repocreate")
	mixedCase := "Repo.Create+" + email

	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	created, err := adminRepo.Create(ctx, &models.Admin{
		Name:         "Repo Created Admin",
		Email:        mixedCase,
		PasswordHash: hash,
		Active:       true,
	})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}

	stored, err := adminRepo.GetByEmail(ctx, mixedCase)
	if err != nil {
		t.Fatalf("get admin by email: %v", err)
	}
	if stored.ID != created.ID {
		t.Fatalf("expected to read back admin %s, got %s", created.ID, stored.ID)
	}
	if stored.Email != strings.ToLower(mixedCase) {
		t.Errorf("expected stored email %q, got %q", strings.ToLower(mixedCase), stored.Email)
	}
	if stored.PasswordHash != hash {
		t.Errorf("stored password hash was altered: %q != %q", stored.PasswordHash, hash)
	}
	if err := auth.ComparePassword(stored.PasswordHash, password); err != nil {
		t.Errorf("stored hash no longer verifies the password: %v", err)
	}

	session, err := testServer.Login(mixedCase, password)
	if err != nil {
		t.Fatalf("login as repository-created admin: %v", err)
	}

	resp, err := testServer.RequestAsAdmin(session, http.MethodGet, "/admin/session", nil)
	if err != nil {
		t.Fatalf("session request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from /admin/session, got %d", resp.StatusCode)
	}
}
