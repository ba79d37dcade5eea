package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tbeaumont/folio/internal/models"
)

// ResetTokenManager mints and validates single-use password-reset tokens.
// Tokens are HS256 JWTs carrying a fingerprint of the current password
// hash; validation fails once the password changes, so a delivered link
// cannot be replayed after a successful reset.
type ResetTokenManager struct {
	secret string
	ttl    time.Duration
}

// NewResetTokenManager creates a new ResetTokenManager
func NewResetTokenManager(secret string, ttl time.Duration) *ResetTokenManager {
	return &ResetTokenManager{secret: secret, ttl: ttl}
}

// PasswordFingerprint derives a short stable digest of a password hash for
// embedding in reset-token claims.
func PasswordFingerprint(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash))
	return hex.EncodeToString(sum[:8])
}

// Generate creates a reset token for the admin, bound to their current
// password hash.
func (rm *ResetTokenManager) Generate(adminID, passwordHash string, now time.Time) (string, error) {
	claims := &models.ResetTokenClaims{
		AdminID:     adminID,
		Fingerprint: PasswordFingerprint(passwordHash),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(rm.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(rm.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign reset token: %w", err)
	}

	return tokenString, nil
}

// Validate verifies a reset token's signature and expiry and returns its
// claims. The caller still has to check the fingerprint against the
// admin's current password hash.
func (rm *ResetTokenManager) Validate(tokenString string) (*models.ResetTokenClaims, error) {
	claims := &models.ResetTokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(rm.secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse reset token: %w", err)
	}

	if !token.Valid {
		return nil, models.ErrUnauthorized
	}

	if claims.AdminID == "" || claims.Fingerprint == "" {
		return nil, fmt.Errorf("invalid reset token: missing claims")
	}

	return claims, nil
}
