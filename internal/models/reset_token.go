package models

import "github.com/golang-jwt/jwt/v5"

// ResetTokenClaims are the claims carried by a password-reset token. The
// fingerprint binds the token to the password hash it was issued against,
// so a token dies the moment the password changes.
type ResetTokenClaims struct {
	AdminID     string `json:"admin_id"`
	Fingerprint string `json:"fpt"`
	jwt.RegisteredClaims
}
