// Package auth provides session tokens, OAuth providers, and the request
// authentication middleware.
//
// AUTHENTICATION FLOW OVERVIEW:
// 1. User visits /auth/{provider}/login → redirected to Google/GitHub
// 2. Provider calls back /auth/{provider}/callback with a code
// 3. Server exchanges the code for the user's profile, upserts the user
//    in the DB keyed by email
// 4. Server issues a JWT access token, stores it in an HttpOnly cookie
// 5. On subsequent API calls, middleware reads the cookie, validates the
//    JWT, and sets the userID in the request context
//
// The JWT is stateless — the server keeps no session table. The signed
// token carries the internal user ID in its "sub" claim, and the HMAC
// signature makes it tamper-evident without any DB lookup.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "muzer"

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret used to sign and verify tokens. The same
// secret must be used for both operations.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims embeds jwt.RegisteredClaims; "sub" carries the internal user ID.
type claims struct {
	jwt.RegisteredClaims
}

// Generate creates and signs a new JWT access token for the given userID.
//
// Token lifetime: 7 days — sign-in is a full OAuth round trip, so the
// session cookie lives considerably longer than an API-only token would.
// Signing algorithm: HS256 (symmetric, single-deployment friendly).
func (s *TokenService) Generate(userID string) (string, error) {
	return s.GenerateWithDuration(userID, 7*24*time.Hour)
}

// GenerateWithDuration creates a token with a custom expiry duration.
// Used in tests and for issuing shorter-lived tokens.
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a JWT string and returns the userID from
// the "sub" claim.
//
// The jwt library checks the signature, expiry, and issuer. Passing
// jwt.WithValidMethods pins the algorithm to HS256 so a token signed
// with "none" (or an RSA public key used as an HMAC secret) is rejected.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: token expired")
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("auth: invalid token claims")
	}

	if c.Subject == "" {
		return "", fmt.Errorf("auth: token has no subject")
	}

	return c.Subject, nil
}
