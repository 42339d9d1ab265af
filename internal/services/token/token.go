// Package token issues and verifies the signed session tokens returned
// by a successful login.
//
// A token carries exactly the account identifier (as the subject) plus the
// standard issued/expiry claims. There is no refresh flow: a consumer must
// re-authenticate after expiry.
package token

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken     = errors.New("token: invalid token")
	ErrExpiredToken     = errors.New("token: token has expired")
	ErrTokenNotFound    = errors.New("token: token not found")
	ErrInvalidClaims    = errors.New("token: invalid claims")
	ErrTokenNotYetValid = errors.New("token: token not yet valid")
)

const defaultTTL = 24 * time.Hour

// TokenService creates and validates session tokens.
// Create one instance and reuse it throughout the application.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	parser *jwt.Parser
}

// NewTokenService creates a TokenService from environment configuration:
//   - JWT_ACCESS_SECRET:    signing secret (required in production)
//   - JWT_ISSUER:           token issuer name (default "links2code")
//   - JWT_ACCESS_TOKEN_TTL: expiry duration, Go format (default "24h")
func NewTokenService() *TokenService {
	secret := os.Getenv("JWT_ACCESS_SECRET")
	if secret == "" {
		secret = "default-access-secret-change-in-production!"
	}

	issuer := os.Getenv("JWT_ISSUER")
	if issuer == "" {
		issuer = "links2code"
	}

	ttl := defaultTTL
	if v := os.Getenv("JWT_ACCESS_TOKEN_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
			ttl = parsed
		}
	}

	parser := jwt.NewParser(
		// Only accept HS256 - prevents "algorithm confusion" attacks
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithIssuer(issuer),
	)

	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
		parser: parser,
	}
}

// GenerateToken mints a signed session token for the given account ID.
// Call this only after the credentials have been verified.
func (s *TokenService) GenerateToken(ctx context.Context, accountID string) (string, error) {
	now := time.Now()

	claims := jwt.RegisteredClaims{
		Subject:   accountID,
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		NotBefore: jwt.NewNumericDate(now),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("creating session token: %w", err)
	}

	return signed, nil
}

// ParseToken validates a session token and returns its claims.
// The claims' Subject is the account ID the token was issued for.
func (s *TokenService) ParseToken(ctx context.Context, tokenString string) (*jwt.RegisteredClaims, error) {
	if tokenString == "" {
		return nil, ErrTokenNotFound
	}

	claims := &jwt.RegisteredClaims{}

	tok, err := s.parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})

	if err != nil {
		return nil, convertError(err)
	}

	if !tok.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// convertError transforms jwt library errors into our sentinel errors.
func convertError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpiredToken, err)
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return fmt.Errorf("%w: %v", ErrTokenNotYetValid, err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: token is malformed", ErrInvalidToken)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: signature is invalid", ErrInvalidToken)
	case errors.Is(err, jwt.ErrTokenInvalidClaims):
		return fmt.Errorf("%w: %v", ErrInvalidClaims, err)
	default:
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
}
