package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/deeprisk/fee-risk-system/internal/core/domain"
)

// tokenClaims is the wire layout of issued credentials.
type tokenClaims struct {
	jwt.RegisteredClaims
	Name     string `json:"name"`
	Role     string `json:"role"`
	TenantID string `json:"tenant_id,omitempty"`
}

// TokenValidator verifies HS256 credentials issued by AuthService.
type TokenValidator struct {
	secret []byte
	now    func() time.Time
}

func NewTokenValidator(jwtSecret string) *TokenValidator {
	return &TokenValidator{secret: []byte(jwtSecret), now: time.Now}
}

// WithClock replaces the clock used for expiry checks.
func (v *TokenValidator) WithClock(now func() time.Time) *TokenValidator {
	v.now = now
	return v
}

// Validate verifies the signature and expiry of token and returns its claims.
// A token is expired once now >= exp.
func (v *TokenValidator) Validate(token string) (*domain.Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrTokenMissing
	}

	claims := &tokenClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(v.now),
	)
	_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, classifyTokenError(err)
	}

	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenMalformed, err)
	}
	out := &domain.Claims{
		Subject:  claims.Subject,
		Name:     claims.Name,
		Role:     role,
		TenantID: claims.TenantID,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	if err := out.Identity().Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenMalformed, err)
	}
	return out, nil
}

func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return domain.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return domain.ErrTokenBadSignature
	default:
		return fmt.Errorf("%w: %v", domain.ErrTokenMalformed, err)
	}
}
