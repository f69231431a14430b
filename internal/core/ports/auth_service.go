package ports

import (
	"context"

	"github.com/deeprisk/fee-risk-system/internal/core/domain"
)

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	Username    string
	Password    string
	DisplayName string
	Role        string
	TenantID    string
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*domain.User, error)
	Login(ctx context.Context, username, password string) (string, *domain.User, error)
}

// TokenValidator verifies a bearer credential and extracts its claims.
type TokenValidator interface {
	Validate(token string) (*domain.Claims, error)
}
