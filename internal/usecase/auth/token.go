package auth

import (
	"context"

	domain "eportfolio/backend/internal/domain/auth"
)

// TokenManager abstracts token issuance and verification.
type TokenManager interface {
	Issue(user *domain.User) (string, domain.Claims, error)
	Verify(token string) (domain.Claims, error)
}

// LoginLimiter throttles repeated login attempts for one account.
// Allow returns domain.ErrLoginRateLimited once the budget is spent.
type LoginLimiter interface {
	Allow(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}
