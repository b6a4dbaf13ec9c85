package auth

import (
	"context"
	"errors"
	"fmt"

	domain "eportfolio/backend/internal/domain/auth"
)

// fallbackDummyHash is used only if the hasher cannot produce its own dummy hash.
const fallbackDummyHash = "$2a$10$X/4Zo.A1v5IutBL8NVVHfeqLIBJzn4jmEFwSKQnvpvl5iMU9phPL."

const dummyPassword = "eportfolio-unknown-account"

// Service coordinates authentication workflows between domain and infrastructure.
type Service struct {
	users   domain.Directory
	hasher  domain.PasswordHasher
	tokens  TokenManager
	limiter LoginLimiter

	// dummyHash is compared against when the email is unknown. It is hashed
	// by the configured hasher so both failure paths cost the same.
	dummyHash string
}

// Option customises a Service.
type Option func(*Service)

// WithLoginLimiter enables login throttling.
func WithLoginLimiter(limiter LoginLimiter) Option {
	return func(s *Service) {
		s.limiter = limiter
	}
}

// NewService constructs an auth service.
func NewService(users domain.Directory, hasher domain.PasswordHasher, tokens TokenManager, opts ...Option) *Service {
	s := &Service{
		users:  users,
		hasher: hasher,
		tokens: tokens,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.dummyHash = fallbackDummyHash
	if hash, err := hasher.Hash(dummyPassword); err == nil {
		s.dummyHash = hash
	}
	return s
}

// Verify checks an email/password pair against the directory. Email matching
// is exact. Unknown accounts and wrong passwords are indistinguishable.
func (s *Service) Verify(ctx context.Context, creds domain.Credentials) (*domain.User, error) {
	if creds.Email == "" || creds.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, creds.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			_ = s.hasher.Compare(s.dummyHash, creds.Password)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup identity: %w", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, creds.Password); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	return user, nil
}

// Login validates credentials and returns a signed token plus the sanitized user.
func (s *Service) Login(ctx context.Context, creds domain.Credentials) (string, *domain.User, error) {
	if s.limiter != nil && creds.Email != "" {
		if err := s.limiter.Allow(ctx, creds.Email); err != nil {
			if errors.Is(err, domain.ErrLoginRateLimited) {
				return "", nil, err
			}
			return "", nil, fmt.Errorf("login throttle: %w", err)
		}
	}

	user, err := s.Verify(ctx, creds)
	if err != nil {
		return "", nil, err
	}

	token, _, err := s.tokens.Issue(user)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, creds.Email); err != nil {
			return "", nil, fmt.Errorf("login throttle: %w", err)
		}
	}

	return token, sanitizeUser(user), nil
}

// VerifyToken validates a bearer token and returns its claims. It does not
// consult the directory: a token stays valid for its whole lifetime.
func (s *Service) VerifyToken(_ context.Context, token string) (domain.Claims, error) {
	if token == "" {
		return domain.Claims{}, domain.ErrMissingToken
	}
	return s.tokens.Verify(token)
}

// Authorize checks that claims grant access to a resource owned by role.
func Authorize(claims domain.Claims, role domain.Role) error {
	if claims.Role != role {
		return domain.ErrForbiddenRole
	}
	return nil
}

func sanitizeUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	copy := *u
	copy.PasswordHash = ""
	return &copy
}
