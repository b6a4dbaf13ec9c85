package token

import (
	"errors"
	"fmt"
	"time"

	domain "eportfolio/backend/internal/domain/auth"
	usecase "eportfolio/backend/internal/usecase/auth"

	"github.com/golang-jwt/jwt/v5"
)

// Lifetime is the fixed validity window of every issued token.
const Lifetime = time.Hour

// JWTManager issues and validates HS256 session tokens.
type JWTManager struct {
	secret  []byte
	issuer  string
	nowFunc func() time.Time
}

// Option customises a JWTManager.
type Option func(*JWTManager)

// WithClock overrides the time source used for issuance and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *JWTManager) {
		m.nowFunc = now
	}
}

// NewJWTManager constructs a manager with the provided secret and issuer.
func NewJWTManager(secret, issuer string, opts ...Option) (*JWTManager, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	m := &JWTManager{
		secret:  []byte(secret),
		issuer:  issuer,
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Ensure JWTManager implements the TokenManager interface.
var _ usecase.TokenManager = (*JWTManager)(nil)

// Claims is the signed token payload.
type Claims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func (c *Claims) toDomain() domain.Claims {
	out := domain.Claims{
		SubjectID: c.UserID,
		Email:     c.Email,
		Role:      domain.Role(c.Role),
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time.UTC()
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time.UTC()
	}
	return out
}

// Issue signs a token for user that expires Lifetime after issuance.
func (m *JWTManager) Issue(user *domain.User) (string, domain.Claims, error) {
	if user == nil {
		return "", domain.Claims{}, errors.New("user is required")
	}
	now := m.nowFunc().UTC()
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(Lifetime)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", domain.Claims{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims.toDomain(), nil
}

// Verify checks the signature first and expiry second. A foreign signature is
// always reported as ErrTokenInvalid, even when the payload is also expired.
func (m *JWTManager) Verify(tokenString string) (domain.Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.nowFunc),
	)

	var claims Claims
	token, err := parser.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return domain.Claims{}, fmt.Errorf("%w: %v", domain.ErrTokenExpired, err)
		}
		return domain.Claims{}, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}
	if !token.Valid {
		return domain.Claims{}, domain.ErrTokenInvalid
	}

	out := claims.toDomain()
	if out.SubjectID == "" || !out.Role.Valid() {
		return domain.Claims{}, fmt.Errorf("%w: incomplete claims", domain.ErrTokenInvalid)
	}
	return out, nil
}

// DecodeUnverified reads the claims of tokenString without checking its
// signature or expiry. Clients use it to learn their own role; it must never
// gate access.
func DecodeUnverified(tokenString string) (domain.Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, &claims); err != nil {
		return domain.Claims{}, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}
	out := claims.toDomain()
	if out.SubjectID == "" || !out.Role.Valid() || out.ExpiresAt.IsZero() {
		return domain.Claims{}, fmt.Errorf("%w: incomplete claims", domain.ErrTokenInvalid)
	}
	return out, nil
}
