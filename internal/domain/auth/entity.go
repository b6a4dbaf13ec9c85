package auth

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrInvalidCredentials indicates a login failure. Unknown email and wrong
	// password both map to it.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrMissingToken means the request carried no well-formed bearer token.
	ErrMissingToken = errors.New("missing bearer token")
	// ErrTokenInvalid means a supplied token failed signature or format checks.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired means a correctly signed token is past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrForbiddenRole indicates the authenticated role may not access the resource.
	ErrForbiddenRole = errors.New("role not permitted")
	// ErrEmailExists signals a duplicate email registration.
	ErrEmailExists = errors.New("email already registered")
	// ErrUserNotFound indicates missing user.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidRole indicates the provided role is not supported.
	ErrInvalidRole = errors.New("invalid role")
	// ErrLoginRateLimited indicates too many login attempts for one account.
	ErrLoginRateLimited = errors.New("login rate limited")
)

// Role identifies which dashboard and resources a user may access.
type Role string

const (
	RoleStudent  Role = "student"
	RoleLecturer Role = "lecturer"
	RoleProdi    Role = "prodi"
	RoleIndustry Role = "industry"
	RoleAdmin    Role = "admin"
)

// Roles lists every supported role in dashboard order.
var Roles = []Role{RoleStudent, RoleLecturer, RoleProdi, RoleIndustry, RoleAdmin}

// ParseRole validates raw input against the supported roles.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.TrimSpace(strings.ToLower(raw)))
	if !role.Valid() {
		return "", ErrInvalidRole
	}
	return role, nil
}

// Valid reports whether r is one of the supported roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleLecturer, RoleProdi, RoleIndustry, RoleAdmin:
		return true
	default:
		return false
	}
}

// User models an identity held by the directory.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	AvatarURL    string    `json:"avatarUrl"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

// Credentials captures raw credential input for login.
type Credentials struct {
	Email    string
	Password string
}

// Claims is the decoded payload of a session token.
type Claims struct {
	SubjectID string
	Email     string
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the claims are no longer valid at now.
func (c Claims) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
