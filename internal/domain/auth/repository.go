package auth

import "context"

// Directory is the identity store consulted for credential verification.
// Lookups are read-only from the authentication path.
type Directory interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	List(ctx context.Context, filter UserFilter) ([]*User, error)
}

// PasswordHasher hashes and compares credentials.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// UserFilter allows narrowing user queries.
type UserFilter struct {
	Role Role
}
