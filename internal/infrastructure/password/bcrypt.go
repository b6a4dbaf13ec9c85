package password

import (
	domain "eportfolio/backend/internal/domain/auth"

	"golang.org/x/crypto/bcrypt"
)

// Ensure Bcrypt implements the PasswordHasher interface.
var _ domain.PasswordHasher = (*Bcrypt)(nil)

// Bcrypt hashes and compares passwords with a fixed cost.
type Bcrypt struct {
	cost int
}

// NewBcrypt constructs a hasher. Costs outside bcrypt's range fall back to the default.
func NewBcrypt(cost int) *Bcrypt {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Bcrypt{cost: cost}
}

// Hash returns the salted bcrypt hash of password.
func (b *Bcrypt) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Compare checks password against hash in constant time.
func (b *Bcrypt) Compare(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
