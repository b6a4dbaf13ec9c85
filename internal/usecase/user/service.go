package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "eportfolio/backend/internal/domain/auth"

	"github.com/google/uuid"
)

// DemoPassword is the shared password of every seeded demo account.
const DemoPassword = "password123"

// ErrInvalidInput marks a request that failed field validation.
var ErrInvalidInput = errors.New("invalid input")

// Service provides directory administration use cases.
type Service struct {
	repo    domain.Directory
	hasher  domain.PasswordHasher
	nowFunc func() time.Time
}

// NewService constructs a user service around the provided directory.
func NewService(repo domain.Directory, hasher domain.PasswordHasher) *Service {
	return &Service{
		repo:    repo,
		hasher:  hasher,
		nowFunc: time.Now,
	}
}

// Filter captures supported filters for listing users.
type Filter struct {
	Role string
}

// CreateInput defines the payload to create a new user.
type CreateInput struct {
	Email     string
	Name      string
	Password  string
	Role      string
	AvatarURL string
}

// List returns users matching the supplied filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]*domain.User, error) {
	domainFilter := domain.UserFilter{}
	if strings.TrimSpace(filter.Role) != "" {
		role, err := domain.ParseRole(filter.Role)
		if err != nil {
			return nil, err
		}
		domainFilter.Role = role
	}

	users, err := s.repo.List(ctx, domainFilter)
	if err != nil {
		return nil, err
	}
	return sanitizeUsers(users), nil
}

// Get retrieves a single user by its identifier.
func (s *Service) Get(ctx context.Context, id string) (*domain.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

// Create persists a new user. The email is stored exactly as given, since
// login matches it case-sensitively.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.User, error) {
	email := input.Email
	name := strings.TrimSpace(input.Name)
	if strings.TrimSpace(email) == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if input.Password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}

	role, err := domain.ParseRole(input.Role)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hashed, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.nowFunc().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		Role:         role,
		PasswordHash: hashed,
		AvatarURL:    strings.TrimSpace(input.AvatarURL),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return sanitizeUser(user), nil
}

// DemoAccounts returns the fixed demo identities, one per role.
func DemoAccounts() []CreateInput {
	return []CreateInput{
		{Email: "student@example.com", Name: "alex", Role: string(domain.RoleStudent), AvatarURL: "https://images.pexels.com/photos/614810/pexels-photo-614810.jpeg"},
		{Email: "lecturer@example.com", Name: "Dr. sutjamoko", Role: string(domain.RoleLecturer), AvatarURL: "https://images.pexels.com/photos/1181686/pexels-photo-1181686.jpeg"},
		{Email: "prodi@example.com", Name: "Prodi Admin", Role: string(domain.RoleProdi), AvatarURL: "https://images.pexels.com/photos/2379004/pexels-photo-2379004.jpeg"},
		{Email: "industry@example.com", Name: "Industry", Role: string(domain.RoleIndustry), AvatarURL: "https://images.pexels.com/photos/3184291/pexels-photo-3184291.jpeg"},
		{Email: "admin@example.com", Name: "System Admin", Role: string(domain.RoleAdmin), AvatarURL: "https://images.pexels.com/photos/3778603/pexels-photo-3778603.jpeg"},
	}
}

// SeedDemoAccounts creates any missing demo account with DemoPassword.
// Existing accounts are left untouched. It returns the number created.
func (s *Service) SeedDemoAccounts(ctx context.Context) (int, error) {
	created := 0
	for _, input := range DemoAccounts() {
		input.Password = DemoPassword
		if _, err := s.Create(ctx, input); err != nil {
			if errors.Is(err, domain.ErrEmailExists) {
				continue
			}
			return created, fmt.Errorf("seed %s: %w", input.Email, err)
		}
		created++
	}
	return created, nil
}

func sanitizeUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	copy := *u
	copy.PasswordHash = ""
	return &copy
}

func sanitizeUsers(items []*domain.User) []*domain.User {
	out := make([]*domain.User, 0, len(items))
	for _, item := range items {
		out = append(out, sanitizeUser(item))
	}
	return out
}
