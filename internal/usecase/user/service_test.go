package user

import (
	"context"
	"errors"
	"testing"

	domain "eportfolio/backend/internal/domain/auth"
	"eportfolio/backend/internal/infrastructure/memory"
	"eportfolio/backend/internal/infrastructure/password"
	"eportfolio/backend/internal/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"
)

func newTestService() (*Service, *memory.Directory) {
	dir := memory.NewDirectory()
	return NewService(dir, password.NewBcrypt(bcrypt.MinCost)), dir
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("stores hashed password and exact email", func(t *testing.T) {
		svc, dir := newTestService()
		created, err := svc.Create(ctx, CreateInput{
			Email:    "New.Student@example.com",
			Name:     "  nouval ",
			Password: "hunter22",
			Role:     "Student",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.Empty(t, created.PasswordHash)
		assert.Equal(t, "New.Student@example.com", created.Email)
		assert.Equal(t, "nouval", created.Name)
		assert.Equal(t, domain.RoleStudent, created.Role)

		stored, err := dir.GetByEmail(ctx, "New.Student@example.com")
		require.NoError(t, err)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("hunter22")))
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		svc, _ := newTestService()
		input := CreateInput{Email: "a@example.com", Password: "pw", Role: "admin"}
		_, err := svc.Create(ctx, input)
		require.NoError(t, err)
		_, err = svc.Create(ctx, input)
		assert.ErrorIs(t, err, domain.ErrEmailExists)
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.Create(ctx, CreateInput{Email: "a@example.com", Password: "pw", Role: "dean"})
		assert.ErrorIs(t, err, domain.ErrInvalidRole)
		_, err = svc.Create(ctx, CreateInput{Email: "a@example.com", Password: "pw"})
		assert.ErrorIs(t, err, domain.ErrInvalidRole)
	})

	t.Run("requires email and password", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.Create(ctx, CreateInput{Password: "pw", Role: "admin"})
		assert.ErrorIs(t, err, ErrInvalidInput)
		_, err = svc.Create(ctx, CreateInput{Email: "a@example.com", Role: "admin"})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("propagates directory failures", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockDirectory(ctrl)
		boom := errors.New("db down")
		repo.EXPECT().GetByEmail(gomock.Any(), "a@example.com").Return(nil, boom)

		svc := NewService(repo, password.NewBcrypt(bcrypt.MinCost))
		_, err := svc.Create(ctx, CreateInput{Email: "a@example.com", Password: "pw", Role: "admin"})
		assert.ErrorIs(t, err, boom)
	})
}

func TestGetAndList(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	lecturer, err := svc.Create(ctx, CreateInput{Email: "l@example.com", Password: "pw", Role: "lecturer"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{Email: "s@example.com", Password: "pw", Role: "student"})
	require.NoError(t, err)

	got, err := svc.Get(ctx, lecturer.ID)
	require.NoError(t, err)
	assert.Equal(t, "l@example.com", got.Email)
	assert.Empty(t, got.PasswordHash)

	_, err = svc.Get(ctx, "  ")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	all, err := svc.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	for _, u := range all {
		assert.Empty(t, u.PasswordHash)
	}

	lecturers, err := svc.List(ctx, Filter{Role: "LECTURER"})
	require.NoError(t, err)
	require.Len(t, lecturers, 1)
	assert.Equal(t, lecturer.ID, lecturers[0].ID)

	_, err = svc.List(ctx, Filter{Role: "dean"})
	assert.ErrorIs(t, err, domain.ErrInvalidRole)
}

func TestSeedDemoAccounts(t *testing.T) {
	ctx := context.Background()
	svc, dir := newTestService()

	created, err := svc.SeedDemoAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, created)

	again, err := svc.SeedDemoAccounts(ctx)
	require.NoError(t, err)
	assert.Zero(t, again)

	for _, role := range domain.Roles {
		users, err := dir.List(ctx, domain.UserFilter{Role: role})
		require.NoError(t, err)
		require.Len(t, users, 1, role)
		assert.NotEmpty(t, users[0].AvatarURL)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(users[0].PasswordHash), []byte(DemoPassword)))
	}

	admin, err := dir.GetByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, "System Admin", admin.Name)
}
