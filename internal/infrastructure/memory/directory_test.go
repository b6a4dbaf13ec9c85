package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	domain "eportfolio/backend/internal/domain/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryCreateAndLookup(t *testing.T) {
	ctx := context.Background()
	dir := NewDirectory()

	user := &domain.User{ID: "1", Email: "student@example.com", Role: domain.RoleStudent, PasswordHash: "h"}
	require.NoError(t, dir.Create(ctx, user))

	got, err := dir.GetByEmail(ctx, "student@example.com")
	require.NoError(t, err)
	assert.Equal(t, "1", got.ID)
	assert.Equal(t, "h", got.PasswordHash)

	got, err = dir.GetByID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "student@example.com", got.Email)

	_, err = dir.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestDirectoryEmailIsCaseSensitive(t *testing.T) {
	ctx := context.Background()
	dir := NewDirectory()
	require.NoError(t, dir.Create(ctx, &domain.User{ID: "1", Email: "student@example.com", Role: domain.RoleStudent}))

	_, err := dir.GetByEmail(ctx, "Student@example.com")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	_, err = dir.GetByEmail(ctx, " student@example.com")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestDirectoryRejectsDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	dir := NewDirectory()
	require.NoError(t, dir.Create(ctx, &domain.User{ID: "1", Email: "a@example.com"}))

	err := dir.Create(ctx, &domain.User{ID: "2", Email: "a@example.com"})
	assert.ErrorIs(t, err, domain.ErrEmailExists)
}

func TestDirectoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	dir := NewDirectory()
	original := &domain.User{ID: "1", Email: "a@example.com", Name: "before"}
	require.NoError(t, dir.Create(ctx, original))
	original.Name = "mutated"

	got, err := dir.GetByID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "before", got.Name)

	got.Name = "mutated again"
	again, err := dir.GetByID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "before", again.Name)
}

func TestDirectoryListFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	dir := NewDirectory()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, dir.Create(ctx, &domain.User{ID: "1", Email: "s1@example.com", Role: domain.RoleStudent, CreatedAt: base}))
	require.NoError(t, dir.Create(ctx, &domain.User{ID: "2", Email: "l@example.com", Role: domain.RoleLecturer, CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, dir.Create(ctx, &domain.User{ID: "3", Email: "s2@example.com", Role: domain.RoleStudent, CreatedAt: base.Add(2 * time.Minute)}))

	all, err := dir.List(ctx, domain.UserFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"3", "2", "1"}, []string{all[0].ID, all[1].ID, all[2].ID})

	students, err := dir.List(ctx, domain.UserFilter{Role: domain.RoleStudent})
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "3", students[0].ID)
	assert.Equal(t, "1", students[1].ID)
}

func TestDirectoryConcurrentReads(t *testing.T) {
	ctx := context.Background()
	dir := NewDirectory()
	require.NoError(t, dir.Create(ctx, &domain.User{ID: "1", Email: "a@example.com"}))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := dir.GetByEmail(ctx, "a@example.com")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}
