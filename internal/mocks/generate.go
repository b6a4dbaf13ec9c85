// Package mocks provides gomock implementations of the portal's ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	users := mocks.NewMockDirectory(ctrl)
//	users.EXPECT().GetByEmail(gomock.Any(), "student@example.com").Return(user, nil)
package mocks

// Directory: Create, GetByEmail, GetByID, List
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=directory_mock.go eportfolio/backend/internal/domain/auth Directory

// LoginLimiter: Allow, Reset
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=login_limiter_mock.go eportfolio/backend/internal/usecase/auth LoginLimiter
