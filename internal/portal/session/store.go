// Package session holds the portal client's authenticated session: the token
// returned by the server and the identity derived from it.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	authdomain "eportfolio/backend/internal/domain/auth"
	"eportfolio/backend/internal/infrastructure/token"
)

var (
	// ErrRoleMismatch means the server reported a role that differs from the
	// one signed into the token.
	ErrRoleMismatch = errors.New("login response role does not match token")
	// ErrIdentityMismatch means the server reported a user id or email that
	// differs from the subject signed into the token.
	ErrIdentityMismatch = errors.New("login response identity does not match token")
	// ErrLoginSuperseded means Logout ran while the login was in flight.
	ErrLoginSuperseded = errors.New("login superseded by logout")
	// ErrNotAuthenticated is returned by calls that need a session when none exists.
	ErrNotAuthenticated = errors.New("not authenticated")
)

// Identity is the user as seen by the client. It never carries a credential.
type Identity struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Role      authdomain.Role `json:"role"`
	AvatarURL string          `json:"avatarUrl"`
}

// Snapshot is an immutable view of the session at one point in time.
type Snapshot struct {
	Identity        *Identity
	Token           string
	IsAuthenticated bool
	ExpiresAt       time.Time
}

// Role returns the session role, or "" when signed out.
func (s Snapshot) Role() authdomain.Role {
	if !s.IsAuthenticated || s.Identity == nil {
		return ""
	}
	return s.Identity.Role
}

// LoginResult is a successful login as reported by the server.
type LoginResult struct {
	Token string
	User  Identity
}

// ProfileResult is the claim set the server accepted for a token.
type ProfileResult struct {
	ID        string          `json:"id"`
	Email     string          `json:"email"`
	Role      authdomain.Role `json:"role"`
	IssuedAt  int64           `json:"iat"`
	ExpiresAt int64           `json:"exp"`
}

// Authenticator talks to the portal API.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (LoginResult, error)
	Profile(ctx context.Context, token string) (ProfileResult, error)
}

// Persister keeps the session across process restarts under a single key.
// Load returns ErrNoSession when nothing is stored.
type Persister interface {
	Load() (State, error)
	Save(State) error
	Clear() error
}

// State is the persisted form of a session.
type State struct {
	Token string   `json:"token"`
	User  Identity `json:"user"`
}

// Store is the single mutable session state of a client process.
// Only Login, Logout and Restore change it.
type Store struct {
	auth    Authenticator
	persist Persister
	logger  *slog.Logger
	nowFunc func() time.Time

	mu   sync.Mutex
	snap Snapshot
	// gen is bumped by Logout so in-flight logins can detect it.
	gen uint64

	subsMu sync.Mutex
	subs   map[int]func(Snapshot)
	nextID int
}

// Option customises a Store.
type Option func(*Store)

// WithLogger sets the logger used for persistence failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithClock overrides the time source used for local expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.nowFunc = now
	}
}

// NewStore constructs a signed-out store.
func NewStore(auth Authenticator, persist Persister, opts ...Option) *Store {
	s := &Store{
		auth:    auth,
		persist: persist,
		logger:  slog.Default(),
		nowFunc: time.Now,
		subs:    make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Current returns the latest snapshot.
func (s *Store) Current() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Subscribe registers fn to receive every new snapshot. The returned func
// removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.subsMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
		})
	}
}

func (s *Store) publish(snap Snapshot) {
	s.subsMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// Login authenticates against the server and, on success, replaces the
// current session. On failure the prior session is left untouched.
func (s *Store) Login(ctx context.Context, email, password string) error {
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	res, err := s.auth.Login(ctx, email, password)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	snap, err := s.snapshotFor(State{Token: res.Token, User: res.User}, true)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return ErrLoginSuperseded
	}
	if err := s.persist.Save(State{Token: snap.Token, User: *snap.Identity}); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("persist session: %w", err)
	}
	s.snap = snap
	s.mu.Unlock()

	s.publish(snap)
	return nil
}

// snapshotFor derives a snapshot from state. Subject, email and role always
// come from the token claims. With strict set, any differing reported value
// is an error.
func (s *Store) snapshotFor(state State, strict bool) (Snapshot, error) {
	claims, err := token.DecodeUnverified(state.Token)
	if err != nil {
		return Snapshot{}, fmt.Errorf("decode session token: %w", err)
	}
	if strict {
		if state.User.Role != "" && state.User.Role != claims.Role {
			return Snapshot{}, ErrRoleMismatch
		}
		if (state.User.ID != "" && state.User.ID != claims.SubjectID) ||
			(state.User.Email != "" && state.User.Email != claims.Email) {
			return Snapshot{}, ErrIdentityMismatch
		}
	}

	identity := state.User
	identity.ID = claims.SubjectID
	identity.Email = claims.Email
	identity.Role = claims.Role

	return Snapshot{
		Identity:        &identity,
		Token:           state.Token,
		IsAuthenticated: true,
		ExpiresAt:       claims.ExpiresAt,
	}, nil
}

// Logout clears the session in memory and in storage. It never fails and
// may be called any number of times.
func (s *Store) Logout() {
	s.mu.Lock()
	wasAuthenticated := s.snap.IsAuthenticated
	s.snap = Snapshot{}
	s.gen++
	if err := s.persist.Clear(); err != nil {
		s.logger.Warn("clear persisted session", "error", err)
	}
	s.mu.Unlock()

	if wasAuthenticated {
		s.publish(Snapshot{})
	}
}

// Restore loads a persisted session at startup. Tokens that cannot be decoded
// or are already expired are discarded. The signature is not checked here;
// the server remains the authority.
func (s *Store) Restore() error {
	state, err := s.persist.Load()
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return nil
		}
		return fmt.Errorf("load session: %w", err)
	}

	snap, err := s.snapshotFor(state, false)
	if err != nil || !s.nowFunc().Before(snap.ExpiresAt) {
		s.logger.Info("discarding stored session", "expired", err == nil)
		s.Logout()
		return nil
	}

	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()

	s.publish(snap)
	return nil
}

// Profile asks the server which claims it accepts for the current token.
// A 401 or 403 answer ends the session.
func (s *Store) Profile(ctx context.Context) (ProfileResult, error) {
	snap := s.Current()
	if !snap.IsAuthenticated {
		return ProfileResult{}, ErrNotAuthenticated
	}

	profile, err := s.auth.Profile(ctx, snap.Token)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			s.Logout()
		}
		return ProfileResult{}, err
	}
	return profile, nil
}
