// Package session holds who is logged in. It owns the only authenticated
// identity and the generation counter that lets the UI drop responses from
// calls started under an earlier login.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/kingrea/mortgage-portal/internal/client"
	"github.com/kingrea/mortgage-portal/internal/logbook"
	"github.com/kingrea/mortgage-portal/internal/portal"
)

var (
	// ErrLoginInFlight is returned when Login is called while another
	// attempt is still pending.
	ErrLoginInFlight = errors.New("session: login already in progress")
	// ErrEmailRequired is returned before any call when the email is blank.
	ErrEmailRequired = errors.New("session: email is required")
)

// Authenticator is the subset of the HTTP client the store needs.
type Authenticator interface {
	Authenticate(ctx context.Context, creds portal.Credentials) (portal.Identity, error)
}

// Store tracks UNAUTHENTICATED or AUTHENTICATED(Identity).
type Store struct {
	auth Authenticator
	log  *logbook.Logbook

	mu         sync.Mutex
	identity   *portal.Identity
	generation uint64
	inFlight   bool
	previous   portal.Role
}

// New builds an unauthenticated store.
func New(auth Authenticator, log *logbook.Logbook) *Store {
	return &Store{auth: auth, log: log}
}

// Login authenticates and, on success, becomes AUTHENTICATED. Failures always
// surface as *client.AuthError and leave the store unauthenticated.
func (s *Store) Login(ctx context.Context, creds portal.Credentials) (portal.Identity, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Email == "" {
		return portal.Identity{}, &client.AuthError{Err: ErrEmailRequired}
	}

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return portal.Identity{}, ErrLoginInFlight
	}
	s.inFlight = true
	started := s.generation
	s.mu.Unlock()

	identity, err := s.auth.Authenticate(ctx, creds)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	if err != nil {
		var authErr *client.AuthError
		if !errors.As(err, &authErr) {
			err = &client.AuthError{Err: err}
		}
		s.log.Warn("login failed for %s: %v", creds.Email, errors.Unwrap(err))
		return portal.Identity{}, err
	}
	if started != s.generation {
		// A logout landed while the call was pending.
		return portal.Identity{}, &client.AuthError{Err: context.Canceled}
	}
	s.identity = &identity
	s.generation++
	s.previous = ""
	s.log.Info("logged in as %s (%s)", identity.FullName, identity.Role)
	return identity, nil
}

// Logout clears the identity.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked("logged out")
}

// SwitchRole logs out and remembers the role being left.
func (s *Store) SwitchRole() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity != nil {
		s.previous = s.identity.Role
	}
	s.clearLocked("switched role")
}

func (s *Store) clearLocked(reason string) {
	if s.identity != nil {
		s.log.Info("%s: %s", reason, s.identity.Email)
	}
	s.identity = nil
	s.generation++
}

// Identity returns a copy of the current identity, or nil.
func (s *Store) Identity() *portal.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return nil
	}
	identity := *s.identity
	return &identity
}

// Authenticated reports whether an identity is held.
func (s *Store) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity != nil
}

// Generation increments on every login, logout and role switch.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// PreviousRole is the role left by the last SwitchRole, if any.
func (s *Store) PreviousRole() portal.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.previous
}
