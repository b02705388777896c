// Package identity resolves bearer credentials to caller identities.
//
// The gateway core only needs two things from this package: "resolve bearer
// credential to caller identity" and "reject if absent or invalid". The
// session store behind that contract is an in-memory map of opaque tokens
// issued at login time against bcrypt-hashed credential seeds from the
// configuration. Nothing here is durable; sessions live for the process
// lifetime.
package identity

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/vk/maprgate/internal/task"
)

// ErrUnauthenticated is returned whenever a credential is missing, unknown,
// or invalid. Callers surface it as an auth-failure response and never retry.
var ErrUnauthenticated = errors.New("unauthenticated")

// Resolver maps a bearer token to the caller identity.
type Resolver interface {
	Resolve(token string) (task.Identity, error)
}

// Credential is one username seeded from the configuration.
type Credential struct {
	Username     string
	DisplayName  string
	PasswordHash string // bcrypt
}

// Store is an in-memory credential and session store.
type Store struct {
	creds map[string]Credential

	mu       sync.RWMutex
	sessions map[string]task.Identity
}

// NewStore creates a Store seeded with the given credentials.
func NewStore(seeds []Credential) *Store {
	s := &Store{
		creds:    make(map[string]Credential, len(seeds)),
		sessions: make(map[string]task.Identity),
	}
	for _, c := range seeds {
		s.creds[c.Username] = c
	}
	return s
}

// Login checks the password against the seeded bcrypt hash and, on success,
// issues an opaque bearer token for a new session.
func (s *Store) Login(username, password string) (string, error) {
	cred, ok := s.creds[username]
	if !ok {
		return "", ErrUnauthenticated
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return "", ErrUnauthenticated
	}

	token := uuid.NewString()
	id := task.Identity{ID: cred.Username, DisplayName: cred.DisplayName}
	if id.DisplayName == "" {
		id.DisplayName = cred.Username
	}

	s.mu.Lock()
	s.sessions[token] = id
	s.mu.Unlock()
	return token, nil
}

// Resolve returns the identity behind a bearer token, or ErrUnauthenticated.
func (s *Store) Resolve(token string) (task.Identity, error) {
	if token == "" {
		return task.Identity{}, ErrUnauthenticated
	}
	s.mu.RLock()
	id, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		return task.Identity{}, ErrUnauthenticated
	}
	return id, nil
}

// HashPassword produces a bcrypt hash suitable for a credential seed. Used
// by tests and by operators generating configuration.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
