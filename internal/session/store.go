// Package session maps opaque bearer tokens to usernames. The in-memory map
// is the hot path; every mutation is written through to the sessions table so
// sessions survive a process restart.
package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"gamehub-chat/internal/models"
	"gamehub-chat/internal/repositories"
)

// BanChecker reports whether a username is currently banned and why.
// Implemented by the moderation state cache.
type BanChecker interface {
	BannedReason(username string) (bool, string)
}

// ConnCloser force-closes a user's live connections when their sessions are
// revoked. Implemented by the WebSocket hub.
type ConnCloser interface {
	CloseUser(username string, code int, reason string)
}

// Resolution is the outcome of a token lookup.
type Resolution struct {
	Username string
	OK       bool
	// Banned is set when the token belonged to a banned user; the token has
	// been evicted and BannedUser/BanReason let callers surface the reason.
	Banned     bool
	BannedUser string
	BanReason  string
}

// Store holds live sessions.
type Store struct {
	repo   repositories.SessionRepository
	banned BanChecker
	conns  ConnCloser

	mu      sync.RWMutex
	byToken map[string]models.Session
}

// NewStore builds an empty Store.
func NewStore(repo repositories.SessionRepository, banned BanChecker) *Store {
	return &Store{
		repo:    repo,
		banned:  banned,
		byToken: make(map[string]models.Session),
	}
}

// SetConns wires the connection closer used when sessions are revoked.
func (s *Store) SetConns(conns ConnCloser) { s.conns = conns }

// Load warms the token map from storage at startup.
func (s *Store) Load(ctx context.Context) error {
	sessions, err := s.repo.All(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	for _, sess := range sessions {
		s.byToken[sess.Token] = sess
	}
	s.mu.Unlock()

	log.Printf("session store loaded sessions=%d", len(sessions))
	return nil
}

// Create mints a new random token for a username and stores it durably.
func (s *Store) Create(ctx context.Context, username string) (string, error) {
	sess := models.Session{
		Token:     uuid.NewString(),
		Username:  username,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.Insert(ctx, sess); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.byToken[sess.Token] = sess
	s.mu.Unlock()
	return sess.Token, nil
}

// Resolve looks up a token. Tokens of banned users and tokens with invalid
// usernames are lazily evicted; the ban case reports the stale username so
// callers can surface the ban reason.
func (s *Store) Resolve(ctx context.Context, token string) Resolution {
	s.mu.RLock()
	sess, ok := s.byToken[token]
	s.mu.RUnlock()
	if !ok {
		return Resolution{}
	}

	if len(sess.Username) > models.MaxUsernameLength {
		s.evict(ctx, token)
		return Resolution{}
	}

	if s.banned != nil {
		if isBanned, reason := s.banned.BannedReason(sess.Username); isBanned {
			s.evict(ctx, token)
			return Resolution{Banned: true, BannedUser: sess.Username, BanReason: reason}
		}
	}

	return Resolution{Username: sess.Username, OK: true}
}

// Revoke removes a single token. A failed durable delete never fails the
// caller; availability wins over strict durability on this housekeeping path.
func (s *Store) Revoke(ctx context.Context, token string) {
	s.evict(ctx, token)
}

// RevokeAll removes every session for a username and force-closes their
// sockets with the logged-out code. Used on ban and password reset.
func (s *Store) RevokeAll(ctx context.Context, username string) {
	s.mu.Lock()
	for token, sess := range s.byToken {
		if sess.Username == username {
			delete(s.byToken, token)
		}
	}
	s.mu.Unlock()

	if err := s.repo.DeleteAllForUser(ctx, username); err != nil {
		log.Printf("session: durable revoke-all failed username=%s: %v", username, err)
	}

	if s.conns != nil {
		s.conns.CloseUser(username, models.CloseLoggedOut, "Logged out")
	}
}

func (s *Store) evict(ctx context.Context, token string) {
	s.mu.Lock()
	delete(s.byToken, token)
	s.mu.Unlock()

	if err := s.repo.Delete(ctx, token); err != nil {
		log.Printf("session: durable delete failed: %v", err)
	}
}
