package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"gamehub-chat/internal/models"
)

// SessionRepository persists session tokens for restart recovery.
type SessionRepository interface {
	Insert(ctx context.Context, sess models.Session) error
	Delete(ctx context.Context, token string) error
	DeleteAllForUser(ctx context.Context, username string) error
	All(ctx context.Context) ([]models.Session, error)
}

// SessionRepo is a sqlx-backed repository.
type SessionRepo struct {
	db *sqlx.DB
}

// NewSessionRepo constructs SessionRepo.
func NewSessionRepo(db *sqlx.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Insert stores a session token.
func (r *SessionRepo) Insert(ctx context.Context, sess models.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (token, username, created_at) VALUES ($1, $2, $3)
         ON CONFLICT (token) DO NOTHING`,
		sess.Token, sess.Username, sess.CreatedAt)
	return err
}

// Delete removes a single session token.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token=$1`, token)
	return err
}

// DeleteAllForUser removes every session for a username.
func (r *SessionRepo) DeleteAllForUser(ctx context.Context, username string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE username=$1`, username)
	return err
}

// All returns every stored session, used to warm the in-memory map at startup.
func (r *SessionRepo) All(ctx context.Context) ([]models.Session, error) {
	var sessions []models.Session
	err := r.db.SelectContext(ctx, &sessions, `SELECT token, username, created_at FROM sessions`)
	return sessions, err
}
