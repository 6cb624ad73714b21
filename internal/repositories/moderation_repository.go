package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"gamehub-chat/internal/models"
)

// ModerationRepository persists per-user moderation state and the
// moderation action log.
type ModerationRepository interface {
	Get(ctx context.Context, username string) (models.ModerationRecord, error)
	EnsureDefault(ctx context.Context, username string) (models.ModerationRecord, error)
	UpdateBan(ctx context.Context, username string, banned bool, reason string) error
	UpdateShadowBan(ctx context.Context, username string, shadowBanned bool) error
	UpdateToxicity(ctx context.Context, username string, toxicity int) error
	UpdateWarnings(ctx context.Context, username string, warnings int) error
	BannedUsers(ctx context.Context) ([]models.ModerationRecord, error)
	InsertLog(ctx context.Context, actor, target, action, reason string) error
}

var ErrModerationNotFound = errors.New("moderation record not found")

// ModerationRepo is a sqlx-backed repository.
type ModerationRepo struct {
	db *sqlx.DB
}

// NewModerationRepo constructs ModerationRepo.
func NewModerationRepo(db *sqlx.DB) *ModerationRepo {
	return &ModerationRepo{db: db}
}

const moderationColumns = `username, warnings, is_banned, is_shadow_banned, toxicity, ban_reason`

// Get retrieves a user's moderation record.
func (r *ModerationRepo) Get(ctx context.Context, username string) (models.ModerationRecord, error) {
	var rec models.ModerationRecord
	err := r.db.GetContext(ctx, &rec,
		`SELECT `+moderationColumns+` FROM moderation_state WHERE username=$1`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ModerationRecord{}, ErrModerationNotFound
	}
	return rec, err
}

// EnsureDefault creates the default record for a username if absent and
// returns the current row either way.
func (r *ModerationRepo) EnsureDefault(ctx context.Context, username string) (models.ModerationRecord, error) {
	var rec models.ModerationRecord
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO moderation_state (username, toxicity) VALUES ($1, $2)
         ON CONFLICT (username) DO UPDATE SET username = EXCLUDED.username
         RETURNING `+moderationColumns,
		username, models.DefaultToxicity).
		Scan(&rec.Username, &rec.Warnings, &rec.IsBanned, &rec.IsShadowBanned, &rec.Toxicity, &rec.BanReason)
	return rec, err
}

// UpdateBan sets the ban flag and reason in one statement so the two columns
// never diverge.
func (r *ModerationRepo) UpdateBan(ctx context.Context, username string, banned bool, reason string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE moderation_state SET is_banned=$2, ban_reason=$3 WHERE username=$1`,
		username, banned, reason)
	return err
}

// UpdateShadowBan sets the shadow-ban flag.
func (r *ModerationRepo) UpdateShadowBan(ctx context.Context, username string, shadowBanned bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE moderation_state SET is_shadow_banned=$2 WHERE username=$1`,
		username, shadowBanned)
	return err
}

// UpdateToxicity sets the user-configured sensitivity.
func (r *ModerationRepo) UpdateToxicity(ctx context.Context, username string, toxicity int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE moderation_state SET toxicity=$2 WHERE username=$1`,
		username, toxicity)
	return err
}

// UpdateWarnings sets the warnings counter.
func (r *ModerationRepo) UpdateWarnings(ctx context.Context, username string, warnings int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE moderation_state SET warnings=$2 WHERE username=$1`,
		username, warnings)
	return err
}

// BannedUsers returns every currently banned record, used to warm the
// fast-path banned set at startup.
func (r *ModerationRepo) BannedUsers(ctx context.Context) ([]models.ModerationRecord, error) {
	var recs []models.ModerationRecord
	err := r.db.SelectContext(ctx, &recs,
		`SELECT `+moderationColumns+` FROM moderation_state WHERE is_banned = TRUE`)
	return recs, err
}

// InsertLog appends a moderation log entry.
func (r *ModerationRepo) InsertLog(ctx context.Context, actor, target, action, reason string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO moderation_log (actor, target, action, reason) VALUES ($1, $2, $3, $4)`,
		actor, target, action, reason)
	return err
}
