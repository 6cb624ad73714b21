package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/jmoiron/sqlx"

	"gamehub-chat/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// DefaultHistoryLimit bounds history pages when the client does not ask for
// a specific size.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

// MessageRepository defines interactions for chat messages and attachments.
type MessageRepository interface {
	CreateMessage(ctx context.Context, channel, username, text string) (models.Message, error)
	CreateAttachment(ctx context.Context, att models.Attachment) (models.Attachment, error)
	History(ctx context.Context, channel string, beforeID int64, limit int) ([]models.Message, error)
	GetMessage(ctx context.Context, messageID int64) (models.Message, error)
	SoftDeleteMessage(ctx context.Context, messageID int64, username string) (bool, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage stores a message and returns the persisted row.
func (r *MessageRepo) CreateMessage(ctx context.Context, channel, username, text string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO messages (channel, username, text) VALUES ($1, $2, $3)
         RETURNING id, channel, username, text, deleted, created_at`,
		channel, username, text).
		Scan(&msg.ID, &msg.Channel, &msg.Username, &msg.Text, &msg.Deleted, &msg.CreatedAt)
	return msg, err
}

// CreateAttachment stores an attachment row for a message.
func (r *MessageRepo) CreateAttachment(ctx context.Context, att models.Attachment) (models.Attachment, error) {
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO attachments (message_id, file_name, file_path, mime_type) VALUES ($1, $2, $3, $4)
         RETURNING id`,
		att.MessageID, att.FileName, att.FilePath, att.MimeType).
		Scan(&att.ID)
	return att, err
}

// History returns up to limit non-deleted messages for a channel, newest
// first, older than beforeID when it is positive. Blocked attachments are
// filtered out.
func (r *MessageRepo) History(ctx context.Context, channel string, beforeID int64, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > MaxHistoryLimit {
		limit = DefaultHistoryLimit
	}

	query := `SELECT id, channel, username, text, deleted, created_at
        FROM messages
        WHERE channel=$1 AND deleted = FALSE`
	args := []interface{}{channel}
	if beforeID > 0 {
		query += ` AND id < $2`
		args = append(args, beforeID)
	}
	query += ` ORDER BY id DESC LIMIT ` + strconv.Itoa(limit)

	var msgs []models.Message
	if err := r.db.SelectContext(ctx, &msgs, query, args...); err != nil {
		return nil, err
	}
	if err := r.attachTo(ctx, msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// attachTo inlines unblocked attachments into the given messages.
func (r *MessageRepo) attachTo(ctx context.Context, msgs []models.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(msgs))
	byID := make(map[int64]*models.Message, len(msgs))
	for i := range msgs {
		ids = append(ids, msgs[i].ID)
		byID[msgs[i].ID] = &msgs[i]
	}

	query, args, err := sqlx.In(
		`SELECT id, message_id, file_name, file_path, mime_type, blocked
         FROM attachments WHERE message_id IN (?) AND blocked = FALSE`, ids)
	if err != nil {
		return err
	}

	var atts []models.Attachment
	if err := r.db.SelectContext(ctx, &atts, r.db.Rebind(query), args...); err != nil {
		return err
	}
	for _, att := range atts {
		if msg, ok := byID[att.MessageID]; ok {
			msg.Attachments = append(msg.Attachments, att)
		}
	}
	return nil
}

// GetMessage retrieves a single message without attachment filtering.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int64) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg,
		`SELECT id, channel, username, text, deleted, created_at FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// SoftDeleteMessage marks an author's message as deleted. It reports whether
// this call performed the transition, so repeated deletes stay idempotent
// without re-broadcasting.
func (r *MessageRepo) SoftDeleteMessage(ctx context.Context, messageID int64, username string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE messages SET deleted = TRUE WHERE id=$1 AND username=$2 AND deleted = FALSE`,
		messageID, username)
	if err != nil {
		return false, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
