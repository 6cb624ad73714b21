package models

import "time"

// MaxMessageLength caps the text accepted by both the WebSocket and the
// HTTP message paths.
const MaxMessageLength = 2000

// Message represents a chat message in a channel.
type Message struct {
	ID          int64        `db:"id" json:"id"`
	Channel     string       `db:"channel" json:"channel"`
	Username    string       `db:"username" json:"user"`
	Text        string       `db:"text" json:"text"`
	Deleted     bool         `db:"deleted" json:"deleted"`
	CreatedAt   time.Time    `db:"created_at" json:"ts"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment is a file attached to a message. Blocked attachments are kept
// for the audit trail but filtered out of history responses.
type Attachment struct {
	ID        int64  `db:"id" json:"id"`
	MessageID int64  `db:"message_id" json:"message_id"`
	FileName  string `db:"file_name" json:"file_name"`
	FilePath  string `db:"file_path" json:"-"`
	MimeType  string `db:"mime_type" json:"mime_type"`
	Blocked   bool   `db:"blocked" json:"-"`
}
