package models

import "time"

// Moderation defaults.
const (
	DefaultToxicity  = 5
	MinToxicity      = 1
	MaxToxicity      = 10
	WarningThreshold = 3
)

// ModerationRecord holds a user's persistent moderation state. Rows are
// created lazily on first reference.
type ModerationRecord struct {
	Username       string `db:"username" json:"username"`
	Warnings       int    `db:"warnings" json:"warnings"`
	IsBanned       bool   `db:"is_banned" json:"is_banned"`
	IsShadowBanned bool   `db:"is_shadow_banned" json:"is_shadow_banned"`
	Toxicity       int    `db:"toxicity" json:"toxicity"`
	BanReason      string `db:"ban_reason" json:"ban_reason"`
}

// Report is a write-once entry in the append-only moderation ledger. User
// reports, auto-mod actions and staff commands all produce one.
type Report struct {
	ID          int64     `db:"id" json:"id"`
	Reporter    string    `db:"reporter" json:"reporter"`
	Offender    string    `db:"offender" json:"offender"`
	Channel     string    `db:"channel" json:"channel"`
	MessageText string    `db:"message_text" json:"message_text"`
	Reason      string    `db:"reason" json:"reason"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ModerationLogEntry records a moderation state change for the staff UI.
type ModerationLogEntry struct {
	ID        int64     `db:"id" json:"id"`
	Actor     string    `db:"actor" json:"actor"`
	Target    string    `db:"target" json:"target"`
	Action    string    `db:"action" json:"action"`
	Reason    string    `db:"reason" json:"reason"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
