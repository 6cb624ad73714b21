package models

import "time"

// WebSocket frame type discriminators.
const (
	FrameChat           = "chat"
	FrameSystem         = "system"
	FrameTyping         = "typing"
	FramePresence       = "presence_snapshot"
	FrameMessageDeleted = "message_deleted"
)

// WebSocket close codes used by the relay. 4000-series codes are policy
// closes pushed by the session and moderation components.
const (
	CloseLoggedOut      = 4000
	CloseInvalidSession = 4001
	CloseNotAllowed     = 4002
	CloseBanned         = 4003
	CloseInternalError  = 1011
)

// ClientFrame is an inbound WebSocket frame. Only "typing" and "chat" are
// recognized; anything else is ignored.
type ClientFrame struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ChatFrame is the outbound representation of a delivered message.
type ChatFrame struct {
	Type        string       `json:"type"`
	ID          int64        `json:"id"`
	User        string       `json:"user"`
	Text        string       `json:"text"`
	Ts          time.Time    `json:"ts"`
	Deleted     bool         `json:"deleted"`
	Channel     string       `json:"channel"`
	Attachments []Attachment `json:"attachments,omitempty"`
	// Shadow marks the sender-only echo of a shadow-banned user's message.
	Shadow bool `json:"shadow,omitempty"`
}

// NewChatFrame builds the outbound frame for a persisted message.
func NewChatFrame(msg Message) ChatFrame {
	return ChatFrame{
		Type:        FrameChat,
		ID:          msg.ID,
		User:        msg.Username,
		Text:        msg.Text,
		Ts:          msg.CreatedAt,
		Deleted:     msg.Deleted,
		Channel:     msg.Channel,
		Attachments: msg.Attachments,
	}
}

// SystemFrame carries a system notice to a single sender (moderation
// outcomes, ban/mute rejections).
type SystemFrame struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// NewSystemFrame builds a system notice frame.
func NewSystemFrame(text string) SystemFrame {
	return SystemFrame{Type: FrameSystem, Text: text}
}

// PresenceFrame is the full connected-username snapshot rebroadcast to all
// connections on any connect or disconnect.
type PresenceFrame struct {
	Type  string   `json:"type"`
	Users []string `json:"users"`
}

// TypingFrame relays a typing indicator to other channel members.
type TypingFrame struct {
	Type string `json:"type"`
	User string `json:"user"`
}

// MessageDeletedFrame notifies channel members of a soft-deleted message.
type MessageDeletedFrame struct {
	Type      string `json:"type"`
	MessageID int64  `json:"message_id"`
	Channel   string `json:"channel"`
}
