package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"gamehub-chat/internal/channels"
	"gamehub-chat/internal/chat"
	"gamehub-chat/internal/models"
	"gamehub-chat/internal/observability"
	"gamehub-chat/internal/ratelimit"
	"gamehub-chat/internal/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RelayHandler upgrades chat WebSocket connections and runs their read
// loops. State machine per connection: Connecting -> Open -> Closed,
// terminal once closed; a dropped client opens a fresh connection.
type RelayHandler struct {
	hub            *Hub
	sessions       *session.Store
	authz          *channels.Authorizer
	limiter        *ratelimit.Limiter
	socketRule     ratelimit.Rule
	pipeline       *chat.Pipeline
	defaultChannel string
}

// NewRelayHandler constructs a RelayHandler.
func NewRelayHandler(
	hub *Hub,
	sessions *session.Store,
	authz *channels.Authorizer,
	limiter *ratelimit.Limiter,
	socketRule ratelimit.Rule,
	pipeline *chat.Pipeline,
	defaultChannel string,
) *RelayHandler {
	return &RelayHandler{
		hub:            hub,
		sessions:       sessions,
		authz:          authz,
		limiter:        limiter,
		socketRule:     socketRule,
		pipeline:       pipeline,
		defaultChannel: defaultChannel,
	}
}

// Handle performs the handshake: token and channel come from the query
// string, the session is resolved and the channel authorized, and only then
// is the connection registered and announced. Rejections close the upgraded
// socket with a policy code so the client can distinguish why.
func (h *RelayHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("gamehub-chat/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()

	token := c.Query("token")
	channel := c.Query("channel")
	if channel == "" {
		channel = h.defaultChannel
	}
	span.SetAttributes(attribute.String("chat.channel", channel))

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	res := h.sessions.Resolve(ctx, token)
	if res.Banned {
		closeAndDiscard(conn, models.CloseBanned, res.BanReason)
		return
	}
	if !res.OK {
		closeAndDiscard(conn, models.CloseInvalidSession, "Invalid session")
		return
	}
	if !h.authz.IsAllowed(res.Username, channel) {
		closeAndDiscard(conn, models.CloseNotAllowed, "Not allowed for channel")
		return
	}

	info := ConnInfo{
		ConnID:      uuid.NewString(),
		Username:    res.Username,
		Channel:     channel,
		IP:          observability.IPFromRequest(c.Request),
		ConnectedAt: time.Now(),
	}
	client := h.hub.Register(conn, info)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	log.Printf("websocket connected conn_id=%s user=%s channel=%s", info.ConnID, info.Username, info.Channel)

	h.hub.BroadcastPresence()

	go h.readLoop(client)
}

// readLoop processes inbound frames in arrival order until the connection
// closes from either end. No "user left" chat message is emitted on close,
// only a presence snapshot, which keeps reconnect noise down.
func (h *RelayHandler) readLoop(client *Client) {
	info := client.Info()
	defer func() {
		if h.hub.Unregister(client) {
			observability.DecWSActive()
		}
		client.conn.Close()
		observability.IncWSEvent("ws_disconnect")
		log.Printf("websocket disconnected conn_id=%s user=%s duration_ms=%d",
			info.ConnID, info.Username, time.Since(info.ConnectedAt).Milliseconds())
		h.hub.BroadcastPresence()
	}()

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
			}
			return
		}

		var frame models.ClientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			log.Printf("websocket malformed frame conn_id=%s: %v", info.ConnID, err)
			continue
		}

		// The per-message budget covers typing and chat frames alike, keyed
		// by IP independently of the HTTP bucket. Over-limit frames are
		// dropped silently; the connection stays open.
		if !h.limiter.Allow(info.IP, h.socketRule) {
			observability.IncWSEvent("rate_limited")
			continue
		}

		switch frame.Type {
		case models.FrameTyping:
			h.hub.BroadcastChannelExcept(info.Channel,
				models.TypingFrame{Type: models.FrameTyping, User: info.Username}, client)

		case models.FrameChat:
			h.handleChat(client, frame.Text)

		default:
			// Unrecognized types are ignored; the connection stays open.
		}
	}
}

func (h *RelayHandler) handleChat(client *Client, text string) {
	info := client.Info()

	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if runes := []rune(text); len(runes) > models.MaxMessageLength {
		text = string(runes[:models.MaxMessageLength])
	}

	outcome, err := h.pipeline.Submit(context.Background(), info.Username, info.Channel, text, nil)
	if err != nil {
		// Storage failure mid-pipeline. The client cannot tell whether the
		// message landed, so drop the connection and let it reconnect with
		// fresh history.
		log.Printf("websocket pipeline error conn_id=%s user=%s: %v", info.ConnID, info.Username, err)
		client.closeWith(models.CloseInternalError, "Internal error")
		return
	}

	switch outcome.Kind {
	case chat.OutcomeDelivered, chat.OutcomeShadowed:
		// Fan-out already handled by the pipeline.
	default:
		h.notify(client, outcome.Notice)
	}
}

// notify sends a system notice to a single connection.
func (h *RelayHandler) notify(client *Client, text string) {
	data, err := json.Marshal(models.NewSystemFrame(text))
	if err != nil {
		return
	}
	if err := client.send(data); err != nil {
		log.Printf("websocket notify failed conn_id=%s: %v", client.Info().ConnID, err)
	}
}

// closeAndDiscard rejects a freshly upgraded connection with a policy code.
func closeAndDiscard(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(writeWait)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	_ = conn.Close()
	observability.IncWSEvent("ws_rejected")
}
