package ws

import (
	"encoding/json"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"gamehub-chat/internal/models"
	"gamehub-chat/internal/observability"
)

// writeWait bounds how long a single outbound write may block.
const writeWait = 10 * time.Second

// Client is one live WebSocket connection tagged with its identity. Multiple
// clients may share a username (multi-tab).
type Client struct {
	conn *websocket.Conn
	info ConnInfo

	// writeMu serializes outbound frames; gorilla connections do not allow
	// concurrent writers.
	writeMu sync.Mutex
}

// Info returns the connection metadata assigned at handshake time.
func (c *Client) Info() ConnInfo {
	return c.info
}

func (c *Client) send(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// closeWith sends a close control frame with the given policy code and
// reason, then closes the connection.
func (c *Client) closeWith(code int, reason string) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	deadline := time.Now().Add(writeWait)
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	_ = c.conn.Close()
}

// Hub owns the set of live connections. It only reads moderation/session
// state; bans and revocations reach it through CloseUser pushes.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]bool)}
}

// Register adds a connection tagged with info and returns its Client handle.
func (h *Hub) Register(conn *websocket.Conn, info ConnInfo) *Client {
	client := &Client{conn: conn, info: info}
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()
	return client
}

// Unregister removes a client from the live set. It reports whether the
// client was still registered so connect/disconnect accounting happens
// exactly once even when a forced close races the read loop's cleanup.
func (h *Hub) Unregister(client *Client) bool {
	h.mu.Lock()
	_, ok := h.clients[client]
	delete(h.clients, client)
	h.mu.Unlock()
	return ok
}

// Count returns the number of live connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Usernames returns the deduplicated, sorted set of connected usernames,
// which is the presence snapshot payload.
func (h *Hub) Usernames() []string {
	h.mu.RLock()
	seen := make(map[string]bool, len(h.clients))
	for client := range h.clients {
		seen[client.info.Username] = true
	}
	h.mu.RUnlock()

	users := make([]string, 0, len(seen))
	for name := range seen {
		users = append(users, name)
	}
	sort.Strings(users)
	return users
}

func (h *Hub) snapshot() []*Client {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()
	return clients
}

// deliver writes payload to one client. A send error drops only that
// connection so one dead socket never affects delivery to the rest.
func (h *Hub) deliver(client *Client, payload []byte) {
	if err := client.send(payload); err != nil {
		log.Printf("websocket write error conn_id=%s user=%s: %v", client.info.ConnID, client.info.Username, err)
		client.conn.Close()
		if h.Unregister(client) {
			observability.DecWSActive()
		}
		observability.IncWSEvent("ws_error")
	}
}

// BroadcastChannel sends payload to every connection on a channel. A nil
// except delivers to all members including the sender's own tabs.
func (h *Hub) BroadcastChannel(channel string, payload any) {
	h.broadcastChannel(channel, payload, nil)
}

// BroadcastChannelExcept sends payload to every connection on a channel
// except the given one (typing indicators exclude the sender).
func (h *Hub) BroadcastChannelExcept(channel string, payload any, except *Client) {
	h.broadcastChannel(channel, payload, except)
}

func (h *Hub) broadcastChannel(channel string, payload any, except *Client) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("websocket marshal error: %v", err)
		return
	}
	for _, client := range h.snapshot() {
		if client == except || client.info.Channel != channel {
			continue
		}
		h.deliver(client, data)
	}
}

// BroadcastUser sends payload to every connection held by a username,
// keeping all of a user's tabs in sync.
func (h *Hub) BroadcastUser(username string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("websocket marshal error: %v", err)
		return
	}
	for _, client := range h.snapshot() {
		if client.info.Username != username {
			continue
		}
		h.deliver(client, data)
	}
}

// BroadcastPresence pushes the current presence snapshot to every
// connection.
func (h *Hub) BroadcastPresence() {
	frame := models.PresenceFrame{Type: models.FramePresence, Users: h.Usernames()}
	data, err := json.Marshal(frame)
	if err != nil {
		log.Printf("websocket marshal error: %v", err)
		return
	}
	for _, client := range h.snapshot() {
		h.deliver(client, data)
	}
}

// CloseUser force-closes every connection held by a username with a policy
// close code. Called by the moderation cache (ban) and the session store
// (logout, revocation); the hub itself never initiates these.
func (h *Hub) CloseUser(username string, code int, reason string) {
	closed := 0
	for _, client := range h.snapshot() {
		if client.info.Username != username {
			continue
		}
		client.closeWith(code, reason)
		if h.Unregister(client) {
			observability.DecWSActive()
		}
		closed++
	}
	if closed > 0 {
		log.Printf("websocket forced close user=%s code=%d reason=%q conns=%d", username, code, reason, closed)
		observability.IncWSEvent("ws_forced_close")
		h.BroadcastPresence()
	}
}
