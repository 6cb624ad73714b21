package ws

import "time"

// ConnInfo is the identity record attached to a connection at handshake
// time. Username and Channel drive every broadcast and forced-close
// decision.
type ConnInfo struct {
	ConnID      string
	Username    string
	Channel     string
	IP          string
	ConnectedAt time.Time
}
