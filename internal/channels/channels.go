// Package channels decides whether a username may read or write a channel.
// The same Authorizer instance is consulted by the WebSocket handshake and
// every HTTP chat path so the two surfaces can never diverge.
package channels

import (
	"strings"
	"sync"
)

// DMPrefix marks direct-message channel identifiers of the form
// "dm:<userA>,<userB>".
const DMPrefix = "dm:"

// Authorizer holds the public-room allow-list, the staff room name and the
// staff username set.
type Authorizer struct {
	rooms     map[string]bool
	staffRoom string

	mu    sync.RWMutex
	staff map[string]bool
}

// NewAuthorizer builds an Authorizer from the configured room allow-list.
func NewAuthorizer(publicRooms []string, staffRoom string) *Authorizer {
	rooms := make(map[string]bool, len(publicRooms))
	for _, room := range publicRooms {
		rooms[room] = true
	}
	return &Authorizer{
		rooms:     rooms,
		staffRoom: staffRoom,
		staff:     make(map[string]bool),
	}
}

// SetStaff replaces the staff username set, typically loaded from the users
// table at startup.
func (a *Authorizer) SetStaff(usernames []string) {
	staff := make(map[string]bool, len(usernames))
	for _, name := range usernames {
		staff[name] = true
	}
	a.mu.Lock()
	a.staff = staff
	a.mu.Unlock()
}

// IsStaff reports whether a username holds the staff role.
func (a *Authorizer) IsStaff(username string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.staff[username]
}

// IsAllowed reports whether username may read/write channel.
//
// DM identifiers grant access to their exact participants; malformed ids
// simply fail to match. The staff room requires the staff role. Anything
// else must appear in the public allow-list.
func (a *Authorizer) IsAllowed(username, channel string) bool {
	if strings.HasPrefix(channel, DMPrefix) {
		for _, participant := range strings.Split(channel[len(DMPrefix):], ",") {
			if participant == username {
				return true
			}
		}
		return false
	}

	if channel == a.staffRoom {
		return a.IsStaff(username)
	}

	return a.rooms[channel]
}
