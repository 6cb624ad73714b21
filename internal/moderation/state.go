package moderation

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"gamehub-chat/internal/models"
	"gamehub-chat/internal/repositories"
)

// MuteDuration is the cooldown applied by a mute verdict. Mutes are held in
// memory only and are lost on restart, which is acceptable for a short
// cooldown.
const MuteDuration = 10 * time.Minute

// ActorAutoMod attributes automatic moderation actions in the log.
const ActorAutoMod = "auto-mod"

// SessionRevoker invalidates every session held by a username. Implemented
// by the session store.
type SessionRevoker interface {
	RevokeAll(ctx context.Context, username string)
}

// ConnCloser force-closes every live connection tagged with a username.
// Implemented by the WebSocket hub.
type ConnCloser interface {
	CloseUser(username string, code int, reason string)
}

// State is the moderation state cache: a read/write-through layer over the
// moderation_state table plus in-memory fast paths (banned set, mute map)
// consulted on every message without a query.
//
// State is the only writer of ban/shadow-ban/warning data; the relay only
// reads it through the pipeline and reacts to forced-close pushes.
type State struct {
	repo     repositories.ModerationRepository
	sessions SessionRevoker
	conns    ConnCloser

	mu     sync.Mutex
	banned map[string]string    // username -> ban reason
	mutes  map[string]time.Time // username -> mute expiry

	now func() time.Time
}

// NewState builds the cache. SetSessions and SetConns must be called before
// any ban can cascade; they exist separately because the session store and
// the hub are constructed after the cache.
func NewState(repo repositories.ModerationRepository) *State {
	return &State{
		repo:   repo,
		banned: make(map[string]string),
		mutes:  make(map[string]time.Time),
		now:    time.Now,
	}
}

// SetSessions wires the session revoker used by ban cascades.
func (s *State) SetSessions(sessions SessionRevoker) { s.sessions = sessions }

// SetConns wires the connection closer used by ban cascades.
func (s *State) SetConns(conns ConnCloser) { s.conns = conns }

// Load warms the banned fast path from storage at startup.
func (s *State) Load(ctx context.Context) error {
	recs, err := s.repo.BannedUsers(ctx)
	if err != nil {
		return fmt.Errorf("moderation: load banned users: %w", err)
	}

	s.mu.Lock()
	for _, rec := range recs {
		s.banned[rec.Username] = rec.BanReason
	}
	s.mu.Unlock()

	log.Printf("moderation state loaded banned_users=%d", len(recs))
	return nil
}

// Get returns a user's moderation record, creating the default row on first
// reference.
func (s *State) Get(ctx context.Context, username string) (models.ModerationRecord, error) {
	return s.repo.EnsureDefault(ctx, username)
}

// BannedReason reports from the fast path whether a username is banned and
// why. It never touches storage.
func (s *State) BannedReason(username string) (bool, string) {
	s.mu.Lock()
	reason, ok := s.banned[username]
	s.mu.Unlock()
	return ok, reason
}

// Mute blocks a username from sending until now+MuteDuration.
func (s *State) Mute(username string) {
	s.mu.Lock()
	s.mutes[username] = s.now().Add(MuteDuration)
	s.mu.Unlock()
}

// IsMuted reports whether a username is currently muted. Expired entries are
// evicted on the way out.
func (s *State) IsMuted(username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiry, ok := s.mutes[username]
	if !ok {
		return false
	}
	if s.now().After(expiry) {
		delete(s.mutes, username)
		return false
	}
	return true
}

// SetBanned transitions a user's ban flag. On a transition to banned the
// effective reason is resolved (explicit reason, else the previously cached
// reason, else "Banned by <actor>"), the row is persisted, the fast path is
// updated, every session is invalidated, every live socket is closed with
// the policy code, and the action is logged, all within the same call.
func (s *State) SetBanned(ctx context.Context, username string, banned bool, reason, actor string) error {
	if _, err := s.repo.EnsureDefault(ctx, username); err != nil {
		return fmt.Errorf("moderation: ensure record: %w", err)
	}

	if !banned {
		if err := s.repo.UpdateBan(ctx, username, false, ""); err != nil {
			return fmt.Errorf("moderation: persist unban: %w", err)
		}
		s.mu.Lock()
		delete(s.banned, username)
		s.mu.Unlock()
		s.logAction(ctx, actor, username, "unban", "")
		return nil
	}

	effective := reason
	if effective == "" {
		s.mu.Lock()
		effective = s.banned[username]
		s.mu.Unlock()
	}
	if effective == "" {
		effective = "Banned by " + actor
	}

	if err := s.repo.UpdateBan(ctx, username, true, effective); err != nil {
		return fmt.Errorf("moderation: persist ban: %w", err)
	}

	s.mu.Lock()
	s.banned[username] = effective
	s.mu.Unlock()

	// Close sockets before revoking sessions: RevokeAll pushes a logged-out
	// close of its own, and banned connections must see the ban code.
	if s.conns != nil {
		s.conns.CloseUser(username, models.CloseBanned, effective)
	}
	if s.sessions != nil {
		s.sessions.RevokeAll(ctx, username)
	}

	s.logAction(ctx, actor, username, "ban", effective)
	return nil
}

// SetShadowBanned toggles the shadow-ban flag.
func (s *State) SetShadowBanned(ctx context.Context, username string, shadowBanned bool, actor string) error {
	if _, err := s.repo.EnsureDefault(ctx, username); err != nil {
		return fmt.Errorf("moderation: ensure record: %w", err)
	}
	if err := s.repo.UpdateShadowBan(ctx, username, shadowBanned); err != nil {
		return fmt.Errorf("moderation: persist shadow-ban: %w", err)
	}
	action := "shadowban"
	if !shadowBanned {
		action = "unshadowban"
	}
	s.logAction(ctx, actor, username, action, "")
	return nil
}

// SetToxicity stores a user's sensitivity setting, clamped to the valid
// range.
func (s *State) SetToxicity(ctx context.Context, username string, toxicity int) error {
	if toxicity < models.MinToxicity {
		toxicity = models.MinToxicity
	}
	if toxicity > models.MaxToxicity {
		toxicity = models.MaxToxicity
	}
	if _, err := s.repo.EnsureDefault(ctx, username); err != nil {
		return fmt.Errorf("moderation: ensure record: %w", err)
	}
	return s.repo.UpdateToxicity(ctx, username, toxicity)
}

// AddWarning increments a user's warning counter. Reaching the threshold
// cascades into an automatic ban attributed to auto-mod.
func (s *State) AddWarning(ctx context.Context, username string) (int, error) {
	rec, err := s.repo.EnsureDefault(ctx, username)
	if err != nil {
		return 0, fmt.Errorf("moderation: ensure record: %w", err)
	}

	warnings := rec.Warnings + 1
	if err := s.repo.UpdateWarnings(ctx, username, warnings); err != nil {
		return rec.Warnings, fmt.Errorf("moderation: persist warnings: %w", err)
	}

	if warnings >= models.WarningThreshold && !rec.IsBanned {
		reason := fmt.Sprintf("Auto-ban: accumulated %d warnings", models.WarningThreshold)
		if err := s.SetBanned(ctx, username, true, reason, ActorAutoMod); err != nil {
			return warnings, err
		}
	}
	return warnings, nil
}

// logAction appends to the moderation log; failures are logged and swallowed
// because the log is housekeeping, not part of the enforced state.
func (s *State) logAction(ctx context.Context, actor, target, action, reason string) {
	if err := s.repo.InsertLog(ctx, actor, target, action, reason); err != nil {
		log.Printf("moderation: log action failed actor=%s target=%s action=%s: %v", actor, target, action, err)
	}
}
