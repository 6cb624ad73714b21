package moderation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gamehub-chat/internal/mocks"
	"gamehub-chat/internal/models"
)

// cascadeRecorder captures the order of ban side effects.
type cascadeRecorder struct {
	calls []string
	code  int
}

func (r *cascadeRecorder) RevokeAll(ctx context.Context, username string) {
	r.calls = append(r.calls, "revoke:"+username)
}

func (r *cascadeRecorder) CloseUser(username string, code int, reason string) {
	r.calls = append(r.calls, "close:"+username)
	r.code = code
}

func newTestState(repo *mocks.ModerationRepositoryMock) (*State, *cascadeRecorder) {
	state := NewState(repo)
	rec := &cascadeRecorder{}
	state.SetSessions(rec)
	state.SetConns(rec)
	return state, rec
}

func TestSetBannedCascade(t *testing.T) {
	repo := new(mocks.ModerationRepositoryMock)
	state, cascade := newTestState(repo)

	repo.On("EnsureDefault", mock.Anything, "griefer").Return(models.ModerationRecord{Username: "griefer", Toxicity: 5}, nil).Once()
	repo.On("UpdateBan", mock.Anything, "griefer", true, "Cheating").Return(nil).Once()
	repo.On("InsertLog", mock.Anything, "mod_sarah", "griefer", "ban", "Cheating").Return(nil).Once()

	require.NoError(t, state.SetBanned(context.Background(), "griefer", true, "Cheating", "mod_sarah"))

	banned, reason := state.BannedReason("griefer")
	assert.True(t, banned)
	assert.Equal(t, "Cheating", reason)

	// Sockets must see the ban close code before the logged-out revocation.
	assert.Equal(t, []string{"close:griefer", "revoke:griefer"}, cascade.calls)
	assert.Equal(t, models.CloseBanned, cascade.code)
	repo.AssertExpectations(t)
}

func TestSetBannedDefaultReason(t *testing.T) {
	repo := new(mocks.ModerationRepositoryMock)
	state, _ := newTestState(repo)

	repo.On("EnsureDefault", mock.Anything, "griefer").Return(models.ModerationRecord{Username: "griefer"}, nil).Once()
	repo.On("UpdateBan", mock.Anything, "griefer", true, "Banned by mod_sarah").Return(nil).Once()
	repo.On("InsertLog", mock.Anything, "mod_sarah", "griefer", "ban", "Banned by mod_sarah").Return(nil).Once()

	require.NoError(t, state.SetBanned(context.Background(), "griefer", true, "", "mod_sarah"))
	repo.AssertExpectations(t)
}

func TestUnbanClearsFastPath(t *testing.T) {
	repo := new(mocks.ModerationRepositoryMock)
	state, _ := newTestState(repo)

	repo.On("EnsureDefault", mock.Anything, "griefer").Return(models.ModerationRecord{Username: "griefer"}, nil).Twice()
	repo.On("UpdateBan", mock.Anything, "griefer", true, "Cheating").Return(nil).Once()
	repo.On("UpdateBan", mock.Anything, "griefer", false, "").Return(nil).Once()
	repo.On("InsertLog", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, state.SetBanned(context.Background(), "griefer", true, "Cheating", "mod_sarah"))
	require.NoError(t, state.SetBanned(context.Background(), "griefer", false, "", "mod_sarah"))

	banned, _ := state.BannedReason("griefer")
	assert.False(t, banned)
}

func TestMuteExpires(t *testing.T) {
	repo := new(mocks.ModerationRepositoryMock)
	state, _ := newTestState(repo)
	clock := time.Unix(1000, 0)
	state.now = func() time.Time { return clock }

	state.Mute("spammer")
	assert.True(t, state.IsMuted("spammer"))

	clock = clock.Add(MuteDuration + time.Second)
	assert.False(t, state.IsMuted("spammer"))
	assert.False(t, state.IsMuted("spammer"), "expired entry stays evicted")
}

func TestAddWarningBelowThreshold(t *testing.T) {
	repo := new(mocks.ModerationRepositoryMock)
	state, cascade := newTestState(repo)

	repo.On("EnsureDefault", mock.Anything, "alice").Return(models.ModerationRecord{Username: "alice", Warnings: 1}, nil).Once()
	repo.On("UpdateWarnings", mock.Anything, "alice", 2).Return(nil).Once()

	warnings, err := state.AddWarning(context.Background(), "alice")

	require.NoError(t, err)
	assert.Equal(t, 2, warnings)
	assert.Empty(t, cascade.calls)
	repo.AssertExpectations(t)
}

func TestThirdWarningAutoBans(t *testing.T) {
	repo := new(mocks.ModerationRepositoryMock)
	state, cascade := newTestState(repo)

	repo.On("EnsureDefault", mock.Anything, "alice").Return(models.ModerationRecord{Username: "alice", Warnings: 2}, nil)
	repo.On("UpdateWarnings", mock.Anything, "alice", 3).Return(nil).Once()
	repo.On("UpdateBan", mock.Anything, "alice", true, "Auto-ban: accumulated 3 warnings").Return(nil).Once()
	repo.On("InsertLog", mock.Anything, ActorAutoMod, "alice", "ban", "Auto-ban: accumulated 3 warnings").Return(nil).Once()

	warnings, err := state.AddWarning(context.Background(), "alice")

	require.NoError(t, err)
	assert.Equal(t, 3, warnings)
	assert.Equal(t, []string{"close:alice", "revoke:alice"}, cascade.calls)

	banned, reason := state.BannedReason("alice")
	assert.True(t, banned)
	assert.Equal(t, "Auto-ban: accumulated 3 warnings", reason)
	repo.AssertExpectations(t)
}

func TestSetToxicityClamps(t *testing.T) {
	repo := new(mocks.ModerationRepositoryMock)
	state, _ := newTestState(repo)

	repo.On("EnsureDefault", mock.Anything, "alice").Return(models.ModerationRecord{Username: "alice"}, nil).Twice()
	repo.On("UpdateToxicity", mock.Anything, "alice", models.MaxToxicity).Return(nil).Once()
	repo.On("UpdateToxicity", mock.Anything, "alice", models.MinToxicity).Return(nil).Once()

	require.NoError(t, state.SetToxicity(context.Background(), "alice", 99))
	require.NoError(t, state.SetToxicity(context.Background(), "alice", -1))
	repo.AssertExpectations(t)
}

func TestLoadWarmsBannedSet(t *testing.T) {
	repo := new(mocks.ModerationRepositoryMock)
	state, _ := newTestState(repo)

	repo.On("BannedUsers", mock.Anything).Return([]models.ModerationRecord{
		{Username: "griefer", IsBanned: true, BanReason: "Cheating"},
	}, nil).Once()

	require.NoError(t, state.Load(context.Background()))

	banned, reason := state.BannedReason("griefer")
	assert.True(t, banned)
	assert.Equal(t, "Cheating", reason)
}
