package session

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gamehub-chat/internal/mocks"
	"gamehub-chat/internal/models"
)

type banCheckerStub struct {
	banned map[string]string
}

func (s banCheckerStub) BannedReason(username string) (bool, string) {
	reason, ok := s.banned[username]
	return ok, reason
}

type connCloserStub struct {
	closed []string
	code   int
}

func (s *connCloserStub) CloseUser(username string, code int, reason string) {
	s.closed = append(s.closed, username)
	s.code = code
}

func TestCreateAndResolve(t *testing.T) {
	repo := new(mocks.SessionRepositoryMock)
	store := NewStore(repo, banCheckerStub{})

	repo.On("Insert", mock.Anything, mock.Anything).Return(nil).Once()

	token, err := store.Create(context.Background(), "alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	res := store.Resolve(context.Background(), token)
	assert.True(t, res.OK)
	assert.Equal(t, "alice", res.Username)
	repo.AssertExpectations(t)
}

func TestResolveUnknownToken(t *testing.T) {
	repo := new(mocks.SessionRepositoryMock)
	store := NewStore(repo, banCheckerStub{})

	res := store.Resolve(context.Background(), "nope")

	assert.False(t, res.OK)
	assert.False(t, res.Banned)
}

func TestResolveBannedUserEvictsToken(t *testing.T) {
	repo := new(mocks.SessionRepositoryMock)
	store := NewStore(repo, banCheckerStub{banned: map[string]string{"griefer": "Cheating"}})

	repo.On("Insert", mock.Anything, mock.Anything).Return(nil).Once()
	repo.On("Delete", mock.Anything, mock.Anything).Return(nil).Once()

	token, err := store.Create(context.Background(), "griefer")
	require.NoError(t, err)

	res := store.Resolve(context.Background(), token)
	assert.False(t, res.OK)
	assert.True(t, res.Banned)
	assert.Equal(t, "griefer", res.BannedUser)
	assert.Equal(t, "Cheating", res.BanReason)

	// The token is gone; a second lookup is a plain miss.
	res = store.Resolve(context.Background(), token)
	assert.False(t, res.Banned)
	repo.AssertExpectations(t)
}

func TestResolveOversizedUsernameEvicts(t *testing.T) {
	repo := new(mocks.SessionRepositoryMock)
	store := NewStore(repo, banCheckerStub{})

	repo.On("All", mock.Anything).Return([]models.Session{
		{Token: "t1", Username: strings.Repeat("x", models.MaxUsernameLength+1)},
	}, nil).Once()
	repo.On("Delete", mock.Anything, "t1").Return(nil).Once()

	require.NoError(t, store.Load(context.Background()))

	res := store.Resolve(context.Background(), "t1")
	assert.False(t, res.OK)
	repo.AssertExpectations(t)
}

func TestRevokeAllClosesConnections(t *testing.T) {
	repo := new(mocks.SessionRepositoryMock)
	store := NewStore(repo, banCheckerStub{})
	conns := &connCloserStub{}
	store.SetConns(conns)

	repo.On("Insert", mock.Anything, mock.Anything).Return(nil).Twice()
	repo.On("DeleteAllForUser", mock.Anything, "alice").Return(nil).Once()

	tok1, err := store.Create(context.Background(), "alice")
	require.NoError(t, err)
	tok2, err := store.Create(context.Background(), "alice")
	require.NoError(t, err)

	store.RevokeAll(context.Background(), "alice")

	assert.False(t, store.Resolve(context.Background(), tok1).OK)
	assert.False(t, store.Resolve(context.Background(), tok2).OK)
	assert.Equal(t, []string{"alice"}, conns.closed)
	assert.Equal(t, models.CloseLoggedOut, conns.code)
	repo.AssertExpectations(t)
}

func TestRevokeSingleToken(t *testing.T) {
	repo := new(mocks.SessionRepositoryMock)
	store := NewStore(repo, banCheckerStub{})

	repo.On("Insert", mock.Anything, mock.Anything).Return(nil).Twice()
	repo.On("Delete", mock.Anything, mock.Anything).Return(nil).Once()

	tok1, err := store.Create(context.Background(), "alice")
	require.NoError(t, err)
	tok2, err := store.Create(context.Background(), "alice")
	require.NoError(t, err)

	store.Revoke(context.Background(), tok1)

	assert.False(t, store.Resolve(context.Background(), tok1).OK)
	assert.True(t, store.Resolve(context.Background(), tok2).OK)
	repo.AssertExpectations(t)
}
