package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"gamehub-chat/internal/models"
	"gamehub-chat/internal/repositories"
)

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, channel, username, text string) (models.Message, error) {
	args := m.Called(ctx, channel, username, text)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) CreateAttachment(ctx context.Context, att models.Attachment) (models.Attachment, error) {
	args := m.Called(ctx, att)
	var stored models.Attachment
	if val := args.Get(0); val != nil {
		stored = val.(models.Attachment)
	}
	return stored, args.Error(1)
}

func (m *MessageRepositoryMock) History(ctx context.Context, channel string, beforeID int64, limit int) ([]models.Message, error) {
	args := m.Called(ctx, channel, beforeID, limit)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID int64) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) SoftDeleteMessage(ctx context.Context, messageID int64, username string) (bool, error) {
	args := m.Called(ctx, messageID, username)
	return args.Bool(0), args.Error(1)
}

type ReportRepositoryMock struct {
	mock.Mock
}

func (m *ReportRepositoryMock) Create(ctx context.Context, report models.Report) (models.Report, error) {
	args := m.Called(ctx, report)
	var stored models.Report
	if val := args.Get(0); val != nil {
		stored = val.(models.Report)
	}
	return stored, args.Error(1)
}

func (m *ReportRepositoryMock) List(ctx context.Context, limit int) ([]models.Report, error) {
	args := m.Called(ctx, limit)
	var reports []models.Report
	if val := args.Get(0); val != nil {
		reports = val.([]models.Report)
	}
	return reports, args.Error(1)
}

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) Create(ctx context.Context, username, passwordHash string) (models.User, error) {
	args := m.Called(ctx, username, passwordHash)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetByUsername(ctx context.Context, username string) (models.User, error) {
	args := m.Called(ctx, username)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) StaffUsernames(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	var names []string
	if val := args.Get(0); val != nil {
		names = val.([]string)
	}
	return names, args.Error(1)
}

type SessionRepositoryMock struct {
	mock.Mock
}

func (m *SessionRepositoryMock) Insert(ctx context.Context, sess models.Session) error {
	args := m.Called(ctx, sess)
	return args.Error(0)
}

func (m *SessionRepositoryMock) Delete(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *SessionRepositoryMock) DeleteAllForUser(ctx context.Context, username string) error {
	args := m.Called(ctx, username)
	return args.Error(0)
}

func (m *SessionRepositoryMock) All(ctx context.Context) ([]models.Session, error) {
	args := m.Called(ctx)
	var sessions []models.Session
	if val := args.Get(0); val != nil {
		sessions = val.([]models.Session)
	}
	return sessions, args.Error(1)
}

type ModerationRepositoryMock struct {
	mock.Mock
}

func (m *ModerationRepositoryMock) Get(ctx context.Context, username string) (models.ModerationRecord, error) {
	args := m.Called(ctx, username)
	var rec models.ModerationRecord
	if val := args.Get(0); val != nil {
		rec = val.(models.ModerationRecord)
	}
	return rec, args.Error(1)
}

func (m *ModerationRepositoryMock) EnsureDefault(ctx context.Context, username string) (models.ModerationRecord, error) {
	args := m.Called(ctx, username)
	var rec models.ModerationRecord
	if val := args.Get(0); val != nil {
		rec = val.(models.ModerationRecord)
	}
	return rec, args.Error(1)
}

func (m *ModerationRepositoryMock) UpdateBan(ctx context.Context, username string, banned bool, reason string) error {
	args := m.Called(ctx, username, banned, reason)
	return args.Error(0)
}

func (m *ModerationRepositoryMock) UpdateShadowBan(ctx context.Context, username string, shadowBanned bool) error {
	args := m.Called(ctx, username, shadowBanned)
	return args.Error(0)
}

func (m *ModerationRepositoryMock) UpdateToxicity(ctx context.Context, username string, toxicity int) error {
	args := m.Called(ctx, username, toxicity)
	return args.Error(0)
}

func (m *ModerationRepositoryMock) UpdateWarnings(ctx context.Context, username string, warnings int) error {
	args := m.Called(ctx, username, warnings)
	return args.Error(0)
}

func (m *ModerationRepositoryMock) BannedUsers(ctx context.Context) ([]models.ModerationRecord, error) {
	args := m.Called(ctx)
	var recs []models.ModerationRecord
	if val := args.Get(0); val != nil {
		recs = val.([]models.ModerationRecord)
	}
	return recs, args.Error(1)
}

func (m *ModerationRepositoryMock) InsertLog(ctx context.Context, actor, target, action, reason string) error {
	args := m.Called(ctx, actor, target, action, reason)
	return args.Error(0)
}

type BroadcasterMock struct {
	mock.Mock
}

func (m *BroadcasterMock) BroadcastChannel(channel string, payload any) {
	m.Called(channel, payload)
}

func (m *BroadcasterMock) BroadcastUser(username string, payload any) {
	m.Called(username, payload)
}

var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.ReportRepository = (*ReportRepositoryMock)(nil)
var _ repositories.UserRepository = (*UserRepositoryMock)(nil)
var _ repositories.SessionRepository = (*SessionRepositoryMock)(nil)
var _ repositories.ModerationRepository = (*ModerationRepositoryMock)(nil)
