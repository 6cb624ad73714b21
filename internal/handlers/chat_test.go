package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gamehub-chat/internal/channels"
	"gamehub-chat/internal/chat"
	"gamehub-chat/internal/mocks"
	"gamehub-chat/internal/models"
	"gamehub-chat/internal/moderation"
	"gamehub-chat/internal/repositories"
)

type chatFixture struct {
	messages    *mocks.MessageRepositoryMock
	reports     *mocks.ReportRepositoryMock
	modRepo     *mocks.ModerationRepositoryMock
	broadcaster *mocks.BroadcasterMock
	router      *gin.Engine
}

func newChatFixture(t *testing.T, username string) *chatFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &chatFixture{
		messages:    new(mocks.MessageRepositoryMock),
		reports:     new(mocks.ReportRepositoryMock),
		modRepo:     new(mocks.ModerationRepositoryMock),
		broadcaster: new(mocks.BroadcasterMock),
	}

	authz := channels.NewAuthorizer([]string{"general", "trade"}, "staff")
	state := moderation.NewState(f.modRepo)
	engine := moderation.NewEngine(moderation.NewRules(nil), nil)
	pipeline := chat.NewPipeline(authz, state, engine, f.messages, f.reports, f.broadcaster, nil)
	handler := NewChatHandler(authz, pipeline, f.messages, f.broadcaster, t.TempDir())

	f.router = gin.New()
	f.router.Use(func(c *gin.Context) {
		c.Set("username", username)
		c.Next()
	})
	f.router.GET("/messages", handler.History)
	f.router.POST("/messages", handler.PostMessage)
	f.router.DELETE("/messages/:id", handler.DeleteMessage)
	return f
}

func TestHistorySuccess(t *testing.T) {
	f := newChatFixture(t, "alice")

	f.messages.On("History", mock.Anything, "general", int64(0), 0).
		Return([]models.Message{{ID: 9, Channel: "general", Username: "bob", Text: "hi"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/messages?channel=general", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Messages []models.Message `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, int64(9), resp.Messages[0].ID)
	f.messages.AssertExpectations(t)
}

func TestHistoryPagination(t *testing.T) {
	f := newChatFixture(t, "alice")

	f.messages.On("History", mock.Anything, "general", int64(100), 25).
		Return([]models.Message{}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/messages?channel=general&before_id=100&limit=25", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	f.messages.AssertExpectations(t)
}

func TestHistoryForbiddenChannel(t *testing.T) {
	f := newChatFixture(t, "alice")

	req := httptest.NewRequest(http.MethodGet, "/messages?channel=staff", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	f.messages.AssertNotCalled(t, "History", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHistoryMissingChannel(t *testing.T) {
	f := newChatFixture(t, "alice")

	req := httptest.NewRequest(http.MethodGet, "/messages", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func postMultipart(t *testing.T, router *gin.Engine, fields map[string]string, files map[string][]byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	for name, content := range files {
		part, err := writer.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/messages", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestPostMessageDelivered(t *testing.T) {
	f := newChatFixture(t, "alice")

	stored := models.Message{ID: 5, Channel: "general", Username: "alice", Text: "hello"}
	f.modRepo.On("EnsureDefault", mock.Anything, "alice").
		Return(models.ModerationRecord{Username: "alice", Toxicity: models.DefaultToxicity}, nil).Once()
	f.messages.On("CreateMessage", mock.Anything, "general", "alice", "hello").Return(stored, nil).Once()
	f.broadcaster.On("BroadcastChannel", "general", models.NewChatFrame(stored)).Once()

	rec := postMultipart(t, f.router, map[string]string{"channel": "general", "text": "hello"}, nil)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp models.Message
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, int64(5), resp.ID)
	f.broadcaster.AssertExpectations(t)
}

func TestPostMessageWithAttachment(t *testing.T) {
	f := newChatFixture(t, "alice")

	stored := models.Message{ID: 6, Channel: "general", Username: "alice", Text: "screenshot"}
	f.modRepo.On("EnsureDefault", mock.Anything, "alice").
		Return(models.ModerationRecord{Username: "alice", Toxicity: models.DefaultToxicity}, nil).Once()
	f.messages.On("CreateMessage", mock.Anything, "general", "alice", "screenshot").Return(stored, nil).Once()
	f.messages.On("CreateAttachment", mock.Anything, mock.MatchedBy(func(a models.Attachment) bool {
		return a.MessageID == 6 && a.FileName == "shot.png"
	})).Return(models.Attachment{ID: 1, MessageID: 6, FileName: "shot.png"}, nil).Once()
	f.broadcaster.On("BroadcastChannel", "general", mock.Anything).Once()

	rec := postMultipart(t, f.router,
		map[string]string{"channel": "general", "text": "screenshot"},
		map[string][]byte{"shot.png": []byte("fake image bytes")})

	require.Equal(t, http.StatusCreated, rec.Code)
	f.messages.AssertExpectations(t)
}

func TestPostMessageTooManyAttachments(t *testing.T) {
	f := newChatFixture(t, "alice")

	files := map[string][]byte{}
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		files[name+".png"] = []byte("x")
	}
	rec := postMultipart(t, f.router, map[string]string{"channel": "general", "text": "spam"}, files)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	f.messages.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPostMessageModeratedReturnsNotice(t *testing.T) {
	f := newChatFixture(t, "alice")

	f.modRepo.On("EnsureDefault", mock.Anything, "alice").
		Return(models.ModerationRecord{Username: "alice", Toxicity: models.DefaultToxicity}, nil)
	f.modRepo.On("UpdateWarnings", mock.Anything, "alice", 1).Return(nil).Once()
	f.reports.On("Create", mock.Anything, mock.Anything).Return(models.Report{ID: 1}, nil).Once()

	rec := postMultipart(t, f.router,
		map[string]string{"channel": "general", "text": "free robux at www.scam.example"}, nil)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Contains(t, resp["error"], "warning")
}

func TestPostMessageForbiddenChannel(t *testing.T) {
	f := newChatFixture(t, "alice")

	rec := postMultipart(t, f.router, map[string]string{"channel": "staff", "text": "hi"}, nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeleteMessageBroadcastsOnce(t *testing.T) {
	f := newChatFixture(t, "alice")

	msg := models.Message{ID: 11, Channel: "general", Username: "alice", Text: "oops"}
	f.messages.On("GetMessage", mock.Anything, int64(11)).Return(msg, nil).Twice()
	f.messages.On("SoftDeleteMessage", mock.Anything, int64(11), "alice").Return(true, nil).Once()
	f.messages.On("SoftDeleteMessage", mock.Anything, int64(11), "alice").Return(false, nil).Once()
	f.broadcaster.On("BroadcastChannel", "general", models.MessageDeletedFrame{
		Type:      models.FrameMessageDeleted,
		MessageID: 11,
		Channel:   "general",
	}).Once()

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodDelete, "/messages/11", nil)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}

	f.broadcaster.AssertNumberOfCalls(t, "BroadcastChannel", 1)
	f.messages.AssertExpectations(t)
}

func TestDeleteMessageNotAuthor(t *testing.T) {
	f := newChatFixture(t, "alice")

	f.messages.On("GetMessage", mock.Anything, int64(11)).
		Return(models.Message{ID: 11, Channel: "general", Username: "bob"}, nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/messages/11", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	f.messages.AssertNotCalled(t, "SoftDeleteMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteMessageNotFound(t *testing.T) {
	f := newChatFixture(t, "alice")

	f.messages.On("GetMessage", mock.Anything, int64(404)).
		Return(models.Message{}, repositories.ErrMessageNotFound).Once()

	req := httptest.NewRequest(http.MethodDelete, "/messages/404", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
