package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"gamehub-chat/internal/channels"
	"gamehub-chat/internal/chat"
	"gamehub-chat/internal/models"
	"gamehub-chat/internal/repositories"
)

// MaxAttachments caps the number of files on a single message.
const MaxAttachments = 5

// ChatHandler serves the HTTP chat surface: history, posting and deletion.
type ChatHandler struct {
	authz       *channels.Authorizer
	pipeline    *chat.Pipeline
	messages    repositories.MessageRepository
	broadcaster chat.Broadcaster
	uploadDir   string
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(authz *channels.Authorizer, pipeline *chat.Pipeline, messages repositories.MessageRepository, broadcaster chat.Broadcaster, uploadDir string) *ChatHandler {
	return &ChatHandler{
		authz:       authz,
		pipeline:    pipeline,
		messages:    messages,
		broadcaster: broadcaster,
		uploadDir:   uploadDir,
	}
}

// History returns a page of non-deleted messages for a channel, newest first.
func (h *ChatHandler) History(c *gin.Context) {
	username := c.GetString("username")
	channel := c.Query("channel")
	if channel == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channel is required"})
		return
	}
	if !h.authz.IsAllowed(username, channel) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed for channel"})
		return
	}

	var beforeID int64
	if raw := c.Query("before_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid before_id"})
			return
		}
		beforeID = parsed
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	msgs, err := h.messages.History(c.Request.Context(), channel, beforeID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostMessage accepts a multipart message with optional attachments and runs
// it through the same pipeline as the WebSocket path.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	username := c.GetString("username")
	channel := c.PostForm("channel")
	if channel == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channel is required"})
		return
	}

	text := strings.TrimSpace(c.PostForm("text"))
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}
	if runes := []rune(text); len(runes) > models.MaxMessageLength {
		text = string(runes[:models.MaxMessageLength])
	}

	attachments, err := h.saveAttachments(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := h.pipeline.Submit(c.Request.Context(), username, channel, text, attachments)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	switch outcome.Kind {
	case chat.OutcomeDelivered, chat.OutcomeShadowed:
		c.JSON(http.StatusCreated, outcome.Message)
	case chat.OutcomeModerated:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": outcome.Notice})
	default:
		c.JSON(http.StatusForbidden, gin.H{"error": outcome.Notice})
	}
}

// saveAttachments writes uploaded files to the upload directory under random
// names and returns the attachment rows to persist alongside the message.
func (h *ChatHandler) saveAttachments(c *gin.Context) ([]models.Attachment, error) {
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, fmt.Errorf("invalid multipart form")
	}

	files := form.File["files"]
	if len(files) == 0 {
		return nil, nil
	}
	if len(files) > MaxAttachments {
		return nil, fmt.Errorf("too many attachments: max %d", MaxAttachments)
	}

	attachments := make([]models.Attachment, 0, len(files))
	for _, file := range files {
		name := uuid.NewString() + filepath.Ext(file.Filename)
		path := filepath.Join(h.uploadDir, name)
		if err := c.SaveUploadedFile(file, path); err != nil {
			log.Printf("attachment save failed file=%s: %v", file.Filename, err)
			return nil, fmt.Errorf("could not store attachment")
		}
		attachments = append(attachments, models.Attachment{
			FileName: filepath.Base(file.Filename),
			FilePath: path,
			MimeType: file.Header.Get("Content-Type"),
		})
	}
	return attachments, nil
}

// DeleteMessage soft-deletes the caller's own message. Repeat deletes are
// idempotent and broadcast the removal at most once.
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	messageID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	username := c.GetString("username")
	msg, err := h.messages.GetMessage(c.Request.Context(), messageID)
	if err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load message"})
		return
	}
	if msg.Username != username {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the author can delete a message"})
		return
	}

	changed, err := h.messages.SoftDeleteMessage(c.Request.Context(), messageID, username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete message"})
		return
	}
	if changed {
		h.broadcaster.BroadcastChannel(msg.Channel, models.MessageDeletedFrame{
			Type:      models.FrameMessageDeleted,
			MessageID: messageID,
			Channel:   msg.Channel,
		})
	}

	c.Status(http.StatusNoContent)
}

// EnsureUploadDir creates the attachment directory at startup.
func EnsureUploadDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}
