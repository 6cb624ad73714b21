package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gamehub-chat/internal/models"
	"gamehub-chat/internal/moderation"
	"gamehub-chat/internal/repositories"
)

// ModerationHandler serves user reports, toxicity settings and the staff
// moderation endpoints.
type ModerationHandler struct {
	state   *moderation.State
	reports repositories.ReportRepository
}

// NewModerationHandler builds a ModerationHandler.
func NewModerationHandler(state *moderation.State, reports repositories.ReportRepository) *ModerationHandler {
	return &ModerationHandler{state: state, reports: reports}
}

// CreateReport appends a user-filed report to the ledger.
func (h *ModerationHandler) CreateReport(c *gin.Context) {
	var req struct {
		Offender    string `json:"offender" binding:"required"`
		Channel     string `json:"channel"`
		MessageText string `json:"message_text"`
		Reason      string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.reports.Create(c.Request.Context(), models.Report{
		Reporter:    c.GetString("username"),
		Offender:    req.Offender,
		Channel:     req.Channel,
		MessageText: req.MessageText,
		Reason:      req.Reason,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not file report"})
		return
	}

	c.JSON(http.StatusCreated, report)
}

// SetToxicity stores the caller's auto-moderation sensitivity.
func (h *ModerationHandler) SetToxicity(c *gin.Context) {
	var req struct {
		Toxicity int `json:"toxicity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Toxicity < models.MinToxicity || req.Toxicity > models.MaxToxicity {
		c.JSON(http.StatusBadRequest, gin.H{"error": "toxicity must be between 1 and 10"})
		return
	}

	username := c.GetString("username")
	if err := h.state.SetToxicity(c.Request.Context(), username, req.Toxicity); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update setting"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"toxicity": req.Toxicity})
}

// Ban flips a user's ban flag. Staff only.
func (h *ModerationHandler) Ban(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Banned   *bool  `json:"banned" binding:"required"`
		Reason   string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := c.GetString("username")
	if err := h.state.SetBanned(c.Request.Context(), req.Username, *req.Banned, req.Reason, actor); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update ban"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"username": req.Username, "banned": *req.Banned})
}

// ShadowBan flips a user's shadow-ban flag. Staff only.
func (h *ModerationHandler) ShadowBan(c *gin.Context) {
	var req struct {
		Username     string `json:"username" binding:"required"`
		ShadowBanned *bool  `json:"shadow_banned" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := c.GetString("username")
	if err := h.state.SetShadowBanned(c.Request.Context(), req.Username, *req.ShadowBanned, actor); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update shadow-ban"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"username": req.Username, "shadow_banned": *req.ShadowBanned})
}

// ListReports returns recent ledger entries for the staff UI.
func (h *ModerationHandler) ListReports(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	reports, err := h.reports.List(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load reports"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reports": reports})
}
