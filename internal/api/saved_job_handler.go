package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"jobnest/internal/board"
)

// SavedJobHandler 负责职位收藏。
type SavedJobHandler struct {
	saved *board.SavedJobService
}

// NewSavedJobHandler 构造 SavedJobHandler。
func NewSavedJobHandler(saved *board.SavedJobService) *SavedJobHandler {
	return &SavedJobHandler{saved: saved}
}

type saveJobRequest struct {
	JobID uint `json:"jobId" binding:"required"`
}

// Save 收藏职位。
func (h *SavedJobHandler) Save(c *gin.Context) {
	var req saveJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	saved, err := h.saved.SaveJob(c.Request.Context(), userID, req.JobID)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

// Unsave 取消收藏。
func (h *SavedJobHandler) Unsave(c *gin.Context) {
	jobID, ok := parseIDParam(c, "jobId")
	if !ok {
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	if err := h.saved.UnsaveJob(c.Request.Context(), userID, jobID); err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Job removed from saved jobs"})
}

// List 返回收藏列表。
func (h *SavedJobHandler) List(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	saved, err := h.saved.ListSavedJobs(c.Request.Context(), userID)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// Check 返回职位是否已收藏。
func (h *SavedJobHandler) Check(c *gin.Context) {
	jobID, ok := parseIDParam(c, "jobId")
	if !ok {
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	isSaved, err := h.saved.IsSaved(c.Request.Context(), userID, jobID)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"isSaved": isSaved})
}
