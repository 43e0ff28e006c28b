package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"jobnest/internal/board"
	"jobnest/internal/database"
	"jobnest/internal/metrics"
)

// ApplicationHandler 负责职位申请相关的 API 请求。
type ApplicationHandler struct {
	applications *board.ApplicationService
}

// NewApplicationHandler 构造 ApplicationHandler。
func NewApplicationHandler(applications *board.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{applications: applications}
}

type applyRequest struct {
	JobID         uint           `json:"jobId" binding:"required"`
	Name          string         `json:"name" binding:"omitempty,min=2,max=100"`
	Email         string         `json:"email" binding:"omitempty,email"`
	ResumeURL     string         `json:"resumeUrl" binding:"required,url,max=500"`
	CoverLetter   string         `json:"coverLetter" binding:"required,min=10,max=5000"`
	CustomAnswers map[string]any `json:"customAnswers"`
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type editApplicationRequest struct {
	Name          *string        `json:"name" binding:"omitempty,min=2,max=100"`
	Email         *string        `json:"email" binding:"omitempty,email"`
	ResumeURL     *string        `json:"resumeUrl" binding:"omitempty,url,max=500"`
	CoverLetter   *string        `json:"coverLetter" binding:"omitempty,min=10,max=5000"`
	CustomAnswers map[string]any `json:"customAnswers"`
}

// Apply 投递申请。
func (h *ApplicationHandler) Apply(c *gin.Context) {
	var req applyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	app, err := h.applications.Apply(c.Request.Context(), userID, board.ApplicationInput{
		JobID:         req.JobID,
		Name:          req.Name,
		Email:         req.Email,
		ResumeURL:     req.ResumeURL,
		CoverLetter:   req.CoverLetter,
		CustomAnswers: req.CustomAnswers,
	})
	if err != nil {
		WriteError(c, err)
		return
	}
	metrics.ObserveApplicationStatus(string(app.Status))
	c.JSON(http.StatusCreated, app)
}

// ListMine 返回当前求职者的申请。
func (h *ApplicationHandler) ListMine(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	apps, err := h.applications.ListMyApplications(c.Request.Context(), userID)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, apps)
}

// ListForJob 返回某职位收到的申请。
func (h *ApplicationHandler) ListForJob(c *gin.Context) {
	jobID, ok := parseIDParam(c, "jobId")
	if !ok {
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	apps, err := h.applications.ListJobApplications(c.Request.Context(), userID, jobID)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, apps)
}

// UpdateStatus 修改申请状态。
func (h *ApplicationHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	app, err := h.applications.SetApplicationStatus(c.Request.Context(), userID, id, database.ApplicationStatus(req.Status))
	if err != nil {
		WriteError(c, err)
		return
	}
	metrics.ObserveApplicationStatus(string(app.Status))
	c.JSON(http.StatusOK, app)
}

// Edit 修改申请内容。
func (h *ApplicationHandler) Edit(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req editApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	app, err := h.applications.EditApplication(c.Request.Context(), userID, id, board.ApplicationPatch{
		Name:          req.Name,
		Email:         req.Email,
		ResumeURL:     req.ResumeURL,
		CoverLetter:   req.CoverLetter,
		CustomAnswers: req.CustomAnswers,
	})
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// Withdraw 撤回申请。
func (h *ApplicationHandler) Withdraw(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	if err := h.applications.Withdraw(c.Request.Context(), userID, id); err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Application withdrawn"})
}

// ListEvents 返回申请的状态历史。
func (h *ApplicationHandler) ListEvents(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	events, err := h.applications.ListApplicationEvents(c.Request.Context(), userID, id)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}
