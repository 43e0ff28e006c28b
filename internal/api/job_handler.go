package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"jobnest/internal/board"
	"jobnest/internal/database"
)

// JobHandler 负责职位相关的 API 请求。
type JobHandler struct {
	jobs *board.JobService
}

// NewJobHandler 构造 JobHandler。
func NewJobHandler(jobs *board.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

type salaryRangeRequest struct {
	Min *float64 `json:"min" binding:"required,gte=0"`
	Max *float64 `json:"max" binding:"required,gte=0"`
}

type createJobRequest struct {
	Title           string                    `json:"title" binding:"required,min=3,max=255"`
	Description     string                    `json:"description" binding:"required,min=10,max=10000"`
	Requirements    string                    `json:"requirements"`
	Company         string                    `json:"company" binding:"required,max=255"`
	Location        string                    `json:"location" binding:"required,max=255"`
	JobType         string                    `json:"jobType"`
	ExperienceLevel string                    `json:"experienceLevel"`
	SalaryRange     *salaryRangeRequest       `json:"salaryRange" binding:"required"`
	IsActive        *bool                     `json:"isActive"`
	CustomQuestions []database.CustomQuestion `json:"customQuestions"`
}

type updateSalaryRangeRequest struct {
	Min *float64 `json:"min" binding:"omitempty,gte=0"`
	Max *float64 `json:"max" binding:"omitempty,gte=0"`
}

type updateJobRequest struct {
	Title           *string                    `json:"title" binding:"omitempty,max=255"`
	Description     *string                    `json:"description" binding:"omitempty,max=10000"`
	Requirements    *string                    `json:"requirements"`
	Company         *string                    `json:"company" binding:"omitempty,max=255"`
	Location        *string                    `json:"location" binding:"omitempty,max=255"`
	JobType         *string                    `json:"jobType"`
	ExperienceLevel *string                    `json:"experienceLevel"`
	SalaryRange     *updateSalaryRangeRequest  `json:"salaryRange"`
	IsActive        *bool                      `json:"isActive"`
	CustomQuestions *[]database.CustomQuestion `json:"customQuestions"`
}

// SearchJobs 检索在招职位。
func (h *JobHandler) SearchJobs(c *gin.Context) {
	filter := board.JobFilter{
		Search:   c.Query("search"),
		Location: c.Query("location"),
		Type:     database.JobType(c.Query("type")),
	}

	var err error
	if filter.MinSalary, err = parseOptionalFloat(c.Query("minSalary")); err != nil {
		BadRequest(c, "invalid minSalary")
		return
	}
	if filter.MaxSalary, err = parseOptionalFloat(c.Query("maxSalary")); err != nil {
		BadRequest(c, "invalid maxSalary")
		return
	}
	if filter.Page, err = parseOptionalInt(c.Query("page")); err != nil {
		BadRequest(c, "invalid page")
		return
	}
	if filter.Limit, err = parseOptionalInt(c.Query("limit")); err != nil {
		BadRequest(c, "invalid limit")
		return
	}

	page, err := h.jobs.SearchJobs(c.Request.Context(), filter)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// ListRecruiterJobs 返回当前招聘方的职位。
func (h *JobHandler) ListRecruiterJobs(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	jobs, err := h.jobs.ListRecruiterJobs(c.Request.Context(), userID)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// GetJob 返回职位详情。
func (h *JobHandler) GetJob(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	job, err := h.jobs.GetJob(c.Request.Context(), id)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// CreateJob 发布职位。
func (h *JobHandler) CreateJob(c *gin.Context) {
	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	job, err := h.jobs.CreateJob(c.Request.Context(), userID, board.JobInput{
		Title:           req.Title,
		Description:     req.Description,
		Requirements:    req.Requirements,
		Company:         req.Company,
		Location:        req.Location,
		JobType:         req.JobType,
		ExperienceLevel: req.ExperienceLevel,
		SalaryMin:       *req.SalaryRange.Min,
		SalaryMax:       *req.SalaryRange.Max,
		IsActive:        req.IsActive,
		CustomQuestions: req.CustomQuestions,
	})
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, job)
}

// UpdateJob 部分更新职位，仅发布者可操作。
func (h *JobHandler) UpdateJob(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req updateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	patch := board.JobPatch{
		Title:           req.Title,
		Description:     req.Description,
		Requirements:    req.Requirements,
		Company:         req.Company,
		Location:        req.Location,
		JobType:         req.JobType,
		ExperienceLevel: req.ExperienceLevel,
		IsActive:        req.IsActive,
		CustomQuestions: req.CustomQuestions,
	}
	if req.SalaryRange != nil {
		patch.SalaryMin = req.SalaryRange.Min
		patch.SalaryMax = req.SalaryRange.Max
	}

	job, err := h.jobs.UpdateJob(c.Request.Context(), userID, id, patch)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// DeleteJob 删除职位及其申请与收藏。
func (h *JobHandler) DeleteJob(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	if err := h.jobs.DeleteJob(c.Request.Context(), userID, id); err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Job deleted successfully"})
}

func parseOptionalFloat(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseOptionalInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
