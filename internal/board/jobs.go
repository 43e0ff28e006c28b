// Package board 实现招聘板的关联规则：职位归属、每个职位只能申请和收藏一次，以及申请状态流转。
package board

import (
	"context"
	"errors"
	"math"
	"strings"
	"unicode/utf8"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"jobnest/internal/database"
	"jobnest/internal/errcode"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// JobService 负责职位的增删改查与检索。
type JobService struct {
	db *gorm.DB
}

// NewJobService 构造职位服务。
func NewJobService(db *gorm.DB) *JobService {
	return &JobService{db: db}
}

// JobInput 为创建职位时的输入。JobType 使用客户端取值（full-time、contract 等）。
type JobInput struct {
	Title           string
	Description     string
	Requirements    string
	Company         string
	Location        string
	JobType         string
	ExperienceLevel string
	SalaryMin       float64
	SalaryMax       float64
	IsActive        *bool
	CustomQuestions []database.CustomQuestion
}

// JobPatch 为 UpdateJob 的可选字段，nil 表示不变。
type JobPatch struct {
	Title           *string
	Description     *string
	Requirements    *string
	Company         *string
	Location        *string
	JobType         *string
	ExperienceLevel *string
	SalaryMin       *float64
	SalaryMax       *float64
	IsActive        *bool
	CustomQuestions *[]database.CustomQuestion
}

// JobFilter 为职位检索条件。零值表示不过滤。
type JobFilter struct {
	Search    string
	Location  string
	Type      database.JobType
	MinSalary *float64
	MaxSalary *float64
	Page      int
	Limit     int
}

// JobPage 为分页检索结果。
type JobPage struct {
	Jobs        []JobView `json:"jobs"`
	CurrentPage int       `json:"currentPage"`
	TotalPages  int       `json:"totalPages"`
	TotalJobs   int64     `json:"totalJobs"`
}

// ParseJobType 把客户端的职位类型映射为存储枚举，未知取值按 Full-time 处理。
func ParseJobType(value string) database.JobType {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "full-time":
		return database.JobTypeFullTime
	case "part-time":
		return database.JobTypePartTime
	case "contract", "internship", "freelance", "remote":
		return database.JobTypeRemote
	default:
		return database.JobTypeFullTime
	}
}

// JobTags 由经验要求和原始职位类型生成标签，跳过空值。
func JobTags(experienceLevel, jobType string) []string {
	tags := make([]string, 0, 2)
	for _, tag := range []string{experienceLevel, jobType} {
		if trimmed := strings.TrimSpace(tag); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	return tags
}

// CreateJob 以 actorID 为招聘方创建职位。
func (s *JobService) CreateJob(ctx context.Context, actorID uint, input JobInput) (*JobView, error) {
	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}

	job := database.Job{
		Title:           strings.TrimSpace(input.Title),
		Description:     strings.TrimSpace(input.Description),
		Requirements:    input.Requirements,
		Company:         strings.TrimSpace(input.Company),
		RecruiterID:     actorID,
		Location:        strings.TrimSpace(input.Location),
		Type:            ParseJobType(input.JobType),
		SalaryMin:       input.SalaryMin,
		SalaryMax:       input.SalaryMax,
		Tags:            datatypes.JSONSlice[string](JobTags(input.ExperienceLevel, input.JobType)),
		IsActive:        active,
		CustomQuestions: datatypes.JSONSlice[database.CustomQuestion](normalizeQuestions(input.CustomQuestions)),
	}
	if err := validateJob(job); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&job).Error; err != nil {
		return nil, errcode.Internal("create job", err)
	}
	return s.loadView(ctx, job.ID, false)
}

// UpdateJob 把 patch 合并到 actorID 名下的职位，薪资上下限按合并后的结果校验。
func (s *JobService) UpdateJob(ctx context.Context, actorID, jobID uint, patch JobPatch) (*JobView, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		job, err := findOwnedJob(tx, actorID, jobID)
		if err != nil {
			return err
		}

		applyJobPatch(job, patch)
		if err := validateJob(*job); err != nil {
			return err
		}

		if err := tx.Omit(clause.Associations).Save(job).Error; err != nil {
			return errcode.Internal("update job", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.loadView(ctx, jobID, false)
}

// DeleteJob 删除职位及其申请、状态历史和收藏。关联消息保留，job_id 置空。
func (s *JobService) DeleteJob(ctx context.Context, actorID, jobID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findOwnedJob(tx, actorID, jobID); err != nil {
			return err
		}

		appIDs := tx.Model(&database.Application{}).Select("id").Where("job_id = ?", jobID)
		if err := tx.Where("application_id IN (?)", appIDs).Delete(&database.ApplicationEvent{}).Error; err != nil {
			return errcode.Internal("delete application events", err)
		}
		if err := tx.Where("job_id = ?", jobID).Delete(&database.Application{}).Error; err != nil {
			return errcode.Internal("delete applications", err)
		}
		if err := tx.Where("job_id = ?", jobID).Delete(&database.SavedJob{}).Error; err != nil {
			return errcode.Internal("delete saved jobs", err)
		}
		if err := tx.Model(&database.Message{}).Where("job_id = ?", jobID).Update("job_id", nil).Error; err != nil {
			return errcode.Internal("detach messages", err)
		}
		if err := tx.Delete(&database.Job{}, jobID).Error; err != nil {
			return errcode.Internal("delete job", err)
		}
		return nil
	})
}

// GetJob 返回职位详情，附带招聘方信息与申请数量。
func (s *JobService) GetJob(ctx context.Context, jobID uint) (*JobView, error) {
	return s.loadView(ctx, jobID, true)
}

// SearchJobs 检索在招职位，按创建时间倒序分页。
func (s *JobService) SearchJobs(ctx context.Context, filter JobFilter) (*JobPage, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	filtered := func() *gorm.DB {
		query := s.db.WithContext(ctx).Model(&database.Job{}).Where("is_active = ?", true)
		if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
			pattern := containsPattern(search)
			query = query.Where(
				`LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\' OR LOWER(company) LIKE ? ESCAPE '\'`,
				pattern, pattern, pattern,
			)
		}
		if location := strings.ToLower(strings.TrimSpace(filter.Location)); location != "" {
			query = query.Where(`LOWER(location) LIKE ? ESCAPE '\'`, containsPattern(location))
		}
		if filter.Type != "" {
			query = query.Where("type = ?", filter.Type)
		}
		if filter.MinSalary != nil {
			query = query.Where("salary_min >= ?", *filter.MinSalary)
		}
		if filter.MaxSalary != nil {
			query = query.Where("salary_max <= ?", *filter.MaxSalary)
		}
		return query
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, errcode.Internal("count jobs", err)
	}

	var jobs []database.Job
	err := filtered().
		Preload("Recruiter").
		Order("created_at DESC").
		Order("id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, errcode.Internal("query jobs", err)
	}

	return &JobPage{
		Jobs:        toJobViews(jobs),
		CurrentPage: page,
		TotalPages:  int(math.Ceil(float64(total) / float64(limit))),
		TotalJobs:   total,
	}, nil
}

// ListRecruiterJobs 返回招聘方自己的全部职位（含已下线）。
func (s *JobService) ListRecruiterJobs(ctx context.Context, recruiterID uint) ([]JobView, error) {
	var jobs []database.Job
	err := s.db.WithContext(ctx).
		Preload("Recruiter").
		Where("recruiter_id = ?", recruiterID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&jobs).Error
	if err != nil {
		return nil, errcode.Internal("query recruiter jobs", err)
	}
	return toJobViews(jobs), nil
}

func (s *JobService) loadView(ctx context.Context, jobID uint, detail bool) (*JobView, error) {
	var job database.Job
	if err := s.db.WithContext(ctx).Preload("Recruiter").First(&job, jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.NotFound("Job not found")
		}
		return nil, errcode.Internal("query job", err)
	}

	view := newJobView(job)
	if detail {
		if view.Recruiter != nil {
			view.Recruiter.Website = job.Recruiter.Website
		}
		var count int64
		if err := s.db.WithContext(ctx).Model(&database.Application{}).Where("job_id = ?", jobID).Count(&count).Error; err != nil {
			return nil, errcode.Internal("count applications", err)
		}
		view.ApplicationCount = &count
	}
	return &view, nil
}

// findJob 读取职位，不存在时返回 NotFound。
// likeEscaper 转义 LIKE 通配符，配合 ESCAPE '\' 使用。
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern 返回按字面量做子串匹配的 LIKE 模式。
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

func findJob(tx *gorm.DB, jobID uint) (*database.Job, error) {
	var job database.Job
	if err := tx.First(&job, jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.NotFound("Job not found")
		}
		return nil, errcode.Internal("query job", err)
	}
	return &job, nil
}

func findOwnedJob(tx *gorm.DB, actorID, jobID uint) (*database.Job, error) {
	job, err := findJob(tx, jobID)
	if err != nil {
		return nil, err
	}
	if job.RecruiterID != actorID {
		return nil, errcode.Forbidden("Not authorized")
	}
	return job, nil
}

func applyJobPatch(job *database.Job, patch JobPatch) {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) != "" {
		job.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil && strings.TrimSpace(*patch.Description) != "" {
		job.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Requirements != nil {
		job.Requirements = *patch.Requirements
	}
	if patch.Company != nil && strings.TrimSpace(*patch.Company) != "" {
		job.Company = strings.TrimSpace(*patch.Company)
	}
	if patch.Location != nil && strings.TrimSpace(*patch.Location) != "" {
		job.Location = strings.TrimSpace(*patch.Location)
	}
	rawType := ""
	if patch.JobType != nil && strings.TrimSpace(*patch.JobType) != "" {
		rawType = *patch.JobType
		job.Type = ParseJobType(rawType)
	}
	if patch.ExperienceLevel != nil && strings.TrimSpace(*patch.ExperienceLevel) != "" {
		job.Tags = datatypes.JSONSlice[string](JobTags(*patch.ExperienceLevel, rawType))
	}
	if patch.SalaryMin != nil {
		job.SalaryMin = *patch.SalaryMin
	}
	if patch.SalaryMax != nil {
		job.SalaryMax = *patch.SalaryMax
	}
	if patch.IsActive != nil {
		job.IsActive = *patch.IsActive
	}
	if patch.CustomQuestions != nil {
		job.CustomQuestions = datatypes.JSONSlice[database.CustomQuestion](normalizeQuestions(*patch.CustomQuestions))
	}
}

func validateJob(job database.Job) error {
	if n := utf8.RuneCountInString(job.Title); n < 3 || n > 255 {
		return errcode.Validation("title must be between 3 and 255 characters")
	}
	if n := utf8.RuneCountInString(job.Description); n < 10 || n > 10000 {
		return errcode.Validation("description must be between 10 and 10000 characters")
	}
	if job.Company == "" {
		return errcode.Validation("company is required")
	}
	if job.Location == "" {
		return errcode.Validation("location is required")
	}
	if job.SalaryMin < 0 || job.SalaryMax < 0 {
		return errcode.Validation("salary must not be negative")
	}
	if job.SalaryMin > job.SalaryMax {
		return errcode.Validation("salaryMin must not exceed salaryMax")
	}
	for _, q := range job.CustomQuestions {
		if strings.TrimSpace(q.Question) == "" {
			return errcode.Validation("custom questions must have text")
		}
	}
	return nil
}

func normalizeQuestions(questions []database.CustomQuestion) []database.CustomQuestion {
	if questions == nil {
		return []database.CustomQuestion{}
	}
	return questions
}

func toJobViews(jobs []database.Job) []JobView {
	views := make([]JobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, newJobView(job))
	}
	return views
}
