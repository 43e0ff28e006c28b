package board

import (
	"time"

	"jobnest/internal/database"
)

// RecruiterSummary 为职位附带的招聘方信息。
type RecruiterSummary struct {
	ID      uint    `json:"id"`
	Name    string  `json:"name"`
	Company *string `json:"company"`
	Website *string `json:"website,omitempty"`
}

// SalaryRange 为 salaryMin/salaryMax 的嵌套形式，兼容旧客户端。
type SalaryRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// JobView 为对外返回的职位结构。
type JobView struct {
	ID               uint                      `json:"id"`
	Title            string                    `json:"title"`
	Description      string                    `json:"description"`
	Requirements     string                    `json:"requirements"`
	Company          string                    `json:"company"`
	RecruiterID      uint                      `json:"recruiterId"`
	Recruiter        *RecruiterSummary         `json:"recruiter,omitempty"`
	Location         string                    `json:"location"`
	Type             database.JobType          `json:"type"`
	SalaryMin        float64                   `json:"salaryMin"`
	SalaryMax        float64                   `json:"salaryMax"`
	SalaryRange      SalaryRange               `json:"salaryRange"`
	Tags             []string                  `json:"tags"`
	IsActive         bool                      `json:"isActive"`
	CustomQuestions  []database.CustomQuestion `json:"customQuestions"`
	ApplicationCount *int64                    `json:"applicationCount,omitempty"`
	CreatedAt        time.Time                 `json:"createdAt"`
	UpdatedAt        time.Time                 `json:"updatedAt"`
}

func newJobView(job database.Job) JobView {
	view := JobView{
		ID:              job.ID,
		Title:           job.Title,
		Description:     job.Description,
		Requirements:    job.Requirements,
		Company:         job.Company,
		RecruiterID:     job.RecruiterID,
		Location:        job.Location,
		Type:            job.Type,
		SalaryMin:       job.SalaryMin,
		SalaryMax:       job.SalaryMax,
		SalaryRange:     SalaryRange{Min: job.SalaryMin, Max: job.SalaryMax},
		Tags:            []string(job.Tags),
		IsActive:        job.IsActive,
		CustomQuestions: []database.CustomQuestion(job.CustomQuestions),
		CreatedAt:       job.CreatedAt,
		UpdatedAt:       job.UpdatedAt,
	}
	if view.Tags == nil {
		view.Tags = []string{}
	}
	if view.CustomQuestions == nil {
		view.CustomQuestions = []database.CustomQuestion{}
	}
	if job.Recruiter.ID != 0 {
		view.Recruiter = &RecruiterSummary{
			ID:      job.Recruiter.ID,
			Name:    job.Recruiter.Name,
			Company: job.Recruiter.Company,
		}
	}
	return view
}

// JobSummary 为申请与收藏中内嵌的职位摘要。
type JobSummary struct {
	ID        uint             `json:"id"`
	Title     string           `json:"title"`
	Company   string           `json:"company"`
	Location  string           `json:"location"`
	Type      database.JobType `json:"type"`
	SalaryMin float64          `json:"salaryMin"`
	SalaryMax float64          `json:"salaryMax"`
	CreatedAt time.Time        `json:"createdAt"`
}

func newJobSummary(job database.Job) *JobSummary {
	if job.ID == 0 {
		return nil
	}
	return &JobSummary{
		ID:        job.ID,
		Title:     job.Title,
		Company:   job.Company,
		Location:  job.Location,
		Type:      job.Type,
		SalaryMin: job.SalaryMin,
		SalaryMax: job.SalaryMax,
		CreatedAt: job.CreatedAt,
	}
}

// SeekerSummary 为招聘方查看申请时附带的求职者信息。
type SeekerSummary struct {
	ID       uint     `json:"id"`
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Location string   `json:"location"`
	Skills   []string `json:"skills"`
	Bio      string   `json:"bio"`
}

func newSeekerSummary(user database.User) *SeekerSummary {
	if user.ID == 0 {
		return nil
	}
	skills := []string(user.Skills)
	if skills == nil {
		skills = []string{}
	}
	return &SeekerSummary{
		ID:       user.ID,
		Name:     user.Name,
		Email:    user.Email,
		Location: user.Location,
		Skills:   skills,
		Bio:      user.Bio,
	}
}

// ApplicationView 为对外返回的申请结构。
type ApplicationView struct {
	ID            uint                       `json:"id"`
	SeekerID      uint                       `json:"seekerId"`
	JobID         uint                       `json:"jobId"`
	Name          string                     `json:"name"`
	Email         string                     `json:"email"`
	ResumeURL     string                     `json:"resumeUrl"`
	CoverLetter   string                     `json:"coverLetter"`
	CustomAnswers map[string]any             `json:"customAnswers"`
	Status        database.ApplicationStatus `json:"status"`
	Seeker        *SeekerSummary             `json:"seeker,omitempty"`
	Job           *JobSummary                `json:"job,omitempty"`
	CreatedAt     time.Time                  `json:"createdAt"`
	UpdatedAt     time.Time                  `json:"updatedAt"`
}

func newApplicationView(app database.Application) ApplicationView {
	answers := map[string]any(app.CustomAnswers)
	if answers == nil {
		answers = map[string]any{}
	}
	return ApplicationView{
		ID:            app.ID,
		SeekerID:      app.SeekerID,
		JobID:         app.JobID,
		Name:          app.Name,
		Email:         app.Email,
		ResumeURL:     app.ResumeURL,
		CoverLetter:   app.CoverLetter,
		CustomAnswers: answers,
		Status:        app.Status,
		Seeker:        newSeekerSummary(app.Seeker),
		Job:           newJobSummary(app.Job),
		CreatedAt:     app.CreatedAt,
		UpdatedAt:     app.UpdatedAt,
	}
}

// SavedJobView 为收藏记录。
type SavedJobView struct {
	ID        uint        `json:"id"`
	SeekerID  uint        `json:"seekerId"`
	JobID     uint        `json:"jobId"`
	Job       *JobSummary `json:"job,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

func newSavedJobView(saved database.SavedJob) SavedJobView {
	return SavedJobView{
		ID:        saved.ID,
		SeekerID:  saved.SeekerID,
		JobID:     saved.JobID,
		Job:       newJobSummary(saved.Job),
		CreatedAt: saved.CreatedAt,
	}
}

// ApplicationEventView 为申请状态历史中的一条记录。
type ApplicationEventView struct {
	ID            uint                       `json:"id"`
	ApplicationID uint                       `json:"applicationId"`
	ActorID       uint                       `json:"actorId"`
	FromStatus    database.ApplicationStatus `json:"fromStatus"`
	ToStatus      database.ApplicationStatus `json:"toStatus"`
	CreatedAt     time.Time                  `json:"createdAt"`
}
