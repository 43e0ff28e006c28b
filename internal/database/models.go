package database

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Role 表示账号角色。
type Role string

const (
	RoleSeeker    Role = "seeker"
	RoleRecruiter Role = "recruiter"
	RoleAdmin     Role = "admin"
)

// Valid 判断是否为已知角色。
func (r Role) Valid() bool {
	switch r {
	case RoleSeeker, RoleRecruiter, RoleAdmin:
		return true
	}
	return false
}

// User 表示系统中的账号信息。
type User struct {
	gorm.Model
	Name         string                      `gorm:"size:100;not null"`
	Email        string                      `gorm:"uniqueIndex:idx_users_email;size:255;not null"`
	PasswordHash string                      `gorm:"size:255;not null"`
	Role         Role                        `gorm:"size:16;index;not null"`
	Avatar       string                      `gorm:"size:500"`
	Location     string                      `gorm:"size:255"`
	Bio          string                      `gorm:"type:text"`
	Skills       datatypes.JSONSlice[string] `gorm:"type:json"`
	Company      *string                     `gorm:"size:255"`
	Website      *string                     `gorm:"size:500"`
}

// JobType 限定职位类型。
type JobType string

const (
	JobTypeFullTime JobType = "Full-time"
	JobTypePartTime JobType = "Part-time"
	JobTypeRemote   JobType = "Remote"
)

// CustomQuestion 为招聘方在申请表中追加的问题。
type CustomQuestion struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Type     string   `json:"type,omitempty"`
	Required bool     `json:"required,omitempty"`
	Options  []string `json:"options,omitempty"`
}

// Job 表示招聘方发布的职位。
type Job struct {
	ID              uint                                `gorm:"primaryKey"`
	Title           string                              `gorm:"size:255;not null"`
	Description     string                              `gorm:"type:text;not null"`
	Requirements    string                              `gorm:"type:text"`
	Company         string                              `gorm:"size:255;not null;index"`
	RecruiterID     uint                                `gorm:"not null;index"`
	Recruiter       User                                `gorm:"foreignKey:RecruiterID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Location        string                              `gorm:"size:255;not null;index"`
	Type            JobType                             `gorm:"size:16;not null;index"`
	SalaryMin       float64                             `gorm:"type:numeric(12,2);not null;index:idx_jobs_salary,priority:1"`
	SalaryMax       float64                             `gorm:"type:numeric(12,2);not null;index:idx_jobs_salary,priority:2"`
	Tags            datatypes.JSONSlice[string]         `gorm:"type:json"`
	IsActive        bool                                `gorm:"not null;index"`
	CustomQuestions datatypes.JSONSlice[CustomQuestion] `gorm:"type:json"`
	CreatedAt       time.Time                           `gorm:"index"`
	UpdatedAt       time.Time
}

// ApplicationStatus 为申请在招聘流程中的状态。
type ApplicationStatus string

const (
	StatusApplied     ApplicationStatus = "Applied"
	StatusViewed      ApplicationStatus = "Viewed"
	StatusInterview   ApplicationStatus = "Interview"
	StatusShortlisted ApplicationStatus = "Shortlisted"
	StatusRejected    ApplicationStatus = "Rejected"
	StatusHired       ApplicationStatus = "Hired"
	StatusReviewed    ApplicationStatus = "Reviewed"
)

// Valid 判断是否为合法的申请状态。
func (s ApplicationStatus) Valid() bool {
	switch s {
	case StatusApplied, StatusViewed, StatusInterview, StatusShortlisted, StatusRejected, StatusHired, StatusReviewed:
		return true
	}
	return false
}

// Application 表示求职者对职位的申请。(seeker_id, job_id) 唯一。
type Application struct {
	ID            uint              `gorm:"primaryKey"`
	SeekerID      uint              `gorm:"not null;uniqueIndex:unique_seeker_job,priority:1"`
	Seeker        User              `gorm:"foreignKey:SeekerID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	JobID         uint              `gorm:"not null;uniqueIndex:unique_seeker_job,priority:2;index"`
	Job           Job               `gorm:"foreignKey:JobID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Name          string            `gorm:"size:100;not null"`
	Email         string            `gorm:"size:255;not null"`
	ResumeURL     string            `gorm:"column:resume_url;size:500;not null"`
	CoverLetter   string            `gorm:"type:text;not null"`
	CustomAnswers datatypes.JSONMap `gorm:"type:json"`
	Status        ApplicationStatus `gorm:"size:16;not null;default:Applied;index"`
	CreatedAt     time.Time         `gorm:"index"`
	UpdatedAt     time.Time
}

// SavedJob 为求职者收藏的职位。(seeker_id, job_id) 唯一。
type SavedJob struct {
	ID        uint      `gorm:"primaryKey"`
	SeekerID  uint      `gorm:"not null;uniqueIndex:unique_saved_job,priority:1"`
	Seeker    User      `gorm:"foreignKey:SeekerID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	JobID     uint      `gorm:"not null;uniqueIndex:unique_saved_job,priority:2;index"`
	Job       Job       `gorm:"foreignKey:JobID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// MessageStatus 只能沿 sent → delivered → read 前进。
type MessageStatus string

const (
	MessageSent      MessageStatus = "sent"
	MessageDelivered MessageStatus = "delivered"
	MessageRead      MessageStatus = "read"
)

// Message 表示两个用户之间的私信，可选关联职位。
type Message struct {
	ID         uint          `gorm:"primaryKey"`
	SenderID   uint          `gorm:"not null;index:idx_conversation,priority:1"`
	ReceiverID uint          `gorm:"not null;index;index:idx_conversation,priority:2"`
	Message    string        `gorm:"type:text;not null"`
	JobID      *uint         `gorm:"index"`
	Job        *Job          `gorm:"foreignKey:JobID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
	Status     MessageStatus `gorm:"size:16;not null;default:sent;index"`
	Timestamp  time.Time     `gorm:"not null;index"`
}

// ApplicationEvent 记录申请状态变化，由 worker 追加写入。
type ApplicationEvent struct {
	ID            uint              `gorm:"primaryKey"`
	ApplicationID uint              `gorm:"not null;index"`
	ActorID       uint              `gorm:"not null"`
	FromStatus    ApplicationStatus `gorm:"size:16"`
	ToStatus      ApplicationStatus `gorm:"size:16;not null"`
	CreatedAt     time.Time         `gorm:"index"`
}

// AllModels 列出 AutoMigrate 管理的全部表，被引用的表在前。
func AllModels() []any {
	return []any{
		&User{},
		&Job{},
		&Application{},
		&SavedJob{},
		&Message{},
		&ApplicationEvent{},
	}
}
