package board

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"jobnest/internal/database"
	"jobnest/internal/errcode"
	"jobnest/internal/tasks"
)

const alreadyAppliedMessage = "You have already applied for this job"

// EventPublisher 接收申请状态变化事件。
type EventPublisher interface {
	PublishStatusChange(ctx context.Context, payload tasks.ApplicationStatusChangedPayload) error
}

// ApplicationService 负责申请的创建、状态流转与撤回。
type ApplicationService struct {
	db        *gorm.DB
	publisher EventPublisher
	logger    *slog.Logger
}

// NewApplicationService 构造申请服务。publisher 可为 nil，此时不发送状态事件。
func NewApplicationService(db *gorm.DB, publisher EventPublisher, logger *slog.Logger) *ApplicationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ApplicationService{db: db, publisher: publisher, logger: logger}
}

// ApplicationInput 为投递申请时的输入。Name/Email 为空时使用账号信息。
type ApplicationInput struct {
	JobID         uint
	Name          string
	Email         string
	ResumeURL     string
	CoverLetter   string
	CustomAnswers map[string]any
}

// ApplicationPatch 为投递者可修改的字段，nil 表示不变。
type ApplicationPatch struct {
	Name          *string
	Email         *string
	ResumeURL     *string
	CoverLetter   *string
	CustomAnswers map[string]any
}

// Apply 创建状态为 Applied 的申请。并发投递由 (seeker_id, job_id) 唯一索引裁决。
func (s *ApplicationService) Apply(ctx context.Context, seekerID uint, input ApplicationInput) (*ApplicationView, error) {
	var app database.Application
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findJob(tx, input.JobID); err != nil {
			return err
		}

		var existing int64
		if err := tx.Model(&database.Application{}).
			Where("seeker_id = ? AND job_id = ?", seekerID, input.JobID).
			Count(&existing).Error; err != nil {
			return errcode.Internal("check existing application", err)
		}
		if existing > 0 {
			return errcode.Conflict(alreadyAppliedMessage, nil)
		}

		var seeker database.User
		if err := tx.First(&seeker, seekerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errcode.NotFound("user not found")
			}
			return errcode.Internal("query seeker", err)
		}

		app = database.Application{
			SeekerID:      seekerID,
			JobID:         input.JobID,
			Name:          firstNonEmpty(input.Name, seeker.Name),
			Email:         firstNonEmpty(input.Email, seeker.Email),
			ResumeURL:     strings.TrimSpace(input.ResumeURL),
			CoverLetter:   strings.TrimSpace(input.CoverLetter),
			CustomAnswers: answersOrEmpty(input.CustomAnswers),
			Status:        database.StatusApplied,
		}
		if err := validateApplication(app); err != nil {
			return err
		}

		if err := tx.Omit(clause.Associations).Create(&app).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return errcode.Conflict(alreadyAppliedMessage, err)
			}
			return errcode.Internal("create application", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, app.ID, seekerID, "", database.StatusApplied)
	return s.loadView(ctx, app.ID)
}

// SetApplicationStatus 由职位所属招聘方修改申请状态。状态之间不限制先后顺序。
func (s *ApplicationService) SetApplicationStatus(ctx context.Context, actorID, applicationID uint, status database.ApplicationStatus) (*ApplicationView, error) {
	var previous database.ApplicationStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		app, err := findApplication(tx, applicationID, true)
		if err != nil {
			return err
		}
		if app.Job.RecruiterID != actorID {
			return errcode.Forbidden("Not authorized")
		}
		if !status.Valid() {
			return errcode.Validation("invalid application status")
		}

		previous = app.Status
		if err := tx.Model(&database.Application{}).Where("id = ?", app.ID).Update("status", status).Error; err != nil {
			return errcode.Internal("update application status", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, applicationID, actorID, previous, status)
	return s.loadView(ctx, applicationID)
}

// EditApplication 由投递者修改申请内容，不改变状态。
func (s *ApplicationService) EditApplication(ctx context.Context, actorID, applicationID uint, patch ApplicationPatch) (*ApplicationView, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		app, err := findOwnApplication(tx, actorID, applicationID)
		if err != nil {
			return err
		}

		if patch.Name != nil {
			app.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Email != nil {
			app.Email = strings.TrimSpace(*patch.Email)
		}
		if patch.ResumeURL != nil {
			app.ResumeURL = strings.TrimSpace(*patch.ResumeURL)
		}
		if patch.CoverLetter != nil {
			app.CoverLetter = strings.TrimSpace(*patch.CoverLetter)
		}
		if patch.CustomAnswers != nil {
			app.CustomAnswers = datatypes.JSONMap(patch.CustomAnswers)
		}
		if err := validateApplication(*app); err != nil {
			return err
		}

		err = tx.Model(&database.Application{}).Where("id = ?", app.ID).Updates(map[string]any{
			"name":           app.Name,
			"email":          app.Email,
			"resume_url":     app.ResumeURL,
			"cover_letter":   app.CoverLetter,
			"custom_answers": app.CustomAnswers,
		}).Error
		if err != nil {
			return errcode.Internal("update application", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.loadView(ctx, applicationID)
}

// Withdraw 由投递者撤回申请，连同状态历史一起删除。
func (s *ApplicationService) Withdraw(ctx context.Context, actorID, applicationID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		app, err := findOwnApplication(tx, actorID, applicationID)
		if err != nil {
			return err
		}
		if err := tx.Where("application_id = ?", app.ID).Delete(&database.ApplicationEvent{}).Error; err != nil {
			return errcode.Internal("delete application events", err)
		}
		if err := tx.Delete(&database.Application{}, app.ID).Error; err != nil {
			return errcode.Internal("delete application", err)
		}
		return nil
	})
}

// ListJobApplications 返回某职位的全部申请，仅职位所属招聘方可见。
func (s *ApplicationService) ListJobApplications(ctx context.Context, actorID, jobID uint) ([]ApplicationView, error) {
	if _, err := findOwnedJob(s.db.WithContext(ctx), actorID, jobID); err != nil {
		return nil, err
	}

	var apps []database.Application
	err := s.db.WithContext(ctx).
		Preload("Seeker").
		Preload("Job").
		Where("job_id = ?", jobID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&apps).Error
	if err != nil {
		return nil, errcode.Internal("query job applications", err)
	}
	return toApplicationViews(apps), nil
}

// ListMyApplications 返回求职者自己的申请。
func (s *ApplicationService) ListMyApplications(ctx context.Context, seekerID uint) ([]ApplicationView, error) {
	var apps []database.Application
	err := s.db.WithContext(ctx).
		Preload("Job").
		Where("seeker_id = ?", seekerID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&apps).Error
	if err != nil {
		return nil, errcode.Internal("query my applications", err)
	}
	return toApplicationViews(apps), nil
}

// ListApplicationEvents 按时间正序返回状态历史，仅投递者与职位所属招聘方可见。
func (s *ApplicationService) ListApplicationEvents(ctx context.Context, actorID, applicationID uint) ([]ApplicationEventView, error) {
	app, err := findApplication(s.db.WithContext(ctx), applicationID, true)
	if err != nil {
		return nil, err
	}
	if app.SeekerID != actorID && app.Job.RecruiterID != actorID {
		return nil, errcode.Forbidden("Not authorized")
	}

	var events []database.ApplicationEvent
	err = s.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&events).Error
	if err != nil {
		return nil, errcode.Internal("query application events", err)
	}

	views := make([]ApplicationEventView, 0, len(events))
	for _, e := range events {
		views = append(views, ApplicationEventView{
			ID:            e.ID,
			ApplicationID: e.ApplicationID,
			ActorID:       e.ActorID,
			FromStatus:    e.FromStatus,
			ToStatus:      e.ToStatus,
			CreatedAt:     e.CreatedAt,
		})
	}
	return views, nil
}

// publish 在事务提交后发送事件；失败只记录日志。
func (s *ApplicationService) publish(ctx context.Context, applicationID, actorID uint, from, to database.ApplicationStatus) {
	if s.publisher == nil {
		return
	}
	payload := tasks.ApplicationStatusChangedPayload{
		ApplicationID: applicationID,
		ActorID:       actorID,
		FromStatus:    string(from),
		ToStatus:      string(to),
		OccurredAt:    time.Now().UTC(),
		CorrelationID: tasks.CorrelationIDFrom(ctx),
	}
	if err := s.publisher.PublishStatusChange(ctx, payload); err != nil {
		s.logger.Error("publish application status change failed",
			slog.Uint64("application_id", uint64(applicationID)),
			slog.String("to_status", string(to)),
			slog.Any("error", err),
		)
	}
}

func (s *ApplicationService) loadView(ctx context.Context, applicationID uint) (*ApplicationView, error) {
	var app database.Application
	err := s.db.WithContext(ctx).
		Preload("Seeker").
		Preload("Job").
		First(&app, applicationID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.NotFound("Application not found")
		}
		return nil, errcode.Internal("query application", err)
	}
	view := newApplicationView(app)
	return &view, nil
}

func findApplication(tx *gorm.DB, applicationID uint, withJob bool) (*database.Application, error) {
	query := tx
	if withJob {
		query = query.Preload("Job")
	}
	var app database.Application
	if err := query.First(&app, applicationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.NotFound("Application not found")
		}
		return nil, errcode.Internal("query application", err)
	}
	return &app, nil
}

func findOwnApplication(tx *gorm.DB, actorID, applicationID uint) (*database.Application, error) {
	app, err := findApplication(tx, applicationID, false)
	if err != nil {
		return nil, err
	}
	if app.SeekerID != actorID {
		return nil, errcode.Forbidden("Not authorized")
	}
	return app, nil
}

func validateApplication(app database.Application) error {
	if n := utf8.RuneCountInString(app.Name); n < 2 || n > 100 {
		return errcode.Validation("name must be between 2 and 100 characters")
	}
	if _, err := mail.ParseAddress(app.Email); err != nil {
		return errcode.Validation("email must be a valid address")
	}
	if u, err := url.ParseRequestURI(app.ResumeURL); err != nil || u.Scheme == "" || u.Host == "" {
		return errcode.Validation("resumeUrl must be a valid URL")
	}
	if n := utf8.RuneCountInString(app.CoverLetter); n < 10 || n > 5000 {
		return errcode.Validation("coverLetter must be between 10 and 5000 characters")
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func answersOrEmpty(answers map[string]any) datatypes.JSONMap {
	if answers == nil {
		return datatypes.JSONMap{}
	}
	return datatypes.JSONMap(answers)
}

func toApplicationViews(apps []database.Application) []ApplicationView {
	views := make([]ApplicationView, 0, len(apps))
	for _, app := range apps {
		views = append(views, newApplicationView(app))
	}
	return views
}
