package board

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"jobnest/internal/database"
	"jobnest/internal/errcode"
)

const alreadySavedMessage = "Job already saved"

// SavedJobService 负责求职者的职位收藏。
type SavedJobService struct {
	db *gorm.DB
}

// NewSavedJobService 构造收藏服务。
func NewSavedJobService(db *gorm.DB) *SavedJobService {
	return &SavedJobService{db: db}
}

// SaveJob 收藏职位，同一求职者重复收藏返回 Conflict。
func (s *SavedJobService) SaveJob(ctx context.Context, seekerID, jobID uint) (*SavedJobView, error) {
	var saved database.SavedJob
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findJob(tx, jobID); err != nil {
			return err
		}

		var existing int64
		if err := tx.Model(&database.SavedJob{}).
			Where("seeker_id = ? AND job_id = ?", seekerID, jobID).
			Count(&existing).Error; err != nil {
			return errcode.Internal("check saved job", err)
		}
		if existing > 0 {
			return errcode.Conflict(alreadySavedMessage, nil)
		}

		saved = database.SavedJob{SeekerID: seekerID, JobID: jobID}
		if err := tx.Omit(clause.Associations).Create(&saved).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return errcode.Conflict(alreadySavedMessage, err)
			}
			return errcode.Internal("save job", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Preload("Job").First(&saved, saved.ID).Error; err != nil {
		return nil, errcode.Internal("reload saved job", err)
	}
	view := newSavedJobView(saved)
	return &view, nil
}

// UnsaveJob 删除收藏，不存在时返回 NotFound。
func (s *SavedJobService) UnsaveJob(ctx context.Context, seekerID, jobID uint) error {
	result := s.db.WithContext(ctx).
		Where("seeker_id = ? AND job_id = ?", seekerID, jobID).
		Delete(&database.SavedJob{})
	if result.Error != nil {
		return errcode.Internal("unsave job", result.Error)
	}
	if result.RowsAffected == 0 {
		return errcode.NotFound("Saved job not found")
	}
	return nil
}

// IsSaved 判断是否已收藏。
func (s *SavedJobService) IsSaved(ctx context.Context, seekerID, jobID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&database.SavedJob{}).
		Where("seeker_id = ? AND job_id = ?", seekerID, jobID).
		Count(&count).Error
	if err != nil {
		return false, errcode.Internal("check saved job", err)
	}
	return count > 0, nil
}

// ListSavedJobs 返回收藏列表，最新的在前。
func (s *SavedJobService) ListSavedJobs(ctx context.Context, seekerID uint) ([]SavedJobView, error) {
	var saved []database.SavedJob
	err := s.db.WithContext(ctx).
		Preload("Job").
		Where("seeker_id = ?", seekerID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&saved).Error
	if err != nil {
		return nil, errcode.Internal("query saved jobs", err)
	}

	views := make([]SavedJobView, 0, len(saved))
	for _, item := range saved {
		views = append(views, newSavedJobView(item))
	}
	return views, nil
}
