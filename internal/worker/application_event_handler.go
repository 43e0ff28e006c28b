package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"jobnest/internal/database"
	"jobnest/internal/tasks"
)

// ApplicationEventHandler 消费申请状态变化任务，追加写入状态历史。
type ApplicationEventHandler struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewApplicationEventHandler 创建任务处理器。
func NewApplicationEventHandler(db *gorm.DB, logger *slog.Logger) *ApplicationEventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ApplicationEventHandler{db: db, logger: logger}
}

// ProcessTask 实现 asynq.Handler。重复投递的同一事件只写入一次。
func (h *ApplicationEventHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	payload, err := tasks.ParseApplicationStatusChanged(t)
	if err != nil {
		h.logger.Error("unmarshal task payload failed", slog.Any("error", err))
		return errors.Join(err, asynq.SkipRetry)
	}

	log := h.logger.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Int("application_id", int(payload.ApplicationID)),
		slog.String("to_status", payload.ToStatus),
	)

	to := database.ApplicationStatus(payload.ToStatus)
	if !to.Valid() {
		log.Warn("unknown application status, skipping task")
		return nil
	}

	occurredAt := payload.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	return h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var app database.Application
		if err := tx.Select("id").First(&app, payload.ApplicationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				log.Warn("application not found, skipping task")
				return nil
			}
			log.Error("query application failed", slog.Any("error", err))
			return err
		}

		var duplicates int64
		err := tx.Model(&database.ApplicationEvent{}).
			Where("application_id = ? AND to_status = ? AND created_at = ?", payload.ApplicationID, to, occurredAt).
			Count(&duplicates).Error
		if err != nil {
			log.Error("check duplicate event failed", slog.Any("error", err))
			return err
		}
		if duplicates > 0 {
			log.Info("event already recorded")
			return nil
		}

		event := database.ApplicationEvent{
			ApplicationID: payload.ApplicationID,
			ActorID:       payload.ActorID,
			FromStatus:    database.ApplicationStatus(payload.FromStatus),
			ToStatus:      to,
			CreatedAt:     occurredAt,
		}
		if err := tx.Create(&event).Error; err != nil {
			log.Error("insert application event failed", slog.Any("error", err))
			return err
		}

		log.Info("application event recorded", slog.Int("event_id", int(event.ID)))
		return nil
	})
}
