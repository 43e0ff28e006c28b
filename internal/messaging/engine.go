// Package messaging 实现用户之间的私信及其 sent → delivered → read 状态流转。
package messaging

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"jobnest/internal/database"
	"jobnest/internal/errcode"
)

// MaxMessageLength 为单条消息的最大字符数。
const MaxMessageLength = 5000

// Engine 负责消息的发送、会话读取与状态推进。
type Engine struct {
	db  *gorm.DB
	now func() time.Time
}

// NewEngine 构造消息引擎。
func NewEngine(db *gorm.DB) *Engine {
	return &Engine{db: db, now: time.Now}
}

// MessageView 为对外返回的消息结构。
type MessageView struct {
	ID         uint                   `json:"id"`
	SenderID   uint                   `json:"senderId"`
	ReceiverID uint                   `json:"receiverId"`
	Message    string                 `json:"message"`
	JobID      *uint                  `json:"jobId"`
	Status     database.MessageStatus `json:"status"`
	Timestamp  time.Time              `json:"timestamp"`
}

func newMessageView(m database.Message) MessageView {
	return MessageView{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Message:    m.Message,
		JobID:      m.JobID,
		Status:     m.Status,
		Timestamp:  m.Timestamp,
	}
}

// Send 以 sent 状态保存新消息，不校验接收方是否存在。
func (e *Engine) Send(ctx context.Context, senderID, receiverID uint, body string, jobID *uint) (*MessageView, error) {
	if receiverID == 0 {
		return nil, errcode.Validation("Receiver and message are required")
	}
	if strings.TrimSpace(body) == "" {
		return nil, errcode.Validation("Receiver and message are required")
	}
	if utf8.RuneCountInString(body) > MaxMessageLength {
		return nil, errcode.Validation("message must be at most 5000 characters")
	}
	if jobID != nil && *jobID == 0 {
		jobID = nil
	}

	msg := database.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Message:    body,
		JobID:      jobID,
		Status:     database.MessageSent,
		Timestamp:  e.now().UTC(),
	}

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if jobID != nil {
			var count int64
			if err := tx.Model(&database.Job{}).Where("id = ?", *jobID).Count(&count).Error; err != nil {
				return errcode.Internal("check job", err)
			}
			if count == 0 {
				return errcode.NotFound("Job not found")
			}
		}
		if err := tx.Omit(clause.Associations).Create(&msg).Error; err != nil {
			return errcode.Internal("create message", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	view := newMessageView(msg)
	return &view, nil
}

// GetConversation 在同一事务内先把对方发给自己的 sent 消息推进为 delivered，
// 再按时间（同刻按 id）升序返回双方全部消息。
func (e *Engine) GetConversation(ctx context.Context, callerID, otherID uint, jobID *uint) ([]MessageView, error) {
	if otherID == 0 {
		return nil, errcode.Validation("UserId is required")
	}

	var messages []database.Message
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deliver := scoped(tx.Model(&database.Message{}).
			Where("sender_id = ? AND receiver_id = ? AND status = ?", otherID, callerID, database.MessageSent), jobID)
		if err := deliver.Update("status", database.MessageDelivered).Error; err != nil {
			return errcode.Internal("mark delivered", err)
		}

		query := scoped(tx.Where(
			"(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			callerID, otherID, otherID, callerID,
		), jobID)
		if err := query.Order("timestamp ASC").Order("id ASC").Find(&messages).Error; err != nil {
			return errcode.Internal("query conversation", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	views := make([]MessageView, 0, len(messages))
	for _, m := range messages {
		views = append(views, newMessageView(m))
	}
	return views, nil
}

// MarkRead 把 otherID 发给 callerID 的未读消息全部标记为 read，返回变更条数，可重复调用。
func (e *Engine) MarkRead(ctx context.Context, callerID, otherID uint, jobID *uint) (int64, error) {
	if otherID == 0 {
		return 0, errcode.Validation("UserId is required")
	}

	result := scoped(e.db.WithContext(ctx).Model(&database.Message{}).
		Where("sender_id = ? AND receiver_id = ? AND status <> ?", otherID, callerID, database.MessageRead), jobID).
		Update("status", database.MessageRead)
	if result.Error != nil {
		return 0, errcode.Internal("mark read", result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteMessage 允许发送方或接收方删除消息。
func (e *Engine) DeleteMessage(ctx context.Context, callerID, messageID uint) error {
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var msg database.Message
		if err := tx.First(&msg, messageID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errcode.NotFound("Message not found")
			}
			return errcode.Internal("query message", err)
		}
		if msg.SenderID != callerID && msg.ReceiverID != callerID {
			return errcode.Forbidden("Not authorized to delete this message")
		}
		if err := tx.Delete(&database.Message{}, msg.ID).Error; err != nil {
			return errcode.Internal("delete message", err)
		}
		return nil
	})
}

func scoped(query *gorm.DB, jobID *uint) *gorm.DB {
	if jobID != nil && *jobID != 0 {
		return query.Where("job_id = ?", *jobID)
	}
	return query
}
