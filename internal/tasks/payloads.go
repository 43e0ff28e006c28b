package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeApplicationStatusChanged = "application:status_changed"
)

// ApplicationStatusChangedPayload 描述一次申请状态变化。FromStatus 为空表示新建申请。
type ApplicationStatusChangedPayload struct {
	ApplicationID uint      `json:"application_id"`
	ActorID       uint      `json:"actor_id"`
	FromStatus    string    `json:"from_status"`
	ToStatus      string    `json:"to_status"`
	OccurredAt    time.Time `json:"occurred_at"`
	CorrelationID string    `json:"correlation_id"`
}

// NewApplicationStatusChangedTask 构造状态变化任务。
func NewApplicationStatusChangedTask(payload ApplicationStatusChangedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeApplicationStatusChanged, data, asynq.MaxRetry(5)), nil
}

// ParseApplicationStatusChanged 解析任务载荷。
func ParseApplicationStatusChanged(task *asynq.Task) (ApplicationStatusChangedPayload, error) {
	var payload ApplicationStatusChangedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("decode %s payload: %w", task.Type(), err)
	}
	return payload, nil
}

// Enqueuer 把状态变化事件写入 asynq 队列。
type Enqueuer struct {
	client *asynq.Client
}

// NewEnqueuer 包装 asynq 客户端。
func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

// PublishStatusChange 投递 application:status_changed 任务。
func (e *Enqueuer) PublishStatusChange(ctx context.Context, payload ApplicationStatusChangedPayload) error {
	task, err := NewApplicationStatusChangedTask(payload)
	if err != nil {
		return fmt.Errorf("build task: %w", err)
	}
	if _, err := e.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueue task: %w", err)
	}
	return nil
}

type correlationIDKey struct{}

// WithCorrelationID 把请求的 Correlation ID 放入 context，供入队时读取。
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationIDFrom 取出 WithCorrelationID 写入的 ID，没有时返回空串。
func CorrelationIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey{}).(string)
	return id
}
