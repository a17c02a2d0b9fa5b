package notification

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	notificationDomain "github.com/localserve/service-booking/internal/domain/notification"
)

// TaskRecordNotification is the asynq task type carrying one notification.
const TaskRecordNotification = "notification:record"

// QueueNotifications is the asynq queue notifications are enqueued on.
const QueueNotifications = "notifications"

// Payload is the JSON body of a TaskRecordNotification task.
type Payload struct {
	UserID    uuid.UUID               `json:"user_id"`
	Kind      notificationDomain.Kind `json:"kind"`
	Data      map[string]string       `json:"data"`
	CreatedAt time.Time               `json:"created_at"`
}

// NewRecordTask builds the task for a notification.
func NewRecordTask(p Payload) (*asynq.Task, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRecordNotification, b, asynq.Queue(QueueNotifications), asynq.MaxRetry(5)), nil
}
