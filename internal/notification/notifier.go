package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	notificationDomain "github.com/localserve/service-booking/internal/domain/notification"
)

// Enqueuer is the part of *asynq.Client the notifier needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AsynqNotifier hands notifications to the asynq queue. Enqueue failures are
// logged and dropped.
type AsynqNotifier struct {
	client Enqueuer
	logger *zap.Logger
}

// NewAsynqNotifier creates a new AsynqNotifier.
func NewAsynqNotifier(client Enqueuer, logger *zap.Logger) *AsynqNotifier {
	return &AsynqNotifier{client: client, logger: logger}
}

// Notify enqueues a notification for userID.
func (n *AsynqNotifier) Notify(ctx context.Context, userID uuid.UUID, kind notificationDomain.Kind, payload map[string]string) {
	task, err := NewRecordTask(Payload{
		UserID:    userID,
		Kind:      kind,
		Data:      payload,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		n.logger.Error("failed to build notification task",
			zap.String("user_id", userID.String()),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		return
	}

	if _, err := n.client.EnqueueContext(ctx, task); err != nil {
		n.logger.Error("failed to enqueue notification",
			zap.String("user_id", userID.String()),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}
}

// LogNotifier writes notifications to the log. It is used when no queue is
// configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a new LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the notification.
func (n *LogNotifier) Notify(_ context.Context, userID uuid.UUID, kind notificationDomain.Kind, payload map[string]string) {
	n.logger.Info("notification",
		zap.String("user_id", userID.String()),
		zap.String("kind", string(kind)),
		zap.Any("payload", payload),
	)
}
