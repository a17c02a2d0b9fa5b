package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	notificationDomain "github.com/localserve/service-booking/internal/domain/notification"
)

// Processor consumes notification tasks and records them.
type Processor struct {
	server *asynq.Server
	repo   notificationDomain.Repository
	logger *zap.Logger
}

// NewProcessor creates a Processor backed by the asynq server at redisOpt.
func NewProcessor(redisOpt asynq.RedisConnOpt, repo notificationDomain.Repository, concurrency int, logger *zap.Logger) *Processor {
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueNotifications: 1,
		},
		Logger: logger.Sugar(),
	})
	return &Processor{server: server, repo: repo, logger: logger}
}

// Mux returns the handler routing notification tasks.
func (p *Processor) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskRecordNotification, p.HandleRecord)
	return mux
}

// Run processes tasks until ctx is cancelled.
func (p *Processor) Run(ctx context.Context) error {
	if err := p.server.Start(p.Mux()); err != nil {
		return fmt.Errorf("failed to start notification processor: %w", err)
	}
	p.logger.Info("notification processor started")

	<-ctx.Done()
	p.server.Shutdown()
	p.logger.Info("notification processor stopped")
	return nil
}

// HandleRecord stores one notification. Malformed payloads are skipped
// without retry.
func (p *Processor) HandleRecord(ctx context.Context, t *asynq.Task) error {
	var payload Payload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		p.logger.Error("dropping malformed notification task", zap.Error(err))
		return fmt.Errorf("unmarshal notification: %v: %w", err, asynq.SkipRetry)
	}

	if err := p.repo.Save(ctx, &notificationDomain.Notification{
		UserID:    payload.UserID,
		Kind:      payload.Kind,
		Payload:   payload.Data,
		CreatedAt: payload.CreatedAt,
	}); err != nil {
		p.logger.Warn("failed to record notification",
			zap.String("user_id", payload.UserID.String()),
			zap.String("kind", string(payload.Kind)),
			zap.Error(err),
		)
		return err
	}
	return nil
}
