package handler

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"gatekeep/internal/common"
	"gatekeep/internal/server/dao"
	"gatekeep/internal/server/model"
	"gatekeep/pkg/event"
)

// Enqueuer is the slice of *asynq.Client the handlers need.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type Handler struct {
	runs   dao.RunDao
	jobs   dao.JobExecDao
	users  dao.UserDAO
	queue  Enqueuer
	secret string
	logger *zap.Logger
}

func New(queue Enqueuer, webhookSecret string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		runs:   dao.NewRunDao(),
		jobs:   dao.NewJobExecDao(),
		users:  dao.NewUserDAO(),
		queue:  queue,
		secret: webhookSecret,
		logger: logger,
	}
}

// enqueueRun records a pending run and queues its dispatch. The run row
// exists before the worker picks the task up, so history shows the run even
// while it waits in the queue.
func (h *Handler) enqueueRun(ctx context.Context, ev event.Push, triggerType string) (string, error) {
	runUUID := uuid.NewString()

	run := &model.Run{
		RunUUID:     runUUID,
		Revision:    ev.Revision,
		Ref:         ev.Ref,
		TriggerType: triggerType,
		Verdict:     "pending",
	}
	if err := h.runs.Create(ctx, run); err != nil {
		return "", err
	}

	payload, err := json.Marshal(event.DispatchPayload{
		RunUUID:     runUUID,
		TriggerType: triggerType,
		Event:       ev,
	})
	if err != nil {
		return "", err
	}
	// No automatic retry: a transient failure must surface as-is rather
	// than be masked by a silent re-run.
	if _, err := h.queue.EnqueueContext(ctx, asynq.NewTask(event.TypeDispatch, payload), asynq.MaxRetry(0)); err != nil {
		h.logger.Error("enqueue dispatch failed", zap.String("run", runUUID), zap.Error(err))
		return "", common.NewErrNo(common.EnqueueFail)
	}

	h.logger.Info("run enqueued",
		zap.String("run", runUUID),
		zap.String("revision", ev.Revision),
		zap.String("trigger", triggerType))
	return runUUID, nil
}
