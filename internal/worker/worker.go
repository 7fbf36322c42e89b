package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"gatekeep/internal/common"
	"gatekeep/internal/dispatch"
	"gatekeep/internal/gate"
	"gatekeep/internal/server/dao"
	"gatekeep/internal/server/model"
	"gatekeep/pkg/event"
)

// Worker consumes queued dispatch tasks, drives the run to completion, and
// persists every job transition. A daily cron entry prunes run history past
// the retention window.
type Worker struct {
	dispatcher *dispatch.Dispatcher
	runs       dao.RunDao
	jobs       dao.JobExecDao
	srv        *asynq.Server
	cron       *cron.Cron
	retention  time.Duration
	logger     *zap.Logger
}

func New(cfg common.Config, dispatcher *dispatch.Dispatcher, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword},
		asynq.Config{
			// One run already fans out into parallel jobs; keep the number
			// of concurrent runs per worker modest.
			Concurrency: 4,
		},
	)
	return &Worker{
		dispatcher: dispatcher,
		runs:       dao.NewRunDao(),
		jobs:       dao.NewJobExecDao(),
		srv:        srv,
		cron:       cron.New(),
		retention:  time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		logger:     logger,
	}
}

func (w *Worker) Run() error {
	if _, err := w.cron.AddFunc("0 3 * * *", w.pruneHistory); err != nil {
		return err
	}
	w.cron.Start()
	defer w.cron.Stop()

	mux := asynq.NewServeMux()
	mux.HandleFunc(event.TypeDispatch, w.HandleDispatch)
	return w.srv.Run(mux)
}

func (w *Worker) HandleDispatch(ctx context.Context, t *asynq.Task) error {
	var payload event.DispatchPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		w.logger.Error("bad dispatch payload", zap.Error(err))
		return nil // not retryable, drop it
	}

	notify := func(u gate.StatusUpdate) {
		// Persist with a detached context: a superseded run's context is
		// already canceled, but its final transitions still belong in the
		// report.
		dbCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := w.jobs.Upsert(dbCtx, &model.JobExecution{
			RunUUID:     u.RunUUID,
			JobName:     u.JobName,
			Outcome:     string(u.Outcome),
			FailureKind: string(u.Kind),
			Stdout:      u.Stdout,
			Stderr:      u.Stderr,
		})
		if err != nil {
			w.logger.Error("persist job transition failed",
				zap.String("run", u.RunUUID),
				zap.String("job", u.JobName),
				zap.Error(err))
		}
	}

	result, err := w.dispatcher.Dispatch(ctx, payload.RunUUID, payload.Event, notify)
	if err != nil {
		return err
	}
	if result == nil {
		w.logger.Info("dispatch ignored event",
			zap.String("run", payload.RunUUID),
			zap.String("type", payload.Event.Type))
		return nil
	}

	dbCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := w.runs.SetVerdict(dbCtx, result.RunUUID, string(result.Verdict)); err != nil {
		w.logger.Error("persist verdict failed",
			zap.String("run", result.RunUUID), zap.Error(err))
		return err
	}

	if result.Verdict == dispatch.VerdictRejected {
		for job, kind := range result.Rejections() {
			w.logger.Info("gate rejected change",
				zap.String("run", result.RunUUID),
				zap.String("job", job),
				zap.String("kind", string(kind)))
		}
	}
	return nil
}

func (w *Worker) pruneHistory() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	cutoff := time.Now().Add(-w.retention)
	dropped, err := w.runs.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		w.logger.Error("prune run history failed", zap.Error(err))
		return
	}
	if dropped > 0 {
		w.logger.Info("pruned run history", zap.Int64("runs", dropped))
	}
}
