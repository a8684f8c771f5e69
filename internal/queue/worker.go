package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"devbay/internal/core/lifecycle"
	"devbay/internal/engine"
)

// WorkerPool consumes lifecycle commands off the broker. All workers
// share one queue group, so each command is handled by exactly one of
// them. Create is the only retried action: engine control-plane errors
// look transient, everything else fails immediately.
type WorkerPool struct {
	nc            *nats.Conn
	handler       lifecycle.LifecycleHandler
	workers       int
	retryAttempts int
	retryBackoff  time.Duration
	log           *zap.Logger

	sub *nats.Subscription
	ch  chan *nats.Msg
	wg  sync.WaitGroup
}

func NewWorkerPool(
	nc *nats.Conn,
	handler lifecycle.LifecycleHandler,
	workers int,
	retryAttempts int,
	retryBackoff time.Duration,
	log *zap.Logger,
) *WorkerPool {
	return &WorkerPool{
		nc:            nc,
		handler:       handler,
		workers:       workers,
		retryAttempts: retryAttempts,
		retryBackoff:  retryBackoff,
		log:           log,
	}
}

func (w *WorkerPool) Start(ctx context.Context) error {
	w.ch = make(chan *nats.Msg, 64)
	sub, err := w.nc.ChanQueueSubscribe(subjectWildcard, queueGroup, w.ch)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subjectWildcard, err)
	}
	w.sub = sub

	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i)
	}
	w.log.Info("worker pool started", zap.Int("workers", w.workers))
	return nil
}

// Stop unsubscribes and waits for in-flight commands to finish.
func (w *WorkerPool) Stop() {
	if w.sub != nil {
		w.sub.Unsubscribe()
	}
	close(w.ch)
	w.wg.Wait()
}

func (w *WorkerPool) run(ctx context.Context, id int) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-w.ch:
			if !ok {
				return
			}
			w.dispatch(ctx, msg)
		}
	}
}

func (w *WorkerPool) dispatch(ctx context.Context, msg *nats.Msg) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("worker panic recovered",
				zap.String("subject", msg.Subject),
				zap.Any("panic", r),
			)
			tasksTotal.WithLabelValues(actionOf(msg.Subject), "panic").Inc()
		}
	}()

	var cmd Command
	if err := json.Unmarshal(msg.Data, &cmd); err != nil {
		w.log.Error("malformed command dropped",
			zap.String("subject", msg.Subject),
			zap.Error(err),
		)
		tasksTotal.WithLabelValues(actionOf(msg.Subject), "malformed").Inc()
		return
	}

	var err error
	switch msg.Subject {
	case SubjectCreate:
		err = w.runCreate(ctx, cmd)
	case SubjectStop:
		err = w.handler.Stop(ctx, cmd.InstanceId)
	case SubjectRestart:
		err = w.handler.Restart(ctx, cmd.InstanceId)
	case SubjectDelete:
		err = w.handler.Delete(ctx, cmd.InstanceId, cmd.ActorUserId, cmd.RetainVolume)
	default:
		w.log.Warn("unknown subject dropped", zap.String("subject", msg.Subject))
		return
	}

	outcome := "ok"
	if err != nil {
		outcome = "failed"
		w.log.Error("command failed",
			zap.String("subject", msg.Subject),
			zap.String("instanceId", cmd.InstanceId),
			zap.Error(err),
		)
	}
	tasksTotal.WithLabelValues(actionOf(msg.Subject), outcome).Inc()
}

// runCreate re-invokes Create after transient engine failures. Create
// itself is safe to repeat: it reuses the ports and volume of the
// failed attempt. Anything other than an engine API error is final on
// the first occurrence.
func (w *WorkerPool) runCreate(ctx context.Context, cmd Command) error {
	var lastErr error
	for attempt := 1; attempt <= w.retryAttempts; attempt++ {
		lastErr = w.handler.Create(ctx, cmd.InstanceId)
		if lastErr == nil {
			return nil
		}
		var apiErr *engine.APIError
		if !errors.As(lastErr, &apiErr) {
			return lastErr
		}
		if attempt == w.retryAttempts {
			break
		}
		w.log.Warn("create attempt failed, retrying",
			zap.String("instanceId", cmd.InstanceId),
			zap.Int("attempt", attempt),
			zap.Error(lastErr),
		)
		retriesTotal.Inc()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.retryBackoff):
		}
	}

	msg := fmt.Sprintf("create failed after %d attempts: %v", w.retryAttempts, lastErr)
	if err := w.handler.ForceError(cmd.InstanceId, msg); err != nil {
		w.log.Error("record retry exhaustion failed",
			zap.String("instanceId", cmd.InstanceId),
			zap.Error(err),
		)
	}
	return lastErr
}

func actionOf(subject string) string {
	if i := strings.LastIndex(subject, "."); i >= 0 {
		return subject[i+1:]
	}
	return subject
}
