package tasks

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"navigader/internal/config"
	"navigader/internal/der"
	"navigader/internal/metrics"
	"navigader/internal/objstore"
	"navigader/internal/store"
)

// Worker consumes the task queue. Several consumers run concurrently;
// each claims one task at a time.
type Worker struct {
	Store      *store.Store
	Objects    *objstore.Store
	Metrics    *metrics.Metrics
	Queue      config.Queue
	Production der.ProductionSource
}

// Run consumes tasks until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	log.WithFields(log.Fields{
		"queue":       w.Queue.Name,
		"concurrency": w.Queue.Concurrency,
	}).Info("worker starting")

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < w.Queue.Concurrency; i++ {
		g.Go(func() error { return w.consume(ctx) })
	}
	g.Go(func() error { return w.reportQueueDepth(ctx) })
	return g.Wait()
}

func (w *Worker) consume(ctx context.Context) error {
	for {
		task, err := w.Store.Claim(ctx, w.Queue.Name)
		if err == store.ErrNotFound {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(w.Queue.PollInterval):
				continue
			}
		}
		if err != nil {
			return err
		}
		w.process(ctx, task)

		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

func (w *Worker) process(ctx context.Context, task *store.Task) {
	logger := log.WithFields(log.Fields{
		"task":    task.ID,
		"kind":    task.Kind,
		"attempt": task.Attempts,
	})
	logger.Info("task started")

	timer := prometheus.NewTimer(w.Metrics.TaskDuration.WithLabelValues(task.Kind))
	err := w.dispatch(ctx, task)
	timer.ObserveDuration()

	if err == nil {
		w.Metrics.TasksProcessed.WithLabelValues(task.Kind, "ok").Inc()
		if err := w.Store.Complete(ctx, task.ID); err != nil {
			logger.WithError(err).Error("marking task done")
		}
		logger.Info("task finished")
		return
	}

	w.Metrics.TasksProcessed.WithLabelValues(task.Kind, "error").Inc()
	backoff := retryBackoff(task.Attempts)
	if retryErr := w.Store.Retry(ctx, task, err.Error(), backoff); retryErr != nil {
		logger.WithError(retryErr).Error("returning task to queue")
	}
	if task.Attempts >= task.MaxAttempts {
		logger.WithError(err).Error("task failed, attempts exhausted")
	} else {
		logger.WithError(err).WithField("backoff", backoff).Warn("task failed, will retry")
	}
}

// retryBackoff delays each retry a minute longer than the last.
func retryBackoff(attempts int) time.Duration {
	return time.Duration(attempts) * time.Minute
}

func (w *Worker) dispatch(ctx context.Context, task *store.Task) error {
	switch task.Kind {
	case KindIngestOriginFile:
		return w.runIngest(ctx, task)
	case KindRunScenario:
		return w.runScenario(ctx, task)
	case KindDeleteMeterGroup:
		return w.runDelete(ctx, task)
	default:
		return errors.Errorf("unknown task kind %q", task.Kind)
	}
}

// reportQueueDepth samples the pending task count for the gauge.
func (w *Worker) reportQueueDepth(ctx context.Context) error {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			depth, err := w.Store.QueueDepth(ctx, w.Queue.Name)
			if err != nil {
				log.WithError(err).Warn("sampling queue depth")
				continue
			}
			w.Metrics.QueueDepth.Set(float64(depth))
		}
	}
}
