package tasks

import (
	"context"
	"time"

	scheduler "github.com/robfig/cron"
	log "github.com/sirupsen/logrus"
)

const cronTimeout = time.Minute

// Ingests that have not completed after this long are assumed to have been
// interrupted and are queued again. Re-queueing an ingest that is still
// running is safe; completed groups are skipped on pickup.
const ingestRerunAge = 10 * time.Minute

// Scheduler returns the periodic maintenance jobs: re-queueing interrupted
// ingests and deleting expired meter groups. Call Start on the result.
func (w *Worker) Scheduler() *scheduler.Cron {
	c := scheduler.New()
	c.AddJob("@every 5m", rerunIncompleteIngestsJob{w})
	c.AddJob("@hourly", deleteExpiredGroupsJob{w})
	return c
}

type rerunIncompleteIngestsJob struct {
	w *Worker
}

var _ scheduler.Job = rerunIncompleteIngestsJob{}

func (j rerunIncompleteIngestsJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), cronTimeout)
	defer cancel()

	cutoff := time.Now().Add(-ingestRerunAge)
	groups, err := j.w.Store.IncompleteMeterGroups(ctx, cutoff)
	if err != nil {
		log.WithError(err).Error("listing incomplete meter groups")
		return
	}
	for _, group := range groups {
		logger := log.WithField("group", group.ID)
		err := EnqueueIngest(ctx, j.w.Store, j.w.Queue.Name, j.w.Queue.MaxAttempts, group.ID)
		if err != nil {
			logger.WithError(err).Error("re-queueing ingest")
			continue
		}
		logger.Info("re-queued incomplete ingest")
	}
}

type deleteExpiredGroupsJob struct {
	w *Worker
}

var _ scheduler.Job = deleteExpiredGroupsJob{}

func (j deleteExpiredGroupsJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), cronTimeout)
	defer cancel()

	groups, err := j.w.Store.ExpiredMeterGroups(ctx, time.Now())
	if err != nil {
		log.WithError(err).Error("listing expired meter groups")
		return
	}
	for _, group := range groups {
		logger := log.WithField("group", group.ID)
		err := EnqueueDelete(ctx, j.w.Store, j.w.Queue.Name, j.w.Queue.MaxAttempts, group.ID)
		if err != nil {
			logger.WithError(err).Error("queueing expired group deletion")
			continue
		}
		logger.Info("queued expired meter group for deletion")
	}
}
