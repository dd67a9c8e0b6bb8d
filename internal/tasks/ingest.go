package tasks

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"navigader/internal/ingest"
	"navigader/internal/store"
)

// runIngest downloads an origin file, parses it, and persists each meter.
// A failed meter is logged and skipped so one bad row cannot wedge the
// whole file; re-running the task picks up only the meters still missing.
func (w *Worker) runIngest(ctx context.Context, task *store.Task) error {
	var payload IngestPayload
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		return errors.Wrap(err, "decoding ingest payload")
	}

	group, err := w.Store.GetMeterGroup(ctx, payload.GroupID)
	if err != nil {
		return errors.Wrapf(err, "meter group %s", payload.GroupID)
	}
	if group.Completed() {
		return nil
	}
	if err := w.Store.LockMeterGroup(ctx, group.ID); err != nil {
		return err
	}

	raw, err := w.Objects.Get(ctx, group.ObjectKey)
	if err != nil {
		return errors.Wrap(err, "downloading origin file")
	}
	file, err := ingest.ParseItem17(bytes.NewReader(raw))
	if err != nil {
		return errors.Wrap(err, "parsing origin file")
	}

	ingested := 0
	for _, said := range file.SAIDs() {
		if err := w.ingestMeter(ctx, group, file, said); err != nil {
			// keep processing the remaining meters
			log.WithError(err).WithFields(log.Fields{
				"group": group.ID,
				"said":  said,
			}).Error("meter ingest failed")
			continue
		}
		ingested++
	}

	count, err := w.Store.IngestedMeterCount(ctx, group.ID)
	if err != nil {
		return err
	}
	if ingested < len(file.SAIDs()) {
		return errors.Errorf("ingested %d of %d meters", ingested, len(file.SAIDs()))
	}
	return w.Store.CompleteMeterGroup(ctx, group.ID, count)
}

func (w *Worker) ingestMeter(ctx context.Context, group *store.MeterGroup, file *ingest.Item17, said string) error {
	frame, err := file.Frame(said)
	if err != nil {
		return err
	}
	meter := &store.Meter{
		GroupID:      group.ID,
		SAID:         said,
		RatePlanName: file.RatePlanName(said),
		Period:       frame.Period(),
	}
	created, err := w.Store.CreateMeter(ctx, meter)
	if err != nil {
		return err
	}
	if !created {
		// already ingested by an earlier run
		return nil
	}
	if err := w.Store.InsertReadings(ctx, meter.ID, frame.Readings()); err != nil {
		return err
	}
	w.Metrics.MetersIngested.Inc()
	w.Metrics.ReadingsIngested.Add(float64(frame.Len()))
	return nil
}

// runDelete removes an expired meter group and its origin file.
func (w *Worker) runDelete(ctx context.Context, task *store.Task) error {
	var payload DeletePayload
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		return errors.Wrap(err, "decoding delete payload")
	}
	group, err := w.Store.GetMeterGroup(ctx, payload.GroupID)
	if err == store.ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	if err := w.Objects.Delete(ctx, group.ObjectKey); err != nil {
		return err
	}
	return w.Store.DeleteMeterGroup(ctx, group.ID)
}
