package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-session/pkg/kvstore"
	"github.com/angelmondragon/storefront-session/pkg/logger"
	"github.com/angelmondragon/storefront-session/pkg/metrics"
)

const (
	SlotSweepJobName      = "slot-sweep"
	defaultSweepBatchSize = 500
	// keeps one run bounded even if rows expire faster than we delete them
	maxSweepBatches = 1000
)

type SlotSweepJobParams struct {
	Logger    *logger.Logger
	Store     kvstore.Sweeper
	Metrics   *metrics.CronJobMetrics
	BatchSize int
}

// NewSlotSweepJob removes expired session slots in batches. Abandoned sessions
// are never cleaned up by their visitors, so the slot store relies on this job
// (or on native key expiry for redis).
func NewSlotSweepJob(params SlotSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("sweepable slot store required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultSweepBatchSize
	}
	return &slotSweepJob{
		logg:    params.Logger,
		store:   params.Store,
		metrics: params.Metrics,
		batch:   batch,
		now:     time.Now,
	}, nil
}

type slotSweepJob struct {
	logg    *logger.Logger
	store   kvstore.Sweeper
	metrics *metrics.CronJobMetrics
	batch   int
	now     func() time.Time
}

func (j *slotSweepJob) Name() string { return SlotSweepJobName }

func (j *slotSweepJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC()
	var total int64
	for i := 0; i < maxSweepBatches; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		deleted, err := j.store.DeleteExpired(ctx, cutoff, j.batch)
		if err != nil {
			return fmt.Errorf("slot sweep: %w", err)
		}
		total += deleted
		j.metrics.AddRemoved(SlotSweepJobName, deleted)
		if deleted < int64(j.batch) {
			break
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"batch_size":   j.batch,
		"rows_deleted": total,
	})
	j.logg.Info(logCtx, "slot sweep complete")
	return nil
}
