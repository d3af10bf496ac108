package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-session/pkg/kvstore"
	"github.com/angelmondragon/storefront-session/pkg/logger"
	"github.com/angelmondragon/storefront-session/pkg/metrics"
)

type batchSweeper struct {
	batches []int64
	err     error
	calls   int
	limits  []int
}

func (b *batchSweeper) DeleteExpired(ctx context.Context, now time.Time, limit int) (int64, error) {
	b.limits = append(b.limits, limit)
	if b.err != nil {
		return 0, b.err
	}
	if b.calls >= len(b.batches) {
		return 0, nil
	}
	n := b.batches[b.calls]
	b.calls++
	return n, nil
}

func TestSlotSweepJobDrainsUntilShortBatch(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := metrics.NewCronJobMetrics(reg)
	sweeper := &batchSweeper{batches: []int64{2, 2, 1}}
	job, err := NewSlotSweepJob(SlotSweepJobParams{Logger: logger.Nop(), Store: sweeper, Metrics: m, BatchSize: 2})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if sweeper.calls != 3 {
		t.Fatalf("expected 3 batches, got %d", sweeper.calls)
	}
	if got := removedRows(t, reg); got != 5 {
		t.Fatalf("expected 5 removed rows, got %v", got)
	}
}

func TestSlotSweepJobPropagatesFailure(t *testing.T) {
	t.Parallel()

	job, _ := NewSlotSweepJob(SlotSweepJobParams{Logger: logger.Nop(), Store: &batchSweeper{err: errors.New("db down")}})
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestSlotSweepJobAgainstMemoryStore(t *testing.T) {
	t.Parallel()

	store := kvstore.NewMemoryStore()
	ctx := context.Background()
	if err := store.Set(ctx, kvstore.Key{Session: "s1", Slot: "cart_id"}, []byte("c1"), time.Nanosecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(ctx, kvstore.Key{Session: "s2", Slot: "cart_id"}, []byte("c2"), time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(2 * time.Millisecond)

	job, _ := NewSlotSweepJob(SlotSweepJobParams{Logger: logger.Nop(), Store: store, BatchSize: 10})
	if err := job.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := store.Get(ctx, kvstore.Key{Session: "s2", Slot: "cart_id"}); err != nil {
		t.Fatalf("live slot removed: %v", err)
	}
	if leftover, _ := store.DeleteExpired(ctx, time.Now(), 0); leftover != 0 {
		t.Fatalf("expected expired slot to be swept already, %d left", leftover)
	}
}

func removedRows(t *testing.T, reg *prometheus.Registry) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != "storefront_job_removed_rows_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}
