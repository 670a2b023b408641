package bench

import (
	"context"
	"fmt"
	"runtime/metrics"
	"time"

	"github.com/verte-zerg/typobench/internal/corrector"
	"github.com/verte-zerg/typobench/internal/model"
)

const allocsMetric = "/gc/heap/allocs:bytes"

// worker owns one corrector instance.
type worker struct {
	corrector corrector.Corrector
	memory    bool
	sample    []metrics.Sample
}

// run calls the corrector for one job. Errors and panics never leave the
// job: they produce a record with no prediction, scored as a miss. Failed
// calls are not measured.
func (w *worker) run(ctx context.Context, job model.Job) (rec model.Record) {
	rec = model.Record{Job: job, Runtime: -1, Memory: -1}
	defer func() {
		if p := recover(); p != nil {
			rec.Predictions = nil
			rec.Runtime, rec.Memory = -1, -1
			rec.Err = fmt.Errorf("%w: panic: %v", ErrCorrectorFailed, p)
		}
	}()

	before := w.allocated()
	start := time.Now()
	preds, err := corrector.Call(ctx, w.corrector, job.Target)
	elapsed := time.Since(start)
	after := w.allocated()

	if err != nil {
		rec.Err = fmt.Errorf("%w: %w", ErrCorrectorFailed, err)
		return rec
	}
	rec.Predictions = preds
	rec.Runtime = elapsed
	if w.memory {
		rec.Memory = int64(after - before)
	}
	return rec
}

// allocated reads the cumulative heap allocations of the process. Calls of
// other workers overlap, so the difference is an upper bound.
func (w *worker) allocated() uint64 {
	if !w.memory {
		return 0
	}
	if w.sample == nil {
		w.sample = []metrics.Sample{{Name: allocsMetric}}
	}
	metrics.Read(w.sample)
	if w.sample[0].Value.Kind() != metrics.KindUint64 {
		return 0
	}
	return w.sample[0].Value.Uint64()
}
