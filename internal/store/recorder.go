package store

import (
	"context"
	"sync"

	"github.com/roach88/headpose/internal/loop"
)

// DefaultBatchSize is the number of samples a Recorder buffers before writing.
const DefaultBatchSize = 64

// Recorder is a loop.Reporter that persists samples for one run.
// Samples are buffered and written in batches; Flush writes the remainder.
type Recorder struct {
	store *Store
	runID string
	batch int

	mu  sync.Mutex
	buf []loop.Sample
}

var (
	_ loop.Reporter = (*Recorder)(nil)
	_ loop.Flusher  = (*Recorder)(nil)
)

// NewRecorder returns a Recorder writing to runID.
// batch <= 0 uses DefaultBatchSize.
func NewRecorder(s *Store, runID string, batch int) *Recorder {
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	return &Recorder{store: s, runID: runID, batch: batch}
}

// RunID returns the run this recorder writes to.
func (r *Recorder) RunID() string {
	return r.runID
}

// Report buffers a sample, writing the batch once it is full.
func (r *Recorder) Report(ctx context.Context, smp loop.Sample) error {
	r.mu.Lock()
	r.buf = append(r.buf, smp)
	full := len(r.buf) >= r.batch
	r.mu.Unlock()

	if !full {
		return nil
	}
	return r.Flush(ctx)
}

// Flush writes all buffered samples.
func (r *Recorder) Flush(ctx context.Context) error {
	r.mu.Lock()
	pending := r.buf
	r.buf = nil
	r.mu.Unlock()

	return r.store.WriteSamples(ctx, r.runID, pending)
}
