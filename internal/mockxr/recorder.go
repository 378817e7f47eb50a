package mockxr

import (
	"sync"
	"time"

	"github.com/roach88/headpose/internal/xr"
)

// Op names a runtime call.
type Op string

const (
	OpOpen       Op = "open"
	OpWaitFrame  Op = "wait_frame"
	OpBeginFrame Op = "begin_frame"
	OpEndFrame   Op = "end_frame"
	OpLocateHead Op = "get_head_pose"
	OpClose      Op = "close"
)

// Call is one recorded runtime call.
type Call struct {
	// Seq is strictly increasing across all calls on a Recorder, starting at 1.
	Seq int64

	Op Op

	// Frame is the number of EndFrame calls completed before this call.
	Frame uint64

	// At is the runtime time the call observed (the query time for LocateHead).
	At time.Duration

	// Valid and Pose are set for LocateHead calls.
	Valid bool
	Pose  xr.Pose

	// Err is set when the call failed.
	Err error
}

// Recorder keeps calls in order. It is safe for concurrent use so tests can
// inspect it while a loop runs.
type Recorder struct {
	mu    sync.Mutex
	seq   int64
	calls []Call
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) record(c Call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	c.Seq = r.seq
	r.calls = append(r.calls, c)
}

// Calls returns a copy of all recorded calls in order.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// Count returns the number of recorded calls of op.
func (r *Recorder) Count(op Op) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Reset drops all calls and restarts the sequence at 1.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq = 0
	r.calls = nil
}
