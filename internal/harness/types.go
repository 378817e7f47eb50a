package harness

import "time"

// TraceEvent is one runtime call as seen by the harness.
type TraceEvent struct {
	Seq    int64  `json:"seq"`
	Op     string `json:"op"`
	Frame  uint64 `json:"frame"`
	Detail string `json:"detail,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all assertions hold.
	Pass bool `json:"pass"`

	// Trace contains all runtime calls in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	Reports      int           `json:"reports"`
	Poses        int           `json:"poses"`
	Misses       int           `json:"misses"`
	StaleQueries int           `json:"stale_queries"`
	Elapsed      time.Duration `json:"elapsed"`

	// Opened and Closed count sessions on the simulated runtime.
	Opened int `json:"opened"`
	Closed int `json:"closed"`

	// InitError is set when context creation failed.
	InitError bool `json:"init_error"`

	// RunError is the error the run ended with, if any.
	RunError string `json:"run_error,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
