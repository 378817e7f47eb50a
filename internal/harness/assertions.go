package harness

import (
	"fmt"
	"strings"
	"time"

	"github.com/roach88/headpose/internal/mockxr"
)

// maxTraceInError bounds the trace printed with an assertion failure.
const maxTraceInError = 20

// frameCycle is the call order of one bracketed iteration.
var frameCycle = []string{
	string(mockxr.OpBeginFrame),
	string(mockxr.OpEndFrame),
	string(mockxr.OpLocateHead),
	string(mockxr.OpWaitFrame),
}

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) == 0 {
		return buf.String()
	}

	trace := e.Trace
	fmt.Fprintf(&buf, "\nTrace")
	if len(trace) > maxTraceInError {
		fmt.Fprintf(&buf, " (first %d of %d)", maxTraceInError, len(trace))
		trace = trace[:maxTraceInError]
	}
	fmt.Fprintf(&buf, ":\n")
	for _, event := range trace {
		fmt.Fprintf(&buf, "  [%d] %s frame=%d", event.Seq, event.Op, event.Frame)
		if event.Detail != "" {
			fmt.Fprintf(&buf, " %s", event.Detail)
		}
		buf.WriteByte('\n')
	}

	return buf.String()
}

func assertCount(kind string, want, got int) error {
	if want == got {
		return nil
	}
	return &AssertionError{
		Type:     kind,
		Expected: fmt.Sprintf("%d", want),
		Actual:   fmt.Sprintf("%d", got),
	}
}

// assertCallCount checks that op was called exactly Count times.
func assertCallCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Op == assertion.Op {
			count++
		}
	}
	if count == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertCallCount,
		Expected: fmt.Sprintf("%s called %d times", assertion.Op, assertion.Count),
		Actual:   fmt.Sprintf("called %d times", count),
		Trace:    trace,
	}
}

// assertFrameOrder checks that frame calls form complete cycles of
// begin, end, query, wait, and that each query sees the frame its cycle
// just ended. A trailing partial cycle is accepted only if a call in it
// failed.
func assertFrameOrder(trace []TraceEvent) error {
	var ops []TraceEvent
	for _, event := range trace {
		if event.Op == string(mockxr.OpOpen) || event.Op == string(mockxr.OpClose) {
			continue
		}
		ops = append(ops, event)
	}
	if len(ops) == 0 {
		return &AssertionError{
			Type:     AssertFrameOrder,
			Expected: "at least one frame cycle",
			Actual:   "no frame calls",
			Trace:    trace,
		}
	}

	for i, event := range ops {
		cycle := i / len(frameCycle)
		want := frameCycle[i%len(frameCycle)]
		if event.Op != want {
			return &AssertionError{
				Type:     AssertFrameOrder,
				Expected: fmt.Sprintf("cycle %d: %s at seq %d", cycle+1, want, event.Seq),
				Actual:   event.Op,
				Trace:    trace,
			}
		}
		if event.Op == string(mockxr.OpLocateHead) && event.Frame != uint64(cycle+1) {
			return &AssertionError{
				Type:     AssertFrameOrder,
				Expected: fmt.Sprintf("cycle %d: query after frame %d ended", cycle+1, cycle+1),
				Actual:   fmt.Sprintf("query saw frame %d", event.Frame),
				Trace:    trace,
			}
		}
	}

	if rem := len(ops) % len(frameCycle); rem != 0 {
		last := ops[len(ops)-1]
		if !strings.HasPrefix(last.Detail, "error:") {
			return &AssertionError{
				Type:     AssertFrameOrder,
				Expected: "complete frame cycles",
				Actual:   fmt.Sprintf("last cycle stops after %s", last.Op),
				Trace:    trace,
			}
		}
	}

	return nil
}

func assertElapsed(result *Result, assertion Assertion) error {
	bound, err := time.ParseDuration(assertion.Duration)
	if err != nil {
		return fmt.Errorf("%s: %w", assertion.Type, err)
	}
	switch assertion.Type {
	case AssertMinElapsed:
		if result.Elapsed >= bound {
			return nil
		}
		return &AssertionError{
			Type:     AssertMinElapsed,
			Expected: fmt.Sprintf(">= %s", bound),
			Actual:   result.Elapsed.String(),
		}
	default:
		if result.Elapsed <= bound {
			return nil
		}
		return &AssertionError{
			Type:     AssertMaxElapsed,
			Expected: fmt.Sprintf("<= %s", bound),
			Actual:   result.Elapsed.String(),
		}
	}
}

// assertReleased checks that exactly one context was created and released.
func assertReleased(result *Result) error {
	if result.Opened == 1 && result.Closed == 1 {
		return nil
	}
	return &AssertionError{
		Type:     AssertReleased,
		Expected: "1 session opened and closed",
		Actual:   fmt.Sprintf("%d opened, %d closed", result.Opened, result.Closed),
		Trace:    result.Trace,
	}
}

func assertInitError(result *Result) error {
	if result.InitError {
		return nil
	}
	actual := "context created"
	if result.RunError != "" {
		actual = result.RunError
	}
	return &AssertionError{
		Type:     AssertInitError,
		Expected: "context creation to fail",
		Actual:   actual,
	}
}

func assertRunError(result *Result, assertion Assertion) error {
	if strings.Contains(result.RunError, assertion.Contains) && result.RunError != "" {
		return nil
	}
	actual := "run succeeded"
	if result.RunError != "" {
		actual = result.RunError
	}
	return &AssertionError{
		Type:     AssertRunError,
		Expected: fmt.Sprintf("error containing %q", assertion.Contains),
		Actual:   actual,
		Trace:    result.Trace,
	}
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	expectsFailure := false
	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertReportCount:
			err = assertCount(AssertReportCount, assertion.Count, result.Reports)
		case AssertPoseCount:
			err = assertCount(AssertPoseCount, assertion.Count, result.Poses)
		case AssertMissCount:
			err = assertCount(AssertMissCount, assertion.Count, result.Misses)
		case AssertStaleQueries:
			err = assertCount(AssertStaleQueries, assertion.Count, result.StaleQueries)
		case AssertCallCount:
			err = assertCallCount(result.Trace, assertion)
		case AssertFrameOrder:
			err = assertFrameOrder(result.Trace)
		case AssertMinElapsed, AssertMaxElapsed:
			err = assertElapsed(result, assertion)
		case AssertReleased:
			err = assertReleased(result)
		case AssertInitError:
			expectsFailure = true
			err = assertInitError(result)
		case AssertRunError:
			expectsFailure = true
			err = assertRunError(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	if result.RunError != "" && !expectsFailure {
		errors = append(errors, fmt.Sprintf("unexpected run error: %s", result.RunError))
	}

	return errors
}
