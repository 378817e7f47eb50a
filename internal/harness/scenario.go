package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/headpose/internal/loop"
	"github.com/roach88/headpose/internal/mockxr"
	"github.com/roach88/headpose/internal/xr"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// App is the identity passed to context creation.
	App AppSpec `yaml:"app"`

	// Mode is "unsynchronized" or "bracketed".
	Mode string `yaml:"mode"`

	// Iterations is the number of report steps. Scenarios must be bounded.
	Iterations int `yaml:"iterations"`

	// Interval is the unsynchronized sleep (Go duration, e.g. "50ms").
	Interval string `yaml:"interval,omitempty"`

	// Runtime configures the simulated runtime.
	Runtime RuntimeSpec `yaml:"runtime,omitempty"`

	// Assertions validate the trace and run counters.
	Assertions []Assertion `yaml:"assertions"`
}

// AppSpec is the application identity.
type AppSpec struct {
	Name    string `yaml:"name"`
	Version int    `yaml:"version"`
}

// RuntimeSpec configures the simulated runtime.
type RuntimeSpec struct {
	Tick            string    `yaml:"tick,omitempty"`
	Source          string    `yaml:"source,omitempty"`
	Position        []float64 `yaml:"position,omitempty,flow"`
	LostFrames      int       `yaml:"lost_frames,omitempty"`
	Unavailable     bool      `yaml:"unavailable,omitempty"`
	DisconnectAfter uint64    `yaml:"disconnect_after,omitempty"`
}

// Assertion validates the trace or run counters.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Op is the runtime call name (call_count).
	Op string `yaml:"op,omitempty"`

	// Count is the expected number (report_count, pose_count, miss_count,
	// call_count, stale_queries).
	Count int `yaml:"count,omitempty"`

	// Duration is a Go duration (min_elapsed, max_elapsed).
	Duration string `yaml:"duration,omitempty"`

	// Contains is a substring of the expected run error (run_error).
	Contains string `yaml:"contains,omitempty"`
}

// Assertion type constants.
const (
	AssertReportCount  = "report_count"
	AssertPoseCount    = "pose_count"
	AssertMissCount    = "miss_count"
	AssertFrameOrder   = "frame_order"
	AssertCallCount    = "call_count"
	AssertMinElapsed   = "min_elapsed"
	AssertMaxElapsed   = "max_elapsed"
	AssertReleased     = "released"
	AssertInitError    = "init_error"
	AssertStaleQueries = "stale_queries"
	AssertRunError     = "run_error"
)

// knownOps lists the call names call_count accepts.
var knownOps = map[string]bool{
	string(mockxr.OpOpen):       true,
	string(mockxr.OpWaitFrame):  true,
	string(mockxr.OpBeginFrame): true,
	string(mockxr.OpEndFrame):   true,
	string(mockxr.OpLocateHead): true,
	string(mockxr.OpClose):      true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if _, err := loop.ParseMode(s.Mode); err != nil {
		return fmt.Errorf("mode: %w", err)
	}

	if s.Iterations <= 0 {
		return fmt.Errorf("iterations must be positive, got %d", s.Iterations)
	}

	if _, err := optionalDuration(s.Interval); err != nil {
		return fmt.Errorf("interval: %w", err)
	}

	if _, err := optionalDuration(s.Runtime.Tick); err != nil {
		return fmt.Errorf("runtime.tick: %w", err)
	}

	if n := len(s.Runtime.Position); n != 0 && n != 3 {
		return fmt.Errorf("runtime.position: want 3 coordinates, got %d", n)
	}

	if _, err := mockxr.ParseSource(s.Runtime.Source, xr.Vec3{}, 0); err != nil {
		return fmt.Errorf("runtime.source: %w", err)
	}

	if s.Runtime.LostFrames < 0 {
		return fmt.Errorf("runtime.lost_frames must be non-negative")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertReportCount, AssertPoseCount, AssertMissCount, AssertStaleQueries:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertCallCount:
		if !knownOps[a.Op] {
			return fmt.Errorf("assertions[%d]: unknown op %q for call_count", index, a.Op)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for call_count", index)
		}
	case AssertMinElapsed, AssertMaxElapsed:
		if a.Duration == "" {
			return fmt.Errorf("assertions[%d]: duration is required for %s", index, a.Type)
		}
		if _, err := time.ParseDuration(a.Duration); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertRunError:
		if a.Contains == "" {
			return fmt.Errorf("assertions[%d]: contains is required for run_error", index)
		}
	case AssertFrameOrder, AssertReleased, AssertInitError:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

func optionalDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("must be non-negative, got %s", d)
	}
	return d, nil
}

// loopConfig resolves the scenario's loop configuration.
func (s *Scenario) loopConfig() (loop.Config, error) {
	mode, err := loop.ParseMode(s.Mode)
	if err != nil {
		return loop.Config{}, err
	}
	interval, err := optionalDuration(s.Interval)
	if err != nil {
		return loop.Config{}, err
	}
	return loop.Config{Mode: mode, Iterations: s.Iterations, Interval: interval}, nil
}

// mockConfig resolves the scenario's runtime configuration.
func (s *Scenario) mockConfig(rec *mockxr.Recorder) (mockxr.Config, error) {
	tick, err := optionalDuration(s.Runtime.Tick)
	if err != nil {
		return mockxr.Config{}, err
	}
	pos := xr.Vec3{X: 0, Y: 1.6, Z: 0}
	if p := s.Runtime.Position; len(p) == 3 {
		pos = xr.Vec3{X: p[0], Y: p[1], Z: p[2]}
	}
	src, err := mockxr.ParseSource(s.Runtime.Source, pos, s.Runtime.LostFrames)
	if err != nil {
		return mockxr.Config{}, err
	}
	return mockxr.Config{
		Tick:            tick,
		Source:          src,
		Unavailable:     s.Runtime.Unavailable,
		DisconnectAfter: s.Runtime.DisconnectAfter,
		Recorder:        rec,
	}, nil
}
