package harness

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/headpose/internal/canon"
)

// Snapshot serializes the deterministic part of a result as canonical JSON.
// Wall time is excluded so snapshots are stable across machines.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	trace := make([]any, len(result.Trace))
	for i, event := range result.Trace {
		m := map[string]any{
			"seq":   event.Seq,
			"op":    event.Op,
			"frame": event.Frame,
		}
		if event.Detail != "" {
			m["detail"] = event.Detail
		}
		trace[i] = m
	}

	snapshot := map[string]any{
		"scenario_name": scenarioName,
		"trace":         trace,
		"reports":       result.Reports,
		"poses":         result.Poses,
		"misses":        result.Misses,
		"stale_queries": result.StaleQueries,
		"released":      result.Opened == 1 && result.Closed == 1,
		"init_error":    result.InitError,
	}

	data, err := canon.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return append(data, '\n'), nil
}

// RunWithGolden loads the scenario file, executes it and compares its
// snapshot against the golden file at GoldenPath(scenarioFile), the same file
// the conform command checks.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenarioFile string) (*Result, error) {
	t.Helper()

	scenario, err := LoadScenario(scenarioFile)
	if err != nil {
		return nil, err
	}
	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, GoldenPath(scenarioFile), scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's snapshot against goldenPath.
func AssertGolden(t *testing.T, goldenPath, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	base := filepath.Base(goldenPath)
	g := goldie.New(t,
		goldie.WithFixtureDir(filepath.Dir(goldenPath)),
		goldie.WithNameSuffix(filepath.Ext(base)),
	)
	g.Assert(t, strings.TrimSuffix(base, filepath.Ext(base)), data)

	return nil
}

// GoldenPath returns the golden file path for a scenario file:
// a golden/ directory next to it, named after the file.
func GoldenPath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := base[:len(base)-len(filepath.Ext(base))]
	return filepath.Join(dir, "golden", name+".golden")
}

// UpdateGolden writes the result's snapshot as the golden file.
func UpdateGolden(goldenPath, scenarioName string, result *Result) error {
	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(goldenPath), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(goldenPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// CompareGolden reports whether the result matches the golden file.
func CompareGolden(goldenPath, scenarioName string, result *Result) (bool, error) {
	want, err := os.ReadFile(goldenPath)
	if err != nil {
		return false, fmt.Errorf("failed to read golden file: %w", err)
	}
	got, err := Snapshot(scenarioName, result)
	if err != nil {
		return false, err
	}
	return bytes.Equal(want, got), nil
}
