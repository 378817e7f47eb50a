package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/roach88/headpose/internal/loop"
)

// SampleMsg carries one report step into the model.
type SampleMsg struct {
	Sample loop.Sample
}

// DoneMsg ends the watch: the loop finished with Stats and Err.
type DoneMsg struct {
	Stats loop.Stats
	Err   error
}

// Feed is a loop.Reporter that hands samples to a running watch model.
type Feed struct {
	samples chan loop.Sample
	done    chan struct{}

	once  sync.Once
	stats loop.Stats
	err   error
}

var _ loop.Reporter = (*Feed)(nil)

// NewFeed creates a feed buffering up to buffer samples.
func NewFeed(buffer int) *Feed {
	if buffer < 1 {
		buffer = 1
	}
	return &Feed{
		samples: make(chan loop.Sample, buffer),
		done:    make(chan struct{}),
	}
}

// Report blocks until the model has room for s or ctx is done.
func (f *Feed) Report(ctx context.Context, s loop.Sample) error {
	select {
	case f.samples <- s:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Finish records the loop's outcome. Only the first call has effect.
func (f *Feed) Finish(stats loop.Stats, err error) {
	f.once.Do(func() {
		f.stats = stats
		f.err = err
		close(f.done)
	})
}

// Next returns a command that waits for the next sample or the end of the run.
// Buffered samples are always delivered before DoneMsg.
func (f *Feed) Next() tea.Cmd {
	return func() tea.Msg {
		select {
		case s := <-f.samples:
			return SampleMsg{Sample: s}
		case <-f.done:
		}
		select {
		case s := <-f.samples:
			return SampleMsg{Sample: s}
		default:
			return DoneMsg{Stats: f.stats, Err: f.err}
		}
	}
}
