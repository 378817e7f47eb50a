package forward

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/roach88/headpose/internal/loop"
)

// Defaults for Config.
const (
	DefaultBatchSize  = 32
	DefaultTimeout    = 5 * time.Second
	DefaultMaxRetries = 3
	DefaultBackoff    = time.Second
	DefaultMaxPending = 16
	DefaultDrainWait  = 10 * time.Second
)

// ErrQueueFull is returned by Report when a full batch is dropped because the
// sender is too far behind.
var ErrQueueFull = errors.New("forward queue full")

// SamplesPath is appended to the collector URL.
const SamplesPath = "/samples"

// Prime number sequence for retry backoff, in units of Config.Backoff.
var backoffPrimes = []int{1, 2, 3, 5, 11, 23, 47, 61}

// Config configures a Forwarder.
type Config struct {
	// URL is the collector base URL (http for h2c, https for TLS).
	URL string

	// RunID tags every batch.
	RunID string

	// App and Mode tag every batch.
	App  string
	Mode string

	BatchSize  int
	Timeout    time.Duration
	MaxRetries int

	// Backoff is the unit of the retry schedule.
	Backoff time.Duration

	// MaxPending bounds the batches waiting for the sender. Batches beyond
	// it are dropped.
	MaxPending int

	// DrainWait bounds how long Flush waits for pending batches.
	DrainWait time.Duration

	// Client overrides the HTTP/2 client built from URL.
	Client *http.Client

	Logger *slog.Logger
}

// Validate checks the config and fills in defaults.
func (c *Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("collector URL required")
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must be non-negative, got %d", c.MaxRetries)
	}
	if c.Backoff <= 0 {
		c.Backoff = DefaultBackoff
	}
	if c.MaxPending <= 0 {
		c.MaxPending = DefaultMaxPending
	}
	if c.DrainWait <= 0 {
		c.DrainWait = DefaultDrainWait
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return nil
}

// Batch is the request body posted to the collector.
type Batch struct {
	RunID   string            `json:"run_id"`
	App     string            `json:"app,omitempty"`
	Mode    string            `json:"mode,omitempty"`
	Seq     int               `json:"seq"`
	Samples []loop.SampleJSON `json:"samples"`
}

// Forwarder is a loop.Reporter that posts samples to a collector in batches.
//
// Report only buffers. Full batches go to a background sender that owns the
// HTTP posting and retries, so a slow or failing collector never stalls the
// caller. Flush hands over the remainder and waits for the sender to drain;
// the loop calls it when the run ends. Close abandons in-flight retries.
type Forwarder struct {
	cfg      Config
	endpoint string
	client   *http.Client

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	buf     []loop.SampleJSON
	pending []Batch
	sending bool
	idle    chan struct{} // closed when the sender exits
	errs    []error
	seq     int
	sent    int
	batches int
	dropped int
	failed  int
}

var (
	_ loop.Reporter = (*Forwarder)(nil)
	_ loop.Flusher  = (*Forwarder)(nil)
)

// New creates a Forwarder.
func New(cfg Config) (*Forwarder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	target, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse collector URL: %w", err)
	}

	client := cfg.Client
	if client == nil {
		client, err = BuildHTTP2Client(target, nil)
		if err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Forwarder{
		cfg:      cfg,
		endpoint: strings.TrimSuffix(target.String(), "/") + SamplesPath,
		client:   client,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Report buffers a sample and queues the batch once it is full. It never
// waits on the network. A batch that does not fit in the queue is dropped
// and ErrQueueFull returned.
func (f *Forwarder) Report(_ context.Context, s loop.Sample) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.buf = append(f.buf, s.ToJSON())
	if len(f.buf) < f.cfg.BatchSize {
		return nil
	}
	return f.enqueueLocked()
}

// Flush queues any buffered samples and waits for the sender to drain, for at
// most DrainWait. It returns the send failures seen since the last Flush.
func (f *Forwarder) Flush(ctx context.Context) error {
	f.mu.Lock()
	var errs []error
	if len(f.buf) > 0 {
		if err := f.enqueueLocked(); err != nil {
			errs = append(errs, err)
		}
	}
	idle := f.idle
	sending := f.sending
	f.mu.Unlock()

	if sending {
		ctx, cancel := context.WithTimeout(ctx, f.cfg.DrainWait)
		defer cancel()
		select {
		case <-idle:
		case <-ctx.Done():
			return fmt.Errorf("drain forward queue: %w", ctx.Err())
		}
	}

	f.mu.Lock()
	errs = append(errs, f.errs...)
	f.errs = nil
	f.mu.Unlock()
	return errors.Join(errs...)
}

// Close stops the sender, abandoning any batch still being retried, and
// waits for it to exit. The Forwarder must not be used afterwards.
func (f *Forwarder) Close() error {
	f.cancel()
	f.mu.Lock()
	idle := f.idle
	sending := f.sending
	f.mu.Unlock()
	if sending {
		<-idle
	}
	return nil
}

// enqueueLocked moves the buffer into a batch for the sender. f.mu is held.
func (f *Forwarder) enqueueLocked() error {
	f.seq++
	batch := Batch{
		RunID:   f.cfg.RunID,
		App:     f.cfg.App,
		Mode:    f.cfg.Mode,
		Seq:     f.seq,
		Samples: f.buf,
	}
	f.buf = nil

	if len(f.pending) >= f.cfg.MaxPending {
		f.dropped += len(batch.Samples)
		f.cfg.Logger.Warn("forward queue full, dropping batch",
			"seq", batch.Seq,
			"samples", len(batch.Samples),
			"pending", len(f.pending),
		)
		return fmt.Errorf("drop batch %d: %w", batch.Seq, ErrQueueFull)
	}
	f.pending = append(f.pending, batch)

	if !f.sending {
		f.sending = true
		f.idle = make(chan struct{})
		go f.send(f.idle)
	}
	return nil
}

// send posts pending batches in order until the queue is empty.
func (f *Forwarder) send(idle chan struct{}) {
	defer close(idle)
	for {
		f.mu.Lock()
		if len(f.pending) == 0 {
			f.sending = false
			f.mu.Unlock()
			return
		}
		batch := f.pending[0]
		f.pending = f.pending[1:]
		f.mu.Unlock()

		err := f.postWithRetry(f.ctx, batch)

		f.mu.Lock()
		if err != nil {
			f.failed += len(batch.Samples)
			f.errs = append(f.errs, err)
		} else {
			f.sent += len(batch.Samples)
			f.batches++
		}
		f.mu.Unlock()
		if err != nil {
			f.cfg.Logger.Error("forward failed, dropping batch",
				"seq", batch.Seq,
				"samples", len(batch.Samples),
				"error", err,
			)
		}
	}
}

// Sent returns the number of samples the collector accepted.
func (f *Forwarder) Sent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent
}

// Batches returns the number of batches the collector accepted.
func (f *Forwarder) Batches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.batches
}

// Dropped returns the number of samples discarded because the queue was full.
func (f *Forwarder) Dropped() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dropped
}

// Failed returns the number of samples whose batch the collector never took.
func (f *Forwarder) Failed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failed
}

// errPermanent marks a response that retrying cannot fix.
var errPermanent = errors.New("permanent failure")

func (f *Forwarder) postWithRetry(ctx context.Context, batch Batch) error {
	body, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("failed to marshal batch: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= f.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := f.backoff(attempt - 1)
			f.cfg.Logger.Warn("forward failed, retrying with backoff",
				"seq", batch.Seq,
				"attempt", attempt,
				"error", lastErr,
				"retry_in", wait,
			)
			if err := sleep(ctx, wait); err != nil {
				return fmt.Errorf("forward batch %d: %w", batch.Seq, err)
			}
		}

		lastErr = f.post(ctx, body)
		if lastErr == nil {
			f.cfg.Logger.Debug("batch forwarded", "seq", batch.Seq, "samples", len(batch.Samples))
			return nil
		}
		if errors.Is(lastErr, errPermanent) {
			break
		}
	}
	return fmt.Errorf("forward batch %d: %w", batch.Seq, lastErr)
}

func (f *Forwarder) post(ctx context.Context, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := f.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 == 2 {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	err = fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	f.cfg.Logger.Debug("collector rejected batch",
		"status", resp.StatusCode,
		"latency_ms", latency.Milliseconds(),
	)
	if resp.StatusCode/100 == 4 && resp.StatusCode != http.StatusTooManyRequests {
		return fmt.Errorf("%w: %w", errPermanent, err)
	}
	return err
}

// backoff returns the wait before retry n (0-based).
func (f *Forwarder) backoff(n int) time.Duration {
	if n >= len(backoffPrimes) {
		n = len(backoffPrimes) - 1
	}
	return time.Duration(backoffPrimes[n]) * f.cfg.Backoff
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
