package analysis

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ucpllm/internal/logging"
)

type inflight struct {
	id     string
	result chan Result
	cancel context.CancelFunc
}

// Coordinator issues at most one outstanding analysis request and hands its
// result to a single consumer.
type Coordinator struct {
	analyzer Analyzer
	timeout  time.Duration

	mu      sync.Mutex
	pending *inflight
}

// NewCoordinator returns a Coordinator over analyzer. A zero timeout leaves
// the deadline to the caller's context.
func NewCoordinator(analyzer Analyzer, timeout time.Duration) *Coordinator {
	return &Coordinator{analyzer: analyzer, timeout: timeout}
}

// Available reports whether a provider is configured.
func (c *Coordinator) Available() bool {
	return c != nil && c.analyzer != nil
}

// Pending reports whether a request is outstanding.
func (c *Coordinator) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending != nil
}

// Submit starts the analysis of exportText and returns its request id.
// The call runs in its own goroutine; collect the result with Poll or Wait.
func (c *Coordinator) Submit(ctx context.Context, exportText string) (string, error) {
	if !c.Available() {
		return "", ErrNoAnalyzer
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != nil {
		return "", ErrPending
	}

	var cancel context.CancelFunc
	if c.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}

	req := &inflight{
		id:     uuid.NewString(),
		result: make(chan Result, 1),
		cancel: cancel,
	}
	c.pending = req

	payload := BuildRequest(exportText)
	provider := c.analyzer.Name()
	logging.Analysis("request %s submitted to %s (%d bytes)", req.id, provider, len(payload))

	go func() {
		defer cancel()
		start := time.Now()
		text, err := c.analyzer.Analyze(ctx, payload)
		res := Result{RequestID: req.id, Provider: provider}
		switch {
		case err != nil:
			res.Status = StatusError
			res.Message = err.Error()
			logging.AnalysisError("request %s failed after %s: %v", req.id, time.Since(start), err)
		case strings.TrimSpace(text) == "":
			res.Status = StatusError
			res.Message = "the provider returned an empty analysis"
			logging.AnalysisError("request %s returned no text", req.id)
		default:
			res.Status = StatusSuccess
			res.Text = strings.TrimSpace(text)
			logging.Analysis("request %s completed in %s (%d chars)", req.id, time.Since(start), len(res.Text))
		}
		req.result <- res
	}()

	return req.id, nil
}

// Poll returns the outstanding result if it has arrived. It never blocks.
func (c *Coordinator) Poll() (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return Result{}, false
	}
	select {
	case res := <-c.pending.result:
		c.pending = nil
		return res, true
	default:
		return Result{}, false
	}
}

// Wait blocks until the outstanding result arrives or ctx ends.
func (c *Coordinator) Wait(ctx context.Context) (Result, error) {
	c.mu.Lock()
	req := c.pending
	c.mu.Unlock()
	if req == nil {
		return Result{}, fmt.Errorf("no analysis request outstanding")
	}

	select {
	case res := <-req.result:
		c.mu.Lock()
		if c.pending == req {
			c.pending = nil
		}
		c.mu.Unlock()
		return res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Cancel aborts the outstanding request. Its result, an error, is still
// delivered through Poll or Wait.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != nil {
		c.pending.cancel()
	}
}
