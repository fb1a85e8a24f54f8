package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/starford/scratchpad/internal/apperr"
	"github.com/starford/scratchpad/internal/models"
)

// ProgressFunc reports bytes received so far out of total.
type ProgressFunc func(loaded, total int64)

// Dispatcher posts run requests to a remote execution endpoint.
// Only one request may be outstanding; there is no retry.
type Dispatcher struct {
	endpoint string
	client   *http.Client
	progress ProgressFunc
	inFlight atomic.Bool
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithHTTPClient overrides the HTTP client (default http.DefaultClient).
func WithHTTPClient(c *http.Client) DispatcherOption {
	return func(d *Dispatcher) { d.client = c }
}

// WithProgress registers a progress callback, invoked only when the
// response length is known.
func WithProgress(fn ProgressFunc) DispatcherOption {
	return func(d *Dispatcher) { d.progress = fn }
}

// NewDispatcher creates a Dispatcher posting to endpoint.
func NewDispatcher(endpoint string, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{endpoint: endpoint, client: http.DefaultClient}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run sends req as a single JSON POST and copies the response body into
// out verbatim, whatever the status code. A second call while one is in
// flight fails immediately with apperr.ErrBusy.
func (d *Dispatcher) Run(ctx context.Context, req models.RunRequest, out io.Writer) Outcome {
	if !d.inFlight.CompareAndSwap(false, true) {
		return Outcome{Status: StatusFailed, Err: apperr.ErrBusy}
	}
	defer d.inFlight.Store(false)

	if req.Files == nil {
		req.Files = []models.File{}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return finish(out, StatusFailed, MsgFailed, 0, fmt.Errorf("runner: encode request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return finish(out, StatusFailed, MsgFailed, 0, fmt.Errorf("runner: build request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return d.transportError(ctx, out, 0, err)
	}
	defer resp.Body.Close()

	var dst io.Writer = out
	if d.progress != nil && resp.ContentLength > 0 {
		dst = &progressWriter{w: out, total: resp.ContentLength, fn: d.progress}
	}
	n, err := io.Copy(dst, resp.Body)
	if err != nil {
		return d.transportError(ctx, out, n, err)
	}
	return Outcome{Status: StatusCompleted, Bytes: n}
}

// Busy reports whether a request is outstanding.
func (d *Dispatcher) Busy() bool {
	return d.inFlight.Load()
}

func (d *Dispatcher) transportError(ctx context.Context, out io.Writer, n int64, err error) Outcome {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return finish(out, StatusCancelled, MsgCancelled, n, fmt.Errorf("runner: %w", err))
	}
	return finish(out, StatusFailed, MsgFailed, n, fmt.Errorf("runner: %w", err))
}

type progressWriter struct {
	w      io.Writer
	loaded int64
	total  int64
	fn     ProgressFunc
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.loaded += int64(n)
	p.fn(p.loaded, p.total)
	return n, err
}
