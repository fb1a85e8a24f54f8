// Package api implements the workspace and execution HTTP API using chi.
package api

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/starford/scratchpad/internal/executor"
	"github.com/starford/scratchpad/internal/runlog"
	"github.com/starford/scratchpad/internal/runner"
	"github.com/starford/scratchpad/internal/sse"
	"github.com/starford/scratchpad/internal/workspace"
)

// Handler holds API route handlers.
type Handler struct {
	store    *workspace.Store
	exec     *executor.Executor
	runs     *runlog.DB
	broker   *sse.Broker
	endpoint string
	client   *http.Client
	logger   *slog.Logger

	inFlight sync.Map // workspace ID -> struct{}
}

// Deps bundles what the API needs. Runs, Broker and Endpoint are optional.
// When Endpoint is set, workspace runs are posted there instead of being
// executed in-process.
type Deps struct {
	Store    *workspace.Store
	Executor *executor.Executor
	Runs     *runlog.DB
	Broker   *sse.Broker
	Endpoint string
	Client   *http.Client
	Logger   *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(d Deps) *Handler {
	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:    d.Store,
		exec:     d.Executor,
		runs:     d.Runs,
		broker:   d.Broker,
		endpoint: d.Endpoint,
		client:   client,
		logger:   logger,
	}
}

// runnerFor picks the runner for one workspace run.
func (h *Handler) runnerFor(meta executor.Meta) runner.Runner {
	if h.endpoint != "" {
		return runner.NewDispatcher(h.endpoint, runner.WithHTTPClient(h.client))
	}
	return runner.NewLocal(h.exec, meta)
}
