package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/scratchpad/internal/apperr"
	"github.com/starford/scratchpad/internal/executor"
	"github.com/starford/scratchpad/internal/models"
	"github.com/starford/scratchpad/internal/runlog"
)

// trackingWriter remembers whether anything reached the client so a late
// error can still be reported with a proper status.
type trackingWriter struct {
	http.ResponseWriter
	wrote bool
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	if !t.wrote {
		t.wrote = true
		t.ResponseWriter.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	n, err := t.ResponseWriter.Write(p)
	if f, ok := t.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
	return n, err
}

// Run handles POST /api/workspaces/{id}/run.
//
//	@Summary	Run a command against the workspace's files
//	@Description	Serializes every buffer into {name, data} pairs, runs cmd and
//	@Description	streams the output back verbatim as plain text.
//	@Tags		run
//	@Accept		json
//	@Produce	plain
//	@Param		body	body		RunRequest	true	"Command"
//	@Success	200		{string}	string		"Output"
//	@Failure	404		{object}	errResponse
//	@Failure	429		{object}	errResponse
//	@Router		/workspaces/{id}/run [post]
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var req RunRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if _, busy := h.inFlight.LoadOrStore(ws.ID(), struct{}{}); busy {
		writeError(w, r, "run", apperr.ErrBusy)
		return
	}
	defer h.inFlight.Delete(ws.ID())

	// Keep the session from being swept while the run lasts.
	defer ws.Hold()()

	runReq := models.RunRequest{Cmd: req.Cmd, Env: req.Env, Files: ws.Snapshot()}
	meta := executor.Meta{Workspace: ws.ID(), Language: req.Language, Version: req.Version}

	tw := &trackingWriter{ResponseWriter: w}
	outcome := h.runnerFor(meta).Run(r.Context(), runReq, tw)

	if h.broker != nil {
		h.broker.PublishRun(ws.ID(), string(outcome.Status), outcome.Bytes)
	}
	if outcome.Err != nil {
		h.logger.Warn("workspace run did not complete",
			slog.String("workspace", ws.ID()),
			slog.String("status", string(outcome.Status)),
			slog.String("error", outcome.Err.Error()))
		if !tw.wrote {
			writeError(w, r, "run", outcome.Err)
		}
		return
	}
	if !tw.wrote {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
	}
}

// Exec handles POST /api/exec and POST /lang/{language}/{version}.
//
//	@Summary	Execute posted files and a command line on this host
//	@Tags		run
//	@Accept		json
//	@Produce	plain
//	@Param		body	body		ExecRequest	true	"Command and files"
//	@Success	200		{string}	string		"Output"
//	@Failure	400		{object}	errResponse
//	@Router		/exec [post]
func (h *Handler) Exec(w http.ResponseWriter, r *http.Request) {
	var req ExecRequest
	if !decodeBody(w, r, &req) {
		return
	}
	meta := executor.Meta{
		Workspace: r.Header.Get("X-Workspace-ID"),
		Language:  chi.URLParam(r, "language"),
		Version:   chi.URLParam(r, "version"),
	}

	tw := &trackingWriter{ResponseWriter: w}
	_, err := h.exec.Execute(r.Context(), models.RunRequest(req), meta, tw)
	if err != nil {
		if tw.wrote || r.Context().Err() != nil {
			h.logger.Warn("exec aborted", slog.String("uri", r.RequestURI), slog.String("error", err.Error()))
			return
		}
		writeError(w, r, "exec", err)
		return
	}
	if !tw.wrote {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
	}
}

// ListRuns handles GET /api/workspaces/{id}/runs.
//
//	@Summary	Recent runs of a workspace, newest first
//	@Tags		run
//	@Produce	json
//	@Param		limit	query		int	false	"Max entries"
//	@Success	200		{object}	RunListResponse
//	@Failure	404		{object}	errResponse
//	@Router		/workspaces/{id}/runs [get]
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	if h.runs == nil {
		writeJSON(w, http.StatusOK, RunListResponse{Runs: []runlog.Entry{}})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.runs.List(r.Context(), ws.ID(), limit)
	if err != nil {
		writeError(w, r, "list runs", err)
		return
	}
	writeJSON(w, http.StatusOK, RunListResponse{Runs: entries})
}

// Events handles GET /api/workspaces/{id}/events.
//
//	@Summary	Server-sent events for one workspace
//	@Tags		workspaces
//	@Produce	text/event-stream
//	@Failure	404	{object}	errResponse
//	@Router		/workspaces/{id}/events [get]
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	if h.broker == nil {
		writeJSON(w, http.StatusNotFound, errorBody("events disabled"))
		return
	}
	h.broker.Serve(w, r, ws.ID())
}
