package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/scratchpad/internal/workspace"
)

const maxBodyBytes = 10 << 20

// nodePath extracts the workspace-relative path from the URL wildcard.
// Supports encoded slashes (e.g. src%2Fmain.go).
func nodePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	if vv, ok := v.(interface{ Validate() error }); ok {
		if err := vv.Validate(); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return false
		}
	}
	return true
}

func (h *Handler) workspace(w http.ResponseWriter, r *http.Request) (*workspace.Workspace, bool) {
	ws, err := h.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "get workspace", err)
		return nil, false
	}
	return ws, true
}

func workspaceResponse(ws *workspace.Workspace) WorkspaceResponse {
	return WorkspaceResponse{ID: ws.ID(), Active: ws.Active(), Tree: ws.Tree()}
}

// CreateWorkspace handles POST /api/workspaces.
//
//	@Summary	Open a workspace, optionally with an initial file
//	@Tags		workspaces
//	@Accept		json
//	@Produce	json
//	@Param		body	body		CreateWorkspaceRequest	false	"Initial file"
//	@Success	201		{object}	WorkspaceResponse
//	@Failure	400		{object}	errResponse
//	@Failure	429		{object}	errResponse
//	@Router		/workspaces [post]
func (h *Handler) CreateWorkspace(w http.ResponseWriter, r *http.Request) {
	var req CreateWorkspaceRequest
	if r.ContentLength != 0 {
		if !decodeBody(w, r, &req) {
			return
		}
	}
	ws, err := h.store.New(req.InitialFile)
	if err != nil {
		writeError(w, r, "create workspace", err)
		return
	}
	writeJSON(w, http.StatusCreated, workspaceResponse(ws))
}

// GetWorkspace handles GET /api/workspaces/{id}.
//
//	@Summary	Get the tree of a workspace
//	@Tags		workspaces
//	@Produce	json
//	@Success	200	{object}	WorkspaceResponse
//	@Failure	404	{object}	errResponse
//	@Router		/workspaces/{id} [get]
func (h *Handler) GetWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, workspaceResponse(ws))
}

// DeleteWorkspace handles DELETE /api/workspaces/{id}.
//
//	@Summary	Close a workspace and drop its buffers
//	@Tags		workspaces
//	@Success	204	"Workspace closed"
//	@Failure	404	{object}	errResponse
//	@Router		/workspaces/{id} [delete]
func (h *Handler) DeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Remove(chi.URLParam(r, "id")); err != nil {
		writeError(w, r, "delete workspace", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateNode handles POST /api/workspaces/{id}/nodes.
//
//	@Summary	Create a file, or a directory when the name ends with "/"
//	@Tags		nodes
//	@Accept		json
//	@Produce	json
//	@Param		body	body		CreateNodeRequest	true	"Parent and name"
//	@Success	201		{object}	NodeResponse
//	@Failure	400		{object}	errResponse
//	@Failure	404		{object}	errResponse
//	@Failure	409		{object}	errResponse
//	@Router		/workspaces/{id}/nodes [post]
func (h *Handler) CreateNode(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var req CreateNodeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p, kind, err := ws.CreateFromInput(req.Parent, req.Name)
	if err != nil {
		writeError(w, r, "create node", err)
		return
	}
	writeJSON(w, http.StatusCreated, NodeResponse{Path: p, Kind: kind})
}

// DeleteNode handles DELETE /api/workspaces/{id}/nodes/*.
//
//	@Summary	Delete a file, or a directory with everything beneath it
//	@Tags		nodes
//	@Param		confirm	query	bool	false	"Required for directories"
//	@Success	204		"Node deleted"
//	@Failure	404		{object}	errResponse
//	@Failure	428		{object}	errResponse
//	@Router		/workspaces/{id}/nodes/{path} [delete]
func (h *Handler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	path := nodePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	confirm, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	if err := ws.Delete(path, confirm); err != nil {
		writeError(w, r, "delete node", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SelectFile handles GET /api/workspaces/{id}/files/*.
//
//	@Summary	Make a file the active buffer and return its content and mode
//	@Tags		files
//	@Produce	json
//	@Success	200	{object}	workspace.View
//	@Failure	400	{object}	errResponse
//	@Failure	404	{object}	errResponse
//	@Router		/workspaces/{id}/files/{path} [get]
func (h *Handler) SelectFile(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	view, err := ws.Select(nodePath(r))
	if err != nil {
		writeError(w, r, "select file", err)
		return
	}
	w.Header().Set("ETag", `"`+view.Checksum+`"`)
	writeJSON(w, http.StatusOK, view)
}

// WriteFile handles PUT /api/workspaces/{id}/files/*.
//
//	@Summary	Replace the text of a buffer
//	@Tags		files
//	@Accept		json
//	@Produce	json
//	@Param		If-Match	header	string				false	"SHA-256 checksum of the current text"
//	@Param		body		body	WriteFileRequest	true	"New content"
//	@Success	200	{object}	workspace.View
//	@Failure	404	{object}	errResponse
//	@Failure	409	{object}	errResponse
//	@Router		/workspaces/{id}/files/{path} [put]
func (h *Handler) WriteFile(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var req WriteFileRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)
	view, err := ws.Write(nodePath(r), *req.Content, ifMatch)
	if err != nil {
		writeError(w, r, "write file", err)
		return
	}
	w.Header().Set("ETag", `"`+view.Checksum+`"`)
	writeJSON(w, http.StatusOK, view)
}

// Snapshot handles GET /api/workspaces/{id}/snapshot.
//
//	@Summary	Flat list of every file and its content, in tree order
//	@Tags		files
//	@Produce	json
//	@Success	200	{object}	SnapshotResponse
//	@Router		/workspaces/{id}/snapshot [get]
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, SnapshotResponse{Files: ws.Snapshot()})
}
