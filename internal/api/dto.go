package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/scratchpad/internal/models"
	"github.com/starford/scratchpad/internal/runlog"
	"github.com/starford/scratchpad/internal/workspace"
)

// CreateWorkspaceRequest is the body of POST /api/workspaces.
type CreateWorkspaceRequest struct {
	InitialFile string `json:"initial_file,omitempty" example:"main.go"`
}

// WorkspaceResponse describes an open workspace.
type WorkspaceResponse struct {
	ID     string           `json:"id" validate:"required"`
	Active string           `json:"active"`
	Tree   *workspace.Entry `json:"tree" validate:"required"`
}

// CreateNodeRequest is the body of POST /api/workspaces/{id}/nodes.
// A name ending in "/" creates a directory.
type CreateNodeRequest struct {
	Parent string `json:"parent" example:"src"`
	Name   string `json:"name" example:"main.go" validate:"required"`
}

// Validate implements validation.Validatable.
func (r CreateNodeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 255)),
	)
}

// NodeResponse is returned after a node is created.
type NodeResponse struct {
	Path string         `json:"path" example:"src/main.go"`
	Kind workspace.Kind `json:"kind" example:"file"`
}

// WriteFileRequest is the body of PUT /api/workspaces/{id}/files/*.
type WriteFileRequest struct {
	Content *string `json:"content" validate:"required"`
}

// Validate implements validation.Validatable.
func (r WriteFileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.NotNil),
	)
}

// SnapshotResponse lists every buffer in tree order.
type SnapshotResponse struct {
	Files []models.File `json:"files"`
}

// RunRequest is the body of POST /api/workspaces/{id}/run.
type RunRequest struct {
	Cmd      string   `json:"cmd" example:"go run ." validate:"required"`
	Env      []string `json:"env,omitempty"`
	Language string   `json:"language,omitempty" example:"go"`
	Version  string   `json:"version,omitempty" example:"latest"`
}

// Validate implements validation.Validatable.
func (r RunRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Cmd, validation.Required),
	)
}

// ExecRequest is the body of POST /api/exec and POST /lang/{language}/{version}.
type ExecRequest models.RunRequest

// Validate implements validation.Validatable.
func (r ExecRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Cmd, validation.Required),
		validation.Field(&r.Files, validation.Each(validation.By(validFile))),
	)
}

func validFile(v any) error {
	f, _ := v.(models.File)
	return validation.Validate(f.Name, validation.Required)
}

// RunListResponse wraps run log entries.
type RunListResponse struct {
	Runs []runlog.Entry `json:"runs"`
}
