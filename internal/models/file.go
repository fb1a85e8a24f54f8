// Package models defines the wire types exchanged between the editor,
// the run dispatcher and the execution endpoint.
package models

import "time"

// File is one working-directory file as posted to the execution endpoint.
// Name is the path relative to the working directory.
type File struct {
	Name string `json:"name"`
	Data string `json:"data"`
}

// RunRequest is the body of a run: the command line plus a flat list of files.
type RunRequest struct {
	Cmd   string   `json:"cmd"`
	Env   []string `json:"env,omitempty"`
	Files []File   `json:"files"`
}

// FileMetadata is a lightweight representation returned by storage listings.
type FileMetadata struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
