// Package apperr holds the sentinel errors shared across the workspace,
// runner and API layers.
package apperr

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrAlreadyExists        = errors.New("already exists")
	ErrInvalidName          = errors.New("invalid name")
	ErrNotADirectory        = errors.New("not a directory")
	ErrNotAFile             = errors.New("not a file")
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrBusy                 = errors.New("run already in progress")
	ErrLimitReached         = errors.New("limit reached")
	ErrInvalidRequest       = errors.New("invalid request")
)
