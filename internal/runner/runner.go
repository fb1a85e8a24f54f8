// Package runner dispatches a workspace's files and a command line to an
// execution endpoint and streams the textual result back.
package runner

import (
	"context"
	"io"

	"github.com/starford/scratchpad/internal/models"
)

// Status is the distinguished outcome of a run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Messages written to the output when a run does not complete.
const (
	MsgFailed    = "An error occurred."
	MsgCancelled = "Run request was cancelled."
)

// Outcome summarizes a finished run. Output itself has already been
// streamed to the writer passed to Run.
type Outcome struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Bytes   int64  `json:"bytes"`
	Err     error  `json:"-"`
}

// Runner executes a run request and streams its output into out.
type Runner interface {
	Run(ctx context.Context, req models.RunRequest, out io.Writer) Outcome
}

// finish writes msg to out and builds the outcome.
func finish(out io.Writer, status Status, msg string, n int64, err error) Outcome {
	if msg != "" {
		_, _ = io.WriteString(out, msg)
	}
	return Outcome{Status: status, Message: msg, Bytes: n, Err: err}
}
