package runner

import (
	"context"
	"errors"
	"io"

	"github.com/starford/scratchpad/internal/apperr"
	"github.com/starford/scratchpad/internal/executor"
	"github.com/starford/scratchpad/internal/models"
)

// Local runs requests in-process through an executor instead of posting
// them over HTTP.
type Local struct {
	exec *executor.Executor
	meta executor.Meta
}

// NewLocal wraps ex. meta is attached to every run.
func NewLocal(ex *executor.Executor, meta executor.Meta) *Local {
	return &Local{exec: ex, meta: meta}
}

// Run implements Runner.
func (l *Local) Run(ctx context.Context, req models.RunRequest, out io.Writer) Outcome {
	res, err := l.exec.Execute(ctx, req, l.meta, out)
	var n int64
	if res != nil {
		n = res.Bytes
	}
	switch {
	case err == nil:
		return Outcome{Status: StatusCompleted, Bytes: n}
	case errors.Is(err, context.Canceled) || ctx.Err() != nil:
		return finish(out, StatusCancelled, MsgCancelled, n, err)
	case errors.Is(err, apperr.ErrInvalidRequest):
		return finish(out, StatusFailed, err.Error(), n, err)
	default:
		return finish(out, StatusFailed, MsgFailed, n, err)
	}
}
