package executor

import (
	"context"

	"github.com/pulseplan/pulseplan/internal/models"
)

// Executor performs the actual platform action for a slot's activity. The
// call may be long-running; implementations must honor ctx cancellation and
// report success or failure unambiguously.
type Executor interface {
	Dispatch(ctx context.Context, kind models.ActivityKind, config models.ActivityConfig) (*models.ActivityResult, error)
}
