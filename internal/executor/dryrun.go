package executor

import (
	"context"
	"fmt"

	"github.com/pulseplan/pulseplan/internal/logger"
	"github.com/pulseplan/pulseplan/internal/models"
)

// DryRunExecutor simulates dispatch without touching any platform. Used by
// `pulseplan run --dry-run` to exercise the full control loop safely.
type DryRunExecutor struct{}

func NewDryRunExecutor() *DryRunExecutor {
	return &DryRunExecutor{}
}

func (e *DryRunExecutor) Dispatch(ctx context.Context, kind models.ActivityKind, config models.ActivityConfig) (*models.ActivityResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	logger.Info("Dry-run dispatch", "kind", kind, "content_type", config.ContentType)
	return &models.ActivityResult{
		Success: true,
		Detail:  fmt.Sprintf("dry-run: %s", kind),
	}, nil
}
