package system

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pulseplan/pulseplan/internal/agent"
	"github.com/pulseplan/pulseplan/internal/cli"
	"github.com/pulseplan/pulseplan/internal/executor"
	"github.com/pulseplan/pulseplan/internal/logger"
)

type RunCmd struct {
	DryRun bool `help:"Run the control loop without dispatching to the automation daemon."`
}

func (c *RunCmd) Run(ctx *cli.Context) error {
	lockPath, err := agent.AcquireLock()
	if err != nil {
		return err
	}
	defer agent.ReleaseLock(lockPath)

	var exec executor.Executor
	if c.DryRun {
		exec = executor.NewDryRunExecutor()
		fmt.Println("Running in dry-run mode; no activities will be dispatched.")
	} else {
		exec = executor.NewWebhookExecutor()
	}

	runner := agent.NewRunner(ctx.Store, ctx.Scheduler, ctx.Lifecycle, exec)

	runCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fmt.Println("pulseplan runner started. Press Ctrl+C to stop.")
	if err := runner.Run(runCtx); err != nil {
		logger.Error("Runner exited with error", "error", err)
		return err
	}
	return nil
}
