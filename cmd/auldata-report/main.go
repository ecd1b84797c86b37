package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/smallbiznis/auldata/internal/audit"
	"github.com/smallbiznis/auldata/internal/clock"
	"github.com/smallbiznis/auldata/internal/config"
	"github.com/smallbiznis/auldata/internal/job"
	"github.com/smallbiznis/auldata/internal/jobmetrics"
	"github.com/smallbiznis/auldata/internal/observability"
	"github.com/smallbiznis/auldata/internal/report"
	"github.com/smallbiznis/auldata/internal/runlock"
	"github.com/smallbiznis/auldata/internal/usage"
	"github.com/smallbiznis/auldata/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

const (
	startTimeout = 2 * time.Minute
	stopTimeout  = 30 * time.Second
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "auldata-report",
		Short:         "Write yesterday's data-leak overage into the reporting table",
		Version:       readVersionFromEnv(),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd.Context())
		},
	}
}

func newApp(populate ...interface{}) *fx.App {
	return fx.New(
		config.Module,
		observability.Module,
		clock.Module,
		db.Module,
		audit.Module,
		usage.Module,
		report.Module,
		jobmetrics.Module,
		runlock.Module,
		job.Module,
		fx.Populate(populate...),
	)
}

func runReport(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var reportJob *job.Job
	app := newApp(&reportJob)
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	runErr := reportJob.Run(ctx)

	stopCtx, stopCancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil && runErr == nil {
		return fmt.Errorf("stop: %w", err)
	}
	return runErr
}

func readVersionFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("APP_VERSION")); v != "" {
		return v
	}
	return "dev"
}
