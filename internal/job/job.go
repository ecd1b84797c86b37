// Package job runs the daily data-leak overage report end to end.
package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/auldata/internal/audit/domain"
	"github.com/smallbiznis/auldata/internal/clock"
	"github.com/smallbiznis/auldata/internal/jobmetrics"
	"github.com/smallbiznis/auldata/internal/observability/logger"
	"github.com/smallbiznis/auldata/internal/observability/tracing"
	reportdomain "github.com/smallbiznis/auldata/internal/report/domain"
	"github.com/smallbiznis/auldata/internal/runlock"
	"github.com/smallbiznis/auldata/internal/shard"
	usagedomain "github.com/smallbiznis/auldata/internal/usage/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("job: invalid config")

const releaseTimeout = 10 * time.Second

type Params struct {
	fx.In

	Log    *zap.Logger
	Clock  clock.Clock
	GenID  *snowflake.Node
	Config Config

	Audit  auditdomain.Reader
	Usage  usagedomain.Fetcher
	Report reportdomain.Writer

	Metrics *jobmetrics.Metrics `optional:"true"`
	Pusher  jobmetrics.Pusher   `optional:"true"`
	Guard   *runlock.Guard      `optional:"true"`
}

type Job struct {
	log     *zap.Logger
	clock   clock.Clock
	genID   *snowflake.Node
	cfg     Config
	audit   auditdomain.Reader
	usage   usagedomain.Fetcher
	report  reportdomain.Writer
	metrics *jobmetrics.Metrics
	pusher  jobmetrics.Pusher
	guard   *runlock.Guard
}

func New(p Params) (*Job, error) {
	if p.Log == nil || p.Clock == nil || p.GenID == nil || p.Audit == nil || p.Usage == nil || p.Report == nil {
		return nil, ErrInvalidConfig
	}
	return &Job{
		log:     p.Log.Named("job"),
		clock:   p.Clock,
		genID:   p.GenID,
		cfg:     p.Config.withDefaults(),
		audit:   p.Audit,
		usage:   p.Usage,
		report:  p.Report,
		metrics: p.Metrics,
		pusher:  p.Pusher,
		guard:   p.Guard,
	}, nil
}

// Run executes one report run. A run that finds the lock held by another
// process logs and returns nil without touching any store.
func (j *Job) Run(ctx context.Context) error {
	ctx, run := j.newRun(ctx)
	j.logJobStart(ctx, run)

	release, err := j.guard.Acquire(ctx)
	if err != nil {
		if errors.Is(err, runlock.ErrLocked) {
			j.logger(ctx).Warn("job.skipped", zap.String("lock", j.guard.Key()))
			j.finish(ctx, run, jobmetrics.ResultSkipped, nil)
			return nil
		}
		j.finish(ctx, run, jobmetrics.ResultFailure, err)
		return err
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if err := release(releaseCtx); err != nil {
			j.logger(ctx).Warn("job.lock.release_failed", zap.Error(err))
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, j.cfg.RunTimeout)
	defer cancel()

	err = j.execute(runCtx, run)
	result := jobmetrics.ResultSuccess
	if err != nil {
		result = jobmetrics.ResultFailure
	}
	j.finish(ctx, run, result, err)
	return err
}

func (j *Job) execute(ctx context.Context, run *jobRun) error {
	ctx, span := tracing.Tracer().Start(ctx, "job.run",
		trace.WithAttributes(attribute.String("job.run_id", run.runID)),
	)
	defer span.End()

	now := run.startedAt
	auditDate := now.UTC()

	if err := j.report.EnsureTable(ctx); err != nil {
		return fail(span, err)
	}

	window := AuditWindow(now, j.cfg.Location)
	events, err := j.audit.Subscribers(ctx, window)
	if err != nil {
		return fail(span, err)
	}
	run.subscribers = len(events)
	span.SetAttributes(attribute.Int("job.subscribers", len(events)))

	if len(events) == 0 {
		j.logger(ctx).Info("job.audit.empty",
			zap.Time("window_start", window.Start),
			zap.Time("window_end", window.End),
		)
	} else {
		groups, err := shard.Partition(events)
		if err != nil {
			return fail(span, err)
		}
		for _, node := range shard.Nodes {
			if err := j.processNode(ctx, run, node, groups[node], auditDate); err != nil {
				return fail(span, err)
			}
		}
	}

	j.prune(ctx, run, now)
	return nil
}

// processNode fetches and writes one node's rows. Rows already written for
// earlier nodes stay in place when a later node fails.
func (j *Job) processNode(ctx context.Context, run *jobRun, node shard.Node, events []auditdomain.SubscriberEvent, auditDate time.Time) error {
	ctx = logger.ContextWithNode(ctx, string(node))
	log := j.logger(ctx)

	j.metrics.SetSubscribers(string(node), len(events))
	if len(events) == 0 {
		log.Debug("job.shard.skipped")
		return nil
	}

	records, err := j.usage.Fetch(ctx, node, events)
	if err != nil {
		log.Error("job.shard.failed", zap.String("step", "fetch"), zap.Error(err))
		return fmt.Errorf("job: node %s: %w", node, err)
	}
	j.metrics.SetUsageRecords(string(node), len(records))

	written := 0
	if rows := reportdomain.BuildRows(records, auditDate); len(rows) > 0 {
		written, err = j.report.InsertRows(ctx, rows)
		if err != nil {
			log.Error("job.shard.failed", zap.String("step", "insert"), zap.Error(err))
			return fmt.Errorf("job: node %s: %w", node, err)
		}
	}
	run.AddWritten(written)
	j.metrics.SetRowsWritten(string(node), written)

	log.Info("job.shard.processed",
		zap.Int("subscribers", len(events)),
		zap.Int("usage_records", len(records)),
		zap.Int("rows_written", written),
	)
	return nil
}

// prune failures leave stale rows behind; the run still succeeds.
func (j *Job) prune(ctx context.Context, run *jobRun, now time.Time) {
	pruned, err := j.report.Prune(ctx, now)
	if err != nil {
		run.IncError()
		j.metrics.IncPruneFailure()
		j.logger(ctx).Error("job.prune.failed", zap.Error(err))
		return
	}
	run.pruned = pruned
	j.metrics.SetRowsPruned(pruned)
}

func (j *Job) finish(ctx context.Context, run *jobRun, result string, err error) {
	j.logJobFinish(ctx, run, result, err)
	j.metrics.ObserveRun(result, run.startedAt, j.clock.Now().Sub(run.startedAt))
	j.push(ctx)
}

func (j *Job) push(ctx context.Context) {
	if j.pusher == nil || j.metrics == nil {
		return
	}
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := j.pusher.Push(pushCtx, j.metrics.Registry()); err != nil {
		j.logger(ctx).Warn("job.metrics.push_failed", zap.Error(err))
	}
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
