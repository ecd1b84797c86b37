package job

import (
	"context"
	"time"

	"github.com/smallbiznis/auldata/internal/observability/logger"
	"go.uber.org/zap"
)

type jobRun struct {
	runID       string
	startedAt   time.Time
	subscribers int
	written     int
	pruned      int64
	errorCount  int
}

func (r *jobRun) AddWritten(count int) {
	if r == nil || count <= 0 {
		return
	}
	r.written += count
}

func (r *jobRun) IncError() {
	if r == nil {
		return
	}
	r.errorCount++
}

func (j *Job) newRun(ctx context.Context) (context.Context, *jobRun) {
	run := &jobRun{
		runID:     j.genID.Generate().String(),
		startedAt: j.clock.Now(),
	}
	return logger.ContextWithRunID(ctx, run.runID), run
}

func (j *Job) logger(ctx context.Context) *zap.Logger {
	return logger.WithContext(ctx, j.log)
}

func (j *Job) logJobStart(ctx context.Context, run *jobRun) {
	j.logger(ctx).Info("job.start",
		zap.String("job", jobName),
		zap.Time("started_at", run.startedAt),
		zap.Duration("run_timeout", j.cfg.RunTimeout),
	)
}

func (j *Job) logJobFinish(ctx context.Context, run *jobRun, result string, err error) {
	fields := []zap.Field{
		zap.String("job", jobName),
		zap.String("result", result),
		zap.Int64("duration_ms", j.clock.Now().Sub(run.startedAt).Milliseconds()),
		zap.Int("subscribers", run.subscribers),
		zap.Int("rows_written", run.written),
		zap.Int64("rows_pruned", run.pruned),
		zap.Int("error_count", run.errorCount),
	}
	log := j.logger(ctx)
	if err != nil {
		log.Error("job.finish", append(fields, zap.Error(err))...)
		return
	}
	if run.errorCount > 0 {
		log.Warn("job.finish", fields...)
		return
	}
	log.Info("job.finish", fields...)
}
