package service

import (
	"context"
	"fmt"
	"time"

	"github.com/smallbiznis/auldata/internal/observability/logger"
	"github.com/smallbiznis/auldata/internal/observability/tracing"
	reportdomain "github.com/smallbiznis/auldata/internal/report/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log  *zap.Logger
	Repo reportdomain.Repository
}

type Service struct {
	log  *zap.Logger
	repo reportdomain.Repository
}

func NewService(p Params) reportdomain.Writer {
	return &Service{
		log:  p.Log.Named("report.service"),
		repo: p.Repo,
	}
}

func (s *Service) EnsureTable(ctx context.Context) error {
	ctx, span := s.start(ctx, "report.ensure_table")
	defer span.End()

	if err := s.repo.EnsureTable(ctx); err != nil {
		fail(span, err)
		return fmt.Errorf("report: ensure table: %w", err)
	}
	logger.WithContext(ctx, s.log).Info("report.table.ensured",
		zap.String("table", s.repo.Table()),
		zap.String("index", reportdomain.IndexName),
	)
	return nil
}

func (s *Service) InsertRows(ctx context.Context, rows []reportdomain.ReportRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	ctx, span := s.start(ctx, "report.insert_rows")
	defer span.End()
	span.SetAttributes(attribute.Int("report.rows", len(rows)))

	if err := s.repo.InsertRows(ctx, rows); err != nil {
		fail(span, err)
		return 0, fmt.Errorf("report: insert %d rows: %w", len(rows), err)
	}
	logger.WithContext(ctx, s.log).Info("report.rows.written",
		zap.Int("rows", len(rows)),
		zap.String("table", s.repo.Table()),
	)
	return len(rows), nil
}

func (s *Service) Prune(ctx context.Context, now time.Time) (int64, error) {
	ctx, span := s.start(ctx, "report.prune")
	defer span.End()

	cutoff := reportdomain.RetentionCutoff(now)
	span.SetAttributes(attribute.String("report.cutoff", cutoff.Format(time.RFC3339)))

	deleted, err := s.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		fail(span, err)
		return 0, fmt.Errorf("report: prune before %s: %w", cutoff.Format(time.DateTime), err)
	}
	logger.WithContext(ctx, s.log).Info("report.pruned",
		zap.String("table", s.repo.Table()),
		zap.Time("cutoff", cutoff),
		zap.Int64("rows", deleted),
	)
	return deleted, nil
}

func (s *Service) start(ctx context.Context, name string) (context.Context, trace.Span) {
	ctx, span := tracing.Tracer().Start(ctx, name)
	span.SetAttributes(attribute.String("report.table", s.repo.Table()))
	return ctx, span
}

func fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
