package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	auditdomain "github.com/smallbiznis/auldata/internal/audit/domain"
	"github.com/smallbiznis/auldata/internal/config"
	"github.com/smallbiznis/auldata/internal/observability/logger"
	"github.com/smallbiznis/auldata/internal/observability/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
	Repo   auditdomain.Repository
}

type Service struct {
	offerName    string
	queryTimeout time.Duration
	log          *zap.Logger
	repo         auditdomain.Repository
}

func NewService(p Params) auditdomain.Reader {
	return &Service{
		offerName:    strings.TrimSpace(p.Config.OfferName),
		queryTimeout: p.Config.QueryTimeout,
		log:          p.Log.Named("audit.service"),
		repo:         p.Repo,
	}
}

// Subscribers returns every ADD subscription for the configured offer inside
// window. Store errors are returned, never converted into an empty result.
func (s *Service) Subscribers(ctx context.Context, window auditdomain.Window) ([]auditdomain.SubscriberEvent, error) {
	if s.offerName == "" {
		return nil, auditdomain.ErrMissingOfferName
	}
	if window.Start.IsZero() || window.End.IsZero() || window.End.Before(window.Start) {
		return nil, auditdomain.ErrInvalidWindow
	}

	ctx, span := tracing.Tracer().Start(ctx, "audit.subscribers")
	defer span.End()
	span.SetAttributes(
		attribute.String("audit.offer_name", s.offerName),
		attribute.String("audit.window_start", window.Start.Format(time.RFC3339)),
		attribute.String("audit.window_end", window.End.Format(time.RFC3339)),
	)

	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}

	log := logger.WithContext(ctx, s.log)
	log.Debug("audit.query.start",
		zap.Time("window_start", window.Start),
		zap.Time("window_end", window.End),
		zap.String("offer_name", s.offerName),
	)

	events, err := s.repo.FindSubscribers(ctx, s.offerName, window)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "audit query failed")
		return nil, fmt.Errorf("audit: find subscribers: %w", err)
	}

	span.SetAttributes(attribute.Int("audit.subscribers", len(events)))
	log.Info("audit.subscribers.found", zap.Int("count", len(events)))
	return events, nil
}
