package service

import (
	"context"
	"fmt"
	"time"

	auditdomain "github.com/smallbiznis/auldata/internal/audit/domain"
	"github.com/smallbiznis/auldata/internal/observability/logger"
	"github.com/smallbiznis/auldata/internal/observability/tracing"
	"github.com/smallbiznis/auldata/internal/shard"
	usagedomain "github.com/smallbiznis/auldata/internal/usage/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log    *zap.Logger
	Dialer usagedomain.Dialer
	Config Config `optional:"true"`
}

type Service struct {
	log    *zap.Logger
	dialer usagedomain.Dialer
	cfg    Config
}

func NewService(p Params) usagedomain.Fetcher {
	return &Service{
		log:    p.Log.Named("usage.service"),
		dialer: p.Dialer,
		cfg:    p.Config.withDefaults(),
	}
}

// Fetch looks up every event's overage on node and concatenates the results in
// event order. An empty event list never opens a connection. The first failed
// lookup aborts the node.
func (s *Service) Fetch(ctx context.Context, node shard.Node, events []auditdomain.SubscriberEvent) ([]usagedomain.UsageRecord, error) {
	if len(events) == 0 {
		return nil, nil
	}

	ctx = logger.ContextWithNode(ctx, string(node))
	ctx, span := tracing.Tracer().Start(ctx, "usage.fetch")
	defer span.End()
	span.SetAttributes(
		attribute.String("usage.node", string(node)),
		attribute.Int("usage.subscribers", len(events)),
	)

	log := logger.WithContext(ctx, s.log)

	store, err := s.dialer.Dial(ctx, node)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dial failed")
		return nil, fmt.Errorf("usage: dial node %s: %w", node, err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.Warn("usage.store.close_failed", zap.Error(err))
		}
	}()

	var records []usagedomain.UsageRecord
	for _, event := range events {
		lookup := s.lookupFor(event)

		found, err := s.findOne(ctx, store, lookup)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "usage query failed")
			return nil, fmt.Errorf("usage: node %s subscriber %s: %w", node, lookup.SubscriberID, err)
		}
		log.Debug("usage.subscriber.fetched",
			zap.String("subscriber_id", lookup.SubscriberID),
			zap.Time("from", lookup.From),
			zap.Time("to", lookup.To),
			zap.Int("records", len(found)),
		)
		records = append(records, found...)
	}

	span.SetAttributes(attribute.Int("usage.records", len(records)))
	log.Info("usage.node.fetched",
		zap.Int("subscribers", len(events)),
		zap.Int("records", len(records)),
	)
	return records, nil
}

func (s *Service) findOne(ctx context.Context, store usagedomain.Store, lookup usagedomain.Lookup) ([]usagedomain.UsageRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()
	return store.FindOverage(ctx, lookup)
}

// lookupFor expresses the subscription window in US Eastern time. The instant
// is unchanged; DST is resolved per date by the zone database.
func (s *Service) lookupFor(event auditdomain.SubscriberEvent) usagedomain.Lookup {
	return usagedomain.Lookup{
		SubscriberID: event.SubscriberID,
		From:         event.EffectiveDate.In(s.cfg.Location),
		To:           event.ExpiryDate.In(s.cfg.Location),
	}
}
