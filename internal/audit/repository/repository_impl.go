package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	auditdomain "github.com/smallbiznis/auldata/internal/audit/domain"
	"github.com/smallbiznis/auldata/internal/config"
	mongostore "github.com/smallbiznis/auldata/pkg/mongo"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/fx"
)

type repo struct {
	coll mongostore.Collection
}

func New(coll mongostore.Collection) auditdomain.Repository {
	return &repo{coll: coll}
}

// Provide connects to the audit store and disconnects on shutdown.
func Provide(lc fx.Lifecycle, cfg config.Config) (auditdomain.Repository, error) {
	session, err := mongostore.Connect(mongostore.AuditConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("audit: %w", err)
	}
	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: session.Close,
		})
	}
	return New(session.Collection()), nil
}

type eventDocument struct {
	BAN           bson.RawValue `bson:"ban"`
	SubscriberID  bson.RawValue `bson:"subscriberId"`
	EffectiveDate bson.RawValue `bson:"effectiveDate"`
	ExpiryDate    bson.RawValue `bson:"expiryDate"`
}

func (r *repo) FindSubscribers(ctx context.Context, offerName string, window auditdomain.Window) ([]auditdomain.SubscriberEvent, error) {
	docs, err := mongostore.Aggregate[eventDocument](ctx, r.coll, Pipeline(offerName, window))
	if err != nil {
		return nil, err
	}

	events := make([]auditdomain.SubscriberEvent, 0, len(docs))
	for i, doc := range docs {
		event, err := decodeEvent(doc)
		if err != nil {
			return nil, fmt.Errorf("%w: result %d: %v", auditdomain.ErrInvalidEvent, i, err)
		}
		events = append(events, event)
	}
	return events, nil
}

func decodeEvent(doc eventDocument) (auditdomain.SubscriberEvent, error) {
	ban, err := mongostore.StringValue(doc.BAN)
	if err != nil {
		return auditdomain.SubscriberEvent{}, fmt.Errorf("ban: %w", err)
	}
	subscriberID, err := subscriberIDValue(doc.SubscriberID)
	if err != nil {
		return auditdomain.SubscriberEvent{}, fmt.Errorf("subscriberId: %w", err)
	}
	if subscriberID == "" {
		return auditdomain.SubscriberEvent{}, errors.New("subscriberId: missing")
	}
	effective, err := requiredTime(doc.EffectiveDate)
	if err != nil {
		return auditdomain.SubscriberEvent{}, fmt.Errorf("effectiveDate: %w", err)
	}
	expiry, err := requiredTime(doc.ExpiryDate)
	if err != nil {
		return auditdomain.SubscriberEvent{}, fmt.Errorf("expiryDate: %w", err)
	}
	return auditdomain.SubscriberEvent{
		BAN:           ban,
		SubscriberID:  subscriberID,
		EffectiveDate: effective,
		ExpiryDate:    expiry,
	}, nil
}

// requiredTime rejects null and absent dates; a zero window would match no
// usage and drop the subscriber without a trace.
func requiredTime(v bson.RawValue) (time.Time, error) {
	t, err := mongostore.TimeValue(v)
	if err != nil {
		return time.Time{}, err
	}
	if t.IsZero() {
		return time.Time{}, errors.New("missing")
	}
	return t, nil
}

// subscriberIDValue accepts plain ids, the stringified {'$eq': x} form and the
// same expression stored as an embedded document.
func subscriberIDValue(v bson.RawValue) (string, error) {
	if v.Type == bson.TypeEmbeddedDocument {
		eq, err := v.Document().LookupErr("$eq")
		if err != nil {
			return "", fmt.Errorf("unsupported expression %s", v.String())
		}
		return mongostore.StringValue(eq)
	}
	s, err := mongostore.StringValue(v)
	if err != nil {
		return "", err
	}
	return auditdomain.NormalizeSubscriberID(s), nil
}

// Pipeline selects every subscription leaf of an ADD event for offerName whose
// audit document changed inside window. The first $match is a coarse filter on
// the unflattened document; the second repeats the offer check per detail.
func Pipeline(offerName string, window auditdomain.Window) bson.A {
	offerMatch := bson.D{{Key: "$elemMatch", Value: bson.D{
		{Key: "requestpayload.subscriptions", Value: bson.D{
			{Key: "$elemMatch", Value: bson.D{{Key: "offerName", Value: offerName}}},
		}},
	}}}

	return bson.A{
		bson.D{{Key: "$match", Value: bson.D{
			{Key: "$and", Value: bson.A{
				bson.D{{Key: "details", Value: bson.D{
					{Key: "$elemMatch", Value: bson.D{
						{Key: "state", Value: "ADD"},
						{Key: "data.payload.payloads", Value: offerMatch},
					}},
				}}},
				bson.D{{Key: "lastModifiedDate", Value: bson.D{
					{Key: "$gte", Value: window.Start},
					{Key: "$lte", Value: window.End},
				}}},
			}},
		}}},
		bson.D{{Key: "$unwind", Value: bson.D{{Key: "path", Value: "$details"}}}},
		bson.D{{Key: "$match", Value: bson.D{
			{Key: "details.state", Value: "ADD"},
			{Key: "details.data.payload.payloads", Value: offerMatch},
		}}},
		bson.D{{Key: "$unwind", Value: bson.D{{Key: "path", Value: "$details.data.payload.payloads"}}}},
		bson.D{{Key: "$unwind", Value: bson.D{{Key: "path", Value: "$details.data.payload.payloads.requestpayload.subscriptions"}}}},
		bson.D{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "ban", Value: 1},
			{Key: "subscriberId", Value: "$details.data.payload.subscriberId"},
			{Key: "effectiveDate", Value: "$details.data.payload.payloads.requestpayload.subscriptions.effectiveDate"},
			{Key: "expiryDate", Value: "$details.data.payload.payloads.requestpayload.subscriptions.expiryDate"},
		}}},
	}
}
