package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/smallbiznis/auldata/internal/config"
	"github.com/smallbiznis/auldata/internal/shard"
	usagedomain "github.com/smallbiznis/auldata/internal/usage/domain"
	mongostore "github.com/smallbiznis/auldata/pkg/mongo"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type store struct {
	coll  mongostore.Collection
	close func(context.Context) error
}

// NewStore wraps a usage collection. closeFn may be nil.
func NewStore(coll mongostore.Collection, closeFn func(context.Context) error) usagedomain.Store {
	return &store{coll: coll, close: closeFn}
}

func (s *store) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

type dialer struct {
	cfg config.Config
}

func ProvideDialer(cfg config.Config) usagedomain.Dialer {
	return &dialer{cfg: cfg}
}

func (d *dialer) Dial(_ context.Context, node shard.Node) (usagedomain.Store, error) {
	target, ok := mongostore.NodeConfig(d.cfg, string(node))
	if !ok {
		return nil, fmt.Errorf("%w: %s", usagedomain.ErrUnknownNode, node)
	}
	session, err := mongostore.Connect(target)
	if err != nil {
		return nil, err
	}
	return NewStore(session.Collection(), session.Close), nil
}

type usageDocument struct {
	ExtSubID bson.RawValue `bson:"extSubId"`
	MDN      bson.RawValue `bson:"MDN"`
	BAN      bson.RawValue `bson:"BAN"`
	Start    bson.RawValue `bson:"start"`
	End      bson.RawValue `bson:"end"`
	BytesIn  bson.RawValue `bson:"bytesIn"`
	BytesOut bson.RawValue `bson:"bytesOut"`
}

func (s *store) FindOverage(ctx context.Context, lookup usagedomain.Lookup) ([]usagedomain.UsageRecord, error) {
	docs, err := mongostore.Find[usageDocument](ctx, s.coll, mongostore.Query{
		Filter:     OverageFilter(lookup),
		Projection: Projection(),
		SortField:  mongostore.DefaultSortField,
		Descending: true,
	})
	if err != nil {
		return nil, err
	}

	records := make([]usagedomain.UsageRecord, 0, len(docs))
	for i, doc := range docs {
		record, err := decodeRecord(doc)
		if err != nil {
			return nil, fmt.Errorf("%w: subscriber %s result %d: %v", usagedomain.ErrInvalidRecord, lookup.SubscriberID, i, err)
		}
		records = append(records, record)
	}
	return records, nil
}

func decodeRecord(doc usageDocument) (usagedomain.UsageRecord, error) {
	var (
		record usagedomain.UsageRecord
		err    error
	)
	if record.ExtSubID, err = mongostore.StringValue(doc.ExtSubID); err != nil {
		return record, fmt.Errorf("extSubId: %w", err)
	}
	if record.MDN, err = mongostore.StringValue(doc.MDN); err != nil {
		return record, fmt.Errorf("MDN: %w", err)
	}
	if record.BAN, err = mongostore.StringValue(doc.BAN); err != nil {
		return record, fmt.Errorf("BAN: %w", err)
	}
	if record.Start, err = mongostore.TimeValue(doc.Start); err != nil {
		return record, fmt.Errorf("start: %w", err)
	}
	if record.End, err = mongostore.TimeValue(doc.End); err != nil {
		return record, fmt.Errorf("end: %w", err)
	}
	if record.BytesIn, err = mongostore.Int64Value(doc.BytesIn); err != nil {
		return record, fmt.Errorf("bytesIn: %w", err)
	}
	if record.BytesOut, err = mongostore.Int64Value(doc.BytesOut); err != nil {
		return record, fmt.Errorf("bytesOut: %w", err)
	}
	return record, nil
}

// OverageFilter matches OVER usage of one subscriber ending inside the lookup
// window. The byte conditions share one $or branch, so both must be positive.
func OverageFilter(lookup usagedomain.Lookup) bson.D {
	return bson.D{{Key: "$and", Value: bson.A{
		bson.D{{Key: "end", Value: bson.D{
			{Key: "$gte", Value: lookup.From},
			{Key: "$lte", Value: lookup.To},
		}}},
		bson.D{{Key: "extSubId", Value: SubscriberIDMatch(lookup.SubscriberID)}},
		bson.D{{Key: "usageType", Value: usagedomain.UsageType}},
		bson.D{{Key: "$or", Value: bson.A{
			bson.D{
				{Key: "bytesIn", Value: bson.D{{Key: "$gt", Value: 0}}},
				{Key: "bytesOut", Value: bson.D{{Key: "$gt", Value: 0}}},
			},
		}}},
	}}}
}

// SubscriberIDMatch matches extSubId stored either as text or as a number.
// Equality in the store is type-strict, and audit and usage nodes do not agree
// on the type. Only canonical decimals get the numeric alternative, so "06"
// never matches subscriber 6.
func SubscriberIDMatch(id string) any {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || strconv.FormatInt(n, 10) != id {
		return id
	}
	return bson.D{{Key: "$in", Value: bson.A{id, n}}}
}

func Projection() bson.D {
	return bson.D{
		{Key: "_id", Value: 0},
		{Key: "extSubId", Value: 1},
		{Key: "MDN", Value: 1},
		{Key: "BAN", Value: 1},
		{Key: "start", Value: 1},
		{Key: "end", Value: 1},
		{Key: "bytesIn", Value: 1},
		{Key: "bytesOut", Value: 1},
	}
}
