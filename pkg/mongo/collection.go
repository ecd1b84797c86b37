package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Collection is the subset of *mongo.Collection the report job reads through.
type Collection interface {
	Aggregate(ctx context.Context, pipeline any, opts ...options.Lister[options.AggregateOptions]) (*mongo.Cursor, error)
	Find(ctx context.Context, filter any, opts ...options.Lister[options.FindOptions]) (*mongo.Cursor, error)
}

var _ Collection = (*mongo.Collection)(nil)

// Query describes a filter+projection find. Limit 0 means unlimited.
type Query struct {
	Filter     any
	Projection any
	SortField  string
	Descending bool
	Limit      int64
}

// DefaultSortField orders usage documents newest first.
const DefaultSortField = "eventTime"

func (q Query) options() *options.FindOptionsBuilder {
	opts := options.Find()
	if q.Projection != nil {
		opts.SetProjection(q.Projection)
	}
	if q.SortField != "" {
		direction := 1
		if q.Descending {
			direction = -1
		}
		opts.SetSort(bson.D{{Key: q.SortField, Value: direction}})
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	return opts
}

// Find runs q and decodes every document into a new T.
func Find[T any](ctx context.Context, coll Collection, q Query) ([]T, error) {
	cursor, err := coll.Find(ctx, q.Filter, q.options())
	if err != nil {
		return nil, err
	}
	return drain[T](ctx, cursor)
}

// Aggregate runs pipeline and decodes every result into a new T.
func Aggregate[T any](ctx context.Context, coll Collection, pipeline any) ([]T, error) {
	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	return drain[T](ctx, cursor)
}

func drain[T any](ctx context.Context, cursor *mongo.Cursor) ([]T, error) {
	defer cursor.Close(ctx)

	out := []T{}
	for cursor.Next(ctx) {
		var item T
		if err := cursor.Decode(&item); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
