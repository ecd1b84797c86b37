package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

func TestClientOptions(t *testing.T) {
	opts, err := ClientOptions(Config{
		Servers:        "a1:27017,a2:27017",
		ReplicaSet:     "rs0",
		Username:       "arc",
		Password:       "p@ss/word",
		AuthMechanism:  "SCRAM-SHA-1",
		AuthSource:     "admin",
		ReadPreference: "secondary",
		Timeout:        30 * time.Second,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"a1:27017", "a2:27017"}, opts.Hosts)
	require.NotNil(t, opts.ReplicaSet)
	assert.Equal(t, "rs0", *opts.ReplicaSet)
	require.NotNil(t, opts.Auth)
	assert.Equal(t, "p@ss/word", opts.Auth.Password)
	assert.Equal(t, "admin", opts.Auth.AuthSource)
	assert.Equal(t, "SCRAM-SHA-1", opts.Auth.AuthMechanism)
	require.NotNil(t, opts.ReadPreference)
	assert.Equal(t, readpref.SecondaryMode, opts.ReadPreference.Mode())
	require.NotNil(t, opts.Timeout)
	assert.Equal(t, 30*time.Second, *opts.Timeout)
}

func TestClientOptionsRejectsBadInput(t *testing.T) {
	_, err := ClientOptions(Config{})
	assert.Error(t, err)

	_, err = ClientOptions(Config{Servers: "a1", ReadPreference: "sometimes"})
	assert.Error(t, err)
}

type fakeCollection struct {
	docs     []any
	err      error
	findOpts options.FindOptions
	filter   any
}

func (f *fakeCollection) Aggregate(_ context.Context, pipeline any, _ ...options.Lister[options.AggregateOptions]) (*mongo.Cursor, error) {
	f.filter = pipeline
	if f.err != nil {
		return nil, f.err
	}
	return mongo.NewCursorFromDocuments(f.docs, nil, nil)
}

func (f *fakeCollection) Find(_ context.Context, filter any, opts ...options.Lister[options.FindOptions]) (*mongo.Cursor, error) {
	f.filter = filter
	for _, lister := range opts {
		for _, apply := range lister.List() {
			if err := apply(&f.findOpts); err != nil {
				return nil, err
			}
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return mongo.NewCursorFromDocuments(f.docs, nil, nil)
}

type item struct {
	Name string `bson:"name"`
}

func TestFindAppliesQueryOptions(t *testing.T) {
	coll := &fakeCollection{docs: []any{bson.D{{Key: "name", Value: "a"}}, bson.D{{Key: "name", Value: "b"}}}}

	out, err := Find[item](context.Background(), coll, Query{
		Filter:     bson.D{{Key: "x", Value: 1}},
		Projection: bson.D{{Key: "_id", Value: 0}},
		SortField:  DefaultSortField,
		Descending: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []item{{Name: "a"}, {Name: "b"}}, out)

	assert.Equal(t, bson.D{{Key: "eventTime", Value: -1}}, coll.findOpts.Sort)
	assert.Equal(t, bson.D{{Key: "_id", Value: 0}}, coll.findOpts.Projection)
	assert.Nil(t, coll.findOpts.Limit, "zero limit is unlimited")
}

func TestFindWithLimit(t *testing.T) {
	coll := &fakeCollection{}
	out, err := Find[item](context.Background(), coll, Query{Filter: bson.D{}, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NotNil(t, out)
	require.NotNil(t, coll.findOpts.Limit)
	assert.Equal(t, int64(10), *coll.findOpts.Limit)
	assert.Nil(t, coll.findOpts.Sort)
}

func TestAggregatePropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	_, err := Aggregate[item](context.Background(), &fakeCollection{err: boom}, bson.A{})
	assert.ErrorIs(t, err, boom)
}

func lookup(t *testing.T, value any) bson.RawValue {
	t.Helper()
	raw, err := bson.Marshal(bson.D{{Key: "v", Value: value}})
	require.NoError(t, err)
	return bson.Raw(raw).Lookup("v")
}

func TestStringValue(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{"12345", "12345"},
		{int32(3), "3"},
		{int64(9007199254740993), "9007199254740993"},
		{float64(42), "42"},
		{1.5, "1.5"},
		{nil, ""},
	}
	for _, tc := range cases {
		got, err := StringValue(lookup(t, tc.in))
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}

	_, err := StringValue(lookup(t, bson.A{1}))
	assert.Error(t, err)
}

func TestInt64Value(t *testing.T) {
	n, err := Int64Value(lookup(t, int32(2048)))
	require.NoError(t, err)
	assert.Equal(t, int64(2048), n)

	n, err = Int64Value(lookup(t, float64(512)))
	require.NoError(t, err)
	assert.Equal(t, int64(512), n)

	_, err = Int64Value(lookup(t, 0.5))
	assert.Error(t, err)

	_, err = Int64Value(lookup(t, "abc"))
	assert.Error(t, err)
}

func TestTimeValue(t *testing.T) {
	want := time.Date(2022, 12, 11, 9, 15, 30, 0, time.UTC)

	got, err := TimeValue(lookup(t, bson.NewDateTimeFromTime(want)))
	require.NoError(t, err)
	assert.True(t, want.Equal(got))

	got, err = TimeValue(lookup(t, "2022-12-11T09:15:30Z"))
	require.NoError(t, err)
	assert.True(t, want.Equal(got))

	_, err = TimeValue(lookup(t, "yesterday"))
	assert.Error(t, err)
}
