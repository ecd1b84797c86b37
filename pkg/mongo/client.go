package mongo

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// ClientOptions builds driver options for cfg. Credentials are set through the
// credential struct rather than the URI so they never need escaping.
func ClientOptions(cfg Config) (*options.ClientOptions, error) {
	servers := strings.TrimSpace(cfg.Servers)
	if servers == "" {
		return nil, fmt.Errorf("mongo: servers are required")
	}

	opts := options.Client().ApplyURI("mongodb://" + servers)
	if cfg.ReplicaSet != "" {
		opts.SetReplicaSet(cfg.ReplicaSet)
	}
	if cfg.Username != "" {
		opts.SetAuth(options.Credential{
			AuthMechanism: cfg.AuthMechanism,
			AuthSource:    cfg.AuthSource,
			Username:      cfg.Username,
			Password:      cfg.Password,
		})
	}
	if cfg.ReadPreference != "" {
		mode, err := readpref.ModeFromString(cfg.ReadPreference)
		if err != nil {
			return nil, fmt.Errorf("mongo: read preference %q: %w", cfg.ReadPreference, err)
		}
		rp, err := readpref.New(mode)
		if err != nil {
			return nil, fmt.Errorf("mongo: read preference %q: %w", cfg.ReadPreference, err)
		}
		opts.SetReadPreference(rp)
	}
	if cfg.AppName != "" {
		opts.SetAppName(cfg.AppName)
	}
	if cfg.Timeout > 0 {
		opts.SetTimeout(cfg.Timeout)
	}
	return opts, nil
}

// Session is an open client bound to one collection.
type Session struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// Connect opens a client for cfg. The driver connects lazily; the first
// operation is the first network round trip.
func Connect(cfg Config) (*Session, error) {
	opts, err := ClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: connect %s: %w", cfg.Servers, err)
	}
	return &Session{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

func (s *Session) Collection() Collection {
	return s.collection
}

func (s *Session) Close(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}
