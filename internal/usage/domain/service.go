package domain

import (
	"context"
	"errors"

	auditdomain "github.com/smallbiznis/auldata/internal/audit/domain"
	"github.com/smallbiznis/auldata/internal/shard"
)

// Store is an open connection to one usage node.
type Store interface {
	FindOverage(ctx context.Context, lookup Lookup) ([]UsageRecord, error)
	Close(ctx context.Context) error
}

// Dialer opens a Store for a node. Opening is deferred until a node actually
// has subscribers to look up.
type Dialer interface {
	Dial(ctx context.Context, node shard.Node) (Store, error)
}

// Fetcher collects the overage of every subscriber assigned to a node.
type Fetcher interface {
	Fetch(ctx context.Context, node shard.Node, events []auditdomain.SubscriberEvent) ([]UsageRecord, error)
}

var (
	ErrUnknownNode   = errors.New("unknown_usage_node")
	ErrInvalidRecord = errors.New("invalid_usage_record")
)
