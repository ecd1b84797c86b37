package mongo

import (
	"time"

	"github.com/smallbiznis/auldata/internal/config"
)

// Config is everything needed to reach one replica set and one collection.
type Config struct {
	Servers        string
	ReplicaSet     string
	Username       string
	Password       string
	Database       string
	Collection     string
	AuthMechanism  string
	AuthSource     string
	ReadPreference string
	AppName        string
	Timeout        time.Duration
}

// AuditConfig returns the target for the audit store. The audit store shares
// the usage stores' auth settings.
func AuditConfig(cfg config.Config) Config {
	return fromTarget(cfg, cfg.Audit)
}

// NodeConfig returns the target for one usage node.
func NodeConfig(cfg config.Config, node string) (Config, bool) {
	target, ok := cfg.UsageNode(node)
	if !ok {
		return Config{}, false
	}
	return fromTarget(cfg, target), true
}

func fromTarget(cfg config.Config, target config.MongoConfig) Config {
	return Config{
		Servers:        target.Servers,
		ReplicaSet:     target.ReplicaSet,
		Username:       target.Username,
		Password:       target.Password,
		Database:       target.Database,
		Collection:     target.Collection,
		AuthMechanism:  cfg.MongoAuth.Mechanism,
		AuthSource:     cfg.MongoAuth.Source,
		ReadPreference: cfg.MongoAuth.ReadPreference,
		AppName:        cfg.AppName,
		Timeout:        cfg.QueryTimeout,
	}
}
