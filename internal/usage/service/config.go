package service

import (
	"time"

	"github.com/smallbiznis/auldata/internal/config"
)

// EasternTimezone is the zone usage windows are expressed in.
const EasternTimezone = "America/New_York"

// Config controls per-node usage lookups.
type Config struct {
	Location     *time.Location
	QueryTimeout time.Duration
}

func DefaultConfig() Config {
	loc, err := time.LoadLocation(EasternTimezone)
	if err != nil {
		// tzdata is embedded by the config package; this only trips if that import goes away.
		panic(err)
	}
	return Config{
		Location:     loc,
		QueryTimeout: 2 * time.Minute,
	}
}

func ConfigFrom(cfg config.Config) Config {
	return Config{QueryTimeout: cfg.QueryTimeout}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.Location == nil {
		c.Location = defaults.Location
	}
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = defaults.QueryTimeout
	}
	return c
}
