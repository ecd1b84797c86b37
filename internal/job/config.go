package job

import (
	"time"

	"github.com/smallbiznis/auldata/internal/config"
)

const (
	defaultRunTimeout = 30 * time.Minute
	jobName           = "auldata.report"
)

type Config struct {
	// Location is the calendar used to decide which day is "yesterday".
	Location   *time.Location
	RunTimeout time.Duration
}

func ConfigFrom(cfg config.Config) (Config, error) {
	loc, err := cfg.Location()
	if err != nil {
		return Config{}, err
	}
	return Config{
		Location:   loc,
		RunTimeout: cfg.RunTimeout,
	}.withDefaults(), nil
}

func (c Config) withDefaults() Config {
	if c.Location == nil {
		c.Location = time.Local
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = defaultRunTimeout
	}
	return c
}
