package jobmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/auldata/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("job.metrics",
	fx.Provide(func() *prometheus.Registry {
		return prometheus.NewRegistry()
	}),
	fx.Provide(func(registry *prometheus.Registry, cfg config.Config) *Metrics {
		return New(registry, Config{ServiceName: cfg.AppName, Environment: cfg.Environment})
	}),
	fx.Provide(NewPusher),
)
