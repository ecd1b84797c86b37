package usage

import (
	"github.com/smallbiznis/auldata/internal/usage/repository"
	"github.com/smallbiznis/auldata/internal/usage/service"
	"go.uber.org/fx"
)

var Module = fx.Module("usage.service",
	fx.Provide(repository.ProvideDialer),
	fx.Provide(service.ConfigFrom),
	fx.Provide(service.NewService),
)
