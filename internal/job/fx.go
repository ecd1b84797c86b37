package job

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

var Module = fx.Module("job",
	fx.Provide(ConfigFrom),
	fx.Provide(func() (*snowflake.Node, error) {
		return snowflake.NewNode(1)
	}),
	fx.Provide(New),
)
