package db

import (
	"context"
	"fmt"

	"github.com/smallbiznis/auldata/internal/observability/logger"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("db",
	fx.Provide(ConfigFrom),
	fx.Provide(New),
)

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    Config
	Log       *zap.Logger
	GormLog   *logger.GormLogger `optional:"true"`
}

// New opens the reporting store and closes the pool on shutdown. gorm pings on
// open, so an unreachable store fails the fx graph before any document store is
// queried.
func New(p Params) (*gorm.DB, error) {
	db, err := Open(p.Config, p.GormLog)
	if err != nil {
		return nil, err
	}

	if p.Lifecycle != nil {
		p.Lifecycle.Append(fx.Hook{
			OnStop: func(context.Context) error {
				return Close(db)
			},
		})
	}

	p.Log.Named("db").Info("reporting store configured",
		zap.String("type", p.Config.Type),
		zap.String("host", p.Config.Host),
		zap.String("database", p.Config.Name),
	)
	return db, nil
}

func Open(cfg Config, gormLog *logger.GormLogger) (*gorm.DB, error) {
	dialector, err := Dialect(cfg)
	if err != nil {
		return nil, err
	}

	gormCfg := &gorm.Config{}
	if gormLog != nil {
		gormCfg.Logger = gormLog
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("db: open %s: %w", cfg.Type, err)
	}
	// Statements become child spans of the run; bound values stay out of them.
	if err := db.Use(otelgorm.NewPlugin(
		otelgorm.WithDBName(cfg.Name),
		otelgorm.WithoutQueryVariables(),
	)); err != nil {
		return nil, fmt.Errorf("db: tracing plugin: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("db: pool handle: %w", err)
	}
	if cfg.MaxIdleConn > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConn)
	}
	if cfg.MaxOpenConn > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConn)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return db, nil
}

func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
