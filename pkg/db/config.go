package db

import (
	"time"

	"github.com/smallbiznis/auldata/internal/config"
)

type Config struct {
	Type            string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	MaxIdleConn     int
	MaxOpenConn     int
	ConnMaxLifetime time.Duration

	// Path is the sqlite database file; ":memory:" keeps everything in process.
	Path string
}

func ConfigFrom(cfg config.Config) Config {
	return Config{
		Type:            cfg.Reporting.Type,
		Host:            cfg.Reporting.Host,
		Port:            cfg.Reporting.Port,
		Name:            cfg.Reporting.Name,
		User:            cfg.Reporting.User,
		Password:        cfg.Reporting.Password,
		MaxIdleConn:     cfg.Reporting.MaxIdleConn,
		MaxOpenConn:     cfg.Reporting.MaxOpenConn,
		ConnMaxLifetime: cfg.Reporting.ConnMaxLifetime,
		Path:            cfg.Reporting.Name + ".db",
	}
}
