package db

import (
	"fmt"
	"net"
	"time"

	"github.com/glebarez/sqlite"
	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

const (
	TypeMySQL  = "mysql"
	TypeSQLite = "sqlite"
)

func Dialect(cfg Config) (gorm.Dialector, error) {
	switch cfg.Type {
	case TypeMySQL, "":
		return mysql.Open(MySQLDSN(cfg)), nil
	case TypeSQLite:
		path := cfg.Path
		if path == "" {
			path = "auldata.db"
		}
		return sqlite.Open(path), nil
	default:
		return nil, fmt.Errorf("db: unsupported %s type", cfg.Type)
	}
}

const dialTimeout = 10 * time.Second

// MySQLDSN formats the reporting DSN. Times are read and written as UTC and
// credentials are escaped by the driver.
func MySQLDSN(cfg Config) string {
	dsn := mysqldriver.NewConfig()
	dsn.User = cfg.User
	dsn.Passwd = cfg.Password
	dsn.Net = "tcp"
	dsn.Addr = net.JoinHostPort(cfg.Host, cfg.Port)
	dsn.DBName = cfg.Name
	dsn.ParseTime = true
	dsn.Loc = time.UTC
	dsn.Timeout = dialTimeout
	dsn.Params = map[string]string{"charset": "utf8mb4"}
	return dsn.FormatDSN()
}
