package db

import (
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMySQLDSN(t *testing.T) {
	dsn := MySQLDSN(Config{
		Host:     "db.internal",
		Port:     "3306",
		Name:     "reporting",
		User:     "report",
		Password: "p@ss:word",
	})

	parsed, err := mysqldriver.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "report", parsed.User)
	assert.Equal(t, "p@ss:word", parsed.Passwd)
	assert.Equal(t, "db.internal:3306", parsed.Addr)
	assert.Equal(t, "reporting", parsed.DBName)
	assert.True(t, parsed.ParseTime)
	assert.Equal(t, time.UTC, parsed.Loc)
	assert.Equal(t, dialTimeout, parsed.Timeout)
}

func TestOpenMySQLContactsStore(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	require.NoError(t, ln.Close())

	_, err = Open(Config{Type: TypeMySQL, Host: host, Port: port, Name: "reporting", User: "report"}, nil)
	assert.Error(t, err, "open pings the store")
}

func TestDialectRejectsUnknownType(t *testing.T) {
	_, err := Dialect(Config{Type: "oracle"})
	assert.Error(t, err)

	d, err := Dialect(Config{Type: TypeSQLite, Path: ":memory:"})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name())
}

func TestOpenSQLiteAppliesPool(t *testing.T) {
	db, err := Open(Config{Type: TypeSQLite, Path: ":memory:", MaxOpenConn: 1, ConnMaxLifetime: time.Minute}, nil)
	require.NoError(t, err)
	defer Close(db)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
	require.NoError(t, db.Exec("SELECT 1").Error)
}

func TestIsDuplicateIndexErr(t *testing.T) {
	assert.False(t, IsDuplicateIndexErr(nil))
	assert.True(t, IsDuplicateIndexErr(&mysqldriver.MySQLError{Number: 1061, Message: "Duplicate key name 'idx_AUDITDATE'"}))
	assert.True(t, IsDuplicateIndexErr(fmt.Errorf("report: %w", &mysqldriver.MySQLError{Number: 1061})))
	assert.False(t, IsDuplicateIndexErr(&mysqldriver.MySQLError{Number: 1062}))
	assert.True(t, IsDuplicateIndexErr(errors.New("index idx_AUDITDATE already exists")))
	assert.False(t, IsDuplicateIndexErr(errors.New("table leak already exists")))
}
