package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	reportdomain "github.com/smallbiznis/auldata/internal/report/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testTable = "auldata_leak"

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

func countRows(t *testing.T, conn *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, conn.Table(testTable).Count(&count).Error)
	return count
}

func TestEnsureTableIsIdempotent(t *testing.T) {
	conn := openTestDB(t)
	r := New(conn, testTable, 0)

	require.NoError(t, r.EnsureTable(context.Background()))
	require.NoError(t, r.EnsureTable(context.Background()))

	assert.True(t, conn.Migrator().HasTable(testTable))
	assert.True(t, conn.Migrator().HasIndex(testTable, reportdomain.IndexName))

	var indexes int64
	require.NoError(t, conn.Raw(
		"SELECT count(*) FROM sqlite_master WHERE type = 'index' AND name = ?", reportdomain.IndexName,
	).Scan(&indexes).Error)
	assert.Equal(t, int64(1), indexes)

	columns, err := conn.Migrator().ColumnTypes(testTable)
	require.NoError(t, err)
	names := make([]string, 0, len(columns))
	for _, column := range columns {
		names = append(names, column.Name())
	}
	assert.Equal(t, []string{"SUBSCRIBERID", "MDN", "BAN", "USAGESTART", "USAGEEND", "TOTALMB", "AUDITDATE"}, names)
}

func TestCreateTableSQLDialects(t *testing.T) {
	mysql := createTableSQL("leak", "mysql")
	assert.Contains(t, mysql, "CREATE TABLE IF NOT EXISTS `leak`")
	assert.Contains(t, mysql, "`TOTALMB` DECIMAL")
	assert.Contains(t, mysql, "ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci")

	assert.NotContains(t, createTableSQL("leak", "sqlite"), "ENGINE")
}

func TestInsertRows(t *testing.T) {
	conn := openTestDB(t)
	r := New(conn, testTable, 0)
	require.NoError(t, r.EnsureTable(context.Background()))

	auditDate := time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)
	rows := []reportdomain.ReportRow{
		{SubscriberID: "6", MDN: "5551234567", BAN: "3", UsageStart: auditDate.Add(-2 * time.Hour), UsageEnd: auditDate.Add(-time.Hour), TotalMB: 2560, AuditDate: auditDate},
		{SubscriberID: "7", MDN: "5557654321", BAN: "6", UsageStart: auditDate.Add(-2 * time.Hour), UsageEnd: auditDate.Add(-time.Hour), TotalMB: 10, AuditDate: auditDate},
	}
	require.NoError(t, r.InsertRows(context.Background(), rows))

	var stored []reportdomain.ReportRow
	require.NoError(t, conn.Table(testTable).Order("SUBSCRIBERID").Find(&stored).Error)
	require.Len(t, stored, 2)
	assert.Equal(t, int64(2560), stored[0].TotalMB)
	assert.Equal(t, "3", stored[0].BAN)
	assert.True(t, auditDate.Equal(stored[0].AuditDate))
}

func TestInsertRowsEmptyIsNoop(t *testing.T) {
	conn := openTestDB(t)
	r := New(conn, testTable, 0)
	require.NoError(t, r.EnsureTable(context.Background()))

	require.NoError(t, r.InsertRows(context.Background(), nil))
	assert.Zero(t, countRows(t, conn))
}

func TestInsertRowsInBatches(t *testing.T) {
	conn := openTestDB(t)
	r := New(conn, testTable, 2)
	require.NoError(t, r.EnsureTable(context.Background()))

	rows := make([]reportdomain.ReportRow, 5)
	for i := range rows {
		rows[i] = reportdomain.ReportRow{SubscriberID: fmt.Sprint(i), AuditDate: time.Now().UTC()}
	}
	require.NoError(t, r.InsertRows(context.Background(), rows))
	assert.Equal(t, int64(5), countRows(t, conn))
}

func TestDeleteBeforeUsesCalendarMonth(t *testing.T) {
	conn := openTestDB(t)
	r := New(conn, testTable, 0)
	require.NoError(t, r.EnsureTable(context.Background()))

	now := time.Date(2023, 5, 15, 12, 0, 0, 0, time.UTC)
	rows := []reportdomain.ReportRow{
		{SubscriberID: "old", AuditDate: now.AddDate(0, 0, -31)},
		{SubscriberID: "recent", AuditDate: now.AddDate(0, 0, -29)},
		{SubscriberID: "today", AuditDate: now},
	}
	require.NoError(t, r.InsertRows(context.Background(), rows))

	deleted, err := r.DeleteBefore(context.Background(), reportdomain.RetentionCutoff(now))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var remaining []string
	require.NoError(t, conn.Table(testTable).Order("SUBSCRIBERID").Pluck("SUBSCRIBERID", &remaining).Error)
	assert.Equal(t, []string{"recent", "today"}, remaining)
}
