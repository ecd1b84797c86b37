package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/smallbiznis/auldata/internal/config"
	reportdomain "github.com/smallbiznis/auldata/internal/report/domain"
	"github.com/smallbiznis/auldata/pkg/db"
	"gorm.io/gorm"
)

type repo struct {
	db        *gorm.DB
	table     string
	batchSize int
}

// New returns a repository for table. The name is interpolated into DDL and
// must already be a validated identifier. batchSize 0 keeps every insert in a
// single statement.
func New(conn *gorm.DB, table string, batchSize int) reportdomain.Repository {
	return &repo{db: conn, table: table, batchSize: batchSize}
}

func Provide(conn *gorm.DB, cfg config.Config) reportdomain.Repository {
	return New(conn, cfg.Reporting.Table, 0)
}

func (r *repo) Table() string { return r.table }

func (r *repo) EnsureTable(ctx context.Context) error {
	conn := r.db.WithContext(ctx)

	if err := conn.Exec(createTableSQL(r.table, conn.Dialector.Name())).Error; err != nil {
		return fmt.Errorf("create table %s: %w", r.table, err)
	}

	if conn.Migrator().HasIndex(r.table, reportdomain.IndexName) {
		return nil
	}
	err := conn.Exec(fmt.Sprintf("CREATE INDEX %s ON `%s` (AUDITDATE)", reportdomain.IndexName, r.table)).Error
	if err != nil && !db.IsDuplicateIndexErr(err) {
		return fmt.Errorf("create index %s: %w", reportdomain.IndexName, err)
	}
	return nil
}

func createTableSQL(table, dialect string) string {
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS `%s` ("+
		"`SUBSCRIBERID` VARCHAR(100), "+
		"`MDN` VARCHAR(100), "+
		"`BAN` VARCHAR(100), "+
		"`USAGESTART` DATETIME, "+
		"`USAGEEND` DATETIME, "+
		"`TOTALMB` DECIMAL, "+
		"`AUDITDATE` DATETIME)", table)
	if dialect == db.TypeMySQL {
		stmt += " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci"
	}
	return stmt
}

func (r *repo) InsertRows(ctx context.Context, rows []reportdomain.ReportRow) error {
	if len(rows) == 0 {
		return nil
	}
	conn := r.db.WithContext(ctx).Table(r.table)
	if r.batchSize > 0 && len(rows) > r.batchSize {
		return conn.CreateInBatches(&rows, r.batchSize).Error
	}
	return conn.Create(&rows).Error
}

func (r *repo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Table(r.table).
		Where("AUDITDATE < ?", cutoff.UTC()).
		Delete(&reportdomain.ReportRow{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
