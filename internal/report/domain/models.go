// Package domain contains the reporting table rows written by the job.
package domain

import (
	"time"

	usagedomain "github.com/smallbiznis/auldata/internal/usage/domain"
)

// IndexName is the secondary index on AUDITDATE.
const IndexName = "idx_AUDITDATE"

// ReportRow is one reporting table entry. TOTALMB holds raw bytes in and out.
type ReportRow struct {
	SubscriberID string    `gorm:"column:SUBSCRIBERID;type:VARCHAR(100)"`
	MDN          string    `gorm:"column:MDN;type:VARCHAR(100)"`
	BAN          string    `gorm:"column:BAN;type:VARCHAR(100)"`
	UsageStart   time.Time `gorm:"column:USAGESTART;type:DATETIME"`
	UsageEnd     time.Time `gorm:"column:USAGEEND;type:DATETIME"`
	TotalMB      int64     `gorm:"column:TOTALMB;type:DECIMAL"`
	AuditDate    time.Time `gorm:"column:AUDITDATE;type:DATETIME"`
}

// BuildRows turns usage records into report rows stamped with auditDate.
func BuildRows(records []usagedomain.UsageRecord, auditDate time.Time) []ReportRow {
	if len(records) == 0 {
		return nil
	}
	rows := make([]ReportRow, 0, len(records))
	for _, record := range records {
		rows = append(rows, ReportRow{
			SubscriberID: record.ExtSubID,
			MDN:          record.MDN,
			BAN:          record.BAN,
			UsageStart:   record.Start.UTC(),
			UsageEnd:     record.End.UTC(),
			TotalMB:      record.BytesIn + record.BytesOut,
			AuditDate:    auditDate,
		})
	}
	return rows
}

// RetentionCutoff is one calendar month before now. When the earlier month is
// shorter the day is clamped to its last day, so March 31 yields February 28
// (or 29).
func RetentionCutoff(now time.Time) time.Time {
	year, month, day := now.Date()
	hour, minute, second := now.Clock()

	firstOfPrev := time.Date(year, month-1, 1, 0, 0, 0, 0, now.Location())
	lastDay := firstOfPrev.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfPrev.Year(), firstOfPrev.Month(), day, hour, minute, second, now.Nanosecond(), now.Location())
}
