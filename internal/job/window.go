package job

import (
	"time"

	auditdomain "github.com/smallbiznis/auldata/internal/audit/domain"
)

// AuditWindow is the full calendar day before now in loc, both bounds
// inclusive, expressed in UTC.
func AuditWindow(now time.Time, loc *time.Location) auditdomain.Window {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := now.In(loc).AddDate(0, 0, -1).Date()
	return auditdomain.Window{
		Start: time.Date(y, m, d, 0, 0, 0, 0, loc).UTC(),
		End:   time.Date(y, m, d, 23, 59, 59, 0, loc).UTC(),
	}
}
