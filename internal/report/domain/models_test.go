package domain

import (
	"testing"
	"time"

	usagedomain "github.com/smallbiznis/auldata/internal/usage/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRowsSumsBytes(t *testing.T) {
	auditDate := time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)
	start := time.Date(2022, 12, 20, 5, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	rows := BuildRows([]usagedomain.UsageRecord{{
		ExtSubID: "6",
		MDN:      "5551234567",
		BAN:      "3",
		Start:    start,
		End:      end,
		BytesIn:  2048,
		BytesOut: 512,
	}}, auditDate)

	require.Len(t, rows, 1)
	assert.Equal(t, ReportRow{
		SubscriberID: "6",
		MDN:          "5551234567",
		BAN:          "3",
		UsageStart:   start,
		UsageEnd:     end,
		TotalMB:      2560,
		AuditDate:    auditDate,
	}, rows[0])
}

func TestBuildRowsEmpty(t *testing.T) {
	assert.Nil(t, BuildRows(nil, time.Now()))
}

func TestRetentionCutoff(t *testing.T) {
	cases := []struct {
		now  time.Time
		want time.Time
	}{
		{time.Date(2023, 5, 15, 12, 0, 0, 0, time.UTC), time.Date(2023, 4, 15, 12, 0, 0, 0, time.UTC)},
		{time.Date(2023, 3, 31, 1, 2, 3, 0, time.UTC), time.Date(2023, 2, 28, 1, 2, 3, 0, time.UTC)},
		{time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{time.Date(2023, 1, 10, 8, 0, 0, 0, time.UTC), time.Date(2022, 12, 10, 8, 0, 0, 0, time.UTC)},
		{time.Date(2023, 7, 31, 0, 0, 0, 0, time.UTC), time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, RetentionCutoff(tc.now), tc.now.String())
	}
}
