package job

import (
	"testing"
	"time"

	"github.com/smallbiznis/auldata/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditWindowUsesLocalCalendarDay(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 2023-03-13 03:00Z is still March 12 in New York; March 11 is a 24h EST day.
	window := AuditWindow(time.Date(2023, time.March, 13, 3, 0, 0, 0, time.UTC), ny)
	assert.Equal(t, time.Date(2023, time.March, 11, 5, 0, 0, 0, time.UTC), window.Start)
	assert.Equal(t, time.Date(2023, time.March, 12, 4, 59, 59, 0, time.UTC), window.End)
}

func TestAuditWindowCrossesYearBoundary(t *testing.T) {
	window := AuditWindow(time.Date(2023, time.January, 1, 0, 30, 0, 0, time.UTC), time.UTC)
	assert.Equal(t, time.Date(2022, time.December, 31, 0, 0, 0, 0, time.UTC), window.Start)
	assert.Equal(t, time.Date(2022, time.December, 31, 23, 59, 59, 0, time.UTC), window.End)
}

func TestConfigFrom(t *testing.T) {
	cfg, err := ConfigFrom(config.Config{Timezone: "America/Chicago"})
	require.NoError(t, err)
	assert.Equal(t, "America/Chicago", cfg.Location.String())
	assert.Equal(t, defaultRunTimeout, cfg.RunTimeout)

	_, err = ConfigFrom(config.Config{Timezone: "Nowhere/Atlantis"})
	assert.Error(t, err)
}
