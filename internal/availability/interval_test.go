package availability

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/technician-availability-api/internal/models"
)

func tr(start, end string) TimeRange {
	return TimeRange{Start: models.MustParseTimeOfDay(start), End: models.MustParseTimeOfDay(end)}
}

func dr(start, end string) DateRange {
	return DateRange{Start: models.MustParseDate(start), End: models.MustParseDate(end)}
}

func TestIsValidTimeRange(t *testing.T) {
	cases := []struct {
		start, end string
		want       bool
	}{
		{"09:00", "17:00", true},
		{"09:00", "09:01", true},
		{"09:00", "09:00", false},
		{"17:00", "09:00", false},
		{"00:00", "23:59", true},
	}
	for _, tc := range cases {
		got := IsValidTimeRange(models.MustParseTimeOfDay(tc.start), models.MustParseTimeOfDay(tc.end))
		assert.Equal(t, tc.want, got, "%s-%s", tc.start, tc.end)
	}
}

func TestTimeRangesOverlapIsSymmetricAndExclusive(t *testing.T) {
	pairs := []struct {
		a, b TimeRange
		want bool
	}{
		{tr("09:00", "12:00"), tr("11:00", "13:00"), true},
		{tr("09:00", "12:00"), tr("12:00", "13:00"), false},
		{tr("09:00", "11:00"), tr("13:00", "15:00"), false},
		{tr("08:00", "18:00"), tr("10:00", "11:00"), true},
		{tr("10:00", "11:00"), tr("10:00", "11:00"), true},
	}
	for _, p := range pairs {
		assert.Equal(t, p.want, TimeRangesOverlap(p.a, p.b))
		assert.Equal(t, TimeRangesOverlap(p.a, p.b), TimeRangesOverlap(p.b, p.a))
	}
}

func TestDateRangesOverlapIsInclusive(t *testing.T) {
	day := SingleDay(models.MustParseDate("2025-07-04"))
	assert.True(t, DateRangesOverlap(day, day))

	assert.True(t, DateRangesOverlap(dr("2025-07-01", "2025-07-04"), dr("2025-07-04", "2025-07-06")))
	assert.True(t, DateRangesOverlap(dr("2025-07-04", "2025-07-06"), dr("2025-07-01", "2025-07-04")))
	assert.False(t, DateRangesOverlap(dr("2025-07-01", "2025-07-03"), dr("2025-07-04", "2025-07-06")))
	assert.False(t, DateRangesOverlap(dr("2025-07-04", "2025-07-06"), dr("2025-07-01", "2025-07-03")))
}

func TestDateRangeDaysCrossesMonthBoundary(t *testing.T) {
	days := dr("2025-06-29", "2025-07-02").Days()
	if assert.Len(t, days, 4) {
		assert.Equal(t, "2025-06-29", days[0].String())
		assert.Equal(t, "2025-07-02", days[3].String())
	}
	assert.Empty(t, dr("2025-07-02", "2025-07-01").Days())
	assert.True(t, dr("2025-07-01", "2025-07-03").Contains(models.MustParseDate("2025-07-03")))
}
