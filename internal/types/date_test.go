package types

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func TestHoursBetween(t *testing.T) {
	start := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, "2", HoursBetween(start, start.Add(2*time.Hour)).String())
	assert.Equal(t, "1.5", HoursBetween(start, start.Add(90*time.Minute)).String())
	assert.Equal(t, "0.025", HoursBetween(start, start.Add(90*time.Second)).String())
	assert.True(t, HoursBetween(start, start).IsZero())
	assert.True(t, HoursBetween(start, start.Add(-time.Hour)).IsZero(), "reversed range is zero")
}

func TestOverlapHours(t *testing.T) {
	eventStart := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	eventEnd := eventStart.Add(2 * time.Hour)

	// window fully inside the event
	assert.Equal(t, "0.5",
		OverlapHours(eventStart, eventEnd, eventEnd.Add(-30*time.Minute), eventEnd).String())

	// window extending past the event is clipped
	assert.Equal(t, "1",
		OverlapHours(eventStart, eventEnd, eventEnd.Add(-time.Hour), eventEnd.Add(3*time.Hour)).String())

	// disjoint windows contribute nothing
	assert.True(t,
		OverlapHours(eventStart, eventEnd, eventEnd.Add(time.Hour), eventEnd.Add(2*time.Hour)).IsZero())
}

func TestRangesOverlap(t *testing.T) {
	jan1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mar1 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	jun1 := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	dec1 := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, RangesOverlap(jan1, lo.ToPtr(jun1), mar1, lo.ToPtr(dec1)))
	assert.False(t, RangesOverlap(jan1, lo.ToPtr(mar1), jun1, lo.ToPtr(dec1)))

	// open ended ranges overlap anything starting before their end
	assert.True(t, RangesOverlap(jan1, nil, jun1, lo.ToPtr(dec1)))
	assert.True(t, RangesOverlap(jan1, nil, jun1, nil))
	assert.False(t, RangesOverlap(jun1, nil, jan1, lo.ToPtr(mar1)))
}

func TestCareDays(t *testing.T) {
	days := CareDays{time.Monday, time.Wednesday}

	assert.True(t, days.Contains(time.Monday))
	assert.False(t, days.Contains(time.Sunday))

	assert.True(t, days.Intersects(CareDays{time.Wednesday, time.Friday}))
	assert.False(t, days.Intersects(CareDays{time.Tuesday, time.Thursday}))
	assert.False(t, days.Intersects(CareDays{}))
}

func TestMonthAndPeriodKeys(t *testing.T) {
	date := time.Date(2026, 1, 31, 23, 0, 0, 0, time.UTC)

	assert.Equal(t, "202601", MonthKey(date))
	assert.Equal(t, "0126", BillPeriodPrefix(date))
}
