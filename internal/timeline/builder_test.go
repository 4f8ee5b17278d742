package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/activity-timeline/internal/core"
)

func event(label string, ts time.Time) core.Event {
	return core.Event{Text: label, Label: label, Timestamp: ts}
}

func TestBuildOrdersEvents(t *testing.T) {
	t1 := time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)
	t2 := time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC)
	t3 := time.Date(2024, 3, 12, 8, 0, 0, 0, time.UTC)

	input := []core.Event{event("c", t3), event("a", t1), event("b", t2)}
	tl := NewBuilder(zap.NewNop()).Build(input)

	require.Len(t, tl.Events, 3)
	assert.Equal(t, "a", tl.Events[0].Label)
	assert.Equal(t, "b", tl.Events[1].Label)
	assert.Equal(t, "c", tl.Events[2].Label)

	// Input order untouched
	assert.Equal(t, "c", input[0].Label)
}

func TestBuildDailyBuckets(t *testing.T) {
	day := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	events := []core.Event{
		event("Work", day.Add(9*time.Hour)),
		event("Work", day.Add(9*time.Hour+30*time.Minute)),
		event("Social", day.Add(19*time.Hour)),
		event("Travel", day.Add(24*time.Hour+8*time.Hour)), // next day
	}

	tl := NewBuilder(zap.NewNop()).Build(events)
	require.Len(t, tl.Daily, 2)

	first := tl.Daily[0]
	assert.Equal(t, "2024-03-11", first.Date)
	assert.Equal(t, 3, first.TotalActivities)
	assert.Equal(t, 2, first.ActiveHours)
	assert.Equal(t, 9, first.FirstActivity)
	assert.Equal(t, 19, first.LastActivity)
	assert.Equal(t, 2, first.Activities["Work"])
	assert.Equal(t, []string{"Work", "Work"}, first.HourlyBreakdown[9])

	second := tl.Daily[1]
	assert.Equal(t, "2024-03-12", second.Date)
	assert.Equal(t, 1, second.TotalActivities)
}

func TestBuildWeeklyPatterns(t *testing.T) {
	// 2024-03-11 is a Monday, 2024-03-16 a Saturday
	monday := time.Date(2024, 3, 11, 10, 0, 0, 0, time.UTC)
	saturday := time.Date(2024, 3, 16, 10, 0, 0, 0, time.UTC)

	events := []core.Event{
		event("Work", monday),
		event("Work", monday.Add(2*time.Hour)),
		event("Social", saturday),
	}

	tl := NewBuilder(zap.NewNop()).Build(events)
	weekly := tl.Weekly

	assert.Equal(t, 2, weekly.ActivityByDay["Monday"]["Work"])
	assert.Equal(t, 1, weekly.WeekendActivities["Social"])
	assert.Equal(t, 2, weekly.WeekdayActivities["Work"])
	assert.InDelta(t, 1.0, weekly.WeekendAvgPerDay, 1e-9)
	assert.InDelta(t, 2.0, weekly.WeekdayAvgPerDay, 1e-9)
}

func TestBuildMonthlyBuckets(t *testing.T) {
	march := time.Date(2024, 3, 11, 10, 0, 0, 0, time.UTC)
	april := time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC)

	events := []core.Event{
		event("Work", march),
		event("Work", march.Add(time.Hour)),
		event("Social", march.AddDate(0, 0, 1)),
		event("Travel", april),
	}

	tl := NewBuilder(zap.NewNop()).Build(events)
	require.Len(t, tl.Monthly, 2)

	marchBucket := tl.Monthly[0]
	assert.Equal(t, "2024-03", marchBucket.Month)
	assert.Equal(t, 3, marchBucket.TotalActivities)
	assert.Equal(t, 2, marchBucket.UniqueDays)
	assert.InDelta(t, 1.5, marchBucket.AvgPerDay, 1e-9)
	assert.Equal(t, "2024-03-11", marchBucket.BusiestDay)
	assert.Equal(t, "2024-03-12", marchBucket.QuietestDay)
	require.NotEmpty(t, marchBucket.TopActivities)
	assert.Equal(t, LabelCount{Label: "Work", Count: 2}, marchBucket.TopActivities[0])
}

func TestFindGaps(t *testing.T) {
	day := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	events := []core.Event{
		event("Work", day.Add(9*time.Hour)),
		event("Work", day.Add(10*time.Hour)),          // 1h, below threshold
		event("Social", day.Add(15*time.Hour)),        // 5h gap
		event("Sleep", day.Add(24*time.Hour+9*time.Hour)), // overnight, not a gap
	}

	tl := NewBuilder(zap.NewNop()).Build(events)
	require.Len(t, tl.Gaps, 1)
	gap := tl.Gaps[0]
	assert.Equal(t, day.Add(10*time.Hour), gap.Start)
	assert.Equal(t, day.Add(15*time.Hour), gap.End)
	assert.InDelta(t, 5.0, gap.Hours, 1e-9)
}

func TestBuildEmpty(t *testing.T) {
	tl := NewBuilder(zap.NewNop()).Build(nil)
	assert.Empty(t, tl.Events)
	assert.Empty(t, tl.Daily)
	assert.Empty(t, tl.Monthly)
	assert.Empty(t, tl.Gaps)
	assert.Zero(t, tl.Weekly.VolumeTrend)
}

func TestTrendSlope(t *testing.T) {
	assert.Zero(t, TrendSlope(nil))
	assert.Zero(t, TrendSlope([]float64{5}))
	assert.InDelta(t, 1.0, TrendSlope([]float64{1, 2, 3, 4}), 1e-9)
	assert.InDelta(t, -2.0, TrendSlope([]float64{6, 4, 2}), 1e-9)
	assert.InDelta(t, 0.0, TrendSlope([]float64{3, 3, 3}), 1e-9)
}

func TestTopLabels(t *testing.T) {
	counts := map[string]int{"a": 1, "b": 3, "c": 3, "d": 2}
	labels := topLabels(counts, 2)
	require.Len(t, labels, 2)
	assert.Equal(t, LabelCount{Label: "b", Count: 3}, labels[0])
	assert.Equal(t, LabelCount{Label: "c", Count: 3}, labels[1])
}
