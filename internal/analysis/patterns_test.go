package analysis

import (
	"fmt"
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

func TestDailyRoutine(t *testing.T) {
	base := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	var events []core.Event
	// Three days waking at 7, 7 and 9, sleeping at 22, 23 and 22
	for i, hours := range [][]int{{7, 12, 22}, {7, 13, 23}, {9, 12, 22}} {
		day := base.AddDate(0, 0, i)
		for _, h := range hours {
			events = append(events, event("Work", day.Add(time.Duration(h)*time.Hour)))
		}
	}

	patterns := NewAnalyzer(zap.NewNop()).DailyRoutine(events)

	assert.InDelta(t, 23.0/3.0, patterns.WakeUp.Average, 1e-9)
	assert.Equal(t, 7, patterns.WakeUp.MostCommon)
	assert.InDelta(t, 67.0/3.0, patterns.Sleep.Average, 1e-9)
	assert.Equal(t, 22, patterns.Sleep.MostCommon)
	assert.Equal(t, 2, patterns.HourlyActivity[7])
	assert.Equal(t, 2, patterns.HourlyActivity[12])
	require.Len(t, patterns.PeakHours, 3)
	assert.Equal(t, 7, patterns.PeakHours[0])
}

func TestDailyRoutineEmpty(t *testing.T) {
	patterns := NewAnalyzer(zap.NewNop()).DailyRoutine(nil)
	assert.Empty(t, patterns.HourlyActivity)
	assert.Zero(t, patterns.WakeUp.Average)
	assert.Empty(t, patterns.PeakHours)
}

func TestLifeEventsTooFewEvents(t *testing.T) {
	events := []core.Event{
		event("Work", time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)),
	}
	assert.Nil(t, NewAnalyzer(zap.NewNop()).LifeEvents(events))
}

func TestLifeEventsDetectsActivitySpike(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	var events []core.Event
	for day := 0; day < 14; day++ {
		perDay := 2
		if day == 6 {
			perDay = 20
		}
		for i := 0; i < perDay; i++ {
			ts := base.AddDate(0, 0, day).Add(time.Duration(8+i%12) * time.Hour)
			events = append(events, event("Work", ts))
		}
	}

	detected := NewAnalyzer(zap.NewNop()).LifeEvents(events)

	var spikes []LifeEvent
	for _, e := range detected {
		if e.Type == "high_activity" {
			spikes = append(spikes, e)
		}
	}
	require.Len(t, spikes, 1)
	spike := spikes[0]
	assert.Equal(t, "2024-03-07", spike.Date)
	assert.Equal(t, 20, spike.ActivityCount)
	assert.Greater(t, spike.Confidence, 0.0)
	assert.LessOrEqual(t, spike.Confidence, 1.0)
}

func TestLifeEventsDetectsTravelPeriod(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	var events []core.Event
	// Steady background so the volume detector stays quiet
	for day := 0; day < 14; day++ {
		ts := base.AddDate(0, 0, day).Add(9 * time.Hour)
		events = append(events, event("Work", ts))
	}
	// Three consecutive travel days, then one isolated travel day
	for day := 4; day < 7; day++ {
		ts := base.AddDate(0, 0, day).Add(14 * time.Hour)
		events = append(events, event("Travel", ts))
	}
	events = append(events, event("Travel", base.AddDate(0, 0, 11).Add(14*time.Hour)))

	detected := NewAnalyzer(zap.NewNop()).LifeEvents(events)

	var travels []LifeEvent
	for _, e := range detected {
		if e.Type == "travel_period" {
			travels = append(travels, e)
		}
	}
	require.Len(t, travels, 1)
	travel := travels[0]
	assert.Equal(t, "2024-03-05", travel.Date)
	assert.Equal(t, 3, travel.DurationDays)
	assert.Equal(t, "3-day travel period", travel.Description)
	assert.InDelta(t, 0.8, travel.Confidence, 1e-9)
}

func TestLifeEventsSortedByDate(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	var events []core.Event
	for day := 0; day < 14; day++ {
		events = append(events, event("Work", base.AddDate(0, 0, day).Add(9*time.Hour)))
	}
	for day := 9; day < 11; day++ {
		events = append(events, event("Travel", base.AddDate(0, 0, day).Add(14*time.Hour)))
	}
	for day := 2; day < 4; day++ {
		events = append(events, event("Travel", base.AddDate(0, 0, day).Add(15*time.Hour)))
	}

	detected := NewAnalyzer(zap.NewNop()).LifeEvents(events)
	for i := 1; i < len(detected); i++ {
		assert.LessOrEqual(t, detected[i-1].Date, detected[i].Date)
	}
}

func TestInsights(t *testing.T) {
	patterns := RoutinePatterns{
		WakeUp:         HourStats{Average: 6.5},
		HourlyActivity: map[int]int{6: 2, 9: 3, 12: 4, 18: 1},
	}
	lifeEvents := []LifeEvent{
		{Type: "high_activity"},
		{Type: "high_activity"},
		{Type: "travel_period"},
	}

	insights := NewAnalyzer(zap.NewNop()).Insights(patterns, lifeEvents)

	assert.Contains(t, insights, "You're an early riser! Most activity starts before 7 AM.")
	assert.Contains(t, insights, "Your activity is concentrated in fewer hours of the day.")
	assert.Contains(t, insights, fmt.Sprintf("Detected %d periods of unusually high activity.", 2))
}

func TestInsightsNoActivity(t *testing.T) {
	insights := NewAnalyzer(zap.NewNop()).Insights(RoutinePatterns{}, nil)
	assert.Empty(t, insights)
}

func TestHourStatsModeTiebreak(t *testing.T) {
	stats := hourStats([]int{7, 9, 7, 9})
	assert.Equal(t, 7, stats.MostCommon)
	assert.InDelta(t, 8.0, stats.Average, 1e-9)
}

func TestRollingAverage(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7}
	rolling := rollingAverage(values, 7)
	require.Len(t, rolling, 7)
	// Center of the series sees the full window
	assert.InDelta(t, 4.0, rolling[3], 1e-9)
	// Edges use a truncated window
	assert.InDelta(t, 2.5, rolling[0], 1e-9)
}
