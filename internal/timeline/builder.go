package timeline

import (
	"fmt"
	"sort"
	"time"

	"github.com/mikey/activity-timeline/internal/core"
	"go.uber.org/zap"
)

// gapThreshold is the inactivity span between consecutive same-day
// events that gets reported as a gap
const gapThreshold = 2 * time.Hour

// DayBucket summarizes one calendar day of activity
type DayBucket struct {
	Date            string           `json:"date"`
	TotalActivities int              `json:"total_activities"`
	ActiveHours     int              `json:"active_hours"`
	FirstActivity   int              `json:"first_activity"`
	LastActivity    int              `json:"last_activity"`
	Activities      map[string]int   `json:"activities"`
	HourlyBreakdown map[int][]string `json:"hourly_breakdown"`
}

// LabelCount pairs an activity label with an occurrence count
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// WeeklyPatterns summarizes activity by day of week
type WeeklyPatterns struct {
	ActivityByDay     map[string]map[string]int `json:"activity_by_day"`
	WeekendActivities map[string]int            `json:"weekend_activities"`
	WeekdayActivities map[string]int            `json:"weekday_activities"`
	WeekendAvgPerDay  float64                   `json:"weekend_avg_per_day"`
	WeekdayAvgPerDay  float64                   `json:"weekday_avg_per_day"`
	VolumeTrend       float64                   `json:"volume_trend"`
}

// MonthBucket summarizes one calendar month of activity
type MonthBucket struct {
	Month           string       `json:"month"`
	TotalActivities int          `json:"total_activities"`
	UniqueDays      int          `json:"unique_days"`
	AvgPerDay       float64      `json:"avg_per_day"`
	TopActivities   []LabelCount `json:"top_activities"`
	BusiestDay      string       `json:"busiest_day"`
	QuietestDay     string       `json:"quietest_day"`
}

// Gap is a span of inactivity between two same-day events
type Gap struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Hours float64   `json:"hours"`
}

// Timeline is the display-ready ordered event sequence with its buckets
type Timeline struct {
	Events  []core.Event   `json:"events"`
	Daily   []DayBucket    `json:"daily"`
	Weekly  WeeklyPatterns `json:"weekly"`
	Monthly []MonthBucket  `json:"monthly"`
	Gaps    []Gap          `json:"gaps"`
}

// Builder assembles timelines from classified events
type Builder struct {
	logger *zap.Logger
}

// NewBuilder creates a new timeline builder
func NewBuilder(logger *zap.Logger) *Builder {
	return &Builder{logger: logger}
}

// Build orders events by timestamp and derives the daily, weekly and
// monthly buckets. The input slice is not modified.
func (b *Builder) Build(events []core.Event) *Timeline {
	ordered := make([]core.Event, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	return &Timeline{
		Events:  ordered,
		Daily:   b.buildDaily(ordered),
		Weekly:  b.buildWeekly(ordered),
		Monthly: b.buildMonthly(ordered),
		Gaps:    b.findGaps(ordered),
	}
}

func (b *Builder) buildDaily(events []core.Event) []DayBucket {
	byDate := make(map[string][]core.Event)
	for _, event := range events {
		date := event.Timestamp.Format("2006-01-02")
		byDate[date] = append(byDate[date], event)
	}

	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	buckets := make([]DayBucket, 0, len(dates))
	for _, date := range dates {
		dayEvents := byDate[date]

		bucket := DayBucket{
			Date:            date,
			TotalActivities: len(dayEvents),
			FirstActivity:   24,
			LastActivity:    -1,
			Activities:      make(map[string]int),
			HourlyBreakdown: make(map[int][]string),
		}

		hours := make(map[int]struct{})
		for _, event := range dayEvents {
			hour := event.Timestamp.Hour()
			hours[hour] = struct{}{}
			if hour < bucket.FirstActivity {
				bucket.FirstActivity = hour
			}
			if hour > bucket.LastActivity {
				bucket.LastActivity = hour
			}
			bucket.Activities[event.Label]++
			bucket.HourlyBreakdown[hour] = append(bucket.HourlyBreakdown[hour], event.Label)
		}
		bucket.ActiveHours = len(hours)

		buckets = append(buckets, bucket)
	}

	return buckets
}

func (b *Builder) buildWeekly(events []core.Event) WeeklyPatterns {
	patterns := WeeklyPatterns{
		ActivityByDay:     make(map[string]map[string]int),
		WeekendActivities: make(map[string]int),
		WeekdayActivities: make(map[string]int),
	}
	if len(events) == 0 {
		return patterns
	}

	weekendDays := make(map[string]struct{})
	weekdayDays := make(map[string]struct{})
	weekendCount := 0
	weekdayCount := 0
	weeklyVolume := make(map[string]int)

	for _, event := range events {
		dayName := event.Timestamp.Weekday().String()
		if patterns.ActivityByDay[dayName] == nil {
			patterns.ActivityByDay[dayName] = make(map[string]int)
		}
		patterns.ActivityByDay[dayName][event.Label]++

		date := event.Timestamp.Format("2006-01-02")
		year, week := event.Timestamp.ISOWeek()
		weeklyVolume[weekKey(year, week)]++

		if isWeekend(event.Timestamp) {
			patterns.WeekendActivities[event.Label]++
			weekendDays[date] = struct{}{}
			weekendCount++
		} else {
			patterns.WeekdayActivities[event.Label]++
			weekdayDays[date] = struct{}{}
			weekdayCount++
		}
	}

	if len(weekendDays) > 0 {
		patterns.WeekendAvgPerDay = float64(weekendCount) / float64(len(weekendDays))
	}
	if len(weekdayDays) > 0 {
		patterns.WeekdayAvgPerDay = float64(weekdayCount) / float64(len(weekdayDays))
	}

	weeks := make([]string, 0, len(weeklyVolume))
	for week := range weeklyVolume {
		weeks = append(weeks, week)
	}
	sort.Strings(weeks)
	volumes := make([]float64, len(weeks))
	for i, week := range weeks {
		volumes[i] = float64(weeklyVolume[week])
	}
	patterns.VolumeTrend = TrendSlope(volumes)

	return patterns
}

func (b *Builder) buildMonthly(events []core.Event) []MonthBucket {
	byMonth := make(map[string][]core.Event)
	for _, event := range events {
		month := event.Timestamp.Format("2006-01")
		byMonth[month] = append(byMonth[month], event)
	}

	months := make([]string, 0, len(byMonth))
	for month := range byMonth {
		months = append(months, month)
	}
	sort.Strings(months)

	buckets := make([]MonthBucket, 0, len(months))
	for _, month := range months {
		monthEvents := byMonth[month]

		dayCounts := make(map[string]int)
		labelCounts := make(map[string]int)
		for _, event := range monthEvents {
			dayCounts[event.Timestamp.Format("2006-01-02")]++
			labelCounts[event.Label]++
		}

		busiest, quietest := "", ""
		for date, count := range dayCounts {
			if busiest == "" || count > dayCounts[busiest] ||
				(count == dayCounts[busiest] && date < busiest) {
				busiest = date
			}
			if quietest == "" || count < dayCounts[quietest] ||
				(count == dayCounts[quietest] && date < quietest) {
				quietest = date
			}
		}

		buckets = append(buckets, MonthBucket{
			Month:           month,
			TotalActivities: len(monthEvents),
			UniqueDays:      len(dayCounts),
			AvgPerDay:       float64(len(monthEvents)) / float64(len(dayCounts)),
			TopActivities:   topLabels(labelCounts, 5),
			BusiestDay:      busiest,
			QuietestDay:     quietest,
		})
	}

	return buckets
}

// findGaps reports spans of more than two hours between consecutive
// events on the same day
func (b *Builder) findGaps(events []core.Event) []Gap {
	var gaps []Gap
	for i := 1; i < len(events); i++ {
		prev, cur := events[i-1], events[i]
		if prev.Timestamp.Format("2006-01-02") != cur.Timestamp.Format("2006-01-02") {
			continue
		}
		span := cur.Timestamp.Sub(prev.Timestamp)
		if span > gapThreshold {
			gaps = append(gaps, Gap{
				Start: prev.Timestamp,
				End:   cur.Timestamp,
				Hours: span.Hours(),
			})
		}
	}
	return gaps
}

// TrendSlope fits a least-squares line through the values and returns
// its slope. Fewer than two points have no trend.
func TrendSlope(values []float64) float64 {
	n := float64(len(values))
	if n < 2 {
		return 0
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

func topLabels(counts map[string]int, limit int) []LabelCount {
	labels := make([]LabelCount, 0, len(counts))
	for label, count := range counts {
		labels = append(labels, LabelCount{Label: label, Count: count})
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].Count != labels[j].Count {
			return labels[i].Count > labels[j].Count
		}
		return labels[i].Label < labels[j].Label
	})
	if len(labels) > limit {
		labels = labels[:limit]
	}
	return labels
}

func isWeekend(ts time.Time) bool {
	wd := ts.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func weekKey(year, week int) string {
	return fmt.Sprintf("%04d-%02d", year, week)
}
