package analysis

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/mikey/activity-timeline/internal/core"
	"go.uber.org/zap"
)

const travelLabel = "Travel"

// HourStats summarizes the distribution of an hour-of-day observation
type HourStats struct {
	Average    float64 `json:"average"`
	StdDev     float64 `json:"std_dev"`
	MostCommon int     `json:"most_common"`
}

// RoutinePatterns describes the recurring shape of a day
type RoutinePatterns struct {
	WakeUp         HourStats   `json:"wake_up"`
	Sleep          HourStats   `json:"sleep"`
	HourlyActivity map[int]int `json:"hourly_activity"`
	PeakHours      []int       `json:"peak_hours"`
	QuietHours     []int       `json:"quiet_hours"`
}

// LifeEvent is a detected deviation from the usual activity pattern
type LifeEvent struct {
	Date          string  `json:"date"`
	Type          string  `json:"type"`
	Description   string  `json:"description"`
	Confidence    float64 `json:"confidence"`
	ActivityCount int     `json:"activity_count,omitempty"`
	ExpectedCount float64 `json:"expected_count,omitempty"`
	DurationDays  int     `json:"duration_days,omitempty"`
}

// Analyzer derives routine patterns and life events from classified events
type Analyzer struct {
	logger *zap.Logger
}

// NewAnalyzer creates a new pattern analyzer
func NewAnalyzer(logger *zap.Logger) *Analyzer {
	return &Analyzer{logger: logger}
}

// DailyRoutine analyzes recurring daily patterns. The first and last
// active hour of each day stand in for wake-up and sleep times.
func (a *Analyzer) DailyRoutine(events []core.Event) RoutinePatterns {
	patterns := RoutinePatterns{
		HourlyActivity: make(map[int]int),
	}
	if len(events) == 0 {
		return patterns
	}

	firstByDay := make(map[string]int)
	lastByDay := make(map[string]int)
	for _, event := range events {
		date := event.Timestamp.Format("2006-01-02")
		hour := event.Timestamp.Hour()
		patterns.HourlyActivity[hour]++

		if existing, ok := firstByDay[date]; !ok || hour < existing {
			firstByDay[date] = hour
		}
		if existing, ok := lastByDay[date]; !ok || hour > existing {
			lastByDay[date] = hour
		}
	}

	patterns.WakeUp = hourStats(mapValues(firstByDay))
	patterns.Sleep = hourStats(mapValues(lastByDay))
	patterns.PeakHours = rankHours(patterns.HourlyActivity, 3, true)
	patterns.QuietHours = rankHours(patterns.HourlyActivity, 3, false)

	return patterns
}

// LifeEvents detects significant deviations: daily activity volumes more
// than two standard deviations away from the 7-day centered rolling
// average, plus multi-day travel periods.
func (a *Analyzer) LifeEvents(events []core.Event) []LifeEvent {
	if len(events) < 10 {
		return nil
	}

	dailyCounts := make(map[string]int)
	for _, event := range events {
		dailyCounts[event.Timestamp.Format("2006-01-02")]++
	}

	dates := make([]string, 0, len(dailyCounts))
	for date := range dailyCounts {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	counts := make([]float64, len(dates))
	for i, date := range dates {
		counts[i] = float64(dailyCounts[date])
	}
	std := stdDev(counts)

	var detected []LifeEvent
	if std > 0 {
		rolling := rollingAverage(counts, 7)
		for i, date := range dates {
			deviation := math.Abs(counts[i] - rolling[i])
			if deviation > 2*std {
				eventType := "low_activity"
				description := "Unusual low activity detected"
				if counts[i] > rolling[i] {
					eventType = "high_activity"
					description = "Unusual high activity detected"
				}
				detected = append(detected, LifeEvent{
					Date:          date,
					Type:          eventType,
					Description:   description,
					Confidence:    math.Min(deviation/std/3, 1.0),
					ActivityCount: int(counts[i]),
					ExpectedCount: rolling[i],
				})
			}
		}
	}

	detected = append(detected, a.travelPeriods(events)...)
	sort.Slice(detected, func(i, j int) bool { return detected[i].Date < detected[j].Date })

	return detected
}

// Insights turns the patterns and events into plain-language summaries
func (a *Analyzer) Insights(patterns RoutinePatterns, lifeEvents []LifeEvent) []string {
	var insights []string

	if len(patterns.HourlyActivity) > 0 {
		switch wakeUp := patterns.WakeUp.Average; {
		case wakeUp < 7:
			insights = append(insights, "You're an early riser! Most activity starts before 7 AM.")
		case wakeUp > 9:
			insights = append(insights, "You tend to start your day later, with activity beginning after 9 AM.")
		default:
			insights = append(insights, "You have a regular morning routine, starting around 7-9 AM.")
		}

		activeHours := 0
		for _, count := range patterns.HourlyActivity {
			if count > 0 {
				activeHours++
			}
		}
		switch {
		case activeHours > 14:
			insights = append(insights, "You maintain high activity levels throughout most of the day.")
		case activeHours < 8:
			insights = append(insights, "Your activity is concentrated in fewer hours of the day.")
		default:
			insights = append(insights, "You have moderate activity spread across the day.")
		}
	}

	highActivity := 0
	for _, event := range lifeEvents {
		if event.Type == "high_activity" {
			highActivity++
		}
	}
	if highActivity > 0 {
		insights = append(insights,
			fmt.Sprintf("Detected %d periods of unusually high activity.", highActivity))
	}

	return insights
}

// travelPeriods groups consecutive days classified as Travel into
// multi-day travel events
func (a *Analyzer) travelPeriods(events []core.Event) []LifeEvent {
	travelDays := make(map[string]struct{})
	for _, event := range events {
		if event.Label == travelLabel {
			travelDays[event.Timestamp.Format("2006-01-02")] = struct{}{}
		}
	}
	if len(travelDays) == 0 {
		return nil
	}

	dates := make([]time.Time, 0, len(travelDays))
	for date := range travelDays {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			continue
		}
		dates = append(dates, parsed)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	var detected []LifeEvent
	periodStart := 0
	for i := 1; i <= len(dates); i++ {
		if i < len(dates) && dates[i].Sub(dates[i-1]) <= 24*time.Hour {
			continue
		}
		if days := i - periodStart; days >= 2 {
			detected = append(detected, LifeEvent{
				Date:         dates[periodStart].Format("2006-01-02"),
				Type:         "travel_period",
				Description:  fmt.Sprintf("%d-day travel period", days),
				Confidence:   0.8,
				DurationDays: days,
			})
		}
		periodStart = i
	}

	return detected
}

func hourStats(hours []int) HourStats {
	if len(hours) == 0 {
		return HourStats{}
	}

	values := make([]float64, len(hours))
	counts := make(map[int]int)
	for i, h := range hours {
		values[i] = float64(h)
		counts[h]++
	}

	mostCommon := hours[0]
	for hour, count := range counts {
		if count > counts[mostCommon] || (count == counts[mostCommon] && hour < mostCommon) {
			mostCommon = hour
		}
	}

	return HourStats{
		Average:    mean(values),
		StdDev:     stdDev(values),
		MostCommon: mostCommon,
	}
}

func rankHours(histogram map[int]int, limit int, descending bool) []int {
	hours := make([]int, 0, len(histogram))
	for hour := range histogram {
		hours = append(hours, hour)
	}
	sort.Slice(hours, func(i, j int) bool {
		ci, cj := histogram[hours[i]], histogram[hours[j]]
		if ci != cj {
			if descending {
				return ci > cj
			}
			return ci < cj
		}
		return hours[i] < hours[j]
	})
	if len(hours) > limit {
		hours = hours[:limit]
	}
	return hours
}

// rollingAverage computes a centered moving average with the given window
func rollingAverage(values []float64, window int) []float64 {
	result := make([]float64, len(values))
	half := window / 2
	for i := range values {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half + 1
		if hi > len(values) {
			hi = len(values)
		}
		result[i] = mean(values[lo:hi])
	}
	return result
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		sum += (v - m) * (v - m)
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

func mapValues(m map[string]int) []int {
	values := make([]int, 0, len(m))
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		values = append(values, m[k])
	}
	return values
}
