package forecast

import (
	"sort"
	"time"

	"github.com/stockpilot/stockpilot/internal/sales"
)

// DailyPoint is one day of aggregated demand.
type DailyPoint struct {
	Date     time.Time
	Quantity float64
	Revenue  float64
}

// BuildDailySeries aggregates raw observations into a contiguous daily series.
// Duplicate (product, date) observations are summed, and interior days without
// sales become explicit zero-demand points: stockouts and slow days are signal,
// not gaps to interpolate over.
func BuildDailySeries(observations []sales.Observation) []DailyPoint {
	if len(observations) == 0 {
		return nil
	}
	byDay := make(map[time.Time]DailyPoint)
	for _, obs := range observations {
		day := midnightUTC(obs.Date)
		point := byDay[day]
		point.Date = day
		point.Quantity += float64(obs.Quantity)
		point.Revenue += obs.Revenue()
		byDay[day] = point
	}
	days := make([]time.Time, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	first, last := days[0], days[len(days)-1]
	n := int(last.Sub(first).Hours()/24) + 1
	series := make([]DailyPoint, 0, n)
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		if point, ok := byDay[day]; ok {
			series = append(series, point)
			continue
		}
		series = append(series, DailyPoint{Date: day})
	}
	return series
}

func midnightUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
