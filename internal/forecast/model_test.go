package forecast

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// weeklySeries builds n days with a repeating weekly demand pattern.
func weeklySeries(n int) []DailyPoint {
	pattern := []float64{12, 8, 9, 10, 11, 20, 25}
	start := day(2026, 1, 5)
	series := make([]DailyPoint, 0, n)
	for i := 0; i < n; i++ {
		series = append(series, DailyPoint{
			Date:     start.AddDate(0, 0, i),
			Quantity: pattern[i%len(pattern)],
		})
	}
	return series
}

func TestFitRejectsTinySeries(t *testing.T) {
	_, err := Fit(weeklySeries(1))
	require.ErrorIs(t, err, ErrDegenerateSeries)
}

func TestPredictBandInvariants(t *testing.T) {
	model, err := Fit(weeklySeries(60))
	require.NoError(t, err)

	points := model.Predict(30)
	require.Len(t, points, 30)

	prevWidth := -1.0
	for i, p := range points {
		require.GreaterOrEqual(t, p.Predicted, 0.0, "day %d", i)
		require.GreaterOrEqual(t, p.Lower, 0.0, "day %d", i)
		require.LessOrEqual(t, p.Lower, p.Predicted, "day %d", i)
		require.GreaterOrEqual(t, p.Upper, p.Predicted, "day %d", i)

		width := p.Upper - p.Predicted
		require.GreaterOrEqual(t, width, prevWidth, "band width must not shrink with distance")
		prevWidth = width
	}
}

func TestPredictDatesAreConsecutive(t *testing.T) {
	series := weeklySeries(30)
	model, err := Fit(series)
	require.NoError(t, err)

	points := model.Predict(14)
	last := series[len(series)-1].Date
	for i, p := range points {
		require.Equal(t, last.AddDate(0, 0, i+1), p.Date)
	}
}

func TestPredictDeterministic(t *testing.T) {
	first, err := Fit(weeklySeries(45))
	require.NoError(t, err)
	second, err := Fit(weeklySeries(45))
	require.NoError(t, err)

	a := first.Predict(21)
	b := second.Predict(21)
	require.Equal(t, len(a), len(b))
	for i := range a {
		require.Equal(t, a[i].Predicted, b[i].Predicted, "day %d", i)
		require.Equal(t, a[i].Lower, b[i].Lower, "day %d", i)
		require.Equal(t, a[i].Upper, b[i].Upper, "day %d", i)
	}
}

func TestPredictClampsNegative(t *testing.T) {
	// Steeply declining demand drives the linear trend below zero inside the
	// horizon; predictions must floor at zero instead.
	start := day(2026, 1, 5)
	series := make([]DailyPoint, 0, 40)
	for i := 0; i < 40; i++ {
		qty := math.Max(0, 40-float64(i))
		series = append(series, DailyPoint{Date: start.AddDate(0, 0, i), Quantity: qty})
	}
	model, err := Fit(series)
	require.NoError(t, err)

	for _, p := range model.Predict(120) {
		require.GreaterOrEqual(t, p.Predicted, 0.0)
		require.GreaterOrEqual(t, p.Lower, 0.0)
	}
}

func TestPredictZeroHorizon(t *testing.T) {
	model, err := Fit(weeklySeries(30))
	require.NoError(t, err)
	require.Nil(t, model.Predict(0))
}

func TestForecastAggregates(t *testing.T) {
	peakDay := day(2026, 4, 2)
	f := Forecast{Points: []Point{
		{Date: day(2026, 4, 1), Predicted: 4},
		{Date: peakDay, Predicted: 10},
		{Date: day(2026, 4, 3), Predicted: 10},
		{Date: day(2026, 4, 4), Predicted: 6},
	}}

	require.InDelta(t, 30.0, f.TotalDemand(), 1e-9)
	require.InDelta(t, 7.5, f.AvgDailyDemand(), 1e-9)

	date, qty := f.Peak()
	require.Equal(t, peakDay, date, "ties keep the earliest date")
	require.InDelta(t, 10.0, qty, 1e-9)
}

func TestForecastAggregatesEmpty(t *testing.T) {
	var f Forecast
	require.Zero(t, f.TotalDemand())
	require.Zero(t, f.AvgDailyDemand())
	date, qty := f.Peak()
	require.True(t, date.Equal(time.Time{}))
	require.Zero(t, qty)
}
