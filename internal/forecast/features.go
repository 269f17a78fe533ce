package forecast

import "time"

// featureCount is the width of the design matrix: intercept, scaled trend,
// six day-of-week dummies (Sunday is the baseline), lag-1, lag-7, and rolling
// means over 7 and 28 days.
const featureCount = 12

// featureVector builds the regressor row for the day at absolute index t.
// history holds daily quantities for indices [0, t); lags and rolling windows
// that reach before the start of history contribute zero, matching the
// zero-fill applied when the series was built.
func featureVector(date time.Time, t int, history []float64) []float64 {
	x := make([]float64, featureCount)
	x[0] = 1
	x[1] = float64(t) / 365.0
	if dow := int(date.Weekday()); dow > 0 {
		x[1+dow] = 1 // positions 2..7 cover Monday..Saturday
	}
	x[8] = lag(history, 1)
	x[9] = lag(history, 7)
	x[10] = rollingMean(history, 7)
	x[11] = rollingMean(history, 28)
	return x
}

func lag(history []float64, k int) float64 {
	if len(history) < k {
		return 0
	}
	return history[len(history)-k]
}

func rollingMean(history []float64, window int) float64 {
	if len(history) == 0 {
		return 0
	}
	if window > len(history) {
		window = len(history)
	}
	var sum float64
	for _, v := range history[len(history)-window:] {
		sum += v
	}
	return sum / float64(window)
}
