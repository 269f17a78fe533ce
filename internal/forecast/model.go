package forecast

import (
	"errors"
	"math"
	"time"
)

// ModelName identifies the estimator in persisted forecasts.
const ModelName = "ridge-v1"

const (
	// ridgeLambda keeps the normal equations well conditioned even when
	// day-of-week dummies are collinear with short histories.
	ridgeLambda = 1.0
	// zScore is the 95% confidence multiplier.
	zScore = 1.96
)

// Model is a fitted per-product demand estimator. Fitting and prediction are
// fully deterministic: identical input series always produce identical output.
type Model struct {
	weights     []float64
	residualStd float64
	history     []float64
	lastDate    time.Time
	trainedLen  int
}

// ErrDegenerateSeries indicates the series cannot support a fit.
var ErrDegenerateSeries = errors.New("forecast: degenerate series")

// Fit estimates ridge-regression weights over calendar and lag features of the
// daily series.
func Fit(series []DailyPoint) (*Model, error) {
	n := len(series)
	if n < 2 {
		return nil, ErrDegenerateSeries
	}
	quantities := make([]float64, n)
	for i, p := range series {
		quantities[i] = p.Quantity
	}

	rows := make([][]float64, n)
	targets := make([]float64, n)
	for t := 0; t < n; t++ {
		rows[t] = featureVector(series[t].Date, t, quantities[:t])
		targets[t] = quantities[t]
	}

	weights, err := solveRidge(rows, targets, ridgeLambda)
	if err != nil {
		return nil, err
	}

	var sse float64
	for t := 0; t < n; t++ {
		residual := targets[t] - dot(weights, rows[t])
		sse += residual * residual
	}
	return &Model{
		weights:     weights,
		residualStd: math.Sqrt(sse / float64(n)),
		history:     quantities,
		lastDate:    series[n-1].Date,
		trainedLen:  n,
	}, nil
}

// ResidualStd exposes the in-sample residual standard deviation.
func (m *Model) ResidualStd() float64 {
	return m.residualStd
}

// Predict produces point estimates with confidence bands for the given horizon.
// Predictions feed back into lag features for subsequent days. The band
// half-width grows as sqrt of the day offset, so uncertainty never shrinks
// with forecast distance.
func (m *Model) Predict(horizon int) []Point {
	if horizon <= 0 {
		return nil
	}
	extended := make([]float64, len(m.history), len(m.history)+horizon)
	copy(extended, m.history)

	points := make([]Point, 0, horizon)
	for h := 1; h <= horizon; h++ {
		date := m.lastDate.AddDate(0, 0, h)
		t := m.trainedLen + h - 1
		x := featureVector(date, t, extended)
		predicted := math.Max(0, dot(m.weights, x))
		width := zScore * m.residualStd * math.Sqrt(float64(h))
		points = append(points, Point{
			Date:      date,
			Predicted: predicted,
			Lower:     math.Max(0, predicted-width),
			Upper:     predicted + width,
		})
		extended = append(extended, predicted)
	}
	return points
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// solveRidge solves (XᵀX + λI)w = Xᵀy by Gaussian elimination with partial
// pivoting. The intercept column is not penalised.
func solveRidge(rows [][]float64, targets []float64, lambda float64) ([]float64, error) {
	k := featureCount
	ata := make([][]float64, k)
	atb := make([]float64, k)
	for i := 0; i < k; i++ {
		ata[i] = make([]float64, k)
	}
	for r, row := range rows {
		for i := 0; i < k; i++ {
			atb[i] += row[i] * targets[r]
			for j := i; j < k; j++ {
				ata[i][j] += row[i] * row[j]
			}
		}
	}
	for i := 0; i < k; i++ {
		for j := 0; j < i; j++ {
			ata[i][j] = ata[j][i]
		}
		if i > 0 {
			ata[i][i] += lambda
		}
	}
	return solveLinear(ata, atb)
}

func solveLinear(a [][]float64, b []float64) ([]float64, error) {
	n := len(b)
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return nil, ErrDegenerateSeries
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]
		for r := col + 1; r < n; r++ {
			factor := a[r][col] / a[col][col]
			for c := col; c < n; c++ {
				a[r][c] -= factor * a[col][c]
			}
			b[r] -= factor * b[col]
		}
	}
	solution := make([]float64, n)
	for row := n - 1; row >= 0; row-- {
		sum := b[row]
		for c := row + 1; c < n; c++ {
			sum -= a[row][c] * solution[c]
		}
		solution[row] = sum / a[row][row]
	}
	return solution, nil
}
