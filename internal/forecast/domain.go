package forecast

import (
	"errors"
	"time"
)

// Point is a one-day demand prediction with its confidence band.
// Invariant: 0 <= Lower <= Predicted <= Upper.
type Point struct {
	Date      time.Time `json:"date"`
	Predicted float64   `json:"predicted_quantity"`
	Lower     float64   `json:"confidence_lower"`
	Upper     float64   `json:"confidence_upper"`
}

// Forecast is a freshly derived demand projection for one product. Aggregates
// are methods rather than fields so they can never drift from Points.
type Forecast struct {
	ProductID   int64     `json:"product_id"`
	ModelName   string    `json:"model_name"`
	GeneratedAt time.Time `json:"generated_at"`
	HorizonDays int       `json:"horizon_days"`
	Points      []Point   `json:"points"`
}

// TotalDemand sums predicted quantities over the horizon.
func (f Forecast) TotalDemand() float64 {
	var total float64
	for _, p := range f.Points {
		total += p.Predicted
	}
	return total
}

// AvgDailyDemand is the mean predicted quantity per day of the horizon.
func (f Forecast) AvgDailyDemand() float64 {
	if len(f.Points) == 0 {
		return 0
	}
	return f.TotalDemand() / float64(len(f.Points))
}

// Peak returns the date and quantity of the highest predicted day. Ties keep
// the earliest date.
func (f Forecast) Peak() (time.Time, float64) {
	var peakDate time.Time
	var peakQty float64
	for i, p := range f.Points {
		if i == 0 || p.Predicted > peakQty {
			peakDate = p.Date
			peakQty = p.Predicted
		}
	}
	return peakDate, peakQty
}

// Result carries the per-product outcome of a batch run.
type Result struct {
	Forecast *Forecast
	Err      error
}

var (
	// ErrUnknownProduct indicates the product id does not resolve.
	ErrUnknownProduct = errors.New("forecast: unknown product")
	// ErrInsufficientHistory indicates too little sales coverage to fit a model.
	ErrInsufficientHistory = errors.New("forecast: insufficient sales history")
	// ErrTimeout indicates the fit exceeded its time budget.
	ErrTimeout = errors.New("forecast: fit timed out")
)
