package sales

import "time"

// Observation is a single recorded sale. Immutable once recorded; multiple
// observations may exist for the same (product, date) and are aggregated by
// consumers before model fitting.
type Observation struct {
	ProductID int64     `json:"product_id"`
	Date      time.Time `json:"date"`
	Quantity  int64     `json:"quantity"`
	UnitPrice float64   `json:"unit_price"`
}

// Revenue returns the revenue contributed by the observation.
func (o Observation) Revenue() float64 {
	return float64(o.Quantity) * o.UnitPrice
}

// Range bounds an observation query. Zero values mean unbounded.
type Range struct {
	From time.Time
	To   time.Time
}
