package alerting

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/stockpilot/stockpilot/internal/catalog"
)

// RuleConfig holds evaluation thresholds.
type RuleConfig struct {
	// OverstockDays is the days-of-supply ceiling above which OVERSTOCK fires.
	OverstockDays float64
}

// noDemandDaysOfSupply stands in for days-of-supply when average demand is
// zero: effectively unlimited coverage.
const noDemandDaysOfSupply = 999

// Candidate is a triggering condition detected for a product, before
// idempotence against existing alerts is applied.
type Candidate struct {
	Type              Type
	Severity          Severity
	Message           string
	RecommendedAction string
}

var printer = message.NewPrinter(language.English)

// EvaluateRules classifies a product against the rule thresholds. Conditions
// are checked in strict priority order and at most one fires per cycle, so a
// product never carries both STOCKOUT_WARNING and LOW_STOCK from the same
// evaluation. hasForecast=false restricts evaluation to static thresholds.
func EvaluateRules(snap catalog.Snapshot, avgDailyDemand float64, hasForecast bool, cfg RuleConfig) []Candidate {
	if !hasForecast {
		if snap.CurrentStock <= snap.ReorderPoint {
			return []Candidate{lowStock(snap)}
		}
		return nil
	}

	daysOfStock := float64(noDemandDaysOfSupply)
	if avgDailyDemand > 0 {
		daysOfStock = float64(snap.CurrentStock) / avgDailyDemand
	}

	switch {
	case avgDailyDemand > 0 && daysOfStock < float64(snap.LeadTimeDays):
		return []Candidate{stockoutWarning(snap, daysOfStock)}
	case snap.CurrentStock <= snap.ReorderPoint:
		return []Candidate{lowStock(snap)}
	case avgDailyDemand > 0 && daysOfStock < float64(snap.LeadTimeDays)+float64(snap.SafetyStock)/avgDailyDemand:
		return []Candidate{reorderReminder(snap, daysOfStock)}
	case cfg.OverstockDays > 0 && daysOfStock >= cfg.OverstockDays:
		return []Candidate{overstock(snap, daysOfStock)}
	}
	return nil
}

func stockoutWarning(snap catalog.Snapshot, daysOfStock float64) Candidate {
	return Candidate{
		Type:     TypeStockoutWarning,
		Severity: SeverityFor(TypeStockoutWarning),
		Message: printer.Sprintf("Only %.1f days of stock remaining (%d units); supplier lead time is %d days.",
			daysOfStock, snap.CurrentStock, snap.LeadTimeDays),
		RecommendedAction: printer.Sprintf("Order immediately: projected depletion before a replenishment placed today would arrive."),
	}
}

func lowStock(snap catalog.Snapshot) Candidate {
	return Candidate{
		Type:     TypeLowStock,
		Severity: SeverityFor(TypeLowStock),
		Message: printer.Sprintf("Stock level %d is at or below the reorder point %d.",
			snap.CurrentStock, snap.ReorderPoint),
		RecommendedAction: "Place a replenishment order soon.",
	}
}

func reorderReminder(snap catalog.Snapshot, daysOfStock float64) Candidate {
	return Candidate{
		Type:     TypeReorderReminder,
		Severity: SeverityFor(TypeReorderReminder),
		Message: printer.Sprintf("Projected %.1f days of stock, inside the lead time plus safety buffer window.",
			daysOfStock),
		RecommendedAction: printer.Sprintf("Schedule a replenishment within the next %d days.", snap.LeadTimeDays),
	}
}

func overstock(snap catalog.Snapshot, daysOfStock float64) Candidate {
	days := printer.Sprintf("%.0f", daysOfStock)
	if daysOfStock >= noDemandDaysOfSupply {
		days = "999+"
	}
	return Candidate{
		Type:     TypeOverstock,
		Severity: SeverityFor(TypeOverstock),
		Message: printer.Sprintf("Stock level %d covers %s days of projected demand.",
			snap.CurrentStock, days),
		RecommendedAction: "Review ordering patterns and reduce upcoming purchase quantities.",
	}
}
