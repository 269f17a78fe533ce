package alerting

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Type enumerates alert conditions.
type Type string

const (
	// TypeStockoutWarning fires when stock will deplete inside the lead time.
	TypeStockoutWarning Type = "STOCKOUT_WARNING"
	// TypeLowStock fires when stock is at or below the reorder point.
	TypeLowStock Type = "LOW_STOCK"
	// TypeReorderReminder is the early-warning band ahead of LOW_STOCK.
	TypeReorderReminder Type = "REORDER_REMINDER"
	// TypeOverstock fires when days of supply exceed the configured ceiling.
	TypeOverstock Type = "OVERSTOCK"
)

// Severity enumerates alert severities. Each Type maps to exactly one.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// SeverityFor returns the fixed severity for an alert type.
func SeverityFor(t Type) Severity {
	switch t {
	case TypeStockoutWarning:
		return SeverityCritical
	case TypeLowStock:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// Status enumerates alert lifecycle states.
type Status string

const (
	StatusActive       Status = "active"
	StatusAcknowledged Status = "acknowledged"
	StatusDismissed    Status = "dismissed"
)

// Terminal reports whether the status ends the alert lifecycle. A product can
// get a fresh alert of the same type only once the previous one is terminal.
func (s Status) Terminal() bool {
	return s == StatusDismissed
}

// CanTransition reports whether the operator transition from -> to is legal.
func CanTransition(from, to Status) bool {
	switch {
	case from == StatusActive && to == StatusAcknowledged:
		return true
	case from == StatusActive && to == StatusDismissed:
		return true
	case from == StatusAcknowledged && to == StatusDismissed:
		return true
	default:
		return false
	}
}

// Alert is a raised condition for one product. Alerts are never deleted; the
// lifecycle ends in dismissal.
type Alert struct {
	ID                uuid.UUID `json:"id"`
	ProductID         int64     `json:"product_id"`
	Type              Type      `json:"type"`
	Severity          Severity  `json:"severity"`
	Message           string    `json:"message"`
	RecommendedAction string    `json:"recommended_action"`
	Status            Status    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Skip records a product excluded from demand-based evaluation.
type Skip struct {
	ProductID int64  `json:"product_id"`
	Reason    string `json:"reason"`
}

// Report is the outcome of one evaluation pass.
type Report struct {
	Created []Alert `json:"created"`
	Skipped []Skip  `json:"skipped"`
}

var (
	// ErrNotFound indicates the alert id does not resolve.
	ErrNotFound = errors.New("alerting: alert not found")
	// ErrInvalidTransition indicates an illegal status change.
	ErrInvalidTransition = errors.New("alerting: invalid status transition")
)
