package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// MatchKind records how a medication was paired with its dispensing data.
type MatchKind string

const (
	MatchByVmp MatchKind = "vmp"
	MatchByCnk MatchKind = "cnk"
	MatchNone  MatchKind = "none"
)

// MatchedMedication pairs a prescribed medication with at most one
// dispensing group. UnitsPerPackage defaults from the medication's
// package size and can be adjusted by the user afterwards; zero means
// "not yet specified" and suppresses simulation.
type MatchedMedication struct {
	Medication      PrescribedMedication `json:"medication"`
	Group           *DispensingGroup     `json:"group,omitempty"`
	UnitsPerPackage decimal.Decimal      `json:"unitsPerPackage"`
	Kind            MatchKind            `json:"matchKind"`
}

// StockStatus classifies one simulated day for chart coloring.
type StockStatus string

const (
	StatusSufficient StockStatus = "sufficient"
	StatusDepleted   StockStatus = "depleted"
	StatusOversupply StockStatus = "oversupply"
)

// StockPoint is one simulated calendar day. Stock is never negative.
type StockPoint struct {
	Date   time.Time       `json:"date"`
	Stock  decimal.Decimal `json:"stock"`
	Status StockStatus     `json:"status"`
}

// NoTimelineReason explains why a medication produced no stock series.
type NoTimelineReason string

const (
	ReasonNoDispensingData  NoTimelineReason = "no_dispensing_data"
	ReasonPackageSizeNotSet NoTimelineReason = "package_size_not_set"
	ReasonNoUsageRate       NoTimelineReason = "no_usage_rate"
	ReasonAsNeeded          NoTimelineReason = "as_needed"
)

// Timeline is the simulated stock series for one medication, or the
// reason there is none. An absent series is a normal state, not an error.
type Timeline struct {
	MedicationID string           `json:"medicationId"`
	Name         string           `json:"name"`
	Points       []StockPoint     `json:"points"`
	Reason       NoTimelineReason `json:"reason,omitempty"`
}

// HasData reports whether the timeline carries simulated points.
func (t Timeline) HasData() bool { return len(t.Points) > 0 }
