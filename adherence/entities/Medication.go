// Package entities defines the domain entities shared by the adherence
// engine, the import parser and the HTTP layer.
package entities

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// VMPCode is the canonical grouping code shared by all package variants of
// clinically equivalent medication. Upstream systems deliver it either as a
// JSON number or as a numeric string, so the tolerance lives here, once, at
// the unmarshalling boundary. Zero means unknown.
type VMPCode int64

func (v *VMPCode) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` || s == "" {
		*v = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid VMP code %q: %w", s, err)
	}
	*v = VMPCode(n)
	return nil
}

// IsKnown reports whether the code carries a real value.
func (v VMPCode) IsKnown() bool { return v > 0 }

// DoseSchedule holds the prescribed quantities per time of day.
// Quantities are decimals because half and quarter units are common.
type DoseSchedule struct {
	BeforeBreakfast decimal.Decimal `json:"beforeBreakfast"`
	DuringBreakfast decimal.Decimal `json:"duringBreakfast"`
	Lunch           decimal.Decimal `json:"lunch"`
	Dinner          decimal.Decimal `json:"dinner"`
	Bedtime         decimal.Decimal `json:"bedtime"`
}

// DailyUsage returns the total units consumed per day.
func (d DoseSchedule) DailyUsage() decimal.Decimal {
	return d.BeforeBreakfast.
		Add(d.DuringBreakfast).
		Add(d.Lunch).
		Add(d.Dinner).
		Add(d.Bedtime)
}

// PrescribedMedication is one line of the patient's medication schedule.
type PrescribedMedication struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Cnk         string          `json:"cnk,omitempty"`
	Vmp         VMPCode         `json:"vmp,omitempty"`
	Doses       DoseSchedule    `json:"doses"`
	AsNeeded    bool            `json:"asNeeded"`
	PackageSize decimal.Decimal `json:"packageSize"`
}

// NormalizeCNK strips the separators pharmacy software likes to insert
// into CNK codes (dots, dashes, spaces) so codes compare as plain digits.
func NormalizeCNK(cnk string) string {
	var b strings.Builder
	b.Grow(len(cnk))
	for _, r := range cnk {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
