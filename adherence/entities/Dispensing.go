package entities

import (
	"sort"
	"time"
)

// DispensingSource tags where a dispensing record came from.
type DispensingSource string

const (
	SourceImported DispensingSource = "imported"
	SourceManual   DispensingSource = "manual"
)

// DispensingMoment is one recorded event of a pharmacy releasing a given
// package quantity to the patient on a given date. ID is only set for
// manual entries, which must be deletable later.
type DispensingMoment struct {
	ID     string           `json:"id,omitempty"`
	Date   time.Time        `json:"date"`
	Amount int              `json:"amount"`
	Source DispensingSource `json:"source"`
}

// ManualDispensing is a user-entered dispensing event before it is merged
// into the group of its product code. It survives re-imports until the
// user deletes it by ID.
type ManualDispensing struct {
	ID          string    `json:"id"`
	Cnk         string    `json:"cnk"`
	Description string    `json:"description,omitempty"`
	Date        time.Time `json:"date"`
	Amount      int       `json:"amount"`
}

// Moment converts the manual entry into a dispensing moment.
func (m ManualDispensing) Moment() DispensingMoment {
	return DispensingMoment{
		ID:     m.ID,
		Date:   m.Date,
		Amount: m.Amount,
		Source: SourceManual,
	}
}

// DispensingGroup collects all dispensing moments recorded under one
// product code. Moments are kept in ascending date order; multiple
// moments may land on the same calendar day.
type DispensingGroup struct {
	Cnk         string             `json:"cnk"`
	Vmp         VMPCode            `json:"vmp,omitempty"`
	Description string             `json:"description"`
	Moments     []DispensingMoment `json:"moments"`
}

// SortMoments restores the ascending date invariant after moments have
// been appended out of order. The sort is stable so same-day moments keep
// their insertion order.
func (g *DispensingGroup) SortMoments() {
	sort.SliceStable(g.Moments, func(i, j int) bool {
		return g.Moments[i].Date.Before(g.Moments[j].Date)
	})
}

// FirstDate returns the date of the earliest moment, or a zero time when
// the group is empty.
func (g *DispensingGroup) FirstDate() time.Time {
	if len(g.Moments) == 0 {
		return time.Time{}
	}
	return g.Moments[0].Date
}

// LastDate returns the date of the latest moment, or a zero time when the
// group is empty.
func (g *DispensingGroup) LastDate() time.Time {
	if len(g.Moments) == 0 {
		return time.Time{}
	}
	return g.Moments[len(g.Moments)-1].Date
}
