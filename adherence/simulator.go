package adherence

import (
	"time"

	"github.com/giygas/adherence-api/adherence/entities"
	"github.com/shopspring/decimal"
)

// simulationTail is how far the simulation extends past the last
// dispensing day, so the chart shows the projected run-out.
const simulationTail = 90

// dayKeyFormat keys dispensing totals by calendar day, which makes the
// simulation independent of the input order of the moments.
const dayKeyFormat = "2006-01-02"

// dayOf normalizes a timestamp to midnight of its own calendar day,
// eliminating time-of-day and timezone artifacts from imported dates.
func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// BuildTimeline simulates one matched medication, or explains why no
// simulation is possible. An absent timeline is a normal state driven by
// the data, never an error.
func BuildTimeline(m entities.MatchedMedication, now time.Time) entities.Timeline {
	timeline := entities.Timeline{
		MedicationID: m.Medication.ID,
		Name:         m.Medication.Name,
	}

	switch {
	case m.Medication.AsNeeded:
		// As-needed medication has no defined usage rate.
		timeline.Reason = entities.ReasonAsNeeded
	case m.Group == nil || len(m.Group.Moments) == 0:
		timeline.Reason = entities.ReasonNoDispensingData
	case !m.UnitsPerPackage.IsPositive():
		// User-actionable: set the package size to enable simulation.
		timeline.Reason = entities.ReasonPackageSizeNotSet
	case !m.Medication.Doses.DailyUsage().IsPositive():
		timeline.Reason = entities.ReasonNoUsageRate
	default:
		timeline.Points = SimulateStock(m, now)
	}

	return timeline
}

// SimulateStock produces the dense daily stock series for a matched
// medication, from the first dispensing day through the later of (last
// dispensing day + 90 days) or today. The caller must have checked the
// preconditions (positive usage rate and units per package, at least one
// dispensing moment); BuildTimeline does.
//
// The status of a day is evaluated after that day's dispensing has been
// added but before that day's usage is subtracted. A day on which stock
// reaches exactly zero through consumption is therefore still sufficient,
// and depleted only begins the following day. The chart's color
// transitions depend on this exact ordering.
func SimulateStock(m entities.MatchedMedication, now time.Time) []entities.StockPoint {
	usage := m.Medication.Doses.DailyUsage()

	// Accumulate dispensed units per calendar day. Same-day moments add up.
	dispensed := make(map[string]decimal.Decimal, len(m.Group.Moments))
	var first, last time.Time
	for _, moment := range m.Group.Moments {
		day := dayOf(moment.Date)
		units := decimal.NewFromInt(int64(moment.Amount)).Mul(m.UnitsPerPackage)
		key := day.Format(dayKeyFormat)
		dispensed[key] = dispensed[key].Add(units)

		if first.IsZero() || day.Before(first) {
			first = day
		}
		if day.After(last) {
			last = day
		}
	}

	end := last.AddDate(0, 0, simulationTail)
	if today := dayOf(now); today.After(end) {
		end = today
	}

	currentStock := decimal.Zero
	oversupplyUntilDay := -1
	points := make([]entities.StockPoint, 0, int(end.Sub(first).Hours()/24)+1)

	dayIndex := 0
	for day := first; !day.After(end); day = day.AddDate(0, 0, 1) {
		stockBeforeDispensing := currentStock

		if units, ok := dispensed[day.Format(dayKeyFormat)]; ok {
			currentStock = currentStock.Add(units)
			if stockBeforeDispensing.IsPositive() {
				// A delivery landed on leftover stock: the leftover
				// extends usable supply past the nominal run-out day.
				daysOfOversupply := stockBeforeDispensing.Div(usage).IntPart()
				oversupplyUntilDay = dayIndex + int(daysOfOversupply)
			}
		}

		status := entities.StatusSufficient
		switch {
		case !currentStock.IsPositive():
			status = entities.StatusDepleted
		case dayIndex <= oversupplyUntilDay:
			status = entities.StatusOversupply
		}

		points = append(points, entities.StockPoint{
			Date:   day,
			Stock:  decimal.Max(decimal.Zero, currentStock),
			Status: status,
		})

		// End-of-day consumption. A patient cannot hold negative stock.
		currentStock = currentStock.Sub(usage)
		if currentStock.IsNegative() {
			currentStock = decimal.Zero
		}

		dayIndex++
	}

	return points
}
