package adherence

import (
	"testing"
	"time"

	"github.com/giygas/adherence-api/adherence/entities"
)

// TestChartScaleSharedAcrossMedications verifies that two medications
// peaking at 10 and 25 both render against ceil(25 * 1.2) = 30.
func TestChartScaleSharedAcrossMedications(t *testing.T) {
	start := day(2025, time.March, 3)

	low := BuildTimeline(matchedMed("1", "10", moment(start, 1)), start)
	high := BuildTimeline(matchedMed("1", "25", moment(start, 1)), start)

	scale := ChartScale([]entities.Timeline{low, high})
	if scale != 30 {
		t.Errorf("Expected shared scale 30, got %d", scale)
	}
}

// TestChartScaleRoundsUp verifies the ceiling on fractional headroom.
func TestChartScaleRoundsUp(t *testing.T) {
	tests := []struct {
		name     string
		maxStock string
		expected int64
	}{
		{"exact multiple", "25", 30},
		{"rounds up", "7", 9},         // 7 * 1.2 = 8.4
		{"fractional peak", "4.5", 6}, // 4.5 * 1.2 = 5.4
		{"single unit", "1", 2},       // 1 * 1.2 = 1.2
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timeline := entities.Timeline{
				MedicationID: "m",
				Points: []entities.StockPoint{
					{Date: day(2025, time.March, 3), Stock: dec(tt.maxStock), Status: entities.StatusSufficient},
				},
			}

			if got := ChartScale([]entities.Timeline{timeline}); got != tt.expected {
				t.Errorf("Expected scale %d, got %d", tt.expected, got)
			}
		})
	}
}

// TestChartScaleSkipsEmptyTimelines verifies that medications without
// usable dispensing data do not affect the maximum.
func TestChartScaleSkipsEmptyTimelines(t *testing.T) {
	start := day(2025, time.March, 3)

	simulated := BuildTimeline(matchedMed("1", "10", moment(start, 1)), start)
	empty := entities.Timeline{MedicationID: "x", Reason: entities.ReasonNoDispensingData}

	scale := ChartScale([]entities.Timeline{simulated, empty})
	if scale != 12 {
		t.Errorf("Expected scale 12 from the only simulated timeline, got %d", scale)
	}
}

// TestChartScaleNoData verifies the zero scale when nothing simulated.
func TestChartScaleNoData(t *testing.T) {
	if got := ChartScale(nil); got != 0 {
		t.Errorf("Expected 0, got %d", got)
	}
	if got := ChartScale([]entities.Timeline{{MedicationID: "x"}}); got != 0 {
		t.Errorf("Expected 0 for empty timelines, got %d", got)
	}
}
