package adherence

import (
	"testing"
	"time"

	"github.com/giygas/adherence-api/adherence/entities"
)

func groupWithDates(dates ...time.Time) entities.DispensingGroup {
	g := entities.DispensingGroup{Cnk: "1234567"}
	for _, d := range dates {
		g.Moments = append(g.Moments, entities.DispensingMoment{
			Date: d, Amount: 1, Source: entities.SourceImported,
		})
	}
	g.SortMoments()
	return g
}

// TestViewWindowPadsDispensingRange verifies the seven-day padding on
// each side and the extension of the right edge to today.
func TestViewWindowPadsDispensingRange(t *testing.T) {
	first := day(2025, time.March, 10)
	last := day(2025, time.April, 10)
	groups := []entities.DispensingGroup{groupWithDates(first, last)}

	t.Run("now inside padded range", func(t *testing.T) {
		now := day(2025, time.April, 1)
		w := ComputeViewWindow(groups, now, WindowOptions{})

		if !w.Start.Equal(first.AddDate(0, 0, -7)) {
			t.Errorf("Expected start %s, got %s", first.AddDate(0, 0, -7), w.Start)
		}
		if !w.End.Equal(last.AddDate(0, 0, 7)) {
			t.Errorf("Expected end %s, got %s", last.AddDate(0, 0, 7), w.End)
		}
	})

	t.Run("dispensing data predates now", func(t *testing.T) {
		now := day(2025, time.June, 1)
		w := ComputeViewWindow(groups, now, WindowOptions{})

		if !w.End.Equal(now) {
			t.Errorf("Expected end extended to today %s, got %s", now, w.End)
		}
	})
}

// TestViewWindowZoomAndPan covers the narrowing arithmetic: a 100-day
// range at zoom 0.25 and pan 50 shows 25 days starting 37.5 days in.
func TestViewWindowZoomAndPan(t *testing.T) {
	// 86 days of dispensing + 7 padding each side = a 100-day range.
	first := day(2025, time.January, 8)
	last := first.AddDate(0, 0, 86)
	groups := []entities.DispensingGroup{groupWithDates(first, last)}
	now := day(2025, time.March, 1)

	w := ComputeViewWindow(groups, now, WindowOptions{Zoom: 0.25, Pan: 50})

	rangeStart := first.AddDate(0, 0, -7)
	expectedStart := rangeStart.Add(time.Duration(37.5 * 24 * float64(time.Hour)))
	expectedEnd := expectedStart.Add(25 * 24 * time.Hour)

	if !w.Start.Equal(expectedStart) {
		t.Errorf("Expected start %s, got %s", expectedStart, w.Start)
	}
	if !w.End.Equal(expectedEnd) {
		t.Errorf("Expected end %s, got %s", expectedEnd, w.End)
	}
}

// TestViewWindowFiltersOnlyNarrow verifies that date filters can never
// widen the computed range.
func TestViewWindowFiltersOnlyNarrow(t *testing.T) {
	first := day(2025, time.March, 10)
	last := day(2025, time.March, 30)
	groups := []entities.DispensingGroup{groupWithDates(first, last)}
	now := day(2025, time.March, 20)

	t.Run("filter inside range narrows", func(t *testing.T) {
		from := day(2025, time.March, 15)
		to := day(2025, time.March, 25)
		w := ComputeViewWindow(groups, now, WindowOptions{From: &from, To: &to})

		if !w.Start.Equal(from) || !w.End.Equal(to) {
			t.Errorf("Expected window [%s, %s], got [%s, %s]", from, to, w.Start, w.End)
		}
	})

	t.Run("filter outside range is ignored", func(t *testing.T) {
		from := day(2025, time.January, 1)
		to := day(2025, time.December, 31)
		w := ComputeViewWindow(groups, now, WindowOptions{From: &from, To: &to})

		if !w.Start.Equal(first.AddDate(0, 0, -7)) {
			t.Errorf("Expected unwidened start, got %s", w.Start)
		}
		if !w.End.Equal(last.AddDate(0, 0, 7)) {
			t.Errorf("Expected unwidened end, got %s", w.End)
		}
	})
}

// TestViewWindowReset verifies that zoom 1 / pan 0 restores the full
// range, which leaves no unused range for panning.
func TestViewWindowReset(t *testing.T) {
	first := day(2025, time.March, 10)
	groups := []entities.DispensingGroup{groupWithDates(first, first.AddDate(0, 0, 20))}
	now := day(2025, time.March, 25)

	full := ComputeViewWindow(groups, now, WindowOptions{})
	reset := ComputeViewWindow(groups, now, WindowOptions{Zoom: 1, Pan: 0})
	panned := ComputeViewWindow(groups, now, WindowOptions{Zoom: 1, Pan: 100})

	if !reset.Start.Equal(full.Start) || !reset.End.Equal(full.End) {
		t.Error("Expected reset to restore the full window")
	}
	if !panned.Start.Equal(full.Start) || !panned.End.Equal(full.End) {
		t.Error("Expected panning to be a no-op at zoom 1")
	}
}

// TestViewWindowMinimumSpan verifies the window always spans at least a
// full day, with and without dispensing data.
func TestViewWindowMinimumSpan(t *testing.T) {
	now := day(2025, time.March, 20)

	t.Run("no dispensing data", func(t *testing.T) {
		w := ComputeViewWindow(nil, now, WindowOptions{})
		if w.End.Sub(w.Start) < 24*time.Hour {
			t.Errorf("Expected at least one day, got %s", w.End.Sub(w.Start))
		}
	})

	t.Run("extreme zoom", func(t *testing.T) {
		groups := []entities.DispensingGroup{groupWithDates(day(2025, time.March, 10))}
		w := ComputeViewWindow(groups, now, WindowOptions{Zoom: 0.001})
		if w.End.Sub(w.Start) < 24*time.Hour {
			t.Errorf("Expected at least one day, got %s", w.End.Sub(w.Start))
		}
	})
}
