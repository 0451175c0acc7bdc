package adherence

import (
	"time"

	"github.com/giygas/adherence-api/adherence/entities"
)

// windowPadding is the slack added on each side of the dispensing range
// so first and last deliveries do not sit on the chart edges.
const windowPadding = 7

// WindowOptions carries the user-driven narrowing controls. From and To
// only narrow the full range; Zoom is the fraction of the filtered range
// to display, in (0, 1]; Pan selects where within the unused range the
// zoomed window sits, in percent. Zero values mean "not set".
type WindowOptions struct {
	From *time.Time
	To   *time.Time
	Zoom float64
	Pan  float64
}

// ViewWindow is the visible date range of the chart.
type ViewWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ComputeViewWindow derives the visible date range from the union of all
// dispensing dates, padded by seven days on each side and extended to
// today when the dispensing data predates it, then narrowed by the
// options in order: date filters, zoom, pan. The window always spans at
// least one full day.
func ComputeViewWindow(groups []entities.DispensingGroup, now time.Time, opts WindowOptions) ViewWindow {
	earliest, latest := fullRange(groups, now)

	// Explicit date filters narrow, never widen.
	if opts.From != nil {
		if from := dayOf(*opts.From); from.After(earliest) {
			earliest = from
		}
	}
	if opts.To != nil {
		if to := dayOf(*opts.To); to.Before(latest) {
			latest = to
		}
	}
	if !latest.After(earliest) {
		latest = earliest.AddDate(0, 0, 1)
	}

	zoom := opts.Zoom
	if zoom <= 0 || zoom > 1 {
		zoom = 1
	}
	pan := opts.Pan
	if pan < 0 {
		pan = 0
	} else if pan > 100 {
		pan = 100
	}

	totalRange := latest.Sub(earliest)
	visibleRange := time.Duration(float64(totalRange) * zoom)
	if visibleRange < 24*time.Hour {
		visibleRange = 24 * time.Hour
	}
	if visibleRange > totalRange {
		visibleRange = totalRange
	}

	// Panning distributes the unused range; at zoom 1 there is none left,
	// which is what disables panning after a reset.
	panOffset := time.Duration(pan / 100 * float64(totalRange-visibleRange))

	start := earliest.Add(panOffset)
	return ViewWindow{Start: start, End: start.Add(visibleRange)}
}

// fullRange computes the unfiltered bounds from all dispensing dates.
// Without any dispensing data the window is the single day of today.
func fullRange(groups []entities.DispensingGroup, now time.Time) (time.Time, time.Time) {
	var min, max time.Time
	for _, g := range groups {
		for _, m := range g.Moments {
			day := dayOf(m.Date)
			if min.IsZero() || day.Before(min) {
				min = day
			}
			if day.After(max) {
				max = day
			}
		}
	}

	today := dayOf(now)
	if min.IsZero() {
		return today, today.AddDate(0, 0, 1)
	}

	earliest := min.AddDate(0, 0, -windowPadding)
	latest := max.AddDate(0, 0, windowPadding)
	if today.After(latest) {
		latest = today
	}
	return earliest, latest
}
