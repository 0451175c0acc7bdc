// Package data provides thread-safe data storage and management for the adherence API.
// It includes the DataContainer struct with atomic operations for zero-downtime snapshot
// swaps, plus mutex-protected user state (manual dispensing moments and package-size
// overrides) that survives re-imports.
package data

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/giygas/adherence-api/adherence/entities"
	"github.com/giygas/adherence-api/interfaces"
	"github.com/giygas/adherence-api/logging"
	"github.com/shopspring/decimal"
)

// Compile-time check to ensure DataContainer implements DataStore
var _ interfaces.DataStore = (*DataContainer)(nil)

// DataContainer holds the current review snapshot with atomic pointers for
// zero-downtime updates. Readers always see a complete, consistent snapshot;
// the rebuild pipeline prepares the next one offline and swaps it in one store.
type DataContainer struct {
	snapshot        atomic.Value // interfaces.ReviewSnapshot
	lastUpdated     atomic.Value // time.Time
	updating        atomic.Bool
	serverStartTime atomic.Value // time.Time

	mu            sync.RWMutex
	manualMoments map[string]entities.ManualDispensing
	overrides     map[string]decimal.Decimal
}

// NewDataContainer creates a new DataContainer with empty data
func NewDataContainer() *DataContainer {
	dc := &DataContainer{
		manualMoments: make(map[string]entities.ManualDispensing),
		overrides:     make(map[string]decimal.Decimal),
	}
	dc.snapshot.Store(emptySnapshot())
	dc.lastUpdated.Store(time.Time{})
	dc.serverStartTime.Store(time.Time{})
	return dc
}

func emptySnapshot() interfaces.ReviewSnapshot {
	return interfaces.ReviewSnapshot{
		Medications:  make([]entities.PrescribedMedication, 0),
		Groups:       make([]entities.DispensingGroup, 0),
		Matches:      make([]entities.MatchedMedication, 0),
		Timelines:    make([]entities.Timeline, 0),
		TimelinesMap: make(map[string]entities.Timeline),
	}
}

func (dc *DataContainer) currentSnapshot() interfaces.ReviewSnapshot {
	if v := dc.snapshot.Load(); v != nil {
		if snapshot, ok := v.(interfaces.ReviewSnapshot); ok {
			return snapshot
		}
	}

	logging.Warn("Review snapshot is empty or invalid")
	return emptySnapshot()
}

// Thread-safe getters reading from the current snapshot

// GetMedications returns the prescribed medications of the current snapshot
func (dc *DataContainer) GetMedications() []entities.PrescribedMedication {
	return dc.currentSnapshot().Medications
}

// GetGroups returns the dispensing groups of the current snapshot
func (dc *DataContainer) GetGroups() []entities.DispensingGroup {
	return dc.currentSnapshot().Groups
}

// GetMatches returns the matched medications of the current snapshot
func (dc *DataContainer) GetMatches() []entities.MatchedMedication {
	return dc.currentSnapshot().Matches
}

// GetTimelines returns the stock timelines of the current snapshot
func (dc *DataContainer) GetTimelines() []entities.Timeline {
	return dc.currentSnapshot().Timelines
}

// GetTimelinesMap returns the timelines map for O(1) lookups by medication ID
func (dc *DataContainer) GetTimelinesMap() map[string]entities.Timeline {
	if m := dc.currentSnapshot().TimelinesMap; m != nil {
		return m
	}
	return make(map[string]entities.Timeline)
}

// GetChartScale returns the shared chart ceiling of the current snapshot
func (dc *DataContainer) GetChartScale() int64 {
	return dc.currentSnapshot().ChartScale
}

// IsDegraded returns true if the last rebuild fell back to code-only matching
func (dc *DataContainer) IsDegraded() bool {
	return dc.currentSnapshot().Degraded
}

// GetReport returns the data quality report of the last import, or nil
func (dc *DataContainer) GetReport() *interfaces.DataQualityReport {
	return dc.currentSnapshot().Report
}

// GetLastUpdated returns the timestamp of the last snapshot swap
func (dc *DataContainer) GetLastUpdated() time.Time {
	if v := dc.lastUpdated.Load(); v != nil {
		if lastUpdated, ok := v.(time.Time); ok {
			return lastUpdated
		}
	}

	logging.Warn("Could not get the last updated value")
	return time.Time{}
}

// IsUpdating returns true if a rebuild is currently in progress
func (dc *DataContainer) IsUpdating() bool {
	return dc.updating.Load()
}

// SetServerStartTime sets the server start time
func (dc *DataContainer) SetServerStartTime(startTime time.Time) {
	dc.serverStartTime.Store(startTime)
}

// GetServerStartTime returns the server start time
func (dc *DataContainer) GetServerStartTime() time.Time {
	if v := dc.serverStartTime.Load(); v != nil {
		if startTime, ok := v.(time.Time); ok {
			return startTime
		}
	}

	logging.Warn("Could not get the server start time value")
	return time.Time{}
}

// UpdateSnapshot atomically replaces the current review snapshot
func (dc *DataContainer) UpdateSnapshot(snapshot interfaces.ReviewSnapshot) {
	// Atomic swap (zero downtime replacement)
	dc.snapshot.Store(snapshot)
	dc.lastUpdated.Store(time.Now())
}

// BeginUpdate marks the start of a rebuild operation
// Returns true if the rebuild can proceed, false if another one is in progress
func (dc *DataContainer) BeginUpdate() bool {
	return dc.updating.CompareAndSwap(false, true)
}

// EndUpdate marks the end of a rebuild operation
func (dc *DataContainer) EndUpdate() {
	dc.updating.Store(false)
}

// User state: manual dispensing moments and package-size overrides. These are
// keyed by their own identifiers, not by snapshot, so a re-import picks them
// up again on the next rebuild.

// GetManualDispensings returns the manual moments sorted by date, then ID
func (dc *DataContainer) GetManualDispensings() []entities.ManualDispensing {
	dc.mu.RLock()
	defer dc.mu.RUnlock()

	moments := make([]entities.ManualDispensing, 0, len(dc.manualMoments))
	for _, m := range dc.manualMoments {
		moments = append(moments, m)
	}
	sort.Slice(moments, func(i, j int) bool {
		if !moments[i].Date.Equal(moments[j].Date) {
			return moments[i].Date.Before(moments[j].Date)
		}
		return moments[i].ID < moments[j].ID
	})
	return moments
}

// AddManualDispensing registers a user-entered dispensing moment
func (dc *DataContainer) AddManualDispensing(m entities.ManualDispensing) {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	dc.manualMoments[m.ID] = m
}

// RemoveManualDispensing deletes a manual moment by ID.
// Returns false if no moment with that ID exists.
func (dc *DataContainer) RemoveManualDispensing(id string) bool {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	if _, ok := dc.manualMoments[id]; !ok {
		return false
	}
	delete(dc.manualMoments, id)
	return true
}

// GetPackageSizeOverrides returns a copy of the per-medication overrides
func (dc *DataContainer) GetPackageSizeOverrides() map[string]decimal.Decimal {
	dc.mu.RLock()
	defer dc.mu.RUnlock()

	overrides := make(map[string]decimal.Decimal, len(dc.overrides))
	for id, size := range dc.overrides {
		overrides[id] = size
	}
	return overrides
}

// SetPackageSizeOverride records a user-corrected units-per-package value
func (dc *DataContainer) SetPackageSizeOverride(medicationID string, unitsPerPackage decimal.Decimal) {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	dc.overrides[medicationID] = unitsPerPackage
}
