// Package scheduler provides automated re-imports and health monitoring for
// the adherence API. It handles cron-based export refreshes and coordinates
// the full rebuild pipeline (parse, resolve, match, simulate) with the data
// container using dependency injection.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/giygas/adherence-api/adherence"
	"github.com/giygas/adherence-api/adherence/entities"
	"github.com/giygas/adherence-api/interfaces"
	"github.com/giygas/adherence-api/logging"
	"github.com/giygas/adherence-api/metrics"
	"github.com/giygas/adherence-api/validation"
	"github.com/go-co-op/gocron"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

const resolveTimeout = 30 * time.Second

// Scheduler handles rebuilds and health monitoring using dependency injection
type Scheduler struct {
	dataStore interfaces.DataStore
	parser    interfaces.Parser
	resolver  interfaces.CodeResolver
	scheduler *gocron.Scheduler
}

// NewScheduler creates a new scheduler instance with injected dependencies
func NewScheduler(dataStore interfaces.DataStore, parser interfaces.Parser, resolver interfaces.CodeResolver) *Scheduler {
	return &Scheduler{
		dataStore: dataStore,
		parser:    parser,
		resolver:  resolver,
		scheduler: gocron.NewScheduler(time.Local),
	}
}

// Start initializes the scheduler with export refreshes and health monitoring
func (s *Scheduler) Start() error {
	// Initial load
	if err := s.Rebuild(); err != nil {
		logging.Error("Failed to perform initial data load", "error", err)
		return fmt.Errorf("initial data load failed: %w", err)
	}

	// Re-import the exports at 06:00 and 18:00 daily
	_, err := s.scheduler.Every(1).Days().At("06:00;18:00").Do(func() {
		if err := s.Rebuild(); err != nil {
			logging.Error("Failed to rebuild review data", "error", err)
		}
	})

	if err != nil {
		logging.Error("Failed to schedule re-imports", "error", err)
		return fmt.Errorf("failed to schedule re-imports: %w", err)
	}

	s.scheduler.StartAsync()

	// Start health monitoring
	s.startHealthMonitoring()

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// Rebuild performs a complete rebuild of the review snapshot: re-read the
// exports, merge the user's manual moments, resolve canonical codes, match,
// simulate and swap. Handlers call it after mutating user state.
func (s *Scheduler) Rebuild() error {
	// Prevent concurrent rebuilds
	if !s.dataStore.BeginUpdate() {
		logging.Info("Rebuild already in progress, skipping...")
		return nil
	}
	defer s.dataStore.EndUpdate()

	logging.Info("Starting review rebuild", "at", time.Now().Format(time.RFC3339))
	start := time.Now()

	// Parse the export files using the injected parser
	medications, groups, stats, err := s.parser.ParseAll()
	if err != nil {
		logging.Error("Failed to parse export files", "error", err)
		return fmt.Errorf("failed to parse export files: %w", err)
	}

	// Fold the user's manual dispensing moments into the imported groups so a
	// re-import never loses them
	groups = mergeManualMoments(groups, s.dataStore.GetManualDispensings())

	validator := validation.NewDataValidator()
	report := validator.ReportDataQuality(medications, groups, stats)
	logReport(report)

	// Resolve canonical codes with a fresh session; the results stay valid
	// exactly as long as this snapshot does
	session := adherence.NewSession(s.resolver)
	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()
	session.Resolve(ctx, medications, groups)

	matches := session.MatchMedications(medications, groups, s.dataStore.GetPackageSizeOverrides())

	// One reference instant so all timelines in the snapshot agree on "today"
	now := time.Now()
	timelines := make([]entities.Timeline, 0, len(matches))
	timelinesMap := make(map[string]entities.Timeline, len(matches))
	matched := 0
	for _, match := range matches {
		if match.Kind != entities.MatchNone {
			matched++
		}
		timeline := adherence.BuildTimeline(match, now)
		timelines = append(timelines, timeline)
		timelinesMap[timeline.MedicationID] = timeline
	}

	snapshot := interfaces.ReviewSnapshot{
		Medications:  medications,
		Groups:       groups,
		Matches:      matches,
		Timelines:    timelines,
		TimelinesMap: timelinesMap,
		ChartScale:   adherence.ChartScale(timelines),
		Degraded:     session.Degraded(),
		Report:       report,
	}

	// Atomic swap using the injected data store
	s.dataStore.UpdateSnapshot(snapshot)

	elapsed := time.Since(start)
	metrics.RecordRebuild(elapsed, matched, len(matches)-matched, session.Degraded())
	logging.Info("Review rebuild completed",
		"duration", elapsed.String(),
		"medication_count", len(medications),
		"matched_count", matched,
		"degraded", session.Degraded(),
	)

	return nil
}

// mergeManualMoments appends user-entered moments to the group carrying the
// same product code, creating a new group when none exists yet. Imported
// groups keep their order; new manual-only groups go last.
func mergeManualMoments(groups []entities.DispensingGroup, manual []entities.ManualDispensing) []entities.DispensingGroup {
	if len(manual) == 0 {
		return groups
	}

	byCnk := make(map[string]int, len(groups))
	for i, group := range groups {
		byCnk[entities.NormalizeCNK(group.Cnk)] = i
	}

	touched := make(map[int]bool)
	for _, m := range manual {
		cnk := entities.NormalizeCNK(m.Cnk)
		if cnk == "" {
			continue
		}

		if i, ok := byCnk[cnk]; ok {
			groups[i].Moments = append(groups[i].Moments, m.Moment())
			touched[i] = true
			continue
		}

		groups = append(groups, entities.DispensingGroup{
			Cnk:         cnk,
			Description: m.Description,
			Moments:     []entities.DispensingMoment{m.Moment()},
		})
		byCnk[cnk] = len(groups) - 1
	}

	for i := range touched {
		groups[i].SortMoments()
	}

	return groups
}

func logReport(report *interfaces.DataQualityReport) {
	if len(report.DuplicateCNKs) > 0 {
		logging.Warn("Duplicate CNK codes detected across dispensing groups",
			"total", len(report.DuplicateCNKs),
			"cnk_list", report.DuplicateCNKs,
		)
	}

	if len(report.MedicationsWithoutCNK) > 0 {
		logging.Warn("Medications without a product code",
			"count", len(report.MedicationsWithoutCNK),
			"id_list", report.MedicationsWithoutCNK,
		)
	}

	if len(report.MedicationsWithoutDoses) > 0 {
		logging.Warn("Medications without a usable dose schedule",
			"count", len(report.MedicationsWithoutDoses),
			"id_list", report.MedicationsWithoutDoses,
		)
	}

	if report.SkippedDispensingRows > 0 || report.SkippedPrescriptionRows > 0 {
		logging.Warn("Export rows skipped during import",
			"prescription_rows", report.SkippedPrescriptionRows,
			"dispensing_rows", report.SkippedDispensingRows,
		)
	}
}

// startHealthMonitoring monitors the freshness of the review snapshot
func (s *Scheduler) startHealthMonitoring() {
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			lastUpdate := s.dataStore.GetLastUpdated()
			if time.Since(lastUpdate) > 25*time.Hour {
				logging.Warn("Review data hasn't been rebuilt in over 25 hours")
			}
		}
	}()
}
