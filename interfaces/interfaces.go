// Package interfaces defines core abstractions for the adherence API
// to improve testability, maintainability, and separation of concerns.
package interfaces

import (
	"context"
	"net/http"
	"time"

	"github.com/giygas/adherence-api/adherence/entities"
	"github.com/shopspring/decimal"
)

// DataQualityReport provides a summary of issues found in imported data.
type DataQualityReport struct {
	DuplicateCNKs           []string // CNK codes appearing in more than one dispensing group
	MedicationsWithoutCNK   []string // medication IDs that carry no product code
	MedicationsWithoutDoses []string // medication IDs with zero daily usage and not flagged as-needed
	AsNeededMedications     int      // medications excluded from simulation by the as-needed flag
	GroupsWithoutMoments    []string // CNK codes of groups that lost all their moments to row filtering
	SkippedDispensingRows   int      // import rows dropped for format errors or invalid amounts
	SkippedPrescriptionRows int
}

// ImportStats counts rows dropped during parsing, per cause.
type ImportStats struct {
	PrescriptionRowsRead    int
	PrescriptionRowsSkipped int
	DispensingRowsRead      int
	DispensingRowsSkipped   int
}

// ReviewSnapshot is the complete derived state of one matching pass. It is
// built offline by the rebuild pipeline and swapped into the store in one
// atomic operation.
type ReviewSnapshot struct {
	Medications  []entities.PrescribedMedication
	Groups       []entities.DispensingGroup
	Matches      []entities.MatchedMedication
	Timelines    []entities.Timeline
	TimelinesMap map[string]entities.Timeline
	ChartScale   int64
	Degraded     bool // resolver batch failed, matching fell back to code-only
	Report       *DataQualityReport
}

// DataStore defines the contract for data storage operations. It provides
// thread-safe access to the current review snapshot with atomic swaps for
// zero-downtime rebuilds, plus the small amount of user state (manual
// dispensing moments, package-size overrides) that survives a re-import.
type DataStore interface {
	// Snapshot access
	GetMedications() []entities.PrescribedMedication
	GetGroups() []entities.DispensingGroup
	GetMatches() []entities.MatchedMedication
	GetTimelines() []entities.Timeline
	GetTimelinesMap() map[string]entities.Timeline
	GetChartScale() int64
	IsDegraded() bool
	GetReport() *DataQualityReport
	GetLastUpdated() time.Time
	IsUpdating() bool
	GetServerStartTime() time.Time

	// Snapshot update
	UpdateSnapshot(snapshot ReviewSnapshot)
	BeginUpdate() bool
	EndUpdate()

	// User state surviving re-imports
	GetManualDispensings() []entities.ManualDispensing
	AddManualDispensing(m entities.ManualDispensing)
	RemoveManualDispensing(id string) bool
	GetPackageSizeOverrides() map[string]decimal.Decimal
	SetPackageSizeOverride(medicationID string, unitsPerPackage decimal.Decimal)
}

// Parser defines the contract for reading pharmacy-software export files
// into structured prescription and dispensing data.
type Parser interface {
	// ParseAll reads and parses the prescription schedule and the
	// dispensing history from the configured export directory.
	ParseAll() ([]entities.PrescribedMedication, []entities.DispensingGroup, *ImportStats, error)
}

// CodeResolver resolves product codes to canonical grouping codes through
// a single batched lookup. CNKs absent from the result map are "not
// found"; a non-nil error means the whole batch failed and the caller
// degrades to code-level matching.
type CodeResolver interface {
	ResolveBatch(ctx context.Context, cnks []string) (map[string]entities.VMPCode, error)
}

// Rebuilder triggers a full in-memory rebuild of the review snapshot.
// Handlers call it after mutating manual moments or package sizes.
type Rebuilder interface {
	Rebuild() error
}

// Scheduler manages automated re-imports and health monitoring.
type Scheduler interface {
	Rebuilder

	Start() error
	Stop()
}

// HTTPHandler defines the contract for the HTTP endpoints.
type HTTPHandler interface {
	ServeHTTP(w http.ResponseWriter, r *http.Request)

	ServeReview(w http.ResponseWriter, r *http.Request)
	ServeMedications(w http.ResponseWriter, r *http.Request)
	ServeMedicationTimeline(w http.ResponseWriter, r *http.Request)
	AddManualDispensing(w http.ResponseWriter, r *http.Request)
	DeleteManualDispensing(w http.ResponseWriter, r *http.Request)
	SetPackageSize(w http.ResponseWriter, r *http.Request)

	// This will stay in all versions
	HealthCheck(w http.ResponseWriter, r *http.Request)
}

// HealthChecker provides system health monitoring and reporting.
type HealthChecker interface {
	// HealthCheck returns current system health status
	HealthCheck() (status string, details map[string]any, httpStatus int)

	// CalculateNextUpdate returns the next scheduled re-import time
	CalculateNextUpdate() time.Time
}

// DataValidator ensures imported data and user input are safe and sound.
type DataValidator interface {
	// ValidateMedication checks if a prescribed medication is valid
	ValidateMedication(m *entities.PrescribedMedication) error

	// ValidateCNK validates and normalizes a CNK product code
	ValidateCNK(input string) (string, error)

	// ValidateAmount validates a dispensing package count
	ValidateAmount(amount int) error

	// ValidateInput validates user input strings
	ValidateInput(input string) error

	// ReportDataQuality generates a data quality report for one import
	ReportDataQuality(medications []entities.PrescribedMedication,
		groups []entities.DispensingGroup, stats *ImportStats) *DataQualityReport
}
