package dispensingparser

import (
	"fmt"
	"sync"

	"github.com/giygas/adherence-api/adherence/entities"
	"github.com/giygas/adherence-api/interfaces"
)

// Compile-time check to ensure MedicationParser implements Parser
var _ interfaces.Parser = (*MedicationParser)(nil)

// MedicationParser implements the Parser interface against an export
// directory written by the pharmacy software.
type MedicationParser struct {
	exportDir string
}

// NewMedicationParser creates a parser reading from the given directory.
func NewMedicationParser(exportDir string) *MedicationParser {
	return &MedicationParser{exportDir: exportDir}
}

// ParseAll reads both export files concurrently and returns the parsed
// schedule and history together with the row accounting.
func (p *MedicationParser) ParseAll() ([]entities.PrescribedMedication, []entities.DispensingGroup, *interfaces.ImportStats, error) {
	var wg sync.WaitGroup
	wg.Add(2)

	var (
		medications []entities.PrescribedMedication
		medsRead    int
		medsSkipped int
		medsErr     error
		groups      []entities.DispensingGroup
		dispRead    int
		dispSkipped int
		dispErr     error
	)

	go func() {
		medications, medsRead, medsSkipped, medsErr = makePrescriptions(p.exportDir, &wg)
	}()
	go func() {
		groups, dispRead, dispSkipped, dispErr = makeDispensingGroups(p.exportDir, &wg)
	}()

	wg.Wait()

	if medsErr != nil {
		return nil, nil, nil, fmt.Errorf("prescription import failed: %w", medsErr)
	}
	if dispErr != nil {
		return nil, nil, nil, fmt.Errorf("dispensing import failed: %w", dispErr)
	}

	stats := &interfaces.ImportStats{
		PrescriptionRowsRead:    medsRead,
		PrescriptionRowsSkipped: medsSkipped,
		DispensingRowsRead:      dispRead,
		DispensingRowsSkipped:   dispSkipped,
	}

	return medications, groups, stats, nil
}
