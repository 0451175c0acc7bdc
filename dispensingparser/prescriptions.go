package dispensingparser

import (
	"strconv"
	"strings"
	"sync"

	"github.com/giygas/adherence-api/adherence/entities"
	"github.com/giygas/adherence-api/logging"
	"github.com/shopspring/decimal"
)

const prescriptionsFile = "prescriptions.csv"

// makePrescriptions parses the prescription schedule export. Rows with an
// unusable identifier are skipped and counted; partially filled dose
// columns default to zero.
func makePrescriptions(dir string, wg *sync.WaitGroup) ([]entities.PrescribedMedication, int, int, error) {
	if wg != nil {
		defer wg.Done()
	}

	records, err := readExportFile(dir, prescriptionsFile)
	if err != nil {
		return nil, 0, 0, err
	}
	if len(records) == 0 {
		return []entities.PrescribedMedication{}, 0, 0, nil
	}

	index := columnIndex(records[0])
	rows := records[1:]

	var medications []entities.PrescribedMedication
	skipped := 0

	for _, row := range rows {
		id := field(row, index, "id")
		name := field(row, index, "name")
		if id == "" || name == "" {
			skipped++
			continue
		}

		med := entities.PrescribedMedication{
			ID:       id,
			Name:     name,
			Cnk:      entities.NormalizeCNK(field(row, index, "cnk")),
			Vmp:      parseVmp(field(row, index, "vmp")),
			AsNeeded: parseFlag(field(row, index, "asneeded")),
			Doses: entities.DoseSchedule{
				BeforeBreakfast: parseQuantity(field(row, index, "beforebreakfast")),
				DuringBreakfast: parseQuantity(field(row, index, "duringbreakfast")),
				Lunch:           parseQuantity(field(row, index, "lunch")),
				Dinner:          parseQuantity(field(row, index, "dinner")),
				Bedtime:         parseQuantity(field(row, index, "bedtime")),
			},
			PackageSize: parseQuantity(field(row, index, "packagesize")),
		}

		medications = append(medications, med)
	}

	if skipped > 0 {
		logging.Warn("Skipped prescription rows during import", "skipped", skipped, "total", len(rows))
	}

	return medications, len(rows), skipped, nil
}

// parseQuantity reads a decimal quantity. The exports use a comma as the
// decimal separator; negative or unparseable values count as zero.
func parseQuantity(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// parseVmp reads an optional canonical code; empty or malformed means
// unknown.
func parseVmp(s string) entities.VMPCode {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return entities.VMPCode(n)
}

// parseFlag reads the boolean column variants seen across exporters.
func parseFlag(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "x", "ja", "oui":
		return true
	}
	return false
}
