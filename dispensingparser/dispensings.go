package dispensingparser

import (
	"errors"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/giygas/adherence-api/adherence/entities"
	"github.com/giygas/adherence-api/logging"
)

const dispensingsFile = "dispensings.csv"

// dateLayouts are the formats seen in pharmacy exports, tried in order.
var dateLayouts = []string{"2006-01-02", "02/01/2006", "02-01-2006"}

// makeDispensingGroups parses the dispensing history export and groups
// the moments by product code, date-ascending. Rows with an unusable
// code, date or amount are skipped and counted; they must never reach
// the simulation.
func makeDispensingGroups(dir string, wg *sync.WaitGroup) ([]entities.DispensingGroup, int, int, error) {
	if wg != nil {
		defer wg.Done()
	}

	records, err := readExportFile(dir, dispensingsFile)
	if err != nil {
		// A patient without any dispensing history is a normal state,
		// not an import failure
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("No dispensing export found, continuing with empty history", "file", dispensingsFile)
			return []entities.DispensingGroup{}, 0, 0, nil
		}
		return nil, 0, 0, err
	}
	if len(records) == 0 {
		return []entities.DispensingGroup{}, 0, 0, nil
	}

	index := columnIndex(records[0])
	rows := records[1:]

	// Groups keep the order in which their product code first appears,
	// because matching ties break on scan order.
	byCnk := make(map[string]int)
	var groups []entities.DispensingGroup
	skipped := 0

	for _, row := range rows {
		cnk := entities.NormalizeCNK(field(row, index, "cnk"))
		if cnk == "" {
			skipped++
			continue
		}

		date, ok := parseDate(field(row, index, "date"))
		if !ok {
			skipped++
			continue
		}

		amount, err := strconv.Atoi(field(row, index, "amount"))
		if err != nil || amount < 1 {
			skipped++
			continue
		}

		gi, exists := byCnk[cnk]
		if !exists {
			gi = len(groups)
			byCnk[cnk] = gi
			groups = append(groups, entities.DispensingGroup{
				Cnk:         cnk,
				Vmp:         parseVmp(field(row, index, "vmp")),
				Description: field(row, index, "description"),
			})
		}

		group := &groups[gi]
		if !group.Vmp.IsKnown() {
			group.Vmp = parseVmp(field(row, index, "vmp"))
		}
		if group.Description == "" {
			group.Description = field(row, index, "description")
		}
		group.Moments = append(group.Moments, entities.DispensingMoment{
			Date:   date,
			Amount: amount,
			Source: entities.SourceImported,
		})
	}

	for i := range groups {
		groups[i].SortMoments()
	}

	if skipped > 0 {
		logging.Warn("Skipped dispensing rows during import", "skipped", skipped, "total", len(rows))
	}

	return groups, len(rows), skipped, nil
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
