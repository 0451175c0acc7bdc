package adherence

import (
	"github.com/giygas/adherence-api/adherence/entities"
	"github.com/shopspring/decimal"
)

// scaleHeadroom leaves room above the tallest stock peak so the chart
// line never touches the top edge.
var scaleHeadroom = decimal.NewFromFloat(1.2)

// ChartScale computes the shared vertical scale for all timelines: the
// maximum stock value observed across every simulated point, with 20%
// headroom, rounded up to a whole unit. Medications without a timeline do
// not affect the maximum. Zero means nothing was simulated at all.
func ChartScale(timelines []entities.Timeline) int64 {
	maxStock := decimal.Zero
	for _, t := range timelines {
		for _, p := range t.Points {
			if p.Stock.GreaterThan(maxStock) {
				maxStock = p.Stock
			}
		}
	}

	if maxStock.IsZero() {
		return 0
	}
	return maxStock.Mul(scaleHeadroom).Ceil().IntPart()
}
