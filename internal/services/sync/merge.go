package sync

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chartstack/chartd/internal/models"
)

// MergePriceRecords combines two price series keyed by calendar date.
// Records from new overwrite records from old on the same date; the
// result is ascending with no duplicate dates. Merging is idempotent.
func MergePriceRecords(old, new []models.PriceRecord) []models.PriceRecord {
	byDate := make(map[string]models.PriceRecord, len(old)+len(new))
	for _, r := range old {
		byDate[r.Date.Format(dateLayout)] = r
	}
	for _, r := range new {
		byDate[r.Date.Format(dateLayout)] = r
	}

	merged := make([]models.PriceRecord, 0, len(byDate))
	for _, r := range byDate {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Date.Before(merged[j].Date) })
	return merged
}

// mergeFundamentals joins key metrics and income statements on the
// exact reporting date string. Key metrics drive the record; income
// data fills in revenue and overrides EPS when present. Income periods
// without a matching metrics row still produce a record so revenue
// history is not lost on metric-less plans.
func mergeFundamentals(symbol string, metrics []models.KeyMetrics, incomes []models.IncomeStatement) []models.FundamentalRecord {
	incomeByDate := make(map[string]models.IncomeStatement, len(incomes))
	for _, inc := range incomes {
		incomeByDate[inc.Date] = inc
	}

	records := make([]models.FundamentalRecord, 0, len(metrics)+len(incomes))
	seen := make(map[string]bool, len(metrics))

	for _, m := range metrics {
		date, err := time.ParseInLocation(dateLayout, m.Date, time.UTC)
		if err != nil {
			continue
		}
		seen[m.Date] = true

		rec := models.FundamentalRecord{
			Symbol:       symbol,
			Date:         date,
			Period:       m.Period,
			PERatio:      m.PERatio,
			PriceToFCF:   m.PriceToFCF,
			FCF:          m.FCF,
			EPS:          m.EPS,
			ROE:          m.ROE,
			DebtToEquity: m.DebtToEquity,
		}
		if inc, ok := incomeByDate[m.Date]; ok {
			rec.Revenue = inc.Revenue
			if inc.EPS != nil {
				rec.EPS = inc.EPS
			}
			if rec.Period == "" {
				rec.Period = inc.Period
			}
		}
		records = append(records, rec)
	}

	for _, inc := range incomes {
		if seen[inc.Date] {
			continue
		}
		date, err := time.ParseInLocation(dateLayout, inc.Date, time.UTC)
		if err != nil {
			continue
		}
		records = append(records, models.FundamentalRecord{
			Symbol:  symbol,
			Date:    date,
			Period:  inc.Period,
			Revenue: inc.Revenue,
			EPS:     inc.EPS,
		})
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date) })
	return records
}

// computeRevenueGrowth fills RevenueGrowthYoY for records that have a
// known revenue and a known, non-zero revenue four quarterly periods
// earlier. Records must be sorted ascending by date.
func computeRevenueGrowth(records []models.FundamentalRecord) {
	const lookback = 4
	for i := lookback; i < len(records); i++ {
		cur := records[i].Revenue
		prior := records[i-lookback].Revenue
		if cur == nil || prior == nil || prior.IsZero() {
			continue
		}
		growth, _ := cur.Sub(*prior).Div(prior.Abs()).Mul(hundred).Float64()
		records[i].RevenueGrowthYoY = &growth
	}
}

var hundred = decimal.NewFromInt(100)
