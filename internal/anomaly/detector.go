// Package anomaly flags statistical outliers and near-duplicate charges
// in an expense collection.
package anomaly

import (
	"math"
	"strings"

	"github.com/VKNithyanand/garuda-finance/internal/domain"
)

const (
	// minCategorySample is the smallest category size worth testing.
	// Smaller groups are skipped as insufficient sample.
	minCategorySample = 3

	// deviationThreshold flags amounts further than this many standard
	// deviations from the category mean. Strict comparison: a deviation
	// of exactly 2.0 is not flagged.
	deviationThreshold = 2.0

	// duplicateTolerance is the relative amount difference below which
	// two same-day same-vendor charges count as potential duplicates.
	duplicateTolerance = 0.01
)

// Detect runs outlier and duplicate detection over an expense snapshot and
// returns a transient report. The input is never mutated. An empty input
// yields an empty report, not an error.
func Detect(expenses []domain.Expense) domain.AnomalyReport {
	report := domain.AnomalyReport{
		Anomalies:           []domain.Anomaly{},
		PotentialDuplicates: []domain.DuplicatePair{},
	}

	report.Anomalies = detectOutliers(expenses)
	report.PotentialDuplicates = detectDuplicates(expenses)

	report.Summary.AnomalyCount = len(report.Anomalies)
	report.Summary.DuplicateCount = len(report.PotentialDuplicates)
	for _, a := range report.Anomalies {
		if a.Significance == domain.SignificanceHigh {
			report.Summary.HighSignificanceCount++
		}
	}
	// Naive recoverable estimate: one side of each duplicate pair
	for _, p := range report.PotentialDuplicates {
		report.Summary.PotentialSavings += p.Expense2.Amount
	}

	return report
}

// detectOutliers flags expenses more than deviationThreshold population
// standard deviations from their category mean. Categories are visited in
// the fixed enumeration order and members in input order, so output order
// is deterministic.
func detectOutliers(expenses []domain.Expense) []domain.Anomaly {
	groups := make(map[domain.Category][]domain.Expense)
	for _, e := range expenses {
		groups[e.Category] = append(groups[e.Category], e)
	}

	anomalies := []domain.Anomaly{}
	for _, category := range domain.Categories() {
		members := groups[category]
		if len(members) < minCategorySample {
			continue
		}

		mean, stdDev := meanAndStdDev(members)
		if stdDev == 0 {
			// All amounts equal; nothing can exceed the threshold
			continue
		}

		for _, e := range members {
			absDev := math.Abs(e.Amount - mean)
			if absDev > deviationThreshold*stdDev {
				significance := domain.SignificanceLow
				if e.Amount > mean {
					significance = domain.SignificanceHigh
				}
				anomalies = append(anomalies, domain.Anomaly{
					Expense:      e,
					MeanAmount:   mean,
					Deviation:    absDev / stdDev,
					Significance: significance,
				})
			}
		}
	}

	return anomalies
}

// meanAndStdDev computes the mean and population standard deviation of
// the member amounts
func meanAndStdDev(members []domain.Expense) (float64, float64) {
	var sum float64
	for _, e := range members {
		sum += e.Amount
	}
	mean := sum / float64(len(members))

	var sqSum float64
	for _, e := range members {
		d := e.Amount - mean
		sqSum += d * d
	}
	return mean, math.Sqrt(sqSum / float64(len(members)))
}

// pairKey buckets expenses by date and normalized vendor so duplicate
// comparison stays linear in bucket size instead of quadratic over the
// whole collection.
func pairKey(e domain.Expense) string {
	return e.Date + "|" + strings.ToLower(strings.TrimSpace(e.Vendor))
}

// detectDuplicates flags same-day same-vendor expense pairs whose amounts
// differ by less than duplicateTolerance of the larger amount. Identical
// amounts always flag; differences of 1% or more never do.
func detectDuplicates(expenses []domain.Expense) []domain.DuplicatePair {
	pairs := []domain.DuplicatePair{}
	buckets := make(map[string][]int)

	for j, e := range expenses {
		key := pairKey(e)
		for _, i := range buckets[key] {
			if withinTolerance(expenses[i].Amount, e.Amount) {
				pairs = append(pairs, domain.DuplicatePair{
					Expense1: expenses[i],
					Expense2: e,
				})
			}
		}
		buckets[key] = append(buckets[key], j)
	}

	return pairs
}

func withinTolerance(a, b float64) bool {
	if a == b {
		return true
	}
	larger := math.Max(a, b)
	if larger == 0 {
		return false
	}
	return math.Abs(a-b)/larger < duplicateTolerance
}
