// Package analytics computes derived aggregates over expense and revenue
// collections. Every function is a pure transformation of its inputs;
// results are recomputed wholesale, never patched incrementally.
package analytics

import (
	"sort"

	"github.com/VKNithyanand/garuda-finance/internal/domain"
)

// Metrics is the derived financial summary for a dataset snapshot.
type Metrics struct {
	TotalRevenue  float64 `json:"totalRevenue"`
	TotalExpenses float64 `json:"totalExpenses"`
	Profit        float64 `json:"profit"`
	ProfitMargin  float64 `json:"profitMargin"`  // Percent; 0 when revenue is 0
	RevenueGrowth float64 `json:"revenueGrowth"` // Percent, last two revenue entries
}

// TrendPoint is one month of the expense trend.
type TrendPoint struct {
	Month  string  `json:"month"` // YYYY-MM
	Total  float64 `json:"total"`
	Change float64 `json:"change"` // Percent vs previous month; 0 for the first
}

// Trend is the month-over-month expense series with summary stats.
type Trend struct {
	Points       []TrendPoint `json:"points"`
	AverageTotal float64      `json:"averageTotal"`
	Highest      TrendPoint   `json:"highest"`
	Lowest       TrendPoint   `json:"lowest"`
}

// Breakdown group-sums expenses by category and computes each category's
// share of total spend. Zero-amount categories are dropped and the result
// is sorted by amount descending. Percentages sum to ~100 when the grand
// total is positive; an empty or all-zero input yields an empty slice.
func Breakdown(expenses []domain.Expense) []domain.CategoryBreakdown {
	totals := make(map[domain.Category]float64, len(domain.Categories()))
	for _, c := range domain.Categories() {
		totals[c] = 0
	}

	var grandTotal float64
	for _, e := range expenses {
		totals[e.Category] += e.Amount
		grandTotal += e.Amount
	}

	breakdown := make([]domain.CategoryBreakdown, 0, len(totals))
	for _, c := range domain.Categories() {
		amount := totals[c]
		if amount == 0 {
			continue
		}

		percentage := 0.0
		if grandTotal > 0 {
			percentage = amount / grandTotal * 100
		}

		breakdown = append(breakdown, domain.CategoryBreakdown{
			Category:   c,
			Amount:     amount,
			Percentage: percentage,
		})
	}

	sort.SliceStable(breakdown, func(i, j int) bool {
		return breakdown[i].Amount > breakdown[j].Amount
	})

	return breakdown
}

// ComputeMetrics sums revenue and expenses and derives profit, margin, and
// growth. ProfitMargin is 0 (not NaN) with zero revenue. RevenueGrowth
// compares the last two entries of the revenue series, assumed
// chronological, and is 0 with fewer than 2 entries or a zero previous
// value.
func ComputeMetrics(expenses []domain.Expense, revenue []domain.Revenue) Metrics {
	var m Metrics

	for _, r := range revenue {
		m.TotalRevenue += r.Amount
	}
	for _, e := range expenses {
		m.TotalExpenses += e.Amount
	}

	m.Profit = m.TotalRevenue - m.TotalExpenses
	if m.TotalRevenue != 0 {
		m.ProfitMargin = m.Profit / m.TotalRevenue * 100
	}

	if len(revenue) >= 2 {
		previous := revenue[len(revenue)-2].Amount
		latest := revenue[len(revenue)-1].Amount
		if previous != 0 {
			m.RevenueGrowth = (latest - previous) / previous * 100
		}
	}

	return m
}

// MonthlyTrend buckets expenses by calendar month and computes the percent
// change between consecutive months. A zero previous-month total yields a
// 0 change rather than dividing by zero. Returns an empty trend for an
// empty input.
func MonthlyTrend(expenses []domain.Expense) Trend {
	if len(expenses) == 0 {
		return Trend{Points: []TrendPoint{}}
	}

	buckets := make(map[string]float64)
	for _, e := range expenses {
		buckets[e.Month()] += e.Amount
	}

	months := make([]string, 0, len(buckets))
	for m := range buckets {
		months = append(months, m)
	}
	sort.Strings(months)

	trend := Trend{Points: make([]TrendPoint, 0, len(months))}
	var sum float64

	for i, month := range months {
		total := buckets[month]
		sum += total

		change := 0.0
		if i > 0 {
			previous := buckets[months[i-1]]
			if previous != 0 {
				change = (total - previous) / previous * 100
			}
		}

		point := TrendPoint{Month: month, Total: total, Change: change}
		trend.Points = append(trend.Points, point)

		if i == 0 || total > trend.Highest.Total {
			trend.Highest = point
		}
		if i == 0 || total < trend.Lowest.Total {
			trend.Lowest = point
		}
	}

	trend.AverageTotal = sum / float64(len(months))
	return trend
}
