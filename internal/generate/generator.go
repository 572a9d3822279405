// Package generate produces synthetic expense, revenue, and forecast data.
package generate

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/VKNithyanand/garuda-finance/internal/domain"
)

// Fixed pools for synthetic records. Vendor and description are drawn
// independently, so combinations like "Utility bill" from "Adobe" are
// expected output.
var (
	vendors = []string{
		"Amazon", "Office Depot", "WeWork", "Salesforce", "Adobe",
		"Verizon", "American Airlines", "Dell", "Staples", "Uber",
	}

	descriptions = []string{
		"Monthly subscription", "Office supplies", "Team lunch",
		"Conference tickets", "New equipment", "Software license",
		"Utility bill", "Marketing campaign", "Travel expenses",
		"Consulting services",
	}
)

// Amount ranges per category, half-open [min, max).
type amountRange struct {
	min float64
	max float64
}

var categoryRanges = map[domain.Category]amountRange{
	domain.CategoryRent:      {1500, 5000},
	domain.CategoryPayroll:   {3000, 10000},
	domain.CategoryMarketing: {500, 3000},
}

// defaultRange covers every category without a dedicated range
var defaultRange = amountRange{50, 1000}

const (
	// expenseWindowDays is how far back generated expense dates reach
	expenseWindowDays = 90

	revenueBase     = 15000.0
	revenueStep     = 500.0
	revenueNoise    = 0.20
	growthRateMin   = 0.03
	growthRateSpan  = 0.04
	uncertaintyBase = 0.10
	uncertaintyStep = 0.02
)

// Generator produces synthetic datasets from an injected rand source and
// reference time. Generation never reads the wall clock or ambient
// randomness, so seeded generators replay exact sequences.
type Generator struct {
	rng *rand.Rand
	now time.Time
}

// New creates a generator with the given rand source and reference time
func New(rng *rand.Rand, now time.Time) (*Generator, error) {
	if rng == nil {
		return nil, fmt.Errorf("rand source cannot be nil")
	}
	if now.IsZero() {
		return nil, fmt.Errorf("reference time cannot be zero")
	}
	return &Generator{rng: rng, now: now}, nil
}

// roundCents rounds to 2 decimal places
func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// Expenses generates count synthetic expense records with random category,
// vendor, description, and a date within the past 90 days. Amounts follow
// the category range. The result is sorted most recent first. count <= 0
// returns an empty slice.
func (g *Generator) Expenses(count int) []domain.Expense {
	expenses := make([]domain.Expense, 0, max(count, 0))

	categories := domain.Categories()
	for i := 0; i < count; i++ {
		category := categories[g.rng.Intn(len(categories))]

		r, ok := categoryRanges[category]
		if !ok {
			r = defaultRange
		}
		amount := roundCents(r.min + g.rng.Float64()*(r.max-r.min))

		date := g.now.AddDate(0, 0, -g.rng.Intn(expenseWindowDays))

		expenses = append(expenses, domain.Expense{
			ID:          fmt.Sprintf("exp-%d", i+1),
			Date:        date.Format("2006-01-02"),
			Amount:      amount,
			Description: descriptions[g.rng.Intn(len(descriptions))],
			Category:    category,
			Vendor:      vendors[g.rng.Intn(len(vendors))],
		})
	}

	// Most recent first. Stable keeps generation order for same-day records.
	sort.SliceStable(expenses, func(i, j int) bool {
		return expenses[i].Date > expenses[j].Date
	})

	return expenses
}

// Revenue generates months consecutive entries ending at the reference
// month, chronological order. The base grows linearly from oldest to
// newest and each entry carries ±20% uniform noise. months <= 0 returns
// an empty slice.
func (g *Generator) Revenue(months int) []domain.Revenue {
	revenue := make([]domain.Revenue, 0, max(months, 0))

	for i := 0; i < months; i++ {
		monthsAgo := months - 1 - i
		date := g.now.AddDate(0, -monthsAgo, 0)

		base := revenueBase + float64(i+1)*revenueStep
		noise := 1 - revenueNoise + g.rng.Float64()*2*revenueNoise
		amount := roundCents(base * noise)

		revenue = append(revenue, domain.Revenue{
			Date:   date.Format("2006-01"),
			Amount: amount,
		})
	}

	return revenue
}

// Forecast extrapolates months points forward from the last entry of the
// revenue series. Each step compounds a fresh growth rate in [3%, 7%) and
// the uncertainty band widens linearly with the horizon (10% + 2% per
// step), keeping lowerBound <= predicted <= upperBound at every index.
// An empty anchor series or months <= 0 returns an empty slice.
func (g *Generator) Forecast(revenue []domain.Revenue, months int) []domain.ForecastPoint {
	if len(revenue) == 0 || months <= 0 {
		return []domain.ForecastPoint{}
	}

	anchor := revenue[len(revenue)-1]
	anchorMonth, err := time.Parse("2006-01", anchor.Date)
	if err != nil {
		// Malformed anchor dates cannot be extrapolated from
		return []domain.ForecastPoint{}
	}

	forecast := make([]domain.ForecastPoint, 0, months)
	predicted := anchor.Amount

	for i := 0; i < months; i++ {
		rate := growthRateMin + g.rng.Float64()*growthRateSpan
		predicted = predicted * (1 + rate)

		uncertainty := uncertaintyBase + uncertaintyStep*float64(i)
		date := anchorMonth.AddDate(0, i+1, 0)

		forecast = append(forecast, domain.ForecastPoint{
			Date:       date.Format("2006-01"),
			Predicted:  roundCents(predicted),
			LowerBound: roundCents(predicted * (1 - uncertainty)),
			UpperBound: roundCents(predicted * (1 + uncertainty)),
		})
	}

	return forecast
}

// Dataset generates a full synthetic dataset: expenses, a revenue series,
// and a forecast anchored on that revenue.
func (g *Generator) Dataset(expenseCount, revenueMonths, forecastMonths int) (*domain.Dataset, error) {
	d := domain.NewDataset()

	for _, e := range g.Expenses(expenseCount) {
		if err := d.AddExpense(e); err != nil {
			return nil, fmt.Errorf("failed to add generated expense: %w", err)
		}
	}

	revenue := g.Revenue(revenueMonths)
	for _, r := range revenue {
		if err := d.AddRevenue(r); err != nil {
			return nil, fmt.Errorf("failed to add generated revenue: %w", err)
		}
	}

	if err := d.SetForecast(g.Forecast(revenue, forecastMonths)); err != nil {
		return nil, fmt.Errorf("failed to set generated forecast: %w", err)
	}

	return d, nil
}
