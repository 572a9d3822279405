// Package report assembles the full analysis output for one dataset
// snapshot. Every section is recomputed from the snapshot; nothing is
// cached between builds.
package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/VKNithyanand/garuda-finance/internal/analytics"
	"github.com/VKNithyanand/garuda-finance/internal/anomaly"
	"github.com/VKNithyanand/garuda-finance/internal/domain"
	"github.com/VKNithyanand/garuda-finance/internal/insight"
	"github.com/VKNithyanand/garuda-finance/internal/optimize"
)

// Report is the complete analysis of one dataset snapshot
type Report struct {
	ID               string                     `json:"id"`
	GeneratedAt      time.Time                  `json:"generatedAt"`
	Breakdown        []domain.CategoryBreakdown `json:"breakdown"`
	Metrics          analytics.Metrics          `json:"metrics"`
	Trend            analytics.Trend            `json:"trend"`
	Anomalies        domain.AnomalyReport       `json:"anomalies"`
	RevenueInsights  []string                   `json:"revenueInsights"`
	ForecastInsights []string                   `json:"forecastInsights"`
	Recommendations  []domain.Recommendation    `json:"recommendations"`
	PotentialSavings float64                    `json:"potentialSavings"`
}

// Build runs every analysis over the dataset and assembles the result.
// The dataset is read through its snapshot accessors and never mutated.
func Build(dataset *domain.Dataset) *Report {
	expenses := dataset.GetExpenses()
	revenue := dataset.GetRevenue()
	forecast := dataset.GetForecast()

	recommendations := optimize.Recommend(expenses)

	return &Report{
		ID:               uuid.New().String(),
		GeneratedAt:      time.Now().UTC(),
		Breakdown:        analytics.Breakdown(expenses),
		Metrics:          analytics.ComputeMetrics(expenses, revenue),
		Trend:            analytics.MonthlyTrend(expenses),
		Anomalies:        anomaly.Detect(expenses),
		RevenueInsights:  insight.FromRevenue(revenue),
		ForecastInsights: insight.FromForecast(forecast),
		Recommendations:  recommendations,
		PotentialSavings: optimize.TotalPotentialSavings(recommendations),
	}
}
