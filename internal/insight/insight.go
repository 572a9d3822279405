// Package insight renders revenue and forecast series into human-readable
// narrative sentences. Wording and band thresholds are part of the
// observable contract consumed by the dashboard layer.
package insight

import (
	"fmt"
	"math"

	"github.com/VKNithyanand/garuda-finance/internal/domain"
)

const (
	// minRevenuePoints is the smallest revenue series worth narrating
	minRevenuePoints = 3

	// seasonalityPoints is the series length at which the seasonality
	// remark is appended
	seasonalityPoints = 12

	// smoothingWindow bounds the recent-trend averaging window
	smoothingWindow = 6

	// Growth bands, compared strictly: exactly 5.0 lands in the moderate
	// band, exactly 0 in the declining band.
	strongGrowth   = 5.0
	moderateGrowth = 2.0

	// Uncertainty bands on final-period band width over predicted value
	highUncertainty     = 0.30
	moderateUncertainty = 0.15
)

// InsufficientRevenueData is returned alone when the revenue series is too
// short to analyze.
const InsufficientRevenueData = "Not enough revenue history to generate trend insights (need at least 3 months)."

// InsufficientForecastData is returned alone when the forecast series is
// too short to analyze.
const InsufficientForecastData = "Not enough forecast data to generate insights (need at least 2 points)."

// percentChange guards against a zero base: the change is reported as 0
// rather than propagating Inf/NaN.
func percentChange(previous, current float64) float64 {
	if previous == 0 {
		return 0
	}
	return (current - previous) / previous * 100
}

// direction renders signed change wording with one decimal place
func direction(change float64) string {
	switch {
	case change > 0:
		return fmt.Sprintf("increased by %.1f%%", change)
	case change < 0:
		return fmt.Sprintf("decreased by %.1f%%", math.Abs(change))
	default:
		return "held flat"
	}
}

// FromRevenue derives narrative insights from a chronological revenue
// series. Needs at least 3 points; shorter input yields the single
// insufficient-data message rather than an error.
func FromRevenue(revenue []domain.Revenue) []string {
	if len(revenue) < minRevenuePoints {
		return []string{InsufficientRevenueData}
	}

	insights := make([]string, 0, 4)

	latest := revenue[len(revenue)-1].Amount
	previous := revenue[len(revenue)-2].Amount
	insights = append(insights, fmt.Sprintf(
		"Revenue %s compared to the previous month.",
		direction(percentChange(previous, latest))))

	first := revenue[0].Amount
	insights = append(insights, fmt.Sprintf(
		"Revenue %s over the last %d months.",
		direction(percentChange(first, latest)), len(revenue)))

	window := revenue
	if len(window) > smoothingWindow {
		window = window[len(window)-smoothingWindow:]
	}
	var changeSum float64
	for i := 1; i < len(window); i++ {
		changeSum += percentChange(window[i-1].Amount, window[i].Amount)
	}
	avgChange := changeSum / float64(len(window)-1)
	switch {
	case avgChange > 0:
		insights = append(insights, fmt.Sprintf(
			"Recent trend shows average growth of %.1f%% per month.", avgChange))
	case avgChange < 0:
		insights = append(insights, fmt.Sprintf(
			"Recent trend shows an average decline of %.1f%% per month.", math.Abs(avgChange)))
	default:
		insights = append(insights, "Recent trend shows flat revenue month over month.")
	}

	if len(revenue) >= seasonalityPoints {
		insights = append(insights,
			"A full year of history is available; account for seasonal effects when comparing individual months.")
	}

	return insights
}

// FromForecast derives narrative insights from a forecast series. Needs
// at least 2 points. The mean of consecutive percent changes across the
// whole series is classified into growth bands with strictly-greater
// comparisons, so a rate of exactly 5.0% reads as moderate, not strong.
func FromForecast(forecast []domain.ForecastPoint) []string {
	if len(forecast) < 2 {
		return []string{InsufficientForecastData}
	}

	insights := make([]string, 0, 4)

	var changeSum float64
	for i := 1; i < len(forecast); i++ {
		changeSum += percentChange(forecast[i-1].Predicted, forecast[i].Predicted)
	}
	avgGrowth := changeSum / float64(len(forecast)-1)

	switch {
	case avgGrowth > strongGrowth:
		insights = append(insights, fmt.Sprintf(
			"Forecast shows strong growth averaging %.1f%% per month.", avgGrowth))
	case avgGrowth > moderateGrowth:
		insights = append(insights, fmt.Sprintf(
			"Forecast shows moderate growth averaging %.1f%% per month.", avgGrowth))
	case avgGrowth > 0:
		insights = append(insights, fmt.Sprintf(
			"Forecast shows slight growth averaging %.1f%% per month.", avgGrowth))
	default:
		insights = append(insights, fmt.Sprintf(
			"Forecast shows declining revenue averaging %.1f%% per month.", math.Abs(avgGrowth)))
	}

	total := percentChange(forecast[0].Predicted, forecast[len(forecast)-1].Predicted)
	insights = append(insights, fmt.Sprintf(
		"Projected revenue %s from the first to the last forecast period.",
		direction(total)))

	final := forecast[len(forecast)-1]
	if final.Predicted != 0 {
		relWidth := final.BandWidth() / final.Predicted
		switch {
		case relWidth > highUncertainty:
			insights = append(insights, fmt.Sprintf(
				"The final period's confidence band spans %.1f%% of its projection, indicating high uncertainty.", relWidth*100))
		case relWidth > moderateUncertainty:
			insights = append(insights, fmt.Sprintf(
				"The final period's confidence band spans %.1f%% of its projection, indicating moderate uncertainty.", relWidth*100))
		default:
			insights = append(insights, fmt.Sprintf(
				"The final period's confidence band spans %.1f%% of its projection, a relatively tight estimate.", relWidth*100))
		}
	}

	switch {
	case avgGrowth > strongGrowth:
		insights = append(insights, "Consider investing in capacity to capture the projected growth.")
	case avgGrowth > moderateGrowth:
		insights = append(insights, "Maintain the current strategy and keep monitoring growth drivers.")
	case avgGrowth > 0:
		insights = append(insights, "Look for opportunities to accelerate growth before the trend flattens.")
	default:
		insights = append(insights, "Review pricing and cost structure to counter the projected decline.")
	}

	return insights
}
