// Package optimize scans an expense collection for savings opportunities.
// Recommendations are derived wholesale from the current snapshot and carry
// stable IDs so the caller can diff successive runs.
package optimize

import (
	"fmt"
	"sort"
	"strings"

	"github.com/VKNithyanand/garuda-finance/internal/domain"
)

const (
	// highSpendShare marks a category as consolidation-worthy when its
	// spend exceeds this fraction of the grand total
	highSpendShare = 0.30

	// Savings rates per rule, each a fraction of the targeted spend
	consolidationRate = 0.10
	subscriptionRate  = 0.15
	cleanupRate       = 0.05
	vendorVolumeRate  = 0.08

	// vendorRepeatMin is the charge count at which a vendor qualifies
	// for volume-pricing review
	vendorRepeatMin = 3
)

func roundCents(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

// Recommend analyzes the expense collection and returns savings
// recommendations in a deterministic order. The input is never mutated; an
// empty input yields an empty slice. Results must be regenerated whenever
// the source collection changes.
func Recommend(expenses []domain.Expense) []domain.Recommendation {
	recs := []domain.Recommendation{}
	if len(expenses) == 0 {
		return recs
	}

	totals := make(map[domain.Category]float64)
	counts := make(map[domain.Category]int)
	var grandTotal float64
	for _, e := range expenses {
		totals[e.Category] += e.Amount
		counts[e.Category]++
		grandTotal += e.Amount
	}

	recs = append(recs, highSpendRecommendations(totals, grandTotal)...)

	if softwareTotal := totals[domain.CategorySoftware]; softwareTotal > 0 {
		recs = append(recs, domain.Recommendation{
			ID:    RecommendationID("audit", string(domain.CategorySoftware)),
			Title: "Audit software subscriptions",
			Description: fmt.Sprintf(
				"Software spend totals %.2f. Review active subscriptions for unused seats and overlapping tools.",
				softwareTotal),
			Category:         domain.CategorySoftware,
			PotentialSavings: roundCents(softwareTotal * subscriptionRate),
			Difficulty:       domain.DifficultyEasy,
			Confidence:       0.8,
		})
	}

	if uncategorized := totals[domain.CategoryUncategorized]; uncategorized > 0 {
		recs = append(recs, domain.Recommendation{
			ID:    RecommendationID("cleanup", string(domain.CategoryUncategorized)),
			Title: "Categorize unclassified expenses",
			Description: fmt.Sprintf(
				"%d expenses totaling %.2f are uncategorized. Classifying them improves every downstream analysis and often surfaces cancellable charges.",
				counts[domain.CategoryUncategorized], uncategorized),
			Category:         domain.CategoryUncategorized,
			PotentialSavings: roundCents(uncategorized * cleanupRate),
			Difficulty:       domain.DifficultyEasy,
			Confidence:       0.9,
		})
	}

	recs = append(recs, vendorVolumeRecommendations(expenses)...)

	return recs
}

// highSpendRecommendations flags categories whose spend dominates the
// total. Categories are visited in the fixed enumeration order so output
// is deterministic; Uncategorized is excluded because its cleanup rule
// covers it.
func highSpendRecommendations(totals map[domain.Category]float64, grandTotal float64) []domain.Recommendation {
	recs := []domain.Recommendation{}
	if grandTotal <= 0 {
		return recs
	}

	for _, category := range domain.Categories() {
		if category == domain.CategoryUncategorized {
			continue
		}
		total := totals[category]
		if total/grandTotal <= highSpendShare {
			continue
		}

		recs = append(recs, domain.Recommendation{
			ID:    RecommendationID("consolidate", string(category)),
			Title: fmt.Sprintf("Consolidate %s spending", category),
			Description: fmt.Sprintf(
				"%s accounts for %.1f%% of total spend. Consolidating providers or renegotiating terms typically recovers a share of it.",
				category, total/grandTotal*100),
			Category:         category,
			PotentialSavings: roundCents(total * consolidationRate),
			Difficulty:       domain.DifficultyMedium,
			Confidence:       0.65,
		})
	}

	return recs
}

// vendorVolumeRecommendations flags vendors charged at least
// vendorRepeatMin times. Each qualifying vendor yields one recommendation
// targeting the category where that vendor's spend is largest. Vendors are
// emitted in sorted order for determinism.
func vendorVolumeRecommendations(expenses []domain.Expense) []domain.Recommendation {
	type vendorStats struct {
		count       int
		total       float64
		perCategory map[domain.Category]float64
		displayName string
	}

	stats := make(map[string]*vendorStats)
	for _, e := range expenses {
		key := strings.ToLower(strings.TrimSpace(e.Vendor))
		if key == "" {
			continue
		}
		s, ok := stats[key]
		if !ok {
			s = &vendorStats{perCategory: make(map[domain.Category]float64), displayName: strings.TrimSpace(e.Vendor)}
			stats[key] = s
		}
		s.count++
		s.total += e.Amount
		s.perCategory[e.Category] += e.Amount
	}

	keys := make([]string, 0, len(stats))
	for k, s := range stats {
		if s.count >= vendorRepeatMin {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	recs := []domain.Recommendation{}
	for _, key := range keys {
		s := stats[key]

		// Tie-break on enumeration order
		topCategory := domain.CategoryUncategorized
		var topAmount float64
		for _, c := range domain.Categories() {
			if amount := s.perCategory[c]; amount > topAmount {
				topCategory = c
				topAmount = amount
			}
		}

		recs = append(recs, domain.Recommendation{
			ID:    RecommendationID("vendor", key),
			Title: fmt.Sprintf("Negotiate volume pricing with %s", s.displayName),
			Description: fmt.Sprintf(
				"%s was charged %d times for a total of %.2f. Repeat vendors are strong candidates for volume discounts or annual contracts.",
				s.displayName, s.count, s.total),
			Category:         topCategory,
			PotentialSavings: roundCents(s.total * vendorVolumeRate),
			Difficulty:       domain.DifficultyMedium,
			Confidence:       0.7,
		})
	}

	return recs
}

// TotalPotentialSavings sums savings across recommendations. Single pass
// and order-independent.
func TotalPotentialSavings(recs []domain.Recommendation) float64 {
	var total float64
	for _, r := range recs {
		total += r.PotentialSavings
	}
	return total
}
