// Package validate checks dataset records against the domain invariants
// before analysis or persistence.
package validate

import (
	"fmt"
	"time"

	"github.com/VKNithyanand/garuda-finance/internal/domain"
)

// ValidationResult contains all validation errors and warnings for a dataset
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// ValidationError represents a validation error
type ValidationError struct {
	Entity  string // "expense", "revenue", "forecast"
	ID      string
	Field   string
	Value   string
	Message string
}

// ValidationWarning represents a non-critical validation issue
type ValidationWarning struct {
	Entity  string
	ID      string
	Field   string
	Value   string
	Message string
}

// IsValid returns true when no errors were found. Warnings do not affect
// validity.
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// ValidateDataset checks every record in the dataset against the domain
// invariants. Returns all errors and warnings found rather than stopping
// at the first.
func ValidateDataset(d *domain.Dataset) *ValidationResult {
	result := &ValidationResult{
		Errors:   []ValidationError{},
		Warnings: []ValidationWarning{},
	}

	validateExpenses(d.GetExpenses(), result)
	validateRevenue(d.GetRevenue(), result)
	validateForecast(d.GetForecast(), result)

	return result
}

func validateExpenses(expenses []domain.Expense, result *ValidationResult) {
	seen := make(map[string]bool)

	for _, e := range expenses {
		if e.ID == "" {
			result.Errors = append(result.Errors, ValidationError{
				Entity:  "expense",
				Field:   "ID",
				Message: "expense ID cannot be empty",
			})
		} else {
			if seen[e.ID] {
				result.Errors = append(result.Errors, ValidationError{
					Entity:  "expense",
					ID:      e.ID,
					Field:   "ID",
					Value:   e.ID,
					Message: "duplicate expense ID",
				})
			}
			seen[e.ID] = true
		}

		if _, err := time.Parse("2006-01-02", e.Date); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Entity:  "expense",
				ID:      e.ID,
				Field:   "Date",
				Value:   e.Date,
				Message: "date must be YYYY-MM-DD",
			})
		}

		if e.Amount <= 0 {
			result.Errors = append(result.Errors, ValidationError{
				Entity:  "expense",
				ID:      e.ID,
				Field:   "Amount",
				Value:   fmt.Sprintf("%f", e.Amount),
				Message: "amount must be positive",
			})
		}

		if !domain.ValidateCategory(e.Category) {
			result.Errors = append(result.Errors, ValidationError{
				Entity:  "expense",
				ID:      e.ID,
				Field:   "Category",
				Value:   string(e.Category),
				Message: "unknown category",
			})
		}

		if e.Description == "" {
			result.Warnings = append(result.Warnings, ValidationWarning{
				Entity:  "expense",
				ID:      e.ID,
				Field:   "Description",
				Message: "empty description limits classification quality",
			})
		}
	}
}

func validateRevenue(revenue []domain.Revenue, result *ValidationResult) {
	seenMonths := make(map[string]bool)

	for _, r := range revenue {
		if _, err := time.Parse("2006-01", r.Date); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Entity:  "revenue",
				ID:      r.Date,
				Field:   "Date",
				Value:   r.Date,
				Message: "date must be YYYY-MM",
			})
			continue
		}

		// One entry per month is convention, not an invariant
		if seenMonths[r.Date] {
			result.Warnings = append(result.Warnings, ValidationWarning{
				Entity:  "revenue",
				ID:      r.Date,
				Field:   "Date",
				Value:   r.Date,
				Message: "repeated revenue month",
			})
		}
		seenMonths[r.Date] = true

		if r.Amount < 0 {
			result.Errors = append(result.Errors, ValidationError{
				Entity:  "revenue",
				ID:      r.Date,
				Field:   "Amount",
				Value:   fmt.Sprintf("%f", r.Amount),
				Message: "amount cannot be negative",
			})
		}
	}
}

func validateForecast(forecast []domain.ForecastPoint, result *ValidationResult) {
	for _, f := range forecast {
		if _, err := time.Parse("2006-01", f.Date); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Entity:  "forecast",
				ID:      f.Date,
				Field:   "Date",
				Value:   f.Date,
				Message: "date must be YYYY-MM",
			})
		}

		if f.LowerBound > f.Predicted || f.Predicted > f.UpperBound {
			result.Errors = append(result.Errors, ValidationError{
				Entity:  "forecast",
				ID:      f.Date,
				Field:   "Bounds",
				Value:   fmt.Sprintf("[%f, %f, %f]", f.LowerBound, f.Predicted, f.UpperBound),
				Message: "bounds must satisfy lower <= predicted <= upper",
			})
		}
	}
}
