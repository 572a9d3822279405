package validate

import (
	"encoding/json"
	"testing"

	"github.com/VKNithyanand/garuda-finance/internal/domain"
)

// datasetFromJSON builds a dataset straight from its wire form, which is
// the one path that bypasses the Add* validation. Imported files arrive
// the same way, which is exactly what this package gates.
func datasetFromJSON(t *testing.T, raw string) *domain.Dataset {
	t.Helper()
	var d domain.Dataset
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		t.Fatalf("Failed to unmarshal dataset: %v", err)
	}
	return &d
}

func hasError(result *ValidationResult, entity, field string) bool {
	for _, e := range result.Errors {
		if e.Entity == entity && e.Field == field {
			return true
		}
	}
	return false
}

func hasWarning(result *ValidationResult, entity, field string) bool {
	for _, w := range result.Warnings {
		if w.Entity == entity && w.Field == field {
			return true
		}
	}
	return false
}

func TestValidateDataset_CleanDataset(t *testing.T) {
	d := datasetFromJSON(t, `{
		"expenses": [
			{"id": "exp-1", "date": "2024-01-05", "amount": 49.99, "description": "Monthly subscription", "category": "Software", "vendor": "Adobe"}
		],
		"revenue": [
			{"date": "2024-01", "amount": 15000}
		],
		"forecast": [
			{"date": "2024-02", "predicted": 16000, "lowerBound": 14400, "upperBound": 17600}
		]
	}`)

	result := ValidateDataset(d)
	if !result.IsValid() {
		t.Errorf("Expected valid dataset, got errors: %+v", result.Errors)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("Expected no warnings, got %+v", result.Warnings)
	}
}

func TestValidateDataset_ExpenseErrors(t *testing.T) {
	d := datasetFromJSON(t, `{
		"expenses": [
			{"id": "", "date": "2024-01-05", "amount": 10, "description": "x", "category": "Rent", "vendor": "Acme"},
			{"id": "exp-1", "date": "not-a-date", "amount": 10, "description": "x", "category": "Rent", "vendor": "Acme"},
			{"id": "exp-2", "date": "2024-01-05", "amount": -5, "description": "x", "category": "Rent", "vendor": "Acme"},
			{"id": "exp-3", "date": "2024-01-05", "amount": 10, "description": "x", "category": "Groceries", "vendor": "Acme"},
			{"id": "exp-3", "date": "2024-01-05", "amount": 10, "description": "x", "category": "Rent", "vendor": "Acme"}
		],
		"revenue": [],
		"forecast": []
	}`)

	result := ValidateDataset(d)
	if result.IsValid() {
		t.Fatal("Expected errors")
	}

	if !hasError(result, "expense", "ID") {
		t.Error("Missing empty/duplicate ID error")
	}
	if !hasError(result, "expense", "Date") {
		t.Error("Missing date format error")
	}
	if !hasError(result, "expense", "Amount") {
		t.Error("Missing negative amount error")
	}
	if !hasError(result, "expense", "Category") {
		t.Error("Missing unknown category error")
	}

	dupCount := 0
	for _, e := range result.Errors {
		if e.Message == "duplicate expense ID" {
			dupCount++
		}
	}
	if dupCount != 1 {
		t.Errorf("Expected exactly 1 duplicate-ID error, got %d", dupCount)
	}
}

func TestValidateDataset_EmptyDescriptionWarns(t *testing.T) {
	d := datasetFromJSON(t, `{
		"expenses": [
			{"id": "exp-1", "date": "2024-01-05", "amount": 10, "description": "", "category": "Rent", "vendor": "Acme"}
		],
		"revenue": [],
		"forecast": []
	}`)

	result := ValidateDataset(d)
	if !result.IsValid() {
		t.Errorf("Empty description must warn, not error: %+v", result.Errors)
	}
	if !hasWarning(result, "expense", "Description") {
		t.Errorf("Expected description warning, got %+v", result.Warnings)
	}
}

func TestValidateDataset_RevenueChecks(t *testing.T) {
	d := datasetFromJSON(t, `{
		"expenses": [],
		"revenue": [
			{"date": "2024-01-15", "amount": 100},
			{"date": "2024-02", "amount": -50},
			{"date": "2024-03", "amount": 100},
			{"date": "2024-03", "amount": 200}
		],
		"forecast": []
	}`)

	result := ValidateDataset(d)

	if !hasError(result, "revenue", "Date") {
		t.Error("Full dates must be rejected for revenue")
	}
	if !hasError(result, "revenue", "Amount") {
		t.Error("Negative revenue must be an error")
	}
	if !hasWarning(result, "revenue", "Date") {
		t.Error("Repeated month must be a warning")
	}
}

func TestValidateDataset_ForecastBounds(t *testing.T) {
	d := datasetFromJSON(t, `{
		"expenses": [],
		"revenue": [],
		"forecast": [
			{"date": "2024-02", "predicted": 1000, "lowerBound": 1100, "upperBound": 1200},
			{"date": "bad", "predicted": 1000, "lowerBound": 900, "upperBound": 1100}
		]
	}`)

	result := ValidateDataset(d)

	if !hasError(result, "forecast", "Bounds") {
		t.Error("Bound-ordering violation must be an error")
	}
	if !hasError(result, "forecast", "Date") {
		t.Error("Malformed forecast date must be an error")
	}
}

func TestValidationResult_IsValid(t *testing.T) {
	r := &ValidationResult{Errors: []ValidationError{}, Warnings: []ValidationWarning{{Entity: "expense"}}}
	if !r.IsValid() {
		t.Error("Warnings alone must not invalidate the result")
	}

	r.Errors = append(r.Errors, ValidationError{Entity: "expense"})
	if r.IsValid() {
		t.Error("Errors must invalidate the result")
	}
}
