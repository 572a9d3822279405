package importer

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/VKNithyanand/garuda-finance/internal/domain"
)

func TestDatasetJSONParser_CanParse(t *testing.T) {
	p := NewDatasetJSONParser()

	if !p.CanParse("dataset.json", []byte(`{"expenses":[]}`)) {
		t.Error("Expected JSON object to be accepted")
	}
	if !p.CanParse("dataset.json", []byte("  \n{")) {
		t.Error("Leading whitespace before the object must be accepted")
	}
	if p.CanParse("dataset.json", []byte(`["not","an","object"]`)) {
		t.Error("JSON arrays must be rejected")
	}
	if p.CanParse("dataset.csv", []byte(`{}`)) {
		t.Error("Wrong extension must be rejected")
	}
}

func TestDatasetJSONParser_Parse(t *testing.T) {
	p := NewDatasetJSONParser()

	dataset := domain.NewDataset()
	expense, err := domain.NewExpense("exp-1", "2024-01-05", "Monthly subscription", "Adobe", 49.99, domain.CategorySoftware)
	if err != nil {
		t.Fatalf("Failed to build expense: %v", err)
	}
	if err := dataset.AddExpense(*expense); err != nil {
		t.Fatalf("Failed to add expense: %v", err)
	}
	revenue, err := domain.NewRevenue("2024-01", 15000)
	if err != nil {
		t.Fatalf("Failed to build revenue: %v", err)
	}
	dataset.AddRevenue(*revenue)

	encoded, err := json.Marshal(dataset)
	if err != nil {
		t.Fatalf("Failed to marshal dataset: %v", err)
	}

	batch, err := p.Parse(context.Background(), strings.NewReader(string(encoded)), testMeta(t))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(batch.Expenses) != 1 || batch.Expenses[0].ID != "exp-1" {
		t.Errorf("Unexpected expenses: %+v", batch.Expenses)
	}
	if len(batch.Revenue) != 1 || batch.Revenue[0].Date != "2024-01" {
		t.Errorf("Unexpected revenue: %+v", batch.Revenue)
	}
	if len(batch.Forecast) != 0 {
		t.Errorf("Expected empty forecast, got %+v", batch.Forecast)
	}
}

func TestDatasetJSONParser_ParseMalformed(t *testing.T) {
	p := NewDatasetJSONParser()

	if _, err := p.Parse(context.Background(), strings.NewReader("{not json"), testMeta(t)); err == nil {
		t.Error("Expected error for malformed JSON")
	}
}
