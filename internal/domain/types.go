package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Category represents the expense category enum (10 standard categories).
// Use ValidateCategory to ensure validity before use.
type Category string

const (
	CategoryRent          Category = "Rent"
	CategoryPayroll       Category = "Payroll"
	CategoryMarketing     Category = "Marketing"
	CategorySupplies      Category = "Supplies"
	CategoryUtilities     Category = "Utilities"
	CategoryTravel        Category = "Travel"
	CategorySoftware      Category = "Software"
	CategoryEquipment     Category = "Equipment"
	CategoryInsurance     Category = "Insurance"
	CategoryUncategorized Category = "Uncategorized"
)

// categoryOrder is the fixed evaluation order used by the classifier and
// the zero-initialized grouping in analytics. Order is part of the contract:
// classification returns the first matching category in this order.
var categoryOrder = []Category{
	CategoryRent, CategoryPayroll, CategoryMarketing, CategorySupplies,
	CategoryUtilities, CategoryTravel, CategorySoftware, CategoryEquipment,
	CategoryInsurance, CategoryUncategorized,
}

var validCategories = map[Category]struct{}{
	CategoryRent: {}, CategoryPayroll: {}, CategoryMarketing: {},
	CategorySupplies: {}, CategoryUtilities: {}, CategoryTravel: {},
	CategorySoftware: {}, CategoryEquipment: {}, CategoryInsurance: {},
	CategoryUncategorized: {},
}

// Categories returns the fixed category enumeration in evaluation order.
// Returns a defensive copy so callers cannot reorder the canonical list.
func Categories() []Category {
	return append([]Category(nil), categoryOrder...)
}

// ValidateCategory checks if category is valid
func ValidateCategory(c Category) bool {
	_, ok := validCategories[c]
	return ok
}

// Difficulty represents the implementation effort tag on a recommendation.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

var validDifficulties = map[Difficulty]struct{}{
	DifficultyEasy: {}, DifficultyMedium: {}, DifficultyHard: {},
}

// ValidateDifficulty checks if difficulty is valid
func ValidateDifficulty(d Difficulty) bool {
	_, ok := validDifficulties[d]
	return ok
}

// Significance tags an anomaly as above (high) or below (low) the category mean.
type Significance string

const (
	SignificanceHigh Significance = "high"
	SignificanceLow  Significance = "low"
)

// Expense is a single spend record. Mutation happens only via full-record
// replacement on the owning Dataset; fields are never patched in place.
type Expense struct {
	ID          string   `json:"id"`
	Date        string   `json:"date"` // ISO format YYYY-MM-DD
	Amount      float64  `json:"amount"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Vendor      string   `json:"vendor"`
}

// NewExpense creates a validated expense
func NewExpense(id, date, description, vendor string, amount float64, category Category) (*Expense, error) {
	if id == "" {
		return nil, fmt.Errorf("expense ID cannot be empty")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, fmt.Errorf("invalid date format: %w", err)
	}
	if description == "" {
		return nil, fmt.Errorf("description cannot be empty")
	}
	if amount <= 0 {
		return nil, fmt.Errorf("amount must be positive, got %f", amount)
	}
	if !ValidateCategory(category) {
		return nil, fmt.Errorf("invalid category: %s", category)
	}

	return &Expense{
		ID:          id,
		Date:        date,
		Amount:      amount,
		Description: description,
		Category:    category,
		Vendor:      vendor,
	}, nil
}

// Month returns the YYYY-MM prefix of the expense date.
func (e *Expense) Month() string {
	if len(e.Date) < 7 {
		return e.Date
	}
	return e.Date[:7]
}

// Revenue is one month of revenue. One entry per calendar month is expected
// by convention; the validator reports repeats as warnings, not errors.
type Revenue struct {
	Date   string  `json:"date"` // YYYY-MM
	Amount float64 `json:"amount"`
}

// NewRevenue creates a validated revenue entry
func NewRevenue(date string, amount float64) (*Revenue, error) {
	if _, err := time.Parse("2006-01", date); err != nil {
		return nil, fmt.Errorf("invalid month format (expected YYYY-MM): %w", err)
	}
	if amount < 0 {
		return nil, fmt.Errorf("revenue amount cannot be negative, got %f", amount)
	}
	return &Revenue{Date: date, Amount: amount}, nil
}

// ForecastPoint is a single projected month with its confidence band.
// Invariant: LowerBound <= Predicted <= UpperBound.
type ForecastPoint struct {
	Date       string  `json:"date"` // YYYY-MM
	Predicted  float64 `json:"predicted"`
	LowerBound float64 `json:"lowerBound"`
	UpperBound float64 `json:"upperBound"`
}

// NewForecastPoint creates a validated forecast point
func NewForecastPoint(date string, predicted, lowerBound, upperBound float64) (*ForecastPoint, error) {
	if _, err := time.Parse("2006-01", date); err != nil {
		return nil, fmt.Errorf("invalid month format (expected YYYY-MM): %w", err)
	}
	if lowerBound > predicted || predicted > upperBound {
		return nil, fmt.Errorf("bounds must satisfy lower <= predicted <= upper, got [%f, %f, %f]",
			lowerBound, predicted, upperBound)
	}
	return &ForecastPoint{
		Date:       date,
		Predicted:  predicted,
		LowerBound: lowerBound,
		UpperBound: upperBound,
	}, nil
}

// BandWidth returns the full width of the confidence band.
func (f *ForecastPoint) BandWidth() float64 {
	return f.UpperBound - f.LowerBound
}

// CategoryBreakdown is a derived per-category share of total spend.
// Recomputed wholesale whenever the expense collection changes.
type CategoryBreakdown struct {
	Category   Category `json:"category"`
	Amount     float64  `json:"amount"`
	Percentage float64  `json:"percentage"`
}

// Recommendation is a derived cost-optimization suggestion.
// Regenerated in full on every expense-set change; never patched.
type Recommendation struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Category         Category   `json:"category"`
	PotentialSavings float64    `json:"potentialSavings"`
	Difficulty       Difficulty `json:"implementationDifficulty"`
	Confidence       float64    `json:"confidence"`
}

// NewRecommendation creates a validated recommendation
func NewRecommendation(id, title, description string, category Category, savings float64, difficulty Difficulty, confidence float64) (*Recommendation, error) {
	if id == "" {
		return nil, fmt.Errorf("recommendation ID cannot be empty")
	}
	if title == "" {
		return nil, fmt.Errorf("title cannot be empty")
	}
	if !ValidateCategory(category) {
		return nil, fmt.Errorf("invalid category: %s", category)
	}
	if savings < 0 {
		return nil, fmt.Errorf("potential savings cannot be negative, got %f", savings)
	}
	if !ValidateDifficulty(difficulty) {
		return nil, fmt.Errorf("invalid difficulty: %s", difficulty)
	}
	if confidence < 0 || confidence > 1 {
		return nil, fmt.Errorf("confidence must be in [0,1], got %f", confidence)
	}

	return &Recommendation{
		ID:               id,
		Title:            title,
		Description:      description,
		Category:         category,
		PotentialSavings: savings,
		Difficulty:       difficulty,
		Confidence:       confidence,
	}, nil
}

// Anomaly is a flagged outlier expense within its category.
type Anomaly struct {
	Expense      Expense      `json:"expense"`
	MeanAmount   float64      `json:"meanAmount"`
	Deviation    float64      `json:"deviation"` // In standard-deviation units
	Significance Significance `json:"significance"`
}

// DuplicatePair is two expenses suspected to be the same charge.
type DuplicatePair struct {
	Expense1 Expense `json:"expense1"`
	Expense2 Expense `json:"expense2"`
}

// AnomalySummary aggregates counts over a report.
//
// PotentialSavings sums one side of each duplicate pair. This conflates
// "duplicate found" with "money recoverable" and is kept for behavioral
// compatibility with the dashboards built on it.
type AnomalySummary struct {
	AnomalyCount          int     `json:"anomalyCount"`
	DuplicateCount        int     `json:"duplicateCount"`
	HighSignificanceCount int     `json:"highSignificanceCount"`
	PotentialSavings      float64 `json:"potentialSavings"`
}

// AnomalyReport is transient detector output; it is never persisted.
type AnomalyReport struct {
	Anomalies           []Anomaly       `json:"anomalies"`
	PotentialDuplicates []DuplicatePair `json:"potentialDuplicates"`
	Summary             AnomalySummary  `json:"summary"`
}

// Dataset is the root owner of all source records. Derived entities
// (breakdowns, metrics, recommendations, reports) are computed from
// snapshots of this collection, never stored on it.
type Dataset struct {
	expenses []Expense
	revenue  []Revenue
	forecast []ForecastPoint
}

// NewDataset creates an empty dataset with initialized slices
func NewDataset() *Dataset {
	return &Dataset{
		expenses: []Expense{},
		revenue:  []Revenue{},
		forecast: []ForecastPoint{},
	}
}

func (d *Dataset) hasExpense(id string) bool {
	for _, e := range d.expenses {
		if e.ID == id {
			return true
		}
	}
	return false
}

// AddExpense adds a validated expense, checking for duplicate IDs
func (d *Dataset) AddExpense(e Expense) error {
	if e.ID == "" {
		return fmt.Errorf("invalid expense: ID is required")
	}
	if d.hasExpense(e.ID) {
		return fmt.Errorf("expense %s already exists", e.ID)
	}
	d.expenses = append(d.expenses, e)
	return nil
}

// ReplaceExpense swaps the record with the matching ID for a new one.
// Full-record replacement is the only mutation path for expenses.
func (d *Dataset) ReplaceExpense(id string, e Expense) error {
	if e.ID != id {
		return fmt.Errorf("replacement ID %s does not match target %s", e.ID, id)
	}
	for i, existing := range d.expenses {
		if existing.ID == id {
			d.expenses[i] = e
			return nil
		}
	}
	return fmt.Errorf("expense %s not found", id)
}

// RemoveExpense deletes the record with the matching ID
func (d *Dataset) RemoveExpense(id string) error {
	for i, existing := range d.expenses {
		if existing.ID == id {
			d.expenses = append(d.expenses[:i], d.expenses[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("expense %s not found", id)
}

// AddRevenue appends a revenue entry. Chronological ordering is the
// caller's responsibility; one entry per month is convention, not enforced.
func (d *Dataset) AddRevenue(r Revenue) error {
	if _, err := time.Parse("2006-01", r.Date); err != nil {
		return fmt.Errorf("invalid revenue month %q: %w", r.Date, err)
	}
	d.revenue = append(d.revenue, r)
	return nil
}

// AddForecastPoint appends a forecast point after checking band ordering
func (d *Dataset) AddForecastPoint(f ForecastPoint) error {
	if f.LowerBound > f.Predicted || f.Predicted > f.UpperBound {
		return fmt.Errorf("forecast point %s violates bound ordering", f.Date)
	}
	d.forecast = append(d.forecast, f)
	return nil
}

// SetForecast replaces the forecast series wholesale
func (d *Dataset) SetForecast(points []ForecastPoint) error {
	for _, f := range points {
		if f.LowerBound > f.Predicted || f.Predicted > f.UpperBound {
			return fmt.Errorf("forecast point %s violates bound ordering", f.Date)
		}
	}
	d.forecast = append([]ForecastPoint(nil), points...)
	return nil
}

// GetExpenses returns a defensive copy of the expense slice
func (d *Dataset) GetExpenses() []Expense {
	return append([]Expense(nil), d.expenses...)
}

// GetRevenue returns a defensive copy of the revenue slice
func (d *Dataset) GetRevenue() []Revenue {
	return append([]Revenue(nil), d.revenue...)
}

// GetForecast returns a defensive copy of the forecast slice
func (d *Dataset) GetForecast() []ForecastPoint {
	return append([]ForecastPoint(nil), d.forecast...)
}

// MarshalJSON implements custom JSON marshaling for Dataset
func (d *Dataset) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Expenses []Expense       `json:"expenses"`
		Revenue  []Revenue       `json:"revenue"`
		Forecast []ForecastPoint `json:"forecast"`
	}{
		Expenses: d.expenses,
		Revenue:  d.revenue,
		Forecast: d.forecast,
	})
}

// UnmarshalJSON implements custom JSON unmarshaling for Dataset
func (d *Dataset) UnmarshalJSON(data []byte) error {
	aux := &struct {
		Expenses []Expense       `json:"expenses"`
		Revenue  []Revenue       `json:"revenue"`
		Forecast []ForecastPoint `json:"forecast"`
	}{}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	d.expenses = aux.Expenses
	d.revenue = aux.Revenue
	d.forecast = aux.Forecast
	return nil
}
