package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/VKNithyanand/garuda-finance/internal/domain"
)

// ExpenseCSVParser parses expense exports with a stateless design.
// The struct has no fields because parsing requires no configuration
// state, making the parser safe for concurrent use without locking.
type ExpenseCSVParser struct{}

var expenseCSVInstance = &ExpenseCSVParser{}

// NewExpenseCSVParser returns the shared expense CSV parser instance
func NewExpenseCSVParser() *ExpenseCSVParser {
	return expenseCSVInstance
}

// expenseHeader is the required column layout for expense exports
var expenseHeader = []string{"date", "amount", "description", "category", "vendor"}

// Name returns the parser identifier
func (p *ExpenseCSVParser) Name() string {
	return "csv-expense"
}

// CanParse checks extension and header row
func (p *ExpenseCSVParser) CanParse(path string, header []byte) bool {
	if strings.ToLower(filepath.Ext(path)) != ".csv" {
		return false
	}

	record, err := readHeaderRecord(header)
	if err != nil {
		return false
	}
	return matchesHeader(record, expenseHeader)
}

// Parse extracts expenses from a CSV export.
// Rows with an unknown or empty category fall back to Uncategorized;
// malformed dates or amounts are errors.
func (p *ExpenseCSVParser) Parse(ctx context.Context, r io.Reader, meta *Metadata) (*Batch, error) {
	records, err := readAllRecords(ctx, r, meta)
	if err != nil {
		return nil, err
	}

	if len(records) < 1 {
		return nil, fmt.Errorf("CSV file is empty%s", fileInfo(meta))
	}
	if !matchesHeader(records[0], expenseHeader) {
		return nil, fmt.Errorf("unexpected expense CSV header %v%s", records[0], fileInfo(meta))
	}

	batch := &Batch{}
	for i, record := range records[1:] {
		if isBlankRow(record) {
			continue
		}

		expense, err := p.parseRow(record, i)
		if err != nil {
			return nil, fmt.Errorf("failed to parse expense at row %d%s: %w", i+2, fileInfo(meta), err)
		}
		batch.Expenses = append(batch.Expenses, *expense)
	}

	return batch, nil
}

// parseRow parses a single expense row.
// Format: Date, Amount, Description, Category, Vendor
func (p *ExpenseCSVParser) parseRow(record []string, index int) (*domain.Expense, error) {
	if len(record) != len(expenseHeader) {
		return nil, fmt.Errorf("expense row must have %d fields, got %d", len(expenseHeader), len(record))
	}

	date := strings.TrimSpace(record[0])
	amountStr := strings.TrimSpace(record[1])
	amount, err := strconv.ParseFloat(amountStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amountStr, err)
	}

	description := strings.TrimSpace(record[2])
	vendor := strings.TrimSpace(record[4])

	// Unknown categories are not an error; classification runs downstream
	category := domain.Category(strings.TrimSpace(record[3]))
	if !domain.ValidateCategory(category) {
		category = domain.CategoryUncategorized
	}

	id := generateRecordID("imp", date, index, amount)
	return domain.NewExpense(id, date, description, vendor, amount, category)
}

// RevenueCSVParser parses monthly revenue exports. Stateless, shared
// instance, same concurrency properties as the expense parser.
type RevenueCSVParser struct{}

var revenueCSVInstance = &RevenueCSVParser{}

// NewRevenueCSVParser returns the shared revenue CSV parser instance
func NewRevenueCSVParser() *RevenueCSVParser {
	return revenueCSVInstance
}

var revenueHeader = []string{"date", "amount"}

// monthPattern matches YYYY-MM revenue dates
var monthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// Name returns the parser identifier
func (p *RevenueCSVParser) Name() string {
	return "csv-revenue"
}

// CanParse checks extension and the two-column header row
func (p *RevenueCSVParser) CanParse(path string, header []byte) bool {
	if strings.ToLower(filepath.Ext(path)) != ".csv" {
		return false
	}

	record, err := readHeaderRecord(header)
	if err != nil {
		return false
	}
	return matchesHeader(record, revenueHeader)
}

// Parse extracts monthly revenue entries.
// Format per row: Date (YYYY-MM), Amount
func (p *RevenueCSVParser) Parse(ctx context.Context, r io.Reader, meta *Metadata) (*Batch, error) {
	records, err := readAllRecords(ctx, r, meta)
	if err != nil {
		return nil, err
	}

	if len(records) < 1 {
		return nil, fmt.Errorf("CSV file is empty%s", fileInfo(meta))
	}
	if !matchesHeader(records[0], revenueHeader) {
		return nil, fmt.Errorf("unexpected revenue CSV header %v%s", records[0], fileInfo(meta))
	}

	batch := &Batch{}
	for i, record := range records[1:] {
		if isBlankRow(record) {
			continue
		}
		if len(record) != len(revenueHeader) {
			return nil, fmt.Errorf("revenue row %d must have %d fields, got %d%s", i+2, len(revenueHeader), len(record), fileInfo(meta))
		}

		date := strings.TrimSpace(record[0])
		if !monthPattern.MatchString(date) {
			return nil, fmt.Errorf("invalid revenue month %q at row %d%s", date, i+2, fileInfo(meta))
		}

		amountStr := strings.TrimSpace(record[1])
		amount, err := strconv.ParseFloat(amountStr, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid amount %q at row %d%s: %w", amountStr, i+2, fileInfo(meta), err)
		}

		revenue, err := domain.NewRevenue(date, amount)
		if err != nil {
			return nil, fmt.Errorf("failed to parse revenue at row %d%s: %w", i+2, fileInfo(meta), err)
		}
		batch.Revenue = append(batch.Revenue, *revenue)
	}

	return batch, nil
}

// readHeaderRecord parses the first CSV record out of a sniffed header
func readHeaderRecord(header []byte) ([]string, error) {
	r := csv.NewReader(strings.NewReader(string(header)))
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1
	return r.Read()
}

// readAllRecords reads the full CSV content with a pre-read cancel check
func readAllRecords(ctx context.Context, r io.Reader, meta *Metadata) ([][]string, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	csvReader := csv.NewReader(r)
	csvReader.LazyQuotes = true
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV content%s: %w", fileInfo(meta), err)
	}
	return records, nil
}

func matchesHeader(record, want []string) bool {
	if len(record) != len(want) {
		return false
	}
	for i, field := range record {
		if !strings.EqualFold(strings.TrimSpace(field), want[i]) {
			return false
		}
	}
	return true
}

func isBlankRow(record []string) bool {
	return len(record) == 0 || (len(record) == 1 && strings.TrimSpace(record[0]) == "")
}

// generateRecordID creates a deterministic record ID from source prefix,
// date, row position, and amount.
// Format: {prefix}-{date}-{row}-{amount without punctuation}
func generateRecordID(prefix, date string, row int, amount float64) string {
	amountStr := fmt.Sprintf("%.2f", amount)
	amountStr = strings.ReplaceAll(amountStr, ".", "")
	amountStr = strings.ReplaceAll(amountStr, "-", "n")
	return fmt.Sprintf("%s-%s-%d-%s", prefix, date, row, amountStr)
}
