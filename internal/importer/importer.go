// Package importer turns externally supplied files into domain records.
// Parsers are stateless strategies selected by a registry via header
// sniffing; a directory scanner feeds the registry from an import tree.
package importer

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/VKNithyanand/garuda-finance/internal/domain"
)

// Parser is the strategy interface for all file format parsers
type Parser interface {
	// Name returns the parser identifier (e.g., "ofx", "csv-expense")
	Name() string

	// CanParse checks if this parser can handle the file
	CanParse(path string, header []byte) bool

	// Parse extracts domain records from the file
	Parse(ctx context.Context, r io.Reader, meta *Metadata) (*Batch, error)
}

// Batch holds the records extracted from a single file. Any of the
// slices may be empty depending on the source format.
type Batch struct {
	Expenses []domain.Expense
	Revenue  []domain.Revenue
	Forecast []domain.ForecastPoint
}

// Merge appends the other batch's records onto this one
func (b *Batch) Merge(other *Batch) {
	if other == nil {
		return
	}
	b.Expenses = append(b.Expenses, other.Expenses...)
	b.Revenue = append(b.Revenue, other.Revenue...)
	b.Forecast = append(b.Forecast, other.Forecast...)
}

// Metadata contains context about the file being parsed.
// Extracted from directory structure: {root}/{source}/file.ext
//
// Create instances using NewMetadata(filePath, detectedAt). Source is
// optional and set after construction; an empty source means the file
// sat directly under the import root.
type Metadata struct {
	filePath   string
	source     string // Inferred from directory (e.g., "bank_exports")
	detectedAt time.Time
}

// NewMetadata creates a new Metadata instance with validated required fields
func NewMetadata(filePath string, detectedAt time.Time) (*Metadata, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path cannot be empty")
	}
	if detectedAt.IsZero() {
		return nil, fmt.Errorf("detected time cannot be zero")
	}
	return &Metadata{
		filePath:   filePath,
		detectedAt: detectedAt,
	}, nil
}

// FilePath returns the absolute file path
func (m *Metadata) FilePath() string {
	return m.filePath
}

// Source returns the source label inferred from directory structure.
// Returns empty string if the file sat directly under the import root.
func (m *Metadata) Source() string {
	return m.source
}

// DetectedAt returns the timestamp when the file was detected
func (m *Metadata) DetectedAt() time.Time {
	return m.detectedAt
}

// SetSource sets the source label
func (m *Metadata) SetSource(source string) {
	m.source = source
}

// fileInfo returns a formatted file path string for error messages
func fileInfo(meta *Metadata) string {
	if meta != nil && meta.FilePath() != "" {
		return fmt.Sprintf(" from %s", meta.FilePath())
	}
	return ""
}
