package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/VKNithyanand/garuda-finance/internal/domain"
)

// DatasetJSONParser parses full dataset exports in the storage JSON
// shape. Stateless, shared instance.
type DatasetJSONParser struct{}

var datasetJSONInstance = &DatasetJSONParser{}

// NewDatasetJSONParser returns the shared dataset JSON parser instance
func NewDatasetJSONParser() *DatasetJSONParser {
	return datasetJSONInstance
}

// Name returns the parser identifier
func (p *DatasetJSONParser) Name() string {
	return "json-dataset"
}

// CanParse checks extension and that the content opens as a JSON object
func (p *DatasetJSONParser) CanParse(path string, header []byte) bool {
	if strings.ToLower(filepath.Ext(path)) != ".json" {
		return false
	}
	trimmed := strings.TrimSpace(string(header))
	return strings.HasPrefix(trimmed, "{")
}

// Parse decodes a dataset export. Record validation runs through the
// dataset's own unmarshalling; a well-formed file that violates record
// invariants is an error, not a partial import.
func (p *DatasetJSONParser) Parse(ctx context.Context, r io.Reader, meta *Metadata) (*Batch, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON content%s: %w", fileInfo(meta), err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var dataset domain.Dataset
	if err := json.Unmarshal(content, &dataset); err != nil {
		return nil, fmt.Errorf("failed to parse dataset JSON%s: %w", fileInfo(meta), err)
	}

	return &Batch{
		Expenses: dataset.GetExpenses(),
		Revenue:  dataset.GetRevenue(),
		Forecast: dataset.GetForecast(),
	}, nil
}
