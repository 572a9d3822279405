// Package output serializes datasets to JSON for files or stdout.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/VKNithyanand/garuda-finance/internal/domain"
)

// WriteOptions configures how the dataset is written
type WriteOptions struct {
	MergeMode bool   // If true, load existing file and merge
	FilePath  string // Output path (empty = stdout)
}

// WriteDataset serializes a dataset to JSON with 2-space indentation
func WriteDataset(dataset *domain.Dataset, w io.Writer) error {
	if dataset == nil {
		return fmt.Errorf("dataset cannot be nil")
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(dataset); err != nil {
		return fmt.Errorf("failed to encode dataset as JSON: %w", err)
	}

	return nil
}

// WriteDatasetToFile writes the dataset to file or stdout based on options
func WriteDatasetToFile(dataset *domain.Dataset, opts WriteOptions) (err error) {
	if dataset == nil {
		return fmt.Errorf("dataset cannot be nil")
	}

	if opts.MergeMode && opts.FilePath != "" {
		existing, err := LoadDataset(opts.FilePath)
		if err != nil {
			if !os.IsNotExist(err) {
				return fmt.Errorf("failed to load existing dataset for merge: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Warning: merge mode requested but %s does not exist, creating new file\n", opts.FilePath)
		} else {
			if err := mergeDatasets(existing, dataset); err != nil {
				return fmt.Errorf("failed to merge datasets: %w", err)
			}
			dataset = existing
		}
	}

	if opts.FilePath == "" {
		return WriteDataset(dataset, os.Stdout)
	}

	f, err := os.Create(opts.FilePath)
	if err != nil {
		return fmt.Errorf("failed to create output file %s: %w", opts.FilePath, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close output file %s: %w", opts.FilePath, closeErr)
		}
	}()

	if err = WriteDataset(dataset, f); err != nil {
		return fmt.Errorf("failed to write dataset to %s: %w", opts.FilePath, err)
	}

	return nil
}

// LoadDataset reads an existing dataset file for merge mode
func LoadDataset(filePath string) (*domain.Dataset, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path cannot be empty")
	}

	f, err := os.Open(filePath)
	if err != nil {
		// Return unwrapped error so caller can check os.IsNotExist
		return nil, err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close %s: %v\n", filePath, closeErr)
		}
	}()

	var dataset domain.Dataset
	decoder := json.NewDecoder(f)
	if err := decoder.Decode(&dataset); err != nil {
		return nil, fmt.Errorf("failed to decode dataset JSON: %w", err)
	}

	return &dataset, nil
}

// mergeDatasets adds all records from source into target.
// Duplicate expense IDs are skipped (idempotent re-runs); revenue and
// forecast entries are appended as-is since months may legitimately repeat
// across partial exports.
func mergeDatasets(target, source *domain.Dataset) error {
	if target == nil || source == nil {
		return fmt.Errorf("datasets cannot be nil")
	}

	for _, e := range source.GetExpenses() {
		if err := target.AddExpense(e); err != nil {
			// Dataset rejects duplicate IDs; skip those, fail on the rest
			if e.ID != "" && datasetHasExpense(target, e.ID) {
				continue
			}
			return fmt.Errorf("failed to merge expense %s: %w", e.ID, err)
		}
	}

	for _, r := range source.GetRevenue() {
		if err := target.AddRevenue(r); err != nil {
			return fmt.Errorf("failed to merge revenue %s: %w", r.Date, err)
		}
	}

	for _, f := range source.GetForecast() {
		if err := target.AddForecastPoint(f); err != nil {
			return fmt.Errorf("failed to merge forecast point %s: %w", f.Date, err)
		}
	}

	return nil
}

func datasetHasExpense(d *domain.Dataset, id string) bool {
	for _, e := range d.GetExpenses() {
		if e.ID == id {
			return true
		}
	}
	return false
}
