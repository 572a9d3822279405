// Package pipeline orchestrates the import flow: parse files into
// record batches, classify uncategorized expenses, validate the merged
// dataset, and persist it through the storage backend.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/VKNithyanand/garuda-finance/internal/classify"
	"github.com/VKNithyanand/garuda-finance/internal/domain"
	"github.com/VKNithyanand/garuda-finance/internal/importer"
	"github.com/VKNithyanand/garuda-finance/internal/storage"
	"github.com/VKNithyanand/garuda-finance/internal/streaming"
	"github.com/VKNithyanand/garuda-finance/internal/validate"
)

// File is one input to an import run. Source is an optional label
// inferred from the directory the file was found in.
type File struct {
	Path   string
	Source string
}

// ImportStats summarizes what an import run did
type ImportStats struct {
	FilesProcessed  int
	FilesFailed     int
	ExpensesAdded   int
	ExpensesSkipped int
	RevenueAdded    int
	ForecastPoints  int
	Warnings        int
}

// Pipeline orchestrates parsing files and merging them into a stored
// dataset
type Pipeline struct {
	store    storage.Store
	registry *importer.Registry
	engine   *classify.Engine
	hub      *streaming.StreamHub
}

// New creates an import pipeline. The hub may be nil for CLI use; no
// events are broadcast then.
func New(store storage.Store, engine *classify.Engine, hub *streaming.StreamHub) *Pipeline {
	return &Pipeline{
		store:    store,
		registry: importer.NewRegistry(),
		engine:   engine,
		hub:      hub,
	}
}

func (p *Pipeline) broadcast(sessionID string, event streaming.SSEEvent) {
	if p.hub == nil || sessionID == "" {
		return
	}
	p.hub.Broadcast(sessionID, event)
}

// ImportFile parses a single file into a record batch
func (p *Pipeline) ImportFile(ctx context.Context, filePath, source string) (*importer.Batch, error) {
	parser, err := p.registry.FindParser(filePath)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	meta, err := importer.NewMetadata(filePath, time.Now())
	if err != nil {
		return nil, err
	}
	if source != "" {
		meta.SetSource(source)
	}

	batch, err := parser.Parse(ctx, f, meta)
	if err != nil {
		return nil, fmt.Errorf("parsing failed: %w", err)
	}
	return batch, nil
}

// ProcessFiles imports the given files into the dataset stored under
// datasetKey, broadcasting per-file progress when a session is attached.
// The dataset is only persisted when the merged result passes validation.
func (p *Pipeline) ProcessFiles(ctx context.Context, sessionID string, files []File, datasetKey string) (*ImportStats, error) {
	dataset, err := p.loadDataset(ctx, datasetKey)
	if err != nil {
		return nil, err
	}

	stats := &ImportStats{}
	total := len(files)

	for i, file := range files {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		fileName := filepath.Base(file.Path)
		fileID := fmt.Sprintf("%s-%d", sessionID, i)

		p.broadcast(sessionID, streaming.NewFileEvent(streaming.FileEvent{
			ID:        fileID,
			SessionID: sessionID,
			FileName:  fileName,
			Status:    "processing",
		}))

		batch, err := p.ImportFile(ctx, file.Path, file.Source)
		if err != nil {
			log.Printf("ERROR: Failed to import file %s: %v", fileName, err)
			stats.FilesFailed++
			p.broadcast(sessionID, streaming.NewFileEvent(streaming.FileEvent{
				ID:        fileID,
				SessionID: sessionID,
				FileName:  fileName,
				Status:    "error",
				Error:     err.Error(),
			}))
			continue
		}

		added := p.mergeBatch(dataset, batch, stats, sessionID)
		stats.FilesProcessed++

		percentage := float64(i+1) / float64(total) * 100
		p.broadcast(sessionID, streaming.NewProgressEvent(streaming.ProgressEvent{
			FileID:     fileID,
			FileName:   fileName,
			Processed:  i + 1,
			Total:      total,
			Percentage: percentage,
			Status:     "completed",
		}))
		p.broadcast(sessionID, streaming.NewFileEvent(streaming.FileEvent{
			ID:        fileID,
			SessionID: sessionID,
			FileName:  fileName,
			Status:    "completed",
			Metadata: map[string]interface{}{
				"expenses": added,
			},
		}))
	}

	result := validate.ValidateDataset(dataset)
	if !result.IsValid() {
		return stats, fmt.Errorf("imported dataset failed validation with %d errors", len(result.Errors))
	}
	stats.Warnings = len(result.Warnings)

	if err := p.saveDataset(ctx, datasetKey, dataset); err != nil {
		return stats, err
	}
	return stats, nil
}

// ImportDirectory scans a directory tree and imports every supported
// file found in it
func (p *Pipeline) ImportDirectory(ctx context.Context, rootDir, datasetKey string) (*ImportStats, error) {
	scanner := importer.NewScanner(rootDir)
	results, err := scanner.Scan()
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return &ImportStats{}, nil
	}

	files := make([]File, 0, len(results))
	for _, r := range results {
		files = append(files, File{Path: r.Path, Source: r.Metadata.Source()})
	}
	return p.ProcessFiles(ctx, "", files, datasetKey)
}

// mergeBatch folds a parsed batch into the dataset. Expenses with
// duplicate IDs are skipped so re-imports stay idempotent.
func (p *Pipeline) mergeBatch(dataset *domain.Dataset, batch *importer.Batch, stats *ImportStats, sessionID string) int {
	added := 0
	for _, e := range batch.Expenses {
		if e.Category == domain.CategoryUncategorized && p.engine != nil {
			e.Category = p.engine.Classify(e.Description, e.Vendor)
		}
		if err := dataset.AddExpense(e); err != nil {
			stats.ExpensesSkipped++
			continue
		}
		added++
		stats.ExpensesAdded++
		p.broadcast(sessionID, streaming.NewExpenseEvent(streaming.ExpenseEvent{
			ID:          e.ID,
			Date:        e.Date,
			Description: e.Description,
			Amount:      e.Amount,
			Category:    string(e.Category),
			Vendor:      e.Vendor,
		}))
	}

	for _, r := range batch.Revenue {
		if err := dataset.AddRevenue(r); err == nil {
			stats.RevenueAdded++
		}
	}

	// Forecasts are regenerated wholesale, never merged point by point
	if len(batch.Forecast) > 0 {
		if err := dataset.SetForecast(batch.Forecast); err == nil {
			stats.ForecastPoints = len(batch.Forecast)
		}
	}

	return added
}

func (p *Pipeline) loadDataset(ctx context.Context, key string) (*domain.Dataset, error) {
	data, err := p.store.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.NewDataset(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset %s: %w", key, err)
	}

	var dataset domain.Dataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		return nil, fmt.Errorf("failed to decode dataset %s: %w", key, err)
	}
	return &dataset, nil
}

func (p *Pipeline) saveDataset(ctx context.Context, key string, dataset *domain.Dataset) error {
	data, err := json.Marshal(dataset)
	if err != nil {
		return fmt.Errorf("failed to encode dataset %s: %w", key, err)
	}
	if err := p.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("failed to store dataset %s: %w", key, err)
	}
	return nil
}
