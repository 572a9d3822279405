package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/VKNithyanand/garuda-finance/internal/classify"
	"github.com/VKNithyanand/garuda-finance/internal/config"
	"github.com/VKNithyanand/garuda-finance/internal/domain"
	"github.com/VKNithyanand/garuda-finance/internal/generate"
	"github.com/VKNithyanand/garuda-finance/internal/output"
	"github.com/VKNithyanand/garuda-finance/internal/pipeline"
	"github.com/VKNithyanand/garuda-finance/internal/report"
	"github.com/VKNithyanand/garuda-finance/internal/server"
	"github.com/VKNithyanand/garuda-finance/internal/storage"
	"github.com/VKNithyanand/garuda-finance/internal/ui"
	"github.com/VKNithyanand/garuda-finance/internal/validate"
)

const version = "0.1.0"

// cliDatasetKey is the storage key for the single-user CLI dataset
const cliDatasetKey = "dataset"

var (
	// Global flags
	versionFlag = flag.Bool("version", false, "Show version")
	modeFlag    = flag.String("mode", "", "Mode: generate, import, analyze, serve (required)")
	configFile  = flag.String("config", "", "YAML config file")
	verbose     = flag.Bool("verbose", false, "Show detailed logs")

	// Generate flags
	seedFlag = flag.Int64("seed", 0, "Random seed for generation (0 = current time)")

	// Import flags
	inputDir = flag.String("input", "", "Input directory to import (import mode)")

	// Shared data flags
	rulesFile   = flag.String("rules", "", "Custom keyword rules file")
	datasetFile = flag.String("dataset", "", "Dataset JSON file (analyze mode; default: storage backend)")
	outputFile  = flag.String("output", "", "Output JSON file (default: stdout)")
	mergeMode   = flag.Bool("merge", false, "Merge generated dataset with existing output file")
)

func main() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, `garuda - Financial dashboard analytics and forecasting toolkit

Usage:
  garuda -mode <generate|import|analyze|serve> [flags]

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprint(os.Stderr, `
Examples:
  # Generate a deterministic synthetic dataset
  garuda -mode generate -seed 42 -output dataset.json

  # Import statement exports into the configured storage backend
  garuda -mode import -input ~/exports

  # Analyze a dataset and print the full report
  garuda -mode analyze -dataset dataset.json

  # Run the dashboard API
  garuda -mode serve -config config.yaml

`)
	}

	flag.Parse()

	if *versionFlag {
		fmt.Printf("garuda version %s\n", version)
		os.Exit(0)
	}

	if *modeFlag == "" {
		fmt.Fprintf(os.Stderr, "Error: -mode flag is required\n\n")
		flag.Usage()
		os.Exit(1)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(*configFile)
	if err != nil {
		return err
	}

	switch *modeFlag {
	case "generate":
		return runGenerate(cfg)
	case "import":
		return runImport(cfg)
	case "analyze":
		return runAnalyze(cfg)
	case "serve":
		return runServe(cfg)
	default:
		return fmt.Errorf("unknown mode %q (want generate, import, analyze, or serve)", *modeFlag)
	}
}

// newRNG builds the shared random source. Flag beats config; zero
// means a wall-clock seed.
func newRNG(cfg *config.Config) *rand.Rand {
	seed := cfg.Seed
	if *seedFlag != 0 {
		seed = *seedFlag
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// loadEngine loads the classification rules, preferring the -rules flag
// over the config path over the embedded table
func loadEngine(cfg *config.Config, rng *rand.Rand) (*classify.Engine, error) {
	path := *rulesFile
	if path == "" {
		path = cfg.Rules.Path
	}
	if path != "" {
		engine, err := classify.LoadFromFile(path, rng)
		if err != nil {
			return nil, fmt.Errorf("failed to load rules file: %w", err)
		}
		if *verbose {
			fmt.Fprintf(os.Stderr, "Loaded %d custom rules from %s\n", len(engine.GetRules()), path)
		}
		return engine, nil
	}

	engine, err := classify.LoadEmbedded(rng)
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded rules: %w", err)
	}
	return engine, nil
}

// buildStore constructs the configured storage backend
func buildStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendFile:
		return storage.NewFileStore(cfg.Storage.Dir)
	case config.BackendSQLite:
		return storage.NewSQLiteStore(cfg.Storage.SQLitePath)
	case config.BackendFirestore:
		client, err := storage.NewClient(ctx, cfg.Storage.FirestoreProject, cfg.Storage.CredentialsFile)
		if err != nil {
			return nil, err
		}
		return storage.NewFirestoreStore(client, "default")
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func runGenerate(cfg *config.Config) error {
	if !*verbose {
		ui.Header("Generating Synthetic Dataset")
		ui.Step(1, 3, "Building generator")
	}

	rng := newRNG(cfg)
	gen, err := generate.New(rng, time.Now())
	if err != nil {
		return fmt.Errorf("failed to create generator: %w", err)
	}

	if !*verbose {
		ui.Step(2, 3, fmt.Sprintf("Generating %d expenses, %d revenue months, %d forecast months",
			cfg.Generate.ExpenseCount, cfg.Generate.RevenueMonths, cfg.Generate.ForecastMonths))
	} else {
		fmt.Fprintf(os.Stderr, "Generating dataset: %d expenses, %d revenue months, %d forecast months\n",
			cfg.Generate.ExpenseCount, cfg.Generate.RevenueMonths, cfg.Generate.ForecastMonths)
	}

	dataset, err := gen.Dataset(cfg.Generate.ExpenseCount, cfg.Generate.RevenueMonths, cfg.Generate.ForecastMonths)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	if err := checkDataset(dataset); err != nil {
		return err
	}

	if !*verbose {
		ui.Step(3, 3, "Writing dataset")
	}

	opts := output.WriteOptions{
		MergeMode: *mergeMode,
		FilePath:  *outputFile,
	}
	if err := output.WriteDatasetToFile(dataset, opts); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if *outputFile != "" && !*verbose {
		ui.Success(fmt.Sprintf("Dataset written to %s", *outputFile))
	}
	return nil
}

func runImport(cfg *config.Config) error {
	if *inputDir == "" {
		return fmt.Errorf("-input flag is required for import mode")
	}

	ctx := context.Background()

	if !*verbose {
		ui.Header("Importing Financial Records")
		ui.Step(1, 3, "Opening storage backend")
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close()

	rng := newRNG(cfg)
	engine, err := loadEngine(cfg, rng)
	if err != nil {
		return err
	}

	if !*verbose {
		ui.Step(2, 3, fmt.Sprintf("Scanning and importing %s", *inputDir))
	} else {
		fmt.Fprintf(os.Stderr, "Importing directory: %s\n", *inputDir)
	}

	pipe := pipeline.New(store, engine, nil)
	stats, err := pipe.ImportDirectory(ctx, *inputDir, cliDatasetKey)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	if !*verbose {
		ui.Step(3, 3, "Import complete")
		ui.Success(fmt.Sprintf("Processed %d files (%d failed)", stats.FilesProcessed, stats.FilesFailed))
		ui.Info(fmt.Sprintf("Added %d expenses (%d duplicates skipped), %d revenue months",
			stats.ExpensesAdded, stats.ExpensesSkipped, stats.RevenueAdded))
		if stats.Warnings > 0 {
			ui.Warning(fmt.Sprintf("Validation produced %d warnings", stats.Warnings))
		}
	} else {
		fmt.Fprintf(os.Stderr, "Import complete: %+v\n", *stats)
	}
	return nil
}

func runAnalyze(cfg *config.Config) error {
	ctx := context.Background()

	if !*verbose {
		ui.Header("Analyzing Financial Dataset")
		ui.Step(1, 4, "Loading dataset")
	}

	dataset, err := loadAnalysisDataset(ctx, cfg)
	if err != nil {
		return err
	}

	if !*verbose {
		ui.Step(2, 4, "Classifying expenses")
	}

	rng := newRNG(cfg)
	engine, err := loadEngine(cfg, rng)
	if err != nil {
		return err
	}
	reclassified := engine.ReclassifyBatch(dataset.GetExpenses())
	for _, e := range reclassified {
		// Replace keeps IDs stable while updating categories
		if err := dataset.ReplaceExpense(e.ID, e); err != nil {
			return fmt.Errorf("failed to apply classification for %s: %w", e.ID, err)
		}
	}

	if !*verbose {
		ui.Step(3, 4, "Validating dataset")
	}
	if err := checkDataset(dataset); err != nil {
		return err
	}

	if !*verbose {
		ui.Step(4, 4, "Building report")
	}
	rep := report.Build(dataset)

	if err := writeReport(rep); err != nil {
		return err
	}

	if !*verbose {
		ui.Success(fmt.Sprintf("Report %s generated", rep.ID))
		ui.Info(fmt.Sprintf("Potential savings identified: %s", ui.YellowText(fmt.Sprintf("$%.2f", rep.PotentialSavings))))
	}
	return nil
}

func runServe(cfg *config.Config) error {
	ctx := context.Background()

	if cfg.Storage.FirestoreProject == "" {
		return fmt.Errorf("storage.firestore_project is required for serve mode (used for request authentication)")
	}

	ui.Header("Garuda Finance API")

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}

	client, err := storage.NewClient(ctx, cfg.Storage.FirestoreProject, cfg.Storage.CredentialsFile)
	if err != nil {
		return fmt.Errorf("failed to create auth client: %w", err)
	}

	rng := newRNG(cfg)
	engine, err := loadEngine(cfg, rng)
	if err != nil {
		return err
	}

	srv := server.New(store, client.Auth, engine)
	defer srv.Close()

	ui.Info(fmt.Sprintf("Listening on %s", ui.BlueText(cfg.Server.Addr)))
	return http.ListenAndServe(cfg.Server.Addr, srv.Handler())
}

// loadAnalysisDataset reads the dataset from the -dataset file when
// given, otherwise from the configured storage backend
func loadAnalysisDataset(ctx context.Context, cfg *config.Config) (*domain.Dataset, error) {
	if *datasetFile != "" {
		dataset, err := output.LoadDataset(*datasetFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load dataset file %s: %w", *datasetFile, err)
		}
		return dataset, nil
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close()

	data, err := store.Get(ctx, cliDatasetKey)
	if err != nil {
		return nil, fmt.Errorf("no dataset found in storage (run import or pass -dataset): %w", err)
	}

	var dataset domain.Dataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		return nil, fmt.Errorf("stored dataset is corrupt: %w", err)
	}
	return &dataset, nil
}

// checkDataset validates and reports, returning an error when the
// dataset has hard validation failures
func checkDataset(dataset *domain.Dataset) error {
	result := validate.ValidateDataset(dataset)

	if len(result.Errors) > 0 {
		if *verbose {
			fmt.Fprintf(os.Stderr, "Validation failed with %d errors:\n", len(result.Errors))
			for _, e := range result.Errors {
				fmt.Fprintf(os.Stderr, "  - %s %s [%s]: %s\n", e.Entity, e.ID, e.Field, e.Message)
			}
		} else {
			ui.Error(fmt.Sprintf("Validation failed with %d errors", len(result.Errors)))
			for i, e := range result.Errors {
				if i >= 5 {
					ui.Error(fmt.Sprintf("... and %d more errors", len(result.Errors)-5))
					break
				}
				ui.Error(fmt.Sprintf("%s %s [%s]: %s", e.Entity, e.ID, e.Field, e.Message))
			}
		}
		return fmt.Errorf("validation failed with %d errors", len(result.Errors))
	}

	if len(result.Warnings) > 0 {
		if *verbose {
			for _, w := range result.Warnings {
				fmt.Fprintf(os.Stderr, "  warning: %s %s [%s]: %s\n", w.Entity, w.ID, w.Field, w.Message)
			}
		} else {
			ui.Warning(fmt.Sprintf("Validation produced %d warnings", len(result.Warnings)))
		}
	}
	return nil
}

// writeReport emits the report as indented JSON to -output or stdout
func writeReport(rep *report.Report) error {
	var w *os.File
	if *outputFile == "" {
		w = os.Stdout
	} else {
		f, err := os.Create(*outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}
