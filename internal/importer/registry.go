package importer

import (
	"fmt"
	"io"
	"os"
)

// Registry holds all registered parsers
type Registry struct {
	parsers []Parser
}

// NewRegistry creates a registry with all built-in parsers. Order
// matters: the first parser whose CanParse accepts the file wins.
func NewRegistry() *Registry {
	return &Registry{
		parsers: []Parser{
			NewOFXParser(),
			NewExpenseCSVParser(),
			NewRevenueCSVParser(),
			NewDatasetJSONParser(),
		},
	}
}

// Register adds a custom parser (for extensibility)
func (r *Registry) Register(p Parser) {
	r.parsers = append(r.parsers, p)
}

// FindParser returns the best parser for this file.
// Reads the first 512 bytes for format detection via header inspection,
// enough to see magic markers and CSV header rows.
func (r *Registry) FindParser(path string) (Parser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	header := make([]byte, 512)
	n, err := f.Read(header)
	if err != nil && err != io.EOF {
		f.Close()
		return nil, fmt.Errorf("failed to read header from %s: %w", path, err)
	}
	// EOF is fine; small exports may be under 512 bytes
	header = header[:n]

	for _, p := range r.parsers {
		if p.CanParse(path, header) {
			if err := f.Close(); err != nil {
				return nil, fmt.Errorf("failed to close file %s: %w", path, err)
			}
			return p, nil
		}
	}

	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file %s: %w", path, err)
	}
	return nil, fmt.Errorf("no parser found for file: %s", path)
}

// ListParsers returns all registered parser names
func (r *Registry) ListParsers() []string {
	names := make([]string, len(r.parsers))
	for i, p := range r.parsers {
		names[i] = p.Name()
	}
	return names
}
