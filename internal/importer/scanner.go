package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Scanner walks a directory tree and finds importable files
type Scanner struct {
	rootDir string
}

// NewScanner creates a scanner for the given root directory
func NewScanner(rootDir string) *Scanner {
	return &Scanner{rootDir: rootDir}
}

// ScanResult represents a found file with metadata
type ScanResult struct {
	Path     string
	Metadata Metadata
}

// Scan walks the directory tree and finds all importable files
func (s *Scanner) Scan() ([]ScanResult, error) {
	var results []ScanResult

	rootDir := s.expandHome(s.rootDir)

	err := filepath.Walk(rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if !s.isImportableFile(path) {
			return nil
		}

		results = append(results, ScanResult{
			Path:     path,
			Metadata: s.extractMetadata(path, rootDir),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	return results, nil
}

// isImportableFile checks if the file has a known import extension
func (s *Scanner) isImportableFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".csv" || ext == ".json" || ext == ".ofx" || ext == ".qfx"
}

// extractMetadata derives a source label from the directory structure.
// Path structure: {root}/{source}/file.ext; files directly under the
// root have no source.
func (s *Scanner) extractMetadata(filePath, rootDir string) Metadata {
	relPath, err := filepath.Rel(rootDir, filePath)
	if err != nil {
		relPath = filePath
	}

	parts := strings.Split(filepath.ToSlash(relPath), "/")

	meta := Metadata{
		filePath:   filePath,
		detectedAt: time.Now(),
	}

	if len(parts) >= 2 {
		meta.source = s.normalizeSourceName(parts[0])
	}

	return meta
}

// normalizeSourceName converts a directory name to a readable label.
// "bank_exports" -> "Bank Exports"
func (s *Scanner) normalizeSourceName(dirName string) string {
	name := strings.ReplaceAll(dirName, "_", " ")

	words := strings.Split(name, " ")
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(word[:1]) + word[1:]
		}
	}

	return strings.Join(words, " ")
}

// expandHome expands ~ to the home directory
func (s *Scanner) expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}
