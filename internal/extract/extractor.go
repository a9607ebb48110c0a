// Package extract pulls plain text out of document files.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/hyperjump/kotae/internal/models"
)

// Extractor extracts plain text from document files.
type Extractor struct {
	extensions map[string]bool
}

// NewExtractor returns an extractor accepting the given extensions
// (with leading dot). An empty list accepts .pdf, .txt, .md, and .docx.
func NewExtractor(extensions []string) *Extractor {
	if len(extensions) == 0 {
		extensions = []string{".pdf", ".txt", ".md", ".docx"}
	}
	set := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		set[strings.ToLower(ext)] = true
	}
	return &Extractor{extensions: set}
}

// Supported reports whether path has an accepted extension.
func (e *Extractor) Supported(path string) bool {
	return e.extensions[strings.ToLower(filepath.Ext(path))]
}

// Extract reads the file at path and returns its text content.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, strings.ToLower(filepath.Ext(path)))
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf"). Unknown extensions
// are treated as plain text.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	default:
		return extractPlain(content)
	}
}

// ExtractDir walks dir and extracts every supported file into a Document.
// The directory is created if missing; an empty directory yields zero
// documents and no error. Files that fail extraction are skipped and
// reported in the returned skip list.
func (e *Extractor) ExtractDir(dir string) ([]*models.Document, []string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}

	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && e.Supported(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("walk data dir: %w", err)
	}
	sort.Strings(paths)

	var docs []*models.Document
	var skipped []string
	for _, path := range paths {
		text, err := e.Extract(path)
		if err != nil || strings.TrimSpace(text) == "" {
			skipped = append(skipped, path)
			continue
		}
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			rel = path
		}
		docs = append(docs, &models.Document{
			ID:      uuid.NewString(),
			Source:  rel,
			Content: text,
		})
	}
	return docs, skipped, nil
}
