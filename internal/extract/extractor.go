// Package extract converts a bylaws source document into plain text.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for file extensions no extractor handles.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Extractor extracts plain text from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its text content.
// PDF pages and DOCX paragraphs each end up on their own line; plain text
// (.txt, .md, no extension) is returned as-is with invalid UTF-8 replaced.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	return e.ExtractBytes(content, ext)
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf").
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch strings.ToLower(ext) {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".txt", ".md", "":
		return extractPlain(content)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// ExtractText is a shorthand for NewExtractor().Extract(path).
func ExtractText(path string) (string, error) {
	return NewExtractor().Extract(path)
}

// ExtractToFile extracts src and writes the text to dst, creating parent directories.
func ExtractToFile(src, dst string) (int, error) {
	text, err := ExtractText(src)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(dst, []byte(text), 0o644); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return len(text), nil
}
