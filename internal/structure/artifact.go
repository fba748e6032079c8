package structure

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hyperjump/jourei/internal/models"
)

// EncodeJSON writes records as an indented JSON array.
func EncodeJSON(w io.Writer, records []models.Record) error {
	if records == nil {
		records = []models.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// WriteJSON writes records to path, creating parent directories as needed.
func WriteJSON(path string, records []models.Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create structured output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create structured output: %w", err)
	}
	if err := EncodeJSON(f, records); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode records: %w", err)
	}
	return f.Close()
}

// ReadJSON loads records previously written by WriteJSON.
func ReadJSON(path string) ([]models.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read structured records: %w", err)
	}
	var records []models.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode structured records: %w", err)
	}
	return records, nil
}

// WriteFormatted writes the marker-formatted text to path for human review.
func WriteFormatted(path, formatted string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create formatted output dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(formatted+"\n"), 0644); err != nil {
		return fmt.Errorf("write formatted output: %w", err)
	}
	return nil
}
