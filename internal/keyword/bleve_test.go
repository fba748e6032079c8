package keyword

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/jourei/internal/models"
)

func sampleRecords() []models.Record {
	return []models.Record{
		{
			Article: &models.ArticleHeading{Numeral: "I", Title: "Name"},
			Section: &models.SectionHeading{Number: "1", Title: "Purpose"},
			Content: "To promote brotherhood and scholarship.",
		},
		{
			Article: &models.ArticleHeading{Numeral: "II", Title: "Membership"},
			Section: &models.SectionHeading{Number: "2.1", Title: "Dues"},
			Content: "Annual dues shall be paid by September.",
		},
	}
}

func TestRecordIndex_RebuildAndSearch(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "records.bleve")
	idx, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = idx.Close() }()

	if err := idx.Rebuild(ctx, sampleRecords()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if n, _ := idx.Count(); n != 2 {
		t.Errorf("Count=%d", n)
	}

	hits, err := idx.Search(ctx, "dues", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("expected a hit for dues")
	}
	top := hits[0]
	if top.Position != 1 || top.Record.SectionLabel() != "Section 2.1: Dues" || top.Record.ArticleLabel() != "Article II: Membership" {
		t.Errorf("unexpected top hit %+v", top)
	}

	// heading text is searchable too
	hits, _ = idx.Search(ctx, "purpose", 10, nil)
	if len(hits) != 1 || hits[0].Position != 0 {
		t.Errorf("expected record 0 for heading match, got %+v", hits)
	}

	// rebuilding replaces, not appends
	if err := idx.Rebuild(ctx, sampleRecords()[:1]); err != nil {
		t.Fatal(err)
	}
	if n, _ := idx.Count(); n != 1 {
		t.Errorf("Count after rebuild=%d, want 1", n)
	}
}

func TestRecordIndex_reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "records.bleve")
	idx, _ := Open(path)
	_ = idx.Rebuild(ctx, sampleRecords())
	_ = idx.Close()

	idx, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	if hits, _ := idx.Search(ctx, "scholarship", 5, nil); len(hits) != 1 {
		t.Errorf("expected persisted record, got %v", hits)
	}
}

func TestRecordIndex_failedRebuildKeepsContents(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		open func() (*RecordIndex, error)
	}{
		{"file", func() (*RecordIndex, error) { return Open(filepath.Join(dir, "records.bleve")) }},
		{"memory", OpenMemory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, err := tt.open()
			if err != nil {
				t.Fatal(err)
			}
			defer idx.Close()
			if err := idx.Rebuild(context.Background(), sampleRecords()); err != nil {
				t.Fatal(err)
			}

			canceled, cancel := context.WithCancel(context.Background())
			cancel()
			if err := idx.Rebuild(canceled, sampleRecords()[:1]); err == nil {
				t.Fatal("expected error from canceled rebuild")
			}

			if n, err := idx.Count(); err != nil || n != 2 {
				t.Errorf("Count = %d, %v; want 2", n, err)
			}
			if hits, err := idx.Search(context.Background(), "dues", 5, nil); err != nil || len(hits) != 1 {
				t.Errorf("Search after failed rebuild = %v, %v", hits, err)
			}
			if err := idx.Rebuild(context.Background(), sampleRecords()[:1]); err != nil {
				t.Fatalf("Rebuild after failure: %v", err)
			}
			if n, _ := idx.Count(); n != 1 {
				t.Errorf("Count after retry = %d, want 1", n)
			}
		})
	}
}

func TestRecordIndex_rebuildIgnoresStaleTemp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.bleve")
	if err := os.MkdirAll(path+".tmp", 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(path+".tmp", "junk"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	idx, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	if err := idx.Rebuild(context.Background(), sampleRecords()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp index left behind: %v", err)
	}
	if n, _ := idx.Count(); n != 2 {
		t.Errorf("Count = %d, want 2", n)
	}
}

func TestRecordIndex_fuzzyAndTerms(t *testing.T) {
	ctx := context.Background()
	idx, err := OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	_ = idx.Rebuild(ctx, sampleRecords())

	if hits, _ := idx.Search(ctx, "scholarsip", 5, nil); len(hits) != 0 {
		t.Errorf("exact search should miss a typo, got %d hits", len(hits))
	}
	if hits, _ := idx.Search(ctx, "scholarsip", 5, &SearchOptions{Fuzziness: 1}); len(hits) != 1 {
		t.Errorf("fuzzy search should find the record, got %d hits", len(hits))
	}
	if hits, _ := idx.Search(ctx, "   ", 5, nil); hits != nil {
		t.Error("blank query should return nothing")
	}

	terms, err := idx.Terms()
	if err != nil {
		t.Fatal(err)
	}
	if terms["dues"] == 0 || terms["membership"] == 0 {
		t.Errorf("missing terms in %v", terms)
	}
	if got, ok := Suggest("anual dues", terms, 2); !ok || got != "annual dues" {
		t.Errorf("Suggest = %q, %v", got, ok)
	}
}
