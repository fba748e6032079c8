// Package keyword is a Bleve full-text index over structured bylaws records,
// used for exact-term record lookup alongside semantic retrieval.
package keyword

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/jourei/internal/models"
)

// searchable fields of an indexed record
var textFields = []string{"article", "section", "content"}

// RecordIndex is a Bleve index of Records keyed by document position.
type RecordIndex struct {
	path  string
	index bleve.Index
	mu    sync.RWMutex
}

// SearchOptions tunes a lookup. The zero value runs a plain match query.
type SearchOptions struct {
	// Fuzziness > 0 matches terms within that edit distance (1 or 2).
	Fuzziness int
}

// Hit is one matching record.
type Hit struct {
	Position int           `json:"position"`
	Score    float64       `json:"score"`
	Record   models.Record `json:"record"`
}

type recordDoc struct {
	Article  string `json:"article"`
	Section  string `json:"section"`
	Content  string `json:"content"`
	Position int    `json:"position"`
}

func newMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	doc := bleve.NewDocumentMapping()
	for _, f := range textFields {
		fm := bleve.NewTextFieldMapping()
		// no stemming, so "dues" matches only "dues"
		fm.Analyzer = standard.Name
		fm.Store = true
		doc.AddFieldMappingsAt(f, fm)
	}
	pos := bleve.NewNumericFieldMapping()
	pos.Store = true
	doc.AddFieldMappingsAt("position", pos)
	im.DefaultMapping = doc
	return im
}

// Open opens the index at path, creating it when missing.
// Removing the directory forces a rebuild with the current mapping.
func Open(path string) (*RecordIndex, error) {
	idx, err := openOrCreate(path)
	if err != nil {
		return nil, err
	}
	return &RecordIndex{path: path, index: idx}, nil
}

// OpenMemory creates an index that lives only in memory.
func OpenMemory() (*RecordIndex, error) {
	idx, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory Bleve index: %w", err)
	}
	return &RecordIndex{index: idx}, nil
}

func openOrCreate(path string) (bleve.Index, error) {
	if _, err := os.Stat(path); err == nil {
		idx, err := bleve.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", err)
		}
		return idx, nil
	}
	idx, err := bleve.New(path, newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return idx, nil
}

// Rebuild replaces the index contents with records, in one batch. The new index
// is built beside the current one and swapped in only once it is complete, so a
// failed rebuild leaves the previous contents searchable.
func (r *RecordIndex) Rebuild(ctx context.Context, records []models.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.path == "" {
		idx, err := bleve.NewMemOnly(newMapping())
		if err != nil {
			return err
		}
		if err := fill(ctx, idx, records); err != nil {
			_ = idx.Close()
			return err
		}
		_ = r.index.Close()
		r.index = idx
		return nil
	}

	tmp := r.path + ".tmp"
	if err := os.RemoveAll(tmp); err != nil {
		return fmt.Errorf("failed to remove stale Bleve index: %w", err)
	}
	idx, err := bleve.New(tmp, newMapping())
	if err != nil {
		return fmt.Errorf("failed to create Bleve index: %w", err)
	}
	if err := fill(ctx, idx, records); err != nil {
		_ = idx.Close()
		_ = os.RemoveAll(tmp)
		return err
	}
	if err := idx.Close(); err != nil {
		_ = os.RemoveAll(tmp)
		return fmt.Errorf("failed to close Bleve index: %w", err)
	}
	return r.swap(tmp)
}

// swap replaces the index at r.path with the one built at tmp. On failure the
// previous index is restored and reopened.
func (r *RecordIndex) swap(tmp string) error {
	old := r.path + ".old"
	if err := r.index.Close(); err != nil {
		return fmt.Errorf("failed to close Bleve index: %w", err)
	}
	_ = os.RemoveAll(old)
	restore := func(cause error) error {
		_ = os.RemoveAll(tmp)
		if _, err := os.Stat(old); err == nil {
			_ = os.RemoveAll(r.path)
			_ = os.Rename(old, r.path)
		}
		idx, err := openOrCreate(r.path)
		if err != nil {
			return fmt.Errorf("%w (reopening previous index: %v)", cause, err)
		}
		r.index = idx
		return cause
	}
	if err := os.Rename(r.path, old); err != nil && !os.IsNotExist(err) {
		return restore(fmt.Errorf("failed to move Bleve index aside: %w", err))
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return restore(fmt.Errorf("failed to install Bleve index: %w", err))
	}
	idx, err := bleve.Open(r.path)
	if err != nil {
		return restore(fmt.Errorf("failed to open Bleve index: %w", err))
	}
	r.index = idx
	_ = os.RemoveAll(old)
	return nil
}

func fill(ctx context.Context, idx bleve.Index, records []models.Record) error {
	batch := idx.NewBatch()
	for i := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		doc := recordDoc{
			Article:  records[i].ArticleLabel(),
			Section:  records[i].SectionLabel(),
			Content:  records[i].Content,
			Position: i,
		}
		if err := batch.Index(docID(i), doc); err != nil {
			return fmt.Errorf("failed to index record %d: %w", i, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		return fmt.Errorf("failed to commit record batch: %w", err)
	}
	return nil
}

func docID(position int) string {
	return "record-" + strconv.Itoa(position)
}

// Search returns up to limit records matching query, best first.
func (r *RecordIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]Hit, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 || limit <= 0 {
		return nil, nil
	}
	var q blevequery.Query
	if opts != nil && opts.Fuzziness > 0 {
		qs := make([]blevequery.Query, len(terms))
		for i, term := range terms {
			fq := bleve.NewFuzzyQuery(term)
			fq.SetFuzziness(opts.Fuzziness)
			qs[i] = fq
		}
		q = bleve.NewDisjunctionQuery(qs...)
	} else {
		q = bleve.NewMatchQuery(query)
	}
	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.Fields = append([]string{"position"}, textFields...)

	r.mu.RLock()
	res, err := r.index.SearchInContext(ctx, req)
	r.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := Hit{Score: h.Score}
		if p, ok := h.Fields["position"].(float64); ok {
			hit.Position = int(p)
		}
		hit.Record.Content, _ = h.Fields["content"].(string)
		if s, _ := h.Fields["article"].(string); s != "" {
			if a, ok := models.ParseArticleLabel(s); ok {
				hit.Record.Article = &a
			}
		}
		if s, _ := h.Fields["section"].(string); s != "" {
			if sec, ok := models.ParseSectionLabel(s); ok {
				hit.Record.Section = &sec
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Count returns the number of indexed records.
func (r *RecordIndex) Count() (uint64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index.DocCount()
}

// Terms returns every indexed term with its document frequency.
func (r *RecordIndex) Terms() (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	terms := make(map[string]int)
	for _, field := range textFields {
		dict, err := r.index.FieldDict(field)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s terms: %w", field, err)
		}
		for {
			entry, err := dict.Next()
			if err != nil || entry == nil {
				break
			}
			terms[entry.Term] += int(entry.Count)
		}
		_ = dict.Close()
	}
	return terms, nil
}

// Close closes the index.
func (r *RecordIndex) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.index.Close()
}
