// Package cli formats command results for the terminal.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hyperjump/jourei/internal/indexer"
	"github.com/hyperjump/jourei/internal/keyword"
	"github.com/hyperjump/jourei/internal/models"
	"github.com/hyperjump/jourei/internal/structure"
	"github.com/hyperjump/jourei/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const rule = "─────────────────────────────────────────────────────────"

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteAnswer writes an answer and its sources.
func WriteAnswer(w io.Writer, res *models.QueryResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	fmt.Fprintf(w, "\n%s\n\n", res.Answer)
	if len(res.Sources) == 0 {
		fmt.Fprintln(w, "Sources: none")
		return nil
	}
	fmt.Fprintln(w, "Sources:")
	for i, src := range res.Sources {
		fmt.Fprintf(w, "  %d. %s\n", i+1, src)
	}
	return nil
}

// RecordsOutput is the result of a record lookup.
type RecordsOutput struct {
	Query      string        `json:"query"`
	Hits       []keyword.Hit `json:"hits"`
	Suggestion string        `json:"suggestion,omitempty"`
}

// WriteRecords writes record lookup hits, or the suggestion when there are none.
func WriteRecords(w io.Writer, out *RecordsOutput, format OutputFormat) error {
	if format == OutputJSON {
		if out.Hits == nil {
			out.Hits = []keyword.Hit{}
		}
		return writeJSON(w, out)
	}
	fmt.Fprintf(w, "\nFound %d records for %q\n\n", len(out.Hits), out.Query)
	if len(out.Hits) == 0 && out.Suggestion != "" {
		fmt.Fprintf(w, "Did you mean: %s\n", out.Suggestion)
		return nil
	}
	for _, h := range out.Hits {
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "#%d | Score: %.4f\n", h.Position, h.Score)
		fmt.Fprintf(w, "%s > %s\n", h.Record.ArticleLabel(), h.Record.SectionLabel())
		fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(h.Record.Content, 200))
	}
	return nil
}

// WriteStatus writes store and configuration status.
func WriteStatus(w io.Writer, st *models.Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "Chunks:          %d\n", st.Chunks)
	fmt.Fprintf(w, "Records:         %d\n", st.Records)
	fmt.Fprintf(w, "Store:           %s\n", st.StoreType)
	fmt.Fprintf(w, "Embedding model: %s\n", st.EmbeddingModel)
	fmt.Fprintf(w, "Chunking:        %s, size %d, overlap %d\n", st.Chunking.Mode, st.Chunking.ChunkSize, st.Chunking.ChunkOverlap)
	fmt.Fprintf(w, "Retrieval k:     %d\n", st.K)
	fmt.Fprintf(w, "Disk usage:      %s\n", FormatBytes(st.DiskUsageBytes))
	if st.Rebuilding {
		fmt.Fprintln(w, "Rebuild in progress")
	}
	return nil
}

// WriteReport writes the summary of an ingest run.
func WriteReport(w io.Writer, rep *indexer.Report, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, rep)
	}
	fmt.Fprintf(w, "Source:   %s (%s mode)\n", rep.Source, rep.Mode)
	fmt.Fprintf(w, "Records:  %d (%d articles, %d sections, %d dropped lines, %d malformed markers)\n",
		rep.Records, rep.Parse.Articles, rep.Parse.Sections, rep.Parse.DroppedLines, rep.Parse.MalformedMarkers)
	if rep.Cleared {
		fmt.Fprintf(w, "Cleared:  %d existing chunks\n", rep.Existing)
	} else if rep.Existing > 0 {
		fmt.Fprintf(w, "Warning:  store already held %d chunks; entries were added, not replaced\n", rep.Existing)
	}
	fmt.Fprintf(w, "Indexed:  %d/%d chunks in %d/%d batches\n",
		rep.Index.CommittedChunks, rep.Index.Chunks, rep.Index.CommittedBatches, rep.Index.Batches)
	return nil
}

// StructureOutput summarizes a structuring run.
type StructureOutput struct {
	Source         string          `json:"source"`
	FormattedPath  string          `json:"formatted_path"`
	StructuredPath string          `json:"structured_path"`
	Records        int             `json:"records"`
	Parse          structure.Stats `json:"parse"`
}

// WriteStructure writes the record count, parse counters and artifact paths.
func WriteStructure(w io.Writer, out *StructureOutput, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, out)
	}
	fmt.Fprintf(w, "Structured %d records from %s\n", out.Records, out.Source)
	fmt.Fprintf(w, "  %d articles, %d sections, %d dropped lines, %d malformed markers\n",
		out.Parse.Articles, out.Parse.Sections, out.Parse.DroppedLines, out.Parse.MalformedMarkers)
	fmt.Fprintf(w, "Formatted text: %s\n", out.FormattedPath)
	fmt.Fprintf(w, "Records JSON:   %s\n", out.StructuredPath)
	return nil
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
