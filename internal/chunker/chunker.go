// Package chunker splits record content or whole documents into bounded,
// overlapping chunks that prefer heading and paragraph boundaries.
package chunker

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/hyperjump/jourei/internal/models"
)

var idNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("jourei.chunk"))

// Piece is one chunk of text. The first Overlap runes repeat the tail of the previous piece.
type Piece struct {
	Text    string
	Overlap int
}

type span struct{ lo, hi int }

// Chunker splits text into pieces of at most chunkSize runes.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
	separators   [][]rune
}

// NewChunker creates a chunker. Separators are tried coarsest first; an overlap
// not smaller than chunkSize is treated as zero.
func NewChunker(chunkSize, chunkOverlap int, separators []string) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = 0
	}
	c := &Chunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
	for _, sep := range separators {
		if sep != "" {
			c.separators = append(c.separators, []rune(sep))
		}
	}
	return c
}

// limit is the room for new text in the span starting at lo. The first span has
// no overlap to carry; later spans reserve room for it.
func (c *Chunker) limit(lo int) int {
	if lo == 0 {
		return c.chunkSize
	}
	return c.chunkSize - c.chunkOverlap
}

// Split cuts text into pieces. Concatenating every piece with its overlap
// removed reproduces text exactly. Whitespace-only text yields no pieces.
func (c *Chunker) Split(text string) []Piece {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	runes := []rune(text)
	if len(runes) <= c.chunkSize {
		return []Piece{{Text: text}}
	}
	spans := c.merge(c.split(runes, span{0, len(runes)}, 0))

	pieces := make([]Piece, 0, len(spans))
	prevStart := 0
	for i, s := range spans {
		ov := 0
		if i > 0 {
			ov = min(c.chunkOverlap, s.lo-prevStart)
		}
		pieces = append(pieces, Piece{Text: string(runes[s.lo-ov : s.hi]), Overlap: ov})
		prevStart = s.lo - ov
	}
	return pieces
}

// split recursively cuts s with separators[sep:] until every span fits its limit.
func (c *Chunker) split(text []rune, s span, sep int) []span {
	if s.hi-s.lo <= c.limit(s.lo) {
		return []span{s}
	}
	for ; sep < len(c.separators); sep++ {
		parts := cutAt(text, s, c.separators[sep])
		if len(parts) < 2 {
			continue
		}
		var out []span
		for _, p := range parts {
			out = append(out, c.split(text, p, sep+1)...)
		}
		return out
	}
	var out []span
	for lo := s.lo; lo < s.hi; {
		hi := min(lo+c.limit(lo), s.hi)
		out = append(out, span{lo, hi})
		lo = hi
	}
	return out
}

// merge joins adjacent spans while the result fits the limit of its start.
func (c *Chunker) merge(spans []span) []span {
	var out []span
	for _, s := range spans {
		if n := len(out); n > 0 && s.hi-out[n-1].lo <= c.limit(out[n-1].lo) {
			out[n-1].hi = s.hi
			continue
		}
		out = append(out, s)
	}
	return out
}

// cutAt splits s at each occurrence of sep. Heading separators such as
// "=== Section" start the following part; punctuation and whitespace
// separators end the preceding one, so ". " stays with its sentence.
func cutAt(text []rune, s span, sep []rune) []span {
	leading := isHeading(sep)
	var out []span
	start := s.lo
	for i := s.lo; i+len(sep) <= s.hi; i++ {
		if !hasPrefix(text[i:s.hi], sep) {
			continue
		}
		cut := i + len(sep)
		if leading {
			cut = i
		}
		if cut > start {
			out = append(out, span{start, cut})
			start = cut
		}
		i += len(sep) - 1
	}
	if start < s.hi {
		out = append(out, span{start, s.hi})
	}
	return out
}

func isHeading(sep []rune) bool {
	for _, r := range sep {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func hasPrefix(text, prefix []rune) bool {
	if len(text) < len(prefix) {
		return false
	}
	for i, r := range prefix {
		if text[i] != r {
			return false
		}
	}
	return true
}

// ChunkRecords chunks each record's content. Sequence indexes run across the
// whole document so chunk ids stay unique per source.
func (c *Chunker) ChunkRecords(source string, records []models.Record) []models.Chunk {
	var chunks []models.Chunk
	for i := range records {
		r := &records[i]
		for _, p := range c.Split(r.Content) {
			chunks = append(chunks, c.newChunk(source, len(chunks), p, models.ChunkMetadata{
				Article:     orUnknown(r.ArticleLabel()),
				Section:     orUnknown(r.SectionLabel()),
				RecordIndex: i,
			}))
		}
	}
	return chunks
}

// ChunkText chunks an unstructured document. Headings are unknown and the source path is kept.
func (c *Chunker) ChunkText(source, text string) []models.Chunk {
	var chunks []models.Chunk
	for _, p := range c.Split(text) {
		chunks = append(chunks, c.newChunk(source, len(chunks), p, models.ChunkMetadata{
			Article:     models.UnknownHeading,
			Section:     models.UnknownHeading,
			Source:      source,
			RecordIndex: -1,
		}))
	}
	return chunks
}

func (c *Chunker) newChunk(source string, seq int, p Piece, meta models.ChunkMetadata) models.Chunk {
	meta.SequenceIndex = seq
	meta.Overlap = p.Overlap
	return models.Chunk{
		ID:       ChunkID(source, seq),
		Text:     p.Text,
		Metadata: meta,
	}
}

// ChunkID returns the stable identifier of the seq-th chunk of source.
func ChunkID(source string, seq int) string {
	return uuid.NewSHA1(idNamespace, []byte(fmt.Sprintf("%s#%d", source, seq))).String()
}

// Reassemble concatenates chunks with their overlaps removed.
func Reassemble(chunks []models.Chunk) string {
	var b strings.Builder
	for _, ch := range chunks {
		r := []rune(ch.Text)
		b.WriteString(string(r[min(ch.Metadata.Overlap, len(r)):]))
	}
	return b.String()
}

func orUnknown(label string) string {
	if label == "" {
		return models.UnknownHeading
	}
	return label
}
