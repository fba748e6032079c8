// Package structure turns normalized bylaws text into ordered Article/Section records.
//
// The parser is a three-state machine:
//
//	NoContext --Article--> InArticle --Section--> InSection
//	InSection --Section--> InSection   (flush)
//	InSection --Article--> InArticle   (flush, section closed)
//	InArticle --Article--> InArticle
//
// A record is flushed only when leaving InSection with accumulated content, or at
// end of input. Content lines seen outside InSection are dropped: the bylaws
// format has no slot for preamble text, and that text is not attached to any record.
package structure

import (
	"regexp"
	"strings"

	"github.com/hyperjump/jourei/internal/models"
	"github.com/hyperjump/jourei/internal/normalize"
)

type state int

const (
	stateNoContext state = iota
	stateInArticle
	stateInSection
)

func (s state) String() string {
	switch s {
	case stateInArticle:
		return "in_article"
	case stateInSection:
		return "in_section"
	default:
		return "no_context"
	}
}

var (
	articleMarkerRe = regexp.MustCompile(`^=== Article ([IVXLCDM]+):\s*(.+?) ===$`)
	sectionMarkerRe = regexp.MustCompile(`^=== Section (\d+(?:\.\d+)?):\s*(.+?) ===$`)
)

// Stats counts what the parser saw. Dropped and malformed lines are not errors.
type Stats struct {
	Lines            int `json:"lines"`
	Articles         int `json:"articles"`
	Sections         int `json:"sections"`
	Records          int `json:"records"`
	DroppedLines     int `json:"dropped_lines"`
	MalformedMarkers int `json:"malformed_markers"`
}

// Parser accumulates records from lines fed in document order. The zero value is ready to use.
type Parser struct {
	state   state
	article *models.ArticleHeading
	section *models.SectionHeading
	content []string
	records []models.Record
	stats   Stats
}

// Feed consumes one line of formatted text.
func (p *Parser) Feed(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	p.stats.Lines++
	if m := articleMarkerRe.FindStringSubmatch(line); m != nil {
		p.onArticle(models.ArticleHeading{Numeral: m[1], Title: strings.TrimSpace(m[2])})
		return
	}
	if m := sectionMarkerRe.FindStringSubmatch(line); m != nil {
		p.onSection(models.SectionHeading{Number: m[1], Title: strings.TrimSpace(m[2])})
		return
	}
	if strings.HasPrefix(line, "===") {
		p.stats.MalformedMarkers++
	}
	p.onContent(line)
}

func (p *Parser) onArticle(h models.ArticleHeading) {
	p.stats.Articles++
	p.flush()
	p.section = nil
	p.article = &h
	p.state = stateInArticle
}

func (p *Parser) onSection(h models.SectionHeading) {
	p.stats.Sections++
	p.flush()
	if p.article == nil {
		// A section with no enclosing article cannot hold content.
		p.state = stateNoContext
		return
	}
	p.section = &h
	p.state = stateInSection
}

func (p *Parser) onContent(line string) {
	if p.state != stateInSection {
		p.stats.DroppedLines++
		return
	}
	p.content = append(p.content, line)
}

// flush emits the open section as a record if it has content, then clears the accumulator.
func (p *Parser) flush() {
	if p.state == stateInSection && len(p.content) > 0 {
		article := *p.article
		section := *p.section
		p.records = append(p.records, models.Record{
			Article: &article,
			Section: &section,
			Content: strings.TrimSpace(strings.Join(p.content, " ")),
		})
		p.stats.Records++
	}
	p.content = nil
}

// Finish flushes any open section and returns the records in document order.
// The parser should not be fed after Finish.
func (p *Parser) Finish() []models.Record {
	p.flush()
	if p.records == nil {
		return []models.Record{}
	}
	return p.records
}

// Stats returns the counters collected so far.
func (p *Parser) Stats() Stats {
	return p.stats
}

// Parse runs the parser over text whose markers are already in canonical form, one per line.
func Parse(formatted string) ([]models.Record, Stats) {
	var p Parser
	for _, line := range strings.Split(formatted, "\n") {
		p.Feed(line)
	}
	records := p.Finish()
	return records, p.Stats()
}

// Structure standardizes the heading markers of normalized text and parses it.
// It returns the formatted text alongside the records so callers can persist both.
func Structure(normalized string) (formatted string, records []models.Record, stats Stats) {
	formatted = normalize.FormatMarkers(normalized)
	records, stats = Parse(formatted)
	return formatted, records, stats
}
