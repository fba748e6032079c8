// Package models defines core data structures for bylaws records, chunks, and query results.
package models

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ArticleHeading is an "Article <roman numeral>: <title>" heading.
type ArticleHeading struct {
	Numeral string
	Title   string
}

// Label returns the heading as it appears in records, e.g. "Article I: Name".
func (h ArticleHeading) Label() string {
	return fmt.Sprintf("Article %s: %s", h.Numeral, h.Title)
}

// SectionHeading is a "Section <number>: <title>" heading. Number may carry one
// decimal subdivision ("3.1").
type SectionHeading struct {
	Number string
	Title  string
}

// Label returns the heading as it appears in records, e.g. "Section 1: Purpose".
func (h SectionHeading) Label() string {
	return fmt.Sprintf("Section %s: %s", h.Number, h.Title)
}

var (
	articleLabelRe = regexp.MustCompile(`^Article ([IVXLCDM]+):\s*(.+)$`)
	sectionLabelRe = regexp.MustCompile(`^Section (\d+(?:\.\d+)?):\s*(.+)$`)
)

// ParseArticleLabel parses a label produced by ArticleHeading.Label.
func ParseArticleLabel(label string) (ArticleHeading, bool) {
	m := articleLabelRe.FindStringSubmatch(strings.TrimSpace(label))
	if m == nil {
		return ArticleHeading{}, false
	}
	return ArticleHeading{Numeral: m[1], Title: strings.TrimSpace(m[2])}, true
}

// ParseSectionLabel parses a label produced by SectionHeading.Label.
func ParseSectionLabel(label string) (SectionHeading, bool) {
	m := sectionLabelRe.FindStringSubmatch(strings.TrimSpace(label))
	if m == nil {
		return SectionHeading{}, false
	}
	return SectionHeading{Number: m[1], Title: strings.TrimSpace(m[2])}, true
}

// Record is one section body with its enclosing article and section headings.
// Records are serialized as {"article": string|null, "section": string|null, "content": string}.
type Record struct {
	Article *ArticleHeading
	Section *SectionHeading
	Content string
}

// ArticleLabel returns the article label, or "" when no article is known.
func (r *Record) ArticleLabel() string {
	if r.Article == nil {
		return ""
	}
	return r.Article.Label()
}

// SectionLabel returns the section label, or "" when no section is known.
func (r *Record) SectionLabel() string {
	if r.Section == nil {
		return ""
	}
	return r.Section.Label()
}

type recordJSON struct {
	Article *string `json:"article"`
	Section *string `json:"section"`
	Content string  `json:"content"`
}

// MarshalJSON encodes headings as their labels, or null when absent.
func (r Record) MarshalJSON() ([]byte, error) {
	out := recordJSON{Content: r.Content}
	if r.Article != nil {
		s := r.Article.Label()
		out.Article = &s
	}
	if r.Section != nil {
		s := r.Section.Label()
		out.Section = &s
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the label form written by MarshalJSON.
func (r *Record) UnmarshalJSON(data []byte) error {
	var in recordJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*r = Record{Content: in.Content}
	if in.Article != nil {
		h, ok := ParseArticleLabel(*in.Article)
		if !ok {
			return fmt.Errorf("invalid article label %q", *in.Article)
		}
		r.Article = &h
	}
	if in.Section != nil {
		h, ok := ParseSectionLabel(*in.Section)
		if !ok {
			return fmt.Errorf("invalid section label %q", *in.Section)
		}
		r.Section = &h
	}
	return nil
}
