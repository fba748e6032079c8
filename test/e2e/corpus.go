// Package e2e runs the full pipeline over a synthetic bylaws document:
// extraction, structuring, indexing and question answering through the HTTP API.
package e2e

import (
	"fmt"
	"strings"
)

// E2ESection is one section of the synthetic bylaws.
type E2ESection struct {
	Article string
	Section string
	Content string
}

// Source is the citation the query engine produces for the section.
func (s E2ESection) Source() string {
	return s.Article + " > " + s.Section
}

// QueryTestCase defines a question and the source that must rank first.
type QueryTestCase struct {
	Question       string
	ExpectedSource string
}

// Corpus holds the bylaws text and query test cases.
type Corpus struct {
	Sections  []E2ESection
	TestCases []QueryTestCase
	// Raw is the text as an extractor would produce it: a preamble, wrapped
	// lines and one marker in non-canonical form.
	Raw string
}

type article struct {
	numeral  string
	title    string
	sections []section
}

type section struct {
	title    string
	content  string
	question string
}

var bylaws = []article{
	{"I", "Name and Purpose", []section{
		{"Title", "The organization shall be called Lambda Sigma Fellowship.", "What is the organization called?"},
		{"Purpose", "It exists to foster scholarship, leadership and lifelong friendship.", "Does the group foster scholarship and friendship?"},
	}},
	{"II", "Membership", []section{
		{"Eligibility", "Any enrolled undergraduate with a cumulative grade average above two point five may petition.", "May any enrolled undergraduate petition?"},
		{"Dues", "Annual dues of fifty dollars are payable each September.", "When are annual dues payable?"},
		{"Expulsion", "A member may be expelled by a two thirds ballot after a hearing.", "How can a member be expelled?"},
	}},
	{"III", "Officers", []section{
		{"President", "The president presides over meetings and appoints committee chairs.", "Who presides over meetings?"},
		{"Treasurer", "The treasurer maintains ledgers and reconciles the bank account monthly.", "Who reconciles the bank account?"},
		{"Secretary", "The secretary records minutes and keeps correspondence.", "Who records minutes?"},
	}},
	{"IV", "Meetings", []section{
		{"Schedule", "General assemblies convene every second Tuesday.", "When do general assemblies convene?"},
		{"Quorum", "A quorum consists of a simple majority of active members.", "Is a quorum a simple majority?"},
	}},
	{"V", "Amendments", []section{
		{"Proposal", "Amendments must be submitted in writing two weeks before a vote.", "How must amendments be submitted?"},
		{"Ratification", "Ratification requires approval from three quarters of those voting.", "What approval does ratification need?"},
	}},
}

// BuildCorpus returns the synthetic bylaws and one question per section.
func BuildCorpus() *Corpus {
	c := &Corpus{}
	var b strings.Builder
	b.WriteString("BYLAWS OF THE LAMBDA SIGMA FELLOWSHIP\nAdopted by the founding assembly\n\n")
	for _, a := range bylaws {
		articleLabel := fmt.Sprintf("Article %s: %s", a.numeral, a.title)
		if a.numeral == "III" {
			fmt.Fprintf(&b, "===  article %s :%s===\n", a.numeral, a.title)
		} else {
			fmt.Fprintf(&b, "=== %s ===\n", articleLabel)
		}
		for i, s := range a.sections {
			sectionLabel := fmt.Sprintf("Section %d: %s", i+1, s.title)
			fmt.Fprintf(&b, "=== %s ===\n%s\n\n", sectionLabel, wrap(s.content, 32))
			c.Sections = append(c.Sections, E2ESection{Article: articleLabel, Section: sectionLabel, Content: s.content})
			c.TestCases = append(c.TestCases, QueryTestCase{Question: s.question, ExpectedSource: articleLabel + " > " + sectionLabel})
		}
	}
	c.Raw = b.String()
	return c
}

// wrap breaks text at spaces into lines of at most width bytes.
func wrap(text string, width int) string {
	var lines []string
	var line string
	for _, w := range strings.Fields(text) {
		switch {
		case line == "":
			line = w
		case len(line)+1+len(w) > width:
			lines = append(lines, line)
			line = w
		default:
			line += " " + w
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
