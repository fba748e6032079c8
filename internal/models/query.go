package models

import "strings"

// QueryRequest is the body of a question against the knowledge base.
type QueryRequest struct {
	Question string `json:"question"`
}

// Blank reports whether the question is empty or whitespace only.
func (q *QueryRequest) Blank() bool {
	return strings.TrimSpace(q.Question) == ""
}

// QueryResult is a grounded answer plus the sources of the chunks used, in retrieval rank order.
type QueryResult struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}
