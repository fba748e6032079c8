package query

import (
	"strings"

	"github.com/hyperjump/jourei/internal/models"
)

const promptTemplate = "You are a helpful assistant for fraternity bylaws. " +
	"Use the context below to answer the question.\n\n" +
	"CONTEXT:\n{context}\n\n" +
	"QUESTION: {question}\n\n" +
	"Answer precisely and quote or reference the relevant Article/Section if possible."

// UnknownSource is cited for a chunk that carries no identifying metadata.
const UnknownSource = "Unknown"

// BuildContext joins chunk texts in rank order, separated by blank lines.
func BuildContext(chunks []models.ScoredChunk) string {
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	return strings.Join(texts, "\n\n")
}

// RenderPrompt fills the fixed template with the context block and the verbatim question.
func RenderPrompt(context, question string) string {
	r := strings.NewReplacer("{context}", context, "{question}", question)
	return r.Replace(promptTemplate)
}

// SourceOf names the bylaws location a chunk came from:
// "Article > Section", the article alone, the source path, or UnknownSource.
func SourceOf(meta models.ChunkMetadata) string {
	article := known(meta.Article)
	section := known(meta.Section)
	switch {
	case article != "" && section != "":
		return article + " > " + section
	case article != "":
		return article
	case section != "":
		return section
	case meta.Source != "":
		return meta.Source
	default:
		return UnknownSource
	}
}

func known(label string) string {
	if label == models.UnknownHeading {
		return ""
	}
	return strings.TrimSpace(label)
}
