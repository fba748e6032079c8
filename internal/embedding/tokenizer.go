package embedding

import "strings"

// BERT special token ids.
const (
	clsToken = 101
	sepToken = 102
	vocabCap = 30000
)

// Tokenizer produces BERT-style model inputs (input_ids, attention_mask, token_type_ids).
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

// SimpleTokenizer splits on whitespace and hashes lowercased words into the vocabulary range.
// It is a stand-in for a model's WordPiece vocabulary.
type SimpleTokenizer struct{}

// Tokenize returns inputs padded to maxTokens with [CLS] and [SEP] framing.
func (t *SimpleTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens < 2 {
		maxTokens = 256
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	inputIDs[0] = clsToken
	attentionMask[0] = 1
	pos := 1
	for _, word := range strings.Fields(strings.ToLower(text)) {
		if pos >= maxTokens-1 {
			break
		}
		// keep ids above the special-token range
		inputIDs[pos] = int64(1000 + hashString(word)%(vocabCap-1000))
		attentionMask[pos] = 1
		pos++
	}
	inputIDs[pos] = sepToken
	attentionMask[pos] = 1
	return inputIDs, attentionMask, tokenTypeIDs
}

func hashString(s string) int {
	h := uint32(0)
	for _, c := range s {
		h = 31*h + uint32(c)
	}
	return int(h)
}
