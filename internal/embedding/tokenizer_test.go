package embedding

import (
	"testing"
)

func TestSimpleTokenizer_Tokenize(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, attn, types := tok.Tokenize("Members pay dues", 10)
	if len(ids) != 10 || len(attn) != 10 || len(types) != 10 {
		t.Fatalf("lengths %d %d %d", len(ids), len(attn), len(types))
	}
	if ids[0] != clsToken || ids[4] != sepToken {
		t.Errorf("expected [CLS] ... [SEP] framing, got %v", ids)
	}
	for i := 0; i < 5; i++ {
		if attn[i] != 1 {
			t.Errorf("attention[%d] should be 1", i)
		}
	}
	if attn[5] != 0 || ids[5] != 0 {
		t.Error("padding should be zero")
	}
	again, _, _ := tok.Tokenize("members PAY dues", 10)
	for i := range ids {
		if ids[i] != again[i] {
			t.Fatal("tokenization should ignore case")
		}
	}
}

func TestSimpleTokenizer_truncates(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, attn, _ := tok.Tokenize("a b c d e f g h i j k", 4)
	if ids[3] != sepToken || attn[3] != 1 {
		t.Errorf("last slot should hold [SEP], got %v", ids)
	}
}
