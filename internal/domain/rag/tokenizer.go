package rag

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer counts tokens the way the deployed chat model does.
// If the model encoding cannot be initialised it degrades to counting
// whitespace-separated words — Count never fails.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTokenizer resolves the gpt-4 encoding, falling back to cl100k_base.
// A nil encoder (both lookups failed, e.g. offline without a cached BPE
// file) leaves the Tokenizer in word-count mode.
func NewTokenizer() *Tokenizer {
	enc, err := tiktoken.EncodingForModel("gpt-4")
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			enc = nil
		}
	}
	return &Tokenizer{enc: enc}
}

// Count returns a non-negative token count for text.
func (t *Tokenizer) Count(text string) int {
	if t == nil || t.enc == nil {
		return len(strings.Fields(text))
	}
	return len(t.enc.Encode(text, nil, nil))
}
