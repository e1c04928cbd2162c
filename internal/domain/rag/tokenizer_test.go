package rag

import "testing"

// The zero-value Tokenizer has no encoder and counts whitespace-separated
// words. Tests use it deliberately: the real BPE tables are fetched over the
// network at init and are not available in CI.
func TestTokenizer_WordFallback(t *testing.T) {
	t.Parallel()

	tok := &Tokenizer{}

	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"single word", "restart", 1},
		{"sentence", "restart the payment service", 4},
		{"extra whitespace", "  restart   the\tservice \n", 3},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tok.Count(tt.text); got != tt.want {
				t.Fatalf("Count(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestTokenizer_NilReceiver(t *testing.T) {
	t.Parallel()

	var tok *Tokenizer
	if got := tok.Count("two words"); got != 2 {
		t.Fatalf("nil tokenizer Count = %d, want 2", got)
	}
}
