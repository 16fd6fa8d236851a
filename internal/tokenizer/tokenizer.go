// Package tokenizer provides the token-count oracle used by the memory
// policy. A cheap character heuristic is the default; a tiktoken-backed
// counter is available when the model is known.
package tokenizer

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Counter estimates the token count of a text.
type Counter interface {
	Count(text string) int
}

// CharsPerToken is the heuristic ratio for English-dominant text.
const CharsPerToken = 4

// Heuristic counts tokens as len(text)/CharsPerToken, minimum 1 for
// non-empty text. Good enough for window sizing.
type Heuristic struct{}

func (Heuristic) Count(text string) int {
	if len(text) == 0 {
		return 0
	}
	n := len(text) / CharsPerToken
	if n == 0 {
		n = 1
	}
	return n
}

// Tiktoken counts tokens with the model's BPE encoding. Encodings are
// cached per model. Falls back to the heuristic when the model is unknown
// to the tiktoken tables.
type Tiktoken struct {
	Model string

	once sync.Once
	enc  *tiktoken.Tiktoken
}

func (t *Tiktoken) Count(text string) int {
	t.once.Do(func() {
		enc, err := tiktoken.EncodingForModel(t.Model)
		if err != nil {
			return
		}
		t.enc = enc
	})
	if t.enc == nil {
		return Heuristic{}.Count(text)
	}
	return len(t.enc.Encode(text, nil, nil))
}

// ForModel returns a counter suited to the model name. Empty model name
// yields the heuristic.
func ForModel(model string) Counter {
	if model == "" {
		return Heuristic{}
	}
	return &Tiktoken{Model: model}
}
