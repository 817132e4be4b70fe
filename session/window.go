package session

import (
	"sync"

	"github.com/BaSui01/teamflow/types"
	"github.com/pkoukk/tiktoken-go"
)

// turnOverhead approximates the per-message framing tokens chat APIs charge.
const turnOverhead = 4

// Windower bounds the transcript handed to a reasoning backend by a token
// budget, keeping the most recent turns. Counting uses tiktoken; if the
// encoding cannot be initialized it falls back to a characters/4 estimate so
// windowing degrades rather than fails.
type Windower struct {
	encoding string
	budget   int
	enc      *tiktoken.Tiktoken
	once     sync.Once
}

// NewWindower creates a windower for the given tiktoken encoding name
// (e.g. "cl100k_base") and token budget. A budget of zero disables windowing.
func NewWindower(encoding string, budget int) *Windower {
	if encoding == "" {
		encoding = "cl100k_base"
	}
	return &Windower{encoding: encoding, budget: budget}
}

func (w *Windower) init() {
	w.once.Do(func() {
		// Encoding data may be fetched on first use; a failure here leaves
		// enc nil and the estimate path takes over.
		enc, err := tiktoken.GetEncoding(w.encoding)
		if err == nil {
			w.enc = enc
		}
	})
}

// CountTokens counts tokens in text.
func (w *Windower) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	w.init()
	if w.enc != nil {
		return len(w.enc.Encode(text, nil, nil))
	}
	n := len(text) / 4
	if n < 1 {
		n = 1
	}
	return n
}

// Window returns the suffix of turns that fits the budget. The most recent
// turn is always included, even when it alone exceeds the budget: the current
// user message cannot be dropped.
func (w *Windower) Window(turns []types.Turn) []types.Turn {
	if w.budget <= 0 || len(turns) == 0 {
		return turns
	}
	total := 0
	start := len(turns)
	for i := len(turns) - 1; i >= 0; i-- {
		cost := w.CountTokens(turns[i].Content) + turnOverhead
		if total+cost > w.budget && start < len(turns) {
			break
		}
		total += cost
		start = i
	}
	return turns[start:]
}
