// Package token counts prompt tokens for budgeting decisions. Counting
// uses the cl100k_base BPE encoding; when the encoding cannot be loaded
// the counter degrades to a bytes-based estimate so analysis never
// blocks on tokenizer assets.
package token

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const encodingName = "cl100k_base"

// estimateDivisor approximates tokens from byte length when no encoding
// is available. Four bytes per token is a reasonable average for source
// code and English prose.
const estimateDivisor = 4

// Counter counts tokens in text.
type Counter struct {
	mu       sync.Mutex
	encoding *tiktoken.Tiktoken
	estimate bool
}

// NewCounter loads the cl100k_base encoding. Load failures are not
// fatal: the returned counter estimates instead, and Estimating reports
// the degraded mode so callers can log it.
func NewCounter() *Counter {
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return &Counter{estimate: true}
	}
	return &Counter{encoding: enc}
}

// Count returns the number of tokens in text.
func (c *Counter) Count(text string) int {
	if c.estimate {
		return estimateTokens(text)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.encoding.Encode(text, nil, nil))
}

// CountAll returns the combined token count of the given texts.
func (c *Counter) CountAll(texts ...string) int {
	total := 0
	for _, text := range texts {
		total += c.Count(text)
	}
	return total
}

// Estimating reports whether the counter fell back to byte estimation.
func (c *Counter) Estimating() bool {
	return c.estimate
}

func estimateTokens(text string) int {
	if text == "" {
		return 0
	}
	n := len(text) / estimateDivisor
	if n == 0 {
		return 1
	}
	return n
}
