// Package tokenizer implements the token counter: a thread-safe wrapper
// that counts digest tokens and memoizes counts for repeated text with a
// bounded cache.
package tokenizer

import (
	"crypto/sha256"
	"encoding/hex"
	"unicode/utf8"

	"github.com/nclsjn/youtubingest/internal/cache"
)

// Counter counts tokens in text and memoizes counts by a content hash of
// the input, so repeated calls on the same digest text (e.g. retries, or
// re-rendering after a cache hit upstream) don't re-tokenize.
//
// No byte-pair-encoding tokenizer library is wired in; Counter implements a
// pure count-by-rune-length approximation instead.
type Counter struct {
	memo  *cache.TTLCache[string, int]
	ratio float64 // approximate runes per token
}

// New builds a Counter with a bounded memoization cache of the given
// capacity, registered with reg under PriorityToken so it drains last
// under memory pressure.
func New(reg *cache.Registry, capacity int) *Counter {
	c := &Counter{
		memo:  cache.NewTTLCache[string, int]("token-counts", capacity, 20),
		ratio: 4.0, // ~4 bytes per GPT-style BPE token for English prose, the
		// commonly cited rule of thumb; used only as the stdlib fallback's
		// approximation factor.
	}
	if reg != nil {
		reg.Register(c.memo, cache.PriorityToken)
	}
	return c
}

// Count returns the approximate token count of text, memoized by content
// hash so repeated calls on identical text are O(1) after the first.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	key := fingerprint(text)
	if n, ok := c.memo.Get(key); ok {
		return n
	}

	n := c.approximate(text)
	c.memo.Put(key, n, 0)
	return n
}

// approximate implements the byte-length-approximation fallback: runes are
// counted rather than raw bytes so multi-byte UTF-8 text (non-Latin
// scripts, emoji) isn't over-counted relative to its true token density.
func (c *Counter) approximate(text string) int {
	runeCount := utf8.RuneCountInString(text)
	n := int(float64(runeCount) / c.ratio)
	if n < 1 && runeCount > 0 {
		n = 1
	}
	return n
}

func fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
