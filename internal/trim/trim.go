// Package trim bounds text by word count and by model token count.
//
// Word budgets bound scraped web text cheaply before it is assembled;
// token budgets bound what is finally sent to the endpoint.
package trim

import (
	"strings"
	"unicode"
)

// Direction selects which end of the text is dropped first.
type Direction int

const (
	// DropTail cuts from the end and keeps the beginning.
	DropTail Direction = iota
	// DropHead cuts from the beginning and keeps the newest tail.
	DropHead
)

// Tokenizer counts model tokens in a string.
type Tokenizer interface {
	Count(text string) int
}

// Words keeps the last limit whitespace-separated words of text in their
// original order. The separators between kept words are preserved, so
// paragraph breaks survive.
func Words(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	end := len(strings.TrimRightFunc(text, unicode.IsSpace))
	start := end
	for n := 0; n < limit && start > 0; n++ {
		// start sits just past a word; move it to the word's first byte.
		start = strings.LastIndexFunc(text[:start], unicode.IsSpace) + 1
		if n == limit-1 {
			break
		}
		start = len(strings.TrimRightFunc(text[:start], unicode.IsSpace))
	}
	return strings.TrimLeftFunc(text[start:end], unicode.IsSpace)
}

// Tokens cuts text until tok counts at most limit tokens.
// Text already within budget is returned unchanged, so applying Tokens twice
// gives the same result as applying it once.
//
// Characters are removed in batches sized by the overshoot. Removing
// characters never increases a BPE token count and every pass shrinks the
// text, so the loop terminates (at worst on the empty string).
func Tokens(text string, limit int, tok Tokenizer, dir Direction) string {
	if limit < 0 {
		limit = 0
	}
	count := tok.Count(text)
	if count <= limit {
		return text
	}

	runes := []rune(text)
	for count > limit && len(runes) > 0 {
		n := step(count - limit)
		if n > len(runes) {
			n = len(runes)
		}
		if dir == DropHead {
			runes = runes[n:]
		} else {
			runes = runes[:len(runes)-n]
		}
		count = tok.Count(string(runes))
	}
	return string(runes)
}

// step returns how many characters to cut for an overshoot of n tokens.
func step(overshoot int) int {
	switch {
	case overshoot > 300000:
		return 100000
	case overshoot > 10000:
		return 10000
	default:
		return 100
	}
}
