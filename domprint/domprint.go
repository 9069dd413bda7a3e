// Package domprint fingerprints DOM structure so the raw and settled
// snapshots of a page can be compared by shape rather than by text.
// Tag-sequence shingles feed a 64-bit SimHash; the Hamming distance
// between two fingerprints grades how much script execution reshaped
// the document.
package domprint

import (
	"hash/fnv"
	"math/bits"
	"strings"

	"golang.org/x/net/html"
)

// shingleSize is the n-gram width over the tag sequence. Three tags is
// wide enough to capture local nesting without drowning rare structures.
const shingleSize = 3

// Fingerprint computes the structural fingerprint of an HTML document.
// Only open-tag names in document order contribute; text, attributes,
// and close tags are ignored, so two pages with the same skeleton but
// different copy fingerprint identically.
func Fingerprint(markup string) uint64 {
	tags := tagSequence(markup)
	if len(tags) == 0 {
		return 0
	}

	tokens := shingles(tags, shingleSize)
	if len(tokens) == 0 {
		// Too few tags to shingle: hash the bare tag sequence.
		tokens = tags
	}
	return simhash(tokens)
}

// Distance returns the Hamming distance between two fingerprints,
// 0 (identical structure) through 64.
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// StructuralDistance fingerprints both snapshots and returns their
// distance. A raw snapshot that is an empty shell against a fully
// rendered settled snapshot scores high; server-rendered pages score
// near zero.
func StructuralDistance(rawMarkup, settledMarkup string) int {
	return Distance(Fingerprint(rawMarkup), Fingerprint(settledMarkup))
}

// simhash folds token hashes into a 64-bit fingerprint via per-bit
// majority vote. FNV-64a keeps it dependency-free and deterministic
// across runs.
func simhash(tokens []string) uint64 {
	var vector [64]int
	for _, tok := range tokens {
		h := fnv.New64a()
		h.Write([]byte(tok))
		sum := h.Sum64()
		for i := 0; i < 64; i++ {
			if sum&(1<<uint(i)) != 0 {
				vector[i]++
			} else {
				vector[i]--
			}
		}
	}

	var fp uint64
	for i := 0; i < 64; i++ {
		if vector[i] > 0 {
			fp |= 1 << uint(i)
		}
	}
	return fp
}

// tagSequence tokenizes markup and collects open and self-closing tag
// names in order. The tokenizer never fails on malformed input; it
// emits what it can and stops.
func tagSequence(markup string) []string {
	z := html.NewTokenizer(strings.NewReader(markup))
	var tags []string
	for {
		switch z.Next() {
		case html.ErrorToken:
			return tags
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tags = append(tags, string(name))
		}
	}
}

// shingles builds n-gram tokens over the tag sequence. Returns nil when
// the sequence is shorter than n.
func shingles(tags []string, n int) []string {
	if len(tags) < n {
		return nil
	}
	out := make([]string, 0, len(tags)-n+1)
	for i := 0; i <= len(tags)-n; i++ {
		out = append(out, strings.Join(tags[i:i+n], ">"))
	}
	return out
}
