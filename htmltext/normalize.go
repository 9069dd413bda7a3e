// Package htmltext reduces markup to plain text for length-based diffing.
package htmltext

import (
	"strings"

	"golang.org/x/net/html"
)

// skippedTags are containers whose text is never user-visible content.
var skippedTags = map[string]struct{}{
	"script":   {},
	"style":    {},
	"noscript": {},
	"template": {},
	"head":     {},
}

// Normalize strips script/style blocks, comments, and all remaining tags
// from markup, then collapses whitespace runs to single spaces and trims.
//
// Every tag boundary is replaced with a space rather than deleted, so
// adjacent inline elements ("<b>Buy</b><i>now</i>") never concatenate into
// one token. Pure function, total on any string input.
func Normalize(markup string) string {
	z := html.NewTokenizer(strings.NewReader(markup))

	var b strings.Builder
	skipDepth := 0

	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or malformed input: either way, return what we have.
			return collapse(b.String())

		case html.TextToken:
			if skipDepth == 0 {
				b.Write(z.Text())
			}

		case html.StartTagToken:
			name, _ := z.TagName()
			if _, skip := skippedTags[string(name)]; skip {
				skipDepth++
			}
			b.WriteByte(' ')

		case html.EndTagToken:
			name, _ := z.TagName()
			if _, skip := skippedTags[string(name)]; skip && skipDepth > 0 {
				skipDepth--
			}
			b.WriteByte(' ')

		case html.SelfClosingTagToken:
			b.WriteByte(' ')

		case html.CommentToken, html.DoctypeToken:
			// dropped entirely
		}
	}
}

// collapse reduces any whitespace run to a single space and trims the ends.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
