// Package classify walks the settled document, extracts typed content units
// per business category, and tests each unit for presence in the
// pre-execution snapshot.
package classify

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/agentlens/config"
	"github.com/use-agent/agentlens/models"
)

// contentUnit is one extracted unit. Ephemeral: produced and consumed
// within a single classification pass.
type contentUnit struct {
	category    models.Category
	text        string // original trimmed text, for examples
	token       string // normalized token used for presence testing
	locatorHint string
	foundInRaw  bool
}

// Result is one classification pass over a settled document.
type Result struct {
	Findings models.CategoryFindings
	Signals  models.PageSignals
}

// Classifier extracts content units from settled documents. Stateless
// across calls; safe for concurrent use.
type Classifier struct {
	cfg config.ClassifierConfig
}

// New creates a Classifier with the given extraction limits.
func New(cfg config.ClassifierConfig) *Classifier {
	if cfg.MinTokenLength <= 0 {
		cfg.MinTokenLength = 3
	}
	if cfg.MaxTokenLength <= 0 {
		cfg.MaxTokenLength = 80
	}
	if cfg.MaxExamples <= 0 {
		cfg.MaxExamples = 5
	}
	return &Classifier{cfg: cfg}
}

// ParseDocument parses settled markup into the static document the
// classifier queries. Classification never touches a live browser, so it
// can be exercised in tests against plain HTML strings.
func ParseDocument(markup string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(markup))
}

// Classify extracts every category's candidate units from the settled
// document and tests each against both the raw markup and the normalized
// raw text. Presence testing is case-insensitive substring containment —
// deliberately conservative, preferring false negatives over accusing
// CSS-hidden content of being absent.
//
// Deterministic: the same (rawMarkup, settled document) pair always yields
// identical findings.
func (cl *Classifier) Classify(rawMarkup, rawText string, doc *goquery.Document) *Result {
	pass := &classifyPass{
		cfg:          cl.cfg,
		rawLower:     strings.ToLower(rawMarkup),
		rawTextLower: strings.ToLower(rawText),
		findings:     models.EmptyFindings(),
	}

	pass.navigation(doc)
	pass.headings(doc)
	pass.pricing(doc)
	pass.inventory(doc)
	pass.reviews(doc)
	pass.interactive(doc)
	pass.media(doc)

	return &Result{Findings: pass.findings, Signals: pass.signals}
}

// classifyPass accumulates one pass's findings.
type classifyPass struct {
	cfg          config.ClassifierConfig
	rawLower     string
	rawTextLower string
	findings     models.CategoryFindings
	signals      models.PageSignals
}

// unit builds a content unit from candidate text, applying the noise
// filter. Returns nil for discarded candidates (too short after trimming).
// Internal whitespace in the token is collapsed to single spaces so that
// containment matches the normalized raw text regardless of how the settled
// serialization wrapped lines.
func (p *classifyPass) unit(cat models.Category, text, locatorHint string) *contentUnit {
	text = strings.TrimSpace(text)
	token := strings.ToLower(strings.Join(strings.Fields(text), " "))
	if utf8.RuneCountInString(token) < p.cfg.MinTokenLength {
		return nil
	}
	if utf8.RuneCountInString(token) > p.cfg.MaxTokenLength {
		token = string([]rune(token)[:p.cfg.MaxTokenLength])
	}
	return &contentUnit{
		category:    cat,
		text:        text,
		token:       token,
		locatorHint: locatorHint,
		foundInRaw:  strings.Contains(p.rawLower, token) || strings.Contains(p.rawTextLower, token),
	}
}

// record tallies a unit. Total counts every candidate; missing examples are
// capped for compact reporting.
func (p *classifyPass) record(u *contentUnit) {
	if u == nil {
		return
	}
	f := p.findings[u.category]
	f.Total++
	if u.foundInRaw {
		return
	}
	f.Missing++
	if len(f.Examples) < p.cfg.MaxExamples {
		f.Examples = append(f.Examples, u.text)
	}
}

// locatorHint names the element for report examples: tag plus the first
// class or the id, e.g. "a.nav-link" or "button#add-to-cart".
func locatorHint(s *goquery.Selection) string {
	name := goquery.NodeName(s)
	if id, ok := s.Attr("id"); ok && id != "" {
		return name + "#" + id
	}
	if class, ok := s.Attr("class"); ok {
		if first := strings.Fields(class); len(first) > 0 {
			return name + "." + first[0]
		}
	}
	return name
}

// ownText concatenates the selection's direct text nodes, excluding
// descendant element text. Used where nested containers would otherwise
// produce duplicate candidates.
func ownText(s *goquery.Selection) string {
	var b strings.Builder
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			b.WriteString(c.Text())
		}
	})
	return b.String()
}
