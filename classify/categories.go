package classify

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/use-agent/agentlens/models"
)

// Category selection rules, compiled once. cascadia.Selector implements
// goquery.Matcher, so the settled document is queried without re-parsing
// selectors per pass.
var (
	navMatcher = cascadia.MustCompile(
		`nav a, header a, [role="navigation"] a, .nav a, .navbar a, .menu a`)
	headingMatcher = cascadia.MustCompile(`h1, h2, h3`)
	priceMatcher   = cascadia.MustCompile(
		`span, td, p, li, strong, em, b, [class*="price"], [data-price]`)
	inventoryMatcher = cascadia.MustCompile(`span, td, p, li, div, strong, em, b`)
	reviewMatcher    = cascadia.MustCompile(
		`[class*="rating"], [class*="review"], [class*="star"], [itemprop="ratingValue"], [data-rating]`)
	controlMatcher = cascadia.MustCompile(
		`button, [role="button"], input[type="submit"], input[type="button"], a[class*="btn"], [class*="button"]`)
	mediaMatcher = cascadia.MustCompile(`img, video, audio, source`)
)

var (
	// symbolPriceRe matches "$1,299.99", "€ 49", "£9.50".
	symbolPriceRe = regexp.MustCompile(`[$€£¥₹]\s?\d[\d,]*(?:\.\d{1,2})?`)

	// codePriceRe matches "1299.99 USD", "49 EUR".
	codePriceRe = regexp.MustCompile(`(?i)\d[\d,]*(?:\.\d{1,2})?\s?(?:USD|EUR|GBP|JPY)`)

	// stockRe matches availability phrases.
	stockRe = regexp.MustCompile(
		`(?i)\b(in stock|out of stock|sold out|only \d+ left|\d+ in stock|available now|currently unavailable|backordered|pre-?order)\b`)

	// ratingRe captures a numeric rating out of five: "4.5/5", "4 out of 5".
	ratingRe = regexp.MustCompile(`(\d(?:\.\d)?)\s*(?:/|out of)\s*5\b`)

	// amountRe extracts the numeric part of a price token.
	amountRe = regexp.MustCompile(`\d[\d,]*(?:\.\d{1,2})?`)
)

func (p *classifyPass) navigation(doc *goquery.Document) {
	byCategory := make(map[models.LinkCategory]int)
	doc.FindMatcher(navMatcher).Each(func(_ int, s *goquery.Selection) {
		u := p.unit(models.CategoryNavigation, s.Text(), locatorHint(s))
		if u == nil {
			return
		}
		p.record(u)
		byCategory[CategorizeLink(u.text)]++
	})
	if len(byCategory) > 0 {
		p.signals.Navigation.ByCategory = byCategory
	}
}

func (p *classifyPass) headings(doc *goquery.Document) {
	doc.FindMatcher(headingMatcher).Each(func(_ int, s *goquery.Selection) {
		p.record(p.unit(models.CategoryHeadings, s.Text(), locatorHint(s)))
	})
}

// pricing candidates are leaf elements (or explicitly price-marked ones)
// whose own text matches a currency/decimal pattern. Leaf restriction keeps
// nested wrappers from double-counting one displayed price.
func (p *classifyPass) pricing(doc *goquery.Document) {
	var amounts []float64
	doc.FindMatcher(priceMatcher).Each(func(_ int, s *goquery.Selection) {
		marked := false
		if class, ok := s.Attr("class"); ok && strings.Contains(strings.ToLower(class), "price") {
			marked = true
		}
		if _, ok := s.Attr("data-price"); ok {
			marked = true
		}
		if !marked && s.Children().Length() > 0 {
			return
		}

		text := strings.TrimSpace(ownText(s))
		if marked && text == "" {
			text = strings.TrimSpace(s.Text())
		}
		match := symbolPriceRe.FindString(text)
		if match == "" {
			match = codePriceRe.FindString(text)
		}
		if match == "" {
			return
		}

		u := p.unit(models.CategoryPricing, match, locatorHint(s))
		if u == nil {
			return
		}
		p.record(u)

		if p.signals.Pricing.Currency == "" {
			if sym := currencySymbol(match); sym != "" {
				p.signals.Pricing.Currency = sym
			}
		}
		if amount, ok := parseAmount(match); ok {
			amounts = append(amounts, amount)
		}
	})

	if len(amounts) > 0 {
		sort.Float64s(amounts)
		p.signals.Pricing.MinPrice = amounts[0]
		p.signals.Pricing.MaxPrice = amounts[len(amounts)-1]
	}
}

func (p *classifyPass) inventory(doc *goquery.Document) {
	doc.FindMatcher(inventoryMatcher).Each(func(_ int, s *goquery.Selection) {
		if s.Children().Length() > 0 {
			return
		}
		match := stockRe.FindString(s.Text())
		if match == "" {
			return
		}
		p.record(p.unit(models.CategoryInventory, match, locatorHint(s)))
	})
}

func (p *classifyPass) reviews(doc *goquery.Document) {
	var ratings []float64
	doc.FindMatcher(reviewMatcher).Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			if content, ok := s.Attr("content"); ok {
				text = content
			}
		}
		u := p.unit(models.CategoryReviews, text, locatorHint(s))
		if u == nil {
			return
		}
		p.record(u)

		if r, ok := parseRating(text, s); ok {
			ratings = append(ratings, r)
		}
	})

	p.signals.Reviews.RatingCount = len(ratings)
	if len(ratings) > 0 {
		var sum float64
		for _, r := range ratings {
			sum += r
		}
		p.signals.Reviews.AverageRating = sum / float64(len(ratings))
	}
}

func (p *classifyPass) interactive(doc *goquery.Document) {
	doc.FindMatcher(controlMatcher).Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			if v, ok := s.Attr("value"); ok {
				text = v
			}
		}
		if text == "" {
			if label, ok := s.Attr("aria-label"); ok {
				text = label
			}
		}
		u := p.unit(models.CategoryInteractive, text, locatorHint(s))
		if u == nil {
			return
		}
		p.record(u)

		// A purchase control present only after script execution means the
		// page's core commerce path is broken for script-less agents.
		if !u.foundInRaw && CategorizeControl(u.text) == models.ControlPurchase {
			p.signals.PurchaseControlMissing = true
		}
	})
}

func (p *classifyPass) media(doc *goquery.Document) {
	doc.FindMatcher(mediaMatcher).Each(func(_ int, s *goquery.Selection) {
		text := ""
		if alt, ok := s.Attr("alt"); ok && strings.TrimSpace(alt) != "" {
			text = alt
		} else if src, ok := s.Attr("src"); ok {
			text = fileStem(src)
		}
		p.record(p.unit(models.CategoryMedia, text, locatorHint(s)))
	})
}

// currencySymbol returns the leading currency marker of a price token.
func currencySymbol(price string) string {
	for _, sym := range []string{"$", "€", "£", "¥", "₹"} {
		if strings.Contains(price, sym) {
			return sym
		}
	}
	upper := strings.ToUpper(price)
	for _, code := range []string{"USD", "EUR", "GBP", "JPY"} {
		if strings.Contains(upper, code) {
			return code
		}
	}
	return ""
}

// parseAmount extracts the numeric value from a price token.
func parseAmount(price string) (float64, bool) {
	m := amountRe.FindString(price)
	if m == "" {
		return 0, false
	}
	m = strings.ReplaceAll(m, ",", "")
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// parseRating extracts a 0-5 rating from text or schema.org attributes.
func parseRating(text string, s *goquery.Selection) (float64, bool) {
	if m := ratingRe.FindStringSubmatch(text); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil && f <= 5 {
			return f, true
		}
	}
	if content, ok := s.Attr("content"); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(content), 64); err == nil && f >= 0 && f <= 5 {
			return f, true
		}
	}
	// Bare "4.2" inside an explicitly rating-marked element.
	if f, err := strconv.ParseFloat(strings.TrimSpace(text), 64); err == nil && f >= 0 && f <= 5 {
		return f, true
	}
	return 0, false
}

// fileStem returns the lowercased filename of a URL path without extension,
// used as the presence token for media without alt text.
func fileStem(src string) string {
	src = strings.ToLower(src)
	if i := strings.IndexAny(src, "?#"); i >= 0 {
		src = src[:i]
	}
	if i := strings.LastIndexByte(src, '/'); i >= 0 {
		src = src[i+1:]
	}
	if i := strings.LastIndexByte(src, '.'); i > 0 {
		src = src[:i]
	}
	return src
}
