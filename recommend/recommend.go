// Package recommend maps scorer output and category findings onto
// severity-ordered, human-readable recommendations.
package recommend

import (
	"fmt"
	"sort"
	"strings"

	"github.com/use-agent/agentlens/models"
)

// categorySeverity fixes each category's severity tier. Pricing and broken
// purchase paths are business-blocking; media is cosmetic.
var categorySeverity = map[models.Category]models.Severity{
	models.CategoryPricing:     models.SeverityCritical,
	models.CategoryNavigation:  models.SeverityHigh,
	models.CategoryHeadings:    models.SeverityHigh,
	models.CategoryReviews:     models.SeverityHigh,
	models.CategoryInteractive: models.SeverityMedium,
	models.CategoryInventory:   models.SeverityMedium,
	models.CategoryMedia:       models.SeverityLow,
}

// categoryAdvice is the remediation hint appended per category.
var categoryAdvice = map[models.Category]string{
	models.CategoryPricing:     "render prices server-side or agents cannot see what anything costs",
	models.CategoryNavigation:  "emit navigation links in the initial HTML so agents can discover pages",
	models.CategoryHeadings:    "include headings in the initial HTML to preserve document structure",
	models.CategoryReviews:     "server-render review content so ratings are visible without scripts",
	models.CategoryInteractive: "provide non-script fallbacks for interactive controls",
	models.CategoryInventory:   "include availability state in the initial HTML",
	models.CategoryMedia:       "use standard img tags with src/alt instead of script-injected media",
}

// Build synthesizes the ordered recommendation list. Pure mapping: the same
// score and findings always produce the same messages in the same order.
// Categories with missing == 0 never produce a message.
func Build(score models.AccessibilityScore, findings models.CategoryFindings, signals models.PageSignals) []models.Recommendation {
	var recs []models.Recommendation

	if score.Error != nil {
		recs = append(recs, models.Recommendation{
			Severity: models.SeverityCritical,
			Message:  "analysis failed on every engine; no accessibility assessment is possible for this page",
		})
		return recs
	}

	recs = append(recs, headline(score.Value))

	if signals.PurchaseControlMissing {
		recs = append(recs, models.Recommendation{
			Severity: models.SeverityCritical,
			Message:  "purchase controls (add to cart / checkout) only exist after script execution; script-less agents cannot buy anything",
		})
	}

	for _, cat := range models.Categories {
		f := findings.Get(cat)
		if f.Missing == 0 {
			continue
		}
		recs = append(recs, categoryMessage(cat, f))
	}

	if len(signals.Frameworks) > 0 {
		recs = append(recs, models.Recommendation{
			Severity: models.SeverityInfo,
			Message: fmt.Sprintf("detected client-side framework(s): %s; consider server-side rendering or prerendering",
				strings.Join(signals.Frameworks, ", ")),
		})
	}

	// Stable: ties keep the append order above (headline first within its
	// tier, categories in reporting order).
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Severity > recs[j].Severity
	})
	return recs
}

// headline maps score bands to the top-line message.
func headline(value float64) models.Recommendation {
	switch {
	case value >= 90:
		return models.Recommendation{
			Severity: models.SeverityInfo,
			Message:  "page is highly accessible to script-less agents; content is available without script execution",
		}
	case value >= 70:
		return models.Recommendation{
			Severity: models.SeverityLow,
			Message:  "page is mostly accessible; some content requires script execution",
		}
	case value >= 50:
		return models.Recommendation{
			Severity: models.SeverityMedium,
			Message:  "page has significant script-dependent content; agents see an incomplete page",
		}
	case value >= 30:
		return models.Recommendation{
			Severity: models.SeverityHigh,
			Message:  "most content requires script execution; the page is largely invisible to agents",
		}
	default:
		return models.Recommendation{
			Severity: models.SeverityCritical,
			Message:  "page is effectively inaccessible without script execution",
		}
	}
}

// categoryMessage names the category, its missing count, and one concrete
// example when available.
func categoryMessage(cat models.Category, f models.CategoryFinding) models.Recommendation {
	msg := fmt.Sprintf("%d of %d %s unit(s) missing from the pre-execution document", f.Missing, f.Total, cat)
	if len(f.Examples) > 0 {
		msg += fmt.Sprintf(" (e.g. %q)", f.Examples[0])
	}
	if advice, ok := categoryAdvice[cat]; ok {
		msg += "; " + advice
	}
	return models.Recommendation{Severity: categorySeverity[cat], Message: msg}
}
