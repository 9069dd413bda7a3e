package classify

import (
	"strings"

	"github.com/use-agent/agentlens/models"
)

// Keyword tables for the pure categorizers. Matching is first-table-wins,
// case-insensitive substring containment over the link/control text.
var (
	supportLinkWords = []string{
		"help", "support", "contact", "faq", "shipping", "returns",
		"track", "warranty", "privacy", "terms",
	}
	accountLinkWords = []string{
		"account", "login", "log in", "sign in", "sign up", "register",
		"profile", "orders", "wishlist",
	}
	mainLinkWords = []string{
		"home", "shop", "store", "products", "catalog", "categories",
		"collections", "new arrivals", "sale", "deals", "brands",
		"men", "women", "kids",
	}

	purchaseControlWords = []string{
		"add to cart", "add to bag", "add to basket", "buy now", "buy",
		"checkout", "purchase", "order now", "place order",
	}
	searchControlWords = []string{"search", "find"}
	authControlWords   = []string{
		"sign in", "log in", "login", "sign up", "register", "my account",
	}
	menuControlWords = []string{"menu", "navigation"}
)

// CategorizeLink maps navigation link text onto the fixed LinkCategory set.
// Pure and total: every input yields exactly one category.
func CategorizeLink(text string) models.LinkCategory {
	t := strings.ToLower(strings.TrimSpace(text))
	switch {
	case containsAny(t, supportLinkWords):
		return models.LinkSupport
	case containsAny(t, accountLinkWords):
		return models.LinkAccount
	case containsAny(t, mainLinkWords):
		return models.LinkMain
	default:
		return models.LinkOther
	}
}

// CategorizeControl maps interactive control text onto the fixed
// ControlCategory set. Pure and total.
func CategorizeControl(text string) models.ControlCategory {
	t := strings.ToLower(strings.TrimSpace(text))
	switch {
	case containsAny(t, purchaseControlWords):
		return models.ControlPurchase
	case containsAny(t, authControlWords):
		return models.ControlAuth
	case containsAny(t, searchControlWords):
		return models.ControlSearch
	case containsAny(t, menuControlWords):
		return models.ControlMenu
	default:
		return models.ControlOther
	}
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
