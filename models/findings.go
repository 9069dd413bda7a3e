package models

// Category names one class of business-relevant content units.
type Category string

const (
	CategoryNavigation  Category = "navigation"
	CategoryHeadings    Category = "headings"
	CategoryPricing     Category = "pricing"
	CategoryInventory   Category = "inventory"
	CategoryReviews     Category = "reviews"
	CategoryInteractive Category = "interactive"
	CategoryMedia       Category = "media"
)

// Categories lists every category in reporting order.
var Categories = []Category{
	CategoryNavigation,
	CategoryHeadings,
	CategoryPricing,
	CategoryInventory,
	CategoryReviews,
	CategoryInteractive,
	CategoryMedia,
}

// CategoryFinding is the per-category tally. Examples are capped for
// compact reporting; Total and Missing always count every candidate.
// Invariant: 0 <= Missing <= Total.
type CategoryFinding struct {
	Total    int      `json:"total"`
	Missing  int      `json:"missing"`
	Examples []string `json:"examples,omitempty"`
}

// CategoryFindings maps each category to its tally.
type CategoryFindings map[Category]*CategoryFinding

// EmptyFindings returns a zero-valued tally for every category. Blocked and
// protected runs report these rather than partial findings.
func EmptyFindings() CategoryFindings {
	f := make(CategoryFindings, len(Categories))
	for _, c := range Categories {
		f[c] = &CategoryFinding{}
	}
	return f
}

// Get returns the finding for a category, tolerating a nil map.
func (f CategoryFindings) Get(c Category) CategoryFinding {
	if f == nil {
		return CategoryFinding{}
	}
	if cf, ok := f[c]; ok && cf != nil {
		return *cf
	}
	return CategoryFinding{}
}

// LinkCategory is the fixed classification of a navigation link.
type LinkCategory string

const (
	LinkMain    LinkCategory = "main"
	LinkSupport LinkCategory = "support"
	LinkAccount LinkCategory = "account"
	LinkOther   LinkCategory = "other"
)

// ControlCategory is the fixed classification of an interactive control.
type ControlCategory string

const (
	ControlPurchase ControlCategory = "purchase"
	ControlSearch   ControlCategory = "search"
	ControlAuth     ControlCategory = "auth"
	ControlMenu     ControlCategory = "menu"
	ControlOther    ControlCategory = "other"
)

// PricingSignals carries classifier extras for the pricing category.
type PricingSignals struct {
	Currency string  `json:"currency,omitempty"`
	MinPrice float64 `json:"min_price,omitempty"`
	MaxPrice float64 `json:"max_price,omitempty"`
}

// ReviewSignals carries classifier extras for the reviews category.
type ReviewSignals struct {
	RatingCount   int     `json:"rating_count"`
	AverageRating float64 `json:"average_rating,omitempty"`
}

// NavigationSignals is the link-category breakdown of navigation units.
type NavigationSignals struct {
	ByCategory map[LinkCategory]int `json:"by_category,omitempty"`
}

// PageSignals aggregates the category-specific extras for one run.
type PageSignals struct {
	Pricing    PricingSignals    `json:"pricing"`
	Reviews    ReviewSignals     `json:"reviews"`
	Navigation NavigationSignals `json:"navigation"`

	// PurchaseControlMissing is set when an add-to-cart/checkout control
	// exists in the settled page but not in the raw snapshot.
	PurchaseControlMissing bool `json:"purchase_control_missing"`

	// Frameworks lists detected client-side frameworks, sorted.
	Frameworks []string `json:"frameworks,omitempty"`
}
