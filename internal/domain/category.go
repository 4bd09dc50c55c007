package domain

import (
	"fmt"
	"strings"
)

// Category is one of the fixed spending categories an expense can fall into.
type Category string

const (
	CategoryFoodDining     Category = "FOOD_DINING"
	CategoryTransportation Category = "TRANSPORTATION"
	CategoryShopping       Category = "SHOPPING"
	CategoryEntertainment  Category = "ENTERTAINMENT"
	CategoryBillsUtilities Category = "BILLS_UTILITIES"
	CategoryHealthcare     Category = "HEALTHCARE"
	CategoryEducation      Category = "EDUCATION"
	CategoryTravel         Category = "TRAVEL"
	CategoryGroceries      Category = "GROCERIES"
	CategoryInsurance      Category = "INSURANCE"
	CategoryInvestments    Category = "INVESTMENTS"
	CategoryGiftsDonations Category = "GIFTS_DONATIONS"
	CategoryPersonalCare   Category = "PERSONAL_CARE"
	CategoryHomeGarden     Category = "HOME_GARDEN"
	CategoryBusiness       Category = "BUSINESS"
	CategoryOther          Category = "OTHER"
)

// Categories lists every category in enumeration order.
// Corpus construction and keyword table output follow this order.
var Categories = []Category{
	CategoryFoodDining,
	CategoryTransportation,
	CategoryShopping,
	CategoryEntertainment,
	CategoryBillsUtilities,
	CategoryHealthcare,
	CategoryEducation,
	CategoryTravel,
	CategoryGroceries,
	CategoryInsurance,
	CategoryInvestments,
	CategoryGiftsDonations,
	CategoryPersonalCare,
	CategoryHomeGarden,
	CategoryBusiness,
	CategoryOther,
}

// IsValid reports whether c is one of the known categories.
func (c Category) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

func (c Category) String() string { return string(c) }

// ParseCategory maps a category name to a Category, ignoring case and
// surrounding whitespace.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", &ErrValidation{Field: "category", Message: fmt.Sprintf("unknown category %q", s)}
	}
	return c, nil
}

// KeywordTable maps each category to its ordered seed keywords.
// It is loaded once at startup and never mutated afterwards.
type KeywordTable map[Category][]string

// Keywords returns the seed keywords of c in table order.
func (t KeywordTable) Keywords(c Category) []string {
	return t[c]
}

// DefaultKeywordTable returns the built-in seed keywords.
// Some keywords ("gas") intentionally appear under more than one category.
func DefaultKeywordTable() KeywordTable {
	return KeywordTable{
		CategoryFoodDining:     {"restaurant", "food", "dining", "meal", "lunch", "dinner", "breakfast", "cafe", "pizza", "burger"},
		CategoryTransportation: {"gas", "fuel", "uber", "taxi", "bus", "train", "parking", "toll", "car", "vehicle"},
		CategoryShopping:       {"store", "shop", "amazon", "ebay", "mall", "retail", "clothing", "shoes", "electronics"},
		CategoryEntertainment:  {"movie", "cinema", "game", "concert", "music", "streaming", "netflix", "spotify"},
		CategoryBillsUtilities: {"electric", "water", "gas", "internet", "phone", "utilities", "bill", "payment"},
		CategoryHealthcare:     {"doctor", "hospital", "medicine", "pharmacy", "dental", "medical", "health", "clinic"},
		CategoryEducation:      {"school", "university", "course", "book", "tuition", "education", "learning", "class"},
		CategoryTravel:         {"hotel", "flight", "travel", "vacation", "trip", "booking", "airbnb", "airline"},
		CategoryGroceries:      {"grocery", "supermarket", "walmart", "target", "market", "produce", "vegetables"},
		CategoryInsurance:      {"insurance", "premium", "policy", "coverage", "deductible"},
		CategoryInvestments:    {"stock", "bond", "investment", "portfolio", "dividend", "mutual", "fund"},
		CategoryGiftsDonations: {"gift", "donation", "charity", "present", "birthday", "wedding"},
		CategoryPersonalCare:   {"salon", "barber", "spa", "beauty", "cosmetics", "hair", "nail"},
		CategoryHomeGarden:     {"home", "garden", "hardware", "furniture", "appliance", "decoration"},
		CategoryBusiness:       {"office", "business", "meeting", "conference", "supplies", "professional"},
		CategoryOther:          {"misc", "other", "various", "general"},
	}
}
