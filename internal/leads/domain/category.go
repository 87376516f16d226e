package domain

// Lead categories are the two disjoint intake channels. A lead's category is
// fixed at creation and never changes.
const (
	CategoryMarketed      = "marketed"
	CategoryTechGenerated = "tech_generated"
)

var knownCategories = map[string]struct{}{
	CategoryMarketed:      {},
	CategoryTechGenerated: {},
}

// IsKnownCategory reports whether the category is one of the intake channels.
func IsKnownCategory(category string) bool {
	_, ok := knownCategories[category]
	return ok
}

// CategoryLabel returns the human-readable name used in notifications.
func CategoryLabel(category string) string {
	switch category {
	case CategoryMarketed:
		return "Marketed Lead"
	case CategoryTechGenerated:
		return "Tech Generated Lead"
	default:
		return category
	}
}
