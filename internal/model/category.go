package model

import "strings"

// Category is one of a closed set of spending categories.
type Category string

// Category constants.
const (
	CategoryFood          Category = "Food"
	CategoryTransport     Category = "Transport"
	CategoryUtilities     Category = "Utilities"
	CategoryEntertainment Category = "Entertainment"
	CategoryHealth        Category = "Health"
	CategoryShopping      Category = "Shopping"
	CategoryOther         Category = "Other"
	// CategoryUncategorized is assigned at commit time when no category was resolved.
	CategoryUncategorized Category = "Uncategorized"
)

// ExtractableCategories is the enumeration offered to the model.
var ExtractableCategories = []Category{
	CategoryFood,
	CategoryTransport,
	CategoryUtilities,
	CategoryEntertainment,
	CategoryHealth,
	CategoryShopping,
	CategoryOther,
}

// AllCategories includes the commit-time fallback.
var AllCategories = append(append([]Category{}, ExtractableCategories...), CategoryUncategorized)

// Valid reports whether c belongs to the enumeration.
func (c Category) Valid() bool {
	for _, known := range AllCategories {
		if c == known {
			return true
		}
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

// ParseCategory resolves a category name case-insensitively.
func ParseCategory(name string) (Category, bool) {
	name = strings.TrimSpace(name)
	for _, known := range AllCategories {
		if strings.EqualFold(name, string(known)) {
			return known, true
		}
	}
	return "", false
}

// CategoryNames returns the names of the given categories.
func CategoryNames(categories []Category) []string {
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = string(c)
	}
	return names
}
