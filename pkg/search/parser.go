package search

import (
	"strings"
)

// Filters holds the extracted filters and the remaining free text.
type Filters struct {
	Category string
	Text     string
}

// ParseQuery extracts slash filters from a raw search line.
// Supported:
// /cat:<term> OR /in:<term> -> Filter by category
// <text> -> Remaining text is searched in titles and content
// Category terms keep their case; underscores stand for spaces.
func ParseQuery(raw string) Filters {
	filters := Filters{}
	var cleanParts []string

	for _, part := range strings.Fields(raw) {
		lowerPart := strings.ToLower(part)

		switch {
		case strings.HasPrefix(lowerPart, "/cat:"):
			filters.Category = strings.ReplaceAll(part[len("/cat:"):], "_", " ")
		case strings.HasPrefix(lowerPart, "/in:"):
			// Alias for /cat:
			filters.Category = strings.ReplaceAll(part[len("/in:"):], "_", " ")
		default:
			cleanParts = append(cleanParts, part)
		}
	}

	filters.Text = strings.Join(cleanParts, " ")
	return filters
}
