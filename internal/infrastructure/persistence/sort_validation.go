package persistence

import (
	"strings"

	"github.com/artisanmarket/backend/internal/domain/catalog"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ResolveSortColumn maps an API sort key to a column through a whitelist.
// Returns defaultColumn if the key is empty or not whitelisted.
func ResolveSortColumn(sortKey string, columns map[string]string, defaultColumn string) string {
	trimmed := strings.TrimSpace(sortKey)
	if column, ok := columns[trimmed]; ok {
		return column
	}
	return defaultColumn
}

// ProductSortColumns maps the catalog sort keys to product columns
var ProductSortColumns = map[string]string{
	catalog.SortByCreatedAt: "created_at",
	catalog.SortByPrice:     "price",
	catalog.SortByName:      "name",
	catalog.SortByViews:     "views",
	catalog.SortByRating:    "rating_average",
}
