// Package marketplace implements the platform adapters: Poshmark and Depop
// are driven through the browser page, Mercari through its internal API with
// session tokens harvested at login. Selector names, endpoint paths and
// payload schemas here track external contracts that change without notice.
package marketplace

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/CarsonReik/Compr-sub000/internal/domain/listing"
	"github.com/CarsonReik/Compr-sub000/internal/domain/platform"
)

// PlatformPrice renders the listing price for a platform. Platforms that only
// accept whole currency units get the price rounded up, never down, so the
// seller's minimum price cannot be undercut by a rounding step.
func PlatformPrice(price decimal.Decimal, caps platform.Capabilities) string {
	if caps.WholeUnitPrices {
		return price.Ceil().StringFixed(0)
	}
	return price.StringFixed(2)
}

// categoryPath returns the category segments to select for a platform. An
// explicit per-platform override beats the listing's generic hint.
func categoryPath(item *listing.Normalized, overrideKey string) []string {
	if v, ok := item.Override(overrideKey); ok && strings.TrimSpace(v) != "" {
		return splitCategoryPath(v)
	}
	return item.CategoryPath
}

// splitCategoryPath splits "Women > Jackets & Coats > Denim" into segments
func splitCategoryPath(s string) []string {
	parts := strings.Split(s, ">")
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			segments = append(segments, trimmed)
		}
	}
	return segments
}

// joinCategoryPath is the inverse of splitCategoryPath, used when comparing
// against a path the page already displays
func joinCategoryPath(segments []string) string {
	return strings.Join(segments, " > ")
}
