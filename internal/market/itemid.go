// internal/market/itemid.go
package market

import (
	"regexp"

	"github.com/PuerkitoBio/purell"
)

// itemPathPattern matches the numeric id segment of an item-detail URL,
// e.g. /marketplace/item/1234567890/ or a fully qualified variant.
var itemPathPattern = regexp.MustCompile(`/marketplace/item/(\d+)`)

// ItemID derives the stable deduplication identity for a listing URL.
//
// The numeric item id is preferred because it survives tracking-parameter
// churn between the recent and suggested scans. When no id is recoverable
// the normalized full URL is used so the listing still participates in
// dedup, just less reliably.
func ItemID(rawURL string) (string, bool) {
	if rawURL == "" {
		return "", false
	}
	if m := itemPathPattern.FindStringSubmatch(rawURL); m != nil {
		return m[1], true
	}
	if normalized, err := normalizeURL(rawURL); err == nil && normalized != "" {
		return normalized, true
	}
	return "", false
}

// IsItemURL reports whether a href points at an item-detail page.
func IsItemURL(href string) bool {
	return itemPathPattern.MatchString(href)
}

func normalizeURL(rawURL string) (string, error) {
	flags := purell.FlagLowercaseScheme |
		purell.FlagLowercaseHost |
		purell.FlagRemoveDefaultPort |
		purell.FlagRemoveFragment |
		purell.FlagSortQuery |
		purell.FlagRemoveDuplicateSlashes |
		purell.FlagRemoveDotSegments

	return purell.NormalizeURLString(rawURL, flags)
}
