// internal/market/search.go
package market

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/wordforest/dingbot/pkg/models"
)

// BaseURL is the marketplace origin all relative listing links resolve
// against.
const BaseURL = "https://www.facebook.com"

// LoginURL is where the session manager lands to establish or refresh a
// login before any search navigation.
const LoginURL = BaseURL + "/marketplace"

// Cities maps user-facing city names to marketplace location slugs.
// Lookup is case-sensitive on purpose: the dashboard presents these exact
// names and anything else goes through the UnsupportedCity path.
var Cities = map[string]string{
	"Hamilton": "hamilton",
	"Barrie":   "barrie",
	"Toronto":  "toronto",
}

// CitySlug resolves a user-facing city name to its location slug.
func CitySlug(city string) (string, bool) {
	slug, ok := Cities[city]
	return slug, ok
}

// CapitalizeCity renders a rejected city name the way the API error message
// expects: first letter upper, rest lower.
func CapitalizeCity(city string) string {
	if city == "" {
		return ""
	}
	first, size := utf8.DecodeRuneInString(city)
	return string(unicode.ToUpper(first)) + strings.ToLower(city[size:])
}

// SearchURL builds the marketplace search URL for one scrape request.
//
// The recent scan restricts to listings from the last day sorted
// newest-first; the suggested scan widens to three days and lets the site's
// relevance ranking order the results.
func SearchURL(req models.ScrapeRequest) string {
	q := url.Values{}
	q.Set("query", req.Query)
	q.Set("maxPrice", fmt.Sprintf("%d", req.MaxPrice))
	if req.Mode == models.ModeSuggested {
		q.Set("daysSinceListed", "3")
	} else {
		q.Set("daysSinceListed", "1")
		q.Set("sortBy", "creation_time_descend")
	}
	return fmt.Sprintf("%s/marketplace/%s/search?%s", BaseURL, req.City, q.Encode())
}

// IsLoginAddress reports whether a navigated-to address indicates the site
// bounced us to its login flow instead of the requested page.
func IsLoginAddress(addr string) bool {
	u, err := url.Parse(addr)
	if err != nil {
		return false
	}
	path := strings.ToLower(u.Path)
	return strings.Contains(path, "login") || strings.Contains(strings.ToLower(u.RawQuery), "next=")
}

// AbsoluteURL normalizes a root-relative listing href to absolute form.
func AbsoluteURL(href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if strings.HasPrefix(href, "/") {
		return BaseURL + href
	}
	return BaseURL + "/" + href
}
