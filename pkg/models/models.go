package models

// ScanMode selects which marketplace search variant a scrape targets.
type ScanMode string

const (
	// ModeRecent sorts results newest-first and restricts to the last day.
	ModeRecent ScanMode = "recent"
	// ModeSuggested uses the site's relevance-ranked results.
	ModeSuggested ScanMode = "suggested"
)

// Tier is the priority classification assigned to a merged listing.
// Ordering (high to low): hot > new == suggested > recent.
type Tier string

const (
	TierHot       Tier = "hot"
	TierNew       Tier = "new"
	TierSuggested Tier = "suggested"
	TierRecent    Tier = "recent"
)

// ScrapeRequest describes a single marketplace scrape. It is immutable once
// submitted; the coordinator attaches a correlation id on submission.
type ScrapeRequest struct {
	// City is the marketplace location slug (already mapped through the
	// allow-list, e.g. "hamilton").
	City string
	// Query is the raw search term, e.g. "Guitar Amp".
	Query string
	// MaxPrice is the price ceiling in the site's smallest currency unit.
	MaxPrice int
	// MaxResults caps how many listings are returned, preserving page order.
	MaxResults int
	// Mode selects the recent or suggested scan variant.
	Mode ScanMode
}

// ScrapeResult is the outcome of one ScrapeRequest. Either Listings is
// populated or Err describes why the scrape produced nothing.
type ScrapeResult struct {
	Listings []Listing
	Err      error
}

// Listing is one marketplace item parsed from a rendered search page.
type Listing struct {
	// Image is the absolute URL of the listing's primary photo.
	Image string `json:"image"`
	// Title is the listing's display title.
	Title string `json:"title"`
	// URL is the canonical absolute item-detail URL.
	URL string `json:"link"`
	// JustListed is true when the listing carries the site's
	// freshly-listed pill.
	JustListed bool `json:"has_just_listed_pill"`
}

// ClassifiedListing is a Listing plus its merge-assigned priority tier.
//
// The JSON shape matches what the dashboard polls: name duplicates title for
// backward compatibility with the original API consumers.
type ClassifiedListing struct {
	Name       string `json:"name"`
	Title      string `json:"title"`
	Image      string `json:"image"`
	URL        string `json:"link"`
	Tier       Tier   `json:"item_type"`
	JustListed bool   `json:"has_just_listed_pill"`
}

// Classify wraps a Listing with a tier.
func Classify(l Listing, tier Tier) ClassifiedListing {
	return ClassifiedListing{
		Name:       l.Title,
		Title:      l.Title,
		Image:      l.Image,
		URL:        l.URL,
		Tier:       tier,
		JustListed: l.JustListed,
	}
}
