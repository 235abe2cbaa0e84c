// internal/extract/extract.go
package extract

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/wordforest/dingbot/internal/market"
	"github.com/wordforest/dingbot/pkg/models"
)

const (
	// minTitleLen and maxTitleLen bound what counts as a plausible listing
	// title when scanning text nodes.
	minTitleLen = 5
	maxTitleLen = 200
)

// priceText matches "$450", "CA$1,200", "1.234,56 €" and similar.
var priceText = regexp.MustCompile(`^(CA\$|C\$|\$|€|£)?\s?[\d.,]+\s?(€|£)?$`)

// locationText matches "Hamilton, ON" style city-province fragments.
var locationText = regexp.MustCompile(`^[A-Za-z .'-]+,\s?[A-Z]{2}$`)

// Pipeline parses rendered search-page HTML into listings. It has no
// knowledge of navigation or sessions; callers hand it a finished document.
type Pipeline struct {
	strategies        []SelectorStrategy
	justListedPhrases map[string]bool
}

// New builds a Pipeline with the default strategy chain.
func New() *Pipeline {
	return NewWithStrategies(DefaultStrategies(), DefaultJustListedPhrases())
}

// NewWithStrategies builds a Pipeline with a caller-supplied strategy chain
// and just-listed phrase set, typically sourced from configuration.
func NewWithStrategies(strategies []SelectorStrategy, phrases []string) *Pipeline {
	set := make(map[string]bool, len(phrases))
	for _, p := range phrases {
		set[strings.ToLower(strings.TrimSpace(p))] = true
	}
	return &Pipeline{
		strategies:        strategies,
		justListedPhrases: set,
	}
}

// Extract parses listings out of a rendered page for one query.
//
// Listings missing an image, title, or URL are dropped, as are titles that
// match none of the whitespace-split query terms. The per-term match is
// intentionally permissive: the site's own search is loose about relevance,
// so requiring every term would discard real results. Output preserves
// document order, truncated to limit (0 means no cap).
func (p *Pipeline) Extract(html, query string, limit int) ([]models.Listing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page HTML: %w", err)
	}

	cards := p.discover(doc)
	terms := queryTerms(query)

	var listings []models.Listing
	cards.EachWithBreak(func(i int, card *goquery.Selection) bool {
		listing, ok := p.parseCard(card)
		if !ok {
			return true
		}
		if !titleMatches(listing.Title, terms) {
			log.Debug().Str("title", listing.Title).Str("query", query).
				Msg("Listing title matches no query term, dropped")
			return true
		}
		listings = append(listings, listing)
		return limit <= 0 || len(listings) < limit
	})

	log.Debug().Int("listings", len(listings)).Str("query", query).
		Msg("Extraction completed")
	return listings, nil
}

// discover locates listing cards, structural heuristic first, then the
// configured selector strategies in order.
func (p *Pipeline) discover(doc *goquery.Document) *goquery.Selection {
	// Structural heuristic: an item-detail anchor that carries its own
	// image is a self-contained listing card regardless of class churn.
	structural := doc.Find(`a[href]`).FilterFunction(func(i int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		return market.IsItemURL(href) && s.Find("img").Length() > 0
	})
	if structural.Length() > 0 {
		return structural
	}

	for _, strat := range p.strategies {
		matched := doc.Find(strat.Container)
		if matched.Length() > 0 {
			log.Debug().Str("strategy", strat.Name).Int("matches", matched.Length()).
				Msg("Selector strategy matched")
			return matched
		}
	}

	log.Warn().Msg("No listing cards found on page")
	return doc.Find("__none__")
}

// parseCard runs the per-field strategy chains over one card. Each chain
// stops at its first success; a card missing any required field is rejected.
func (p *Pipeline) parseCard(card *goquery.Selection) (models.Listing, bool) {
	image, ok := extractImage(card)
	if !ok {
		return models.Listing{}, false
	}
	title, ok := p.extractTitle(card)
	if !ok {
		return models.Listing{}, false
	}
	itemURL, ok := extractItemURL(card)
	if !ok {
		return models.Listing{}, false
	}
	return models.Listing{
		Image:      image,
		Title:      title,
		URL:        itemURL,
		JustListed: p.extractJustListed(card),
	}, true
}

// extractImage prefers a source on the site's media domain, then any secure
// absolute URL.
func extractImage(card *goquery.Selection) (string, bool) {
	var mediaDomain, secure string
	card.Find("img").EachWithBreak(func(i int, img *goquery.Selection) bool {
		src, exists := img.Attr("src")
		if !exists || src == "" || strings.HasPrefix(src, "data:") {
			return true
		}
		if strings.Contains(src, "scontent") {
			mediaDomain = src
			return false
		}
		if secure == "" && strings.HasPrefix(src, "https://") {
			secure = src
		}
		return true
	})
	if mediaDomain != "" {
		return mediaDomain, true
	}
	if secure != "" {
		return secure, true
	}
	return "", false
}

// extractTitle scans short-to-medium text nodes in order of decreasing
// specificity: label-like spans, then link text, then shallow container
// text. Price, location, and UI boilerplate texts are skipped.
func (p *Pipeline) extractTitle(card *goquery.Selection) (string, bool) {
	var title string
	scan := func(s *goquery.Selection) bool {
		text := normalizeText(s.Text())
		// Configured pill phrases are never titles, wherever they sit.
		if !plausibleTitle(text) || p.justListedPhrases[strings.ToLower(text)] {
			return true
		}
		title = text
		return false
	}

	card.Find("span").EachWithBreak(func(i int, s *goquery.Selection) bool {
		// Only leaf spans: composite spans concatenate price, title, and
		// location into one unusable blob.
		if s.Children().Length() > 0 {
			return true
		}
		return scan(s)
	})
	if title != "" {
		return title, true
	}

	card.Find("a").EachWithBreak(func(i int, s *goquery.Selection) bool {
		return scan(s)
	})
	if title != "" {
		return title, true
	}

	card.Children().EachWithBreak(func(i int, s *goquery.Selection) bool {
		return scan(s)
	})
	if title != "" {
		return title, true
	}
	return "", false
}

// extractItemURL prefers anchors matching the item-detail path, normalizing
// root-relative hrefs to absolute form. The card itself may be the anchor.
func extractItemURL(card *goquery.Selection) (string, bool) {
	if href, exists := card.Attr("href"); exists && market.IsItemURL(href) {
		return market.AbsoluteURL(href), true
	}
	var found string
	card.Find("a[href]").EachWithBreak(func(i int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if market.IsItemURL(href) {
			found = market.AbsoluteURL(href)
			return false
		}
		return true
	})
	if found != "" {
		return found, true
	}
	return "", false
}

// extractJustListed reports whether any descendant's normalized text exactly
// matches one of the just-listed pill phrases.
func (p *Pipeline) extractJustListed(card *goquery.Selection) bool {
	found := false
	card.Find("*").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if s.Children().Length() > 0 {
			return true
		}
		if p.justListedPhrases[strings.ToLower(normalizeText(s.Text()))] {
			found = true
			return false
		}
		return true
	})
	return found
}

// plausibleTitle applies the length bounds and skips text that is obviously
// a price, a location, or UI chrome.
func plausibleTitle(text string) bool {
	if n := utf8.RuneCountInString(text); n < minTitleLen || n > maxTitleLen {
		return false
	}
	if priceText.MatchString(text) {
		return false
	}
	if locationText.MatchString(text) {
		return false
	}
	if uiBoilerplate[strings.ToLower(text)] {
		return false
	}
	return true
}

// titleMatches reports whether the title contains at least one query term,
// case-insensitively. An empty term list matches everything.
func titleMatches(title string, terms []string) bool {
	if len(terms) == 0 {
		return true
	}
	lower := strings.ToLower(title)
	for _, term := range terms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

func queryTerms(query string) []string {
	var terms []string
	for _, t := range strings.Fields(query) {
		terms = append(terms, strings.ToLower(t))
	}
	return terms
}

func normalizeText(s string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(s), " "))
}
