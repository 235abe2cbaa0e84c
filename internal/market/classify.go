// internal/market/classify.go
package market

import (
	"github.com/rs/zerolog/log"

	"github.com/wordforest/dingbot/pkg/models"
)

// Merge consolidates the recent and suggested result sets for one query into
// a single de-duplicated, tier-classified list. It is a pure function of its
// inputs.
//
// An item id present in both sets is always hot, regardless of the
// just-listed pill. Otherwise recent-only items are new (just listed) or
// recent, and suggested-only items are hot (just listed) or suggested.
//
// Output order is first-seen, recent pass before suggested pass. A suggested
// entry replaces an already-inserted one only when doing so raises the
// surfaced tier: always when the suggested tier is hot, and for a suggested
// tier only over a plain recent entry. This deliberately favors surfacing
// hot/new discoveries even when an item was first seen via the
// lower-priority scan.
func Merge(recent, suggested []models.Listing) []models.ClassifiedListing {
	recentIDs := identify(recent)
	suggestedIDs := identify(suggested)

	common := make(map[string]bool, len(recentIDs))
	inSuggested := make(map[string]bool, len(suggestedIDs))
	for _, id := range suggestedIDs {
		if id != "" {
			inSuggested[id] = true
		}
	}
	for _, id := range recentIDs {
		if id != "" && inSuggested[id] {
			common[id] = true
		}
	}

	merged := make(map[string]models.ClassifiedListing)
	var order []string

	for i, l := range recent {
		id := recentIDs[i]
		if id == "" {
			continue
		}
		if _, seen := merged[id]; seen {
			// Duplicate within the recent set itself; first one wins.
			continue
		}
		tier := models.TierRecent
		switch {
		case common[id]:
			tier = models.TierHot
		case l.JustListed:
			tier = models.TierNew
		}
		merged[id] = models.Classify(l, tier)
		order = append(order, id)
	}

	for i, l := range suggested {
		id := suggestedIDs[i]
		if id == "" {
			continue
		}
		tier := models.TierSuggested
		if common[id] || l.JustListed {
			tier = models.TierHot
		}
		existing, seen := merged[id]
		if !seen {
			merged[id] = models.Classify(l, tier)
			order = append(order, id)
			continue
		}
		if shouldReplace(existing.Tier, tier) {
			merged[id] = models.Classify(l, tier)
		}
	}

	out := make([]models.ClassifiedListing, 0, len(order))
	for _, id := range order {
		out = append(out, merged[id])
	}
	return out
}

// MergeClassified re-runs the merge over already classified listings,
// treating them as a recent set. Useful for callers that concatenate merge
// outputs across queries and need the id-keyed invariants to hold.
func MergeClassified(listings []models.ClassifiedListing) []models.ClassifiedListing {
	seen := make(map[string]bool, len(listings))
	out := make([]models.ClassifiedListing, 0, len(listings))
	for _, cl := range listings {
		id, ok := ItemID(cl.URL)
		if !ok {
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, cl)
	}
	return out
}

// shouldReplace decides whether a suggested-pass entry overrides an existing
// merged entry. Hot always wins; suggested only displaces a plain recent
// entry. A recent-pass new entry is never demoted.
func shouldReplace(existing, candidate models.Tier) bool {
	if candidate == models.TierHot {
		return true
	}
	if existing == models.TierHot || existing == models.TierNew {
		return false
	}
	return candidate == models.TierHot || candidate == models.TierSuggested
}

// identify computes item ids positionally; entries whose identity cannot be
// derived get an empty id and are skipped by the merge.
func identify(listings []models.Listing) []string {
	ids := make([]string, len(listings))
	for i, l := range listings {
		id, ok := ItemID(l.URL)
		if !ok {
			log.Warn().Str("title", l.Title).Str("url", l.URL).
				Msg("Listing has no derivable item id, excluded from merge")
			continue
		}
		ids[i] = id
	}
	return ids
}

// HotItems filters a merged result down to the hot tier.
func HotItems(listings []models.ClassifiedListing) []models.ClassifiedListing {
	var hot []models.ClassifiedListing
	for _, cl := range listings {
		if cl.Tier == models.TierHot {
			hot = append(hot, cl)
		}
	}
	return hot
}
