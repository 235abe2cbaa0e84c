// internal/market/classify_test.go
package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordforest/dingbot/pkg/models"
)

func listing(id, title string, justListed bool) models.Listing {
	return models.Listing{
		Image:      "https://scontent.example.com/" + id + ".jpg",
		Title:      title,
		URL:        "https://www.facebook.com/marketplace/item/" + id + "/",
		JustListed: justListed,
	}
}

func TestMerge_CommonItemIsAlwaysHot(t *testing.T) {
	recent := []models.Listing{listing("111", "Guitar Amp", false)}
	suggested := []models.Listing{listing("111", "Guitar Amp", false)}

	out := Merge(recent, suggested)

	require.Len(t, out, 1)
	assert.Equal(t, models.TierHot, out[0].Tier)
	assert.Equal(t, "Guitar Amp", out[0].Title)
	assert.Equal(t, "Guitar Amp", out[0].Name)
}

func TestMerge_CommonItemHotEvenWithoutPill(t *testing.T) {
	// Neither side carries the just-listed pill; presence in both scans is
	// enough to classify hot.
	recent := []models.Listing{
		listing("111", "Guitar Amp", false),
		listing("222", "Horror VHS Lot", false),
	}
	suggested := []models.Listing{
		listing("111", "Guitar Amp", false),
	}

	out := Merge(recent, suggested)

	require.Len(t, out, 2)
	assert.Equal(t, models.TierHot, out[0].Tier)
	assert.Equal(t, models.TierRecent, out[1].Tier)
}

func TestMerge_RecentOnlyTiers(t *testing.T) {
	recent := []models.Listing{
		listing("1", "Fender Amp", true),
		listing("2", "Marshall Amp", false),
	}

	out := Merge(recent, nil)

	require.Len(t, out, 2)
	assert.Equal(t, models.TierNew, out[0].Tier)
	assert.Equal(t, models.TierRecent, out[1].Tier)
}

func TestMerge_SuggestedOnlyTiers(t *testing.T) {
	suggested := []models.Listing{
		listing("1", "Fender Amp", true),
		listing("2", "Marshall Amp", false),
	}

	out := Merge(nil, suggested)

	require.Len(t, out, 2)
	assert.Equal(t, models.TierHot, out[0].Tier)
	assert.Equal(t, models.TierSuggested, out[1].Tier)
}

func TestMerge_PreservesFirstSeenOrder(t *testing.T) {
	recent := []models.Listing{
		listing("1", "First", false),
		listing("2", "Second", false),
	}
	suggested := []models.Listing{
		listing("3", "Third", false),
		listing("2", "Second", false),
	}

	out := Merge(recent, suggested)

	require.Len(t, out, 3)
	assert.Equal(t, "First", out[0].Title)
	assert.Equal(t, "Second", out[1].Title)
	assert.Equal(t, "Third", out[2].Title)
	// "2" appears in both scans so its entry (kept at its recent-pass
	// position) is hot.
	assert.Equal(t, models.TierHot, out[1].Tier)
}

func TestMerge_SuggestedDoesNotDemoteNew(t *testing.T) {
	// A recent just-listed entry stays new even when the suggested pass sees
	// the same page again without the pill... unless the id is common, which
	// forces hot. Use distinct ids to isolate the replacement policy.
	recent := []models.Listing{listing("9", "Rare Pedal", true)}

	out := Merge(recent, nil)
	require.Len(t, out, 1)
	require.Equal(t, models.TierNew, out[0].Tier)

	assert.False(t, shouldReplace(models.TierNew, models.TierSuggested))
	assert.False(t, shouldReplace(models.TierHot, models.TierSuggested))
	assert.True(t, shouldReplace(models.TierRecent, models.TierSuggested))
	assert.True(t, shouldReplace(models.TierRecent, models.TierHot))
	assert.True(t, shouldReplace(models.TierNew, models.TierHot))
}

func TestMerge_SkipsListingsWithoutDerivableID(t *testing.T) {
	recent := []models.Listing{
		{Title: "No link at all"},
		listing("5", "Valid Item", false),
	}

	out := Merge(recent, nil)

	require.Len(t, out, 1)
	assert.Equal(t, "Valid Item", out[0].Title)
}

func TestMerge_DuplicateWithinRecentFirstWins(t *testing.T) {
	first := listing("7", "Amp Head", false)
	second := listing("7", "Amp Head (dupe)", true)

	out := Merge([]models.Listing{first, second}, nil)

	require.Len(t, out, 1)
	assert.Equal(t, "Amp Head", out[0].Title)
	assert.Equal(t, models.TierRecent, out[0].Tier)
}

func TestMergeClassified_DeduplicatesAcrossQueries(t *testing.T) {
	a := models.Classify(listing("1", "Amp", false), models.TierHot)
	b := models.Classify(listing("1", "Amp", false), models.TierRecent)
	c := models.Classify(listing("2", "VHS", false), models.TierNew)

	out := MergeClassified([]models.ClassifiedListing{a, b, c})

	require.Len(t, out, 2)
	assert.Equal(t, models.TierHot, out[0].Tier)
	assert.Equal(t, "VHS", out[1].Title)
}

func TestMerge_OutputIsStableUnderRemerge(t *testing.T) {
	// Re-merging a merge result must be the identity: same ids, same
	// tiers, same order.
	recent := []models.Listing{
		listing("1", "Fender Guitar Amp", true),
		listing("2", "Marshall Guitar Amp", false),
		listing("3", "Tube Amp Head", false),
	}
	suggested := []models.Listing{
		listing("2", "Marshall Guitar Amp", false),
		listing("4", "Practice Amp", true),
		listing("5", "Bass Amp", false),
	}

	once := Merge(recent, suggested)
	twice := MergeClassified(once)

	assert.Equal(t, once, twice)
}

func TestHotItems_FiltersHotTierOnly(t *testing.T) {
	in := []models.ClassifiedListing{
		models.Classify(listing("1", "Amp", false), models.TierHot),
		models.Classify(listing("2", "VHS", true), models.TierNew),
		models.Classify(listing("3", "Pedal", false), models.TierSuggested),
	}

	hot := HotItems(in)

	require.Len(t, hot, 1)
	assert.Equal(t, "Amp", hot[0].Title)
}
