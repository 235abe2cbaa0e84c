// internal/app/app_test.go
package app

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/wordforest/dingbot/internal/coordinator"
	"github.com/wordforest/dingbot/internal/market"
	"github.com/wordforest/dingbot/pkg/models"
)

// fixedManager satisfies coordinator.SessionManager without a browser.
type fixedManager struct{}

func (fixedManager) EnsureReady(ctx context.Context, headless bool) error { return nil }
func (fixedManager) NavigateAndAuthenticate(ctx context.Context, loginURL, targetURL string) (string, error) {
	return "<html></html>", nil
}
func (fixedManager) Restart(ctx context.Context) error { return nil }
func (fixedManager) Close() error                      { return nil }

// fixedExtractor returns the same listing for every scan.
type fixedExtractor struct{}

func (fixedExtractor) Extract(html, query string, limit int) ([]models.Listing, error) {
	return []models.Listing{{
		Image: "https://scontent.example.net/1.jpg",
		Title: "Guitar Amp",
		URL:   "https://www.facebook.com/marketplace/item/1/",
	}}, nil
}

func TestCrawl_UnsupportedCityRejectedBeforeScraping(t *testing.T) {
	// No coordinator wired: the city check must reject first.
	a := &Application{}

	_, err := a.Crawl("nowhereville", "Guitar Amp", 500, 8)
	if err == nil {
		t.Fatal("Expected an unsupported-city error")
	}

	var unsupported *market.UnsupportedCityError
	if !errors.As(err, &unsupported) {
		t.Fatalf("Expected *market.UnsupportedCityError, got %T", err)
	}
	if unsupported.City != "Nowhereville" {
		t.Errorf("Expected capitalized city name, got %q", unsupported.City)
	}
}

func TestCrawl_DeduplicatesAcrossQueryTerms(t *testing.T) {
	coord := coordinator.New(fixedManager{}, fixedExtractor{}, coordinator.Options{})
	defer coord.Shutdown()
	a := &Application{Coordinator: coord}

	// Both terms surface the same item id; the concatenated result must
	// carry it once.
	results, err := a.Crawl("Hamilton", "Guitar Amp,Amp", 500, 8)
	if err != nil {
		t.Fatalf("Crawl failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 deduplicated listing, got %d", len(results))
	}
	if results[0].Tier != models.TierHot {
		t.Errorf("Item in both scans should be hot, got %s", results[0].Tier)
	}
}

func TestSplitQueries(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Horror VHS,Guitar", []string{"Horror VHS", "Guitar"}},
		{" Horror VHS , Guitar ", []string{"Horror VHS", "Guitar"}},
		{"Guitar", []string{"Guitar"}},
		{"", nil},
		{" , ,", nil},
	}
	for _, tt := range tests {
		if got := splitQueries(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitQueries(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_RequiresConfig(t *testing.T) {
	if _, err := New(context.Background(), nil); err == nil {
		t.Error("Expected an error for nil config")
	}
}
