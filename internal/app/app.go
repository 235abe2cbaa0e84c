// Package app provides the core application initialization and lifecycle
// management. It wires the coordinator, browser manager, extraction
// pipeline, notification store, and mailer together and exposes the crawl
// and alert-cycle operations the CLI commands run.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wordforest/dingbot/internal/browser"
	"github.com/wordforest/dingbot/internal/config"
	"github.com/wordforest/dingbot/internal/coordinator"
	"github.com/wordforest/dingbot/internal/extract"
	"github.com/wordforest/dingbot/internal/market"
	"github.com/wordforest/dingbot/internal/notify"
	"github.com/wordforest/dingbot/internal/store"
	"github.com/wordforest/dingbot/pkg/models"
)

// Application holds all application dependencies and manages their
// lifecycle. It is created once at startup and shared across CLI commands;
// Close() releases the browser and stops the coordinator.
type Application struct {
	Config      *config.Config
	Logger      *zerolog.Logger
	Manager     *browser.Manager
	Coordinator *coordinator.Coordinator
	Store       *store.Store
	Mailer      *notify.Mailer
	startTime   time.Time
}

// New creates and initializes a new Application with all dependencies.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	logLevel := zerolog.InfoLevel
	switch cfg.LogLevel {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	var logWriter io.Writer
	if cfg.JSONLog {
		logWriter = os.Stderr
	} else {
		logWriter = zerolog.NewConsoleWriter()
	}
	logger := log.Output(logWriter).With().Timestamp().Logger()
	log.Logger = logger

	manager := browser.NewManager(browser.Options{
		ProfileDir:     cfg.ProfileDir,
		UserAgent:      cfg.UserAgent,
		SettleDelay:    cfg.SettleDelay,
		LoginWait:      cfg.LoginWait,
		IsLoginAddress: market.IsLoginAddress,
	})

	pipeline := extract.New()
	if cfg.StrategiesPath != "" {
		p, err := extract.NewFromConfigFile(cfg.StrategiesPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load strategy config: %w", err)
		}
		log.Info().Str("path", cfg.StrategiesPath).Msg("Custom extraction strategies loaded")
		pipeline = p
	}

	coord := coordinator.New(manager, pipeline, coordinator.Options{
		ReplyWait:            cfg.ReplyWait,
		JobTimeout:           cfg.JobTimeout,
		NavigationsPerMinute: cfg.NavigationsPerMinute,
	})

	mailer := notify.NewMailer(notify.Options{
		SMTPHost:   cfg.SMTPHost,
		SMTPPort:   cfg.SMTPPort,
		Sender:     cfg.Sender,
		Password:   cfg.Password,
		Recipients: cfg.Recipients,
	})

	app := &Application{
		Config:      cfg,
		Logger:      &logger,
		Manager:     manager,
		Coordinator: coord,
		Store:       store.New(cfg.NotifiedStorePath),
		Mailer:      mailer,
		startTime:   time.Now(),
	}

	logger.Info().Str("city", cfg.City).Str("queries", cfg.Queries).
		Msg("Application initialized")
	return app, nil
}

// Crawl runs the full scrape for one city and a comma-separated query list:
// each term is scraped twice (recent then suggested), the two result sets
// are merged and classified, and per-term results are concatenated in input
// order.
//
// A term that fails internally contributes nothing, consistent with "no
// results found"; only an unsupported city is a hard error, raised before
// any scrape is attempted.
func (a *Application) Crawl(city, queryList string, maxPrice, maxResults int) ([]models.ClassifiedListing, error) {
	slug, ok := market.CitySlug(city)
	if !ok {
		return nil, market.NewUnsupportedCityError(city)
	}

	var all []models.ClassifiedListing
	for _, term := range splitQueries(queryList) {
		merged := a.crawlTerm(slug, term, maxPrice, maxResults)
		all = append(all, merged...)
	}
	// An item can match more than one term; keep the first (highest-tier
	// wins within a term, earlier terms win across terms).
	return market.MergeClassified(all), nil
}

// crawlTerm performs the recent+suggested pair for one search term.
func (a *Application) crawlTerm(citySlug, term string, maxPrice, maxResults int) []models.ClassifiedListing {
	recent := a.Coordinator.Submit(models.ScrapeRequest{
		City: citySlug, Query: term, MaxPrice: maxPrice,
		MaxResults: maxResults, Mode: models.ModeRecent,
	})
	if recent.Err != nil {
		log.Warn().Err(recent.Err).Str("query", term).Msg("Recent scan failed")
	}

	suggested := a.Coordinator.Submit(models.ScrapeRequest{
		City: citySlug, Query: term, MaxPrice: maxPrice,
		MaxResults: maxResults, Mode: models.ModeSuggested,
	})
	if suggested.Err != nil {
		log.Warn().Err(suggested.Err).Str("query", term).Msg("Suggested scan failed")
	}

	return market.Merge(recent.Listings, suggested.Listings)
}

// RunAlertCycle crawls every configured query and emails hot items not yet
// alerted on, recording the ids after a successful dispatch.
func (a *Application) RunAlertCycle() {
	for _, term := range splitQueries(a.Config.Queries) {
		merged, err := a.Crawl(a.Config.City, term, a.Config.MaxPrice, a.Config.MaxResults)
		if err != nil {
			log.Error().Err(err).Str("query", term).Msg("Alert cycle crawl failed")
			continue
		}
		a.alertNewHot(market.HotItems(merged), term)
	}
}

// alertNewHot filters hot items against the notified store, dispatches the
// alert, and records the ids that were actually sent.
func (a *Application) alertNewHot(hot []models.ClassifiedListing, term string) {
	if len(hot) == 0 {
		return
	}

	seen, err := a.Store.AlreadyNotified()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load notified store, skipping alerts this cycle")
		return
	}

	var fresh []models.ClassifiedListing
	var freshIDs []string
	for _, item := range hot {
		id, ok := market.ItemID(item.URL)
		if !ok || seen[id] {
			continue
		}
		fresh = append(fresh, item)
		freshIDs = append(freshIDs, id)
	}
	if len(fresh) == 0 {
		return
	}

	if a.Mailer.NotifyHotItems(fresh, term, a.Config.City) {
		if err := a.Store.Record(freshIDs); err != nil {
			log.Error().Err(err).Msg("Failed to record notified items")
		}
	}
}

// Close gracefully shuts down the application: the coordinator drains its
// queue and releases the browser. Safe to call more than once.
func (a *Application) Close(ctx context.Context) error {
	log.Info().Msg("Shutting down application")
	a.Coordinator.Shutdown()
	log.Info().Dur("uptime", time.Since(a.startTime)).Msg("Application shutdown complete")
	return nil
}

// Uptime returns how long the application has been running.
func (a *Application) Uptime() time.Duration {
	return time.Since(a.startTime)
}

func splitQueries(queryList string) []string {
	var terms []string
	for _, t := range strings.Split(queryList, ",") {
		if t = strings.TrimSpace(t); t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}
