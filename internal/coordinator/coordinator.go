// internal/coordinator/coordinator.go

// Package coordinator serializes all browser access through a single
// executor goroutine. Any number of callers may submit scrape requests
// concurrently; at most one navigation/extraction is ever in flight, which
// is the sole mutual-exclusion point over the session resource.
package coordinator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/wordforest/dingbot/internal/market"
	"github.com/wordforest/dingbot/pkg/models"
)

// SessionManager owns the automation resource lifecycle. Implemented by
// internal/browser.Manager; faked in tests.
type SessionManager interface {
	// EnsureReady creates the browser resource if absent, no-op otherwise.
	EnsureReady(ctx context.Context, headless bool) error
	// NavigateAndAuthenticate lands on targetURL, detouring through a
	// manual login when the site demands one, and returns the rendered
	// page HTML.
	NavigateAndAuthenticate(ctx context.Context, loginURL, targetURL string) (string, error)
	// Restart tears down any existing resource and recreates it headless.
	Restart(ctx context.Context) error
	// Close releases the resource for good.
	Close() error
}

// Extractor parses rendered HTML into listings. Implemented by
// internal/extract.Pipeline.
type Extractor interface {
	Extract(html, query string, limit int) ([]models.Listing, error)
}

// Options configures a Coordinator.
type Options struct {
	// ReplyWait bounds how long Submit blocks for a reply. On expiry the
	// caller gets an empty result; the in-flight operation is not
	// cancelled.
	ReplyWait time.Duration
	// JobTimeout bounds one full scrape including a potential manual
	// login detour.
	JobTimeout time.Duration
	// QueueDepth is the submission queue capacity.
	QueueDepth int
	// NavigationsPerMinute paces navigations against the target site.
	// Zero disables pacing.
	NavigationsPerMinute float64
}

func (o *Options) withDefaults() {
	if o.ReplyWait <= 0 {
		o.ReplyWait = 120 * time.Second
	}
	if o.JobTimeout <= 0 {
		o.JobTimeout = 15 * time.Minute
	}
	if o.QueueDepth <= 0 {
		o.QueueDepth = 64
	}
}

// job pairs a request with its private single-use reply channel. A login
// job carries no scrape request; it switches the browser to attended mode
// and waits out the manual login.
type job struct {
	id    string
	req   models.ScrapeRequest
	login bool
	reply chan models.ScrapeResult
}

// Coordinator is the single-flight scrape execution channel.
type Coordinator struct {
	manager   SessionManager
	extractor Extractor
	limiter   *rate.Limiter
	opts      Options

	queue chan *job
	quit  chan struct{}
	done  chan struct{}

	shutdownOnce sync.Once
}

// New creates a Coordinator and starts its executor goroutine.
func New(manager SessionManager, extractor Extractor, opts Options) *Coordinator {
	opts.withDefaults()

	var limiter *rate.Limiter
	if opts.NavigationsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.NavigationsPerMinute/60.0), 1)
	}

	c := &Coordinator{
		manager:   manager,
		extractor: extractor,
		limiter:   limiter,
		opts:      opts,
		queue:     make(chan *job, opts.QueueDepth),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go c.run()
	return c
}

// Submit enqueues a scrape request and blocks until its result arrives or
// the bounded reply wait expires. Safe for concurrent use; requests are
// serviced strictly in submission order.
//
// A reply timeout does not cancel the in-flight browser operation. The
// executor finishes it on its own time and the orphaned reply lands in the
// job's buffered channel, where it is garbage collected.
func (c *Coordinator) Submit(req models.ScrapeRequest) models.ScrapeResult {
	j := &job{
		id:    uuid.NewString(),
		req:   req,
		reply: make(chan models.ScrapeResult, 1),
	}

	select {
	case <-c.quit:
		return models.ScrapeResult{Err: ErrShutdown}
	case c.queue <- j:
	}

	log.Debug().Str("correlation_id", j.id).Str("query", req.Query).
		Str("mode", string(req.Mode)).Msg("Scrape request queued")

	select {
	case res := <-j.reply:
		return res
	case <-c.done:
		// The executor may have finished draining before this job landed
		// in the queue; don't leave the caller waiting out the reply
		// window for a job nothing will service.
		select {
		case res := <-j.reply:
			return res
		default:
			return models.ScrapeResult{Err: ErrShutdown}
		}
	case <-time.After(c.opts.ReplyWait):
		log.Warn().Str("correlation_id", j.id).Str("query", req.Query).
			Dur("waited", c.opts.ReplyWait).
			Msg("Reply wait expired, returning empty result")
		return models.ScrapeResult{Err: NewScrapeError(CodeTimeout, "reply wait expired", ErrReplyTimeout)}
	}
}

// Authenticate enqueues an attended-login job and blocks until the manual
// login completes or fails. The executor relaunches the browser visible for
// it, so the session lands in the same serialized channel every scrape uses.
// No reply wait applies; a login is human-paced, bounded by the job timeout.
func (c *Coordinator) Authenticate() error {
	j := &job{
		id:    uuid.NewString(),
		login: true,
		reply: make(chan models.ScrapeResult, 1),
	}

	select {
	case <-c.quit:
		return ErrShutdown
	case c.queue <- j:
	}

	select {
	case res := <-j.reply:
		return res.Err
	case <-c.done:
		select {
		case res := <-j.reply:
			return res.Err
		default:
			return ErrShutdown
		}
	}
}

// Shutdown drains the queue, releases the session resource, and stops the
// executor. Idempotent and safe to call during process teardown.
func (c *Coordinator) Shutdown() {
	c.shutdownOnce.Do(func() {
		close(c.quit)
	})
	<-c.done
}

// run is the executor: the one goroutine allowed to touch the session
// manager. It services jobs one at a time and converts every failure into
// an empty result for that request only, so a single bad scrape never
// blocks the channel.
func (c *Coordinator) run() {
	defer close(c.done)

	for {
		select {
		case <-c.quit:
			c.drain()
			if err := c.manager.Close(); err != nil {
				log.Warn().Err(err).Msg("Error releasing browser on shutdown")
			}
			log.Debug().Msg("Coordinator executor stopped")
			return
		case j := <-c.queue:
			res := c.process(j)
			j.reply <- res
			if res.Err != nil {
				c.recover(j)
			}
		}
	}
}

// process runs one scrape end to end.
func (c *Coordinator) process(j *job) models.ScrapeResult {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.JobTimeout)
	defer cancel()

	if j.login {
		return c.processLogin(ctx, j)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return models.ScrapeResult{Err: NewScrapeError(CodeTimeout, "rate limit wait aborted", err)}
		}
	}

	if err := c.manager.EnsureReady(ctx, true); err != nil {
		return models.ScrapeResult{Err: NewScrapeError(CodeResourceInit, "browser not ready", err)}
	}

	targetURL := market.SearchURL(j.req)
	html, err := c.manager.NavigateAndAuthenticate(ctx, market.LoginURL, targetURL)
	if err != nil {
		code := CodeExtraction
		if errors.Is(err, ErrLoginTimeout) {
			code = CodeLoginTimeout
		}
		return models.ScrapeResult{Err: NewScrapeError(code, "navigation failed", err)}
	}

	listings, err := c.extractor.Extract(html, j.req.Query, j.req.MaxResults)
	if err != nil {
		return models.ScrapeResult{Err: NewScrapeError(CodeExtraction, "extraction failed", err)}
	}

	log.Info().Str("correlation_id", j.id).Str("query", j.req.Query).
		Str("mode", string(j.req.Mode)).Int("listings", len(listings)).
		Dur("elapsed", time.Since(start)).Msg("Scrape completed")

	return models.ScrapeResult{Listings: listings}
}

// processLogin switches the browser to attended mode and waits out the
// manual login on the marketplace page.
func (c *Coordinator) processLogin(ctx context.Context, j *job) models.ScrapeResult {
	if err := c.manager.EnsureReady(ctx, false); err != nil {
		return models.ScrapeResult{Err: NewScrapeError(CodeResourceInit, "attended browser not ready", err)}
	}
	if _, err := c.manager.NavigateAndAuthenticate(ctx, market.LoginURL, market.LoginURL); err != nil {
		code := CodeResourceInit
		if errors.Is(err, ErrLoginTimeout) {
			code = CodeLoginTimeout
		}
		return models.ScrapeResult{Err: NewScrapeError(code, "manual login failed", err)}
	}
	log.Info().Str("correlation_id", j.id).Msg("Attended login completed")
	return models.ScrapeResult{}
}

// recover restarts the browser after a failed request so the next queued
// job starts from a clean resource. The restart is uniform: distinguishing
// navigation crashes from extraction surprises buys nothing here.
func (c *Coordinator) recover(j *job) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	log.Warn().Str("correlation_id", j.id).Str("query", j.req.Query).
		Msg("Scrape failed, restarting browser before next request")
	if err := c.manager.Restart(ctx); err != nil {
		log.Error().Err(err).Msg("Browser restart failed; next request will retry EnsureReady")
	}
}

// drain flushes all still-queued jobs with a shutdown failure.
func (c *Coordinator) drain() {
	for {
		select {
		case j := <-c.queue:
			j.reply <- models.ScrapeResult{Err: ErrShutdown}
		default:
			return
		}
	}
}
