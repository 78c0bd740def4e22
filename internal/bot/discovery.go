package bot

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ternarybob/petitor/internal/common"
	"github.com/ternarybob/petitor/internal/interfaces"
	"github.com/ternarybob/petitor/internal/models"
	"golang.org/x/time/rate"
)

// pageResult is one fetched search result page. Pages arrive out of order
// when several tabs fetch in parallel; the collector re-serializes them.
type pageResult struct {
	page     int
	links    []models.JobLink
	estimate models.CountEstimate
	err      error
}

// collect walks every query and returns the deduplicated pending queue.
// Jobs already in the registry never enter the queue.
func (o *Orchestrator) collect(ctx context.Context, rc runConfig) ([]models.JobEntry, error) {
	limiter := rate.NewLimiter(rate.Every(o.config.Search.RequestDelayDuration()), 1)
	seen := make(map[string]struct{})
	var all []models.JobEntry

	for qi, query := range rc.queries {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		budget := 0 // unlimited
		if rc.applyLimit > 0 {
			budget = rc.applyLimit - len(all)
			if budget <= 0 {
				o.logger.Info().Int("queued", len(all)).Msg("Apply limit reached during discovery, skipping remaining queries")
				break
			}
		}

		entries, err := o.collectQuery(ctx, rc, qi, query, limiter, seen, budget)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// One broken query must not sink the run
			o.logger.Error().Err(err).Str("query", query).Msg("Query discovery failed, continuing with next query")
			o.tracker.log("error", fmt.Sprintf("Query %q failed: %v", query, err), "")
			continue
		}
		all = append(all, entries...)
	}

	return all, nil
}

// collectQuery pages through one query with rc.concurrency parallel tabs.
// Results are merged in page order so the empty-page streak and the dedup
// set behave exactly as a sequential walk would.
func (o *Orchestrator) collectQuery(
	ctx context.Context,
	rc runConfig,
	queryIndex int,
	query string,
	limiter *rate.Limiter,
	seen map[string]struct{},
	budget int,
) ([]models.JobEntry, error) {
	qctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fetchers := rc.concurrency
	if rc.maxPages > 0 && fetchers > rc.maxPages {
		fetchers = rc.maxPages
	}

	// pageCap starts at the configured page cap and tightens once the result
	// count estimate arrives, so fetchers never walk past the last real page
	var nextPage, pageCap atomic.Int64
	if rc.maxPages > 0 {
		pageCap.Store(int64(rc.maxPages))
	} else {
		pageCap.Store(int64(1) << 31)
	}
	results := make(chan pageResult, fetchers)

	var wg sync.WaitGroup
	for i := 0; i < fetchers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.fetchPages(qctx, rc, query, limiter, &nextPage, &pageCap, results)
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var entries []models.JobEntry
	buffered := make(map[int]pageResult)
	next := 0
	streak := 0
	estimatedTotal := 0
	fetcherErrs := 0

	finish := func() []models.JobEntry {
		cancel()
		for range results {
			// Drain so fetchers can exit
		}
		return entries
	}

	for result := range results {
		if result.err != nil {
			fetcherErrs++
			if fetcherErrs >= fetchers && len(entries) == 0 && next == 0 {
				finish()
				return nil, fmt.Errorf("all discovery tabs failed: %w", result.err)
			}
			continue
		}

		if result.estimate.Found && estimatedTotal == 0 {
			estimatedTotal = result.estimate.Total
			if tp := common.TotalPages(estimatedTotal, rc.perPage); tp > 0 && int64(tp) < pageCap.Load() {
				pageCap.Store(int64(tp))
				o.logger.Debug().
					Str("query", query).
					Int("estimated_total", estimatedTotal).
					Int("total_pages", tp).
					Msg("Result estimate bounds the page walk")
			}
		}

		buffered[result.page] = result
		for {
			page, ok := buffered[next]
			if !ok {
				break
			}
			delete(buffered, next)
			next++

			stop := o.mergePage(rc, query, page, seen, &entries, &streak, budget)
			o.tracker.setDiscovery(models.DiscoveryProgress{
				Query:          query,
				QueryIndex:     queryIndex,
				QueryCount:     len(rc.queries),
				Page:           page.page,
				EstimatedTotal: estimatedTotal,
				Found:          len(entries),
				EmptyStreak:    streak,
			})
			o.publish(qctx, interfaces.EventDiscoveryPage, o.tracker.snapshot().Discovery)

			if stop {
				return finish(), nil
			}
			if int64(next) >= pageCap.Load() {
				o.logger.Info().Str("query", query).Int("pages", next).Msg("Page cap reached, query exhausted")
				return finish(), nil
			}
		}
	}

	if ctx.Err() != nil {
		return entries, ctx.Err()
	}
	return entries, nil
}

// mergePage folds one in-order page into the queue and advances the streak.
// Returns true when the query should terminate.
//
// Streak rules: a page with no cards at all extends the streak; a page whose
// cards were all deduplicated leaves the streak untouched (the query is not
// exhausted, we have just seen these jobs before); any new job resets it.
func (o *Orchestrator) mergePage(
	rc runConfig,
	query string,
	page pageResult,
	seen map[string]struct{},
	entries *[]models.JobEntry,
	streak *int,
	budget int,
) bool {
	newCount := 0
	for _, link := range page.links {
		key := common.ExtractJobKey(link.URL)
		if key == "" {
			key = link.URL
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		known, err := o.registry.IsKnown(key)
		if err != nil {
			o.logger.Warn().Err(err).Str("job_key", key).Msg("Registry check failed, keeping job")
		} else if known {
			continue
		}

		*entries = append(*entries, models.JobEntry{
			Key:     key,
			URL:     link.URL,
			Title:   link.Title,
			Company: link.Company,
			Query:   query,
			Page:    page.page,
			Status:  models.JobStatusPending,
			FoundAt: time.Now(),
		})
		newCount++

		if budget > 0 && len(*entries) >= budget {
			o.logger.Info().Str("query", query).Int("queued", len(*entries)).Msg("Apply limit covered, stopping query early")
			return true
		}
	}

	switch {
	case len(page.links) == 0:
		*streak++
		o.logger.Debug().Str("query", query).Int("page", page.page).Int("streak", *streak).Msg("Empty result page")
	case newCount == 0:
		o.logger.Debug().Str("query", query).Int("page", page.page).Msg("Page fully deduplicated, streak unchanged")
	default:
		*streak = 0
	}

	if *streak >= rc.streakLimit {
		o.logger.Info().Str("query", query).Int("streak", *streak).Msg("Empty page streak reached, query exhausted")
		return true
	}
	return false
}

// fetchPages pulls page numbers off the shared counter until the query is
// cancelled or the page cap is hit. A broken tab is recreated a bounded
// number of times before the fetcher gives up.
func (o *Orchestrator) fetchPages(
	ctx context.Context,
	rc runConfig,
	query string,
	limiter *rate.Limiter,
	nextPage *atomic.Int64,
	pageCap *atomic.Int64,
	results chan<- pageResult,
) {
	tab, err := o.openTabWithRetries(ctx)
	if err != nil {
		select {
		case results <- pageResult{err: err}:
		case <-ctx.Done():
		}
		return
	}
	defer o.driver.CloseTab(tab)

	for {
		if err := o.gate.wait(ctx); err != nil {
			return
		}

		page := int(nextPage.Add(1)) - 1
		if int64(page) >= pageCap.Load() {
			return
		}

		if err := limiter.Wait(ctx); err != nil {
			return
		}

		result := o.fetchOnePage(ctx, rc, tab, query, page)
		if result.err != nil {
			// Try once more on a fresh tab before reporting failure
			o.driver.CloseTab(tab)
			tab, err = o.openTabWithRetries(ctx)
			if err != nil {
				select {
				case results <- pageResult{page: page, err: result.err}:
				case <-ctx.Done():
				}
				return
			}
			result = o.fetchOnePage(ctx, rc, tab, query, page)
		}

		select {
		case results <- result:
		case <-ctx.Done():
			return
		}
		if result.err != nil {
			return
		}
	}
}

// fetchOnePage navigates one result page and extracts its cards
func (o *Orchestrator) fetchOnePage(ctx context.Context, rc runConfig, tab interfaces.TabHandle, query string, page int) pageResult {
	url := common.BuildSearchURL(query, rc.locale, page*rc.perPage)
	if err := o.driver.Navigate(ctx, tab, url); err != nil {
		return pageResult{page: page, err: fmt.Errorf("navigate page %d: %w", page, err)}
	}

	links, err := o.driver.CollectLinks(ctx, tab)
	if err != nil {
		return pageResult{page: page, err: fmt.Errorf("collect page %d: %w", page, err)}
	}

	result := pageResult{page: page, links: links}
	if page == 0 {
		if estimate, err := o.driver.TotalCount(ctx, tab); err == nil {
			result.estimate = estimate
		}
	}
	return result
}

// openTabWithRetries opens a tab, retrying on transient browser failures
func (o *Orchestrator) openTabWithRetries(ctx context.Context) (interfaces.TabHandle, error) {
	var lastErr error
	for attempt := 0; attempt <= o.config.Bot.TabRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		tab, err := o.driver.OpenTab(ctx)
		if err == nil {
			return tab, nil
		}
		lastErr = err
		o.logger.Warn().Err(err).Int("attempt", attempt+1).Msg("Failed to open tab, retrying")
	}
	return nil, fmt.Errorf("failed to open tab after %d attempts: %w", o.config.Bot.TabRetries+1, lastErr)
}
