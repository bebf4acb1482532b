// Package youtube implements the YouTube API Client component: a thin,
// quota-aware, cached, retrying wrapper over the YouTube Data API v3 surface
// the ingestion core needs (channels.list, playlists.list,
// playlistItems.list, videos.list, search.list).
//
// Construction follows the generated client's usual pattern
// (youtube.NewService + option.WithAPIKey, part-based field selection,
// batching helpers); on top of it sit the domain algorithms this package
// owns: quota accounting, channel resolution, date filtering, and search
// operator parsing.
package youtube

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	googleapi "google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	youtubeapi "google.golang.org/api/youtube/v3"

	"github.com/nclsjn/youtubingest/internal/cache"
	"github.com/nclsjn/youtubingest/internal/config"
	"github.com/nclsjn/youtubingest/internal/ingesterr"
	"github.com/nclsjn/youtubingest/internal/metrics"
)

// Per-endpoint quota costs, as published in the YouTube Data API v3 quota
// calculator.
const (
	costVideosList        = 1
	costSearchList        = 100
	costChannelsList      = 1
	costPlaylistsList     = 1
	costPlaylistItemsList = 1
	costCaptionsList      = 50
)

// IdentifierKind classifies how a channel identifier was extracted from the
// input URL, driving the probe order in resolveChannel.
type IdentifierKind int

const (
	IdentifierChannelID IdentifierKind = iota
	IdentifierHandle
	IdentifierCustom
	IdentifierUser
)

var channelIDPattern = regexp.MustCompile(`^UC[0-9A-Za-z_-]{22}$`)

// CallStats accumulates per-request call count and quota cost, since the
// Client's own counters are process-wide (ambient introspection) while an
// ingest's quota usage must be reported scoped to just that one request.
// The engine passes one *CallStats per ingest() call and sums it at the end.
type CallStats struct {
	mu        sync.Mutex
	Calls     int
	QuotaUsed int
}

func (s *CallStats) add(calls, quota int) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls += calls
	s.QuotaUsed += quota
}

// RawVideo is the subset of videos.list's snippet+contentDetails parts the
// engine needs, prior to normalization and VideoRecord construction.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type RawVideo struct {
	ID                   string
	Title                string
	Description          string
	ChannelID            string
	ChannelTitle         string
	PublishedAt          string // RFC3339, as returned by the API
	Tags                 []string
	DefaultLanguage      string
	DefaultAudioLanguage string
	LiveBroadcastContent string
	Duration             string // raw ISO8601, parsed by the caller via DurationSeconds
}

type resolveEntry struct {
	channelID         string
	title             string
	uploadsPlaylistID string
	found             bool
}

type playlistItem struct {
	videoID     string
	publishedAt time.Time // zero if the API omitted contentDetails.videoPublishedAt
}

type pageEntry struct {
	ids           []string
	items         []playlistItem
	nextPageToken string
}

// Client wraps the generated YouTube Data API v3 service with quota
// accounting, caching, retries, a circuit breaker, and inter-request
// throttling.
type Client struct {
	svc *youtubeapi.Service
	cfg config.YouTubeConfig
	log *zap.Logger

	limiter *rate.Limiter

	// quotaBreaker trips hard and stays open for a long cooldown the moment
	// a single quota-exceeded failure is observed; generalBreaker trips
	// briefly on consecutive 5xx/network failures. Two breakers separate
	// these two failure modes without hand-rolling a state machine for
	// either (see DESIGN.md).
	quotaBreaker   *gobreaker.CircuitBreaker[any]
	generalBreaker *gobreaker.CircuitBreaker[any]

	resolveCache  *cache.TTLCache[string, resolveEntry]
	metadataCache *cache.TTLCache[string, RawVideo]
	pageCache     *cache.TTLCache[string, pageEntry]

	mu        sync.Mutex
	calls     int
	quotaUsed int
}

// New constructs a Client against the given API key and registers its
// caches with reg under the appropriate pressure_clear priorities.
func New(ctx context.Context, cfg config.YouTubeConfig, reg *cache.Registry, log *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ingesterr.NewApiConfigError("YOUTUBE_API_KEY is not configured")
	}

	svc, err := youtubeapi.NewService(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, ingesterr.NewApiConfigError(fmt.Sprintf("failed to build YouTube API client: %v", err))
	}

	c := &Client{
		svc: svc,
		cfg: cfg,
		log: log,

		limiter: rate.NewLimiter(rate.Every(cfg.MinDelay), 1),

		quotaBreaker: gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
			Name:        "youtube-quota",
			MaxRequests: 1,
			Timeout:     1 * time.Hour,
			ReadyToTrip: func(counts gobreaker.Counts) bool { return counts.ConsecutiveFailures >= 1 },
		}),
		generalBreaker: gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
			Name:        "youtube-api",
			MaxRequests: uint32(cfg.CircuitHalfOpenProbes),
			Timeout:     cfg.CircuitResetTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(cfg.CircuitBreakerThresh)
			},
			// Authoritative 4xx answers are not outages: only transient
			// failures count toward tripping this breaker.
			IsSuccessful: func(err error) bool { return err == nil || isPermanent(err) },
		}),

		resolveCache:  cache.NewTTLCache[string, resolveEntry]("youtube.resolve", 128, 20),
		metadataCache: cache.NewTTLCache[string, RawVideo]("youtube.metadata", 1024, 20),
		pageCache:     cache.NewTTLCache[string, pageEntry]("youtube.pages", 256, 20),
	}

	if reg != nil {
		reg.Register(c.resolveCache, cache.PriorityMetadata)
		reg.Register(c.metadataCache, cache.PriorityMetadata)
		reg.Register(c.pageCache, cache.PrioritySearchPage)
	}

	return c, nil
}

// Stats returns the process-wide call count and quota usage, for ambient
// introspection/metrics — distinct from the per-request CallStats the
// engine accumulates.
func (c *Client) Stats() (calls, quotaUsed int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls, c.quotaUsed
}

// BreakerStates reports the current state of both circuit breakers as
// gobreaker's own ordinal values (0=closed, 1=half-open, 2=open), for
// publishing as metrics gauges.
func (c *Client) BreakerStates() (quota, general int) {
	return int(c.quotaBreaker.State()), int(c.generalBreaker.State())
}

func (c *Client) recordCall(stats *CallStats, operation string, calls, quota int) {
	c.mu.Lock()
	c.calls += calls
	c.quotaUsed += quota
	c.mu.Unlock()
	stats.add(calls, quota)
	metrics.RecordQuota(operation, quota)
}

// throttle applies the jittered minimum inter-request delay, replacing the
// original's hand-rolled _wait_for_rate_limit sleep with golang.org/x/time/rate
// plus an explicit jitter sleep bounded by [MinDelay, MaxDelay].
func (c *Client) throttle(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	spread := c.cfg.MaxDelay - c.cfg.MinDelay
	if spread > 0 {
		jitter := time.Duration(rand.Int63n(int64(spread)))
		select {
		case <-time.After(jitter):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// call executes one upstream operation under the rate limiter, circuit
// breakers, and retry policy, then records call/quota stats exactly once
// regardless of outcome. Cache hits never reach this function, so a cache
// hit never counts against quota.
func call[T any](ctx context.Context, c *Client, stats *CallStats, operation string, cost int, fn func() (T, error)) (T, error) {
	var zero T

	if c.quotaBreaker.State() == gobreaker.StateOpen {
		return zero, ingesterr.NewQuotaExceeded(fmt.Sprintf("quota breaker open, rejecting %s", operation))
	}

	if err := c.throttle(ctx); err != nil {
		return zero, err
	}

	timed := func() (T, error) {
		timeoutCtx, cancel := context.WithTimeout(ctx, c.cfg.APITimeout)
		defer cancel()
		done := make(chan struct{})
		var r T
		var rerr error
		go func() {
			r, rerr = fn()
			close(done)
		}()
		select {
		case <-done:
			return r, rerr
		case <-timeoutCtx.Done():
			var zero T
			return zero, timeoutCtx.Err()
		}
	}

	raw, err := c.generalBreaker.Execute(func() (any, error) {
		return retryWithBackoff(ctx, c.cfg, operation, timed)
	})

	c.recordCall(stats, operation, 1, cost)

	if err != nil {
		classified := classifyUpstreamErr(operation, err)
		if _, ok := classified.(*ingesterr.QuotaExceededError); ok {
			_, _ = c.quotaBreaker.Execute(func() (any, error) { return nil, classified })
		}
		return zero, classified
	}
	return raw.(T), nil
}

// retryWithBackoff retries fn on transient failures (5xx, network timeouts)
// with exponential backoff and jitter, up to cfg.RetryAttempts. 403 quota,
// 404 not found, and any 4xx other than 429 are wrapped as permanent so
// backoff.Retry does not retry them.
func retryWithBackoff[T any](ctx context.Context, cfg config.YouTubeConfig, operation string, fn func() (T, error)) (T, error) {
	var result T

	policy := backoff.WithContext(
		backoff.WithMaxRetries(newExponentialBackoff(cfg), uint64(cfg.RetryAttempts)),
		ctx,
	)

	op := func() error {
		r, err := fn()
		if err != nil {
			if isPermanent(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		result = r
		return nil
	}

	if err := backoff.Retry(op, policy); err != nil {
		var perm *backoff.PermanentError
		if pe, ok := err.(*backoff.PermanentError); ok {
			perm = pe
			return result, perm.Err
		}
		return result, err
	}
	return result, nil
}

func newExponentialBackoff(cfg config.YouTubeConfig) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.RetryBaseDelay
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.5
	b.MaxInterval = 60 * time.Second
	return b
}

// isPermanent reports whether the upstream error is authoritative (should
// not be retried): 404 not found, 403 quota/other, or any 4xx != 429.
func isPermanent(err error) bool {
	var gerr *googleapi.Error
	if !asGoogleapiError(err, &gerr) {
		return false
	}
	switch gerr.Code {
	case 404, 403:
		return true
	case 429:
		return false
	default:
		return gerr.Code >= 400 && gerr.Code < 500
	}
}

func asGoogleapiError(err error, target **googleapi.Error) bool {
	if gerr, ok := err.(*googleapi.Error); ok {
		*target = gerr
		return true
	}
	return false
}

// classifyUpstreamErr maps a googleapi.Error (or generic transport error,
// including a tripped circuit breaker) into the ingesterr taxonomy.
func classifyUpstreamErr(operation string, err error) error {
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return ingesterr.NewServiceUnavailable(fmt.Sprintf("%s: circuit breaker open", operation))
	}

	var gerr *googleapi.Error
	if asGoogleapiError(err, &gerr) {
		switch {
		case gerr.Code == 403 && isQuotaMessage(gerr.Message):
			return ingesterr.NewQuotaExceeded(fmt.Sprintf("%s: YouTube API quota exceeded", operation))
		case gerr.Code == 404:
			return ingesterr.NewResourceNotFound(fmt.Sprintf("%s: resource not found", operation))
		case gerr.Code == 400:
			return ingesterr.NewInvalidInput(fmt.Sprintf("%s: %s", operation, gerr.Message))
		case gerr.Code >= 500 || gerr.Code == 429:
			return ingesterr.NewServiceUnavailable(fmt.Sprintf("%s: upstream error %d", operation, gerr.Code))
		default:
			return ingesterr.NewInternal(fmt.Sprintf("%s: unexpected upstream error", operation), err)
		}
	}

	return ingesterr.NewServiceUnavailable(fmt.Sprintf("%s: %v", operation, err))
}

func isQuotaMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "quota") || strings.Contains(lower, "servinglimitexceeded")
}

// ResolveChannel probes, in order, a direct channel ID, forHandle,
// forUsername, then a search.list&type=channel fallback. Both positive and
// negative outcomes are cached, keyed by (identifier, kind); only a
// definitive not-found is cached as negative, other failures are returned
// uncached.
func (c *Client) ResolveChannel(ctx context.Context, stats *CallStats, identifier string, kind IdentifierKind) (channelID, title, uploadsPlaylistID string, err error) {
	cacheKey := fmt.Sprintf("%d:%s", kind, identifier)
	if entry, ok := c.resolveCache.Get(cacheKey); ok {
		if !entry.found {
			return "", "", "", ingesterr.NewResourceNotFound(fmt.Sprintf("channel not found for %q", identifier))
		}
		return entry.channelID, entry.title, entry.uploadsPlaylistID, nil
	}

	if kind == IdentifierChannelID || channelIDPattern.MatchString(identifier) {
		id, t, up, rerr := c.fetchChannelByID(ctx, stats, identifier)
		if rerr == nil {
			c.resolveCache.Put(cacheKey, resolveEntry{channelID: id, title: t, uploadsPlaylistID: up, found: true}, 1*time.Hour)
			return id, t, up, nil
		}
		if !isNotFound(rerr) {
			return "", "", "", rerr
		}
	}

	if kind == IdentifierHandle {
		if id, t, up, rerr := c.fetchChannelByParam(ctx, stats, "forHandle", identifier); rerr == nil {
			c.resolveCache.Put(cacheKey, resolveEntry{channelID: id, title: t, uploadsPlaylistID: up, found: true}, 1*time.Hour)
			return id, t, up, nil
		} else if !isNotFound(rerr) {
			return "", "", "", rerr
		}
	}

	if kind == IdentifierUser || kind == IdentifierCustom {
		if id, t, up, rerr := c.fetchChannelByParam(ctx, stats, "forUsername", identifier); rerr == nil {
			c.resolveCache.Put(cacheKey, resolveEntry{channelID: id, title: t, uploadsPlaylistID: up, found: true}, 1*time.Hour)
			return id, t, up, nil
		} else if !isNotFound(rerr) {
			return "", "", "", rerr
		}
	}

	if kind == IdentifierCustom {
		if id, t, up, rerr := c.fetchChannelByParam(ctx, stats, "forHandle", "@"+identifier); rerr == nil {
			c.resolveCache.Put(cacheKey, resolveEntry{channelID: id, title: t, uploadsPlaylistID: up, found: true}, 1*time.Hour)
			return id, t, up, nil
		} else if !isNotFound(rerr) {
			return "", "", "", rerr
		}
	}

	// Final fallback: search.list&type=channel, top result.
	id, t, up, rerr := c.searchChannelFallback(ctx, stats, identifier)
	if rerr != nil {
		if !isNotFound(rerr) {
			return "", "", "", rerr
		}
		c.resolveCache.Put(cacheKey, resolveEntry{found: false}, 1*time.Hour)
		return "", "", "", ingesterr.NewResourceNotFound(fmt.Sprintf("could not resolve channel %q", identifier))
	}
	c.resolveCache.Put(cacheKey, resolveEntry{channelID: id, title: t, uploadsPlaylistID: up, found: true}, 1*time.Hour)
	return id, t, up, nil
}

func isNotFound(err error) bool {
	_, ok := err.(*ingesterr.ResourceNotFoundError)
	return ok
}

func (c *Client) fetchChannelByID(ctx context.Context, stats *CallStats, id string) (channelID, title, uploadsPlaylistID string, err error) {
	resp, err := call(ctx, c, stats, "channels.list", costChannelsList, func() (*youtubeapi.ChannelListResponse, error) {
		return c.svc.Channels.List([]string{"snippet", "contentDetails"}).Id(id).Context(ctx).Do()
	})
	if err != nil {
		return "", "", "", err
	}
	if len(resp.Items) == 0 {
		return "", "", "", ingesterr.NewResourceNotFound(fmt.Sprintf("channel id %q not found", id))
	}
	item := resp.Items[0]
	return item.Id, item.Snippet.Title, item.ContentDetails.RelatedPlaylists.Uploads, nil
}

func (c *Client) fetchChannelByParam(ctx context.Context, stats *CallStats, param, value string) (channelID, title, uploadsPlaylistID string, err error) {
	resp, err := call(ctx, c, stats, "channels.list", costChannelsList, func() (*youtubeapi.ChannelListResponse, error) {
		req := c.svc.Channels.List([]string{"snippet", "contentDetails"}).Context(ctx)
		switch param {
		case "forHandle":
			req = req.ForHandle(value)
		case "forUsername":
			req = req.ForUsername(value)
		}
		return req.Do()
	})
	if err != nil {
		return "", "", "", err
	}
	if len(resp.Items) == 0 {
		return "", "", "", ingesterr.NewResourceNotFound(fmt.Sprintf("channel %s=%q not found", param, value))
	}
	item := resp.Items[0]
	return item.Id, item.Snippet.Title, item.ContentDetails.RelatedPlaylists.Uploads, nil
}

func (c *Client) searchChannelFallback(ctx context.Context, stats *CallStats, query string) (channelID, title, uploadsPlaylistID string, err error) {
	resp, err := call(ctx, c, stats, "search.list", costSearchList, func() (*youtubeapi.SearchListResponse, error) {
		return c.svc.Search.List([]string{"snippet"}).Q(query).Type("channel").MaxResults(1).Context(ctx).Do()
	})
	if err != nil {
		return "", "", "", err
	}
	if len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
		return "", "", "", ingesterr.NewResourceNotFound(fmt.Sprintf("no channel search result for %q", query))
	}
	id := resp.Items[0].Snippet.ChannelId
	return c.fetchChannelByID(ctx, stats, id)
}

// GetChannelMetadata returns a channel's title and uploads-playlist ID.
func (c *Client) GetChannelMetadata(ctx context.Context, stats *CallStats, channelID string) (title, uploadsPlaylistID string, err error) {
	_, t, up, rerr := c.fetchChannelByID(ctx, stats, channelID)
	return t, up, rerr
}

// GetPlaylistMetadata returns a playlist's title.
func (c *Client) GetPlaylistMetadata(ctx context.Context, stats *CallStats, playlistID string) (string, error) {
	resp, err := call(ctx, c, stats, "playlists.list", costPlaylistsList, func() (*youtubeapi.PlaylistListResponse, error) {
		return c.svc.Playlists.List([]string{"snippet"}).Id(playlistID).Context(ctx).Do()
	})
	if err != nil {
		return "", err
	}
	if len(resp.Items) == 0 {
		return "", ingesterr.NewResourceNotFound(fmt.Sprintf("playlist %q not found", playlistID))
	}
	return resp.Items[0].Snippet.Title, nil
}

// ListPlaylistVideoIDs pages through playlistItems.list, filtering by
// published date in memory using contentDetails.videoPublishedAt (the API
// has no server-side date filter for this endpoint), stopping early once
// three consecutive pages land entirely outside the requested window.
// Uploads-playlist order is reverse-chronological, so once a page's items
// are all older than start, every later page is too; a miss run is only
// counted while inside that "all too old" phase, so a window that begins
// mid-playlist is never truncated early.
func (c *Client) ListPlaylistVideoIDs(ctx context.Context, stats *CallStats, playlistID string, start, end *time.Time, maxItems int) ([]string, error) {
	var ids []string
	pageToken := ""
	consecutiveMisses := 0
	var endBound time.Time // first instant after the inclusive end date
	if end != nil {
		endBound = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, end.Location()).AddDate(0, 0, 1)
	}

	for {
		pageKey := fmt.Sprintf("playlistItems:%s:%s", playlistID, pageToken)
		var page pageEntry
		if cached, ok := c.pageCache.Get(pageKey); ok {
			page = cached
		} else {
			resp, err := call(ctx, c, stats, "playlistItems.list", costPlaylistItemsList, func() (*youtubeapi.PlaylistItemListResponse, error) {
				req := c.svc.PlaylistItems.List([]string{"snippet", "contentDetails"}).PlaylistId(playlistID).MaxResults(50).Context(ctx)
				if pageToken != "" {
					req = req.PageToken(pageToken)
				}
				return req.Do()
			})
			if err != nil {
				return nil, err
			}
			page = pageEntry{nextPageToken: resp.NextPageToken}
			for _, item := range resp.Items {
				if item.ContentDetails == nil {
					continue
				}
				pi := playlistItem{videoID: item.ContentDetails.VideoId}
				if item.ContentDetails.VideoPublishedAt != "" {
					if t, err := time.Parse(time.RFC3339, item.ContentDetails.VideoPublishedAt); err == nil {
						pi.publishedAt = t
					}
				}
				page.items = append(page.items, pi)
			}
			c.pageCache.Put(pageKey, page, 10*time.Minute)
		}

		pageHadMatch := false
		pageHadTooOld := false
		for _, item := range page.items {
			if len(ids) >= maxItems {
				return ids, nil
			}
			if end != nil && !item.publishedAt.IsZero() && !item.publishedAt.Before(endBound) {
				continue // newer than the window, skip and keep paging
			}
			if start != nil && !item.publishedAt.IsZero() && item.publishedAt.Before(*start) {
				pageHadTooOld = true
				continue
			}
			ids = append(ids, item.videoID)
			pageHadMatch = true
		}
		if pageHadMatch {
			consecutiveMisses = 0
		} else if start != nil && pageHadTooOld {
			consecutiveMisses++
		}

		if page.nextPageToken == "" || consecutiveMisses >= 3 || len(ids) >= maxItems {
			break
		}
		pageToken = page.nextPageToken
	}

	return ids, nil
}

// SearchVideoIDs runs search.list, translating the mini query language (see
// searchquery.go) and applying date filters via publishedAfter/publishedBefore.
// It returns the ordered video IDs and the number of operator filters applied
// (used by the engine to build the display_name's filter-count annotation).
func (c *Client) SearchVideoIDs(ctx context.Context, stats *CallStats, query string, start, end *time.Time, maxItems int) ([]string, int, error) {
	parsed := parseSearchQuery(query)

	params := c.svc.Search.List([]string{"snippet"}).Type("video").Context(ctx)
	params = params.Q(parsed.Text)

	if parsed.Order != "" {
		params = params.Order(parsed.Order)
	} else {
		params = params.Order("relevance")
	}
	if parsed.ChannelID != "" {
		params = params.ChannelId(parsed.ChannelID)
	}
	if parsed.VideoDuration != "" {
		params = params.VideoDuration(parsed.VideoDuration)
	}
	if parsed.VideoDimension != "" {
		params = params.VideoDimension(parsed.VideoDimension)
	}
	if parsed.VideoDefinition != "" {
		params = params.VideoDefinition(parsed.VideoDefinition)
	}
	if parsed.VideoCaption != "" {
		params = params.VideoCaption(parsed.VideoCaption)
	}
	if parsed.VideoLicense != "" {
		params = params.VideoLicense(parsed.VideoLicense)
	}
	if parsed.VideoEmbeddable != "" {
		params = params.VideoEmbeddable(parsed.VideoEmbeddable)
	}
	if parsed.VideoSyndicated != "" {
		params = params.VideoSyndicated(parsed.VideoSyndicated)
	}

	effectiveStart, effectiveEnd := start, end
	if end != nil {
		// publishedBefore is exclusive; pass the start of the following day
		// so the end date itself is included.
		dayAfter := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, end.Location()).AddDate(0, 0, 1)
		effectiveEnd = &dayAfter
	}
	if parsed.PublishedAfter != nil && effectiveStart == nil {
		effectiveStart = parsed.PublishedAfter
	}
	if parsed.PublishedBefore != nil && effectiveEnd == nil {
		effectiveEnd = parsed.PublishedBefore
	}
	if effectiveStart != nil {
		params = params.PublishedAfter(effectiveStart.Format(time.RFC3339))
	}
	if effectiveEnd != nil {
		params = params.PublishedBefore(effectiveEnd.Format(time.RFC3339))
	}

	var ids []string
	pageToken := ""
	for {
		curToken := pageToken
		resp, err := call(ctx, c, stats, "search.list", costSearchList, func() (*youtubeapi.SearchListResponse, error) {
			req := params
			if curToken != "" {
				req = req.PageToken(curToken)
			}
			return req.MaxResults(50).Do()
		})
		if err != nil {
			return nil, parsed.FilterCount, err
		}
		for _, item := range resp.Items {
			if item.Id == nil || item.Id.VideoId == "" {
				continue
			}
			if len(ids) >= maxItems {
				return ids, parsed.FilterCount, nil
			}
			ids = append(ids, item.Id.VideoId)
		}
		if resp.NextPageToken == "" || len(ids) >= maxItems {
			break
		}
		pageToken = resp.NextPageToken
	}

	return ids, parsed.FilterCount, nil
}

// GetVideos fetches full metadata for videoIDs, batched into groups of at
// most cfg.BatchSize (default 50), preserving input order across batches.
// Per-ID results are memoized in metadataCache; cache hits never reach
// call() and so never re-count quota.
func (c *Client) GetVideos(ctx context.Context, stats *CallStats, videoIDs []string) ([]RawVideo, error) {
	out := make([]RawVideo, 0, len(videoIDs))
	var toFetch []string
	fetchedAt := map[string]RawVideo{}

	for _, id := range videoIDs {
		if v, ok := c.metadataCache.Get(id); ok {
			fetchedAt[id] = v
			continue
		}
		toFetch = append(toFetch, id)
	}

	for _, batch := range batchIDs(toFetch, c.cfg.BatchSize) {
		resp, err := call(ctx, c, stats, "videos.list", costVideosList, func() (*youtubeapi.VideoListResponse, error) {
			return c.svc.Videos.List([]string{"snippet", "contentDetails"}).Id(strings.Join(batch, ",")).Context(ctx).Do()
		})
		if err != nil {
			return nil, err
		}
		for _, item := range resp.Items {
			rv := mapVideo(item)
			fetchedAt[rv.ID] = rv
			c.metadataCache.Put(rv.ID, rv, 30*time.Minute)
		}
	}

	for _, id := range videoIDs {
		if rv, ok := fetchedAt[id]; ok {
			out = append(out, rv)
		}
		// Videos missing from the response (private/deleted) are dropped
		// silently.
	}
	return out, nil
}

func mapVideo(item *youtubeapi.Video) RawVideo {
	rv := RawVideo{ID: item.Id}
	if item.Snippet != nil {
		rv.Title = item.Snippet.Title
		rv.Description = item.Snippet.Description
		rv.ChannelID = item.Snippet.ChannelId
		rv.ChannelTitle = item.Snippet.ChannelTitle
		rv.PublishedAt = item.Snippet.PublishedAt
		rv.Tags = item.Snippet.Tags
		rv.DefaultLanguage = item.Snippet.DefaultLanguage
		rv.DefaultAudioLanguage = item.Snippet.DefaultAudioLanguage
		rv.LiveBroadcastContent = item.Snippet.LiveBroadcastContent
	}
	if item.ContentDetails != nil {
		rv.Duration = item.ContentDetails.Duration
	}
	return rv
}

// batchIDs splits ids into groups of at most size, since videos.list rejects
// more than a fixed number of IDs per call.
func batchIDs(ids []string, size int) [][]string {
	if size <= 0 {
		size = 50
	}
	var batches [][]string
	for i := 0; i < len(ids); i += size {
		end := i + size
		if end > len(ids) {
			end = len(ids)
		}
		batches = append(batches, ids[i:end])
	}
	return batches
}
