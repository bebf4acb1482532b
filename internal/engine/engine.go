// Package engine implements the ingestion engine: the pipeline that takes a
// validated Request and produces a complete Result by classifying the
// input, resolving it against the YouTube API client, fetching video
// metadata and transcripts, filtering and ordering the result set, and
// assembling the final digest.
package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/nclsjn/youtubingest/internal/config"
	"github.com/nclsjn/youtubingest/internal/digest"
	"github.com/nclsjn/youtubingest/internal/ingest"
	"github.com/nclsjn/youtubingest/internal/ingesterr"
	"github.com/nclsjn/youtubingest/internal/metrics"
	"github.com/nclsjn/youtubingest/internal/normalize"
	"github.com/nclsjn/youtubingest/internal/tokenizer"
	"github.com/nclsjn/youtubingest/internal/youtube"

	"github.com/google/uuid"
)

// youtubeAPI is the subset of *youtube.Client the engine depends on,
// letting engine_test.go substitute a hand-written fake rather than stand
// up a real client.
type youtubeAPI interface {
	ResolveChannel(ctx context.Context, stats *youtube.CallStats, identifier string, kind youtube.IdentifierKind) (channelID, title, uploadsPlaylistID string, err error)
	GetPlaylistMetadata(ctx context.Context, stats *youtube.CallStats, playlistID string) (string, error)
	ListPlaylistVideoIDs(ctx context.Context, stats *youtube.CallStats, playlistID string, start, end *time.Time, maxItems int) ([]string, error)
	SearchVideoIDs(ctx context.Context, stats *youtube.CallStats, query string, start, end *time.Time, maxItems int) ([]string, int, error)
	GetVideos(ctx context.Context, stats *youtube.CallStats, videoIDs []string) ([]youtube.RawVideo, error)
}

// transcriptSource is the subset of *transcript.Manager the engine depends on.
type transcriptSource interface {
	Fetch(ctx context.Context, videoID, defaultLanguage, defaultAudioLanguage string, interval int) (*ingest.Transcript, error)
}

// Engine is the Ingestion Engine. One Engine is built at process startup and
// shared across every ingest call.
type Engine struct {
	api        youtubeAPI
	transcript transcriptSource
	tokens     *tokenizer.Counter
	cfg        config.EngineConfig
	log        *zap.Logger

	group singleflight.Group
}

// New builds an Engine from its already-constructed collaborators.
func New(api youtubeAPI, ts transcriptSource, tokens *tokenizer.Counter, cfg config.EngineConfig, log *zap.Logger) *Engine {
	return &Engine{api: api, transcript: ts, tokens: tokens, cfg: cfg, log: log}
}

// Ingest is the Ingestion Engine's single public operation: validate,
// classify+resolve, fetch metadata, filter/order, fetch transcripts,
// normalize, assemble the digest, count tokens.
func (e *Engine) Ingest(ctx context.Context, req ingest.Request) (*ingest.Result, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	deadline := e.cfg.RequestDeadline
	if deadline <= 0 {
		deadline = 120 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	metrics.InFlightIngests.Inc()
	defer metrics.InFlightIngests.Dec()

	start := time.Now()
	key := fingerprint(req)
	v, err, _ := e.group.Do(key, func() (interface{}, error) {
		return e.run(ctx, req)
	})
	sourceKind := classify(req.URLOrQuery).kind
	if err != nil {
		metrics.RecordIngest(sourceKindLabel(sourceKind), "error", time.Since(start).Seconds())
		return nil, mapErr(err)
	}
	metrics.RecordIngest(sourceKindLabel(sourceKind), "ok", time.Since(start).Seconds())
	return v.(*ingest.Result), nil
}

func sourceKindLabel(kind ingest.SourceKind) string {
	switch kind {
	case ingest.SourceVideo:
		return "video"
	case ingest.SourcePlaylist:
		return "playlist"
	case ingest.SourceChannel:
		return "channel"
	case ingest.SourceSearch:
		return "search"
	default:
		return "invalid"
	}
}

func (e *Engine) run(ctx context.Context, req ingest.Request) (*ingest.Result, error) {
	start := time.Now()
	stats := &youtube.CallStats{}

	requestID := uuid.NewString()
	log := e.log
	if log != nil {
		log = log.With(zap.String("request_id", requestID))
		log.Debug("ingest started", zap.String("url_or_query", req.URLOrQuery))
	}

	cls := classify(req.URLOrQuery)
	resolved, rawIDs, err := e.resolve(ctx, cls, req, stats)
	if err != nil {
		return nil, err
	}

	ids, originIndex := dedupeIDs(rawIDs)
	if len(ids) > e.cfg.MaxVideosPerRequest {
		ids = ids[:e.cfg.MaxVideosPerRequest]
	}

	if len(ids) == 0 {
		return e.emptyResult(resolved, stats, start), nil
	}

	raw, err := e.api.GetVideos(ctx, stats, ids)
	if err != nil {
		return nil, err
	}

	videos := buildVideoRecords(raw, originIndex)
	videos = filterVideos(videos, req.StartDate, req.EndDate, e.cfg.MinDurationSeconds)
	videos = orderVideos(resolved.Kind, videos)

	if len(videos) == 0 {
		return e.emptyResult(resolved, stats, start), nil
	}

	if req.IncludeTranscript {
		if err := e.fetchTranscripts(ctx, videos, req.TranscriptInterval); err != nil {
			return nil, err
		}
	}

	e.normalizeVideos(videos)

	if resolved.Kind == ingest.SourceVideo && len(videos) > 0 {
		resolved.DisplayName = videos[0].Title
	}

	text := digest.Render(resolved.DisplayName, videos, req.IncludeDescription, req.IncludeTranscript)
	calls, quota := stats.Calls, stats.QuotaUsed

	if log != nil {
		log.Debug("ingest finished", zap.Int("video_count", len(videos)), zap.Int("api_calls", calls))
	}

	return &ingest.Result{
		SourceName:       resolved.DisplayName,
		VideoCount:       len(videos),
		DigestText:       text,
		TokenCount:       e.tokens.Count(text),
		Videos:           videos,
		ProcessingTimeMs: float64(time.Since(start).Microseconds()) / 1000.0,
		APICallCount:     calls,
		APIQuotaUsed:     quota,
		HighQuotaCost:    resolved.HighQuotaCost,
	}, nil
}

// emptyResult is returned whenever resolution succeeds but yields no video
// after listing or filtering — e.g. a channel whose recent uploads are all
// live/upcoming. This is not an error: ResourceNotFoundError is reserved
// for the identifier itself failing to resolve.
func (e *Engine) emptyResult(resolved ingest.ResolvedSource, stats *youtube.CallStats, start time.Time) *ingest.Result {
	text := digest.Render(resolved.DisplayName, nil, false, false)
	return &ingest.Result{
		SourceName:       resolved.DisplayName,
		VideoCount:       0,
		DigestText:       text,
		TokenCount:       e.tokens.Count(text),
		Videos:           nil,
		ProcessingTimeMs: float64(time.Since(start).Microseconds()) / 1000.0,
		APICallCount:     stats.Calls,
		APIQuotaUsed:     stats.QuotaUsed,
		HighQuotaCost:    resolved.HighQuotaCost,
	}
}

// buildVideoRecords converts API-shaped RawVideo values into the engine's
// domain model, parsing duration and published_at and stamping each
// record's OriginIndex from its position among the deduplicated input IDs.
func buildVideoRecords(raw []youtube.RawVideo, originIndex map[string]int) []ingest.VideoRecord {
	out := make([]ingest.VideoRecord, 0, len(raw))
	for _, r := range raw {
		publishedAt, _ := time.Parse(time.RFC3339, r.PublishedAt)
		out = append(out, ingest.VideoRecord{
			ID:                   r.ID,
			Title:                r.Title,
			DescriptionRaw:       r.Description,
			ChannelID:            r.ChannelID,
			ChannelTitle:         r.ChannelTitle,
			PublishedAt:          publishedAt,
			Duration:             youtube.DurationSeconds(r.Duration),
			Tags:                 r.Tags,
			OriginIndex:          originIndex[r.ID],
			DefaultLanguage:      r.DefaultLanguage,
			DefaultAudioLanguage: r.DefaultAudioLanguage,
			LiveBroadcastContent: r.LiveBroadcastContent,
		})
	}
	return out
}

// fetchTranscripts fans out over videos with bounded concurrency via
// errgroup. A per-video transport error is logged and swallowed rather than
// failing the group, since a missing transcript is never fatal to an
// ingest; a (nil, nil) miss just leaves Transcript unset.
func (e *Engine) fetchTranscripts(ctx context.Context, videos []ingest.VideoRecord, interval int) error {
	g, ctx := errgroup.WithContext(ctx)
	limit := e.cfg.EngineConcurrency
	if limit <= 0 {
		limit = 8
	}
	g.SetLimit(limit)

	for i := range videos {
		i := i
		g.Go(func() error {
			t, err := e.transcript.Fetch(ctx, videos[i].ID, videos[i].DefaultLanguage, videos[i].DefaultAudioLanguage, interval)
			if err != nil {
				if e.log != nil {
					e.log.Warn("transcript fetch failed", zap.String("video_id", videos[i].ID), zap.Error(err))
				}
				return nil
			}
			videos[i].Transcript = t
			return nil
		})
	}
	return g.Wait()
}

// normalizeVideos cleans each video's title and description in place.
// A panic in one video's cleanup (e.g. an unexpected pathological input to
// a regex) is recovered per video, demoting that video's cleaned fields to
// empty rather than failing the whole ingest, and does not abort the
// remaining videos.
func (e *Engine) normalizeVideos(videos []ingest.VideoRecord) {
	for i := range videos {
		e.normalizeOne(&videos[i])
	}
}

func (e *Engine) normalizeOne(v *ingest.VideoRecord) {
	defer func() {
		if r := recover(); r != nil {
			if e.log != nil {
				e.log.Warn("normalization panic recovered", zap.String("video_id", v.ID), zap.Any("panic", r))
			}
			v.DescriptionClean = ""
		}
	}()
	v.Title = normalize.CleanTitle(v.Title, v.ChannelTitle)
	v.DescriptionClean = normalize.CleanDescription(v.DescriptionRaw)
}

func validateRequest(req ingest.Request) error {
	if len(req.URLOrQuery) == 0 {
		return ingesterr.NewInvalidInput("url_or_query must not be empty")
	}
	if utf8.RuneCountInString(req.URLOrQuery) > 2000 {
		return ingesterr.NewInvalidInput("url_or_query exceeds maximum length")
	}
	if !ingest.AllowedIntervals[req.TranscriptInterval] {
		return ingesterr.NewInvalidInput(fmt.Sprintf("transcript_interval %d is not one of the allowed values", req.TranscriptInterval))
	}
	if req.StartDate != nil && req.EndDate != nil && req.StartDate.After(*req.EndDate) {
		return ingesterr.NewInvalidInput("start_date must not be after end_date")
	}
	return nil
}

// fingerprint derives a singleflight key from the fields of req that affect
// its result, so two callers racing the same request share one run.
func fingerprint(req ingest.Request) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%t\x00%t\x00%d", req.URLOrQuery, req.IncludeTranscript, req.IncludeDescription, req.TranscriptInterval)
	if req.StartDate != nil {
		fmt.Fprintf(h, "\x00%d", req.StartDate.Unix())
	}
	if req.EndDate != nil {
		fmt.Fprintf(h, "\x00%d", req.EndDate.Unix())
	}
	return hex.EncodeToString(h.Sum(nil))
}

// mapErr classifies a context deadline/cancellation into the taxonomy's
// TimeoutError and passes everything else through Classify unchanged.
func mapErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ingesterr.NewTimeout("ingest request exceeded its deadline")
	}
	if errors.Is(err, context.Canceled) {
		return ingesterr.NewTimeout("ingest request was canceled")
	}
	return ingesterr.Classify(err)
}
