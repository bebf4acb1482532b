// Package transcript selects, fetches, and formats captions for a video,
// with its own positive and negative caches and bounded concurrency.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/nclsjn/youtubingest/internal/cache"
	"github.com/nclsjn/youtubingest/internal/config"
	"github.com/nclsjn/youtubingest/internal/ingest"
	"github.com/nclsjn/youtubingest/internal/ingesterr"
)

var videoIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

// errDisabled marks a video whose captions are disabled or region-blocked,
// as opposed to a transient transport failure. Backend implementations wrap
// it via fmt.Errorf("...: %w", errDisabled) when they recognize the signal.
var errDisabled = errors.New("transcript disabled or region-blocked")

const (
	errReasonNoTranscript = "no_transcript"
	errReasonDisabled     = "disabled"
)

type selectedCues struct {
	language string
	cues     []Cue
}

// Manager is the Transcript Source. One Manager is shared across an
// ingestion core instance and across all concurrent requests.
type Manager struct {
	backend Backend
	cfg     config.TranscriptConfig
	log     *zap.Logger

	resultCache *cache.TTLCache[string, string] // (videoID,interval) -> language + "\x00" + formatted text
	errorCache  *cache.TTLCache[string, string] // videoID -> error reason
	cuesCache   *cache.TTLCache[string, selectedCues]

	sem   chan struct{}
	group singleflight.Group
}

// New builds a Manager with its caches registered under PriorityTranscript,
// the first tier the registry drains under memory pressure.
func New(backend Backend, cfg config.TranscriptConfig, reg *cache.Registry, log *zap.Logger) *Manager {
	m := &Manager{
		backend:     backend,
		cfg:         cfg,
		log:         log,
		resultCache: cache.NewTTLCache[string, string]("transcript.result", 500, 20),
		errorCache:  cache.NewTTLCache[string, string]("transcript.error", 200, 20),
		cuesCache:   cache.NewTTLCache[string, selectedCues]("transcript.cues", 500, 20),
		sem:         make(chan struct{}, maxInt(cfg.Concurrency, 1)),
	}
	if reg != nil {
		reg.Register(m.resultCache, cache.PriorityTranscript)
		reg.Register(m.errorCache, cache.PriorityTranscript)
		reg.Register(m.cuesCache, cache.PriorityTranscript)
	}
	return m
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Fetch returns the formatted transcript for videoID at the given interval,
// or (nil, nil) when no usable transcript exists — transcript absence never
// fails an ingest. A non-nil error indicates an unexpected transport failure
// after the configured retry was exhausted; callers treat it the same as a
// miss but may log it.
func (m *Manager) Fetch(ctx context.Context, videoID, defaultLanguage, defaultAudioLanguage string, interval int) (*ingest.Transcript, error) {
	if !videoIDPattern.MatchString(videoID) {
		return nil, ingesterr.NewInvalidInput(fmt.Sprintf("invalid video id %q", videoID))
	}

	resultKey := fmt.Sprintf("%s:%d", videoID, interval)
	if text, ok := m.resultCache.Get(resultKey); ok {
		return decodeCachedTranscript(text)
	}
	if _, ok := m.errorCache.Get(videoID); ok {
		return nil, nil
	}

	sel, err := m.fetchSelected(ctx, videoID, defaultLanguage, defaultAudioLanguage)
	if err != nil {
		if reason, known := classifyTranscriptErr(err); known {
			m.errorCache.Put(videoID, reason, 1*time.Hour)
			return nil, nil
		}
		return nil, err
	}
	if sel == nil {
		m.errorCache.Put(videoID, errReasonNoTranscript, 1*time.Hour)
		return nil, nil
	}

	formatted := formatByBlocks(sel.cues, interval)
	if formatted == "" {
		m.errorCache.Put(videoID, errReasonNoTranscript, 1*time.Hour)
		return nil, nil
	}

	m.resultCache.Put(resultKey, encodeCachedTranscript(sel.language, formatted), 1*time.Hour)
	return &ingest.Transcript{Language: sel.language, FormattedText: formatted}, nil
}

// fetchSelected lists tracks, picks the best one, and downloads its cues,
// deduplicating concurrent calls for the same video ID via singleflight.
// Dedup covers only the interval-independent fetch-and-select step;
// formatting for each interval happens per caller so two callers requesting
// different intervals for the same video don't lock each other into one
// interval's result.
func (m *Manager) fetchSelected(ctx context.Context, videoID, defaultLanguage, defaultAudioLanguage string) (*selectedCues, error) {
	if cached, ok := m.cuesCache.Get(videoID); ok {
		return &cached, nil
	}

	v, err, _ := m.group.Do(videoID, func() (interface{}, error) {
		select {
		case m.sem <- struct{}{}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		defer func() { <-m.sem }()

		fetchCtx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
		defer cancel()

		tracks, err := m.listTracksWithRetry(fetchCtx, videoID)
		if err != nil {
			return nil, err
		}
		if len(tracks) == 0 {
			return nil, nil
		}

		preferred := preferredLanguages(defaultAudioLanguage, defaultLanguage, m.cfg.PreferredLanguages)
		track, ok := selectBestTranscript(tracks, preferred)
		if !ok {
			return nil, nil
		}

		cues, err := m.fetchCuesWithRetry(fetchCtx, track)
		if err != nil {
			return nil, err
		}

		result := selectedCues{language: track.LanguageCode, cues: cues}
		m.cuesCache.Put(videoID, result, 30*time.Minute)
		return &result, nil
	})
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	return v.(*selectedCues), nil
}

// listTracksWithRetry and fetchCuesWithRetry each retry once on transport
// error with exponential backoff, distinguishing a transient transport
// failure (worth one retry) from "no transcripts"/"disabled" (cached as a
// negative result, never retried) — see DESIGN.md's Open Question #2.
// errDisabled is never retried: a disabled/region-blocked video will not
// start working mid-backoff.
func (m *Manager) listTracksWithRetry(ctx context.Context, videoID string) ([]Track, error) {
	var tracks []Track
	op := func() error {
		t, err := m.backend.ListTracks(ctx, videoID)
		if err != nil {
			if errors.Is(err, errDisabled) {
				return backoff.Permanent(err)
			}
			return err
		}
		tracks = t
		return nil
	}
	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(newTranscriptBackoff(), 1), ctx))
	return tracks, unwrapPermanent(err)
}

func (m *Manager) fetchCuesWithRetry(ctx context.Context, track Track) ([]Cue, error) {
	var cues []Cue
	op := func() error {
		c, err := m.backend.FetchCues(ctx, track)
		if err != nil {
			if errors.Is(err, errDisabled) {
				return backoff.Permanent(err)
			}
			return err
		}
		cues = c
		return nil
	}
	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(newTranscriptBackoff(), 1), ctx))
	return cues, unwrapPermanent(err)
}

func newTranscriptBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.5
	b.MaxInterval = 2 * time.Second
	return b
}

// unwrapPermanent strips backoff's *PermanentError wrapper so callers see
// the same error backend.go returns, not a backoff-internal type.
func unwrapPermanent(err error) error {
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Unwrap()
	}
	return err
}

// classifyTranscriptErr reports whether err represents a known negative
// outcome (worth a long-lived negative cache entry) as opposed to a
// transient transport failure (not cached, so a later request can retry).
func classifyTranscriptErr(err error) (reason string, known bool) {
	if errors.Is(err, errDisabled) {
		return errReasonDisabled, true
	}
	// Anything else reaching here after the retry is treated as transient
	// and left uncached so a future request tries again.
	return "", false
}

func encodeCachedTranscript(language, text string) string {
	return language + "\x00" + text
}

func decodeCachedTranscript(cached string) (*ingest.Transcript, error) {
	for i := 0; i < len(cached); i++ {
		if cached[i] == 0 {
			return &ingest.Transcript{Language: cached[:i], FormattedText: cached[i+1:]}, nil
		}
	}
	return &ingest.Transcript{FormattedText: cached}, nil
}
