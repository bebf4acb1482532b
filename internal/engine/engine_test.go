package engine

import (
	"context"
	"testing"
	"time"

	"github.com/nclsjn/youtubingest/internal/cache"
	"github.com/nclsjn/youtubingest/internal/config"
	"github.com/nclsjn/youtubingest/internal/ingest"
	"github.com/nclsjn/youtubingest/internal/ingesterr"
	"github.com/nclsjn/youtubingest/internal/tokenizer"
	"github.com/nclsjn/youtubingest/internal/youtube"
)

// fakeAPI is a small hand-written stand-in for *youtube.Client, built
// rather than reaching for a mocking framework.
type fakeAPI struct {
	resolveChannelID, resolveTitle, resolveUploads string
	resolveErr                                     error

	playlistTitle  string
	playlistMetaErr error

	playlistIDs    []string
	playlistIDsErr error

	searchIDs         []string
	searchFilterCount int
	searchErr         error

	videos    []youtube.RawVideo
	videosErr error
}

func (f *fakeAPI) ResolveChannel(ctx context.Context, stats *youtube.CallStats, identifier string, kind youtube.IdentifierKind) (string, string, string, error) {
	stats.Calls++
	return f.resolveChannelID, f.resolveTitle, f.resolveUploads, f.resolveErr
}

func (f *fakeAPI) GetPlaylistMetadata(ctx context.Context, stats *youtube.CallStats, playlistID string) (string, error) {
	stats.Calls++
	return f.playlistTitle, f.playlistMetaErr
}

func (f *fakeAPI) ListPlaylistVideoIDs(ctx context.Context, stats *youtube.CallStats, playlistID string, start, end *time.Time, maxItems int) ([]string, error) {
	stats.Calls++
	return f.playlistIDs, f.playlistIDsErr
}

func (f *fakeAPI) SearchVideoIDs(ctx context.Context, stats *youtube.CallStats, query string, start, end *time.Time, maxItems int) ([]string, int, error) {
	stats.Calls++
	stats.QuotaUsed += 100
	return f.searchIDs, f.searchFilterCount, f.searchErr
}

func (f *fakeAPI) GetVideos(ctx context.Context, stats *youtube.CallStats, videoIDs []string) ([]youtube.RawVideo, error) {
	stats.Calls++
	return f.videos, f.videosErr
}

type fakeTranscript struct {
	text string
	err  error
}

func (f *fakeTranscript) Fetch(ctx context.Context, videoID, defaultLanguage, defaultAudioLanguage string, interval int) (*ingest.Transcript, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.text == "" {
		return nil, nil
	}
	return &ingest.Transcript{Language: "en", FormattedText: f.text}, nil
}

func testEngine(api youtubeAPI, ts transcriptSource) *Engine {
	reg := cache.NewRegistry()
	tokens := tokenizer.New(reg, 64)
	cfg := config.EngineConfig{
		MaxVideosPerRequest: 200,
		EngineConcurrency:   4,
		RequestDeadline:     5 * time.Second,
		MinDurationSeconds:  0,
	}
	return New(api, ts, tokens, cfg, nil)
}

func TestIngestSingleVideo(t *testing.T) {
	api := &fakeAPI{
		videos: []youtube.RawVideo{
			{
				ID:           "dQw4w9WgXcQ",
				Title:        "Never Gonna Give You Up",
				Description:  "official video",
				ChannelID:    "UCabc",
				ChannelTitle: "Rick Astley",
				PublishedAt:  "2009-10-25T06:57:33Z",
				Duration:     "PT3M33S",
			},
		},
	}
	e := testEngine(api, &fakeTranscript{})

	res, err := e.Ingest(context.Background(), ingest.Request{
		URLOrQuery:         "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		TranscriptInterval: 0,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.VideoCount != 1 {
		t.Fatalf("expected 1 video, got %d", res.VideoCount)
	}
	if res.SourceName != "Never Gonna Give You Up" {
		t.Fatalf("expected source name to be the cleaned video title, got %q", res.SourceName)
	}
	if res.Videos[0].Duration != 213 {
		t.Fatalf("expected duration 213s, got %d", res.Videos[0].Duration)
	}
}

func TestIngestChannelEmptyAfterFilter(t *testing.T) {
	api := &fakeAPI{
		resolveChannelID: "UCabc",
		resolveTitle:     "Some Channel",
		resolveUploads:   "UUabc",
		playlistIDs:      []string{"aaaaaaaaaaa"},
		videos: []youtube.RawVideo{
			{ID: "aaaaaaaaaaa", Title: "Live now", PublishedAt: "2024-01-01T00:00:00Z", LiveBroadcastContent: "live"},
		},
	}
	e := testEngine(api, &fakeTranscript{})

	res, err := e.Ingest(context.Background(), ingest.Request{
		URLOrQuery: "https://www.youtube.com/channel/UC0123456789012345678901",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.VideoCount != 0 {
		t.Fatalf("expected 0 videos after filtering out the live stream, got %d", res.VideoCount)
	}
}

func TestIngestInvalidInterval(t *testing.T) {
	e := testEngine(&fakeAPI{}, &fakeTranscript{})
	_, err := e.Ingest(context.Background(), ingest.Request{
		URLOrQuery:         "some search text",
		TranscriptInterval: 15,
	})
	if _, ok := ingesterr.Classify(err).(*ingesterr.InvalidInputError); !ok {
		t.Fatalf("expected InvalidInputError, got %T (%v)", err, err)
	}
}

func TestIngestEmptyQuery(t *testing.T) {
	e := testEngine(&fakeAPI{}, &fakeTranscript{})
	_, err := e.Ingest(context.Background(), ingest.Request{URLOrQuery: ""})
	if _, ok := ingesterr.Classify(err).(*ingesterr.InvalidInputError); !ok {
		t.Fatalf("expected InvalidInputError for empty query, got %T (%v)", err, err)
	}
}

func TestIngestSearchOrdersNewestFirst(t *testing.T) {
	api := &fakeAPI{
		searchIDs: []string{"v1_________", "v2_________"},
		videos: []youtube.RawVideo{
			{ID: "v1_________", Title: "Older", PublishedAt: "2023-01-01T00:00:00Z"},
			{ID: "v2_________", Title: "Newer", PublishedAt: "2024-01-01T00:00:00Z"},
		},
	}
	e := testEngine(api, &fakeTranscript{})

	res, err := e.Ingest(context.Background(), ingest.Request{URLOrQuery: "some search text"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Videos) != 2 || res.Videos[0].Title != "Newer" {
		t.Fatalf("expected newest-first ordering for search results, got %+v", res.Videos)
	}
	if !res.HighQuotaCost {
		t.Fatalf("expected search source to carry HighQuotaCost")
	}
}

func TestIngestTranscriptIncluded(t *testing.T) {
	api := &fakeAPI{
		videos: []youtube.RawVideo{
			{ID: "dQw4w9WgXcQ", Title: "Title", PublishedAt: "2024-01-01T00:00:00Z", Duration: "PT1M0S"},
		},
	}
	e := testEngine(api, &fakeTranscript{text: "[0:00] hello world"})

	res, err := e.Ingest(context.Background(), ingest.Request{
		URLOrQuery:        "https://youtu.be/dQw4w9WgXcQ",
		IncludeTranscript: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Videos[0].Transcript == nil || res.Videos[0].Transcript.FormattedText != "[0:00] hello world" {
		t.Fatalf("expected transcript to be attached, got %+v", res.Videos[0].Transcript)
	}
}

func TestIngestInvalidURLShape(t *testing.T) {
	e := testEngine(&fakeAPI{}, &fakeTranscript{})
	_, err := e.Ingest(context.Background(), ingest.Request{URLOrQuery: "https://example.com/not-youtube"})
	if _, ok := ingesterr.Classify(err).(*ingesterr.InvalidInputError); !ok {
		t.Fatalf("expected InvalidInputError for unrecognized URL shape, got %T (%v)", err, err)
	}
}
