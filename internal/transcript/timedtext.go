package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"
)

// TimedTextBackend fetches caption track listings and cues from YouTube's
// unofficial timedtext surface: the watch page embeds a captionTracks JSON
// array, and each track's baseUrl serves cues as JSON3 when &fmt=json3 is
// appended. No generated or official client library covers this endpoint,
// so plain net/http is used end to end — see DESIGN.md.
type TimedTextBackend struct {
	client *http.Client
}

// NewTimedTextBackend builds a backend with the given per-call network
// timeout, kept distinct from the overall fetch timeout so a single slow
// HTTP round trip can be capped independently of the whole-fetch budget.
func NewTimedTextBackend(networkTimeout time.Duration) *TimedTextBackend {
	return &TimedTextBackend{client: &http.Client{Timeout: networkTimeout}}
}

var captionTracksPattern = regexp.MustCompile(`"captionTracks":(\[[^\]]*\])`)

// playabilityStatusPattern pulls the playabilityStatus.status field YouTube
// embeds alongside player config. LOGIN_REQUIRED and ERROR cover age-gated
// and region-blocked videos; UNPLAYABLE covers removed or disabled-embedding
// videos. None of these have a captionTracks array to find, but the reason
// is worth keeping distinct from an ordinary "no transcripts" video.
var playabilityStatusPattern = regexp.MustCompile(`"playabilityStatus":\{"status":"(LOGIN_REQUIRED|ERROR|UNPLAYABLE)"`)

type rawCaptionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
	Name         struct {
		SimpleText string `json:"simpleText"`
	} `json:"name"`
}

// ListTracks scrapes the watch page for the captionTracks array YouTube
// embeds in its player config.
func (b *TimedTextBackend) ListTracks(ctx context.Context, videoID string) ([]Track, error) {
	url := fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("timedtext: watch page returned status %d", resp.StatusCode)
	}

	match := captionTracksPattern.FindSubmatch(body)
	if match == nil {
		if m := playabilityStatusPattern.FindSubmatch(body); m != nil {
			return nil, fmt.Errorf("timedtext: playability status %s: %w", m[1], errDisabled)
		}
		return nil, nil // no captions available, not an error
	}

	var raw []rawCaptionTrack
	if err := json.Unmarshal(match[1], &raw); err != nil {
		return nil, fmt.Errorf("timedtext: parse captionTracks: %w", err)
	}

	tracks := make([]Track, 0, len(raw))
	for _, r := range raw {
		tracks = append(tracks, Track{
			LanguageCode: r.LanguageCode,
			Name:         r.Name.SimpleText,
			IsGenerated:  r.Kind == "asr",
			baseURL:      r.BaseURL,
		})
	}
	return tracks, nil
}

type json3Response struct {
	Events []json3Event `json:"events"`
}

type json3Event struct {
	TStartMs  float64    `json:"tStartMs"`
	DDuration float64    `json:"dDurationMs"`
	Segs      []json3Seg `json:"segs"`
}

type json3Seg struct {
	UTF8 string `json:"utf8"`
}

// FetchCues downloads the chosen track's cues in YouTube's json3 format.
func (b *TimedTextBackend) FetchCues(ctx context.Context, track Track) ([]Cue, error) {
	if track.baseURL == "" {
		return nil, fmt.Errorf("timedtext: track %q has no baseUrl", track.LanguageCode)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, track.baseURL+"&fmt=json3", nil)
	if err != nil {
		return nil, err
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("timedtext: cue fetch returned status %d", resp.StatusCode)
	}

	var parsed json3Response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("timedtext: parse cues: %w", err)
	}

	cues := make([]Cue, 0, len(parsed.Events))
	for _, e := range parsed.Events {
		var text string
		for _, s := range e.Segs {
			text += s.UTF8
		}
		if text == "" {
			continue
		}
		cues = append(cues, Cue{
			Start:    e.TStartMs / 1000.0,
			Duration: e.DDuration / 1000.0,
			Text:     text,
		})
	}
	return cues, nil
}
