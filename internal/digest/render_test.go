package digest

import (
	"strings"
	"testing"
	"time"

	"github.com/nclsjn/youtubingest/internal/ingest"
)

func TestRenderEmptyVideos(t *testing.T) {
	got := Render("Some Channel", nil, true, true)
	want := "# Source: Some Channel\n# Videos: 0\n"
	if got != want {
		t.Fatalf("Render() = %q, want %q", got, want)
	}
}

func TestRenderSingleVideoNoExtras(t *testing.T) {
	videos := []ingest.VideoRecord{
		{
			ID:           "dQw4w9WgXcQ",
			Title:        "Never Gonna Give You Up",
			ChannelTitle: "Rick Astley",
			PublishedAt:  time.Date(2009, 10, 25, 6, 57, 33, 0, time.UTC),
			Duration:     213,
		},
	}
	got := Render("Rick Astley", videos, false, false)

	if !strings.HasPrefix(got, "# Source: Rick Astley\n# Videos: 1\n\n") {
		t.Fatalf("unexpected header: %q", got)
	}
	if !strings.Contains(got, "=== [1] Never Gonna Give You Up (dQw4w9WgXcQ) ===") {
		t.Fatalf("missing video block header: %q", got)
	}
	if !strings.Contains(got, "Duration: 3:33") {
		t.Fatalf("expected M:SS duration format, got %q", got)
	}
	if !strings.Contains(got, "Tags: None") {
		t.Fatalf("expected empty tags to render as None, got %q", got)
	}
	if !strings.HasSuffix(got, "\n") || strings.HasSuffix(got, "\n\n") {
		t.Fatalf("expected exactly one trailing newline, got %q", got)
	}
	if strings.Contains(got, "Description:") || strings.Contains(got, "Transcript") {
		t.Fatalf("did not expect description/transcript sections: %q", got)
	}
}

func TestRenderWithDescriptionAndTranscript(t *testing.T) {
	videos := []ingest.VideoRecord{
		{
			ID:               "abc",
			Title:            "Title",
			DescriptionClean: "A clean description.",
			PublishedAt:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Duration:         3725,
			Transcript:       &ingest.Transcript{Language: "en", FormattedText: "[0:00] hello"},
		},
	}
	got := Render("Some Channel", videos, true, true)

	if !strings.Contains(got, "Duration: 1:02:05") {
		t.Fatalf("expected H:MM:SS duration format, got %q", got)
	}
	if !strings.Contains(got, "Description:\nA clean description.") {
		t.Fatalf("expected description section, got %q", got)
	}
	if !strings.Contains(got, "Transcript (en):\n[0:00] hello") {
		t.Fatalf("expected transcript section, got %q", got)
	}
}

func TestRenderMultipleVideosSeparatedByBlankLine(t *testing.T) {
	videos := []ingest.VideoRecord{
		{ID: "v1", Title: "First", PublishedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "v2", Title: "Second", PublishedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
	}
	got := Render("Source", videos, false, false)

	first := strings.Index(got, "=== [1]")
	second := strings.Index(got, "=== [2]")
	if first == -1 || second == -1 || second <= first {
		t.Fatalf("expected two ordered video blocks: %q", got)
	}
	between := got[strings.Index(got, "Tags: None")+len("Tags: None") : second]
	if between != "\n\n" {
		t.Fatalf("expected exactly one blank line between blocks, got %q", between)
	}
}

func TestFormatDurationBoundary(t *testing.T) {
	cases := []struct {
		seconds int
		want    string
	}{
		{0, "0:00"},
		{59, "0:59"},
		{60, "1:00"},
		{3599, "59:59"},
		{3600, "1:00:00"},
	}
	for _, tc := range cases {
		if got := formatDuration(tc.seconds); got != tc.want {
			t.Errorf("formatDuration(%d) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}
