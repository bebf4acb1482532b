// Package digest implements digest assembly: a pure function turning a
// resolved source name and a slice of video records into the final
// newline-separated UTF-8 document. No I/O, no logging, fully
// deterministic.
package digest

import (
	"fmt"
	"strings"
	"time"

	"github.com/nclsjn/youtubingest/internal/ingest"
)

// Render builds digest_text from (sourceDisplayName, videos,
// includeDescription, includeTranscript). The result is a pure function of
// its arguments: same inputs, same bytes, every time.
func Render(sourceDisplayName string, videos []ingest.VideoRecord, includeDescription, includeTranscript bool) string {
	header := fmt.Sprintf("# Source: %s\n# Videos: %d\n", sourceDisplayName, len(videos))
	if len(videos) == 0 {
		return header
	}

	blocks := make([]string, len(videos))
	for i, v := range videos {
		blocks[i] = renderBlock(i+1, v, includeDescription, includeTranscript)
	}
	return header + "\n" + strings.Join(blocks, "\n\n") + "\n"
}

func renderBlock(index int, v ingest.VideoRecord, includeDescription, includeTranscript bool) string {
	lines := []string{
		fmt.Sprintf("=== [%d] %s (%s) ===", index, v.Title, v.ID),
		fmt.Sprintf("URL: https://youtu.be/%s", v.ID),
		fmt.Sprintf("Channel: %s", v.ChannelTitle),
		fmt.Sprintf("Published: %s", formatPublished(v.PublishedAt)),
		fmt.Sprintf("Duration: %s", formatDuration(v.Duration)),
		fmt.Sprintf("Tags: %s", formatTags(v.Tags)),
	}

	if includeDescription && v.DescriptionClean != "" {
		lines = append(lines, "", "Description:", v.DescriptionClean)
	}
	if includeTranscript && v.Transcript != nil {
		lines = append(lines, "", fmt.Sprintf("Transcript (%s):", v.Transcript.Language), v.Transcript.FormattedText)
	}

	return strings.Join(lines, "\n")
}

func formatPublished(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTags(tags []string) string {
	if len(tags) == 0 {
		return "None"
	}
	return strings.Join(tags, ", ")
}

// formatDuration renders seconds as H:MM:SS when at least one hour has
// elapsed, M:SS otherwise.
func formatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
