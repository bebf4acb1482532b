package engine

import (
	"sort"
	"time"

	"github.com/nclsjn/youtubingest/internal/ingest"
)

// liveBroadcastActive matches YouTube's liveBroadcastContent values for
// streams that have not finished yet; such videos carry no final transcript
// or duration and are dropped during filtering.
func liveBroadcastActive(content string) bool {
	return content == "live" || content == "upcoming"
}

// filterVideos drops videos outside [startDate, endDate] (end-of-day
// inclusive), live/upcoming broadcasts, and videos shorter than
// minDurationSeconds. Order is preserved; callers order afterward.
func filterVideos(videos []ingest.VideoRecord, startDate, endDate *time.Time, minDurationSeconds int) []ingest.VideoRecord {
	out := make([]ingest.VideoRecord, 0, len(videos))
	for _, v := range videos {
		if liveBroadcastActive(v.LiveBroadcastContent) {
			continue
		}
		if startDate != nil && v.PublishedAt.Before(*startDate) {
			continue
		}
		if endDate != nil && v.PublishedAt.After(endOfDay(*endDate)) {
			continue
		}
		if v.Duration < minDurationSeconds {
			continue
		}
		out = append(out, v)
	}
	return out
}

// endOfDay pushes a date boundary to 23:59:59.999999999 so an end_date of
// "2024-01-15" includes videos published any time that day, not just at
// midnight.
func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, t.Location())
}

// orderVideos applies DESIGN.md Open Question #3: Playlist and Video
// sources preserve the provider's natural order (origin_index ascending,
// i.e. playlist position / the single resolved video), while Channel and
// Search sources are sorted newest-first by published_at, since those two
// kinds draw from an unordered or relevance-ordered API result set that the
// digest should instead present chronologically.
func orderVideos(kind ingest.SourceKind, videos []ingest.VideoRecord) []ingest.VideoRecord {
	sorted := make([]ingest.VideoRecord, len(videos))
	copy(sorted, videos)

	switch kind {
	case ingest.SourcePlaylist, ingest.SourceVideo:
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].OriginIndex < sorted[j].OriginIndex
		})
	case ingest.SourceChannel, ingest.SourceSearch:
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].PublishedAt.After(sorted[j].PublishedAt)
		})
	}
	return sorted
}
