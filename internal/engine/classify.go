package engine

import (
	"regexp"
	"strings"

	"github.com/nclsjn/youtubingest/internal/ingest"
	"github.com/nclsjn/youtubingest/internal/youtube"
)

// classification is the tagged-union output of classify, carrying just
// enough extracted identifier information for the engine's resolve stage
// to act on.
type classification struct {
	kind              ingest.SourceKind
	videoID           string
	playlistID        string
	channelIdentifier string
	channelKind       youtube.IdentifierKind
	query             string
}

var (
	watchVParam = regexp.MustCompile(`[?&]v=([a-zA-Z0-9_-]{11})`)
	youtuBeID   = regexp.MustCompile(`youtu\.be/([a-zA-Z0-9_-]{11})`)
	shortsID    = regexp.MustCompile(`/shorts/([a-zA-Z0-9_-]{11})`)
	embedID     = regexp.MustCompile(`/embed/([a-zA-Z0-9_-]{11})`)
	listParam   = regexp.MustCompile(`[?&]list=([a-zA-Z0-9_-]+)`)
	channelID   = regexp.MustCompile(`/channel/(UC[0-9A-Za-z_-]{22})`)
	customPath  = regexp.MustCompile(`/c/([A-Za-z0-9_.-]+)`)
	userPath    = regexp.MustCompile(`/user/([A-Za-z0-9_.-]+)`)

	urlLike = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://|www\.|\.[a-zA-Z]{2,}(/|\?|$)`)
)

// classify applies an ordered, total sequence of pattern tests: video
// shapes first, then playlist, then the four channel-reference shapes,
// then a URL-shaped-but-unrecognized rejection, falling through to
// free-text search as the default.
func classify(urlOrQuery string) classification {
	s := strings.TrimSpace(urlOrQuery)

	if m := watchVParam.FindStringSubmatch(s); m != nil {
		return classification{kind: ingest.SourceVideo, videoID: m[1]}
	}
	if m := youtuBeID.FindStringSubmatch(s); m != nil {
		return classification{kind: ingest.SourceVideo, videoID: m[1]}
	}
	if m := shortsID.FindStringSubmatch(s); m != nil {
		return classification{kind: ingest.SourceVideo, videoID: m[1]}
	}
	if m := embedID.FindStringSubmatch(s); m != nil {
		return classification{kind: ingest.SourceVideo, videoID: m[1]}
	}

	if m := listParam.FindStringSubmatch(s); m != nil {
		return classification{kind: ingest.SourcePlaylist, playlistID: m[1]}
	}

	if m := channelID.FindStringSubmatch(s); m != nil {
		return classification{kind: ingest.SourceChannel, channelIdentifier: m[1], channelKind: youtube.IdentifierChannelID}
	}
	if handle, ok := extractHandle(s); ok {
		return classification{kind: ingest.SourceChannel, channelIdentifier: handle, channelKind: youtube.IdentifierHandle}
	}
	if m := customPath.FindStringSubmatch(s); m != nil {
		return classification{kind: ingest.SourceChannel, channelIdentifier: m[1], channelKind: youtube.IdentifierCustom}
	}
	if m := userPath.FindStringSubmatch(s); m != nil {
		return classification{kind: ingest.SourceChannel, channelIdentifier: m[1], channelKind: youtube.IdentifierUser}
	}

	if urlLike.MatchString(s) {
		return classification{kind: invalidKind}
	}

	return classification{kind: ingest.SourceSearch, query: s}
}

// invalidKind marks a URL-shaped-but-unrecognized input; it is not one of
// ingest.SourceKind's four values, which is exactly the point — resolve()
// checks for it explicitly and rejects with InvalidInput before touching
// any component.
const invalidKind ingest.SourceKind = -1

// extractHandle recognizes a bare "@handle" or a "/@handle" path segment,
// trimming at the next path/query/fragment delimiter.
func extractHandle(s string) (string, bool) {
	if strings.HasPrefix(s, "@") {
		return trimDelimiters(s[1:]), true
	}
	if idx := strings.Index(s, "/@"); idx != -1 {
		return trimDelimiters(s[idx+2:]), true
	}
	return "", false
}

func trimDelimiters(s string) string {
	if i := strings.IndexAny(s, "/?&#"); i != -1 {
		s = s[:i]
	}
	return s
}
