package engine

import (
	"context"
	"fmt"

	"github.com/nclsjn/youtubingest/internal/ingest"
	"github.com/nclsjn/youtubingest/internal/ingesterr"
	"github.com/nclsjn/youtubingest/internal/youtube"
)

// resolve turns a classification into a ResolvedSource (canonical ID,
// display name, quota-cost flag) and an ordered, possibly-duplicated
// sequence of candidate video IDs.
func (e *Engine) resolve(ctx context.Context, cls classification, req ingest.Request, stats *youtube.CallStats) (ingest.ResolvedSource, []string, error) {
	switch cls.kind {
	case ingest.SourceVideo:
		return e.resolveVideo(cls)
	case ingest.SourcePlaylist:
		return e.resolvePlaylist(ctx, cls, req, stats)
	case ingest.SourceChannel:
		return e.resolveChannel(ctx, cls, req, stats)
	case ingest.SourceSearch:
		return e.resolveSearch(ctx, cls, req, stats)
	default:
		return ingest.ResolvedSource{}, nil, ingesterr.NewInvalidInput(
			fmt.Sprintf("invalid or unrecognized URL/term format: %q", req.URLOrQuery))
	}
}

// resolveVideo has nothing to fetch: the display name is not known until
// metadata is retrieved later, so DisplayName is left empty here and filled
// in from the cleaned title once normalization completes (see engine.go's
// run()).
func (e *Engine) resolveVideo(cls classification) (ingest.ResolvedSource, []string, error) {
	return ingest.ResolvedSource{
		Kind:        ingest.SourceVideo,
		CanonicalID: cls.videoID,
	}, []string{cls.videoID}, nil
}

func (e *Engine) resolvePlaylist(ctx context.Context, cls classification, req ingest.Request, stats *youtube.CallStats) (ingest.ResolvedSource, []string, error) {
	title, err := e.api.GetPlaylistMetadata(ctx, stats, cls.playlistID)
	if err != nil {
		return ingest.ResolvedSource{}, nil, err
	}
	ids, err := e.api.ListPlaylistVideoIDs(ctx, stats, cls.playlistID, req.StartDate, req.EndDate, e.cfg.MaxVideosPerRequest)
	if err != nil {
		return ingest.ResolvedSource{}, nil, err
	}
	return ingest.ResolvedSource{
		Kind:        ingest.SourcePlaylist,
		CanonicalID: cls.playlistID,
		DisplayName: title,
	}, ids, nil
}

func (e *Engine) resolveChannel(ctx context.Context, cls classification, req ingest.Request, stats *youtube.CallStats) (ingest.ResolvedSource, []string, error) {
	chanID, title, uploadsPlaylistID, err := e.api.ResolveChannel(ctx, stats, cls.channelIdentifier, cls.channelKind)
	if err != nil {
		return ingest.ResolvedSource{}, nil, err
	}
	ids, err := e.api.ListPlaylistVideoIDs(ctx, stats, uploadsPlaylistID, req.StartDate, req.EndDate, e.cfg.MaxVideosPerRequest)
	if err != nil {
		return ingest.ResolvedSource{}, nil, err
	}
	return ingest.ResolvedSource{
		Kind:        ingest.SourceChannel,
		CanonicalID: chanID,
		DisplayName: title,
	}, ids, nil
}

func (e *Engine) resolveSearch(ctx context.Context, cls classification, req ingest.Request, stats *youtube.CallStats) (ingest.ResolvedSource, []string, error) {
	ids, filterCount, err := e.api.SearchVideoIDs(ctx, stats, cls.query, req.StartDate, req.EndDate, e.cfg.MaxVideosPerRequest)
	if err != nil {
		return ingest.ResolvedSource{}, nil, err
	}
	return ingest.ResolvedSource{
		Kind:          ingest.SourceSearch,
		CanonicalID:   cls.query,
		DisplayName:   searchDisplayName(cls.query, filterCount),
		HighQuotaCost: true,
	}, ids, nil
}

func searchDisplayName(query string, filterCount int) string {
	if filterCount <= 0 {
		return query
	}
	plural := "s"
	if filterCount == 1 {
		plural = ""
	}
	return fmt.Sprintf("%s (%d filter%s applied)", query, filterCount, plural)
}

// dedupeIDs removes duplicate video IDs, keeping the first occurrence and
// recording each surviving ID's position. Uses an explicit seen-map plus
// ordered append rather than anything keyed on map iteration order, which
// Go does not guarantee to be stable.
func dedupeIDs(ids []string) (ordered []string, originIndex map[string]int) {
	seen := make(map[string]bool, len(ids))
	ordered = make([]string, 0, len(ids))
	originIndex = make(map[string]int, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		originIndex[id] = len(ordered)
		ordered = append(ordered, id)
	}
	return ordered, originIndex
}
