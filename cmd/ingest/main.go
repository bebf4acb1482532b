// Command ingest is a CLI entrypoint over the ingestion core: it wires
// config, logging, the YouTube API Client, the Transcript Source, the Cache
// Registry, and the Memory Monitor together, runs one Ingestion Engine call
// against its arguments, and prints the resulting digest to stdout.
//
// Wiring: load config, build collaborators, install a signal handler, shut
// down gracefully on SIGINT/SIGTERM, run one ingest, cancelable, and exit.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nclsjn/youtubingest/internal/cache"
	"github.com/nclsjn/youtubingest/internal/config"
	"github.com/nclsjn/youtubingest/internal/engine"
	"github.com/nclsjn/youtubingest/internal/ingest"
	"github.com/nclsjn/youtubingest/internal/ingesterr"
	"github.com/nclsjn/youtubingest/internal/memmon"
	"github.com/nclsjn/youtubingest/internal/tokenizer"
	"github.com/nclsjn/youtubingest/internal/transcript"
	"github.com/nclsjn/youtubingest/internal/youtube"
	"github.com/nclsjn/youtubingest/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	urlOrQuery := flag.String("source", "", "a YouTube video/playlist/channel URL, @handle, or free-text search query")
	includeTranscript := flag.Bool("transcript", true, "include transcripts in the digest")
	includeDescription := flag.Bool("description", true, "include cleaned descriptions in the digest")
	interval := flag.Int("interval", 10, "transcript timestamp interval in seconds (0, 10, 20, 30, or 60)")
	startDate := flag.String("start-date", "", "only include videos published on or after this date (YYYY-MM-DD)")
	endDate := flag.String("end-date", "", "only include videos published on or before this date (YYYY-MM-DD)")
	flag.Parse()

	if *urlOrQuery == "" && flag.NArg() > 0 {
		*urlOrQuery = flag.Arg(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Named("cmd.ingest")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := cache.NewRegistry()

	youtubeClient, err := youtube.New(ctx, cfg.YouTube, reg, logger.Named("youtube"))
	if err != nil {
		log.Error("failed to initialize YouTube API client", zap.Error(err))
		os.Exit(1)
	}

	backend := transcript.NewTimedTextBackend(cfg.Transcript.NetworkTimeout)
	transcriptManager := transcript.New(backend, cfg.Transcript, reg, logger.Named("transcript"))

	tokens := tokenizer.New(reg, cfg.Cache.TextCleaningCacheSize)

	eng := engine.New(youtubeClient, transcriptManager, tokens, cfg.Engine, logger.Named("engine"))

	softCapBytes := uint64(cfg.Cache.MemorySoftCapMB) * 1024 * 1024
	monitor, err := memmon.New(reg, softCapBytes, cfg.Cache.MemoryHighWaterFrac, cfg.Cache.MemoryCheckInterval, logger.Named("memmon"), youtubeClient.BreakerStates)
	if err != nil {
		log.Warn("failed to initialize memory monitor, continuing without it", zap.Error(err))
	} else {
		go monitor.Run(ctx)
	}

	req := ingest.Request{
		URLOrQuery:         *urlOrQuery,
		IncludeTranscript:  *includeTranscript,
		IncludeDescription: *includeDescription,
		TranscriptInterval: *interval,
	}
	if req.StartDate, err = parseDateFlag(*startDate); err != nil {
		fmt.Fprintf(os.Stderr, "invalid --start-date: %v\n", err)
		os.Exit(1)
	}
	if req.EndDate, err = parseDateFlag(*endDate); err != nil {
		fmt.Fprintf(os.Stderr, "invalid --end-date: %v\n", err)
		os.Exit(1)
	}

	result, err := eng.Ingest(ctx, req)
	if err != nil {
		resp := ingesterr.ToResponse(err)
		fmt.Fprintf(os.Stderr, "ingest failed: [%s] %s\n", resp.Code, resp.Message)
		os.Exit(1)
	}

	fmt.Println(result.DigestText)
	log.Info("ingest complete",
		zap.Int("video_count", result.VideoCount),
		zap.Int("token_count", result.TokenCount),
		zap.Int("api_call_count", result.APICallCount),
		zap.Int("api_quota_used", result.APIQuotaUsed),
	)
}

func parseDateFlag(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
