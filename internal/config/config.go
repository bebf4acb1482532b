// Package config provides configuration management for the ingestion core.
package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the ingestion core.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Config struct {
	YouTube    YouTubeConfig
	Engine     EngineConfig
	Transcript TranscriptConfig
	Cache      CacheConfig
	Logging    LoggingConfig
}

// YouTubeConfig contains YouTube Data API v3 client configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type YouTubeConfig struct {
	APIKey                string
	BatchSize             int
	MinDelay              time.Duration
	MaxDelay              time.Duration
	RetryAttempts         int
	RetryBaseDelay        time.Duration
	APITimeout            time.Duration
	CircuitBreakerThresh  int
	CircuitResetTimeout   time.Duration
	CircuitHalfOpenProbes int
}

// EngineConfig contains ingestion-pipeline tuning.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type EngineConfig struct {
	MaxVideosPerRequest int
	EngineConcurrency   int
	RequestDeadline     time.Duration
	MinDurationSeconds  int
}

// TranscriptConfig contains Transcript Source configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type TranscriptConfig struct {
	Concurrency            int
	Timeout                time.Duration
	NetworkTimeout         time.Duration
	DefaultIntervalSeconds int
	PreferredLanguages     []string
}

// CacheConfig contains Bounded LRU / Cache Registry defaults.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type CacheConfig struct {
	DefaultCapacity        int
	EvictionPercent        int
	ResolveCacheSize       int
	ResolveCacheTTL        time.Duration
	PlaylistItemCacheSize  int
	PlaylistItemCacheTTL   time.Duration
	TextCleaningCacheSize  int
	MemorySoftCapMB        int
	MemoryHighWaterFrac    float64
	MemoryCheckInterval    time.Duration
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string
	File  string
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	viper.SetConfigName("youtubingest")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvPrefix("YOUTUBINGEST")
	bindEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// REQUEST_DEADLINE_SECONDS carries a bare number of seconds, which the
	// duration decoding in Unmarshal would reject for lacking a unit.
	if n, err := strconv.Atoi(viper.GetString("engine.requestdeadline")); err == nil {
		viper.Set("engine.requestdeadline", time.Duration(n)*time.Second)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	// YouTube API Client
	viper.SetDefault("youtube.apikey", "")
	viper.SetDefault("youtube.batchsize", 50)
	viper.SetDefault("youtube.mindelay", 100*time.Millisecond)
	viper.SetDefault("youtube.maxdelay", 400*time.Millisecond)
	viper.SetDefault("youtube.retryattempts", 3)
	viper.SetDefault("youtube.retrybasedelay", 1*time.Second)
	viper.SetDefault("youtube.apitimeout", 20*time.Second)
	viper.SetDefault("youtube.circuitbreakerthresh", 5)
	viper.SetDefault("youtube.circuitresettimeout", 300*time.Second)
	viper.SetDefault("youtube.circuithalfopenprobes", 3)

	// Ingestion Engine
	viper.SetDefault("engine.maxvideosperrequest", 200)
	viper.SetDefault("engine.engineconcurrency", 8)
	viper.SetDefault("engine.requestdeadline", 120*time.Second)
	viper.SetDefault("engine.mindurationseconds", 0)

	// Transcript Source
	viper.SetDefault("transcript.concurrency", 4)
	viper.SetDefault("transcript.timeout", 15*time.Second)
	viper.SetDefault("transcript.networktimeout", 30*time.Second)
	viper.SetDefault("transcript.defaultintervalseconds", 10)
	viper.SetDefault("transcript.preferredlanguages", []string{"en"})

	// Caches
	viper.SetDefault("cache.defaultcapacity", 1024)
	viper.SetDefault("cache.evictionpercent", 20)
	viper.SetDefault("cache.resolvecachesize", 128)
	viper.SetDefault("cache.resolvecachettl", 1*time.Hour)
	viper.SetDefault("cache.playlistitemcachesize", 32)
	viper.SetDefault("cache.playlistitemcachettl", 30*time.Minute)
	viper.SetDefault("cache.textcleaningcachesize", 1024)
	viper.SetDefault("cache.memorysoftcapmb", 512)
	viper.SetDefault("cache.memoryhighwaterfrac", 0.75)
	viper.SetDefault("cache.memorycheckinterval", 30*time.Second)

	// Logging
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file", "")
}

// bindEnv wires flat environment variable names onto the nested viper keys,
// since viper's AutomaticEnv does not traverse nested struct keys on its own.
func bindEnv() {
	_ = viper.BindEnv("youtube.apikey", "YOUTUBE_API_KEY")
	_ = viper.BindEnv("youtube.batchsize", "METADATA_BATCH_SIZE")
	_ = viper.BindEnv("engine.maxvideosperrequest", "MAX_VIDEOS_PER_REQUEST")
	_ = viper.BindEnv("engine.engineconcurrency", "ENGINE_CONCURRENCY")
	_ = viper.BindEnv("engine.requestdeadline", "REQUEST_DEADLINE_SECONDS")
	_ = viper.BindEnv("engine.mindurationseconds", "MIN_DURATION_SECONDS")
	_ = viper.BindEnv("transcript.concurrency", "TRANSCRIPT_CONCURRENCY")
	_ = viper.BindEnv("transcript.preferredlanguages", "PREFERRED_TRANSCRIPT_LANGUAGES")
	_ = viper.BindEnv("cache.memorysoftcapmb", "MEMORY_SOFT_CAP_MB")
	_ = viper.BindEnv("cache.memoryhighwaterfrac", "MEMORY_HIGH_WATER_FRACTION")
}
