package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		setup   func()
		cleanup func()
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name: "load with defaults (no config file)",
			setup: func() {
				viper.Reset()
			},
			cleanup: func() {},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Engine.MaxVideosPerRequest != 200 {
					t.Errorf("Engine.MaxVideosPerRequest = %d, want 200", cfg.Engine.MaxVideosPerRequest)
				}
				if cfg.Engine.EngineConcurrency != 8 {
					t.Errorf("Engine.EngineConcurrency = %d, want 8", cfg.Engine.EngineConcurrency)
				}
				if cfg.Transcript.Concurrency != 4 {
					t.Errorf("Transcript.Concurrency = %d, want 4", cfg.Transcript.Concurrency)
				}
				if cfg.Cache.DefaultCapacity != 1024 {
					t.Errorf("Cache.DefaultCapacity = %d, want 1024", cfg.Cache.DefaultCapacity)
				}
			},
		},
		{
			name: "load with environment variables",
			setup: func() {
				viper.Reset()
				viper.SetEnvPrefix("YOUTUBINGEST")
				viper.AutomaticEnv()
				os.Setenv("YOUTUBE_API_KEY", "test-key")
				os.Setenv("ENGINE_CONCURRENCY", "16")
				os.Setenv("MAX_VIDEOS_PER_REQUEST", "500")
				_ = viper.BindEnv("youtube.apikey", "YOUTUBE_API_KEY")
				_ = viper.BindEnv("engine.engineconcurrency", "ENGINE_CONCURRENCY")
				_ = viper.BindEnv("engine.maxvideosperrequest", "MAX_VIDEOS_PER_REQUEST")
			},
			cleanup: func() {
				os.Unsetenv("YOUTUBE_API_KEY")
				os.Unsetenv("ENGINE_CONCURRENCY")
				os.Unsetenv("MAX_VIDEOS_PER_REQUEST")
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				if cfg.YouTube.APIKey != "test-key" {
					t.Errorf("YouTube.APIKey = %q, want test-key", cfg.YouTube.APIKey)
				}
				if cfg.Engine.EngineConcurrency != 16 {
					t.Errorf("Engine.EngineConcurrency = %d, want 16", cfg.Engine.EngineConcurrency)
				}
				if cfg.Engine.MaxVideosPerRequest != 500 {
					t.Errorf("Engine.MaxVideosPerRequest = %d, want 500", cfg.Engine.MaxVideosPerRequest)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}
			defer func() {
				if tt.cleanup != nil {
					tt.cleanup()
				}
			}()

			cfg, err := Load()
			if (err != nil) != tt.wantErr {
				t.Errorf("Load() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr && cfg == nil {
				t.Fatal("Load() returned nil config")
			}

			if tt.check != nil && cfg != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestSetDefaults(t *testing.T) {
	viper.Reset()
	setDefaults()

	tests := []struct {
		name string
		key  string
		want interface{}
	}{
		{"youtube batchsize", "youtube.batchsize", 50},
		{"youtube retryattempts", "youtube.retryattempts", 3},
		{"engine maxvideosperrequest", "engine.maxvideosperrequest", 200},
		{"engine engineconcurrency", "engine.engineconcurrency", 8},
		{"engine mindurationseconds", "engine.mindurationseconds", 0},
		{"transcript concurrency", "transcript.concurrency", 4},
		{"transcript defaultintervalseconds", "transcript.defaultintervalseconds", 10},
		{"cache defaultcapacity", "cache.defaultcapacity", 1024},
		{"cache evictionpercent", "cache.evictionpercent", 20},
		{"logging level", "logging.level", "info"},
		{"logging file", "logging.file", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := viper.Get(tt.key)
			if got != tt.want {
				t.Errorf("viper.Get(%s) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}

	if viper.GetDuration("engine.requestdeadline") != 120*time.Second {
		t.Errorf("engine.requestdeadline = %v, want 120s", viper.GetDuration("engine.requestdeadline"))
	}
	if viper.GetDuration("youtube.circuitresettimeout") != 300*time.Second {
		t.Errorf("youtube.circuitresettimeout = %v, want 300s", viper.GetDuration("youtube.circuitresettimeout"))
	}
	if viper.GetFloat64("cache.memoryhighwaterfrac") != 0.75 {
		t.Errorf("cache.memoryhighwaterfrac = %v, want 0.75", viper.GetFloat64("cache.memoryhighwaterfrac"))
	}
}

func TestConfigStructs(t *testing.T) {
	cfg := &Config{
		YouTube: YouTubeConfig{
			APIKey:    "key",
			BatchSize: 50,
		},
		Engine: EngineConfig{
			MaxVideosPerRequest: 200,
			EngineConcurrency:   8,
		},
		Transcript: TranscriptConfig{
			Concurrency:        4,
			PreferredLanguages: []string{"en"},
		},
		Cache: CacheConfig{
			DefaultCapacity: 1024,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}

	if cfg.YouTube.APIKey != "key" {
		t.Errorf("YouTube.APIKey = %s, want key", cfg.YouTube.APIKey)
	}
	if cfg.Engine.MaxVideosPerRequest != 200 {
		t.Errorf("Engine.MaxVideosPerRequest = %d, want 200", cfg.Engine.MaxVideosPerRequest)
	}
	if len(cfg.Transcript.PreferredLanguages) != 1 || cfg.Transcript.PreferredLanguages[0] != "en" {
		t.Errorf("Transcript.PreferredLanguages = %v, want [en]", cfg.Transcript.PreferredLanguages)
	}
}
