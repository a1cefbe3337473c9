package core

import (
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultMarket is the market used to scope artist top tracks.
	DefaultMarket = "US"
	// DefaultCodec is the audio codec yt-dlp extracts to.
	DefaultCodec = "m4a"
	// DefaultDurationToleranceSecs is the +- window around the catalog duration a candidate must fit.
	DefaultDurationToleranceSecs = 5
	// DefaultMaxResults caps the candidates considered per search source.
	DefaultMaxResults = 10
	// DefaultRedirectURL is the local callback of the browser login flow.
	DefaultRedirectURL = "http://127.0.0.1:8888/callback"
	// DefaultDedupCapacity bounds the per-run dedup store.
	DefaultDedupCapacity = 10000
	// DefaultDedupFalsePositiveRate is the bloom filter false positive rate of the dedup store.
	DefaultDedupFalsePositiveRate = 0.001
)

type Config struct {
	Spotify  SpotifyConfig
	Download DownloadConfig
	Server   ServerConfig
	Log      LogConfig
	App      AppConfig
}

type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	TokenPath    string
	Market       string
}

type DownloadConfig struct {
	OutputDir             string
	Codec                 string
	Format                string
	YTDLPPath             string
	DurationToleranceSecs int
	MaxResults            int
}

type ServerConfig struct {
	// MetricsAddr is host:port of the metrics endpoint; empty disables it.
	MetricsAddr  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type AppConfig struct {
	SearchType             EntityType
	Slice                  string
	AssumeYes              bool
	Language               string
	DedupCapacity          int
	DedupFalsePositiveRate float64
}

func DefaultConfig() *Config {
	return &Config{
		Spotify: SpotifyConfig{
			RedirectURL: DefaultRedirectURL,
			TokenPath:   DefaultTokenPath(),
			Market:      DefaultMarket,
		},
		Download: DownloadConfig{
			OutputDir:             ".",
			Codec:                 DefaultCodec,
			Format:                DefaultFormat,
			YTDLPPath:             "yt-dlp",
			DurationToleranceSecs: DefaultDurationToleranceSecs,
			MaxResults:            DefaultMaxResults,
		},
		Server: ServerConfig{
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
		App: AppConfig{
			SearchType:             EntityTrack,
			Slice:                  ":",
			Language:               "en",
			DedupCapacity:          DefaultDedupCapacity,
			DedupFalsePositiveRate: DefaultDedupFalsePositiveRate,
		},
	}
}

// DefaultTokenPath returns the per-user location of the stored login token.
func DefaultTokenPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "spotify-dlp-token.json")
	}
	return filepath.Join(dir, "spotify-dlp", "token.json")
}
