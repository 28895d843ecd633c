package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"ytune/internal/domain"
)

// SupportedFormats are the transcode targets accepted for --format.
var SupportedFormats = []string{"mp3", "m4a", "opus", "flac", "wav"}

// Config holds all application configuration
type Config struct {
	Cache    CacheConfig    `mapstructure:"cache"`
	Audio    AudioConfig    `mapstructure:"audio"`
	Player   PlayerConfig   `mapstructure:"player"`
	Playlist PlaylistConfig `mapstructure:"playlist"`
	API      APIConfig      `mapstructure:"api"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// CacheConfig holds cache layout configuration
type CacheConfig struct {
	Dir     string `mapstructure:"dir"`      // Cache root directory
	DedupID bool   `mapstructure:"dedup_by_id"` // Drop flat duplicates of per-track dir entries
}

// AudioConfig holds download/transcode configuration
type AudioConfig struct {
	Format        string `mapstructure:"format"`         // Transcode target (mp3, m4a, opus, flac, wav)
	Native        bool   `mapstructure:"native"`         // Skip conversion, keep source container
	EmbedMetadata bool   `mapstructure:"embed_metadata"` // Embed tags and thumbnail
	Quality       string `mapstructure:"quality"`        // ffmpeg audio quality hint
}

// PlayerConfig holds playback configuration
type PlayerConfig struct {
	Command string  `mapstructure:"command"` // Preferred player binary (mpv/ffplay/afplay)
	Volume  float64 `mapstructure:"volume"`  // 0.0-1.0, negative means player default
}

// PlaylistConfig holds playlist browse configuration
type PlaylistConfig struct {
	Prefetch int `mapstructure:"prefetch"` // How many upcoming tracks to prefetch
}

// APIConfig holds the metadata provider credential
type APIConfig struct {
	Key string `mapstructure:"key"` // YouTube Data API key
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Cache: CacheConfig{
			Dir:     defaultCacheDir(),
			DedupID: false,
		},
		Audio: AudioConfig{
			Format:        "mp3",
			EmbedMetadata: true,
		},
		Player: PlayerConfig{
			Volume: -1,
		},
		Playlist: PlaylistConfig{
			Prefetch: 3,
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

func defaultCacheDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "Music", "yt-audio")
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "ytune", "ytune.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "ytune", "ytune.log")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "ytune")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "ytune")
	}
}

// Load loads configuration from file and environment
func Load() (*Config, error) {
	cfg := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(defaultConfigPath())
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("YTUNE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the current configuration to the config file
func Save(cfg *Config) error {
	configPath := defaultConfigPath()
	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Set fields individually to keep snake_case key names
	viper.Set("cache.dir", cfg.Cache.Dir)
	viper.Set("cache.dedup_by_id", cfg.Cache.DedupID)
	viper.Set("audio.format", cfg.Audio.Format)
	viper.Set("audio.native", cfg.Audio.Native)
	viper.Set("audio.embed_metadata", cfg.Audio.EmbedMetadata)
	viper.Set("audio.quality", cfg.Audio.Quality)
	viper.Set("player.command", cfg.Player.Command)
	viper.Set("player.volume", cfg.Player.Volume)
	viper.Set("playlist.prefetch", cfg.Playlist.Prefetch)
	viper.Set("api.key", cfg.API.Key)
	viper.Set("logging.file", cfg.Logging.File)
	viper.Set("logging.level", cfg.Logging.Level)

	configFile := filepath.Join(configPath, "config.yaml")
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ValidateFormat checks a requested transcode target.
func ValidateFormat(format string) error {
	f := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(format, ".")))
	for _, s := range SupportedFormats {
		if f == s {
			return nil
		}
	}
	return fmt.Errorf("%w: %s (supported: %s)", domain.ErrUnsupportedFormat, format, strings.Join(SupportedFormats, ", "))
}

// NormalizeFormat lowercases and strips a leading dot from a format name.
func NormalizeFormat(format string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(format, ".")))
}
