package config

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/tvmirror/playlist-mirror/internal/apperrors"
)

// DefaultUserAgent is the default User-Agent string sent with all HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:147.0) Gecko/20100101 Firefox/147.0"

// Defaults applied when neither the config file nor the environment set a value.
const (
	DefaultIconHost      = "epg.one"
	DefaultPlaylistDir   = "playlists"
	DefaultSquareIconDir = "img"
	DefaultRectIconDir   = "img2"
	DefaultWorkers       = 50
	DefaultBatchSize     = 50
)

// mirrorURLPrefix and mirrorURLSuffix frame the configured repository to form
// the base URL rewritten icon references point at.
const (
	mirrorURLPrefix = "https://raw.githubusercontent.com/"
	mirrorURLSuffix = "/master/img/"
)

// defaultSources are the playlists mirrored when none are configured.
var defaultSources = []string{
	"http://epg.one/edem_epg_ico.m3u8",
	"http://epg.one/edem_epg_ico2.m3u8",
	"http://epg.one/edem_epg_ico3.m3u8",
}

type Config struct {
	Repository            string   `mapstructure:"repository"`
	MirrorBase            string   `mapstructure:"mirror_base"` // Overrides the derived mirror base URL, must end with a slash
	ProxyConnectionString string   `mapstructure:"proxy_connection_string"`
	IconHost              string   `mapstructure:"icon_host"`
	Sources               []string `mapstructure:"sources"`
	PlaylistDir           string   `mapstructure:"playlist_dir"`
	SquareIconDir         string   `mapstructure:"square_icon_dir"`
	RectIconDir           string   `mapstructure:"rect_icon_dir"`
	PlaylistTimeout       string   `mapstructure:"playlist_timeout"` // Go duration string like "60s", "2m", etc.
	GlobalTimeout         string   `mapstructure:"global_timeout"`   // Go duration string, budget for the whole icon run
	IconTimeout           string   `mapstructure:"icon_timeout"`     // Go duration string, per-icon request budget
	BatchWait             string   `mapstructure:"batch_wait"`       // Go duration string, harvest wait per batch
	Workers               int      `mapstructure:"workers"`
	BatchSize             int      `mapstructure:"batch_size"`
	RateLimit             float64  `mapstructure:"rate_limit"` // Icon requests per second, 0 disables limiting
	UserAgent             string   `mapstructure:"user_agent"`
	LogLevel              string   `mapstructure:"log_level"`
	SentryDSN             string   `mapstructure:"sentry_dsn"`
	Metrics               struct {
		Enabled bool   `mapstructure:"enabled"`
		Port    int    `mapstructure:"port"`
		Address string `mapstructure:"address"`
	} `mapstructure:"metrics"`
}

var (
	globalConfig *Config
	logger       zerolog.Logger
)

func init() {
	// Initialize zerolog with console writer for human-readable output
	logger = zerolog.New(zerolog.ConsoleWriter{
		Out:     os.Stdout,
		NoColor: false,
	}).With().Timestamp().Logger()
}

// LoadConfig reads the configuration from the given file path, or from the
// default search paths when path is empty, applies defaults and configures
// the global log level.
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	// Environment variable support
	viper.AutomaticEnv()
	viper.SetEnvPrefix("MIRROR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// GITHUB_REPOSITORY is what Actions runners export, keep it as a fallback
	_ = viper.BindEnv("repository", "MIRROR_REPOSITORY", "GITHUB_REPOSITORY")
	_ = viper.BindEnv("log_level", "MIRROR_LOG_LEVEL", "LOG_LEVEL")
	_ = viper.BindEnv("sentry_dsn", "MIRROR_SENTRY_DSN", "SENTRY_DSN")

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	applyDefaults(&config)
	configureLogging(&config)

	globalConfig = &config
	logger.Info().Msg("Configuration loaded successfully")

	return &config, nil
}

func applyDefaults(config *Config) {
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	if config.IconHost == "" {
		config.IconHost = DefaultIconHost
	}
	if len(config.Sources) == 0 {
		config.Sources = append([]string(nil), defaultSources...)
	}
	if config.PlaylistDir == "" {
		config.PlaylistDir = DefaultPlaylistDir
	}
	if config.SquareIconDir == "" {
		config.SquareIconDir = DefaultSquareIconDir
	}
	if config.RectIconDir == "" {
		config.RectIconDir = DefaultRectIconDir
	}
	if config.Workers <= 0 {
		config.Workers = DefaultWorkers
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}
}

func configureLogging(config *Config) {
	// Parse and set log level from config
	level := zerolog.InfoLevel // default
	if config.LogLevel != "" {
		if parsedLevel, err := zerolog.ParseLevel(config.LogLevel); err == nil {
			level = parsedLevel
		} else {
			logger.Warn().Str("invalid_level", config.LogLevel).Msg("Invalid log level, using default 'info'")
		}
	}

	// Set the global log level
	zerolog.SetGlobalLevel(level)

	// Update logger with the configured level
	logger = logger.Level(level)

	logger.Info().Str("level", level.String()).Msg("Logging configured")
}

// Validate reports whether the configuration can drive a mirror run.
func (c *Config) Validate() error {
	if c.Repository == "" && c.MirrorBase == "" {
		return &apperrors.ErrMissingRepository{}
	}

	return nil
}

// MirrorBaseURL returns the base URL rewritten icon references point at:
// the configured mirror_base when set, otherwise derived from the repository.
func (c *Config) MirrorBaseURL() string {
	if c.MirrorBase != "" {
		return c.MirrorBase
	}

	return mirrorURLPrefix + c.Repository + mirrorURLSuffix
}

func GetConfig() *Config {
	return globalConfig
}

func GetUserAgent() string {
	if globalConfig != nil && globalConfig.UserAgent != "" {
		return globalConfig.UserAgent
	}

	return DefaultUserAgent
}

func GetLogger() zerolog.Logger {
	return logger
}
