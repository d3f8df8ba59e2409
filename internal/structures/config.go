package structures

import (
	"net/http"
	"time"
)

type CliFlags struct {
	ConfigPath string
	DebugMode  bool
}

type Route struct {
	Method  string
	Url     string
	Handler http.Handler
}

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1"`
}

type Author struct {
	Name  string `yaml:"name" validate:"required"`
	Email string `yaml:"email" validate:"required|email"`
}

type RepositoryConfig struct {
	Path             string `yaml:"path" validate:"required|unixPath"`
	Publish          bool   `yaml:"publish"`
	Remote           string `yaml:"remote"`
	Author           Author `yaml:"author"`
	LinkSnapshotID   bool   `yaml:"linkSnapshotId" mapstructure:"linkSnapshotId"`
	SnapshotIDPrefix string `yaml:"snapshotIdPrefix" mapstructure:"snapshotIdPrefix"`
}

type FetcherConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	Language  string        `yaml:"language"`
	UserAgent string        `yaml:"userAgent" mapstructure:"userAgent"`
}

type TrackedDocument struct {
	Service string `yaml:"service" validate:"required"`
	Type    string `yaml:"type" validate:"required"`
	URL     string `yaml:"url" validate:"required|fullUrl"`
}

type TrackerConfig struct {
	Interval    time.Duration     `yaml:"interval" validate:"required|min:1"`
	Concurrency int               `yaml:"concurrency"`
	Documents   []TrackedDocument `yaml:"documents"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required|unixPath"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size"`
	TTL     time.Duration `yaml:"ttl"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type ExportConfig struct {
	FilePath string `yaml:"filePath" mapstructure:"filePath"`
	// Schedule is a cron spec with a seconds field, e.g. "0 0 3 * * *".
	Schedule string `yaml:"schedule"`
	// Timeout bounds the export run on shutdown.
	Timeout time.Duration `yaml:"timeout"`
}

type Config struct {
	AppName    string
	Debug      bool
	Path       string
	WebServer  Server           `yaml:"webServer" mapstructure:"webServer"`
	Repository RepositoryConfig `yaml:"repository"`
	Fetcher    FetcherConfig    `yaml:"fetcher"`
	Tracker    TrackerConfig    `yaml:"tracker"`
	Logger     LoggerConfig     `yaml:"logger"`
	Cache      CacheConfig      `yaml:"cache"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Export     ExportConfig     `yaml:"export"`
}
