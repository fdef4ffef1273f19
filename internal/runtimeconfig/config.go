package runtimeconfig

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	urlkit "github.com/goliatone/go-urlkit"
	"github.com/robfig/cron/v3"
)

// Media storage backends.
const (
	MediaStorageFile     = "file"
	MediaStorageSQLite3  = "sqlite3"
	MediaStorageSQLite   = "sqlite"
	MediaStoragePostgres = "postgres"
)

// Logging providers.
const (
	LoggingProviderGoLogger = "gologger"
	LoggingProviderNone     = "none"
)

// Config aggregates everything needed to assemble the engine.
type Config struct {
	DataDir string
	Storage StorageConfig
	Logging LoggingConfig
	Render  RenderConfig
	Media   MediaConfig
}

// StorageConfig selects where media records live. Every other entity is read
// from DataDir.
type StorageConfig struct {
	Media string
	DSN   string
}

// LoggingConfig captures provider-specific options for runtime logging.
type LoggingConfig struct {
	Provider  string
	Level     string
	Format    string
	AddSource bool
	Focus     []string
}

// RenderConfig controls widget resolution and template execution. Theme
// widgets are read from <ThemeWidgetsDir>/<project>/widgets/<type>, with
// ThemeWidgetsDir defaulting to the data directory.
type RenderConfig struct {
	RichTextPolicy  string
	ThemeWidgetsDir string
	URLs            URLConfig
}

// URLConfig configures page URL generation. Without a RouteConfig pages map
// to <slug>.html.
type URLConfig struct {
	RouteConfig *urlkit.Config
	Group       string
	Route       string
	SlugParam   string
}

// MediaConfig controls background maintenance of the media usage index.
type MediaConfig struct {
	RebuildSchedule string
	Watch           WatchConfig
}

// WatchConfig configures the page watcher.
type WatchConfig struct {
	Enabled  bool
	Debounce time.Duration
}

// DefaultConfig returns defaults suitable for a local data directory.
func DefaultConfig() Config {
	return Config{
		DataDir: "data",
		Storage: StorageConfig{
			Media: MediaStorageFile,
		},
		Logging: LoggingConfig{
			Provider: LoggingProviderGoLogger,
			Level:    "info",
			Format:   "console",
		},
		Render: RenderConfig{
			RichTextPolicy: "ugc",
			URLs: URLConfig{
				Route:     "page",
				SlugParam: "slug",
			},
		},
		Media: MediaConfig{
			Watch: WatchConfig{
				Debounce: 500 * time.Millisecond,
			},
		},
	}
}

// Validate checks the configuration with ozzo-validation rules.
func (cfg Config) Validate() error {
	return validation.ValidateStruct(&cfg,
		validation.Field(&cfg.DataDir, validation.By(notBlank("data directory is required"))),
		validation.Field(&cfg.Storage),
		validation.Field(&cfg.Logging),
		validation.Field(&cfg.Render),
		validation.Field(&cfg.Media),
	)
}

// Validate implements validation.Validatable.
func (c StorageConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Media, validation.In(anyValues(MediaStorageFile, MediaStorageSQLite3, MediaStorageSQLite, MediaStoragePostgres)...).
			Error("must be one of file, sqlite3, sqlite, postgres")),
		validation.Field(&c.DSN, validation.When(
			c.Media != "" && !strings.EqualFold(c.Media, MediaStorageFile),
			validation.By(notBlank("dsn is required for SQL media storage")),
		)),
	)
}

// Validate implements validation.Validatable.
func (c LoggingConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Provider, validation.In(LoggingProviderGoLogger, LoggingProviderNone)),
		validation.Field(&c.Level, validation.In("trace", "debug", "info", "warn", "warning", "error", "fatal")),
		validation.Field(&c.Format, validation.In("json", "console", "pretty")),
	)
}

// Validate implements validation.Validatable.
func (c RenderConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.RichTextPolicy, validation.In("none", "ugc", "strict")),
		validation.Field(&c.URLs),
	)
}

// Validate implements validation.Validatable.
func (c URLConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Group, validation.When(c.RouteConfig != nil, validation.By(notBlank("group is required with a route config")))),
	)
}

// Validate implements validation.Validatable.
func (c MediaConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.RebuildSchedule, validation.By(cronExpression)),
		validation.Field(&c.Watch),
	)
}

// Validate implements validation.Validatable.
func (c WatchConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
	)
}

func notBlank(message string) validation.RuleFunc {
	return func(value any) error {
		text, _ := value.(string)
		if strings.TrimSpace(text) == "" {
			return validation.NewError("pagekit.config.required", message)
		}
		return nil
	}
}

func cronExpression(value any) error {
	expr, _ := value.(string)
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	if _, err := cron.ParseStandard(expr); err != nil {
		return validation.NewError("pagekit.config.rebuild_schedule_invalid", "must be a valid cron expression")
	}
	return nil
}

func anyValues(values ...string) []any {
	out := make([]any, len(values))
	for i, value := range values {
		out[i] = value
	}
	return out
}
