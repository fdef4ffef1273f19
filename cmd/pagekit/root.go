package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-pagekit"
)

type globalOptions struct {
	dataDir      string
	mediaStorage string
	dsn          string
	logLevel     string
	logFormat    string
	quiet        bool
}

var moduleBuilder = func(cfg pagekit.Config) (*pagekit.Module, error) {
	return pagekit.New(cfg)
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}
	defaults := pagekit.DefaultConfig()

	root := &cobra.Command{
		Use:           "pagekit",
		Short:         "Render widget pages and maintain the media usage index",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.StringVarP(&opts.dataDir, "data", "d", defaults.DataDir, "Path to the data directory")
	flags.StringVar(&opts.mediaStorage, "media-storage", defaults.Storage.Media, "Media record storage: file, sqlite3, sqlite or postgres")
	flags.StringVar(&opts.dsn, "dsn", "", "Database DSN for SQL media storage")
	flags.StringVar(&opts.logLevel, "log-level", defaults.Logging.Level, "Log level")
	flags.StringVar(&opts.logFormat, "log-format", defaults.Logging.Format, "Log format: json, console or pretty")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "Disable logging")

	root.AddCommand(newRenderCommand(opts), newMediaCommand(opts))
	return root
}

func (o *globalOptions) config() pagekit.Config {
	cfg := pagekit.DefaultConfig()
	cfg.DataDir = o.dataDir
	cfg.Storage.Media = o.mediaStorage
	cfg.Storage.DSN = o.dsn
	cfg.Logging.Level = o.logLevel
	cfg.Logging.Format = o.logFormat
	if o.quiet {
		cfg.Logging.Provider = "none"
	}
	return cfg
}

func (o *globalOptions) module(mutate ...func(*pagekit.Config)) (*pagekit.Module, error) {
	cfg := o.config()
	for _, fn := range mutate {
		fn(&cfg)
	}
	module, err := moduleBuilder(cfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap module: %w", err)
	}
	return module, nil
}
