package pagekit

import "github.com/goliatone/go-pagekit/internal/runtimeconfig"

type (
	Config        = runtimeconfig.Config
	StorageConfig = runtimeconfig.StorageConfig
	LoggingConfig = runtimeconfig.LoggingConfig
	RenderConfig  = runtimeconfig.RenderConfig
	URLConfig     = runtimeconfig.URLConfig
	MediaConfig   = runtimeconfig.MediaConfig
	WatchConfig   = runtimeconfig.WatchConfig
)

const (
	MediaStorageFile     = runtimeconfig.MediaStorageFile
	MediaStorageSQLite3  = runtimeconfig.MediaStorageSQLite3
	MediaStorageSQLite   = runtimeconfig.MediaStorageSQLite
	MediaStoragePostgres = runtimeconfig.MediaStoragePostgres
)

func DefaultConfig() Config {
	return runtimeconfig.DefaultConfig()
}
