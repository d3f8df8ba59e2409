package providers

import (
	"archivist/internal/structures"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultFetchTimeout  = 45 * time.Second
	defaultLanguage      = "en"
	defaultRemote        = "origin"
	defaultExportTimeout = 10 * time.Minute
)

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	v := viper.New()
	filename := filepath.Base(flags.ConfigPath)
	v.AddConfigPath(filepath.Dir(flags.ConfigPath))
	v.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	v.SetConfigType("yaml")

	v.SetDefault("fetcher.timeout", defaultFetchTimeout)
	v.SetDefault("fetcher.language", defaultLanguage)
	v.SetDefault("repository.remote", defaultRemote)
	v.SetDefault("tracker.concurrency", 1)
	v.SetDefault("export.timeout", defaultExportTimeout)

	v.BindEnv("logger.level", "ARCHIVIST_LOG_LEVEL")
	v.BindEnv("repository.path", "ARCHIVIST_REPOSITORY_PATH")
	v.BindEnv("repository.publish", "ARCHIVIST_PUBLISH")
	v.BindEnv("tracker.interval", "ARCHIVIST_TRACK_INTERVAL")
	v.BindEnv("cache.enabled", "ARCHIVIST_CACHE_ENABLED")
	v.BindEnv("cache.size", "ARCHIVIST_CACHE_SIZE")

	err := v.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = v.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	conf.Debug = flags.DebugMode
	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = "Archivist"
	conf.Path = flags.ConfigPath

	return &conf, nil
}
