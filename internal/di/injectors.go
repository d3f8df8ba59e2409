//go:build wireinject
// +build wireinject

package di

import (
	"archivist/internal"
	"archivist/internal/archive"
	"archivist/internal/controllers"
	"archivist/internal/fetcher"
	"archivist/internal/providers"
	"archivist/internal/recorder"
	"archivist/internal/services"
	"archivist/internal/structures"
	wire "github.com/google/wire"
)

var trackerSet = wire.NewSet(
	providers.NewConfigProvider,
	providers.NewLogProvider,
	providers.NewMetricsProvider,
	providers.NewInstrumentedCacheProvider,

	archive.NewZstdCompressor,
	fetcher.NewFetcher,
	recorder.NewRepository,
	services.NewTrackerService,
	archive.NewExporter,
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		trackerSet,
		archive.NewScheduler,
		controllers.NewApiController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil
}

func InitTasks(cfg *structures.CliFlags) (*internal.Tasks, error) {

	wire.Build(
		trackerSet,
		internal.NewTasks,
	)

	return nil, nil
}
