//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/elvin-stowell/csds-312-final-project/internal/app"
	"github.com/elvin-stowell/csds-312-final-project/internal/consolidate"
	"github.com/elvin-stowell/csds-312-final-project/internal/crawl"
	"github.com/elvin-stowell/csds-312-final-project/internal/fetch"
	"github.com/elvin-stowell/csds-312-final-project/internal/provider"
	"github.com/elvin-stowell/csds-312-final-project/internal/saver"
)

// InitializeApp builds the App via Wire.
// Caller must run the returned cleanup when done.
func InitializeApp(path app.ConfigPath) (*app.App, func(), error) {
	wire.Build(
		app.ProvideConfig,
		app.ProvideManifest,
		app.ProvidePolygonProvider,
		wire.Bind(new(provider.DataProvider), new(*provider.PolygonProvider)),
		app.ProvideCapCache,
		app.ProvideGate,
		app.ProvideFetcher,
		wire.Bind(new(crawl.Fetcher), new(*fetch.Fetcher)),
		app.ProvideTableSaver,
		app.ProvideBatchWriter,
		wire.Bind(new(crawl.Writer), new(*saver.BatchWriter)),
		wire.Bind(new(consolidate.Writer), new(*saver.BatchWriter)),
		app.ProvidePacer,
		app.ProvideOrchestrator,
		app.ProvideArtifactSource,
		app.ProvideConsolidator,
		wire.Struct(new(app.App), "*"),
	)
	return nil, nil, nil
}
