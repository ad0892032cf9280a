package provider

import (
	"context"
	"log/slog"

	"github.com/elvin-stowell/csds-312-final-project/internal/provider/polygon"
)

var _ DataProvider = (*PolygonProvider)(nil)

// PolygonProvider is a DataProvider implementation backed by the Polygon API.
// It embeds *polygon.Client to expose the fetch calls with minimal boilerplate.
type PolygonProvider struct {
	*polygon.Client
	Universe *polygon.Universe

	// TickersFile, when set, replaces the listing endpoint as the universe source.
	TickersFile string
}

// NewPolygonProvider creates a new Polygon-backed DataProvider. checkpoint may be nil.
func NewPolygonProvider(opts polygon.Options, checkpoint polygon.Checkpoint) (*PolygonProvider, error) {
	client, err := polygon.NewClient(opts)
	if err != nil {
		return nil, err
	}
	return &PolygonProvider{
		Client:   client,
		Universe: polygon.NewUniverse(client, checkpoint),
	}, nil
}

// GetName returns provider name
func (p *PolygonProvider) GetName() string {
	return "Polygon"
}

// ListSymbols reads the ticker file when configured, otherwise enumerates the
// active universe through the listing endpoint.
func (p *PolygonProvider) ListSymbols(ctx context.Context) ([]string, error) {
	if p.TickersFile != "" {
		slog.Info("reading tickers from file", "path", p.TickersFile)
		return polygon.LoadTickersFromFile(p.TickersFile)
	}
	return p.Universe.ListAll(ctx)
}
