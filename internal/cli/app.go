package cli

import (
	"fmt"

	"github.com/kylixs/flareon/internal/config"
	"github.com/kylixs/flareon/internal/decoder"
	"github.com/kylixs/flareon/internal/history"
	"github.com/kylixs/flareon/internal/session"
	"github.com/kylixs/flareon/internal/storage"
)

// app wires the registry, session manager and optional history store.
type app struct {
	registry *storage.Registry
	manager  *session.Manager
	history  *history.DuckStore // nil when persistence is off
}

// newApp builds the service graph. History is opened only when withHistory is
// set; DuckDB allows a single writer process per database file. A nil
// decoders uses every bundled decoder.
func newApp(cfg *config.AppConfig, withHistory bool, decoders *decoder.Registry) (*app, error) {
	a := &app{
		registry: storage.NewRegistry(cfg.Storage.TraceDirectory, cfg.Storage.TraceExtension),
	}

	opts := session.Options{
		MaxConcurrentParses: cfg.Processing.MaxConcurrentParses,
		SpanMode:            cfg.GetSpanMode(),
	}

	if withHistory && cfg.Storage.EnablePersistence {
		store, err := history.Open(cfg.Storage.HistoryDatabase, history.Options{
			Threads:     cfg.Advanced.DuckDBThreads,
			MemoryLimit: cfg.Advanced.DuckDBMemoryLimit,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open history: %w", err)
		}
		a.history = store
		opts.Recorder = store
	}

	a.manager = session.NewManager(a.registry, decoders, opts)
	return a, nil
}

// Close releases the history store.
func (a *app) Close() error {
	if a.history != nil {
		return a.history.Close()
	}
	return nil
}
