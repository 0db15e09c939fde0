// Package session resolves trace files to their cached, lazily parsed summaries.
package session

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/kylixs/flareon/internal/aggregate"
	"github.com/kylixs/flareon/internal/decoder"
	"github.com/kylixs/flareon/internal/logging"
	"github.com/kylixs/flareon/internal/models"
	"github.com/kylixs/flareon/internal/storage"
	"github.com/labstack/gommon/log"
	"golang.org/x/sync/singleflight"
)

// DefaultMaxConcurrentParses bounds parses of different files running at once.
const DefaultMaxConcurrentParses = 4

// recordTimeout bounds a history write after a parse.
const recordTimeout = 10 * time.Second

// Recorder receives every completed parse.
type Recorder interface {
	Record(ctx context.Context, file *models.TraceFile, summary *models.Summary, decodeErr error) error
}

// Options configures a Manager.
type Options struct {
	MaxConcurrentParses int
	SpanMode            aggregate.SpanMode
	Recorder            Recorder // Optional
}

// Stats describes the cache state.
type Stats struct {
	Files    int   `json:"files"`
	Cached   int   `json:"cached"`
	Parsed   int   `json:"parsed"`
	Parses   int64 `json:"parses"`
	Failed   int64 `json:"failed"`
	InFlight int64 `json:"inFlight"`
}

// Manager lists trace files and builds their summaries, parsing each file at
// most once. Concurrent first requests for a file share one parse.
type Manager struct {
	store      storage.Store
	cache      *Cache
	aggregator *aggregate.Aggregator
	flight     singleflight.Group
	parseSem   chan struct{}
	recorder   Recorder
	logger     *log.Logger

	parses   atomic.Int64
	failed   atomic.Int64
	inFlight atomic.Int64
}

// NewManager creates a manager over store, decoding with decoders.
func NewManager(store storage.Store, decoders *decoder.Registry, opts Options) *Manager {
	if decoders == nil {
		decoders = decoder.NewRegistry()
	}
	if opts.MaxConcurrentParses <= 0 {
		opts.MaxConcurrentParses = DefaultMaxConcurrentParses
	}
	return &Manager{
		store:      store,
		cache:      NewCache(),
		aggregator: aggregate.NewAggregator(decoders, opts.SpanMode),
		parseSem:   make(chan struct{}, opts.MaxConcurrentParses),
		recorder:   opts.Recorder,
		logger:     logging.New("session"),
	}
}

// List rescans the trace directory.
func (m *Manager) List() ([]*models.TraceFile, error) {
	return m.store.List()
}

// Files returns the current listing without rescanning.
func (m *Manager) Files() []*models.TraceFile {
	return m.store.Files()
}

// Get returns a file's metadata.
func (m *Manager) Get(id string) (*models.TraceFile, error) {
	return m.store.Get(id)
}

// GetSummary returns the summary of the file with the given ID, parsing it on
// first use. It returns storage.ErrNotFound for unknown IDs.
//
// A decode failure still yields a summary of whatever was captured. If ctx is
// done before the parse finishes, ctx.Err() is returned and the parse keeps
// running for later callers.
func (m *Manager) GetSummary(ctx context.Context, id string) (*models.Summary, error) {
	file, err := m.store.Get(id)
	if err != nil {
		return nil, err
	}

	agg := m.cache.GetOrCreate(id, file)
	if !agg.Parsed() {
		if err := m.waitParse(ctx, id, agg); err != nil {
			return nil, err
		}
	}
	return aggregate.BuildSummary(agg)
}

func (m *Manager) waitParse(ctx context.Context, id string, agg *aggregate.Aggregation) error {
	ch := m.flight.DoChan(id, func() (any, error) {
		return nil, m.parse(id, agg)
	})

	select {
	case <-ctx.Done():
		m.logger.Debugf("Stopped waiting for %s: %v", logging.ShortID(id), ctx.Err())
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

// parse runs inside the flight for id. It reads the file and fills agg unless
// an earlier flight already did.
func (m *Manager) parse(id string, agg *aggregate.Aggregation) (err error) {
	if agg.Parsed() {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			m.logger.Errorf("[%s] PANIC recovered: %v", logging.ShortID(id), r)
			err = fmt.Errorf("parse panicked: %v", r)
		}
	}()

	m.parseSem <- struct{}{}
	defer func() { <-m.parseSem }()
	m.inFlight.Add(1)
	defer m.inFlight.Add(-1)

	start := time.Now()
	m.logger.Infof("[%s] Starting parse of %s", logging.ShortID(id), agg.File.Path)

	data, err := storage.ReadTrace(agg.File.Path)
	if err != nil && !decoder.IsDecodeError(err) {
		// Unreadable file: leave the slot unparsed so a later request retries
		m.logger.Errorf("[%s] Failed to read %s: %v", logging.ShortID(id), agg.File.Path, err)
		return err
	}

	m.parses.Add(1)
	var decodeErr error
	if err != nil {
		// Corrupt compressed data: nothing to decode
		decodeErr = err
		_ = m.aggregator.Fail(agg, err)
	} else {
		decodeErr = m.aggregator.Populate(agg, data)
	}
	if decodeErr != nil {
		m.failed.Add(1)
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	m.logger.Infof("[%s] Parse complete: %d events in %v, memory %.1f MB",
		logging.ShortID(id), agg.Len(), time.Since(start), float64(memStats.Alloc)/1024/1024)

	m.record(agg, decodeErr)
	return nil
}

func (m *Manager) record(agg *aggregate.Aggregation, decodeErr error) {
	if m.recorder == nil {
		return
	}
	summary, err := aggregate.BuildSummary(agg)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := m.recorder.Record(ctx, agg.File, summary, decodeErr); err != nil {
		m.logger.Warnf("Failed to record history for %s: %v", agg.File.Name, err)
	}
}

// Stats returns cache counters.
func (m *Manager) Stats() Stats {
	return Stats{
		Files:    len(m.store.Files()),
		Cached:   m.cache.Len(),
		Parsed:   m.cache.ParsedCount(),
		Parses:   m.parses.Load(),
		Failed:   m.failed.Load(),
		InFlight: m.inFlight.Load(),
	}
}
